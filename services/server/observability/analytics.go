// Copyright (C) 2025 Apifactory Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package observability

import (
	"sync"
	"time"
)

// defaultCapacity bounds the in-memory request log.
const defaultCapacity = 10000

// LogRequest is one observed API request. Emitted by the analytics
// middleware after every request; the core request path never depends on it.
type LogRequest struct {
	Method       string        `json:"method"`
	Path         string        `json:"path"`
	Resource     string        `json:"resource,omitempty"`
	ItemID       string        `json:"itemId,omitempty"`
	Status       int           `json:"status"`
	ResponseTime time.Duration `json:"-"`
	Error        string        `json:"error,omitempty"`
	Timestamp    time.Time     `json:"timestamp"`
}

// Summary aggregates the request log over a time window.
type Summary struct {
	Window            string         `json:"window"`
	TotalRequests     int            `json:"totalRequests"`
	ErrorCount        int            `json:"errorCount"`
	ByResource        map[string]int `json:"byResource"`
	ByMethod          map[string]int `json:"byMethod"`
	ByStatus          map[string]int `json:"byStatus"`
	AvgResponseTimeMs float64        `json:"avgResponseTimeMs"`
}

// Analytics is a bounded in-memory request log with windowed aggregation.
// Oldest entries are evicted when the capacity is reached.
type Analytics struct {
	mu       sync.Mutex
	entries  []LogRequest
	capacity int
	now      func() time.Time
}

// NewAnalytics builds an empty log with the default capacity.
func NewAnalytics() *Analytics {
	return &Analytics{capacity: defaultCapacity, now: time.Now}
}

// Record appends one request observation.
func (a *Analytics) Record(req LogRequest) {
	if req.Timestamp.IsZero() {
		req.Timestamp = a.now()
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, req)
	if len(a.entries) > a.capacity {
		a.entries = a.entries[len(a.entries)-a.capacity:]
	}
}

// Query aggregates the entries newer than the window. A zero window
// aggregates everything retained.
func (a *Analytics) Query(window time.Duration) Summary {
	cutoff := time.Time{}
	if window > 0 {
		cutoff = a.now().Add(-window)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	s := Summary{
		Window:     window.String(),
		ByResource: map[string]int{},
		ByMethod:   map[string]int{},
		ByStatus:   map[string]int{},
	}
	var totalMs float64
	for _, e := range a.entries {
		if !cutoff.IsZero() && e.Timestamp.Before(cutoff) {
			continue
		}
		s.TotalRequests++
		if e.Status >= 400 || e.Error != "" {
			s.ErrorCount++
		}
		if e.Resource != "" {
			s.ByResource[e.Resource]++
		}
		s.ByMethod[e.Method]++
		s.ByStatus[statusBucket(e.Status)]++
		totalMs += float64(e.ResponseTime) / float64(time.Millisecond)
	}
	if s.TotalRequests > 0 {
		s.AvgResponseTimeMs = totalMs / float64(s.TotalRequests)
	}
	return s
}

// Recent returns up to n most recent entries, newest last.
func (a *Analytics) Recent(n int) []LogRequest {
	a.mu.Lock()
	defer a.mu.Unlock()
	if n <= 0 || n > len(a.entries) {
		n = len(a.entries)
	}
	out := make([]LogRequest, n)
	copy(out, a.entries[len(a.entries)-n:])
	return out
}

func statusBucket(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "other"
	}
}
