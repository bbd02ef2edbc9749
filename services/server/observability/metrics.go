// Copyright (C) 2025 Apifactory Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package observability provides metrics and request analytics for the API
// server.
//
// # Description
//
// This package implements Prometheus metrics for monitoring generated API
// traffic plus an in-memory windowed analytics log. Metrics include:
//   - Request counters (by method, resource, status)
//   - Request latency histograms
//   - Error counters (by resource and error code)
//   - Validation submission counters
//
// # Integration
//
// Metrics are exposed via the /metrics endpoint. The analytics log backs
// GET /api/analytics.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
// The analytics log carries its own mutex.
package observability

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Metric Definitions
// =============================================================================

// Namespace for all metrics
const metricsNamespace = "apifactory"

// Subsystem for generated API traffic
const apiSubsystem = "api"

// APIMetrics holds all Prometheus metrics for generated API traffic.
//
// Initialize once at startup via InitMetrics, or with a private registry via
// NewAPIMetrics for tests.
type APIMetrics struct {
	// RequestsTotal counts requests by method, resource, and status code.
	RequestsTotal *prometheus.CounterVec

	// RequestDurationSeconds measures request latency by method and resource.
	RequestDurationSeconds *prometheus.HistogramVec

	// ErrorsTotal counts resolver errors by resource and error code.
	ErrorsTotal *prometheus.CounterVec

	// ValidationsTotal counts validation submissions by result.
	// Labels: result (valid, invalid)
	ValidationsTotal *prometheus.CounterVec
}

// DefaultMetrics is the singleton instance registered on the default
// registry. Initialized by InitMetrics.
var DefaultMetrics *APIMetrics

// InitMetrics initializes the default metrics instance. Call once at
// application startup; calling twice panics on duplicate registration.
func InitMetrics() *APIMetrics {
	DefaultMetrics = NewAPIMetrics(prometheus.DefaultRegisterer)
	return DefaultMetrics
}

// NewAPIMetrics creates and registers the metric set on the given registerer.
func NewAPIMetrics(reg prometheus.Registerer) *APIMetrics {
	factory := promauto.With(reg)
	return &APIMetrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: apiSubsystem,
				Name:      "requests_total",
				Help:      "Total number of API requests by method, resource, and status",
			},
			[]string{"method", "resource", "status"},
		),

		RequestDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: apiSubsystem,
				Name:      "request_duration_seconds",
				Help:      "Request latency in seconds by method and resource",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
			},
			[]string{"method", "resource"},
		),

		ErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: apiSubsystem,
				Name:      "errors_total",
				Help:      "Total resolver errors by resource and error code",
			},
			[]string{"resource", "error_code"},
		),

		ValidationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: apiSubsystem,
				Name:      "validations_total",
				Help:      "Total validation submissions by result",
			},
			[]string{"result"},
		),
	}
}

// =============================================================================
// Helper Methods
// =============================================================================

// RecordRequest records a completed request.
func (m *APIMetrics) RecordRequest(method, resource string, status int, seconds float64) {
	m.RequestsTotal.WithLabelValues(method, resource, strconv.Itoa(status)).Inc()
	m.RequestDurationSeconds.WithLabelValues(method, resource).Observe(seconds)
}

// RecordError records a resolver error.
func (m *APIMetrics) RecordError(resource, code string) {
	m.ErrorsTotal.WithLabelValues(resource, code).Inc()
}

// RecordValidation records a validation submission outcome.
func (m *APIMetrics) RecordValidation(valid bool) {
	result := "valid"
	if !valid {
		result = "invalid"
	}
	m.ValidationsTotal.WithLabelValues(result).Inc()
}
