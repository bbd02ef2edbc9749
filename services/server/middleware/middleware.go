// Copyright (C) 2025 Apifactory Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package middleware provides HTTP middleware for the API server: request
// id propagation and the analytics/metrics emitter.
package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/apifactory/apifactory/services/server/observability"
)

// requestIDKey is the gin context key for the request id.
// Using a namespaced key prevents collisions with other context values.
const requestIDKey = "apifactory_request_id"

// ErrorCodeKey is the gin context key handlers use to expose the resolver
// error code to the analytics middleware.
const ErrorCodeKey = "apifactory_error_code"

// RequestIDHeader is the inbound/outbound request id header.
const RequestIDHeader = "X-Request-ID"

// RequestID assigns every request an id, honoring one supplied by the
// client, and echoes it on the response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Writer.Header().Set(RequestIDHeader, id)
		c.Next()
	}
}

// GetRequestID returns the request id assigned by RequestID, or "" when the
// middleware did not run.
func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// Analytics emits a LogRequest observation after every request and feeds the
// Prometheus metrics. The request path never depends on the emitter; a nil
// log or metrics set is skipped.
func Analytics(log *observability.Analytics, metrics *observability.APIMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		elapsed := time.Since(start)
		resource := c.Param("resource")
		status := c.Writer.Status()
		errCode := c.GetString(ErrorCodeKey)

		if log != nil {
			log.Record(observability.LogRequest{
				Method:       c.Request.Method,
				Path:         c.Request.URL.Path,
				Resource:     resource,
				ItemID:       c.Param("id"),
				Status:       status,
				ResponseTime: elapsed,
				Error:        errCode,
			})
		}
		if metrics != nil {
			metrics.RecordRequest(c.Request.Method, resource, status, elapsed.Seconds())
			if errCode != "" {
				metrics.RecordError(resource, errCode)
			}
		}
	}
}
