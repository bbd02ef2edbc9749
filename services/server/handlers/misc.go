// Copyright (C) 2025 Apifactory Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/apifactory/apifactory/services/resolver"
	"github.com/apifactory/apifactory/services/server/middleware"
	"github.com/apifactory/apifactory/services/server/observability"
)

// Analytics handles GET /api/analytics?window=1h. A missing or zero window
// aggregates everything retained.
func Analytics(log *observability.Analytics) gin.HandlerFunc {
	return func(c *gin.Context) {
		var window time.Duration
		if raw := c.Query("window"); raw != "" {
			parsed, err := time.ParseDuration(raw)
			if err != nil || parsed < 0 {
				c.Set(middleware.ErrorCodeKey, string(resolver.CodeMalformedBody))
				c.JSON(http.StatusBadRequest, gin.H{"error": "window must be a positive duration like 15m or 1h"})
				return
			}
			window = parsed
		}
		c.JSON(http.StatusOK, log.Query(window))
	}
}

// HealthCheck reports liveness.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "apifactory"})
}
