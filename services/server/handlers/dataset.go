// Copyright (C) 2025 Apifactory Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	json "github.com/goccy/go-json"

	"github.com/apifactory/apifactory/services/resolver"
	"github.com/apifactory/apifactory/services/server/observability"
	"github.com/apifactory/apifactory/services/store"
)

// validateRequest is the validation submission envelope. Both members are
// kept raw so the store decodes them with number and key order preserved.
type validateRequest struct {
	Data   json.RawMessage `json:"data"`
	Schema json.RawMessage `json:"schema"`
}

// ValidateDataset handles POST /api/validate. On success the submitted
// dataset becomes the live API; on validation failure the previous dataset
// stays untouched and the errors are returned.
func ValidateDataset(st *store.Store, metrics *observability.APIMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := readBody(c)
		if err != nil {
			respondError(c, err)
			return
		}
		var req validateRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			respondError(c, resolver.MalformedBody(err))
			return
		}
		if len(req.Data) == 0 || len(req.Schema) == 0 {
			respondError(c, resolver.MalformedBody(nil))
			return
		}

		result, resources, err := st.SetData(req.Data, req.Schema)
		if err != nil {
			respondError(c, resolver.Internal(err))
			return
		}
		if metrics != nil {
			metrics.RecordValidation(result.Valid)
		}
		slog.Info("validation submission", "isValid", result.Valid,
			"errors", len(result.Errors), "resources", len(resources))

		if resources == nil {
			resources = []string{}
		}
		if result.Errors == nil {
			result.Errors = []string{}
		}
		c.JSON(http.StatusOK, gin.H{
			"isValid":   result.Valid,
			"errors":    result.Errors,
			"resources": resources,
		})
	}
}

// Status handles GET /api/status with a snapshot summary.
func Status(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap := st.Snapshot()
		resources := snap.Resources
		if resources == nil {
			resources = []string{}
		}
		body := gin.H{
			"isValid":   snap.Valid,
			"resources": resources,
		}
		if snap.Valid {
			body["timestamp"] = snap.Timestamp
			body["schemaSignature"] = snap.SchemaSignature()
		}
		c.JSON(http.StatusOK, body)
	}
}

// ClearDataset handles DELETE /api/data, dropping the live dataset and its
// persisted state.
func ClearDataset(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := st.Clear(); err != nil {
			respondError(c, resolver.Internal(err))
			return
		}
		slog.Info("dataset cleared")
		c.JSON(http.StatusOK, gin.H{"status": "cleared"})
	}
}
