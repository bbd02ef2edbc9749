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
)

// GetEndpointConfig handles GET /api/config/endpoints. The response lists
// the effective configuration for every known resource; resources without an
// explicit entry show as fully enabled.
func GetEndpointConfig(res *resolver.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		effective := map[string]resolver.OperationSet{}
		for _, resource := range res.Store().Snapshot().Resources {
			effective[resource] = res.Gate().For(resource)
		}
		// Explicit entries for resources no longer in the dataset survive so
		// a future upload of the same dataset picks them back up.
		for resource, set := range res.Gate().Config() {
			effective[resource] = set
		}
		c.JSON(http.StatusOK, gin.H{"endpoints": effective})
	}
}

// PutEndpointConfig handles PUT /api/config/endpoints, replacing the whole
// gate configuration. Resources absent from the body revert to fully
// enabled; operations absent from a resource entry are disabled.
func PutEndpointConfig(res *resolver.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := readBody(c)
		if err != nil {
			respondError(c, err)
			return
		}
		var cfg map[string]resolver.OperationSet
		if err := json.Unmarshal(raw, &cfg); err != nil {
			respondError(c, resolver.MalformedBody(err))
			return
		}

		res.Gate().Replace(cfg)
		slog.Info("endpoint configuration replaced", "resources", len(cfg))
		c.JSON(http.StatusOK, gin.H{"endpoints": res.Gate().Config()})
	}
}
