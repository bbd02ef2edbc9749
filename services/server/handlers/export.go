// Copyright (C) 2025 Apifactory Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/apifactory/apifactory/services/export"
)

// ExportOpenAPI handles GET /api/export/openapi.
func ExportOpenAPI(gen *export.OpenAPIGenerator) gin.HandlerFunc {
	return func(c *gin.Context) {
		doc, err := gen.Generate()
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, doc)
	}
}

// ExportPostman handles GET /api/export/postman.
func ExportPostman(gen *export.PostmanGenerator) gin.HandlerFunc {
	return func(c *gin.Context) {
		col, err := gen.Generate()
		if err != nil {
			respondError(c, err)
			return
		}
		c.Header("Content-Disposition", `attachment; filename="apifactory.postman_collection.json"`)
		c.JSON(http.StatusOK, col)
	}
}
