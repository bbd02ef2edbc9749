// Copyright (C) 2025 Apifactory Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package handlers implements the HTTP handlers for the generated API:
// resource CRUD, validation submission, endpoint-config administration, the
// GraphQL endpoint, exporters, analytics, and health.
package handlers

import (
	"io"
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/apifactory/apifactory/services/document"
	"github.com/apifactory/apifactory/services/resolver"
	"github.com/apifactory/apifactory/services/server/middleware"
)

// maxBodyBytes bounds request bodies; documents this size would not fit the
// single-snapshot store anyway.
const maxBodyBytes = 16 << 20

// respondError maps a resolver error onto the REST status taxonomy and tags
// the request for the analytics middleware. Internal errors are logged in
// full and reported generically.
func respondError(c *gin.Context, err error) {
	re := resolver.AsError(err)
	c.Set(middleware.ErrorCodeKey, string(re.Code))

	if re.Code == resolver.CodeInternal {
		slog.Error("internal error", "error", err, "path", c.Request.URL.Path,
			"request_id", middleware.GetRequestID(c))
		c.JSON(re.HTTPStatus(), gin.H{"error": "internal server error"})
		return
	}

	body := gin.H{"error": re.Message}
	if len(re.Details) > 0 {
		body["details"] = re.Details
	}
	c.JSON(re.HTTPStatus(), body)
}

// readBody reads the request body within the size bound.
func readBody(c *gin.Context) ([]byte, error) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		return nil, resolver.MalformedBody(err)
	}
	return raw, nil
}

// decodeItem decodes the request body as an ordered JSON object.
func decodeItem(c *gin.Context) (*document.Item, error) {
	raw, err := readBody(c)
	if err != nil {
		return nil, err
	}
	item, err := document.DecodeItem(raw)
	if err != nil {
		return nil, resolver.MalformedBody(err)
	}
	return item, nil
}
