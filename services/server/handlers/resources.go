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

	"github.com/apifactory/apifactory/services/resolver"
)

// ListResource handles GET /api/:resource.
func ListResource(res *resolver.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		items, err := res.List(c.Param("resource"))
		if err != nil {
			respondError(c, err)
			return
		}
		if items == nil {
			items = []any{}
		}
		c.JSON(http.StatusOK, items)
	}
}

// GetItem handles GET /api/:resource/:id.
func GetItem(res *resolver.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		item, err := res.Get(c.Param("resource"), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, item)
	}
}

// CreateItem handles POST /api/:resource.
func CreateItem(res *resolver.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := decodeItem(c)
		if err != nil {
			respondError(c, err)
			return
		}
		created, err := res.Create(c.Param("resource"), body)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, created)
	}
}

// ReplaceItem handles PUT /api/:resource/:id.
func ReplaceItem(res *resolver.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := decodeItem(c)
		if err != nil {
			respondError(c, err)
			return
		}
		replaced, err := res.Replace(c.Param("resource"), c.Param("id"), body)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, replaced)
	}
}

// MergeItem handles PATCH /api/:resource/:id.
func MergeItem(res *resolver.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := decodeItem(c)
		if err != nil {
			respondError(c, err)
			return
		}
		merged, err := res.Merge(c.Param("resource"), c.Param("id"), body)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, merged)
	}
}

// DeleteItem handles DELETE /api/:resource/:id and returns the removed item.
func DeleteItem(res *resolver.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		removed, err := res.Remove(c.Param("resource"), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, removed)
	}
}
