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
	json "github.com/goccy/go-json"
	"github.com/graphql-go/graphql"

	"github.com/apifactory/apifactory/services/gql"
	"github.com/apifactory/apifactory/services/resolver"
)

type graphqlRequest struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName"`
	Variables     map[string]any `json:"variables"`
}

// GraphQL handles POST /graphql against the schema synthesized for the
// current dataset. Per GraphQL convention the response is 200 even when the
// result carries errors.
func GraphQL(syn *gql.Synthesizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := readBody(c)
		if err != nil {
			respondError(c, err)
			return
		}
		var req graphqlRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			respondError(c, resolver.MalformedBody(err))
			return
		}
		if req.Query == "" {
			respondError(c, resolver.MalformedBody(nil))
			return
		}

		schema, _ := syn.Current()
		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			OperationName:  req.OperationName,
			VariableValues: req.Variables,
			Context:        c.Request.Context(),
		})
		c.JSON(http.StatusOK, result)
	}
}

// GraphQLSDL handles GET /graphql/schema, returning the synthesized schema
// text for inspection.
func GraphQLSDL(syn *gql.Synthesizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, sdl := syn.Current()
		c.String(http.StatusOK, sdl)
	}
}
