// Copyright (C) 2025 Apifactory Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package export renders read-only projections of the current API surface:
// an OpenAPI 3 document and a Postman collection. Both honor the endpoint
// gate, so a disabled operation never appears in generated documentation.
package export

import (
	"fmt"

	"github.com/apifactory/apifactory/services/gql"
	"github.com/apifactory/apifactory/services/resolver"
	"github.com/apifactory/apifactory/services/schema"
)

// OpenAPIGenerator projects the gated REST surface as an OpenAPI 3.0.3
// document.
type OpenAPIGenerator struct {
	res *resolver.Resolver
}

func NewOpenAPIGenerator(res *resolver.Resolver) *OpenAPIGenerator {
	return &OpenAPIGenerator{res: res}
}

// Generate builds the document for the current snapshot. Requires a valid
// dataset.
func (g *OpenAPIGenerator) Generate() (map[string]any, error) {
	snap := g.res.Store().Snapshot()
	if !snap.Valid {
		return nil, resolver.NoData()
	}

	paths := map[string]any{}
	schemas := map[string]any{}
	gate := g.res.Gate()

	for _, resource := range snap.Resources {
		typeName := gql.TypeName(resource)
		schemas[typeName] = openAPISchema(snap.ItemSchema(resource))
		ref := map[string]any{"$ref": "#/components/schemas/" + typeName}
		listRef := map[string]any{"type": "array", "items": ref}

		collection := map[string]any{}
		if gate.Enabled(resource, resolver.OpGetCollection) {
			collection["get"] = operation(
				fmt.Sprintf("List %s", resource),
				resource, jsonResponse("200", listRef), nil,
			)
		}
		if gate.Enabled(resource, resolver.OpPostCollection) {
			collection["post"] = operation(
				fmt.Sprintf("Create a %s item", resource),
				resource, jsonResponse("201", ref), ref,
			)
		}
		if len(collection) > 0 {
			paths["/api/"+resource] = collection
		}

		item := map[string]any{}
		if gate.Enabled(resource, resolver.OpGetItem) {
			item["get"] = operation(
				fmt.Sprintf("Get a %s item by id", resource),
				resource, jsonResponse("200", ref), nil,
			)
		}
		if gate.Enabled(resource, resolver.OpPutItem) {
			item["put"] = operation(
				fmt.Sprintf("Replace a %s item", resource),
				resource, jsonResponse("200", ref), ref,
			)
		}
		if gate.Enabled(resource, resolver.OpPatchItem) {
			item["patch"] = operation(
				fmt.Sprintf("Update a %s item", resource),
				resource, jsonResponse("200", ref), ref,
			)
		}
		if gate.Enabled(resource, resolver.OpDeleteItem) {
			item["delete"] = operation(
				fmt.Sprintf("Delete a %s item", resource),
				resource, jsonResponse("200", ref), nil,
			)
		}
		if len(item) > 0 {
			item["parameters"] = []any{map[string]any{
				"name":     "id",
				"in":       "path",
				"required": true,
				"schema":   map[string]any{"type": "string"},
			}}
			paths["/api/"+resource+"/{id}"] = item
		}
	}

	return map[string]any{
		"openapi": "3.0.3",
		"info": map[string]any{
			"title":       "Apifactory generated API",
			"description": "CRUD endpoints synthesized from the uploaded dataset.",
			"version":     "1.0.0",
		},
		"paths": paths,
		"components": map[string]any{
			"schemas": schemas,
		},
	}, nil
}

func operation(summary, tag string, responses map[string]any, requestRef map[string]any) map[string]any {
	op := map[string]any{
		"summary":   summary,
		"tags":      []any{tag},
		"responses": responses,
	}
	if requestRef != nil {
		op["requestBody"] = map[string]any{
			"required": true,
			"content": map[string]any{
				"application/json": map[string]any{"schema": requestRef},
			},
		}
	}
	return op
}

func jsonResponse(status string, bodySchema map[string]any) map[string]any {
	return map[string]any{
		status: map[string]any{
			"description": "Successful response",
			"content": map[string]any{
				"application/json": map[string]any{"schema": bodySchema},
			},
		},
		"404": map[string]any{"description": "Not found or endpoint disabled"},
	}
}

// openAPISchema converts the declared item schema into an OpenAPI schema
// object. Resources without a declared item schema document as a free-form
// object.
func openAPISchema(s *schema.Schema) map[string]any {
	if s == nil {
		return map[string]any{"type": "object"}
	}
	out := map[string]any{}
	types := s.TypeList()
	if len(types) == 1 {
		out["type"] = types[0]
	} else if len(types) > 1 {
		// OpenAPI 3.0 has no type arrays; keep the first declared type.
		out["type"] = types[0]
	}
	if len(s.Properties) > 0 {
		props := map[string]any{}
		for name, sub := range s.Properties {
			props[name] = openAPISchema(sub)
		}
		out["properties"] = props
	}
	if s.Items != nil {
		out["items"] = openAPISchema(s.Items)
	}
	if len(s.Required) > 0 {
		req := make([]any, len(s.Required))
		for i, r := range s.Required {
			req[i] = r
		}
		out["required"] = req
	}
	if len(s.Enum) > 0 {
		out["enum"] = s.Enum
	}
	if s.Format != "" {
		out["format"] = s.Format
	}
	if s.Pattern != "" {
		out["pattern"] = s.Pattern
	}
	if s.Minimum != nil {
		out["minimum"] = *s.Minimum
	}
	if s.Maximum != nil {
		out["maximum"] = *s.Maximum
	}
	if s.MinLength != nil {
		out["minLength"] = *s.MinLength
	}
	if s.MaxLength != nil {
		out["maxLength"] = *s.MaxLength
	}
	if len(out) == 0 {
		out["type"] = "object"
	}
	return out
}
