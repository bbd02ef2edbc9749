// Copyright (C) 2025 Apifactory Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package export

import (
	"fmt"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/apifactory/apifactory/services/document"
	"github.com/apifactory/apifactory/services/resolver"
)

const postmanSchemaURL = "https://schema.getpostman.com/json/collection/v2.1.0/collection.json"

// PostmanGenerator projects the gated REST surface as a Postman v2.1
// collection, one folder per resource.
type PostmanGenerator struct {
	res *resolver.Resolver
}

func NewPostmanGenerator(res *resolver.Resolver) *PostmanGenerator {
	return &PostmanGenerator{res: res}
}

// Generate builds the collection for the current snapshot. Requires a valid
// dataset.
func (g *PostmanGenerator) Generate() (map[string]any, error) {
	snap := g.res.Store().Snapshot()
	if !snap.Valid {
		return nil, resolver.NoData()
	}

	gate := g.res.Gate()
	var folders []any
	for _, resource := range snap.Resources {
		example := sampleBody(snap.Document, resource)

		var requests []any
		if gate.Enabled(resource, resolver.OpGetCollection) {
			requests = append(requests, request("List "+resource, "GET", resource, "", ""))
		}
		if gate.Enabled(resource, resolver.OpPostCollection) {
			requests = append(requests, request("Create "+resource+" item", "POST", resource, "", example))
		}
		if gate.Enabled(resource, resolver.OpGetItem) {
			requests = append(requests, request("Get "+resource+" item", "GET", resource, "1", ""))
		}
		if gate.Enabled(resource, resolver.OpPutItem) {
			requests = append(requests, request("Replace "+resource+" item", "PUT", resource, "1", example))
		}
		if gate.Enabled(resource, resolver.OpPatchItem) {
			requests = append(requests, request("Update "+resource+" item", "PATCH", resource, "1", example))
		}
		if gate.Enabled(resource, resolver.OpDeleteItem) {
			requests = append(requests, request("Delete "+resource+" item", "DELETE", resource, "1", ""))
		}
		if len(requests) == 0 {
			continue
		}
		folders = append(folders, map[string]any{
			"name": resource,
			"item": requests,
		})
	}

	if folders == nil {
		folders = []any{}
	}
	return map[string]any{
		"info": map[string]any{
			"name":   "Apifactory generated API",
			"schema": postmanSchemaURL,
		},
		"variable": []any{
			map[string]any{"key": "baseUrl", "value": "http://localhost:8080"},
		},
		"item": folders,
	}, nil
}

func request(name, method, resource, id, body string) map[string]any {
	segments := []any{"api", resource}
	rawPath := fmt.Sprintf("{{baseUrl}}/api/%s", resource)
	if id != "" {
		segments = append(segments, id)
		rawPath += "/" + id
	}

	req := map[string]any{
		"method": method,
		"header": []any{
			map[string]any{"key": "Content-Type", "value": "application/json"},
		},
		"url": map[string]any{
			"raw":  rawPath,
			"host": []any{"{{baseUrl}}"},
			"path": segments,
		},
	}
	if body != "" {
		req["body"] = map[string]any{
			"mode": "raw",
			"raw":  body,
		}
	}
	return map[string]any{"name": name, "request": req}
}

// sampleBody renders the resource's first item as an indented request body
// example, with identity and timestamp fields stripped.
func sampleBody(doc *document.Item, resource string) string {
	v, ok := doc.Get(resource)
	if !ok {
		return "{}"
	}
	items, ok := v.([]any)
	if !ok || len(items) == 0 {
		return "{}"
	}
	first, ok := items[0].(*document.Item)
	if !ok {
		return "{}"
	}

	example := first.Clone()
	for _, f := range []string{"id", "_id", "uuid", "createdAt", "updatedAt"} {
		example.Delete(f)
	}
	raw, err := json.MarshalIndent(example, "", "  ")
	if err != nil {
		return "{}"
	}
	return strings.TrimSpace(string(raw))
}
