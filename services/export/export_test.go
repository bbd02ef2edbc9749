// Copyright (C) 2025 Apifactory Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package export

import (
	"errors"
	"strings"
	"testing"

	"github.com/apifactory/apifactory/services/resolver"
	"github.com/apifactory/apifactory/services/store"
)

const seedData = `{"users":[{"id":1,"name":"Ada","email":"ada@example.com"}],"tags":[{"id":1,"label":"x"}]}`

const seedSchema = `{
	"type": "object",
	"properties": {
		"users": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["name"],
				"properties": {
					"id": {"type": "integer"},
					"name": {"type": "string"},
					"email": {"type": "string", "format": "email"}
				}
			}
		},
		"tags": {"type": "array", "items": {"type": "object"}}
	}
}`

func newTestResolver(t *testing.T, data, schemaDoc string) *resolver.Resolver {
	t.Helper()
	st, err := store.Open(store.Config{InMemory: true})
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	if data != "" {
		res, _, err := st.SetData([]byte(data), []byte(schemaDoc))
		if err != nil {
			t.Fatalf("SetData: %v", err)
		}
		if !res.Valid {
			t.Fatalf("seed data invalid: %v", res.Errors)
		}
	}
	return resolver.New(st, resolver.NewGate())
}

func TestOpenAPI_CoversAllResources(t *testing.T) {
	r := newTestResolver(t, seedData, seedSchema)
	doc, err := NewOpenAPIGenerator(r).Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	paths := doc["paths"].(map[string]any)
	for _, p := range []string{"/api/users", "/api/users/{id}", "/api/tags", "/api/tags/{id}"} {
		if _, ok := paths[p]; !ok {
			t.Errorf("missing path %s", p)
		}
	}

	item := paths["/api/users/{id}"].(map[string]any)
	for _, method := range []string{"get", "put", "patch", "delete"} {
		if _, ok := item[method]; !ok {
			t.Errorf("missing %s on item path", method)
		}
	}

	schemas := doc["components"].(map[string]any)["schemas"].(map[string]any)
	user, ok := schemas["User"].(map[string]any)
	if !ok {
		t.Fatal("missing User component schema")
	}
	props := user["properties"].(map[string]any)
	email := props["email"].(map[string]any)
	if email["format"] != "email" {
		t.Errorf("email format = %v", email["format"])
	}
}

func TestOpenAPI_DisabledDeleteOmitsOperation(t *testing.T) {
	r := newTestResolver(t, seedData, seedSchema)
	set := resolver.AllEnabled()
	set.DeleteItem = false
	r.Gate().Set("users", set)

	doc, err := NewOpenAPIGenerator(r).Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	item := doc["paths"].(map[string]any)["/api/users/{id}"].(map[string]any)
	if _, ok := item["delete"]; ok {
		t.Error("disabled delete must not be documented")
	}
	if _, ok := item["get"]; !ok {
		t.Error("enabled operations must remain")
	}
}

func TestOpenAPI_AllItemOpsDisabledOmitsPath(t *testing.T) {
	r := newTestResolver(t, seedData, seedSchema)
	set := resolver.AllEnabled()
	set.GetItem = false
	set.PutItem = false
	set.PatchItem = false
	set.DeleteItem = false
	r.Gate().Set("users", set)

	doc, err := NewOpenAPIGenerator(r).Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, ok := doc["paths"].(map[string]any)["/api/users/{id}"]; ok {
		t.Error("item path with no enabled operations must be omitted")
	}
}

func TestOpenAPI_RequiresData(t *testing.T) {
	r := newTestResolver(t, "", "")
	_, err := NewOpenAPIGenerator(r).Generate()
	var re *resolver.Error
	if !errors.As(err, &re) || re.Code != resolver.CodeNoData {
		t.Fatalf("expected NO_DATA_AVAILABLE, got %v", err)
	}
}

func TestPostman_CollectionShape(t *testing.T) {
	r := newTestResolver(t, seedData, seedSchema)
	col, err := NewPostmanGenerator(r).Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	info := col["info"].(map[string]any)
	if !strings.Contains(info["schema"].(string), "v2.1.0") {
		t.Errorf("schema url = %v", info["schema"])
	}

	folders := col["item"].([]any)
	if len(folders) != 2 {
		t.Fatalf("folders = %d, want 2", len(folders))
	}
	users := folders[0].(map[string]any)
	if users["name"] != "users" {
		t.Errorf("first folder = %v, want users (document order)", users["name"])
	}
	requests := users["item"].([]any)
	if len(requests) != 6 {
		t.Errorf("requests = %d, want 6", len(requests))
	}

	create := requests[1].(map[string]any)
	body := create["request"].(map[string]any)["body"].(map[string]any)
	raw := body["raw"].(string)
	if strings.Contains(raw, `"id"`) {
		t.Errorf("example body must strip identity fields: %s", raw)
	}
	if !strings.Contains(raw, `"name"`) {
		t.Errorf("example body should carry sample fields: %s", raw)
	}
}

func TestPostman_GateFiltersRequests(t *testing.T) {
	r := newTestResolver(t, seedData, seedSchema)
	set := resolver.AllEnabled()
	set.DeleteItem = false
	set.PostCollection = false
	r.Gate().Set("users", set)

	col, err := NewPostmanGenerator(r).Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	users := col["item"].([]any)[0].(map[string]any)
	requests := users["item"].([]any)
	if len(requests) != 4 {
		t.Errorf("requests = %d, want 4 with two operations disabled", len(requests))
	}
	for _, it := range requests {
		name := it.(map[string]any)["name"].(string)
		if strings.HasPrefix(name, "Delete") || strings.HasPrefix(name, "Create") {
			t.Errorf("disabled request present: %s", name)
		}
	}
}
