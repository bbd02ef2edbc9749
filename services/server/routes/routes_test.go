// Copyright (C) 2025 Apifactory Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apifactory/apifactory/services/gql"
	"github.com/apifactory/apifactory/services/resolver"
	"github.com/apifactory/apifactory/services/server/middleware"
	"github.com/apifactory/apifactory/services/server/observability"
	"github.com/apifactory/apifactory/services/store"
)

// ============================================================================
// Test Setup
// ============================================================================

func init() {
	// Set Gin to test mode to reduce noise in test output
	gin.SetMode(gin.TestMode)
}

const testData = `{
	"users": [
		{"id": 1, "name": "Ada", "email": "ada@example.com"}
	],
	"posts": [
		{"id": 1, "title": "hello", "views": 10}
	]
}`

const testSchema = `{
	"type": "object",
	"properties": {
		"users": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["name"],
				"properties": {
					"id": {"type": ["integer", "string"]},
					"name": {"type": "string"},
					"email": {"type": "string", "format": "email"}
				}
			}
		},
		"posts": {"type": "array", "items": {"type": "object"}}
	}
}`

type testEnv struct {
	router    *gin.Engine
	analytics *observability.Analytics
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	st, err := store.Open(store.Config{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	res := resolver.New(st, resolver.NewGate())
	analytics := observability.NewAnalytics()
	metrics := observability.NewAPIMetrics(prometheus.NewRegistry())

	router := gin.New()
	router.Use(middleware.RequestID(), middleware.Analytics(analytics, metrics))
	SetupRoutes(router, Deps{
		Resolver:  res,
		Synth:     gql.NewSynthesizer(res),
		Analytics: analytics,
		Metrics:   metrics,
	})
	return &testEnv{router: router, analytics: analytics}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) upload(t *testing.T) {
	t.Helper()
	payload, err := json.Marshal(map[string]json.RawMessage{
		"data":   json.RawMessage(testData),
		"schema": json.RawMessage(testSchema),
	})
	require.NoError(t, err)
	w := e.do(t, http.MethodPost, "/api/validate", string(payload))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		IsValid   bool     `json:"isValid"`
		Resources []string `json:"resources"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.IsValid)
	require.Equal(t, []string{"users", "posts"}, resp.Resources)
}

func decodeMap(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m))
	return m
}

// ============================================================================
// Lifecycle
// ============================================================================

func TestHealthAndStatus(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/api/status", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decodeMap(t, w)["isValid"])

	env.upload(t)
	w = env.do(t, http.MethodGet, "/api/status", "")
	status := decodeMap(t, w)
	assert.Equal(t, true, status["isValid"])
	assert.NotEmpty(t, status["schemaSignature"])
}

func TestValidate_InvalidDataReported(t *testing.T) {
	env := newTestEnv(t)

	payload := `{"data": {"users": [{"id": 1}]}, "schema": ` + testSchema + `}`
	w := env.do(t, http.MethodPost, "/api/validate", payload)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeMap(t, w)
	assert.Equal(t, false, resp["isValid"])
	assert.NotEmpty(t, resp["errors"])

	// A failed submission must not activate the API.
	w = env.do(t, http.MethodGet, "/api/users", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestValidate_MalformedEnvelope(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodPost, "/api/validate", `{"data": 5}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestClearData(t *testing.T) {
	env := newTestEnv(t)
	env.upload(t)

	w := env.do(t, http.MethodDelete, "/api/data", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/api/users", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// ============================================================================
// Resource CRUD over REST
// ============================================================================

func TestResourceCRUDFlow(t *testing.T) {
	env := newTestEnv(t)
	env.upload(t)

	// List
	w := env.do(t, http.MethodGet, "/api/users", "")
	require.Equal(t, http.StatusOK, w.Code)
	var items []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &items))
	require.Len(t, items, 1)

	// Create
	w = env.do(t, http.MethodPost, "/api/users", `{"name":"Grace","email":"grace@example.com"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decodeMap(t, w)
	assert.EqualValues(t, 2, created["id"])
	assert.NotEmpty(t, created["createdAt"])

	// Get
	w = env.do(t, http.MethodGet, "/api/users/2", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Grace", decodeMap(t, w)["name"])

	// Replace drops omitted fields, keeps identity and createdAt
	w = env.do(t, http.MethodPut, "/api/users/2", `{"name":"Grace H"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	replaced := decodeMap(t, w)
	assert.EqualValues(t, 2, replaced["id"])
	assert.Equal(t, created["createdAt"], replaced["createdAt"])
	_, hasEmail := replaced["email"]
	assert.False(t, hasEmail)

	// Merge keeps unspecified fields
	w = env.do(t, http.MethodPatch, "/api/users/1", `{"name":"Ada L"}`)
	require.Equal(t, http.StatusOK, w.Code)
	merged := decodeMap(t, w)
	assert.Equal(t, "Ada L", merged["name"])
	assert.Equal(t, "ada@example.com", merged["email"])

	// Delete returns the removed item
	w = env.do(t, http.MethodDelete, "/api/users/2", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Grace H", decodeMap(t, w)["name"])

	w = env.do(t, http.MethodGet, "/api/users/2", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestResourceErrors(t *testing.T) {
	env := newTestEnv(t)

	// Before any upload every resource route is 404.
	w := env.do(t, http.MethodGet, "/api/users", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, decodeMap(t, w)["error"], "No data available")

	env.upload(t)

	w = env.do(t, http.MethodGet, "/api/unknown", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodPost, "/api/users", `{"name": 5}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeMap(t, w)
	assert.Equal(t, "Validation failed", resp["error"])
	assert.NotEmpty(t, resp["details"])

	w = env.do(t, http.MethodPost, "/api/users", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// ============================================================================
// Endpoint configuration
// ============================================================================

func TestEndpointConfigGatesRESTAndExport(t *testing.T) {
	env := newTestEnv(t)
	env.upload(t)

	cfg := `{"users": {"GET_collection": true, "POST_collection": true, "GET_item": true, "PUT_item": true, "PATCH_item": true, "DELETE_item": false}}`
	w := env.do(t, http.MethodPut, "/api/config/endpoints", cfg)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/api/config/endpoints", "")
	require.Equal(t, http.StatusOK, w.Code)
	endpoints := decodeMap(t, w)["endpoints"].(map[string]any)
	users := endpoints["users"].(map[string]any)
	assert.Equal(t, false, users["DELETE_item"])
	posts := endpoints["posts"].(map[string]any)
	assert.Equal(t, true, posts["DELETE_item"])

	// Disabled operation rejected on REST.
	w = env.do(t, http.MethodDelete, "/api/users/1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, decodeMap(t, w)["error"], "not enabled")

	// Enabled sibling operations untouched.
	w = env.do(t, http.MethodGet, "/api/users/1", "")
	assert.Equal(t, http.StatusOK, w.Code)

	// And omitted from the OpenAPI export.
	w = env.do(t, http.MethodGet, "/api/export/openapi", "")
	require.Equal(t, http.StatusOK, w.Code)
	paths := decodeMap(t, w)["paths"].(map[string]any)
	userItem := paths["/api/users/{id}"].(map[string]any)
	_, hasDelete := userItem["delete"]
	assert.False(t, hasDelete)
}

// ============================================================================
// GraphQL endpoint
// ============================================================================

func TestGraphQLQueryAndMutation(t *testing.T) {
	env := newTestEnv(t)
	env.upload(t)

	w := env.do(t, http.MethodPost, "/graphql", `{"query": "{ users { id name } }"}`)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeMap(t, w)
	require.Nil(t, resp["errors"], w.Body.String())
	users := resp["data"].(map[string]any)["users"].([]any)
	require.Len(t, users, 1)
	assert.Equal(t, "Ada", users[0].(map[string]any)["name"])

	mutation := `{"query": "mutation { createUser(input: {name: \"Grace\", email: \"grace@example.com\"}) { id name } }"}`
	w = env.do(t, http.MethodPost, "/graphql", mutation)
	require.Equal(t, http.StatusOK, w.Code)
	resp = decodeMap(t, w)
	require.Nil(t, resp["errors"], w.Body.String())
	createdID := resp["data"].(map[string]any)["createUser"].(map[string]any)["id"]
	assert.EqualValues(t, 2, createdID)

	// The mutation is visible over REST too; both adapters share the store.
	w = env.do(t, http.MethodGet, "/api/users/2", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGraphQLSDLEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.upload(t)

	w := env.do(t, http.MethodGet, "/graphql/schema", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "type User {")
	assert.Contains(t, w.Body.String(), "createPost(input: PostInput!): Post!")
}

// ============================================================================
// Analytics
// ============================================================================

func TestAnalyticsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.upload(t)

	env.do(t, http.MethodGet, "/api/users", "")
	env.do(t, http.MethodGet, "/api/users/999", "")

	w := env.do(t, http.MethodGet, "/api/analytics", "")
	require.Equal(t, http.StatusOK, w.Code)
	summary := decodeMap(t, w)
	assert.GreaterOrEqual(t, summary["totalRequests"].(float64), float64(3))
	assert.GreaterOrEqual(t, summary["errorCount"].(float64), float64(1))
	byResource := summary["byResource"].(map[string]any)
	assert.GreaterOrEqual(t, byResource["users"].(float64), float64(2))

	w = env.do(t, http.MethodGet, "/api/analytics?window=bogus", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
