// Copyright (C) 2025 Apifactory Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package gql

import (
	"testing"

	json "github.com/goccy/go-json"

	"github.com/apifactory/apifactory/services/document"
)

func TestInfer(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"null defaults to string", nil, "String"},
		{"string", "hello", "String"},
		{"integral number", json.Number("42"), "Int"},
		{"fractional number", json.Number("3.14"), "Float"},
		{"exponent is float", json.Number("1e3"), "Float"},
		{"boolean", true, "Boolean"},
		{"empty array", []any{}, "[String]"},
		{"int array", []any{json.Number("1"), json.Number("2")}, "[Int]"},
		{"first element wins", []any{"a", json.Number("1")}, "[String]"},
		{"object collapses", document.NewItem(), "String"},
		{"nested array collapses", []any{[]any{json.Number("1")}}, "[String]"},
		{"object array collapses", []any{document.NewItem()}, "[String]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Infer(tt.value).Name(); got != tt.want {
				t.Errorf("Infer(%v).Name() = %q, want %q", tt.value, got, tt.want)
			}
		})
	}
}

func TestInfer_ObjectKind(t *testing.T) {
	if Infer(document.NewItem()).Kind != KindObject {
		t.Error("items should infer as objects before SDL collapse")
	}
	if Infer(map[string]any{"a": 1}).Kind != KindObject {
		t.Error("plain maps should infer as objects")
	}
}
