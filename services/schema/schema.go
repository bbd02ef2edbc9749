// Copyright (C) 2025 Apifactory Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package schema implements the JSON Schema subset the service validates
// against, plus the identity and timestamp policies applied to items.
package schema

import (
	"bytes"
	"fmt"

	json "github.com/goccy/go-json"
)

// Schema is the validated subset of JSON Schema.
//
// Type may be a string or a list of strings. Numeric and length bounds use
// pointers so an absent bound is distinguishable from zero.
// AdditionalProperties is kept raw because JSON Schema allows it to be a
// boolean or a nested schema.
type Schema struct {
	Type                 any                `json:"type,omitempty"`
	Properties           map[string]*Schema `json:"properties,omitempty"`
	Items                *Schema            `json:"items,omitempty"`
	Required             []string           `json:"required,omitempty"`
	Enum                 []any              `json:"enum,omitempty"`
	Minimum              *float64           `json:"minimum,omitempty"`
	Maximum              *float64           `json:"maximum,omitempty"`
	MinLength            *int               `json:"minLength,omitempty"`
	MaxLength            *int               `json:"maxLength,omitempty"`
	Pattern              string             `json:"pattern,omitempty"`
	Format               string             `json:"format,omitempty"`
	AdditionalProperties json.RawMessage    `json:"additionalProperties,omitempty"`
}

// Parse decodes a JSON Schema document.
func Parse(data []byte) (*Schema, error) {
	var s Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	return &s, nil
}

// TypeList returns the declared type names. Empty when no type constraint.
func (s *Schema) TypeList() []string {
	switch t := s.Type.(type) {
	case string:
		return []string{t}
	case []any:
		out := make([]string, 0, len(t))
		for _, v := range t {
			if name, ok := v.(string); ok {
				out = append(out, name)
			}
		}
		return out
	default:
		return nil
	}
}

// AllowsAdditional reports whether the schema permits properties beyond those
// declared. Absent additionalProperties means open, per JSON Schema.
func (s *Schema) AllowsAdditional() bool {
	if s == nil || len(s.AdditionalProperties) == 0 {
		return true
	}
	return !bytes.Equal(bytes.TrimSpace(s.AdditionalProperties), []byte("false"))
}

// Declares reports whether the schema declares the named property.
func (s *Schema) Declares(name string) bool {
	if s == nil {
		return false
	}
	_, ok := s.Properties[name]
	return ok
}

// ItemSchema returns the per-item schema for a resource, following
// properties[resource].items. Nil when the path is not declared.
func (s *Schema) ItemSchema(resource string) *Schema {
	if s == nil {
		return nil
	}
	prop, ok := s.Properties[resource]
	if !ok || prop == nil {
		return nil
	}
	return prop.Items
}

// Clone returns a deep copy via a JSON round trip.
func (s *Schema) Clone() *Schema {
	if s == nil {
		return nil
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return &Schema{}
	}
	var out Schema
	if err := json.Unmarshal(raw, &out); err != nil {
		return &Schema{}
	}
	return &out
}

// WithProperty returns a copy of the schema with an extra declared property.
// The receiver is not modified.
func (s *Schema) WithProperty(name string, prop *Schema) *Schema {
	out := s.Clone()
	if out == nil {
		out = &Schema{}
	}
	if out.Properties == nil {
		out.Properties = make(map[string]*Schema)
	}
	out.Properties[name] = prop
	return out
}
