// Copyright (C) 2025 Apifactory Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package gql synthesizes a GraphQL schema from sample data and wires its
// resolvers to the shared resource resolver.
package gql

import (
	"strings"

	json "github.com/goccy/go-json"

	"github.com/apifactory/apifactory/services/document"
)

// Kind is the inferred type lattice: scalars, lists, and objects. Objects
// and other complex shapes collapse to String where no finer GraphQL
// mapping exists.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindFloat
	KindBoolean
	KindList
	KindObject
)

// TypeDescriptor describes an inferred type. Elem is set for lists.
type TypeDescriptor struct {
	Kind Kind
	Elem *TypeDescriptor
}

// Infer derives a type descriptor from an example value.
//
// Nulls infer as String. Arrays infer their element type from the first
// element only, and an empty array defaults to a list of String. Strings
// that happen to parse as dates are still String; date detection is
// deliberately not attempted.
func Infer(value any) TypeDescriptor {
	switch v := value.(type) {
	case nil:
		return TypeDescriptor{Kind: KindString}
	case bool:
		return TypeDescriptor{Kind: KindBoolean}
	case string:
		return TypeDescriptor{Kind: KindString}
	case json.Number:
		if isIntegral(string(v)) {
			return TypeDescriptor{Kind: KindInt}
		}
		return TypeDescriptor{Kind: KindFloat}
	case float64:
		if v == float64(int64(v)) {
			return TypeDescriptor{Kind: KindInt}
		}
		return TypeDescriptor{Kind: KindFloat}
	case int, int64:
		return TypeDescriptor{Kind: KindInt}
	case []any:
		if len(v) == 0 {
			return TypeDescriptor{Kind: KindList, Elem: &TypeDescriptor{Kind: KindString}}
		}
		elem := Infer(v[0])
		return TypeDescriptor{Kind: KindList, Elem: &elem}
	case *document.Item, map[string]any:
		return TypeDescriptor{Kind: KindObject}
	default:
		return TypeDescriptor{Kind: KindString}
	}
}

func isIntegral(s string) bool {
	return !strings.ContainsAny(s, ".eE")
}

// Name renders the descriptor in SDL notation, with complex shapes
// collapsed to String.
func (t TypeDescriptor) Name() string {
	switch t.Kind {
	case KindInt:
		return "Int"
	case KindFloat:
		return "Float"
	case KindBoolean:
		return "Boolean"
	case KindList:
		elem := "String"
		if t.Elem != nil && t.Elem.Kind != KindObject && t.Elem.Kind != KindList {
			elem = t.Elem.Name()
		}
		return "[" + elem + "]"
	default:
		return "String"
	}
}
