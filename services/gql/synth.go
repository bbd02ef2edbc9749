// Copyright (C) 2025 Apifactory Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package gql

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	json "github.com/goccy/go-json"
	"github.com/graphql-go/graphql"

	"github.com/apifactory/apifactory/services/document"
	"github.com/apifactory/apifactory/services/resolver"
	"github.com/apifactory/apifactory/services/store"
)

// fieldModel is one synthesized field, typed from the first sample item.
type fieldModel struct {
	Name string
	Type TypeDescriptor
}

// resourceModel is the synthesis plan for one resource.
type resourceModel struct {
	Resource string
	TypeName string
	Singular string
	Fields   []fieldModel
}

// inputExcluded are the fields stripped from synthesized input types; they
// are server-controlled.
var inputExcluded = map[string]bool{
	"id": true, "_id": true, "uuid": true, "createdAt": true, "updatedAt": true,
}

// Synthesizer lazily builds the GraphQL schema for the current store
// contents. The executable schema is cached by a hash of the generated SDL
// text, so repeated requests against unchanged data reuse the compiled
// schema, and any change to the store's schema or sample shapes rebuilds
// it. The cache is a single atomic pointer; redundant recomputation under
// races is harmless because synthesis is a pure function of the snapshot.
type Synthesizer struct {
	res    *resolver.Resolver
	logger *slog.Logger
	cache  atomic.Pointer[cacheEntry]
}

type cacheEntry struct {
	hash   string
	sdl    string
	schema graphql.Schema
}

// NewSynthesizer builds a synthesizer delegating to the shared resolver.
func NewSynthesizer(res *resolver.Resolver) *Synthesizer {
	return &Synthesizer{res: res, logger: slog.Default()}
}

// Current returns the executable schema for the store's current snapshot,
// plus the SDL it was generated from. It never fails: when generation is
// impossible a minimal fallback schema exposing a single error field is
// returned instead.
func (s *Synthesizer) Current() (graphql.Schema, string) {
	snap := s.res.Store().Snapshot()
	if !snap.Valid {
		return s.fallback("No data available. Upload and validate a dataset first")
	}

	models := modelsFromSnapshot(snap)
	if len(models) == 0 {
		return s.fallback("No resources with sample items to synthesize a schema from")
	}

	sdl := renderSDL(models)
	hash := hashSDL(sdl)
	if c := s.cache.Load(); c != nil && c.hash == hash {
		return c.schema, c.sdl
	}

	built, err := s.build(models)
	if err != nil {
		s.logger.Error("graphql schema generation failed", "error", err)
		return s.fallback("Schema generation failed: " + err.Error())
	}

	s.cache.Store(&cacheEntry{hash: hash, sdl: sdl, schema: built})
	s.logger.Info("graphql schema rebuilt", "resources", len(models), "hash", hash[:12])
	return built, sdl
}

func (s *Synthesizer) fallback(msg string) (graphql.Schema, string) {
	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"error": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return msg, nil
				},
			},
		},
	})
	sch, err := graphql.NewSchema(graphql.SchemaConfig{Query: query})
	if err != nil {
		// Cannot happen for a fixed one-field query, but never crash the adapter.
		s.logger.Error("fallback schema construction failed", "error", err)
	}
	return sch, "type Query {\n  error: String\n}\n"
}

// modelsFromSnapshot plans synthesis for every resource with at least one
// object sample item, typing fields from the first item only.
func modelsFromSnapshot(snap *store.Snapshot) []resourceModel {
	var models []resourceModel
	for _, resource := range snap.Resources {
		v, _ := snap.Document.Get(resource)
		items, ok := v.([]any)
		if !ok || len(items) == 0 {
			continue
		}
		first, ok := items[0].(*document.Item)
		if !ok {
			continue
		}
		m := resourceModel{
			Resource: resource,
			TypeName: TypeName(resource),
			Singular: Singularize(resource),
		}
		// Uninflectable names ("fish", "inventory") singularize to themselves
		// and would shadow the collection field, so the item query gets a
		// ById suffix instead.
		if m.Singular == m.Resource {
			m.Singular = m.Singular + "ById"
		}
		for _, key := range first.Keys() {
			val, _ := first.Get(key)
			m.Fields = append(m.Fields, fieldModel{Name: key, Type: Infer(val)})
		}
		models = append(models, m)
	}
	return models
}

func hashSDL(sdl string) string {
	sum := sha256.Sum256([]byte(sdl))
	return hex.EncodeToString(sum[:])
}

// renderSDL writes the schema text the cache key is derived from. Output is
// deterministic for a given snapshot.
func renderSDL(models []resourceModel) string {
	var b strings.Builder
	for _, m := range models {
		fmt.Fprintf(&b, "type %s {\n", m.TypeName)
		for _, f := range m.Fields {
			fmt.Fprintf(&b, "  %s: %s\n", f.Name, f.Type.Name())
		}
		b.WriteString("}\n\n")

		fmt.Fprintf(&b, "input %sInput {\n", m.TypeName)
		for _, f := range m.Fields {
			if inputExcluded[f.Name] {
				continue
			}
			fmt.Fprintf(&b, "  %s: %s\n", f.Name, f.Type.Name())
		}
		b.WriteString("}\n\n")
	}

	b.WriteString("type Query {\n")
	for _, m := range models {
		fmt.Fprintf(&b, "  %s: [%s!]!\n", m.Resource, m.TypeName)
		fmt.Fprintf(&b, "  %s(id: ID!): %s\n", m.Singular, m.TypeName)
	}
	b.WriteString("}\n\n")

	b.WriteString("type Mutation {\n")
	for _, m := range models {
		fmt.Fprintf(&b, "  create%s(input: %sInput!): %s!\n", m.TypeName, m.TypeName, m.TypeName)
		fmt.Fprintf(&b, "  update%s(id: ID!, input: %sInput!): %s!\n", m.TypeName, m.TypeName, m.TypeName)
		fmt.Fprintf(&b, "  delete%s(id: ID!): Boolean!\n", m.TypeName)
	}
	b.WriteString("}\n")
	return b.String()
}

func (s *Synthesizer) build(models []resourceModel) (graphql.Schema, error) {
	queryFields := graphql.Fields{}
	mutationFields := graphql.Fields{}

	for _, m := range models {
		m := m
		objType := buildObjectType(m)
		inputType, inputFieldCount := buildInputType(m)

		queryFields[m.Resource] = &graphql.Field{
			Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(objType))),
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				items, err := s.res.List(m.Resource)
				if err != nil {
					return nil, wrapErr(err)
				}
				if items == nil {
					return []any{}, nil
				}
				return items, nil
			},
		}
		queryFields[m.Singular] = &graphql.Field{
			Type: objType,
			Args: graphql.FieldConfigArgument{
				"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
			},
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				item, err := s.res.Get(m.Resource, argID(p))
				if err != nil {
					return nil, wrapErr(err)
				}
				return item, nil
			},
		}

		if inputFieldCount > 0 {
			mutationFields["create"+m.TypeName] = &graphql.Field{
				Type: graphql.NewNonNull(objType),
				Args: graphql.FieldConfigArgument{
					"input": &graphql.ArgumentConfig{Type: graphql.NewNonNull(inputType)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					item, err := s.res.Create(m.Resource, inputItem(p))
					if err != nil {
						return nil, wrapErr(err)
					}
					return item, nil
				},
			}
			mutationFields["update"+m.TypeName] = &graphql.Field{
				Type: graphql.NewNonNull(objType),
				Args: graphql.FieldConfigArgument{
					"id":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
					"input": &graphql.ArgumentConfig{Type: graphql.NewNonNull(inputType)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					item, err := s.res.Replace(m.Resource, argID(p), inputItem(p))
					if err != nil {
						return nil, wrapErr(err)
					}
					return item, nil
				},
			}
		}
		mutationFields["delete"+m.TypeName] = &graphql.Field{
			Type: graphql.NewNonNull(graphql.Boolean),
			Args: graphql.FieldConfigArgument{
				"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
			},
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				if _, err := s.res.Remove(m.Resource, argID(p)); err != nil {
					return nil, wrapErr(err)
				}
				return true, nil
			},
		}
	}

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    graphql.NewObject(graphql.ObjectConfig{Name: "Query", Fields: queryFields}),
		Mutation: graphql.NewObject(graphql.ObjectConfig{Name: "Mutation", Fields: mutationFields}),
	})
}

func buildObjectType(m resourceModel) *graphql.Object {
	fields := graphql.Fields{}
	for _, f := range m.Fields {
		f := f
		fields[f.Name] = &graphql.Field{
			Type: outputType(f.Type),
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				item, ok := p.Source.(*document.Item)
				if !ok {
					return nil, nil
				}
				v, ok := item.Get(f.Name)
				if !ok {
					return nil, nil
				}
				return fieldValue(v, f.Type), nil
			},
		}
	}
	return graphql.NewObject(graphql.ObjectConfig{Name: m.TypeName, Fields: fields})
}

func buildInputType(m resourceModel) (*graphql.InputObject, int) {
	fields := graphql.InputObjectConfigFieldMap{}
	for _, f := range m.Fields {
		if inputExcluded[f.Name] {
			continue
		}
		fields[f.Name] = &graphql.InputObjectFieldConfig{Type: inputScalar(f.Type)}
	}
	return graphql.NewInputObject(graphql.InputObjectConfig{
		Name:   m.TypeName + "Input",
		Fields: fields,
	}), len(fields)
}

func outputType(t TypeDescriptor) graphql.Output {
	switch t.Kind {
	case KindInt:
		return graphql.Int
	case KindFloat:
		return graphql.Float
	case KindBoolean:
		return graphql.Boolean
	case KindList:
		if t.Elem != nil {
			switch t.Elem.Kind {
			case KindInt:
				return graphql.NewList(graphql.Int)
			case KindFloat:
				return graphql.NewList(graphql.Float)
			case KindBoolean:
				return graphql.NewList(graphql.Boolean)
			}
		}
		return graphql.NewList(graphql.String)
	default:
		// Objects and anything else collapse to String.
		return graphql.String
	}
}

func inputScalar(t TypeDescriptor) graphql.Input {
	switch t.Kind {
	case KindInt:
		return graphql.Int
	case KindFloat:
		return graphql.Float
	case KindBoolean:
		return graphql.Boolean
	case KindList:
		if t.Elem != nil {
			switch t.Elem.Kind {
			case KindInt:
				return graphql.NewList(graphql.Int)
			case KindFloat:
				return graphql.NewList(graphql.Float)
			case KindBoolean:
				return graphql.NewList(graphql.Boolean)
			}
		}
		return graphql.NewList(graphql.String)
	default:
		return graphql.String
	}
}

// fieldValue converts a stored variant value to what the declared GraphQL
// field type serializes. Complex values carried by a String-typed field are
// rendered as JSON text.
func fieldValue(v any, t TypeDescriptor) interface{} {
	if v == nil {
		return nil
	}
	switch t.Kind {
	case KindInt:
		if n, ok := toFloat(v); ok {
			return int(n)
		}
		return nil
	case KindFloat:
		if n, ok := toFloat(v); ok {
			return n
		}
		return nil
	case KindBoolean:
		if b, ok := v.(bool); ok {
			return b
		}
		return nil
	case KindList:
		arr, ok := v.([]any)
		if !ok {
			return nil
		}
		elem := TypeDescriptor{Kind: KindString}
		if t.Elem != nil {
			elem = *t.Elem
		}
		out := make([]interface{}, len(arr))
		for i, e := range arr {
			out[i] = fieldValue(e, elem)
		}
		return out
	default:
		return stringValue(v)
	}
}

func stringValue(v any) interface{} {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return fmt.Sprintf("%v", t)
	case *document.Item, []any:
		raw, err := json.Marshal(t)
		if err != nil {
			return nil
		}
		return string(raw)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	default:
		return 0, false
	}
}

func argID(p graphql.ResolveParams) string {
	return fmt.Sprintf("%v", p.Args["id"])
}

func inputItem(p graphql.ResolveParams) *document.Item {
	input, _ := p.Args["input"].(map[string]interface{})
	return document.FromMap(input)
}

// extendedError surfaces the resolver error code through GraphQL's
// extensions mechanism.
type extendedError struct {
	inner *resolver.Error
}

func (e *extendedError) Error() string { return e.inner.Error() }

func (e *extendedError) Extensions() map[string]interface{} {
	ext := map[string]interface{}{"code": string(e.inner.Code)}
	if len(e.inner.Details) > 0 {
		ext["details"] = e.inner.Details
	}
	return ext
}

func wrapErr(err error) error {
	return &extendedError{inner: resolver.AsError(err)}
}
