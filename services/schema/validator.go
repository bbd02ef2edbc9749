// Copyright (C) 2025 Apifactory Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package schema

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	json "github.com/goccy/go-json"

	"github.com/apifactory/apifactory/services/document"
)

// Result is the outcome of validating a value against a schema. Errors are
// human-readable, one per violated constraint, qualified by the dotted path
// of the failing location. All violations are collected; validation is never
// fail-fast.
type Result struct {
	Valid  bool     `json:"isValid"`
	Errors []string `json:"errors"`
}

// Validate checks value against s and collects every violation.
//
// A nil or malformed schema, or data the walker cannot interpret, still
// produces a well-formed invalid Result rather than a panic.
func Validate(value any, s *Schema) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{Valid: false, Errors: []string{fmt.Sprintf("Validation failed: %v", r)}}
		}
	}()

	if s == nil {
		return Result{Valid: false, Errors: []string{"Schema is missing or malformed"}}
	}

	w := &walker{}
	w.walk("", value, s)
	if len(w.errors) == 0 {
		return Result{Valid: true, Errors: []string{}}
	}
	return Result{Valid: false, Errors: w.errors}
}

type walker struct {
	errors []string
}

func (w *walker) fail(path, msg string) {
	if path == "" {
		w.errors = append(w.errors, msg)
		return
	}
	w.errors = append(w.errors, path+": "+msg)
}

func childPath(path, field string) string {
	if path == "" {
		return field
	}
	return path + "." + field
}

func (w *walker) walk(path string, value any, s *Schema) {
	if s == nil {
		return
	}

	if types := s.TypeList(); len(types) > 0 && !matchesType(value, types) {
		w.fail(path, "Must be of type "+strings.Join(types, " or "))
		return
	}

	if len(s.Enum) > 0 && !enumContains(s.Enum, value) {
		w.fail(path, "Must be one of: "+enumList(s.Enum))
	}

	switch v := value.(type) {
	case string:
		w.checkString(path, v, s)
	case json.Number:
		w.checkNumber(path, numberValue(v), s)
	case float64:
		w.checkNumber(path, v, s)
	case int:
		w.checkNumber(path, float64(v), s)
	case int64:
		w.checkNumber(path, float64(v), s)
	case []any:
		if s.Items != nil {
			for i, elem := range v {
				w.walk(childPath(path, strconv.Itoa(i)), elem, s.Items)
			}
		}
	default:
		if fields, ok := objectView(value); ok {
			w.checkObject(path, fields, s)
		}
	}
}

func (w *walker) checkString(path, v string, s *Schema) {
	n := utf8.RuneCountInString(v)
	if s.MinLength != nil && n < *s.MinLength {
		w.fail(path, fmt.Sprintf("Must be at least %d characters", *s.MinLength))
	}
	if s.MaxLength != nil && n > *s.MaxLength {
		w.fail(path, fmt.Sprintf("Must be at most %d characters", *s.MaxLength))
	}
	if s.Pattern != "" {
		re, err := regexp.Compile(s.Pattern)
		if err != nil {
			w.fail(path, "Schema pattern is invalid: "+s.Pattern)
		} else if !re.MatchString(v) {
			w.fail(path, "Must match pattern: "+s.Pattern)
		}
	}
	if s.Format != "" && !checkFormat(s.Format, v) {
		w.fail(path, formatMessage(s.Format))
	}
}

func (w *walker) checkNumber(path string, v float64, s *Schema) {
	if s.Minimum != nil && v < *s.Minimum {
		w.fail(path, "Must be at least "+formatNumber(*s.Minimum))
	}
	if s.Maximum != nil && v > *s.Maximum {
		w.fail(path, "Must be at most "+formatNumber(*s.Maximum))
	}
}

// objectFields is a uniform view over the two object representations the
// walker sees: ordered items from the store and plain maps from ad hoc
// callers.
type objectFields struct {
	keys []string
	get  func(string) (any, bool)
}

func objectView(v any) (objectFields, bool) {
	switch t := v.(type) {
	case *document.Item:
		if t == nil {
			return objectFields{}, false
		}
		return objectFields{keys: t.Keys(), get: t.Get}, true
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		return objectFields{keys: keys, get: func(k string) (any, bool) {
			val, ok := t[k]
			return val, ok
		}}, true
	default:
		return objectFields{}, false
	}
}

func (w *walker) checkObject(path string, fields objectFields, s *Schema) {
	for _, req := range s.Required {
		if _, ok := fields.get(req); !ok {
			w.fail(path, "Missing required field: "+req)
		}
	}

	for _, key := range fields.keys {
		val, _ := fields.get(key)
		if prop, ok := s.Properties[key]; ok {
			w.walk(childPath(path, key), val, prop)
			continue
		}
		if !s.AllowsAdditional() {
			w.fail(path, "Unexpected field: "+key)
			continue
		}
		// additionalProperties may itself be a schema.
		if extra := s.additionalSchema(); extra != nil {
			w.walk(childPath(path, key), val, extra)
		}
	}
}

// additionalSchema returns the schema form of additionalProperties, or nil
// when it is absent or boolean.
func (s *Schema) additionalSchema() *Schema {
	raw := s.AdditionalProperties
	if len(raw) == 0 || raw[0] != '{' {
		return nil
	}
	var extra Schema
	if err := json.Unmarshal(raw, &extra); err != nil {
		return nil
	}
	return &extra
}

func matchesType(value any, types []string) bool {
	for _, t := range types {
		if matchesOneType(value, t) {
			return true
		}
	}
	return false
}

func matchesOneType(value any, t string) bool {
	switch t {
	case "null":
		return value == nil
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "string":
		_, ok := value.(string)
		return ok
	case "integer":
		f, ok := numericValue(value)
		return ok && f == float64(int64(f))
	case "number":
		_, ok := numericValue(value)
		return ok
	case "array":
		_, ok := value.([]any)
		return ok
	case "object":
		_, ok := objectView(value)
		return ok
	default:
		return true
	}
}

func numericValue(value any) (float64, bool) {
	switch v := value.(type) {
	case json.Number:
		return numberValue(v), true
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

func numberValue(n json.Number) float64 {
	f, err := n.Float64()
	if err != nil {
		return 0
	}
	return f
}

func enumContains(enum []any, value any) bool {
	for _, e := range enum {
		if looseEqual(e, value) {
			return true
		}
	}
	return false
}

// looseEqual compares scalars with numeric tolerance so a schema enum of
// [1, 2] matches a decoded json.Number("1").
func looseEqual(a, b any) bool {
	if af, aok := numericValue(a); aok {
		bf, bok := numericValue(b)
		return bok && af == bf
	}
	return a == b
}

func enumList(enum []any) string {
	parts := make([]string, len(enum))
	for i, e := range enum {
		parts[i] = fmt.Sprintf("%v", e)
	}
	return strings.Join(parts, ", ")
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
