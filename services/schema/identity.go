// Copyright (C) 2025 Apifactory Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package schema

import (
	"strconv"

	json "github.com/goccy/go-json"

	"github.com/apifactory/apifactory/services/document"
)

// IdentityFields lists the item identity fields in resolution order.
var IdentityFields = []string{"id", "_id", "uuid"}

// Timestamp field names injected by the service when the schema permits.
const (
	CreatedAtField = "createdAt"
	UpdatedAtField = "updatedAt"
)

// ResolveIdentity returns the first identity field present on the item,
// checking id, _id, uuid in that order.
func ResolveIdentity(it *document.Item) (field string, value any, ok bool) {
	for _, f := range IdentityFields {
		if v, present := it.Get(f); present {
			return f, v, true
		}
	}
	return "", nil, false
}

// SameID reports whether two id values denote the same identity. Numeric and
// string representations of the same number compare equal, so "3" matches 3.
func SameID(a, b any) bool {
	af, aNum := idNumeric(a)
	bf, bNum := idNumeric(b)
	if aNum && bNum {
		return af == bf
	}
	return idString(a) == idString(b)
}

// NumericID returns the numeric interpretation of an id value. Strings that
// parse as numbers count; everything else reports false.
func NumericID(v any) (float64, bool) {
	return idNumeric(v)
}

func idNumeric(v any) (float64, bool) {
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
	case string:
		f, err := strconv.ParseFloat(t, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func idString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return ""
	}
}

// TimestampPolicy states which synthetic timestamp fields may be injected
// into items of a given schema.
type TimestampPolicy struct {
	CanAddCreatedAt bool
	CanAddUpdatedAt bool
}

// PolicyFor derives the timestamp policy from an item schema. Injection is
// allowed when the schema accepts additional properties or declares the
// field explicitly. A nil schema is open.
func PolicyFor(itemSchema *Schema) TimestampPolicy {
	open := itemSchema.AllowsAdditional()
	return TimestampPolicy{
		CanAddCreatedAt: open || itemSchema.Declares(CreatedAtField),
		CanAddUpdatedAt: open || itemSchema.Declares(UpdatedAtField),
	}
}

// AugmentForTimestamps returns a schema copy that declares the given
// timestamp fields as date-time strings, so validation of an item carrying
// injected timestamps does not reject them. Fields the schema already
// declares are left untouched.
func AugmentForTimestamps(itemSchema *Schema, fields ...string) *Schema {
	if itemSchema == nil {
		return nil
	}
	out := itemSchema
	for _, f := range fields {
		if out.Declares(f) {
			continue
		}
		out = out.WithProperty(f, &Schema{Type: "string", Format: "date-time"})
	}
	return out
}
