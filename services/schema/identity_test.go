// Copyright (C) 2025 Apifactory Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package schema

import (
	"testing"

	json "github.com/goccy/go-json"
)

func TestResolveIdentity_FieldOrder(t *testing.T) {
	cases := []struct {
		name string
		item string
		want string
	}{
		{"id wins over _id and uuid", `{"uuid":"u","_id":"m","id":1}`, "id"},
		{"_id wins over uuid", `{"uuid":"u","_id":"m"}`, "_id"},
		{"uuid alone", `{"uuid":"u"}`, "uuid"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			field, _, ok := ResolveIdentity(mustItem(t, tc.item))
			if !ok || field != tc.want {
				t.Errorf("ResolveIdentity = %q (ok=%v), want %q", field, ok, tc.want)
			}
		})
	}

	if _, _, ok := ResolveIdentity(mustItem(t, `{"name":"no identity"}`)); ok {
		t.Error("item without identity fields should not resolve")
	}
}

func TestSameID_NumericStringEquivalence(t *testing.T) {
	cases := []struct {
		a, b any
		want bool
	}{
		{json.Number("3"), "3", true},
		{"3", json.Number("3"), true},
		{json.Number("3"), json.Number("4"), false},
		{"abc", "abc", true},
		{"abc", "abd", false},
		{float64(7), "7", true},
		{"007", json.Number("7"), true},
		{"u-123", json.Number("123"), false},
	}
	for _, tc := range cases {
		if got := SameID(tc.a, tc.b); got != tc.want {
			t.Errorf("SameID(%v, %v) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestPolicyFor(t *testing.T) {
	t.Run("open schema allows both", func(t *testing.T) {
		p := PolicyFor(mustParse(t, `{"type":"object"}`))
		if !p.CanAddCreatedAt || !p.CanAddUpdatedAt {
			t.Errorf("open schema should allow both stamps: %+v", p)
		}
	})

	t.Run("closed schema denies both", func(t *testing.T) {
		p := PolicyFor(mustParse(t, `{"type":"object","additionalProperties":false}`))
		if p.CanAddCreatedAt || p.CanAddUpdatedAt {
			t.Errorf("closed schema should deny both stamps: %+v", p)
		}
	})

	t.Run("closed schema with declared createdAt", func(t *testing.T) {
		p := PolicyFor(mustParse(t, `{
			"type": "object",
			"properties": {"createdAt": {"type": "string", "format": "date-time"}},
			"additionalProperties": false
		}`))
		if !p.CanAddCreatedAt {
			t.Error("declared createdAt should be injectable")
		}
		if p.CanAddUpdatedAt {
			t.Error("undeclared updatedAt must stay blocked on a closed schema")
		}
	})

	t.Run("nil schema is open", func(t *testing.T) {
		p := PolicyFor(nil)
		if !p.CanAddCreatedAt || !p.CanAddUpdatedAt {
			t.Errorf("nil schema should be open: %+v", p)
		}
	})
}

func TestAugmentForTimestamps(t *testing.T) {
	base := mustParse(t, `{
		"type": "object",
		"properties": {"name": {"type": "string"}},
		"additionalProperties": false
	}`)

	aug := AugmentForTimestamps(base, CreatedAtField, UpdatedAtField)
	if !aug.Declares(CreatedAtField) || !aug.Declares(UpdatedAtField) {
		t.Fatal("augmented schema must declare both timestamp fields")
	}
	if base.Declares(CreatedAtField) {
		t.Error("augmentation must not mutate the original schema")
	}

	res := Validate(mustItem(t, `{"name":"x","createdAt":"2024-01-01T00:00:00Z","updatedAt":"2024-01-01T00:00:00Z"}`), aug)
	if !res.Valid {
		t.Errorf("timestamps should validate against augmented schema: %v", res.Errors)
	}

	res = Validate(mustItem(t, `{"name":"x","createdAt":"not a date"}`), aug)
	if res.Valid {
		t.Error("injected timestamp still must be a valid date-time")
	}
}
