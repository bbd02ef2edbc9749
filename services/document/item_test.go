// Copyright (C) 2025 Apifactory Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package document

import (
	"testing"

	json "github.com/goccy/go-json"
)

func TestItem_OrderPreservingRoundTrip(t *testing.T) {
	src := `{"zeta":1,"alpha":"a","mid":{"b":2,"a":1},"list":[1,"two",null]}`

	it, err := DecodeItem([]byte(src))
	if err != nil {
		t.Fatalf("DecodeItem: %v", err)
	}

	out, err := it.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}
	if string(out) != src {
		t.Errorf("round trip changed document:\n got  %s\n want %s", out, src)
	}
}

func TestItem_NumbersSurviveAsNumbers(t *testing.T) {
	it, err := DecodeItem([]byte(`{"id":3,"price":19.99,"big":9007199254740993}`))
	if err != nil {
		t.Fatalf("DecodeItem: %v", err)
	}

	id, _ := it.Get("id")
	if n, ok := id.(json.Number); !ok || n.String() != "3" {
		t.Errorf("id = %#v, want json.Number(3)", id)
	}
	big, _ := it.Get("big")
	if n, ok := big.(json.Number); !ok || n.String() != "9007199254740993" {
		t.Errorf("big = %#v, want exact integer preserved", big)
	}
}

func TestItem_SetDeleteKeepOrder(t *testing.T) {
	it := NewItem()
	it.Set("a", "1")
	it.Set("b", "2")
	it.Set("c", "3")
	it.Set("b", "2b") // overwrite keeps position
	it.Delete("a")

	got := it.Keys()
	want := []string{"b", "c"}
	if len(got) != len(want) {
		t.Fatalf("keys = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("keys[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if v, _ := it.Get("b"); v != "2b" {
		t.Errorf("b = %v, want 2b", v)
	}
}

func TestItem_CloneIsDeep(t *testing.T) {
	it, err := DecodeItem([]byte(`{"nested":{"x":1},"arr":[{"y":2}]}`))
	if err != nil {
		t.Fatalf("DecodeItem: %v", err)
	}

	cp := it.Clone()
	nested, _ := cp.Get("nested")
	nested.(*Item).Set("x", json.Number("99"))

	orig, _ := it.Get("nested")
	if v, _ := orig.(*Item).Get("x"); v.(json.Number).String() != "1" {
		t.Errorf("clone mutation leaked into original: x = %v", v)
	}
}

func TestItem_ArrayKeys(t *testing.T) {
	doc, err := DecodeItem([]byte(`{"users":[],"version":"1.0","posts":[{"id":1}],"meta":{"a":1}}`))
	if err != nil {
		t.Fatalf("DecodeItem: %v", err)
	}

	got := doc.ArrayKeys()
	want := []string{"users", "posts"}
	if len(got) != len(want) {
		t.Fatalf("ArrayKeys = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ArrayKeys[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestFromMap_SortsKeysAndNormalizes(t *testing.T) {
	it := FromMap(map[string]any{
		"b":    2.0,
		"a":    float64(1.5),
		"deep": map[string]any{"z": 1.0},
	})

	keys := it.Keys()
	if keys[0] != "a" || keys[1] != "b" || keys[2] != "deep" {
		t.Errorf("keys = %v, want sorted [a b deep]", keys)
	}
	if v, _ := it.Get("b"); v.(json.Number).String() != "2" {
		t.Errorf("b = %#v, want integral json.Number 2", v)
	}
	if v, _ := it.Get("a"); v.(json.Number).String() != "1.5" {
		t.Errorf("a = %#v, want json.Number 1.5", v)
	}
	if _, ok := mustGet(t, it, "deep").(*Item); !ok {
		t.Errorf("deep should normalize to *Item")
	}
}

func mustGet(t *testing.T, it *Item, key string) any {
	t.Helper()
	v, ok := it.Get(key)
	if !ok {
		t.Fatalf("missing key %q", key)
	}
	return v
}
