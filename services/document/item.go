// Copyright (C) 2025 Apifactory Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package document holds the dynamic data model shared by the store, the
// validator and both protocol adapters.
//
// Uploaded documents are open JSON values, so items are represented as an
// ordered map from field name to a tagged value variant rather than a plain
// map[string]any. The variant types are:
//
//	string, json.Number, bool, nil, []any, *Item
//
// Numbers are kept as json.Number so integer ids survive round trips without
// float conversion, and key order is preserved from the original JSON so that
// responses and persisted state read back the way they were uploaded.
package document

import (
	"bytes"
	"fmt"
	"sort"

	json "github.com/goccy/go-json"
)

// Item is an insertion-ordered JSON object.
//
// The zero value is not usable; construct with NewItem or decode with
// DecodeItem/DecodeValue.
type Item struct {
	keys   []string
	values map[string]any
}

// NewItem returns an empty item.
func NewItem() *Item {
	return &Item{values: make(map[string]any)}
}

// Len returns the number of fields.
func (it *Item) Len() int { return len(it.keys) }

// Keys returns the field names in insertion order. The slice is a copy.
func (it *Item) Keys() []string {
	out := make([]string, len(it.keys))
	copy(out, it.keys)
	return out
}

// Get returns the value for key and whether it is present.
func (it *Item) Get(key string) (any, bool) {
	v, ok := it.values[key]
	return v, ok
}

// Has reports whether key is present.
func (it *Item) Has(key string) bool {
	_, ok := it.values[key]
	return ok
}

// Set stores value under key, appending the key if it is new.
func (it *Item) Set(key string, value any) {
	if _, ok := it.values[key]; !ok {
		it.keys = append(it.keys, key)
	}
	it.values[key] = value
}

// Delete removes key if present.
func (it *Item) Delete(key string) {
	if _, ok := it.values[key]; !ok {
		return
	}
	delete(it.values, key)
	for i, k := range it.keys {
		if k == key {
			it.keys = append(it.keys[:i], it.keys[i+1:]...)
			break
		}
	}
}

// Clone returns a deep copy. Nested items and arrays are cloned; scalar
// variants are immutable and shared.
func (it *Item) Clone() *Item {
	if it == nil {
		return nil
	}
	out := &Item{
		keys:   make([]string, len(it.keys)),
		values: make(map[string]any, len(it.values)),
	}
	copy(out.keys, it.keys)
	for k, v := range it.values {
		out.values[k] = CloneValue(v)
	}
	return out
}

// CloneValue deep-copies any variant value.
func CloneValue(v any) any {
	switch t := v.(type) {
	case *Item:
		return t.Clone()
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = CloneValue(e)
		}
		return out
	default:
		return v
	}
}

// Map returns a plain map view of the item. Nested items stay as *Item.
// Intended for read-only use; mutating the map does not affect key order.
func (it *Item) Map() map[string]any {
	out := make(map[string]any, len(it.values))
	for k, v := range it.values {
		out[k] = v
	}
	return out
}

// ArrayKeys returns, in insertion order, the keys whose values are JSON
// arrays. For a top-level document these are exactly the resources.
func (it *Item) ArrayKeys() []string {
	var out []string
	for _, k := range it.keys {
		if _, ok := it.values[k].([]any); ok {
			out = append(out, k)
		}
	}
	return out
}

// FromMap builds an item from a plain map with keys in sorted order.
// Used where field order is not known, such as GraphQL input objects.
func FromMap(m map[string]any) *Item {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	it := NewItem()
	for _, k := range keys {
		it.Set(k, normalizeValue(m[k]))
	}
	return it
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return FromMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalizeValue(e)
		}
		return out
	case float64:
		return floatToNumber(t)
	case int:
		return json.Number(fmt.Sprintf("%d", t))
	case int64:
		return json.Number(fmt.Sprintf("%d", t))
	default:
		return v
	}
}

func floatToNumber(f float64) json.Number {
	if f == float64(int64(f)) {
		return json.Number(fmt.Sprintf("%d", int64(f)))
	}
	return json.Number(fmt.Sprintf("%g", f))
}

// MarshalJSON writes the fields in insertion order.
func (it *Item) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeValue(&buf, it); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeValue(buf *bytes.Buffer, v any) error {
	switch t := v.(type) {
	case nil:
		buf.WriteString("null")
	case *Item:
		buf.WriteByte('{')
		for i, k := range t.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			if err := encodeValue(buf, t.values[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case []any:
		buf.WriteByte('[')
		for i, e := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeValue(buf, e); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case json.Number:
		if len(t) == 0 {
			buf.WriteByte('0')
		} else {
			buf.WriteString(string(t))
		}
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return err
		}
		buf.Write(b)
	}
	return nil
}

// UnmarshalJSON decodes a JSON object, preserving key order and numbers.
func (it *Item) UnmarshalJSON(b []byte) error {
	v, err := DecodeValue(b)
	if err != nil {
		return err
	}
	obj, ok := v.(*Item)
	if !ok {
		return fmt.Errorf("expected a JSON object, got %T", v)
	}
	*it = *obj
	return nil
}

// DecodeItem decodes b into an ordered item. b must be a JSON object.
func DecodeItem(b []byte) (*Item, error) {
	it := NewItem()
	if err := it.UnmarshalJSON(b); err != nil {
		return nil, err
	}
	return it, nil
}

// DecodeValue decodes any JSON value into the variant representation.
func DecodeValue(b []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("decode value: %w", err)
	}
	v, err := decodeToken(dec, tok)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func decodeToken(dec *json.Decoder, tok json.Token) (any, error) {
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			obj := NewItem()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("object key is not a string: %v", keyTok)
				}
				valTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				val, err := decodeToken(dec, valTok)
				if err != nil {
					return nil, err
				}
				obj.Set(key, val)
			}
			if _, err := dec.Token(); err != nil { // consume '}'
				return nil, err
			}
			return obj, nil
		case '[':
			arr := make([]any, 0)
			for dec.More() {
				valTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				val, err := decodeToken(dec, valTok)
				if err != nil {
					return nil, err
				}
				arr = append(arr, val)
			}
			if _, err := dec.Token(); err != nil { // consume ']'
				return nil, err
			}
			return arr, nil
		default:
			return nil, fmt.Errorf("unexpected delimiter %q", t.String())
		}
	default:
		return t, nil
	}
}
