// Copyright (C) 2025 Apifactory Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package resolver implements the shared CRUD semantics over a resource
// array. Both protocol adapters call into this package, so identity
// resolution, timestamp injection, validation, and endpoint gating behave
// identically for REST and GraphQL.
package resolver

import (
	"log/slog"
	"strconv"
	"time"

	json "github.com/goccy/go-json"

	"github.com/apifactory/apifactory/services/document"
	"github.com/apifactory/apifactory/services/schema"
	"github.com/apifactory/apifactory/services/store"
)

// Resolver executes resource operations against the store. Every operation
// requires a valid snapshot and the corresponding gate flag. Mutations run
// inside store.Update so the read-compute-write cycle is serialized.
type Resolver struct {
	store  *store.Store
	gate   *Gate
	logger *slog.Logger
	now    func() time.Time
}

// New builds a resolver over a store and gate.
func New(st *store.Store, gate *Gate) *Resolver {
	return &Resolver{
		store:  st,
		gate:   gate,
		logger: slog.Default(),
		now:    time.Now,
	}
}

// Gate returns the endpoint gate shared with the adapters and exporters.
func (r *Resolver) Gate() *Gate { return r.gate }

// Store returns the underlying store.
func (r *Resolver) Store() *store.Store { return r.store }

// List returns the resource's item sequence in canonical order.
func (r *Resolver) List(resource string) ([]any, error) {
	if err := r.check(resource, OpGetCollection); err != nil {
		return nil, err
	}
	snap := r.store.Snapshot()
	return collection(snap, resource)
}

// Get returns the item whose identity matches id.
func (r *Resolver) Get(resource, id string) (*document.Item, error) {
	if err := r.check(resource, OpGetItem); err != nil {
		return nil, err
	}
	snap := r.store.Snapshot()
	items, err := collection(snap, resource)
	if err != nil {
		return nil, err
	}
	_, item := findByID(items, id)
	if item == nil {
		return nil, ItemNotFound(resource, id)
	}
	return item, nil
}

// Create validates and appends a new item, generating an id when the body
// carries none of the identity fields and injecting timestamps when the
// schema permits. Returns the stored item.
func (r *Resolver) Create(resource string, body *document.Item) (*document.Item, error) {
	if err := r.check(resource, OpPostCollection); err != nil {
		return nil, err
	}

	var created *document.Item
	_, err := r.store.Update(func(snap *store.Snapshot) error {
		items, err := collection(snap, resource)
		if err != nil {
			return err
		}

		item := body.Clone()
		if _, _, ok := schema.ResolveIdentity(item); !ok {
			item.Set("id", json.Number(strconv.FormatInt(nextID(items), 10)))
		}

		itemSchema := snap.ItemSchema(resource)
		policy := schema.PolicyFor(itemSchema)
		stamp := r.timestamp()
		var injected []string
		if policy.CanAddCreatedAt {
			item.Set(schema.CreatedAtField, stamp)
			injected = append(injected, schema.CreatedAtField)
		}
		if policy.CanAddUpdatedAt {
			item.Set(schema.UpdatedAtField, stamp)
			injected = append(injected, schema.UpdatedAtField)
		}

		if err := r.validateItem(item, itemSchema, injected...); err != nil {
			return err
		}

		snap.Document.Set(resource, append(items, item))
		created = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	r.logger.Info("item created", "resource", resource)
	return created, nil
}

// Replace swaps the identified item for the request body, index-stable.
// Identity fields and createdAt are always carried from the existing item;
// updatedAt is regenerated when the schema permits.
func (r *Resolver) Replace(resource, id string, body *document.Item) (*document.Item, error) {
	if err := r.check(resource, OpPutItem); err != nil {
		return nil, err
	}

	var replaced *document.Item
	_, err := r.store.Update(func(snap *store.Snapshot) error {
		items, err := collection(snap, resource)
		if err != nil {
			return err
		}
		idx, existing := findByID(items, id)
		if existing == nil {
			return ItemNotFound(resource, id)
		}

		item := body.Clone()
		carryCriticalFields(item, existing)

		itemSchema := snap.ItemSchema(resource)
		var injected []string
		if schema.PolicyFor(itemSchema).CanAddUpdatedAt {
			item.Set(schema.UpdatedAtField, r.timestamp())
			injected = append(injected, schema.UpdatedAtField)
		}

		if err := r.validateItem(item, itemSchema, injected...); err != nil {
			return err
		}

		items[idx] = item
		snap.Document.Set(resource, items)
		replaced = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	r.logger.Info("item replaced", "resource", resource, "id", id)
	return replaced, nil
}

// Merge overlays the partial body on the existing item, retaining every
// field the body omits, then re-asserts the critical fields to their
// pre-merge values.
func (r *Resolver) Merge(resource, id string, partial *document.Item) (*document.Item, error) {
	if err := r.check(resource, OpPatchItem); err != nil {
		return nil, err
	}

	var merged *document.Item
	_, err := r.store.Update(func(snap *store.Snapshot) error {
		items, err := collection(snap, resource)
		if err != nil {
			return err
		}
		idx, existing := findByID(items, id)
		if existing == nil {
			return ItemNotFound(resource, id)
		}

		item := existing.Clone()
		for _, k := range partial.Keys() {
			v, _ := partial.Get(k)
			item.Set(k, document.CloneValue(v))
		}
		carryCriticalFields(item, existing)

		itemSchema := snap.ItemSchema(resource)
		var injected []string
		if schema.PolicyFor(itemSchema).CanAddUpdatedAt {
			item.Set(schema.UpdatedAtField, r.timestamp())
			injected = append(injected, schema.UpdatedAtField)
		}

		if err := r.validateItem(item, itemSchema, injected...); err != nil {
			return err
		}

		items[idx] = item
		snap.Document.Set(resource, items)
		merged = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	r.logger.Info("item merged", "resource", resource, "id", id)
	return merged, nil
}

// Remove deletes the identified item and returns it. Later items shift down
// by one index.
func (r *Resolver) Remove(resource, id string) (*document.Item, error) {
	if err := r.check(resource, OpDeleteItem); err != nil {
		return nil, err
	}

	var removed *document.Item
	_, err := r.store.Update(func(snap *store.Snapshot) error {
		items, err := collection(snap, resource)
		if err != nil {
			return err
		}
		idx, existing := findByID(items, id)
		if existing == nil {
			return ItemNotFound(resource, id)
		}
		removed = existing
		snap.Document.Set(resource, append(items[:idx:idx], items[idx+1:]...))
		return nil
	})
	if err != nil {
		return nil, err
	}
	r.logger.Info("item removed", "resource", resource, "id", id)
	return removed, nil
}

func (r *Resolver) check(resource string, op Operation) error {
	if !r.store.Snapshot().Valid {
		return NoData()
	}
	if !r.gate.Enabled(resource, op) {
		return Disabled(resource, op)
	}
	return nil
}

func (r *Resolver) timestamp() string {
	return r.now().UTC().Format(time.RFC3339)
}

// validateItem checks the final item against the per-item schema. The schema
// is augmented only for the timestamp fields this operation injected, so a
// closed schema that declares neither still rejects a client-supplied
// createdAt or updatedAt as an unexpected field. A resource without a
// declared item schema accepts anything.
func (r *Resolver) validateItem(item *document.Item, itemSchema *schema.Schema, injected ...string) error {
	if itemSchema == nil {
		return nil
	}
	res := schema.Validate(item, schema.AugmentForTimestamps(itemSchema, injected...))
	if !res.Valid {
		return ValidationFailed(res.Errors)
	}
	return nil
}

// collection resolves the resource array from a snapshot.
func collection(snap *store.Snapshot, resource string) ([]any, error) {
	v, ok := snap.Document.Get(resource)
	if !ok {
		return nil, NotFound(resource)
	}
	items, ok := v.([]any)
	if !ok {
		return nil, NotCollection(resource)
	}
	return items, nil
}

// findByID locates an item by identity resolution. Returns (-1, nil) when
// absent or when the elements are not objects.
func findByID(items []any, id string) (int, *document.Item) {
	for i, elem := range items {
		item, ok := elem.(*document.Item)
		if !ok {
			continue
		}
		if _, val, ok := schema.ResolveIdentity(item); ok && schema.SameID(val, id) {
			return i, item
		}
	}
	return -1, nil
}

// nextID is 1 + the max numeric id across existing items, negative ids
// included. Non-numeric ids are ignored; an empty or fully non-numeric
// collection starts at 1.
func nextID(items []any) int64 {
	var max float64
	seen := false
	for _, elem := range items {
		item, ok := elem.(*document.Item)
		if !ok {
			continue
		}
		if _, val, ok := schema.ResolveIdentity(item); ok {
			if n, isNum := schema.NumericID(val); isNum && (!seen || n > max) {
				max = n
				seen = true
			}
		}
	}
	if !seen {
		return 1
	}
	return int64(max) + 1
}

// carryCriticalFields forces the identity fields and createdAt on item to
// the values of the existing item, deleting any the existing item lacks.
func carryCriticalFields(item, existing *document.Item) {
	critical := append(append([]string(nil), schema.IdentityFields...), schema.CreatedAtField)
	for _, f := range critical {
		if v, ok := existing.Get(f); ok {
			item.Set(f, document.CloneValue(v))
		} else {
			item.Delete(f)
		}
	}
}
