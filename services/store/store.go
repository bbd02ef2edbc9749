// Copyright (C) 2025 Apifactory Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package store owns the mutable service state: the uploaded document, its
// schema, validity, and the derived resource list.
//
// Every mutation produces a new snapshot behind a serialized-access boundary.
// A request's read-compute-write cycle runs entirely inside Update, so two
// concurrent writers cannot base their snapshots on the same parent and
// silently discard each other's changes. Snapshots handed out by Snapshot()
// are treated as immutable by all readers.
//
// State is persisted to an embedded BadgerDB so an uploaded dataset survives
// a process restart.
package store

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	json "github.com/goccy/go-json"

	"github.com/apifactory/apifactory/services/document"
	"github.com/apifactory/apifactory/services/schema"
)

var stateKey = []byte("state/current")

// Snapshot is an immutable, fully formed view of the store at a point in
// time. Resources always lists exactly the array-valued top-level keys of
// Document, in document key order.
type Snapshot struct {
	Document  *document.Item
	SchemaRaw json.RawMessage
	Schema    *schema.Schema
	Valid     bool
	Errors    []string
	Resources []string
	Timestamp time.Time
}

// SchemaSignature identifies the uploaded schema content. The GraphQL layer
// uses it to decide when the synthesized schema may have gone stale.
func (s *Snapshot) SchemaSignature() string {
	if len(s.SchemaRaw) == 0 {
		return ""
	}
	sum := sha256.Sum256(s.SchemaRaw)
	return hex.EncodeToString(sum[:])
}

// ItemSchema returns the per-item schema for a resource, nil when the
// uploaded schema does not declare one.
func (s *Snapshot) ItemSchema(resource string) *schema.Schema {
	return s.Schema.ItemSchema(resource)
}

func (s *Snapshot) clone() *Snapshot {
	out := &Snapshot{
		Document:  s.Document.Clone(),
		SchemaRaw: s.SchemaRaw,
		Schema:    s.Schema,
		Valid:     s.Valid,
		Errors:    append([]string(nil), s.Errors...),
		Resources: append([]string(nil), s.Resources...),
		Timestamp: s.Timestamp,
	}
	return out
}

func emptySnapshot() *Snapshot {
	return &Snapshot{
		Document:  document.NewItem(),
		Valid:     false,
		Errors:    []string{},
		Resources: []string{},
		Timestamp: time.Now().UTC(),
	}
}

// Config configures the store.
type Config struct {
	// Dir is the data directory for persistence. Ignored when InMemory.
	Dir string

	// InMemory keeps all state in RAM; nothing survives a restart.
	InMemory bool

	// SyncWrites forces fsync per mutation.
	SyncWrites bool

	// Logger for store and database events. Defaults to slog.Default().
	Logger *slog.Logger
}

// Store serializes all mutations and persists each new snapshot.
type Store struct {
	mu     sync.RWMutex
	cur    *Snapshot
	db     *badger.DB
	logger *slog.Logger
}

// Open opens the store, loading any persisted state.
func Open(cfg Config) (*Store, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	db, err := openBadger(BadgerConfig{
		Path:       cfg.Dir,
		InMemory:   cfg.InMemory,
		SyncWrites: cfg.SyncWrites,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}

	s := &Store{db: db, logger: logger, cur: emptySnapshot()}
	if err := s.load(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Snapshot returns the current snapshot. Callers must not mutate it.
func (s *Store) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur
}

// SetData validates a data document against a schema document and, on
// success, installs and persists the new snapshot. On validation failure the
// current snapshot is left untouched and the failure result is returned.
// Malformed JSON in either document is reported the same way, as a
// well-formed invalid result.
func (s *Store) SetData(data, schemaRaw []byte) (schema.Result, []string, error) {
	doc, err := document.DecodeItem(data)
	if err != nil {
		return schema.Result{Valid: false, Errors: []string{"Data document is not valid JSON: " + err.Error()}}, nil, nil
	}
	compiled, err := schema.Parse(schemaRaw)
	if err != nil {
		return schema.Result{Valid: false, Errors: []string{"Schema document is not valid JSON Schema: " + err.Error()}}, nil, nil
	}

	res := schema.Validate(doc, compiled)
	resources := doc.ArrayKeys()
	if resources == nil {
		resources = []string{}
	}
	if !res.Valid {
		return res, resources, nil
	}

	snap := &Snapshot{
		Document:  doc,
		SchemaRaw: append(json.RawMessage(nil), schemaRaw...),
		Schema:    compiled,
		Valid:     true,
		Errors:    []string{},
		Resources: resources,
		Timestamp: time.Now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.persist(snap); err != nil {
		return res, resources, err
	}
	s.cur = snap
	s.logger.Info("dataset installed", "resources", resources)
	return res, resources, nil
}

// Update applies fn to a deep copy of the current snapshot under the write
// lock, then persists and installs the result. When fn returns an error the
// store is unchanged. This is the only mutation path for CRUD operations.
func (s *Store) Update(fn func(*Snapshot) error) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.cur.clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	next.Resources = next.Document.ArrayKeys()
	if next.Resources == nil {
		next.Resources = []string{}
	}
	next.Timestamp = time.Now().UTC()
	if err := s.persist(next); err != nil {
		return nil, err
	}
	s.cur = next
	return next, nil
}

// Clear removes all state, persisted and in memory.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(stateKey)
	})
	if err != nil {
		return fmt.Errorf("clear persisted state: %w", err)
	}
	s.cur = emptySnapshot()
	s.logger.Info("store cleared")
	return nil
}

// persistedState is the on-disk snapshot encoding.
type persistedState struct {
	Document  json.RawMessage `json:"document"`
	Schema    json.RawMessage `json:"schema"`
	Valid     bool            `json:"isValid"`
	Errors    []string        `json:"errors"`
	Resources []string        `json:"resources"`
	Timestamp time.Time       `json:"timestamp"`
}

func (s *Store) persist(snap *Snapshot) error {
	docRaw, err := snap.Document.MarshalJSON()
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	state := persistedState{
		Document:  docRaw,
		Schema:    snap.SchemaRaw,
		Valid:     snap.Valid,
		Errors:    snap.Errors,
		Resources: snap.Resources,
		Timestamp: snap.Timestamp,
	}
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(stateKey, raw)
	})
	if err != nil {
		return fmt.Errorf("persist state: %w", err)
	}
	return nil
}

func (s *Store) load() error {
	var raw []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(stateKey)
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if err == badger.ErrKeyNotFound {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}

	var state persistedState
	if err := json.Unmarshal(raw, &state); err != nil {
		s.logger.Warn("persisted state is corrupt, starting empty", "error", err)
		return nil
	}
	doc, err := document.DecodeItem(state.Document)
	if err != nil {
		s.logger.Warn("persisted document is corrupt, starting empty", "error", err)
		return nil
	}
	compiled, err := schema.Parse(state.Schema)
	if err != nil {
		s.logger.Warn("persisted schema is corrupt, starting empty", "error", err)
		return nil
	}

	s.cur = &Snapshot{
		Document:  doc,
		SchemaRaw: state.Schema,
		Schema:    compiled,
		Valid:     state.Valid,
		Errors:    state.Errors,
		Resources: doc.ArrayKeys(),
		Timestamp: state.Timestamp,
	}
	if s.cur.Resources == nil {
		s.cur.Resources = []string{}
	}
	if s.cur.Errors == nil {
		s.cur.Errors = []string{}
	}
	s.logger.Info("restored persisted dataset", "resources", s.cur.Resources, "valid", s.cur.Valid)
	return nil
}
