// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package journal persists a record of every question-answering run: the
// question, each candidate query attempted, the outcome and the answer.
package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// ErrNotFound is returned by Get for unknown run IDs.
var ErrNotFound = errors.New("run not found")

// Outcome is the terminal status of a run.
type Outcome string

const (
	OutcomeAnswered  Outcome = "answered"
	OutcomeAbandoned Outcome = "abandoned"
	OutcomeFailed    Outcome = "failed"
)

// Run is one journaled run.
type Run struct {
	ID         string           `json:"id"`
	Question   string           `json:"question"`
	Attempts   []string         `json:"attempts"`
	Query      string           `json:"query,omitempty"`
	Rows       []map[string]any `json:"rows,omitempty"`
	Answer     string           `json:"answer,omitempty"`
	Outcome    Outcome          `json:"outcome"`
	Error      string           `json:"error,omitempty"`
	Iterations int              `json:"iterations"`
	StartedAt  time.Time        `json:"started_at"`
	Duration   time.Duration    `json:"duration_ns"`
}

const (
	runPrefix   = "run/"
	indexPrefix = "idx/"
)

// Store is a BadgerDB-backed run journal.
type Store struct {
	db *badger.DB
	gc *gcRunner
}

// Open opens or creates a journal.
func Open(cfg Config) (*Store, error) {
	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}
	s := &Store{db: db}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		s.gc = startGC(db, cfg.GCInterval, cfg.GCDiscardRatio)
	}
	return s, nil
}

// OpenInMemory opens a journal that lives only as long as the process.
func OpenInMemory() (*Store, error) {
	return Open(InMemoryConfig())
}

// Close stops GC and closes the database.
func (s *Store) Close() error {
	if s.gc != nil {
		s.gc.stop()
	}
	return s.db.Close()
}

// Put writes a run, replacing any previous record with the same ID. A zero
// StartedAt is set to the current time.
func (s *Store) Put(ctx context.Context, run Run) error {
	if run.ID == "" {
		return errors.New("run ID is required")
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("encode run %s: %w", run.ID, err)
	}
	return s.withTxn(ctx, func(txn *badger.Txn) error {
		if item, err := txn.Get(runKey(run.ID)); err == nil {
			var prev Run
			if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &prev) }); err != nil {
				return err
			}
			if err := txn.Delete(indexKey(prev.StartedAt, prev.ID)); err != nil {
				return err
			}
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := txn.Set(runKey(run.ID), data); err != nil {
			return err
		}
		return txn.Set(indexKey(run.StartedAt, run.ID), []byte(run.ID))
	})
}

// Get returns the run with the given ID.
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	var run Run
	err := s.withReadTxn(ctx, func(txn *badger.Txn) error {
		item, err := txn.Get(runKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &run)
		})
	})
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// List returns up to limit runs, newest first. A limit of zero or less
// returns every run.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	var ids []string
	err := s.withReadTxn(ctx, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.PrefetchValues = true
		opts.Prefix = []byte(indexPrefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		seek := append([]byte(indexPrefix), 0xFF)
		for it.Seek(seek); it.Valid(); it.Next() {
			id, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			ids = append(ids, string(id))
			if limit > 0 && len(ids) >= limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	runs := make([]Run, 0, len(ids))
	for _, id := range ids {
		run, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, nil
}

func (s *Store) withTxn(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}
	txn := s.db.NewTransaction(true)
	defer txn.Discard()
	if err := fn(txn); err != nil {
		return err
	}
	return txn.Commit()
}

func (s *Store) withReadTxn(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}
	txn := s.db.NewTransaction(false)
	defer txn.Discard()
	return fn(txn)
}

func runKey(id string) []byte {
	return []byte(runPrefix + id)
}

// indexKey orders runs by start time; the zero-padded nanosecond stamp
// sorts lexicographically.
func indexKey(started time.Time, id string) []byte {
	return []byte(fmt.Sprintf("%s%020d/%s", indexPrefix, started.UnixNano(), id))
}
