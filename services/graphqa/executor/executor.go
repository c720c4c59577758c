// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package executor runs accepted Cypher against the graph store and turns
// driver values into plain data for formatting.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("aleutian.graphqa.executor")

// ErrGraphExecution wraps every failure reported by the graph store.
var ErrGraphExecution = errors.New("graph-store execution error")

// GraphStore runs a query and returns its rows. Values may be driver
// entity types.
type GraphStore interface {
	Query(ctx context.Context, cypher string) ([]map[string]any, error)
}

// Result is an executed query with normalized rows.
type Result struct {
	Query string           `json:"query"`
	Rows  []map[string]any `json:"rows"`
}

// Executor runs accepted queries against the graph store. It keeps no
// per-query state and is safe for concurrent use.
type Executor struct {
	store GraphStore
}

// New creates an Executor over store.
func New(store GraphStore) *Executor {
	return &Executor{store: store}
}

// Execute runs the exact candidate text and normalizes every cell.
func (e *Executor) Execute(ctx context.Context, candidate string) (*Result, error) {
	ctx, span := tracer.Start(ctx, "Executor.Execute")
	defer span.End()

	start := time.Now()
	rows, err := e.store.Query(ctx, candidate)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
		return nil, fmt.Errorf("%w: %w", ErrGraphExecution, err)
	}

	normalized := make([]map[string]any, len(rows))
	for i, row := range rows {
		normalized[i] = NormalizeRow(row)
	}

	span.SetAttributes(attribute.Int("graph.rows", len(normalized)))
	slog.Info("Executed query",
		slog.Int("rows", len(normalized)),
		slog.Duration("duration", time.Since(start)))
	return &Result{Query: candidate, Rows: normalized}, nil
}
