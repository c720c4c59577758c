// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package executor

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	set := dbtype.Node{Id: 1, ElementId: "4:x:1", Labels: []string{"Set"}, Props: map[string]any{"id": "75192", "name": "Millennium Falcon"}}
	fig := dbtype.Node{Id: 2, Labels: []string{"Minifig"}, Props: map[string]any{"name": "Han Solo"}}
	rel := dbtype.Relationship{Id: 3, StartId: 1, EndId: 2, Type: "CONTAINS", Props: map[string]any{"quantity": int64(1)}}

	tests := []struct {
		name string
		in   any
		want any
	}{
		{"scalar int", int64(42), int64(42)},
		{"scalar string", "Han", "Han"},
		{"nil", nil, nil},
		{"node", set, map[string]any{"id": "75192", "name": "Millennium Falcon"}},
		{"node pointer", &fig, map[string]any{"name": "Han Solo"}},
		{"relationship", rel, map[string]any{"quantity": int64(1)}},
		{
			"path",
			dbtype.Path{Nodes: []dbtype.Node{set, fig}, Relationships: []dbtype.Relationship{rel}},
			map[string]any{
				"nodes":         []any{map[string]any{"id": "75192", "name": "Millennium Falcon"}, map[string]any{"name": "Han Solo"}},
				"relationships": []any{map[string]any{"quantity": int64(1)}},
			},
		},
		{"list of nodes", []any{fig, "x"}, []any{map[string]any{"name": "Han Solo"}, "x"}},
		{"map with node", map[string]any{"fig": fig, "n": 1}, map[string]any{"fig": map[string]any{"name": "Han Solo"}, "n": 1}},
		{"date", dbtype.Date(time.Date(2024, 5, 4, 0, 0, 0, 0, time.UTC)), "2024-05-04"},
		{"finite float", 0.5, 0.5},
		{"nan", math.NaN(), "NaN"},
		{"positive infinity", math.Inf(1), "Infinity"},
		{"negative infinity", math.Inf(-1), "-Infinity"},
		{"float32 infinity", float32(math.Inf(1)), "Infinity"},
		{"nan inside node", dbtype.Node{Props: map[string]any{"ratio": math.NaN()}}, map[string]any{"ratio": "NaN"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, Normalize(got), "normalization is idempotent")
		})
	}
}

func TestNormalize_NestedNodeInsideNodeProps(t *testing.T) {
	inner := dbtype.Node{Props: map[string]any{"k": "v"}}
	outer := map[string]any{"list": []any{map[string]any{"inner": inner}}}

	got := Normalize(outer)
	assert.Equal(t, map[string]any{"list": []any{map[string]any{"inner": map[string]any{"k": "v"}}}}, got)
}

func TestNormalizeRow_EncodesNonFiniteFloats(t *testing.T) {
	row := NormalizeRow(map[string]any{"ratio": math.NaN(), "root": math.Inf(-1), "n": int64(3)})

	data, err := json.Marshal(row)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ratio": "NaN", "root": "-Infinity", "n": 3}`, string(data))
}

type fakeStore struct {
	rows []map[string]any
	err  error
	got  string
}

func (f *fakeStore) Query(_ context.Context, cypher string) ([]map[string]any, error) {
	f.got = cypher
	return f.rows, f.err
}

func TestExecutor_Execute(t *testing.T) {
	query := "MATCH (s:Set {id: '75192'})-[:CONTAINS]->(m:Minifig) RETURN count(m) AS numMinifigs"
	store := &fakeStore{rows: []map[string]any{{"numMinifigs": int64(42)}}}

	res, err := New(store).Execute(context.Background(), query)
	require.NoError(t, err)
	assert.Equal(t, query, store.got, "query text reaches the store untouched")
	assert.Equal(t, query, res.Query)
	assert.Equal(t, []map[string]any{{"numMinifigs": int64(42)}}, res.Rows)
}

func TestExecutor_NormalizesEntities(t *testing.T) {
	store := &fakeStore{rows: []map[string]any{
		{"m": dbtype.Node{Labels: []string{"Minifig"}, Props: map[string]any{"name": "Chewbacca"}}},
	}}

	res, err := New(store).Execute(context.Background(), "MATCH (m) RETURN m")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "Chewbacca"}, res.Rows[0]["m"])
}

func TestExecutor_WrapsStoreErrors(t *testing.T) {
	boom := errors.New("Neo.ClientError.Statement.SyntaxError")
	_, err := New(&fakeStore{err: boom}).Execute(context.Background(), "MATCH")
	assert.ErrorIs(t, err, ErrGraphExecution)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "graph-store execution error")
}
