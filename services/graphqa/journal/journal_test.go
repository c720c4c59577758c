// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package journal

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_PutGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	run := Run{
		ID:         "run-1",
		Question:   "How many minifigs are in set 75192?",
		Attempts:   []string{"MATCH (f:Foo) RETURN f", "MATCH (s:Set) RETURN s"},
		Query:      "MATCH (s:Set) RETURN s",
		Answer:     "There are 42.",
		Outcome:    OutcomeAnswered,
		Iterations: 2,
		StartedAt:  time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		Duration:   1500 * time.Millisecond,
	}
	require.NoError(t, s.Put(ctx, run))

	got, err := s.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, run.Attempts, got.Attempts)
	assert.Equal(t, run.Outcome, got.Outcome)
	assert.True(t, run.StartedAt.Equal(got.StartedAt))
	assert.Equal(t, run.Duration, got.Duration)
}

func TestStore_GetMissing(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_PutRequiresID(t *testing.T) {
	s := openTestStore(t)
	assert.Error(t, s.Put(context.Background(), Run{}))
}

func TestStore_ListNewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Put(ctx, Run{
			ID:        fmt.Sprintf("run-%d", i),
			Outcome:   OutcomeAnswered,
			StartedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	all, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, "run-4", all[0].ID)
	assert.Equal(t, "run-0", all[4].ID)

	top, err := s.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, []string{"run-4", "run-3"}, []string{top[0].ID, top[1].ID})
}

func TestStore_PutReplacesIndex(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, Run{ID: "r", Outcome: OutcomeFailed, StartedAt: time.Unix(100, 0)}))
	require.NoError(t, s.Put(ctx, Run{ID: "r", Outcome: OutcomeAnswered, StartedAt: time.Unix(200, 0)}))

	runs, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, OutcomeAnswered, runs[0].Outcome)
}

func TestStore_CancelledContext(t *testing.T) {
	s := openTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Error(t, s.Put(ctx, Run{ID: "x"}))
	_, err := s.Get(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOpen_PersistentRequiresPath(t *testing.T) {
	_, err := Open(Config{})
	assert.Error(t, err)
}

func TestOpen_OnDisk(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(DefaultConfig(dir))
	require.NoError(t, err)
	require.NoError(t, s.Put(context.Background(), Run{ID: "disk", Outcome: OutcomeAbandoned}))
	require.NoError(t, s.Close())

	s, err = Open(DefaultConfig(dir))
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Get(context.Background(), "disk")
	require.NoError(t, err)
	assert.Equal(t, OutcomeAbandoned, got.Outcome)
}
