// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graphqa

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/AleutianAI/AleutianGraphQA/services/graphqa/config"
	"github.com/AleutianAI/AleutianGraphQA/services/graphqa/graphstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	tests := []struct {
		in, want string
	}{
		{"~", home},
		{"~/.aleutian/graphqa", filepath.Join(home, ".aleutian/graphqa")},
		{"/var/lib/graphqa", "/var/lib/graphqa"},
		{"relative/path", "relative/path"},
		{"~other/path", "~other/path"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := expandHome(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRuntime_ClosePartial(t *testing.T) {
	rt := &Runtime{}
	assert.NoError(t, rt.Close(context.Background()))
	assert.ErrorIs(t, rt.Health(context.Background()), graphstore.ErrNotConnected)
}

func TestOpenJournal(t *testing.T) {
	cfg := config.Default()
	cfg.Journal.Path = filepath.Join(t.TempDir(), "journal")

	store, err := OpenJournal(&cfg)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	cfg.Journal.InMemory = true
	_, err = OpenJournal(&cfg)
	assert.Error(t, err)
}

func TestOpenJournal_LockedByAnotherHolder(t *testing.T) {
	cfg := config.Default()
	cfg.Journal.Path = filepath.Join(t.TempDir(), "journal")

	held, err := OpenJournal(&cfg)
	require.NoError(t, err)
	defer held.Close()

	_, err = OpenJournal(&cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GET /v1/runs")
}
