// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package drafter

import (
	"context"
	"errors"
	"testing"

	"github.com/AleutianAI/AleutianGraphQA/services/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedClient struct {
	replies []string
	prompts []string
	err     error
}

func (s *scriptedClient) Generate(_ context.Context, prompt string, _ llm.GenerationParams) (string, error) {
	s.prompts = append(s.prompts, prompt)
	if s.err != nil {
		return "", s.err
	}
	reply := s.replies[0]
	s.replies = s.replies[1:]
	return reply, nil
}

func TestInitialPrompt(t *testing.T) {
	p := InitialPrompt("How many minifigs are in set 75192?", "(:Set)-[:CONTAINS]->(:Minifig)", 20)

	assert.Contains(t, p, "case-insensitive contains")
	assert.Contains(t, p, "limit results to 20 rows")
	assert.Contains(t, p, "# User query\nHow many minifigs are in set 75192?")
	assert.Contains(t, p, "# Schema\n(:Set)-[:CONTAINS]->(:Minifig)")
	assert.Contains(t, p, "no markdown or triple quotes")
}

func TestRepairPrompt_EmbedsFeedbackVerbatim(t *testing.T) {
	feedback := "Schema Validation Result: unknown label Foo; \n"
	p := RepairPrompt("MATCH (f:Foo) RETURN f", feedback, "schema")

	assert.Contains(t, p, "# Cypher query\nMATCH (f:Foo) RETURN f")
	assert.Contains(t, p, "# Feedback\n"+feedback)
	assert.Contains(t, p, "# Schema\nschema")
}

func TestDrafter_DraftInitial(t *testing.T) {
	client := &scriptedClient{replies: []string{`{"cypher": "  MATCH (m:Minifig) RETURN count(m) AS numMinifigs\n"}`}}
	d := New(client, WithRowLimit(5))

	q, err := d.DraftInitial(context.Background(), "how many minifigs?", "schema")
	require.NoError(t, err)
	assert.Equal(t, "MATCH (m:Minifig) RETURN count(m) AS numMinifigs", q)
	require.Len(t, client.prompts, 1)
	assert.Contains(t, client.prompts[0], "limit results to 5 rows")
}

func TestDrafter_DraftRepair(t *testing.T) {
	client := &scriptedClient{replies: []string{`{"cypher":"MATCH (s:Set) RETURN s"}`}}
	d := New(client)

	q, err := d.DraftRepair(context.Background(), "MATCH (f:Foo) RETURN f", "Schema Validation Result: unknown label Foo; \n", "schema")
	require.NoError(t, err)
	assert.Equal(t, "MATCH (s:Set) RETURN s", q)
	assert.Contains(t, client.prompts[0], "unknown label Foo")
}

func TestDrafter_Errors(t *testing.T) {
	t.Run("empty query", func(t *testing.T) {
		d := New(&scriptedClient{replies: []string{`{"cypher":"   "}`}})
		_, err := d.DraftInitial(context.Background(), "q", "s")
		assert.ErrorIs(t, err, ErrEmptyQuery)
	})

	t.Run("model failure propagates", func(t *testing.T) {
		boom := errors.New("model down")
		d := New(&scriptedClient{err: boom})
		_, err := d.DraftRepair(context.Background(), "p", "f", "s")
		assert.ErrorIs(t, err, boom)
	})
}
