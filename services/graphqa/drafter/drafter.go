// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package drafter builds the prompts that turn a question into a Cypher
// query and that repair a rejected query from validator feedback.
package drafter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/AleutianAI/AleutianGraphQA/services/llm"
)

// DefaultRowLimit is the row cap written into the initial prompt.
const DefaultRowLimit = 20

// ErrEmptyQuery is returned when the model produces no query text.
var ErrEmptyQuery = errors.New("model returned an empty query")

const initialTemplate = `Build a cypher query to answer the user's query.
Use a case-insensitive contains for string comparisons wherever appropriate.
Always limit results to %d rows.

# User query
%s

# Schema
%s

Return the cypher as a plain string with no markdown or triple quotes.
`

const repairTemplate = `Review and correct the cypher query.

# Cypher query
%s

# Feedback
%s

# Schema
%s

Return the correct cypher as a plain string with no markdown or triple-quotes.
`

// cypherStatement is the structured shape requested from the model.
type cypherStatement struct {
	Cypher string `json:"cypher" description:"A single executable Cypher statement"`
}

// Drafter produces candidate queries through an LLM.
type Drafter struct {
	client   llm.LLMClient
	rowLimit int
	params   llm.GenerationParams
}

// Option configures a Drafter.
type Option func(*Drafter)

// WithRowLimit sets the row cap in the initial prompt.
func WithRowLimit(n int) Option {
	return func(d *Drafter) {
		if n > 0 {
			d.rowLimit = n
		}
	}
}

// WithParams sets the generation parameters for every draft.
func WithParams(p llm.GenerationParams) Option {
	return func(d *Drafter) { d.params = p }
}

func New(client llm.LLMClient, opts ...Option) *Drafter {
	d := &Drafter{client: client, rowLimit: DefaultRowLimit}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DraftInitial produces the first candidate for a question.
func (d *Drafter) DraftInitial(ctx context.Context, question, schema string) (string, error) {
	return d.draft(ctx, "initial", InitialPrompt(question, schema, d.rowLimit))
}

// DraftRepair produces a corrected candidate from a rejected one and the
// validator feedback.
func (d *Drafter) DraftRepair(ctx context.Context, prior, feedback, schema string) (string, error) {
	return d.draft(ctx, "repair", RepairPrompt(prior, feedback, schema))
}

// InitialPrompt renders the first-draft prompt.
func InitialPrompt(question, schema string, rowLimit int) string {
	return fmt.Sprintf(initialTemplate, rowLimit, question, schema)
}

// RepairPrompt renders the repair prompt. Feedback is embedded verbatim.
func RepairPrompt(prior, feedback, schema string) string {
	return fmt.Sprintf(repairTemplate, prior, feedback, schema)
}

func (d *Drafter) draft(ctx context.Context, kind, prompt string) (string, error) {
	out, err := llm.GenerateObject[cypherStatement](ctx, d.client, prompt, d.params)
	if err != nil {
		return "", fmt.Errorf("draft %s query: %w", kind, err)
	}
	query := strings.TrimSpace(out.Cypher)
	if query == "" {
		return "", fmt.Errorf("draft %s query: %w", kind, ErrEmptyQuery)
	}
	slog.Debug("Drafted query", slog.String("kind", kind), slog.String("cypher", query))
	return query, nil
}
