// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package formatter renders executed query results as conversational prose.
package formatter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/AleutianAI/AleutianGraphQA/services/graphqa/executor"
	"github.com/AleutianAI/AleutianGraphQA/services/graphqa/history"
	"github.com/AleutianAI/AleutianGraphQA/services/llm"
)

const formatTemplate = `Format this response for text presentation in plain conversational text.
Only respond with the text response and nothing else. No markdown or triple single quotes.
# Response
%s
`

// Response is the final answer shown to the user.
type Response struct {
	Text string `json:"text"`
}

// Formatter turns executed rows into a natural-language answer with one
// LLM call.
type Formatter struct {
	client llm.LLMClient
	params llm.GenerationParams
}

// New creates a Formatter. params are passed to every Generate call.
func New(client llm.LLMClient, params llm.GenerationParams) *Formatter {
	return &Formatter{client: client, params: params}
}

// Format logs the attempt history and asks the model to describe the rows.
// The history is never placed in the prompt.
func (f *Formatter) Format(ctx context.Context, result *executor.Result, attempts *history.AttemptHistory) (Response, error) {
	if attempts != nil {
		slog.Info("Cypher history", slog.String("attempts", "\n"+strings.Join(attempts.All(), "\n")))
		if last, ok := attempts.Last(); ok && result != nil && last != result.Query {
			slog.Warn("Executed query differs from the last attempt",
				slog.String("last_attempt", last),
				slog.String("executed", result.Query))
		}
	}

	prompt, err := Prompt(result)
	if err != nil {
		return Response{}, err
	}
	text, err := f.client.Generate(ctx, prompt, f.params)
	if err != nil {
		return Response{}, fmt.Errorf("format response: %w", err)
	}
	return Response{Text: strings.TrimSpace(text)}, nil
}

// Prompt renders the formatting prompt with the rows embedded as JSON.
// Rows are normalized first, so non-finite floats render as strings.
func Prompt(result *executor.Result) (string, error) {
	rows := make([]map[string]any, len(result.Rows))
	for i, row := range result.Rows {
		rows[i] = executor.NormalizeRow(row)
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return "", fmt.Errorf("encode rows: %w", err)
	}
	return fmt.Sprintf(formatTemplate, data), nil
}
