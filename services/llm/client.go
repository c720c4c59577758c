// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package llm provides the text-generation backends used to draft Cypher
// queries and format answers.
package llm

import (
	"context"
	"encoding/json"
)

type GenerationParams struct {
	Temperature *float32 `json:"temperature"`
	TopK        *int     `json:"top_k"`
	TopP        *float32 `json:"top_p"`
	MaxTokens   *int     `json:"max_tokens"`
	Stop        []string `json:"stop"`
}

type LLMClient interface {
	Generate(ctx context.Context, prompt string, params GenerationParams) (string, error)
}

// StructuredGenerator is implemented by backends that can constrain output
// to a JSON schema. The returned string is the raw JSON document.
type StructuredGenerator interface {
	GenerateStructured(ctx context.Context, prompt string, schema Schema, params GenerationParams) (string, error)
}

// Schema names a JSON schema for structured output.
type Schema struct {
	Name       string
	Definition json.Marshaler
}
