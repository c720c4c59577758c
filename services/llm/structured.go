// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/sashabaranov/go-openai/jsonschema"
)

// ErrNoJSON is returned when a model response contains no JSON object.
var ErrNoJSON = errors.New("no JSON object in model response")

// GenerateObject asks the model for a value of type T. Backends that
// implement StructuredGenerator get a native JSON-schema request; others
// receive the schema in the prompt and the JSON is extracted from the reply.
func GenerateObject[T any](ctx context.Context, client LLMClient, prompt string, params GenerationParams) (T, error) {
	var out T

	def, err := jsonschema.GenerateSchemaForType(out)
	if err != nil {
		return out, fmt.Errorf("derive schema for %T: %w", out, err)
	}
	schema := Schema{Name: schemaName(out), Definition: def}

	var raw string
	if sg, ok := client.(StructuredGenerator); ok {
		raw, err = sg.GenerateStructured(ctx, prompt, schema, params)
	} else {
		raw, err = generateStructuredFallback(ctx, client, prompt, schema, params)
	}
	if err != nil {
		return out, err
	}

	doc, err := ExtractJSON(raw)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal([]byte(doc), &out); err != nil {
		return out, fmt.Errorf("decode %s response: %w", schema.Name, err)
	}
	return out, nil
}

// generateStructuredFallback embeds the schema in the prompt.
func generateStructuredFallback(ctx context.Context, client LLMClient, prompt string, schema Schema, params GenerationParams) (string, error) {
	return client.Generate(ctx, withSchemaInstruction(prompt, schema), params)
}

func withSchemaInstruction(prompt string, schema Schema) string {
	def, err := schema.Definition.MarshalJSON()
	if err != nil {
		return prompt
	}
	return prompt + "\n\nRespond only with a JSON object that matches this JSON schema:\n" + string(def)
}

func schemaName(v any) string {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Name() == "" {
		return "response"
	}
	return strings.ToLower(t.Name())
}

// ExtractJSON returns the first JSON object in s, unwrapping markdown code
// fences when present.
func ExtractJSON(s string) (string, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return "", ErrNoJSON
	}
	doc := s[start : end+1]
	if !json.Valid([]byte(doc)) {
		return "", fmt.Errorf("%w: invalid JSON %q", ErrNoJSON, truncate(doc, 80))
	}
	return doc, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
