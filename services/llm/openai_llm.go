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
	"fmt"
	"log/slog"

	"github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("aleutian.graphqa.llm")

const defaultSystemPrompt = "You are a helpful assistant."

// OpenAIClient talks to OpenAI or any OpenAI-compatible endpoint.
type OpenAIClient struct {
	client       *openai.Client
	model        string
	systemPrompt string
}

// NewOpenAIClient builds a client from cfg. BaseURL selects an
// OpenAI-compatible provider.
func NewOpenAIClient(cfg Config) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}
	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
		slog.Warn("No model configured for OpenAI backend, defaulting", "model", model)
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		oc.HTTPClient = cfg.HTTPClient
	}

	system := cfg.SystemPrompt
	if system == "" {
		system = defaultSystemPrompt
	}
	slog.Info("Initializing OpenAI client", "model", model, "base_url", oc.BaseURL)
	return &OpenAIClient{
		client:       openai.NewClientWithConfig(oc),
		model:        model,
		systemPrompt: system,
	}, nil
}

func (o *OpenAIClient) Generate(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	return o.complete(ctx, "OpenAIClient.Generate", o.request(prompt, params))
}

// GenerateStructured requests a response constrained to schema.
func (o *OpenAIClient) GenerateStructured(ctx context.Context, prompt string, schema Schema, params GenerationParams) (string, error) {
	req := o.request(prompt, params)
	req.ResponseFormat = &openai.ChatCompletionResponseFormat{
		Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
		JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
			Name:   schema.Name,
			Schema: schema.Definition,
			Strict: true,
		},
	}
	return o.complete(ctx, "OpenAIClient.GenerateStructured", req)
}

func (o *OpenAIClient) request(prompt string, params GenerationParams) openai.ChatCompletionRequest {
	req := openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: o.systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}
	if params.Temperature != nil {
		req.Temperature = *params.Temperature
	}
	if params.MaxTokens != nil {
		req.MaxCompletionTokens = *params.MaxTokens
	}
	if params.TopP != nil {
		req.TopP = *params.TopP
	}
	if len(params.Stop) > 0 {
		req.Stop = params.Stop
	}
	return req
}

func (o *OpenAIClient) complete(ctx context.Context, spanName string, req openai.ChatCompletionRequest) (string, error) {
	ctx, span := tracer.Start(ctx, spanName)
	defer span.End()
	span.SetAttributes(attribute.String("llm.model", o.model))

	slog.Debug("Generating text via OpenAI", "model", o.model)
	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "openai call failed")
		return "", fmt.Errorf("OpenAI API call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		span.SetStatus(codes.Error, "no choices")
		return "", fmt.Errorf("OpenAI returned no choices")
	}

	span.SetAttributes(
		attribute.Int("llm.prompt_tokens", resp.Usage.PromptTokens),
		attribute.Int("llm.completion_tokens", resp.Usage.CompletionTokens),
	)
	slog.Debug("Received response from OpenAI", "finish_reason", resp.Choices[0].FinishReason)
	return resp.Choices[0].Message.Content, nil
}
