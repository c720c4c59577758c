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
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// LangChainClient adapts a langchaingo model to LLMClient.
type LangChainClient struct {
	model    llms.Model
	name     string
	backend  string
	jsonMode bool
}

// NewLangChainClient wraps an existing langchaingo model. jsonMode requests
// the backend's JSON output mode for structured generation.
func NewLangChainClient(model llms.Model, backend, name string, jsonMode bool) *LangChainClient {
	return &LangChainClient{model: model, backend: backend, name: name, jsonMode: jsonMode}
}

// NewOllamaClient connects to an Ollama server.
func NewOllamaClient(cfg Config) (*LangChainClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("ollama: base URL is required")
	}
	model := cfg.Model
	if model == "" {
		model = "gpt-oss"
		slog.Warn("No model configured for Ollama backend, defaulting", "model", model)
	}
	opts := []ollama.Option{
		ollama.WithServerURL(strings.TrimSuffix(cfg.BaseURL, "/")),
		ollama.WithModel(model),
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, ollama.WithHTTPClient(cfg.HTTPClient))
	}
	m, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("ollama: %w", err)
	}
	slog.Info("Initializing Ollama client", "base_url", cfg.BaseURL, "model", model)
	return NewLangChainClient(m, "ollama", model, true), nil
}

// NewAnthropicClient builds a Claude client.
func NewAnthropicClient(cfg Config) (*LangChainClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic: API key is required")
	}
	model := cfg.Model
	if model == "" {
		model = "claude-3-5-sonnet-20240620"
		slog.Info("No model configured for Anthropic backend, defaulting", "model", model)
	}
	opts := []anthropic.Option{
		anthropic.WithToken(cfg.APIKey),
		anthropic.WithModel(model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, anthropic.WithHTTPClient(cfg.HTTPClient))
	}
	m, err := anthropic.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("anthropic: %w", err)
	}
	slog.Info("Initializing Anthropic client", "model", model)
	return NewLangChainClient(m, "anthropic", model, false), nil
}

func (l *LangChainClient) Generate(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	return l.call(ctx, "LangChainClient.Generate", prompt, callOptions(params))
}

// GenerateStructured embeds the schema in the prompt and, where the backend
// supports it, switches on JSON output mode.
func (l *LangChainClient) GenerateStructured(ctx context.Context, prompt string, schema Schema, params GenerationParams) (string, error) {
	opts := callOptions(params)
	if l.jsonMode {
		opts = append(opts, llms.WithJSONMode())
	}
	return l.call(ctx, "LangChainClient.GenerateStructured", withSchemaInstruction(prompt, schema), opts)
}

func (l *LangChainClient) call(ctx context.Context, spanName, prompt string, opts []llms.CallOption) (string, error) {
	ctx, span := tracer.Start(ctx, spanName)
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.backend", l.backend),
		attribute.String("llm.model", l.name),
	)

	slog.Debug("Generating text", "backend", l.backend, "model", l.name)
	out, err := llms.GenerateFromSinglePrompt(ctx, l.model, prompt, opts...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, l.backend+" call failed")
		return "", fmt.Errorf("%s call failed: %w", l.backend, err)
	}
	return out, nil
}

func callOptions(params GenerationParams) []llms.CallOption {
	var opts []llms.CallOption
	if params.Temperature != nil {
		opts = append(opts, llms.WithTemperature(float64(*params.Temperature)))
	}
	if params.TopK != nil {
		opts = append(opts, llms.WithTopK(*params.TopK))
	}
	if params.TopP != nil {
		opts = append(opts, llms.WithTopP(float64(*params.TopP)))
	}
	if params.MaxTokens != nil {
		opts = append(opts, llms.WithMaxTokens(*params.MaxTokens))
	}
	if len(params.Stop) > 0 {
		opts = append(opts, llms.WithStopWords(params.Stop))
	}
	return opts
}
