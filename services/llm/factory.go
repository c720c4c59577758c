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
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Config selects and configures a generation backend.
type Config struct {
	// Backend is one of "openai", "ollama" or "anthropic".
	Backend string
	Model   string
	BaseURL string
	APIKey  string

	SystemPrompt string

	// Timeout bounds each HTTP request. Ignored when HTTPClient is set.
	Timeout    time.Duration
	HTTPClient *http.Client

	// RequestsPerSecond enables client-side rate limiting when positive.
	RequestsPerSecond float64
	Burst             int
}

// New builds the configured backend, wrapped in a RateLimitedClient when
// a request rate is set.
func New(cfg Config) (LLMClient, error) {
	if cfg.HTTPClient == nil && cfg.Timeout > 0 {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	var (
		client LLMClient
		err    error
	)
	switch strings.ToLower(cfg.Backend) {
	case "openai", "":
		client, err = NewOpenAIClient(cfg)
	case "ollama":
		client, err = NewOllamaClient(cfg)
	case "anthropic", "claude":
		client, err = NewAnthropicClient(cfg)
	default:
		return nil, fmt.Errorf("unknown LLM backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}

	if cfg.RequestsPerSecond > 0 {
		client = NewRateLimitedClient(client, cfg.RequestsPerSecond, cfg.Burst)
	}
	return client, nil
}
