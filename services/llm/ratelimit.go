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

	"golang.org/x/time/rate"
)

// RateLimitedClient throttles calls to an underlying client.
type RateLimitedClient struct {
	inner   LLMClient
	limiter *rate.Limiter
}

// NewRateLimitedClient allows rps requests per second with the given burst.
// A burst below one is treated as one.
func NewRateLimitedClient(inner LLMClient, rps float64, burst int) *RateLimitedClient {
	if burst < 1 {
		burst = 1
	}
	return &RateLimitedClient{inner: inner, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (r *RateLimitedClient) Generate(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}
	return r.inner.Generate(ctx, prompt, params)
}

// GenerateStructured forwards to the inner client's native structured mode
// when it has one.
func (r *RateLimitedClient) GenerateStructured(ctx context.Context, prompt string, schema Schema, params GenerationParams) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}
	if sg, ok := r.inner.(StructuredGenerator); ok {
		return sg.GenerateStructured(ctx, prompt, schema, params)
	}
	return generateStructuredFallback(ctx, r.inner, prompt, schema, params)
}
