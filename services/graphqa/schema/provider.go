// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package schema fetches the graph's structural description from the
// introspection tool. The description is opaque text consumed by the
// drafter and the validators.
package schema

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/AleutianAI/AleutianGraphQA/services/graphqa/tools"
	"golang.org/x/sync/singleflight"
)

// Provider returns the graph schema, caching it for a configurable TTL.
// Concurrent misses share a single introspection call.
type Provider struct {
	caller tools.Caller
	ref    tools.Ref
	ttl    time.Duration
	now    func() time.Time

	flight singleflight.Group

	mu        sync.RWMutex
	cached    string
	fetchedAt time.Time
	hasValue  bool
}

// Option configures a Provider.
type Option func(*Provider)

// WithTTL caches the schema for ttl. Zero disables caching.
func WithTTL(ttl time.Duration) Option {
	return func(p *Provider) { p.ttl = ttl }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Provider) { p.now = now }
}

// NewProvider creates a Provider bound to the introspection tool.
func NewProvider(caller tools.Caller, ref tools.Ref, opts ...Option) *Provider {
	p := &Provider{caller: caller, ref: ref, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// GetSchema returns the text of the first record of the introspection
// result verbatim.
//
// The shared fetch runs detached from any one caller's context, so a
// cancelled caller returns its own ctx error without failing the others.
// The tool caller's call timeout bounds the fetch.
func (p *Provider) GetSchema(ctx context.Context) (string, error) {
	if s, ok := p.fresh(); ok {
		return s, nil
	}

	fetchCtx := context.WithoutCancel(ctx)
	ch := p.flight.DoChan("schema", func() (any, error) {
		return p.fetch(fetchCtx)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (p *Provider) fetch(ctx context.Context) (string, error) {
	payload, err := p.caller.Call(ctx, p.ref, map[string]any{})
	if err != nil {
		return "", err
	}
	text, err := tools.DecodeEnvelope(p.ref, payload)
	if err != nil {
		return "", err
	}

	p.mu.Lock()
	p.cached, p.fetchedAt, p.hasValue = text, p.now(), true
	p.mu.Unlock()

	slog.Debug("Fetched graph schema", slog.Int("bytes", len(text)))
	return text, nil
}

// Invalidate drops the cached schema.
func (p *Provider) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hasValue = false
	p.cached = ""
}

func (p *Provider) fresh() (string, bool) {
	if p.ttl <= 0 {
		return "", false
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.hasValue || p.now().Sub(p.fetchedAt) >= p.ttl {
		return "", false
	}
	return p.cached, true
}
