// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package schema

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/AleutianAI/AleutianGraphQA/services/graphqa/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var introspection = tools.Ref{Server: "mcp-neo4j-cypher", Tool: "get_neo4j_schema"}

type fakeCaller struct {
	payload string
	err     error
	calls   atomic.Int32
	gate    chan struct{}
}

func (f *fakeCaller) Call(ctx context.Context, ref tools.Ref, args map[string]any) ([]byte, error) {
	f.calls.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return []byte(f.payload), f.err
}

func TestProvider_ReturnsFirstTextVerbatim(t *testing.T) {
	caller := &fakeCaller{payload: `[{"type":"text","text":"(:Set)-[:CONTAINS]->(:Minifig)\n"},{"type":"text","text":"other"}]`}
	p := NewProvider(caller, introspection)

	got, err := p.GetSchema(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "(:Set)-[:CONTAINS]->(:Minifig)\n", got)
}

func TestProvider_Errors(t *testing.T) {
	t.Run("empty result", func(t *testing.T) {
		p := NewProvider(&fakeCaller{payload: `[]`}, introspection)
		_, err := p.GetSchema(context.Background())
		assert.ErrorIs(t, err, tools.ErrEmptyResult)
	})

	t.Run("capability missing", func(t *testing.T) {
		p := NewProvider(&fakeCaller{err: tools.ErrCapabilityNotFound}, introspection)
		_, err := p.GetSchema(context.Background())
		assert.ErrorIs(t, err, tools.ErrCapabilityNotFound)
	})
}

func TestProvider_CachesWithinTTL(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	caller := &fakeCaller{payload: `[{"text":"schema"}]`}
	p := NewProvider(caller, introspection,
		WithTTL(time.Minute),
		WithClock(func() time.Time { return now }))

	for i := 0; i < 3; i++ {
		_, err := p.GetSchema(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), caller.calls.Load())

	now = now.Add(2 * time.Minute)
	_, err := p.GetSchema(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), caller.calls.Load())

	p.Invalidate()
	_, err = p.GetSchema(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(3), caller.calls.Load())
}

func TestProvider_NoCacheByDefault(t *testing.T) {
	caller := &fakeCaller{payload: `[{"text":"schema"}]`}
	p := NewProvider(caller, introspection)

	_, _ = p.GetSchema(context.Background())
	_, _ = p.GetSchema(context.Background())
	assert.Equal(t, int32(2), caller.calls.Load())
}

func TestProvider_ConcurrentMissesShareOneCall(t *testing.T) {
	caller := &fakeCaller{payload: `[{"text":"schema"}]`, gate: make(chan struct{})}
	p := NewProvider(caller, introspection, WithTTL(time.Hour))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := p.GetSchema(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, "schema", s)
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(caller.gate)
	wg.Wait()

	assert.Equal(t, int32(1), caller.calls.Load())
}

func TestProvider_CancelledCallerDoesNotFailWaiters(t *testing.T) {
	caller := &fakeCaller{payload: `[{"text":"schema"}]`, gate: make(chan struct{})}
	p := NewProvider(caller, introspection)

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := p.GetSchema(firstCtx)
		firstErr <- err
	}()
	require.Eventually(t, func() bool { return caller.calls.Load() == 1 }, time.Second, time.Millisecond)

	type result struct {
		schema string
		err    error
	}
	second := make(chan result, 1)
	go func() {
		s, err := p.GetSchema(context.Background())
		second <- result{s, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelFirst()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(caller.gate)
	got := <-second
	require.NoError(t, got.err)
	assert.Equal(t, "schema", got.schema)
	assert.Equal(t, int32(1), caller.calls.Load())
}
