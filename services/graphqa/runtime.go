// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graphqa

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/AleutianAI/AleutianGraphQA/services/graphqa/config"
	"github.com/AleutianAI/AleutianGraphQA/services/graphqa/drafter"
	"github.com/AleutianAI/AleutianGraphQA/services/graphqa/executor"
	"github.com/AleutianAI/AleutianGraphQA/services/graphqa/formatter"
	"github.com/AleutianAI/AleutianGraphQA/services/graphqa/graphstore"
	"github.com/AleutianAI/AleutianGraphQA/services/graphqa/journal"
	"github.com/AleutianAI/AleutianGraphQA/services/graphqa/loop"
	"github.com/AleutianAI/AleutianGraphQA/services/graphqa/observability"
	"github.com/AleutianAI/AleutianGraphQA/services/graphqa/schema"
	"github.com/AleutianAI/AleutianGraphQA/services/graphqa/tools"
	"github.com/AleutianAI/AleutianGraphQA/services/graphqa/validation"
	"github.com/AleutianAI/AleutianGraphQA/services/llm"
)

// Runtime owns the live components behind a Workflow.
type Runtime struct {
	Workflow *Workflow
	Schema   *schema.Provider
	Store    *graphstore.Neo4jStore

	// Journal is nil when journaling is disabled.
	Journal *journal.Store
	Metrics *observability.Metrics

	caller *tools.MCPCaller
}

// Build connects to the MCP servers and Neo4j, binds every configured tool
// and assembles the workflow. Any failure closes what was opened.
func Build(ctx context.Context, cfg *config.Config, version string, metrics *observability.Metrics) (rt *Runtime, err error) {
	rt = &Runtime{Metrics: metrics}
	defer func() {
		if err != nil {
			_ = rt.Close(context.WithoutCancel(ctx))
			rt = nil
		}
	}()

	rt.caller = tools.NewMCPCaller(version, cfg.MCP.CallTimeout)
	for _, srv := range cfg.MCP.Servers {
		if err := rt.caller.Connect(ctx, srv); err != nil {
			return rt, err
		}
	}
	if err := tools.Bind(ctx, rt.caller, cfg.Tools.Refs()...); err != nil {
		return rt, err
	}

	client, err := newLLMClient(cfg)
	if err != nil {
		return rt, err
	}
	params := llm.GenerationParams{
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
	}

	neo := cfg.Neo4j
	if cfg.Secrets.Neo4jPassword.IsSet() {
		if neo.Password, err = cfg.Secrets.Neo4jPassword.Reveal(); err != nil {
			return rt, err
		}
	}
	rt.Store = graphstore.NewNeo4jStore(neo)
	if err := rt.Store.Connect(ctx); err != nil {
		return rt, err
	}

	if cfg.Journal.Enabled {
		jcfg := journal.InMemoryConfig()
		if !cfg.Journal.InMemory {
			path, perr := expandHome(cfg.Journal.Path)
			if perr != nil {
				return rt, perr
			}
			jcfg = journal.DefaultConfig(path)
		}
		jcfg.Logger = slog.Default()
		if rt.Journal, err = journal.Open(jcfg); err != nil {
			return rt, err
		}
	}

	aggregator, err := validation.NewAggregator(
		validation.NewToolValidator(validation.KindSyntax, rt.caller, cfg.Tools.Syntax),
		validation.NewToolValidator(validation.KindSchema, rt.caller, cfg.Tools.SchemaValidator),
		validation.NewToolValidator(validation.KindProperties, rt.caller, cfg.Tools.Properties),
		validation.WithParallel(cfg.Loop.ParallelValidators),
		validation.WithObserver(func(kind validation.Kind, passed bool) {
			metrics.RecordVerdict(string(kind), passed)
		}),
	)
	if err != nil {
		return rt, err
	}

	controller := loop.NewController(
		drafter.New(client, drafter.WithRowLimit(cfg.Loop.RowLimit), drafter.WithParams(params)),
		aggregator,
		loop.WithMaxIterations(cfg.Loop.MaxIterations),
		loop.WithTransitionHook(func(tr loop.Transition) {
			metrics.RecordTransition(string(tr.From), string(tr.To))
		}),
	)

	rt.Schema = schema.NewProvider(rt.caller, cfg.Tools.Schema, schema.WithTTL(cfg.Schema.CacheTTL))

	opts := []Option{WithMetrics(metrics)}
	if rt.Journal != nil {
		opts = append(opts, WithJournal(rt.Journal))
	}
	rt.Workflow = NewWorkflow(rt.Schema, controller, executor.New(rt.Store), formatter.New(client, params), opts...)

	slog.Info("GraphQA runtime ready",
		slog.String("llm_backend", cfg.LLM.Backend),
		slog.String("llm_provider", cfg.LLM.Provider),
		slog.String("llm_model", cfg.LLM.Model),
		slog.Int("mcp_servers", len(cfg.MCP.Servers)),
		slog.Bool("journal", rt.Journal != nil))
	return rt, nil
}

func newLLMClient(cfg *config.Config) (llm.LLMClient, error) {
	lc := llm.Config{
		Backend:           cfg.LLM.Backend,
		Model:             cfg.LLM.Model,
		BaseURL:           cfg.LLM.BaseURL,
		Timeout:           cfg.LLM.Timeout,
		RequestsPerSecond: cfg.LLM.RequestsPerSecond,
		Burst:             cfg.LLM.Burst,
	}
	if cfg.Secrets.LLMAPIKey.IsSet() {
		key, err := cfg.Secrets.LLMAPIKey.Reveal()
		if err != nil {
			return nil, err
		}
		lc.APIKey = key
	}
	client, err := llm.New(lc)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	return client, nil
}

// Close releases every component. It is safe on a partially built Runtime.
func (r *Runtime) Close(ctx context.Context) error {
	var errs []error
	if r.caller != nil {
		errs = append(errs, r.caller.Close())
	}
	if r.Store != nil {
		errs = append(errs, r.Store.Close(ctx))
	}
	if r.Journal != nil {
		errs = append(errs, r.Journal.Close())
	}
	return errors.Join(errs...)
}

// Health checks the graph store.
func (r *Runtime) Health(ctx context.Context) error {
	if r.Store == nil {
		return graphstore.ErrNotConnected
	}
	return r.Store.Health(ctx)
}

// OpenJournal opens the configured on-disk journal for CLI lookups.
//
// The journal directory is exclusively locked by whichever process holds
// it open, so this fails while "graphqa serve" is running against the
// same path. Query GET /v1/runs on the server instead.
func OpenJournal(cfg *config.Config) (*journal.Store, error) {
	if cfg.Journal.InMemory {
		return nil, errors.New("journal is in-memory; runs are only visible to the serving process")
	}
	path, err := expandHome(cfg.Journal.Path)
	if err != nil {
		return nil, err
	}
	jcfg := journal.DefaultConfig(path)
	jcfg.GCInterval = 0
	store, err := journal.Open(jcfg)
	if err != nil {
		return nil, fmt.Errorf("%w (if \"graphqa serve\" is running, use GET /v1/runs on the server)", err)
	}
	return store, nil
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
