// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package graphqa answers natural-language questions over a Neo4j graph.
//
// A run fetches the schema, drafts a Cypher query, repairs it until the
// validators accept it, executes it and formats the rows as prose. Every
// run can be journaled with its full attempt history.
package graphqa

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/AleutianAI/AleutianGraphQA/services/graphqa/executor"
	"github.com/AleutianAI/AleutianGraphQA/services/graphqa/formatter"
	"github.com/AleutianAI/AleutianGraphQA/services/graphqa/history"
	"github.com/AleutianAI/AleutianGraphQA/services/graphqa/journal"
	"github.com/AleutianAI/AleutianGraphQA/services/graphqa/loop"
	"github.com/AleutianAI/AleutianGraphQA/services/graphqa/observability"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("aleutian.graphqa")

// ErrEmptyQuestion is returned by Ask for empty or whitespace-only questions.
var ErrEmptyQuestion = errors.New("question must not be empty")

type SchemaSource interface {
	GetSchema(ctx context.Context) (string, error)
}

type Runner interface {
	Run(ctx context.Context, question, schema string) (*loop.Result, error)
}

type QueryExecutor interface {
	Execute(ctx context.Context, candidate string) (*executor.Result, error)
}

type ResponseFormatter interface {
	Format(ctx context.Context, result *executor.Result, attempts *history.AttemptHistory) (formatter.Response, error)
}

type RunJournal interface {
	Put(ctx context.Context, run journal.Run) error
}

// Answer is the outcome of a successful run.
type Answer struct {
	RunID      string           `json:"run_id"`
	Question   string           `json:"question"`
	Text       string           `json:"answer"`
	Query      string           `json:"query"`
	Rows       []map[string]any `json:"rows"`
	Attempts   []string         `json:"attempts"`
	Iterations int              `json:"iterations"`
	Duration   time.Duration    `json:"duration_ns"`
}

// Workflow wires the stages of a run together.
type Workflow struct {
	schema    SchemaSource
	loop      Runner
	executor  QueryExecutor
	formatter ResponseFormatter

	journal RunJournal
	metrics *observability.Metrics
	newID   func() string
}

// Option configures a Workflow.
type Option func(*Workflow)

// WithJournal records every run.
func WithJournal(j RunJournal) Option {
	return func(w *Workflow) { w.journal = j }
}

// WithMetrics records run and stage metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(w *Workflow) { w.metrics = m }
}

// WithIDGenerator overrides run ID generation.
func WithIDGenerator(fn func() string) Option {
	return func(w *Workflow) { w.newID = fn }
}

func NewWorkflow(schema SchemaSource, runner Runner, exec QueryExecutor, format ResponseFormatter, opts ...Option) *Workflow {
	w := &Workflow{
		schema:    schema,
		loop:      runner,
		executor:  exec,
		formatter: format,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Ask answers a question. A failed run still carries its ID in the
// returned *RunError so callers can look up the journal entry.
func (w *Workflow) Ask(ctx context.Context, question string) (*Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, ErrEmptyQuestion
	}

	run := journal.Run{ID: w.newID(), Question: question, StartedAt: time.Now()}
	ctx, span := tracer.Start(ctx, "Workflow.Ask")
	defer span.End()
	span.SetAttributes(attribute.String("graphqa.run_id", run.ID))
	logger := slog.With(slog.String("run_id", run.ID))
	logger.Info("Answering question", slog.String("question", question))

	answer, stage, err := w.ask(ctx, question, &run)
	run.Duration = time.Since(run.StartedAt)

	switch {
	case err == nil:
		run.Outcome = journal.OutcomeAnswered
	case errors.Is(err, loop.ErrIterationBudgetExhausted) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		run.Outcome = journal.OutcomeAbandoned
	default:
		run.Outcome = journal.OutcomeFailed
	}
	if err != nil {
		run.Error = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		w.metrics.RecordError(stage)
		logger.Error("Run failed", slog.String("stage", stage), slog.String("error", err.Error()))
	}
	w.metrics.RecordRun(string(run.Outcome), run.Iterations)

	if w.journal != nil {
		// The journal write outlives a cancelled request.
		jctx := context.WithoutCancel(ctx)
		if jerr := w.journal.Put(jctx, run); jerr != nil {
			logger.Warn("Failed to journal run", slog.String("error", jerr.Error()))
		}
	}

	if err != nil {
		return nil, &RunError{RunID: run.ID, Stage: stage, Err: err}
	}
	answer.RunID = run.ID
	answer.Duration = run.Duration
	return answer, nil
}

func (w *Workflow) ask(ctx context.Context, question string, run *journal.Run) (*Answer, string, error) {
	start := time.Now()
	schema, err := w.schema.GetSchema(ctx)
	w.metrics.ObserveStage(StageSchema, time.Since(start))
	if err != nil {
		return nil, StageSchema, err
	}

	start = time.Now()
	res, err := w.loop.Run(ctx, question, schema)
	w.metrics.ObserveStage(StageLoop, time.Since(start))
	if res != nil {
		run.Attempts = res.History.All()
		run.Iterations = res.Iterations
	}
	if err != nil {
		return nil, StageLoop, err
	}
	run.Query = res.Query

	start = time.Now()
	result, err := w.executor.Execute(ctx, res.Query)
	w.metrics.ObserveStage(StageExecute, time.Since(start))
	if err != nil {
		return nil, StageExecute, err
	}
	run.Rows = result.Rows

	start = time.Now()
	resp, err := w.formatter.Format(ctx, result, res.History)
	w.metrics.ObserveStage(StageFormat, time.Since(start))
	if err != nil {
		return nil, StageFormat, err
	}
	run.Answer = resp.Text

	return &Answer{
		Question:   question,
		Text:       resp.Text,
		Query:      res.Query,
		Rows:       result.Rows,
		Attempts:   run.Attempts,
		Iterations: res.Iterations,
	}, "", nil
}
