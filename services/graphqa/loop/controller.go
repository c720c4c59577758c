// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package loop drives a question through draft, validate and repair until
// the validators accept a Cypher query or the run is abandoned.
//
// Only validation rejections are retried. Errors from the drafter or the
// validators abort the run.
package loop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/AleutianAI/AleutianGraphQA/services/graphqa/history"
	"github.com/AleutianAI/AleutianGraphQA/services/graphqa/validation"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("aleutian.graphqa.loop")

// DefaultMaxIterations bounds the number of validation rounds per run.
const DefaultMaxIterations = 10

// ErrIterationBudgetExhausted is returned when every allowed candidate was
// rejected.
var ErrIterationBudgetExhausted = errors.New("iteration budget exhausted")

// Drafter produces candidate queries.
type Drafter interface {
	DraftInitial(ctx context.Context, question, schema string) (string, error)
	DraftRepair(ctx context.Context, prior, feedback, schema string) (string, error)
}

// Aggregator validates a candidate.
type Aggregator interface {
	Aggregate(ctx context.Context, candidate string) (validation.Report, error)
}

// Result describes a finished run. It is returned alongside errors too, so
// callers can inspect the attempts made before the failure.
type Result struct {
	// Query is the accepted candidate. Empty unless State is ACCEPTED.
	Query string

	State      State
	Iterations int
	History    *history.AttemptHistory

	// LastReport is the report of the final validation round.
	LastReport validation.Report

	Transitions []Transition
	Duration    time.Duration
}

// Controller runs the draft, validate and repair loop for one question.
//
// # Description
//
// Each iteration records the candidate in the attempt history, validates
// it, and either accepts it or asks the drafter for a repair using the
// aggregated feedback. The loop ends on acceptance, on an exhausted
// iteration budget, on context cancellation, or on a drafter or validator
// error.
//
// # Thread Safety
//
// Controller holds no per-run state and may be shared across concurrent
// runs. The transition hook must be safe for concurrent use when it is.
type Controller struct {
	drafter    Drafter
	aggregator Aggregator
	sm         *StateMachine

	maxIterations int
	onTransition  func(Transition)
}

// Option configures a Controller.
type Option func(*Controller)

// WithMaxIterations bounds validation rounds per run. Zero means unbounded.
func WithMaxIterations(n int) Option {
	return func(c *Controller) {
		if n >= 0 {
			c.maxIterations = n
		}
	}
}

// WithTransitionHook is called on every state change.
func WithTransitionHook(fn func(Transition)) Option {
	return func(c *Controller) { c.onTransition = fn }
}

// NewController creates a Controller.
//
// # Inputs
//
//   - drafter: Produces the initial candidate and its repairs.
//   - aggregator: Validates each candidate.
//   - opts: WithMaxIterations (default 10, 0 is unbounded) and
//     WithTransitionHook.
//
// # Outputs
//
//   - *Controller: Ready to Run.
func NewController(drafter Drafter, aggregator Aggregator, opts ...Option) *Controller {
	c := &Controller{
		drafter:       drafter,
		aggregator:    aggregator,
		sm:            NewStateMachine(),
		maxIterations: DefaultMaxIterations,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run drafts a query for question and repairs it until accepted.
//
// # Inputs
//
//   - ctx: Cancelling it abandons the run at the next iteration boundary.
//   - question: The natural-language question.
//   - schema: Opaque schema text passed to the drafter.
//
// # Outputs
//
//   - *Result: Always non-nil. Carries the final state, the attempt
//     history and the transition trail, even on error.
//   - error: ErrIterationBudgetExhausted when the budget runs out, the
//     context error when cancelled, or the drafter or validator error.
func (c *Controller) Run(ctx context.Context, question, schema string) (*Result, error) {
	ctx, span := tracer.Start(ctx, "Controller.Run")
	defer span.End()

	start := time.Now()
	res := &Result{History: history.New()}
	finish := func(t *tracker, err error) (*Result, error) {
		if t != nil && err != nil && ctx.Err() != nil && !t.current.IsTerminal() {
			_ = t.to(StateAbandoned, "context cancelled")
		}
		if t != nil {
			res.State = t.current
			res.Transitions = t.trail
		}
		res.Duration = time.Since(start)
		span.SetAttributes(
			attribute.Int("loop.iterations", res.Iterations),
			attribute.String("loop.state", string(res.State)),
		)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return res, err
	}

	candidate, err := c.drafter.DraftInitial(ctx, question, schema)
	if err != nil {
		return finish(nil, err)
	}
	t := newTracker(c.sm, c.transitionHook())

	for {
		if err := ctx.Err(); err != nil {
			return finish(t, fmt.Errorf("repair loop abandoned: %w", err))
		}

		res.Iterations++
		res.History.Record(candidate)
		if err := t.to(StateValidating, fmt.Sprintf("iteration %d", res.Iterations)); err != nil {
			return finish(t, err)
		}

		report, err := c.aggregator.Aggregate(ctx, candidate)
		if err != nil {
			return finish(t, err)
		}
		res.LastReport = report

		if validation.Passes(report) {
			if err := t.to(StateAccepted, "all validators passed"); err != nil {
				return finish(t, err)
			}
			res.Query = candidate
			slog.Info("Query accepted", slog.Int("iterations", res.Iterations))
			return finish(t, nil)
		}

		feedback := validation.Feedback(report)
		if err := t.to(StateRejected, "validation failed"); err != nil {
			return finish(t, err)
		}
		slog.Info("Query rejected",
			slog.Int("iteration", res.Iterations),
			slog.String("feedback", feedback))

		if c.maxIterations > 0 && res.Iterations >= c.maxIterations {
			_ = t.to(StateAbandoned, "iteration budget exhausted")
			return finish(t, fmt.Errorf("%w after %d attempts", ErrIterationBudgetExhausted, res.Iterations))
		}

		if err := t.to(StateRepairing, "requesting repair"); err != nil {
			return finish(t, err)
		}
		candidate, err = c.drafter.DraftRepair(ctx, candidate, feedback, schema)
		if err != nil {
			return finish(t, err)
		}
	}
}

func (c *Controller) transitionHook() func(Transition) {
	return func(tr Transition) {
		slog.Debug("State transition",
			slog.String("from", string(tr.From)),
			slog.String("to", string(tr.To)),
			slog.String("reason", tr.Reason))
		if c.onTransition != nil {
			c.onTransition(tr)
		}
	}
}
