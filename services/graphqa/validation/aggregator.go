// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package validation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/AleutianAI/AleutianGraphQA/services/graphqa/tools"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("aleutian.graphqa.validation")

// Validator checks one dimension of a candidate query.
//
// A returned error means the validator integration is broken. A query that
// fails validation is reported through the verdict, never through err.
type Validator interface {
	Kind() Kind
	Validate(ctx context.Context, candidate string) (*Verdict, error)
}

// ToolValidator invokes an external validation tool with {query: candidate}
// and decodes the two-stage envelope into a Verdict.
type ToolValidator struct {
	kind   Kind
	caller tools.Caller
	ref    tools.Ref
}

// NewToolValidator creates a validator bound to a named tool.
func NewToolValidator(kind Kind, caller tools.Caller, ref tools.Ref) *ToolValidator {
	return &ToolValidator{kind: kind, caller: caller, ref: ref}
}

func (v *ToolValidator) Kind() Kind { return v.kind }

func (v *ToolValidator) Validate(ctx context.Context, candidate string) (*Verdict, error) {
	payload, err := v.caller.Call(ctx, v.ref, map[string]any{"query": candidate})
	if err != nil {
		return nil, err
	}
	var verdict Verdict
	if err := tools.Decode(v.ref, payload, &verdict); err != nil {
		return nil, err
	}
	verdict.Kind = v.kind
	return &verdict, nil
}

// VerdictObserver is notified of each verdict as it is produced. With
// WithParallel it may be called from two goroutines at once.
type VerdictObserver func(kind Kind, passed bool)

// Aggregator runs the syntax, schema and properties validators and merges
// their verdicts into a Report.
//
// # Description
//
// Syntax always runs first. An invalid syntax verdict short-circuits the
// other two validators. With WithParallel the schema and properties
// validators then run concurrently.
//
// # Thread Safety
//
// Safe for concurrent use as long as the validators and the observer are.
type Aggregator struct {
	syntax     Validator
	schema     Validator
	properties Validator

	parallel bool
	observe  VerdictObserver
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithParallel runs the schema and properties validators concurrently
// once syntax has passed.
func WithParallel(enabled bool) Option {
	return func(a *Aggregator) { a.parallel = enabled }
}

// WithObserver registers a callback invoked for every verdict.
func WithObserver(fn VerdictObserver) Option {
	return func(a *Aggregator) { a.observe = fn }
}

// NewAggregator creates an Aggregator.
//
// # Inputs
//
//   - syntax, schema, properties: The three validators. All are required.
//   - opts: WithParallel and WithObserver.
//
// # Outputs
//
//   - *Aggregator: Configured aggregator.
//   - error: Non-nil when a validator is missing.
func NewAggregator(syntax, schema, properties Validator, opts ...Option) (*Aggregator, error) {
	if syntax == nil || schema == nil || properties == nil {
		return nil, fmt.Errorf("validation: syntax, schema and properties validators are required")
	}
	a := &Aggregator{syntax: syntax, schema: schema, properties: properties}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Aggregate validates a candidate.
//
// # Outputs
//
//   - Report: Only the syntax verdict when syntax reports the query
//     invalid, otherwise all three verdicts.
//   - error: The first validator error. No partial report is returned.
func (a *Aggregator) Aggregate(ctx context.Context, candidate string) (Report, error) {
	ctx, span := tracer.Start(ctx, "Aggregator.Aggregate")
	defer span.End()

	syntax, err := a.run(ctx, a.syntax, candidate)
	if err != nil {
		return Report{}, fail(span, err)
	}
	if syntax.Invalid() {
		span.SetAttributes(attribute.Bool("validation.short_circuit", true))
		return Report{Syntax: syntax}, nil
	}

	var schema, properties *Verdict
	if a.parallel {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			schema, err = a.run(gctx, a.schema, candidate)
			return err
		})
		g.Go(func() error {
			var err error
			properties, err = a.run(gctx, a.properties, candidate)
			return err
		})
		if err := g.Wait(); err != nil {
			return Report{}, fail(span, err)
		}
	} else {
		if schema, err = a.run(ctx, a.schema, candidate); err != nil {
			return Report{}, fail(span, err)
		}
		if properties, err = a.run(ctx, a.properties, candidate); err != nil {
			return Report{}, fail(span, err)
		}
	}

	report := Report{Syntax: syntax, Schema: schema, Properties: properties}
	span.SetAttributes(attribute.Bool("validation.passed", Passes(report)))
	return report, nil
}

func (a *Aggregator) run(ctx context.Context, v Validator, candidate string) (*Verdict, error) {
	ctx, span := tracer.Start(ctx, "Validator."+string(v.Kind()))
	defer span.End()

	verdict, err := v.Validate(ctx, candidate)
	if err != nil {
		return nil, fail(span, err)
	}
	if verdict == nil {
		verdict = &Verdict{}
	}
	verdict.Kind = v.Kind()

	passed := dimensionPasses(v.Kind(), verdict)
	span.SetAttributes(
		attribute.Bool("validation.passed", passed),
		attribute.Int("validation.diagnostics", len(verdict.Metadata)),
	)
	slog.Debug("Validator verdict",
		slog.String("kind", string(v.Kind())),
		slog.Bool("passed", passed),
		slog.Int("diagnostics", len(verdict.Metadata)))
	if a.observe != nil {
		a.observe(v.Kind(), passed)
	}
	return verdict, nil
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
