// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability defines the Prometheus metrics for question
// answering runs.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "aleutian"

const graphqaSubsystem = "graphqa"

// Metrics holds the run, loop and validator metrics. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	// RunsTotal counts finished runs.
	// Labels: outcome (answered, abandoned, failed)
	RunsTotal *prometheus.CounterVec

	// LoopIterations measures validation rounds per run.
	LoopIterations prometheus.Histogram

	// VerdictsTotal counts validator verdicts.
	// Labels: kind (syntax, schema, properties), result (pass, fail)
	VerdictsTotal *prometheus.CounterVec

	// TransitionsTotal counts repair-loop state changes.
	// Labels: from, to
	TransitionsTotal *prometheus.CounterVec

	// StageDurationSeconds measures each workflow stage.
	// Labels: stage (schema, loop, execute, format)
	StageDurationSeconds *prometheus.HistogramVec

	// ErrorsTotal counts hard errors by the stage that raised them.
	// Labels: stage
	ErrorsTotal *prometheus.CounterVec
}

// DefaultMetrics is registered with the default Prometheus registry by
// InitMetrics.
var DefaultMetrics *Metrics

// InitMetrics registers DefaultMetrics with the default registry. Call once.
func InitMetrics() *Metrics {
	DefaultMetrics = NewMetrics(prometheus.DefaultRegisterer)
	return DefaultMetrics
}

// NewMetrics creates metrics registered with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: graphqaSubsystem,
				Name:      "runs_total",
				Help:      "Total question-answering runs by outcome",
			},
			[]string{"outcome"},
		),

		LoopIterations: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: graphqaSubsystem,
				Name:      "loop_iterations",
				Help:      "Validation rounds needed per run",
				Buckets:   []float64{1, 2, 3, 5, 8, 13, 21},
			},
		),

		VerdictsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: graphqaSubsystem,
				Name:      "verdicts_total",
				Help:      "Validator verdicts by kind and result",
			},
			[]string{"kind", "result"},
		),

		TransitionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: graphqaSubsystem,
				Name:      "transitions_total",
				Help:      "Repair loop state transitions",
			},
			[]string{"from", "to"},
		),

		StageDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: graphqaSubsystem,
				Name:      "stage_duration_seconds",
				Help:      "Workflow stage duration in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"stage"},
		),

		ErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: graphqaSubsystem,
				Name:      "errors_total",
				Help:      "Hard errors by workflow stage",
			},
			[]string{"stage"},
		),
	}
}

func (m *Metrics) RecordRun(outcome string, iterations int) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(outcome).Inc()
	if iterations > 0 {
		m.LoopIterations.Observe(float64(iterations))
	}
}

func (m *Metrics) RecordVerdict(kind string, passed bool) {
	if m == nil {
		return
	}
	result := "pass"
	if !passed {
		result = "fail"
	}
	m.VerdictsTotal.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) RecordTransition(from, to string) {
	if m == nil {
		return
	}
	m.TransitionsTotal.WithLabelValues(from, to).Inc()
}

func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.StageDurationSeconds.WithLabelValues(stage).Observe(d.Seconds())
}

func (m *Metrics) RecordError(stage string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(stage).Inc()
}
