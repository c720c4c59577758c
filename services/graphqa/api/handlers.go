// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package api exposes the GraphQA workflow over HTTP.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/AleutianAI/AleutianGraphQA/services/graphqa"
	"github.com/AleutianAI/AleutianGraphQA/services/graphqa/journal"
	"github.com/AleutianAI/AleutianGraphQA/services/graphqa/loop"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("aleutian.graphqa.api")

const (
	defaultListLimit = 20
	maxListLimit     = 500
)

// Asker answers one question. *graphqa.Workflow implements it.
type Asker interface {
	Ask(ctx context.Context, question string) (*graphqa.Answer, error)
}

// RunReader reads journaled runs.
type RunReader interface {
	Get(ctx context.Context, id string) (*journal.Run, error)
	List(ctx context.Context, limit int) ([]journal.Run, error)
}

// HealthFunc reports a dependency failure as a non-nil error.
type HealthFunc func(ctx context.Context) error

// AskRequest is the body of POST /v1/ask.
type AskRequest struct {
	Question string `json:"question" binding:"required"`
}

// HandleHealth reports 503 when check fails. A nil check always passes.
func HandleHealth(check HealthFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if check != nil {
			if err := check(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	}
}

// HandleAsk answers one question.
func HandleAsk(asker Asker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "HandleAsk")
		defer span.End()

		var req AskRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			slog.Error("Failed to parse ask request", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
			return
		}

		answer, err := asker.Ask(ctx, req.Question)
		if err != nil {
			var runErr *graphqa.RunError
			body := gin.H{"error": err.Error()}
			if errors.As(err, &runErr) {
				body["run_id"] = runErr.RunID
				body["stage"] = runErr.Stage
				span.SetAttributes(attribute.String("graphqa.run_id", runErr.RunID))
			}
			c.JSON(statusFor(err), body)
			return
		}
		span.SetAttributes(attribute.String("graphqa.run_id", answer.RunID))
		c.JSON(http.StatusOK, answer)
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, graphqa.ErrEmptyQuestion):
		return http.StatusBadRequest
	case errors.Is(err, loop.ErrIterationBudgetExhausted):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

// HandleGetRun returns one journaled run.
func HandleGetRun(runs RunReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("runId")
		run, err := runs.Get(c.Request.Context(), id)
		if errors.Is(err, journal.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "run not found", "run_id": id})
			return
		}
		if err != nil {
			slog.Error("Failed to read run", "run_id", id, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read run"})
			return
		}
		c.JSON(http.StatusOK, run)
	}
}

// HandleListRuns returns the newest runs first. ?limit= caps the count.
func HandleListRuns(runs RunReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := defaultListLimit
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
				return
			}
			limit = min(n, maxListLimit)
		}

		list, err := runs.List(c.Request.Context(), limit)
		if err != nil {
			slog.Error("Failed to list runs", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list runs"})
			return
		}
		if list == nil {
			list = []journal.Run{}
		}
		c.JSON(http.StatusOK, gin.H{"runs": list, "count": len(list)})
	}
}
