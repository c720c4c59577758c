// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/AleutianAI/AleutianGraphQA/services/graphqa"
	"github.com/AleutianAI/AleutianGraphQA/services/graphqa/journal"
	"github.com/AleutianAI/AleutianGraphQA/services/graphqa/loop"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type mockAsker struct {
	answer   *graphqa.Answer
	err      error
	question string
}

func (m *mockAsker) Ask(_ context.Context, question string) (*graphqa.Answer, error) {
	m.question = question
	return m.answer, m.err
}

func newTestRouter(t *testing.T, asker Asker, health HealthFunc) (*gin.Engine, *journal.Store) {
	t.Helper()
	store, err := journal.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	router := gin.New()
	SetupRoutes(router, asker, store, health, promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{}))
	return router, store
}

func postAsk(router *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v1/ask", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func get(router *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestHandleAsk_Success(t *testing.T) {
	asker := &mockAsker{answer: &graphqa.Answer{
		RunID:      "run-1",
		Text:       "The Millennium Falcon set contains 42 minifigs.",
		Query:      "MATCH (m:Minifig) RETURN count(m) AS numMinifigs",
		Iterations: 1,
	}}
	router, _ := newTestRouter(t, asker, nil)

	w := postAsk(router, `{"question": "How many minifigs?"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "How many minifigs?", asker.question)

	var got graphqa.Answer
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "run-1", got.RunID)
	assert.Contains(t, got.Text, "42")
}

func TestHandleAsk_BadRequest(t *testing.T) {
	router, _ := newTestRouter(t, &mockAsker{}, nil)

	for _, body := range []string{`not json`, `{}`, `{"question": ""}`} {
		w := postAsk(router, body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
}

func TestHandleAsk_Errors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{
			name:   "budget exhausted",
			err:    &graphqa.RunError{RunID: "run-9", Stage: graphqa.StageLoop, Err: fmt.Errorf("%w after 10 attempts", loop.ErrIterationBudgetExhausted)},
			status: http.StatusUnprocessableEntity,
		},
		{
			name:   "deadline",
			err:    &graphqa.RunError{RunID: "run-9", Stage: graphqa.StageLoop, Err: context.DeadlineExceeded},
			status: http.StatusGatewayTimeout,
		},
		{
			name:   "upstream failure",
			err:    &graphqa.RunError{RunID: "run-9", Stage: graphqa.StageExecute, Err: errors.New("neo4j down")},
			status: http.StatusBadGateway,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, _ := newTestRouter(t, &mockAsker{err: tt.err}, nil)

			w := postAsk(router, `{"question": "q"}`)
			assert.Equal(t, tt.status, w.Code)

			var body map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, "run-9", body["run_id"])
			assert.NotEmpty(t, body["stage"])
		})
	}
}

func TestHandleRuns(t *testing.T) {
	router, store := newTestRouter(t, &mockAsker{}, nil)
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, journal.Run{ID: "a", Question: "first", Outcome: journal.OutcomeAnswered}))
	require.NoError(t, store.Put(ctx, journal.Run{ID: "b", Question: "second", Outcome: journal.OutcomeAbandoned}))

	t.Run("get", func(t *testing.T) {
		w := get(router, "/v1/runs/a")
		require.Equal(t, http.StatusOK, w.Code)
		var run journal.Run
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &run))
		assert.Equal(t, "first", run.Question)
	})

	t.Run("not found", func(t *testing.T) {
		w := get(router, "/v1/runs/missing")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("list", func(t *testing.T) {
		w := get(router, "/v1/runs?limit=1")
		require.Equal(t, http.StatusOK, w.Code)
		var body struct {
			Runs  []journal.Run `json:"runs"`
			Count int           `json:"count"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, 1, body.Count)
		require.Len(t, body.Runs, 1)
	})

	t.Run("bad limit", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, get(router, "/v1/runs?limit=-3").Code)
		assert.Equal(t, http.StatusBadRequest, get(router, "/v1/runs?limit=ten").Code)
	})
}

func TestHandleHealth(t *testing.T) {
	router, _ := newTestRouter(t, &mockAsker{}, nil)
	assert.Equal(t, http.StatusOK, get(router, "/health").Code)

	router, _ = newTestRouter(t, &mockAsker{}, func(context.Context) error { return errors.New("neo4j down") })
	w := get(router, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "neo4j down")
}

func TestSetupRoutes_Metrics(t *testing.T) {
	router, _ := newTestRouter(t, &mockAsker{}, nil)
	assert.Equal(t, http.StatusOK, get(router, "/metrics").Code)
}

func TestSetupRoutes_NoJournal(t *testing.T) {
	router := gin.New()
	SetupRoutes(router, &mockAsker{}, nil, nil, nil)
	assert.Equal(t, http.StatusNotFound, get(router, "/v1/runs").Code)
	assert.Equal(t, http.StatusNotFound, get(router, "/metrics").Code)
}
