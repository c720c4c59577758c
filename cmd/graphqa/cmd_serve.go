// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/AleutianAI/AleutianGraphQA/services/graphqa"
	"github.com/AleutianAI/AleutianGraphQA/services/graphqa/api"
	"github.com/AleutianAI/AleutianGraphQA/services/graphqa/observability"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const shutdownTimeout = 15 * time.Second

var (
	servePort  int
	serveDebug bool

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve the question-answering API over HTTP",
		RunE:  runServeCommand,
	}
)

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "listen port (default from config)")
	serveCmd.Flags().BoolVar(&serveDebug, "debug", false, "enable gin request logging")
}

func runServeCommand(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := graphqa.Build(ctx, cfg, Version, observability.InitMetrics())
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close(context.Background()) }()

	if !serveDebug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	if serveDebug {
		router.Use(gin.Logger())
	}
	router.Use(otelgin.Middleware("graphqa"))

	var runs api.RunReader
	if rt.Journal != nil {
		runs = rt.Journal
	}
	api.SetupRoutes(router, rt.Workflow, runs, rt.Health, api.MetricsHandler())

	port := cfg.Server.Port
	if servePort != 0 {
		port = servePort
	}
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting GraphQA server", slog.String("address", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	slog.Info("Shutting down GraphQA server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
