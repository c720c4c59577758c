// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command graphqa answers natural-language questions over a Neo4j graph.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/AleutianAI/AleutianGraphQA/pkg/logging"
	"github.com/AleutianAI/AleutianGraphQA/pkg/ux"
	"github.com/AleutianAI/AleutianGraphQA/services/graphqa/config"
	"github.com/AleutianAI/AleutianGraphQA/services/graphqa/telemetry"
	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags.
var Version = "dev"

// --- Global Command Variables ---
var (
	configPath  string
	logLevel    string
	outputLevel string
	jsonOutput  bool

	cfg        *config.Config
	logger     *logging.Logger
	printer    *ux.Printer
	shutdownFn telemetry.Shutdown

	rootCmd = &cobra.Command{
		Use:           "graphqa",
		Short:         "Ask questions of a Neo4j graph in plain language",
		Long:          "graphqa drafts Cypher with an LLM, repairs it until the MCP validators accept it, runs it against Neo4j and answers in prose.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			teardown()
		},
	}
)

func init() {
	// Assigned here rather than in the literal: setup refers to rootCmd,
	// which would otherwise form an initialization cycle.
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return setup(cmd.Context())
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file (default "+config.DefaultPath+")")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&outputLevel, "output", "", "output style: rich, plain or machine (default: detect)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print results as JSON")

	rootCmd.AddCommand(askCmd, serveCmd, runsCmd, versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "graphqa", Version)
	},
}

func setup(ctx context.Context) error {
	var err error
	cfg, err = config.Load(configPath)
	if err != nil {
		return err
	}
	cfg.Secrets = config.LoadSecrets(os.Getenv, config.DefaultSecretsDir)

	levelName := cfg.Log.Level
	if logLevel != "" {
		levelName = logLevel
	}
	level, err := logging.ParseLevel(levelName)
	if err != nil {
		return err
	}
	logger = logging.New(logging.Config{
		Level:   level,
		LogDir:  cfg.Log.Dir,
		Service: "graphqa",
		JSON:    cfg.Log.JSON,
	})
	slog.SetDefault(logger.Slog())

	shutdownFn, err = telemetry.Setup(ctx, telemetry.Config{
		ServiceName:  "graphqa",
		OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
		Stdout:       cfg.Telemetry.Stdout,
	})
	if err != nil {
		return err
	}

	printer = ux.NewPrinter(rootCmd.OutOrStdout(), outputStyle(rootCmd.OutOrStdout()))
	return nil
}

func outputStyle(w io.Writer) ux.Level {
	if outputLevel != "" {
		return ux.ParseLevel(outputLevel)
	}
	return ux.DetectLevel(w, os.Getenv)
}

func teardown() {
	if shutdownFn != nil {
		if err := shutdownFn(context.Background()); err != nil {
			slog.Warn("Failed to flush traces", "error", err)
		}
		shutdownFn = nil
	}
	if logger != nil {
		_ = logger.Close()
		logger = nil
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		teardown()
		ux.NewPrinter(os.Stderr, outputStyle(os.Stderr)).Error(err.Error())
		os.Exit(1)
	}
}
