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
	"os/signal"
	"strings"
	"syscall"

	"github.com/AleutianAI/AleutianGraphQA/services/graphqa"
	"github.com/AleutianAI/AleutianGraphQA/services/graphqa/observability"
	"github.com/spf13/cobra"
)

var (
	showQuery    bool
	showAttempts bool

	askCmd = &cobra.Command{
		Use:   "ask [question]",
		Short: "Answer one question against the configured graph",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runAskCommand,
	}
)

func init() {
	askCmd.Flags().BoolVar(&showQuery, "show-query", false, "print the accepted Cypher query")
	askCmd.Flags().BoolVar(&showAttempts, "show-attempts", false, "print every candidate query in order")
}

func runAskCommand(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := graphqa.Build(ctx, cfg, Version, observability.InitMetrics())
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close(context.WithoutCancel(ctx)) }()

	question := strings.Join(args, " ")
	answer, err := rt.Workflow.Ask(ctx, question)
	if err != nil {
		var runErr *graphqa.RunError
		if errors.As(err, &runErr) && rt.Journal != nil {
			printer.Field("Run", runErr.RunID)
		}
		return err
	}

	if jsonOutput {
		return writeJSON(cmd.OutOrStdout(), answer)
	}
	renderAnswer(printer, answer, showQuery, showAttempts)
	return nil
}
