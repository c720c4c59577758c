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
	"github.com/AleutianAI/AleutianGraphQA/services/graphqa"
	"github.com/spf13/cobra"
)

var (
	runsLimit int

	runsCmd = &cobra.Command{
		Use:   "runs",
		Short: "Inspect journaled runs",
		Long: `Inspect journaled runs in the on-disk journal.

The journal directory is locked while "graphqa serve" is running against it,
so these commands fail in that case. Query the running server instead:

  curl http://<host>:<port>/v1/runs
  curl http://<host>:<port>/v1/runs/<run-id>`,
	}
	runsListCmd = &cobra.Command{
		Use:   "list",
		Short: "List recent runs, newest first",
		Args:  cobra.NoArgs,
		RunE:  runRunsList,
	}
	runsGetCmd = &cobra.Command{
		Use:   "get [run-id]",
		Short: "Show one run with its attempt history",
		Args:  cobra.ExactArgs(1),
		RunE:  runRunsGet,
	}
)

func init() {
	runsListCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "maximum runs to show")
	runsCmd.AddCommand(runsListCmd, runsGetCmd)
}

func runRunsList(cmd *cobra.Command, args []string) error {
	store, err := graphqa.OpenJournal(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.List(cmd.Context(), runsLimit)
	if err != nil {
		return err
	}
	if jsonOutput {
		return writeJSON(cmd.OutOrStdout(), runs)
	}
	renderRunList(printer, runs)
	return nil
}

func runRunsGet(cmd *cobra.Command, args []string) error {
	store, err := graphqa.OpenJournal(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	run, err := store.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if jsonOutput {
		return writeJSON(cmd.OutOrStdout(), run)
	}
	renderRun(printer, run)
	return nil
}
