// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Murmur Contributors

package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newBackfillCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backfill",
		Short: "Enrich entries that are missing embeddings",
		Long:  "Run embedding, topic extraction, and summarization over every entry without an embedding. Talks to the providers directly; stop the server before running this against a sqlite journal.",
		RunE:  runBackfill,
	}
}

func runBackfill(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger := newLogger(cmd)

	app, err := WireApp(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := app.Close(); closeErr != nil {
			logger.Warn("closing stores", "error", closeErr)
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	processed, total, err := app.Worker.Backfill(ctx)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Enriched %d of %d pending entries\n", processed, total)
	return err
}
