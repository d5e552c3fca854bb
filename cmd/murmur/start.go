// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Murmur Contributors

package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

func newStartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the murmur server",
		Long:  "Load configuration, open the stores, start the enrichment worker, and serve the HTTP API until interrupted.",
		RunE:  runStart,
	}

	cmd.Flags().String("listen", "", "override listen address (host:port)")

	return cmd
}

func runStart(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
		cfg.Server.Listen = listen
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

	app.Worker.Start(ctx)

	if _, err := fmt.Fprintf(cmd.OutOrStdout(), "murmur listening on %s\n", cfg.Server.Listen); err != nil {
		return err
	}

	serveErr := app.Server.Start(ctx)

	// Let the worker drain in-flight enrichment before closing stores.
	drainCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.Worker.Stop(drainCtx); err != nil {
		logger.Warn("stopping enrichment worker", "error", err)
	}

	return serveErr
}
