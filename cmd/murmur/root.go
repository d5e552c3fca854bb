// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Murmur Contributors

package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/murmur-dev/murmur/internal/config"
)

// NewRootCmd creates the root murmur command with all subcommands registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "murmur",
		Short:         "Murmur — semantic voice journal engine",
		Long:          "Murmur organizes journal entries into topic folders using embeddings and clustering, and serves hybrid keyword/semantic search.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringP("config", "c", "", "path to config file")
	root.PersistentFlags().String("data-dir", "", "path to data directory")
	root.PersistentFlags().BoolP("verbose", "v", false, "enable verbose output")

	root.AddCommand(
		newStartCmd(),
		newAddCmd(),
		newSearchCmd(),
		newFoldersCmd(),
		newReclusterCmd(),
		newBackfillCmd(),
		newStatusCmd(),
		newVersionCmd(),
	)

	return root
}

// loadConfig resolves and loads configuration for a command invocation.
// Flag > env > file > defaults; a missing config file falls back to the
// bootstrapped default in ~/.config/murmur/.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		if p, err := config.DefaultConfigPath(); err == nil {
			if _, statErr := os.Stat(p); statErr == nil {
				path = p
			} else if bootstrapped := config.BootstrapConfig(); bootstrapped != "" {
				path = bootstrapped
			}
		}
	}
	if path != "" {
		config.WarnInsecurePermissions(path)
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if dataDir, _ := cmd.Flags().GetString("data-dir"); dataDir != "" {
		cfg.Storage.DataDir = dataDir
	}

	return cfg, nil
}

// newLogger builds the CLI logger. Verbose enables debug-level output.
func newLogger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelInfo
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}
