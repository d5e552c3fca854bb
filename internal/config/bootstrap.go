// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Murmur Contributors

package config

import (
	_ "embed"
	"log/slog"
	"os"
	"path/filepath"

	murmurerr "github.com/murmur-dev/murmur/pkg/errors"
)

//go:embed murmur.yaml.default
var DefaultConfigYAML []byte

// DefaultConfigPath returns ~/.config/murmur/murmur.yaml.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", murmurerr.Errorf(murmurerr.CodeConfigLoadReadFailure, "resolving home directory: %w", err)
	}
	return filepath.Join(home, ".config", "murmur", "murmur.yaml"), nil
}

// DefaultDataDir returns ~/.local/share/murmur.
func DefaultDataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", murmurerr.Errorf(murmurerr.CodeConfigLoadReadFailure, "resolving home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "murmur"), nil
}

// BootstrapConfig seeds the default annotated config at the standard path
// when no file is there yet, and returns the path it wrote. An existing file
// or any write failure yields an empty string; running without a config file
// is fine, so failures here are only logged.
func BootstrapConfig() string {
	cfgPath, err := DefaultConfigPath()
	if err != nil {
		slog.Debug("config bootstrap skipped", "error", err)
		return ""
	}

	if _, err := os.Stat(cfgPath); err == nil {
		return "" // user already has one
	}

	if err := os.MkdirAll(filepath.Dir(cfgPath), 0o700); err != nil {
		slog.Debug("config bootstrap skipped, cannot create config directory", "error", err)
		return ""
	}
	if err := os.WriteFile(cfgPath, DefaultConfigYAML, 0o600); err != nil {
		slog.Debug("config bootstrap skipped, cannot write default config", "path", cfgPath, "error", err)
		return ""
	}

	slog.Info("wrote default config", "path", cfgPath)
	return cfgPath
}
