// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Murmur Contributors

package store

import (
	"errors"
	"fmt"
	"sync"

	murmurerr "github.com/murmur-dev/murmur/pkg/errors"
)

// defaultVectorDimensions is the default embedding dimension (matches OpenAI text-embedding-3-small).
const defaultVectorDimensions = 1536

// Stores bundles every persistence interface a backend provides.
type Stores struct {
	Entries  EntryStore
	Folders  FolderStore
	Settings SettingsStore
	Vectors  VectorIndex
}

// Close closes every sub-store, joining any errors.
func (s *Stores) Close() error {
	var errs []error
	if err := s.Entries.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.Folders.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.Settings.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.Vectors.Close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Factory creates a backend's stores given a data directory and vector
// dimensions.
type Factory func(dataPath string, vectorDims int) (*Stores, error)

var (
	factories   = map[string]Factory{}
	factoriesMu sync.RWMutex
)

// RegisterBackend registers a factory for a named storage backend.
// Backend packages call this from init(). This function is goroutine-safe.
func RegisterBackend(name string, factory Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = factory
}

// resolveBackend returns the effective backend name, defaulting to "sqlite".
func resolveBackend(cfg *StorageConfig) string {
	if cfg.Backend == "" {
		return "sqlite"
	}
	return cfg.Backend
}

// NewStores creates all stores for the configured backend.
// The dataPath directory is used to derive database file paths.
func NewStores(cfg *StorageConfig, dataPath string) (*Stores, error) {
	backend := resolveBackend(cfg)

	factoriesMu.RLock()
	factory, ok := factories[backend]
	factoriesMu.RUnlock()
	if !ok {
		return nil, murmurerr.New(murmurerr.CodeStoreBackendUnsupported,
			fmt.Sprintf("unsupported storage backend: %q", backend))
	}

	dims := defaultVectorDimensions
	if cfg.VectorDimensions > 0 {
		dims = cfg.VectorDimensions
	}

	return factory(dataPath, dims)
}
