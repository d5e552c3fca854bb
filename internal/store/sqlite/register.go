// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Murmur Contributors

package sqlite

import (
	"fmt"
	"path/filepath"

	"github.com/murmur-dev/murmur/internal/store"
)

func init() {
	store.RegisterBackend("sqlite", newStores)
}

func newStores(dataPath string, vectorDims int) (*store.Stores, error) {
	// Open murmur.db once and share it between the entry, folder, and
	// settings stores to avoid connection waste and WAL contention. The
	// entry store owns the shared connection's lifecycle.
	db, err := openDB(filepath.Join(dataPath, "murmur.db"))
	if err != nil {
		return nil, fmt.Errorf("opening murmur db: %w", err)
	}

	entries, err := NewEntryStoreWithDB(db)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating entry store: %w", err)
	}
	entries.ownsDB = true

	folders, err := NewFolderStoreWithDB(db)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating folder store: %w", err)
	}

	settings, err := NewSettingsStoreWithDB(db)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating settings store: %w", err)
	}

	vectors, err := NewVectorIndex(filepath.Join(dataPath, "vectors.db"), vectorDims)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating vector index: %w", err)
	}

	return &store.Stores{
		Entries:  entries,
		Folders:  folders,
		Settings: settings,
		Vectors:  vectors,
	}, nil
}
