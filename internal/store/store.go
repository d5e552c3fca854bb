// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Murmur Contributors

package store

import (
	"context"
	"time"
)

// EntryStore persists journal entries, including their enrichment fields.
type EntryStore interface {
	Create(ctx context.Context, entry *Entry) error
	Get(ctx context.Context, id string) (*Entry, error)
	Update(ctx context.Context, entry *Entry) error
	List(ctx context.Context, filter EntryFilter) ([]*Entry, error)
	Delete(ctx context.Context, id string) error

	// CountEmbedded returns the number of entries with a stored embedding.
	CountEmbedded(ctx context.Context) (int, error)
	// CountCreatedAfter returns the number of entries created strictly
	// after t.
	CountCreatedAfter(ctx context.Context, t time.Time) (int, error)
	// SetClusterAssignments writes entry→cluster assignments in one batch.
	// Entries absent from the map keep their current assignment.
	SetClusterAssignments(ctx context.Context, assignments map[string]int) error

	Close() error
}

// FolderStore persists folders of all kinds.
type FolderStore interface {
	Create(ctx context.Context, folder *Folder) error
	Get(ctx context.Context, id string) (*Folder, error)
	// Rename updates the human-readable label of a folder.
	Rename(ctx context.Context, id string, name string) error
	// List returns folders of the given kind, or all folders when kind is
	// empty, ordered by creation time.
	List(ctx context.Context, kind FolderKind) ([]*Folder, error)
	Delete(ctx context.Context, id string) error
	// DeleteKind removes every folder of the given kind. Used by cluster
	// regeneration's full replace.
	DeleteKind(ctx context.Context, kind FolderKind) error

	Close() error
}

// SettingsStore is a small key/value store for engine configuration state.
type SettingsStore interface {
	// Get returns the value for key, or an error satisfying
	// errors.IsNotFound when the key has never been set.
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string) error

	Close() error
}

// VectorIndex is an approximate/exact nearest-neighbor index over entry
// embeddings, used for related-entry lookups. It mirrors the entries'
// embedding column; the store keeps the two in sync on write and delete.
type VectorIndex interface {
	Upsert(ctx context.Context, entryID string, embedding []float32) error
	// Nearest returns up to k entries closest to the query vector,
	// nearest first.
	Nearest(ctx context.Context, query []float32, k int) ([]Neighbor, error)
	Delete(ctx context.Context, entryIDs ...string) error

	Close() error
}
