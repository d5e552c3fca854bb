// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Murmur Contributors

package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"

	"github.com/murmur-dev/murmur/internal/store"
	murmurerr "github.com/murmur-dev/murmur/pkg/errors"
)

// Compile-time interface check.
var _ store.VectorIndex = (*VectorIndex)(nil)

// VectorIndex implements store.VectorIndex backed by a sqlite-vec vec0
// virtual table with cosine distance. It holds one row per embedded entry,
// mirroring the entries table's embedding column.
type VectorIndex struct {
	db         *sql.DB
	dimensions int
}

// NewVectorIndex opens (or creates) a SQLite database at dbPath and
// initialises the vec0 virtual table.
func NewVectorIndex(dbPath string, dimensions int) (*VectorIndex, error) {
	db, err := openDB(dbPath)
	if err != nil {
		return nil, err
	}

	if err := migrateVectors(db, dimensions); err != nil {
		_ = db.Close()
		return nil, murmurerr.Errorf(murmurerr.CodeStoreDatabaseFailure, "migrating vector index: %w", err)
	}

	return &VectorIndex{db: db, dimensions: dimensions}, nil
}

func migrateVectors(db *sql.DB, dimensions int) error {
	ddl := fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS entry_vectors USING vec0(entry_id TEXT PRIMARY KEY, embedding float[%d] distance_metric=cosine)`,
		dimensions,
	)
	_, err := db.Exec(ddl)
	return err
}

// Upsert inserts or replaces the vector for an entry.
func (v *VectorIndex) Upsert(ctx context.Context, entryID string, embedding []float32) error {
	blob, err := sqlite_vec.SerializeFloat32(embedding)
	if err != nil {
		return murmurerr.Errorf(murmurerr.CodeStoreDatabaseFailure, "serializing embedding: %w", err)
	}

	tx, err := v.db.BeginTx(ctx, nil)
	if err != nil {
		return murmurerr.Errorf(murmurerr.CodeStoreDatabaseFailure, "beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// vec0 does not support ON CONFLICT; delete first for upsert.
	if _, err := tx.ExecContext(ctx, `DELETE FROM entry_vectors WHERE entry_id = ?`, entryID); err != nil {
		return murmurerr.Errorf(murmurerr.CodeStoreDatabaseFailure, "deleting existing vector %s: %w", entryID, err)
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO entry_vectors(entry_id, embedding) VALUES (?, ?)`, entryID, blob); err != nil {
		return murmurerr.Errorf(murmurerr.CodeStoreDatabaseFailure, "inserting vector %s: %w", entryID, err)
	}

	if err := tx.Commit(); err != nil {
		return murmurerr.Errorf(murmurerr.CodeStoreDatabaseFailure, "committing vector upsert: %w", err)
	}
	return nil
}

// Nearest performs a k-nearest-neighbor search over the index.
// Distance is cosine distance: lower = more similar, 0.0 = identical direction.
func (v *VectorIndex) Nearest(ctx context.Context, query []float32, k int) ([]store.Neighbor, error) {
	if k <= 0 {
		return nil, nil
	}
	blob, err := sqlite_vec.SerializeFloat32(query)
	if err != nil {
		return nil, murmurerr.Errorf(murmurerr.CodeStoreDatabaseFailure, "serializing query vector: %w", err)
	}

	const q = `SELECT entry_id, distance FROM entry_vectors
WHERE embedding MATCH ? AND k = ?
ORDER BY distance`

	rows, err := v.db.QueryContext(ctx, q, blob, k)
	if err != nil {
		return nil, murmurerr.Errorf(murmurerr.CodeStoreDatabaseFailure, "searching vectors: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var neighbors []store.Neighbor
	for rows.Next() {
		var n store.Neighbor
		if err := rows.Scan(&n.EntryID, &n.Distance); err != nil {
			return nil, murmurerr.Errorf(murmurerr.CodeStoreDatabaseFailure, "scanning vector result: %w", err)
		}
		neighbors = append(neighbors, n)
	}
	if err := rows.Err(); err != nil {
		return nil, murmurerr.Errorf(murmurerr.CodeStoreDatabaseFailure, "iterating vector results: %w", err)
	}

	return neighbors, nil
}

// Delete removes vectors by entry ID.
func (v *VectorIndex) Delete(ctx context.Context, entryIDs ...string) error {
	if len(entryIDs) == 0 {
		return nil
	}

	placeholders := strings.Repeat("?,", len(entryIDs))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]any, len(entryIDs))
	for i, id := range entryIDs {
		args[i] = id
	}

	if _, err := v.db.ExecContext(ctx, `DELETE FROM entry_vectors WHERE entry_id IN (`+placeholders+`)`, args...); err != nil {
		return murmurerr.Errorf(murmurerr.CodeStoreDatabaseFailure, "deleting vectors: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (v *VectorIndex) Close() error {
	return v.db.Close()
}
