// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Murmur Contributors

package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/murmur-dev/murmur/internal/store"
	murmurerr "github.com/murmur-dev/murmur/pkg/errors"
)

// Compile-time interface check.
var _ store.EntryStore = (*EntryStore)(nil)

// EntryStore implements store.EntryStore backed by SQLite.
type EntryStore struct {
	db *sql.DB
	// ownsDB is true when this store opened the connection itself and
	// should close it.
	ownsDB bool
}

// NewEntryStore opens (or creates) a SQLite database at dbPath and
// initialises the entries table.
func NewEntryStore(dbPath string) (*EntryStore, error) {
	db, err := openDB(dbPath)
	if err != nil {
		return nil, err
	}
	es, err := NewEntryStoreWithDB(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	es.ownsDB = true
	return es, nil
}

// NewEntryStoreWithDB initialises the entries table on an existing
// connection. The caller retains ownership of db.
func NewEntryStoreWithDB(db *sql.DB) (*EntryStore, error) {
	if err := migrateEntries(db); err != nil {
		return nil, murmurerr.Errorf(murmurerr.CodeStoreDatabaseFailure, "migrating entries table: %w", err)
	}
	return &EntryStore{db: db}, nil
}

func migrateEntries(db *sql.DB) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS entries (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL DEFAULT '',
	transcript TEXT NOT NULL DEFAULT '',
	summary    TEXT NOT NULL DEFAULT '',
	mode       TEXT NOT NULL DEFAULT '',
	topics     TEXT NOT NULL DEFAULT '[]',
	embedding  BLOB,
	cluster_id INTEGER,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_entries_created ON entries(created_at);
CREATE INDEX IF NOT EXISTS idx_entries_cluster ON entries(cluster_id);
`
	_, err := db.Exec(ddl)
	return err
}

// Close closes the underlying database connection if this store owns it.
func (s *EntryStore) Close() error {
	if !s.ownsDB {
		return nil
	}
	return s.db.Close()
}

func (s *EntryStore) Create(ctx context.Context, entry *store.Entry) error {
	if entry.ID == "" {
		return murmurerr.Wrap(store.ErrInvalidInput, murmurerr.CodeStoreInvalidInput, "entry id is required")
	}

	topics, err := json.Marshal(topicsOrEmpty(entry.Topics))
	if err != nil {
		return murmurerr.Errorf(murmurerr.CodeStoreDatabaseFailure, "marshalling topics: %w", err)
	}
	blob, err := encodeVector(entry.Embedding)
	if err != nil {
		return err
	}

	const q = `INSERT INTO entries (id, name, transcript, summary, mode, topics, embedding, cluster_id, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = s.db.ExecContext(ctx, q,
		entry.ID,
		entry.Name,
		entry.Transcript,
		entry.Summary,
		entry.Mode,
		string(topics),
		blob,
		nullableInt(entry.ClusterID),
		formatTime(entry.CreatedAt),
		formatTime(entry.UpdatedAt),
	)
	if err != nil {
		return murmurerr.Wrapf(err, murmurerr.CodeStoreDatabaseFailure, "creating entry %s", entry.ID)
	}
	return nil
}

const entryColumns = `id, name, transcript, summary, mode, topics, embedding, cluster_id, created_at, updated_at`

func (s *EntryStore) Get(ctx context.Context, id string) (*store.Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM entries WHERE id = ?`, id)

	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, murmurerr.New(murmurerr.CodeStoreEntryNotFound, "entry not found", murmurerr.FieldEntryID(id))
	}
	if err != nil {
		return nil, murmurerr.Wrapf(err, murmurerr.CodeStoreDatabaseFailure, "getting entry %s", id)
	}
	return entry, nil
}

func (s *EntryStore) Update(ctx context.Context, entry *store.Entry) error {
	topics, err := json.Marshal(topicsOrEmpty(entry.Topics))
	if err != nil {
		return murmurerr.Errorf(murmurerr.CodeStoreDatabaseFailure, "marshalling topics: %w", err)
	}
	blob, err := encodeVector(entry.Embedding)
	if err != nil {
		return err
	}

	const q = `UPDATE entries SET name = ?, transcript = ?, summary = ?, mode = ?, topics = ?,
embedding = ?, cluster_id = ?, updated_at = ? WHERE id = ?`

	result, err := s.db.ExecContext(ctx, q,
		entry.Name,
		entry.Transcript,
		entry.Summary,
		entry.Mode,
		string(topics),
		blob,
		nullableInt(entry.ClusterID),
		formatTime(time.Now()),
		entry.ID,
	)
	if err != nil {
		return murmurerr.Wrapf(err, murmurerr.CodeStoreDatabaseFailure, "updating entry %s", entry.ID)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return murmurerr.Wrapf(err, murmurerr.CodeStoreDatabaseFailure, "checking rows affected for entry %s", entry.ID)
	}
	if rows == 0 {
		return murmurerr.New(murmurerr.CodeStoreEntryNotFound, "entry not found", murmurerr.FieldEntryID(entry.ID))
	}
	return nil
}

func (s *EntryStore) List(ctx context.Context, filter store.EntryFilter) ([]*store.Entry, error) {
	q := `SELECT ` + entryColumns + ` FROM entries`
	var where []string
	var args []any

	if filter.EmbeddedOnly {
		where = append(where, `embedding IS NOT NULL`)
	}
	if !filter.CreatedAfter.IsZero() {
		where = append(where, `created_at > ?`)
		args = append(args, formatTime(filter.CreatedAfter))
	}
	if filter.ClusterID != nil {
		where = append(where, `cluster_id = ?`)
		args = append(args, *filter.ClusterID)
	}
	for i, cond := range where {
		if i == 0 {
			q += ` WHERE ` + cond
		} else {
			q += ` AND ` + cond
		}
	}
	q += ` ORDER BY created_at ASC, id ASC`
	if filter.Limit > 0 {
		q += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, murmurerr.Errorf(murmurerr.CodeStoreDatabaseFailure, "listing entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []*store.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, murmurerr.Errorf(murmurerr.CodeStoreDatabaseFailure, "scanning entry row: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, murmurerr.Errorf(murmurerr.CodeStoreDatabaseFailure, "iterating entries: %w", err)
	}
	return entries, nil
}

func (s *EntryStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE id = ?`, id)
	if err != nil {
		return murmurerr.Wrapf(err, murmurerr.CodeStoreDatabaseFailure, "deleting entry %s", id)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return murmurerr.Wrapf(err, murmurerr.CodeStoreDatabaseFailure, "checking rows affected for entry %s", id)
	}
	if rows == 0 {
		return murmurerr.New(murmurerr.CodeStoreEntryNotFound, "entry not found", murmurerr.FieldEntryID(id))
	}
	return nil
}

func (s *EntryStore) CountEmbedded(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries WHERE embedding IS NOT NULL`).Scan(&n)
	if err != nil {
		return 0, murmurerr.Errorf(murmurerr.CodeStoreDatabaseFailure, "counting embedded entries: %w", err)
	}
	return n, nil
}

func (s *EntryStore) CountCreatedAfter(ctx context.Context, t time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries WHERE created_at > ?`, formatTime(t)).Scan(&n)
	if err != nil {
		return 0, murmurerr.Errorf(murmurerr.CodeStoreDatabaseFailure, "counting entries created after %s: %w", formatTime(t), err)
	}
	return n, nil
}

func (s *EntryStore) SetClusterAssignments(ctx context.Context, assignments map[string]int) error {
	if len(assignments) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return murmurerr.Errorf(murmurerr.CodeStoreDatabaseFailure, "beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `UPDATE entries SET cluster_id = ? WHERE id = ?`)
	if err != nil {
		return murmurerr.Errorf(murmurerr.CodeStoreDatabaseFailure, "preparing cluster assignment update: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for id, cluster := range assignments {
		if _, err := stmt.ExecContext(ctx, cluster, id); err != nil {
			return murmurerr.Wrapf(err, murmurerr.CodeStoreDatabaseFailure, "assigning entry %s to cluster %d", id, cluster)
		}
	}

	if err := tx.Commit(); err != nil {
		return murmurerr.Errorf(murmurerr.CodeStoreDatabaseFailure, "committing cluster assignments: %w", err)
	}
	return nil
}

// scanner abstracts *sql.Row and *sql.Rows for scanEntry.
type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (*store.Entry, error) {
	var entry store.Entry
	var topicsJSON, createdAt, updatedAt string
	var blob []byte
	var clusterID sql.NullInt64

	if err := row.Scan(
		&entry.ID,
		&entry.Name,
		&entry.Transcript,
		&entry.Summary,
		&entry.Mode,
		&topicsJSON,
		&blob,
		&clusterID,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}

	if topicsJSON != "" && topicsJSON != "[]" {
		if err := json.Unmarshal([]byte(topicsJSON), &entry.Topics); err != nil {
			return nil, err
		}
	}
	entry.Embedding = decodeVector(blob)
	if clusterID.Valid {
		c := int(clusterID.Int64)
		entry.ClusterID = &c
	}
	entry.CreatedAt = parseTime(createdAt)
	entry.UpdatedAt = parseTime(updatedAt)

	return &entry, nil
}

func topicsOrEmpty(topics []string) []string {
	if topics == nil {
		return []string{}
	}
	return topics
}

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}
