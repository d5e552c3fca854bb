// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Murmur Contributors

package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/murmur-dev/murmur/internal/store"
	murmurerr "github.com/murmur-dev/murmur/pkg/errors"
)

// Compile-time interface check.
var _ store.SettingsStore = (*SettingsStore)(nil)

// SettingsStore implements store.SettingsStore backed by SQLite.
type SettingsStore struct {
	db     *sql.DB
	ownsDB bool
}

// NewSettingsStore opens (or creates) a SQLite database at dbPath and
// initialises the settings table.
func NewSettingsStore(dbPath string) (*SettingsStore, error) {
	db, err := openDB(dbPath)
	if err != nil {
		return nil, err
	}
	ss, err := NewSettingsStoreWithDB(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	ss.ownsDB = true
	return ss, nil
}

// NewSettingsStoreWithDB initialises the settings table on an existing
// connection. The caller retains ownership of db.
func NewSettingsStoreWithDB(db *sql.DB) (*SettingsStore, error) {
	const ddl = `
CREATE TABLE IF NOT EXISTS settings (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
)`
	if _, err := db.Exec(ddl); err != nil {
		return nil, murmurerr.Errorf(murmurerr.CodeStoreDatabaseFailure, "migrating settings table: %w", err)
	}
	return &SettingsStore{db: db}, nil
}

// Close closes the underlying database connection if this store owns it.
func (s *SettingsStore) Close() error {
	if !s.ownsDB {
		return nil
	}
	return s.db.Close()
}

func (s *SettingsStore) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", murmurerr.New(murmurerr.CodeStoreSettingNotFound, "setting not found", murmurerr.Field("key", key))
	}
	if err != nil {
		return "", murmurerr.Errorf(murmurerr.CodeStoreDatabaseFailure, "getting setting %s: %w", key, err)
	}
	return value, nil
}

func (s *SettingsStore) Set(ctx context.Context, key string, value string) error {
	const q = `INSERT INTO settings (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value`

	if _, err := s.db.ExecContext(ctx, q, key, value); err != nil {
		return murmurerr.Errorf(murmurerr.CodeStoreDatabaseFailure, "setting %s: %w", key, err)
	}
	return nil
}
