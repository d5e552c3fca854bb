// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Murmur Contributors

package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/murmur-dev/murmur/internal/store"
	murmurerr "github.com/murmur-dev/murmur/pkg/errors"
)

// Compile-time interface check.
var _ store.FolderStore = (*FolderStore)(nil)

// FolderStore implements store.FolderStore backed by SQLite. The three
// folder kinds share one table; kind-specific payloads live in nullable
// columns (cluster_index for cluster folders, rule/member JSON for the rest).
type FolderStore struct {
	db     *sql.DB
	ownsDB bool
}

// NewFolderStore opens (or creates) a SQLite database at dbPath and
// initialises the folders table.
func NewFolderStore(dbPath string) (*FolderStore, error) {
	db, err := openDB(dbPath)
	if err != nil {
		return nil, err
	}
	fs, err := NewFolderStoreWithDB(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	fs.ownsDB = true
	return fs, nil
}

// NewFolderStoreWithDB initialises the folders table on an existing
// connection. The caller retains ownership of db.
func NewFolderStoreWithDB(db *sql.DB) (*FolderStore, error) {
	if err := migrateFolders(db); err != nil {
		return nil, murmurerr.Errorf(murmurerr.CodeStoreDatabaseFailure, "migrating folders table: %w", err)
	}
	return &FolderStore{db: db}, nil
}

func migrateFolders(db *sql.DB) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS folders (
	id            TEXT PRIMARY KEY,
	kind          TEXT NOT NULL,
	name          TEXT NOT NULL DEFAULT '',
	cluster_index INTEGER,
	rule          TEXT,
	member_ids    TEXT,
	created_at    TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_folders_kind ON folders(kind);
`
	_, err := db.Exec(ddl)
	return err
}

// Close closes the underlying database connection if this store owns it.
func (s *FolderStore) Close() error {
	if !s.ownsDB {
		return nil
	}
	return s.db.Close()
}

func (s *FolderStore) Create(ctx context.Context, folder *store.Folder) error {
	if folder.ID == "" || folder.Kind == "" {
		return murmurerr.Wrap(store.ErrInvalidInput, murmurerr.CodeStoreInvalidInput, "folder id and kind are required")
	}

	var ruleJSON, membersJSON any
	if folder.Rule != nil {
		raw, err := json.Marshal(folder.Rule)
		if err != nil {
			return murmurerr.Errorf(murmurerr.CodeStoreDatabaseFailure, "marshalling folder rule: %w", err)
		}
		ruleJSON = string(raw)
	}
	if folder.MemberIDs != nil {
		raw, err := json.Marshal(folder.MemberIDs)
		if err != nil {
			return murmurerr.Errorf(murmurerr.CodeStoreDatabaseFailure, "marshalling folder members: %w", err)
		}
		membersJSON = string(raw)
	}

	var clusterIndex any
	if folder.Kind == store.FolderKindCluster {
		clusterIndex = folder.ClusterIndex
	}

	const q = `INSERT INTO folders (id, kind, name, cluster_index, rule, member_ids, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, q,
		folder.ID,
		string(folder.Kind),
		folder.Name,
		clusterIndex,
		ruleJSON,
		membersJSON,
		formatTime(folder.CreatedAt),
	)
	if err != nil {
		return murmurerr.Wrapf(err, murmurerr.CodeStoreDatabaseFailure, "creating folder %s", folder.ID)
	}
	return nil
}

const folderColumns = `id, kind, name, cluster_index, rule, member_ids, created_at`

func (s *FolderStore) Get(ctx context.Context, id string) (*store.Folder, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+folderColumns+` FROM folders WHERE id = ?`, id)

	folder, err := scanFolder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, murmurerr.New(murmurerr.CodeStoreFolderNotFound, "folder not found", murmurerr.FieldFolderID(id))
	}
	if err != nil {
		return nil, murmurerr.Wrapf(err, murmurerr.CodeStoreDatabaseFailure, "getting folder %s", id)
	}
	return folder, nil
}

func (s *FolderStore) Rename(ctx context.Context, id string, name string) error {
	result, err := s.db.ExecContext(ctx, `UPDATE folders SET name = ? WHERE id = ?`, name, id)
	if err != nil {
		return murmurerr.Wrapf(err, murmurerr.CodeStoreDatabaseFailure, "renaming folder %s", id)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return murmurerr.Wrapf(err, murmurerr.CodeStoreDatabaseFailure, "checking rows affected for folder %s", id)
	}
	if rows == 0 {
		return murmurerr.New(murmurerr.CodeStoreFolderNotFound, "folder not found", murmurerr.FieldFolderID(id))
	}
	return nil
}

func (s *FolderStore) List(ctx context.Context, kind store.FolderKind) ([]*store.Folder, error) {
	q := `SELECT ` + folderColumns + ` FROM folders`
	var args []any
	if kind != "" {
		q += ` WHERE kind = ?`
		args = append(args, string(kind))
	}
	q += ` ORDER BY created_at ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, murmurerr.Errorf(murmurerr.CodeStoreDatabaseFailure, "listing folders: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var folders []*store.Folder
	for rows.Next() {
		folder, err := scanFolder(rows)
		if err != nil {
			return nil, murmurerr.Errorf(murmurerr.CodeStoreDatabaseFailure, "scanning folder row: %w", err)
		}
		folders = append(folders, folder)
	}
	if err := rows.Err(); err != nil {
		return nil, murmurerr.Errorf(murmurerr.CodeStoreDatabaseFailure, "iterating folders: %w", err)
	}
	return folders, nil
}

func (s *FolderStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM folders WHERE id = ?`, id)
	if err != nil {
		return murmurerr.Wrapf(err, murmurerr.CodeStoreDatabaseFailure, "deleting folder %s", id)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return murmurerr.Wrapf(err, murmurerr.CodeStoreDatabaseFailure, "checking rows affected for folder %s", id)
	}
	if rows == 0 {
		return murmurerr.New(murmurerr.CodeStoreFolderNotFound, "folder not found", murmurerr.FieldFolderID(id))
	}
	return nil
}

func (s *FolderStore) DeleteKind(ctx context.Context, kind store.FolderKind) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM folders WHERE kind = ?`, string(kind)); err != nil {
		return murmurerr.Errorf(murmurerr.CodeStoreDatabaseFailure, "deleting %s folders: %w", kind, err)
	}
	return nil
}

func scanFolder(row scanner) (*store.Folder, error) {
	var folder store.Folder
	var kind, createdAt string
	var clusterIndex sql.NullInt64
	var ruleJSON, membersJSON sql.NullString

	if err := row.Scan(
		&folder.ID,
		&kind,
		&folder.Name,
		&clusterIndex,
		&ruleJSON,
		&membersJSON,
		&createdAt,
	); err != nil {
		return nil, err
	}

	folder.Kind = store.FolderKind(kind)
	if clusterIndex.Valid {
		folder.ClusterIndex = int(clusterIndex.Int64)
	}
	if ruleJSON.Valid && ruleJSON.String != "" {
		var rule store.Rule
		if err := json.Unmarshal([]byte(ruleJSON.String), &rule); err != nil {
			return nil, err
		}
		folder.Rule = &rule
	}
	if membersJSON.Valid && membersJSON.String != "" {
		if err := json.Unmarshal([]byte(membersJSON.String), &folder.MemberIDs); err != nil {
			return nil, err
		}
	}
	folder.CreatedAt = parseTime(createdAt)

	return &folder, nil
}
