// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Murmur Contributors

// Package sqlite implements the store interfaces on SQLite, with sqlite-vec
// providing the nearest-neighbor index and the embedding blob encoding.
package sqlite

import (
	"database/sql"
	"encoding/binary"
	"math"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	murmurerr "github.com/murmur-dev/murmur/pkg/errors"
)

func init() {
	sqlite_vec.Auto()
}

// openDB opens (or creates) a SQLite database at dbPath with the journal
// settings every store shares.
func openDB(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, murmurerr.Errorf(murmurerr.CodeStoreDatabaseFailure, "opening sqlite db: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, murmurerr.Errorf(murmurerr.CodeStoreDatabaseFailure, "pinging sqlite db: %w", err)
	}

	return db, nil
}

// encodeVector serialises an embedding into the sqlite-vec float32 blob
// format. A nil or empty embedding encodes as NULL.
func encodeVector(embedding []float32) (any, error) {
	if len(embedding) == 0 {
		return nil, nil
	}
	blob, err := sqlite_vec.SerializeFloat32(embedding)
	if err != nil {
		return nil, murmurerr.Errorf(murmurerr.CodeStoreDatabaseFailure, "serializing embedding: %w", err)
	}
	return blob, nil
}

// decodeVector deserialises a sqlite-vec float32 blob back into a vector.
// The blob is a packed little-endian float32 array.
func decodeVector(blob []byte) []float32 {
	if len(blob) == 0 || len(blob)%4 != 0 {
		return nil
	}
	out := make([]float32, len(blob)/4)
	for i := range out {
		bits := binary.LittleEndian.Uint32(blob[i*4:])
		out[i] = math.Float32frombits(bits)
	}
	return out
}

// formatTime serialises a time.Time to RFC3339 with nanosecond precision.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime deserialises a time string stored in the database.
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}
