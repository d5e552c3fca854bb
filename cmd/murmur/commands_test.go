// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Murmur Contributors

package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_AllSubcommands(t *testing.T) {
	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetArgs([]string{"--help"})

	err := root.Execute()
	require.NoError(t, err)

	output := buf.String()
	for _, cmd := range []string{"start", "add", "search", "folders", "recluster", "backfill", "status", "version"} {
		assert.Contains(t, output, cmd, "root help should list %q subcommand", cmd)
	}
}

func TestVersionCommand(t *testing.T) {
	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetArgs([]string{"version"})

	err := root.Execute()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "murmur dev")
}

func TestFoldersCommand_Help(t *testing.T) {
	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetArgs([]string{"folders", "--help"})

	err := root.Execute()
	require.NoError(t, err)
	for _, sub := range []string{"list", "entries", "rename", "delete", "export", "import"} {
		assert.Contains(t, buf.String(), sub)
	}
}

// serverAddr runs an httptest server and returns its host:port for --address.
func serverAddr(t *testing.T, mux *http.ServeMux) string {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return strings.TrimPrefix(srv.URL, "http://")
}

func TestStatusCommand(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/status", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"entries":         12,
			"embedded":        9,
			"cluster_folders": 3,
			"last_clustered":  "2026-08-30T10:00:00Z",
		})
	})
	addr := serverAddr(t, mux)

	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetArgs([]string{"status", "--address", addr})

	err := root.Execute()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "entries: 12 (9 embedded)")
	assert.Contains(t, buf.String(), "topic folders: 3")
	assert.Contains(t, buf.String(), "2026-08-30T10:00:00Z")
}

func TestStatusCommand_ServerNotRunning(t *testing.T) {
	// A reserved-then-closed port: nothing is listening on it.
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	addr := strings.TrimPrefix(srv.URL, "http://")
	srv.Close()

	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetArgs([]string{"status", "--address", addr})

	err := root.Execute()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "not running")
}

func TestAddCommand(t *testing.T) {
	var received map[string]string
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/entries", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "e-1", "name": "Morning pages"})
	})
	addr := serverAddr(t, mux)

	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetArgs([]string{"add", "Slept badly, long day ahead.", "--address", addr, "--mode", "freeform"})

	err := root.Execute()
	require.NoError(t, err)
	assert.Equal(t, "Slept badly, long day ahead.", received["transcript"])
	assert.Equal(t, "freeform", received["mode"])
	assert.Contains(t, buf.String(), "e-1")
}

func TestAddCommand_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "note.txt")
	require.NoError(t, os.WriteFile(path, []byte("Dreamed about the ocean."), 0o600))

	var received map[string]string
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/entries", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "e-2", "name": "note"})
	})
	addr := serverAddr(t, mux)

	root := NewRootCmd()
	root.SetOut(new(bytes.Buffer))
	root.SetArgs([]string{"add", "--file", path, "--address", addr})

	require.NoError(t, root.Execute())
	assert.Equal(t, "Dreamed about the ocean.", received["transcript"])
}

func TestAddCommand_NoTranscript(t *testing.T) {
	root := NewRootCmd()
	root.SetOut(new(bytes.Buffer))
	root.SetErr(new(bytes.Buffer))
	root.SetArgs([]string{"add"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no transcript")
}

func TestSearchCommand(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/search", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "garden", r.URL.Query().Get("q"))
		assert.Equal(t, "keyword", r.URL.Query().Get("mode"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{
					"entry": map[string]any{"id": "e-1", "name": "Garden day", "transcript": "Planted tomatoes in the garden."},
					"score": 1.0,
				},
			},
		})
	})
	addr := serverAddr(t, mux)

	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetArgs([]string{"search", "garden", "--mode", "keyword", "--address", addr})

	err := root.Execute()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "1.00")
	assert.Contains(t, buf.String(), "Garden day")
}

func TestReclusterCommand_InFlight(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/recluster", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/problem+json")
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(map[string]any{"detail": "clustering already running"})
	})
	addr := serverAddr(t, mux)

	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetArgs([]string{"recluster", "--address", addr})

	err := root.Execute()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "already in progress")
}

func TestFoldersExport_EmptyJournal(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "murmur.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("storage:\n  backend: memory\n"), 0o600))

	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(new(bytes.Buffer))
	root.SetArgs([]string{"folders", "export", "--config", cfgPath})

	err := root.Execute()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "folders")
}
