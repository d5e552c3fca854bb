// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Murmur Contributors

package anthropic_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/murmur-dev/murmur/internal/provider/anthropic"
	murmurerr "github.com/murmur-dev/murmur/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_MissingAPIKey(t *testing.T) {
	_, err := anthropic.New(anthropic.Config{})
	require.Error(t, err)
	assert.True(t, murmurerr.HasCode(err, murmurerr.CodeProviderRequestInvalid))
}

// mockServer serves canned Messages API responses.
func mockServer(t *testing.T, text string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		resp := map[string]any{
			"id":    "msg_test",
			"type":  "message",
			"role":  "assistant",
			"model": "claude-haiku-4-5",
			"content": []map[string]any{
				{"type": "text", "text": text},
			},
			"stop_reason": "end_turn",
			"usage":       map[string]any{"input_tokens": 10, "output_tokens": 5},
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_ExtractTopics(t *testing.T) {
	srv := mockServer(t, `["family", "travel"]`)
	client, err := anthropic.New(anthropic.Config{APIKey: "test-key", BaseURL: srv.URL})
	require.NoError(t, err)

	topics, err := client.ExtractTopics(context.Background(), "visited my parents by train")
	require.NoError(t, err)
	assert.Equal(t, []string{"family", "travel"}, topics)
}

func TestClient_LabelCluster(t *testing.T) {
	srv := mockServer(t, "Family Visits")
	client, err := anthropic.New(anthropic.Config{APIKey: "test-key", BaseURL: srv.URL})
	require.NoError(t, err)

	label, err := client.LabelCluster(context.Background(), []string{"saw mom", "dad's birthday"})
	require.NoError(t, err)
	assert.Equal(t, "Family Visits", label)
}

func TestClient_Summarize(t *testing.T) {
	srv := mockServer(t, "Spent the weekend with family.")
	client, err := anthropic.New(anthropic.Config{APIKey: "test-key", BaseURL: srv.URL})
	require.NoError(t, err)

	summary, err := client.Summarize(context.Background(), "long rambling weekend recap")
	require.NoError(t, err)
	assert.Equal(t, "Spent the weekend with family.", summary)
}

func TestClient_UnauthorizedMapsToCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"type": "error", "error": {"type": "authentication_error", "message": "bad key"}}`))
	}))
	t.Cleanup(srv.Close)

	client, err := anthropic.New(anthropic.Config{APIKey: "bad-key", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = client.Summarize(context.Background(), "text")
	require.Error(t, err)
	assert.True(t, murmurerr.IsUnauthorized(err))
}
