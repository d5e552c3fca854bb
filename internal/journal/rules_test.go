// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Murmur Contributors

package journal_test

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/murmur-dev/murmur/internal/store"
	murmurerr "github.com/murmur-dev/murmur/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuleFolders_ExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	stores := store.NewMemoryStores()
	defer stores.Close()

	svc := newService(stores, nil)

	_, err := svc.CreateRuleFolder(ctx, "Dreams", store.Rule{Mode: "dream"})
	require.NoError(t, err)
	_, err = svc.CreateRuleFolder(ctx, "2026 gratitude", store.Rule{
		After:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Mode:   "gratitude",
		Topics: []string{"family", "health"},
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, svc.ExportRuleFolders(ctx, &buf))
	assert.Contains(t, buf.String(), "Dreams")
	assert.Contains(t, buf.String(), "gratitude")

	// Import into a fresh store.
	fresh := store.NewMemoryStores()
	defer fresh.Close()
	target := newService(fresh, nil)

	created, err := target.ImportRuleFolders(ctx, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	folders, err := target.ListFolders(ctx, store.FolderKindRule)
	require.NoError(t, err)
	require.Len(t, folders, 2)

	byName := map[string]*store.Folder{}
	for _, f := range folders {
		byName[f.Name] = f
	}
	require.Contains(t, byName, "2026 gratitude")
	rule := byName["2026 gratitude"].Rule
	require.NotNil(t, rule)
	assert.Equal(t, "gratitude", rule.Mode)
	assert.Equal(t, []string{"family", "health"}, rule.Topics)
	assert.True(t, rule.After.Equal(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestRuleFolders_ImportRejectsInvalidRule(t *testing.T) {
	ctx := context.Background()
	stores := store.NewMemoryStores()
	defer stores.Close()

	svc := newService(stores, nil)

	const doc = `folders:
  - name: Broken
    rule: {}
  - name: Fine
    rule:
      mode: dream
`
	created, err := svc.ImportRuleFolders(ctx, strings.NewReader(doc))
	require.Error(t, err)
	assert.True(t, murmurerr.HasCode(err, murmurerr.CodeJournalRuleInvalid))
	assert.Zero(t, created, "a bad document imports nothing")

	folders, err := svc.ListFolders(ctx, store.FolderKindRule)
	require.NoError(t, err)
	assert.Empty(t, folders)
}

func TestRuleFolders_ImportRejectsMissingName(t *testing.T) {
	stores := store.NewMemoryStores()
	defer stores.Close()

	svc := newService(stores, nil)
	const doc = `folders:
  - rule:
      mode: dream
`
	_, err := svc.ImportRuleFolders(context.Background(), strings.NewReader(doc))
	assert.Error(t, err)
}
