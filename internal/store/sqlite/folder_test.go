// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Murmur Contributors

package sqlite_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/murmur-dev/murmur/internal/store"
	"github.com/murmur-dev/murmur/internal/store/sqlite"
	murmurerr "github.com/murmur-dev/murmur/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFolderStore_CRUD(t *testing.T) {
	ctx := context.Background()
	fs, err := sqlite.NewFolderStore(testDBPath(t, "folders"))
	require.NoError(t, err)

	folder := &store.Folder{
		ID:           "fld-1",
		Kind:         store.FolderKindCluster,
		Name:         "Work Stress",
		ClusterIndex: 2,
		MemberIDs:    []string{"ent-1", "ent-2"},
		CreatedAt:    time.Now(),
	}
	require.NoError(t, fs.Create(ctx, folder))

	got, err := fs.Get(ctx, "fld-1")
	require.NoError(t, err)
	assert.Equal(t, store.FolderKindCluster, got.Kind)
	assert.Equal(t, "Work Stress", got.Name)
	assert.Equal(t, 2, got.ClusterIndex)
	assert.Equal(t, []string{"ent-1", "ent-2"}, got.MemberIDs)
	assert.Nil(t, got.Rule)

	require.NoError(t, fs.Rename(ctx, "fld-1", "Career"))
	got, err = fs.Get(ctx, "fld-1")
	require.NoError(t, err)
	assert.Equal(t, "Career", got.Name)

	require.NoError(t, fs.Delete(ctx, "fld-1"))
	_, err = fs.Get(ctx, "fld-1")
	assert.True(t, murmurerr.IsNotFound(err))
}

func TestFolderStore_RuleRoundTrip(t *testing.T) {
	ctx := context.Background()
	fs, err := sqlite.NewFolderStore(testDBPath(t, "rules"))
	require.NoError(t, err)

	after := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	folder := &store.Folder{
		ID:   "fld-rule",
		Kind: store.FolderKindRule,
		Name: "January gratitude",
		Rule: &store.Rule{
			After:    after,
			Mode:     "gratitude",
			Contains: "thankful",
			Topics:   []string{"family"},
		},
		CreatedAt: time.Now(),
	}
	require.NoError(t, fs.Create(ctx, folder))

	got, err := fs.Get(ctx, "fld-rule")
	require.NoError(t, err)
	require.NotNil(t, got.Rule)
	assert.True(t, got.Rule.After.Equal(after))
	assert.True(t, got.Rule.Before.IsZero())
	assert.Equal(t, "gratitude", got.Rule.Mode)
	assert.Equal(t, "thankful", got.Rule.Contains)
	assert.Equal(t, []string{"family"}, got.Rule.Topics)
}

func TestFolderStore_ListAndDeleteKind(t *testing.T) {
	ctx := context.Background()
	fs, err := sqlite.NewFolderStore(testDBPath(t, "kinds"))
	require.NoError(t, err)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, fs.Create(ctx, &store.Folder{
			ID:           fmt.Sprintf("cluster-%d", i),
			Kind:         store.FolderKindCluster,
			Name:         fmt.Sprintf("Topic %d", i),
			ClusterIndex: i,
			CreatedAt:    base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, fs.Create(ctx, &store.Folder{
		ID:        "manual-1",
		Kind:      store.FolderKindManual,
		Name:      "Favorites",
		CreatedAt: base,
	}))

	clusters, err := fs.List(ctx, store.FolderKindCluster)
	require.NoError(t, err)
	require.Len(t, clusters, 3)
	assert.Equal(t, "cluster-0", clusters[0].ID)

	all, err := fs.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 4)

	// DeleteKind removes only the cluster folders.
	require.NoError(t, fs.DeleteKind(ctx, store.FolderKindCluster))
	remaining, err := fs.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "manual-1", remaining[0].ID)
}

func TestFolderStore_CreateRequiresIDAndKind(t *testing.T) {
	ctx := context.Background()
	fs, err := sqlite.NewFolderStore(testDBPath(t, "invalid"))
	require.NoError(t, err)

	err = fs.Create(ctx, &store.Folder{Name: "No ID"})
	assert.True(t, murmurerr.IsInvalidInput(err))
}
