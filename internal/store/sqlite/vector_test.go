// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Murmur Contributors

package sqlite_test

import (
	"context"
	"testing"

	"github.com/murmur-dev/murmur/internal/store/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectorIndex_UpsertAndNearest(t *testing.T) {
	ctx := context.Background()
	vi, err := sqlite.NewVectorIndex(testDBPath(t, "vectors"), 3)
	require.NoError(t, err)
	defer vi.Close()

	require.NoError(t, vi.Upsert(ctx, "ent-x", []float32{1, 0, 0}))
	require.NoError(t, vi.Upsert(ctx, "ent-y", []float32{0, 1, 0}))
	require.NoError(t, vi.Upsert(ctx, "ent-xy", []float32{1, 1, 0}))

	neighbors, err := vi.Nearest(ctx, []float32{1, 0.1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, neighbors, 2)
	assert.Equal(t, "ent-x", neighbors[0].EntryID)
	assert.Equal(t, "ent-xy", neighbors[1].EntryID)
	assert.Less(t, neighbors[0].Distance, neighbors[1].Distance)
}

func TestVectorIndex_UpsertReplaces(t *testing.T) {
	ctx := context.Background()
	vi, err := sqlite.NewVectorIndex(testDBPath(t, "replace"), 2)
	require.NoError(t, err)
	defer vi.Close()

	require.NoError(t, vi.Upsert(ctx, "ent-1", []float32{1, 0}))
	require.NoError(t, vi.Upsert(ctx, "ent-1", []float32{0, 1}))

	// Only the replaced vector remains, pointing the other way.
	neighbors, err := vi.Nearest(ctx, []float32{0, 1}, 5)
	require.NoError(t, err)
	require.Len(t, neighbors, 1)
	assert.Equal(t, "ent-1", neighbors[0].EntryID)
	assert.InDelta(t, 0.0, neighbors[0].Distance, 1e-5)
}

func TestVectorIndex_Delete(t *testing.T) {
	ctx := context.Background()
	vi, err := sqlite.NewVectorIndex(testDBPath(t, "delete"), 2)
	require.NoError(t, err)
	defer vi.Close()

	require.NoError(t, vi.Upsert(ctx, "ent-1", []float32{1, 0}))
	require.NoError(t, vi.Upsert(ctx, "ent-2", []float32{0, 1}))

	require.NoError(t, vi.Delete(ctx, "ent-1"))

	neighbors, err := vi.Nearest(ctx, []float32{1, 0}, 5)
	require.NoError(t, err)
	require.Len(t, neighbors, 1)
	assert.Equal(t, "ent-2", neighbors[0].EntryID)

	// Deleting nothing is a no-op.
	require.NoError(t, vi.Delete(ctx))
}
