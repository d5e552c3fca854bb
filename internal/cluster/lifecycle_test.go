// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Murmur Contributors

package cluster_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/murmur-dev/murmur/internal/cluster"
	"github.com/murmur-dev/murmur/internal/store"
	murmurerr "github.com/murmur-dev/murmur/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubLabeler returns canned labels keyed by the first sample text.
type stubLabeler struct {
	mu     sync.Mutex
	labels map[string]string
	err    error
	calls  int
}

func (l *stubLabeler) LabelCluster(_ context.Context, samples []string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	if l.err != nil {
		return "", l.err
	}
	if len(samples) == 0 {
		return "", nil
	}
	return l.labels[samples[0]], nil
}

// blockingLabeler holds Regenerate open until released.
type blockingLabeler struct {
	entered  chan struct{}
	release  chan struct{}
	onceOnly sync.Once
}

func (l *blockingLabeler) LabelCluster(context.Context, []string) (string, error) {
	l.onceOnly.Do(func() { close(l.entered) })
	<-l.release
	return "Blocked Topic", nil
}

func seedEntries(t *testing.T, stores *store.Stores, groups ...[]float32) []string {
	t.Helper()
	ctx := context.Background()
	var ids []string
	base := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	for i, embedding := range groups {
		id := fmt.Sprintf("ent-%d", i)
		require.NoError(t, stores.Entries.Create(ctx, &store.Entry{
			ID:         id,
			Name:       fmt.Sprintf("Entry %d", i),
			Transcript: fmt.Sprintf("transcript %d", i),
			Embedding:  embedding,
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
			UpdatedAt:  base,
		}))
		ids = append(ids, id)
	}
	return ids
}

func newTestManager(stores *store.Stores, labeler cluster.Labeler) *cluster.Manager {
	engine := cluster.NewEngine(cluster.WithRand(rand.New(rand.NewSource(1))))
	return cluster.NewManager(stores.Entries, stores.Folders, stores.Settings, engine, labeler, cluster.Config{}, nil)
}

func TestManager_RegenerateTwoSeparableGroups(t *testing.T) {
	ctx := context.Background()
	stores := store.NewMemoryStores()
	defer stores.Close()

	seedEntries(t, stores,
		[]float32{1, 0.05, 0},
		[]float32{0.9, 0, 0.05},
		[]float32{1, 0.1, 0.1},
		[]float32{0, 1, 0.05},
		[]float32{0.05, 0.9, 0},
		[]float32{0.1, 1, 0.1},
	)

	labeler := &stubLabeler{labels: map[string]string{
		"transcript 0": "Group A",
		"transcript 1": "Group A",
		"transcript 2": "Group A",
		"transcript 3": "Group B",
		"transcript 4": "Group B",
		"transcript 5": "Group B",
	}}
	require.NoError(t, stores.Settings.Set(ctx, store.SettingClusterCount, "2"))

	mgr := newTestManager(stores, labeler)
	require.NoError(t, mgr.Regenerate(ctx))

	folders, err := stores.Folders.List(ctx, store.FolderKindCluster)
	require.NoError(t, err)
	require.Len(t, folders, 2)
	assert.Len(t, folders[0].MemberIDs, 3)
	assert.Len(t, folders[1].MemberIDs, 3)

	// Each entry's cluster id points at one of the two folder indices.
	indices := map[int]bool{folders[0].ClusterIndex: true, folders[1].ClusterIndex: true}
	entries, err := stores.Entries.List(ctx, store.EntryFilter{})
	require.NoError(t, err)
	for _, entry := range entries {
		require.NotNil(t, entry.ClusterID)
		assert.True(t, indices[*entry.ClusterID], "entry %s cluster %d has no folder", entry.ID, *entry.ClusterID)
	}

	// Timestamp persisted only on a completed run.
	_, err = stores.Settings.Get(ctx, store.SettingLastClusteringDate)
	require.NoError(t, err)
}

func TestManager_RegenerateBelowFloorIsNoop(t *testing.T) {
	ctx := context.Background()
	stores := store.NewMemoryStores()
	defer stores.Close()

	seedEntries(t, stores, []float32{1, 0})

	mgr := newTestManager(stores, &stubLabeler{})
	require.NoError(t, mgr.Regenerate(ctx))

	folders, err := stores.Folders.List(ctx, store.FolderKindCluster)
	require.NoError(t, err)
	assert.Empty(t, folders)

	_, err = stores.Settings.Get(ctx, store.SettingLastClusteringDate)
	assert.True(t, murmurerr.IsNotFound(err), "timestamp must stay unset on a skipped run")
}

func TestManager_RegenerateLabelFailureFallsBack(t *testing.T) {
	ctx := context.Background()
	stores := store.NewMemoryStores()
	defer stores.Close()

	seedEntries(t, stores,
		[]float32{1, 0},
		[]float32{0.9, 0.1},
		[]float32{1, 0.05},
		[]float32{0.95, 0},
	)
	require.NoError(t, stores.Settings.Set(ctx, store.SettingClusterCount, "1"))

	mgr := newTestManager(stores, &stubLabeler{err: errors.New("model unavailable")})
	require.NoError(t, mgr.Regenerate(ctx))

	folders, err := stores.Folders.List(ctx, store.FolderKindCluster)
	require.NoError(t, err)
	require.Len(t, folders, 1)
	assert.Equal(t, "Untitled Topic", folders[0].Name)
}

func TestManager_RegenerateReplacesClusterFoldersOnly(t *testing.T) {
	ctx := context.Background()
	stores := store.NewMemoryStores()
	defer stores.Close()

	seedEntries(t, stores,
		[]float32{1, 0},
		[]float32{0.9, 0.1},
		[]float32{1, 0.05},
		[]float32{0.95, 0},
	)

	require.NoError(t, stores.Folders.Create(ctx, &store.Folder{
		ID: "stale", Kind: store.FolderKindCluster, Name: "Old Topic", CreatedAt: time.Now(),
	}))
	require.NoError(t, stores.Folders.Create(ctx, &store.Folder{
		ID: "manual", Kind: store.FolderKindManual, Name: "Pinned", CreatedAt: time.Now(),
	}))
	require.NoError(t, stores.Settings.Set(ctx, store.SettingClusterCount, "1"))

	mgr := newTestManager(stores, &stubLabeler{labels: map[string]string{"transcript 0": "Fresh Topic"}})
	require.NoError(t, mgr.Regenerate(ctx))

	clusters, err := stores.Folders.List(ctx, store.FolderKindCluster)
	require.NoError(t, err)
	require.Len(t, clusters, 1)
	assert.NotEqual(t, "stale", clusters[0].ID)

	// Manual folders survive the rebuild.
	_, err = stores.Folders.Get(ctx, "manual")
	require.NoError(t, err)
}

func TestManager_RegenerateRejectsConcurrentRun(t *testing.T) {
	ctx := context.Background()
	stores := store.NewMemoryStores()
	defer stores.Close()

	seedEntries(t, stores,
		[]float32{1, 0},
		[]float32{0.9, 0.1},
		[]float32{1, 0.05},
		[]float32{0.95, 0},
	)
	require.NoError(t, stores.Settings.Set(ctx, store.SettingClusterCount, "1"))

	labeler := &blockingLabeler{entered: make(chan struct{}), release: make(chan struct{})}
	mgr := newTestManager(stores, labeler)

	done := make(chan error, 1)
	go func() { done <- mgr.Regenerate(ctx) }()
	<-labeler.entered

	err := mgr.Regenerate(ctx)
	assert.True(t, murmurerr.IsInFlight(err))

	close(labeler.release)
	require.NoError(t, <-done)
}

func TestManager_ShouldTrigger(t *testing.T) {
	ctx := context.Background()
	stores := store.NewMemoryStores()
	defer stores.Close()

	mgr := newTestManager(stores, &stubLabeler{})

	// Never clustered, no entries: no trigger.
	due, err := mgr.ShouldTrigger(ctx)
	require.NoError(t, err)
	assert.False(t, due)

	// Five embedded entries reach the first-run minimum.
	seedEntries(t, stores,
		[]float32{1, 0}, []float32{0, 1}, []float32{1, 1}, []float32{0.5, 1}, []float32{1, 0.5},
	)
	due, err = mgr.ShouldTrigger(ctx)
	require.NoError(t, err)
	assert.True(t, due)

	// After a run, only entries newer than the timestamp count.
	last := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, stores.Settings.Set(ctx, store.SettingLastClusteringDate, last.Format(time.RFC3339Nano)))
	require.NoError(t, stores.Settings.Set(ctx, store.SettingClusterThreshold, "3"))

	due, err = mgr.ShouldTrigger(ctx)
	require.NoError(t, err)
	assert.False(t, due, "seeded entries predate the last run")

	for i := 0; i < 3; i++ {
		require.NoError(t, stores.Entries.Create(ctx, &store.Entry{
			ID:        fmt.Sprintf("new-%d", i),
			Embedding: []float32{1, float32(i)},
			CreatedAt: last.Add(time.Duration(i+1) * time.Minute),
			UpdatedAt: last,
		}))
	}
	due, err = mgr.ShouldTrigger(ctx)
	require.NoError(t, err)
	assert.True(t, due)
}
