// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Murmur Contributors

package enrich_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/murmur-dev/murmur/internal/enrich"
	"github.com/murmur-dev/murmur/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeModel struct {
	embedErr   error
	topicsErr  error
	summaryErr error
}

func (f *fakeModel) Embed(_ context.Context, text string) ([]float32, error) {
	if f.embedErr != nil {
		return nil, f.embedErr
	}
	return []float32{float32(len(text)), 1}, nil
}

func (f *fakeModel) ExtractTopics(context.Context, string) ([]string, error) {
	if f.topicsErr != nil {
		return nil, f.topicsErr
	}
	return []string{"topic-a", "topic-b"}, nil
}

func (f *fakeModel) Summarize(context.Context, string) (string, error) {
	if f.summaryErr != nil {
		return "", f.summaryErr
	}
	return "a summary", nil
}

type fakeLifecycle struct {
	due         bool
	regenerated atomic.Int32
}

func (f *fakeLifecycle) ShouldTrigger(context.Context) (bool, error) { return f.due, nil }
func (f *fakeLifecycle) Regenerate(context.Context) error {
	f.regenerated.Add(1)
	return nil
}

func newWorker(stores *store.Stores, model *fakeModel, lifecycle *fakeLifecycle) *enrich.Worker {
	cfg := enrich.Config{
		Entries:    stores.Entries,
		Vectors:    stores.Vectors,
		Embedder:   model,
		Topics:     model,
		Summarizer: model,
	}
	// Assigning a nil *fakeLifecycle would make the interface field non-nil.
	if lifecycle != nil {
		cfg.Lifecycle = lifecycle
	}
	return enrich.NewWorker(cfg)
}

func createEntry(t *testing.T, stores *store.Stores, id, transcript string) {
	t.Helper()
	require.NoError(t, stores.Entries.Create(context.Background(), &store.Entry{
		ID:         id,
		Transcript: transcript,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}))
}

func TestWorker_ProcessEnrichesEntry(t *testing.T) {
	ctx := context.Background()
	stores := store.NewMemoryStores()
	defer stores.Close()

	createEntry(t, stores, "ent-1", "a long day of gardening")

	lifecycle := &fakeLifecycle{}
	w := newWorker(stores, &fakeModel{}, lifecycle)
	w.Process(ctx, "ent-1")

	got, err := stores.Entries.Get(ctx, "ent-1")
	require.NoError(t, err)
	assert.True(t, got.Embedded())
	assert.Equal(t, []string{"topic-a", "topic-b"}, got.Topics)
	assert.Equal(t, "a summary", got.Summary)

	neighbors, err := stores.Vectors.Nearest(ctx, got.Embedding, 1)
	require.NoError(t, err)
	require.Len(t, neighbors, 1)
	assert.Equal(t, "ent-1", neighbors[0].EntryID)
}

func TestWorker_EmbedFailureLeavesEntryUntouched(t *testing.T) {
	ctx := context.Background()
	stores := store.NewMemoryStores()
	defer stores.Close()

	createEntry(t, stores, "ent-1", "some text")

	w := newWorker(stores, &fakeModel{embedErr: errors.New("provider down")}, nil)
	w.Process(ctx, "ent-1")

	got, err := stores.Entries.Get(ctx, "ent-1")
	require.NoError(t, err)
	assert.False(t, got.Embedded())
	assert.Empty(t, got.Summary)
}

func TestWorker_TopicFailureDegradesToPartial(t *testing.T) {
	ctx := context.Background()
	stores := store.NewMemoryStores()
	defer stores.Close()

	createEntry(t, stores, "ent-1", "some text")

	w := newWorker(stores, &fakeModel{topicsErr: errors.New("model error")}, nil)
	w.Process(ctx, "ent-1")

	got, err := stores.Entries.Get(ctx, "ent-1")
	require.NoError(t, err)
	assert.True(t, got.Embedded())
	assert.Nil(t, got.Topics)
	assert.Equal(t, "a summary", got.Summary)
}

func TestWorker_TriggersReclusterWhenDue(t *testing.T) {
	ctx := context.Background()
	stores := store.NewMemoryStores()
	defer stores.Close()

	createEntry(t, stores, "ent-1", "text")

	lifecycle := &fakeLifecycle{due: true}
	w := newWorker(stores, &fakeModel{}, lifecycle)
	w.Process(ctx, "ent-1")

	assert.Equal(t, int32(1), lifecycle.regenerated.Load())
}

func TestWorker_SubmitAndStop(t *testing.T) {
	ctx := context.Background()
	stores := store.NewMemoryStores()
	defer stores.Close()

	createEntry(t, stores, "ent-1", "queued text")

	w := newWorker(stores, &fakeModel{}, nil)
	w.Start(ctx)
	require.NoError(t, w.Submit("ent-1"))

	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, w.Stop(stopCtx))

	got, err := stores.Entries.Get(ctx, "ent-1")
	require.NoError(t, err)
	assert.True(t, got.Embedded())

	// Stopped worker rejects new work; empty ids are invalid either way.
	assert.Error(t, w.Submit("ent-2"))
	assert.Error(t, w.Submit(""))
}

func TestWorker_BackfillSkipsFailuresAndEmbedded(t *testing.T) {
	ctx := context.Background()
	stores := store.NewMemoryStores()
	defer stores.Close()

	// One already embedded, three pending.
	require.NoError(t, stores.Entries.Create(ctx, &store.Entry{
		ID: "done", Transcript: "old", Embedding: []float32{1, 2},
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}))
	for i := 0; i < 3; i++ {
		createEntry(t, stores, fmt.Sprintf("pending-%d", i), fmt.Sprintf("entry %d", i))
	}

	w := newWorker(stores, &fakeModel{}, nil)
	processed, total, err := w.Backfill(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Equal(t, 3, processed)

	for i := 0; i < 3; i++ {
		got, err := stores.Entries.Get(ctx, fmt.Sprintf("pending-%d", i))
		require.NoError(t, err)
		assert.True(t, got.Embedded())
	}
}
