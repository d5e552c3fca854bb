// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Murmur Contributors

// Package enrich runs the background pipeline that turns a saved entry
// into searchable material: embedding, topics, and a summary.
//
// Enrichment is fire-and-forget. A user-facing save completes before the
// pipeline runs, and pipeline failures are logged, never surfaced to the
// write that triggered them.
package enrich

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/murmur-dev/murmur/internal/provider"
	"github.com/murmur-dev/murmur/internal/store"
	murmurerr "github.com/murmur-dev/murmur/pkg/errors"
)

// DefaultQueueSize bounds pending enrichment jobs.
const DefaultQueueSize = 64

// Reclusterer is the clustering lifecycle hook the worker pokes after each
// enriched entry.
type Reclusterer interface {
	ShouldTrigger(ctx context.Context) (bool, error)
	Regenerate(ctx context.Context) error
}

// Worker consumes entry ids from a queue and enriches them one at a time.
type Worker struct {
	entries    store.EntryStore
	vectors    store.VectorIndex
	embedder   provider.Embedder
	topics     provider.TopicExtractor
	summarizer provider.Summarizer
	lifecycle  Reclusterer
	logger     *slog.Logger

	queue chan string
	done  chan struct{}

	mu      sync.Mutex
	stopped bool
}

// Config wires a Worker's collaborators. Topics, Summarizer, and Lifecycle
// are optional; a missing one skips that stage.
type Config struct {
	Entries    store.EntryStore
	Vectors    store.VectorIndex
	Embedder   provider.Embedder
	Topics     provider.TopicExtractor
	Summarizer provider.Summarizer
	Lifecycle  Reclusterer
	QueueSize  int
	Logger     *slog.Logger
}

// NewWorker builds a worker; call Start to begin draining the queue.
func NewWorker(cfg Config) *Worker {
	size := cfg.QueueSize
	if size <= 0 {
		size = DefaultQueueSize
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Worker{
		entries:    cfg.Entries,
		vectors:    cfg.Vectors,
		embedder:   cfg.Embedder,
		topics:     cfg.Topics,
		summarizer: cfg.Summarizer,
		lifecycle:  cfg.Lifecycle,
		logger:     logger,
		queue:      make(chan string, size),
		done:       make(chan struct{}),
	}
}

// Start launches the drain loop. ctx bounds each job, not the loop itself;
// the loop exits when Stop closes the queue.
func (w *Worker) Start(ctx context.Context) {
	go func() {
		defer close(w.done)
		for id := range w.queue {
			w.Process(ctx, id)
		}
	}()
}

// Submit queues an entry for enrichment. It never blocks: a full queue
// drops the job with a warning, and a stopped worker rejects it.
func (w *Worker) Submit(entryID string) error {
	if entryID == "" {
		return murmurerr.New(murmurerr.CodeEnrichSubmitInvalid, "entry id is required")
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return murmurerr.New(murmurerr.CodeEnrichStopped, "enrichment worker is stopped")
	}

	select {
	case w.queue <- entryID:
		return nil
	default:
		w.logger.Warn("enrichment queue full, dropping job", "entry_id", entryID)
		return nil
	}
}

// Stop closes the queue and waits for in-flight work, up to the context
// deadline.
func (w *Worker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	close(w.queue)
	w.mu.Unlock()

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Process enriches one entry synchronously, logging any failure.
func (w *Worker) Process(ctx context.Context, entryID string) {
	if err := w.process(ctx, entryID); err != nil {
		w.logger.Error("enrichment failed", "entry_id", entryID, "error", err)
	}
}

// process runs the pipeline: embed, extract topics, summarize, persist,
// index, then check the clustering trigger. An embedding failure abandons
// the entry; topic and summary failures degrade to partial enrichment.
func (w *Worker) process(ctx context.Context, entryID string) error {
	entry, err := w.entries.Get(ctx, entryID)
	if err != nil {
		return err
	}
	if entry.Transcript == "" {
		w.logger.Debug("enrichment: skipping entry with no transcript", "entry_id", entryID)
		return nil
	}

	embedding, err := w.embedder.Embed(ctx, entry.Transcript)
	if err != nil {
		return err
	}
	entry.Embedding = embedding

	if w.topics != nil {
		topics, err := w.topics.ExtractTopics(ctx, entry.Transcript)
		if err != nil {
			w.logger.Warn("enrichment: topic extraction failed", "entry_id", entryID, "error", err)
		} else {
			entry.Topics = topics
		}
	}

	if w.summarizer != nil {
		summary, err := w.summarizer.Summarize(ctx, entry.Transcript)
		if err != nil {
			w.logger.Warn("enrichment: summarization failed", "entry_id", entryID, "error", err)
		} else {
			entry.Summary = summary
		}
	}

	entry.UpdatedAt = time.Now().UTC()
	if err := w.entries.Update(ctx, entry); err != nil {
		return err
	}
	if err := w.vectors.Upsert(ctx, entry.ID, entry.Embedding); err != nil {
		w.logger.Error("enrichment: indexing vector failed", "entry_id", entryID, "error", err)
	}

	w.maybeRecluster(ctx)
	return nil
}

func (w *Worker) maybeRecluster(ctx context.Context) {
	if w.lifecycle == nil {
		return
	}
	due, err := w.lifecycle.ShouldTrigger(ctx)
	if err != nil {
		w.logger.Warn("enrichment: trigger check failed", "error", err)
		return
	}
	if !due {
		return
	}
	if err := w.lifecycle.Regenerate(ctx); err != nil {
		if murmurerr.IsInFlight(err) {
			return
		}
		w.logger.Error("enrichment: clustering run failed", "error", err)
	}
}

// Backfill synchronously enriches every entry that has no embedding yet.
// Per-entry failures are logged and skipped. Returns processed and total
// counts; an error aborts only on listing failure or context cancellation.
func (w *Worker) Backfill(ctx context.Context) (processed, total int, err error) {
	entries, err := w.entries.List(ctx, store.EntryFilter{})
	if err != nil {
		return 0, 0, err
	}

	for _, entry := range entries {
		if entry.Embedded() {
			continue
		}
		total++
		if err := ctx.Err(); err != nil {
			return processed, total, err
		}

		if err := w.process(ctx, entry.ID); err != nil {
			w.logger.Warn("backfill: entry skipped", "entry_id", entry.ID, "error", err)
			continue
		}
		processed++
	}
	return processed, total, nil
}
