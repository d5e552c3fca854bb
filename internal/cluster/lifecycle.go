// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Murmur Contributors

package cluster

import (
	"context"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/murmur-dev/murmur/internal/store"
	murmurerr "github.com/murmur-dev/murmur/pkg/errors"
)

const (
	// DefaultClusterCount is the target cluster count when none is configured.
	DefaultClusterCount = 5
	// DefaultTriggerThreshold is the number of new embedded entries since the
	// last run that justifies another run.
	DefaultTriggerThreshold = 10

	// firstRunMinimum is the embedded-entry count that triggers the very
	// first clustering run.
	firstRunMinimum = 5
	// regenerateFloor is the minimum embedded-entry count below which
	// Regenerate is a no-op.
	regenerateFloor = 3
	// minClusterMembers: clusters smaller than this get no folder.
	minClusterMembers = 2
	// labelSampleSize caps the member texts sent to the labeler.
	labelSampleSize = 3

	fallbackLabel = "Untitled Topic"

	timestampLayout = time.RFC3339Nano
)

// Labeler produces a short descriptive name for a cluster from sampled
// member texts.
type Labeler interface {
	LabelCluster(ctx context.Context, samples []string) (string, error)
}

// Config carries clustering tunables. Persisted settings override these
// defaults per-installation.
type Config struct {
	ClusterCount     int
	TriggerThreshold int
}

// Manager owns the clustering lifecycle: deciding when a run is due and
// turning engine output into cluster folders.
//
// Regeneration is count-triggered, not time-triggered: runs happen after
// enough new material accumulates, trading latency for batch quality.
type Manager struct {
	entries  store.EntryStore
	folders  store.FolderStore
	settings store.SettingsStore
	engine   *Engine
	labeler  Labeler
	cfg      Config
	logger   *slog.Logger

	// mu serializes Regenerate. A run deletes and recreates every cluster
	// folder, so two interleaved runs would corrupt each other's output.
	mu sync.Mutex
}

// NewManager wires a lifecycle manager. A nil logger discards output.
func NewManager(entries store.EntryStore, folders store.FolderStore, settings store.SettingsStore, engine *Engine, labeler Labeler, cfg Config, logger *slog.Logger) *Manager {
	if cfg.ClusterCount <= 0 {
		cfg.ClusterCount = DefaultClusterCount
	}
	if cfg.TriggerThreshold <= 0 {
		cfg.TriggerThreshold = DefaultTriggerThreshold
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Manager{
		entries:  entries,
		folders:  folders,
		settings: settings,
		engine:   engine,
		labeler:  labeler,
		cfg:      cfg,
		logger:   logger,
	}
}

// ShouldTrigger reports whether a clustering run is due. Before the first
// run it waits for a minimum corpus; afterwards it counts entries created
// strictly after the last run against the configured threshold.
func (m *Manager) ShouldTrigger(ctx context.Context) (bool, error) {
	last, err := m.lastClustered(ctx)
	if err != nil {
		return false, err
	}

	if last.IsZero() {
		embedded, err := m.entries.CountEmbedded(ctx)
		if err != nil {
			return false, err
		}
		return embedded >= firstRunMinimum, nil
	}

	since, err := m.entries.CountCreatedAfter(ctx, last)
	if err != nil {
		return false, err
	}
	return since >= m.threshold(ctx), nil
}

// Regenerate reclusters every embedded entry and rebuilds the cluster
// folders from scratch. At most one run may be in flight; a concurrent call
// is rejected with a conflict, not queued.
//
// Entry assignments and folder creation are separate writes. Entries whose
// cluster is dropped for being too small keep a cluster id with no matching
// folder.
func (m *Manager) Regenerate(ctx context.Context) error {
	if !m.mu.TryLock() {
		return murmurerr.New(murmurerr.CodeClusterRegenerateInFlight, "cluster regeneration already in progress")
	}
	defer m.mu.Unlock()

	entries, err := m.entries.List(ctx, store.EntryFilter{EmbeddedOnly: true})
	if err != nil {
		return murmurerr.Wrap(err, murmurerr.CodeClusterRegenerateFailure, "listing embedded entries")
	}
	if len(entries) < regenerateFloor {
		m.logger.Debug("skipping clustering run", "embedded_entries", len(entries), "floor", regenerateFloor)
		return nil
	}

	k := m.clusterCount(ctx)
	if effective := len(entries) / 2; k > effective {
		k = effective
	}
	if k < 1 {
		k = 1
	}

	points := make([]Point, len(entries))
	byID := make(map[string]*store.Entry, len(entries))
	for i, entry := range entries {
		points[i] = Point{EntryID: entry.ID, Embedding: entry.Embedding}
		byID[entry.ID] = entry
	}

	assignments := m.engine.Partition(points, k)

	members := make(map[int][]string)
	for id, c := range assignments {
		members[c] = append(members[c], id)
	}

	// All assignments are written, including those for clusters too small
	// to get a folder.
	if err := m.entries.SetClusterAssignments(ctx, assignments); err != nil {
		return murmurerr.Wrap(err, murmurerr.CodeClusterRegenerateFailure, "writing cluster assignments")
	}

	if err := m.folders.DeleteKind(ctx, store.FolderKindCluster); err != nil {
		return murmurerr.Wrap(err, murmurerr.CodeClusterRegenerateFailure, "removing previous cluster folders")
	}

	indices := make([]int, 0, len(members))
	for c, ids := range members {
		if len(ids) >= minClusterMembers {
			indices = append(indices, c)
		}
	}
	sort.Ints(indices)

	now := time.Now().UTC()
	for _, c := range indices {
		ids := members[c]
		sort.Strings(ids)

		label := m.labelCluster(ctx, c, ids, byID)
		folder := &store.Folder{
			ID:           uuid.NewString(),
			Kind:         store.FolderKindCluster,
			Name:         label,
			ClusterIndex: c,
			MemberIDs:    ids,
			CreatedAt:    now,
		}
		if err := m.folders.Create(ctx, folder); err != nil {
			return murmurerr.Wrapf(err, murmurerr.CodeClusterRegenerateFailure, "creating folder for cluster %d", c)
		}
	}

	// The timestamp moves only after folders exist, so a failed run stays
	// eligible for retriggering.
	if err := m.settings.Set(ctx, store.SettingLastClusteringDate, now.Format(timestampLayout)); err != nil {
		return murmurerr.Wrap(err, murmurerr.CodeClusterRegenerateFailure, "persisting clustering timestamp")
	}

	m.logger.Info("clustering run complete",
		"entries", len(entries),
		"k", k,
		"folders", len(indices),
	)
	return nil
}

// labelCluster asks the labeler for a name from up to labelSampleSize member
// texts, falling back to a generic label on any failure.
func (m *Manager) labelCluster(ctx context.Context, index int, memberIDs []string, byID map[string]*store.Entry) string {
	samples := make([]string, 0, labelSampleSize)
	for _, id := range memberIDs {
		if len(samples) == labelSampleSize {
			break
		}
		entry := byID[id]
		if entry == nil {
			continue
		}
		if entry.Summary != "" {
			samples = append(samples, entry.Summary)
		} else if entry.Transcript != "" {
			samples = append(samples, entry.Transcript)
		}
	}

	if m.labeler == nil || len(samples) == 0 {
		return fallbackLabel
	}
	label, err := m.labeler.LabelCluster(ctx, samples)
	if err != nil {
		m.logger.Warn("cluster labeling failed", "cluster", index, "error", err)
		return fallbackLabel
	}
	if label == "" {
		return fallbackLabel
	}
	return label
}

// clusterCount resolves the target k: persisted setting first, then config.
func (m *Manager) clusterCount(ctx context.Context) int {
	return m.intSetting(ctx, store.SettingClusterCount, m.cfg.ClusterCount)
}

// threshold resolves the trigger threshold: persisted setting first, then config.
func (m *Manager) threshold(ctx context.Context) int {
	return m.intSetting(ctx, store.SettingClusterThreshold, m.cfg.TriggerThreshold)
}

func (m *Manager) intSetting(ctx context.Context, key string, fallback int) int {
	raw, err := m.settings.Get(ctx, key)
	if err != nil {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		m.logger.Warn("ignoring invalid setting", "key", key, "value", raw)
		return fallback
	}
	return n
}

// lastClustered reads the persisted last-run timestamp. A zero time means
// clustering has never run.
func (m *Manager) lastClustered(ctx context.Context) (time.Time, error) {
	raw, err := m.settings.Get(ctx, store.SettingLastClusteringDate)
	if murmurerr.IsNotFound(err) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(timestampLayout, raw)
	if err != nil {
		return time.Time{}, murmurerr.Errorf(murmurerr.CodeClusterRegenerateFailure,
			"parsing last clustering timestamp %q: %w", raw, err)
	}
	return t, nil
}
