// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Murmur Contributors

package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/murmur-dev/murmur/internal/vecmath"
	murmurerr "github.com/murmur-dev/murmur/pkg/errors"
)

func init() {
	RegisterBackend("memory", func(_ string, _ int) (*Stores, error) {
		return NewMemoryStores(), nil
	})
}

// NewMemoryStores creates a fully in-memory backend. Used by tests;
// nothing survives process exit.
func NewMemoryStores() *Stores {
	state := &memoryState{
		entries:  map[string]*Entry{},
		folders:  map[string]*Folder{},
		settings: map[string]string{},
		vectors:  map[string][]float32{},
	}
	return &Stores{
		Entries:  &memoryEntryStore{state},
		Folders:  &memoryFolderStore{state},
		Settings: &memorySettingsStore{state},
		Vectors:  &memoryVectorIndex{state},
	}
}

// memoryState is the shared mutable state behind all four in-memory stores.
type memoryState struct {
	mu       sync.RWMutex
	entries  map[string]*Entry
	folders  map[string]*Folder
	settings map[string]string
	vectors  map[string][]float32
}

// --- EntryStore ---

var _ EntryStore = (*memoryEntryStore)(nil)

type memoryEntryStore struct{ s *memoryState }

func (m *memoryEntryStore) Create(_ context.Context, entry *Entry) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if entry.ID == "" {
		return murmurerr.Wrap(ErrInvalidInput, murmurerr.CodeStoreInvalidInput, "entry id is required")
	}
	if _, ok := m.s.entries[entry.ID]; ok {
		return murmurerr.Wrap(ErrConflict, murmurerr.CodeStoreConflict, "entry already exists", murmurerr.FieldEntryID(entry.ID))
	}
	m.s.entries[entry.ID] = cloneEntry(entry)
	return nil
}

func (m *memoryEntryStore) Get(_ context.Context, id string) (*Entry, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	entry, ok := m.s.entries[id]
	if !ok {
		return nil, murmurerr.New(murmurerr.CodeStoreEntryNotFound, "entry not found", murmurerr.FieldEntryID(id))
	}
	return cloneEntry(entry), nil
}

func (m *memoryEntryStore) Update(_ context.Context, entry *Entry) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.entries[entry.ID]; !ok {
		return murmurerr.New(murmurerr.CodeStoreEntryNotFound, "entry not found", murmurerr.FieldEntryID(entry.ID))
	}
	m.s.entries[entry.ID] = cloneEntry(entry)
	return nil
}

func (m *memoryEntryStore) List(_ context.Context, filter EntryFilter) ([]*Entry, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	var out []*Entry
	for _, entry := range m.s.entries {
		if filter.EmbeddedOnly && !entry.Embedded() {
			continue
		}
		if !filter.CreatedAfter.IsZero() && !entry.CreatedAt.After(filter.CreatedAfter) {
			continue
		}
		if filter.ClusterID != nil {
			if entry.ClusterID == nil || *entry.ClusterID != *filter.ClusterID {
				continue
			}
		}
		out = append(out, cloneEntry(entry))
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *memoryEntryStore) Delete(_ context.Context, id string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.entries[id]; !ok {
		return murmurerr.New(murmurerr.CodeStoreEntryNotFound, "entry not found", murmurerr.FieldEntryID(id))
	}
	delete(m.s.entries, id)
	// Cascade to the vector index row.
	delete(m.s.vectors, id)
	return nil
}

func (m *memoryEntryStore) CountEmbedded(_ context.Context) (int, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	n := 0
	for _, entry := range m.s.entries {
		if entry.Embedded() {
			n++
		}
	}
	return n, nil
}

func (m *memoryEntryStore) CountCreatedAfter(_ context.Context, t time.Time) (int, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	n := 0
	for _, entry := range m.s.entries {
		if entry.CreatedAt.After(t) {
			n++
		}
	}
	return n, nil
}

func (m *memoryEntryStore) SetClusterAssignments(_ context.Context, assignments map[string]int) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for id, cluster := range assignments {
		entry, ok := m.s.entries[id]
		if !ok {
			continue
		}
		c := cluster
		entry.ClusterID = &c
	}
	return nil
}

func (m *memoryEntryStore) Close() error { return nil }

// --- FolderStore ---

var _ FolderStore = (*memoryFolderStore)(nil)

type memoryFolderStore struct{ s *memoryState }

func (m *memoryFolderStore) Create(_ context.Context, folder *Folder) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if folder.ID == "" || folder.Kind == "" {
		return murmurerr.Wrap(ErrInvalidInput, murmurerr.CodeStoreInvalidInput, "folder id and kind are required")
	}
	if _, ok := m.s.folders[folder.ID]; ok {
		return murmurerr.Wrap(ErrConflict, murmurerr.CodeStoreConflict, "folder already exists", murmurerr.FieldFolderID(folder.ID))
	}
	m.s.folders[folder.ID] = cloneFolder(folder)
	return nil
}

func (m *memoryFolderStore) Get(_ context.Context, id string) (*Folder, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	folder, ok := m.s.folders[id]
	if !ok {
		return nil, murmurerr.New(murmurerr.CodeStoreFolderNotFound, "folder not found", murmurerr.FieldFolderID(id))
	}
	return cloneFolder(folder), nil
}

func (m *memoryFolderStore) Rename(_ context.Context, id string, name string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	folder, ok := m.s.folders[id]
	if !ok {
		return murmurerr.New(murmurerr.CodeStoreFolderNotFound, "folder not found", murmurerr.FieldFolderID(id))
	}
	folder.Name = name
	return nil
}

func (m *memoryFolderStore) List(_ context.Context, kind FolderKind) ([]*Folder, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	var out []*Folder
	for _, folder := range m.s.folders {
		if kind != "" && folder.Kind != kind {
			continue
		}
		out = append(out, cloneFolder(folder))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *memoryFolderStore) Delete(_ context.Context, id string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.folders[id]; !ok {
		return murmurerr.New(murmurerr.CodeStoreFolderNotFound, "folder not found", murmurerr.FieldFolderID(id))
	}
	delete(m.s.folders, id)
	return nil
}

func (m *memoryFolderStore) DeleteKind(_ context.Context, kind FolderKind) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for id, folder := range m.s.folders {
		if folder.Kind == kind {
			delete(m.s.folders, id)
		}
	}
	return nil
}

func (m *memoryFolderStore) Close() error { return nil }

// --- SettingsStore ---

var _ SettingsStore = (*memorySettingsStore)(nil)

type memorySettingsStore struct{ s *memoryState }

func (m *memorySettingsStore) Get(_ context.Context, key string) (string, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	value, ok := m.s.settings[key]
	if !ok {
		return "", murmurerr.New(murmurerr.CodeStoreSettingNotFound, "setting not found", murmurerr.Field("key", key))
	}
	return value, nil
}

func (m *memorySettingsStore) Set(_ context.Context, key string, value string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.settings[key] = value
	return nil
}

func (m *memorySettingsStore) Close() error { return nil }

// --- VectorIndex ---

var _ VectorIndex = (*memoryVectorIndex)(nil)

type memoryVectorIndex struct{ s *memoryState }

func (m *memoryVectorIndex) Upsert(_ context.Context, entryID string, embedding []float32) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	vec := make([]float32, len(embedding))
	copy(vec, embedding)
	m.s.vectors[entryID] = vec
	return nil
}

func (m *memoryVectorIndex) Nearest(_ context.Context, query []float32, k int) ([]Neighbor, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	neighbors := make([]Neighbor, 0, len(m.s.vectors))
	for id, vec := range m.s.vectors {
		// Cosine distance, matching the sqlite-vec index metric.
		neighbors = append(neighbors, Neighbor{
			EntryID:  id,
			Distance: 1 - vecmath.CosineSimilarity(query, vec),
		})
	}
	sort.Slice(neighbors, func(i, j int) bool {
		if neighbors[i].Distance == neighbors[j].Distance {
			return neighbors[i].EntryID < neighbors[j].EntryID
		}
		return neighbors[i].Distance < neighbors[j].Distance
	})
	if k > 0 && len(neighbors) > k {
		neighbors = neighbors[:k]
	}
	return neighbors, nil
}

func (m *memoryVectorIndex) Delete(_ context.Context, entryIDs ...string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, id := range entryIDs {
		delete(m.s.vectors, id)
	}
	return nil
}

func (m *memoryVectorIndex) Close() error { return nil }

// --- helpers ---

func cloneEntry(entry *Entry) *Entry {
	out := *entry
	if entry.Topics != nil {
		out.Topics = append([]string(nil), entry.Topics...)
	}
	if entry.Embedding != nil {
		out.Embedding = append([]float32(nil), entry.Embedding...)
	}
	if entry.ClusterID != nil {
		c := *entry.ClusterID
		out.ClusterID = &c
	}
	return &out
}

func cloneFolder(folder *Folder) *Folder {
	out := *folder
	if folder.Rule != nil {
		r := *folder.Rule
		r.Topics = append([]string(nil), folder.Rule.Topics...)
		out.Rule = &r
	}
	if folder.MemberIDs != nil {
		out.MemberIDs = append([]string(nil), folder.MemberIDs...)
	}
	return &out
}
