// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Murmur Contributors

// Package journal is the entry-facing service layer: entry CRUD, folder
// management (cluster, rule, and manual kinds), and related-entry lookup.
package journal

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/murmur-dev/murmur/internal/store"
	murmurerr "github.com/murmur-dev/murmur/pkg/errors"
)

// DefaultRelatedLimit caps related-entry lookups.
const DefaultRelatedLimit = 5

// Enricher queues an entry for background enrichment after a save.
type Enricher interface {
	Submit(entryID string) error
}

// Service coordinates entry and folder operations against the stores.
type Service struct {
	entries  store.EntryStore
	folders  store.FolderStore
	vectors  store.VectorIndex
	enricher Enricher
	logger   *slog.Logger
}

// NewService wires a journal service. The enricher is optional; without it
// saves complete but entries are never enriched.
func NewService(entries store.EntryStore, folders store.FolderStore, vectors store.VectorIndex, enricher Enricher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		entries:  entries,
		folders:  folders,
		vectors:  vectors,
		enricher: enricher,
		logger:   logger,
	}
}

// CreateEntry persists a new entry and queues it for enrichment. The save
// succeeds even if queueing fails; enrichment is strictly best-effort.
func (s *Service) CreateEntry(ctx context.Context, name, transcript, mode string) (*store.Entry, error) {
	if strings.TrimSpace(transcript) == "" {
		return nil, murmurerr.New(murmurerr.CodeStoreInvalidInput, "transcript is required")
	}

	now := time.Now().UTC()
	entry := &store.Entry{
		ID:         uuid.NewString(),
		Name:       strings.TrimSpace(name),
		Transcript: transcript,
		Mode:       mode,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if entry.Name == "" {
		entry.Name = now.Format("Jan 2, 2006 3:04 PM")
	}

	if err := s.entries.Create(ctx, entry); err != nil {
		return nil, err
	}

	if s.enricher != nil {
		if err := s.enricher.Submit(entry.ID); err != nil {
			s.logger.Warn("enrichment submit failed", "entry_id", entry.ID, "error", err)
		}
	}
	return entry, nil
}

// GetEntry returns one entry by id.
func (s *Service) GetEntry(ctx context.Context, id string) (*store.Entry, error) {
	return s.entries.Get(ctx, id)
}

// ListEntries returns entries matching the filter in chronological order.
func (s *Service) ListEntries(ctx context.Context, filter store.EntryFilter) ([]*store.Entry, error) {
	return s.entries.List(ctx, filter)
}

// DeleteEntry removes an entry, its vector, and its membership in manual
// folders. Cluster folders are left alone; they are rebuilt wholesale on
// the next clustering run.
func (s *Service) DeleteEntry(ctx context.Context, id string) error {
	if err := s.entries.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.vectors.Delete(ctx, id); err != nil {
		s.logger.Warn("deleting entry vector failed", "entry_id", id, "error", err)
	}

	manual, err := s.folders.List(ctx, store.FolderKindManual)
	if err != nil {
		s.logger.Warn("listing manual folders failed during entry delete", "entry_id", id, "error", err)
		return nil
	}
	for _, folder := range manual {
		if !removeMember(folder, id) {
			continue
		}
		if err := s.folders.Delete(ctx, folder.ID); err != nil {
			s.logger.Warn("pruning manual folder failed", "folder_id", folder.ID, "error", err)
			continue
		}
		if err := s.folders.Create(ctx, folder); err != nil {
			s.logger.Warn("recreating manual folder failed", "folder_id", folder.ID, "error", err)
		}
	}
	return nil
}

func removeMember(folder *store.Folder, id string) bool {
	for i, member := range folder.MemberIDs {
		if member == id {
			folder.MemberIDs = append(folder.MemberIDs[:i], folder.MemberIDs[i+1:]...)
			return true
		}
	}
	return false
}

// Related returns the entries nearest to the given one in embedding space,
// excluding the entry itself. An unembedded entry has no neighbors.
func (s *Service) Related(ctx context.Context, id string, limit int) ([]*store.Entry, error) {
	if limit <= 0 {
		limit = DefaultRelatedLimit
	}

	entry, err := s.entries.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !entry.Embedded() {
		return nil, nil
	}

	// Ask for one extra: the entry itself is its own nearest neighbor.
	neighbors, err := s.vectors.Nearest(ctx, entry.Embedding, limit+1)
	if err != nil {
		return nil, err
	}

	related := make([]*store.Entry, 0, limit)
	for _, n := range neighbors {
		if n.EntryID == id || len(related) == limit {
			continue
		}
		e, err := s.entries.Get(ctx, n.EntryID)
		if murmurerr.IsNotFound(err) {
			// Stale index row; the entry was deleted.
			continue
		}
		if err != nil {
			return nil, err
		}
		related = append(related, e)
	}
	return related, nil
}

// --- Folders ---

// CreateRuleFolder persists a rule folder after validating the rule.
func (s *Service) CreateRuleFolder(ctx context.Context, name string, rule store.Rule) (*store.Folder, error) {
	if err := validateRule(rule); err != nil {
		return nil, err
	}
	folder := &store.Folder{
		ID:        uuid.NewString(),
		Kind:      store.FolderKindRule,
		Name:      name,
		Rule:      &rule,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.folders.Create(ctx, folder); err != nil {
		return nil, err
	}
	return folder, nil
}

// CreateManualFolder persists a manual folder with an explicit member list.
func (s *Service) CreateManualFolder(ctx context.Context, name string, memberIDs []string) (*store.Folder, error) {
	for _, id := range memberIDs {
		if _, err := s.entries.Get(ctx, id); err != nil {
			return nil, err
		}
	}
	folder := &store.Folder{
		ID:        uuid.NewString(),
		Kind:      store.FolderKindManual,
		Name:      name,
		MemberIDs: memberIDs,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.folders.Create(ctx, folder); err != nil {
		return nil, err
	}
	return folder, nil
}

// RenameFolder changes a folder's display name.
func (s *Service) RenameFolder(ctx context.Context, id, name string) error {
	if strings.TrimSpace(name) == "" {
		return murmurerr.New(murmurerr.CodeStoreInvalidInput, "folder name is required")
	}
	return s.folders.Rename(ctx, id, name)
}

// DeleteFolder removes a folder. Entries are never deleted with it.
func (s *Service) DeleteFolder(ctx context.Context, id string) error {
	return s.folders.Delete(ctx, id)
}

// ListFolders returns folders, optionally narrowed to one kind.
func (s *Service) ListFolders(ctx context.Context, kind store.FolderKind) ([]*store.Folder, error) {
	return s.folders.List(ctx, kind)
}

// FolderEntries resolves a folder's membership. Cluster folders select by
// cluster id, manual folders by explicit list, rule folders by evaluating
// the rule against every entry on demand.
func (s *Service) FolderEntries(ctx context.Context, folderID string) ([]*store.Entry, error) {
	folder, err := s.folders.Get(ctx, folderID)
	if err != nil {
		return nil, err
	}

	switch folder.Kind {
	case store.FolderKindCluster:
		idx := folder.ClusterIndex
		return s.entries.List(ctx, store.EntryFilter{ClusterID: &idx})
	case store.FolderKindManual:
		var members []*store.Entry
		for _, id := range folder.MemberIDs {
			entry, err := s.entries.Get(ctx, id)
			if murmurerr.IsNotFound(err) {
				continue
			}
			if err != nil {
				return nil, err
			}
			members = append(members, entry)
		}
		return members, nil
	case store.FolderKindRule:
		if folder.Rule == nil {
			return nil, nil
		}
		all, err := s.entries.List(ctx, store.EntryFilter{})
		if err != nil {
			return nil, err
		}
		var matched []*store.Entry
		for _, entry := range all {
			if ruleMatches(*folder.Rule, entry) {
				matched = append(matched, entry)
			}
		}
		return matched, nil
	default:
		return nil, murmurerr.Errorf(murmurerr.CodeStoreInvalidInput, "unknown folder kind %q", folder.Kind)
	}
}

func validateRule(rule store.Rule) error {
	if rule.Empty() {
		return murmurerr.New(murmurerr.CodeJournalRuleInvalid, "rule must set at least one filter field")
	}
	if !rule.After.IsZero() && !rule.Before.IsZero() && rule.Before.Before(rule.After) {
		return murmurerr.New(murmurerr.CodeJournalRuleInvalid, "rule date range is inverted")
	}
	return nil
}

// ruleMatches applies every set field conjunctively.
func ruleMatches(rule store.Rule, entry *store.Entry) bool {
	if !rule.After.IsZero() && !entry.CreatedAt.After(rule.After) {
		return false
	}
	if !rule.Before.IsZero() && !entry.CreatedAt.Before(rule.Before) {
		return false
	}
	if rule.Mode != "" && entry.Mode != rule.Mode {
		return false
	}
	if rule.Contains != "" {
		needle := strings.ToLower(rule.Contains)
		if !strings.Contains(strings.ToLower(entry.Name), needle) &&
			!strings.Contains(strings.ToLower(entry.Transcript), needle) {
			return false
		}
	}
	if len(rule.Topics) > 0 {
		have := make(map[string]bool, len(entry.Topics))
		for _, topic := range entry.Topics {
			have[strings.ToLower(topic)] = true
		}
		for _, want := range rule.Topics {
			if !have[strings.ToLower(want)] {
				return false
			}
		}
	}
	return true
}
