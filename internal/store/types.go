// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Murmur Contributors

package store

import "time"

// --- Entry types ---

// Entry is a single journal entry. An entry is created with transcript text
// only; Summary, Topics, Embedding, and ClusterID are filled in later by
// background enrichment and clustering passes.
type Entry struct {
	ID         string
	Name       string
	Transcript string
	Summary    string
	// Mode is the journaling mode the entry was recorded in
	// (e.g. "freeform", "gratitude", "dream"). Used by rule folders.
	Mode   string
	Topics []string
	// Embedding is nil until embedding generation succeeds.
	Embedding []float32
	// ClusterID is nil until a clustering pass assigns the entry.
	// It is meaningful only when Embedding is non-nil.
	ClusterID *int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Embedded reports whether the entry carries an embedding vector.
func (e *Entry) Embedded() bool {
	return len(e.Embedding) > 0
}

// --- Folder types ---

// FolderKind discriminates the folder sum type.
type FolderKind string

const (
	// FolderKindCluster folders are derived from a clustering pass. They are
	// a cache over entry cluster assignments: deleted and recreated wholesale
	// on every regeneration, never edited incrementally.
	FolderKindCluster FolderKind = "cluster"
	// FolderKindRule folders hold a declarative filter; membership is
	// computed on demand and never materialized.
	FolderKindRule FolderKind = "rule"
	// FolderKindManual folders hold an explicit, user-curated member list.
	FolderKindManual FolderKind = "manual"
)

// Rule is the declarative filter carried by a rule folder. An entry matches
// when every set field matches; zero-valued fields are ignored.
type Rule struct {
	After    time.Time `json:"after,omitempty"    yaml:"after,omitempty"`
	Before   time.Time `json:"before,omitempty"   yaml:"before,omitempty"`
	Mode     string    `json:"mode,omitempty"     yaml:"mode,omitempty"`
	Contains string    `json:"contains,omitempty" yaml:"contains,omitempty"`
	Topics   []string  `json:"topics,omitempty"   yaml:"topics,omitempty"`
}

// Empty reports whether no filter field is set.
func (r Rule) Empty() bool {
	return r.After.IsZero() && r.Before.IsZero() && r.Mode == "" &&
		r.Contains == "" && len(r.Topics) == 0
}

// Folder is a grouping of entries. Exactly one of the kind-specific fields
// is meaningful, selected by Kind.
type Folder struct {
	ID   string
	Kind FolderKind
	Name string
	// ClusterIndex is the numeric cluster this folder represents.
	// Meaningful only when Kind == FolderKindCluster.
	ClusterIndex int
	// Rule is non-nil only when Kind == FolderKindRule.
	Rule *Rule
	// MemberIDs is set only when Kind == FolderKindManual.
	MemberIDs []string
	CreatedAt time.Time
}

// --- Clustering state ---

// Settings keys for persisted clustering state.
const (
	SettingClusterCount       = "cluster_count"
	SettingClusterThreshold   = "cluster_threshold"
	SettingLastClusteringDate = "last_clustering_date"
)

// --- Query options ---

// EntryFilter narrows List results.
type EntryFilter struct {
	// EmbeddedOnly selects only entries with a stored embedding.
	EmbeddedOnly bool
	// CreatedAfter selects entries created strictly after the given time.
	CreatedAfter time.Time
	// ClusterID selects entries assigned to the given cluster.
	ClusterID *int
	Limit     int
	Offset    int
}

// ListOpts provides pagination parameters for list operations.
type ListOpts struct {
	Limit  int
	Offset int
}

// --- Vector index types ---

// Neighbor is a single result from a nearest-neighbor lookup.
type Neighbor struct {
	EntryID string
	// Distance is the index's distance metric: lower = more similar.
	Distance float64
}
