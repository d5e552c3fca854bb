// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Murmur Contributors

// Package search implements hybrid ranked retrieval over journal entries:
// a keyword leg scored by field precedence and a semantic leg scored by
// cosine similarity, fused by weighted sum.
package search

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/murmur-dev/murmur/internal/store"
	"github.com/murmur-dev/murmur/internal/vecmath"
	murmurerr "github.com/murmur-dev/murmur/pkg/errors"
)

// Mode selects which legs a search runs.
type Mode string

const (
	ModeKeyword  Mode = "keyword"
	ModeSemantic Mode = "semantic"
	ModeHybrid   Mode = "hybrid"
)

// Keyword field tiers. An entry matching several fields keeps only its
// highest tier, not a sum.
const (
	tierName       = 4
	tierSummary    = 3
	tierTopics     = 2
	tierTranscript = 1
)

// Defaults for score fusion.
const (
	DefaultSemanticWeight = 0.6
	DefaultKeywordWeight  = 0.4
	DefaultMinScore       = 0.1
	DefaultMaxResults     = 50
)

// Embedder produces a query embedding.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Result is one ranked hit.
type Result struct {
	Entry *store.Entry
	Score float64
}

// Config carries fusion tunables; zero values take the defaults.
type Config struct {
	SemanticWeight float64
	KeywordWeight  float64
	MinScore       float64
	MaxResults     int
}

func (c Config) withDefaults() Config {
	if c.SemanticWeight == 0 {
		c.SemanticWeight = DefaultSemanticWeight
	}
	if c.KeywordWeight == 0 {
		c.KeywordWeight = DefaultKeywordWeight
	}
	if c.MinScore == 0 {
		c.MinScore = DefaultMinScore
	}
	if c.MaxResults <= 0 {
		c.MaxResults = DefaultMaxResults
	}
	return c
}

// Engine runs searches against the entry store. Each call fetches a fresh
// snapshot; the engine holds no cache.
type Engine struct {
	entries  store.EntryStore
	embedder Embedder
	cfg      Config
	logger   *slog.Logger
}

// NewEngine constructs a search engine. A nil logger discards output.
func NewEngine(entries store.EntryStore, embedder Embedder, cfg Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{
		entries:  entries,
		embedder: embedder,
		cfg:      cfg.withDefaults(),
		logger:   logger,
	}
}

// Search runs a query in the given mode and returns hits sorted by
// descending score, filtered to the minimum score and capped at the result
// limit. A blank query returns no hits without touching any collaborator.
//
// In hybrid mode a failing semantic leg degrades the call to keyword-only;
// the failure is logged, not surfaced. A failing keyword leg fails the call,
// since it means the store itself is unreadable.
func (e *Engine) Search(ctx context.Context, query string, mode Mode) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	switch mode {
	case ModeKeyword:
		scores, entries, err := e.keywordScores(ctx, query)
		if err != nil {
			return nil, err
		}
		return e.rank(scores, nil, entries, 0, 1), nil
	case ModeSemantic:
		scores, entries, err := e.semanticScores(ctx, query)
		if err != nil {
			return nil, err
		}
		return e.rank(nil, scores, entries, 1, 0), nil
	case ModeHybrid, "":
		return e.hybrid(ctx, query)
	default:
		return nil, murmurerr.Errorf(murmurerr.CodeSearchQueryInvalid, "unknown search mode %q", mode)
	}
}

func (e *Engine) hybrid(ctx context.Context, query string) ([]Result, error) {
	var (
		wg        sync.WaitGroup
		kwScores  map[string]float64
		kwByID    map[string]*store.Entry
		kwErr     error
		semScores map[string]float64
		semByID   map[string]*store.Entry
		semErr    error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		kwScores, kwByID, kwErr = e.keywordScores(ctx, query)
	}()
	go func() {
		defer wg.Done()
		semScores, semByID, semErr = e.semanticScores(ctx, query)
	}()
	wg.Wait()

	if kwErr != nil {
		return nil, kwErr
	}
	if semErr != nil {
		e.logger.Warn("semantic leg failed, degrading to keyword-only", "error", semErr)
		return e.rank(kwScores, nil, kwByID, 0, 1), nil
	}

	byID := make(map[string]*store.Entry, len(kwByID)+len(semByID))
	for id, entry := range kwByID {
		byID[id] = entry
	}
	for id, entry := range semByID {
		byID[id] = entry
	}
	return e.rank(kwScores, semScores, byID, e.cfg.SemanticWeight, e.cfg.KeywordWeight), nil
}

// rank fuses the two legs, filters, sorts, and truncates. An entry missing
// a leg contributes 0 for that leg.
func (e *Engine) rank(keyword, semantic map[string]float64, byID map[string]*store.Entry, semWeight, kwWeight float64) []Result {
	var results []Result
	for id, entry := range byID {
		score := semWeight*semantic[id] + kwWeight*keyword[id]
		if score < e.cfg.MinScore {
			continue
		}
		results = append(results, Result{Entry: entry, Score: score})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Entry.ID < results[j].Entry.ID
	})

	if len(results) > e.cfg.MaxResults {
		results = results[:e.cfg.MaxResults]
	}
	return results
}

// keywordScores matches the query case-insensitively against four fields
// and scores by the highest-precedence field hit, normalized to [0,1] by
// the maximum raw score among hits.
func (e *Engine) keywordScores(ctx context.Context, query string) (map[string]float64, map[string]*store.Entry, error) {
	entries, err := e.entries.List(ctx, store.EntryFilter{})
	if err != nil {
		return nil, nil, murmurerr.Wrap(err, murmurerr.CodeSearchLegFailure, "listing entries for keyword search")
	}

	needle := strings.ToLower(query)
	raw := make(map[string]int)
	byID := make(map[string]*store.Entry)
	maxRaw := 0

	for _, entry := range entries {
		tier := matchTier(entry, needle)
		if tier == 0 {
			continue
		}
		raw[entry.ID] = tier
		byID[entry.ID] = entry
		if tier > maxRaw {
			maxRaw = tier
		}
	}
	if maxRaw == 0 {
		return nil, nil, nil
	}

	scores := make(map[string]float64, len(raw))
	for id, tier := range raw {
		scores[id] = float64(tier) / float64(maxRaw)
	}
	return scores, byID, nil
}

func matchTier(entry *store.Entry, needle string) int {
	if strings.Contains(strings.ToLower(entry.Name), needle) {
		return tierName
	}
	if strings.Contains(strings.ToLower(entry.Summary), needle) {
		return tierSummary
	}
	for _, topic := range entry.Topics {
		if strings.Contains(strings.ToLower(topic), needle) {
			return tierTopics
		}
	}
	if strings.Contains(strings.ToLower(entry.Transcript), needle) {
		return tierTranscript
	}
	return 0
}

// semanticScores embeds the query and scores every embedded entry by cosine
// similarity. Entries without an embedding are excluded, not scored as 0.
func (e *Engine) semanticScores(ctx context.Context, query string) (map[string]float64, map[string]*store.Entry, error) {
	queryVec, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, nil, murmurerr.Wrap(err, murmurerr.CodeSearchLegFailure, "embedding search query")
	}

	entries, err := e.entries.List(ctx, store.EntryFilter{EmbeddedOnly: true})
	if err != nil {
		return nil, nil, murmurerr.Wrap(err, murmurerr.CodeSearchLegFailure, "listing entries for semantic search")
	}

	scores := make(map[string]float64, len(entries))
	byID := make(map[string]*store.Entry, len(entries))
	for _, entry := range entries {
		scores[entry.ID] = vecmath.CosineSimilarity(queryVec, entry.Embedding)
		byID[entry.ID] = entry
	}
	return scores, byID, nil
}
