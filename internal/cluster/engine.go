// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Murmur Contributors

// Package cluster partitions embedded journal entries into topic groups.
//
// The engine runs k-means with cosine similarity as the affinity measure;
// the lifecycle manager decides when to run it and turns its output into
// topic folders.
package cluster

import (
	"math/rand"

	"github.com/murmur-dev/murmur/internal/vecmath"
)

// DefaultMaxIterations bounds a single k-means run.
const DefaultMaxIterations = 10

// Point is one clusterable item: an entry id and its embedding.
type Point struct {
	EntryID   string
	Embedding []float32
}

// Engine is a k-means partitioner over embedding vectors. Affinity is
// cosine similarity, so "nearest centroid" means "highest similarity".
// Centroid init samples input points uniformly without replacement; a run
// is deterministic only for a fixed rand source.
type Engine struct {
	maxIterations int
	rng           *rand.Rand
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxIterations overrides the iteration cap.
func WithMaxIterations(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxIterations = n
		}
	}
}

// WithRand sets the random source used for centroid initialization.
// Tests use this for reproducible runs.
func WithRand(rng *rand.Rand) Option {
	return func(e *Engine) { e.rng = rng }
}

// NewEngine constructs an Engine with the default iteration cap and a
// time-seeded random source unless overridden.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{maxIterations: DefaultMaxIterations}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Partition assigns every point to one of k clusters and returns a map of
// entry id to cluster index in [0, k).
//
// When there are fewer points than clusters, every point lands in cluster 0
// rather than producing empty centroids. Iteration stops early once no
// assignment changes.
func (e *Engine) Partition(points []Point, k int) map[string]int {
	assignments := make(map[string]int, len(points))
	if len(points) == 0 {
		return assignments
	}
	if k < 1 || len(points) < k {
		for _, p := range points {
			assignments[p.EntryID] = 0
		}
		return assignments
	}

	centroids := e.initCentroids(points, k)
	current := make([]int, len(points))
	for i := range current {
		current[i] = -1
	}

	for iter := 0; iter < e.maxIterations; iter++ {
		changed := false
		for i, p := range points {
			best := nearestCentroid(centroids, p.Embedding)
			if best != current[i] {
				current[i] = best
				changed = true
			}
		}
		if !changed {
			break
		}
		recomputeCentroids(centroids, points, current)
	}

	for i, p := range points {
		assignments[p.EntryID] = current[i]
	}
	return assignments
}

// initCentroids copies k distinct points chosen uniformly at random.
func (e *Engine) initCentroids(points []Point, k int) [][]float32 {
	var perm []int
	if e.rng != nil {
		perm = e.rng.Perm(len(points))
	} else {
		perm = rand.Perm(len(points))
	}

	centroids := make([][]float32, k)
	for i := 0; i < k; i++ {
		src := points[perm[i]].Embedding
		centroids[i] = append([]float32(nil), src...)
	}
	return centroids
}

// nearestCentroid returns the index of the centroid with the highest cosine
// similarity to v. Ties keep the lowest index.
func nearestCentroid(centroids [][]float32, v []float32) int {
	best := 0
	bestSim := vecmath.CosineSimilarity(centroids[0], v)
	for i := 1; i < len(centroids); i++ {
		if sim := vecmath.CosineSimilarity(centroids[i], v); sim > bestSim {
			best = i
			bestSim = sim
		}
	}
	return best
}

// recomputeCentroids replaces each centroid with the mean of its members.
// A centroid with no members keeps its previous value.
func recomputeCentroids(centroids [][]float32, points []Point, assignments []int) {
	members := make([][][]float32, len(centroids))
	for i, p := range points {
		c := assignments[i]
		members[c] = append(members[c], p.Embedding)
	}
	for c := range centroids {
		if mean := vecmath.Mean(members[c]); mean != nil {
			centroids[c] = mean
		}
	}
}
