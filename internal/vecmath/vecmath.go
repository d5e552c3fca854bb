// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Murmur Contributors

// Package vecmath holds the small pure-float helpers the clustering and
// search engines share. All functions fail softly: malformed input yields a
// zero value, never a panic.
package vecmath

import "math"

// CosineSimilarity returns the cosine of the angle between a and b, in
// [-1, 1]. It returns 0 when either vector is nil or empty, when the lengths
// differ, or when either vector has zero norm.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x := float64(a[i])
		y := float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Mean returns the element-wise mean of the given vectors. Vectors whose
// length differs from the first are skipped. Returns nil when no usable
// vector remains.
func Mean(vectors [][]float32) []float32 {
	var sum []float64
	count := 0
	for _, vec := range vectors {
		if len(vec) == 0 {
			continue
		}
		if sum == nil {
			sum = make([]float64, len(vec))
		}
		if len(vec) != len(sum) {
			continue
		}
		for i, v := range vec {
			sum[i] += float64(v)
		}
		count++
	}
	if count == 0 {
		return nil
	}

	out := make([]float32, len(sum))
	for i, v := range sum {
		out[i] = float32(v / float64(count))
	}
	return out
}

// Norm returns the Euclidean norm of v.
func Norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}
