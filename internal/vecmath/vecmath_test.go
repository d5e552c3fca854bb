// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Murmur Contributors

package vecmath_test

import (
	"testing"

	"github.com/murmur-dev/murmur/internal/vecmath"
	"github.com/stretchr/testify/assert"
)

func TestCosineSimilarity_SelfIsOne(t *testing.T) {
	vecs := [][]float32{
		{1, 0, 0},
		{0.5, 0.5},
		{-3, 2, 7, 0.1},
	}
	for _, v := range vecs {
		assert.InDelta(t, 1.0, vecmath.CosineSimilarity(v, v), 1e-9)
	}
}

func TestCosineSimilarity_Orthogonal(t *testing.T) {
	assert.InDelta(t, 0.0, vecmath.CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
}

func TestCosineSimilarity_Opposite(t *testing.T) {
	assert.InDelta(t, -1.0, vecmath.CosineSimilarity([]float32{1, 2}, []float32{-1, -2}), 1e-9)
}

func TestCosineSimilarity_SoftFailures(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
	}{
		{"both nil", nil, nil},
		{"a nil", nil, []float32{1}},
		{"b nil", []float32{1}, nil},
		{"mismatched length", []float32{1, 2}, []float32{1, 2, 3}},
		{"zero norm a", []float32{0, 0}, []float32{1, 1}},
		{"zero norm b", []float32{1, 1}, []float32{0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, 0.0, vecmath.CosineSimilarity(tt.a, tt.b))
		})
	}
}

func TestMean(t *testing.T) {
	got := vecmath.Mean([][]float32{
		{1, 2},
		{3, 4},
	})
	assert.InDelta(t, 2.0, float64(got[0]), 1e-6)
	assert.InDelta(t, 3.0, float64(got[1]), 1e-6)
}

func TestMean_SkipsMismatchedAndEmpty(t *testing.T) {
	got := vecmath.Mean([][]float32{
		{2, 2},
		nil,
		{1, 2, 3}, // wrong length, skipped
		{4, 6},
	})
	assert.InDelta(t, 3.0, float64(got[0]), 1e-6)
	assert.InDelta(t, 4.0, float64(got[1]), 1e-6)
}

func TestMean_NoUsableVectors(t *testing.T) {
	assert.Nil(t, vecmath.Mean(nil))
	assert.Nil(t, vecmath.Mean([][]float32{nil, {}}))
}

func TestNorm(t *testing.T) {
	assert.InDelta(t, 5.0, vecmath.Norm([]float32{3, 4}), 1e-9)
	assert.Equal(t, 0.0, vecmath.Norm(nil))
}
