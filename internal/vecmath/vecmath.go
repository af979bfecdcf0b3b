// Package vecmath holds the numeric kernels shared by retrieval ranking and
// the affect vector builder. Both functions degrade to zero instead of
// returning errors so callers never have to guard similarity math.
package vecmath

import "math"

// Cosine returns the cosine similarity of a and b, clamped to [-1, 1].
// Nil, empty, mismatched-length, or zero-norm inputs yield 0.
func Cosine(a, b []float32) float64 {
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

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	return clamp(sim, -1, 1)
}

// Normalize rescales v into [0, 1] over [min, max]. A degenerate range
// (max == min) yields 0.
func Normalize(v, min, max float64) float64 {
	if max == min {
		return 0
	}
	return clamp((v-min)/(max-min), 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
