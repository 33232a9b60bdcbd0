// File path: internal/simmath/simmath.go

// Package simmath provides the vector-space primitives shared by the
// entity resolver, the rerank fallback, and the in-memory vector index.
// All functions are pure and safe for concurrent use.
package simmath

import "math"

// Cosine returns the cosine similarity between a and b in [-1, 1]. It
// returns 0.0 when either vector has zero magnitude, when the lengths
// differ, or when either input is empty; it never panics.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0.0
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
		return 0.0
	}
	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if math.IsNaN(sim) || math.IsInf(sim, 0) {
		return 0.0
	}
	// Floating point drift can push the ratio just past the unit bounds.
	if sim > 1 {
		return 1
	}
	if sim < -1 {
		return -1
	}
	return sim
}

// Normalize flattens a batched embedding result to a single flat vector.
// Embedding backends variously return a flat vector or a batch-of-one;
// every ingress point normalizes through here before similarity math.
func Normalize(raw [][]float32) []float32 {
	for _, vec := range raw {
		if len(vec) > 0 {
			return vec
		}
	}
	return nil
}

// NormalizeAny accepts the shapes an embedding column or capability call
// may legally produce ([]float32, [][]float32, []float64, [][]float64)
// and returns a flat []float32. Unknown shapes yield nil rather than an
// error; callers treat nil as a malformed embedding.
func NormalizeAny(input interface{}) []float32 {
	switch v := input.(type) {
	case []float32:
		return v
	case [][]float32:
		return Normalize(v)
	case []float64:
		return demote(v)
	case [][]float64:
		for _, vec := range v {
			if len(vec) > 0 {
				return demote(vec)
			}
		}
		return nil
	default:
		return nil
	}
}

func demote(v []float64) []float32 {
	if len(v) == 0 {
		return nil
	}
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(f)
	}
	return out
}
