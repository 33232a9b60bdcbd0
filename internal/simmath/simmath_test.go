// File path: internal/simmath/simmath_test.go
package simmath

import (
	"math"
	"testing"
)

func TestCosineIdenticalVectors(t *testing.T) {
	v := []float32{0.3, -0.5, 0.8}
	got := Cosine(v, v)
	if math.Abs(got-1.0) > 1e-9 {
		t.Fatalf("expected similarity 1.0, got %f", got)
	}
}

func TestCosineOrthogonalVectors(t *testing.T) {
	got := Cosine([]float32{1, 0}, []float32{0, 1})
	if math.Abs(got) > 1e-9 {
		t.Fatalf("expected similarity 0.0, got %f", got)
	}
}

func TestCosineOppositeVectors(t *testing.T) {
	got := Cosine([]float32{1, 2}, []float32{-1, -2})
	if math.Abs(got+1.0) > 1e-9 {
		t.Fatalf("expected similarity -1.0, got %f", got)
	}
}

func TestCosineDegenerateInputs(t *testing.T) {
	cases := []struct {
		name string
		a, b []float32
	}{
		{"zero magnitude", []float32{0, 0, 0}, []float32{1, 2, 3}},
		{"empty left", nil, []float32{1}},
		{"empty right", []float32{1}, nil},
		{"length mismatch", []float32{1, 2}, []float32{1, 2, 3}},
	}
	for _, tc := range cases {
		if got := Cosine(tc.a, tc.b); got != 0.0 {
			t.Fatalf("%s: expected 0.0, got %f", tc.name, got)
		}
	}
}

func TestNormalizeBatchOfOne(t *testing.T) {
	flat := Normalize([][]float32{{0.1, 0.2}})
	if len(flat) != 2 || flat[0] != 0.1 {
		t.Fatalf("unexpected normalized vector: %v", flat)
	}
}

func TestNormalizeSkipsEmptyRows(t *testing.T) {
	flat := Normalize([][]float32{nil, {}, {0.7}})
	if len(flat) != 1 || flat[0] != 0.7 {
		t.Fatalf("unexpected normalized vector: %v", flat)
	}
}

func TestNormalizeAnyShapes(t *testing.T) {
	if got := NormalizeAny([]float32{1, 2}); len(got) != 2 {
		t.Fatalf("flat float32: %v", got)
	}
	if got := NormalizeAny([][]float32{{3}}); len(got) != 1 || got[0] != 3 {
		t.Fatalf("batched float32: %v", got)
	}
	if got := NormalizeAny([]float64{1.5}); len(got) != 1 || got[0] != 1.5 {
		t.Fatalf("flat float64: %v", got)
	}
	if got := NormalizeAny([][]float64{{2.5}}); len(got) != 1 || got[0] != 2.5 {
		t.Fatalf("batched float64: %v", got)
	}
	if got := NormalizeAny("not a vector"); got != nil {
		t.Fatalf("expected nil for malformed input, got %v", got)
	}
}
