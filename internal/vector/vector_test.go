package vector

import (
	"math"
	"testing"
)

func TestCosineIdentical(t *testing.T) {
	a := []float32{0.3, 0.5, 0.2}
	got := Cosine(a, a)
	if math.Abs(got-1.0) > 1e-6 {
		t.Errorf("cosine of identical vectors = %v, want 1.0", got)
	}
}

func TestCosineOrthogonal(t *testing.T) {
	a := []float32{1, 0, 0}
	b := []float32{0, 1, 0}
	if got := Cosine(a, b); math.Abs(got) > 1e-9 {
		t.Errorf("cosine of orthogonal vectors = %v, want 0", got)
	}
}

func TestCosineSymmetry(t *testing.T) {
	pairs := [][2][]float32{
		{{1, 2, 3}, {4, 5, 6}},
		{{-1, 0.5, 2}, {3, -2, 0.1}},
		{{0.001, 100}, {100, 0.001}},
	}
	for _, pair := range pairs {
		ab := Cosine(pair[0], pair[1])
		ba := Cosine(pair[1], pair[0])
		if math.Abs(ab-ba) > 1e-12 {
			t.Errorf("cosine not symmetric: %v vs %v", ab, ba)
		}
	}
}

func TestCosineZeroVector(t *testing.T) {
	zero := []float32{0, 0, 0}
	other := []float32{1, 2, 3}

	for _, got := range []float64{Cosine(zero, other), Cosine(other, zero), Cosine(zero, zero)} {
		if got != 0 {
			t.Errorf("cosine with zero vector = %v, want 0", got)
		}
		if math.IsNaN(got) {
			t.Error("cosine with zero vector produced NaN")
		}
	}
}
