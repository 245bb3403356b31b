package clustering

import (
	"math"
	"testing"
)

func TestEuclideanDistance(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float32
		expected float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 0},
		{"unit apart", []float32{0, 0}, []float32{1, 0}, 1},
		{"pythagorean", []float32{0, 0}, []float32{3, 4}, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EuclideanDistance(tt.a, tt.b)
			if math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("expected %f, got %f", tt.expected, got)
			}
		})
	}
}

func TestEuclideanDistanceMismatchedVectors(t *testing.T) {
	if !math.IsInf(EuclideanDistance([]float32{1, 2}, []float32{1}), 1) {
		t.Error("expected +Inf for mismatched dimensions")
	}
	if !math.IsInf(EuclideanDistance(nil, nil), 1) {
		t.Error("expected +Inf for empty vectors")
	}
}
