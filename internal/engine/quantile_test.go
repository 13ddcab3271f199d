package engine

import (
	"math"
	"testing"
)

func TestQuantile(t *testing.T) {
	nan := math.NaN()
	tests := []struct {
		name   string
		values []float64
		q      float64
		want   float64
	}{
		{"single value", []float64{5}, 0.75, 5},
		{"exact order statistic", []float64{10, 20, 30, 40, 50}, 0.25, 20},
		{"interpolated upper", []float64{1, 2, 3, 4}, 0.75, 3.25},
		{"interpolated lower", []float64{1, 2, 3, 4}, 0.25, 1.75},
		{"unsorted input", []float64{4, 1, 3, 2}, 0.75, 3.25},
		{"median", []float64{1, 2, 3, 4}, 0.5, 2.5},
		{"min", []float64{7, 3, 9}, 0, 3},
		{"max", []float64{7, 3, 9}, 1, 9},
		{"nan excluded", []float64{1, nan, 2, nan, 3, 4}, 0.75, 3.25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := quantile(tt.values, tt.q)
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("quantile(%v, %v) = %v, want %v", tt.values, tt.q, got, tt.want)
			}
		})
	}
}

func TestQuantileEmptySample(t *testing.T) {
	if got := quantile(nil, 0.75); !math.IsNaN(got) {
		t.Errorf("quantile(nil) = %v, want NaN", got)
	}
	allNaN := []float64{math.NaN(), math.NaN()}
	if got := quantile(allNaN, 0.25); !math.IsNaN(got) {
		t.Errorf("quantile(all NaN) = %v, want NaN", got)
	}
}

func TestQuantileDoesNotMutateInput(t *testing.T) {
	values := []float64{3, 1, 2}
	quantile(values, 0.5)
	if values[0] != 3 || values[1] != 1 || values[2] != 2 {
		t.Errorf("input mutated: %v", values)
	}
}
