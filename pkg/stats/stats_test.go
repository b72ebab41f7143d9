package stats

import "testing"

func TestPercentile(t *testing.T) {
	tests := []struct {
		name   string
		sorted []float64
		p      int
		want   float64
	}{
		{"empty", nil, 50, 0},
		{"single", []float64{0.7}, 50, 0.7},
		{"median", []float64{0.1, 0.2, 0.3, 0.4}, 50, 0.3},
		{"p95 clamps to last", []float64{0.1, 0.9}, 95, 0.9},
		{"p0 is first", []float64{0.1, 0.9}, 0, 0.1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Percentile(tt.sorted, tt.p); got != tt.want {
				t.Errorf("Percentile(%v, %d) = %f, want %f", tt.sorted, tt.p, got, tt.want)
			}
		})
	}
}
