package chomp

import (
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
)

func TestVelocityMetricRecoversStraightLine(t *testing.T) {
	n, m := 5, 2
	dt := 1.0 / float64(n+1)
	q0 := [][]float64{{0, 0}}
	q1 := [][]float64{{1, 0}}

	metric, err := NewMetric(MinimizeVelocity, n, m, dt, q0, q1)
	if err != nil {
		t.Fatalf("NewMetric: %v", err)
	}

	b := metric.B()
	xi, err := metric.SolveDense(negate(b))
	if err != nil {
		t.Fatalf("SolveDense: %v", err)
	}

	for i := 0; i < n; i++ {
		want := float64(i+1) / 6.0
		if !scalar.EqualWithinAbs(xi[i][0], want, 1e-9) {
			t.Errorf("row %d: x = %v, want %v", i, xi[i][0], want)
		}
		if !scalar.EqualWithinAbs(xi[i][1], 0, 1e-9) {
			t.Errorf("row %d: y = %v, want 0", i, xi[i][1])
		}
	}
}

func TestAccelerationMetricRecoversStraightLine(t *testing.T) {
	n, m := 3, 1
	dt := 1.0
	// Two-row boundary, same value repeated, matching scenario S2's
	// acceleration boundary convention.
	q0 := [][]float64{{0}, {0}}
	q1 := [][]float64{{3}, {3}}

	metric, err := NewMetric(MinimizeAcceleration, n, m, dt, q0, q1)
	if err != nil {
		t.Fatalf("NewMetric: %v", err)
	}

	b := metric.B()
	xi, err := metric.SolveDense(negate(b))
	if err != nil {
		t.Fatalf("SolveDense: %v", err)
	}

	want := []float64{0.75, 1.5, 2.25}
	for i := 0; i < n; i++ {
		if !scalar.EqualWithinAbs(xi[i][0], want[i], 1e-6) {
			t.Errorf("row %d: x = %v, want %v", i, xi[i][0], want[i])
		}
	}
}

func negate(rows [][]float64) [][]float64 {
	out := make([][]float64, len(rows))
	for i, row := range rows {
		out[i] = make([]float64, len(row))
		for j, v := range row {
			out[i][j] = -v
		}
	}
	return out
}
