package chomp

import (
	"testing"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
)

func TestPointConstraintEvaluate(t *testing.T) {
	c := NewPointConstraint([]float64{1, 2})
	h, jac := c.Evaluate([]float64{1.5, 2.5})
	if !floats.Equal(h, []float64{0.5, 0.5}) {
		t.Errorf("h = %v, want [0.5 0.5]", h)
	}
	if len(jac) != 2 || jac[0][0] != 1 || jac[1][1] != 1 {
		t.Errorf("jacobian should be identity, got %v", jac)
	}
}

func TestLineConstraintZeroOnLine(t *testing.T) {
	c := NewLineConstraint([]float64{0, 0, 0}, []float64{1, 0, 0})
	h, _ := c.Evaluate([]float64{5, 0, 0})
	for i, v := range h {
		if !scalar.EqualWithinAbs(v, 0, 1e-9) {
			t.Errorf("h[%d] = %v, want 0 for a point on the line", i, v)
		}
	}
}

func TestLineConstraintNonzeroOffLine(t *testing.T) {
	c := NewLineConstraint([]float64{0, 0, 0}, []float64{1, 0, 0})
	h, _ := c.Evaluate([]float64{5, 1, 0})
	var normSq float64
	for _, v := range h {
		normSq += v * v
	}
	if normSq < 1e-6 {
		t.Errorf("expected nonzero residual for an off-line point, got %v", h)
	}
}

func TestConstraintFactoryIntervalLookup(t *testing.T) {
	f := NewConstraintFactory()
	start := NewPointConstraint([]float64{0})
	end := NewPointConstraint([]float64{1})
	f.AddConstraint(5, 10, end)
	f.AddConstraint(0, 1, start)

	if got := f.At(0); len(got) != 1 || got[0] != start {
		t.Errorf("tick 0 should only have the start constraint, got %v", got)
	}
	if got := f.At(1); len(got) != 0 {
		t.Errorf("tick 1 is outside [0,1), got %v", got)
	}
	if got := f.At(7); len(got) != 1 || got[0] != end {
		t.Errorf("tick 7 should only have the end constraint, got %v", got)
	}
}

func TestConstraintFactoryEmpty(t *testing.T) {
	f := NewConstraintFactory()
	if !f.Empty() {
		t.Fatal("a freshly constructed factory should be empty")
	}
	f.AddConstraint(0, 1, NewPointConstraint([]float64{0}))
	if f.Empty() {
		t.Fatal("factory with a registered constraint should not be empty")
	}
}

func TestGaussNewtonCorrectionReducesResidual(t *testing.T) {
	c := NewPointConstraint([]float64{0, 0})
	q := []float64{1, 1}
	h, jac := c.Evaluate(q)

	correction, err := gaussNewtonCorrection(h, jac)
	if err != nil {
		t.Fatalf("gaussNewtonCorrection: %v", err)
	}
	for i := range q {
		q[i] += correction[i]
	}
	h2, _ := c.Evaluate(q)
	for i := range h2 {
		if !scalar.EqualWithinAbs(h2[i], 0, 1e-9) {
			t.Errorf("h2[%d] = %v, want ~0 after a full Gauss-Newton step on a linear constraint", i, h2[i])
		}
	}
}
