package chomp

import (
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
)

func TestLocalOptimizerReducesGradientNorm(t *testing.T) {
	problem := buildVelocityProblem(t, 5, []float64{0, 0}, []float64{1, 0})
	// Perturb the trajectory away from the smooth optimum so there is a
	// genuine gradient to descend.
	row := problem.Trajectory().RowView(2)
	row[1] += 1.0

	// The step is the raw (unpreconditioned) gradient, whose scale here is
	// 1/Δt² = 36, so α must stay below 2/λmax(A) ≈ 0.015 to descend.
	lo := NewLocalOptimizer(0.01)
	firstNorm, err := lo.Step(problem)
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	secondNorm, err := lo.Step(problem)
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if secondNorm >= firstNorm {
		t.Errorf("gradient norm should shrink across local-smoothing steps: %v -> %v", firstNorm, secondNorm)
	}
}

func TestProjectOntoConstraintNullspaceKeepsFeasibleDirection(t *testing.T) {
	// A single-row constraint pinning the first coordinate: any delta with
	// a zero first component should project to itself.
	jac := [][]float64{{1, 0}}
	delta := []float64{0, 5}
	out, err := projectOntoConstraintNullspace(delta, jac)
	if err != nil {
		t.Fatalf("projectOntoConstraintNullspace: %v", err)
	}
	if !scalar.EqualWithinAbs(out[0], 0, 1e-9) || !scalar.EqualWithinAbs(out[1], 5, 1e-9) {
		t.Errorf("feasible delta should pass through unchanged, got %v", out)
	}
}

func TestProjectOntoConstraintNullspaceRemovesConstrainedComponent(t *testing.T) {
	jac := [][]float64{{1, 0}}
	delta := []float64{3, 5}
	out, err := projectOntoConstraintNullspace(delta, jac)
	if err != nil {
		t.Fatalf("projectOntoConstraintNullspace: %v", err)
	}
	if !scalar.EqualWithinAbs(out[0], 0, 1e-9) {
		t.Errorf("constrained component should be removed, got %v", out[0])
	}
	if !scalar.EqualWithinAbs(out[1], 5, 1e-9) {
		t.Errorf("unconstrained component should survive, got %v", out[1])
	}
}
