package chomp

import (
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/mat"
)

func buildVelocityProblem(t *testing.T, n int, start, end []float64) *ProblemDescription {
	t.Helper()
	q0 := mat.NewDense(1, len(start), start)
	q1 := mat.NewDense(1, len(end), end)
	traj, err := NewTrajectory(MinimizeVelocity, q0, q1, n, 1)
	if err != nil {
		t.Fatalf("NewTrajectory: %v", err)
	}
	metric, err := NewMetric(MinimizeVelocity, n, len(start), traj.DeltaT(), fromDense(q0), fromDense(q1))
	if err != nil {
		t.Fatalf("NewMetric: %v", err)
	}
	return NewProblemDescription(MinimizeVelocity, traj, NewSmoothnessFunction(metric), nil, nil)
}

func TestMotionOptimizerConvergesToStraightLine(t *testing.T) {
	problem := buildVelocityProblem(t, 5, []float64{0, 0}, []float64{1, 0})

	mo, err := NewMotionOptimizer(problem,
		WithAlpha(1.0),
		WithResolutionRange(5, 5),
		WithMaxIterations(20),
	)
	if err != nil {
		t.Fatalf("NewMotionOptimizer: %v", err)
	}

	xi, stats, err := mo.Solve()
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if stats.GlobalIterations == 0 {
		t.Error("expected at least one global iteration")
	}
	for i := range xi {
		want := float64(i+1) / 6.0
		if !scalar.EqualWithinAbs(xi[i][0], want, 1e-6) {
			t.Errorf("row %d: x = %v, want %v", i, xi[i][0], want)
		}
	}
}

func TestMotionOptimizerRejectsInvertedResolutionRange(t *testing.T) {
	problem := buildVelocityProblem(t, 5, []float64{0}, []float64{1})
	_, err := NewMotionOptimizer(problem, WithResolutionRange(10, 5))
	if err == nil {
		t.Fatal("expected InvalidConfiguration for n_min > n_max")
	} else if !IsKind(err, InvalidConfiguration) {
		t.Errorf("expected InvalidConfiguration, got %v", err)
	}
}

func TestMotionOptimizerUpsamplesToTarget(t *testing.T) {
	problem := buildVelocityProblem(t, 7, []float64{0}, []float64{1})

	mo, err := NewMotionOptimizer(problem,
		WithAlpha(1.0),
		WithResolutionRange(7, 31),
		WithMaxIterations(5),
	)
	if err != nil {
		t.Fatalf("NewMotionOptimizer: %v", err)
	}

	xi, _, err := mo.Solve()
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if len(xi) != 31 {
		t.Fatalf("expected final resolution 31, got %d", len(xi))
	}
}

func TestMotionOptimizerHonorsEqualityConstraint(t *testing.T) {
	problem := buildVelocityProblem(t, 5, []float64{0, 0}, []float64{1, 1})
	factory := problem.Constraints()
	pinned := []float64{0.5, 0.9}
	factory.AddConstraint(2, 3, NewPointConstraint(pinned))

	mo, err := NewMotionOptimizer(problem,
		WithAlpha(0.5),
		WithResolutionRange(5, 5),
		WithMaxIterations(50),
	)
	if err != nil {
		t.Fatalf("NewMotionOptimizer: %v", err)
	}

	xi, _, err := mo.Solve()
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if !scalar.EqualWithinAbs(xi[2][1], pinned[1], 1e-2) {
		t.Errorf("pinned waypoint y = %v, want close to %v", xi[2][1], pinned[1])
	}
}

func TestMotionOptimizerCovariantOptionIsWired(t *testing.T) {
	problem := buildVelocityProblem(t, 5, []float64{0, 0}, []float64{1, 0})
	problem.Trajectory().RowView(2)[1] += 1.0

	mo, err := NewMotionOptimizer(problem,
		WithAlpha(0.5),
		WithResolutionRange(5, 5),
		WithMaxIterations(1),
		WithCovariant(),
	)
	if err != nil {
		t.Fatalf("NewMotionOptimizer: %v", err)
	}

	if _, _, err := mo.Solve(); err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if !problem.Covariant() {
		t.Error("WithCovariant should leave the problem in covariant mode")
	}
}

func TestMotionOptimizerObserverCanStopEarly(t *testing.T) {
	problem := buildVelocityProblem(t, 5, []float64{0}, []float64{1})

	calls := 0
	obs := ObserverFunc(func(info IterationInfo) bool {
		calls++
		return info.Event != EventGlobalIter || calls < 2
	})

	mo, err := NewMotionOptimizer(problem,
		WithAlpha(1.0),
		WithResolutionRange(5, 5),
		WithMaxIterations(50),
		WithObserver(obs),
	)
	if err != nil {
		t.Fatalf("NewMotionOptimizer: %v", err)
	}

	if _, _, err := mo.Solve(); err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if calls == 0 {
		t.Error("observer should have been notified at least once")
	}
}
