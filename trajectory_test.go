package chomp

import (
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/mat"
)

func TestNewTrajectoryLinearInterpolation(t *testing.T) {
	q0 := mat.NewDense(1, 2, []float64{0, 0})
	q1 := mat.NewDense(1, 2, []float64{1, 0})

	traj, err := NewTrajectory(MinimizeVelocity, q0, q1, 5, 1)
	if err != nil {
		t.Fatalf("NewTrajectory: %v", err)
	}

	for t0 := 0; t0 < 5; t0++ {
		row := traj.RowView(t0)
		want := float64(t0+1) / 6.0
		if !scalar.EqualWithinAbs(row[0], want, 1e-12) {
			t.Errorf("row %d: got %v want %v", t0, row[0], want)
		}
		if row[1] != 0 {
			t.Errorf("row %d: y = %v, want 0", t0, row[1])
		}
	}
}

func TestNewTrajectoryRejectsMismatchedBounds(t *testing.T) {
	q0 := mat.NewDense(1, 2, []float64{0, 0})
	q1 := mat.NewDense(1, 3, []float64{1, 0, 0})
	if _, err := NewTrajectory(MinimizeVelocity, q0, q1, 5, 1); err == nil {
		t.Fatal("expected error for mismatched column counts")
	} else if !IsKind(err, InvalidConfiguration) {
		t.Errorf("expected InvalidConfiguration, got %v", err)
	}
}

func TestGetTickBorderRepeat(t *testing.T) {
	q0 := mat.NewDense(2, 1, []float64{-2, -1})
	q1 := mat.NewDense(2, 1, []float64{10, 11})
	traj, err := NewTrajectory(MinimizeAcceleration, q0, q1, 3, 1)
	if err != nil {
		t.Fatalf("NewTrajectory: %v", err)
	}

	if got := traj.GetTickBorderRepeat(-1)[0]; got != -1 {
		t.Errorf("tick -1: got %v want -1", got)
	}
	if got := traj.GetTickBorderRepeat(-2)[0]; got != -2 {
		t.Errorf("tick -2: got %v want -2", got)
	}
	if got := traj.GetTickBorderRepeat(3)[0]; got != 10 {
		t.Errorf("tick 3: got %v want 10", got)
	}
	if got := traj.GetTickBorderRepeat(4)[0]; got != 11 {
		t.Errorf("tick 4: got %v want 11", got)
	}
	if got := traj.GetTickBorderRepeat(1)[0]; got != traj.RowView(1)[0] {
		t.Errorf("tick 1 should read the real row")
	}
}

func TestUpsampleDoublesResolution(t *testing.T) {
	q0 := mat.NewDense(1, 1, []float64{0})
	q1 := mat.NewDense(1, 1, []float64{8})
	traj, err := NewTrajectory(MinimizeVelocity, q0, q1, 3, 1)
	if err != nil {
		t.Fatalf("NewTrajectory: %v", err)
	}

	nBefore := traj.Rows()
	traj.Upsample()
	if got, want := traj.Rows(), 2*nBefore+1; got != want {
		t.Fatalf("after upsample: rows = %d, want %d", got, want)
	}
	if traj.Subsampled() {
		t.Error("upsample should clear any subsampled view")
	}
}

func TestResolutionBudgetExactUpsampleCount(t *testing.T) {
	nMin, nMax := 7, 63
	n := nMin
	count := 0
	for n < nMax {
		n = 2*n + 1
		count++
	}
	if count != 3 {
		t.Fatalf("expected 3 upsamples from %d to %d, got %d (ended at %d)", nMin, nMax, count, n)
	}
}

func TestSubsampleActiveRows(t *testing.T) {
	q0 := mat.NewDense(1, 1, []float64{0})
	q1 := mat.NewDense(1, 1, []float64{1})
	traj, err := NewTrajectory(MinimizeVelocity, q0, q1, 7, 1)
	if err != nil {
		t.Fatalf("NewTrajectory: %v", err)
	}
	if err := traj.Subsample(); err != nil {
		t.Fatalf("Subsample: %v", err)
	}
	if got, want := traj.ActiveRows(), 4; got != want {
		t.Fatalf("active rows = %d, want %d", got, want)
	}
	traj.ActiveRowView(1)[0] = 99
	if got := traj.RowView(2)[0]; got != 99 {
		t.Fatalf("subsampled write should alias real row 2, got %v", got)
	}
}

func TestGoalSetRoundTrip(t *testing.T) {
	q0 := mat.NewDense(1, 1, []float64{0})
	q1 := mat.NewDense(1, 1, []float64{1})
	traj, err := NewTrajectory(MinimizeVelocity, q0, q1, 3, 1)
	if err != nil {
		t.Fatalf("NewTrajectory: %v", err)
	}
	nBefore := traj.Rows()
	traj.StartGoalSet()
	if traj.Rows() != nBefore+1 {
		t.Fatalf("StartGoalSet should append one row")
	}
	traj.AddRow(traj.Rows()-1, []float64{5})
	traj.EndGoalSet()
	if traj.Rows() != nBefore {
		t.Fatalf("EndGoalSet should remove the appended row")
	}
	if got := traj.Q1().RawRowView(0)[0]; got != 6 {
		t.Fatalf("EndGoalSet should fold the final row into q1, got %v", got)
	}
}
