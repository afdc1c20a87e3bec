package chomp

import (
	"gonum.org/v1/gonum/mat"
)

// ObjectiveType selects the smoothness functional minimized by the
// optimizer, which in turn fixes the metric's half-bandwidth (§4.B).
type ObjectiveType int

const (
	// MinimizeVelocity uses the discrete first-difference (velocity)
	// energy; the resulting metric is tridiagonal (half-bandwidth 1).
	MinimizeVelocity ObjectiveType = iota
	// MinimizeAcceleration uses the discrete second-difference
	// (acceleration) energy; the metric is pentadiagonal (half-bandwidth 2).
	MinimizeAcceleration
)

// bandwidth returns the metric half-bandwidth (k in spec §4.B) implied by
// the objective type: 1 for velocity, 2 for acceleration.
func (o ObjectiveType) bandwidth() int {
	if o == MinimizeAcceleration {
		return 2
	}
	return 1
}

// Trajectory holds an N×M matrix of interior waypoints between fixed
// endpoints q0 and q1. For MinimizeAcceleration, q0 and q1 each carry two
// rows (the two virtual neighbors the 4-point upsample stencil reads beyond
// the interior; the smoothness metric reads only the nearest one); for
// MinimizeVelocity they carry one.
//
// Trajectory additionally supports a subsampled view over its even rows
// (§3 "subsample view"): once Subsample is called, ActiveRows/ActiveRowView
// address only rows 0,2,4,…; EndSubsample returns to the full view. The
// view is a real alias — ActiveRowView returns a slice backed by the same
// array as the full trajectory, so writes through it mutate xi directly and
// nowhere else.
type Trajectory struct {
	objective ObjectiveType
	xi        *mat.Dense // N×M
	q0        *mat.Dense // k×M
	q1        *mat.Dense // k×M
	totalTime float64
	dt        float64
	subsample bool
}

// NewTrajectory linearly interpolates N interior waypoints between the last
// row of q0 and the first row of q1. q0 and q1 must each have exactly
// objective.bandwidth() rows and the same column count M.
func NewTrajectory(objective ObjectiveType, q0, q1 *mat.Dense, n int, totalTime float64) (*Trajectory, error) {
	const op = "NewTrajectory"
	k := objective.bandwidth()
	r0, m0 := q0.Dims()
	r1, m1 := q1.Dims()
	if r0 != k {
		return nil, newError(InvalidConfiguration, op, "q0 must have %d rows for this objective, got %d", k, r0)
	}
	if r1 != k {
		return nil, newError(InvalidConfiguration, op, "q1 must have %d rows for this objective, got %d", k, r1)
	}
	if m0 != m1 {
		return nil, newError(InvalidConfiguration, op, "q0 and q1 column counts disagree: %d vs %d", m0, m1)
	}
	if n <= 0 {
		return nil, newError(InvalidConfiguration, op, "n must be positive, got %d", n)
	}
	if totalTime <= 0 {
		return nil, newError(InvalidConfiguration, op, "totalTime must be positive, got %f", totalTime)
	}

	m := m0
	xi := mat.NewDense(n, m, nil)
	start := q0.RawRowView(k - 1)
	end := q1.RawRowView(0)
	for t := 0; t < n; t++ {
		frac := float64(t+1) / float64(n+1)
		row := xi.RawRowView(t)
		for j := 0; j < m; j++ {
			row[j] = start[j] + frac*(end[j]-start[j])
		}
	}

	dt := totalTime / float64(n+1)
	return &Trajectory{
		objective: objective,
		xi:        xi,
		q0:        mat.DenseCopyOf(q0),
		q1:        mat.DenseCopyOf(q1),
		totalTime: totalTime,
		dt:        dt,
	}, nil
}

// Rows returns N, the number of interior waypoints (ignoring subsampling).
func (t *Trajectory) Rows() int { return t.xi.RawMatrix().Rows }

// Cols returns M, the configuration-space dimension.
func (t *Trajectory) Cols() int { return t.xi.RawMatrix().Cols }

// Size returns N*M.
func (t *Trajectory) Size() int { return t.Rows() * t.Cols() }

// DeltaT returns Δt = T/(N+1).
func (t *Trajectory) DeltaT() float64 { return t.dt }

// Bandwidth returns the metric half-bandwidth k implied by the objective.
func (t *Trajectory) Bandwidth() int { return t.objective.bandwidth() }

// Objective returns the smoothness objective this trajectory was built for.
func (t *Trajectory) Objective() ObjectiveType { return t.objective }

// Subsampled reports whether the even-row view is currently active.
func (t *Trajectory) Subsampled() bool { return t.subsample }

// Subsample activates the even-row view. It is a no-op error if the
// trajectory is already subsampled.
func (t *Trajectory) Subsample() error {
	if t.subsample {
		return newError(InvalidConfiguration, "Subsample", "trajectory is already subsampled")
	}
	t.subsample = true
	return nil
}

// EndSubsample deactivates the even-row view, returning to the full N rows.
func (t *Trajectory) EndSubsample() { t.subsample = false }

// ActiveRows returns the number of rows addressed by ActiveRowView/Update in
// the trajectory's current (possibly subsampled) mode.
func (t *Trajectory) ActiveRows() int {
	if t.subsample {
		return (t.Rows() + 1) / 2
	}
	return t.Rows()
}

// realRow maps an active-mode row index to its index in the full xi matrix.
func (t *Trajectory) realRow(i int) int {
	if t.subsample {
		return 2 * i
	}
	return i
}

// RowView returns the real (non-subsampled) row t of xi as a slice backed
// directly by the underlying storage: writes through it mutate xi in place.
func (t *Trajectory) RowView(row int) []float64 { return t.xi.RawRowView(row) }

// ActiveRowView returns row i of the trajectory's active (possibly
// subsampled) view, aliasing the same storage as RowView.
func (t *Trajectory) ActiveRowView(i int) []float64 { return t.xi.RawRowView(t.realRow(i)) }

// Dense returns the full N×M trajectory matrix, ignoring subsampling.
func (t *Trajectory) Dense() *mat.Dense { return t.xi }

// Q0 returns the fixed rows preceding the interior trajectory.
func (t *Trajectory) Q0() *mat.Dense { return t.q0 }

// Q1 returns the fixed rows following the interior trajectory.
func (t *Trajectory) Q1() *mat.Dense { return t.q1 }

// GetTickBorderRepeat is the virtual indexer of §4.A: for tick<0 it returns
// a row drawn from q0, for tick>=Rows() a row drawn from q1, and otherwise
// the real row tick. Ticks further from the interior than the bandwidth
// resolve to q0/q1's outermost row (defensive clamping; never reached by a
// correctly sized upsample stencil).
func (t *Trajectory) GetTickBorderRepeat(tick int) []float64 {
	n, k := t.Rows(), t.Bandwidth()
	switch {
	case tick < 0:
		idx := k - 1 + (tick + 1)
		if idx < 0 {
			idx = 0
		}
		return t.q0.RawRowView(idx)
	case tick >= n:
		idx := tick - n
		if idx >= k {
			idx = k - 1
		}
		return t.q1.RawRowView(idx)
	default:
		return t.xi.RawRowView(tick)
	}
}

// Update subtracts delta (sized to ActiveRows() × Cols()) from the active
// view of the trajectory.
func (t *Trajectory) Update(delta *mat.Dense) error {
	const op = "Trajectory.Update"
	dr, dc := delta.Dims()
	if err := checkDims(op, dr, dc, t.ActiveRows(), t.Cols(), "delta", "trajectory", rowsAndCols); err != nil {
		return err
	}
	for i := 0; i < dr; i++ {
		row := t.ActiveRowView(i)
		drow := delta.RawRowView(i)
		for j := range row {
			row[j] -= drow[j]
		}
	}
	return nil
}

// UpdateRow subtracts delta (length Cols()) from the real row t of xi. It
// always addresses the full (non-subsampled) trajectory and uses the global
// update's subtraction; the local-smoothing path's +δ_t convention (§4.H)
// is AddRow.
func (t *Trajectory) UpdateRow(row int, delta []float64) {
	r := t.xi.RawRowView(row)
	for j := range r {
		r[j] -= delta[j]
	}
}

// AddRow adds delta (length Cols()) to the real row t of xi, the sign
// convention §4.H's local smoothing uses.
func (t *Trajectory) AddRow(row int, delta []float64) {
	r := t.xi.RawRowView(row)
	for j := range r {
		r[j] += delta[j]
	}
}

// Upsample doubles the resolution in place: N' = 2N+1. Even indices of the
// new grid are interpolated (midpoint for MinimizeVelocity, the 4-point
// stencil of §4.I for MinimizeAcceleration); odd indices copy the old rows
// directly. Any active subsampled view is cleared, matching the "all cached
// matrices are invalidated" contract of §4.I.
func (t *Trajectory) Upsample() {
	m := t.Cols()
	nOld := t.Rows()
	nNew := 2*nOld + 1
	xiNew := mat.NewDense(nNew, m, nil)

	for newT := 0; newT < nNew; newT++ {
		row := xiNew.RawRowView(newT)
		if newT%2 == 1 {
			copy(row, t.xi.RawRowView(newT/2))
			continue
		}
		j := newT / 2
		if t.objective == MinimizeVelocity {
			qneg1 := t.GetTickBorderRepeat(j - 1)
			qpos1 := t.GetTickBorderRepeat(j)
			for c := 0; c < m; c++ {
				row[c] = 0.5 * (qneg1[c] + qpos1[c])
			}
		} else {
			const c1 = 81.0 / 160.0
			const c3 = -1.0 / 160.0
			qneg3 := t.GetTickBorderRepeat(j - 2)
			qneg1 := t.GetTickBorderRepeat(j - 1)
			qpos1 := t.GetTickBorderRepeat(j)
			qpos3 := t.GetTickBorderRepeat(j + 1)
			for c := 0; c < m; c++ {
				row[c] = c3*(qneg3[c]+qpos3[c]) + c1*(qneg1[c]+qpos1[c])
			}
		}
	}

	t.xi = xiNew
	t.subsample = false
	t.dt = t.totalTime / float64(nNew+1)
}

// StartGoalSet appends a free extra row to ξ, initialized from the current
// q1 boundary row closest to the interior (§4.G goal-set mode).
func (t *Trajectory) StartGoalSet() {
	n, m := t.Rows(), t.Cols()
	xiNew := mat.NewDense(n+1, m, nil)
	for i := 0; i < n; i++ {
		copy(xiNew.RawRowView(i), t.xi.RawRowView(i))
	}
	copy(xiNew.RawRowView(n), t.q1.RawRowView(0))
	t.xi = xiNew
}

// EndGoalSet copies the last row of ξ back into q1's interior-facing row
// and drops it from ξ (§4.G, the inverse of StartGoalSet).
func (t *Trajectory) EndGoalSet() {
	n := t.Rows()
	last := t.xi.RawRowView(n - 1)
	copy(t.q1.RawRowView(0), last)

	xiNew := mat.NewDense(n-1, t.Cols(), nil)
	for i := 0; i < n-1; i++ {
		copy(xiNew.RawRowView(i), t.xi.RawRowView(i))
	}
	t.xi = xiNew
}

// Snapshot returns a read-only copy of the full trajectory, safe for an
// external observer to retain past the next iteration (§5: observers
// receive a copy, never a live alias).
func (t *Trajectory) Snapshot() *mat.Dense {
	return mat.DenseCopyOf(t.xi)
}
