package chomp

// Metric represents the smoothness quadratic form E(ξ) = ½tr(ξᵀAξ) +
// tr(bᵀξ) + c built from a k-th-order finite-difference stencil over the
// trajectory's interior waypoints, plus the fixed boundary rows q0/q1.
// A is symmetric positive definite with half-bandwidth k (§4.B); b and c
// absorb the boundary (virtual-row) contributions of the stencil.
//
// The stencil itself: velocity (k=1) uses first differences with
// coefficients [-1, 1]; acceleration (k=2) uses second differences with
// coefficients [1, -2, 1]. Both are accumulated by the same general
// procedure, sliding the stencil across every window that fits inside the
// sequence (last q0 row, interior rows, first q1 row), i.e. ticks -1 to
// N+1-len(stencil), and splitting each term between the "real" (interior)
// and "virtual" (boundary) rows it touches. Only the boundary rows nearest
// the interior enter the energy, so a trajectory linear between them has
// zero gradient for both objectives.
type Metric struct {
	n, m int
	k    int
	a    *bandedSymMatrix
	l    *bandedCholesky
	b    [][]float64 // N x M
	c    float64
}

// velocityStencil and accelerationStencil give the coefficients of the
// k-th order forward difference, applied starting at tick t: stencil[i]
// multiplies q(t+i).
var velocityStencil = []float64{-1, 1}
var accelerationStencil = []float64{1, -2, 1}

// NewMetric builds the smoothness metric for a trajectory of n interior
// rows, m configuration dimensions, timestep dt, boundary rows q0/q1
// (k rows each, nearest-to-interior row last in q0 / first in q1; only that
// nearest row is read), and objective type obj.
func NewMetric(obj ObjectiveType, n, m int, dt float64, q0, q1 [][]float64) (*Metric, error) {
	const op = "NewMetric"
	k := obj.bandwidth()
	stencil := velocityStencil
	if obj == MinimizeAcceleration {
		stencil = accelerationStencil
	}

	a := newBandedSymMatrix(n, k)
	b := make([][]float64, n)
	for i := range b {
		b[i] = make([]float64, m)
	}
	var c float64

	// tick ranges over every stencil application whose window
	// [tick, tick+len(stencil)-1] lies inside [-1, n]: the interior plus
	// the nearest boundary row on each side.
	for tick := -1; tick <= n+1-len(stencil); tick++ {
		// Gather the (coefficient, real-index-or-virtual-row) pairs for
		// this stencil application.
		type term struct {
			coeff float64
			real  bool
			idx   int      // interior row index, if real
			row   []float64 // boundary row, if virtual
		}
		terms := make([]term, len(stencil))
		for s, coeff := range stencil {
			t := tick + s
			switch {
			case t < 0:
				idx := k - 1 + (t + 1)
				if idx < 0 {
					idx = 0
				}
				terms[s] = term{coeff: coeff, real: false, row: q0[idx]}
			case t >= n:
				idx := t - n
				if idx >= k {
					idx = k - 1
				}
				terms[s] = term{coeff: coeff, real: false, row: q1[idx]}
			default:
				terms[s] = term{coeff: coeff, real: true, idx: t}
			}
		}

		// Accumulate: (sum_i coeff_i * q_i)^2 expanded over real/virtual.
		// A's off-diagonal entries are a dense quadratic-form representation
		// (q^TAq double-counts i<j automatically), so real-real pairs are
		// visited once each, at i<=j; the virtual-virtual scalar and the
		// real-virtual cross term are genuinely full double sums (the
		// former absorbs a global 0.5 below, the latter needs no scaling
		// since only the real->virtual half of the cross product is
		// accumulated).
		for i := range terms {
			for j := i; j < len(terms); j++ {
				ti, tj := terms[i], terms[j]
				switch {
				case ti.real && tj.real:
					a.addAt(ti.idx, tj.idx, ti.coeff*tj.coeff)
				case ti.real && !tj.real:
					for col := 0; col < m; col++ {
						b[ti.idx][col] += ti.coeff * tj.coeff * tj.row[col]
					}
				case !ti.real && tj.real:
					for col := 0; col < m; col++ {
						b[tj.idx][col] += ti.coeff * tj.coeff * ti.row[col]
					}
				default:
					var dot float64
					for col := 0; col < m; col++ {
						dot += ti.row[col] * tj.row[col]
					}
					if i == j {
						c += ti.coeff * tj.coeff * dot
					} else {
						c += 2 * ti.coeff * tj.coeff * dot
					}
				}
			}
		}
	}

	scale := 1.0
	for i := 0; i < k; i++ {
		scale /= dt * dt
	}
	for i := 0; i < n; i++ {
		for j := 0; j <= k; j++ {
			if i-j < 0 {
				continue
			}
			if j == 0 {
				a.diag[i] *= scale
			} else {
				a.sub[j-1][i-j] *= scale
			}
		}
	}
	for i := 0; i < n; i++ {
		for col := 0; col < m; col++ {
			b[i][col] *= scale
		}
	}
	c *= scale * 0.5

	l, err := choleskyBanded(a)
	if err != nil {
		return nil, wrapError(NumericalFailure, op, err)
	}

	return &Metric{n: n, m: m, k: k, a: a, l: l, b: b, c: c}, nil
}

// A returns the banded stiffness matrix.
func (met *Metric) A() *bandedSymMatrix { return met.a }

// B returns the N×M constant term.
func (met *Metric) B() [][]float64 { return met.b }

// C returns the scalar constant term.
func (met *Metric) C() float64 { return met.c }

// Factorized reports whether the last Cholesky factorization succeeded.
func (met *Metric) Factorized() bool { return met.l != nil }

// Solve solves A*x = rhs (one column) using the cached Cholesky factor.
func (met *Metric) Solve(rhs []float64) ([]float64, error) {
	if met.l == nil {
		return nil, newError(NumericalFailure, "Metric.Solve", "metric has no valid Cholesky factorization")
	}
	return met.l.solveVec(rhs), nil
}

// SolveDense solves A*X = rhs for an N×M right-hand side.
func (met *Metric) SolveDense(rhs [][]float64) ([][]float64, error) {
	if met.l == nil {
		return nil, newError(NumericalFailure, "Metric.SolveDense", "metric has no valid Cholesky factorization")
	}
	return met.l.solveDense(rhs), nil
}

// MultiplyLowerInverse applies L⁻¹ (forward substitution only) to an N×M
// matrix, the reparameterization the covariant update (§4.F) uses to turn a
// plain gradient step into a metric-preconditioned one without forming A⁻¹.
func (met *Metric) MultiplyLowerInverse(rhs [][]float64) ([][]float64, error) {
	if met.l == nil {
		return nil, newError(NumericalFailure, "Metric.MultiplyLowerInverse", "metric has no valid Cholesky factorization")
	}
	return met.l.forwardSolveDense(rhs), nil
}

// Multiply computes A*x for a dense N×M matrix x.
func (met *Metric) Multiply(x [][]float64) [][]float64 {
	return met.a.mulDense(x)
}
