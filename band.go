package chomp

import "math"

// bandedSymMatrix stores a symmetric positive-definite matrix of size n×n
// with half-bandwidth k (A[i][j] == 0 whenever |i-j| > k) in skyline form:
// row i keeps only the k+1 entries A(i,i), A(i,i-1), ..., A(i,i-k) that fall
// inside the matrix. This is the "first-class banded storage" the metric
// requires (see DESIGN.md for why gonum/mat.Cholesky, dense-only, cannot
// serve this role).
type bandedSymMatrix struct {
	n    int
	k    int
	diag []float64   // diag[i] = A(i,i)
	sub  [][]float64 // sub[d][i] = A(i+d+1, i) for d = 0..k-1, length n-d-1
}

// newBandedSymMatrix allocates a zeroed n×n banded matrix of half-bandwidth k.
func newBandedSymMatrix(n, k int) *bandedSymMatrix {
	sub := make([][]float64, k)
	for d := 0; d < k; d++ {
		sub[d] = make([]float64, n-d-1)
	}
	return &bandedSymMatrix{n: n, k: k, diag: make([]float64, n), sub: sub}
}

// at returns A(i,j), honoring symmetry; zero outside the band.
func (b *bandedSymMatrix) at(i, j int) float64 {
	if i == j {
		return b.diag[i]
	}
	if i < j {
		i, j = j, i
	}
	d := i - j
	if d > b.k {
		return 0
	}
	return b.sub[d-1][j]
}

// addAt accumulates delta into A(i,j), honoring symmetry.
func (b *bandedSymMatrix) addAt(i, j int, delta float64) {
	if i == j {
		b.diag[i] += delta
		return
	}
	if i < j {
		i, j = j, i
	}
	d := i - j
	if d > b.k {
		return
	}
	b.sub[d-1][j] += delta
}

// mulVec computes y = A*x for a banded A, O(n*k).
func (b *bandedSymMatrix) mulVec(x []float64) []float64 {
	y := make([]float64, b.n)
	for i := 0; i < b.n; i++ {
		acc := b.diag[i] * x[i]
		for d := 1; d <= b.k; d++ {
			if i-d >= 0 {
				acc += b.at(i, i-d) * x[i-d]
			}
			if i+d < b.n {
				acc += b.at(i, i+d) * x[i+d]
			}
		}
		y[i] = acc
	}
	return y
}

// mulDense computes Y = A*X column-by-column for a banded A and dense
// M-column X stored row-major (n rows of length m).
func (b *bandedSymMatrix) mulDense(x [][]float64) [][]float64 {
	y := make([][]float64, b.n)
	for i := range y {
		y[i] = make([]float64, len(x[0]))
	}
	for i := 0; i < b.n; i++ {
		for d := -b.k; d <= b.k; d++ {
			j := i + d
			if j < 0 || j >= b.n {
				continue
			}
			coeff := b.at(i, j)
			if coeff == 0 {
				continue
			}
			row := x[j]
			out := y[i]
			for c := range row {
				out[c] += coeff * row[c]
			}
		}
	}
	return y
}

// bandedCholesky is the lower-triangular skyline Cholesky factor L of a
// bandedSymMatrix (A = L*Lᵀ), stored in the same skyline layout so that
// forward/back substitution stay O(n*k). Grounded on the skyline
// Cholesky-Banachiewicz recursion used by original_source's
// skylineCholSolve, generalized here to any half-bandwidth k.
type bandedCholesky struct {
	n    int
	k    int
	diag []float64
	sub  [][]float64 // sub[d][i] = L(i+d+1, i)
}

// choleskyBanded factorizes a bandedSymMatrix into a newly allocated L*Lᵀ
// factor, leaving a unchanged. It returns
// a NumericalFailure *Error (never panics) if a diagonal pivot is
// non-positive, matching spec §7's "recovered, not fatal" contract for the
// caller to handle (skip the iteration, keep the previous trajectory).
func choleskyBanded(a *bandedSymMatrix) (*bandedCholesky, error) {
	const op = "choleskyBanded"
	n, k := a.n, a.k
	l := &bandedCholesky{n: n, k: k, diag: make([]float64, n), sub: make([][]float64, k)}
	for d := 0; d < k; d++ {
		l.sub[d] = make([]float64, n-d-1)
	}

	for i := 0; i < n; i++ {
		sum := a.diag[i]
		lo := i - k
		if lo < 0 {
			lo = 0
		}
		for j := lo; j < i; j++ {
			v := l.at(i, j)
			sum -= v * v
		}
		if sum <= 0 {
			return nil, newError(NumericalFailure, op, "non-positive pivot at row %d (%.6g)", i, sum)
		}
		diag := math.Sqrt(sum)
		l.diag[i] = diag

		hi := i + k
		if hi >= n {
			hi = n - 1
		}
		for r := i + 1; r <= hi; r++ {
			sum := a.at(r, i)
			lo := r - k
			if lo < 0 {
				lo = 0
			}
			if lo < i-k {
				lo = i - k
			}
			if lo < 0 {
				lo = 0
			}
			for j := lo; j < i; j++ {
				sum -= l.at(r, j) * l.at(i, j)
			}
			l.set(r, i, sum/diag)
		}
	}
	return l, nil
}

func (l *bandedCholesky) at(i, j int) float64 {
	if i == j {
		return l.diag[i]
	}
	if j > i {
		return 0
	}
	d := i - j
	if d > l.k {
		return 0
	}
	return l.sub[d-1][j]
}

func (l *bandedCholesky) set(i, j int, v float64) {
	if i == j {
		l.diag[i] = v
		return
	}
	d := i - j
	l.sub[d-1][j] = v
}

// solveVec solves A*x = rhs given A's Cholesky factor, via forward
// substitution L*y = rhs followed by back substitution Lᵀ*x = y.
func (l *bandedCholesky) solveVec(rhs []float64) []float64 {
	n := l.n
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		sum := rhs[i]
		lo := i - l.k
		if lo < 0 {
			lo = 0
		}
		for j := lo; j < i; j++ {
			sum -= l.at(i, j) * y[j]
		}
		y[i] = sum / l.diag[i]
	}

	x := make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		sum := y[i]
		hi := i + l.k
		if hi >= n {
			hi = n - 1
		}
		for j := i + 1; j <= hi; j++ {
			sum -= l.at(j, i) * x[j]
		}
		x[i] = sum / l.diag[i]
	}
	return x
}

// solveDense solves A*X = rhs for a dense M-column right-hand side, one
// column at a time.
func (l *bandedCholesky) solveDense(rhs [][]float64) [][]float64 {
	n := len(rhs)
	m := 0
	if n > 0 {
		m = len(rhs[0])
	}
	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, m)
	}
	col := make([]float64, n)
	for c := 0; c < m; c++ {
		for i := 0; i < n; i++ {
			col[i] = rhs[i][c]
		}
		sol := l.solveVec(col)
		for i := 0; i < n; i++ {
			out[i][c] = sol[i]
		}
	}
	return out
}

// forwardSolveVec computes y = L⁻¹*rhs (forward substitution only), the
// operation the covariant reparameterization (§4.F, metric.multiplyLowerInverse)
// needs.
func (l *bandedCholesky) forwardSolveVec(rhs []float64) []float64 {
	n := l.n
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		sum := rhs[i]
		lo := i - l.k
		if lo < 0 {
			lo = 0
		}
		for j := lo; j < i; j++ {
			sum -= l.at(i, j) * y[j]
		}
		y[i] = sum / l.diag[i]
	}
	return y
}

// forwardSolveDense applies forwardSolveVec column-by-column to an M-column
// right-hand side.
func (l *bandedCholesky) forwardSolveDense(rhs [][]float64) [][]float64 {
	n := len(rhs)
	m := 0
	if n > 0 {
		m = len(rhs[0])
	}
	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, m)
	}
	col := make([]float64, n)
	for c := 0; c < m; c++ {
		for i := 0; i < n; i++ {
			col[i] = rhs[i][c]
		}
		sol := l.forwardSolveVec(col)
		for i := 0; i < n; i++ {
			out[i][c] = sol[i]
		}
	}
	return out
}
