package chomp

import "gonum.org/v1/gonum/mat"

// solveDenseSmall solves a*x = rhs for a small dense k×k system, as used by
// the constrained CHOMP update's Schur-complement solve (S = HA⁻¹Hᵀ) and
// the local optimizer's per-row constraint projection (§4.G/§4.H). It
// tries a Cholesky factorization first (a is symmetric positive
// semidefinite at every call site) and falls back to an LU solve if
// Cholesky fails. The LU fallback is an exact solve, not a least-squares
// one: a singular or badly conditioned system is reported as
// NumericalFailure.
func solveDenseSmall(a [][]float64, rhs []float64) ([]float64, error) {
	const op = "solveDenseSmall"
	k := len(a)
	if k == 0 {
		return nil, nil
	}

	sym := mat.NewSymDense(k, nil)
	for i := 0; i < k; i++ {
		for j := i; j < k; j++ {
			sym.SetSym(i, j, a[i][j])
		}
	}
	b := mat.NewVecDense(k, rhs)

	var chol mat.Cholesky
	if ok := chol.Factorize(sym); ok {
		var x mat.VecDense
		if err := chol.SolveVecTo(&x, b); err == nil {
			return x.RawVector().Data, nil
		}
	}

	dense := mat.NewDense(k, k, nil)
	for i := 0; i < k; i++ {
		for j := 0; j < k; j++ {
			dense.Set(i, j, a[i][j])
		}
	}
	var lu mat.LU
	lu.Factorize(dense)
	var x mat.VecDense
	if err := lu.SolveVecTo(&x, false, b); err != nil {
		return nil, wrapError(NumericalFailure, op, err)
	}
	return x.RawVector().Data, nil
}
