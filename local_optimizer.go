package chomp

import "math"

// LocalOptimizer performs the per-waypoint smoothing pass CHOMP runs after
// its global iterations converge (§4.H), grounded on original_source's
// localSmooth: each row t is moved independently against its own row of
// the objective gradient (δ_t = −α·g_t), then projected onto any
// constraints active at t via P_t = H_tH_tᵀ.
type LocalOptimizer struct {
	alpha float64
}

// NewLocalOptimizer returns a LocalOptimizer using step size alpha.
func NewLocalOptimizer(alpha float64) *LocalOptimizer {
	return &LocalOptimizer{alpha: alpha}
}

// Step performs one local-smoothing sweep over every row of problem's
// trajectory, returning the maximum row-wise gradient norm observed (used
// by the caller's convergence check).
func (lo *LocalOptimizer) Step(problem *ProblemDescription) (maxGradNorm float64, err error) {
	xi := problem.rowsSlice()
	_, grad, evalErr := problem.EvaluateObjective()
	if evalErr != nil {
		return 0, evalErr
	}

	h, jac := problem.EvaluateConstraints()

	for t := range xi {
		g := grad[t]
		delta := make([]float64, len(g))
		for c := range g {
			delta[c] = -lo.alpha * g[c]
		}

		if len(h[t]) > 0 {
			projected, projErr := projectOntoConstraintNullspace(delta, jac[t])
			if projErr == nil {
				delta = projected
			}
			// A NumericalFailure here is recovered by falling back to the
			// unprojected step for this row only; the run is not aborted.
		}

		var normSq float64
		for _, v := range g {
			normSq += v * v
		}
		if n := sqrtOf(normSq); n > maxGradNorm {
			maxGradNorm = n
		}

		// Local smoothing's sign convention adds delta, the opposite of
		// the global update's subtraction (§4.H / §9 Open Question 1,
		// preserved rather than unified). xi indexes the trajectory's
		// active (possibly subsampled) view, so the update goes through
		// ActiveRowView rather than AddRow's real-row indexing.
		active := problem.trajectory.ActiveRowView(t)
		for c := range active {
			active[c] += delta[c]
		}
	}

	return maxGradNorm, nil
}

// projectOntoConstraintNullspace removes from delta the component lying in
// the row space of jacobian via P = I - Hᵀ(HHᵀ)⁻¹H, matching
// original_source's P_t = H_tH_tᵀ formulation for a single waypoint's
// small, dense constraint block.
func projectOntoConstraintNullspace(delta []float64, jacobian [][]float64) ([]float64, error) {
	k := len(jacobian)
	m := len(delta)
	if k == 0 {
		return delta, nil
	}

	hht := make([][]float64, k)
	for i := range hht {
		hht[i] = make([]float64, k)
		for j := range hht[i] {
			var dot float64
			for c := 0; c < m; c++ {
				dot += jacobian[i][c] * jacobian[j][c]
			}
			hht[i][j] = dot
		}
	}

	hDelta := make([]float64, k)
	for i := 0; i < k; i++ {
		var dot float64
		for c := 0; c < m; c++ {
			dot += jacobian[i][c] * delta[c]
		}
		hDelta[i] = dot
	}

	y, err := solveDenseSmall(hht, hDelta)
	if err != nil {
		return nil, err
	}

	out := append([]float64(nil), delta...)
	for i := 0; i < k; i++ {
		for c := 0; c < m; c++ {
			out[c] -= jacobian[i][c] * y[i]
		}
	}
	return out, nil
}

func sqrtOf(v float64) float64 {
	if v <= 0 {
		return 0
	}
	return math.Sqrt(v)
}
