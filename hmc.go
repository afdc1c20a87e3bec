package chomp

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
)

// HMCConfig configures the stochastic momentum kick (§4.J). T0/Decay
// implement the geometric cooling schedule T(k) = T0 * Decay^k (an Open
// Question resolved in DESIGN.md: the source material left the exact
// schedule unspecified).
type HMCConfig struct {
	T0    float64
	Decay float64
	Seed  uint64
}

// DefaultHMCConfig returns the package's default cooling schedule.
func DefaultHMCConfig() HMCConfig {
	return HMCConfig{T0: 1.0, Decay: 0.99, Seed: 1}
}

// hmcSampler draws a momentum kick from N(0, A⁻¹) and runs a single
// Metropolis-weighted leapfrog-free kick: CHOMP's HMC variant perturbs the
// trajectory directly by a metric-weighted Gaussian sample and accepts or
// rejects against the change in total (smoothness+collision) energy,
// rather than running multiple leapfrog steps — grounded on
// original_source's momentum/hmc fields being consulted once per
// prepareChompIter call, not as an inner integrator loop.
type hmcSampler struct {
	cfg  HMCConfig
	rng  *rand.Rand
	iter int
}

// newHMCSampler seeds a *rand.Rand the same way the teacher's AWGN noise
// model does (rand.New(rand.NewSource(seed))).
func newHMCSampler(cfg HMCConfig) *hmcSampler {
	return &hmcSampler{cfg: cfg, rng: rand.New(rand.NewSource(int64(cfg.Seed)))}
}

// temperature returns T(iteration) under the geometric cooling schedule.
func (h *hmcSampler) temperature() float64 {
	return h.cfg.T0 * math.Pow(h.cfg.Decay, float64(h.iter))
}

// sampleMomentum draws an N×M sample from N(0, A⁻¹) by sampling M
// independent N(0, A⁻¹) column vectors via the metric's Cholesky factor:
// if L Lᵀ = A, then L⁻ᵀ z ~ N(0, A⁻¹) for z ~ N(0, I). Grounded on the
// teacher's AWGN (noise.go), which draws from distmv.NewNormal built over
// a Cholesky-factorized covariance; here the covariance is A⁻¹ itself, so
// sampling reduces to drawing z ~ N(0, I) and back-substituting through L.
func (h *hmcSampler) sampleMomentum(metric *Metric) ([][]float64, error) {
	n := metric.a.n
	mean := make([]float64, n)
	identity := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		identity.SetSym(i, i, 1)
	}
	normal, ok := distmv.NewNormal(mean, identity, h.rng)
	if !ok {
		return nil, newError(NumericalFailure, "hmcSampler.sampleMomentum", "failed to construct standard normal sampler")
	}

	m := colsOfMetric(metric)
	z := make([][]float64, n)
	buf := make([]float64, n)
	for c := 0; c < m; c++ {
		normal.Rand(buf)
		for i := 0; i < n; i++ {
			if z[i] == nil {
				z[i] = make([]float64, m)
			}
			z[i][c] = buf[i]
		}
	}

	if metric.l == nil {
		return nil, newError(NumericalFailure, "hmcSampler.sampleMomentum", "metric has no valid Cholesky factorization")
	}
	return backSubstituteTranspose(metric.l, z), nil
}

// backSubstituteTranspose solves Lᵀ*x = rhs column by column.
func backSubstituteTranspose(l *bandedCholesky, rhs [][]float64) [][]float64 {
	n := l.n
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
		x := make([]float64, n)
		for i := n - 1; i >= 0; i-- {
			sum := col[i]
			hi := i + l.k
			if hi >= n {
				hi = n - 1
			}
			for j := i + 1; j <= hi; j++ {
				sum -= l.at(j, i) * x[j]
			}
			x[i] = sum / l.diag[i]
		}
		for i := 0; i < n; i++ {
			out[i][c] = x[i]
		}
	}
	return out
}

func colsOfMetric(metric *Metric) int { return metric.m }

// Kick proposes xi' = xi + scale*momentum (scale drawn from the current
// temperature) and accepts it under the Metropolis criterion
// min(1, exp(-(E'-E)/T)); on rejection xi is left untouched. The caller
// supplies the current energy to avoid a redundant evaluation.
func (h *hmcSampler) Kick(problem *ProblemDescription, currentEnergy float64) (accepted bool, err error) {
	metric := problem.activeSmoothness().Metric()
	momentum, err := h.sampleMomentum(metric)
	if err != nil {
		return false, err
	}

	t := h.temperature()
	scale := math.Sqrt(t)
	n := len(momentum)
	proposal := make([][]float64, n)
	original := make([][]float64, n)
	for i := 0; i < n; i++ {
		row := problem.trajectory.ActiveRowView(i)
		original[i] = append([]float64(nil), row...)
		proposal[i] = make([]float64, len(row))
		for c := range row {
			proposal[i][c] = row[c] + scale*momentum[i][c]
		}
		copy(row, proposal[i])
	}

	newCost, _, evalErr := problem.EvaluateObjective()
	h.iter++
	if evalErr != nil {
		// Restore and treat as a rejected kick; numerical trouble during
		// the trial evaluation should never corrupt the trajectory.
		for i := 0; i < n; i++ {
			copy(problem.trajectory.ActiveRowView(i), original[i])
		}
		return false, evalErr
	}

	deltaE := newCost - currentEnergy
	accept := deltaE <= 0
	if !accept && t > 0 {
		accept = math.Exp(-deltaE/t) > h.rng.Float64()
	}
	if !accept {
		for i := 0; i < n; i++ {
			copy(problem.trajectory.ActiveRowView(i), original[i])
		}
	}
	return accept, nil
}
