package chomp

import (
	"time"

	"go.uber.org/zap"
)

// chompPhase names the states of the per-resolution run loop (§4.G),
// grounded on original_source's runChomp/iterateChomp state progression.
type chompPhase int

const (
	phaseInit chompPhase = iota
	phaseGlobalIter
	phaseGoalSetFinish
	phaseLocalIter
	phaseFinish
)

// ChompOptimizer runs the global (and optional local) iteration loop for a
// single resolution level of a ProblemDescription (§4.G). MotionOptimizer
// owns the multi-resolution driver around it.
type ChompOptimizer struct {
	problem *ProblemDescription
	cfg     *config
	logger  *zap.Logger
	stats   *RunStats
	hmc     *hmcSampler

	lastObjective float64
	momentum      [][]float64
	deadline      time.Time
}

// NewChompOptimizer builds a ChompOptimizer for one resolution level.
func NewChompOptimizer(problem *ProblemDescription, cfg *config, stats *RunStats) *ChompOptimizer {
	var hmc *hmcSampler
	if cfg.useHMC {
		hmc = newHMCSampler(cfg.hmcCfg)
	}
	deadline := time.Time{}
	if cfg.timeout > 0 {
		deadline = time.Now().Add(cfg.timeout)
	}
	return &ChompOptimizer{
		problem:  problem,
		cfg:      cfg,
		logger:   cfg.logger,
		stats:    stats,
		hmc:      hmc,
		deadline: deadline,
	}
}

// Run drives the global-iteration loop to convergence, timeout, or an
// observer-requested stop, then (unless suppressed) the local-smoothing
// pass, matching original_source's runChomp.
func (o *ChompOptimizer) Run(skipLocal bool) error {
	phase := phaseInit
	o.notify(EventInit, 0, 0, 0)

	if o.problem.UseGoalset() {
		phase = phaseGoalSetFinish
	} else {
		phase = phaseGlobalIter
	}

	iter := 0
	for phase == phaseGlobalIter || phase == phaseGoalSetFinish {
		if o.timedOut() {
			o.notify(EventTimeout, iter, o.lastObjective, 0)
			phase = phaseFinish
			break
		}

		cost, converged, err := o.globalStep()
		if err != nil {
			return err
		}
		iter++
		o.stats.GlobalIterations++

		constraintNorm := o.constraintNormInf()
		if !o.notify(EventGlobalIter, iter, cost, constraintNorm) {
			phase = phaseFinish
			break
		}

		if phase == phaseGoalSetFinish {
			phase = phaseGlobalIter
		}

		if converged || iter >= o.cfg.maxIters {
			phase = phaseFinish
			break
		}
	}

	if phase == phaseFinish && !skipLocal {
		if err := o.localPhase(); err != nil {
			return err
		}
	}

	o.notify(EventFinish, iter, o.lastObjective, o.constraintNormInf())
	return nil
}

// globalStep performs one unconstrained-or-constrained covariant gradient
// step plus optional momentum accumulation and HMC kick. It returns the
// objective value evaluated at the start of the step, before the update is
// applied, and whether its relative change from the previous step's value
// fell under tolerance (§4.G goodEnough).
func (o *ChompOptimizer) globalStep() (cost float64, converged bool, err error) {
	cost, grad, err := o.problem.EvaluateObjective()
	if err != nil {
		o.stats.NumericalFailures++
		o.logger.Warn("objective evaluation failed, skipping iteration", zap.Error(err))
		return o.lastObjective, false, nil
	}

	delta, err := o.computeUpdate(grad)
	if err != nil {
		o.stats.NumericalFailures++
		o.logger.Warn("update solve failed, skipping iteration", zap.Error(err))
		return cost, false, nil
	}

	for i := range delta {
		for c := range delta[i] {
			delta[i][c] *= o.cfg.alpha
		}
	}

	if o.cfg.useMomentum && !o.problem.Trajectory().Subsampled() {
		delta = o.applyMomentum(delta)
	}

	if err := o.problem.UpdateTrajectory(delta); err != nil {
		return cost, false, err
	}

	if o.hmc != nil {
		current, _, hmcErr := o.problem.EvaluateObjective()
		accepted := false
		if hmcErr == nil {
			accepted, hmcErr = o.hmc.Kick(o.problem, current)
		}
		if hmcErr != nil {
			o.stats.NumericalFailures++
			o.logger.Warn("hmc kick failed", zap.Error(hmcErr))
		} else {
			o.stats.recordHMC(accepted)
		}
	}

	relChange := relErr(cost, o.lastObjective)
	o.lastObjective = cost
	converged = relChange < o.cfg.objRelErrTol
	return cost, converged, nil
}

// computeUpdate dispatches to the unconstrained or constrained update
// depending on whether any constraints are active (§4.G step 2/3): solve
// A·Δ = g via the metric's skyline Cholesky factor, matching
// original_source's skylineCholSolve(L_which, g_which). Under covariant
// reparameterization grad has already been premultiplied by L⁻¹
// (ProblemDescription.EvaluateObjective), which plays the preconditioning
// role the explicit solve would otherwise provide, so the solve is skipped
// in that case to avoid applying A⁻¹ twice.
func (o *ChompOptimizer) computeUpdate(grad [][]float64) ([][]float64, error) {
	if o.problem.Constraints().Empty() {
		if o.problem.Covariant() {
			return grad, nil
		}
		return o.problem.activeSmoothness().Metric().SolveDense(grad)
	}

	h, jacobian := o.problem.EvaluateConstraints()
	return o.constrainedUpdate(grad, h, jacobian)
}

// constrainedUpdate implements the projected-CHOMP step of §4.G:
// P = A⁻¹Hᵀ, S = H·P, Y = S⁻¹(H·A⁻¹g − h), Δ = A⁻¹g − P·Y. The H·A⁻¹g part
// of Y projects the metric step onto the constraint tangent space; the −h
// part adds the constraint-restoring step P·S⁻¹h. globalStep scales the
// whole Δ by α, so for linear constraints each iteration shrinks h by the
// factor (1−α). Every constraint here acts on a single
// waypoint, so H is block-diagonal across rows and A⁻¹Hᵀ's column for a
// constraint at row t reduces to z_t := A⁻¹e_t (one banded solve per
// distinct constrained row) scaled by that constraint's Jacobian row;
// S[i][j] then collapses to z_{t_j}[t_i]·(jac_i·jac_j).
func (o *ChompOptimizer) constrainedUpdate(grad, h [][]float64, jacobian [][][]float64) ([][]float64, error) {
	metric := o.problem.activeSmoothness().Metric()
	p, err := metric.SolveDense(grad)
	if err != nil {
		return nil, err
	}

	n := len(grad)
	type constraintRef struct {
		row int
		jac []float64
		h   float64
	}
	var refs []constraintRef
	for t := 0; t < n; t++ {
		for i, jr := range jacobian[t] {
			refs = append(refs, constraintRef{row: t, jac: jr, h: h[t][i]})
		}
	}
	totalK := len(refs)
	if totalK == 0 {
		return p, nil
	}

	z := make(map[int][]float64, totalK)
	for _, r := range refs {
		if _, ok := z[r.row]; ok {
			continue
		}
		e := make([]float64, n)
		e[r.row] = 1
		sol, err := metric.Solve(e)
		if err != nil {
			return nil, err
		}
		z[r.row] = sol
	}

	s := make([][]float64, totalK)
	for i := range s {
		s[i] = make([]float64, totalK)
	}
	hp := make([]float64, totalK)
	for i, ri := range refs {
		hp[i] = dotProduct(ri.jac, p[ri.row]) - ri.h
		for j, rj := range refs {
			s[i][j] = z[rj.row][ri.row] * dotProduct(ri.jac, rj.jac)
		}
	}

	y, err := solveDenseSmall(s, hp)
	if err != nil {
		return nil, err
	}

	out := make([][]float64, n)
	for t := range out {
		out[t] = append([]float64(nil), p[t]...)
	}
	for i, ri := range refs {
		zt := z[ri.row]
		yi := y[i]
		for t := 0; t < n; t++ {
			if zt[t] == 0 {
				continue
			}
			scale := zt[t] * yi
			for c := range ri.jac {
				out[t][c] -= scale * ri.jac[c]
			}
		}
	}
	return out, nil
}

func dotProduct(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// applyMomentum accumulates the already-solved, α-scaled step delta onto the
// running momentum (momentum ← decay·momentum + delta) and returns the
// momentum as the step actually applied, matching §4.G's "accumulate on the
// solved step" formulation rather than an exponential average of the raw
// gradient.
func (o *ChompOptimizer) applyMomentum(delta [][]float64) [][]float64 {
	if o.momentum == nil {
		o.momentum = make([][]float64, len(delta))
		for i := range delta {
			o.momentum[i] = append([]float64(nil), delta[i]...)
		}
		return o.momentum
	}
	decay := o.cfg.momentumDecay
	for i := range delta {
		for c := range delta[i] {
			o.momentum[i][c] = decay*o.momentum[i][c] + delta[i][c]
		}
	}
	return o.momentum
}

// localPhase runs the local-smoothing pass and watches for constraint
// saturation (§7: ‖h‖∞ failing to decrease over the window).
func (o *ChompOptimizer) localPhase() error {
	lo := NewLocalOptimizer(o.cfg.alpha)
	prevNorm := o.constraintNormInf()
	for iter := 1; iter <= o.cfg.maxIters; iter++ {
		if o.timedOut() {
			o.notify(EventTimeout, iter, o.lastObjective, prevNorm)
			return nil
		}
		gradNorm, err := lo.Step(o.problem)
		if err != nil {
			o.stats.NumericalFailures++
			o.logger.Warn("local smoothing step failed", zap.Error(err))
			continue
		}
		o.stats.LocalIterations++

		newNorm := o.constraintNormInf()
		if newNorm >= prevNorm {
			o.stats.ConstraintSaturations++
		}
		prevNorm = newNorm

		if !o.notify(EventLocalIter, iter, gradNorm, newNorm) {
			return nil
		}
		if gradNorm < o.cfg.objRelErrTol {
			break
		}
	}
	return nil
}

// constraintNormInf returns ‖h‖∞ across every active constraint.
func (o *ChompOptimizer) constraintNormInf() float64 {
	h, _ := o.problem.EvaluateConstraints()
	var maxAbs float64
	for _, row := range h {
		for _, v := range row {
			if a := absFloat(v); a > maxAbs {
				maxAbs = a
			}
		}
	}
	return maxAbs
}

func (o *ChompOptimizer) timedOut() bool {
	return !o.deadline.IsZero() && time.Now().After(o.deadline)
}

func (o *ChompOptimizer) notify(event Event, iter int, objective, constraintNorm float64) bool {
	if o.cfg.observer == nil {
		return true
	}
	return o.cfg.observer.Notify(IterationInfo{
		Event:          event,
		Iteration:      iter,
		Objective:      objective,
		ConstraintNorm: constraintNorm,
		Trajectory:     fromDense(o.problem.trajectory.Snapshot()),
	})
}

func relErr(current, previous float64) float64 {
	if previous == 0 {
		return 1
	}
	d := current - previous
	if d < 0 {
		d = -d
	}
	return d / absFloat(previous)
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
