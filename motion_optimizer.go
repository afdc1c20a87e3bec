package chomp

import "go.uber.org/zap"

// MotionOptimizer drives the multi-resolution CHOMP loop around a single
// ProblemDescription: optimize at the current resolution, upsample, repeat
// until N reaches the configured maximum (§4.I), grounded on
// original_source's MotionOptimizer::solve/optimize.
type MotionOptimizer struct {
	problem *ProblemDescription
	cfg     config
	stats   RunStats
}

// NewMotionOptimizer validates opts against problem's column count and
// returns a ready-to-run MotionOptimizer, or an InvalidConfiguration error
// (§10.3) if the configuration is inconsistent.
func NewMotionOptimizer(problem *ProblemDescription, opts ...Option) (*MotionOptimizer, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.validate(problem.Trajectory().Cols()); err != nil {
		return nil, err
	}
	return &MotionOptimizer{problem: problem, cfg: cfg}, nil
}

// Solve runs optimize-then-upsample until the trajectory reaches N_max,
// returning the final trajectory and the accumulated RunStats.
func (mo *MotionOptimizer) Solve() ([][]float64, RunStats, error) {
	for {
		if err := mo.optimize(); err != nil {
			return nil, mo.stats, err
		}

		n := mo.problem.Trajectory().Rows()
		if n >= mo.cfg.nMax {
			break
		}

		mo.problem.Trajectory().Upsample()
		mo.stats.Upsamples++
		mo.cfg.logger.Info("upsampled trajectory", zap.Int("n", mo.problem.Trajectory().Rows()))

		if mo.cfg.constrainedUpsample && !mo.problem.Constraints().Empty() {
			if err := mo.projectUpsampledOntoConstraints(); err != nil {
				mo.stats.NumericalFailures++
				mo.cfg.logger.Warn("constrained upsample projection failed", zap.Error(err))
			}
		}

		mo.problem.SetSmoothness(rebuildSmoothnessForCurrentResolution(mo.problem, mo.cfg.logger))
	}

	return fromDense(mo.problem.Trajectory().Dense()), mo.stats, nil
}

// optimize runs one resolution level's ChompOptimizer, subsampling first
// unless goal-set mode or a pinned full-global-at-final flag rules it out
// (§4.I, §12's full_global_at_final interaction).
func (mo *MotionOptimizer) optimize() error {
	n := mo.problem.Trajectory().Rows()
	atFinal := n >= mo.cfg.nMax

	mo.problem.SetCovariant(mo.cfg.useCovariant)

	if mo.problem.UseGoalset() {
		mo.problem.StartGoalSet()
	}

	shouldSubsample := n > mo.cfg.nMin && !mo.problem.UseGoalset() && !(mo.cfg.fullGlobalAtFinal && atFinal)
	if shouldSubsample {
		if err := mo.problem.Trajectory().Subsample(); err != nil {
			return err
		}
		defer func() {
			mo.problem.Trajectory().EndSubsample()
			mo.problem.SetCoarseSmoothness(nil)
		}()

		coarse, err := buildCoarseSmoothness(mo.problem, mo.cfg.logger)
		if err != nil {
			return err
		}
		mo.problem.SetCoarseSmoothness(coarse)
	}

	skipLocal := mo.cfg.fullGlobalAtFinal && atFinal

	optimizer := NewChompOptimizer(mo.problem, &mo.cfg, &mo.stats)
	if err := optimizer.Run(skipLocal); err != nil {
		return err
	}

	if mo.problem.UseGoalset() {
		mo.problem.FinishGoalSet()
	}
	return nil
}

// projectUpsampledOntoConstraints runs a damped Gauss-Newton correction
// (§12 WithConstrainedUpsampling) over every even-index waypoint, i.e. the
// rows the upsample interpolated (the previous rows sit at odd indices),
// pulling each back toward its constraint manifold after interpolation may
// have moved it off-manifold.
func (mo *MotionOptimizer) projectUpsampledOntoConstraints() error {
	traj := mo.problem.Trajectory()
	if err := traj.Subsample(); err != nil {
		return err
	}
	defer traj.EndSubsample()

	n := traj.ActiveRows()
	for iter := 0; ; iter++ {
		var maxH float64
		for t := 0; t < n; t++ {
			row := traj.ActiveRowView(t)
			h, jac := mo.problem.Constraints().Evaluate(realTickForActive(traj, t), row)
			if len(h) == 0 {
				continue
			}
			correction, err := gaussNewtonCorrection(h, jac)
			if err != nil {
				continue
			}
			for c := range row {
				row[c] += mo.cfg.upsampleHStep * correction[c]
			}
			for _, v := range h {
				if a := absFloat(v); a > maxH {
					maxH = a
				}
			}
		}
		if maxH < mo.cfg.upsampleHTol || iter > 25 {
			return nil
		}
	}
}

func realTickForActive(traj *Trajectory, activeIdx int) int {
	if traj.Subsampled() {
		return 2 * activeIdx
	}
	return activeIdx
}

// buildCoarseSmoothness builds the SmoothnessFunction over the trajectory's
// subsampled (every-other-waypoint) grid, with Δt doubled to match the
// coarser spacing (§4.I subsample).
func buildCoarseSmoothness(problem *ProblemDescription, logger *zap.Logger) (*SmoothnessFunction, error) {
	const op = "buildCoarseSmoothness"
	traj := problem.Trajectory()
	q0Rows := fromDense(traj.Q0())
	q1Rows := fromDense(traj.Q1())
	metric, err := NewMetric(traj.Objective(), traj.ActiveRows(), traj.Cols(), 2*traj.DeltaT(), q0Rows, q1Rows)
	if err != nil {
		return nil, wrapError(NumericalFailure, op, err)
	}
	return NewSmoothnessFunction(metric), nil
}

// rebuildSmoothnessForCurrentResolution reconstructs the SmoothnessFunction
// (and its underlying Metric/Cholesky factor) for the trajectory's current
// N and Δt, since both change on every upsample (§4.I "all cached matrices
// are invalidated").
func rebuildSmoothnessForCurrentResolution(problem *ProblemDescription, logger *zap.Logger) *SmoothnessFunction {
	traj := problem.Trajectory()
	q0Rows := fromDense(traj.Q0())
	q1Rows := fromDense(traj.Q1())
	metric, err := NewMetric(traj.Objective(), traj.Rows(), traj.Cols(), traj.DeltaT(), q0Rows, q1Rows)
	if err != nil {
		logger.Warn("failed to rebuild metric after upsample", zap.Error(err))
		return problem.smoothness
	}
	return NewSmoothnessFunction(metric)
}
