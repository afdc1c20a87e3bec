package chomp

import (
	"time"

	"go.uber.org/zap"
)

// Defaults named in §6, applied before the caller's Options.
const (
	DefaultObsTol   = 1e-6
	DefaultAlpha    = 0.1
	DefaultNMin     = 7
	DefaultMaxIters = 100
)

// Algorithm selects the optimizer used by MotionOptimizer.Solve. Only CHOMP
// is implemented in this package; the NLopt tags are reserved so a future
// adapter package can extend the enum's meaning without breaking callers
// that switch on it.
type Algorithm int

const (
	CHOMP Algorithm = iota
	nloptReserved
)

// config collects every knob Option can set, with validated defaults
// applied by NewMotionOptimizer before any Option runs.
type config struct {
	algorithm Algorithm

	alpha        float64
	objRelErrTol float64
	nMin, nMax   int
	maxIters     int
	timeout      time.Duration

	useMomentum   bool
	momentumDecay float64

	useHMC bool
	hmcCfg HMCConfig

	useCovariant bool

	fullGlobalAtFinal bool

	constrainedUpsample     bool
	upsampleHTol, upsampleHStep float64

	logger   *zap.Logger
	observer Observer
}

func defaultConfig() config {
	return config{
		algorithm:     CHOMP,
		alpha:         DefaultAlpha,
		objRelErrTol:  DefaultObsTol,
		nMin:          DefaultNMin,
		nMax:          DefaultNMin,
		maxIters:      DefaultMaxIters,
		momentumDecay: 0.5,
		hmcCfg:        DefaultHMCConfig(),
		logger:        zap.NewNop(),
	}
}

// Option configures a MotionOptimizer at construction time.
type Option func(*config)

// WithAlpha sets the CHOMP step size α (§4.G).
func WithAlpha(alpha float64) Option { return func(c *config) { c.alpha = alpha } }

// WithObjectiveTolerance sets the relative-objective-change convergence
// tolerance (§4.G goodEnough).
func WithObjectiveTolerance(tol float64) Option { return func(c *config) { c.objRelErrTol = tol } }

// WithResolutionRange sets N_min/N_max, the multi-resolution bounds driving
// MotionOptimizer's upsample loop (§4.I).
func WithResolutionRange(nMin, nMax int) Option {
	return func(c *config) { c.nMin, c.nMax = nMin, nMax }
}

// WithMaxIterations caps the number of global iterations per resolution
// level.
func WithMaxIterations(n int) Option { return func(c *config) { c.maxIters = n } }

// WithTimeout sets a wall-clock limit (§7 TimedOut). The deadline is taken
// anew when each resolution level's ChompOptimizer is built, so it bounds
// each level separately, not the whole Solve call.
func WithTimeout(d time.Duration) Option { return func(c *config) { c.timeout = d } }

// WithMomentum enables momentum accumulation on the solved update step
// (momentum ← decay·momentum + Δ, ξ ← ξ − momentum; §4.G), with decay in
// [0,1). Momentum is suspended for any global iteration running against a
// subsampled trajectory (§4.G "momentum is disabled whenever subsampling is
// active") rather than rejected at construction time, since subsampling is a
// per-iteration, not a per-run, state.
func WithMomentum(decay float64) Option {
	return func(c *config) { c.useMomentum, c.momentumDecay = true, decay }
}

// WithCovariant enables the covariant (metric-preconditioned) gradient
// reparameterization of §4.F for every resolution level.
func WithCovariant() Option {
	return func(c *config) { c.useCovariant = true }
}

// WithHMC enables the stochastic momentum kick with the given cooling
// schedule (§4.J).
func WithHMC(cfg HMCConfig) Option {
	return func(c *config) { c.useHMC, c.hmcCfg = true, cfg }
}

// WithFullGlobalAtFinal pins a full global (non-subsampled) iteration pass
// and skips local smoothing at the final resolution level (§12).
func WithFullGlobalAtFinal() Option { return func(c *config) { c.fullGlobalAtFinal = true } }

// WithConstrainedUpsampling enables the post-upsample constraint
// projection step recovered from original_source (§12 supplemented
// feature); htol is the ‖h‖∞ convergence tolerance for the damped
// Gauss-Newton correction and hstep its step damping factor.
func WithConstrainedUpsampling(htol, hstep float64) Option {
	return func(c *config) {
		c.constrainedUpsample = true
		c.upsampleHTol, c.upsampleHStep = htol, hstep
	}
}

// WithLogger injects a structured logger; the default is zap.NewNop().
func WithLogger(logger *zap.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithObserver installs an Observer notified at every §6 event.
func WithObserver(o Observer) Option { return func(c *config) { c.observer = o } }

// validate checks the conflicts named in §7/§10.3.
func (c *config) validate(m int) error {
	const op = "MotionOptimizer.validate"
	if c.algorithm != CHOMP {
		return newError(InvalidConfiguration, op, "only the CHOMP algorithm is implemented")
	}
	if c.nMin > c.nMax {
		return newError(InvalidConfiguration, op, "n_min (%d) must not exceed n_max (%d)", c.nMin, c.nMax)
	}
	if c.nMin <= 0 {
		return newError(InvalidConfiguration, op, "n_min must be positive, got %d", c.nMin)
	}
	if c.useMomentum && (c.momentumDecay < 0 || c.momentumDecay >= 1) {
		return newError(InvalidConfiguration, op, "momentum decay must be in [0,1), got %f", c.momentumDecay)
	}
	return nil
}
