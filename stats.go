package chomp

import "gonum.org/v1/gonum/stat"

// RunStats aggregates the soft-failure counters and HMC acceptance record
// for a single Solve call, returned alongside the final trajectory (§7
// "counted and reported at FINISH"; §12 supplemented feature).
type RunStats struct {
	GlobalIterations int
	LocalIterations  int
	Upsamples        int

	NumericalFailures     int
	ConstraintSaturations int

	hmcAcceptances []float64 // 1 for accept, 0 for reject, per HMC kick
}

// recordHMC appends one HMC accept/reject outcome.
func (s *RunStats) recordHMC(accepted bool) {
	if accepted {
		s.hmcAcceptances = append(s.hmcAcceptances, 1)
	} else {
		s.hmcAcceptances = append(s.hmcAcceptances, 0)
	}
}

// HMCAcceptanceRate returns the mean and standard deviation of the
// accept/reject record across the run, via gonum/stat (the same
// Mean/StdDev aggregation style the teacher's Monte Carlo run summaries use).
func (s *RunStats) HMCAcceptanceRate() (mean, stddev float64) {
	if len(s.hmcAcceptances) == 0 {
		return 0, 0
	}
	mean = stat.Mean(s.hmcAcceptances, nil)
	stddev = stat.StdDev(s.hmcAcceptances, nil)
	return mean, stddev
}
