package chomp

// SmoothnessFunction evaluates the quadratic smoothness energy E(ξ) and its
// gradient, built once per resolution level from a Metric (§4.C). It is the
// "objective half" of ProblemDescription's combined objective; the
// collision half is supplied separately by a CollisionFunction.
type SmoothnessFunction struct {
	metric *Metric
}

// NewSmoothnessFunction wraps a already-factorized Metric.
func NewSmoothnessFunction(metric *Metric) *SmoothnessFunction {
	return &SmoothnessFunction{metric: metric}
}

// Evaluate returns E(ξ) = ½tr(ξᵀAξ) + tr(bᵀξ) + c for the given N×M
// trajectory rows.
func (s *SmoothnessFunction) Evaluate(xi [][]float64) float64 {
	aXi := s.metric.Multiply(xi)
	var quad, lin float64
	b := s.metric.B()
	for i := range xi {
		for c := range xi[i] {
			quad += xi[i][c] * aXi[i][c]
			lin += b[i][c] * xi[i][c]
		}
	}
	return 0.5*quad + lin + s.metric.C()
}

// Gradient returns ∇E(ξ) = Aξ + b, the accumulative gradient CHOMP adds to
// the collision gradient before the covariant/constrained update step.
func (s *SmoothnessFunction) Gradient(xi [][]float64) [][]float64 {
	aXi := s.metric.Multiply(xi)
	b := s.metric.B()
	grad := make([][]float64, len(xi))
	for i := range xi {
		grad[i] = make([]float64, len(xi[i]))
		for c := range xi[i] {
			grad[i][c] = aXi[i][c] + b[i][c]
		}
	}
	return grad
}

// Metric exposes the underlying metric, needed by the covariant update and
// by HMC's momentum sampling (both require the same A and its factor).
func (s *SmoothnessFunction) Metric() *Metric { return s.metric }
