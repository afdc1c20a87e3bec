package chomp

// ProblemDescription aggregates a Trajectory, its current-resolution
// SmoothnessFunction, a CollisionFunction, a ConstraintFactory, and the
// covariant/goal-set flags that together describe one CHOMP run (§4.F),
// grounded on original_source's ProblemDescription/ProblemDescription-inl.
type ProblemDescription struct {
	trajectory *Trajectory
	// smoothness is built at the trajectory's current full resolution.
	// coarseSmoothness, when non-nil, is built over the subsampled (every
	// other waypoint) grid and is used instead whenever the trajectory's
	// subsampled view is active — the two operate on grids of different
	// size and Δt and are never interchangeable (§4.I).
	smoothness       *SmoothnessFunction
	coarseSmoothness *SmoothnessFunction
	collision        CollisionFunction
	constraints      *ConstraintFactory

	lowerBounds, upperBounds []float64
	useGoalset               bool
	isCovariant              bool
	obj                      ObjectiveType
}

// NewProblemDescription builds a problem around an already-constructed
// trajectory and smoothness function. collision may be nil, in which case
// NoCollisionFunction is used.
func NewProblemDescription(obj ObjectiveType, trajectory *Trajectory, smoothness *SmoothnessFunction, collision CollisionFunction, constraints *ConstraintFactory) *ProblemDescription {
	if collision == nil {
		collision = NoCollisionFunction{}
	}
	if constraints == nil {
		constraints = NewConstraintFactory()
	}
	return &ProblemDescription{
		obj:         obj,
		trajectory:  trajectory,
		smoothness:  smoothness,
		collision:   collision,
		constraints: constraints,
	}
}

// Trajectory returns the problem's trajectory.
func (p *ProblemDescription) Trajectory() *Trajectory { return p.trajectory }

// SetCoarseSmoothness installs the SmoothnessFunction used while the
// trajectory's subsampled view is active. Pass nil to clear it (forcing a
// fall back to the full-resolution smoothness, which should not happen
// while genuinely subsampled).
func (p *ProblemDescription) SetCoarseSmoothness(s *SmoothnessFunction) { p.coarseSmoothness = s }

// SetSmoothness replaces the full-resolution SmoothnessFunction, used
// after every upsample once the metric has been rebuilt for the new Δt/N.
func (p *ProblemDescription) SetSmoothness(s *SmoothnessFunction) { p.smoothness = s }

// activeSmoothness returns the SmoothnessFunction matching the
// trajectory's current view (subsampled or full).
func (p *ProblemDescription) activeSmoothness() *SmoothnessFunction {
	if p.trajectory.Subsampled() && p.coarseSmoothness != nil {
		return p.coarseSmoothness
	}
	return p.smoothness
}

// Constraints returns the problem's constraint factory.
func (p *ProblemDescription) Constraints() *ConstraintFactory { return p.constraints }

// SetCovariant enables or disables covariant (metric-preconditioned)
// gradient reparameterization (§4.F/§9 Open Question 2).
func (p *ProblemDescription) SetCovariant(v bool) { p.isCovariant = v }

// Covariant reports whether covariant reparameterization is active.
func (p *ProblemDescription) Covariant() bool { return p.isCovariant }

// SetBounds installs per-dimension lower/upper bounds, each of length
// trajectory.Cols(). A nil slice clears that bound.
func (p *ProblemDescription) SetBounds(lower, upper []float64) error {
	const op = "ProblemDescription.SetBounds"
	m := p.trajectory.Cols()
	if lower != nil && len(lower) != m {
		return newError(InvalidConfiguration, op, "lower bounds length %d does not match column count %d", len(lower), m)
	}
	if upper != nil && len(upper) != m {
		return newError(InvalidConfiguration, op, "upper bounds length %d does not match column count %d", len(upper), m)
	}
	p.lowerBounds, p.upperBounds = lower, upper
	return nil
}

// ClampToBounds clips every row of the trajectory into [lower, upper],
// in place, a no-op if no bounds were set.
func (p *ProblemDescription) ClampToBounds() {
	if p.lowerBounds == nil && p.upperBounds == nil {
		return
	}
	n := p.trajectory.Rows()
	for t := 0; t < n; t++ {
		row := p.trajectory.RowView(t)
		for c := range row {
			if p.lowerBounds != nil && row[c] < p.lowerBounds[c] {
				row[c] = p.lowerBounds[c]
			}
			if p.upperBounds != nil && row[c] > p.upperBounds[c] {
				row[c] = p.upperBounds[c]
			}
		}
	}
}

// UseGoalset reports whether the problem is currently in goal-set mode.
func (p *ProblemDescription) UseGoalset() bool { return p.useGoalset }

// StartGoalSet appends a free final waypoint to the trajectory and marks
// goal-set mode active (§4.G).
func (p *ProblemDescription) StartGoalSet() {
	p.trajectory.StartGoalSet()
	p.useGoalset = true
}

// FinishGoalSet folds the free final waypoint back into the fixed boundary
// and clears goal-set mode.
func (p *ProblemDescription) FinishGoalSet() {
	p.trajectory.EndGoalSet()
	p.useGoalset = false
}

// rowsSlice returns the trajectory's active (possibly subsampled) rows as
// a [][]float64, the shape SmoothnessFunction/CollisionFunction expect.
func (p *ProblemDescription) rowsSlice() [][]float64 {
	n := p.trajectory.ActiveRows()
	out := make([][]float64, n)
	for i := 0; i < n; i++ {
		out[i] = p.trajectory.ActiveRowView(i)
	}
	return out
}

// EvaluateObjective returns the combined smoothness+collision cost and
// gradient at the trajectory's current state. When covariant
// reparameterization is active, the returned gradient has been
// premultiplied by the metric's L⁻¹ (§4.F: g' = L⁻¹(A ξ + b + collisionGrad)).
func (p *ProblemDescription) EvaluateObjective() (cost float64, gradient [][]float64, err error) {
	smoothness := p.activeSmoothness()
	xi := p.rowsSlice()
	smoothCost := smoothness.Evaluate(xi)
	smoothGrad := smoothness.Gradient(xi)
	collCost, collGrad := p.collision.Evaluate(xi)

	grad := make([][]float64, len(xi))
	for i := range xi {
		grad[i] = make([]float64, len(xi[i]))
		for c := range xi[i] {
			grad[i][c] = smoothGrad[i][c]
			if collGrad != nil && i < len(collGrad) && collGrad[i] != nil {
				grad[i][c] += collGrad[i][c]
			}
		}
	}

	if p.isCovariant {
		grad, err = smoothness.Metric().MultiplyLowerInverse(grad)
		if err != nil {
			return 0, nil, err
		}
	}

	return smoothCost + collCost, grad, nil
}

// EvaluateConstraints evaluates every active-tick constraint over the
// trajectory's current active rows, returning one h/jacobian pair per active
// row (nil entries for unconstrained rows). Each active row is looked up in
// the factory at its real tick, so a subsampled view sees the constraints of
// rows 0,2,4,….
func (p *ProblemDescription) EvaluateConstraints() (h [][]float64, jacobian [][][]float64) {
	xi := p.rowsSlice()
	h = make([][]float64, len(xi))
	jacobian = make([][][]float64, len(xi))
	for t := range xi {
		if p.constraints.Empty() {
			continue
		}
		ch, cj := p.constraints.Evaluate(realTickForActive(p.trajectory, t), xi[t])
		if len(ch) == 0 {
			continue
		}
		h[t] = ch
		jacobian[t] = cj
	}
	return h, jacobian
}

// UpdateTrajectory applies delta (one row per active trajectory row) to
// the trajectory via its Update method, so a subsampled view updates only
// its even rows. In covariant mode delta is applied to ξ as given; no
// change of coordinates happens here.
func (p *ProblemDescription) UpdateTrajectory(delta [][]float64) error {
	n, m := len(delta), p.trajectory.Cols()
	dense := toDense(delta, n, m)
	return p.trajectory.Update(dense)
}
