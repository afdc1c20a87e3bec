package chomp

import (
	"math"
	"sort"
)

// Constraint is a single equality constraint h(q) = 0 evaluated at one
// trajectory waypoint, with its Jacobian H = ∂h/∂q (§4.E). Dimension() is
// the number of scalar constraints this Constraint imposes on a single row.
type Constraint interface {
	Dimension() int
	Evaluate(q []float64) (h []float64, jacobian [][]float64)
}

// PointConstraint pins a waypoint to a fixed value, h(q) = q - target.
// Grounded on the goal-set/pinning use named in original_source's
// ConstraintFactory usage (a single-row equality at a chosen tick).
type PointConstraint struct {
	target []float64
}

// NewPointConstraint returns a Constraint that pins a row to target.
func NewPointConstraint(target []float64) *PointConstraint {
	return &PointConstraint{target: append([]float64(nil), target...)}
}

func (p *PointConstraint) Dimension() int { return len(p.target) }

func (p *PointConstraint) Evaluate(q []float64) ([]float64, [][]float64) {
	h := make([]float64, len(p.target))
	jac := make([][]float64, len(p.target))
	for i := range p.target {
		h[i] = q[i] - p.target[i]
		jac[i] = make([]float64, len(q))
		jac[i][i] = 1
	}
	return h, jac
}

// LineConstraint restricts a waypoint to lie on the line through point
// with direction dir (‖dir‖ need not be 1): h(q) = P(q - point), where P
// projects out the component along dir. Grounded on original_source's
// goal-set line-segment scenario (§9 scenario S6).
type LineConstraint struct {
	point, dir []float64
	dirNormSq  float64
}

// NewLineConstraint builds a constraint pinning a waypoint to the line
// through point along dir.
func NewLineConstraint(point, dir []float64) *LineConstraint {
	var normSq float64
	for _, d := range dir {
		normSq += d * d
	}
	return &LineConstraint{
		point:     append([]float64(nil), point...),
		dir:       append([]float64(nil), dir...),
		dirNormSq: normSq,
	}
}

func (l *LineConstraint) Dimension() int { return len(l.point) - 1 }

// Evaluate projects (q - point) orthogonal to dir, yielding len(q)-1
// independent scalar constraints via an arbitrary orthonormal complement.
// The complement is built once per call by Gram-Schmidt against dir; this
// trades a little recomputation for not needing to cache per-instance
// basis state.
func (l *LineConstraint) Evaluate(q []float64) ([]float64, [][]float64) {
	m := len(q)
	diff := make([]float64, m)
	for i := range q {
		diff[i] = q[i] - l.point[i]
	}

	basis := orthonormalComplement(l.dir)
	h := make([]float64, len(basis))
	jac := make([][]float64, len(basis))
	for r, e := range basis {
		var dot float64
		for i := range diff {
			dot += e[i] * diff[i]
		}
		h[r] = dot
		jac[r] = append([]float64(nil), e...)
	}
	return h, jac
}

// orthonormalComplement returns m-1 unit vectors spanning the orthogonal
// complement of dir in R^m, via Gram-Schmidt against the standard basis.
func orthonormalComplement(dir []float64) [][]float64 {
	m := len(dir)
	u := normalize(dir)
	var basis [][]float64
	for i := 0; i < m && len(basis) < m-1; i++ {
		e := make([]float64, m)
		e[i] = 1
		var dot float64
		for j := range e {
			dot += e[j] * u[j]
		}
		for j := range e {
			e[j] -= dot * u[j]
		}
		for _, b := range basis {
			var d float64
			for j := range e {
				d += e[j] * b[j]
			}
			for j := range e {
				e[j] -= d * b[j]
			}
		}
		if n := normalize(e); vecNormSq(n) > 1e-12 {
			basis = append(basis, n)
		}
	}
	return basis
}

func normalize(v []float64) []float64 {
	var normSq float64
	for _, x := range v {
		normSq += x * x
	}
	out := append([]float64(nil), v...)
	if normSq < 1e-18 {
		return out
	}
	norm := math.Sqrt(normSq)
	for i := range out {
		out[i] /= norm
	}
	return out
}

func vecNormSq(v []float64) float64 {
	var s float64
	for _, x := range v {
		s += x * x
	}
	return s
}

// gaussNewtonCorrection computes the minimum-norm step -Hᵀ(HHᵀ)⁻¹h that
// drives a waypoint back toward h(q)=0 to first order, the damped
// Gauss-Newton correction the post-upsample constraint projection (§12)
// applies once per previously-existing waypoint.
func gaussNewtonCorrection(h []float64, jacobian [][]float64) ([]float64, error) {
	k := len(jacobian)
	if k == 0 {
		return nil, nil
	}
	m := len(jacobian[0])

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

	y, err := solveDenseSmall(hht, h)
	if err != nil {
		return nil, err
	}

	out := make([]float64, m)
	for i := 0; i < k; i++ {
		for c := 0; c < m; c++ {
			out[c] -= jacobian[i][c] * y[i]
		}
	}
	return out, nil
}

// constraintInterval binds a Constraint to the half-open tick range
// [Start, Stop) it applies over (§4.E ConstraintInterval).
type constraintInterval struct {
	start, stop int
	constraint  Constraint
}

// ConstraintFactory assembles the per-tick constraint list a ChompOptimizer
// consults during the constrained update (§4.G), grounded on
// original_source's ConstraintFactory/ConstraintInterval.
type ConstraintFactory struct {
	intervals []constraintInterval
}

// NewConstraintFactory returns an empty factory.
func NewConstraintFactory() *ConstraintFactory { return &ConstraintFactory{} }

// AddConstraint registers constraint over the half-open tick range
// [start, stop). Intervals are kept sorted by start, matching the
// factory's original "sorted by start" invariant.
func (f *ConstraintFactory) AddConstraint(start, stop int, constraint Constraint) {
	f.intervals = append(f.intervals, constraintInterval{start: start, stop: stop, constraint: constraint})
	sort.Slice(f.intervals, func(i, j int) bool { return f.intervals[i].start < f.intervals[j].start })
}

// At returns every constraint active at tick, in registration order.
func (f *ConstraintFactory) At(tick int) []Constraint {
	var out []Constraint
	for _, iv := range f.intervals {
		if tick >= iv.start && tick < iv.stop {
			out = append(out, iv.constraint)
		}
	}
	return out
}

// Empty reports whether no constraints have been registered at all.
func (f *ConstraintFactory) Empty() bool { return len(f.intervals) == 0 }

// Evaluate stacks h and H for every constraint active at tick against row
// q, returning a combined h vector and Jacobian block.
func (f *ConstraintFactory) Evaluate(tick int, q []float64) (h []float64, jacobian [][]float64) {
	for _, c := range f.At(tick) {
		ch, cj := c.Evaluate(q)
		h = append(h, ch...)
		jacobian = append(jacobian, cj...)
	}
	return h, jacobian
}
