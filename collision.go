package chomp

// CollisionFunction is the caller-supplied cost term CHOMP descends
// alongside smoothness (§4.D). Concrete obstacle representations, distance
// fields, and workspace geometry are out of scope here; callers implement
// this interface against their own environment model.
type CollisionFunction interface {
	// Evaluate returns the collision cost and its gradient with respect to
	// every row of xi (an N×M trajectory). Both the cost and the gradient
	// must be finite; a CollisionFunction that cannot evaluate at a given
	// configuration should return a large finite cost and a gradient that
	// points away from it, never NaN/Inf.
	Evaluate(xi [][]float64) (cost float64, gradient [][]float64)
}

// NoCollisionFunction is the zero-cost CollisionFunction, useful for
// pure-smoothness runs (scenarios S1/S2) and as a default when a problem
// has no environment to avoid.
type NoCollisionFunction struct{}

// Evaluate always returns zero cost and a zero gradient shaped to xi.
func (NoCollisionFunction) Evaluate(xi [][]float64) (float64, [][]float64) {
	grad := make([][]float64, len(xi))
	for i := range xi {
		if len(xi) > 0 {
			grad[i] = make([]float64, len(xi[i]))
		}
	}
	return 0, grad
}
