package chomp

import "gonum.org/v1/gonum/mat"

// toDense packs a [][]float64 of n rows (each length m) into a *mat.Dense,
// the shape conversion needed at the boundary between the plain-slice
// numerical kernels (band.go, metric.go) and gonum-typed call sites
// (Trajectory.Update).
func toDense(rows [][]float64, n, m int) *mat.Dense {
	d := mat.NewDense(n, m, nil)
	for i := 0; i < n; i++ {
		copy(d.RawRowView(i), rows[i])
	}
	return d
}

// fromDense unpacks a *mat.Dense into a fresh [][]float64.
func fromDense(d *mat.Dense) [][]float64 {
	r, _ := d.Dims()
	out := make([][]float64, r)
	for i := 0; i < r; i++ {
		out[i] = append([]float64(nil), d.RawRowView(i)...)
	}
	return out
}
