// Package chomp implements CHOMP (Covariant Hamiltonian Optimization for
// Motion Planning): a trajectory optimizer that descends a smoothness
// energy and a caller-supplied collision cost jointly, using a metric
// derived from a banded finite-difference operator to precondition the
// gradient step. A MotionOptimizer drives the optimization across
// successive trajectory resolutions, doubling the waypoint count between
// levels until a target resolution is reached.
package chomp
