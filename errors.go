package chomp

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorKind classifies the failure modes enumerated in the design notes:
// configuration mistakes are fatal at construction, the rest are soft and
// surfaced through RunStats/logging.
type ErrorKind int

const (
	// InvalidConfiguration is returned by the constructors and setters,
	// before any optimization runs: N_min > N_max in NewMotionOptimizer,
	// endpoint/column mismatches in NewTrajectory, or bounds of the wrong
	// length in ProblemDescription.SetBounds. Momentum's suspension while subsampling is active is a
	// per-iteration runtime gate, not a construction-time rejection; see
	// WithMomentum.
	InvalidConfiguration ErrorKind = iota
	// NumericalFailure covers a non-positive-definite skyline Cholesky
	// diagonal or a singular dense constraint-projection solve. Inside the
	// iteration loops it is recovered by skipping the offending step and
	// counted in RunStats; a failure to build the subsampled level's metric
	// is returned from Solve.
	NumericalFailure
	// TimedOut means the wall-clock deadline captured at Solve entry
	// elapsed; the caller still receives the current best trajectory.
	TimedOut
	// ObserverStop means the Observer requested early termination.
	ObserverStop
	// ConstraintSaturation means ‖h‖∞ failed to decrease across a
	// local-smoothing iteration; counted in RunStats, never fatal.
	ConstraintSaturation
)

func (k ErrorKind) String() string {
	switch k {
	case InvalidConfiguration:
		return "invalid configuration"
	case NumericalFailure:
		return "numerical failure"
	case TimedOut:
		return "timed out"
	case ObserverStop:
		return "observer stop"
	case ConstraintSaturation:
		return "constraint saturation"
	default:
		return "unknown"
	}
}

// Error is the single error type this package returns. Kind lets callers
// use errors.As and branch on ErrorKind without string matching.
type Error struct {
	Kind ErrorKind
	Op   string
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("chomp: %s: %s: %v", e.Op, e.Kind, e.err)
	}
	return fmt.Sprintf("chomp: %s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.err }

func newError(kind ErrorKind, op string, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, err: errors.Errorf(format, args...)}
}

func wrapError(kind ErrorKind, op string, cause error) *Error {
	return &Error{Kind: kind, Op: op, err: errors.WithStack(cause)}
}

// IsKind reports whether err is a *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// dimAgreement names how two matrices' dimensions must relate, following
// the same small enumeration the teacher's checkMatDims uses.
type dimAgreement int

const (
	rows2cols dimAgreement = iota + 1
	cols2rows
	rowsAndCols
)

// checkDims validates the (r1,c1) vs (r2,c2) relationship named by method
// and returns an *Error of kind InvalidConfiguration describing the
// mismatch, or nil.
func checkDims(op string, r1, c1, r2, c2 int, name1, name2 string, method dimAgreement) error {
	switch method {
	case rows2cols:
		if r1 != c2 {
			return newError(InvalidConfiguration, op, "dimensions must agree: %s(%dx...) %s(...x%d)", name1, r1, name2, c2)
		}
	case cols2rows:
		if c1 != r2 {
			return newError(InvalidConfiguration, op, "dimensions must agree: %s(...x%d) %s(%dx...)", name1, c1, name2, r2)
		}
	case rowsAndCols:
		if r1 != r2 || c1 != c2 {
			return newError(InvalidConfiguration, op, "dimensions must agree: %s(%dx%d) %s(%dx%d)", name1, r1, c1, name2, r2, c2)
		}
	}
	return nil
}
