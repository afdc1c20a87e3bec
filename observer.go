package chomp

// Event identifies the phase transitions an Observer can be notified of
// (§6), mirroring original_source's notify() call sites.
type Event int

const (
	EventInit Event = iota
	EventGlobalIter
	EventLocalIter
	EventFinish
	EventTimeout
)

func (e Event) String() string {
	switch e {
	case EventInit:
		return "init"
	case EventGlobalIter:
		return "global_iter"
	case EventLocalIter:
		return "local_iter"
	case EventFinish:
		return "finish"
	case EventTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// IterationInfo is passed to an Observer at every notification point. It
// carries a Snapshot of the trajectory (never a live alias; see
// Trajectory.Snapshot), never the live trajectory itself, so an Observer
// cannot interfere with in-flight optimization.
type IterationInfo struct {
	Event       Event
	Iteration   int
	Objective   float64
	ConstraintNorm float64
	Trajectory  [][]float64
}

// Observer receives iteration notifications during Solve. Returning false
// from a global-iteration notification ends the global loop of the current
// resolution level; local smoothing and any remaining resolution levels
// still run. Returning false from a local-iteration notification ends that
// local-smoothing pass. Solve does not report the stop as an error.
type Observer interface {
	Notify(info IterationInfo) (keepGoing bool)
}

// ObserverFunc adapts a plain function to the Observer interface.
type ObserverFunc func(info IterationInfo) bool

func (f ObserverFunc) Notify(info IterationInfo) bool { return f(info) }
