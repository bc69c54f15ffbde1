package vm

import "github.com/wudi/ember/value"

// SuspendReason distinguishes why Call/Resume stopped without completing or
// erroring (§5, §4.7): the driver inspects this to decide how to resume.
type SuspendReason byte

const (
	// SuspendYield means the running unit executed Yield/YieldUnit; Value
	// holds the yielded payload. Resume with the value sent back in, if
	// any, via Vm.Resume.
	SuspendYield SuspendReason = iota
	// SuspendAwait means the running unit executed Await on a value the Vm
	// cannot itself drive to completion (a host future); the driver must
	// step that future and call Vm.Resume with its result.
	SuspendAwait
	// SuspendSelect means the running unit executed Select over n
	// candidates; Candidates holds the polled values in instruction order.
	// The driver resumes by calling Vm.Resume with the index of the one
	// that completed and its value.
	SuspendSelect
)

func (r SuspendReason) String() string {
	switch r {
	case SuspendYield:
		return "yield"
	case SuspendAwait:
		return "await"
	case SuspendSelect:
		return "select"
	default:
		return "unknown"
	}
}

// Suspend reports a cooperative pause point (§5 "single-threaded,
// cooperatively scheduled"). A Vm that returns a non-nil Suspend from Call
// or Resume is not finished: its frame stack is left exactly as it was at the
// suspend point, ready for Vm.Resume.
type Suspend struct {
	Reason     SuspendReason
	Value      value.Value
	Candidates []value.Value
}
