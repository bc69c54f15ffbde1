// Cross-VM call materialization (§4.7, §5): a call to a function declared
// with a non-immediate call convention (CallAsync/CallGenerator/
// CallStream) does not push a frame on the calling Vm. Instead it parks a
// freshly built child Vm behind a WrapperHandle and immediately returns a
// Future/Generator/Stream value, the way calling a generator function
// returns a generator object without running any of its body. Grounded on
// the teacher's channel-backed Goroutine value
// (_examples/wudi-hey/runtime/concurrency.go's values.Goroutine /
// GoroutineManager), generalized from a real OS goroutine handle to a
// cooperatively-stepped child Vm per §5's "script-level concurrency
// compiles to additional VMs driven cooperatively, not real threads"
// decision.
package vm

import (
	"github.com/wudi/ember/rhash"
	"github.com/wudi/ember/unit"
	"github.com/wudi/ember/value"
	"github.com/wudi/ember/vmerror"
)

// Pollable is satisfied by anything a Future value may wrap: the
// cooperative WrapperHandle backing a script `async` block, or a
// host-native future backed by a real goroutine (the only goroutine
// boundary §5 allows). Poll never blocks forever on a cooperative handle;
// a host future's Poll is free to block on its own channel, since there is
// no script-level scheduler whose responsiveness that would threaten.
type Pollable interface {
	Poll() (value.Value, bool, error)
}

// ResolveFuture drives v (expected to hold a Pollable payload) to
// completion. Used by the driver at an Await/Select suspension and
// recursively by WrapperHandle itself when a script async block awaits
// another future.
func ResolveFuture(v value.Value) (value.Value, error) {
	aw, err := value.FromAny[Pollable](v)
	if err != nil {
		return value.Value{}, err
	}
	for {
		result, ready, err := aw.Poll()
		if err != nil {
			return value.Value{}, err
		}
		if ready {
			return result, nil
		}
	}
}

// WrapperHandle is the shared state behind a Future/Generator/Stream value
// produced by a non-immediate call: a deferred (hash, args) call into a
// freshly allocated child Vm that shares the parent's Unit and
// RuntimeContext, plus enough state to resume it across repeated
// Next/Poll calls.
type WrapperHandle struct {
	conv unit.CallConv
	child *Vm
	hash  rhash.Hash
	args  []value.Value

	started bool
	done    bool
	polled  bool // true once a completed handle has been Polled at least once
	result  value.Value
	err     error

	// pendingAwait/pendingResume memoize a nested Await that is not yet
	// ready, so a later Poll call resumes the child with the eventually
	// resolved value instead of replaying the deferred call.
	pendingAwait  Pollable
	pendingResume value.Value
}

func newWrapperHandle(conv unit.CallConv, child *Vm, hash rhash.Hash, args []value.Value) *WrapperHandle {
	return &WrapperHandle{conv: conv, child: child, hash: hash, args: args}
}

// wrap boxes h into the Value kind matching its call convention.
func (w *WrapperHandle) wrap() value.Value {
	switch w.conv {
	case unit.CallGenerator, unit.CallStream:
		if w.conv == unit.CallStream {
			return value.NewStreamValue(w)
		}
		return value.NewGeneratorValue(w)
	default:
		return value.NewFutureValue(w)
	}
}

// advance runs the deferred call on the first invocation, or resumes the
// child with resume on every later one.
func (w *WrapperHandle) advance(resume value.Value) (value.Value, *Suspend, error) {
	if !w.started {
		w.started = true
		return w.child.Call(w.hash, w.args)
	}
	return w.child.Resume(resume)
}

// Next drives a Generator/Stream handle one step (§9 "Generator yields
// then completes"): ok is false once the child has returned, at which
// point the handle is permanently exhausted. A child that suspends with
// anything other than Yield is outside this exercise's scope (a generator
// body that itself awaits or selects) and surfaces as a BadArgument error
// rather than silently misbehaving.
func (w *WrapperHandle) Next(resume value.Value) (v value.Value, ok bool, err error) {
	if w.done {
		return value.Value{}, false, nil
	}
	result, suspend, err := w.advance(resume)
	if err != nil {
		w.done, w.err = true, err
		return value.Value{}, false, err
	}
	if suspend == nil {
		w.done, w.result = true, result
		return value.Value{}, false, nil
	}
	if suspend.Reason != SuspendYield {
		w.done = true
		w.err = vmerror.Newf(vmerror.BadArgument, "generator/stream body suspended on %v instead of yield", suspend.Reason)
		return value.Value{}, false, w.err
	}
	return suspend.Value, true, nil
}

// Poll implements Pollable for a Future handle (a script `async` block):
// it drives the child to completion, recursively resolving any future the
// child itself awaits along the way, since cooperative futures always
// become ready on their very next poll (§5: no real concurrency exists
// between purely-script futures).
func (w *WrapperHandle) Poll() (value.Value, bool, error) {
	if w.done {
		if w.polled {
			return value.Value{}, true, vmerror.New(vmerror.FutureCompleted)
		}
		w.polled = true
		return w.result, true, w.err
	}
	if w.pendingAwait != nil {
		resolved, ready, err := w.pendingAwait.Poll()
		if err != nil {
			w.done, w.polled, w.err = true, true, err
			return value.Value{}, true, err
		}
		if !ready {
			return value.Value{}, false, nil
		}
		w.pendingAwait = nil
		w.pendingResume = resolved
	}
	result, suspend, err := w.advance(w.pendingResume)
	if err != nil {
		w.done, w.polled, w.err = true, true, err
		return value.Value{}, true, err
	}
	if suspend == nil {
		w.done, w.polled, w.result = true, true, result
		return result, true, nil
	}
	switch suspend.Reason {
	case SuspendAwait:
		aw, aerr := value.FromAny[Pollable](suspend.Value)
		if aerr != nil {
			w.done, w.polled, w.err = true, true, aerr
			return value.Value{}, true, aerr
		}
		w.pendingAwait = aw
		return w.Poll()
	default:
		w.done, w.polled = true, true
		w.err = vmerror.Newf(vmerror.BadArgument, "async body suspended on %v instead of await", suspend.Reason)
		return value.Value{}, true, w.err
	}
}
