// Package futurem registers the one host-native future the module ships:
// a real-goroutine-backed async primitive satisfying vm.Pollable, the
// single boundary §5 allows real concurrency to cross (every other
// async/generator/stream value is a cooperatively-stepped vm.WrapperHandle
// instead). Grounded on the teacher's goroutine-plus-Done-channel shape
// (_examples/wudi-hey/runtime/concurrency.go's GoroutineManager) and the
// original project's std::future::join
// (_examples/original_source/crates/rune/src/modules/future.rs), adapted
// from joining PHP closures/Rune futures to joining vm.Pollable values.
package futurem

import (
	"time"

	"github.com/wudi/ember/econtext"
	"github.com/wudi/ember/value"
	"github.com/wudi/ember/vm"
	"github.com/wudi/ember/vmerror"
)

// hostFuture is a Pollable backed by a real goroutine. Poll blocks on
// done, the one place in this module a Poll call is allowed to block
// (§5): a host future owns whatever blocking it does, since there is no
// script-level scheduler whose responsiveness that would threaten.
type hostFuture struct {
	done   chan struct{}
	result value.Value
	err    error
}

func spawn(fn func() (value.Value, error)) *hostFuture {
	f := &hostFuture{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		f.result, f.err = fn()
	}()
	return f
}

// Poll implements vm.Pollable.
func (f *hostFuture) Poll() (value.Value, bool, error) {
	<-f.done
	return f.result, true, f.err
}

// Register installs futurem's functions into ctx. Note what is deliberately
// absent: an INTO_FUTURE protocol registration. §4.8 names INTO_FUTURE as
// the conversion a non-Future value awaited by script code would go
// through, but this module's Await path (vm.ResolveFuture / WrapperHandle's
// own Poll) recovers a vm.Pollable straight off the Any cell via
// value.FromAny instead of consulting the protocol table — every future
// value this runtime ever produces (WrapperHandle or hostFuture) already
// satisfies Pollable directly, so there is no non-Pollable "awaitable" left
// for INTO_FUTURE to convert. Registering it here would be a handler no
// code path ever calls.
func Register(ctx *econtext.Context) error {
	if _, err := ctx.RegisterFunction("future::sleep", 1, sleepHandler); err != nil {
		return err
	}
	if _, err := ctx.RegisterFunction("future::join", 1, joinHandler); err != nil {
		return err
	}
	return nil
}

// Sleep is the exported Go entry point behind "future::sleep", usable
// directly by host code without going through the NativeFn registration
// indirection. It returns a Future that resolves
// to the empty value after ms milliseconds, the host-native primitive a
// script `async` block cannot express on its own since it has no real
// clock wait.
func Sleep(ms int64) (value.Value, error) {
	if ms < 0 {
		return value.Value{}, vmerror.Newf(vmerror.BadArgument, "sleep duration must not be negative, got %d", ms)
	}
	return value.NewFutureValue(spawn(func() (value.Value, error) {
		time.Sleep(time.Duration(ms) * time.Millisecond)
		return value.Empty(), nil
	})), nil
}

func sleepHandler(args []value.Value) (value.Value, error) {
	ms, err := args[0].AsInteger()
	if err != nil {
		return value.Value{}, err
	}
	return Sleep(ms)
}

// Join is the exported Go entry point behind "future::join": it returns a
// Future that waits for every future in items to complete and resolves to
// a Tuple of their results in the same order, mirroring std::future::join.
func Join(items []value.Value) (value.Value, error) {
	return value.NewFutureValue(spawn(func() (value.Value, error) {
		results := make([]value.Value, len(items))
		for i, it := range items {
			resolved, err := vm.ResolveFuture(it)
			if err != nil {
				return value.Value{}, err
			}
			results[i] = resolved
		}
		return value.NewTupleValue(results), nil
	})), nil
}

// joinHandler returns a Future that waits for every future in a Vec or
// Tuple to complete and resolves to their results in the same shape.
func joinHandler(args []value.Value) (value.Value, error) {
	items, err := value.ToTuple(args[0])
	asVec := false
	if err != nil {
		items, err = value.ToVec(args[0])
		if err != nil {
			return value.Value{}, err
		}
		asVec = true
	}
	joined, err := Join(items)
	if err != nil || !asVec {
		return joined, err
	}
	// Join always returns a Tuple; re-box as a Vec so joinHandler's output
	// shape matches whichever container shape the caller passed in.
	return value.NewFutureValue(spawn(func() (value.Value, error) {
		resolved, err := vm.ResolveFuture(joined)
		if err != nil {
			return value.Value{}, err
		}
		asTuple, err := value.ToTuple(resolved)
		if err != nil {
			return value.Value{}, err
		}
		return value.NewVecValue(asTuple), nil
	})), nil
}
