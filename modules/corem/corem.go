// Package corem registers the std-core surface §4.5 expects every
// RuntimeContext to carry: the Option type `NEXT` produces, and the single
// `.next()` instance method that drives either a materialized
// Generator/Stream vm.WrapperHandle (§8.2.3) or a plain Iterator value
// built by vm.IntoIter (modules/collectionsm's `iter`, or the VM's own
// for-loop desugaring) from script code. Grounded on the original
// project's std core/iter modules
// (_examples/original_source/crates/runestick/src/modules/core.rs,
// .../modules/iter.rs), adapted from their Rust `Option<T>`/`inst_fn`
// registration calls to this module's Hash-keyed RuntimeContext registry.
package corem

import (
	"github.com/wudi/ember/econtext"
	"github.com/wudi/ember/rhash"
	"github.com/wudi/ember/value"
	"github.com/wudi/ember/vm"
)

// OptionType is the type hash NEXT's result and `.next()`'s result share,
// so script code can `match` on either the same way.
var OptionType = rhash.TypeHash("Option")

// iteratorType is the type hash vm.IntoIter boxes every native and
// protocol-backed iterable behind (vm/iterator.go's iteratorVTable); it is
// recomputed here rather than imported since rhash.TypeHash is a pure
// function of the name and vm does not export the vtable itself.
var iteratorType = rhash.TypeHash("Iterator")

// Some boxes v into the Option type's Some(0) variant.
func Some(v value.Value) value.Value {
	return value.NewStructValue(&value.StructData{Type: OptionType, Variant: 0, Tuple: []value.Value{v}})
}

// None is the Option type's None(1) variant.
func None() value.Value {
	return value.NewStructValue(&value.StructData{Type: OptionType, Variant: 1})
}

// Register installs corem's functions and instance methods into ctx: the
// NEXT protocol's `.next()` entry point for every built-in iterable shape
// (§4.5 "INTO_ITER/NEXT ... for the built-in primitive types") — a
// materialized Generator/Stream handle, or a plain Iterator value produced
// by vm.IntoIter over a Vec/Tuple/Range/Object. EQ/CMP/STRING_DISPLAY are
// deliberately not registered here: arithmetic.go's equal/compare and
// vm.go's ToString already try value.PrimitiveEq/PrimitiveCmp and a native
// display format before ever consulting the protocol table, so a
// corem-registered EQ/CMP/STRING_DISPLAY for int/float/bool/string/etc.
// would sit behind that native fast path and never run — dead code in this
// module's actual dispatch order, not a hole in behavior.
func Register(ctx *econtext.Context) error {
	if _, err := ctx.RegisterInstanceFunction(value.TypeHashGen, "next", 0, nextHandler); err != nil {
		return err
	}
	if _, err := ctx.RegisterInstanceFunction(value.TypeHashStream, "next", 0, nextHandler); err != nil {
		return err
	}
	if _, err := ctx.RegisterInstanceFunction(iteratorType, "next", 0, nextHandler); err != nil {
		return err
	}
	return nil
}

// nextHandler drives one step of self (args[0], per NativeFn's self-first
// instance-call convention) and wraps the result as Some(value)/None the
// way the original's Iterator::next -> Option<Item> contract works. self is
// either a materialized Generator/Stream WrapperHandle or a plain Iterator
// value from vm.IntoIter; both produce the same (value, more bool, error)
// shape, just through different host types.
func nextHandler(args []value.Value) (value.Value, error) {
	self := args[0]
	if handle, err := value.FromAny[*vm.WrapperHandle](self); err == nil {
		v, ok, err := handle.Next(value.Empty())
		if err != nil {
			return value.Value{}, err
		}
		if !ok {
			return None(), nil
		}
		return Some(v), nil
	}
	v, ok, err := vm.IterNext(self)
	if err != nil {
		return value.Value{}, err
	}
	if !ok {
		return None(), nil
	}
	return Some(v), nil
}
