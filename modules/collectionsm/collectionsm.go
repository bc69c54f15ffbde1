// Package collectionsm registers free functions and instance methods over
// the module's alloc-backed vector/map/deque shapes (§4.5): push, len,
// iter, and sorted. Vec and Map already have a VM construction opcode and a
// native IntoIter fast path (§4.6); this module gives script code a
// callable surface over the same cells, plus a host-defined Deque value —
// boxed through an Any cell over alloc.Deque[value.Value], the teacher's
// growable-ring-buffer container (_examples/wudi-hey's array helpers favor
// a plain Go slice; Deque is adapted from alloc/deque.go instead, since
// nothing else in the tree exercised it) — that the core value model has no
// dedicated cell kind for. Grounded on the original project's iterator
// module (_examples/original_source/crates/runestick/src/modules/iter.rs)
// for the push/len/iter surface, and on the teacher's sort-based array
// helpers (_examples/wudi-hey/runtime/array.go) for `sorted`.
package collectionsm

import (
	"sort"

	"github.com/wudi/ember/alloc"
	"github.com/wudi/ember/econtext"
	"github.com/wudi/ember/rhash"
	"github.com/wudi/ember/value"
	"github.com/wudi/ember/vm"
	"github.com/wudi/ember/vmerror"
)

// DequeType is the type hash a Deque value's Any cell carries.
var DequeType = rhash.TypeHash("Deque")

var dequeVTable = &value.AnyVTable{
	TypeName: "Deque",
	TypeHash: DequeType,
	// A Deque is a live, mutated-in-place buffer (push/pop observe prior
	// pushes); cloning it would silently fork that shared state, so, like
	// the Iterator Any type, it declines to support Clone.
	Clone: func(any) (any, bool) { return nil, false },
}

// Register installs collectionsm's free functions and instance methods
// into ctx: "collections::push/len/iter/sorted" as free functions, plus the
// corresponding instance methods on Vec, the Object map type, and Deque.
func Register(ctx *econtext.Context) error {
	if _, err := ctx.RegisterFunction("collections::new_deque", 0, newDequeHandler); err != nil {
		return err
	}
	if _, err := ctx.RegisterFunction("collections::push", 2, pushHandler); err != nil {
		return err
	}
	if _, err := ctx.RegisterFunction("collections::len", 1, lenHandler); err != nil {
		return err
	}
	if _, err := ctx.RegisterFunction("collections::iter", 1, iterHandler); err != nil {
		return err
	}
	if _, err := ctx.RegisterFunction("collections::sorted", 1, sortedHandler); err != nil {
		return err
	}

	type methodArity struct {
		name  string
		arity int
		fn    econtext.NativeFn
	}
	onVec := []methodArity{
		{"push", 1, pushHandler},
		{"len", 0, lenHandler},
		{"iter", 0, iterHandler},
		{"sorted", 0, sortedHandler},
	}
	onMap := []methodArity{
		{"len", 0, lenHandler},
		{"iter", 0, iterHandler},
	}
	onDeque := []methodArity{
		{"push_back", 1, dequePushBackHandler},
		{"push_front", 1, dequePushFrontHandler},
		{"pop_back", 0, dequePopBackHandler},
		{"pop_front", 0, dequePopFrontHandler},
		{"len", 0, lenHandler},
		{"iter", 0, iterHandler},
	}
	for _, m := range onVec {
		if _, err := ctx.RegisterInstanceFunction(value.TypeHashVec, m.name, m.arity, m.fn); err != nil {
			return err
		}
	}
	for _, m := range onMap {
		if _, err := ctx.RegisterInstanceFunction(value.TypeHashObject, m.name, m.arity, m.fn); err != nil {
			return err
		}
	}
	for _, m := range onDeque {
		if _, err := ctx.RegisterInstanceFunction(DequeType, m.name, m.arity, m.fn); err != nil {
			return err
		}
	}
	return nil
}

func newDequeHandler(args []value.Value) (value.Value, error) {
	return value.ToAny(dequeVTable, alloc.NewDeque[value.Value]()), nil
}

func asDeque(v value.Value) (*alloc.Deque[value.Value], error) {
	return value.FromAny[*alloc.Deque[value.Value]](v)
}

// pushHandler appends args[1] to a Vec (self is args[0]) in place, the one
// place this module exercises value.Cell.BorrowMut: ToVec only lends a
// read-only view of the backing slice, but growing it means replacing the
// cell's payload with the appended slice header.
func pushHandler(args []value.Value) (value.Value, error) {
	self := args[0]
	cell, err := self.Cell()
	if err != nil {
		return value.Value{}, err
	}
	if cell.Kind() != value.CellVec {
		if dq, derr := asDeque(self); derr == nil {
			if err := dq.TryPushBack(args[1]); err != nil {
				return value.Value{}, vmerror.Newf(vmerror.Alloc, "collections::push: %v", err)
			}
			return self, nil
		}
		return value.Value{}, vmerror.Newf(vmerror.TypeExpected, "collections::push expects a Vec or Deque, got %s", self.Kind())
	}
	item := args[1]
	err = cell.BorrowMut(func(payload any) (any, error) {
		items, ok := payload.([]value.Value)
		if !ok {
			return nil, vmerror.Newf(vmerror.TypeExpected, "collections::push expects a Vec, got %s", self.Kind())
		}
		return append(items, item), nil
	})
	if err != nil {
		return value.Value{}, err
	}
	return self, nil
}

func dequePushBackHandler(args []value.Value) (value.Value, error) {
	dq, err := asDeque(args[0])
	if err != nil {
		return value.Value{}, err
	}
	if err := dq.TryPushBack(args[1]); err != nil {
		return value.Value{}, vmerror.Newf(vmerror.Alloc, "push_back: %v", err)
	}
	return args[0], nil
}

func dequePushFrontHandler(args []value.Value) (value.Value, error) {
	dq, err := asDeque(args[0])
	if err != nil {
		return value.Value{}, err
	}
	if err := dq.TryPushFront(args[1]); err != nil {
		return value.Value{}, vmerror.Newf(vmerror.Alloc, "push_front: %v", err)
	}
	return args[0], nil
}

// dequePopBackHandler and dequePopFrontHandler wrap their result as
// Some(value)/None rather than a (value, bool) pair, matching the Option
// convention modules/corem's `.next()` already uses for "maybe nothing"
// results.
func dequePopBackHandler(args []value.Value) (value.Value, error) {
	dq, err := asDeque(args[0])
	if err != nil {
		return value.Value{}, err
	}
	v, ok := dq.PopBack()
	if !ok {
		return optionNone(), nil
	}
	return optionSome(v), nil
}

func dequePopFrontHandler(args []value.Value) (value.Value, error) {
	dq, err := asDeque(args[0])
	if err != nil {
		return value.Value{}, err
	}
	v, ok := dq.PopFront()
	if !ok {
		return optionNone(), nil
	}
	return optionSome(v), nil
}

// optionType mirrors modules/corem.OptionType's hash exactly (both are
// rhash.TypeHash("Option"), a pure function of the name) so a Deque's
// pop_front/pop_back results match on the same Option variants corem's
// Some/None produce, without this module importing corem back.
var optionType = rhash.TypeHash("Option")

func optionSome(v value.Value) value.Value {
	return value.NewStructValue(&value.StructData{Type: optionType, Variant: 0, Tuple: []value.Value{v}})
}

func optionNone() value.Value {
	return value.NewStructValue(&value.StructData{Type: optionType, Variant: 1})
}

func lenHandler(args []value.Value) (value.Value, error) {
	self := args[0]
	if items, err := value.ToVec(self); err == nil {
		return value.Integer(int64(len(items))), nil
	}
	if obj, err := value.ToObject(self); err == nil {
		return value.Integer(int64(len(obj.Keys))), nil
	}
	if dq, err := asDeque(self); err == nil {
		return value.Integer(int64(dq.Len())), nil
	}
	return value.Value{}, vmerror.Newf(vmerror.TypeExpected, "collections::len expects a Vec, Map, or Deque, got %s", self.Kind())
}

// iterHandler normalizes self into the same Iterator value IntoIter
// produces for a Vec/Map, so the result can be driven with corem's
// `.next()` either way. Deque has no VM-native IntoIter case (it is a
// module-defined Any type, not a core cell kind), so this builds its
// iterator directly over a PopFront-backed closure via vm.NewIterator.
func iterHandler(args []value.Value) (value.Value, error) {
	self := args[0]
	if cell, err := self.Cell(); err == nil {
		switch cell.Kind() {
		case value.CellVec, value.CellMap:
			// nil is safe here: IntoIter only consults its ctx argument on
			// the protocol-fallback path, which a CellVec/CellMap receiver
			// never reaches.
			return vm.IntoIter(nil, self)
		}
	}
	if dq, err := asDeque(self); err == nil {
		return vm.NewIterator(func() (value.Value, bool, error) {
			v, ok := dq.PopFront()
			return v, ok, nil
		}), nil
	}
	return value.Value{}, vmerror.Newf(vmerror.TypeExpected, "collections::iter expects a Vec, Map, or Deque, got %s", self.Kind())
}

// sortedHandler returns a new Vec with self's elements ordered ascending,
// leaving self untouched. Elements must be pairwise ordered either as
// numeric primitives (§4.6 PrimitiveCmp) or by their string conversion;
// anything else is a BadArgument error rather than an arbitrary order.
func sortedHandler(args []value.Value) (value.Value, error) {
	items, err := value.ToVec(args[0])
	if err != nil {
		return value.Value{}, err
	}
	out := make([]value.Value, len(items))
	copy(out, items)

	var sortErr error
	sort.SliceStable(out, func(i, j int) bool {
		if sortErr != nil {
			return false
		}
		less, err := lessValues(out[i], out[j])
		if err != nil {
			sortErr = err
			return false
		}
		return less
	})
	if sortErr != nil {
		return value.Value{}, sortErr
	}
	return value.NewVecValue(out), nil
}

func lessValues(a, b value.Value) (bool, error) {
	if ord, ok := value.PrimitiveCmp(a, b); ok {
		return ord == value.Less, nil
	}
	as, aerr := value.ToString(a)
	bs, berr := value.ToString(b)
	if aerr == nil && berr == nil {
		return as < bs, nil
	}
	return false, vmerror.Newf(vmerror.BadArgument, "collections::sorted: %s and %s are not comparable", a.Kind(), b.Kind())
}
