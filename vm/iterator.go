package vm

import (
	"github.com/wudi/ember/econtext"
	"github.com/wudi/ember/protocol"
	"github.com/wudi/ember/rhash"
	"github.com/wudi/ember/value"
	"github.com/wudi/ember/vmerror"
)

// iterState is the payload boxed behind an Any cell by IntoIter (§4.6). Any
// iterable — a native Vec/Tuple/Range/Object or a protocol-backed struct —
// is normalized into the same "pull one value at a time" shape so IterNext
// never needs to know what produced it.
type iterState struct {
	next func() (value.Value, bool, error)
}

var iteratorVTable = &value.AnyVTable{
	TypeName: "Iterator",
	TypeHash: rhash.TypeHash("Iterator"),
	Clone:    func(any) (any, bool) { return nil, false },
}

func newIteratorValue(next func() (value.Value, bool, error)) value.Value {
	return value.ToAny(iteratorVTable, &iterState{next: next})
}

// NewIterator boxes a pull-one-at-a-time closure as the same Iterator value
// kind IntoIter produces, so a module registering a host-defined collection
// (modules/collectionsm's Deque) can hand back something IterNext/corem's
// `.next()` already know how to drive, without that module needing to know
// the Any payload's concrete Go type.
func NewIterator(next func() (value.Value, bool, error)) value.Value {
	return newIteratorValue(next)
}

// intoIter builds the iterator Value for IntoIter (§4.6). Native
// collections get a direct Go closure; anything else falls back to the
// INTO_ITER/NEXT protocol pair (§4.8).
func (vm *Vm) intoIter(receiver value.Value) (value.Value, error) {
	return IntoIter(vm.ctx, receiver)
}

// IntoIter is the host-callable form of the IntoIter opcode (§4.6), exposed
// so a registered module function (modules/collectionsm's "iter") can
// normalize a Vec/Tuple/Range/Object, or a protocol-backed type, into the
// same pull-one-at-a-time iterator value the VM itself produces, rather
// than reimplementing iteration a second time against the same types.
func IntoIter(ctx *econtext.RuntimeContext, receiver value.Value) (value.Value, error) {
	if cellKind, err := receiver.CellKind(); err == nil {
		switch cellKind {
		case value.CellVec, value.CellTuple:
			items, err := toItems(receiver, cellKind)
			if err != nil {
				return value.Value{}, err
			}
			idx := 0
			return newIteratorValue(func() (value.Value, bool, error) {
				if idx >= len(items) {
					return value.Value{}, false, nil
				}
				v := items[idx]
				idx++
				return v, true, nil
			}), nil
		case value.CellRange:
			return rangeIterator(receiver)
		case value.CellMap:
			return mapIterator(receiver)
		}
	}

	handler, ok := ctx.Protocol(receiver.TypeHash(), protocol.INTO_ITER)
	if !ok {
		return value.Value{}, vmerror.MissingProtocolErr(receiver.TypeHash(), protocol.INTO_ITER.Name)
	}
	iterable, err := handler([]value.Value{receiver})
	if err != nil {
		return value.Value{}, err
	}
	nextHandler, ok := ctx.Protocol(iterable.TypeHash(), protocol.NEXT)
	if !ok {
		return value.Value{}, vmerror.MissingProtocolErr(iterable.TypeHash(), protocol.NEXT.Name)
	}
	return newIteratorValue(func() (value.Value, bool, error) {
		result, err := nextHandler([]value.Value{iterable})
		if err != nil {
			return value.Value{}, false, err
		}
		if result.IsEmpty() {
			return value.Value{}, false, nil
		}
		return result, true, nil
	}), nil
}

func toItems(v value.Value, kind value.CellKind) ([]value.Value, error) {
	if kind == value.CellVec {
		return value.ToVec(v)
	}
	return value.ToTuple(v)
}

func rangeIterator(receiver value.Value) (value.Value, error) {
	rd, err := value.FromAny[*value.RangeData](receiver)
	if err != nil {
		return value.Value{}, err
	}
	if rd.From == nil {
		return value.Value{}, vmerror.Newf(vmerror.IterationError, "unbounded range has no start")
	}
	cur, cerr := rd.From.AsInteger()
	if cerr != nil {
		return value.Value{}, cerr
	}
	hasEnd := rd.To != nil
	var end int64
	if hasEnd {
		end, cerr = rd.To.AsInteger()
		if cerr != nil {
			return value.Value{}, cerr
		}
	}
	inclusive := rd.Inclusive
	return newIteratorValue(func() (value.Value, bool, error) {
		if hasEnd {
			if inclusive && cur > end {
				return value.Value{}, false, nil
			}
			if !inclusive && cur >= end {
				return value.Value{}, false, nil
			}
		}
		v := value.Integer(cur)
		cur++
		return v, true, nil
	}), nil
}

func mapIterator(receiver value.Value) (value.Value, error) {
	obj, err := value.ToObject(receiver)
	if err != nil {
		return value.Value{}, err
	}
	idx := 0
	return newIteratorValue(func() (value.Value, bool, error) {
		if idx >= len(obj.Keys) {
			return value.Value{}, false, nil
		}
		pair := value.NewTupleValue([]value.Value{value.NewStringValue(obj.Keys[idx]), obj.Vals[idx]})
		idx++
		return pair, true, nil
	}), nil
}

// iterNext advances iterator, the implementation behind the IterNext
// opcode (§4.6).
func iterNext(iterator value.Value) (value.Value, bool, error) {
	state, err := value.FromAny[*iterState](iterator)
	if err != nil {
		return value.Value{}, false, err
	}
	return state.next()
}

// IterNext is the host-callable form of iterNext, used by modules/corem's
// `.next()` registration so an Iterator value produced by IntoIter (e.g.
// modules/collectionsm's "iter") can be driven step by step from script
// code the same way a Generator/Stream handle is.
func IterNext(iterator value.Value) (value.Value, bool, error) { return iterNext(iterator) }
