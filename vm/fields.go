// Field, index, and protocol-dispatched access (§4.6 "Field / index
// access"). Grounded on the teacher's OperandReader read/write split
// (_examples/wudi-hey/vm/operand_helper.go), generalized from PHP's
// const/tmp/var/cv operand space to the spec's Object/Struct field model
// plus the protocol-dispatched [] operator (§4.8).
package vm

import (
	"github.com/wudi/ember/protocol"
	"github.com/wudi/ember/unit"
	"github.com/wudi/ember/value"
	"github.com/wudi/ember/vmerror"
)

// objectOf resolves receiver's field table, whether it is a plain Object
// (Map cell) or a user-defined struct's named-field payload. It is the
// purely structural resolver shared by the Map/named-struct fast path and
// MatchObject's predicate test (vm.go's OpMatchObject); it never consults
// RTTI, a FieldAccessor, or a protocol, since a failed match must not have
// any of those side effects.
func objectOf(receiver value.Value) (*value.Object, error) {
	if kind, err := receiver.CellKind(); err == nil && kind == value.CellMap {
		return value.ToObject(receiver)
	}
	if sd, err := value.FromAny[*value.StructData](receiver); err == nil {
		if sd.Fields == nil {
			return nil, vmerror.Newf(vmerror.TypeExpected, "struct has no named fields")
		}
		return sd.Fields, nil
	}
	return nil, vmerror.Newf(vmerror.TypeExpected, "expected an Object or struct, got %s", receiver.Kind())
}

// getField implements ObjectIndexGet's three-step resolution (spec's Field
// and index access): a map returns its value or MissingField outright; a
// struct whose RTTI lists the field (by name in its Fields object, or by
// position for a tuple-style struct) returns it directly; anything else
// falls back first to a registered FieldAccessor, then to the GET
// protocol on the receiver's type hash.
func (vm *Vm) getField(receiver value.Value, name string) (value.Value, error) {
	if kind, err := receiver.CellKind(); err == nil && kind == value.CellMap {
		obj, err := value.ToObject(receiver)
		if err != nil {
			return value.Value{}, err
		}
		v, ok := obj.Get(name)
		if !ok {
			return value.Value{}, vmerror.MissingFieldErr(name)
		}
		return v, nil
	}

	if sd, err := value.FromAny[*value.StructData](receiver); err == nil {
		if sd.Fields != nil {
			if v, ok := sd.Fields.Get(name); ok {
				return v, nil
			}
		} else if rtti, ok := vm.unit.LookupRTTI(sd.Type); ok {
			if v, ok, err := tupleFieldByName(rtti, sd.Tuple, name); ok || err != nil {
				return v, err
			}
		}
	}

	if acc, ok := vm.ctx.FieldAccessor(receiver.TypeHash(), name); ok {
		return acc.Get([]value.Value{receiver})
	}
	handler, ok := vm.ctx.Protocol(receiver.TypeHash(), protocol.GET)
	if !ok {
		return value.Value{}, vmerror.MissingFieldErr(name)
	}
	return handler([]value.Value{receiver, value.NewStringValue(name)})
}

// setField mirrors getField's resolution for ObjectIndexSet.
func (vm *Vm) setField(receiver value.Value, name string, v value.Value) error {
	if kind, err := receiver.CellKind(); err == nil && kind == value.CellMap {
		obj, err := value.ToObject(receiver)
		if err != nil {
			return err
		}
		obj.Set(name, v)
		return nil
	}

	if sd, err := value.FromAny[*value.StructData](receiver); err == nil {
		if sd.Fields != nil {
			sd.Fields.Set(name, v)
			return nil
		}
		if rtti, ok := vm.unit.LookupRTTI(sd.Type); ok {
			for i, fname := range rtti.Fields {
				if fname != name {
					continue
				}
				if i >= len(sd.Tuple) {
					return vmerror.OutOfRangeErr(i, len(sd.Tuple))
				}
				sd.Tuple[i] = v
				return nil
			}
		}
	}

	if acc, ok := vm.ctx.FieldAccessor(receiver.TypeHash(), name); ok && acc.Set != nil {
		_, err := acc.Set([]value.Value{receiver, v})
		return err
	}
	handler, ok := vm.ctx.Protocol(receiver.TypeHash(), protocol.SET)
	if !ok {
		return vmerror.MissingFieldErr(name)
	}
	_, err := handler([]value.Value{receiver, value.NewStringValue(name), v})
	return err
}

// tupleFieldByName resolves name to its declared position in rtti.Fields
// and reads it out of a tuple-style struct's positional payload. The
// third return is only ever non-nil alongside ok=false, for an out-of-range
// RTTI/payload mismatch; a plain "field not listed" miss reports ok=false,
// err=nil so the caller falls through to the FieldAccessor/protocol steps.
func tupleFieldByName(rtti unit.RuntimeTypeInfo, tuple []value.Value, name string) (value.Value, bool, error) {
	for i, fname := range rtti.Fields {
		if fname != name {
			continue
		}
		if i >= len(tuple) {
			return value.Value{}, false, vmerror.OutOfRangeErr(i, len(tuple))
		}
		return tuple[i], true, nil
	}
	return value.Value{}, false, nil
}

// tupleIndex resolves element n of a Tuple cell or a tuple-style struct
// variant's positional fields.
func tupleIndex(receiver value.Value, n int) (value.Value, error) {
	var items []value.Value
	if kind, err := receiver.CellKind(); err == nil && (kind == value.CellTuple || kind == value.CellVec) {
		items, err = toItems(receiver, kind)
		if err != nil {
			return value.Value{}, err
		}
	} else if sd, err := value.FromAny[*value.StructData](receiver); err == nil && sd.Tuple != nil {
		items = sd.Tuple
	} else {
		return value.Value{}, vmerror.Newf(vmerror.TypeExpected, "expected a tuple, got %s", receiver.Kind())
	}
	if n < 0 || n >= len(items) {
		return value.Value{}, vmerror.OutOfRangeErr(n, len(items))
	}
	return items[n], nil
}

// indexGet implements the protocol-dispatched [] read (§4.8 INDEX_GET),
// with a native fast path for Vec/Tuple indexed by integer and Object
// indexed by string.
func (vm *Vm) indexGet(receiver, index value.Value) (value.Value, error) {
	if kind, err := receiver.CellKind(); err == nil {
		switch kind {
		case value.CellVec, value.CellTuple:
			if i, err := index.AsInteger(); err == nil {
				return tupleIndex(receiver, int(i))
			}
		case value.CellMap:
			if name, err := value.ToString(index); err == nil {
				return vm.getField(receiver, name)
			}
		}
	}
	handler, ok := vm.ctx.Protocol(receiver.TypeHash(), protocol.INDEX_GET)
	if !ok {
		return value.Value{}, vmerror.MissingProtocolErr(receiver.TypeHash(), protocol.INDEX_GET.Name)
	}
	return handler([]value.Value{receiver, index})
}

// indexSet implements the protocol-dispatched []= write (§4.8 INDEX_SET).
func (vm *Vm) indexSet(receiver, index, v value.Value) error {
	if kind, err := receiver.CellKind(); err == nil {
		switch kind {
		case value.CellVec:
			if i, err := index.AsInteger(); err == nil {
				items, err := value.ToVec(receiver)
				if err != nil {
					return err
				}
				if int(i) < 0 || int(i) >= len(items) {
					return vmerror.OutOfRangeErr(int(i), len(items))
				}
				items[i] = v
				return nil
			}
		case value.CellMap:
			if name, err := value.ToString(index); err == nil {
				return vm.setField(receiver, name, v)
			}
		}
	}
	handler, ok := vm.ctx.Protocol(receiver.TypeHash(), protocol.INDEX_SET)
	if !ok {
		return vmerror.MissingProtocolErr(receiver.TypeHash(), protocol.INDEX_SET.Name)
	}
	_, err := handler([]value.Value{receiver, index, v})
	return err
}
