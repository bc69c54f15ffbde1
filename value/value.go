// Package value implements the tagged Value union of §3.1: immediate
// primitives copied by value, shared primitives held in reference-counted
// borrow-tracked cells, static references into a Unit's constant pool, and
// foreign (Any) cells wrapping host-supplied values. Grounded on the
// teacher's Value{Type ValueType; Data interface{}} tagged union
// (_examples/wudi-hey/values/value.go) and the borrow-guard discipline of
// the original rune project's BorrowRef/BorrowMut
// (original_source/crates/rune/src/runtime/borrow_ref.rs).
package value

import (
	"math"

	"github.com/wudi/ember/rhash"
	"github.com/wudi/ember/vmerror"
)

// Value is a small tagged union: immediates are stored inline in num,
// shared/foreign values hold a pointer to their Cell, static references
// hold an index into the owning Unit's pools.
type Value struct {
	kind Kind
	num  uint64
	cell *Cell
	idx  uint32
}

// Kind reports the variant currently held.
func (v Value) Kind() Kind { return v.kind }

// Well-known type hashes for the primitive and built-in shared kinds,
// used by protocol dispatch (§4.8) and `is`/pattern-match checks.
var (
	TypeHashEmpty   = rhash.TypeHash("unit")
	TypeHashBool    = rhash.TypeHash("bool")
	TypeHashByte    = rhash.TypeHash("byte")
	TypeHashChar    = rhash.TypeHash("char")
	TypeHashInteger = rhash.TypeHash("int")
	TypeHashFloat   = rhash.TypeHash("float")
	TypeHashString  = rhash.TypeHash("String")
	TypeHashBytes   = rhash.TypeHash("Bytes")
	TypeHashVec     = rhash.TypeHash("Vec")
	TypeHashTuple   = rhash.TypeHash("Tuple")
	TypeHashObject  = rhash.TypeHash("Object")
	TypeHashRange   = rhash.TypeHash("Range")
	TypeHashFunc    = rhash.TypeHash("Function")
	TypeHashFuture  = rhash.TypeHash("Future")
	TypeHashGen     = rhash.TypeHash("Generator")
	TypeHashStream  = rhash.TypeHash("Stream")
)

// TypeHash returns the dynamic type hash of v, used for protocol dispatch
// and `is` checks (§3.2, §4.8).
func (v Value) TypeHash() rhash.Hash {
	switch v.kind {
	case KindEmpty:
		return TypeHashEmpty
	case KindBool:
		return TypeHashBool
	case KindByte:
		return TypeHashByte
	case KindChar:
		return TypeHashChar
	case KindInteger:
		return TypeHashInteger
	case KindFloat:
		return TypeHashFloat
	case KindStaticString:
		return TypeHashString
	case KindStaticBytes:
		return TypeHashBytes
	case KindStaticObjectKeys:
		return TypeHashObject
	case KindShared, KindAny:
		if v.cell.kind == CellStruct || v.cell.kind == CellAny {
			return v.cell.typ
		}
		return cellKindTypeHash(v.cell.kind)
	default:
		return 0
	}
}

func cellKindTypeHash(k CellKind) rhash.Hash {
	switch k {
	case CellString:
		return TypeHashString
	case CellBytes:
		return TypeHashBytes
	case CellVec:
		return TypeHashVec
	case CellTuple:
		return TypeHashTuple
	case CellMap:
		return TypeHashObject
	case CellFuture:
		return TypeHashFuture
	case CellGenerator:
		return TypeHashGen
	case CellStream:
		return TypeHashStream
	case CellFunction:
		return TypeHashFunc
	case CellRange:
		return TypeHashRange
	default:
		return 0
	}
}

// --- Immediate constructors ---

// Empty returns the empty/unit value.
func Empty() Value { return Value{kind: KindEmpty} }

// Bool wraps a boolean.
func Bool(b bool) Value {
	var n uint64
	if b {
		n = 1
	}
	return Value{kind: KindBool, num: n}
}

// Byte wraps an 8-bit byte.
func Byte(b byte) Value { return Value{kind: KindByte, num: uint64(b)} }

// Char wraps a Unicode scalar value.
func Char(r rune) Value { return Value{kind: KindChar, num: uint64(uint32(r))} }

// Integer wraps a 64-bit signed integer.
func Integer(i int64) Value { return Value{kind: KindInteger, num: uint64(i)} }

// Float wraps a 64-bit float.
func Float(f float64) Value { return Value{kind: KindFloat, num: math.Float64bits(f)} }

// --- Immediate accessors ---

func (v Value) expect(k Kind) error {
	if v.kind != k {
		return vmerror.Newf(vmerror.TypeExpected, "expected %s, got %s", k, v.kind)
	}
	return nil
}

// AsBool returns the boolean payload.
func (v Value) AsBool() (bool, error) {
	if err := v.expect(KindBool); err != nil {
		return false, err
	}
	return v.num != 0, nil
}

// AsByte returns the byte payload.
func (v Value) AsByte() (byte, error) {
	if err := v.expect(KindByte); err != nil {
		return 0, err
	}
	return byte(v.num), nil
}

// AsChar returns the char payload.
func (v Value) AsChar() (rune, error) {
	if err := v.expect(KindChar); err != nil {
		return 0, err
	}
	return rune(uint32(v.num)), nil
}

// AsInteger returns the integer payload.
func (v Value) AsInteger() (int64, error) {
	if err := v.expect(KindInteger); err != nil {
		return 0, err
	}
	return int64(v.num), nil
}

// AsFloat returns the float payload.
func (v Value) AsFloat() (float64, error) {
	if err := v.expect(KindFloat); err != nil {
		return 0, err
	}
	return math.Float64frombits(v.num), nil
}

// IsEmpty reports whether v is the empty/unit value.
func (v Value) IsEmpty() bool { return v.kind == KindEmpty }

// --- Shared constructors ---

func sharedValue(kind CellKind, data any) Value {
	return Value{kind: KindShared, cell: newCell(kind, data)}
}

// NewStringValue boxes s into a shared String cell.
func NewStringValue(s string) Value { return sharedValue(CellString, s) }

// NewBytesValue boxes b into a shared Bytes cell.
func NewBytesValue(b []byte) Value { return sharedValue(CellBytes, b) }

// NewVecValue boxes items into a shared, growable Vec cell.
func NewVecValue(items []Value) Value { return sharedValue(CellVec, items) }

// NewTupleValue boxes items into a shared, fixed-arity Tuple cell.
func NewTupleValue(items []Value) Value { return sharedValue(CellTuple, items) }

// Object is the payload of a shared Map cell: an insertion-ordered,
// string-keyed collection of values (§3.1).
type Object struct {
	Keys []string
	Vals []Value
}

// Get returns the value for key and whether it was present.
func (o *Object) Get(key string) (Value, bool) {
	for i, k := range o.Keys {
		if k == key {
			return o.Vals[i], true
		}
	}
	return Value{}, false
}

// Set inserts or overwrites key.
func (o *Object) Set(key string, v Value) {
	for i, k := range o.Keys {
		if k == key {
			o.Vals[i] = v
			return
		}
	}
	o.Keys = append(o.Keys, key)
	o.Vals = append(o.Vals, v)
}

// NewObjectValue boxes a fresh, empty Object into a shared Map cell.
func NewObjectValue() Value { return sharedValue(CellMap, &Object{}) }

// NewObjectValueWithFields boxes a pre-populated Object into a shared Map
// cell, used by the VM's Object construction instruction (§4.6) which
// already has keys and values in hand and should not pay for Set's linear
// key scan per field.
func NewObjectValueWithFields(keys []string, vals []Value) Value {
	return sharedValue(CellMap, &Object{Keys: keys, Vals: vals})
}

// StructData is the payload of a shared Struct cell: a user-defined tuple or
// struct instance identified by its declaring type hash (§3.1, §4.6
// Struct/Variant instructions).
type StructData struct {
	Type    rhash.Hash
	Variant int32 // -1 for a plain struct, else the declared variant index
	Fields  *Object
	Tuple   []Value // non-nil for a tuple-style struct/variant
}

// NewStructValue boxes data into a shared Struct cell whose dynamic type
// hash is data.Type.
func NewStructValue(data *StructData) Value {
	v := sharedValue(CellStruct, data)
	v.cell.typ = data.Type
	return v
}

// RangeData is the payload of a shared Range cell.
type RangeData struct {
	From      *Value
	To        *Value
	Inclusive bool
}

// NewRangeValue boxes from/to into a shared Range cell.
func NewRangeValue(from, to *Value, inclusive bool) Value {
	return sharedValue(CellRange, &RangeData{From: from, To: to, Inclusive: inclusive})
}

// NewFutureValue boxes a driver/vm-owned future handle into a shared
// Future cell (§5). The payload type is opaque to value: the vm package's
// WrapperHandle (a script async block) and a host module's native future
// both satisfy whatever polling contract the vm package defines, recovered
// later via FromAny rather than a method on Value itself.
func NewFutureValue(payload any) Value { return sharedValue(CellFuture, payload) }

// NewGeneratorValue boxes a handle into a shared Generator cell (§5, §9).
func NewGeneratorValue(payload any) Value { return sharedValue(CellGenerator, payload) }

// NewStreamValue boxes a handle into a shared Stream cell (§5, §9).
func NewStreamValue(payload any) Value { return sharedValue(CellStream, payload) }

// FunctionKind distinguishes the three call targets a function pointer
// value may hold (§3.1, §9 "Closures").
type FunctionKind byte

const (
	FunctionScript FunctionKind = iota
	FunctionNative
	FunctionClosure
)

// FunctionData is the payload of a shared Function cell.
type FunctionData struct {
	Kind     FunctionKind
	Hash     rhash.Hash // target for Script/Native
	Captures []Value    // prepended tuple for Closure (§9)
}

// NewFunctionValue boxes data into a shared Function cell.
func NewFunctionValue(data *FunctionData) Value { return sharedValue(CellFunction, data) }

// --- Foreign (Any) cells ---

// NewAnyValue boxes a host-supplied payload behind vt into an Any cell.
func NewAnyValue(vt *AnyVTable, payload any) Value {
	cell := newCell(CellAny, payload)
	cell.vtable = vt
	cell.typ = vt.TypeHash
	return Value{kind: KindAny, cell: cell}
}

// --- Static references ---

// NewStaticString references index into the owning Unit's static string
// pool.
func NewStaticString(index uint32) Value { return Value{kind: KindStaticString, idx: index} }

// NewStaticBytes references index into the owning Unit's static byte-string
// pool.
func NewStaticBytes(index uint32) Value { return Value{kind: KindStaticBytes, idx: index} }

// NewStaticObjectKeys references index into the owning Unit's static
// object-key-set pool.
func NewStaticObjectKeys(index uint32) Value { return Value{kind: KindStaticObjectKeys, idx: index} }

// StaticIndex returns the pool index for a static-reference Value.
func (v Value) StaticIndex() (uint32, error) {
	switch v.kind {
	case KindStaticString, KindStaticBytes, KindStaticObjectKeys:
		return v.idx, nil
	default:
		return 0, vmerror.Newf(vmerror.TypeExpected, "expected a static reference, got %s", v.kind)
	}
}

// --- Shared/Any accessors ---

// Cell returns the backing Cell for a Shared or Any value.
func (v Value) Cell() (*Cell, error) {
	if v.kind != KindShared && v.kind != KindAny {
		return nil, vmerror.Newf(vmerror.TypeExpected, "expected a shared value, got %s", v.kind)
	}
	return v.cell, nil
}

// CellKind returns the backing cell's payload kind, or an error if v is not
// a Shared/Any value.
func (v Value) CellKind() (CellKind, error) {
	c, err := v.Cell()
	if err != nil {
		return 0, err
	}
	return c.Kind(), nil
}
