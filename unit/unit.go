// Package unit implements the immutable compiled-unit format of §3.3/§4.4:
// instruction storage (two interchangeable backends), the constant pool,
// static string/byte-string/object-key pools, the function and type
// registries, debug info, and re-exports. Since the lexer/parser/compiler
// that would normally produce a Unit is explicitly out of scope (§1), this
// package also exposes Builder, a programmatic assembly API standing in for
// that external collaborator — grounded on the teacher's own
// instruction_factory.go, which already assembles decoded instruction
// values outside of any parser.
package unit

import (
	"sort"

	"github.com/wudi/ember/rhash"
	"github.com/wudi/ember/value"
	"github.com/wudi/ember/vmerror"
)

// CallConv is a function's call convention (§3.3): whether invoking it
// executes inline or produces a wrapper value the driver must step.
type CallConv byte

const (
	CallImmediate CallConv = iota
	CallAsync
	CallGenerator
	CallStream
)

func (c CallConv) String() string {
	switch c {
	case CallImmediate:
		return "immediate"
	case CallAsync:
		return "async"
	case CallGenerator:
		return "generator"
	case CallStream:
		return "stream"
	default:
		return "unknown"
	}
}

// FnInfo is a function registry entry: Hash -> {offset, arity, call_conv}.
type FnInfo struct {
	Path     string
	Offset   int
	Arity    int
	CallConv CallConv
}

// RuntimeTypeInfo is a type registry entry: Hash -> RTTI for user-defined
// structs, enums, and variants.
type RuntimeTypeInfo struct {
	Path               string
	Fields             []string
	Arity              int
	TupleConstructible bool
}

// DebugInfo holds optional per-instruction and per-function debug data.
type DebugInfo struct {
	// Spans maps instruction index -> a human-readable source span; empty
	// when debug info was stripped.
	Spans map[int]string
	// Labels maps a label index to its declared name, for dumps.
	Labels map[int]string
}

// Unit is the immutable compiled program artifact (§3.3). No public
// operation mutates it; SPEC_FULL §8.1.4 requires this to hold across
// arbitrary VM execution.
type Unit struct {
	instructions Stream
	constants    []value.Value
	strings      []string
	bytes        [][]byte
	objectKeys   [][]string
	functions    map[rhash.Hash]FnInfo
	types        map[rhash.Hash]RuntimeTypeInfo
	debug        *DebugInfo
	reexports    map[string]string
}

// LookupFunction resolves hash to its FnInfo.
func (u *Unit) LookupFunction(hash rhash.Hash) (FnInfo, bool) {
	info, ok := u.functions[hash]
	return info, ok
}

// LookupRTTI resolves hash to its RuntimeTypeInfo.
func (u *Unit) LookupRTTI(hash rhash.Hash) (RuntimeTypeInfo, bool) {
	info, ok := u.types[hash]
	return info, ok
}

// StaticString returns the interned string at index.
func (u *Unit) StaticString(index int) (string, error) {
	if index < 0 || index >= len(u.strings) {
		return "", vmerror.OutOfRangeErr(index, len(u.strings))
	}
	return u.strings[index], nil
}

// StaticBytes returns the interned byte string at index.
func (u *Unit) StaticBytes(index int) ([]byte, error) {
	if index < 0 || index >= len(u.bytes) {
		return nil, vmerror.OutOfRangeErr(index, len(u.bytes))
	}
	return u.bytes[index], nil
}

// StaticObjectKeys returns the interned field-name list at index.
func (u *Unit) StaticObjectKeys(index int) ([]string, error) {
	if index < 0 || index >= len(u.objectKeys) {
		return nil, vmerror.OutOfRangeErr(index, len(u.objectKeys))
	}
	return u.objectKeys[index], nil
}

// Constant returns the precomputed constant-pool value at index.
func (u *Unit) Constant(index int) (value.Value, error) {
	if index < 0 || index >= len(u.constants) {
		return value.Value{}, vmerror.OutOfRangeErr(index, len(u.constants))
	}
	return u.constants[index], nil
}

// InstructionAt decodes the instruction at ip and returns it with the ip of
// the next instruction boundary.
func (u *Unit) InstructionAt(ip int) (Instruction, int, error) {
	return u.instructions.At(ip)
}

// Len reports the instruction count.
func (u *Unit) Len() int { return u.instructions.Len() }

// TranslateJump resolves a symbolic label to an instruction offset.
func (u *Unit) TranslateJump(label int) (int, error) {
	return u.instructions.TranslateJump(label)
}

// Debug returns the unit's optional debug info, or nil if stripped.
func (u *Unit) Debug() *DebugInfo { return u.debug }

// Resolve follows a re-exported path to its target, or returns path
// unchanged if it is not a re-export.
func (u *Unit) Resolve(path string) string {
	if target, ok := u.reexports[path]; ok {
		return target
	}
	return path
}

// Hash returns a unit-wide digest over its instruction count and function
// set, used by tests asserting unit immutability (SPEC_FULL §8.1.4: "hash
// the unit before and after arbitrary execution and assert equality").
func (u *Unit) Hash() rhash.Hash {
	acc := rhash.TypeHash("unit::digest")
	mix := func(h rhash.Hash) {
		acc = rhash.VariantHash(acc, uint32(h))
	}
	mix(rhash.Hash(u.Len()))
	// Map iteration order is randomized per-process in Go; sort first so
	// the digest is stable across repeated calls within one run (required
	// for SPEC_FULL §8.1.4's before/after equality check).
	fnHashes := make([]rhash.Hash, 0, len(u.functions))
	for h := range u.functions {
		fnHashes = append(fnHashes, h)
	}
	sort.Slice(fnHashes, func(i, j int) bool { return fnHashes[i] < fnHashes[j] })
	for _, h := range fnHashes {
		mix(h)
	}
	typeHashes := make([]rhash.Hash, 0, len(u.types))
	for h := range u.types {
		typeHashes = append(typeHashes, h)
	}
	sort.Slice(typeHashes, func(i, j int) bool { return typeHashes[i] < typeHashes[j] })
	for _, h := range typeHashes {
		mix(h)
	}
	return acc
}
