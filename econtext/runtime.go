package econtext

import (
	"github.com/wudi/ember/protocol"
	"github.com/wudi/ember/rhash"
	"github.com/wudi/ember/value"
)

// RuntimeContext is the frozen, immutable registration surface shared by
// every Vm built from it (§3.4). It is cheap to share (a single pointer):
// nothing reachable from it is ever mutated again after Freeze.
type RuntimeContext struct {
	types             map[rhash.Hash]TypeInfo
	functions         map[rhash.Hash]FunctionEntry
	instanceFunctions map[rhash.Hash]FunctionEntry
	fieldAccessors    map[rhash.Hash]FieldAccessor
	protocolImpls     map[protocolKey]NativeFn
	constants         map[string]value.Value
}

// Function resolves a free-function hash to its registered entry.
func (rc *RuntimeContext) Function(hash rhash.Hash) (FunctionEntry, bool) {
	entry, ok := rc.functions[hash]
	return entry, ok
}

// InstanceFunction resolves a method by receiver type hash and name.
func (rc *RuntimeContext) InstanceFunction(receiver rhash.Hash, name string) (FunctionEntry, bool) {
	entry, ok := rc.instanceFunctions[rhash.InstanceHash(receiver, name)]
	return entry, ok
}

// TypeInfo resolves a type hash to its registered shape.
func (rc *RuntimeContext) TypeInfo(hash rhash.Hash) (TypeInfo, bool) {
	info, ok := rc.types[hash]
	return info, ok
}

// FieldAccessor resolves a field accessor by receiver type hash and field
// name.
func (rc *RuntimeContext) FieldAccessor(receiver rhash.Hash, field string) (FieldAccessor, bool) {
	fa, ok := rc.fieldAccessors[rhash.InstanceHash(receiver, "field::"+field)]
	return fa, ok
}

// Protocol resolves proto's implementation for receiver, the (type_hash,
// protocol_hash) -> handler lookup of §4.8.
func (rc *RuntimeContext) Protocol(receiver rhash.Hash, proto protocol.Protocol) (NativeFn, bool) {
	handler, ok := rc.protocolImpls[protocolKey{receiver: receiver, protocol: proto.Hash}]
	return handler, ok
}

// Constant resolves a host-exposed compile-time constant by name.
func (rc *RuntimeContext) Constant(name string) (value.Value, bool) {
	v, ok := rc.constants[name]
	return v, ok
}
