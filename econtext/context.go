// Package econtext implements the host registration surface of §4.5: a
// mutable Context built up during embedding setup, frozen into an immutable
// RuntimeContext shared by every Vm built from it. Grounded on the
// teacher's registry package (_examples/wudi-hey/registry/registry.go) for
// the idea of a dedicated registration-time package distinct from the VM
// and runtime packages, generalized from PHP's class/function/trait model
// to the spec's function/type/instance-function/field-accessor/protocol
// model.
package econtext

import (
	"github.com/wudi/ember/protocol"
	"github.com/wudi/ember/rhash"
	"github.com/wudi/ember/value"
)

// TypeInfo describes a host- or script-registered type (§3.3, §4.5).
type TypeInfo struct {
	Path             string
	Hash             rhash.Hash
	Fields           []string
	ConstructorArity int
}

// FunctionEntry is a registered free or instance function.
type FunctionEntry struct {
	Hash    rhash.Hash
	Name    string
	Arity   int
	Handler NativeFn
}

type protocolKey struct {
	receiver rhash.Hash
	protocol rhash.Hash
}

// Context is the mutable registration surface used during host setup
// (§4.5). It is not safe for concurrent registration from multiple
// goroutines, matching the single-threaded setup phase the spec assumes.
type Context struct {
	types             map[rhash.Hash]TypeInfo
	functions         map[rhash.Hash]FunctionEntry
	instanceFunctions map[rhash.Hash]FunctionEntry
	fieldAccessors    map[rhash.Hash]FieldAccessor
	protocolImpls     map[protocolKey]NativeFn
	constants         map[string]value.Value
	frozen            bool
}

// errFrozen is returned by every registration method once Freeze has been
// called, since RuntimeContext shares the Context's tables by reference
// (§3.4) and must not observe registrations made after the freeze point.
var errFrozen = newConflict(ContextFrozen, "")

// NewContext returns an empty registration surface.
func NewContext() *Context {
	return &Context{
		types:             make(map[rhash.Hash]TypeInfo),
		functions:         make(map[rhash.Hash]FunctionEntry),
		instanceFunctions: make(map[rhash.Hash]FunctionEntry),
		fieldAccessors:    make(map[rhash.Hash]FieldAccessor),
		protocolImpls:     make(map[protocolKey]NativeFn),
		constants:         make(map[string]value.Value),
	}
}

// RegisterType registers a type's path, field shape, and constructor
// arity. Duplicate paths fail with ConflictingType (§4.5).
func (c *Context) RegisterType(path string, fields []string, constructorArity int) (rhash.Hash, error) {
	if c.frozen {
		return 0, errFrozen
	}
	hash := rhash.TypeHash(path)
	if _, exists := c.types[hash]; exists {
		return 0, newConflict(ConflictingType, path)
	}
	c.types[hash] = TypeInfo{Path: path, Hash: hash, Fields: fields, ConstructorArity: constructorArity}
	return hash, nil
}

// RegisterFunction registers a free function. Duplicate hashes fail.
func (c *Context) RegisterFunction(path string, arity int, handler NativeFn) (rhash.Hash, error) {
	if c.frozen {
		return 0, errFrozen
	}
	hash := rhash.FunctionHash(path)
	if _, exists := c.functions[hash]; exists {
		return 0, newConflict(ConflictingFunction, path)
	}
	c.functions[hash] = FunctionEntry{Hash: hash, Name: path, Arity: arity, Handler: handler}
	return hash, nil
}

// RegisterInstanceFunction registers a method on receiver. Duplicate
// (receiver, name) pairs fail.
func (c *Context) RegisterInstanceFunction(receiver rhash.Hash, name string, arity int, handler NativeFn) (rhash.Hash, error) {
	if c.frozen {
		return 0, errFrozen
	}
	hash := rhash.InstanceHash(receiver, name)
	if _, exists := c.instanceFunctions[hash]; exists {
		return 0, newConflict(ConflictingInstanceFunction, name)
	}
	c.instanceFunctions[hash] = FunctionEntry{Hash: hash, Name: name, Arity: arity, Handler: handler}
	return hash, nil
}

// RegisterFieldAccessor registers a field's get/set pair on receiver.
func (c *Context) RegisterFieldAccessor(receiver rhash.Hash, field string, get, set NativeFn) error {
	if c.frozen {
		return errFrozen
	}
	hash := rhash.InstanceHash(receiver, "field::"+field)
	if _, exists := c.fieldAccessors[hash]; exists {
		return newConflict(ConflictingFieldAccessor, field)
	}
	c.fieldAccessors[hash] = FieldAccessor{Get: get, Set: set}
	return nil
}

// RegisterProtocol registers proto's implementation for receiver.
func (c *Context) RegisterProtocol(receiver rhash.Hash, proto protocol.Protocol, handler NativeFn) error {
	if c.frozen {
		return errFrozen
	}
	key := protocolKey{receiver: receiver, protocol: proto.Hash}
	if _, exists := c.protocolImpls[key]; exists {
		return newConflict(ConflictingProtocol, proto.Name)
	}
	c.protocolImpls[key] = handler
	return nil
}

// RegisterConstant registers a host-exposed compile-time constant.
func (c *Context) RegisterConstant(name string, v value.Value) error {
	if c.frozen {
		return errFrozen
	}
	if _, exists := c.constants[name]; exists {
		return newConflict(ConflictingFunction, name)
	}
	c.constants[name] = v
	return nil
}

// Freeze produces an immutable RuntimeContext sharing the Context's
// registration tables by reference. Freeze also marks c itself frozen, so
// every later registration attempt against c fails instead of silently
// mutating the tables a RuntimeContext already handed out (§3.4:
// "immutable, cheaply clonable by reference-count, shared by all VMs").
func (c *Context) Freeze() *RuntimeContext {
	c.frozen = true
	return &RuntimeContext{
		types:             c.types,
		functions:         c.functions,
		instanceFunctions: c.instanceFunctions,
		fieldAccessors:    c.fieldAccessors,
		protocolImpls:     c.protocolImpls,
		constants:         c.constants,
	}
}
