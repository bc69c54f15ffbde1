package econtext

import "fmt"

// ConflictKind distinguishes the registration-conflict failure modes of
// §4.5.
type ConflictKind byte

const (
	ConflictingType ConflictKind = iota
	ConflictingFunction
	ConflictingInstanceFunction
	ConflictingFieldAccessor
	ConflictingProtocol
	ContextFrozen
)

func (k ConflictKind) String() string {
	switch k {
	case ConflictingType:
		return "conflicting type"
	case ConflictingFunction:
		return "conflicting function"
	case ConflictingInstanceFunction:
		return "conflicting instance function"
	case ConflictingFieldAccessor:
		return "conflicting field accessor"
	case ConflictingProtocol:
		return "conflicting protocol"
	case ContextFrozen:
		return "context already frozen"
	default:
		return "conflicting registration"
	}
}

// ContextError reports a registration conflict against a Context. It is
// deliberately distinct from vmerror.Error: these failures happen during
// host setup, before any Vm exists, and are never part of the VM's
// recoverable-error propagation (§7).
type ContextError struct {
	Kind ConflictKind
	Path string
}

func (e *ContextError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Path)
}

func newConflict(kind ConflictKind, path string) *ContextError {
	return &ContextError{Kind: kind, Path: path}
}
