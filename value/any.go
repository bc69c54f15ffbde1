package value

import "github.com/wudi/ember/rhash"

// AnyVTable is the vtable a foreign (Any) cell carries: drop, clone-or-not,
// pointer coercion, type-name, and type-hash, per §3.1. Foreign cells use
// the same borrow-tracking discipline as any other shared cell (§4.3); the
// vtable only supplies the host-specific behavior the core cannot know.
type AnyVTable struct {
	TypeName string
	TypeHash rhash.Hash

	// Clone produces an independent copy of payload, or returns
	// (nil, false) if the host type does not support cloning — mirroring
	// the original's "clone-or-not" vtable slot.
	Clone func(payload any) (any, bool)

	// Drop holds host-specific teardown for payload. May be nil. Nothing in
	// this module calls it: cells are reclaimed by the Go garbage collector
	// without running a teardown hook.
	Drop func(payload any)
}

// ToAny boxes a host value of type T into an Any Value using vt.
func ToAny[T any](vt *AnyVTable, v T) Value {
	return NewAnyValue(vt, v)
}

// FromAny attempts to recover a T out of an Any Value without consuming it,
// borrowing the cell for the duration of the type assertion. This is the
// "pointer coercion" the vtable exists to support: the core does not know
// T, only that the payload's dynamic type may or may not match.
func FromAny[T any](v Value) (T, error) {
	var zero T
	cell, err := v.Cell()
	if err != nil {
		return zero, err
	}
	var out T
	var ok bool
	borrowErr := cell.BorrowRef(func(payload any) error {
		out, ok = payload.(T)
		return nil
	})
	if borrowErr != nil {
		return zero, borrowErr
	}
	if !ok {
		return zero, typeMismatch(v)
	}
	return out, nil
}

// TakeAny performs the one-shot move out of an Any cell, recovering a T.
func TakeAny[T any](v Value) (T, error) {
	var zero T
	cell, err := v.Cell()
	if err != nil {
		return zero, err
	}
	payload, err := cell.Take()
	if err != nil {
		return zero, err
	}
	out, ok := payload.(T)
	if !ok {
		return zero, typeMismatch(v)
	}
	return out, nil
}
