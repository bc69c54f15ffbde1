package value

import "github.com/wudi/ember/rhash"

// Cell is the reference-counted, borrow-tracked container backing every
// "shared primitive" and foreign value in §3.1. It is the Go analogue of the
// teacher's boxed Array/Object/Closure payloads (values/value.go) combined
// with the borrow-state machine the original rune project enforces through
// its Access counter and BorrowRef/BorrowMut guards
// (original_source/crates/rune/src/runtime/borrow_ref.rs).
type Cell struct {
	access accessState
	kind   CellKind
	typ    rhash.Hash // type hash for CellStruct/CellAny; zero otherwise
	vtable *AnyVTable // non-nil only for CellAny
	data   any
}

func newCell(kind CellKind, data any) *Cell {
	return &Cell{kind: kind, data: data}
}

// Kind reports the cell's payload kind.
func (c *Cell) Kind() CellKind { return c.kind }

// BorrowRef acquires a shared borrow over the cell's payload, invoking fn
// with the raw payload while held, then releasing. This mirrors
// BorrowRef::map in the original project without exposing raw pointers: Go
// has no lifetime system to thread a borrowed reference through, so the
// guard's scope is the callback's extent instead of a returned value.
func (c *Cell) BorrowRef(fn func(payload any) error) error {
	guard, err := c.borrowRef()
	if err != nil {
		return err
	}
	defer guard.Release()
	return fn(c.data)
}

// BorrowMut acquires an exclusive borrow, invoking fn with the stored
// payload and storing fn's returned payload in its place.
func (c *Cell) BorrowMut(fn func(payload any) (any, error)) error {
	guard, err := c.borrowMut()
	if err != nil {
		return err
	}
	defer guard.Release()
	next, err := fn(c.data)
	if err != nil {
		return err
	}
	c.data = next
	return nil
}

// Take performs the one-shot move out of the cell, returning its payload.
// Subsequent access fails with AccessNotAccessible* (§4.3).
func (c *Cell) Take() (any, error) {
	if err := c.take(); err != nil {
		return nil, err
	}
	data := c.data
	c.data = nil
	return data, nil
}

// IsTaken reports whether the cell has already been moved out of.
func (c *Cell) IsTaken() bool { return c.isTaken() }

// TypeHash returns the type hash associated with a struct/Any cell.
func (c *Cell) TypeHash() rhash.Hash { return c.typ }
