package value

import "github.com/wudi/ember/vmerror"

// accessState implements the borrow-tracking state machine of §4.3: at any
// instant a cell is Unshared, Shared(n) for n>=1, Exclusive, or Taken (a
// tombstone after a one-shot move). It is a plain counter, not a mutex: a
// single Vm accesses its own cells from one goroutine at a time (§5), so the
// state machine only needs to reject ill-formed sequences of borrows, not
// arbitrate real concurrent access.
type accessState struct {
	// count == 0: Unshared
	// count  > 0: Shared(count)
	// count == takenMark: Taken
	// count == exclusiveMark: Exclusive
	count int
}

const (
	exclusiveMark = -1
	takenMark     = -2
)

// BorrowRef is a guard over a shared read-only borrow of a Cell. Release
// must be called exactly once; failing to release leaks the borrow count
// forever, matching the ownership discipline the original BorrowRef<'a, T>
// guard (see original_source's runtime/borrow_ref.rs) places on its caller.
type BorrowRef struct {
	cell *Cell
}

// Release decrements the shared-borrow count. Safe to call on a nil or
// already-released guard.
func (g *BorrowRef) Release() {
	if g == nil || g.cell == nil {
		return
	}
	g.cell.access.count--
	g.cell = nil
}

// BorrowMut is a guard over an exclusive borrow of a Cell.
type BorrowMut struct {
	cell *Cell
}

// Release ends the exclusive borrow, returning the cell to Unshared.
func (g *BorrowMut) Release() {
	if g == nil || g.cell == nil {
		return
	}
	g.cell.access.count = 0
	g.cell = nil
}

// borrowRef attempts a shared borrow of c, per the §4.3 transition table.
func (c *Cell) borrowRef() (*BorrowRef, error) {
	switch {
	case c.access.count == takenMark:
		return nil, vmerror.New(vmerror.AccessNotAccessibleRef)
	case c.access.count == exclusiveMark:
		return nil, vmerror.New(vmerror.AccessExclusive)
	default:
		c.access.count++
		return &BorrowRef{cell: c}, nil
	}
}

// borrowMut attempts an exclusive borrow of c.
func (c *Cell) borrowMut() (*BorrowMut, error) {
	switch {
	case c.access.count == takenMark:
		return nil, vmerror.New(vmerror.AccessNotAccessibleMut)
	case c.access.count == exclusiveMark:
		return nil, vmerror.New(vmerror.AccessExclusive)
	case c.access.count > 0:
		return nil, vmerror.New(vmerror.AccessShared)
	default:
		c.access.count = exclusiveMark
		return &BorrowMut{cell: c}, nil
	}
}

// take attempts the one-shot move transition to Taken.
func (c *Cell) take() error {
	switch {
	case c.access.count == takenMark:
		return vmerror.New(vmerror.AccessNotAccessibleTake)
	case c.access.count != 0:
		return vmerror.New(vmerror.AccessNotAccessibleTake)
	default:
		c.access.count = takenMark
		return nil
	}
}

// isTaken reports whether the cell has been moved out of.
func (c *Cell) isTaken() bool { return c.access.count == takenMark }
