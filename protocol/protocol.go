// Package protocol defines the fixed set of well-known operations (§4.8)
// dispatched by (receiver type hash, protocol hash). Grounded directly on
// the real rune project's Protocol table
// (original_source/crates/runestick/src/protocol.rs): a Protocol is a
// {name, hash} pair rather than a bare hash constant, so error messages and
// debug dumps can print "add" instead of a raw 64-bit number, the same way
// the teacher's own error messages name opcodes rather than printing their
// byte encoding.
package protocol

import "github.com/wudi/ember/rhash"

// Protocol names a well-known operation and its stable hash.
type Protocol struct {
	Name string
	Hash rhash.Hash
}

func (p Protocol) String() string { return p.Name }

func define(name string) Protocol {
	return Protocol{Name: name, Hash: rhash.ProtocolHash(name)}
}

// Arithmetic.
var (
	ADD        = define("add")
	ADD_ASSIGN = define("add_assign")
	SUB        = define("sub")
	SUB_ASSIGN = define("sub_assign")
	MUL        = define("mul")
	MUL_ASSIGN = define("mul_assign")
	DIV        = define("div")
	DIV_ASSIGN = define("div_assign")
	REM        = define("rem")
	REM_ASSIGN = define("rem_assign")
	NEG        = define("neg")
	NOT        = define("not")
	BIT_AND    = define("bit_and")
	BIT_OR     = define("bit_or")
	BIT_XOR    = define("bit_xor")
	SHL        = define("shl")
	SHR        = define("shr")
)

// Comparison.
var (
	EQ  = define("eq")
	CMP = define("cmp")
)

// Indexing / field access.
var (
	INDEX_GET = define("index_get")
	INDEX_SET = define("index_set")
	GET       = define("get")
	SET       = define("set")
)

// Iteration.
var (
	INTO_ITER = define("into_iter")
	NEXT      = define("next")
	NEXT_BACK = define("next_back")
)

// Display / debug.
var (
	STRING_DISPLAY = define("string_display")
	STRING_DEBUG   = define("string_debug")
)

// Async / error propagation.
var (
	INTO_FUTURE = define("into_future")
	TRY         = define("try")
)

// All lists every canonical protocol, in §4.8's declaration order — used by
// the demo CLI to print the protocol table and by tests that walk every
// protocol looking for hash collisions.
var All = []Protocol{
	ADD, ADD_ASSIGN, SUB, SUB_ASSIGN, MUL, MUL_ASSIGN, DIV, DIV_ASSIGN,
	REM, REM_ASSIGN, NEG, NOT, BIT_AND, BIT_OR, BIT_XOR, SHL, SHR,
	EQ, CMP,
	INDEX_GET, INDEX_SET, GET, SET,
	INTO_ITER, NEXT, NEXT_BACK,
	STRING_DISPLAY, STRING_DEBUG,
	INTO_FUTURE, TRY,
}
