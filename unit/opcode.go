package unit

import "fmt"

// Opcode is the normative, trimmed instruction set of §4.6 — the VM's
// fixed opcode repertoire. Categories and numbering follow the teacher's
// own category-banded opcode layout (_examples/wudi-hey/opcodes/opcodes.go),
// adapted to the much smaller canonical set the execution core actually
// specifies (encodings are not normative, only the names and categories
// are).
type Opcode byte

// Stack management (0-15).
const (
	OpPush Opcode = iota // Push(const): push a constant pool entry
	OpPop                // Pop: discard top of stack
	OpPopN               // PopN(n): discard n values
	OpCopy               // Copy(offset): push a copy of stack[offset]
	OpMove               // Move(offset): move stack[offset] to the top, leaving a hole
	OpReplace            // Replace(offset): overwrite stack[offset] with top-of-stack
	OpSwap               // Swap(a, b): swap two stack slots
	OpClean              // Clean(count): drop count values below the top
)

// Arithmetic (16-47): binary ops and their *_Assign compound forms.
const (
	OpAdd Opcode = iota + 16
	OpAddAssign
	OpSub
	OpSubAssign
	OpMul
	OpMulAssign
	OpDiv
	OpDivAssign
	OpRem
	OpRemAssign
	OpNeg
	OpNot
	OpBitAnd
	OpBitAndAssign
	OpBitOr
	OpBitOrAssign
	OpBitXor
	OpBitXorAssign
	OpShl
	OpShlAssign
	OpShr
	OpShrAssign
)

// Comparison (48-55).
const (
	OpEq Opcode = iota + 48
	OpNotEq
	OpLt
	OpLte
	OpGt
	OpGte
	OpIs
	OpIsNot
)

// Control flow (56-63).
const (
	OpJump Opcode = iota + 56
	OpJumpIf
	OpJumpIfNot
	OpJumpIfBranch // JumpIfBranch(n, label): used by Select
	OpReturn
	OpReturnUnit
)

// Calls (64-71).
const (
	OpCall Opcode = iota + 64 // Call(hash, args)
	OpCallInstance            // CallInstance(name_idx, args): name_idx is a static string pool index
	OpCallFn                  // CallFn(args): call top-of-stack function value
	OpLoadFn                  // LoadFn(hash): push a function-pointer value
	OpClosure                 // Closure(hash, captures): build a closure
)

// Construction (72-79).
const (
	OpVec Opcode = iota + 72 // Vec(n)
	OpTuple
	OpObject  // Object(keys_idx)
	OpStruct  // Struct(type_hash, keys_idx)
	OpVariant // Variant(type_hash, variant_idx, n)
	OpRange   // Range(has_from, has_to, inclusive): pops to then from, in that order, when present
)

// Field / index access (80-87).
const (
	OpObjectIndexGet Opcode = iota + 80 // ObjectIndexGet(slot)
	OpObjectIndexSet                    // ObjectIndexSet(slot)
	OpTupleIndexGet                     // TupleIndexGet(n)
	OpTupleIndexGetAt                   // TupleIndexGetAt(offset, n): optimized local.0 access
	OpTupleIndexSet                     // TupleIndexSet(n)
	OpIndexGet                          // IndexGet: protocol-dispatched []
	OpIndexSet                          // IndexSet: protocol-dispatched []=
)

// Iteration (88-89).
const (
	OpIntoIter Opcode = iota + 88
	OpIterNext // IterNext(label): jump to label when exhausted
)

// Coroutine (90-93).
const (
	OpYield Opcode = iota + 90
	OpYieldUnit
	OpAwait
	OpSelect // Select(n)
)

// Pattern matching (94-97).
const (
	OpMatchType Opcode = iota + 94 // MatchType(hash, label)
	OpMatchVariant
	OpMatchSequence
	OpMatchObject
)

// Misc (98-103).
const (
	OpString Opcode = iota + 98 // String(slot): format into a string
	OpBytes
	OpFormat       // Format(spec)
	OpStringConcat // StringConcat(n)
	OpPanic        // Panic(reason)
	OpDrop         // Drop(offset)
)

var names = map[Opcode]string{
	OpPush: "Push", OpPop: "Pop", OpPopN: "PopN", OpCopy: "Copy", OpMove: "Move",
	OpReplace: "Replace", OpSwap: "Swap", OpClean: "Clean",
	OpAdd: "Add", OpAddAssign: "AddAssign", OpSub: "Sub", OpSubAssign: "SubAssign",
	OpMul: "Mul", OpMulAssign: "MulAssign", OpDiv: "Div", OpDivAssign: "DivAssign",
	OpRem: "Rem", OpRemAssign: "RemAssign", OpNeg: "Neg", OpNot: "Not",
	OpBitAnd: "BitAnd", OpBitAndAssign: "BitAndAssign", OpBitOr: "BitOr",
	OpBitOrAssign: "BitOrAssign", OpBitXor: "BitXor", OpBitXorAssign: "BitXorAssign",
	OpShl: "Shl", OpShlAssign: "ShlAssign", OpShr: "Shr", OpShrAssign: "ShrAssign",
	OpEq: "Eq", OpNotEq: "NotEq", OpLt: "Lt", OpLte: "Lte", OpGt: "Gt", OpGte: "Gte",
	OpIs: "Is", OpIsNot: "IsNot",
	OpJump: "Jump", OpJumpIf: "JumpIf", OpJumpIfNot: "JumpIfNot",
	OpJumpIfBranch: "JumpIfBranch", OpReturn: "Return", OpReturnUnit: "ReturnUnit",
	OpCall: "Call", OpCallInstance: "CallInstance", OpCallFn: "CallFn",
	OpLoadFn: "LoadFn", OpClosure: "Closure",
	OpVec: "Vec", OpTuple: "Tuple", OpObject: "Object", OpStruct: "Struct",
	OpVariant: "Variant", OpRange: "Range",
	OpObjectIndexGet: "ObjectIndexGet", OpObjectIndexSet: "ObjectIndexSet",
	OpTupleIndexGet: "TupleIndexGet", OpTupleIndexGetAt: "TupleIndexGetAt",
	OpTupleIndexSet: "TupleIndexSet", OpIndexGet: "IndexGet", OpIndexSet: "IndexSet",
	OpIntoIter: "IntoIter", OpIterNext: "IterNext",
	OpYield: "Yield", OpYieldUnit: "YieldUnit", OpAwait: "Await", OpSelect: "Select",
	OpMatchType: "MatchType", OpMatchVariant: "MatchVariant",
	OpMatchSequence: "MatchSequence", OpMatchObject: "MatchObject",
	OpString: "String", OpBytes: "Bytes", OpFormat: "Format",
	OpStringConcat: "StringConcat", OpPanic: "Panic", OpDrop: "Drop",
}

func (op Opcode) String() string {
	if n, ok := names[op]; ok {
		return n
	}
	return fmt.Sprintf("Opcode(%d)", byte(op))
}
