package unit

// Instruction is one decoded VM instruction. The three operand slots are
// reused across opcodes with opcode-specific meaning (documented on each
// Opcode constant), the same "generic operand slot" approach the teacher
// uses in its OperandReader abstraction (_examples/wudi-hey/vm/operand_helper.go)
// rather than one Go struct type per opcode.
type Instruction struct {
	Op Opcode
	A  int64
	B  int64
	C  int64
}
