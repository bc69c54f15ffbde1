package unit

import "github.com/wudi/ember/vmerror"

// Stream is the instruction-storage contract of §3.3/§4.4: two
// interchangeable backends — a dense array of decoded instructions and a
// compact byte-encoded stream with a side table of jump offsets — must
// produce identical observable iteration, length, and jump-translation
// semantics. The VM dispatch loop is written only against this interface.
type Stream interface {
	// Len reports the number of instructions.
	Len() int
	// At decodes the instruction at ip and returns it along with the ip of
	// the next instruction boundary.
	At(ip int) (Instruction, int, error)
	// TranslateJump resolves a symbolic label index to an instruction
	// offset.
	TranslateJump(label int) (int, error)
}

// denseStream is a plain slice of already-decoded instructions: O(1)
// random access, no decode cost, larger memory footprint. Preferred when
// decode cost dominates (§4.4).
type denseStream struct {
	instructions []Instruction
	jumpTable    []int
}

func newDenseStream(instructions []Instruction, jumpTable []int) *denseStream {
	return &denseStream{instructions: instructions, jumpTable: jumpTable}
}

func (s *denseStream) Len() int { return len(s.instructions) }

func (s *denseStream) At(ip int) (Instruction, int, error) {
	if ip < 0 || ip >= len(s.instructions) {
		return Instruction{}, 0, vmerror.OutOfRangeErr(ip, len(s.instructions))
	}
	return s.instructions[ip], ip + 1, nil
}

func (s *denseStream) TranslateJump(label int) (int, error) {
	if label < 0 || label >= len(s.jumpTable) {
		return 0, vmerror.OutOfRangeErr(label, len(s.jumpTable))
	}
	return s.jumpTable[label], nil
}

// byteCodeStream encodes each instruction as an opcode byte followed by
// three LEB128-style varints, with jump targets recorded as instruction
// offsets in a side table (§6.3, informative byte format). Preferred when
// memory footprint matters, at the cost of decoding on every fetch.
type byteCodeStream struct {
	code      []byte
	offsets   []int // offsets[ip] = byte offset of instruction ip in code
	jumpTable []int
}

func newByteCodeStream(instructions []Instruction, jumpTable []int) *byteCodeStream {
	s := &byteCodeStream{jumpTable: jumpTable}
	for _, inst := range instructions {
		s.offsets = append(s.offsets, len(s.code))
		s.code = append(s.code, byte(inst.Op))
		s.code = appendVarint(s.code, inst.A)
		s.code = appendVarint(s.code, inst.B)
		s.code = appendVarint(s.code, inst.C)
	}
	return s
}

func (s *byteCodeStream) Len() int { return len(s.offsets) }

func (s *byteCodeStream) At(ip int) (Instruction, int, error) {
	if ip < 0 || ip >= len(s.offsets) {
		return Instruction{}, 0, vmerror.OutOfRangeErr(ip, len(s.offsets))
	}
	off := s.offsets[ip]
	op := Opcode(s.code[off])
	off++
	a, off := readVarint(s.code, off)
	b, off := readVarint(s.code, off)
	c, _ := readVarint(s.code, off)
	return Instruction{Op: op, A: a, B: b, C: c}, ip + 1, nil
}

func (s *byteCodeStream) TranslateJump(label int) (int, error) {
	if label < 0 || label >= len(s.jumpTable) {
		return 0, vmerror.OutOfRangeErr(label, len(s.jumpTable))
	}
	return s.jumpTable[label], nil
}

// appendVarint encodes a zig-zag LEB128 varint, so negative operands (e.g.
// relative offsets) stay compact.
func appendVarint(buf []byte, v int64) []byte {
	u := uint64((v << 1) ^ (v >> 63))
	for u >= 0x80 {
		buf = append(buf, byte(u)|0x80)
		u >>= 7
	}
	return append(buf, byte(u))
}

func readVarint(buf []byte, off int) (int64, int) {
	var u uint64
	var shift uint
	for {
		b := buf[off]
		off++
		u |= uint64(b&0x7f) << shift
		if b < 0x80 {
			break
		}
		shift += 7
	}
	v := int64(u>>1) ^ -(int64(u & 1))
	return v, off
}
