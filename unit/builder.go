package unit

import (
	"github.com/wudi/ember/rhash"
	"github.com/wudi/ember/value"
	"github.com/wudi/ember/vmerror"
)

// Backend selects which Stream implementation Build assembles.
type Backend byte

const (
	BackendDense Backend = iota
	BackendByteCode
)

// Builder is an append-only assembly API standing in for the out-of-scope
// compiler (§1): it lets tests and the embedding demo construct a real Unit
// without a parser, the way the teacher's instruction_factory.go assembles
// decoded instruction values directly.
type Builder struct {
	instructions []Instruction
	labels       []int // labels[i] = resolved ip, or -1 if unmarked

	constants  []value.Value
	strings    []string
	bytes      [][]byte
	objectKeys [][]string

	functions map[rhash.Hash]FnInfo
	types     map[rhash.Hash]RuntimeTypeInfo
	reexports map[string]string

	spans  map[int]string
	labelN map[int]string
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		functions: make(map[rhash.Hash]FnInfo),
		types:     make(map[rhash.Hash]RuntimeTypeInfo),
		reexports: make(map[string]string),
		spans:     make(map[int]string),
		labelN:    make(map[int]string),
	}
}

// DeclareFunction registers a function's item path, arity, and call
// convention, recording its entry point as the next instruction to be
// pushed. Duplicate paths fail, mirroring the registry-conflict discipline
// of §4.5.
func (b *Builder) DeclareFunction(path string, arity int, conv CallConv) (rhash.Hash, error) {
	hash := rhash.FunctionHash(path)
	if _, exists := b.functions[hash]; exists {
		return 0, vmerror.Newf(vmerror.BadArgument, "duplicate function path %q", path)
	}
	b.functions[hash] = FnInfo{Path: path, Offset: len(b.instructions), Arity: arity, CallConv: conv}
	return hash, nil
}

// DeclareType registers a struct/enum/variant's item path and field shape.
func (b *Builder) DeclareType(path string, fields []string, tupleConstructible bool) (rhash.Hash, error) {
	hash := rhash.TypeHash(path)
	if _, exists := b.types[hash]; exists {
		return 0, vmerror.Newf(vmerror.BadArgument, "duplicate type path %q", path)
	}
	b.types[hash] = RuntimeTypeInfo{Path: path, Fields: fields, Arity: len(fields), TupleConstructible: tupleConstructible}
	return hash, nil
}

// AddReexport records that path resolves to target.
func (b *Builder) AddReexport(path, target string) { b.reexports[path] = target }

// NewLabel allocates a fresh, as-yet-unmarked jump label.
func (b *Builder) NewLabel() int {
	b.labels = append(b.labels, -1)
	return len(b.labels) - 1
}

// NewNamedLabel is NewLabel plus a debug name recorded for dumps.
func (b *Builder) NewNamedLabel(name string) int {
	label := b.NewLabel()
	b.labelN[label] = name
	return label
}

// MarkLabel binds label to the instruction offset that will be emitted
// next.
func (b *Builder) MarkLabel(label int) error {
	if label < 0 || label >= len(b.labels) {
		return vmerror.OutOfRangeErr(label, len(b.labels))
	}
	b.labels[label] = len(b.instructions)
	return nil
}

// Push appends an instruction, optionally tagging it with a source span for
// debug info.
func (b *Builder) Push(inst Instruction) int {
	ip := len(b.instructions)
	b.instructions = append(b.instructions, inst)
	return ip
}

// PushWithSpan is Push plus a debug span string.
func (b *Builder) PushWithSpan(inst Instruction, span string) int {
	ip := b.Push(inst)
	b.spans[ip] = span
	return ip
}

// InternString interns s, returning its static-string pool index.
func (b *Builder) InternString(s string) uint32 {
	for i, existing := range b.strings {
		if existing == s {
			return uint32(i)
		}
	}
	b.strings = append(b.strings, s)
	return uint32(len(b.strings) - 1)
}

// InternBytes interns raw bytes, returning its static-byte-string pool
// index.
func (b *Builder) InternBytes(data []byte) uint32 {
	b.bytes = append(b.bytes, data)
	return uint32(len(b.bytes) - 1)
}

// InternObjectKeys interns an ordered field-name list, returning its
// static-object-keys pool index.
func (b *Builder) InternObjectKeys(keys []string) uint32 {
	b.objectKeys = append(b.objectKeys, keys)
	return uint32(len(b.objectKeys) - 1)
}

// AddConstant appends v to the constant pool, returning its index.
func (b *Builder) AddConstant(v value.Value) uint32 {
	b.constants = append(b.constants, v)
	return uint32(len(b.constants) - 1)
}

// Build assembles the final immutable Unit, translating every label to its
// marked instruction offset. Building fails if any allocated label was
// never marked.
func (b *Builder) Build(backend Backend) (*Unit, error) {
	jumpTable := make([]int, len(b.labels))
	for i, ip := range b.labels {
		if ip < 0 {
			return nil, vmerror.Newf(vmerror.BadArgument, "label %d never marked", i)
		}
		jumpTable[i] = ip
	}

	var stream Stream
	switch backend {
	case BackendByteCode:
		stream = newByteCodeStream(b.instructions, jumpTable)
	default:
		stream = newDenseStream(append([]Instruction(nil), b.instructions...), jumpTable)
	}

	var debug *DebugInfo
	if len(b.spans) > 0 || len(b.labelN) > 0 {
		debug = &DebugInfo{Spans: b.spans, Labels: b.labelN}
	}

	functions := make(map[rhash.Hash]FnInfo, len(b.functions))
	for h, info := range b.functions {
		functions[h] = info
	}
	types := make(map[rhash.Hash]RuntimeTypeInfo, len(b.types))
	for h, info := range b.types {
		types[h] = info
	}
	reexports := make(map[string]string, len(b.reexports))
	for k, v := range b.reexports {
		reexports[k] = v
	}

	return &Unit{
		instructions: stream,
		constants:    append([]value.Value(nil), b.constants...),
		strings:      append([]string(nil), b.strings...),
		bytes:        append([][]byte(nil), b.bytes...),
		objectKeys:   append([][]string(nil), b.objectKeys...),
		functions:    functions,
		types:        types,
		debug:        debug,
		reexports:    reexports,
	}, nil
}
