package vm

import (
	"fmt"

	"github.com/wudi/ember/econtext"
	"github.com/wudi/ember/protocol"
	"github.com/wudi/ember/rhash"
	"github.com/wudi/ember/unit"
	"github.com/wudi/ember/value"
	"github.com/wudi/ember/vmerror"
)

// Vm is one cooperatively-scheduled execution of a Unit against a shared
// RuntimeContext (§4.6, §5). A Vm is never accessed from more than one
// goroutine at a time; the driver package is responsible for stepping
// multiple Vms to model script-level concurrency (§5, DESIGN.md's
// goroutine-boundary decision).
type Vm struct {
	unit   *unit.Unit
	ctx    *econtext.RuntimeContext
	stack  *stack
	frames *frameStack
	ip     int
}

// NewVm constructs a Vm bound to u and ctx. u's instructions are never
// mutated by execution (§8.1.4).
func NewVm(u *unit.Unit, ctx *econtext.RuntimeContext) *Vm {
	return &Vm{
		unit:   u,
		ctx:    ctx,
		stack:  newStack(),
		frames: newFrameStack(),
	}
}

// StackLen reports the operand stack's current height, for tests asserting
// stack balance across a completed call (§8.1.2).
func (vm *Vm) StackLen() int { return vm.stack.len() }

// FrameDepth reports the current call-frame nesting depth.
func (vm *Vm) FrameDepth() int { return vm.frames.depth() }

// Call invokes the function named by hash with args, running it to
// completion or until it cooperatively suspends (§5). A script function
// found in the Unit gets its own call frame and runs through the dispatch
// loop; a host-registered native function runs synchronously and never
// suspends.
func (vm *Vm) Call(hash rhash.Hash, args []value.Value) (value.Value, *Suspend, error) {
	if fn, ok := vm.unit.LookupFunction(hash); ok {
		if len(args) != fn.Arity {
			return value.Value{}, nil, vmerror.BadArgumentCountErr(len(args), fn.Arity)
		}
		depth := vm.frames.depth()
		base := vm.stack.len()
		for _, a := range args {
			vm.stack.push(a)
		}
		vm.frames.push(frame{fnHash: hash, base: base, returnIP: -1})
		vm.ip = fn.Offset
		result, suspend, err := vm.run()
		if err != nil {
			// A failed call is terminal for this Vm (§7: Panic/Error both
			// abort the run); unwind back to the depth Call started from so
			// no half-pushed frame or operand lingers for a later call on
			// the same Vm to trip over (§8.1.3).
			vm.frames.truncate(depth)
			vm.stack.truncate(base)
		}
		return result, suspend, err
	}
	entry, ok := vm.ctx.Function(hash)
	if !ok {
		return value.Value{}, nil, vmerror.MissingFunctionErr(hash)
	}
	if len(args) != entry.Arity {
		return value.Value{}, nil, vmerror.BadArgumentCountErr(len(args), entry.Arity)
	}
	v, err := entry.Handler(args)
	return v, nil, err
}

// Resume continues a Vm previously paused by a Suspend, pushing resumed
// onto the stack as the suspended instruction's result (§5). Resuming a Vm
// that never suspended is a programmer error and panics, mirroring the
// teacher's own "resume without a paused context" assertion style
// (vm/vm.go's frame-nil checks).
func (vm *Vm) Resume(resumed value.Value) (value.Value, *Suspend, error) {
	if vm.frames.depth() == 0 {
		panic("vm: Resume called on a Vm with no paused frame")
	}
	vm.stack.push(resumed)
	return vm.run()
}

// run drives the dispatch loop until the outermost frame returns, an
// instruction suspends execution, or an error/panic propagates (§4.6). It
// mirrors the shape of the teacher's VirtualMachine.run
// (_examples/wudi-hey/vm/vm.go): fetch, dispatch, advance, repeat.
func (vm *Vm) run() (value.Value, *Suspend, error) {
	for {
		if vm.frames.depth() == 0 {
			return value.Value{}, nil, nil
		}
		inst, nextIP, err := vm.unit.InstructionAt(vm.ip)
		if err != nil {
			return value.Value{}, nil, vmerror.Wrap(vmerror.OutOfRange, err).WithIP(vm.ip)
		}

		advance, suspend, retVal, done, err := vm.dispatch(inst)
		if err != nil {
			if p, ok := err.(*vmerror.Panic); ok {
				return value.Value{}, nil, p.WithIP(vm.ip)
			}
			if ve, ok := err.(*vmerror.Error); ok {
				return value.Value{}, nil, ve.WithIP(vm.ip)
			}
			return value.Value{}, nil, err
		}
		if suspend != nil {
			vm.ip = nextIP
			return value.Value{}, suspend, nil
		}
		if done {
			return retVal, nil, nil
		}
		if advance {
			vm.ip = nextIP
		}
	}
}

// dispatch executes one instruction. It returns exactly one of: advance
// (continue at nextIP), suspend (pause cooperatively), or done (the
// outermost frame returned retVal).
func (vm *Vm) dispatch(inst unit.Instruction) (advance bool, suspend *Suspend, retVal value.Value, done bool, err error) {
	s := vm.stack
	f, _ := vm.frames.current()

	switch inst.Op {

	case unit.OpPush:
		c, err := vm.unit.Constant(int(inst.A))
		if err != nil {
			return false, nil, value.Value{}, false, err
		}
		s.push(c)
		return true, nil, value.Value{}, false, nil

	case unit.OpPop:
		_, err := s.pop()
		return true, nil, value.Value{}, false, err

	case unit.OpPopN:
		_, err := s.popN(int(inst.A))
		return true, nil, value.Value{}, false, err

	case unit.OpCopy:
		v, err := s.at(f.base + int(inst.A))
		if err != nil {
			return false, nil, value.Value{}, false, err
		}
		s.push(v)
		return true, nil, value.Value{}, false, nil

	case unit.OpMove:
		idx := f.base + int(inst.A)
		v, err := s.at(idx)
		if err != nil {
			return false, nil, value.Value{}, false, err
		}
		if err := s.set(idx, value.Empty()); err != nil {
			return false, nil, value.Value{}, false, err
		}
		s.push(v)
		return true, nil, value.Value{}, false, nil

	case unit.OpReplace:
		v, err := s.pop()
		if err != nil {
			return false, nil, value.Value{}, false, err
		}
		err = s.set(f.base+int(inst.A), v)
		return true, nil, value.Value{}, false, err

	case unit.OpSwap:
		err := s.swap(f.base+int(inst.A), f.base+int(inst.B))
		return true, nil, value.Value{}, false, err

	case unit.OpClean:
		top, err := s.pop()
		if err != nil {
			return false, nil, value.Value{}, false, err
		}
		if _, err := s.popN(int(inst.A)); err != nil {
			return false, nil, value.Value{}, false, err
		}
		s.push(top)
		return true, nil, value.Value{}, false, nil

	case unit.OpAdd, unit.OpSub, unit.OpMul, unit.OpDiv, unit.OpRem:
		return vm.dispatchArith(inst, false)
	case unit.OpAddAssign, unit.OpSubAssign, unit.OpMulAssign, unit.OpDivAssign, unit.OpRemAssign:
		return vm.dispatchArith(inst, true)

	case unit.OpNeg:
		a, err := s.pop()
		if err != nil {
			return false, nil, value.Value{}, false, err
		}
		r, err := vm.neg(a)
		if err != nil {
			return false, nil, value.Value{}, false, err
		}
		s.push(r)
		return true, nil, value.Value{}, false, nil

	case unit.OpNot:
		a, err := s.pop()
		if err != nil {
			return false, nil, value.Value{}, false, err
		}
		r, err := vm.not(a)
		if err != nil {
			return false, nil, value.Value{}, false, err
		}
		s.push(r)
		return true, nil, value.Value{}, false, nil

	case unit.OpBitAnd, unit.OpBitOr, unit.OpBitXor, unit.OpShl, unit.OpShr:
		return vm.dispatchBitwise(inst, false)
	case unit.OpBitAndAssign, unit.OpBitOrAssign, unit.OpBitXorAssign, unit.OpShlAssign, unit.OpShrAssign:
		return vm.dispatchBitwise(inst, true)

	case unit.OpEq, unit.OpNotEq:
		b, a, err := pop2(s)
		if err != nil {
			return false, nil, value.Value{}, false, err
		}
		eq, err := vm.equal(a, b)
		if err != nil {
			return false, nil, value.Value{}, false, err
		}
		if inst.Op == unit.OpNotEq {
			eq = !eq
		}
		s.push(value.Bool(eq))
		return true, nil, value.Value{}, false, nil

	case unit.OpLt, unit.OpLte, unit.OpGt, unit.OpGte:
		b, a, err := pop2(s)
		if err != nil {
			return false, nil, value.Value{}, false, err
		}
		ord, err := vm.compare(a, b)
		if err != nil {
			return false, nil, value.Value{}, false, err
		}
		var result bool
		switch inst.Op {
		case unit.OpLt:
			result = ord == value.Less
		case unit.OpLte:
			result = ord != value.Greater
		case unit.OpGt:
			result = ord == value.Greater
		case unit.OpGte:
			result = ord != value.Less
		}
		s.push(value.Bool(result))
		return true, nil, value.Value{}, false, nil

	case unit.OpIs, unit.OpIsNot:
		b, a, err := pop2(s)
		if err != nil {
			return false, nil, value.Value{}, false, err
		}
		same := a.TypeHash() == b.TypeHash()
		if inst.Op == unit.OpIsNot {
			same = !same
		}
		s.push(value.Bool(same))
		return true, nil, value.Value{}, false, nil

	case unit.OpJump:
		target, err := vm.unit.TranslateJump(int(inst.A))
		if err != nil {
			return false, nil, value.Value{}, false, err
		}
		vm.ip = target
		return false, nil, value.Value{}, false, nil

	case unit.OpJumpIf, unit.OpJumpIfNot:
		cond, err := s.pop()
		if err != nil {
			return false, nil, value.Value{}, false, err
		}
		b, err := cond.AsBool()
		if err != nil {
			return false, nil, value.Value{}, false, err
		}
		want := inst.Op == unit.OpJumpIf
		if b == want {
			target, err := vm.unit.TranslateJump(int(inst.A))
			if err != nil {
				return false, nil, value.Value{}, false, err
			}
			vm.ip = target
			return false, nil, value.Value{}, false, nil
		}
		return true, nil, value.Value{}, false, nil

	case unit.OpJumpIfBranch:
		top, err := s.pop()
		if err != nil {
			return false, nil, value.Value{}, false, err
		}
		idx, err := top.AsInteger()
		if err != nil {
			return false, nil, value.Value{}, false, err
		}
		if idx == inst.A {
			target, err := vm.unit.TranslateJump(int(inst.B))
			if err != nil {
				return false, nil, value.Value{}, false, err
			}
			vm.ip = target
			return false, nil, value.Value{}, false, nil
		}
		s.push(top)
		return true, nil, value.Value{}, false, nil

	case unit.OpReturn:
		v, err := s.pop()
		if err != nil {
			return false, nil, value.Value{}, false, err
		}
		return vm.execReturn(v)

	case unit.OpReturnUnit:
		return vm.execReturn(value.Empty())

	case unit.OpCall:
		return vm.execCall(rhash.Hash(uint64(inst.A)), int(inst.B))

	case unit.OpCallInstance:
		return vm.execCallInstance(int(inst.A), int(inst.B))

	case unit.OpCallFn:
		return vm.execCallFn(int(inst.A))

	case unit.OpLoadFn:
		v, err := vm.loadFn(rhash.Hash(uint64(inst.A)))
		if err != nil {
			return false, nil, value.Value{}, false, err
		}
		s.push(v)
		return true, nil, value.Value{}, false, nil

	case unit.OpClosure:
		captures, err := s.popN(int(inst.B))
		if err != nil {
			return false, nil, value.Value{}, false, err
		}
		s.push(value.NewFunctionValue(&value.FunctionData{
			Kind: value.FunctionClosure, Hash: rhash.Hash(uint64(inst.A)), Captures: captures,
		}))
		return true, nil, value.Value{}, false, nil

	case unit.OpVec:
		items, err := s.popN(int(inst.A))
		if err != nil {
			return false, nil, value.Value{}, false, err
		}
		s.push(value.NewVecValue(items))
		return true, nil, value.Value{}, false, nil

	case unit.OpTuple:
		items, err := s.popN(int(inst.A))
		if err != nil {
			return false, nil, value.Value{}, false, err
		}
		s.push(value.NewTupleValue(items))
		return true, nil, value.Value{}, false, nil

	case unit.OpObject:
		keys, err := vm.unit.StaticObjectKeys(int(inst.A))
		if err != nil {
			return false, nil, value.Value{}, false, err
		}
		vals, err := s.popN(len(keys))
		if err != nil {
			return false, nil, value.Value{}, false, err
		}
		s.push(value.NewObjectValueWithFields(keys, vals))
		return true, nil, value.Value{}, false, nil

	case unit.OpStruct:
		keys, err := vm.unit.StaticObjectKeys(int(inst.B))
		if err != nil {
			return false, nil, value.Value{}, false, err
		}
		vals, err := s.popN(len(keys))
		if err != nil {
			return false, nil, value.Value{}, false, err
		}
		s.push(value.NewStructValue(&value.StructData{
			Type: rhash.Hash(uint64(inst.A)), Variant: -1,
			Fields: &value.Object{Keys: keys, Vals: vals},
		}))
		return true, nil, value.Value{}, false, nil

	case unit.OpVariant:
		items, err := s.popN(int(inst.C))
		if err != nil {
			return false, nil, value.Value{}, false, err
		}
		s.push(value.NewStructValue(&value.StructData{
			Type: rhash.Hash(uint64(inst.A)), Variant: int32(inst.B), Tuple: items,
		}))
		return true, nil, value.Value{}, false, nil

	case unit.OpRange:
		return vm.execRange(inst)

	case unit.OpObjectIndexGet:
		name, err := vm.unit.StaticString(int(inst.A))
		if err != nil {
			return false, nil, value.Value{}, false, err
		}
		receiver, err := s.pop()
		if err != nil {
			return false, nil, value.Value{}, false, err
		}
		v, err := vm.getField(receiver, name)
		if err != nil {
			return false, nil, value.Value{}, false, err
		}
		s.push(v)
		return true, nil, value.Value{}, false, nil

	case unit.OpObjectIndexSet:
		name, err := vm.unit.StaticString(int(inst.A))
		if err != nil {
			return false, nil, value.Value{}, false, err
		}
		v, receiver, err := pop2(s)
		if err != nil {
			return false, nil, value.Value{}, false, err
		}
		err = vm.setField(receiver, name, v)
		return true, nil, value.Value{}, false, err

	case unit.OpTupleIndexGet:
		receiver, err := s.pop()
		if err != nil {
			return false, nil, value.Value{}, false, err
		}
		v, err := tupleIndex(receiver, int(inst.A))
		if err != nil {
			return false, nil, value.Value{}, false, err
		}
		s.push(v)
		return true, nil, value.Value{}, false, nil

	case unit.OpTupleIndexGetAt:
		receiver, err := s.at(f.base + int(inst.A))
		if err != nil {
			return false, nil, value.Value{}, false, err
		}
		v, err := tupleIndex(receiver, int(inst.B))
		if err != nil {
			return false, nil, value.Value{}, false, err
		}
		s.push(v)
		return true, nil, value.Value{}, false, nil

	case unit.OpTupleIndexSet:
		v, receiver, err := pop2(s)
		if err != nil {
			return false, nil, value.Value{}, false, err
		}
		items, err := value.ToTuple(receiver)
		if err != nil {
			return false, nil, value.Value{}, false, err
		}
		n := int(inst.A)
		if n < 0 || n >= len(items) {
			return false, nil, value.Value{}, false, vmerror.OutOfRangeErr(n, len(items))
		}
		items[n] = v
		return true, nil, value.Value{}, false, nil

	case unit.OpIndexGet:
		index, receiver, err := pop2(s)
		if err != nil {
			return false, nil, value.Value{}, false, err
		}
		v, err := vm.indexGet(receiver, index)
		if err != nil {
			return false, nil, value.Value{}, false, err
		}
		s.push(v)
		return true, nil, value.Value{}, false, nil

	case unit.OpIndexSet:
		v, index, receiver, err := pop3(s)
		if err != nil {
			return false, nil, value.Value{}, false, err
		}
		err = vm.indexSet(receiver, index, v)
		return true, nil, value.Value{}, false, err

	case unit.OpIntoIter:
		receiver, err := s.pop()
		if err != nil {
			return false, nil, value.Value{}, false, err
		}
		it, err := vm.intoIter(receiver)
		if err != nil {
			return false, nil, value.Value{}, false, err
		}
		s.push(it)
		return true, nil, value.Value{}, false, nil

	case unit.OpIterNext:
		iterator, err := s.top()
		if err != nil {
			return false, nil, value.Value{}, false, err
		}
		v, ok, err := iterNext(iterator)
		if err != nil {
			return false, nil, value.Value{}, false, err
		}
		if !ok {
			if _, err := s.pop(); err != nil {
				return false, nil, value.Value{}, false, err
			}
			target, err := vm.unit.TranslateJump(int(inst.A))
			if err != nil {
				return false, nil, value.Value{}, false, err
			}
			vm.ip = target
			return false, nil, value.Value{}, false, nil
		}
		s.push(v)
		return true, nil, value.Value{}, false, nil

	case unit.OpYield:
		v, err := s.pop()
		if err != nil {
			return false, nil, value.Value{}, false, err
		}
		return false, &Suspend{Reason: SuspendYield, Value: v}, value.Value{}, false, nil

	case unit.OpYieldUnit:
		return false, &Suspend{Reason: SuspendYield, Value: value.Empty()}, value.Value{}, false, nil

	case unit.OpAwait:
		v, err := s.pop()
		if err != nil {
			return false, nil, value.Value{}, false, err
		}
		return false, &Suspend{Reason: SuspendAwait, Value: v}, value.Value{}, false, nil

	case unit.OpSelect:
		candidates, err := s.popN(int(inst.A))
		if err != nil {
			return false, nil, value.Value{}, false, err
		}
		return false, &Suspend{Reason: SuspendSelect, Candidates: candidates}, value.Value{}, false, nil

	case unit.OpMatchType:
		top, err := s.top()
		if err != nil {
			return false, nil, value.Value{}, false, err
		}
		if top.TypeHash() != rhash.Hash(uint64(inst.A)) {
			target, err := vm.unit.TranslateJump(int(inst.B))
			if err != nil {
				return false, nil, value.Value{}, false, err
			}
			vm.ip = target
			return false, nil, value.Value{}, false, nil
		}
		return true, nil, value.Value{}, false, nil

	case unit.OpMatchVariant:
		top, err := s.top()
		if err != nil {
			return false, nil, value.Value{}, false, err
		}
		matched := false
		if sd, err := value.FromAny[*value.StructData](top); err == nil {
			matched = sd.Type == rhash.Hash(uint64(inst.A)) && sd.Variant == int32(inst.B)
		}
		if !matched {
			target, err := vm.unit.TranslateJump(int(inst.C))
			if err != nil {
				return false, nil, value.Value{}, false, err
			}
			vm.ip = target
			return false, nil, value.Value{}, false, nil
		}
		return true, nil, value.Value{}, false, nil

	case unit.OpMatchSequence:
		top, err := s.top()
		if err != nil {
			return false, nil, value.Value{}, false, err
		}
		n := 0
		matched := false
		if kind, err := top.CellKind(); err == nil && (kind == value.CellTuple || kind == value.CellVec) {
			items, _ := toItems(top, kind)
			n = len(items)
			matched = n == int(inst.A)
		}
		if !matched {
			target, err := vm.unit.TranslateJump(int(inst.B))
			if err != nil {
				return false, nil, value.Value{}, false, err
			}
			vm.ip = target
			return false, nil, value.Value{}, false, nil
		}
		return true, nil, value.Value{}, false, nil

	case unit.OpMatchObject:
		top, err := s.top()
		if err != nil {
			return false, nil, value.Value{}, false, err
		}
		keys, err := vm.unit.StaticObjectKeys(int(inst.A))
		if err != nil {
			return false, nil, value.Value{}, false, err
		}
		matched := true
		obj, objErr := objectOf(top)
		if objErr != nil {
			matched = false
		} else {
			for _, k := range keys {
				if _, ok := obj.Get(k); !ok {
					matched = false
					break
				}
			}
		}
		if !matched {
			target, err := vm.unit.TranslateJump(int(inst.B))
			if err != nil {
				return false, nil, value.Value{}, false, err
			}
			vm.ip = target
			return false, nil, value.Value{}, false, nil
		}
		return true, nil, value.Value{}, false, nil

	case unit.OpString:
		v, err := s.pop()
		if err != nil {
			return false, nil, value.Value{}, false, err
		}
		str, err := vm.display(v)
		if err != nil {
			return false, nil, value.Value{}, false, err
		}
		s.push(value.NewStringValue(str))
		return true, nil, value.Value{}, false, nil

	case unit.OpBytes:
		v, err := s.pop()
		if err != nil {
			return false, nil, value.Value{}, false, err
		}
		if b, err := value.ToBytes(v); err == nil {
			s.push(value.NewBytesValue(b))
			return true, nil, value.Value{}, false, nil
		}
		str, err := value.ToString(v)
		if err != nil {
			return false, nil, value.Value{}, false, err
		}
		s.push(value.NewBytesValue([]byte(str)))
		return true, nil, value.Value{}, false, nil

	case unit.OpFormat:
		spec, err := vm.unit.StaticString(int(inst.A))
		if err != nil {
			return false, nil, value.Value{}, false, err
		}
		v, err := s.pop()
		if err != nil {
			return false, nil, value.Value{}, false, err
		}
		str, err := vm.display(v)
		if err != nil {
			return false, nil, value.Value{}, false, err
		}
		s.push(value.NewStringValue(fmt.Sprintf(spec, str)))
		return true, nil, value.Value{}, false, nil

	case unit.OpStringConcat:
		items, err := s.popN(int(inst.A))
		if err != nil {
			return false, nil, value.Value{}, false, err
		}
		out := ""
		for _, item := range items {
			str, err := vm.display(item)
			if err != nil {
				return false, nil, value.Value{}, false, err
			}
			out += str
		}
		s.push(value.NewStringValue(out))
		return true, nil, value.Value{}, false, nil

	case unit.OpPanic:
		reason, err := vm.unit.StaticString(int(inst.A))
		if err != nil {
			return false, nil, value.Value{}, false, err
		}
		return false, nil, value.Value{}, false, vmerror.NewPanic(reason)

	case unit.OpDrop:
		err := s.set(f.base+int(inst.A), value.Empty())
		return true, nil, value.Value{}, false, err

	default:
		return false, nil, value.Value{}, false, vmerror.Newf(vmerror.MissingCallFrame, "unhandled opcode %s", inst.Op)
	}
}

func pop2(s *stack) (top, under value.Value, err error) {
	top, err = s.pop()
	if err != nil {
		return value.Value{}, value.Value{}, err
	}
	under, err = s.pop()
	return top, under, err
}

func pop3(s *stack) (top, mid, bottom value.Value, err error) {
	top, err = s.pop()
	if err != nil {
		return value.Value{}, value.Value{}, value.Value{}, err
	}
	mid, err = s.pop()
	if err != nil {
		return value.Value{}, value.Value{}, value.Value{}, err
	}
	bottom, err = s.pop()
	return top, mid, bottom, err
}

func (vm *Vm) execReturn(v value.Value) (advance bool, suspend *Suspend, retVal value.Value, done bool, err error) {
	f, ok := vm.frames.pop()
	if !ok {
		return false, nil, value.Value{}, false, vmerror.New(vmerror.MissingCallFrame)
	}
	vm.stack.truncate(f.base)
	if f.returnIP == -1 {
		return false, nil, v, true, nil
	}
	vm.stack.push(v)
	vm.ip = f.returnIP
	return false, nil, value.Value{}, false, nil
}

func (vm *Vm) execCall(hash rhash.Hash, argc int) (advance bool, suspend *Suspend, retVal value.Value, done bool, err error) {
	if fn, ok := vm.unit.LookupFunction(hash); ok {
		if fn.CallConv != unit.CallImmediate {
			return vm.materializeCall(fn, hash, argc)
		}
		if argc != fn.Arity {
			return false, nil, value.Value{}, false, vmerror.BadArgumentCountErr(argc, fn.Arity)
		}
		base := vm.stack.len() - argc
		if base < 0 {
			return false, nil, value.Value{}, false, vmerror.OutOfRangeErr(argc, vm.stack.len())
		}
		vm.frames.push(frame{fnHash: hash, base: base, returnIP: vm.ip + 1})
		vm.ip = fn.Offset
		return false, nil, value.Value{}, false, nil
	}
	entry, ok := vm.ctx.Function(hash)
	if !ok {
		return false, nil, value.Value{}, false, vmerror.MissingFunctionErr(hash)
	}
	args, err := vm.stack.popN(argc)
	if err != nil {
		return false, nil, value.Value{}, false, err
	}
	if len(args) != entry.Arity {
		return false, nil, value.Value{}, false, vmerror.BadArgumentCountErr(len(args), entry.Arity)
	}
	result, err := entry.Handler(args)
	if err != nil {
		return false, nil, value.Value{}, false, err
	}
	vm.stack.push(result)
	return true, nil, value.Value{}, false, nil
}

// materializeCall implements the §4.7 "cross-VM calls are materialized by
// the dispatch code" rule: a call to a non-immediate function never runs
// inline. It pops argc args, parks a fresh child Vm bound to the same Unit
// and RuntimeContext behind a WrapperHandle, and pushes the resulting
// Future/Generator/Stream value as the call's result — the callee's body
// does not run a single instruction until the host steps the wrapper.
func (vm *Vm) materializeCall(fn unit.FnInfo, hash rhash.Hash, argc int) (advance bool, suspend *Suspend, retVal value.Value, done bool, err error) {
	if argc != fn.Arity {
		return false, nil, value.Value{}, false, vmerror.BadArgumentCountErr(argc, fn.Arity)
	}
	args, err := vm.stack.popN(argc)
	if err != nil {
		return false, nil, value.Value{}, false, err
	}
	child := NewVm(vm.unit, vm.ctx)
	handle := newWrapperHandle(fn.CallConv, child, hash, args)
	vm.stack.push(handle.wrap())
	return true, nil, value.Value{}, false, nil
}

func (vm *Vm) execCallInstance(nameIdx, argc int) (advance bool, suspend *Suspend, retVal value.Value, done bool, err error) {
	name, err := vm.unit.StaticString(nameIdx)
	if err != nil {
		return false, nil, value.Value{}, false, err
	}
	args, err := vm.stack.popN(argc)
	if err != nil {
		return false, nil, value.Value{}, false, err
	}
	if len(args) == 0 {
		return false, nil, value.Value{}, false, vmerror.Newf(vmerror.BadArgumentCount, "instance call with no receiver")
	}
	self := args[0]
	entry, ok := vm.ctx.InstanceFunction(self.TypeHash(), name)
	if !ok {
		return false, nil, value.Value{}, false, vmerror.MissingInstanceFunctionErr(self.TypeHash(), name)
	}
	if len(args)-1 != entry.Arity {
		return false, nil, value.Value{}, false, vmerror.BadArgumentCountErr(len(args)-1, entry.Arity)
	}
	result, err := entry.Handler(args)
	if err != nil {
		return false, nil, value.Value{}, false, err
	}
	vm.stack.push(result)
	return true, nil, value.Value{}, false, nil
}

func (vm *Vm) execCallFn(argc int) (advance bool, suspend *Suspend, retVal value.Value, done bool, err error) {
	fnVal, err := vm.stack.pop()
	if err != nil {
		return false, nil, value.Value{}, false, err
	}
	args, err := vm.stack.popN(argc)
	if err != nil {
		return false, nil, value.Value{}, false, err
	}
	data, err := value.FromAny[*value.FunctionData](fnVal)
	if err != nil {
		return false, nil, value.Value{}, false, err
	}
	if data.Kind == value.FunctionClosure {
		args = append(append([]value.Value{}, data.Captures...), args...)
	}
	if fn, ok := vm.unit.LookupFunction(data.Hash); ok {
		if fn.CallConv != unit.CallImmediate {
			if len(args) != fn.Arity {
				return false, nil, value.Value{}, false, vmerror.BadArgumentCountErr(len(args), fn.Arity)
			}
			child := NewVm(vm.unit, vm.ctx)
			handle := newWrapperHandle(fn.CallConv, child, data.Hash, args)
			vm.stack.push(handle.wrap())
			return true, nil, value.Value{}, false, nil
		}
		if len(args) != fn.Arity {
			return false, nil, value.Value{}, false, vmerror.BadArgumentCountErr(len(args), fn.Arity)
		}
		base := vm.stack.len()
		for _, a := range args {
			vm.stack.push(a)
		}
		vm.frames.push(frame{fnHash: data.Hash, base: base, returnIP: vm.ip + 1})
		vm.ip = fn.Offset
		return false, nil, value.Value{}, false, nil
	}
	entry, ok := vm.ctx.Function(data.Hash)
	if !ok {
		return false, nil, value.Value{}, false, vmerror.MissingFunctionErr(data.Hash)
	}
	if len(args) != entry.Arity {
		return false, nil, value.Value{}, false, vmerror.BadArgumentCountErr(len(args), entry.Arity)
	}
	result, err := entry.Handler(args)
	if err != nil {
		return false, nil, value.Value{}, false, err
	}
	vm.stack.push(result)
	return true, nil, value.Value{}, false, nil
}

func (vm *Vm) loadFn(hash rhash.Hash) (value.Value, error) {
	if _, ok := vm.unit.LookupFunction(hash); ok {
		return value.NewFunctionValue(&value.FunctionData{Kind: value.FunctionScript, Hash: hash}), nil
	}
	if _, ok := vm.ctx.Function(hash); ok {
		return value.NewFunctionValue(&value.FunctionData{Kind: value.FunctionNative, Hash: hash}), nil
	}
	return value.Value{}, vmerror.MissingFunctionErr(hash)
}

func (vm *Vm) execRange(inst unit.Instruction) (advance bool, suspend *Suspend, retVal value.Value, done bool, err error) {
	var to, from *value.Value
	if inst.B != 0 {
		v, err := vm.stack.pop()
		if err != nil {
			return false, nil, value.Value{}, false, err
		}
		to = &v
	}
	if inst.A != 0 {
		v, err := vm.stack.pop()
		if err != nil {
			return false, nil, value.Value{}, false, err
		}
		from = &v
	}
	vm.stack.push(value.NewRangeValue(from, to, inst.C != 0))
	return true, nil, value.Value{}, false, nil
}

func (vm *Vm) dispatchArith(inst unit.Instruction, assign bool) (advance bool, suspend *Suspend, retVal value.Value, done bool, err error) {
	proto := arithProtocol(inst.Op)
	if assign {
		f, _ := vm.frames.current()
		rhs, err := vm.stack.pop()
		if err != nil {
			return false, nil, value.Value{}, false, err
		}
		idx := f.base + int(inst.A)
		lhs, err := vm.stack.at(idx)
		if err != nil {
			return false, nil, value.Value{}, false, err
		}
		result, err := vm.arith(proto, lhs, rhs)
		if err != nil {
			return false, nil, value.Value{}, false, err
		}
		err = vm.stack.set(idx, result)
		return true, nil, value.Value{}, false, err
	}
	b, a, err := pop2(vm.stack)
	if err != nil {
		return false, nil, value.Value{}, false, err
	}
	result, err := vm.arith(proto, a, b)
	if err != nil {
		return false, nil, value.Value{}, false, err
	}
	vm.stack.push(result)
	return true, nil, value.Value{}, false, nil
}

func (vm *Vm) dispatchBitwise(inst unit.Instruction, assign bool) (advance bool, suspend *Suspend, retVal value.Value, done bool, err error) {
	proto := bitwiseProtocol(inst.Op)
	if assign {
		f, _ := vm.frames.current()
		rhs, err := vm.stack.pop()
		if err != nil {
			return false, nil, value.Value{}, false, err
		}
		idx := f.base + int(inst.A)
		lhs, err := vm.stack.at(idx)
		if err != nil {
			return false, nil, value.Value{}, false, err
		}
		result, err := vm.bitwise(proto, lhs, rhs)
		if err != nil {
			return false, nil, value.Value{}, false, err
		}
		err = vm.stack.set(idx, result)
		return true, nil, value.Value{}, false, err
	}
	b, a, err := pop2(vm.stack)
	if err != nil {
		return false, nil, value.Value{}, false, err
	}
	result, err := vm.bitwise(proto, a, b)
	if err != nil {
		return false, nil, value.Value{}, false, err
	}
	vm.stack.push(result)
	return true, nil, value.Value{}, false, nil
}

func arithProtocol(op unit.Opcode) protocol.Protocol {
	switch op {
	case unit.OpAdd, unit.OpAddAssign:
		return protocol.ADD
	case unit.OpSub, unit.OpSubAssign:
		return protocol.SUB
	case unit.OpMul, unit.OpMulAssign:
		return protocol.MUL
	case unit.OpDiv, unit.OpDivAssign:
		return protocol.DIV
	default:
		return protocol.REM
	}
}

func bitwiseProtocol(op unit.Opcode) protocol.Protocol {
	switch op {
	case unit.OpBitAnd, unit.OpBitAndAssign:
		return protocol.BIT_AND
	case unit.OpBitOr, unit.OpBitOrAssign:
		return protocol.BIT_OR
	case unit.OpBitXor, unit.OpBitXorAssign:
		return protocol.BIT_XOR
	case unit.OpShl, unit.OpShlAssign:
		return protocol.SHL
	default:
		return protocol.SHR
	}
}

func (vm *Vm) display(v value.Value) (string, error) {
	switch v.Kind() {
	case value.KindEmpty:
		return "()", nil
	case value.KindBool:
		b, _ := v.AsBool()
		return fmt.Sprintf("%t", b), nil
	case value.KindByte:
		b, _ := v.AsByte()
		return fmt.Sprintf("%d", b), nil
	case value.KindChar:
		c, _ := v.AsChar()
		return string(c), nil
	case value.KindInteger:
		i, _ := v.AsInteger()
		return fmt.Sprintf("%d", i), nil
	case value.KindFloat:
		fl, _ := v.AsFloat()
		return fmt.Sprintf("%g", fl), nil
	}
	if s, err := value.ToString(v); err == nil {
		return s, nil
	}
	if handler, ok := vm.ctx.Protocol(v.TypeHash(), protocol.STRING_DISPLAY); ok {
		result, err := handler([]value.Value{v})
		if err != nil {
			return "", err
		}
		return value.ToString(result)
	}
	return fmt.Sprintf("<%s>", v.TypeHash()), nil
}
