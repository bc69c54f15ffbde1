package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wudi/ember/econtext"
	"github.com/wudi/ember/protocol"
	"github.com/wudi/ember/rhash"
	"github.com/wudi/ember/unit"
	"github.com/wudi/ember/value"
	"github.com/wudi/ember/vmerror"
)

func emptyRuntime(t *testing.T) *econtext.RuntimeContext {
	t.Helper()
	return econtext.NewContext().Freeze()
}

func TestCallScriptFunctionAddsArguments(t *testing.T) {
	b := unit.NewBuilder()
	hash, err := b.DeclareFunction("add", 2, unit.CallImmediate)
	require.NoError(t, err)
	b.Push(unit.Instruction{Op: unit.OpCopy, A: 0})
	b.Push(unit.Instruction{Op: unit.OpCopy, A: 1})
	b.Push(unit.Instruction{Op: unit.OpAdd})
	b.Push(unit.Instruction{Op: unit.OpReturn})
	u, err := b.Build(unit.BackendDense)
	require.NoError(t, err)

	m := NewVm(u, emptyRuntime(t))
	result, suspend, err := m.Call(hash, []value.Value{value.Integer(2), value.Integer(3)})
	require.NoError(t, err)
	assert.Nil(t, suspend)
	got, err := result.AsInteger()
	require.NoError(t, err)
	assert.Equal(t, int64(5), got)
	assert.Equal(t, 0, m.StackLen(), "stack must balance back to empty after a completed call (§8.1.2)")
	assert.Equal(t, 0, m.FrameDepth())
}

func TestCallScriptFunctionBadArgumentCount(t *testing.T) {
	b := unit.NewBuilder()
	hash, err := b.DeclareFunction("add", 2, unit.CallImmediate)
	require.NoError(t, err)
	b.Push(unit.Instruction{Op: unit.OpReturnUnit})
	u, err := b.Build(unit.BackendDense)
	require.NoError(t, err)

	m := NewVm(u, emptyRuntime(t))
	_, _, err = m.Call(hash, []value.Value{value.Integer(1)})
	require.Error(t, err)
	var ve *vmerror.Error
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, vmerror.BadArgumentCount, ve.Kind)
}

func TestCallUnknownFunctionFails(t *testing.T) {
	b := unit.NewBuilder()
	u, err := b.Build(unit.BackendDense)
	require.NoError(t, err)

	m := NewVm(u, emptyRuntime(t))
	_, _, err = m.Call(rhash.FunctionHash("missing"), nil)
	require.Error(t, err)
}

func TestNativeFunctionCallDispatchesThroughContext(t *testing.T) {
	c := econtext.NewContext()
	hash, err := c.RegisterFunction("double", 1, func(args []value.Value) (value.Value, error) {
		i, err := args[0].AsInteger()
		if err != nil {
			return value.Value{}, err
		}
		return value.Integer(i * 2), nil
	})
	require.NoError(t, err)
	rc := c.Freeze()

	b := unit.NewBuilder()
	u, err := b.Build(unit.BackendDense)
	require.NoError(t, err)

	m := NewVm(u, rc)
	result, suspend, err := m.Call(hash, []value.Value{value.Integer(21)})
	require.NoError(t, err)
	assert.Nil(t, suspend)
	got, _ := result.AsInteger()
	assert.Equal(t, int64(42), got)
}

// TestIterationSumsAVecArgument drives IntoIter/IterNext/AddAssign/Jump
// together over a script function body summing its single Vec argument,
// exercising the loop-control opcode family end to end (§4.6, §8.2.x).
func TestIterationSumsAVecArgument(t *testing.T) {
	b := unit.NewBuilder()
	hash, err := b.DeclareFunction("sum", 1, unit.CallImmediate)
	require.NoError(t, err)

	zero := b.AddConstant(value.Integer(0))
	loop := b.NewLabel()
	done := b.NewLabel()

	b.Push(unit.Instruction{Op: unit.OpPush, A: int64(zero)}) // acc = 0
	b.Push(unit.Instruction{Op: unit.OpCopy, A: 0})            // copy of vec arg
	b.Push(unit.Instruction{Op: unit.OpIntoIter})               // iterator on top
	require.NoError(t, b.MarkLabel(loop))
	b.Push(unit.Instruction{Op: unit.OpIterNext, A: int64(done)})
	b.Push(unit.Instruction{Op: unit.OpAddAssign, A: 1}) // acc += value
	b.Push(unit.Instruction{Op: unit.OpJump, A: int64(loop)})
	require.NoError(t, b.MarkLabel(done))
	b.Push(unit.Instruction{Op: unit.OpCopy, A: 1}) // push acc
	b.Push(unit.Instruction{Op: unit.OpReturn})

	u, err := b.Build(unit.BackendDense)
	require.NoError(t, err)

	m := NewVm(u, emptyRuntime(t))
	vec := value.NewVecValue([]value.Value{value.Integer(1), value.Integer(2), value.Integer(3)})
	result, suspend, err := m.Call(hash, []value.Value{vec})
	require.NoError(t, err)
	assert.Nil(t, suspend)
	got, err := result.AsInteger()
	require.NoError(t, err)
	assert.Equal(t, int64(6), got)
	assert.Equal(t, 0, m.StackLen())
}

func TestYieldSuspendsAndResumeContinues(t *testing.T) {
	b := unit.NewBuilder()
	hash, err := b.DeclareFunction("echo_twice", 1, unit.CallGenerator)
	require.NoError(t, err)
	b.Push(unit.Instruction{Op: unit.OpCopy, A: 0})
	b.Push(unit.Instruction{Op: unit.OpYield})
	b.Push(unit.Instruction{Op: unit.OpReturn})
	u, err := b.Build(unit.BackendDense)
	require.NoError(t, err)

	m := NewVm(u, emptyRuntime(t))
	_, suspend, err := m.Call(hash, []value.Value{value.Integer(7)})
	require.NoError(t, err)
	require.NotNil(t, suspend)
	assert.Equal(t, SuspendYield, suspend.Reason)
	yielded, err := suspend.Value.AsInteger()
	require.NoError(t, err)
	assert.Equal(t, int64(7), yielded)

	result, suspend, err := m.Resume(value.Integer(99))
	require.NoError(t, err)
	assert.Nil(t, suspend)
	got, err := result.AsInteger()
	require.NoError(t, err)
	assert.Equal(t, int64(99), got)
}

func TestInstanceCallDispatchesOnReceiverType(t *testing.T) {
	c := econtext.NewContext()
	point, err := c.RegisterType("Point", []string{"x", "y"}, 2)
	require.NoError(t, err)
	_, err = c.RegisterInstanceFunction(point, "sum", 0, func(args []value.Value) (value.Value, error) {
		obj, err := value.ToObject(args[0])
		if err != nil {
			return value.Value{}, err
		}
		x, _ := obj.Get("x")
		y, _ := obj.Get("y")
		xi, _ := x.AsInteger()
		yi, _ := y.AsInteger()
		return value.Integer(xi + yi), nil
	})
	require.NoError(t, err)
	rc := c.Freeze()

	b := unit.NewBuilder()
	nameIdx := b.InternString("sum")
	hash, err := b.DeclareFunction("call_sum", 1, unit.CallImmediate)
	require.NoError(t, err)
	b.Push(unit.Instruction{Op: unit.OpCopy, A: 0})
	b.Push(unit.Instruction{Op: unit.OpCallInstance, A: int64(nameIdx), B: 1})
	b.Push(unit.Instruction{Op: unit.OpReturn})
	u, err := b.Build(unit.BackendDense)
	require.NoError(t, err)

	m := NewVm(u, rc)
	receiver := value.NewStructValue(&value.StructData{
		Type: point, Variant: -1,
		Fields: &value.Object{Keys: []string{"x", "y"}, Vals: []value.Value{value.Integer(3), value.Integer(4)}},
	})
	result, suspend, err := m.Call(hash, []value.Value{receiver})
	require.NoError(t, err)
	assert.Nil(t, suspend)
	got, _ := result.AsInteger()
	assert.Equal(t, int64(7), got)
}

// TestCallOpMaterializesGenerator exercises §4.7's cross-VM materialization
// rule: an OpCall to a CallGenerator-convention function from within a
// running script body must not run any of the callee's instructions. It
// must instead push a Generator value, leaving the caller free to step it
// later via WrapperHandle.Next (§8.2.3).
func TestCallOpMaterializesGenerator(t *testing.T) {
	b := unit.NewBuilder()
	genHash, err := b.DeclareFunction("counter", 0, unit.CallGenerator)
	require.NoError(t, err)
	one := b.AddConstant(value.Integer(1))
	two := b.AddConstant(value.Integer(2))
	b.Push(unit.Instruction{Op: unit.OpPush, A: int64(one)})
	b.Push(unit.Instruction{Op: unit.OpYield})
	b.Push(unit.Instruction{Op: unit.OpPush, A: int64(two)})
	b.Push(unit.Instruction{Op: unit.OpReturn})

	callerHash, err := b.DeclareFunction("make_counter", 0, unit.CallImmediate)
	require.NoError(t, err)
	b.Push(unit.Instruction{Op: unit.OpCall, A: int64(genHash), B: 0})
	b.Push(unit.Instruction{Op: unit.OpReturn})

	u, err := b.Build(unit.BackendDense)
	require.NoError(t, err)

	m := NewVm(u, emptyRuntime(t))
	result, suspend, err := m.Call(callerHash, nil)
	require.NoError(t, err)
	assert.Nil(t, suspend, "materializing a generator call must not suspend the caller")
	assert.Equal(t, 0, m.StackLen())
	assert.Equal(t, 0, m.FrameDepth())

	cellKind, err := result.CellKind()
	require.NoError(t, err)
	assert.Equal(t, value.CellGenerator, cellKind)

	handle, err := value.FromAny[*WrapperHandle](result)
	require.NoError(t, err)

	first, ok, err := handle.Next(value.Empty())
	require.NoError(t, err)
	require.True(t, ok)
	got, err := first.AsInteger()
	require.NoError(t, err)
	assert.Equal(t, int64(1), got)

	second, ok, err := handle.Next(value.Empty())
	require.NoError(t, err)
	require.False(t, ok, "the generator body returns after its single yield")
	_ = second

	third, ok, err := handle.Next(value.Empty())
	require.NoError(t, err)
	require.False(t, ok, "a handle stays exhausted once the child Vm has finished")
	_ = third
}

// TestCallFnOpMaterializesFuture exercises the OpCallFn path (calling a
// function value rather than a static hash) against a CallAsync function:
// materialization must produce a Future value pollable to completion
// without ever surfacing a Suspend to the caller (§8.2.4's single-future
// half of select).
func TestCallFnOpMaterializesFuture(t *testing.T) {
	b := unit.NewBuilder()
	asyncHash, err := b.DeclareFunction("compute", 1, unit.CallAsync)
	require.NoError(t, err)
	b.Push(unit.Instruction{Op: unit.OpCopy, A: 0})
	ten := b.AddConstant(value.Integer(10))
	b.Push(unit.Instruction{Op: unit.OpPush, A: int64(ten)})
	b.Push(unit.Instruction{Op: unit.OpAdd})
	b.Push(unit.Instruction{Op: unit.OpReturn})

	callerHash, err := b.DeclareFunction("spawn", 1, unit.CallImmediate)
	require.NoError(t, err)
	b.Push(unit.Instruction{Op: unit.OpCopy, A: 0})
	b.Push(unit.Instruction{Op: unit.OpLoadFn, A: int64(asyncHash)})
	b.Push(unit.Instruction{Op: unit.OpCallFn, A: 1})
	b.Push(unit.Instruction{Op: unit.OpReturn})

	u, err := b.Build(unit.BackendDense)
	require.NoError(t, err)

	m := NewVm(u, emptyRuntime(t))
	result, suspend, err := m.Call(callerHash, []value.Value{value.Integer(32)})
	require.NoError(t, err)
	assert.Nil(t, suspend)
	assert.Equal(t, 0, m.StackLen())

	cellKind, err := result.CellKind()
	require.NoError(t, err)
	assert.Equal(t, value.CellFuture, cellKind)

	resolved, err := ResolveFuture(result)
	require.NoError(t, err)
	got, err := resolved.AsInteger()
	require.NoError(t, err)
	assert.Equal(t, int64(42), got)
}

// TestPollingCompletedFutureAgainReturnsFutureCompleted asserts that a
// Future already driven to completion does not silently replay its
// cached result on a later Poll: the caller instead sees a FutureCompleted
// error, while the very call that completed the future still returned the
// genuine result.
func TestPollingCompletedFutureAgainReturnsFutureCompleted(t *testing.T) {
	b := unit.NewBuilder()
	asyncHash, err := b.DeclareFunction("compute", 1, unit.CallAsync)
	require.NoError(t, err)
	b.Push(unit.Instruction{Op: unit.OpCopy, A: 0})
	one := b.AddConstant(value.Integer(1))
	b.Push(unit.Instruction{Op: unit.OpPush, A: int64(one)})
	b.Push(unit.Instruction{Op: unit.OpAdd})
	b.Push(unit.Instruction{Op: unit.OpReturn})

	callerHash, err := b.DeclareFunction("spawn", 1, unit.CallImmediate)
	require.NoError(t, err)
	b.Push(unit.Instruction{Op: unit.OpCopy, A: 0})
	b.Push(unit.Instruction{Op: unit.OpCall, A: int64(asyncHash), B: 1})
	b.Push(unit.Instruction{Op: unit.OpReturn})

	u, err := b.Build(unit.BackendDense)
	require.NoError(t, err)

	m := NewVm(u, emptyRuntime(t))
	result, suspend, err := m.Call(callerHash, []value.Value{value.Integer(9)})
	require.NoError(t, err)
	assert.Nil(t, suspend)

	aw, err := value.FromAny[Pollable](result)
	require.NoError(t, err)

	got, ready, err := aw.Poll()
	require.NoError(t, err)
	assert.True(t, ready)
	n, err := got.AsInteger()
	require.NoError(t, err)
	assert.Equal(t, int64(10), n)

	_, ready, err = aw.Poll()
	assert.True(t, ready)
	var ve *vmerror.Error
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, vmerror.FutureCompleted, ve.Kind)
}

// TestErrorMidDispatchLeavesNoDanglingState asserts §8.1.3: a runtime error
// partway through a call unwinds cleanly rather than leaving the Vm in a
// state that corrupts later, unrelated calls. A fresh Call on the very
// same Vm after the error must behave exactly as it would on a brand-new
// Vm over the same Unit.
func TestErrorMidDispatchLeavesNoDanglingState(t *testing.T) {
	b := unit.NewBuilder()
	hash, err := b.DeclareFunction("bad_divide", 2, unit.CallImmediate)
	require.NoError(t, err)
	b.Push(unit.Instruction{Op: unit.OpCopy, A: 0})
	b.Push(unit.Instruction{Op: unit.OpCopy, A: 1})
	b.Push(unit.Instruction{Op: unit.OpDiv})
	b.Push(unit.Instruction{Op: unit.OpReturn})

	addHash, err := b.DeclareFunction("add", 2, unit.CallImmediate)
	require.NoError(t, err)
	b.Push(unit.Instruction{Op: unit.OpCopy, A: 0})
	b.Push(unit.Instruction{Op: unit.OpCopy, A: 1})
	b.Push(unit.Instruction{Op: unit.OpAdd})
	b.Push(unit.Instruction{Op: unit.OpReturn})

	u, err := b.Build(unit.BackendDense)
	require.NoError(t, err)

	m := NewVm(u, emptyRuntime(t))
	result, suspend, err := m.Call(hash, []value.Value{value.Integer(5), value.Integer(0)})
	require.Error(t, err)
	var ve *vmerror.Error
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, vmerror.DivideByZero, ve.Kind)
	assert.Nil(t, suspend)
	assert.True(t, result.IsEmpty(), "a failed call must hand back the zero Value, never a half-built one")

	sum, suspend, err := m.Call(addHash, []value.Value{value.Integer(2), value.Integer(3)})
	require.NoError(t, err, "a prior error on the same Vm must not corrupt an unrelated later call")
	assert.Nil(t, suspend)
	got, err := sum.AsInteger()
	require.NoError(t, err)
	assert.Equal(t, int64(5), got)
	assert.Equal(t, 0, m.StackLen())
	assert.Equal(t, 0, m.FrameDepth())
}

// TestMatchVariantWithGuardPicksBoundField exercises OpMatchVariant binding
// a variant's tuple payload followed by a guard expression over the bound
// fields (§8.2.5): classify(Pair(x, y)) returns whichever of x/y is larger,
// derived by re-reading the matched argument's fields rather than holding
// them in extra stack slots across the guard comparison.
func TestMatchVariantWithGuardPicksBoundField(t *testing.T) {
	pairType := rhash.TypeHash("Pair")

	b := unit.NewBuilder()
	hash, err := b.DeclareFunction("classify", 1, unit.CallImmediate)
	require.NoError(t, err)

	mismatch := b.NewLabel()
	returnY := b.NewLabel()

	b.Push(unit.Instruction{Op: unit.OpCopy, A: 0})
	b.Push(unit.Instruction{Op: unit.OpMatchVariant, A: int64(pairType), B: 0, C: int64(mismatch)})
	b.Push(unit.Instruction{Op: unit.OpPop}) // discard the peeked copy MatchVariant left behind

	b.Push(unit.Instruction{Op: unit.OpCopy, A: 0})
	b.Push(unit.Instruction{Op: unit.OpTupleIndexGet, A: 0}) // x
	b.Push(unit.Instruction{Op: unit.OpCopy, A: 0})
	b.Push(unit.Instruction{Op: unit.OpTupleIndexGet, A: 1}) // y
	b.Push(unit.Instruction{Op: unit.OpGt})                  // guard: x > y
	b.Push(unit.Instruction{Op: unit.OpJumpIfNot, A: int64(returnY)})

	b.Push(unit.Instruction{Op: unit.OpCopy, A: 0})
	b.Push(unit.Instruction{Op: unit.OpTupleIndexGet, A: 0})
	b.Push(unit.Instruction{Op: unit.OpReturn})

	require.NoError(t, b.MarkLabel(returnY))
	b.Push(unit.Instruction{Op: unit.OpCopy, A: 0})
	b.Push(unit.Instruction{Op: unit.OpTupleIndexGet, A: 1})
	b.Push(unit.Instruction{Op: unit.OpReturn})

	require.NoError(t, b.MarkLabel(mismatch))
	b.Push(unit.Instruction{Op: unit.OpReturnUnit})

	u, err := b.Build(unit.BackendDense)
	require.NoError(t, err)

	m := NewVm(u, emptyRuntime(t))

	pair := value.NewStructValue(&value.StructData{
		Type: pairType, Variant: 0, Tuple: []value.Value{value.Integer(3), value.Integer(9)},
	})
	result, suspend, err := m.Call(hash, []value.Value{pair})
	require.NoError(t, err)
	assert.Nil(t, suspend)
	got, err := result.AsInteger()
	require.NoError(t, err)
	assert.Equal(t, int64(9), got, "guard false (3 > 9 is false) must fall through to the y branch")
	assert.Equal(t, 0, m.StackLen())

	pair = value.NewStructValue(&value.StructData{
		Type: pairType, Variant: 0, Tuple: []value.Value{value.Integer(11), value.Integer(4)},
	})
	result, suspend, err = m.Call(hash, []value.Value{pair})
	require.NoError(t, err)
	assert.Nil(t, suspend)
	got, err = result.AsInteger()
	require.NoError(t, err)
	assert.Equal(t, int64(11), got, "guard true (11 > 4) must take the x branch")
	assert.Equal(t, 0, m.StackLen())

	other := value.NewStructValue(&value.StructData{Type: rhash.TypeHash("Other"), Variant: 0, Tuple: nil})
	result, suspend, err = m.Call(hash, []value.Value{other})
	require.NoError(t, err)
	assert.Nil(t, suspend)
	assert.True(t, result.IsEmpty(), "a variant mismatch must take the fallback branch, not match")
}

// TestAddFallsBackToRegisteredOperatorProtocol closes the remaining half of
// §8.2.1: once both operands fail the numeric and string-concat fast paths
// in arith, OpAdd must dispatch to a receiver-registered ADD protocol
// handler instead of erroring outright.
func TestAddFallsBackToRegisteredOperatorProtocol(t *testing.T) {
	c := econtext.NewContext()
	vec2, err := c.RegisterType("Vec2", []string{"x", "y"}, 2)
	require.NoError(t, err)
	err = c.RegisterProtocol(vec2, protocol.ADD, func(args []value.Value) (value.Value, error) {
		a, err := value.ToObject(args[0])
		if err != nil {
			return value.Value{}, err
		}
		b, err := value.ToObject(args[1])
		if err != nil {
			return value.Value{}, err
		}
		ax, _ := a.Get("x")
		ay, _ := a.Get("y")
		bx, _ := b.Get("x")
		by, _ := b.Get("y")
		axi, _ := ax.AsInteger()
		ayi, _ := ay.AsInteger()
		bxi, _ := bx.AsInteger()
		byi, _ := by.AsInteger()
		return value.NewStructValue(&value.StructData{
			Type: vec2, Variant: -1,
			Fields: &value.Object{Keys: []string{"x", "y"}, Vals: []value.Value{
				value.Integer(axi + bxi), value.Integer(ayi + byi),
			}},
		}), nil
	})
	require.NoError(t, err)
	rc := c.Freeze()

	b := unit.NewBuilder()
	hash, err := b.DeclareFunction("add_vec2", 2, unit.CallImmediate)
	require.NoError(t, err)
	b.Push(unit.Instruction{Op: unit.OpCopy, A: 0})
	b.Push(unit.Instruction{Op: unit.OpCopy, A: 1})
	b.Push(unit.Instruction{Op: unit.OpAdd})
	b.Push(unit.Instruction{Op: unit.OpReturn})
	u, err := b.Build(unit.BackendDense)
	require.NoError(t, err)

	m := NewVm(u, rc)
	v1 := value.NewStructValue(&value.StructData{
		Type: vec2, Variant: -1,
		Fields: &value.Object{Keys: []string{"x", "y"}, Vals: []value.Value{value.Integer(1), value.Integer(2)}},
	})
	v2 := value.NewStructValue(&value.StructData{
		Type: vec2, Variant: -1,
		Fields: &value.Object{Keys: []string{"x", "y"}, Vals: []value.Value{value.Integer(3), value.Integer(4)}},
	})
	result, suspend, err := m.Call(hash, []value.Value{v1, v2})
	require.NoError(t, err)
	assert.Nil(t, suspend)

	sum, err := value.ToObject(result)
	require.NoError(t, err)
	x, _ := sum.Get("x")
	y, _ := sum.Get("y")
	xi, _ := x.AsInteger()
	yi, _ := y.AsInteger()
	assert.Equal(t, int64(4), xi)
	assert.Equal(t, int64(6), yi)
	assert.Equal(t, 0, m.StackLen())
}

// TestObjectIndexGetReadsStructFieldByStaticKey closes the remaining half of
// §8.2.2: a static `.field` access compiles to OpObjectIndexGet with the
// field name interned as a static string, not a dynamic OpIndexGet lookup.
func TestObjectIndexGetReadsStructFieldByStaticKey(t *testing.T) {
	point := rhash.TypeHash("Point3")

	b := unit.NewBuilder()
	fieldIdx := b.InternString("z")
	hash, err := b.DeclareFunction("read_z", 1, unit.CallImmediate)
	require.NoError(t, err)
	b.Push(unit.Instruction{Op: unit.OpCopy, A: 0})
	b.Push(unit.Instruction{Op: unit.OpObjectIndexGet, A: int64(fieldIdx)})
	b.Push(unit.Instruction{Op: unit.OpReturn})
	u, err := b.Build(unit.BackendDense)
	require.NoError(t, err)

	m := NewVm(u, emptyRuntime(t))
	receiver := value.NewStructValue(&value.StructData{
		Type: point, Variant: -1,
		Fields: &value.Object{
			Keys: []string{"x", "y", "z"},
			Vals: []value.Value{value.Integer(1), value.Integer(2), value.Integer(3)},
		},
	})
	result, suspend, err := m.Call(hash, []value.Value{receiver})
	require.NoError(t, err)
	assert.Nil(t, suspend)
	got, err := result.AsInteger()
	require.NoError(t, err)
	assert.Equal(t, int64(3), got)
	assert.Equal(t, 0, m.StackLen())
}

// TestObjectIndexGetReadsTupleStructFieldByRTTI covers step 2 of
// ObjectIndexGet's resolution: a tuple-style struct (positional payload,
// no named Fields object) resolves a static `.field` access by consulting
// the unit's RTTI for the field's declared position.
func TestObjectIndexGetReadsTupleStructFieldByRTTI(t *testing.T) {
	b := unit.NewBuilder()
	pointHash, err := b.DeclareType("Point3", []string{"x", "y", "z"}, true)
	require.NoError(t, err)
	fieldIdx := b.InternString("y")
	hash, err := b.DeclareFunction("read_y", 1, unit.CallImmediate)
	require.NoError(t, err)
	b.Push(unit.Instruction{Op: unit.OpCopy, A: 0})
	b.Push(unit.Instruction{Op: unit.OpObjectIndexGet, A: int64(fieldIdx)})
	b.Push(unit.Instruction{Op: unit.OpReturn})
	u, err := b.Build(unit.BackendDense)
	require.NoError(t, err)

	m := NewVm(u, emptyRuntime(t))
	receiver := value.NewStructValue(&value.StructData{
		Type: pointHash, Variant: -1,
		Tuple: []value.Value{value.Integer(10), value.Integer(20), value.Integer(30)},
	})
	result, suspend, err := m.Call(hash, []value.Value{receiver})
	require.NoError(t, err)
	assert.Nil(t, suspend)
	got, err := result.AsInteger()
	require.NoError(t, err)
	assert.Equal(t, int64(20), got)
}

// TestObjectIndexSetWritesTupleStructFieldByRTTI is the ObjectIndexSet
// mirror of TestObjectIndexGetReadsTupleStructFieldByRTTI.
func TestObjectIndexSetWritesTupleStructFieldByRTTI(t *testing.T) {
	b := unit.NewBuilder()
	pointHash, err := b.DeclareType("Point3", []string{"x", "y", "z"}, true)
	require.NoError(t, err)
	fieldIdx := b.InternString("y")
	hundred := b.AddConstant(value.Integer(100))
	hash, err := b.DeclareFunction("write_y", 1, unit.CallImmediate)
	require.NoError(t, err)
	b.Push(unit.Instruction{Op: unit.OpCopy, A: 0})
	b.Push(unit.Instruction{Op: unit.OpPush, A: int64(hundred)})
	b.Push(unit.Instruction{Op: unit.OpObjectIndexSet, A: int64(fieldIdx)})
	b.Push(unit.Instruction{Op: unit.OpCopy, A: 0})
	b.Push(unit.Instruction{Op: unit.OpObjectIndexGet, A: int64(fieldIdx)})
	b.Push(unit.Instruction{Op: unit.OpReturn})
	u, err := b.Build(unit.BackendDense)
	require.NoError(t, err)

	m := NewVm(u, emptyRuntime(t))
	tuple := []value.Value{value.Integer(10), value.Integer(20), value.Integer(30)}
	receiver := value.NewStructValue(&value.StructData{Type: pointHash, Variant: -1, Tuple: tuple})
	result, suspend, err := m.Call(hash, []value.Value{receiver})
	require.NoError(t, err)
	assert.Nil(t, suspend)
	got, err := result.AsInteger()
	require.NoError(t, err)
	assert.Equal(t, int64(100), got)
}

// TestObjectIndexGetFallsBackToRegisteredFieldAccessor covers the
// FieldAccessor resolution step for a receiver with neither a Map cell
// nor struct RTTI listing the field: a host-registered accessor backs a
// computed/virtual property.
func TestObjectIndexGetFallsBackToRegisteredFieldAccessor(t *testing.T) {
	widget := rhash.TypeHash("Widget")

	ctx := econtext.NewContext()
	err := ctx.RegisterFieldAccessor(widget, "label", func(args []value.Value) (value.Value, error) {
		return value.NewStringValue("widget-label"), nil
	}, nil)
	require.NoError(t, err)
	runtime := ctx.Freeze()

	b := unit.NewBuilder()
	fieldIdx := b.InternString("label")
	hash, err := b.DeclareFunction("read_label", 1, unit.CallImmediate)
	require.NoError(t, err)
	b.Push(unit.Instruction{Op: unit.OpCopy, A: 0})
	b.Push(unit.Instruction{Op: unit.OpObjectIndexGet, A: int64(fieldIdx)})
	b.Push(unit.Instruction{Op: unit.OpReturn})
	u, err := b.Build(unit.BackendDense)
	require.NoError(t, err)

	m := NewVm(u, runtime)
	receiver := value.NewStructValue(&value.StructData{Type: widget, Variant: -1, Tuple: []value.Value{}})
	result, suspend, err := m.Call(hash, []value.Value{receiver})
	require.NoError(t, err)
	assert.Nil(t, suspend)
	got, err := value.ToString(result)
	require.NoError(t, err)
	assert.Equal(t, "widget-label", got)
}

// TestObjectIndexGetFallsBackToGetProtocol covers step 3 of
// ObjectIndexGet's resolution: no Map cell, no RTTI-listed field, no
// registered FieldAccessor, so the GET protocol on the receiver's type
// hash is dispatched with the field name as an auxiliary argument.
func TestObjectIndexGetFallsBackToGetProtocol(t *testing.T) {
	widget := rhash.TypeHash("Widget")

	ctx := econtext.NewContext()
	err := ctx.RegisterProtocol(widget, protocol.GET, func(args []value.Value) (value.Value, error) {
		name, err := value.ToString(args[1])
		if err != nil {
			return value.Value{}, err
		}
		return value.NewStringValue("dynamic:" + name), nil
	})
	require.NoError(t, err)
	runtime := ctx.Freeze()

	b := unit.NewBuilder()
	fieldIdx := b.InternString("color")
	hash, err := b.DeclareFunction("read_color", 1, unit.CallImmediate)
	require.NoError(t, err)
	b.Push(unit.Instruction{Op: unit.OpCopy, A: 0})
	b.Push(unit.Instruction{Op: unit.OpObjectIndexGet, A: int64(fieldIdx)})
	b.Push(unit.Instruction{Op: unit.OpReturn})
	u, err := b.Build(unit.BackendDense)
	require.NoError(t, err)

	m := NewVm(u, runtime)
	receiver := value.NewStructValue(&value.StructData{Type: widget, Variant: -1, Tuple: []value.Value{}})
	result, suspend, err := m.Call(hash, []value.Value{receiver})
	require.NoError(t, err)
	assert.Nil(t, suspend)
	got, err := value.ToString(result)
	require.NoError(t, err)
	assert.Equal(t, "dynamic:color", got)
}
