package driver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wudi/ember/econtext"
	"github.com/wudi/ember/unit"
	"github.com/wudi/ember/value"
	"github.com/wudi/ember/vm"
)

func emptyRuntime(t *testing.T) *econtext.RuntimeContext {
	t.Helper()
	return econtext.NewContext().Freeze()
}

// TestCompleteResolvesArithmetic covers §8.2.1 end to end through the
// driver's top-level entry point.
func TestCompleteResolvesArithmetic(t *testing.T) {
	b := unit.NewBuilder()
	hash, err := b.DeclareFunction("calc", 0, unit.CallImmediate)
	require.NoError(t, err)
	one := b.AddConstant(value.Integer(1))
	two := b.AddConstant(value.Integer(2))
	three := b.AddConstant(value.Integer(3))
	b.Push(unit.Instruction{Op: unit.OpPush, A: int64(one)})
	b.Push(unit.Instruction{Op: unit.OpPush, A: int64(two)})
	b.Push(unit.Instruction{Op: unit.OpPush, A: int64(three)})
	b.Push(unit.Instruction{Op: unit.OpMul})
	b.Push(unit.Instruction{Op: unit.OpAdd})
	b.Push(unit.Instruction{Op: unit.OpReturn})
	u, err := b.Build(unit.BackendDense)
	require.NoError(t, err)

	exec := New(u, emptyRuntime(t), hash, nil)
	result, err := exec.Complete()
	require.NoError(t, err)
	got, err := result.AsInteger()
	require.NoError(t, err)
	assert.Equal(t, int64(7), got)
	assert.True(t, exec.Done())
}

// TestStepResumeDrivesGeneratorEntrypoint covers §8.2.3's full scenario at
// the driver layer: an entrypoint declared CallGenerator yields twice then
// completes, observed one Step/Resume pair at a time.
func TestStepResumeDrivesGeneratorEntrypoint(t *testing.T) {
	b := unit.NewBuilder()
	hash, err := b.DeclareFunction("two_then_done", 0, unit.CallGenerator)
	require.NoError(t, err)
	one := b.AddConstant(value.Integer(1))
	two := b.AddConstant(value.Integer(2))
	b.Push(unit.Instruction{Op: unit.OpPush, A: int64(one)})
	b.Push(unit.Instruction{Op: unit.OpYield})
	b.Push(unit.Instruction{Op: unit.OpPop})
	b.Push(unit.Instruction{Op: unit.OpPush, A: int64(two)})
	b.Push(unit.Instruction{Op: unit.OpYield})
	b.Push(unit.Instruction{Op: unit.OpPop})
	b.Push(unit.Instruction{Op: unit.OpReturnUnit})
	u, err := b.Build(unit.BackendDense)
	require.NoError(t, err)

	exec := New(u, emptyRuntime(t), hash, nil)

	_, suspend, done, err := exec.Step()
	require.NoError(t, err)
	require.False(t, done)
	require.NotNil(t, suspend)
	assert.Equal(t, vm.SuspendYield, suspend.Reason)
	first, err := suspend.Value.AsInteger()
	require.NoError(t, err)
	assert.Equal(t, int64(1), first)

	_, suspend, done, err = exec.Resume(value.Empty())
	require.NoError(t, err)
	require.False(t, done)
	require.NotNil(t, suspend)
	second, err := suspend.Value.AsInteger()
	require.NoError(t, err)
	assert.Equal(t, int64(2), second)

	result, suspend, done, err := exec.Resume(value.Empty())
	require.NoError(t, err)
	assert.True(t, done)
	assert.Nil(t, suspend)
	assert.True(t, result.IsEmpty())
	assert.True(t, exec.Done())
}

// TestCompleteResolvesSelectOverTwoFutures covers §8.2.4: selecting over
// two immediately-ready async blocks returns one of their values, having
// fully polled the chosen branch (the leftmost-ready-wins simplification
// documented in DESIGN.md for purely cooperative futures).
func TestCompleteResolvesSelectOverTwoFutures(t *testing.T) {
	b := unit.NewBuilder()
	asyncOneHash, err := b.DeclareFunction("one", 0, unit.CallAsync)
	require.NoError(t, err)
	oneConst := b.AddConstant(value.Integer(1))
	b.Push(unit.Instruction{Op: unit.OpPush, A: int64(oneConst)})
	b.Push(unit.Instruction{Op: unit.OpReturn})

	asyncTwoHash, err := b.DeclareFunction("two", 0, unit.CallAsync)
	require.NoError(t, err)
	twoConst := b.AddConstant(value.Integer(2))
	b.Push(unit.Instruction{Op: unit.OpPush, A: int64(twoConst)})
	b.Push(unit.Instruction{Op: unit.OpReturn})

	hash, err := b.DeclareFunction("race", 0, unit.CallImmediate)
	require.NoError(t, err)
	b.Push(unit.Instruction{Op: unit.OpCall, A: int64(asyncOneHash), B: 0})
	b.Push(unit.Instruction{Op: unit.OpCall, A: int64(asyncTwoHash), B: 0})
	b.Push(unit.Instruction{Op: unit.OpSelect, A: 2})
	b.Push(unit.Instruction{Op: unit.OpReturn})
	u, err := b.Build(unit.BackendDense)
	require.NoError(t, err)

	exec := New(u, emptyRuntime(t), hash, nil)
	result, err := exec.Complete()
	require.NoError(t, err)

	items, err := value.ToTuple(result)
	require.NoError(t, err)
	require.Len(t, items, 2)
	idx, err := items[0].AsInteger()
	require.NoError(t, err)
	assert.Equal(t, int64(0), idx)
	picked, err := items[1].AsInteger()
	require.NoError(t, err)
	assert.Equal(t, int64(1), picked, "leftmost candidate is branch 0, async one() resolving to 1")
}
