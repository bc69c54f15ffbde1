package main

import (
	"fmt"

	"github.com/wudi/ember/rhash"
	"github.com/wudi/ember/unit"
	"github.com/wudi/ember/value"
)

// demo is one built-in program cmd/ember can run or step, standing in for
// "the compiler" producing a Unit (§1, §6): a Unit assembled directly with
// unit.Builder rather than parsed from source.
type demo struct {
	name        string
	description string
	build       func() (*unit.Unit, rhash.Hash, error)
}

var demos = []demo{
	{"arithmetic", "(10 + 20) * 2 via Add/Mul", buildArithmeticDemo},
	{"collections", "sort an out-of-order Vec via collections::sorted", buildCollectionsDemo},
	{"iterate", "pull one element off collections::iter via the unified .next()", buildIterateDemo},
	{"future", "join two future::sleep calls and await the result", buildFutureDemo},
}

func findDemo(name string) (*demo, error) {
	for i := range demos {
		if demos[i].name == name {
			return &demos[i], nil
		}
	}
	return nil, fmt.Errorf("no such demo %q (see --help for the list)", name)
}

func buildArithmeticDemo() (*unit.Unit, rhash.Hash, error) {
	b := unit.NewBuilder()
	hash, err := b.DeclareFunction("main", 0, unit.CallImmediate)
	if err != nil {
		return nil, 0, err
	}
	ten := b.AddConstant(value.Integer(10))
	twenty := b.AddConstant(value.Integer(20))
	two := b.AddConstant(value.Integer(2))
	b.Push(unit.Instruction{Op: unit.OpPush, A: int64(ten)})
	b.Push(unit.Instruction{Op: unit.OpPush, A: int64(twenty)})
	b.Push(unit.Instruction{Op: unit.OpAdd})
	b.Push(unit.Instruction{Op: unit.OpPush, A: int64(two)})
	b.Push(unit.Instruction{Op: unit.OpMul})
	b.Push(unit.Instruction{Op: unit.OpReturn})
	u, err := b.Build(unit.BackendDense)
	return u, hash, err
}

func buildCollectionsDemo() (*unit.Unit, rhash.Hash, error) {
	b := unit.NewBuilder()
	hash, err := b.DeclareFunction("main", 0, unit.CallImmediate)
	if err != nil {
		return nil, 0, err
	}
	three := b.AddConstant(value.Integer(3))
	one := b.AddConstant(value.Integer(1))
	two := b.AddConstant(value.Integer(2))
	b.Push(unit.Instruction{Op: unit.OpPush, A: int64(three)})
	b.Push(unit.Instruction{Op: unit.OpPush, A: int64(one)})
	b.Push(unit.Instruction{Op: unit.OpPush, A: int64(two)})
	b.Push(unit.Instruction{Op: unit.OpVec, A: 3})
	sortedHash := rhash.FunctionHash("collections::sorted")
	b.Push(unit.Instruction{Op: unit.OpCall, A: int64(sortedHash), B: 1})
	b.Push(unit.Instruction{Op: unit.OpReturn})
	u, err := b.Build(unit.BackendDense)
	return u, hash, err
}

func buildIterateDemo() (*unit.Unit, rhash.Hash, error) {
	b := unit.NewBuilder()
	hash, err := b.DeclareFunction("main", 0, unit.CallImmediate)
	if err != nil {
		return nil, 0, err
	}
	ten := b.AddConstant(value.Integer(10))
	twenty := b.AddConstant(value.Integer(20))
	b.Push(unit.Instruction{Op: unit.OpPush, A: int64(ten)})
	b.Push(unit.Instruction{Op: unit.OpPush, A: int64(twenty)})
	b.Push(unit.Instruction{Op: unit.OpVec, A: 2})
	iterHash := rhash.FunctionHash("collections::iter")
	b.Push(unit.Instruction{Op: unit.OpCall, A: int64(iterHash), B: 1})
	nextIdx := b.InternString("next")
	b.Push(unit.Instruction{Op: unit.OpCallInstance, A: int64(nextIdx), B: 1})
	b.Push(unit.Instruction{Op: unit.OpReturn})
	u, err := b.Build(unit.BackendDense)
	return u, hash, err
}

func buildFutureDemo() (*unit.Unit, rhash.Hash, error) {
	b := unit.NewBuilder()
	hash, err := b.DeclareFunction("main", 0, unit.CallImmediate)
	if err != nil {
		return nil, 0, err
	}
	fastMs := b.AddConstant(value.Integer(2))
	slowMs := b.AddConstant(value.Integer(5))
	sleepHash := rhash.FunctionHash("future::sleep")
	b.Push(unit.Instruction{Op: unit.OpPush, A: int64(fastMs)})
	b.Push(unit.Instruction{Op: unit.OpCall, A: int64(sleepHash), B: 1})
	b.Push(unit.Instruction{Op: unit.OpPush, A: int64(slowMs)})
	b.Push(unit.Instruction{Op: unit.OpCall, A: int64(sleepHash), B: 1})
	b.Push(unit.Instruction{Op: unit.OpTuple, A: 2})
	joinHash := rhash.FunctionHash("future::join")
	b.Push(unit.Instruction{Op: unit.OpCall, A: int64(joinHash), B: 1})
	b.Push(unit.Instruction{Op: unit.OpAwait})
	b.Push(unit.Instruction{Op: unit.OpReturn})
	u, err := b.Build(unit.BackendDense)
	return u, hash, err
}
