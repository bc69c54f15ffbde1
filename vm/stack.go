// Package vm implements the operand stack, call-frame discipline, and
// opcode dispatch loop of §4.6. Grounded on the teacher's own
// VirtualMachine.run/executeInstruction loop (_examples/wudi-hey/vm/vm.go)
// and its CallStackManager (_examples/wudi-hey/vm/call_stack.go), adapted
// from PHP's const/tmp/var/cv operand addressing to the spec's plain
// operand stack with offset addressing (§4.6 "Stack management").
package vm

import (
	"github.com/wudi/ember/value"
	"github.com/wudi/ember/vmerror"
)

// stack is the VM's single operand stack, shared across all call frames of
// one Vm (§4.6). Frame-local addressing is expressed as an offset from the
// frame's base, never as an absolute index, so frames can be entered and
// left without the caller tracking stack depth itself.
type stack struct {
	values []value.Value
}

func newStack() *stack {
	return &stack{values: make([]value.Value, 0, 64)}
}

func (s *stack) push(v value.Value) {
	s.values = append(s.values, v)
}

func (s *stack) len() int { return len(s.values) }

func (s *stack) pop() (value.Value, error) {
	n := len(s.values)
	if n == 0 {
		return value.Value{}, vmerror.New(vmerror.MissingCallFrame).WithIP(-1)
	}
	v := s.values[n-1]
	s.values = s.values[:n-1]
	return v, nil
}

// popN pops n values and returns them in push order (oldest first).
func (s *stack) popN(n int) ([]value.Value, error) {
	if n == 0 {
		return nil, nil
	}
	if len(s.values) < n {
		return nil, vmerror.OutOfRangeErr(n, len(s.values))
	}
	start := len(s.values) - n
	out := make([]value.Value, n)
	copy(out, s.values[start:])
	s.values = s.values[:start]
	return out, nil
}

func (s *stack) top() (value.Value, error) {
	n := len(s.values)
	if n == 0 {
		return value.Value{}, vmerror.New(vmerror.MissingCallFrame)
	}
	return s.values[n-1], nil
}

// at returns the value at absolute index idx.
func (s *stack) at(idx int) (value.Value, error) {
	if idx < 0 || idx >= len(s.values) {
		return value.Value{}, vmerror.OutOfRangeErr(idx, len(s.values))
	}
	return s.values[idx], nil
}

func (s *stack) set(idx int, v value.Value) error {
	if idx < 0 || idx >= len(s.values) {
		return vmerror.OutOfRangeErr(idx, len(s.values))
	}
	s.values[idx] = v
	return nil
}

func (s *stack) swap(i, j int) error {
	if i < 0 || i >= len(s.values) || j < 0 || j >= len(s.values) {
		return vmerror.OutOfRangeErr(i, len(s.values))
	}
	s.values[i], s.values[j] = s.values[j], s.values[i]
	return nil
}

// truncate drops the stack back to height n, used when unwinding a frame.
func (s *stack) truncate(n int) {
	s.values = s.values[:n]
}
