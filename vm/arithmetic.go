// Arithmetic, comparison, and bitwise dispatch (§4.6 "Arithmetic and
// operator dispatch"). Grounded on the teacher's ArithmeticExecutor
// (_examples/wudi-hey/vm/arithmetic_executor.go): a pure numeric fast path
// first, falling back to a dispatch table when the operands are not
// primitives — generalized here from PHP's dynamic-coercion rules to the
// spec's protocol-dispatch rule (§4.8: receiver type hash + protocol hash
// -> handler).
package vm

import (
	"math"

	"github.com/wudi/ember/protocol"
	"github.com/wudi/ember/value"
	"github.com/wudi/ember/vmerror"
)

func (vm *Vm) binaryProtocol(proto protocol.Protocol, a, b value.Value) (value.Value, error) {
	handler, ok := vm.ctx.Protocol(a.TypeHash(), proto)
	if !ok {
		return value.Value{}, vmerror.MissingProtocolErr(a.TypeHash(), proto.Name)
	}
	return handler([]value.Value{a, b})
}

func (vm *Vm) unaryProtocol(proto protocol.Protocol, a value.Value) (value.Value, error) {
	handler, ok := vm.ctx.Protocol(a.TypeHash(), proto)
	if !ok {
		return value.Value{}, vmerror.MissingProtocolErr(a.TypeHash(), proto.Name)
	}
	return handler([]value.Value{a})
}

func bothInteger(a, b value.Value) (int64, int64, bool) {
	if a.Kind() != value.KindInteger || b.Kind() != value.KindInteger {
		return 0, 0, false
	}
	ai, _ := a.AsInteger()
	bi, _ := b.AsInteger()
	return ai, bi, true
}

func bothFloaty(a, b value.Value) (float64, float64, bool) {
	af, aok := asFloaty(a)
	bf, bok := asFloaty(b)
	return af, bf, aok && bok
}

func asFloaty(v value.Value) (float64, bool) {
	switch v.Kind() {
	case value.KindInteger:
		i, _ := v.AsInteger()
		return float64(i), true
	case value.KindFloat:
		f, _ := v.AsFloat()
		return f, true
	case value.KindByte:
		b, _ := v.AsByte()
		return float64(b), true
	default:
		return 0, false
	}
}

// arith evaluates a binary arithmetic operator, for both the plain and the
// compound-assign opcodes.
func (vm *Vm) arith(proto protocol.Protocol, a, b value.Value) (value.Value, error) {
	if ai, bi, ok := bothInteger(a, b); ok {
		switch proto {
		case protocol.ADD:
			r := ai + bi
			if (bi > 0 && r < ai) || (bi < 0 && r > ai) {
				return value.Value{}, vmerror.New(vmerror.Overflow)
			}
			return value.Integer(r), nil
		case protocol.SUB:
			r := ai - bi
			if (bi < 0 && r < ai) || (bi > 0 && r > ai) {
				return value.Value{}, vmerror.New(vmerror.Overflow)
			}
			return value.Integer(r), nil
		case protocol.MUL:
			r := ai * bi
			if ai != 0 && r/ai != bi {
				return value.Value{}, vmerror.New(vmerror.Overflow)
			}
			return value.Integer(r), nil
		case protocol.DIV:
			if bi == 0 {
				return value.Value{}, vmerror.New(vmerror.DivideByZero)
			}
			return value.Integer(ai / bi), nil
		case protocol.REM:
			if bi == 0 {
				return value.Value{}, vmerror.New(vmerror.DivideByZero)
			}
			return value.Integer(ai % bi), nil
		}
	}
	if af, bf, ok := bothFloaty(a, b); ok && (a.Kind() == value.KindFloat || b.Kind() == value.KindFloat) {
		switch proto {
		case protocol.ADD:
			return value.Float(af + bf), nil
		case protocol.SUB:
			return value.Float(af - bf), nil
		case protocol.MUL:
			return value.Float(af * bf), nil
		case protocol.DIV:
			return value.Float(af / bf), nil
		case protocol.REM:
			return value.Float(math.Mod(af, bf)), nil
		}
	}
	if proto == protocol.ADD {
		if sa, err := value.ToString(a); err == nil {
			if sb, err := value.ToString(b); err == nil {
				return value.NewStringValue(sa + sb), nil
			}
		}
	}
	return vm.binaryProtocol(proto, a, b)
}

func (vm *Vm) bitwise(proto protocol.Protocol, a, b value.Value) (value.Value, error) {
	if ai, bi, ok := bothInteger(a, b); ok {
		switch proto {
		case protocol.BIT_AND:
			return value.Integer(ai & bi), nil
		case protocol.BIT_OR:
			return value.Integer(ai | bi), nil
		case protocol.BIT_XOR:
			return value.Integer(ai ^ bi), nil
		case protocol.SHL:
			if bi < 0 || bi >= 64 {
				return value.Value{}, vmerror.New(vmerror.Overflow)
			}
			return value.Integer(ai << uint(bi)), nil
		case protocol.SHR:
			if bi < 0 || bi >= 64 {
				return value.Value{}, vmerror.New(vmerror.Overflow)
			}
			return value.Integer(ai >> uint(bi)), nil
		}
	}
	return vm.binaryProtocol(proto, a, b)
}

func (vm *Vm) neg(a value.Value) (value.Value, error) {
	switch a.Kind() {
	case value.KindInteger:
		i, _ := a.AsInteger()
		if i == math.MinInt64 {
			return value.Value{}, vmerror.New(vmerror.Overflow)
		}
		return value.Integer(-i), nil
	case value.KindFloat:
		f, _ := a.AsFloat()
		return value.Float(-f), nil
	default:
		return vm.unaryProtocol(protocol.NEG, a)
	}
}

func (vm *Vm) not(a value.Value) (value.Value, error) {
	switch a.Kind() {
	case value.KindBool:
		b, _ := a.AsBool()
		return value.Bool(!b), nil
	case value.KindInteger:
		i, _ := a.AsInteger()
		return value.Integer(^i), nil
	default:
		return vm.unaryProtocol(protocol.NOT, a)
	}
}

func (vm *Vm) equal(a, b value.Value) (bool, error) {
	if eq, ok := value.PrimitiveEq(a, b); ok {
		return eq, nil
	}
	result, err := vm.binaryProtocol(protocol.EQ, a, b)
	if err != nil {
		return false, err
	}
	return result.AsBool()
}

func (vm *Vm) compare(a, b value.Value) (value.Ordering, error) {
	if ord, ok := value.PrimitiveCmp(a, b); ok {
		return ord, nil
	}
	result, err := vm.binaryProtocol(protocol.CMP, a, b)
	if err != nil {
		return 0, err
	}
	i, err := result.AsInteger()
	if err != nil {
		return 0, err
	}
	switch {
	case i < 0:
		return value.Less, nil
	case i > 0:
		return value.Greater, nil
	default:
		return value.Equal, nil
	}
}
