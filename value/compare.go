package value

// Ordering mirrors a three-way comparison result, used by the CMP protocol
// (§4.8) and the VM's Lt/Lte/Gt/Gte instructions (§4.6).
type Ordering int8

const (
	Less Ordering = -1
	Equal Ordering = 0
	Greater Ordering = 1
)

// PrimitiveEq reports whether a and b are equal, for the primitive kinds the
// VM can compare without consulting the EQ protocol. ok is false if either
// value is not a directly comparable primitive (the caller should fall back
// to protocol dispatch, per §4.6 "Arithmetic and operator dispatch").
func PrimitiveEq(a, b Value) (equal bool, ok bool) {
	if a.kind != b.kind {
		if isNumeric(a.kind) && isNumeric(b.kind) {
			af, aok := numericValue(a)
			bf, bok := numericValue(b)
			if aok && bok {
				return af == bf, true
			}
		}
		return false, false
	}
	switch a.kind {
	case KindEmpty:
		return true, true
	case KindBool, KindByte, KindChar, KindInteger:
		return a.num == b.num, true
	case KindFloat:
		af, _ := a.AsFloat()
		bf, _ := b.AsFloat()
		return af == bf, true
	default:
		return false, false
	}
}

// PrimitiveCmp orders a against b for the primitive numeric kinds. ok is
// false when the values are not both directly comparable, signaling the
// caller to fall back to the CMP protocol.
func PrimitiveCmp(a, b Value) (order Ordering, ok bool) {
	af, aok := numericValue(a)
	bf, bok := numericValue(b)
	if !aok || !bok {
		return 0, false
	}
	switch {
	case af < bf:
		return Less, true
	case af > bf:
		return Greater, true
	default:
		return Equal, true
	}
}

func isNumeric(k Kind) bool {
	switch k {
	case KindByte, KindInteger, KindFloat, KindChar:
		return true
	default:
		return false
	}
}

func numericValue(v Value) (float64, bool) {
	switch v.kind {
	case KindByte:
		return float64(byte(v.num)), true
	case KindChar:
		return float64(uint32(v.num)), true
	case KindInteger:
		return float64(int64(v.num)), true
	case KindFloat:
		f, _ := v.AsFloat()
		return f, true
	default:
		return 0, false
	}
}
