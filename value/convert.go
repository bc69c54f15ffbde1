package value

import "github.com/wudi/ember/vmerror"

func typeMismatch(v Value) error {
	return vmerror.Newf(vmerror.TypeExpected, "host conversion failed for %s", v.Kind())
}

// --- Round-trip host conversions (§6.1, §8.1.7) ---
//
// For every primitive Value v, FromHost(ToHost(v)) == v must hold; for
// strings and byte strings the conversion is identity on the underlying
// bytes. These helpers are the concrete embedding-API conversion traits
// named informally in the original §6.1.

// ToInt64 converts v to an int64, or a TypeExpected error.
func ToInt64(v Value) (int64, error) { return v.AsInteger() }

// FromInt64 is the inverse of ToInt64.
func FromInt64(i int64) Value { return Integer(i) }

// ToFloat64 converts v to a float64.
func ToFloat64(v Value) (float64, error) { return v.AsFloat() }

// FromFloat64 is the inverse of ToFloat64.
func FromFloat64(f float64) Value { return Float(f) }

// ToBool converts v to a bool.
func ToBool(v Value) (bool, error) { return v.AsBool() }

// FromBool is the inverse of ToBool.
func FromBool(b bool) Value { return Bool(b) }

// ToString converts a shared String cell (or a static string reference
// resolved by the caller beforehand) to a Go string.
func ToString(v Value) (string, error) {
	cell, err := v.Cell()
	if err != nil {
		return "", err
	}
	if cell.Kind() != CellString {
		return "", typeMismatch(v)
	}
	var out string
	err = cell.BorrowRef(func(payload any) error {
		s, ok := payload.(string)
		if !ok {
			return typeMismatch(v)
		}
		out = s
		return nil
	})
	return out, err
}

// FromString is the inverse of ToString: it allocates a new shared String
// cell, so the identity `ToString(FromString(s)) == s` holds on the bytes
// but not on cell identity.
func FromString(s string) Value { return NewStringValue(s) }

// ToBytes converts a shared Bytes cell to a Go byte slice.
func ToBytes(v Value) ([]byte, error) {
	cell, err := v.Cell()
	if err != nil {
		return nil, err
	}
	if cell.Kind() != CellBytes {
		return nil, typeMismatch(v)
	}
	var out []byte
	err = cell.BorrowRef(func(payload any) error {
		b, ok := payload.([]byte)
		if !ok {
			return typeMismatch(v)
		}
		out = b
		return nil
	})
	return out, err
}

// FromBytes is the inverse of ToBytes.
func FromBytes(b []byte) Value { return NewBytesValue(b) }

// ToVec converts a shared Vec cell to a Go slice of Values.
func ToVec(v Value) ([]Value, error) {
	cell, err := v.Cell()
	if err != nil {
		return nil, err
	}
	if cell.Kind() != CellVec {
		return nil, typeMismatch(v)
	}
	var out []Value
	err = cell.BorrowRef(func(payload any) error {
		items, ok := payload.([]Value)
		if !ok {
			return typeMismatch(v)
		}
		out = items
		return nil
	})
	return out, err
}

// FromVec is the inverse of ToVec.
func FromVec(items []Value) Value { return NewVecValue(items) }

// ToTuple converts a shared Tuple cell to a Go slice of Values.
func ToTuple(v Value) ([]Value, error) {
	cell, err := v.Cell()
	if err != nil {
		return nil, err
	}
	if cell.Kind() != CellTuple {
		return nil, typeMismatch(v)
	}
	var out []Value
	err = cell.BorrowRef(func(payload any) error {
		items, ok := payload.([]Value)
		if !ok {
			return typeMismatch(v)
		}
		out = items
		return nil
	})
	return out, err
}

// FromTuple is the inverse of ToTuple.
func FromTuple(items []Value) Value { return NewTupleValue(items) }

// ToObject converts a shared Map cell to its *Object payload.
func ToObject(v Value) (*Object, error) {
	cell, err := v.Cell()
	if err != nil {
		return nil, err
	}
	if cell.Kind() != CellMap {
		return nil, typeMismatch(v)
	}
	var out *Object
	err = cell.BorrowRef(func(payload any) error {
		obj, ok := payload.(*Object)
		if !ok {
			return typeMismatch(v)
		}
		out = obj
		return nil
	})
	return out, err
}
