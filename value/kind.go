package value

// Kind tags the variant a Value currently holds (§3.1).
type Kind byte

const (
	// Immediate primitives, copied by value.
	KindEmpty Kind = iota
	KindBool
	KindByte
	KindChar
	KindInteger
	KindFloat

	// Shared primitives, held in a reference-counted, borrow-tracked Cell.
	KindShared

	// Foreign cells wrapping a host-supplied value with a vtable. Foreign
	// cells use the same Cell/borrow machinery as KindShared but are kept
	// as a distinct Kind so callers can tell a host value from a
	// core-native one without inspecting the cell's vtable.
	KindAny

	// Static references into the owning Unit's constant pool.
	KindStaticString
	KindStaticBytes
	KindStaticObjectKeys
)

func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindBool:
		return "bool"
	case KindByte:
		return "byte"
	case KindChar:
		return "char"
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindShared:
		return "shared"
	case KindAny:
		return "any"
	case KindStaticString:
		return "static string"
	case KindStaticBytes:
		return "static bytes"
	case KindStaticObjectKeys:
		return "static object keys"
	default:
		return "unknown"
	}
}

// CellKind tags the payload kind of a shared Cell.
type CellKind byte

const (
	CellString CellKind = iota
	CellBytes
	CellVec
	CellTuple
	CellMap
	CellFuture
	CellGenerator
	CellStream
	CellStruct
	CellFunction
	CellRange
	CellAny
)

func (k CellKind) String() string {
	switch k {
	case CellString:
		return "String"
	case CellBytes:
		return "Bytes"
	case CellVec:
		return "Vec"
	case CellTuple:
		return "Tuple"
	case CellMap:
		return "Object"
	case CellFuture:
		return "Future"
	case CellGenerator:
		return "Generator"
	case CellStream:
		return "Stream"
	case CellStruct:
		return "Struct"
	case CellFunction:
		return "Function"
	case CellRange:
		return "Range"
	case CellAny:
		return "Any"
	default:
		return "unknown"
	}
}
