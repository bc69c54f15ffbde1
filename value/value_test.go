package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImmediateRoundTrip(t *testing.T) {
	i, err := ToInt64(FromInt64(42))
	require.NoError(t, err)
	assert.Equal(t, int64(42), i)

	f, err := ToFloat64(FromFloat64(3.5))
	require.NoError(t, err)
	assert.Equal(t, 3.5, f)

	b, err := ToBool(FromBool(true))
	require.NoError(t, err)
	assert.True(t, b)
}

func TestStringBytesRoundTripIsByteIdentical(t *testing.T) {
	s, err := ToString(FromString("hello"))
	require.NoError(t, err)
	assert.Equal(t, "hello", s)

	b, err := ToBytes(FromBytes([]byte{1, 2, 3}))
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, b)
}

func TestBorrowSafetySharedThenExclusiveFails(t *testing.T) {
	v := NewStringValue("x")
	cell, err := v.Cell()
	require.NoError(t, err)

	guard, err := cell.borrowRef()
	require.NoError(t, err)

	_, err = cell.borrowMut()
	assert.Error(t, err)

	guard.Release()

	mut, err := cell.borrowMut()
	require.NoError(t, err)
	mut.Release()
}

func TestBorrowSafetyExclusiveBlocksEverything(t *testing.T) {
	v := NewStringValue("x")
	cell, _ := v.Cell()

	mut, err := cell.borrowMut()
	require.NoError(t, err)

	_, err = cell.borrowRef()
	assert.Error(t, err)
	_, err = cell.borrowMut()
	assert.Error(t, err)

	mut.Release()

	_, err = cell.borrowRef()
	assert.NoError(t, err)
}

func TestSharedBorrowCanStackMultipleReaders(t *testing.T) {
	v := NewStringValue("x")
	cell, _ := v.Cell()

	g1, err := cell.borrowRef()
	require.NoError(t, err)
	g2, err := cell.borrowRef()
	require.NoError(t, err)

	g1.Release()
	g2.Release()

	mut, err := cell.borrowMut()
	require.NoError(t, err)
	mut.Release()
}

func TestTakeIsOneShot(t *testing.T) {
	v := NewStringValue("x")
	cell, _ := v.Cell()

	payload, err := cell.Take()
	require.NoError(t, err)
	assert.Equal(t, "x", payload)

	_, err = cell.Take()
	assert.Error(t, err)

	_, err = cell.borrowRef()
	assert.Error(t, err)
}

func TestTakeAfterSharedBorrowFails(t *testing.T) {
	v := NewStringValue("x")
	cell, _ := v.Cell()

	guard, err := cell.borrowRef()
	require.NoError(t, err)
	defer guard.Release()

	_, err = cell.Take()
	assert.Error(t, err)
}

func TestTypeHashDistinguishesCellKinds(t *testing.T) {
	assert.NotEqual(t, NewStringValue("x").TypeHash(), NewVecValue(nil).TypeHash())
	assert.Equal(t, TypeHashInteger, Integer(1).TypeHash())
}

func TestObjectInsertionOrderPreserved(t *testing.T) {
	obj, err := ToObject(NewObjectValue())
	require.NoError(t, err)
	obj.Set("b", Integer(2))
	obj.Set("a", Integer(1))
	assert.Equal(t, []string{"b", "a"}, obj.Keys)
}

func TestAnyRoundTripAndTypeMismatch(t *testing.T) {
	vt := &AnyVTable{TypeName: "host.Counter"}
	v := ToAny(vt, 7)
	got, err := FromAny[int](v)
	require.NoError(t, err)
	assert.Equal(t, 7, got)

	_, err = FromAny[string](v)
	assert.Error(t, err)
}

func TestPrimitiveEqAndCmp(t *testing.T) {
	eq, ok := PrimitiveEq(Integer(1), Integer(1))
	assert.True(t, ok)
	assert.True(t, eq)

	order, ok := PrimitiveCmp(Integer(1), Float(2.0))
	assert.True(t, ok)
	assert.Equal(t, Less, order)

	_, ok = PrimitiveEq(NewStringValue("a"), Integer(1))
	assert.False(t, ok)
}
