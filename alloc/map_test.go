package alloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashMapInsertGetDelete(t *testing.T) {
	m := NewHashMap[int]()
	existed, err := m.TryInsert("a", 1)
	require.NoError(t, err)
	assert.False(t, existed)

	existed, err = m.TryInsert("a", 2)
	require.NoError(t, err)
	assert.True(t, existed, "re-inserting an existing key must report existed=true and not grow")

	v, ok := m.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 2, v)

	assert.True(t, m.Delete("a"))
	assert.False(t, m.Delete("a"))
	_, ok = m.Get("a")
	assert.False(t, ok)
}

func TestHashMapPreservesInsertionOrder(t *testing.T) {
	m := NewHashMap[int]()
	for i, k := range []string{"z", "a", "m"} {
		_, err := m.TryInsert(k, i)
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"z", "a", "m"}, m.Keys())
}

func TestHashMapAllocationFailureLeavesStatePristine(t *testing.T) {
	m := NewHashMap[int]()
	_, err := m.TryInsert("a", 1)
	require.NoError(t, err)

	before := append([]string(nil), m.Keys()...)

	m.Inj.FailNext(1)
	_, err = m.TryInsert("b", 2)
	require.Error(t, err)
	assert.Equal(t, before, m.Keys())
	assert.Equal(t, 1, m.Len())

	// overwriting an existing key never allocates, so an armed failure
	// must not trip on it.
	m.Inj.FailNext(1)
	existed, err := m.TryInsert("a", 99)
	require.NoError(t, err)
	assert.True(t, existed)
	m.Inj.FailNext(0)

	_, err = m.TryInsert("b", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, m.Len())
}

func TestHashMapTryCloneIndependence(t *testing.T) {
	m := NewHashMap[int]()
	_, err := m.TryInsert("a", 1)
	require.NoError(t, err)

	clone, err := m.TryClone()
	require.NoError(t, err)
	_, err = clone.TryInsert("b", 2)
	require.NoError(t, err)

	assert.Equal(t, 1, m.Len())
	assert.Equal(t, 2, clone.Len())
}
