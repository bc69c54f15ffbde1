package alloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVecPushAndGrow(t *testing.T) {
	v := NewVec[int]()
	for i := 0; i < 100; i++ {
		require.NoError(t, v.TryPush(i))
	}
	assert.Equal(t, 100, v.Len())
	assert.Equal(t, 0, v.Get(0))
	assert.Equal(t, 99, v.Get(99))
}

func TestVecPop(t *testing.T) {
	v := NewVec[string]()
	require.NoError(t, v.TryPush("a"))
	require.NoError(t, v.TryPush("b"))
	val, ok := v.Pop()
	assert.True(t, ok)
	assert.Equal(t, "b", val)
	assert.Equal(t, 1, v.Len())
}

func TestVecAllocationFailureLeavesStatePristine(t *testing.T) {
	v := NewVec[int]()
	require.NoError(t, v.TryPush(1))
	require.NoError(t, v.TryPush(2))

	before := append([]int(nil), v.Slice()...)

	v.Inj.FailNext(1)
	err := v.TryPush(3)
	require.Error(t, err)

	assert.Equal(t, before, v.Slice())
	assert.Equal(t, 2, v.Len())

	// The container is usable again once the injected failure is consumed.
	require.NoError(t, v.TryPush(3))
	assert.Equal(t, 3, v.Len())
}

func TestVecTryCloneIndependence(t *testing.T) {
	v := NewVec[int]()
	require.NoError(t, v.TryPush(1))
	clone, err := v.TryClone()
	require.NoError(t, err)
	require.NoError(t, clone.TryPush(2))
	assert.Equal(t, 1, v.Len())
	assert.Equal(t, 2, clone.Len())
}
