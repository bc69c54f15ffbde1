package econtext

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wudi/ember/protocol"
	"github.com/wudi/ember/rhash"
	"github.com/wudi/ember/value"
)

func TestRegisterAndResolveFunction(t *testing.T) {
	c := NewContext()
	hash, err := c.RegisterFunction("add", 2, func(args []value.Value) (value.Value, error) {
		a, _ := args[0].AsInteger()
		b, _ := args[1].AsInteger()
		return value.Integer(a + b), nil
	})
	require.NoError(t, err)

	rc := c.Freeze()
	entry, ok := rc.Function(hash)
	require.True(t, ok)
	assert.Equal(t, 2, entry.Arity)

	result, err := entry.Handler([]value.Value{value.Integer(1), value.Integer(2)})
	require.NoError(t, err)
	got, _ := result.AsInteger()
	assert.Equal(t, int64(3), got)
}

func TestDuplicateFunctionPathConflicts(t *testing.T) {
	c := NewContext()
	_, err := c.RegisterFunction("add", 2, nil)
	require.NoError(t, err)
	_, err = c.RegisterFunction("add", 2, nil)
	require.Error(t, err)
	var ce *ContextError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ConflictingFunction, ce.Kind)
}

func TestInstanceFunctionLookupIsPerReceiver(t *testing.T) {
	c := NewContext()
	point, err := c.RegisterType("Point", []string{"x", "y"}, 2)
	require.NoError(t, err)
	line, err := c.RegisterType("Line", nil, 0)
	require.NoError(t, err)

	_, err = c.RegisterInstanceFunction(point, "len", 0, nil)
	require.NoError(t, err)

	rc := c.Freeze()
	_, ok := rc.InstanceFunction(point, "len")
	assert.True(t, ok)
	_, ok = rc.InstanceFunction(line, "len")
	assert.False(t, ok)
}

func TestProtocolRegistrationAndLookup(t *testing.T) {
	c := NewContext()
	point, err := c.RegisterType("Point", []string{"x", "y"}, 2)
	require.NoError(t, err)

	err = c.RegisterProtocol(point, protocol.ADD, func(args []value.Value) (value.Value, error) {
		return args[0], nil
	})
	require.NoError(t, err)

	rc := c.Freeze()
	_, ok := rc.Protocol(point, protocol.ADD)
	assert.True(t, ok)
	_, ok = rc.Protocol(point, protocol.SUB)
	assert.False(t, ok)
}

func TestRegistrationAfterFreezeIsRejected(t *testing.T) {
	c := NewContext()
	rc := c.Freeze()
	_, err := c.RegisterFunction("late", 0, nil)
	require.Error(t, err)

	_, ok := rc.Function(rhash.FunctionHash("late"))
	assert.False(t, ok, "a registration rejected after Freeze must not appear in the already-frozen RuntimeContext")
}
