package dispatcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGRPCExecutor_Call_MissingTargetOrMethodFails(t *testing.T) {
	e := NewGRPCExecutor()

	_, err := e.Call(t.Context(), map[string]interface{}{"method": "Foo/Bar"}, DispatchContext{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "target and with.method are required")

	_, err = e.Call(t.Context(), map[string]interface{}{"target": "localhost:1"}, DispatchContext{})
	require.Error(t, err)
}

func TestGRPCExecutor_ConnFor_ReusesConnectionPerTarget(t *testing.T) {
	e := NewGRPCExecutor()

	first, err := e.connFor("localhost:9999")
	require.NoError(t, err)
	second, err := e.connFor("localhost:9999")
	require.NoError(t, err)
	assert.Same(t, first, second)

	other, err := e.connFor("localhost:8888")
	require.NoError(t, err)
	assert.NotSame(t, first, other)
}
