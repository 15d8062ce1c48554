package dispatcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danrygg/wovenflow/internal/model"
)

func TestShellExecutor_Run_CapturesStdout(t *testing.T) {
	e := NewShellExecutor()
	spec := &model.RunSpec{Shell: &model.ShellRunSpec{Command: "echo hello"}}
	out, err := e.Run(t.Context(), spec, DispatchContext{})
	require.NoError(t, err)

	result := out.(map[string]interface{})
	assert.Equal(t, "hello\n", result["stdout"])
	assert.Equal(t, 0, result["exitCode"])
}

func TestShellExecutor_Run_ExplicitArgsList(t *testing.T) {
	e := NewShellExecutor()
	spec := &model.RunSpec{Shell: &model.ShellRunSpec{
		Command:   "echo",
		Arguments: map[string]interface{}{"args": []interface{}{"one", "two"}},
	}}
	out, err := e.Run(t.Context(), spec, DispatchContext{})
	require.NoError(t, err)
	assert.Equal(t, "one two\n", out.(map[string]interface{})["stdout"])
}

func TestShellExecutor_Run_NonZeroExitCodeIsNotAGoError(t *testing.T) {
	e := NewShellExecutor()
	spec := &model.RunSpec{Shell: &model.ShellRunSpec{
		Command:   "sh",
		Arguments: map[string]interface{}{"args": []interface{}{"-c", "exit 3"}},
	}}
	out, err := e.Run(t.Context(), spec, DispatchContext{})
	require.NoError(t, err)
	assert.Equal(t, 3, out.(map[string]interface{})["exitCode"])
}

func TestShellExecutor_Run_EnvironmentIsPassedThrough(t *testing.T) {
	e := NewShellExecutor()
	spec := &model.RunSpec{Shell: &model.ShellRunSpec{
		Command:     "sh",
		Arguments:   map[string]interface{}{"args": []interface{}{"-c", "echo $GREETING"}},
		Environment: map[string]string{"GREETING": "howdy"},
	}}
	out, err := e.Run(t.Context(), spec, DispatchContext{})
	require.NoError(t, err)
	assert.Equal(t, "howdy\n", out.(map[string]interface{})["stdout"])
}

func TestShellExecutor_Run_MissingShellBlockFails(t *testing.T) {
	e := NewShellExecutor()
	_, err := e.Run(t.Context(), &model.RunSpec{}, DispatchContext{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing shell block")
}

func TestShellExecutor_Run_EmptyCommandFails(t *testing.T) {
	e := NewShellExecutor()
	spec := &model.RunSpec{Shell: &model.ShellRunSpec{Command: "   "}}
	_, err := e.Run(t.Context(), spec, DispatchContext{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty command")
}

func TestShellExecutor_Run_UnknownBinaryFails(t *testing.T) {
	e := NewShellExecutor()
	spec := &model.RunSpec{Shell: &model.ShellRunSpec{Command: "definitely-not-a-real-binary-xyz"}}
	_, err := e.Run(t.Context(), spec, DispatchContext{})
	require.Error(t, err)
}
