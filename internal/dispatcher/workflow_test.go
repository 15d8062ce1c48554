package dispatcher

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danrygg/wovenflow/internal/model"
)

type stubWorkflowInvoker struct {
	gotNamespace, gotName, gotVersion string
	gotInput                         map[string]interface{}
	output                           interface{}
	err                              error
}

func (s *stubWorkflowInvoker) InvokeWorkflow(ctx context.Context, namespace, name, version string, input map[string]interface{}) (interface{}, error) {
	s.gotNamespace, s.gotName, s.gotVersion, s.gotInput = namespace, name, version, input
	return s.output, s.err
}

func TestWorkflowExecutor_Run_DefaultsVersionToLatest(t *testing.T) {
	invoker := &stubWorkflowInvoker{output: map[string]interface{}{"ok": true}}
	e := NewWorkflowExecutor(invoker)

	out, err := e.Run(t.Context(), &model.RunSpec{
		Workflow: &model.WorkflowRunSpec{Name: "nested", Input: map[string]interface{}{"x": 1}},
	}, DispatchContext{})
	require.NoError(t, err)
	assert.Equal(t, "latest", invoker.gotVersion)
	assert.Equal(t, "nested", invoker.gotName)
	assert.Equal(t, map[string]interface{}{"x": 1}, invoker.gotInput)
	assert.Equal(t, map[string]interface{}{"ok": true}, out)
}

func TestWorkflowExecutor_Run_ExplicitVersionPassedThrough(t *testing.T) {
	invoker := &stubWorkflowInvoker{}
	e := NewWorkflowExecutor(invoker)

	_, err := e.Run(t.Context(), &model.RunSpec{
		Workflow: &model.WorkflowRunSpec{Namespace: "ns", Name: "nested", Version: "2.0.0"},
	}, DispatchContext{})
	require.NoError(t, err)
	assert.Equal(t, "ns", invoker.gotNamespace)
	assert.Equal(t, "2.0.0", invoker.gotVersion)
}

func TestWorkflowExecutor_Run_MissingWorkflowBlockFails(t *testing.T) {
	e := NewWorkflowExecutor(&stubWorkflowInvoker{})
	_, err := e.Run(t.Context(), &model.RunSpec{}, DispatchContext{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing workflow block")
}

func TestWorkflowExecutor_Run_PropagatesInvokerError(t *testing.T) {
	invoker := &stubWorkflowInvoker{err: errors.New("nested faulted")}
	e := NewWorkflowExecutor(invoker)

	_, err := e.Run(t.Context(), &model.RunSpec{
		Workflow: &model.WorkflowRunSpec{Name: "nested"},
	}, DispatchContext{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nested faulted")
}
