package dispatcher

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danrygg/wovenflow/internal/model"
	"github.com/danrygg/wovenflow/internal/wferrors"
)

type stubCallExecutor struct {
	out interface{}
	err error
}

func (s stubCallExecutor) Call(ctx context.Context, args map[string]interface{}, dctx DispatchContext) (interface{}, error) {
	return s.out, s.err
}

type stubRunExecutor struct {
	out interface{}
	err error
}

func (s stubRunExecutor) Run(ctx context.Context, spec *model.RunSpec, dctx DispatchContext) (interface{}, error) {
	return s.out, s.err
}

type stubFunctionResolver struct {
	out interface{}
	err error
}

func (s stubFunctionResolver) ResolveFunction(ctx context.Context, name string, args map[string]interface{}, dctx DispatchContext) (interface{}, error) {
	return s.out, s.err
}

func TestDispatch_CallRoutesToRegisteredExecutor(t *testing.T) {
	d := New()
	d.RegisterCall("http", stubCallExecutor{out: map[string]interface{}{"status": 200}})

	task := &model.CallTask{Call: "http"}
	out, err := d.Dispatch(context.Background(), task, nil, DispatchContext{TaskReference: "/do/0"})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"status": 200}, out)
}

func TestDispatch_CallWithoutRegisteredSubKindFails(t *testing.T) {
	d := New()
	task := &model.CallTask{Call: "grpc"}

	_, err := d.Dispatch(context.Background(), task, nil, DispatchContext{TaskReference: "/do/0"})
	require.Error(t, err)
	var taskErr *wferrors.TaskError
	require.True(t, errors.As(err, &taskErr))
	assert.Equal(t, model.ErrorValidation, taskErr.Problem.Kind)
}

func TestDispatch_CallFunctionSubKindUsesResolver(t *testing.T) {
	d := New()
	d.SetFunctionResolver(stubFunctionResolver{out: "resolved"})

	task := &model.CallTask{Call: "myCatalogFunction"}
	out, err := d.Dispatch(context.Background(), task, nil, DispatchContext{TaskReference: "/do/0"})
	require.NoError(t, err)
	assert.Equal(t, "resolved", out)
}

func TestDispatch_CallFunctionWithoutResolverFails(t *testing.T) {
	d := New()
	task := &model.CallTask{Call: "myCatalogFunction"}

	_, err := d.Dispatch(context.Background(), task, nil, DispatchContext{TaskReference: "/do/0"})
	require.Error(t, err)
}

func TestDispatch_CallExecutorErrorWrappedAsCommunicationError(t *testing.T) {
	d := New()
	d.RegisterCall("http", stubCallExecutor{err: errors.New("connection refused")})

	task := &model.CallTask{Call: "http"}
	_, err := d.Dispatch(context.Background(), task, nil, DispatchContext{TaskReference: "/do/0"})
	require.Error(t, err)
	var taskErr *wferrors.TaskError
	require.True(t, errors.As(err, &taskErr))
	assert.Equal(t, model.ErrorCommunication, taskErr.Problem.Kind)
}

func TestDispatch_RunRoutesToRegisteredExecutor(t *testing.T) {
	d := New()
	d.RegisterRun("shell", stubRunExecutor{out: "ok"})

	task := &model.RunTask{Run: model.RunSpec{Shell: &model.ShellRunSpec{Command: "echo hi"}}}
	out, err := d.Dispatch(context.Background(), task, nil, DispatchContext{TaskReference: "/do/0"})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
}

func TestDispatch_RunWithoutRegisteredSubKindFails(t *testing.T) {
	d := New()
	task := &model.RunTask{Run: model.RunSpec{Container: &model.ContainerRunSpec{Image: "busybox"}}}

	_, err := d.Dispatch(context.Background(), task, nil, DispatchContext{TaskReference: "/do/0"})
	require.Error(t, err)
	var taskErr *wferrors.TaskError
	require.True(t, errors.As(err, &taskErr))
	assert.Equal(t, model.ErrorValidation, taskErr.Problem.Kind)
}

func TestDispatch_UnsupportedTaskKindFails(t *testing.T) {
	d := New()

	_, err := d.Dispatch(context.Background(), &model.SetTask{}, nil, DispatchContext{TaskReference: "/do/0"})
	require.Error(t, err)
}
