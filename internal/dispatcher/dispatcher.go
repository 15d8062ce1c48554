// Package dispatcher implements the Task Dispatcher (spec.md §4.3): a
// transport-agnostic single operation, dispatch(task, resolved_input,
// dispatch_context) -> TaskOutcome, that resolves Call/Run sub-kinds to
// registered executors. Registration is adapted from the teacher's
// internal/tasks/registry.go (string-keyed executor registration).
package dispatcher

import (
	"context"
	"fmt"

	"github.com/danrygg/wovenflow/internal/model"
	"github.com/danrygg/wovenflow/internal/wferrors"
	"github.com/danrygg/wovenflow/pkg/logging"
)

// DispatchContext carries the ambient collaborators an executor needs:
// logging, resolved secrets, and the authorization context for the call, if
// any. Workflow and Context are populated by the scheduler so a
// FunctionResolver can look up and evaluate a `use.functions` entry without
// the dispatcher importing the scheduler package.
type DispatchContext struct {
	Logger        logging.Logger
	Secrets       map[string]interface{}
	Authorization map[string]interface{}
	TaskReference string
	Workflow      *model.Workflow
	Context       interface{}
}

// CallExecutor invokes one Call sub-kind.
type CallExecutor interface {
	Call(ctx context.Context, args map[string]interface{}, dctx DispatchContext) (interface{}, error)
}

// RunExecutor invokes one Run sub-kind.
type RunExecutor interface {
	Run(ctx context.Context, spec *model.RunSpec, dctx DispatchContext) (interface{}, error)
}

// FunctionResolver looks up a catalog/user-defined function task by name;
// the Scheduler implements this so the dispatcher can hand execution back to
// it without an import cycle.
type FunctionResolver interface {
	ResolveFunction(ctx context.Context, name string, args map[string]interface{}, dctx DispatchContext) (interface{}, error)
}

// Dispatcher resolves and invokes Call/Run sub-kinds.
type Dispatcher struct {
	callExecutors map[string]CallExecutor
	runExecutors  map[string]RunExecutor
	functions     FunctionResolver
}

func New() *Dispatcher {
	return &Dispatcher{
		callExecutors: make(map[string]CallExecutor),
		runExecutors:  make(map[string]RunExecutor),
	}
}

func (d *Dispatcher) RegisterCall(subKind string, ex CallExecutor) {
	d.callExecutors[subKind] = ex
}

func (d *Dispatcher) RegisterRun(subKind string, ex RunExecutor) {
	d.runExecutors[subKind] = ex
}

func (d *Dispatcher) SetFunctionResolver(r FunctionResolver) {
	d.functions = r
}

// Dispatch resolves task (a *model.CallTask or *model.RunTask) to an
// executor and invokes it.
func (d *Dispatcher) Dispatch(ctx context.Context, task model.Task, resolvedInput map[string]interface{}, dctx DispatchContext) (interface{}, error) {
	switch t := task.(type) {
	case *model.CallTask:
		return d.dispatchCall(ctx, t, resolvedInput, dctx)
	case *model.RunTask:
		return d.dispatchRun(ctx, t.Run, dctx)
	default:
		return nil, wferrors.NewTaskError(dctx.TaskReference,
			model.NewProblemDetails(model.ErrorRuntime, 500, "Unsupported dispatch kind", fmt.Sprintf("%T", task), dctx.TaskReference), nil)
	}
}

func (d *Dispatcher) dispatchCall(ctx context.Context, t *model.CallTask, resolvedInput map[string]interface{}, dctx DispatchContext) (interface{}, error) {
	subKind := t.CallSubKind()
	if subKind == "function" {
		if d.functions == nil {
			return nil, missingExecutor(dctx.TaskReference, "call", t.Call)
		}
		return d.functions.ResolveFunction(ctx, t.Call, resolvedInput, dctx)
	}
	ex, ok := d.callExecutors[subKind]
	if !ok {
		return nil, missingExecutor(dctx.TaskReference, "call", subKind)
	}
	out, err := ex.Call(ctx, resolvedInput, dctx)
	if err != nil {
		return nil, wrapCommunicationError(dctx.TaskReference, err)
	}
	return out, nil
}

func (d *Dispatcher) dispatchRun(ctx context.Context, spec model.RunSpec, dctx DispatchContext) (interface{}, error) {
	subKind := spec.SubKind()
	ex, ok := d.runExecutors[subKind]
	if !ok {
		return nil, missingExecutor(dctx.TaskReference, "run", subKind)
	}
	out, err := ex.Run(ctx, &spec, dctx)
	if err != nil {
		return nil, wrapCommunicationError(dctx.TaskReference, err)
	}
	return out, nil
}

func missingExecutor(ref, kind, subKind string) error {
	return wferrors.NewTaskError(ref,
		model.NewProblemDetails(model.ErrorValidation, 400, "Missing executor",
			fmt.Sprintf("no %s executor registered for sub-kind %q", kind, subKind), ref), nil)
}

func wrapCommunicationError(ref string, err error) error {
	if wferrors.IsRetryable(err) {
		return wferrors.NewTaskError(ref,
			model.NewProblemDetails(model.ErrorCommunication, 502, "Communication error", err.Error(), ref), err)
	}
	return wferrors.NewTaskError(ref,
		model.NewProblemDetails(model.ErrorCommunication, 502, "Communication error", err.Error(), ref), err)
}
