// workflow.go runs Run: workflow tasks: a nested invocation of another
// Workflow Document resolved through the Workflow Registry and executed
// through the Scheduler, which implements WorkflowInvoker to avoid an import
// cycle between dispatcher and scheduler.
package dispatcher

import (
	"context"
	"fmt"

	"github.com/danrygg/wovenflow/internal/model"
)

// WorkflowInvoker runs a nested workflow instance to completion (or failure)
// and returns its output.
type WorkflowInvoker interface {
	InvokeWorkflow(ctx context.Context, namespace, name, version string, input map[string]interface{}) (interface{}, error)
}

// WorkflowExecutor runs Run: workflow tasks.
type WorkflowExecutor struct {
	invoker WorkflowInvoker
}

func NewWorkflowExecutor(invoker WorkflowInvoker) *WorkflowExecutor {
	return &WorkflowExecutor{invoker: invoker}
}

func (e *WorkflowExecutor) Run(ctx context.Context, spec *model.RunSpec, dctx DispatchContext) (interface{}, error) {
	if spec.Workflow == nil {
		return nil, fmt.Errorf("workflow: run spec missing workflow block")
	}
	w := spec.Workflow
	version := w.Version
	if version == "" {
		version = "latest"
	}
	return e.invoker.InvokeWorkflow(ctx, w.Namespace, w.Name, version, w.Input)
}
