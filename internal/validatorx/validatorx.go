// Package validatorx implements the Graph Validator (spec.md §4.2): it
// rejects a malformed Workflow Document before any side effects run.
// Structural checks are adapted from the teacher's
// internal/workflow/parser/parser.go Validate (required-field presence) and
// internal/workflow/resolver/resolver.go detectCircularDependencies (DFS
// white/gray/black coloring), retargeted from a data dependency graph to a
// task-successor graph plus a `use.functions` call graph.
package validatorx

import (
	"fmt"
	"strings"

	"github.com/danrygg/wovenflow/internal/model"
	"github.com/danrygg/wovenflow/internal/wferrors"
)

// Validate runs every structural and reference check spec.md §4.2 names. It
// returns a single error aggregating every problem found, or nil.
func Validate(wf *model.Workflow) error {
	var problems []string

	if wf.Document.DSL == "" {
		problems = append(problems, "document.dsl is required")
	}
	if wf.Document.Namespace == "" {
		problems = append(problems, "document.namespace is required")
	}
	if wf.Document.Name == "" {
		problems = append(problems, "document.name is required")
	}
	if wf.Document.Version == "" {
		problems = append(problems, "document.version is required")
	}
	if len(wf.Do) == 0 {
		problems = append(problems, "do must declare at least one task")
	}

	problems = append(problems, validateTaskList(wf.Do, "do")...)
	problems = append(problems, validateUseReferences(wf)...)
	problems = append(problems, detectFunctionCycles(wf)...)
	problems = append(problems, validateRetryPolicies(wf)...)

	if len(problems) == 0 {
		return nil
	}
	return wferrors.NewValidationError("", strings.Join(problems, "; "), nil)
}

// validateTaskList checks `then` resolution for every task in list (against
// list's own sibling names) and recurses into nested task lists (Do, For,
// Try, Fork branches, Listen.foreach).
func validateTaskList(list model.TaskList, path string) []string {
	var problems []string
	names := make(map[string]bool, len(list))
	for _, item := range list {
		names[item.Name] = true
	}

	for _, item := range list {
		ref := fmt.Sprintf("%s.%s", path, item.Name)
		base := item.GetBase()
		if base != nil && base.Then != nil {
			problems = append(problems, validateFlowTarget(base.Then, names, ref)...)
		}

		switch t := item.Task.(type) {
		case *model.DoTask:
			problems = append(problems, validateTaskList(t.Do, ref+".do")...)
		case *model.ForTask:
			problems = append(problems, validateTaskList(t.Do, ref+".for.do")...)
		case *model.ForkTask:
			for i, branch := range t.Fork.Branches {
				problems = append(problems, validateTaskList(model.TaskList{branch}, fmt.Sprintf("%s.fork[%d]", ref, i))...)
			}
		case *model.TryTask:
			problems = append(problems, validateTaskList(t.Try, ref+".try")...)
			problems = append(problems, validateTaskList(t.Catch.Do, ref+".catch.do")...)
		case *model.SwitchTask:
			for _, c := range t.Switch {
				if c.Then == nil {
					problems = append(problems, fmt.Sprintf("%s: switch case %q missing then", ref, c.Name))
					continue
				}
				problems = append(problems, validateFlowTarget(c.Then, names, ref+"."+c.Name)...)
			}
		case *model.ListenTask:
			if t.Listen.Foreach != nil {
				problems = append(problems, validateTaskList(t.Listen.Foreach.Do, ref+".listen.foreach")...)
			}
		}
	}
	return problems
}

func validateFlowTarget(then *model.FlowDirective, siblings map[string]bool, ref string) []string {
	switch then.Value {
	case model.FlowContinue, model.FlowEnd, model.FlowExit, "":
		return nil
	default:
		if !siblings[then.Value] {
			return []string{fmt.Sprintf("%s: then target %q does not resolve to a sibling task", ref, then.Value)}
		}
		return nil
	}
}

func validateUseReferences(wf *model.Workflow) []string {
	var problems []string
	hasRetry := func(name string) bool {
		if wf.Use == nil {
			return false
		}
		_, ok := wf.Use.Retries[name]
		return ok
	}
	hasTimeout := func(name string) bool {
		if wf.Use == nil {
			return false
		}
		_, ok := wf.Use.Timeouts[name]
		return ok
	}
	walkTasks(wf.Do, func(ref string, t model.Task) {
		if tryTask, ok := t.(*model.TryTask); ok {
			if tryTask.Catch.Retry != nil && tryTask.Catch.Retry.Reference != "" {
				if !hasRetry(tryTask.Catch.Retry.Reference) {
					problems = append(problems, fmt.Sprintf("%s: unknown retry reference %q", ref, tryTask.Catch.Retry.Reference))
				}
			}
			if tryTask.Catch.Errors != nil && tryTask.Catch.Errors.With.Type != "" {
				// static filter type is matched against ProblemDetails.Type at
				// runtime; free-form, nothing to resolve at validation time.
				_ = tryTask.Catch.Errors
			}
		}
		base := t.GetBase()
		if base != nil && base.Timeout != nil && base.Timeout.Reference != "" {
			if !hasTimeout(base.Timeout.Reference) {
				problems = append(problems, fmt.Sprintf("%s: unknown timeout reference %q", ref, base.Timeout.Reference))
			}
		}
	})
	return problems
}

func walkTasks(list model.TaskList, fn func(ref string, t model.Task)) {
	for _, item := range list {
		fn(item.Name, item.Task)
		switch t := item.Task.(type) {
		case *model.DoTask:
			walkTasks(t.Do, fn)
		case *model.ForTask:
			walkTasks(t.Do, fn)
		case *model.ForkTask:
			for _, branch := range t.Fork.Branches {
				walkTasks(model.TaskList{branch}, fn)
			}
		case *model.TryTask:
			walkTasks(t.Try, fn)
			walkTasks(t.Catch.Do, fn)
		case *model.ListenTask:
			if t.Listen.Foreach != nil {
				walkTasks(t.Listen.Foreach.Do, fn)
			}
		}
	}
}

// detectFunctionCycles rejects `use.functions` call graphs that reference
// each other in a cycle, the document-level analogue of the teacher's
// detectCircularDependencies DFS coloring.
func detectFunctionCycles(wf *model.Workflow) []string {
	if wf.Use == nil || len(wf.Use.Functions) == 0 {
		return nil
	}
	const (
		white = iota
		gray
		black
	)
	color := make(map[string]int, len(wf.Use.Functions))
	for name := range wf.Use.Functions {
		color[name] = white
	}

	var problems []string
	var visit func(name string, stack []string) bool
	visit = func(name string, stack []string) bool {
		color[name] = gray
		stack = append(stack, name)
		if call, ok := wf.Use.Functions[name].(*model.CallTask); ok && call.CallSubKind() == "function" {
			if _, exists := wf.Use.Functions[call.Call]; exists {
				switch color[call.Call] {
				case gray:
					problems = append(problems, fmt.Sprintf("use.functions: cyclic reference %s -> %s", strings.Join(stack, "->"), call.Call))
					return true
				case white:
					if visit(call.Call, stack) {
						return true
					}
				}
			}
		}
		color[name] = black
		return false
	}
	for name := range wf.Use.Functions {
		if color[name] == white {
			if visit(name, nil) {
				break
			}
		}
	}
	return problems
}
