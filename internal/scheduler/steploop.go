// steploop.go implements the task step loop (spec.md §4.4.2-§4.4.4): the
// per-task cycle of guard, input resolution, cache consult, dispatch,
// output/export filtering, and flow-directive resolution that drives one
// Workflow Instance's `do` list (and every nested task list inside it) to
// completion. Shaped after the teacher's executeLayerParallel/
// executeLayerSequential pair in internal/executor/executor.go, collapsed
// into a single sequential-by-default loop since spec.md §5 makes
// concurrency the exception (Fork, Listen, foreach) rather than the rule.
package scheduler

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/danrygg/wovenflow/internal/dispatcher"
	"github.com/danrygg/wovenflow/internal/expr"
	"github.com/danrygg/wovenflow/internal/instance"
	"github.com/danrygg/wovenflow/internal/model"
	"github.com/danrygg/wovenflow/internal/store/events"
	"github.com/danrygg/wovenflow/internal/wferrors"
)

// flowSignal is the control-flow outcome of driving one task list, carried
// back up through however many levels of nesting separate it from the
// instance's top-level `do`.
type flowSignal int

const (
	// flowNone means the list ran to its natural end (or exited via a named
	// jump that stayed within it); the caller proceeds as if the wrapping
	// task (Do/For/Switch/Try/Fork branch) simply finished.
	flowNone flowSignal = iota
	// flowExit means a `then: exit` was hit; identical to flowNone from the
	// perspective of anything above the list that declared it, since "leave
	// the enclosing block" is exactly what a list reaching its own end means
	// to its parent.
	flowExit
	// flowEnd means a `then: end` was hit and must propagate, unfiltered by
	// any intervening task's own output/export handling, all the way to the
	// instance's terminal transition.
	flowEnd
)

// driveList is the Scheduler's top-level entry into the step loop.
func (s *Scheduler) driveList(ctx context.Context, r *run, list model.TaskList, startIdx int) (*instance.Instance, error) {
	_, _, err := s.runList(ctx, r, list, startIdx)
	if err != nil {
		if _, ok := err.(*wferrors.CancellationError); ok {
			return s.cancel(ctx, r)
		}
		return s.fault(ctx, r, problemFrom(err))
	}
	return s.complete(ctx, r)
}

// runList drives list starting at startIdx, returning the flow signal that
// ended it, the raw (post output/export-filter) output of the last task it
// actually executed (guard-true), and an error if an unrecovered Task Error
// escaped.
func (s *Scheduler) runList(ctx context.Context, r *run, list model.TaskList, startIdx int) (flowSignal, interface{}, error) {
	idx := startIdx
	var lastOutput interface{}

	for idx < len(list) {
		if err := ctx.Err(); err != nil {
			return flowNone, lastOutput, wferrors.NewCancellationError(r.inst.ID)
		}

		item := list[idx]
		base := item.GetBase()

		guardTrue := true
		if base != nil && base.If != "" {
			v, err := s.eval.Evaluate(ctx, string(base.If), s.baseEnv(r))
			if err != nil {
				return flowNone, lastOutput, wferrors.NewTaskError(item.Name,
					model.NewProblemDetails(model.ErrorValidation, 400, "if guard failed", err.Error(), item.Name), err)
			}
			guardTrue = truthy(v)
		}

		var overrideThen *model.FlowDirective
		if guardTrue {
			out, ovr, sig, err := s.runTaskItem(ctx, r, item)
			if err != nil {
				return flowNone, lastOutput, err
			}
			lastOutput = out
			overrideThen = ovr
			if sig == flowEnd {
				return flowEnd, lastOutput, nil
			}
		}

		then := overrideThen
		if then == nil && base != nil {
			then = base.Then
		}

		switch {
		case then == nil || then.Value == "" || then.Value == model.FlowContinue:
			idx++
		case then.Value == model.FlowEnd:
			return flowEnd, lastOutput, nil
		case then.Value == model.FlowExit:
			return flowExit, lastOutput, nil
		default:
			j, found := list.ByName(then.Value)
			if found == nil {
				return flowNone, lastOutput, wferrors.NewTaskError(item.Name,
					model.NewProblemDetails(model.ErrorRuntime, 500, "unresolved then target", then.Value, item.Name), nil)
			}
			idx = j
		}
	}
	return flowNone, lastOutput, nil
}

// runTaskItem executes the full per-task step for item: timeout scoping,
// input resolution, cache consult, dispatch, output/export filtering, and
// event/checkpoint emission (spec.md §4.4.2, guard already evaluated by the
// caller). overrideThen lets kinds whose flow is driven by something other
// than their own `then` (namely Switch) hand the resolved target back to
// runList.
func (s *Scheduler) runTaskItem(ctx context.Context, r *run, item *model.TaskItem) (output interface{}, overrideThen *model.FlowDirective, sig flowSignal, err error) {
	ref := item.Name
	base := item.GetBase()
	kind := item.Task.Kind()

	taskCtx := ctx
	if base != nil && base.Timeout != nil {
		to, terr := s.resolveTimeout(ctx, r, base.Timeout)
		if terr != nil {
			return nil, nil, flowNone, wferrors.NewTaskError(ref,
				model.NewProblemDetails(model.ErrorValidation, 400, "invalid timeout", terr.Error(), ref), terr)
		}
		if to > 0 {
			var cancel context.CancelFunc
			taskCtx, cancel = context.WithTimeout(ctx, to)
			defer cancel()
		}
	}

	env := s.baseEnv(r)
	env.Task = map[string]interface{}{"name": ref, "reference": ref}

	resolvedInput := r.context
	if base != nil && base.Input != nil {
		if base.Input.From != nil && *base.Input.From != "" {
			resolvedInput, err = s.eval.Evaluate(taskCtx, string(*base.Input.From), env)
			if err != nil {
				return nil, nil, flowNone, wferrors.NewTaskError(ref,
					model.NewProblemDetails(model.ErrorValidation, 400, "input.from failed", err.Error(), ref), err)
			}
		}
		if base.Input.Schema != nil {
			if verr := validateAgainstSchema(base.Input.Schema, resolvedInput, ref+".input"); verr != nil {
				return nil, nil, flowNone, wferrors.NewTaskError(ref,
					model.NewProblemDetails(model.ErrorValidation, 400, "input schema violation", verr.Error(), ref), verr)
			}
		}
	}
	env.Input = resolvedInput

	started := false
	emitStarted := func() {
		if !started {
			started = true
			_, _ = s.appendEvent(taskCtx, r.inst, events.TaskStarted, map[string]interface{}{"reference": ref, "kind": kind})
		}
	}

	var raw interface{}
	if isCacheable(kind) {
		fp, ferr := fingerprintFor(kind, item.Task, resolvedInput)
		if ferr != nil {
			return nil, nil, flowNone, wferrors.NewTaskError(ref,
				model.NewProblemDetails(model.ErrorRuntime, 500, "fingerprint computation failed", ferr.Error(), ref), ferr)
		}
		var computeErr error
		out, hit, computed, cerr := s.cache.GetOrCompute(taskCtx, fp, resolvedInput, func(computeCtx context.Context) (interface{}, error) {
			_, _ = s.appendEvent(computeCtx, r.inst, events.TaskCreated, map[string]interface{}{"reference": ref, "kind": kind})
			emitStarted()
			v, e := s.invokeKind(computeCtx, r, item, resolvedInput, env)
			computeErr = e
			return v, e
		})
		if cerr != nil {
			err = computeErr
			if err == nil {
				err = cerr
			}
		} else {
			raw = out
			switch {
			case hit:
				s.metrics.CacheHits.Inc()
				emitStarted()
			case computed:
				// This call's own closure ran (the singleflight leader); it
				// already appended TaskCreated/TaskStarted for this instance.
				s.metrics.CacheMisses.Inc()
			default:
				// Deduped onto a concurrent caller's in-flight computation for
				// the same fingerprint: that caller's closure appended
				// TaskCreated/TaskStarted for its own instance, not this one,
				// so this instance's event log still needs its own pair
				// before TaskCompleted.
				s.metrics.CacheMisses.Inc()
				_, _ = s.appendEvent(taskCtx, r.inst, events.TaskCreated, map[string]interface{}{"reference": ref, "kind": kind})
				emitStarted()
			}
		}
	} else {
		_, _ = s.appendEvent(taskCtx, r.inst, events.TaskCreated, map[string]interface{}{"reference": ref, "kind": kind})
		emitStarted()
		raw, overrideThen, sig, err = s.invokeControlKind(taskCtx, r, item, env)
	}

	if err != nil {
		problem := problemFrom(err)
		s.metrics.TaskOutcomes.WithLabelValues(kind, "faulted").Inc()
		_, _ = s.appendEvent(ctx, r.inst, events.TaskFaulted, map[string]interface{}{"reference": ref, "problem": problem})
		r.inst.Record(instance.TaskExecutionRecord{
			InstanceID: r.inst.ID, TaskReference: ref, InputSnapshot: resolvedInput,
			Outcome: instance.OutcomeFaulted, Problem: problem,
		})
		return nil, nil, flowNone, wferrors.NewTaskError(ref, problem, err)
	}
	if sig == flowEnd {
		return raw, overrideThen, flowEnd, nil
	}

	out := raw
	if base != nil && base.Output != nil {
		if base.Output.As != nil && *base.Output.As != "" {
			outEnv := env
			outEnv.Output = raw
			out, err = s.eval.Evaluate(taskCtx, string(*base.Output.As), outEnv)
			if err != nil {
				return nil, nil, flowNone, wferrors.NewTaskError(ref,
					model.NewProblemDetails(model.ErrorValidation, 400, "output.as failed", err.Error(), ref), err)
			}
		}
		if base.Output.Schema != nil {
			if verr := validateAgainstSchema(base.Output.Schema, out, ref+".output"); verr != nil {
				return nil, nil, flowNone, wferrors.NewTaskError(ref,
					model.NewProblemDetails(model.ErrorValidation, 400, "output schema violation", verr.Error(), ref), verr)
			}
		}
	}

	if base != nil && base.Export != nil && base.Export.As != nil && *base.Export.As != "" {
		exportEnv := env
		exportEnv.Output = out
		exported, eerr := s.eval.Evaluate(taskCtx, string(*base.Export.As), exportEnv)
		if eerr != nil {
			return nil, nil, flowNone, wferrors.NewTaskError(ref,
				model.NewProblemDetails(model.ErrorValidation, 400, "export.as failed", eerr.Error(), ref), eerr)
		}
		if base.Export.Schema != nil {
			if verr := validateAgainstSchema(base.Export.Schema, exported, ref+".export"); verr != nil {
				return nil, nil, flowNone, wferrors.NewTaskError(ref,
					model.NewProblemDetails(model.ErrorValidation, 400, "export schema violation", verr.Error(), ref), verr)
			}
		}
		r.context = exported
	}

	s.metrics.TaskOutcomes.WithLabelValues(kind, "completed").Inc()
	if _, eerr := s.appendEvent(ctx, r.inst, events.TaskCompleted, map[string]interface{}{"reference": ref, "output": out}); eerr != nil {
		return nil, nil, flowNone, eerr
	}
	if cerr := s.checkpointNow(ctx, r, ref); cerr != nil {
		return nil, nil, flowNone, cerr
	}
	r.inst.Record(instance.TaskExecutionRecord{
		InstanceID: r.inst.ID, TaskReference: ref, InputSnapshot: resolvedInput,
		Output: out, Outcome: instance.OutcomeCompleted,
	})

	return out, overrideThen, flowNone, nil
}

// isCacheable reports whether kind's invocation is fingerprinted and
// content-addressed in the Cache Store. Composite control-flow kinds are
// excluded: their children are individually cacheable, and caching the
// composite itself would have to account for every mutation its nested list
// makes to $context, which the fingerprint's narrow (kind, definition,
// input) scope (spec.md §9) deliberately does not model.
func isCacheable(kind string) bool {
	switch kind {
	case "call", "run", "set", "wait", "raise", "emit":
		return true
	default:
		return false
	}
}

// invokeKind runs one cacheable leaf task kind, returning its raw output.
func (s *Scheduler) invokeKind(ctx context.Context, r *run, item *model.TaskItem, resolvedInput interface{}, env expr.Environment) (interface{}, error) {
	switch t := item.Task.(type) {
	case *model.SetTask:
		return s.eval.EvaluateValue(ctx, map[string]interface{}(t.Set), env)
	case *model.CallTask:
		return s.runCall(ctx, r, item.Name, t, env)
	case *model.RunTask:
		return s.runRun(ctx, r, item.Name, t, env)
	case *model.WaitTask:
		return s.runWait(ctx, r, t, env)
	case *model.RaiseTask:
		return nil, s.runRaise(ctx, r, t, env)
	case *model.EmitTask:
		return s.runEmit(ctx, r, t, env)
	default:
		return nil, fmt.Errorf("scheduler: %q is not a cacheable leaf kind", item.Task.Kind())
	}
}

// invokeControlKind runs one non-cacheable control-flow kind, returning its
// raw output, any flow-directive override (Switch only), and a flow signal
// that bubbles an "end" encountered inside a nested list.
func (s *Scheduler) invokeControlKind(ctx context.Context, r *run, item *model.TaskItem, env expr.Environment) (interface{}, *model.FlowDirective, flowSignal, error) {
	switch t := item.Task.(type) {
	case *model.DoTask:
		sig, out, err := s.runList(ctx, r, t.Do, 0)
		return out, nil, sig, err
	case *model.SwitchTask:
		return s.runSwitch(ctx, r, t, env)
	case *model.ForTask:
		return s.runFor(ctx, r, t, env)
	case *model.ForkTask:
		out, err := s.runFork(ctx, r, t, env)
		return out, nil, flowNone, err
	case *model.TryTask:
		out, sig, err := s.runTry(ctx, r, item.Name, t, env)
		return out, nil, sig, err
	case *model.ListenTask:
		out, err := s.runListen(ctx, r, t, env)
		return out, nil, flowNone, err
	default:
		return nil, nil, flowNone, fmt.Errorf("scheduler: unrecognized task kind %q", item.Task.Kind())
	}
}

// runCall evaluates a CallTask's `with` arguments and dispatches through the
// Task Dispatcher.
func (s *Scheduler) runCall(ctx context.Context, r *run, ref string, t *model.CallTask, env expr.Environment) (interface{}, error) {
	args, err := s.eval.EvaluateValue(ctx, map[string]interface{}(t.With), env)
	if err != nil {
		return nil, err
	}
	argMap, _ := args.(map[string]interface{})
	dctx := s.dispatchContext(r, ref)
	return s.dispatch.Dispatch(ctx, t, argMap, dctx)
}

// runRun evaluates a RunTask's spec fields (shell/script/container commands
// and arguments, nested workflow input) before dispatch, since the Task
// Dispatcher's Run executors receive already-resolved strings.
func (s *Scheduler) runRun(ctx context.Context, r *run, ref string, t *model.RunTask, env expr.Environment) (interface{}, error) {
	resolved, err := s.eval.EvaluateValue(ctx, runSpecToValue(t.Run), env)
	if err != nil {
		return nil, err
	}
	spec, err := valueToRunSpec(resolved)
	if err != nil {
		return nil, err
	}
	evaluated := &model.RunTask{TaskBase: t.TaskBase, Run: spec}
	dctx := s.dispatchContext(r, ref)
	return s.dispatch.Dispatch(ctx, evaluated, nil, dctx)
}

func (s *Scheduler) dispatchContext(r *run, ref string) dispatcher.DispatchContext {
	return dispatcher.DispatchContext{
		Logger:        s.logger,
		Secrets:       s.secrets,
		TaskReference: ref,
		Workflow:      r.wf,
		Context:       r.context,
	}
}

// runSpecToValue turns a RunSpec into a plain JSON-ish value so the
// Expression Engine's generic map/slice/string walker can resolve any
// strict-expression strings it carries (command lines, script code,
// environment values, nested-workflow input) without a bespoke per-field
// evaluator.
func runSpecToValue(spec model.RunSpec) interface{} {
	raw, err := json.Marshal(spec)
	if err != nil {
		return map[string]interface{}{}
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return map[string]interface{}{}
	}
	return v
}

func valueToRunSpec(v interface{}) (model.RunSpec, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return model.RunSpec{}, err
	}
	var spec model.RunSpec
	if err := json.Unmarshal(raw, &spec); err != nil {
		return model.RunSpec{}, err
	}
	return spec, nil
}

func truthy(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0
	case []interface{}:
		return len(t) > 0
	case map[string]interface{}:
		return len(t) > 0
	default:
		return true
	}
}

func problemFrom(err error) *model.ProblemDetails {
	switch e := err.(type) {
	case *wferrors.TaskError:
		return e.Problem
	case *wferrors.WorkflowError:
		return e.Problem
	case interface{ Problem() *model.ProblemDetails }:
		return e.Problem()
	default:
		return model.NewProblemDetails(model.ErrorRuntime, 500, "unexpected error", err.Error(), "")
	}
}
