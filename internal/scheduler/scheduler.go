// Package scheduler implements the Scheduler / State Machine (spec.md
// §4.4): the core that drives one Workflow Instance to completion. Its
// shape is adapted from the teacher's internal/orchestrator/orchestrator.go
// (validate -> init context -> build graph -> execute -> record) generalized
// from a static DAG-of-independent-tasks model to the spec's
// sequential-with-explicit-flow-directives model, plus the nested
// task-kind semantics the teacher doesn't have.
package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/danrygg/wovenflow/internal/dispatcher"
	"github.com/danrygg/wovenflow/internal/expr"
	"github.com/danrygg/wovenflow/internal/fingerprint"
	"github.com/danrygg/wovenflow/internal/instance"
	"github.com/danrygg/wovenflow/internal/listener"
	"github.com/danrygg/wovenflow/internal/metrics"
	"github.com/danrygg/wovenflow/internal/model"
	"github.com/danrygg/wovenflow/internal/registry"
	"github.com/danrygg/wovenflow/internal/store/cache"
	"github.com/danrygg/wovenflow/internal/store/checkpoint"
	"github.com/danrygg/wovenflow/internal/store/events"
	"github.com/danrygg/wovenflow/internal/validatorx"
	"github.com/danrygg/wovenflow/internal/wferrors"
	"github.com/danrygg/wovenflow/pkg/logging"
)

// Config bundles every collaborator the Scheduler needs.
type Config struct {
	Events      events.Store
	Checkpoint  checkpoint.Store
	Cache       *cache.Coordinator
	Evaluator   expr.Evaluator
	Dispatcher  *dispatcher.Dispatcher
	Listener    *listener.Adapter
	Registry    *registry.Registry
	Metrics     *metrics.Registry
	Logger      logging.Logger
	Secrets     map[string]interface{}
	RuntimeInfo map[string]interface{}
}

// Scheduler drives Workflow Instances to completion.
type Scheduler struct {
	events     events.Store
	checkpoint checkpoint.Store
	cache      *cache.Coordinator
	eval       expr.Evaluator
	dispatch   *dispatcher.Dispatcher
	listen     *listener.Adapter
	registry   *registry.Registry
	metrics    *metrics.Registry
	logger     logging.Logger
	secrets    map[string]interface{}
	runtime    map[string]interface{}
}

func New(cfg Config) *Scheduler {
	if cfg.Logger == nil {
		cfg.Logger = logging.Nop()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.New(prometheus.NewRegistry())
	}
	if cfg.Evaluator == nil {
		cfg.Evaluator = expr.NewGojqEvaluator()
	}
	if cfg.RuntimeInfo == nil {
		cfg.RuntimeInfo = map[string]interface{}{"name": "wovenflow", "version": "0.1.0"}
	}
	return &Scheduler{
		events:     cfg.Events,
		checkpoint: cfg.Checkpoint,
		cache:      cfg.Cache,
		eval:       cfg.Evaluator,
		dispatch:   cfg.Dispatcher,
		listen:     cfg.Listener,
		registry:   cfg.Registry,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger,
		secrets:    cfg.Secrets,
		runtime:    cfg.RuntimeInfo,
	}
}

// run is the mutable execution frame threaded through one instance's step
// loop: the environment the Expression Engine evaluates against, plus the
// Instance record itself.
type run struct {
	inst    *instance.Instance
	wf      *model.Workflow
	context interface{}

	// loopItem/loopAt carry the innermost enclosing `for` task's current
	// item/index binding so baseEnv can expose $item/$at to every task
	// nested inside that iteration, however deep.
	loopItem interface{}
	loopAt   interface{}
}

// Start validates wf, emits WorkflowStarted, and drives a brand-new Instance
// to a terminal state.
func (s *Scheduler) Start(ctx context.Context, wf *model.Workflow, input interface{}) (*instance.Instance, error) {
	if err := validatorx.Validate(wf); err != nil {
		return nil, err
	}

	inst := instance.New(wf.Document.Namespace, wf.Document.Name, wf.Document.Version, input)
	s.metrics.ActiveInstances.Inc()
	defer s.metrics.ActiveInstances.Dec()

	r := &run{inst: inst, wf: wf}

	if _, err := s.appendEvent(ctx, inst, events.WorkflowStarted, map[string]interface{}{"input": input}); err != nil {
		return inst, err
	}

	env := s.baseEnv(r)
	initialContext := input
	if wf.Input != nil && wf.Input.From != nil && *wf.Input.From != "" {
		filtered, err := s.eval.Evaluate(ctx, string(*wf.Input.From), env)
		if err != nil {
			return s.fault(ctx, r, model.NewProblemDetails(model.ErrorValidation, 400, "input.from failed", err.Error(), ""))
		}
		initialContext = filtered
	}
	r.context = initialContext
	inst.Context = initialContext
	inst.Status = instance.StatusRunning

	return s.drive(ctx, r)
}

// Resume rebuilds instance state from the latest checkpoint plus the event
// tail and continues driving it, per spec.md §4.4.7.
func (s *Scheduler) Resume(ctx context.Context, wf *model.Workflow, instanceID string) (*instance.Instance, error) {
	cp, err := s.checkpoint.Load(ctx, instanceID)
	if err != nil {
		return nil, fmt.Errorf("scheduler: load checkpoint for %s: %w", instanceID, err)
	}
	if cp == nil {
		return nil, fmt.Errorf("scheduler: no checkpoint for instance %s", instanceID)
	}

	inst := &instance.Instance{
		ID:             instanceID,
		Namespace:      wf.Document.Namespace,
		Name:           wf.Document.Name,
		Version:        wf.Document.Version,
		Context:        cp.ContextSnapshot,
		CurrentTaskRef: cp.CurrentTaskRef,
		Status:         instance.StatusRunning,
	}

	tail, err := s.events.Load(ctx, instanceID, 1)
	if err != nil {
		return nil, fmt.Errorf("scheduler: load event tail for %s: %w", instanceID, err)
	}
	var maxSeq int64
	for _, ev := range tail {
		if ev.Sequence > maxSeq {
			maxSeq = ev.Sequence
		}
	}
	inst.NextSequence = maxSeq + 1

	r := &run{inst: inst, wf: wf, context: cp.ContextSnapshot}
	if _, err := s.appendEvent(ctx, inst, events.WorkflowResumed, map[string]interface{}{"from": cp.CurrentTaskRef}); err != nil {
		return inst, err
	}

	s.metrics.ActiveInstances.Inc()
	defer s.metrics.ActiveInstances.Dec()
	return s.resumeFrom(ctx, r, cp.CurrentTaskRef)
}

// resumeFrom finds the checkpointed task reference within wf.Do and re-enters
// the step loop at that task itself, not at its successor: the checkpointed
// task, although already completed, is run again, and its cacheable leaf
// work is served from the Cache Store (with the cache disabled it is
// dispatched again). A reference that is not a top-level task restarts from
// the first task. No partial progress inside a single task is reconstructed.
func (s *Scheduler) resumeFrom(ctx context.Context, r *run, fromRef string) (*instance.Instance, error) {
	idx, _ := r.wf.Do.ByName(fromRef)
	if idx < 0 {
		idx = 0
	}
	return s.driveList(ctx, r, r.wf.Do, idx)
}

func (s *Scheduler) drive(ctx context.Context, r *run) (*instance.Instance, error) {
	return s.driveList(ctx, r, r.wf.Do, 0)
}

func (s *Scheduler) baseEnv(r *run) expr.Environment {
	return expr.Environment{
		Context: r.context,
		Input:   r.inst.Input,
		Secrets: s.secrets,
		Workflow: map[string]interface{}{
			"id":        r.inst.ID,
			"definition": r.wf.Document,
			"input":     r.inst.Input,
			"startedAt": r.inst.StartedAt,
		},
		Runtime: s.runtime,
		Item:    r.loopItem,
		At:      r.loopAt,
	}
}

func (s *Scheduler) appendEvent(ctx context.Context, inst *instance.Instance, typ events.Type, payload interface{}) (events.Event, error) {
	ev, err := events.NewEvent(inst.ID, typ, payload)
	if err != nil {
		return events.Event{}, err
	}
	ev.Sequence = inst.NextSeq()
	stored, err := s.events.Append(ctx, ev)
	if err != nil {
		return events.Event{}, fmt.Errorf("scheduler: append %s: %w", typ, err)
	}
	return stored, nil
}

func (s *Scheduler) checkpointNow(ctx context.Context, r *run, ref string) error {
	return s.checkpoint.Save(ctx, checkpoint.Checkpoint{
		InstanceID:      r.inst.ID,
		CurrentTaskRef:  ref,
		ContextSnapshot: r.context,
		Timestamp:       time.Now().UTC(),
	})
}

func (s *Scheduler) complete(ctx context.Context, r *run) (*instance.Instance, error) {
	output := r.context
	if r.wf.Output != nil && r.wf.Output.As != nil && *r.wf.Output.As != "" {
		filtered, err := s.eval.Evaluate(ctx, string(*r.wf.Output.As), s.baseEnv(r))
		if err != nil {
			return s.fault(ctx, r, model.NewProblemDetails(model.ErrorValidation, 400, "output.as failed", err.Error(), ""))
		}
		output = filtered
	}
	r.inst.Output = output
	r.inst.Status = instance.StatusCompleted
	now := time.Now().UTC()
	r.inst.EndedAt = &now
	if _, err := s.appendEvent(ctx, r.inst, events.WorkflowCompleted, map[string]interface{}{"output": output}); err != nil {
		return r.inst, err
	}
	return r.inst, nil
}

func (s *Scheduler) fault(ctx context.Context, r *run, problem *model.ProblemDetails) (*instance.Instance, error) {
	r.inst.Problem = problem
	r.inst.Status = instance.StatusFaulted
	now := time.Now().UTC()
	r.inst.EndedAt = &now
	if _, err := s.appendEvent(ctx, r.inst, events.WorkflowFailed, map[string]interface{}{"problem": problem}); err != nil {
		return r.inst, err
	}
	return r.inst, wferrors.NewWorkflowError(r.inst.ID, problem, nil)
}

func (s *Scheduler) cancel(ctx context.Context, r *run) (*instance.Instance, error) {
	r.inst.Status = instance.StatusCancelled
	now := time.Now().UTC()
	r.inst.EndedAt = &now
	if _, err := s.appendEvent(ctx, r.inst, events.WorkflowCancelled, nil); err != nil {
		return r.inst, err
	}
	return r.inst, wferrors.NewCancellationError(r.inst.ID)
}

// InvokeWorkflow implements dispatcher.WorkflowInvoker: Run: workflow tasks
// resolve the target document through the Workflow Registry and run it to
// completion as a nested instance sharing this Scheduler's collaborators.
func (s *Scheduler) InvokeWorkflow(ctx context.Context, namespace, name, version string, input map[string]interface{}) (interface{}, error) {
	wf, err := s.registry.Resolve(ctx, namespace, name, version, "")
	if err != nil {
		return nil, err
	}
	nested, err := s.Start(ctx, wf, input)
	if err != nil {
		return nil, err
	}
	return nested.Output, nil
}

// ResolveFunction implements dispatcher.FunctionResolver: a `Call: <name>`
// referencing `use.functions` is executed as the named task definition
// against the calling task's dispatch context, reusing the same leaf-kind
// handlers the step loop itself calls.
func (s *Scheduler) ResolveFunction(ctx context.Context, name string, args map[string]interface{}, dctx dispatcher.DispatchContext) (interface{}, error) {
	if dctx.Workflow == nil || dctx.Workflow.Use == nil || dctx.Workflow.Use.Functions == nil {
		return nil, fmt.Errorf("scheduler: no use.functions available to resolve %q", name)
	}
	fn, ok := dctx.Workflow.Use.Functions[name]
	if !ok {
		return nil, fmt.Errorf("scheduler: use.functions has no entry named %q", name)
	}

	if !isCacheable(fn.Kind()) {
		return nil, fmt.Errorf("scheduler: use.functions %q is a %q task; only call/run/set/wait/raise/emit functions can be invoked outside a running instance's step loop", name, fn.Kind())
	}

	fr := &run{wf: dctx.Workflow, context: dctx.Context, inst: &instance.Instance{ID: dctx.TaskReference}}
	env := expr.Environment{
		Context: dctx.Context,
		Input:   args,
		Secrets: s.secrets,
		Workflow: map[string]interface{}{
			"definition": dctx.Workflow.Document,
		},
		Runtime: s.runtime,
	}
	item := &model.TaskItem{Name: name, Task: fn}
	return s.invokeKind(ctx, fr, item, args, env)
}

// fingerprintFor computes the content-addressed cache key for one task
// invocation, per spec.md §3: (task_kind, definition_subset, resolved_input).
func fingerprintFor(kind string, def model.Task, resolvedInput interface{}) (fingerprint.Fingerprint, error) {
	subset, err := fingerprint.Canonicalize(def)
	if err != nil {
		return "", err
	}
	var subsetMap fingerprint.DefinitionSubset
	if err := json.Unmarshal(subset, &subsetMap); err != nil {
		return "", err
	}
	delete(subsetMap, "metadata")
	delete(subsetMap, "then")
	return fingerprint.Compute(kind, subsetMap, resolvedInput)
}
