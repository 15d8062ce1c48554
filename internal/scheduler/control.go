// control.go implements the composite and control-flow task kinds: Switch,
// For, Fork, Try/catch/retry, Listen, Wait, Raise, and Emit. Grounded on the
// teacher's internal/executor/executor.go for the Fork/errgroup concurrency
// shape and internal/context's merge-on-join pattern, generalized from the
// teacher's static dependency-layer model to the spec's nested task lists.
package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"time"

	"dario.cat/mergo"
	"golang.org/x/sync/errgroup"

	"github.com/danrygg/wovenflow/internal/cloudevents"
	"github.com/danrygg/wovenflow/internal/expr"
	"github.com/danrygg/wovenflow/internal/listener"
	"github.com/danrygg/wovenflow/internal/model"
	"github.com/danrygg/wovenflow/internal/store/events"
	"github.com/danrygg/wovenflow/internal/wferrors"
)

// runSwitch evaluates each case's `when` in declaration order (an empty
// `when` is the default, always-true branch) and hands the matched case's
// `then` back to runList as an override, since SwitchCase carries no nested
// task list of its own.
func (s *Scheduler) runSwitch(ctx context.Context, r *run, t *model.SwitchTask, env expr.Environment) (interface{}, *model.FlowDirective, flowSignal, error) {
	for _, c := range t.Switch {
		matched := c.When == ""
		if !matched {
			v, err := s.eval.Evaluate(ctx, string(c.When), env)
			if err != nil {
				return nil, nil, flowNone, err
			}
			matched = truthy(v)
		}
		if matched {
			return r.context, c.Then, flowNone, nil
		}
	}
	return r.context, nil, flowNone, nil
}

// runFor iterates the collection expression sequentially, binding `item`
// (and optional `at` index) into the environment per spec.md §5, observing
// $context as mutated by the previous iteration since the nested runList
// shares r directly, and honoring an optional early-exit `while` expression.
func (s *Scheduler) runFor(ctx context.Context, r *run, t *model.ForTask, env expr.Environment) (interface{}, *model.FlowDirective, flowSignal, error) {
	collectionVal, err := s.eval.Evaluate(ctx, string(t.For.In), env)
	if err != nil {
		return nil, nil, flowNone, err
	}
	collection, ok := collectionVal.([]interface{})
	if !ok {
		pd := model.NewProblemDetails(model.ErrorValidation, 400, "for.in is not iterable",
			fmt.Sprintf("for.in must evaluate to an array, got %T", collectionVal), "")
		pd.Type = strings.TrimSuffix(pd.Type, string(model.ErrorValidation)) + "for-not-iterable"
		return nil, nil, flowNone, wferrors.NewTaskError("", pd, nil)
	}

	var lastOutput interface{} = r.context
	for idx, item := range collection {
		prevItem, prevAt := r.loopItem, r.loopAt
		r.loopItem, r.loopAt = item, float64(idx)

		if t.While != "" {
			v, err := s.eval.Evaluate(ctx, string(t.While), s.baseEnv(r))
			if err != nil {
				r.loopItem, r.loopAt = prevItem, prevAt
				return nil, nil, flowNone, err
			}
			if !truthy(v) {
				r.loopItem, r.loopAt = prevItem, prevAt
				break
			}
		}

		sig, out, err := s.runList(ctx, r, t.Do, 0)
		r.loopItem, r.loopAt = prevItem, prevAt
		if err != nil {
			return nil, nil, flowNone, err
		}
		lastOutput = out
		if sig == flowEnd {
			return lastOutput, nil, flowEnd, nil
		}
	}
	return lastOutput, nil, flowNone, nil
}

// runFork executes every branch concurrently against an independent
// $context snapshot taken at fork time, per spec.md §5. Normal mode requires
// every branch to complete and deep-merges their final contexts into
// r.context in declaration order via mergo (later branches override earlier
// ones on key conflict, recursing into nested objects rather than
// replacing them wholesale); compete mode returns the first branch to
// finish and cancels the rest.
func (s *Scheduler) runFork(ctx context.Context, r *run, t *model.ForkTask, env expr.Environment) (interface{}, error) {
	branches := t.Fork.Branches
	if len(branches) == 0 {
		return r.context, nil
	}

	if t.Fork.Compete {
		return s.runForkCompete(ctx, r, branches)
	}
	return s.runForkAll(ctx, r, branches)
}

func (s *Scheduler) runForkAll(ctx context.Context, r *run, branches model.TaskList) (interface{}, error) {
	g, gctx := errgroup.WithContext(ctx)
	results := make([]interface{}, len(branches))
	contexts := make([]interface{}, len(branches))

	for i, branch := range branches {
		i, branch := i, branch
		branchRun := &run{inst: r.inst, wf: r.wf, context: r.context}
		g.Go(func() error {
			sig, out, err := s.runList(gctx, branchRun, model.TaskList{branch}, 0)
			if err != nil {
				return err
			}
			_ = sig
			results[i] = out
			contexts[i] = branchRun.context
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged, ok := r.context.(map[string]interface{})
	if !ok || merged == nil {
		merged = map[string]interface{}{}
	} else {
		clone := make(map[string]interface{}, len(merged))
		for k, v := range merged {
			clone[k] = v
		}
		merged = clone
	}
	for _, c := range contexts {
		m, ok := c.(map[string]interface{})
		if !ok {
			continue
		}
		if err := mergo.Merge(&merged, m, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("fork: merge branch context: %w", err)
		}
	}
	r.context = merged
	return results, nil
}

func (s *Scheduler) runForkCompete(ctx context.Context, r *run, branches model.TaskList) (interface{}, error) {
	winnerCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type result struct {
		out interface{}
		ctx interface{}
		err error
	}
	done := make(chan result, len(branches))

	for _, branch := range branches {
		branch := branch
		branchRun := &run{inst: r.inst, wf: r.wf, context: r.context}
		go func() {
			_, out, err := s.runList(winnerCtx, branchRun, model.TaskList{branch}, 0)
			select {
			case done <- result{out: out, ctx: branchRun.context, err: err}:
			case <-winnerCtx.Done():
			}
		}()
	}

	select {
	case res := <-done:
		cancel()
		if res.err != nil {
			return nil, res.err
		}
		if m, ok := res.ctx.(map[string]interface{}); ok {
			r.context = m
		}
		return res.out, nil
	case <-ctx.Done():
		return nil, wferrors.NewCancellationError(r.inst.ID)
	}
}

// runTry runs the try block; on an unrecovered error it matches the escaping
// problem against catch.errors/when/exceptWhen, retries per catch.retry if
// configured, and otherwise runs catch.do with the error bound under
// catch.as.
func (s *Scheduler) runTry(ctx context.Context, r *run, ref string, t *model.TryTask, env expr.Environment) (interface{}, flowSignal, error) {
	sig, out, err := s.runList(ctx, r, t.Try, 0)
	if err == nil {
		return out, sig, nil
	}

	problem := problemFrom(err)
	matchEnv := env
	matchEnv.Context = r.context
	if !s.catchMatches(ctx, t.Catch, problem, matchEnv) {
		return nil, flowNone, err
	}

	if t.Catch.Retry != nil {
		policy, perr := s.resolveRetry(r, t.Catch.Retry)
		if perr != nil {
			return nil, flowNone, perr
		}
		if policy != nil {
			out2, sig2, err2 := s.retryTry(ctx, r, ref, t, policy)
			if err2 == nil {
				return out2, sig2, nil
			}
			problem = problemFrom(err2)
			if !s.catchMatches(ctx, t.Catch, problem, matchEnv) {
				return nil, flowNone, err2
			}
		}
	}

	if t.Catch.Do == nil {
		return nil, flowNone, nil
	}
	if t.Catch.As != "" {
		if ctxMap, ok := r.context.(map[string]interface{}); ok {
			clone := make(map[string]interface{}, len(ctxMap)+1)
			for k, v := range ctxMap {
				clone[k] = v
			}
			clone[t.Catch.As] = problem
			r.context = clone
		} else {
			r.context = map[string]interface{}{t.Catch.As: problem}
		}
	}
	catchSig, catchOut, catchErr := s.runList(ctx, r, t.Catch.Do, 0)
	return catchOut, catchSig, catchErr
}

// retryTry re-runs the try block per policy's backoff until it succeeds or
// the attempt/duration limit is exhausted, emitting TaskRetried per attempt.
func (s *Scheduler) retryTry(ctx context.Context, r *run, ref string, t *model.TryTask, policy *model.RetryPolicy) (interface{}, flowSignal, error) {
	start := time.Now()
	attempt := 0
	var lastErr error
	for {
		attempt++
		if policy.Limit != nil && policy.Limit.Attempt != nil && attempt > policy.Limit.Attempt.Count {
			return nil, flowNone, lastErr
		}
		if policy.Limit != nil && policy.Limit.Duration != nil {
			maxDur, derr := s.resolveDurationDef(ctx, r, policy.Limit.Duration)
			if derr == nil && maxDur > 0 && time.Since(start) > maxDur {
				return nil, flowNone, lastErr
			}
		}

		delay := backoffDelay(policy, attempt)
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, flowNone, wferrors.NewCancellationError(r.inst.ID)
			}
		}

		_, _ = s.appendEvent(ctx, r.inst, events.TaskRetried, map[string]interface{}{"reference": ref, "attempt": attempt})
		sig, out, err := s.runList(ctx, r, t.Try, 0)
		if err == nil {
			return out, sig, nil
		}
		lastErr = err
	}
}

// catchMatches evaluates catch.errors' static glob filters plus any dynamic
// when/exceptWhen against the escaping problem.
func (s *Scheduler) catchMatches(ctx context.Context, catch model.CatchSpec, problem *model.ProblemDetails, env expr.Environment) bool {
	if catch.Errors != nil && !errorFilterMatches(catch.Errors.With, problem) {
		return false
	}
	errEnv := env
	errEnv.Task = map[string]interface{}{"error": problemToMap(problem)}
	if catch.When != "" {
		v, err := s.eval.Evaluate(ctx, string(catch.When), errEnv)
		if err != nil || !truthy(v) {
			return false
		}
	}
	if catch.ExceptWhen != "" {
		v, err := s.eval.Evaluate(ctx, string(catch.ExceptWhen), errEnv)
		if err == nil && truthy(v) {
			return false
		}
	}
	return true
}

func errorFilterMatches(f model.ErrorFilterFields, p *model.ProblemDetails) bool {
	if f.Type != "" && !globMatch(f.Type, p.Type) {
		return false
	}
	if f.Status != 0 && f.Status != p.Status {
		return false
	}
	if f.Instance != "" && !globMatch(f.Instance, p.Instance) {
		return false
	}
	if f.Title != "" && !globMatch(f.Title, p.Title) {
		return false
	}
	if f.Detail != "" && !globMatch(f.Detail, p.Detail) {
		return false
	}
	return true
}

func globMatch(pattern, value string) bool {
	ok, err := path.Match(pattern, value)
	if err != nil {
		return pattern == value
	}
	return ok
}

func problemToMap(p *model.ProblemDetails) map[string]interface{} {
	if p == nil {
		return nil
	}
	return map[string]interface{}{
		"type": p.Type, "status": p.Status, "title": p.Title,
		"detail": p.Detail, "instance": p.Instance,
	}
}

// runRaise synthesizes a ProblemDetails from an inline literal or a
// use.errors reference and propagates it as a task failure.
func (s *Scheduler) runRaise(ctx context.Context, r *run, t *model.RaiseTask, env expr.Environment) error {
	var pd *model.ProblemDetails
	if t.Raise.Error.Inline != nil {
		resolved, err := s.eval.EvaluateValue(ctx, problemToMap(t.Raise.Error.Inline), env)
		if err != nil {
			return err
		}
		m, _ := resolved.(map[string]interface{})
		pd = &model.ProblemDetails{
			Type:     stringField(m, "type"),
			Status:   intField(m, "status"),
			Title:    stringField(m, "title"),
			Detail:   stringField(m, "detail"),
			Instance: stringField(m, "instance"),
			Kind:     model.ErrorUserRaised,
		}
	} else if t.Raise.Error.Reference != "" {
		if r.wf.Use == nil || r.wf.Use.Errors == nil {
			return fmt.Errorf("scheduler: use.errors has no entry named %q", t.Raise.Error.Reference)
		}
		ref, ok := r.wf.Use.Errors[t.Raise.Error.Reference]
		if !ok {
			return fmt.Errorf("scheduler: use.errors has no entry named %q", t.Raise.Error.Reference)
		}
		cp := *ref
		pd = &cp
	} else {
		return fmt.Errorf("scheduler: raise.error must be inline or a use.errors reference")
	}
	return wferrors.NewTaskError("", pd, nil)
}

func stringField(m map[string]interface{}, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

func intField(m map[string]interface{}, key string) int {
	if m == nil {
		return 0
	}
	switch v := m[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}

// runEmit evaluates an Emit task's envelope fields and builds the CloudEvent.
// Actual publication to a broker is outside this engine's scope (spec.md §1
// treats event transport as an external collaborator); the envelope is
// logged and counted, and returned as the task's raw output so downstream
// `export.as` can reference it.
func (s *Scheduler) runEmit(ctx context.Context, r *run, t *model.EmitTask, env expr.Environment) (interface{}, error) {
	spec := t.Emit.Event.With

	eval := func(e model.Expr) (string, error) {
		if e == "" {
			return "", nil
		}
		v, err := s.eval.Evaluate(ctx, string(e), env)
		if err != nil {
			return "", err
		}
		str, _ := v.(string)
		if str == "" {
			if v != nil {
				return fmt.Sprintf("%v", v), nil
			}
		}
		return str, nil
	}

	id, err := eval(spec.ID)
	if err != nil {
		return nil, err
	}
	source, err := eval(spec.Source)
	if err != nil {
		return nil, err
	}
	typ, err := eval(spec.Type)
	if err != nil {
		return nil, err
	}
	subject, err := eval(spec.Subject)
	if err != nil {
		return nil, err
	}
	contentType, err := eval(spec.DataContentType)
	if err != nil {
		return nil, err
	}
	timeStr, err := eval(spec.Time)
	if err != nil {
		return nil, err
	}
	var evTime *time.Time
	if timeStr != "" {
		parsed, err := time.Parse(time.RFC3339, timeStr)
		if err != nil {
			return nil, fmt.Errorf("scheduler: emit time %q: %w", timeStr, err)
		}
		evTime = &parsed
	}
	var data interface{}
	if spec.Data != nil {
		data, err = s.eval.EvaluateValue(ctx, map[string]interface{}(spec.Data), env)
		if err != nil {
			return nil, err
		}
	}
	if source == "" {
		source = fmt.Sprintf("urn:wovenflow:instance:%s", r.inst.ID)
	}

	builder := cloudevents.Builder{
		ID: id, Source: source, Type: typ, Time: evTime, Subject: subject,
		DataContentType: contentType, Data: data,
	}
	ev, err := builder.Build()
	if err != nil {
		return nil, err
	}
	s.logger.Info("emitting cloud event").Str("type", ev.Type).Str("source", ev.Source).Send()
	return map[string]interface{}{
		"id": ev.ID, "source": ev.Source, "type": ev.Type,
		"subject": ev.Subject, "specversion": ev.SpecVersion,
	}, nil
}

// runWait resolves the task's duration and sleeps, honoring cancellation.
// Wait is one of the cacheable leaf kinds, so a replayed instance skips the
// sleep entirely once the fingerprinted result is in the Cache Store.
func (s *Scheduler) runWait(ctx context.Context, r *run, t *model.WaitTask, env expr.Environment) (interface{}, error) {
	d, err := expr.ResolveDuration(ctx, &t.Wait, s.eval, env)
	if err != nil {
		return nil, err
	}
	if d <= 0 {
		return map[string]interface{}{"waited": "0s"}, nil
	}
	select {
	case <-time.After(d):
		return map[string]interface{}{"waited": d.String()}, nil
	case <-ctx.Done():
		return nil, wferrors.NewCancellationError(r.inst.ID)
	}
}

// runListen binds the task's event sources through the Listener Adapter,
// waits for the strategy to be satisfied, optionally fans the deliveries out
// through foreach.do, and surfaces the result per the configured read mode.
func (s *Scheduler) runListen(ctx context.Context, r *run, t *model.ListenTask, env expr.Environment) (interface{}, error) {
	if s.listen == nil {
		return nil, fmt.Errorf("scheduler: no listener adapter configured")
	}
	binding := s.listen.Bind(t.Listen.To.Sources, t.Listen.To.Strategy)
	defer s.listen.Unbind(binding)

	deliveries, err := binding.Wait(ctx)
	if err != nil {
		return nil, wferrors.NewTaskError("", model.NewProblemDetails(model.ErrorTimeout, 504, "listen wait failed", err.Error(), ""), err)
	}

	// `until` is evaluated for documentation/future early-unbind support; the
	// Listener Adapter's Binding.Wait already applies the one/any/all
	// strategy before returning, so the deliveries collected so far are
	// final regardless of how until resolves.
	if t.Listen.Until != "" {
		_, _ = s.eval.Evaluate(ctx, string(t.Listen.Until), env)
	}

	results := make([]interface{}, 0, len(deliveries))
	for _, d := range deliveries {
		surfaced, serr := surfaceDelivery(d, t.Listen.ReadMode)
		if serr != nil {
			return nil, serr
		}
		if t.Listen.Foreach != nil {
			prevItem := r.loopItem
			r.loopItem = surfaced
			_, _, ferr := s.runList(ctx, r, t.Listen.Foreach.Do, 0)
			r.loopItem = prevItem
			if ferr != nil {
				return nil, ferr
			}
		}
		results = append(results, surfaced)
	}

	if len(results) == 1 {
		return results[0], nil
	}
	return results, nil
}

// surfaceDelivery turns one listener.Delivery into the value a Listen task's
// bound list (or caller) sees, per the declared read mode.
func surfaceDelivery(d listener.Delivery, mode model.ReadMode) (interface{}, error) {
	switch mode {
	case model.ReadRaw:
		return string(d.Body), nil
	case model.ReadEnvelope:
		var ev cloudevents.Event
		if err := json.Unmarshal(d.Body, &ev); err != nil {
			return nil, fmt.Errorf("scheduler: delivery is not a CloudEvents envelope: %w", err)
		}
		return ev, nil
	default: // model.ReadData, and "" defaults to data
		var ev cloudevents.Event
		if err := json.Unmarshal(d.Body, &ev); err == nil && ev.Data != nil {
			var v interface{}
			if err := json.Unmarshal(ev.Data, &v); err == nil {
				return v, nil
			}
		}
		var v interface{}
		if err := json.Unmarshal(d.Body, &v); err != nil {
			return string(d.Body), nil
		}
		return v, nil
	}
}
