// retry.go resolves the named, reusable `use.timeouts`/`use.retries`
// indirections and computes the constant/linear/exponential backoff
// schedule a retry policy describes (spec.md §4.4.5).
package scheduler

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/danrygg/wovenflow/internal/expr"
	"github.com/danrygg/wovenflow/internal/model"
)

// resolveTimeout resolves a TaskBase.Timeout (inline or a use.timeouts name)
// to a concrete duration.
func (s *Scheduler) resolveTimeout(ctx context.Context, r *run, t *model.TimeoutOrReference) (time.Duration, error) {
	if t == nil {
		return 0, nil
	}
	def := t.Inline
	if def == nil && t.Reference != "" {
		if r.wf.Use == nil || r.wf.Use.Timeouts == nil {
			return 0, fmt.Errorf("scheduler: use.timeouts has no entry named %q", t.Reference)
		}
		var ok bool
		def, ok = r.wf.Use.Timeouts[t.Reference]
		if !ok {
			return 0, fmt.Errorf("scheduler: use.timeouts has no entry named %q", t.Reference)
		}
	}
	if def == nil {
		return 0, nil
	}
	return s.resolveDurationDef(ctx, r, def.After)
}

// resolveRetry resolves a RetryOrReference (inline or a use.retries name) to
// a concrete *model.RetryPolicy.
func (s *Scheduler) resolveRetry(r *run, rr *model.RetryOrReference) (*model.RetryPolicy, error) {
	if rr == nil {
		return nil, nil
	}
	if rr.Inline != nil {
		return rr.Inline, nil
	}
	if rr.Reference == "" {
		return nil, nil
	}
	if r.wf.Use == nil || r.wf.Use.Retries == nil {
		return nil, fmt.Errorf("scheduler: use.retries has no entry named %q", rr.Reference)
	}
	policy, ok := r.wf.Use.Retries[rr.Reference]
	if !ok {
		return nil, fmt.Errorf("scheduler: use.retries has no entry named %q", rr.Reference)
	}
	return policy, nil
}

func (s *Scheduler) resolveDurationDef(ctx context.Context, r *run, d *model.DurationDef) (time.Duration, error) {
	if d == nil {
		return 0, nil
	}
	return expr.ResolveDuration(ctx, d, s.eval, s.baseEnv(r))
}

// backoffDelay computes the delay before retry attempt n (1-indexed),
// applying the configured backoff shape, multiplier, max-delay cap, and
// optional jitter window.
func backoffDelay(policy *model.RetryPolicy, attempt int) time.Duration {
	var initial time.Duration
	if policy.InitialDelay != nil {
		initial = policy.InitialDelay.Structured.AsTimeDuration()
		if initial == 0 && policy.InitialDelay.ISO != "" {
			if d, err := expr.ParseISO8601Duration(policy.InitialDelay.ISO); err == nil {
				initial = d
			}
		}
	}
	if initial <= 0 {
		initial = time.Second
	}

	multiplier := policy.Multiplier
	if multiplier <= 0 {
		multiplier = 2
	}

	var delay time.Duration
	switch policy.Backoff {
	case model.BackoffConstant:
		delay = initial
	case model.BackoffLinear:
		delay = initial * time.Duration(attempt)
	case model.BackoffExponential:
		d := float64(initial)
		for i := 1; i < attempt; i++ {
			d *= multiplier
		}
		delay = time.Duration(d)
	default:
		delay = initial
	}

	if policy.MaxDelay != nil {
		max := policy.MaxDelay.Structured.AsTimeDuration()
		if max == 0 && policy.MaxDelay.ISO != "" {
			if d, err := expr.ParseISO8601Duration(policy.MaxDelay.ISO); err == nil {
				max = d
			}
		}
		if max > 0 && delay > max {
			delay = max
		}
	}

	if policy.Jitter != nil {
		from := durationOrZero(policy.Jitter.From)
		to := durationOrZero(policy.Jitter.To)
		if to > from {
			delay += from + time.Duration(rand.Int63n(int64(to-from)+1))
		}
	}

	return delay
}

func durationOrZero(d *model.DurationDef) time.Duration {
	if d == nil {
		return 0
	}
	if d.Structured != nil {
		return d.Structured.AsTimeDuration()
	}
	if d.ISO != "" {
		if dur, err := expr.ParseISO8601Duration(d.ISO); err == nil {
			return dur
		}
	}
	return 0
}
