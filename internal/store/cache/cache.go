// Package cache implements the Cache Store (spec.md §4.7): a content-
// addressed map from task fingerprint to task output, with per-fingerprint
// single-writer coordination so concurrent schedulers observing the same
// fingerprint let only one proceed to the dispatcher. Coordination follows
// the teacher's executeLayerParallel semaphore/mutex discipline
// (internal/executor/executor.go), generalized from "bound total
// concurrency" to "serialize per fingerprint" via golang.org/x/sync/singleflight.
package cache

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/danrygg/wovenflow/internal/fingerprint"
)

// Entry is one immutable cache row.
type Entry struct {
	Key       fingerprint.Fingerprint `db:"key" json:"key"`
	Input     interface{}             `db:"-" json:"input"`
	Output    interface{}             `db:"-" json:"output"`
	Timestamp time.Time               `db:"timestamp" json:"timestamp"`
}

// Store is the Cache Store contract.
type Store interface {
	Get(ctx context.Context, key fingerprint.Fingerprint) (*Entry, bool, error)
	Put(ctx context.Context, entry Entry) error
	Close() error
}

// Coordinator wraps a Store with the "at-most-once effective execution per
// fingerprint" contract: concurrent callers computing the same fingerprint
// block on the first caller's compute function and share its result.
type Coordinator struct {
	store Store
	group singleflight.Group
}

func NewCoordinator(store Store) *Coordinator {
	return &Coordinator{store: store}
}

// GetOrCompute returns the cached entry for key if present; otherwise it runs
// compute exactly once across all concurrent callers sharing key, stores the
// result, and returns it. hit reports whether the value came from the
// persistent store outright. computed reports whether *this* call's compute
// closure is the one that actually ran — singleflight.Group.Do only ever
// invokes the closure belonging to the first caller to register for a key;
// every other concurrent caller's closure argument is never invoked at all,
// so a local flag set from inside the closure faithfully distinguishes, per
// call, the singleflight "leader" (computed=true) from a deduped "follower"
// (computed=false) sharing the leader's result. Callers that run per-task
// bookkeeping (e.g. lifecycle events) from inside compute must account for
// computed=false themselves, since that bookkeeping never ran for them.
func (c *Coordinator) GetOrCompute(ctx context.Context, key fingerprint.Fingerprint, input interface{}, compute func(context.Context) (interface{}, error)) (output interface{}, hit bool, computed bool, err error) {
	if entry, ok, err := c.store.Get(ctx, key); err != nil {
		return nil, false, false, err
	} else if ok {
		return entry.Output, true, false, nil
	}

	var ran bool
	v, err, _ := c.group.Do(string(key), func() (interface{}, error) {
		ran = true
		if entry, ok, err := c.store.Get(ctx, key); err != nil {
			return nil, err
		} else if ok {
			return entry.Output, nil
		}
		out, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		if putErr := c.store.Put(ctx, Entry{Key: key, Input: input, Output: out, Timestamp: time.Now().UTC()}); putErr != nil {
			return nil, putErr
		}
		return out, nil
	})
	if err != nil {
		return nil, false, ran, err
	}
	return v, false, ran, nil
}

func (c *Coordinator) Close() error { return c.store.Close() }
