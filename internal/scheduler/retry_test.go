package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/danrygg/wovenflow/internal/model"
)

func msDuration(ms int) *model.DurationDef {
	return &model.DurationDef{Structured: &model.StructuredDuration{Milliseconds: ms}}
}

func TestBackoffDelay_Constant(t *testing.T) {
	policy := &model.RetryPolicy{Backoff: model.BackoffConstant, InitialDelay: msDuration(100)}

	assert.Equal(t, 100*time.Millisecond, backoffDelay(policy, 1))
	assert.Equal(t, 100*time.Millisecond, backoffDelay(policy, 5))
}

func TestBackoffDelay_Linear(t *testing.T) {
	policy := &model.RetryPolicy{Backoff: model.BackoffLinear, InitialDelay: msDuration(100)}

	assert.Equal(t, 100*time.Millisecond, backoffDelay(policy, 1))
	assert.Equal(t, 300*time.Millisecond, backoffDelay(policy, 3))
}

func TestBackoffDelay_Exponential(t *testing.T) {
	policy := &model.RetryPolicy{Backoff: model.BackoffExponential, InitialDelay: msDuration(100), Multiplier: 2}

	assert.Equal(t, 100*time.Millisecond, backoffDelay(policy, 1))
	assert.Equal(t, 200*time.Millisecond, backoffDelay(policy, 2))
	assert.Equal(t, 400*time.Millisecond, backoffDelay(policy, 3))
}

func TestBackoffDelay_RespectsMaxDelay(t *testing.T) {
	policy := &model.RetryPolicy{
		Backoff:      model.BackoffExponential,
		InitialDelay: msDuration(100),
		Multiplier:   2,
		MaxDelay:     msDuration(250),
	}

	assert.Equal(t, 250*time.Millisecond, backoffDelay(policy, 3))
}

func TestBackoffDelay_JitterStaysWithinWindow(t *testing.T) {
	policy := &model.RetryPolicy{
		Backoff:      model.BackoffConstant,
		InitialDelay: msDuration(100),
		Jitter: &model.JitterDef{
			From: msDuration(10),
			To:   msDuration(20),
		},
	}

	for i := 0; i < 20; i++ {
		d := backoffDelay(policy, 1)
		assert.GreaterOrEqual(t, d, 110*time.Millisecond)
		assert.LessOrEqual(t, d, 120*time.Millisecond)
	}
}
