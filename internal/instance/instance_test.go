package instance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_AssignsIdentityAndPendingStatus(t *testing.T) {
	inst := New("test", "greet", "1.0.0", map[string]interface{}{"name": "gopher"})

	require.NotEmpty(t, inst.ID)
	assert.Equal(t, "test", inst.Namespace)
	assert.Equal(t, "greet", inst.Name)
	assert.Equal(t, "1.0.0", inst.Version)
	assert.Equal(t, StatusPending, inst.Status)
	assert.EqualValues(t, 1, inst.NextSequence)
	assert.False(t, inst.StartedAt.IsZero())
}

func TestNew_AssignsDistinctIDs(t *testing.T) {
	a := New("test", "greet", "1.0.0", nil)
	b := New("test", "greet", "1.0.0", nil)

	assert.NotEqual(t, a.ID, b.ID)
}

func TestNextSeq_MonotonicallyIncreases(t *testing.T) {
	inst := New("test", "greet", "1.0.0", nil)

	assert.EqualValues(t, 1, inst.NextSeq())
	assert.EqualValues(t, 2, inst.NextSeq())
	assert.EqualValues(t, 3, inst.NextSeq())
}

func TestRecord_AppendsToHistory(t *testing.T) {
	inst := New("test", "greet", "1.0.0", nil)

	inst.Record(TaskExecutionRecord{TaskReference: "/do/0", Outcome: OutcomeCompleted})
	inst.Record(TaskExecutionRecord{TaskReference: "/do/1", Outcome: OutcomeFaulted})

	require.Len(t, inst.History, 2)
	assert.Equal(t, "/do/0", inst.History[0].TaskReference)
	assert.Equal(t, OutcomeFaulted, inst.History[1].Outcome)
}

func TestStatus_IsTerminal(t *testing.T) {
	terminal := []Status{StatusCompleted, StatusFaulted, StatusCancelled}
	for _, s := range terminal {
		assert.True(t, s.IsTerminal(), "%s should be terminal", s)
	}

	nonTerminal := []Status{StatusPending, StatusRunning, StatusWaiting, StatusSuspended}
	for _, s := range nonTerminal {
		assert.False(t, s.IsTerminal(), "%s should not be terminal", s)
	}
}

func TestTaskExecutionRecord_Descriptor(t *testing.T) {
	rec := &TaskExecutionRecord{TaskReference: "/do/2"}

	desc := rec.Descriptor(map[string]interface{}{"set": map[string]interface{}{"value": 1}})
	assert.Equal(t, "/do/2", desc["name"])
	assert.Equal(t, "/do/2", desc["reference"])
	assert.NotNil(t, desc["definition"])
}
