package logging

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSONLogger_EmitsStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewJSONLogger("info", &buf)

	log.Info("workflow started").Str("instance_id", "abc-123").Int("attempt", 1).Send()

	out := buf.String()
	assert.Contains(t, out, `"message":"workflow started"`)
	assert.Contains(t, out, `"instance_id":"abc-123"`)
	assert.Contains(t, out, `"attempt":1`)
	assert.Contains(t, out, `"level":"info"`)
}

func TestNewJSONLogger_DebugSuppressedBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewJSONLogger("info", &buf)

	log.Debug("noisy detail").Send()
	assert.Empty(t, buf.String())
}

func TestNewJSONLogger_ErrorIncludesErrField(t *testing.T) {
	var buf bytes.Buffer
	log := NewJSONLogger("info", &buf)

	log.Error("task failed", errors.New("boom")).Str("task", "/do/0").Send()

	out := buf.String()
	assert.Contains(t, out, `"error":"boom"`)
	assert.Contains(t, out, `"level":"error"`)
}

func TestWith_AttachesFieldsToChildLogger(t *testing.T) {
	var buf bytes.Buffer
	log := NewJSONLogger("info", &buf)

	child := log.With().Str("instance_id", "abc-123").Logger()
	child.Info("child event").Send()

	assert.Contains(t, buf.String(), `"instance_id":"abc-123"`)
}

func TestNop_DiscardsEverything(t *testing.T) {
	log := Nop()
	require.NotNil(t, log)
	log.Info("should not panic").Str("a", "b").Send()
}

func TestParseLevel_FallsBackToInfoOnInvalid(t *testing.T) {
	var buf bytes.Buffer
	log := NewJSONLogger("not-a-level", &buf)

	log.Debug("suppressed").Send()
	assert.Empty(t, buf.String())

	log.Info("visible").Send()
	assert.Contains(t, buf.String(), "visible")
}
