package validatorx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danrygg/wovenflow/internal/model"
	"github.com/danrygg/wovenflow/internal/registry"
)

func parse(t *testing.T, src string) *model.Workflow {
	t.Helper()
	wf, err := registry.NewYAMLParser().Parse("inline", []byte(src))
	require.NoError(t, err)
	return wf
}

func TestValidate_AcceptsWellFormedDocument(t *testing.T) {
	wf := parse(t, `
document:
  dsl: "1.0.0"
  namespace: test
  name: ok
  version: "1.0.0"
do:
  - step1:
      set:
        value: 1
      then: step2
  - step2:
      set:
        value: 2
`)
	assert.NoError(t, Validate(wf))
}

func TestValidate_RejectsMissingDocumentFields(t *testing.T) {
	wf := parse(t, `
document:
  dsl: "1.0.0"
  namespace: test
  name: missing-version
do:
  - step1:
      set:
        value: 1
`)
	err := Validate(wf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "document.version is required")
}

func TestValidate_RejectsUnresolvedThenTarget(t *testing.T) {
	wf := parse(t, `
document:
  dsl: "1.0.0"
  namespace: test
  name: bad-then
  version: "1.0.0"
do:
  - step1:
      set:
        value: 1
      then: nonexistent
`)
	err := Validate(wf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `then target "nonexistent" does not resolve`)
}

func TestValidate_AcceptsReservedFlowDirectives(t *testing.T) {
	wf := parse(t, `
document:
  dsl: "1.0.0"
  namespace: test
  name: reserved-then
  version: "1.0.0"
do:
  - step1:
      set:
        value: 1
      then: end
`)
	assert.NoError(t, Validate(wf))
}

func TestValidate_RejectsUnknownTimeoutReference(t *testing.T) {
	wf := parse(t, `
document:
  dsl: "1.0.0"
  namespace: test
  name: bad-timeout
  version: "1.0.0"
do:
  - step1:
      set:
        value: 1
      timeout: missing-timeout
`)
	err := Validate(wf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown timeout reference "missing-timeout"`)
}

func TestValidate_RejectsUnknownRetryReference(t *testing.T) {
	wf := parse(t, `
document:
  dsl: "1.0.0"
  namespace: test
  name: bad-retry
  version: "1.0.0"
do:
  - step1:
      try:
        - attempt:
            set:
              value: 1
      catch:
        retry: missing-retry
`)
	err := Validate(wf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown retry reference "missing-retry"`)
}

func TestValidate_RejectsSwitchCaseMissingThen(t *testing.T) {
	wf := parse(t, `
document:
  dsl: "1.0.0"
  namespace: test
  name: bad-switch
  version: "1.0.0"
do:
  - step1:
      switch:
        - highValue:
            when: ".amount > 100"
`)
	err := Validate(wf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `switch case "highValue" missing then`)
}

func TestValidate_RejectsFunctionCallCycle(t *testing.T) {
	wf := parse(t, `
document:
  dsl: "1.0.0"
  namespace: test
  name: cyclic-functions
  version: "1.0.0"
use:
  functions:
    a:
      call: b
    b:
      call: a
do:
  - step1:
      set:
        value: 1
`)
	err := Validate(wf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cyclic reference")
}

func TestValidate_AcceptsAcyclicFunctionCallChain(t *testing.T) {
	wf := parse(t, `
document:
  dsl: "1.0.0"
  namespace: test
  name: acyclic-functions
  version: "1.0.0"
use:
  functions:
    a:
      call: b
    b:
      call: http
      with:
        endpoint: http://example.com
do:
  - step1:
      set:
        value: 1
`)
	assert.NoError(t, Validate(wf))
}

func TestValidate_RejectsExponentialBackoffWithoutMultiplier(t *testing.T) {
	wf := parse(t, `
document:
  dsl: "1.0.0"
  namespace: test
  name: bad-backoff
  version: "1.0.0"
use:
  retries:
    flaky:
      backoff: exponential
do:
  - step1:
      try:
        - attempt:
            set:
              value: 1
      catch:
        retry: flaky
`)
	err := Validate(wf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "multiplier must be greater than zero when backoff is exponential")
}

func TestValidate_RejectsUnknownBackoffKind(t *testing.T) {
	wf := parse(t, `
document:
  dsl: "1.0.0"
  namespace: test
  name: bad-backoff-kind
  version: "1.0.0"
use:
  retries:
    flaky:
      backoff: fibonacci
do:
  - step1:
      set:
        value: 1
`)
	err := Validate(wf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `Backoff must be one of "constant linear exponential"`)
}

func TestValidate_AcceptsExponentialBackoffWithMultiplier(t *testing.T) {
	wf := parse(t, `
document:
  dsl: "1.0.0"
  namespace: test
  name: good-backoff
  version: "1.0.0"
use:
  retries:
    flaky:
      backoff: exponential
      multiplier: 2.0
do:
  - step1:
      try:
        - attempt:
            set:
              value: 1
      catch:
        retry: flaky
`)
	assert.NoError(t, Validate(wf))
}

func TestValidate_RejectsMissingTaskListEntirely(t *testing.T) {
	wf := parse(t, `
document:
  dsl: "1.0.0"
  namespace: test
  name: no-tasks
  version: "1.0.0"
do: []
`)
	err := Validate(wf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "do must declare at least one task")
}
