package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestListenTo_UnmarshalYAML_OneStrategyWithSingleSource(t *testing.T) {
	var to ListenTo
	require.NoError(t, yaml.Unmarshal([]byte(`
one:
  with:
    - http:
        path: /events/order-created
`), &to))
	assert.Equal(t, ListenOne, to.Strategy)
	require.Len(t, to.Sources, 1)
	require.NotNil(t, to.Sources[0].HTTP)
	assert.Equal(t, "/events/order-created", to.Sources[0].HTTP.Path)
}

func TestListenTo_UnmarshalYAML_AllStrategyWithMultipleSources(t *testing.T) {
	var to ListenTo
	require.NoError(t, yaml.Unmarshal([]byte(`
all:
  with:
    - http:
        path: /events/a
    - grpc:
        service: Orders
        method: Created
`), &to))
	assert.Equal(t, ListenAll, to.Strategy)
	require.Len(t, to.Sources, 2)
	assert.NotNil(t, to.Sources[0].HTTP)
	assert.NotNil(t, to.Sources[1].GRPC)
}

func TestListenTo_UnmarshalYAML_AnyStrategy(t *testing.T) {
	var to ListenTo
	require.NoError(t, yaml.Unmarshal([]byte(`
any:
  with:
    - http:
        path: /events/b
`), &to))
	assert.Equal(t, ListenAny, to.Strategy)
}

func TestListenTo_UnmarshalYAML_MissingStrategyFails(t *testing.T) {
	var to ListenTo
	err := yaml.Unmarshal([]byte(`
notAStrategy:
  with:
    - http:
        path: /events/c
`), &to)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "one/any/all")
}

func TestListenTo_MarshalYAML_RoundTripsStrategyAndSources(t *testing.T) {
	to := ListenTo{
		Strategy: ListenOne,
		Sources:  []EventSourceSpec{{HTTP: &HTTPEventSource{Path: "/events/d"}}},
	}
	out, err := yaml.Marshal(to)
	require.NoError(t, err)

	var round ListenTo
	require.NoError(t, yaml.Unmarshal(out, &round))
	assert.Equal(t, ListenOne, round.Strategy)
	require.Len(t, round.Sources, 1)
	assert.Equal(t, "/events/d", round.Sources[0].HTTP.Path)
}
