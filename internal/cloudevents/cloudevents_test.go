package cloudevents

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild_RequiresSourceAndType(t *testing.T) {
	_, err := Builder{Type: "order.created"}.Build()
	require.Error(t, err)

	_, err = Builder{Source: "/orders"}.Build()
	require.Error(t, err)
}

func TestBuild_AutoGeneratesIDAndTime(t *testing.T) {
	ev, err := Builder{Source: "/orders", Type: "order.created"}.Build()
	require.NoError(t, err)
	assert.NotEmpty(t, ev.ID)
	require.NotNil(t, ev.Time)
	assert.False(t, ev.Time.IsZero())
	assert.Equal(t, "1.0", ev.SpecVersion)
}

func TestBuild_RespectsExplicitIDAndTime(t *testing.T) {
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	ev, err := Builder{ID: "fixed-id", Source: "/orders", Type: "order.created", Time: &fixed}.Build()
	require.NoError(t, err)
	assert.Equal(t, "fixed-id", ev.ID)
	require.NotNil(t, ev.Time)
	assert.True(t, fixed.Equal(*ev.Time))
}

func TestBuild_MarshalsDataAndSetsContentType(t *testing.T) {
	ev, err := Builder{
		Source: "/orders",
		Type:   "order.created",
		Data:   map[string]interface{}{"id": 42},
	}.Build()
	require.NoError(t, err)
	assert.Equal(t, "application/json", ev.DataContentType)

	var out map[string]interface{}
	require.NoError(t, ev.DataAs(&out))
	assert.EqualValues(t, 42, out["id"])
}

func TestBuild_NoDataLeavesContentTypeEmpty(t *testing.T) {
	ev, err := Builder{Source: "/orders", Type: "order.created"}.Build()
	require.NoError(t, err)
	assert.Empty(t, ev.DataContentType)
	assert.Nil(t, ev.Data)
}

func TestDataAs_NilDataIsNoop(t *testing.T) {
	ev := &Event{}
	var out map[string]interface{}
	assert.NoError(t, ev.DataAs(&out))
	assert.Nil(t, out)
}
