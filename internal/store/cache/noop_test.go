package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNullStore_GetAlwaysMisses(t *testing.T) {
	s := NewNullStore()
	entry, hit, err := s.Get(context.Background(), "fp-1")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Nil(t, entry)
}

func TestNullStore_PutIsANoop(t *testing.T) {
	s := NewNullStore()
	require.NoError(t, s.Put(context.Background(), Entry{Key: "fp-1", Output: "x"}))

	_, hit, err := s.Get(context.Background(), "fp-1")
	require.NoError(t, err)
	assert.False(t, hit, "a stored entry must never be observable through NullStore")
}

func TestNullStore_CloseIsANoop(t *testing.T) {
	assert.NoError(t, NewNullStore().Close())
}

func TestCoordinator_WithNullStore_AlwaysRecomputes(t *testing.T) {
	c := NewCoordinator(NewNullStore())
	calls := 0
	compute := func(context.Context) (interface{}, error) {
		calls++
		return calls, nil
	}

	first, hit, computed, err := c.GetOrCompute(context.Background(), "fp-1", nil, compute)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.True(t, computed)
	second, hit, computed, err := c.GetOrCompute(context.Background(), "fp-1", nil, compute)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.True(t, computed)

	assert.Equal(t, 1, first)
	assert.Equal(t, 2, second)
}
