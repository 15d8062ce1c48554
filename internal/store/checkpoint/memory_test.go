package checkpoint

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_SaveThenLoad(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	cp := Checkpoint{InstanceID: "i1", CurrentTaskRef: "/do/2", Timestamp: time.Now().UTC()}
	require.NoError(t, s.Save(ctx, cp))

	loaded, err := s.Load(ctx, "i1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "/do/2", loaded.CurrentTaskRef)
}

func TestMemoryStore_SaveOverwritesPreviousCheckpoint(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, Checkpoint{InstanceID: "i1", CurrentTaskRef: "/do/1"}))
	require.NoError(t, s.Save(ctx, Checkpoint{InstanceID: "i1", CurrentTaskRef: "/do/2"}))

	loaded, err := s.Load(ctx, "i1")
	require.NoError(t, err)
	assert.Equal(t, "/do/2", loaded.CurrentTaskRef)
}

func TestMemoryStore_LoadUnknownInstanceReturnsNil(t *testing.T) {
	s := NewMemoryStore()

	loaded, err := s.Load(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}
