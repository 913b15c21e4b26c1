package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roadmap-cli/roadmap/internal/storage/memory"
	"github.com/roadmap-cli/roadmap/internal/types"
)

func TestWrapStorageDisabled(t *testing.T) {
	t.Setenv("ROADMAP_OTEL_ENABLED", "")
	inner := memory.New()
	assert.Same(t, inner, WrapStorage(inner))
}

func TestInstrumentedStoragePassesThrough(t *testing.T) {
	require.NoError(t, Init(context.Background(), "roadmap-test", "dev"))
	ctx := context.Background()
	inner := memory.New(&types.Issue{ID: "0000000a", Title: "Alpha", Status: types.StatusTodo})
	s := newInstrumentedStorage(inner)

	issues, err := s.ListIncludingArchived(ctx)
	require.NoError(t, err)
	require.Len(t, issues, 1)

	issues[0].Title = "Alpha edited"
	require.NoError(t, s.Save(ctx, issues[0]))

	got, err := s.Get(ctx, "0000000a")
	require.NoError(t, err)
	assert.Equal(t, "Alpha edited", got.Title)
	assert.Equal(t, 1, inner.Saves())

	_, err = s.Get(ctx, "missing")
	assert.Error(t, err)
}
