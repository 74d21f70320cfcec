package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Set(ctx, "k", []string{"a", "b"}, time.Minute))
	var got []string
	require.NoError(t, m.Get(ctx, "k", &got))
	assert.Equal(t, []string{"a", "b"}, got)

	require.NoError(t, m.Delete(ctx, "k"))
	assert.ErrorIs(t, m.Get(ctx, "k", &got), ErrMiss)
}

func TestMemory_Expires(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	require.NoError(t, m.Set(ctx, "k", 1, time.Minute))
	now = now.Add(2 * time.Minute)

	var v int
	assert.ErrorIs(t, m.Get(ctx, "k", &v), ErrMiss)
}
