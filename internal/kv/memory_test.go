package kv

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_RoundTrip(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	_, ok, err := m.Get(ctx, KeyCart)
	require.NoError(t, err)
	assert.False(t, ok, "unset key reports absent")

	require.NoError(t, m.Set(ctx, KeyCart, `[{"line_id":"l1"}]`))
	v, ok, err := m.Get(ctx, KeyCart)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `[{"line_id":"l1"}]`, v)

	require.NoError(t, m.Set(ctx, KeyCart, `[]`))
	v, _, _ = m.Get(ctx, KeyCart)
	assert.Equal(t, `[]`, v, "set overwrites")

	require.NoError(t, m.Remove(ctx, KeyCart))
	_, ok, err = m.Get(ctx, KeyCart)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemory_RemoveMissingKey(t *testing.T) {
	m := NewMemory()
	assert.NoError(t, m.Remove(context.Background(), "never-set"))
}

func TestMemory_Ping(t *testing.T) {
	assert.NoError(t, NewMemory().Ping(context.Background()))
}
