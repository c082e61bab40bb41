package jwt

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/keysmith/internal/cache"
)

func TestJWKSCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := NewJWKSCache(cache.NewMemory(""), time.Minute)

	_, ok := c.Get(ctx)
	require.False(t, ok, "cache vacío es miss")

	doc := json.RawMessage(`{"keys":[]}`)
	c.Set(ctx, doc)

	got, ok := c.Get(ctx)
	require.True(t, ok)
	require.JSONEq(t, string(doc), string(got))
}

func TestJWKSCacheInvalidate(t *testing.T) {
	ctx := context.Background()
	c := NewJWKSCache(cache.NewMemory(""), time.Minute)

	// Invalidar sin entrada reporta removed=false: el caller decide si eso
	// es fallo (el mutador lo cuenta como error de invalidación).
	removed, err := c.Invalidate(ctx)
	require.NoError(t, err)
	require.False(t, removed)

	c.Set(ctx, json.RawMessage(`{"keys":[]}`))
	removed, err = c.Invalidate(ctx)
	require.NoError(t, err)
	require.True(t, removed)

	_, ok := c.Get(ctx)
	require.False(t, ok, "tras invalidar no hay valor")
}
