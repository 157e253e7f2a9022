package cache

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestCache(t *testing.T) (*CatalogCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewCatalogCache(client, time.Minute, slog.Default()), mr
}

type listing struct {
	Names []string `json:"names"`
	Total int      `json:"total"`
}

func TestKey_StableAndNamespaced(t *testing.T) {
	type filter struct {
		Keyword string
		Page    int
	}

	k1 := Key(filter{Keyword: "phone", Page: 1})
	k2 := Key(filter{Keyword: "phone", Page: 1})
	k3 := Key(filter{Keyword: "phone", Page: 2})

	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, k3)
	assert.True(t, strings.HasPrefix(k1, keyPrefix))
}

func TestSetAndGet(t *testing.T) {
	c, _ := setupTestCache(t)
	ctx := context.Background()

	want := listing{Names: []string{"a", "b"}, Total: 2}
	key := Key("some-filter")

	require.NoError(t, c.Set(ctx, key, want))

	var got listing
	hit, err := c.Get(ctx, key, &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, want, got)
}

func TestGet_Miss(t *testing.T) {
	c, _ := setupTestCache(t)

	var got listing
	hit, err := c.Get(context.Background(), Key("absent"), &got)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestGet_AfterTTLExpiry(t *testing.T) {
	c, mr := setupTestCache(t)
	ctx := context.Background()

	key := Key("expiring")
	require.NoError(t, c.Set(ctx, key, listing{Total: 1}))

	mr.FastForward(2 * time.Minute)

	var got listing
	hit, err := c.Get(ctx, key, &got)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestInvalidateAll(t *testing.T) {
	c, _ := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, Key("f1"), listing{Total: 1}))
	require.NoError(t, c.Set(ctx, Key("f2"), listing{Total: 2}))

	require.NoError(t, c.InvalidateAll(ctx))

	var got listing
	hit, err := c.Get(ctx, Key("f1"), &got)
	require.NoError(t, err)
	assert.False(t, hit)

	hit, err = c.Get(ctx, Key("f2"), &got)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestInvalidateAll_LeavesForeignKeysAlone(t *testing.T) {
	c, mr := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, mr.Set("session:abc", "keep-me"))
	require.NoError(t, c.Set(ctx, Key("f1"), listing{Total: 1}))

	require.NoError(t, c.InvalidateAll(ctx))

	val, err := mr.Get("session:abc")
	require.NoError(t, err)
	assert.Equal(t, "keep-me", val)
}
