package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/lostfound-api/pkg/errors"
)

func newCache(t *testing.T) (*CacheRepository, *miniredis.Miniredis) {
	t.Helper()
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCacheRepository(client), server
}

func TestCacheRepositorySetGet(t *testing.T) {
	repo, server := newCache(t)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "stats:admin", map[string]int{"items": 3}, time.Minute))

	var out map[string]int
	require.NoError(t, repo.Get(ctx, "stats:admin", &out))
	assert.Equal(t, 3, out["items"])

	server.FastForward(2 * time.Minute)
	assert.ErrorIs(t, repo.Get(ctx, "stats:admin", &out), appErrors.ErrCacheMiss)
}

func TestCacheRepositoryMiss(t *testing.T) {
	repo, _ := newCache(t)
	var out map[string]int
	assert.ErrorIs(t, repo.Get(context.Background(), "missing", &out), appErrors.ErrCacheMiss)
}

func TestCacheRepositoryDeleteByPattern(t *testing.T) {
	repo, server := newCache(t)
	ctx := context.Background()

	for i := 0; i < 250; i++ {
		require.NoError(t, repo.Set(ctx, fmt.Sprintf("stats:%d", i), i, time.Minute))
	}
	require.NoError(t, repo.Set(ctx, "other", 1, time.Minute))

	require.NoError(t, repo.DeleteByPattern(ctx, "stats:*"))
	assert.Equal(t, []string{"other"}, server.Keys())
}

func TestCacheRepositoryNilClient(t *testing.T) {
	repo := NewCacheRepository(nil)
	ctx := context.Background()
	var out int
	assert.ErrorIs(t, repo.Get(ctx, "k", &out), appErrors.ErrCacheMiss)
	assert.NoError(t, repo.Set(ctx, "k", 1, time.Minute))
	assert.NoError(t, repo.DeleteByPattern(ctx, "*"))
}
