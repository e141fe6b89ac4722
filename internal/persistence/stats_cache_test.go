package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/issue-tracker/internal/domain"
)

func newTestCache(t *testing.T, ttl time.Duration) (*StatsCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewStatsCache(client, ttl), mr
}

func TestStatsCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	cache, mr := newTestCache(t, time.Minute)

	_, generation, hit, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Zero(t, generation)

	stats := domain.NewIssueStats()
	stats.Add(domain.IssueStatusInProgress, domain.IssuePriorityHigh, domain.IssueSeverityCritical, 3)
	require.NoError(t, cache.Set(ctx, generation, stats))
	assert.True(t, mr.Exists(statsCacheKey))

	got, _, hit, err := cache.Get(ctx)
	require.NoError(t, err)
	require.True(t, hit)
	assert.EqualValues(t, 3, got.Total)
	assert.EqualValues(t, 3, got.ByStatus[domain.IssueStatusInProgress])
	assert.EqualValues(t, 0, got.ByStatus[domain.IssueStatusClosed])
	assert.EqualValues(t, 3, got.ByPriority[domain.IssuePriorityHigh])
	assert.EqualValues(t, 3, got.BySeverity[domain.IssueSeverityCritical])

	require.NoError(t, cache.Invalidate(ctx))
	_, generation, hit, err = cache.Get(ctx)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.EqualValues(t, 1, generation)
}

func TestStatsCacheSkipsWriteAfterInvalidate(t *testing.T) {
	ctx := context.Background()
	cache, mr := newTestCache(t, time.Minute)

	_, generation, _, err := cache.Get(ctx)
	require.NoError(t, err)

	// an issue changed between reading the store and writing the cache
	require.NoError(t, cache.Invalidate(ctx))

	stale := domain.NewIssueStats()
	stale.Add(domain.IssueStatusOpen, domain.IssuePriorityLow, domain.IssueSeverityMinor, 1)
	require.NoError(t, cache.Set(ctx, generation, stale))
	assert.False(t, mr.Exists(statsCacheKey))

	_, generation, hit, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.False(t, hit)
	require.NoError(t, cache.Set(ctx, generation, stale))
	assert.True(t, mr.Exists(statsCacheKey))
}

func TestStatsCacheExpires(t *testing.T) {
	ctx := context.Background()
	cache, mr := newTestCache(t, 30*time.Second)

	require.NoError(t, cache.Set(ctx, 0, domain.NewIssueStats()))
	mr.FastForward(31 * time.Second)

	_, _, hit, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestStatsCacheCorruptPayload(t *testing.T) {
	cache, mr := newTestCache(t, time.Minute)
	require.NoError(t, mr.Set(statsCacheKey, "{not json"))

	_, _, hit, err := cache.Get(context.Background())
	assert.Error(t, err)
	assert.False(t, hit)
}
