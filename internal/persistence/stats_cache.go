package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/issue-tracker/internal/domain"
)

const (
	statsCacheKey      = "issues:stats"
	statsGenerationKey = "issues:stats:generation"
)

// StatsCache stores the aggregated issue stats in Redis as JSON. Every
// invalidation bumps a generation counter and Set only writes while the
// generation read by Get is still current.
type StatsCache struct {
	client *redis.Client
	ttl    time.Duration
}

type cachedStats struct {
	Total      int64                          `json:"total"`
	ByStatus   map[domain.IssueStatus]int64   `json:"byStatus"`
	ByPriority map[domain.IssuePriority]int64 `json:"byPriority"`
	BySeverity map[domain.IssueSeverity]int64 `json:"bySeverity"`
}

// NewStatsCache returns a cache bound to client. A zero ttl stores without expiry.
func NewStatsCache(client *redis.Client, ttl time.Duration) *StatsCache {
	return &StatsCache{client: client, ttl: ttl}
}

// Get returns the cached stats and the current generation. The boolean is false on a cache miss.
func (c *StatsCache) Get(ctx context.Context) (*domain.IssueStats, int64, bool, error) {
	var genCmd, statsCmd *redis.StringCmd
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		genCmd = pipe.Get(ctx, statsGenerationKey)
		statsCmd = pipe.Get(ctx, statsCacheKey)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, 0, false, err
	}

	generation, err := readGeneration(genCmd)
	if err != nil {
		return nil, 0, false, err
	}

	raw, err := statsCmd.Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, generation, false, nil
	}
	if err != nil {
		return nil, 0, false, err
	}

	var payload cachedStats
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, 0, false, err
	}

	stats := domain.NewIssueStats()
	stats.Total = payload.Total
	for k, v := range payload.ByStatus {
		stats.ByStatus[k] = v
	}
	for k, v := range payload.ByPriority {
		stats.ByPriority[k] = v
	}
	for k, v := range payload.BySeverity {
		stats.BySeverity[k] = v
	}
	return stats, generation, true, nil
}

// Set stores stats computed under generation. It is a no-op when an
// invalidation happened since that generation was read.
func (c *StatsCache) Set(ctx context.Context, generation int64, stats *domain.IssueStats) error {
	raw, err := json.Marshal(cachedStats{
		Total:      stats.Total,
		ByStatus:   stats.ByStatus,
		ByPriority: stats.ByPriority,
		BySeverity: stats.BySeverity,
	})
	if err != nil {
		return err
	}

	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := readGeneration(tx.Get(ctx, statsGenerationKey))
		if err != nil {
			return err
		}
		if current != generation {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, statsCacheKey, raw, c.ttl)
			return nil
		})
		return err
	}, statsGenerationKey)
	if errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	return err
}

// Invalidate drops the cached stats and advances the generation.
func (c *StatsCache) Invalidate(ctx context.Context) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, statsGenerationKey)
		pipe.Del(ctx, statsCacheKey)
		return nil
	})
	return err
}

func readGeneration(cmd *redis.StringCmd) (int64, error) {
	generation, err := cmd.Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return generation, err
}
