package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/xiebiao/pubflow/internal/domain/isbncert"
	apperrors "github.com/xiebiao/pubflow/pkg/errors"
)

const statisticsKey = "pubflow:isbn_certificates:statistics"

// StatisticsCache keeps the certificate statistics snapshot as JSON.
type StatisticsCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStatisticsCache(client *redis.Client, ttl time.Duration) *StatisticsCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &StatisticsCache{client: client, ttl: ttl}
}

// Get returns (nil, nil) on a miss.
func (c *StatisticsCache) Get(ctx context.Context) (*isbncert.Statistics, error) {
	raw, err := c.client.Get(ctx, statisticsKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.ErrRedisError.WithCause(err)
	}

	var stats isbncert.Statistics
	if err := json.Unmarshal(raw, &stats); err != nil {
		// A corrupt entry behaves like a miss and is overwritten on the next Set.
		return nil, nil
	}
	return &stats, nil
}

func (c *StatisticsCache) Set(ctx context.Context, stats *isbncert.Statistics) error {
	raw, err := json.Marshal(stats)
	if err != nil {
		return apperrors.Wrap(err, "encode statistics failed")
	}
	if err := c.client.Set(ctx, statisticsKey, raw, c.ttl).Err(); err != nil {
		return apperrors.ErrRedisError.WithCause(err)
	}
	return nil
}

// Invalidate drops the snapshot after a certificate changes status.
func (c *StatisticsCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, statisticsKey).Err(); err != nil {
		return apperrors.ErrRedisError.WithCause(err)
	}
	return nil
}
