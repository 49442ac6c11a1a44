// Package cache keeps short-lived copies of expensive read models in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/estatehub/internal/models"
	"github.com/redis/go-redis/v9"
)

const metricsKeyPrefix = "estatehub:metrics:tenant:"

// MetricsCache stores tenant metrics snapshots as JSON with a TTL.
type MetricsCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewMetricsCache(client *redis.Client, ttl time.Duration) *MetricsCache {
	return &MetricsCache{client: client, ttl: ttl}
}

// Connect parses a redis:// URL and pings the server.
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func metricsKey(tenantID uuid.UUID) string {
	return metricsKeyPrefix + tenantID.String()
}

// Get returns the cached snapshot, or nil on a miss.
func (c *MetricsCache) Get(ctx context.Context, tenantID uuid.UUID) (*models.TenantMetrics, error) {
	raw, err := c.client.Get(ctx, metricsKey(tenantID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cached metrics: %w", err)
	}

	var m models.TenantMetrics
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode cached metrics: %w", err)
	}
	return &m, nil
}

func (c *MetricsCache) Set(ctx context.Context, m *models.TenantMetrics) error {
	raw, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode metrics: %w", err)
	}
	if err := c.client.Set(ctx, metricsKey(m.TenantID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache metrics: %w", err)
	}
	return nil
}
