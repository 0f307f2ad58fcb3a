package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/andresuchdata/gapwatch/internal/config"
	"github.com/redis/go-redis/v9"
)

const (
	reportKeyPrefix = "gapwatch:report"
	scanBatchSize   = 100
	latestKeyPart   = "latest"
)

// ReportCache stores JSON-encoded report views (kpis, changes, plan, cycle) per snapshot date.
type ReportCache interface {
	Get(ctx context.Context, view, date string, dest interface{}) (bool, error)
	Set(ctx context.Context, view, date string, v interface{}) error
	InvalidateAll(ctx context.Context) error
}

type redisReportCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopReportCache struct{}

// NewReportCache returns a Redis-backed cache, or a no-op cache when caching is disabled.
func NewReportCache(cfg config.CacheConfig) (ReportCache, error) {
	if !cfg.Enabled {
		return &noopReportCache{}, nil
	}

	client, err := dialRedis(cfg)
	if err != nil {
		return nil, err
	}

	return &redisReportCache{
		client: client,
		ttl:    reportTTL(cfg),
	}, nil
}

func NewNoopReportCache() ReportCache {
	return &noopReportCache{}
}

func (c *redisReportCache) Get(ctx context.Context, view, date string, dest interface{}) (bool, error) {
	payload, err := c.client.Get(ctx, buildReportKey(view, date)).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get failed: %w", err)
	}

	if err := json.Unmarshal(payload, dest); err != nil {
		return false, fmt.Errorf("decode %s report cache: %w", view, err)
	}
	return true, nil
}

func (c *redisReportCache) Set(ctx context.Context, view, date string, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s report cache: %w", view, err)
	}

	if err := c.client.Set(ctx, buildReportKey(view, date), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// InvalidateAll drops every cached view. A new snapshot changes what "latest" and each
// date's predecessor resolve to, so per-date invalidation is not enough.
func (c *redisReportCache) InvalidateAll(ctx context.Context) error {
	_, err := unlinkPrefix(ctx, c.client, reportKeyPrefix+":", scanBatchSize)
	return err
}

func (n *noopReportCache) Get(ctx context.Context, view, date string, dest interface{}) (bool, error) {
	return false, nil
}

func (n *noopReportCache) Set(ctx context.Context, view, date string, v interface{}) error {
	return nil
}

func (n *noopReportCache) InvalidateAll(ctx context.Context) error {
	return nil
}

func buildReportKey(view, date string) string {
	date = strings.TrimSpace(date)
	if date == "" {
		date = latestKeyPart
	}
	return fmt.Sprintf("%s:%s:%s", reportKeyPrefix, strings.ToLower(view), date)
}
