package cache

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/andresuchdata/gapwatch/internal/config"
	"github.com/redis/go-redis/v9"
)

const (
	defaultReportTTL = 5 * time.Minute
	pingTimeout      = 5 * time.Second
)

// dialRedis connects and pings; the client is closed again when the ping fails.
func dialRedis(cfg config.CacheConfig) (*redis.Client, error) {
	opts, err := redisOptions(cfg)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}
	return client, nil
}

func reportTTL(cfg config.CacheConfig) time.Duration {
	if cfg.ReportTTLSeconds <= 0 {
		return defaultReportTTL
	}
	return time.Duration(cfg.ReportTTLSeconds) * time.Second
}

// redisOptions prefers REDIS_URL and falls back to host, port and db.
func redisOptions(cfg config.CacheConfig) (*redis.Options, error) {
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		return opts, nil
	}

	host, port := cfg.RedisHost, cfg.RedisPort
	if host == "" {
		host = "127.0.0.1"
	}
	if port == "" {
		port = "6379"
	}
	return &redis.Options{
		Addr:     net.JoinHostPort(host, port),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, nil
}

// unlinkPrefix removes every key under prefix, unlinking one scan page at a time.
func unlinkPrefix(ctx context.Context, client *redis.Client, prefix string, pageSize int64) (int, error) {
	removed := 0
	batch := make([]string, 0, pageSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := client.Unlink(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("redis unlink failed: %w", err)
		}
		removed += len(batch)
		batch = batch[:0]
		return nil
	}

	iter := client.Scan(ctx, 0, prefix+"*", pageSize).Iterator()
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if int64(len(batch)) >= pageSize {
			if err := flush(); err != nil {
				return removed, err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("redis scan failed: %w", err)
	}
	return removed, flush()
}
