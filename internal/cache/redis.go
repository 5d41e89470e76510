// Package cache is Warbler's Redis layer: the shared client, JSON cache-aside
// helpers and the key inventory.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"warbler/internal/middleware"
	"warbler/internal/observability"

	"github.com/redis/go-redis/v9"
)

const pingTimeout = 3 * time.Second

var client *redis.Client

// Options turns REDIS_URL into client options. Both redis://host:port/db
// URLs and bare host:port addresses are accepted.
func Options(url string) (*redis.Options, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, errors.New("empty redis address")
	}
	if !strings.Contains(url, "://") {
		return &redis.Options{Addr: url}, nil
	}
	return redis.ParseURL(url)
}

// Connect dials Redis and checks it answers PING.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := Options(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	rdb := redis.NewClient(opts)
	rdb.AddHook(errorCounter{})

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", opts.Addr, err)
	}
	return rdb, nil
}

// InitRedis connects and installs the shared client. Redis is optional, so a
// failure is logged and leaves caching off.
func InitRedis(ctx context.Context, url string) *redis.Client {
	rdb, err := Connect(ctx, url)
	if err != nil {
		middleware.Logger.Warn("redis unavailable, running without cache", slog.String("error", err.Error()))
	} else {
		middleware.Logger.Info("redis connected", slog.String("addr", rdb.Options().Addr))
	}
	client = rdb
	return rdb
}

// SetClient installs rdb as the shared client. nil turns caching off.
func SetClient(rdb *redis.Client) {
	if rdb != nil {
		rdb.AddHook(errorCounter{})
	}
	client = rdb
}

// GetClient returns the shared client, nil when caching is off.
func GetClient() *redis.Client {
	return client
}

// errorCounter feeds failed commands into the redis error metric. Cache
// misses are not failures.
type errorCounter struct{}

func (errorCounter) DialHook(next redis.DialHook) redis.DialHook { return next }

func (errorCounter) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		countFailure(cmd.Name(), err)
		return err
	}
}

func (errorCounter) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := next(ctx, cmds)
		countFailure("pipeline", err)
		return err
	}
}

func countFailure(command string, err error) {
	if err != nil && !errors.Is(err, redis.Nil) {
		observability.RedisErrors.WithLabelValues(command).Inc()
	}
}
