// Package cache provides the Redis client shared by the response cache, the
// refresh-token store and the rate limiter.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/locojk/GNG-5300-Group-Backend/internal/observability"
	"github.com/redis/go-redis/v9"
)

type metricsHook struct{}

func (h metricsHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (h metricsHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		if err != nil && !errors.Is(err, redis.Nil) {
			observability.RedisErrors.WithLabelValues(cmd.Name()).Inc()
		}
		return err
	}
}

func (h metricsHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := next(ctx, cmds)
		if err != nil && !errors.Is(err, redis.Nil) {
			observability.RedisErrors.WithLabelValues("pipeline").Inc()
		}
		return err
	}
}

// NewClient builds an instrumented client for addr, which is either a
// redis:// URL or a host:port pair.
func NewClient(addr string) (*redis.Client, error) {
	var opts *redis.Options
	if strings.Contains(addr, "://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			return nil, err
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: addr}
	}

	client := redis.NewClient(opts)
	client.AddHook(metricsHook{})
	return client, nil
}

// Connect returns a verified client, or nil when addr is empty or Redis is
// unreachable. Every consumer treats a nil client as "feature off".
func Connect(ctx context.Context, addr string, logger *slog.Logger) *redis.Client {
	if strings.TrimSpace(addr) == "" {
		logger.Info("redis not configured, continuing without cache")
		return nil
	}

	client, err := NewClient(addr)
	if err != nil {
		logger.Warn("invalid redis url, continuing without cache", slog.String("error", err.Error()))
		return nil
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unreachable, continuing without cache", slog.String("error", err.Error()))
		_ = client.Close()
		return nil
	}
	logger.Info("redis connected")
	return client
}

// JSONCache stores JSON-encoded values under a key prefix.
type JSONCache struct {
	client *redis.Client
	prefix string
}

func NewJSONCache(client *redis.Client, prefix string) *JSONCache {
	return &JSONCache{client: client, prefix: prefix}
}

// Get reports (true, nil) when key was found and decoded into dest, and
// (false, nil) on a miss or when no client is configured.
func (c *JSONCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	if c == nil || c.client == nil {
		return false, nil
	}
	s, err := c.client.Get(ctx, c.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(s), dest); err != nil {
		return false, err
	}
	return true, nil
}

func (c *JSONCache) Set(ctx context.Context, key string, v any, ttl time.Duration) error {
	if c == nil || c.client == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.prefix+key, b, ttl).Err()
}

func (c *JSONCache) Delete(ctx context.Context, key string) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, c.prefix+key).Err()
}
