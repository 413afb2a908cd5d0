// Package cache implements ports.Cache on Redis, guarded by a circuit breaker.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jsamuelsen/quotebook/internal/domain"
	"github.com/jsamuelsen/quotebook/internal/platform/config"
	"github.com/jsamuelsen/quotebook/internal/ports"
)

const (
	checkerName = "quote-cache"
	resource    = "quote cache"
	scanCount   = 100
)

// client is the subset of *redis.Client the cache uses.
type client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
	Ping(ctx context.Context) *redis.StatusCmd
	Close() error
}

// Redis is a Redis-backed ports.Cache. Every key is namespaced with a
// prefix so Clear only removes keys this cache owns.
type Redis struct {
	client  client
	prefix  string
	breaker *Breaker
	logger  *slog.Logger
}

var (
	_ ports.Cache         = (*Redis)(nil)
	_ ports.HealthChecker = (*Redis)(nil)
)

// New connects a Redis cache from configuration. The connection is lazy;
// use Check to verify reachability.
func New(cfg *config.CacheConfig, logger *slog.Logger) *Redis {
	rc := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
	})

	var breaker *Breaker
	if cfg.CircuitBreaker.Enabled {
		breaker = NewBreaker(BreakerConfig{
			MaxFailures:   cfg.CircuitBreaker.MaxFailures,
			Timeout:       cfg.CircuitBreaker.Timeout,
			HalfOpenLimit: cfg.CircuitBreaker.HalfOpenLimit,
		})
	}

	return newRedis(rc, cfg.KeyPrefix, breaker, logger)
}

func newRedis(c client, prefix string, breaker *Breaker, logger *slog.Logger) *Redis {
	if logger == nil {
		logger = slog.Default()
	}

	logger = logger.With(slog.String("component", "cache.Redis"))

	if breaker != nil {
		breaker.OnStateChange(func(from, to State) {
			logger.Warn("cache circuit breaker state changed",
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		})
	}

	return &Redis{
		client:  c,
		prefix:  prefix,
		breaker: breaker,
		logger:  logger,
	}
}

// Get implements ports.Cache.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte

	err := r.guard("get", func() error {
		b, err := r.client.Get(ctx, r.key(key)).Bytes()
		value = b

		return err
	})

	if errors.Is(err, redis.Nil) {
		return nil, domain.NewNotFoundError("cache entry", key)
	}

	if err != nil {
		return nil, err
	}

	return value, nil
}

// Set implements ports.Cache.
func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.guard("set", func() error {
		return r.client.Set(ctx, r.key(key), value, ttl).Err()
	})
}

// Delete implements ports.Cache.
func (r *Redis) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = r.key(k)
	}

	return r.guard("delete", func() error {
		return r.client.Del(ctx, prefixed...).Err()
	})
}

// Clear implements ports.Cache by scanning for the prefix and deleting
// matches in batches.
func (r *Redis) Clear(ctx context.Context) error {
	return r.guard("clear", func() error {
		var cursor uint64

		for {
			keys, next, err := r.client.Scan(ctx, cursor, r.prefix+"*", scanCount).Result()
			if err != nil {
				return err
			}

			if len(keys) > 0 {
				if err := r.client.Del(ctx, keys...).Err(); err != nil {
					return err
				}
			}

			if next == 0 {
				return nil
			}

			cursor = next
		}
	})
}

// Name implements ports.HealthChecker.
func (r *Redis) Name() string {
	return checkerName
}

// Check implements ports.HealthChecker. It bypasses the breaker so health
// reflects the server, not the breaker.
func (r *Redis) Check(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("pinging redis: %w", err)
	}

	return nil
}

// Close releases the connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}

func (r *Redis) key(k string) string {
	return r.prefix + k
}

// guard runs fn through the breaker and wraps backend errors as
// domain.UnavailableError. A miss is passed through untouched.
func (r *Redis) guard(operation string, fn func() error) error {
	var err error

	if r.breaker == nil {
		err = fn()
	} else {
		err = r.breaker.Do(fn, isBackendFailure)
	}

	if err == nil || errors.Is(err, redis.Nil) {
		return err
	}

	return domain.NewUnavailableError(resource, operation, err)
}

func isBackendFailure(err error) bool {
	return !errors.Is(err, redis.Nil)
}
