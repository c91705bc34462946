package persistence

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/mitra-marketplace/internal/config"
)

const (
	scanBatch = 200
	// generationSuffix marks view generation counters, which are not views.
	generationSuffix = ":gen"
)

// Redis holds the client shared by the session store and the view cache.
// Keyspaces name the key prefixes reported by readiness.
type Redis struct {
	Client    *redis.Client
	keyspaces map[string]string
}

// NewRedis connects to Redis. An unreachable server is logged, not fatal:
// sessions and cached views fail per request until it comes back.
func NewRedis(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger, keyspaces map[string]string) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("unable to reach redis; sessions and cached views unavailable",
			zap.String("addr", cfg.Addr), zap.Error(err))
	} else {
		logger.Info("connected to redis", zap.String("addr", cfg.Addr), zap.Int("db", cfg.DB))
	}

	return &Redis{Client: client, keyspaces: keyspaces}
}

// Close closes the client.
func (r *Redis) Close() {
	if r != nil && r.Client != nil {
		_ = r.Client.Close()
	}
}

// Ping verifies Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return errors.New("redis client not configured")
	}
	return r.Client.Ping(ctx).Err()
}

// Report counts the keys under each keyspace, e.g. live sessions and cached views.
func (r *Redis) Report(ctx context.Context) (map[string]any, error) {
	if r == nil || r.Client == nil {
		return nil, errors.New("redis client not configured")
	}
	names := make([]string, 0, len(r.keyspaces))
	for name := range r.keyspaces {
		names = append(names, name)
	}
	sort.Strings(names)

	report := make(map[string]any, len(names))
	for _, name := range names {
		count, err := r.countKeys(ctx, r.keyspaces[name])
		if err != nil {
			return nil, err
		}
		report[name] = count
	}
	return report, nil
}

func (r *Redis) countKeys(ctx context.Context, prefix string) (int, error) {
	var (
		cursor uint64
		count  int
	)
	for {
		keys, next, err := r.Client.Scan(ctx, cursor, prefix+"*", scanBatch).Result()
		if err != nil {
			return 0, err
		}
		for _, key := range keys {
			if !strings.HasSuffix(key, generationSuffix) {
				count++
			}
		}
		if next == 0 {
			return count, nil
		}
		cursor = next
	}
}
