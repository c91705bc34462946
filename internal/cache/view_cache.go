package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/spec-kit/mitra-marketplace/internal/observability"
)

// Keys of the cached admin views.
const (
	KeyPendingMitra = "pending-mitra"
	KeyAdminStats   = "admin-stats"
	KeyAdminUsers   = "admin-users"
)

// ViewCache stores JSON-encoded view models in Redis. Concurrent misses on the
// same key share one load.
type ViewCache struct {
	client  redis.UniversalClient
	prefix  string
	ttl     time.Duration
	group   singleflight.Group
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewViewCache builds a cache. A nil client disables caching.
func NewViewCache(client redis.UniversalClient, prefix string, ttl time.Duration, logger *zap.Logger, metrics *observability.Metrics) *ViewCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ViewCache{
		client:  client,
		prefix:  prefix,
		ttl:     ttl,
		logger:  logger,
		metrics: metrics,
	}
}

var errStaleView = errors.New("view invalidated during load")

func (c *ViewCache) key(name string) string {
	return c.prefix + name
}

func (c *ViewCache) generationKey(name string) string {
	return c.prefix + name + ":gen"
}

// Invalidate drops the named views and bumps their generation, so a load
// already in flight does not write its result back.
func (c *ViewCache) Invalidate(ctx context.Context, names ...string) error {
	if c == nil || c.client == nil || len(names) == 0 {
		return nil
	}
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, name := range names {
			pipe.Incr(ctx, c.generationKey(name))
			pipe.Del(ctx, c.key(name))
		}
		return nil
	})
	for _, name := range names {
		c.group.Forget(name)
	}
	return err
}

func (c *ViewCache) generation(ctx context.Context, name string) (string, error) {
	gen, err := c.client.Get(ctx, c.generationKey(name)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return gen, err
}

// store writes payload unless the view was invalidated after gen was read.
func (c *ViewCache) store(ctx context.Context, name, gen string, payload []byte) error {
	err := c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, c.generationKey(name)).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != gen {
			return errStaleView
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, c.key(name), payload, c.ttl)
			return nil
		})
		return err
	}, c.generationKey(name))
	if errors.Is(err, redis.TxFailedErr) {
		return errStaleView
	}
	return err
}

// Load returns the cached view for name or computes, stores and returns it.
// Redis failures degrade to calling load directly.
func Load[T any](ctx context.Context, c *ViewCache, name string, load func(context.Context) (T, error)) (T, error) {
	if c == nil || c.client == nil {
		return load(ctx)
	}

	var cached T
	data, err := c.client.Get(ctx, c.key(name)).Bytes()
	switch {
	case err == nil:
		if jsonErr := json.Unmarshal(data, &cached); jsonErr == nil {
			c.metrics.RecordCacheLookup(name, true)
			return cached, nil
		}
		c.logger.Warn("discarding undecodable cached view", zap.String("view", name))
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("view cache read failed", zap.String("view", name), zap.Error(err))
	}
	c.metrics.RecordCacheLookup(name, false)

	v, err, _ := c.group.Do(name, func() (any, error) {
		gen, genErr := c.generation(ctx, name)
		value, err := load(ctx)
		if err != nil {
			return value, err
		}
		if genErr != nil {
			c.logger.Warn("view generation read failed", zap.String("view", name), zap.Error(genErr))
			return value, nil
		}
		payload, err := json.Marshal(value)
		if err != nil {
			return value, nil
		}
		switch err := c.store(ctx, name, gen, payload); {
		case errors.Is(err, errStaleView):
			c.logger.Debug("skipping write of invalidated view", zap.String("view", name))
		case err != nil:
			c.logger.Warn("view cache write failed", zap.String("view", name), zap.Error(err))
		}
		return value, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}
