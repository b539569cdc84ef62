// Package cache хранит готовые представления дашборда в Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xela07ax/cintia-dashboard/internal/domain"
	"github.com/xela07ax/cintia-dashboard/internal/infra"
)

// ViewCache: кэш представлений по ключу (версия данных + выборка).
type ViewCache interface {
	Get(ctx context.Context, key string) (domain.DashboardView, bool, error)
	Set(ctx context.Context, key string, view domain.DashboardView) error
}

// NopCache используется, когда Redis выключен: всегда промах.
type NopCache struct{}

func (NopCache) Get(context.Context, string) (domain.DashboardView, bool, error) {
	return domain.DashboardView{}, false, nil
}

func (NopCache) Set(context.Context, string, domain.DashboardView) error { return nil }

// KV: подмножество команд redis.Client, которые нужны кэшу.
type KV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
}

type RedisCache struct {
	rdb    KV
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisCache(rdb KV, ttl time.Duration, logger *zap.Logger) *RedisCache {
	return &RedisCache{
		rdb:    rdb,
		ttl:    ttl,
		logger: logger.Named("view-cache"),
	}
}

func (c *RedisCache) Get(ctx context.Context, key string) (domain.DashboardView, bool, error) {
	var view domain.DashboardView

	raw, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return view, false, nil
	}
	if err != nil {
		return view, false, fmt.Errorf("redis get %s: %w", key, err)
	}

	if err := json.Unmarshal(raw, &view); err != nil {
		// Битая запись: считаем промахом, ее перезапишет следующий Set
		c.logger.Warn("corrupted cache entry", zap.String("key", key), zap.Error(err))
		return view, false, nil
	}
	return view, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, view domain.DashboardView) error {
	raw, err := json.Marshal(view)
	if err != nil {
		return fmt.Errorf("marshal view: %w", err)
	}
	if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Warmup прогревает кэш представлением без фильтров для новой версии данных.
// Распределенная блокировка (SetNX) гарантирует, что прогревает только один инстанс.
func (c *RedisCache) Warmup(ctx context.Context, version string, build func() domain.DashboardView) error {
	ok, err := c.rdb.SetNX(ctx, infra.GetWarmupLockKey(version), "processing", 30*time.Second).Result()
	if err != nil || !ok {
		return nil // Либо ошибка сети, либо другой уже греет кэш
	}

	key := infra.ViewCacheKey(version, domain.Selection{}.Key())
	n, err := c.rdb.Exists(ctx, key).Result()
	if err != nil {
		c.logger.Warn("could not check cache key, proceeding with warm-up",
			zap.String("key", key), zap.Error(err))
		n = 0
	}
	if n > 0 {
		return nil
	}

	c.logger.Info("warming up view cache", zap.String("version", version))
	return c.Set(ctx, key, build())
}
