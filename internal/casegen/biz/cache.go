package biz

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/kart-io/logger"
	goredis "github.com/redis/go-redis/v9"

	"github.com/kart-io/casegen/internal/casegen/model"
	"github.com/kart-io/casegen/pkg/utils/json"
)

// ResultCacheConfig 生成结果缓存配置。
type ResultCacheConfig struct {
	// TTL 缓存过期时间。
	TTL time.Duration
	// KeyPrefix 缓存键前缀。
	KeyPrefix string
}

// ResultCache 生成结果缓存，仅缓存 success 结果。nil 表示未启用。
type ResultCache struct {
	redis  goredis.UniversalClient
	config *ResultCacheConfig
}

// NewResultCache 创建结果缓存实例。
func NewResultCache(redis goredis.UniversalClient, config *ResultCacheConfig) *ResultCache {
	if config == nil {
		config = &ResultCacheConfig{TTL: time.Hour, KeyPrefix: "casegen:result:"}
	}
	return &ResultCache{redis: redis, config: config}
}

// CacheKey 基于问题与上下文生成缓存键（SHA256）。
func (c *ResultCache) CacheKey(query, contextText string) string {
	hash := sha256.Sum256([]byte(query + "\x00" + contextText))
	return c.config.KeyPrefix + hex.EncodeToString(hash[:])
}

// Get 读取缓存结果，未命中或出错时返回 false。
func (c *ResultCache) Get(ctx context.Context, query, contextText string) (*model.GenerationResult, bool) {
	if c == nil || c.redis == nil {
		return nil, false
	}

	cacheKey := c.CacheKey(query, contextText)
	data, err := c.redis.Get(ctx, cacheKey).Bytes()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			logger.Warnw("failed to get from cache", "error", err.Error(), "key", cacheKey)
		}
		return nil, false
	}

	var result model.GenerationResult
	if err := json.Unmarshal(data, &result); err != nil || !result.IsSuccess() {
		logger.Warnw("dropping corrupt cache entry", "key", cacheKey)
		_ = c.redis.Del(ctx, cacheKey).Err()
		return nil, false
	}

	logger.Debugw("cache hit", "key", cacheKey, "use_cases", len(result.UseCases))
	return &result, true
}

// Set 写入 success 结果，其他结果直接忽略。
func (c *ResultCache) Set(ctx context.Context, query, contextText string, result *model.GenerationResult) error {
	if c == nil || c.redis == nil || !result.IsSuccess() {
		return nil
	}

	cacheKey := c.CacheKey(query, contextText)
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}

	if err := c.redis.Set(ctx, cacheKey, data, c.config.TTL).Err(); err != nil {
		logger.Warnw("failed to set cache", "error", err.Error(), "key", cacheKey)
		return err
	}
	return nil
}

// Clear 删除所有带前缀的缓存键，返回删除数量。
func (c *ResultCache) Clear(ctx context.Context) (int, error) {
	if c == nil || c.redis == nil {
		return 0, nil
	}

	iter := c.redis.Scan(ctx, 0, c.config.KeyPrefix+"*", 0).Iterator()
	deleted := 0
	for iter.Next(ctx) {
		if err := c.redis.Del(ctx, iter.Val()).Err(); err != nil {
			logger.Warnw("failed to delete cache key", "error", err.Error(), "key", iter.Val())
			continue
		}
		deleted++
	}
	if err := iter.Err(); err != nil {
		return deleted, err
	}
	return deleted, nil
}
