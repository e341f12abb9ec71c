// Package cache 提供基于键值存储的泛型缓存，用于缓存文件元数据.
//
// 值以 JSON（bytedance/sonic）编码，键统一加上命名空间前缀.
//
//	records := cache.New(kvStore, "filehost:record:")
//	_ = cache.Set(ctx, records, id, file, time.Minute)
//	f, err := cache.Get[model.File](ctx, records, id)
//	if errors.Is(err, cache.ErrMiss) {
//		// 回源
//	}
//
// 缓存只是加速手段，调用方应把任何错误当作未命中处理.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"

	"github.com/yeisme/filehost/pkg/internal/storage/kv"
)

// ErrMiss 缓存未命中.
var ErrMiss = errors.New("cache: miss")

// Cache 基于 KV 存储的缓存.
type Cache struct {
	kvStore kv.KVStore
	prefix  string
}

// New 创建缓存实例，prefix 作为所有键的前缀.
func New(kvStore kv.KVStore, prefix string) *Cache {
	return &Cache{kvStore: kvStore, prefix: prefix}
}

// Key 返回带前缀的完整键.
func (c *Cache) Key(key string) string {
	return c.prefix + key
}

// Get 泛型获取缓存值.
func Get[T any](ctx context.Context, c *Cache, key string) (T, error) {
	var zero T

	data, err := c.kvStore.Get(ctx, c.Key(key))
	if errors.Is(err, kv.ErrNotFound) {
		return zero, ErrMiss
	}

	if err != nil {
		return zero, err
	}

	var value T
	if err := sonic.Unmarshal(data, &value); err != nil {
		return zero, fmt.Errorf("failed to unmarshal cache value: %w", err)
	}

	return value, nil
}

// Set 泛型设置缓存值，ttl 为 0 表示不过期.
func Set[T any](ctx context.Context, c *Cache, key string, value T, ttl time.Duration) error {
	data, err := sonic.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}

	return c.kvStore.Set(ctx, c.Key(key), data, ttl)
}

// Delete 删除缓存键.
func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.kvStore.Delete(ctx, c.Key(key))
}

// GetOrSet 未命中时通过 getter 回源并写入缓存. 写缓存失败不影响返回值.
func GetOrSet[T any](ctx context.Context, c *Cache, key string, getter func() (T, error), ttl time.Duration) (T, error) {
	if value, err := Get[T](ctx, c, key); err == nil {
		return value, nil
	}

	value, err := getter()
	if err != nil {
		var zero T
		return zero, err
	}

	_ = Set(ctx, c, key, value, ttl)

	return value, nil
}

// Clear 删除当前前缀下的全部键.
func (c *Cache) Clear(ctx context.Context) error {
	keys, err := c.kvStore.Keys(ctx, c.prefix+"*")
	if err != nil {
		return err
	}

	for _, key := range keys {
		if err := c.kvStore.Delete(ctx, key); err != nil {
			return err
		}
	}

	return nil
}
