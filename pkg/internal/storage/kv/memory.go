package kv

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/yeisme/filehost/pkg/configs"
)

type memoryEntry struct {
	value    []byte
	expireAt time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expireAt.IsZero() && !now.Before(e.expireAt)
}

// MemoryKV 进程内 KV 实现，过期键在访问时惰性删除.
type MemoryKV struct {
	mu   sync.RWMutex
	data map[string]memoryEntry
	now  func() time.Time
}

// NewMemoryKV 创建内存 KV 实例.
func NewMemoryKV(_ context.Context, _ *configs.KVConfig) (KVStore, error) {
	return newMemoryKV(time.Now), nil
}

// NewMemoryKVWithClock 使用指定时钟创建内存 KV，便于测试过期逻辑.
func NewMemoryKVWithClock(now func() time.Time) *MemoryKV {
	return newMemoryKV(now)
}

func newMemoryKV(now func() time.Time) *MemoryKV {
	return &MemoryKV{data: make(map[string]memoryEntry), now: now}
}

// Get 获取键的值.
func (m *MemoryKV) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	e, ok := m.data[key]
	m.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}

	if e.expired(m.now()) {
		m.evict(key, e)
		return nil, ErrNotFound
	}

	out := make([]byte, len(e.value))
	copy(out, e.value)

	return out, nil
}

// Set 设置键的值.
func (m *MemoryKV) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	e := memoryEntry{value: make([]byte, len(value))}
	copy(e.value, value)

	if ttl > 0 {
		e.expireAt = m.now().Add(ttl)
	}

	m.mu.Lock()
	m.data[key] = e
	m.mu.Unlock()

	return nil
}

// Delete 删除键.
func (m *MemoryKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()

	return nil
}

// Exists 检查键是否存在.
func (m *MemoryKV) Exists(ctx context.Context, key string) (bool, error) {
	_, err := m.Get(ctx, key)
	if err == ErrNotFound {
		return false, nil
	}

	return err == nil, err
}

// Keys 获取匹配模式的键.
func (m *MemoryKV) Keys(_ context.Context, pattern string) ([]string, error) {
	now := m.now()

	m.mu.RLock()
	keys := make([]string, 0, len(m.data))

	for k, e := range m.data {
		if e.expired(now) || !matchKey(pattern, k) {
			continue
		}

		keys = append(keys, k)
	}
	m.mu.RUnlock()

	sort.Strings(keys)

	return keys, nil
}

// Close 内存实现无需操作.
func (m *MemoryKV) Close() error {
	return nil
}

// evict 仅当条目未被并发覆盖时删除.
func (m *MemoryKV) evict(key string, seen memoryEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if cur, ok := m.data[key]; ok && cur.expireAt.Equal(seen.expireAt) && cur.expired(m.now()) {
		delete(m.data, key)
	}
}

func init() {
	RegisterKVFactory(KVTypeMemory, NewMemoryKV)
}
