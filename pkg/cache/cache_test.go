package cache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yeisme/filehost/pkg/cache"
	"github.com/yeisme/filehost/pkg/internal/storage/kv"
)

type record struct {
	ID   string `json:"id"`
	Size int64  `json:"size"`
}

func newCache(t testing.TB) (*cache.Cache, kv.KVStore) {
	t.Helper()

	store, err := kv.NewKVStore(context.Background(), kv.KVTypeMemory, nil)
	if err != nil {
		t.Fatalf("create kv: %v", err)
	}

	return cache.New(store, "test:record:"), store
}

func TestSetGet(t *testing.T) {
	ctx := context.Background()
	c, store := newCache(t)

	if err := cache.Set(ctx, c, "abc", record{ID: "abc", Size: 3}, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, err := cache.Get[record](ctx, c, "abc")
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if got.ID != "abc" || got.Size != 3 {
		t.Fatalf("got %+v", got)
	}

	if ok, _ := store.Exists(ctx, "test:record:abc"); !ok {
		t.Fatal("key was not namespaced with prefix")
	}
}

func TestMiss(t *testing.T) {
	c, _ := newCache(t)

	if _, err := cache.Get[record](context.Background(), c, "nope"); !errors.Is(err, cache.ErrMiss) {
		t.Fatalf("err = %v, want ErrMiss", err)
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	c, _ := newCache(t)

	_ = cache.Set(ctx, c, "abc", record{ID: "abc"}, 0)

	if err := c.Delete(ctx, "abc"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := cache.Get[record](ctx, c, "abc"); !errors.Is(err, cache.ErrMiss) {
		t.Fatalf("err after delete = %v, want ErrMiss", err)
	}
}

func TestGetOrSet(t *testing.T) {
	ctx := context.Background()
	c, _ := newCache(t)
	calls := 0

	getter := func() (record, error) {
		calls++
		return record{ID: "x", Size: 1}, nil
	}

	for range 3 {
		v, err := cache.GetOrSet(ctx, c, "x", getter, time.Minute)
		if err != nil || v.ID != "x" {
			t.Fatalf("GetOrSet = %+v, %v", v, err)
		}
	}

	if calls != 1 {
		t.Fatalf("getter called %d times, want 1", calls)
	}
}

func TestGetOrSetError(t *testing.T) {
	c, _ := newCache(t)
	boom := errors.New("boom")

	_, err := cache.GetOrSet(context.Background(), c, "y", func() (record, error) { return record{}, boom }, time.Minute)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
}

func TestClearOnlyPrefix(t *testing.T) {
	ctx := context.Background()
	c, store := newCache(t)

	_ = cache.Set(ctx, c, "a", record{ID: "a"}, 0)
	_ = cache.Set(ctx, c, "b", record{ID: "b"}, 0)
	_ = store.Set(ctx, "other:key", []byte("1"), 0)

	if err := c.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}

	keys, _ := store.Keys(ctx, "")
	if len(keys) != 1 || keys[0] != "other:key" {
		t.Fatalf("keys after clear = %v", keys)
	}
}

func BenchmarkCacheSetGet(b *testing.B) {
	ctx := context.Background()
	c, _ := newCache(b)
	v := record{ID: "bench", Size: 1024}

	for b.Loop() {
		_ = cache.Set(ctx, c, "bench", v, time.Minute)
		_, _ = cache.Get[record](ctx, c, "bench")
	}
}
