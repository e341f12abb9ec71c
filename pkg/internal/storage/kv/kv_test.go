package kv_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/yeisme/filehost/pkg/configs"
	"github.com/yeisme/filehost/pkg/internal/storage/kv"
)

func newRedis(t *testing.T) (kv.KVStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	cfg := &configs.KVConfig{Type: "redis", Redis: configs.RedisKVConfig{Addr: mr.Addr()}}

	store, err := kv.New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("create redis kv: %v", err)
	}

	t.Cleanup(func() { _ = store.Close() })

	return store, mr
}

func exerciseStore(t *testing.T, store kv.KVStore) {
	t.Helper()

	ctx := context.Background()

	if _, err := store.Get(ctx, "filehost:record:missing"); !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("get missing err = %v, want ErrNotFound", err)
	}

	if err := store.Set(ctx, "filehost:record:a", []byte("1"), 0); err != nil {
		t.Fatalf("set: %v", err)
	}

	if err := store.Set(ctx, "filehost:record:b", []byte("2"), time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, err := store.Get(ctx, "filehost:record:a")
	if err != nil || string(got) != "1" {
		t.Fatalf("get = %q, %v", got, err)
	}

	keys, err := store.Keys(ctx, "filehost:record:*")
	if err != nil {
		t.Fatalf("keys: %v", err)
	}

	if len(keys) != 2 {
		t.Fatalf("keys = %v, want 2 entries", keys)
	}

	if err := store.Delete(ctx, "filehost:record:a"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	ok, err := store.Exists(ctx, "filehost:record:a")
	if err != nil || ok {
		t.Fatalf("exists after delete = %v, %v", ok, err)
	}

	if err := store.Delete(ctx, "filehost:record:a"); err != nil {
		t.Fatalf("delete missing: %v", err)
	}
}

func TestMemoryKV(t *testing.T) {
	store, err := kv.NewKVStore(context.Background(), kv.KVTypeMemory, nil)
	if err != nil {
		t.Fatalf("create memory kv: %v", err)
	}

	exerciseStore(t, store)
}

func TestMemoryKVExpiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store := kv.NewMemoryKVWithClock(func() time.Time { return now })
	ctx := context.Background()

	if err := store.Set(ctx, "k", []byte("v"), time.Second); err != nil {
		t.Fatalf("set: %v", err)
	}

	if _, err := store.Get(ctx, "k"); err != nil {
		t.Fatalf("get before expiry: %v", err)
	}

	now = now.Add(time.Second)

	if _, err := store.Get(ctx, "k"); !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("get after expiry err = %v, want ErrNotFound", err)
	}

	keys, _ := store.Keys(ctx, "")
	if len(keys) != 0 {
		t.Fatalf("keys after expiry = %v", keys)
	}
}

func TestRedisKV(t *testing.T) {
	store, _ := newRedis(t)
	exerciseStore(t, store)
}

func TestRedisKVExpiry(t *testing.T) {
	store, mr := newRedis(t)
	ctx := context.Background()

	if err := store.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	if _, err := store.Get(ctx, "k"); !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("get after expiry err = %v, want ErrNotFound", err)
	}
}

func TestUnsupportedType(t *testing.T) {
	if _, err := kv.NewKVStore(context.Background(), "etcd", nil); err == nil {
		t.Fatal("expected error for unsupported type")
	}
}

func BenchmarkMemoryKV(b *testing.B) {
	store, err := kv.NewKVStore(context.Background(), kv.KVTypeMemory, nil)
	if err != nil {
		b.Fatalf("create memory kv: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	payload := make([]byte, 256)

	var ctr uint64

	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			key := fmt.Sprintf("bench-%d", atomic.AddUint64(&ctr, 1))
			if err := store.Set(ctx, key, payload, time.Minute); err != nil {
				b.Fatalf("set failed: %v", err)
			}

			if _, err := store.Get(ctx, key); err != nil {
				b.Fatalf("get failed: %v", err)
			}

			_ = store.Delete(ctx, key)
		}
	})
}
