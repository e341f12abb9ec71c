package kv

import (
	"testing"
	"time"
)

func TestTTLEnvelope(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	raw, err := encodeWithTTL([]byte("payload"), 0, now)
	if err != nil || string(raw) != "payload" {
		t.Fatalf("no-ttl encode = %q, %v", raw, err)
	}

	wrapped, err := encodeWithTTL([]byte("payload"), time.Minute, now)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	v, expired, err := decodeWithTTL(wrapped, now.Add(30*time.Second))
	if err != nil || expired || string(v) != "payload" {
		t.Fatalf("decode before expiry = %q, %v, %v", v, expired, err)
	}

	_, expired, err = decodeWithTTL(wrapped, now.Add(time.Minute))
	if err != nil || !expired {
		t.Fatalf("decode at expiry = %v, %v", expired, err)
	}
}
