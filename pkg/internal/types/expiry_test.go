package types_test

import (
	"testing"
	"time"

	"github.com/yeisme/filehost/pkg/internal/types"
)

func TestParseExpiry(t *testing.T) {
	cases := map[string]types.Expiry{
		"":        types.ExpiryForever,
		"  ":      types.ExpiryForever,
		"forever": types.ExpiryForever,
		"1m":      types.ExpiryMinute,
		"1y":      types.ExpiryYear,
	}

	for in, want := range cases {
		got, err := types.ParseExpiry(in)
		if err != nil || got != want {
			t.Errorf("ParseExpiry(%q) = %q, %v; want %q", in, got, err, want)
		}
	}

	for _, in := range []string{"2d", "1M", "never", "60"} {
		if _, err := types.ParseExpiry(in); err == nil {
			t.Errorf("ParseExpiry(%q) expected error", in)
		}
	}
}

func TestDeadline(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	if d := types.ExpiryForever.Deadline(now); d != nil {
		t.Fatalf("forever deadline = %v, want nil", d)
	}

	cases := map[types.Expiry]time.Duration{
		types.ExpiryMinute: time.Minute,
		types.ExpiryHour:   time.Hour,
		types.ExpiryDay:    24 * time.Hour,
		types.ExpiryWeek:   7 * 24 * time.Hour,
		types.ExpiryYear:   365 * 24 * time.Hour,
	}

	for e, d := range cases {
		got := e.Deadline(now)
		if got == nil || !got.Equal(now.Add(d)) {
			t.Errorf("%s deadline = %v, want %v", e, got, now.Add(d))
		}
	}
}
