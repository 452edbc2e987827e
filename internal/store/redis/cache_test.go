package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"investai/internal/model"
)

// unreachable points at a closed local port so every call fails fast.
func unreachable(maxFailures int) *Client {
	return NewClient(Config{Addr: "127.0.0.1:1", MaxFailures: maxFailures, Cooldown: time.Minute})
}

// live starts an in-process Redis and a client pointed at it.
func live(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := NewClient(Config{Addr: mr.Addr(), MaxFailures: 5, Cooldown: time.Minute})
	t.Cleanup(func() { c.Close() })
	return c, mr
}

func TestKlineKey(t *testing.T) {
	got := KlineKey("btcusdt", "1h", 100)
	if got != "klines:BTCUSDT:1h:100" {
		t.Errorf("unexpected key %q", got)
	}
}

func TestKlineCache_UnreachableTripsBreaker(t *testing.T) {
	c := unreachable(2)
	defer c.Close()
	cache := NewKlineCache(c, time.Second)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, ok, err := cache.Get(ctx, "BTCUSDT", "1h", 100); err == nil || ok {
			t.Fatalf("call %d: expected error, got ok=%v err=%v", i, ok, err)
		}
	}
	if c.Breaker().CurrentState() != StateOpen {
		t.Fatalf("expected breaker open, got %v", c.Breaker().CurrentState())
	}

	err := cache.Set(ctx, "BTCUSDT", "1h", 100, []model.Kline{{Symbol: "BTCUSDT", Close: 1}})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen, got %v", err)
	}
}

func TestDenylist_UnreachableReturnsError(t *testing.T) {
	c := unreachable(5)
	defer c.Close()
	d := NewDenylist(c)

	if _, err := d.IsRevoked(context.Background(), "abc"); err == nil {
		t.Fatal("expected error from unreachable redis")
	}
}

func TestDenylist_RevokeExpiredIsNoop(t *testing.T) {
	c := unreachable(1)
	defer c.Close()
	d := NewDenylist(c)

	// No Redis call happens for a token that already expired.
	if err := d.Revoke(context.Background(), "abc", time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if c.Breaker().CurrentState() != StateClosed {
		t.Errorf("expected breaker untouched, got %v", c.Breaker().CurrentState())
	}
}

func TestKlineCache_RoundTripAndTTL(t *testing.T) {
	c, mr := live(t)
	cache := NewKlineCache(c, 30*time.Second)
	ctx := context.Background()

	if _, ok, err := cache.Get(ctx, "BTCUSDT", "1h", 100); err != nil || ok {
		t.Fatalf("expected clean miss, got ok=%v err=%v", ok, err)
	}

	open := time.UnixMilli(1_700_000_000_000).UTC()
	bars := []model.Kline{
		{Symbol: "BTCUSDT", Interval: "1h", OpenTime: open, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10, CloseTime: open.Add(time.Hour - time.Millisecond)},
		{Symbol: "BTCUSDT", Interval: "1h", OpenTime: open.Add(time.Hour), Close: 1.75},
	}
	if err := cache.Set(ctx, "btcusdt", "1h", 100, bars); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, ok, err := cache.Get(ctx, "BTCUSDT", "1h", 100)
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if len(got) != 2 || got[0].Close != 1.5 || got[1].Close != 1.75 || !got[0].OpenTime.Equal(open) {
		t.Errorf("unexpected bars: %+v", got)
	}

	key := KlineKey("BTCUSDT", "1h", 100)
	if ttl := mr.TTL(key); ttl != 30*time.Second {
		t.Errorf("expected 30s TTL, got %v", ttl)
	}
	mr.FastForward(31 * time.Second)
	if _, ok, err := cache.Get(ctx, "BTCUSDT", "1h", 100); err != nil || ok {
		t.Errorf("expected miss after expiry, got ok=%v err=%v", ok, err)
	}
}

func TestKlineCache_CancelledCallsLeaveBreakerClosed(t *testing.T) {
	c, _ := live(t)
	cache := NewKlineCache(c, time.Second)
	d := NewDenylist(c)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for i := 0; i < 5; i++ {
		if _, _, err := cache.Get(ctx, "BTCUSDT", "1h", 100); !errors.Is(err, context.Canceled) {
			t.Fatalf("call %d: expected context.Canceled, got %v", i, err)
		}
	}
	if c.Breaker().CurrentState() != StateClosed {
		t.Fatalf("expected breaker closed, got %v", c.Breaker().CurrentState())
	}
	if _, err := d.IsRevoked(context.Background(), "jti-1"); err != nil {
		t.Errorf("denylist should still work, got %v", err)
	}
}

func TestDenylist_RevokeThenIsRevoked(t *testing.T) {
	c, mr := live(t)
	d := NewDenylist(c)
	ctx := context.Background()

	if revoked, err := d.IsRevoked(ctx, "jti-1"); err != nil || revoked {
		t.Fatalf("expected not revoked, got %v err=%v", revoked, err)
	}
	if err := d.Revoke(ctx, "jti-1", time.Now().Add(10*time.Minute)); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if revoked, err := d.IsRevoked(ctx, "jti-1"); err != nil || !revoked {
		t.Fatalf("expected revoked, got %v err=%v", revoked, err)
	}
	if revoked, _ := d.IsRevoked(ctx, "jti-2"); revoked {
		t.Error("other tokens must not be revoked")
	}

	ttl := mr.TTL(revokedPrefix + "jti-1")
	if ttl <= 9*time.Minute || ttl > 10*time.Minute {
		t.Errorf("expected ~10m TTL, got %v", ttl)
	}
	mr.FastForward(11 * time.Minute)
	if revoked, _ := d.IsRevoked(ctx, "jti-1"); revoked {
		t.Error("revocation should lapse once the token has expired")
	}
}
