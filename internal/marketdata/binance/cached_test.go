package binance

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"investai/internal/model"
)

type countingFetcher struct {
	calls int
	bars  []model.Kline
	err   error
}

func (f *countingFetcher) FetchKlines(ctx context.Context, symbol, interval string, limit int) ([]model.Kline, error) {
	f.calls++
	return f.bars, f.err
}

type memCache struct {
	data    map[string][]model.Kline
	failGet bool
	failSet bool
}

func newMemCache() *memCache { return &memCache{data: map[string][]model.Kline{}} }

func (c *memCache) key(symbol, interval string, limit int) string {
	return fmt.Sprintf("%s|%s|%d", symbol, interval, limit)
}

func (c *memCache) Get(ctx context.Context, symbol, interval string, limit int) ([]model.Kline, bool, error) {
	if c.failGet {
		return nil, false, errors.New("redis down")
	}
	b, ok := c.data[c.key(symbol, interval, limit)]
	return b, ok, nil
}

func (c *memCache) Set(ctx context.Context, symbol, interval string, limit int, bars []model.Kline) error {
	if c.failSet {
		return errors.New("redis down")
	}
	c.data[c.key(symbol, interval, limit)] = bars
	return nil
}

func TestCachedFetcher_HitAfterMiss(t *testing.T) {
	next := &countingFetcher{bars: []model.Kline{{Symbol: "BTCUSDT", Close: 1}}}
	f := NewCachedFetcher(next, newMemCache(), nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		bars, err := f.FetchKlines(ctx, "BTCUSDT", "1h", 100)
		if err != nil || len(bars) != 1 {
			t.Fatalf("fetch %d: %v %v", i, bars, err)
		}
	}
	if next.calls != 1 {
		t.Errorf("expected 1 upstream call, got %d", next.calls)
	}
}

func TestCachedFetcher_CacheFailureFallsThrough(t *testing.T) {
	next := &countingFetcher{bars: []model.Kline{{Close: 1}}}
	cache := newMemCache()
	cache.failGet, cache.failSet = true, true
	f := NewCachedFetcher(next, cache, nil)

	for i := 0; i < 2; i++ {
		if _, err := f.FetchKlines(context.Background(), "BTCUSDT", "1h", 100); err != nil {
			t.Fatalf("cache errors must not surface: %v", err)
		}
	}
	if next.calls != 2 {
		t.Errorf("expected every call upstream, got %d", next.calls)
	}
}

func TestCachedFetcher_UpstreamErrorNotCached(t *testing.T) {
	next := &countingFetcher{err: model.ErrUpstreamUnavailable}
	cache := newMemCache()
	f := NewCachedFetcher(next, cache, nil)

	_, err := f.FetchKlines(context.Background(), "BTCUSDT", "1h", 100)
	if !errors.Is(err, model.ErrUpstreamUnavailable) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if len(cache.data) != 0 {
		t.Error("failed fetch must not be cached")
	}
}
