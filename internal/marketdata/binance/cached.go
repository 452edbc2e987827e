package binance

import (
	"context"

	"investai/internal/logger"
	"investai/internal/metrics"
	"investai/internal/model"
)

// KlineCache is the storage behind CachedFetcher.
// Implemented by redis.KlineCache.
type KlineCache interface {
	Get(ctx context.Context, symbol, interval string, limit int) ([]model.Kline, bool, error)
	Set(ctx context.Context, symbol, interval string, limit int, bars []model.Kline) error
}

// CachedFetcher serves recent fetches from a cache. Cache errors are logged
// and bypassed; only upstream errors reach the caller.
type CachedFetcher struct {
	next    model.KlineFetcher
	cache   KlineCache
	metrics *metrics.Metrics
}

// NewCachedFetcher wraps next. m may be nil.
func NewCachedFetcher(next model.KlineFetcher, cache KlineCache, m *metrics.Metrics) *CachedFetcher {
	return &CachedFetcher{next: next, cache: cache, metrics: m}
}

func (f *CachedFetcher) FetchKlines(ctx context.Context, symbol, interval string, limit int) ([]model.Kline, error) {
	log := logger.FromContext(ctx)

	bars, ok, err := f.cache.Get(ctx, symbol, interval, limit)
	switch {
	case err != nil:
		log.Warn("kline cache unavailable", "symbol", symbol, "error", err)
	case ok:
		if f.metrics != nil {
			f.metrics.CacheHits.Inc()
		}
		return bars, nil
	}
	if f.metrics != nil {
		f.metrics.CacheMisses.Inc()
	}

	bars, err = f.next.FetchKlines(ctx, symbol, interval, limit)
	if err != nil {
		return nil, err
	}
	if err := f.cache.Set(ctx, symbol, interval, limit, bars); err != nil {
		log.Warn("kline cache write failed", "symbol", symbol, "error", err)
	}
	return bars, nil
}
