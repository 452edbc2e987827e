package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"investai/internal/model"
)

// KlineCache stores fetched bars as a JSON array under a short TTL.
type KlineCache struct {
	client *Client
	ttl    time.Duration
}

// NewKlineCache returns a cache writing entries with the given TTL.
func NewKlineCache(client *Client, ttl time.Duration) *KlineCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &KlineCache{client: client, ttl: ttl}
}

// KlineKey is the cache key for one fetch request.
func KlineKey(symbol, interval string, limit int) string {
	return fmt.Sprintf("klines:%s:%s:%d", strings.ToUpper(symbol), interval, limit)
}

// Get returns cached bars. ok is false on a miss.
func (c *KlineCache) Get(ctx context.Context, symbol, interval string, limit int) (bars []model.Kline, ok bool, err error) {
	var raw []byte
	miss, err := c.client.do(ctx, func() error {
		var e error
		raw, e = c.client.rdb.Get(ctx, KlineKey(symbol, interval, limit)).Bytes()
		return e
	})
	if err != nil {
		return nil, false, fmt.Errorf("kline cache get: %w", err)
	}
	if miss {
		return nil, false, nil
	}
	if err := json.Unmarshal(raw, &bars); err != nil {
		return nil, false, fmt.Errorf("kline cache decode: %w", err)
	}
	return bars, true, nil
}

// Set stores bars under the request key.
func (c *KlineCache) Set(ctx context.Context, symbol, interval string, limit int, bars []model.Kline) error {
	raw, err := json.Marshal(bars)
	if err != nil {
		return fmt.Errorf("kline cache encode: %w", err)
	}
	_, err = c.client.do(ctx, func() error {
		return c.client.rdb.Set(ctx, KlineKey(symbol, interval, limit), raw, c.ttl).Err()
	})
	if err != nil {
		return fmt.Errorf("kline cache set: %w", err)
	}
	return nil
}
