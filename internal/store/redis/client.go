// Package redis holds the Redis-backed kline cache and token denylist,
// both guarded by a shared circuit breaker.
package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/go-redis/redis/v8"
)

// Config configures the Redis connection.
type Config struct {
	Addr     string // e.g. "localhost:6379"
	Password string
	DB       int

	// Breaker tuning. Zero values pick 5 failures / 10s.
	MaxFailures int
	Cooldown    time.Duration
}

// Client bundles the go-redis client with the breaker every call goes through.
type Client struct {
	rdb     *goredis.Client
	breaker *CircuitBreaker
}

// Connect creates a client and pings the server.
func Connect(ctx context.Context, cfg Config) (*Client, error) {
	c := NewClient(cfg)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := c.rdb.Ping(pingCtx).Err(); err != nil {
		c.rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}

	slog.Info("redis connected", "addr", cfg.Addr, "db", cfg.DB)
	return c, nil
}

// NewClient creates a client without contacting the server.
func NewClient(cfg Config) *Client {
	maxFailures := cfg.MaxFailures
	if maxFailures <= 0 {
		maxFailures = 5
	}
	cooldown := cfg.Cooldown
	if cooldown <= 0 {
		cooldown = 10 * time.Second
	}
	return &Client{
		rdb: goredis.NewClient(&goredis.Options{
			Addr:         cfg.Addr,
			Password:     cfg.Password,
			DB:           cfg.DB,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
			MaxRetries:   -1,
		}),
		breaker: NewCircuitBreaker(maxFailures, cooldown),
	}
}

// Redis returns the underlying client for health checks.
func (c *Client) Redis() *goredis.Client { return c.rdb }

// Breaker exposes the breaker so callers can attach state-change hooks.
func (c *Client) Breaker() *CircuitBreaker { return c.breaker }

// Close closes the connection pool.
func (c *Client) Close() error { return c.rdb.Close() }

// do runs fn through the breaker. goredis.Nil is a normal miss and does
// not count as a failure, nor does the caller giving up on ctx.
func (c *Client) do(ctx context.Context, fn func() error) (miss bool, err error) {
	err = c.breaker.ExecuteContext(ctx, func() error {
		e := fn()
		if e == goredis.Nil {
			miss = true
			return nil
		}
		return e
	})
	return miss, err
}
