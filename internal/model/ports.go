package model

import (
	"context"
	"time"
)

// ── Port Interfaces ──
// These interfaces decouple the recommendation and auth logic from concrete
// implementations (Binance, SQL, Redis). Each implementation satisfies one or more.

// KlineFetcher fetches historical bars for a symbol.
type KlineFetcher interface {
	// FetchKlines returns up to limit bars in chronological order.
	// Fails with ErrUpstreamUnavailable or ErrInvalidSymbol.
	FetchKlines(ctx context.Context, symbol, interval string, limit int) ([]Kline, error)
}

// RecommendationLog is the insert-only history of computed recommendations.
type RecommendationLog interface {
	Append(ctx context.Context, rec Recommendation) error
}

// RecommendationReader reads back a user's history, newest first.
type RecommendationReader interface {
	ListByUser(ctx context.Context, userID, symbol string, limit int) ([]Recommendation, error)
}

// UserStore persists accounts.
type UserStore interface {
	Create(ctx context.Context, u *User) error
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id string) (*User, error)
	SetTOTP(ctx context.Context, id, secret string, enabled bool) error
}

// FavoriteStore persists each user's set of followed symbols.
type FavoriteStore interface {
	Add(ctx context.Context, userID, symbol string) error
	Remove(ctx context.Context, userID, symbol string) error
	List(ctx context.Context, userID string) ([]string, error)
	// Symbols returns every distinct symbol followed by anyone.
	Symbols(ctx context.Context) ([]string, error)
}

// TokenDenylist records revoked token ids until they expire.
type TokenDenylist interface {
	Revoke(ctx context.Context, jti string, until time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}
