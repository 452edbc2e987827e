package redis

import (
	"context"
	"fmt"
	"time"
)

const revokedPrefix = "revoked:"

// Denylist records revoked token ids until their expiry.
type Denylist struct {
	client *Client
}

func NewDenylist(client *Client) *Denylist {
	return &Denylist{client: client}
}

// Revoke marks jti as revoked until the given time. Already-expired tokens
// are ignored.
func (d *Denylist) Revoke(ctx context.Context, jti string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	_, err := d.client.do(ctx, func() error {
		return d.client.rdb.Set(ctx, revokedPrefix+jti, "1", ttl).Err()
	})
	if err != nil {
		return fmt.Errorf("revoke %s: %w", jti, err)
	}
	return nil
}

// IsRevoked reports whether jti was revoked. Errors are returned so the
// caller can fail closed.
func (d *Denylist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	var n int64
	_, err := d.client.do(ctx, func() error {
		var e error
		n, e = d.client.rdb.Exists(ctx, revokedPrefix+jti).Result()
		return e
	})
	if err != nil {
		return false, fmt.Errorf("check revoked %s: %w", jti, err)
	}
	return n > 0, nil
}
