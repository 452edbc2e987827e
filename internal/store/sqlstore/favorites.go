package sqlstore

import (
	"context"
	"fmt"
	"time"
)

// Favorites implements model.FavoriteStore.
type Favorites struct {
	db *DB
}

func NewFavorites(db *DB) *Favorites { return &Favorites{db: db} }

// Add is idempotent.
func (s *Favorites) Add(ctx context.Context, userID, symbol string) error {
	query := s.db.Rebind(`
		INSERT INTO favorites (user_id, symbol, created_at) VALUES (?, ?, ?)
		ON CONFLICT (user_id, symbol) DO NOTHING`)
	if _, err := s.db.ExecContext(ctx, query, userID, symbol, time.Now().UnixMilli()); err != nil {
		return fmt.Errorf("add favorite: %w", err)
	}
	return nil
}

// Remove deletes the favorite if present.
func (s *Favorites) Remove(ctx context.Context, userID, symbol string) error {
	query := s.db.Rebind(`DELETE FROM favorites WHERE user_id = ? AND symbol = ?`)
	if _, err := s.db.ExecContext(ctx, query, userID, symbol); err != nil {
		return fmt.Errorf("remove favorite: %w", err)
	}
	return nil
}

// List returns the user's symbols sorted alphabetically.
func (s *Favorites) List(ctx context.Context, userID string) ([]string, error) {
	symbols := []string{}
	query := s.db.Rebind(`SELECT symbol FROM favorites WHERE user_id = ? ORDER BY symbol`)
	if err := s.db.SelectContext(ctx, &symbols, query, userID); err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	return symbols, nil
}

// Symbols returns every distinct followed symbol.
func (s *Favorites) Symbols(ctx context.Context) ([]string, error) {
	symbols := []string{}
	if err := s.db.SelectContext(ctx, &symbols, `SELECT DISTINCT symbol FROM favorites ORDER BY symbol`); err != nil {
		return nil, fmt.Errorf("favorite symbols: %w", err)
	}
	return symbols, nil
}
