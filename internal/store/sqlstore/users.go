package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"investai/internal/model"
)

// Users implements model.UserStore.
type Users struct {
	db *DB
}

func NewUsers(db *DB) *Users { return &Users{db: db} }

type userRow struct {
	ID           string `db:"id"`
	Email        string `db:"email"`
	PasswordHash string `db:"password_hash"`
	TOTPSecret   string `db:"totp_secret"`
	TOTPEnabled  bool   `db:"totp_enabled"`
	CreatedAt    int64  `db:"created_at"`
}

func (r userRow) user() *model.User {
	return &model.User{
		ID:           r.ID,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		TOTPSecret:   r.TOTPSecret,
		TOTPEnabled:  r.TOTPEnabled,
		CreatedAt:    time.UnixMilli(r.CreatedAt).UTC(),
	}
}

// Create inserts u. u.ID must be set by the caller.
func (s *Users) Create(ctx context.Context, u *model.User) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	query := s.db.Rebind(`
		INSERT INTO users (id, email, password_hash, totp_secret, totp_enabled, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`)
	_, err := s.db.ExecContext(ctx, query,
		u.ID, u.Email, u.PasswordHash, u.TOTPSecret, u.TOTPEnabled, u.CreatedAt.UnixMilli())
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create user %s: %w", u.Email, model.ErrEmailTaken)
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *Users) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.findOne(ctx, "email", email)
}

func (s *Users) FindByID(ctx context.Context, id string) (*model.User, error) {
	return s.findOne(ctx, "id", id)
}

func (s *Users) findOne(ctx context.Context, column, value string) (*model.User, error) {
	var row userRow
	query := s.db.Rebind(`
		SELECT id, email, password_hash, totp_secret, totp_enabled, created_at
		FROM users WHERE ` + column + ` = ?`)
	if err := s.db.GetContext(ctx, &row, query, value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %s=%s: %w", column, value, model.ErrNotFound)
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return row.user(), nil
}

// SetTOTP stores the user's TOTP secret and whether it is active.
func (s *Users) SetTOTP(ctx context.Context, id, secret string, enabled bool) error {
	res, err := s.db.ExecContext(ctx,
		s.db.Rebind(`UPDATE users SET totp_secret = ?, totp_enabled = ? WHERE id = ?`),
		secret, enabled, id)
	if err != nil {
		return fmt.Errorf("set totp: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("user %s: %w", id, model.ErrNotFound)
	}
	return nil
}
