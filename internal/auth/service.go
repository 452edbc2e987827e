// Package auth handles accounts, access tokens and the optional TOTP
// second factor. Every failure is a model sentinel so the HTTP layer can
// map it without inspecting messages.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"investai/internal/logger"
	"investai/internal/model"
)

// Config configures the auth service.
type Config struct {
	Secret     string        // HS256 signing key, required
	TokenTTL   time.Duration // default 60m
	TOTPIssuer string        // shown in authenticator apps, default "InvestAI"
	BcryptCost int           // default bcrypt.DefaultCost
}

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID    string
	Email     string
	TokenID   string
	ExpiresAt time.Time
}

// Service implements registration, login and token checks.
type Service struct {
	users    model.UserStore
	denylist model.TokenDenylist
	tokens   *TokenIssuer
	issuer   string
	cost     int
	now      func() time.Time
}

// NewService wires the service to its stores.
func NewService(cfg Config, users model.UserStore, denylist model.TokenDenylist) (*Service, error) {
	tokens, err := NewTokenIssuer(cfg.Secret, cfg.TokenTTL)
	if err != nil {
		return nil, err
	}
	issuer := cfg.TOTPIssuer
	if issuer == "" {
		issuer = "InvestAI"
	}
	cost := cfg.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &Service{
		users:    users,
		denylist: denylist,
		tokens:   tokens,
		issuer:   issuer,
		cost:     cost,
		now:      time.Now,
	}, nil
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("%w: invalid email", model.ErrBadRequest)
	}
	return email, nil
}

// Register creates an account and returns a token for it.
func (s *Service) Register(ctx context.Context, email, password string) (string, *model.User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return "", nil, err
	}
	hash, err := HashPassword(password, s.cost)
	if err != nil {
		return "", nil, err
	}

	u := &model.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.Create(ctx, u); err != nil {
		return "", nil, err
	}

	token, _, err := s.tokens.Issue(u)
	if err != nil {
		return "", nil, err
	}
	logger.FromContext(ctx).Info("user registered", "user_id", u.ID)
	return token, u, nil
}

// Login checks credentials and, when enabled, the one-time code.
func (s *Service) Login(ctx context.Context, email, password, code string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return "", model.ErrInvalidCredentials
		}
		return "", err
	}

	ok, err := CheckPassword(u.PasswordHash, password)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", model.ErrInvalidCredentials
	}

	if u.TOTPEnabled {
		if code == "" {
			return "", model.ErrOTPRequired
		}
		if !validTOTP(code, u.TOTPSecret, s.now()) {
			return "", fmt.Errorf("%w: bad one-time code", model.ErrInvalidCredentials)
		}
	}

	token, _, err := s.tokens.Issue(u)
	if err != nil {
		return "", err
	}
	logger.FromContext(ctx).Info("user logged in", "user_id", u.ID)
	return token, nil
}

// Authenticate resolves a bearer token to its principal. Revoked tokens,
// tokens of deleted users and denylist failures are all ErrUnauthorized.
func (s *Service) Authenticate(ctx context.Context, token string) (*Principal, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, err
	}

	revoked, err := s.denylist.IsRevoked(ctx, claims.ID)
	if err != nil {
		logger.FromContext(ctx).Warn("denylist check failed", "error", err)
		return nil, fmt.Errorf("%w: cannot verify token", model.ErrUnauthorized)
	}
	if revoked {
		return nil, fmt.Errorf("%w: token revoked", model.ErrUnauthorized)
	}

	if _, err := s.users.FindByID(ctx, claims.Subject); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown user", model.ErrUnauthorized)
		}
		return nil, err
	}

	return &Principal{
		UserID:    claims.Subject,
		Email:     claims.Email,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Logout revokes the principal's token until it expires.
func (s *Service) Logout(ctx context.Context, p *Principal) error {
	if err := s.denylist.Revoke(ctx, p.TokenID, p.ExpiresAt); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// Me returns the caller's account.
func (s *Service) Me(ctx context.Context, userID string) (*model.User, error) {
	return s.users.FindByID(ctx, userID)
}

// EnrollTOTP generates a new secret for the user. It becomes active only
// after ConfirmTOTP.
func (s *Service) EnrollTOTP(ctx context.Context, userID string) (secret, url string, err error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return "", "", err
	}
	if u.TOTPEnabled {
		return "", "", fmt.Errorf("%w: two-factor already enabled", model.ErrBadRequest)
	}

	secret, url, err = newTOTPKey(s.issuer, u.Email)
	if err != nil {
		return "", "", err
	}
	if err := s.users.SetTOTP(ctx, u.ID, secret, false); err != nil {
		return "", "", err
	}
	return secret, url, nil
}

// ConfirmTOTP enables the pending secret if code matches it.
func (s *Service) ConfirmTOTP(ctx context.Context, userID, code string) error {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if u.TOTPEnabled {
		return fmt.Errorf("%w: two-factor already enabled", model.ErrBadRequest)
	}
	if u.TOTPSecret == "" {
		return fmt.Errorf("%w: no pending enrollment", model.ErrBadRequest)
	}
	if !validTOTP(code, u.TOTPSecret, s.now()) {
		return fmt.Errorf("%w: bad one-time code", model.ErrInvalidCredentials)
	}
	if err := s.users.SetTOTP(ctx, u.ID, u.TOTPSecret, true); err != nil {
		return err
	}
	logger.FromContext(ctx).Info("two-factor enabled", "user_id", u.ID)
	return nil
}
