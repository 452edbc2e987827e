package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"investai/internal/model"
)

// MinPasswordLen is the shortest password Register accepts.
const MinPasswordLen = 6

// HashPassword bcrypt-hashes password at the given cost.
func HashPassword(password string, cost int) (string, error) {
	if len(password) < MinPasswordLen {
		return "", fmt.Errorf("%w: password shorter than %d characters", model.ErrBadRequest, MinPasswordLen)
	}
	// bcrypt ignores everything past 72 bytes; reject instead of truncating.
	if len(password) > 72 {
		return "", fmt.Errorf("%w: password longer than 72 bytes", model.ErrBadRequest)
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

// CheckPassword reports whether password matches hash.
func CheckPassword(hash, password string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("check password: %w", err)
	}
}
