// Package auth issues and verifies dashboard access tokens for the single
// configured administrator.
package auth

import (
	"context"
	"errors"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
)

// Service defines the interface for authentication-related business logic.
type Service interface {
	Login(ctx context.Context, email, password string) (string, error)
	// Verify returns the subject of a valid, unexpired token.
	Verify(token string) (string, error)
}
