// Package auth resolves bearer tokens to acting users. Token issuance is out
// of scope; the engine only looks tokens up.
package auth

import (
	"context"
	"errors"

	"obpm/pkg/models"
)

var (
	// ErrMissingToken indicates no bearer token was presented.
	ErrMissingToken = errors.New("missing bearer token")

	// ErrUnknownToken indicates the token resolved to no user.
	ErrUnknownToken = errors.New("unknown bearer token")
)

// TokenStore maps access tokens to users.
type TokenStore interface {
	UserForToken(ctx context.Context, token string) (*models.User, error)
	SaveToken(ctx context.Context, token string, user *models.User) error
}

// IsAuthError checks if an error should surface with 401 semantics.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrMissingToken) || errors.Is(err, ErrUnknownToken)
}
