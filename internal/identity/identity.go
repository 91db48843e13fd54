// Package identity provides the credential backends behind account
// registration and request authentication.
package identity

import (
	"context"
	"errors"
)

// MinPasswordLength is the password policy shared by both providers.
const MinPasswordLength = 6

// ErrInvalidToken is returned for missing, malformed or expired tokens.
var ErrInvalidToken = errors.New("invalid or expired token")

// Verifier resolves a bearer token to the account id it was issued for
type Verifier interface {
	Principal(ctx context.Context, token string) (string, error)
}
