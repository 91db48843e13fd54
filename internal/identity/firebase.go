package identity

import (
	"context"

	"firebase.google.com/go/v4/auth"

	"github.com/anonto42/chirp/backend/internal/services"
)

var (
	_ services.IdentityProvider = (*FirebaseProvider)(nil)
	_ Verifier                  = (*FirebaseProvider)(nil)
)

// FirebaseProvider creates and verifies credentials with Firebase Auth.
// Clients sign in with the Firebase SDK and send the ID token.
type FirebaseProvider struct {
	client *auth.Client
}

// NewFirebaseProvider creates a new FirebaseProvider
func NewFirebaseProvider(client *auth.Client) *FirebaseProvider {
	return &FirebaseProvider{client: client}
}

// CreateCredential creates a Firebase user and returns its uid
func (p *FirebaseProvider) CreateCredential(ctx context.Context, email, password, displayName string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", services.ErrWeakCredential
	}
	params := (&auth.UserToCreate{}).
		Email(email).
		Password(password).
		DisplayName(displayName)
	user, err := p.client.CreateUser(ctx, params)
	if err != nil {
		if auth.IsEmailAlreadyExists(err) {
			return "", services.ErrEmailTaken
		}
		return "", err
	}
	return user.UID, nil
}

// Principal implements Verifier
func (p *FirebaseProvider) Principal(ctx context.Context, idToken string) (string, error) {
	token, err := p.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return "", ErrInvalidToken
	}
	return token.UID, nil
}
