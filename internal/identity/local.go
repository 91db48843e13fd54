package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/anonto42/chirp/backend/internal/models"
	"github.com/anonto42/chirp/backend/internal/services"
)

// TokenTTL is how long a locally issued token stays valid.
const TokenTTL = 72 * time.Hour

// ErrBadLogin is returned for an unknown email or a wrong password.
var ErrBadLogin = errors.New("invalid email or password")

// CredentialStore defines the interface for local credential persistence
type CredentialStore interface {
	CreateCredential(ctx context.Context, cred *models.Credential) error
	GetCredentialByEmail(ctx context.Context, email string) (*models.Credential, error)
}

// GormCredentialStore implements CredentialStore on PostgreSQL
type GormCredentialStore struct {
	db *gorm.DB
}

// NewGormCredentialStore creates a new GormCredentialStore and migrates its table
func NewGormCredentialStore(db *gorm.DB) (*GormCredentialStore, error) {
	if err := db.AutoMigrate(&models.Credential{}); err != nil {
		return nil, fmt.Errorf("migrate credentials: %w", err)
	}
	return &GormCredentialStore{db: db}, nil
}

// CreateCredential creates a new credential row
func (s *GormCredentialStore) CreateCredential(ctx context.Context, cred *models.Credential) error {
	return s.db.WithContext(ctx).Create(cred).Error
}

// GetCredentialByEmail retrieves a credential by email. A missing row is nil, nil.
func (s *GormCredentialStore) GetCredentialByEmail(ctx context.Context, email string) (*models.Credential, error) {
	var cred models.Credential
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&cred).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cred, nil
}

var (
	_ services.IdentityProvider = (*LocalProvider)(nil)
	_ Verifier                  = (*LocalProvider)(nil)
)

// LocalProvider keeps bcrypt password hashes and issues HS256 tokens. It
// stands in for Firebase Auth on development servers.
type LocalProvider struct {
	store  CredentialStore
	secret []byte
	now    func() time.Time
}

// NewLocalProvider creates a new LocalProvider
func NewLocalProvider(store CredentialStore, secret string) *LocalProvider {
	return &LocalProvider{store: store, secret: []byte(secret), now: time.Now}
}

// CreateCredential stores a hashed password and returns the new account id
func (p *LocalProvider) CreateCredential(ctx context.Context, email, password, displayName string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", services.ErrWeakCredential
	}
	email = strings.ToLower(strings.TrimSpace(email))
	existing, err := p.store.GetCredentialByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if existing != nil {
		return "", services.ErrEmailTaken
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	cred := &models.Credential{
		UID:          uuid.NewString(),
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: string(hashedPassword),
	}
	if err := p.store.CreateCredential(ctx, cred); err != nil {
		return "", err
	}
	return cred.UID, nil
}

// SignIn checks the password and issues a token
func (p *LocalProvider) SignIn(ctx context.Context, email, password string) (string, string, error) {
	cred, err := p.store.GetCredentialByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return "", "", err
	}
	if cred == nil {
		return "", "", ErrBadLogin
	}
	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)); err != nil {
		return "", "", ErrBadLogin
	}
	token, err := p.IssueToken(cred.UID, cred.Email)
	if err != nil {
		return "", "", err
	}
	return token, cred.UID, nil
}

// IssueToken signs a token for uid
func (p *LocalProvider) IssueToken(uid, email string) (string, error) {
	issued := p.now()
	claims := &models.JwtCustomClaims{
		UID:   uid,
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uid,
			ExpiresAt: jwt.NewNumericDate(issued.Add(TokenTTL)),
			IssuedAt:  jwt.NewNumericDate(issued),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(p.secret)
}

// Principal implements Verifier
func (p *LocalProvider) Principal(_ context.Context, tokenString string) (string, error) {
	claims := &models.JwtCustomClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return p.secret, nil
	})
	if err != nil || !token.Valid || claims.UID == "" {
		return "", ErrInvalidToken
	}
	return claims.UID, nil
}
