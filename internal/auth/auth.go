// Package auth issues and verifies bearer credentials and resolves them to
// user identities.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"golang.org/x/crypto/bcrypt"

	"github.com/chatrelay/chatrelay/internal/store"
	"github.com/chatrelay/chatrelay/pkg/types"
)

// ErrUnauthenticated is returned for missing, malformed, expired, or unknown
// credentials. Callers get no further detail.
var ErrUnauthenticated = errors.New("could not validate credentials")

// Service verifies credentials against the record store.
type Service struct {
	secret []byte
	ttl    time.Duration
	store  *store.Store
}

// New creates an auth service. ttl bounds issued token lifetimes.
func New(secret string, ttl time.Duration, st *store.Store) *Service {
	return &Service{secret: []byte(secret), ttl: ttl, store: st}
}

// HashPassword hashes a plaintext password for storage.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("auth: hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword reports whether password matches the stored hash.
func VerifyPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// IssueToken signs a new access token for username.
func (s *Service) IssueToken(username string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}

// Authenticate validates a bearer token and resolves it to the user it was
// issued for. Every failure mode collapses to ErrUnauthenticated.
func (s *Service) Authenticate(ctx context.Context, token string) (*types.User, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrUnauthenticated
	}

	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return nil, ErrUnauthenticated
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return nil, ErrUnauthenticated
	}

	user, err := s.store.GetUserByUsername(ctx, claims.Subject)
	if err != nil {
		return nil, ErrUnauthenticated
	}
	return user, nil
}

// CreateGuest registers a throwaway guest account and issues a token for it.
func (s *Service) CreateGuest(ctx context.Context) (*types.User, string, error) {
	username := "guest-" + strings.ToLower(ulid.Make().String())

	// Guests cannot log in with a password; store a hash of a random
	// ulid so the column is never empty.
	hash, err := HashPassword(ulid.Make().String())
	if err != nil {
		return nil, "", err
	}

	user, err := s.store.CreateUser(ctx, username, hash)
	if err != nil {
		return nil, "", fmt.Errorf("auth: create guest: %w", err)
	}

	token, err := s.IssueToken(user.Username)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}
