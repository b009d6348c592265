// Package auth implements the stateless bearer-token protocol and the password
// hashing collaborator.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/belikesnab/peach/internal/common"
)

// Claims is the payload of an issued token: the registered claims (sub, iat,
// exp, jti, iss) plus a snapshot of the subject's roles.
type Claims struct {
	jwt.RegisteredClaims
	Roles []string `json:"roles,omitempty"`
}

// Identity is what a caller asks the TokenService to vouch for.
type Identity struct {
	Subject string
	Roles   []string
}

// TokenService issues and verifies HS256 tokens. It keeps no state besides
// its configuration and is safe for concurrent use.
type TokenService struct {
	secret   []byte
	lifetime time.Duration
	issuer   string
	now      func() time.Time
}

type TokenOption func(*TokenService)

// WithIssuer sets the iss claim of issued tokens.
func WithIssuer(issuer string) TokenOption {
	return func(s *TokenService) { s.issuer = issuer }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) { s.now = now }
}

// NewTokenService returns a TokenService signing with secret. The secret must
// be at least 256 bits long.
func NewTokenService(secret []byte, lifetime time.Duration, opts ...TokenOption) (*TokenService, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("auth: signing secret must be at least 32 bytes, got %d", len(secret))
	}
	if lifetime < 0 {
		return nil, errors.New("auth: token lifetime must not be negative")
	}

	s := &TokenService{
		secret:   append([]byte(nil), secret...),
		lifetime: lifetime,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Lifetime reports how long issued tokens stay valid.
func (s *TokenService) Lifetime() time.Duration { return s.lifetime }

// Issue signs a token for identity.
func (s *TokenService) Issue(identity Identity) (string, error) {
	if identity.Subject == "" {
		return "", errors.New("auth: token subject must not be empty")
	}

	now := s.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.Subject,
			Issuer:    s.issuer,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.lifetime)),
		},
		Roles: identity.Roles,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}

// IssueForSubject signs a token carrying only the subject, for
// non-interactive minting.
func (s *TokenService) IssueForSubject(username string) (string, error) {
	return s.Issue(Identity{Subject: username})
}

// Verify checks structure, algorithm, signature and expiry of token and
// returns its claims. It never consults the account store, so a token stays
// valid for its whole lifetime even if the account is locked afterwards.
//
// Every failure wraps common.ErrInvalidToken; expiry also wraps
// common.ErrTokenExpired.
func (s *TokenService) Verify(token string) (*Claims, error) {
	claims := &Claims{}

	parsed, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %w", common.ErrInvalidToken, common.ErrTokenExpired)
		}
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, common.ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", common.ErrInvalidToken)
	}
	return claims, nil
}
