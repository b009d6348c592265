// Package services contains the server-side business logic. AuthService
// implements registration, the credential check with its lockout state
// machine, profile lookup and the administrative unlock.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/belikesnab/peach/internal/common"
	"github.com/belikesnab/peach/internal/logging"
	"github.com/belikesnab/peach/internal/server/auth"
	"github.com/belikesnab/peach/internal/server/models"
	"github.com/belikesnab/peach/internal/server/repositories/accounts"
	"github.com/belikesnab/peach/internal/shared"
)

// DefaultLockoutThreshold is the number of consecutive failed logins that
// locks an account.
const DefaultLockoutThreshold = 5

// TokenIssuer mints bearer tokens for authenticated accounts.
type TokenIssuer interface {
	Issue(identity auth.Identity) (string, error)
}

// LoginResult is the outcome of a successful Authenticate call.
type LoginResult struct {
	Token     string
	TokenType string
	Account   *models.Account
}

type AuthService struct {
	accounts  accounts.Repository
	hasher    auth.PasswordHasher
	tokens    TokenIssuer
	logger    logging.Logger
	threshold int
	admins    map[string]struct{}
	now       func() time.Time
}

type Option func(*AuthService)

// WithLockoutThreshold overrides DefaultLockoutThreshold. Values below 1 are
// ignored.
func WithLockoutThreshold(n int) Option {
	return func(s *AuthService) {
		if n >= 1 {
			s.threshold = n
		}
	}
}

// WithAdminUsers makes Register grant the ADMIN role to the given usernames.
func WithAdminUsers(usernames ...string) Option {
	return func(s *AuthService) {
		for _, u := range usernames {
			s.admins[u] = struct{}{}
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *AuthService) { s.now = now }
}

func NewAuthService(repo accounts.Repository, hasher auth.PasswordHasher, tokens TokenIssuer, logger logging.Logger, opts ...Option) *AuthService {
	s := &AuthService{
		accounts:  repo,
		hasher:    hasher,
		tokens:    tokens,
		logger:    logger.With("module", "auth_service"),
		threshold: DefaultLockoutThreshold,
		admins:    make(map[string]struct{}),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates an account with the USER role. Username conflicts are
// reported before email conflicts and both are checked before any write.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*models.Account, error) {
	log := s.logger.With("username", username)

	taken, err := s.accounts.ExistsByUsername(ctx, username)
	if err != nil {
		log.Error(ctx, "register: username lookup failed", "error", err)
		return nil, fmt.Errorf("register: %w", err)
	}
	if taken {
		return nil, common.ErrDuplicateUsername
	}

	taken, err = s.accounts.ExistsByEmail(ctx, email)
	if err != nil {
		log.Error(ctx, "register: email lookup failed", "error", err)
		return nil, fmt.Errorf("register: %w", err)
	}
	if taken {
		return nil, common.ErrDuplicateEmail
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		log.Error(ctx, "register: hashing failed", "error", err)
		return nil, fmt.Errorf("register: %w", err)
	}

	roles := models.NewRoles(common.DefaultRole)
	if _, ok := s.admins[username]; ok {
		roles = models.NewRoles(common.DefaultRole, common.AdminRole)
	}

	acc, err := s.accounts.Save(ctx, &models.Account{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Roles:        roles,
		Enabled:      true,
	})
	if err != nil {
		if errors.Is(err, common.ErrDuplicateUsername) || errors.Is(err, common.ErrDuplicateEmail) {
			return nil, err
		}
		log.Error(ctx, "register: save failed", "error", err)
		return nil, fmt.Errorf("register: %w", err)
	}

	log.Info(ctx, "account registered", "id", acc.ID, "roles", acc.Roles.Slice())
	return acc, nil
}

// Authenticate checks the password of username and, on success, returns a
// freshly issued token.
//
// A locked account is rejected with common.ErrAccountLocked before the
// password is looked at. A wrong password advances the lockout state and is
// reported as common.ErrInvalidCredentials once that state is stored, even
// when this very failure is the one that locks the account. An unknown
// username is indistinguishable from a wrong password.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*LoginResult, error) {
	log := s.logger.With("username", username)

	var rejected bool
	acc, err := s.accounts.Update(ctx, username, func(a *models.Account) error {
		rejected = false

		if a.Lockout.Locked() {
			return common.ErrAccountLocked
		}

		ok, err := s.hasher.Verify(password, a.PasswordHash)
		if err != nil {
			return err
		}

		now := s.now().UTC()
		if ok {
			a.Lockout = a.Lockout.Succeed()
			a.LastLogin = &now
		} else {
			a.Lockout = a.Lockout.Fail(s.threshold)
			rejected = true
		}
		a.UpdatedAt = now
		return nil
	})

	switch {
	case errors.Is(err, common.ErrNotFound):
		log.Info(ctx, "login rejected: unknown account")
		return nil, common.ErrInvalidCredentials
	case errors.Is(err, common.ErrAccountLocked):
		log.Warn(ctx, "login rejected: account locked")
		return nil, common.ErrAccountLocked
	case err != nil:
		log.Error(ctx, "login failed", "error", err)
		return nil, fmt.Errorf("authenticate: %w", err)
	}

	if rejected {
		if acc.Lockout.Locked() {
			log.Warn(ctx, "account locked after repeated failures", "failed_attempts", acc.Lockout.FailedAttempts())
		} else {
			log.Info(ctx, "login rejected: bad password", "failed_attempts", acc.Lockout.FailedAttempts())
		}
		return nil, common.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(auth.Identity{Subject: acc.Username, Roles: acc.Roles.Slice()})
	if err != nil {
		log.Error(ctx, "token issue failed", "error", err)
		return nil, fmt.Errorf("authenticate: %w", err)
	}

	log.Info(ctx, "login succeeded")
	return &LoginResult{Token: token, TokenType: shared.TokenTypeBearer, Account: acc}, nil
}

// CurrentUser returns the profile of username, or common.ErrNotFound.
func (s *AuthService) CurrentUser(ctx context.Context, username string) (*models.Profile, error) {
	acc, err := s.accounts.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, err
		}
		s.logger.Error(ctx, "profile lookup failed", "username", username, "error", err)
		return nil, fmt.Errorf("current user: %w", err)
	}
	return acc.Profile(), nil
}

// Unlock clears the lockout state of username. It is the only way out of
// LOCKED.
func (s *AuthService) Unlock(ctx context.Context, username string) (*models.Account, error) {
	acc, err := s.accounts.Update(ctx, username, func(a *models.Account) error {
		a.Lockout = a.Lockout.Unlock()
		a.UpdatedAt = s.now().UTC()
		return nil
	})
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, err
		}
		s.logger.Error(ctx, "unlock failed", "username", username, "error", err)
		return nil, fmt.Errorf("unlock: %w", err)
	}

	s.logger.Info(ctx, "account unlocked", "username", username)
	return acc, nil
}
