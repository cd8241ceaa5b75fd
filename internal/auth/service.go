package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/askcraft/askcraft-web/internal/shared"
)

var (
	dummyHashOnce sync.Once
	dummyHash     []byte
)

// dummyPasswordHash is compared against when no account matches, so an
// unknown email costs the same bcrypt work as a wrong password.
func dummyPasswordHash() []byte {
	dummyHashOnce.Do(func() {
		dummyHash, _ = bcrypt.GenerateFromPassword([]byte("askcraft-no-such-account"), bcrypt.DefaultCost)
	})
	return dummyHash
}

// Service wraps authentication business rules.
type Service struct {
	repo     Repository
	tokens   *TokenCodec
	throttle Throttle
	logger   *slog.Logger
}

// NewService constructs a new Service. throttle may be nil.
func NewService(repo Repository, tokens *TokenCodec, throttle Throttle, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, tokens: tokens, throttle: throttle, logger: logger}
}

// Login validates email/password credentials and issues a session token.
// Unknown email and wrong password both yield shared.ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	email = normalizeEmail(email)
	if !s.allowed(ctx, email) {
		return nil, shared.ErrTooManyAttempts
	}

	acc, err := s.repo.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("auth: login lookup: %w", err)
	}
	hash := dummyPasswordHash()
	if acc != nil {
		hash = []byte(acc.PasswordHash)
	}
	if cmpErr := bcrypt.CompareHashAndPassword(hash, []byte(password)); cmpErr != nil || acc == nil {
		s.recordFailure(ctx, email)
		return nil, shared.ErrInvalidCredentials
	}

	token, expires, err := s.tokens.Issue(acc.ID, acc.Role)
	if err != nil {
		return nil, err
	}
	if s.throttle != nil {
		if err := s.throttle.Reset(ctx, email); err != nil {
			s.logger.Warn("reset login throttle", slog.Any("error", err))
		}
	}
	return &Session{
		Token:     token,
		ExpiresAt: expires,
		User: SessionUser{
			ID:    acc.ID,
			Role:  acc.Role,
			Email: acc.Email,
			Name:  acc.Name,
		},
	}, nil
}

// TTL exposes the session lifetime shared by token and cookie.
func (s *Service) TTL() time.Duration {
	return s.tokens.TTL()
}

func (s *Service) allowed(ctx context.Context, email string) bool {
	if s.throttle == nil {
		return true
	}
	ok, err := s.throttle.Allowed(ctx, email)
	if err != nil {
		// Fail open while Redis is unavailable.
		s.logger.Warn("login throttle unavailable", slog.Any("error", err))
		return true
	}
	return ok
}

func (s *Service) recordFailure(ctx context.Context, email string) {
	if s.throttle == nil {
		return
	}
	if err := s.throttle.Fail(ctx, email); err != nil {
		s.logger.Warn("record login failure", slog.Any("error", err))
	}
}
