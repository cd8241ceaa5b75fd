package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/askcraft/askcraft-web/internal/rbac"
	"github.com/askcraft/askcraft-web/internal/shared"
)

// DefaultSessionTTL is the lifetime of a session token and its cookie.
const DefaultSessionTTL = 15 * time.Minute

type sessionClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// TokenCodec issues and verifies HS256 session tokens. Expiry is fixed at
// issuance; verification never extends it.
type TokenCodec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenCodec constructs a codec signing with secret.
func NewTokenCodec(secret []byte, ttl time.Duration) (*TokenCodec, error) {
	if len(secret) == 0 {
		return nil, errors.New("auth: signing secret required")
	}
	if ttl <= 0 {
		return nil, errors.New("auth: session ttl must be positive")
	}
	key := make([]byte, len(secret))
	copy(key, secret)
	return &TokenCodec{secret: key, ttl: ttl, now: time.Now}, nil
}

// WithClock returns a copy of the codec reading time from now.
func (c *TokenCodec) WithClock(now func() time.Time) *TokenCodec {
	clone := *c
	clone.now = now
	return &clone
}

// TTL exposes the configured session lifetime.
func (c *TokenCodec) TTL() time.Duration {
	return c.ttl
}

// Issue signs a token for subject carrying role.
func (c *TokenCodec) Issue(subject string, role rbac.Role) (string, time.Time, error) {
	if subject == "" || !role.Valid() {
		return "", time.Time{}, fmt.Errorf("auth: issue token for %q/%q: %w", subject, role, shared.ErrValidation)
	}
	// NumericDate has second precision.
	issued := c.now().Truncate(time.Second)
	expires := issued.Add(c.ttl)
	claims := sessionClaims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, expires, nil
}

// Verify checks signature and expiry. A token whose expiry equals the current
// time is already expired.
func (c *TokenCodec) Verify(token string) (Claims, error) {
	if token == "" {
		return Claims{}, shared.ErrInvalidToken
	}
	var parsed sessionClaims
	_, err := jwt.ParseWithClaims(token, &parsed, func(*jwt.Token) (any, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return Claims{}, mapJWTError(err)
	}
	role, ok := rbac.ParseRole(parsed.Role)
	if !ok || parsed.Subject == "" {
		return Claims{}, fmt.Errorf("auth: token claims incomplete: %w", shared.ErrInvalidToken)
	}
	out := Claims{Subject: parsed.Subject, Role: role}
	if parsed.IssuedAt != nil {
		out.IssuedAt = parsed.IssuedAt.Time
	}
	if parsed.ExpiresAt != nil {
		out.ExpiresAt = parsed.ExpiresAt.Time
	}
	return out, nil
}

// Subject verifies token and returns only its subject.
func (c *TokenCodec) Subject(token string) (string, error) {
	claims, err := c.Verify(token)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

func mapJWTError(err error) error {
	if errors.Is(err, jwt.ErrTokenExpired) {
		return fmt.Errorf("auth: %v: %w", err, shared.ErrTokenExpired)
	}
	return fmt.Errorf("auth: %v: %w", err, shared.ErrInvalidToken)
}
