// Package auth authenticates administrators and keeps them signed in.
// Sessions are signed JWTs held in a cookie, so any instance sharing the
// secret can verify them without server-side state.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/artpar/autoadmin/ports"
	"github.com/golang-jwt/jwt/v5"
)

// DefaultSessionTTL is used when no lifetime is configured.
const DefaultSessionTTL = 24 * time.Hour

const sessionIssuer = "autoadmin"

var (
	// ErrSessionExpired is returned by Verify for a token past its expiry.
	ErrSessionExpired = errors.New("session expired")

	// ErrInvalidSession is returned by Verify for a malformed, tampered or
	// foreign token.
	ErrInvalidSession = errors.New("invalid session")
)

type sessionClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Sessions issues and verifies admin session tokens (HS256).
// Safe for concurrent use.
type Sessions struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// SessionOption configures Sessions.
type SessionOption func(*Sessions)

// WithNow replaces the time source.
func WithNow(now func() time.Time) SessionOption {
	return func(s *Sessions) { s.now = now }
}

// NewSessions creates a session service signing with secret. A ttl of zero
// means DefaultSessionTTL.
func NewSessions(secret string, ttl time.Duration, opts ...SessionOption) (*Sessions, error) {
	if secret == "" {
		return nil, errors.New("auth: session secret is required")
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	s := &Sessions{key: []byte(secret), ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// TTL is the lifetime of an issued session.
func (s *Sessions) TTL() time.Duration { return s.ttl }

// Issue implements ports.SessionIssuer.
func (s *Sessions) Issue(admin ports.CurrentAdmin) (string, time.Time, error) {
	now := s.now().UTC().Truncate(time.Second)
	expiresAt := now.Add(s.ttl)

	claims := sessionClaims{
		Email: admin.Email,
		Role:  admin.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    sessionIssuer,
			Subject:   admin.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify implements ports.SessionIssuer.
func (s *Sessions) Verify(token string) (ports.CurrentAdmin, error) {
	claims, err := s.parse(token)
	if err != nil {
		return ports.CurrentAdmin{}, err
	}
	return ports.CurrentAdmin{ID: claims.Subject, Email: claims.Email, Role: claims.Role}, nil
}

// Renew re-issues a valid session once more than half of its lifetime has
// passed. It returns an empty token while the session is still fresh.
func (s *Sessions) Renew(token string) (string, time.Time, error) {
	claims, err := s.parse(token)
	if err != nil {
		return "", time.Time{}, err
	}
	if claims.ExpiresAt.Sub(s.now()) > s.ttl/2 {
		return "", claims.ExpiresAt.Time, nil
	}
	return s.Issue(ports.CurrentAdmin{ID: claims.Subject, Email: claims.Email, Role: claims.Role})
}

func (s *Sessions) parse(token string) (*sessionClaims, error) {
	claims := &sessionClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(sessionIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	switch {
	case err == nil:
		return claims, nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrSessionExpired
	default:
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
}

// GenerateSecret returns a random 256-bit hex secret for signing sessions.
func GenerateSecret(src ports.Random) (string, error) {
	return src.Hex(32)
}

var _ ports.SessionIssuer = (*Sessions)(nil)
