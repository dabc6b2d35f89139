// Package ports defines interfaces (contracts) between layers.
// These interfaces enable dependency injection and testability.
// Implementations live in adapters/.
package ports

import (
	"context"
	"errors"
	"time"
)

// -----------------------------------------------------------------------------
// Infrastructure Ports
// -----------------------------------------------------------------------------

// IDGenerator generates unique identifiers.
type IDGenerator interface {
	New() string
}

// Random is a source of secret bytes.
type Random interface {
	Bytes(n int) ([]byte, error)
	Hex(n int) (string, error)
}

// Hasher hashes and compares secrets (admin passwords).
type Hasher interface {
	Hash(plaintext string) ([]byte, error)
	Compare(hash []byte, plaintext string) bool
}

// -----------------------------------------------------------------------------
// Authentication Ports
// -----------------------------------------------------------------------------

// ErrInvalidCredentials is returned by an Authenticator for an unknown email
// or a wrong password. Callers must not tell the two apart.
var ErrInvalidCredentials = errors.New("invalid email or password")

// CurrentAdmin is the identity of the logged-in administrator.
type CurrentAdmin struct {
	ID    string
	Email string
	Role  string
}

// Authenticator verifies login credentials.
type Authenticator interface {
	// Authenticate returns the admin for valid credentials and
	// ErrInvalidCredentials otherwise.
	Authenticate(ctx context.Context, email, password string) (CurrentAdmin, error)
}

// SessionIssuer issues and verifies stateless session tokens.
type SessionIssuer interface {
	Issue(admin CurrentAdmin) (token string, expiresAt time.Time, err error)
	Verify(token string) (CurrentAdmin, error)

	// Renew returns a replacement token for an ageing session, or an
	// empty token when the current one is still fresh.
	Renew(token string) (string, time.Time, error)
}
