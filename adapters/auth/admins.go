package auth

import (
	"context"
	"strings"

	"github.com/artpar/autoadmin/ports"
)

// AdminUser is an administrator account declared in configuration.
type AdminUser struct {
	Email        string
	PasswordHash string
	Role         string
}

// StaticAuthenticator checks credentials against a fixed list of admins.
type StaticAuthenticator struct {
	users  map[string]AdminUser
	hasher ports.Hasher
}

// dummyHash is compared when the email is unknown so that both failure
// paths cost one hash comparison.
var dummyHash = []byte("$2a$10$7EqJtq98hPqEX7fNZaFWoOhi5BWX4Z3Nbj1jZ3bzYp0rGhQ6p0bW6")

// NewStaticAuthenticator indexes users by lower-cased email.
func NewStaticAuthenticator(users []AdminUser, hasher ports.Hasher) *StaticAuthenticator {
	a := &StaticAuthenticator{
		users:  make(map[string]AdminUser, len(users)),
		hasher: hasher,
	}
	for _, u := range users {
		if u.Role == "" {
			u.Role = "admin"
		}
		a.users[strings.ToLower(strings.TrimSpace(u.Email))] = u
	}
	return a
}

// Authenticate implements ports.Authenticator.
func (a *StaticAuthenticator) Authenticate(ctx context.Context, email, password string) (ports.CurrentAdmin, error) {
	u, ok := a.users[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		a.hasher.Compare(dummyHash, password)
		return ports.CurrentAdmin{}, ports.ErrInvalidCredentials
	}
	if u.PasswordHash == "" || !a.hasher.Compare([]byte(u.PasswordHash), password) {
		return ports.CurrentAdmin{}, ports.ErrInvalidCredentials
	}
	return ports.CurrentAdmin{ID: u.Email, Email: u.Email, Role: u.Role}, nil
}

var _ ports.Authenticator = (*StaticAuthenticator)(nil)
