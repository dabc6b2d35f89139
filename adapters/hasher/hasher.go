// Package hasher produces and checks the password hashes stored in the
// auth.admins section of the config file.
package hasher

import (
	"errors"
	"fmt"

	"github.com/artpar/autoadmin/ports"
	"golang.org/x/crypto/bcrypt"
)

// ErrEmptyPassword is returned when hashing an empty password.
var ErrEmptyPassword = errors.New("empty password")

// Bcrypt hashes with bcrypt at a fixed cost.
type Bcrypt struct {
	cost int
}

// NewBcrypt creates a bcrypt hasher. Costs outside bcrypt's range fall back
// to bcrypt.DefaultCost.
func NewBcrypt(cost int) *Bcrypt {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Bcrypt{cost: cost}
}

func (h *Bcrypt) Cost() int { return h.cost }

func (h *Bcrypt) Hash(plaintext string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
}

func (h *Bcrypt) Compare(hash []byte, plaintext string) bool {
	return bcrypt.CompareHashAndPassword(hash, []byte(plaintext)) == nil
}

// Plain keeps passwords as they are. Tests only.
type Plain struct{}

func (Plain) Hash(plaintext string) ([]byte, error) { return []byte(plaintext), nil }

func (Plain) Compare(hash []byte, plaintext string) bool { return string(hash) == plaintext }

var (
	_ ports.Hasher = (*Bcrypt)(nil)
	_ ports.Hasher = Plain{}
)

// HashString hashes plaintext into the string form written to config files.
func HashString(h ports.Hasher, plaintext string) (string, error) {
	if plaintext == "" {
		return "", ErrEmptyPassword
	}
	b, err := h.Hash(plaintext)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Inspect returns the cost of a bcrypt hash read from config, or an error
// when the string is not a bcrypt hash.
func Inspect(hash string) (int, error) {
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		return 0, fmt.Errorf("not a bcrypt hash: %w", err)
	}
	return cost, nil
}
