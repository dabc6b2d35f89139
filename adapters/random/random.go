// Package random provides sources of secret material, such as the session
// signing key generated when none is configured.
package random

import (
	"crypto/rand"
	"encoding/hex"
	"sync"

	"github.com/artpar/autoadmin/ports"
)

// Real uses crypto/rand.
type Real struct{}

// Bytes generates n cryptographically secure random bytes.
func (Real) Bytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

// Hex generates n random bytes and returns them hex encoded.
func (r Real) Hex(n int) (string, error) {
	return hexOf(r, n)
}

// Fake returns a repeatable byte sequence for tests.
type Fake struct {
	mu   sync.Mutex
	seed byte
}

// NewFake creates a fake source whose first byte is seed.
func NewFake(seed byte) *Fake {
	return &Fake{seed: seed}
}

func (f *Fake) Bytes(n int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	b := make([]byte, n)
	for i := range b {
		b[i] = f.seed
		f.seed++
	}
	return b, nil
}

func (f *Fake) Hex(n int) (string, error) {
	return hexOf(f, n)
}

func hexOf(src interface{ Bytes(int) ([]byte, error) }, n int) (string, error) {
	b, err := src.Bytes(n)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

var (
	_ ports.Random = Real{}
	_ ports.Random = (*Fake)(nil)
)
