package auth_test

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/artpar/autoadmin/adapters/auth"
	"github.com/artpar/autoadmin/adapters/random"
	"github.com/artpar/autoadmin/ports"
)

// fakeNow is a settable time source.
type fakeNow struct {
	mu sync.Mutex
	t  time.Time
}

func (f *fakeNow) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeNow) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.t = f.t.Add(d)
}

var root = ports.CurrentAdmin{ID: "root@example.com", Email: "root@example.com", Role: "admin"}

func newSessions(t *testing.T, ttl time.Duration) (*auth.Sessions, *fakeNow) {
	t.Helper()
	clock := &fakeNow{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	s, err := auth.NewSessions("test-secret", ttl, auth.WithNow(clock.Now))
	if err != nil {
		t.Fatalf("NewSessions failed: %v", err)
	}
	return s, clock
}

func TestNewSessions_RequiresSecret(t *testing.T) {
	if _, err := auth.NewSessions("", time.Hour); err == nil {
		t.Error("expected error for empty secret")
	}
}

func TestNewSessions_DefaultTTL(t *testing.T) {
	s, clock := newSessions(t, 0)
	if s.TTL() != auth.DefaultSessionTTL {
		t.Errorf("TTL() = %v, want %v", s.TTL(), auth.DefaultSessionTTL)
	}

	_, expiresAt, err := s.Issue(root)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if want := clock.Now().Add(24 * time.Hour); !expiresAt.Equal(want) {
		t.Errorf("expiresAt = %v, want %v", expiresAt, want)
	}
}

func TestSessions_IssueVerify(t *testing.T) {
	s, _ := newSessions(t, time.Hour)

	token, _, err := s.Issue(root)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if parts := strings.Split(token, "."); len(parts) != 3 {
		t.Errorf("expected JWT format with 3 parts, got %d", len(parts))
	}

	got, err := s.Verify(token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if got != root {
		t.Errorf("Verify() = %+v, want %+v", got, root)
	}
}

func TestSessions_VerifyRejects(t *testing.T) {
	s, _ := newSessions(t, time.Hour)
	other, err := auth.NewSessions("other-secret", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	token, _, _ := s.Issue(root)
	foreign, _, _ := other.Issue(root)

	for name, tok := range map[string]string{
		"garbage":      "invalid-token",
		"tampered":     token + "x",
		"wrong secret": foreign,
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := s.Verify(tok); !errors.Is(err, auth.ErrInvalidSession) {
				t.Errorf("err = %v, want ErrInvalidSession", err)
			}
		})
	}
}

func TestSessions_Expired(t *testing.T) {
	s, clock := newSessions(t, time.Hour)
	token, _, _ := s.Issue(root)

	clock.Advance(2 * time.Hour)

	if _, err := s.Verify(token); !errors.Is(err, auth.ErrSessionExpired) {
		t.Errorf("err = %v, want ErrSessionExpired", err)
	}
}

func TestSessions_Renew(t *testing.T) {
	s, clock := newSessions(t, time.Hour)
	token, firstExpiry, _ := s.Issue(root)

	fresh, expiresAt, err := s.Renew(token)
	if err != nil {
		t.Fatalf("Renew failed: %v", err)
	}
	if fresh != "" || !expiresAt.Equal(firstExpiry) {
		t.Errorf("fresh session renewed: %q %v", fresh, expiresAt)
	}

	clock.Advance(40 * time.Minute)
	renewed, expiresAt, err := s.Renew(token)
	if err != nil {
		t.Fatalf("Renew failed: %v", err)
	}
	if renewed == "" || !expiresAt.After(firstExpiry) {
		t.Errorf("old session not renewed: %q %v", renewed, expiresAt)
	}
	if got, err := s.Verify(renewed); err != nil || got != root {
		t.Errorf("renewed Verify() = %+v, %v", got, err)
	}

	clock.Advance(2 * time.Hour)
	if _, _, err := s.Renew(token); !errors.Is(err, auth.ErrSessionExpired) {
		t.Errorf("err = %v, want ErrSessionExpired", err)
	}
}

func TestGenerateSecret(t *testing.T) {
	secret1, err := auth.GenerateSecret(random.Real{})
	if err != nil {
		t.Fatalf("GenerateSecret failed: %v", err)
	}
	secret2, _ := auth.GenerateSecret(random.Real{})

	if len(secret1) != 64 {
		t.Errorf("expected 64 char hex string, got %d chars", len(secret1))
	}
	if secret1 == secret2 {
		t.Error("secrets should be different")
	}

	fixed, _ := auth.GenerateSecret(random.NewFake(0))
	if !strings.HasPrefix(fixed, "00010203") {
		t.Errorf("fake secret = %s", fixed)
	}
}
