package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/edusupport/helpdesk-service/internal/domain"
)

func newTestTokenManager(t *testing.T, ttl time.Duration) *TokenManager {
	t.Helper()
	tm, err := NewTokenManager("test-secret", ttl)
	if err != nil {
		t.Fatalf("NewTokenManager: %v", err)
	}
	return tm
}

func testUser() *domain.User {
	return &domain.User{
		ID:    "u1",
		Name:  "Alice Martins",
		Email: "alice@school.example",
		Role:  domain.RoleRequester,
	}
}

func TestNewTokenManagerRequiresSecret(t *testing.T) {
	if _, err := NewTokenManager("", 15*time.Minute); !errors.Is(err, ErrNoSigningSecret) {
		t.Fatalf("expected ErrNoSigningSecret, got %v", err)
	}
}

func TestIssueAndVerifyRoundTrip(t *testing.T) {
	tm := newTestTokenManager(t, 15*time.Minute)

	token, expiresAt, err := tm.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	claims, err := tm.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Subject != "u1" {
		t.Fatalf("unexpected subject: %s", claims.Subject)
	}
	if claims.Name != "Alice Martins" || claims.Email != "alice@school.example" {
		t.Fatalf("identity fields not preserved: %+v", claims)
	}
	if claims.Role != domain.RoleRequester {
		t.Fatalf("unexpected role: %s", claims.Role)
	}

	lifetime := claims.ExpiresAt.Time.Sub(claims.IssuedAt.Time)
	if lifetime != 15*time.Minute {
		t.Fatalf("expected 900s lifetime, got %v", lifetime)
	}
	if !claims.ExpiresAt.Time.Equal(expiresAt.Truncate(time.Second)) {
		t.Fatalf("expiresAt mismatch: claims %v vs returned %v", claims.ExpiresAt.Time, expiresAt)
	}
}

func TestVerifyExpiredToken(t *testing.T) {
	tm := newTestTokenManager(t, time.Minute)
	// Issue with an already-elapsed lifetime by backdating the manager TTL.
	tm.ttl = -time.Minute

	token, _, err := tm.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := tm.Verify(token); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	tm := newTestTokenManager(t, 15*time.Minute)
	other, err := NewTokenManager("another-secret", 15*time.Minute)
	if err != nil {
		t.Fatalf("NewTokenManager: %v", err)
	}

	token, _, err := other.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := tm.Verify(token); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestVerifyRejectsTampering(t *testing.T) {
	tm := newTestTokenManager(t, 15*time.Minute)

	token, _, err := tm.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape: %d parts", len(parts))
	}

	flip := func(s string) string {
		b := []byte(s)
		i := len(b) / 2
		if b[i] == 'A' {
			b[i] = 'B'
		} else {
			b[i] = 'A'
		}
		return string(b)
	}

	tampered := []struct {
		name  string
		token string
	}{
		{"payload", parts[0] + "." + flip(parts[1]) + "." + parts[2]},
		{"signature", parts[0] + "." + parts[1] + "." + flip(parts[2])},
	}
	for _, tc := range tampered {
		if _, err := tm.Verify(tc.token); err == nil {
			t.Fatalf("%s tampering verified successfully", tc.name)
		} else if !errors.Is(err, ErrInvalidSignature) && !errors.Is(err, ErrMalformedToken) {
			t.Fatalf("%s tampering: unexpected error %v", tc.name, err)
		}
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	tm := newTestTokenManager(t, 15*time.Minute)
	if _, err := tm.Verify("not-a-token"); !errors.Is(err, ErrMalformedToken) {
		t.Fatalf("expected ErrMalformedToken, got %v", err)
	}
}
