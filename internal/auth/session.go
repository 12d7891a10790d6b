package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/edusupport/helpdesk-service/internal/domain"
	"github.com/edusupport/helpdesk-service/internal/repository"
)

// Validation failures for refresh sessions.
var (
	ErrSessionNotFound = errors.New("refresh session not found")
	ErrSessionExpired  = errors.New("refresh session expired")
)

const refreshTokenBytes = 32

// SessionManager owns the lifecycle of opaque refresh tokens. Tokens are
// 256-bit random values handed to the client once; only their SHA-256 digest
// is persisted. Each user holds at most one session: issuing replaces any
// prior session atomically, so concurrent logins resolve to last-commit-wins.
type SessionManager struct {
	sessions repository.RefreshSessionRepository
	ttl      time.Duration
}

// NewSessionManager builds the manager.
func NewSessionManager(sessions repository.RefreshSessionRepository, ttl time.Duration) *SessionManager {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &SessionManager{sessions: sessions, ttl: ttl}
}

// Issue generates a fresh opaque token for the user and atomically replaces
// any existing session. The returned value is the plaintext token; it is
// never stored.
func (m *SessionManager) Issue(ctx context.Context, userID string) (string, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	token := hex.EncodeToString(buf)

	now := time.Now()
	session := &domain.RefreshSession{
		UserID:    userID,
		TokenHash: HashToken(token),
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
	if err := m.sessions.Replace(ctx, session); err != nil {
		return "", err
	}
	return token, nil
}

// Validate resolves an opaque token to the owning user ID. The token is not
// rotated; the same value stays valid until expiry, logout or a newer login.
func (m *SessionManager) Validate(ctx context.Context, token string) (string, error) {
	session, err := m.sessions.GetByTokenHash(ctx, HashToken(token))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrSessionNotFound
		}
		return "", err
	}
	if session.Expired(time.Now()) {
		return "", ErrSessionExpired
	}
	return session.UserID, nil
}

// Revoke deletes the session matching the token. Idempotent; a missing
// session is not an error.
func (m *SessionManager) Revoke(ctx context.Context, token string) error {
	return m.sessions.DeleteByTokenHash(ctx, HashToken(token))
}

// RevokeAll deletes every session for the user.
func (m *SessionManager) RevokeAll(ctx context.Context, userID string) error {
	return m.sessions.DeleteByUser(ctx, userID)
}

// TTL returns the configured refresh session lifetime.
func (m *SessionManager) TTL() time.Duration {
	return m.ttl
}

// HashToken computes the hex-encoded SHA-256 digest stored at rest.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
