package domain

import "time"

// RefreshSession is the persisted record of a long-lived opaque refresh
// credential. Only the SHA-256 digest of the token is stored. At most one
// session exists per user; a new login replaces any prior session.
type RefreshSession struct {
	ID        string
	UserID    string
	TokenHash string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the session has passed its expiry.
func (s *RefreshSession) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
