package domain

import "time"

// RefreshToken represents a persisted refresh token. The opaque value is stored
// as a hash; the raw value only ever travels back to the client.
type RefreshToken struct {
	ID        string
	AccountID string
	TokenHash string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// IsExpired reports whether the token has elapsed its validity window.
func (t RefreshToken) IsExpired(at time.Time) bool {
	return !t.ExpiresAt.After(at)
}
