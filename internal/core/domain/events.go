package domain

import "time"

// AccountRegisteredEvent represents the payload for lsm.account.registered messages.
type AccountRegisteredEvent struct {
	EventID      string
	AccountID    string
	Username     string
	Email        string
	Role         AccountRole
	RegisteredAt time.Time
	Metadata     map[string]any
}

// AccountLoginEvent represents the payload for lsm.account.login messages.
type AccountLoginEvent struct {
	EventID   string
	AccountID string
	Username  string
	Role      AccountRole
	ClientIP  *string
	UserAgent *string
	LoginAt   time.Time
	Metadata  map[string]any
}

// AccountLogoutEvent represents the payload for lsm.account.logout messages.
type AccountLogoutEvent struct {
	EventID       string
	AccountID     string
	Username      string
	TokensRemoved int
	LogoutAt      time.Time
	Metadata      map[string]any
}
