package models

import "time"

// Session is a server-side record of one bearer token. Rows are retired by
// clearing IsActive and are never deleted by the normal flow.
type Session struct {
	ID        string
	AccountID string
	Token     string
	IPAddress string
	UserAgent string
	CreatedAt time.Time
	ExpiresAt time.Time
	IsActive  bool
}

// SessionInfo is the token-free view of a session shown to admins.
type SessionInfo struct {
	ID        string    `json:"id"`
	IPAddress string    `json:"ip_address"`
	UserAgent string    `json:"user_agent"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	IsActive  bool      `json:"is_active"`
	Expired   bool      `json:"expired"`
}
