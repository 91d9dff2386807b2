// Package models defines the records persisted by taskdesk and the values
// returned to callers of the services.
package models

import "time"

// Account is an identity record. PasswordHash is never serialised.
type Account struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	FirstName    string     `json:"firstname"`
	LastName     string     `json:"lastname"`
	Role         string     `json:"role"`
	Enabled      bool       `json:"enabled"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
}

// Profile holds optional account details created together with the account.
type Profile struct {
	Bio       string `json:"bio"`
	Phone     string `json:"phone"`
	AvatarURL string `json:"avatar_url"`
}

// Identity is what a valid session resolves to.
type Identity struct {
	AccountID string    `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstname"`
	LastName  string    `json:"lastname"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IsAdmin reports whether the identity carried the admin role when the
// session was validated. Privileged mutations re-check it in the store.
func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == "admin"
}

// AccountSummary is one row of the admin account list.
type AccountSummary struct {
	Account
	ActiveSessions int `json:"active_sessions"`
	AssignedTasks  int `json:"assigned_tasks"`
}

// AccountDetails is the admin view of a single account.
type AccountDetails struct {
	Account
	Profile  Profile       `json:"profile"`
	Sessions []SessionInfo `json:"sessions"`
}

// AuditEntry records one committed privileged mutation.
type AuditEntry struct {
	ActorID  string
	Action   string
	TargetID string
	Detail   string
}
