package common

// SessionCookieName is the cookie carrying the opaque session token.
const SessionCookieName = "session_token"

// SessionTokenBytes is the entropy of a session token; the hex form is twice
// as long.
const SessionTokenBytes = 32

// Account roles.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// ValidRole reports whether role is one of the recognised account roles.
func ValidRole(role string) bool {
	return role == RoleUser || role == RoleAdmin
}
