// Package sessions declares the server-side repository contract for session
// rows and its PostgreSQL implementation.
package sessions

import (
	"context"
	"time"

	"github.com/dmitrijs2005/taskdesk/internal/server/models"
)

// Repository defines operations on session rows. Rows are only ever retired
// (is_active = false), never deleted.
type Repository interface {
	// Create inserts a new active session expiring ttl after the database
	// clock and fills in its ID, CreatedAt and ExpiresAt.
	Create(ctx context.Context, session *models.Session, ttl time.Duration) error

	// FindIdentity resolves a token to the owning identity when the session
	// is active, unexpired and the account is enabled, all in one read.
	// Any failing condition yields common.ErrorNotFound.
	FindIdentity(ctx context.Context, token string) (*models.Identity, error)

	// Deactivate retires the session with the given token. Unknown or
	// already inactive tokens are not an error.
	Deactivate(ctx context.Context, token string) error

	// DeactivateByID retires one session by id; common.ErrorNotFound if no
	// such row exists.
	DeactivateByID(ctx context.Context, id string) error

	// DeactivateForAccount retires every active session of an account.
	DeactivateForAccount(ctx context.Context, accountID string) (int64, error)

	// Extend moves expires_at of an active, unexpired session to ttl after
	// the database clock and returns the stored value. ok is false when no
	// live session matched.
	Extend(ctx context.Context, token string, ttl time.Duration) (expiresAt time.Time, ok bool, err error)

	// SweepExpired retires every active session whose expiry has passed.
	SweepExpired(ctx context.Context) (int64, error)

	// ListForAccount returns the most recent sessions of an account.
	ListForAccount(ctx context.Context, accountID string, limit int) ([]models.SessionInfo, error)
}
