// Package accounts declares the repository contract for account records and
// its PostgreSQL implementation.
package accounts

import (
	"context"

	"github.com/dmitrijs2005/taskdesk/internal/server/models"
)

// Repository defines account storage operations. Implementations are bound to
// a dbx.DBTX so the caller decides which transaction they run in.
type Repository interface {
	// Create inserts the account and fills in its ID and CreatedAt.
	Create(ctx context.Context, account *models.Account) (*models.Account, error)
	// CreateProfile inserts the profile row of a freshly created account.
	CreateProfile(ctx context.Context, accountID string, profile models.Profile) error

	// GetByEmail and GetByID return common.ErrorNotFound when absent.
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	GetByID(ctx context.Context, id string) (*models.Account, error)

	// Authority returns the current role and enabled flag of an account.
	Authority(ctx context.Context, id string) (role string, enabled bool, err error)

	// ToggleEnabled flips the enabled flag and returns the new value.
	ToggleEnabled(ctx context.Context, id string) (bool, error)
	SetRole(ctx context.Context, id string, role string) error
	TouchLastLogin(ctx context.Context, id string) error

	// SafeDelete runs the cascading delete procedure. ok=false carries the
	// reason the procedure refused; nothing was changed in that case.
	SafeDelete(ctx context.Context, targetID, actorID string) (ok bool, reason string, err error)

	List(ctx context.Context) ([]models.AccountSummary, error)
	Details(ctx context.Context, id string) (*models.AccountDetails, error)
}
