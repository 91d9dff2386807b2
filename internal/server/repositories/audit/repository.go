// Package audit stores the trail of committed privileged mutations.
package audit

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/taskdesk/internal/dbx"
	"github.com/dmitrijs2005/taskdesk/internal/server/models"
)

// Actions recorded by the admin service.
const (
	ActionEnable            = "account.enable"
	ActionDisable           = "account.disable"
	ActionChangeRole        = "account.role"
	ActionDelete            = "account.delete"
	ActionInvalidateSession = "session.invalidate"
)

type Repository interface {
	Record(ctx context.Context, entry models.AuditEntry) error
}

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Record must run on the mutation's own transaction so the entry commits or
// rolls back with it.
func (r *PostgresRepository) Record(ctx context.Context, e models.AuditEntry) error {
	query := `
		INSERT INTO admin_audit (actor_id, action, target_id, detail)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := r.db.ExecContext(ctx, query, e.ActorID, e.Action, e.TargetID, e.Detail); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
