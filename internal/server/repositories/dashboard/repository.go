// Package dashboard reads the admin dashboard aggregation view.
package dashboard

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/taskdesk/internal/dbx"
	"github.com/dmitrijs2005/taskdesk/internal/server/models"
)

type Repository interface {
	Stats(ctx context.Context) (*models.DashboardStats, error)
}

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Stats(ctx context.Context) (*models.DashboardStats, error) {
	query := `
		SELECT total_accounts, enabled_accounts, disabled_accounts, admins, active_sessions, total_tasks
		FROM v_admin_dashboard
	`
	s := &models.DashboardStats{}
	err := r.db.QueryRowContext(ctx, query).
		Scan(&s.TotalAccounts, &s.EnabledAccounts, &s.DisabledAccounts, &s.Admins, &s.ActiveSessions, &s.TotalTasks)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return s, nil
}
