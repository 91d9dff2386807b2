package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/taskdesk/internal/dbx"
	"github.com/dmitrijs2005/taskdesk/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/taskdesk/internal/server/repositories/audit"
	"github.com/dmitrijs2005/taskdesk/internal/server/repositories/dashboard"
	"github.com/dmitrijs2005/taskdesk/internal/server/repositories/sessions"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Accounts(db dbx.DBTX) accounts.Repository
	Sessions(db dbx.DBTX) sessions.Repository
	Audit(db dbx.DBTX) audit.Repository
	Dashboard(db dbx.DBTX) dashboard.Repository
}
