package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/taskdesk/internal/common"
	"github.com/dmitrijs2005/taskdesk/internal/dbx"
	"github.com/dmitrijs2005/taskdesk/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	query := `
		INSERT INTO accounts (email, password_hash, firstname, lastname, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, enabled, created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		account.Email, account.PasswordHash, account.FirstName, account.LastName, account.Role,
	).Scan(&account.ID, &account.Enabled, &account.CreatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return account, nil
}

func (r *PostgresRepository) CreateProfile(ctx context.Context, accountID string, profile models.Profile) error {
	query := `
		INSERT INTO account_profiles (account_id, bio, phone, avatar_url)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := r.db.ExecContext(ctx, query, accountID, profile.Bio, profile.Phone, profile.AvatarURL); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

const selectAccount = `
		SELECT id, email, password_hash, firstname, lastname, role, enabled, created_at, last_login
		FROM accounts
	`

func scanAccount(row *sql.Row) (*models.Account, error) {
	a := &models.Account{}
	var lastLogin sql.NullTime
	err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.FirstName, &a.LastName, &a.Role, &a.Enabled, &a.CreatedAt, &lastLogin)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if lastLogin.Valid {
		a.LastLogin = &lastLogin.Time
	}
	return a, nil
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	return scanAccount(r.db.QueryRowContext(ctx, selectAccount+`WHERE email = $1`, email))
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	return scanAccount(r.db.QueryRowContext(ctx, selectAccount+`WHERE id = $1`, id))
}

func (r *PostgresRepository) Authority(ctx context.Context, id string) (string, bool, error) {
	query := `
		SELECT role, enabled FROM accounts
		WHERE id = $1
	`
	var role string
	var enabled bool
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&role, &enabled); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, common.ErrorNotFound
		}
		return "", false, fmt.Errorf("db error: %w", err)
	}
	return role, enabled, nil
}

func (r *PostgresRepository) ToggleEnabled(ctx context.Context, id string) (bool, error) {
	query := `
		UPDATE accounts SET enabled = NOT enabled
		WHERE id = $1
		RETURNING enabled
	`
	var enabled bool
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&enabled); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, common.ErrorNotFound
		}
		return false, fmt.Errorf("db error: %w", err)
	}
	return enabled, nil
}

func (r *PostgresRepository) SetRole(ctx context.Context, id string, role string) error {
	query := `
		UPDATE accounts SET role = $1
		WHERE id = $2
	`
	res, err := r.db.ExecContext(ctx, query, role, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) TouchLastLogin(ctx context.Context, id string) error {
	query := `
		UPDATE accounts SET last_login = now()
		WHERE id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) SafeDelete(ctx context.Context, targetID, actorID string) (bool, string, error) {
	query := `
		SELECT ok, reason FROM safe_delete_account($1, $2)
	`
	var ok bool
	var reason string
	if err := r.db.QueryRowContext(ctx, query, targetID, actorID).Scan(&ok, &reason); err != nil {
		return false, "", fmt.Errorf("db error: %w", err)
	}
	return ok, reason, nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]models.AccountSummary, error) {
	query := `
		SELECT a.id, a.email, a.firstname, a.lastname, a.role, a.enabled, a.created_at, a.last_login,
		       (SELECT count(*) FROM sessions s
		         WHERE s.account_id = a.id AND s.is_active AND s.expires_at > now()) AS active_sessions,
		       (SELECT count(*) FROM task_assignments ta
		         WHERE ta.account_id = a.id) AS assigned_tasks
		FROM accounts a
		ORDER BY a.created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []models.AccountSummary
	for rows.Next() {
		var s models.AccountSummary
		var lastLogin sql.NullTime
		if err := rows.Scan(&s.ID, &s.Email, &s.FirstName, &s.LastName, &s.Role, &s.Enabled, &s.CreatedAt, &lastLogin,
			&s.ActiveSessions, &s.AssignedTasks); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		if lastLogin.Valid {
			s.LastLogin = &lastLogin.Time
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) Details(ctx context.Context, id string) (*models.AccountDetails, error) {
	query := `
		SELECT a.id, a.email, a.firstname, a.lastname, a.role, a.enabled, a.created_at, a.last_login,
		       COALESCE(p.bio, ''), COALESCE(p.phone, ''), COALESCE(p.avatar_url, '')
		FROM accounts a
		LEFT JOIN account_profiles p ON p.account_id = a.id
		WHERE a.id = $1
	`
	d := &models.AccountDetails{}
	var lastLogin sql.NullTime
	err := r.db.QueryRowContext(ctx, query, id).Scan(&d.ID, &d.Email, &d.FirstName, &d.LastName, &d.Role, &d.Enabled, &d.CreatedAt, &lastLogin,
		&d.Profile.Bio, &d.Profile.Phone, &d.Profile.AvatarURL)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if lastLogin.Valid {
		d.LastLogin = &lastLogin.Time
	}
	return d, nil
}
