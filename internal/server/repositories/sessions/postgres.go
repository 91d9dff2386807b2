package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

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

func (r *PostgresRepository) Create(ctx context.Context, s *models.Session, ttl time.Duration) error {
	query := `
		INSERT INTO sessions (account_id, token, ip_address, user_agent, expires_at)
		VALUES ($1, $2, $3, $4, now() + make_interval(secs => $5))
		RETURNING id, created_at, expires_at
	`
	err := r.db.QueryRowContext(ctx, query, s.AccountID, s.Token, s.IPAddress, s.UserAgent, ttl.Seconds()).
		Scan(&s.ID, &s.CreatedAt, &s.ExpiresAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	s.IsActive = true
	return nil
}

func (r *PostgresRepository) FindIdentity(ctx context.Context, token string) (*models.Identity, error) {
	query := `
		SELECT a.id, a.email, a.firstname, a.lastname, a.role, s.expires_at
		FROM sessions s
		INNER JOIN accounts a ON s.account_id = a.id
		WHERE s.token = $1
		  AND s.is_active
		  AND s.expires_at > now()
		  AND a.enabled
	`
	id := &models.Identity{}
	err := r.db.QueryRowContext(ctx, query, token).
		Scan(&id.AccountID, &id.Email, &id.FirstName, &id.LastName, &id.Role, &id.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return id, nil
}

func (r *PostgresRepository) Deactivate(ctx context.Context, token string) error {
	query := `
		UPDATE sessions SET is_active = FALSE
		WHERE token = $1 AND is_active
	`
	if _, err := r.db.ExecContext(ctx, query, token); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeactivateByID(ctx context.Context, id string) error {
	query := `
		UPDATE sessions SET is_active = FALSE
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query, id)
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

func (r *PostgresRepository) DeactivateForAccount(ctx context.Context, accountID string) (int64, error) {
	query := `
		UPDATE sessions SET is_active = FALSE
		WHERE account_id = $1 AND is_active
	`
	return r.execCount(ctx, query, accountID)
}

func (r *PostgresRepository) Extend(ctx context.Context, token string, ttl time.Duration) (time.Time, bool, error) {
	query := `
		UPDATE sessions SET expires_at = now() + make_interval(secs => $1)
		WHERE token = $2
		  AND is_active
		  AND expires_at > now()
		RETURNING expires_at
	`
	var expiresAt time.Time
	err := r.db.QueryRowContext(ctx, query, ttl.Seconds(), token).Scan(&expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("db error: %w", err)
	}
	return expiresAt, true, nil
}

func (r *PostgresRepository) SweepExpired(ctx context.Context) (int64, error) {
	query := `
		UPDATE sessions SET is_active = FALSE
		WHERE expires_at <= now() AND is_active
	`
	return r.execCount(ctx, query)
}

func (r *PostgresRepository) ListForAccount(ctx context.Context, accountID string, limit int) ([]models.SessionInfo, error) {
	query := `
		SELECT id, ip_address, user_agent, created_at, expires_at, is_active, expires_at <= now() AS expired
		FROM sessions
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	out := make([]models.SessionInfo, 0, limit)
	for rows.Next() {
		var s models.SessionInfo
		if err := rows.Scan(&s.ID, &s.IPAddress, &s.UserAgent, &s.CreatedAt, &s.ExpiresAt, &s.IsActive, &s.Expired); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) execCount(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
