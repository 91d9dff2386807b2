// Package services contains server-side business logic: the session store,
// the authentication flow and the guarded administrative mutations.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/taskdesk/internal/common"
	"github.com/dmitrijs2005/taskdesk/internal/dbx"
	"github.com/dmitrijs2005/taskdesk/internal/logging"
	"github.com/dmitrijs2005/taskdesk/internal/server/config"
	"github.com/dmitrijs2005/taskdesk/internal/server/models"
	"github.com/dmitrijs2005/taskdesk/internal/server/repositories/repomanager"
)

// SessionService issues and resolves opaque session tokens. The token is the
// only credential a client holds; every check goes back to the store.
type SessionService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	ttl         time.Duration
	log         logging.Logger
}

func NewSessionService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, log logging.Logger) *SessionService {
	return &SessionService{
		db:          db,
		repomanager: m,
		ttl:         cfg.SessionTTL,
		log:         log.With("module", "sessions"),
	}
}

// TTL is the lifetime given to new and extended sessions.
func (s *SessionService) TTL() time.Duration {
	return s.ttl
}

// Issue creates a session for an already authenticated account and records
// the login time in the same transaction. Failures match
// common.ErrSessionCreation.
func (s *SessionService) Issue(ctx context.Context, accountID, ip, userAgent string) (*models.Session, error) {
	token, err := common.MakeRandHexString(common.SessionTokenBytes)
	if err != nil {
		s.log.Error(ctx, "token generation failed", "error", err)
		return nil, common.ErrSessionCreation
	}

	session := &models.Session{
		AccountID: accountID,
		Token:     token,
		IPAddress: ip,
		UserAgent: userAgent,
		IsActive:  true,
	}

	err = dbx.WithTx(ctx, s.db, dbx.ReadCommitted(), func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Sessions(tx).Create(ctx, session, s.ttl); err != nil {
			return fmt.Errorf("create session: %w", err)
		}
		if err := s.repomanager.Accounts(tx).TouchLastLogin(ctx, accountID); err != nil {
			return fmt.Errorf("touch last login: %w", err)
		}
		return nil
	})
	if err != nil {
		s.log.Error(ctx, "session issue failed", "account_id", accountID, "error", err)
		return nil, fmt.Errorf("%w: %w", common.ErrSessionCreation, common.ErrStorage)
	}

	s.log.Info(ctx, "session issued", "account_id", accountID, "session_id", session.ID, "ip", ip)
	return session, nil
}

// Validate resolves a token to its identity. A missing, retired or expired
// session and a disabled account all yield common.ErrSessionInvalid.
func (s *SessionService) Validate(ctx context.Context, token string) (*models.Identity, error) {
	if !common.IsSessionToken(token) {
		return nil, common.ErrSessionInvalid
	}
	id, err := s.repomanager.Sessions(s.db).FindIdentity(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrSessionInvalid
		}
		s.log.Error(ctx, "session lookup failed", "error", err)
		return nil, common.ErrStorage
	}
	return id, nil
}

// Revoke retires the session. Revoking an unknown or already retired token
// succeeds.
func (s *SessionService) Revoke(ctx context.Context, token string) error {
	if !common.IsSessionToken(token) {
		return nil
	}
	if err := s.repomanager.Sessions(s.db).Deactivate(ctx, token); err != nil {
		s.log.Error(ctx, "session revoke failed", "error", err)
		return common.ErrStorage
	}
	return nil
}

// Extend slides the expiry of a live session to now+TTL on the database
// clock and returns the stored expiry. It reports false when the session is
// no longer live.
func (s *SessionService) Extend(ctx context.Context, token string) (time.Time, bool, error) {
	if !common.IsSessionToken(token) {
		return time.Time{}, false, nil
	}
	expiresAt, ok, err := s.repomanager.Sessions(s.db).Extend(ctx, token, s.ttl)
	if err != nil {
		s.log.Error(ctx, "session extend failed", "error", err)
		return time.Time{}, false, common.ErrStorage
	}
	return expiresAt, ok, nil
}

// SweepExpired retires every expired session that is still marked active.
func (s *SessionService) SweepExpired(ctx context.Context) (int64, error) {
	n, err := s.repomanager.Sessions(s.db).SweepExpired(ctx)
	if err != nil {
		s.log.Error(ctx, "session sweep failed", "error", err)
		return 0, common.ErrStorage
	}
	if n > 0 {
		s.log.Info(ctx, "expired sessions retired", "count", n)
	}
	return n, nil
}

// RunSweeper calls SweepExpired every interval until ctx is done.
func (s *SessionService) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = s.SweepExpired(ctx)
		}
	}
}
