package services

import (
	"context"
	"database/sql"
	"errors"

	"github.com/dmitrijs2005/taskdesk/internal/common"
	"github.com/dmitrijs2005/taskdesk/internal/dbx"
	"github.com/dmitrijs2005/taskdesk/internal/logging"
	"github.com/dmitrijs2005/taskdesk/internal/server/config"
	"github.com/dmitrijs2005/taskdesk/internal/server/models"
	"github.com/dmitrijs2005/taskdesk/internal/server/repositories/audit"
	"github.com/dmitrijs2005/taskdesk/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// recentSessions is how many sessions AccountDetails returns.
const recentSessions = 10

// AdminService runs privileged mutations. Each one opens its own
// transaction, re-reads the actor's authority inside it and writes an audit
// row before committing.
type AdminService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	retries     int
	log         logging.Logger
}

func NewAdminService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, log logging.Logger) *AdminService {
	return &AdminService{
		db:          db,
		repomanager: m,
		retries:     cfg.TxRetries,
		log:         log.With("module", "admin"),
	}
}

// requireAdmin must be called on the mutation's transaction. It returns the
// actor id in canonical form.
func (s *AdminService) requireAdmin(ctx context.Context, tx dbx.DBTX, actorID string) (string, error) {
	actor, ok := canonicalID(actorID)
	if !ok {
		return "", common.ErrAuthorizationDenied
	}
	role, enabled, err := s.repomanager.Accounts(tx).Authority(ctx, actor)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", common.ErrAuthorizationDenied
		}
		return "", err
	}
	if role != common.RoleAdmin || !enabled {
		return "", common.ErrAuthorizationDenied
	}
	return actor, nil
}

// canonicalID parses id as a UUID and returns its lower-case hyphenated
// form. Upper-case, braced, urn:uuid: and hyphenless spellings of one UUID
// all map to the same string.
func canonicalID(id string) (string, bool) {
	u, err := uuid.Parse(id)
	if err != nil {
		return "", false
	}
	return u.String(), true
}

// authorizeTarget checks the actor's authority and then the target id. The
// self-action prohibition compares canonical ids.
func (s *AdminService) authorizeTarget(ctx context.Context, tx dbx.DBTX, actorID, targetID string) (actor, target string, err error) {
	actor, err = s.requireAdmin(ctx, tx, actorID)
	if err != nil {
		return "", "", err
	}
	target, ok := canonicalID(targetID)
	if !ok {
		return "", "", common.ErrorNotFound
	}
	if actor == target {
		return "", "", common.ErrAuthorizationDenied
	}
	return actor, target, nil
}

// result converts a transaction error into the service error surface and
// logs anything that is not an expected rejection.
func (s *AdminService) result(ctx context.Context, op string, err error, args ...any) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, common.ErrAuthorizationDenied),
		errors.Is(err, common.ErrPreconditionViolated),
		errors.Is(err, common.ErrorNotFound):
		s.log.Info(ctx, op+" rejected", append(args, "reason", err.Error())...)
		return err
	case dbx.IsSerializationFailure(err):
		s.log.Warn(ctx, op+" conflicted", append(args, "error", err)...)
		return common.ErrConflict
	default:
		s.log.Error(ctx, op+" failed", append(args, "error", err)...)
		return common.ErrStorage
	}
}

// ToggleEnabled flips the target's enabled flag and returns the new value.
// Disabling retires all of the target's sessions in the same transaction.
// A serialization failure is reported as common.ErrConflict and not retried,
// since a second attempt would flip the flag back.
func (s *AdminService) ToggleEnabled(ctx context.Context, actorID, targetID string) (bool, error) {
	var enabled bool
	err := dbx.WithTx(ctx, s.db, dbx.Serializable(), func(ctx context.Context, tx dbx.DBTX) error {
		actor, target, err := s.authorizeTarget(ctx, tx, actorID, targetID)
		if err != nil {
			return err
		}

		enabled, err = s.repomanager.Accounts(tx).ToggleEnabled(ctx, target)
		if err != nil {
			return err
		}

		action := audit.ActionEnable
		if !enabled {
			action = audit.ActionDisable
			if _, err := s.repomanager.Sessions(tx).DeactivateForAccount(ctx, target); err != nil {
				return err
			}
		}
		return s.repomanager.Audit(tx).Record(ctx, models.AuditEntry{ActorID: actor, Action: action, TargetID: target})
	})
	if err != nil {
		return false, s.result(ctx, "toggle enabled", err, "actor_id", actorID, "target_id", targetID)
	}

	s.log.Info(ctx, "account toggled", "actor_id", actorID, "target_id", targetID, "enabled", enabled)
	return enabled, nil
}

// ChangeRole sets the target's role. It is retried on serialization
// failures.
func (s *AdminService) ChangeRole(ctx context.Context, actorID, targetID, role string) error {
	err := dbx.WithTxRetry(ctx, s.db, dbx.Serializable(), s.retries, func(ctx context.Context, tx dbx.DBTX) error {
		actor, target, err := s.authorizeTarget(ctx, tx, actorID, targetID)
		if err != nil {
			return err
		}
		if !common.ValidRole(role) {
			return common.Reject("invalid role")
		}
		if err := s.repomanager.Accounts(tx).SetRole(ctx, target, role); err != nil {
			return err
		}
		return s.repomanager.Audit(tx).Record(ctx, models.AuditEntry{
			ActorID: actor, Action: audit.ActionChangeRole, TargetID: target, Detail: role,
		})
	})
	if err != nil {
		return s.result(ctx, "change role", err, "actor_id", actorID, "target_id", targetID)
	}

	s.log.Info(ctx, "role changed", "actor_id", actorID, "target_id", targetID, "role", role)
	return nil
}

// SafeDelete removes the target through the safe_delete_account procedure,
// which reassigns the target's tasks to the actor. A refusal comes back as a
// *common.ReasonError and leaves everything unchanged.
func (s *AdminService) SafeDelete(ctx context.Context, actorID, targetID string) error {
	err := dbx.WithTxRetry(ctx, s.db, dbx.Serializable(), s.retries, func(ctx context.Context, tx dbx.DBTX) error {
		actor, target, err := s.authorizeTarget(ctx, tx, actorID, targetID)
		if err != nil {
			return err
		}
		ok, reason, err := s.repomanager.Accounts(tx).SafeDelete(ctx, target, actor)
		if err != nil {
			return err
		}
		if !ok {
			return common.Reject(reason)
		}
		return s.repomanager.Audit(tx).Record(ctx, models.AuditEntry{ActorID: actor, Action: audit.ActionDelete, TargetID: target})
	})
	if err != nil {
		return s.result(ctx, "safe delete", err, "actor_id", actorID, "target_id", targetID)
	}

	s.log.Info(ctx, "account deleted", "actor_id", actorID, "target_id", targetID)
	return nil
}

// InvalidateSession retires a single session. An admin may retire their own.
func (s *AdminService) InvalidateSession(ctx context.Context, actorID, sessionID string) error {
	err := dbx.WithTx(ctx, s.db, dbx.ReadCommitted(), func(ctx context.Context, tx dbx.DBTX) error {
		actor, err := s.requireAdmin(ctx, tx, actorID)
		if err != nil {
			return err
		}
		session, ok := canonicalID(sessionID)
		if !ok {
			return common.ErrorNotFound
		}
		if err := s.repomanager.Sessions(tx).DeactivateByID(ctx, session); err != nil {
			return err
		}
		return s.repomanager.Audit(tx).Record(ctx, models.AuditEntry{
			ActorID: actor, Action: audit.ActionInvalidateSession, TargetID: session,
		})
	})
	if err != nil {
		return s.result(ctx, "invalidate session", err, "actor_id", actorID, "session_id", sessionID)
	}

	s.log.Info(ctx, "session invalidated", "actor_id", actorID, "session_id", sessionID)
	return nil
}

func (s *AdminService) Dashboard(ctx context.Context, actorID string) (*models.DashboardStats, error) {
	var stats *models.DashboardStats
	err := dbx.WithTx(ctx, s.db, dbx.ReadCommitted(), func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.requireAdmin(ctx, tx, actorID); err != nil {
			return err
		}
		var err error
		stats, err = s.repomanager.Dashboard(tx).Stats(ctx)
		return err
	})
	if err != nil {
		return nil, s.result(ctx, "dashboard", err, "actor_id", actorID)
	}
	return stats, nil
}

func (s *AdminService) ListAccounts(ctx context.Context, actorID string) ([]models.AccountSummary, error) {
	var list []models.AccountSummary
	err := dbx.WithTx(ctx, s.db, dbx.ReadCommitted(), func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.requireAdmin(ctx, tx, actorID); err != nil {
			return err
		}
		var err error
		list, err = s.repomanager.Accounts(tx).List(ctx)
		return err
	})
	if err != nil {
		return nil, s.result(ctx, "list accounts", err, "actor_id", actorID)
	}
	return list, nil
}

// AccountDetails returns the account, its profile and its most recent
// sessions.
func (s *AdminService) AccountDetails(ctx context.Context, actorID, targetID string) (*models.AccountDetails, error) {
	var details *models.AccountDetails
	err := dbx.WithTx(ctx, s.db, dbx.ReadCommitted(), func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.requireAdmin(ctx, tx, actorID); err != nil {
			return err
		}
		target, ok := canonicalID(targetID)
		if !ok {
			return common.ErrorNotFound
		}
		var err error
		details, err = s.repomanager.Accounts(tx).Details(ctx, target)
		if err != nil {
			return err
		}
		details.Sessions, err = s.repomanager.Sessions(tx).ListForAccount(ctx, target, recentSessions)
		return err
	})
	if err != nil {
		return nil, s.result(ctx, "account details", err, "actor_id", actorID, "target_id", targetID)
	}
	return details, nil
}
