package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/taskdesk/internal/common"
	"github.com/dmitrijs2005/taskdesk/internal/dbx"
	"github.com/dmitrijs2005/taskdesk/internal/logging"
	"github.com/dmitrijs2005/taskdesk/internal/server/auth"
	"github.com/dmitrijs2005/taskdesk/internal/server/models"
	"github.com/dmitrijs2005/taskdesk/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/taskdesk/internal/server/throttle"
)

type LoginRequest struct {
	Email     string
	Password  string
	IP        string
	UserAgent string
}

type LoginResult struct {
	Token     string
	Identity  *models.Identity
	ExpiresAt time.Time
}

type RegisterRequest struct {
	Email           string
	Password        string
	ConfirmPassword string
	FirstName       string
	LastName        string
	Profile         models.Profile
}

// AuthService drives login, logout and registration.
type AuthService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	verifier    *auth.Verifier
	throttle    *throttle.Throttle
	sessions    *SessionService
	log         logging.Logger
}

func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, verifier *auth.Verifier, th *throttle.Throttle, sessions *SessionService, log logging.Logger) *AuthService {
	return &AuthService{
		db:          db,
		repomanager: m,
		verifier:    verifier,
		throttle:    th,
		sessions:    sessions,
		log:         log.With("module", "auth"),
	}
}

// Login checks the credentials and issues a session. Unknown email and wrong
// password produce the same common.ErrAuthenticationFailed and both count as
// a throttle failure. A disabled account with a correct password gets
// common.ErrAccountDisabled and leaves the failure count alone.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	email := throttle.NormalizeIdentifier(req.Email)

	if err := s.throttle.CheckAndMaybeDelay(ctx, email); err != nil {
		s.log.Error(ctx, "throttle check failed", "error", err)
		return nil, common.ErrStorage
	}

	account, err := s.repomanager.Accounts(s.db).GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, common.ErrorNotFound) {
			s.log.Error(ctx, "account lookup failed", "error", err)
			return nil, common.ErrStorage
		}
		s.verifier.VerifyDummy(req.Password)
		return nil, s.failed(ctx, email, req.IP)
	}

	if !s.verifier.Verify(req.Password, account.PasswordHash) {
		return nil, s.failed(ctx, email, req.IP)
	}

	if !account.Enabled {
		s.log.Info(ctx, "login rejected, account disabled", "account_id", account.ID, "ip", req.IP)
		return nil, common.ErrAccountDisabled
	}

	if err := s.throttle.Reset(ctx, email); err != nil {
		s.log.Warn(ctx, "throttle reset failed", "error", err)
	}

	session, err := s.sessions.Issue(ctx, account.ID, req.IP, req.UserAgent)
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		Token: session.Token,
		Identity: &models.Identity{
			AccountID: account.ID,
			Email:     account.Email,
			FirstName: account.FirstName,
			LastName:  account.LastName,
			Role:      account.Role,
			ExpiresAt: session.ExpiresAt,
		},
		ExpiresAt: session.ExpiresAt,
	}, nil
}

func (s *AuthService) failed(ctx context.Context, email, ip string) error {
	if err := s.throttle.RecordFailure(ctx, email); err != nil {
		s.log.Warn(ctx, "throttle record failed", "error", err)
	}
	s.log.Info(ctx, "login failed", "ip", ip)
	return common.ErrAuthenticationFailed
}

// Logout retires the session behind token. It is safe to call repeatedly.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.sessions.Revoke(ctx, token)
}

// Register creates a user account together with its profile.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*models.Account, error) {
	return s.create(ctx, req, common.RoleUser)
}

// CreateAdmin creates an enabled admin account. It is meant for bootstrapping
// a fresh installation, not for the HTTP surface.
func (s *AuthService) CreateAdmin(ctx context.Context, req RegisterRequest) (*models.Account, error) {
	return s.create(ctx, req, common.RoleAdmin)
}

func (s *AuthService) create(ctx context.Context, req RegisterRequest, role string) (*models.Account, error) {
	email := throttle.NormalizeIdentifier(req.Email)
	if email == "" || req.Password == "" || strings.TrimSpace(req.FirstName) == "" || strings.TrimSpace(req.LastName) == "" {
		return nil, common.Reject("fill all fields")
	}
	if req.Password != req.ConfirmPassword {
		return nil, common.Reject("passwords do not match")
	}

	hash, err := s.verifier.Hash(req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return nil, common.Reject("password is too long")
		}
		s.log.Error(ctx, "password hash failed", "error", err)
		return nil, common.ErrStorage
	}

	account := &models.Account{
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Role:         role,
		Enabled:      true,
	}

	var created *models.Account
	err = dbx.WithTx(ctx, s.db, dbx.ReadCommitted(), func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Accounts(tx)
		var err error
		created, err = repo.Create(ctx, account)
		if err != nil {
			return err
		}
		if err := repo.CreateProfile(ctx, created.ID, req.Profile); err != nil {
			return fmt.Errorf("create profile: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, common.ErrorAlreadyExists
		}
		s.log.Error(ctx, "registration failed", "error", err)
		return nil, common.ErrStorage
	}

	s.log.Info(ctx, "account registered", "account_id", created.ID, "role", role)
	return created, nil
}
