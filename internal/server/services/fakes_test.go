package services

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/taskdesk/internal/common"
	"github.com/dmitrijs2005/taskdesk/internal/dbx"
	"github.com/dmitrijs2005/taskdesk/internal/logging"
	"github.com/dmitrijs2005/taskdesk/internal/server/config"
	"github.com/dmitrijs2005/taskdesk/internal/server/models"
	"github.com/dmitrijs2005/taskdesk/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/taskdesk/internal/server/repositories/audit"
	"github.com/dmitrijs2005/taskdesk/internal/server/repositories/dashboard"
	"github.com/dmitrijs2005/taskdesk/internal/server/repositories/sessions"
	"github.com/google/uuid"
)

// fakeStore is an in-memory stand-in for the database. Transactions are
// driven through sqlmock; the store itself does not roll back, so tests only
// rely on it for paths where the service refuses before mutating.
type fakeStore struct {
	mu       sync.Mutex
	now      time.Time
	accounts map[string]*models.Account
	profiles map[string]models.Profile
	sessions map[string]*models.Session
	audit    []models.AuditEntry

	// deleteRefusal, when set, makes SafeDelete refuse with that reason.
	deleteRefusal string

	// fail maps an operation name to the error it returns; failOnce entries
	// are consumed by the first call.
	fail     map[string]error
	failOnce map[string]error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		now:      time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
		accounts: map[string]*models.Account{},
		profiles: map[string]models.Profile{},
		sessions: map[string]*models.Session{},
		fail:     map[string]error{},
		failOnce: map[string]error{},
	}
}

// failure must be called with mu held.
func (s *fakeStore) failure(op string) error {
	if err, ok := s.failOnce[op]; ok {
		delete(s.failOnce, op)
		return err
	}
	return s.fail[op]
}

func (s *fakeStore) addAccount(email, role string, enabled bool, hash string) *models.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := &models.Account{
		ID: uuid.NewString(), Email: email, PasswordHash: hash,
		FirstName: "First", LastName: "Last", Role: role, Enabled: enabled, CreatedAt: s.now,
	}
	s.accounts[a.ID] = a
	return a
}

func (s *fakeStore) account(id string) models.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.accounts[id]
}

func (s *fakeStore) activeSessions(accountID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, ss := range s.sessions {
		if ss.AccountID == accountID && ss.IsActive {
			n++
		}
	}
	return n
}

func (s *fakeStore) auditEntries() []models.AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.AuditEntry(nil), s.audit...)
}

func sessionFor(accountID, token string, s *fakeStore) *models.Session {
	return &models.Session{AccountID: accountID, Token: token, IsActive: true}
}

type fakeAccounts struct{ s *fakeStore }

func (r fakeAccounts) Create(_ context.Context, a *models.Account) (*models.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("accounts.create"); err != nil {
		return nil, err
	}
	for _, existing := range r.s.accounts {
		if existing.Email == a.Email {
			return nil, common.ErrorAlreadyExists
		}
	}
	a.ID = uuid.NewString()
	a.CreatedAt = r.s.now
	cp := *a
	r.s.accounts[a.ID] = &cp
	return a, nil
}

func (r fakeAccounts) CreateProfile(_ context.Context, id string, p models.Profile) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("accounts.profile"); err != nil {
		return err
	}
	r.s.profiles[id] = p
	return nil
}

func (r fakeAccounts) GetByEmail(_ context.Context, email string) (*models.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("accounts.get"); err != nil {
		return nil, err
	}
	for _, a := range r.s.accounts {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r fakeAccounts) GetByID(_ context.Context, id string) (*models.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.accounts[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *a
	return &cp, nil
}

func (r fakeAccounts) Authority(_ context.Context, id string) (string, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("accounts.authority"); err != nil {
		return "", false, err
	}
	a, ok := r.s.accounts[id]
	if !ok {
		return "", false, common.ErrorNotFound
	}
	return a.Role, a.Enabled, nil
}

func (r fakeAccounts) ToggleEnabled(_ context.Context, id string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("accounts.toggle"); err != nil {
		return false, err
	}
	a, ok := r.s.accounts[id]
	if !ok {
		return false, common.ErrorNotFound
	}
	a.Enabled = !a.Enabled
	return a.Enabled, nil
}

func (r fakeAccounts) SetRole(_ context.Context, id, role string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("accounts.role"); err != nil {
		return err
	}
	a, ok := r.s.accounts[id]
	if !ok {
		return common.ErrorNotFound
	}
	a.Role = role
	return nil
}

func (r fakeAccounts) TouchLastLogin(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("accounts.touch"); err != nil {
		return err
	}
	if a, ok := r.s.accounts[id]; ok {
		now := r.s.now
		a.LastLogin = &now
	}
	return nil
}

func (r fakeAccounts) SafeDelete(_ context.Context, targetID, actorID string) (bool, string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("accounts.delete"); err != nil {
		return false, "", err
	}
	if r.s.deleteRefusal != "" {
		return false, r.s.deleteRefusal, nil
	}
	if targetID == actorID {
		return false, "cannot delete your own account", nil
	}
	target, ok := r.s.accounts[targetID]
	if !ok {
		return false, "account not found", nil
	}
	if target.Role == common.RoleAdmin && target.Enabled {
		others := 0
		for _, a := range r.s.accounts {
			if a.ID != targetID && a.Role == common.RoleAdmin && a.Enabled {
				others++
			}
		}
		if others == 0 {
			return false, "cannot delete the last enabled admin", nil
		}
	}
	delete(r.s.accounts, targetID)
	delete(r.s.profiles, targetID)
	for tok, ss := range r.s.sessions {
		if ss.AccountID == targetID {
			delete(r.s.sessions, tok)
		}
	}
	return true, "deleted", nil
}

func (r fakeAccounts) List(context.Context) ([]models.AccountSummary, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("accounts.list"); err != nil {
		return nil, err
	}
	out := make([]models.AccountSummary, 0, len(r.s.accounts))
	for _, a := range r.s.accounts {
		out = append(out, models.AccountSummary{Account: *a})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (r fakeAccounts) Details(_ context.Context, id string) (*models.AccountDetails, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.accounts[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &models.AccountDetails{Account: *a, Profile: r.s.profiles[id]}, nil
}

type fakeSessions struct{ s *fakeStore }

func (r fakeSessions) Create(_ context.Context, ss *models.Session, ttl time.Duration) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("sessions.create"); err != nil {
		return err
	}
	if _, dup := r.s.sessions[ss.Token]; dup {
		return common.ErrorAlreadyExists
	}
	ss.ID = uuid.NewString()
	ss.CreatedAt = r.s.now
	ss.ExpiresAt = r.s.now.Add(ttl)
	cp := *ss
	r.s.sessions[ss.Token] = &cp
	return nil
}

func (r fakeSessions) FindIdentity(_ context.Context, token string) (*models.Identity, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("sessions.find"); err != nil {
		return nil, err
	}
	ss, ok := r.s.sessions[token]
	if !ok || !ss.IsActive || !r.s.now.Before(ss.ExpiresAt) {
		return nil, common.ErrorNotFound
	}
	a, ok := r.s.accounts[ss.AccountID]
	if !ok || !a.Enabled {
		return nil, common.ErrorNotFound
	}
	return &models.Identity{
		AccountID: a.ID, Email: a.Email, FirstName: a.FirstName, LastName: a.LastName,
		Role: a.Role, ExpiresAt: ss.ExpiresAt,
	}, nil
}

func (r fakeSessions) Deactivate(_ context.Context, token string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("sessions.deactivate"); err != nil {
		return err
	}
	if ss, ok := r.s.sessions[token]; ok {
		ss.IsActive = false
	}
	return nil
}

func (r fakeSessions) DeactivateByID(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, ss := range r.s.sessions {
		if ss.ID == id {
			ss.IsActive = false
			return nil
		}
	}
	return common.ErrorNotFound
}

func (r fakeSessions) DeactivateForAccount(_ context.Context, accountID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("sessions.deactivateAll"); err != nil {
		return 0, err
	}
	var n int64
	for _, ss := range r.s.sessions {
		if ss.AccountID == accountID && ss.IsActive {
			ss.IsActive = false
			n++
		}
	}
	return n, nil
}

func (r fakeSessions) Extend(_ context.Context, token string, ttl time.Duration) (time.Time, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("sessions.extend"); err != nil {
		return time.Time{}, false, err
	}
	ss, ok := r.s.sessions[token]
	if !ok || !ss.IsActive || !r.s.now.Before(ss.ExpiresAt) {
		return time.Time{}, false, nil
	}
	ss.ExpiresAt = r.s.now.Add(ttl)
	return ss.ExpiresAt, true, nil
}

func (r fakeSessions) SweepExpired(context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("sessions.sweep"); err != nil {
		return 0, err
	}
	var n int64
	for _, ss := range r.s.sessions {
		if ss.IsActive && !r.s.now.Before(ss.ExpiresAt) {
			ss.IsActive = false
			n++
		}
	}
	return n, nil
}

func (r fakeSessions) ListForAccount(_ context.Context, accountID string, limit int) ([]models.SessionInfo, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.SessionInfo
	for _, ss := range r.s.sessions {
		if ss.AccountID == accountID {
			out = append(out, models.SessionInfo{
				ID: ss.ID, IPAddress: ss.IPAddress, UserAgent: ss.UserAgent, CreatedAt: ss.CreatedAt,
				ExpiresAt: ss.ExpiresAt, IsActive: ss.IsActive, Expired: !r.s.now.Before(ss.ExpiresAt),
			})
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeAudit struct{ s *fakeStore }

func (r fakeAudit) Record(_ context.Context, e models.AuditEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("audit.record"); err != nil {
		return err
	}
	r.s.audit = append(r.s.audit, e)
	return nil
}

type fakeDashboard struct{ s *fakeStore }

func (r fakeDashboard) Stats(context.Context) (*models.DashboardStats, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	st := &models.DashboardStats{}
	for _, a := range r.s.accounts {
		st.TotalAccounts++
		if a.Enabled {
			st.EnabledAccounts++
		} else {
			st.DisabledAccounts++
		}
		if a.Role == common.RoleAdmin {
			st.Admins++
		}
	}
	for _, ss := range r.s.sessions {
		if ss.IsActive && r.s.now.Before(ss.ExpiresAt) {
			st.ActiveSessions++
		}
	}
	return st, nil
}

type fakeRepoManager struct{ s *fakeStore }

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error  { return nil }
func (m *fakeRepoManager) Accounts(dbx.DBTX) accounts.Repository   { return fakeAccounts{m.s} }
func (m *fakeRepoManager) Sessions(dbx.DBTX) sessions.Repository   { return fakeSessions{m.s} }
func (m *fakeRepoManager) Audit(dbx.DBTX) audit.Repository         { return fakeAudit{m.s} }
func (m *fakeRepoManager) Dashboard(dbx.DBTX) dashboard.Repository { return fakeDashboard{m.s} }

// --- helpers ---

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func expectTx(mock sqlmock.Sqlmock, commit bool) {
	mock.ExpectBegin()
	if commit {
		mock.ExpectCommit()
	} else {
		mock.ExpectRollback()
	}
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.BcryptCost = 4
	return cfg
}

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

func nopLogger() logging.Logger { return logging.NewNopLogger() }
