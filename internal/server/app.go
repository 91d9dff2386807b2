// Package server wires configuration, storage, services and the HTTP
// transport into a runnable application and handles graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/taskdesk/internal/logging"
	"github.com/dmitrijs2005/taskdesk/internal/server/auth"
	"github.com/dmitrijs2005/taskdesk/internal/server/config"
	"github.com/dmitrijs2005/taskdesk/internal/server/httpapi"
	"github.com/dmitrijs2005/taskdesk/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/taskdesk/internal/server/services"
	"github.com/dmitrijs2005/taskdesk/internal/server/throttle"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	redis    *redis.Client
	counter  *throttle.MemoryCounter
	sessions *services.SessionService
	auth     *services.AuthService
	admin    *services.AdminService
}

// OpenDB opens and pings the PostgreSQL pool.
func OpenDB(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

// Services holds the service layer built on one database pool. The admin
// command reuses it without starting the HTTP server.
type Services struct {
	Sessions *services.SessionService
	Auth     *services.AuthService
	Admin    *services.AdminService
}

// NewServices builds the service layer around an existing throttle.
func NewServices(db *sql.DB, rm repomanager.RepositoryManager, cfg *config.Config, th *throttle.Throttle, logger logging.Logger) (*Services, error) {
	verifier, err := auth.NewVerifier(cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("verifier init: %w", err)
	}
	sessions := services.NewSessionService(db, rm, cfg, logger)
	return &Services{
		Sessions: sessions,
		Auth:     services.NewAuthService(db, rm, verifier, th, sessions, logger),
		Admin:    services.NewAdminService(db, rm, cfg, logger),
	}, nil
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	logger := logging.New(os.Stdout, c.LogFormat, c.LogLevel)

	db, err := OpenDB(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	app := &App{config: c, logger: logger, db: db}

	var counter throttle.Counter
	switch c.ThrottleBackend {
	case config.ThrottleBackendRedis:
		app.redis = redis.NewClient(&redis.Options{Addr: c.RedisAddr, Password: c.RedisPassword, DB: c.RedisDB})
		if err := app.redis.Ping(ctx).Err(); err != nil {
			app.close()
			return nil, fmt.Errorf("redis init error: %w", err)
		}
		counter = throttle.NewRedisCounter(app.redis, c.ThrottleWindow)
	default:
		app.counter = throttle.NewMemoryCounter(c.ThrottleWindow)
		counter = app.counter
	}
	th := throttle.New(counter, c.ThrottleThreshold, c.ThrottleDelay, throttle.WithLogger(logger))

	svc, err := NewServices(db, rm, c, th, logger)
	if err != nil {
		app.close()
		return nil, err
	}
	app.sessions, app.auth, app.admin = svc.Sessions, svc.Auth, svc.Admin

	return app, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := httpapi.NewHTTPServer(app.config, app.logger, app.auth, app.sessions, app.admin)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// pruneThrottle forgets stale in-memory throttle entries once per window.
func (app *App) pruneThrottle(ctx context.Context) {
	if app.counter == nil || app.config.ThrottleWindow <= 0 {
		return
	}
	ticker := time.NewTicker(app.config.ThrottleWindow)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := app.counter.Prune(); n > 0 {
				app.logger.Debug(ctx, "throttle entries pruned", "count", n)
			}
		}
	}
}

func (app *App) close() {
	var errs []error
	if app.redis != nil {
		errs = append(errs, app.redis.Close())
	}
	if app.db != nil {
		errs = append(errs, app.db.Close())
	}
	if err := errors.Join(errs...); err != nil {
		app.logger.Error(context.Background(), "shutdown", "error", err)
	}
}

// Run blocks until ctx is cancelled, a termination signal arrives or the
// HTTP server fails.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(3)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.sessions.RunSweeper(ctx, app.config.SweepInterval)
	}()
	go func() {
		defer wg.Done()
		app.pruneThrottle(ctx)
	}()

	wg.Wait()
	app.close()
	app.logger.Info(context.Background(), "App stopped")
}
