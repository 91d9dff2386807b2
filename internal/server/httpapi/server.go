// Package httpapi exposes the services over HTTPS using gin. The session
// token travels only in a Secure, HttpOnly, SameSite=Strict cookie.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/taskdesk/internal/logging"
	"github.com/dmitrijs2005/taskdesk/internal/server/config"
	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 10 * time.Second

type HTTPServer struct {
	address  string
	certFile string
	keyFile  string
	engine   *gin.Engine
	logger   logging.Logger
}

func NewHTTPServer(cfg *config.Config, l logging.Logger, a Authenticator, s SessionStore, adm AdminOps) *HTTPServer {
	logger := l.With("module", "http_server")
	h := &Handler{
		auth:     a,
		sessions: s,
		admin:    adm,
		logger:   logger,
	}
	return &HTTPServer{
		address:  cfg.HTTPAddr,
		certFile: cfg.TLSCertFile,
		keyFile:  cfg.TLSKeyFile,
		engine:   NewRouter(h, cfg.GinMode, cfg.TrustForwardedProto),
		logger:   logger,
	}
}

// Handler returns the routed engine, mainly for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *HTTPServer) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP server shutdown", "error", err)
		}
	}()

	var err error
	if s.certFile != "" {
		s.logger.Info(ctx, "Starting HTTPS server", "address", s.address)
		err = srv.ListenAndServeTLS(s.certFile, s.keyFile)
	} else {
		s.logger.Info(ctx, "Starting HTTP server behind TLS proxy", "address", s.address)
		err = srv.ListenAndServe()
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
