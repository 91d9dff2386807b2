package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/taskdesk/internal/common"
	"github.com/dmitrijs2005/taskdesk/internal/logging"
	"github.com/dmitrijs2005/taskdesk/internal/server/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	requestIDHeader = "X-Request-ID"

	ctxRequestID = "request_id"
	ctxIdentity  = "identity"
	ctxToken     = "session_token"
)

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := uuid.NewString()
		c.Set(ctxRequestID, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func accessLog(l logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		l.Info(c.Request.Context(), "request",
			"request_id", c.GetString(ctxRequestID),
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
			"ip", c.ClientIP(),
		)
	}
}

// requireTLS refuses requests that did not arrive over TLS. A forwarded
// proto header counts only when the deployment sits behind a trusted proxy.
func requireTLS(trustForwardedProto bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.TLS != nil {
			c.Next()
			return
		}
		if trustForwardedProto && strings.EqualFold(c.GetHeader("X-Forwarded-Proto"), "https") {
			c.Next()
			return
		}
		abortError(c, http.StatusForbidden, "HTTPS required")
	}
}

// authenticate resolves the session cookie to an identity. Storage failures
// are logged and answered like any other invalid session.
func (h *Handler) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(common.SessionCookieName)
		if err != nil || token == "" {
			abortError(c, http.StatusUnauthorized, common.ErrSessionInvalid.Error())
			return
		}

		id, err := h.sessions.Validate(c.Request.Context(), token)
		if err != nil {
			if !errors.Is(err, common.ErrSessionInvalid) {
				h.logger.Error(c.Request.Context(), "session validation failed",
					"request_id", c.GetString(ctxRequestID), "error", err)
			}
			abortError(c, http.StatusUnauthorized, common.ErrSessionInvalid.Error())
			return
		}

		c.Set(ctxIdentity, id)
		c.Set(ctxToken, token)
		c.Next()
	}
}

// requireAdmin is a coarse gate; every admin mutation re-checks the role in
// its own transaction.
func requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !identity(c).IsAdmin() {
			abortError(c, http.StatusForbidden, common.ErrAuthorizationDenied.Error())
			return
		}
		c.Next()
	}
}

func identity(c *gin.Context) *models.Identity {
	v, ok := c.Get(ctxIdentity)
	if !ok {
		return nil
	}
	id, _ := v.(*models.Identity)
	return id
}
