package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/dmitrijs2005/taskdesk/internal/common"
	"github.com/dmitrijs2005/taskdesk/internal/logging"
	"github.com/dmitrijs2005/taskdesk/internal/server/models"
	"github.com/dmitrijs2005/taskdesk/internal/server/services"
	"github.com/gin-gonic/gin"
)

type Authenticator interface {
	Login(ctx context.Context, req services.LoginRequest) (*services.LoginResult, error)
	Logout(ctx context.Context, token string) error
	Register(ctx context.Context, req services.RegisterRequest) (*models.Account, error)
}

type SessionStore interface {
	Validate(ctx context.Context, token string) (*models.Identity, error)
	Extend(ctx context.Context, token string) (time.Time, bool, error)
	TTL() time.Duration
}

type AdminOps interface {
	ToggleEnabled(ctx context.Context, actorID, targetID string) (bool, error)
	ChangeRole(ctx context.Context, actorID, targetID, role string) error
	SafeDelete(ctx context.Context, actorID, targetID string) error
	InvalidateSession(ctx context.Context, actorID, sessionID string) error
	Dashboard(ctx context.Context, actorID string) (*models.DashboardStats, error)
	ListAccounts(ctx context.Context, actorID string) ([]models.AccountSummary, error)
	AccountDetails(ctx context.Context, actorID, targetID string) (*models.AccountDetails, error)
}

type Handler struct {
	auth     Authenticator
	sessions SessionStore
	admin    AdminOps
	logger   logging.Logger
}

type registerRequest struct {
	Email           string `json:"email" binding:"required,email"`
	Password        string `json:"password" binding:"required"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
	FirstName       string `json:"firstname" binding:"required,max=100"`
	LastName        string `json:"lastname" binding:"required,max=100"`
	Bio             string `json:"bio" binding:"max=1000"`
	Phone           string `json:"phone" binding:"max=32"`
	AvatarURL       string `json:"avatar_url" binding:"omitempty,url"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type roleRequest struct {
	Role string `json:"role" binding:"required"`
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request")
		return
	}

	acc, err := h.auth.Register(c.Request.Context(), services.RegisterRequest{
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Profile:         models.Profile{Bio: req.Bio, Phone: req.Phone, AvatarURL: req.AvatarURL},
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, acc)
}

func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid email format")
		return
	}

	res, err := h.auth.Login(c.Request.Context(), services.LoginRequest{
		Email:     req.Email,
		Password:  req.Password,
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	setSessionCookie(c, res.Token, h.sessions.TTL())
	c.JSON(http.StatusOK, gin.H{"user": res.Identity, "expires_at": res.ExpiresAt})
}

// Logout needs no valid session: a stale cookie is cleared all the same.
func (h *Handler) Logout(c *gin.Context) {
	if token, err := c.Cookie(common.SessionCookieName); err == nil && token != "" {
		if err := h.auth.Logout(c.Request.Context(), token); err != nil {
			h.fail(c, err)
			return
		}
	}
	clearSessionCookie(c)
	c.JSON(http.StatusOK, gin.H{"status": "logged out"})
}

func (h *Handler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, identity(c))
}

func (h *Handler) Extend(c *gin.Context) {
	token := c.GetString(ctxToken)
	expiresAt, ok, err := h.sessions.Extend(c.Request.Context(), token)
	if err != nil {
		h.fail(c, err)
		return
	}
	if !ok {
		clearSessionCookie(c)
		respondError(c, http.StatusUnauthorized, common.ErrSessionInvalid.Error())
		return
	}
	setSessionCookie(c, token, h.sessions.TTL())
	c.JSON(http.StatusOK, gin.H{"expires_at": expiresAt})
}

func (h *Handler) Dashboard(c *gin.Context) {
	stats, err := h.admin.Dashboard(c.Request.Context(), identity(c).AccountID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) ListUsers(c *gin.Context) {
	list, err := h.admin.ListAccounts(c.Request.Context(), identity(c).AccountID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": list})
}

func (h *Handler) UserDetails(c *gin.Context) {
	d, err := h.admin.AccountDetails(c.Request.Context(), identity(c).AccountID, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *Handler) ToggleUser(c *gin.Context) {
	enabled, err := h.admin.ToggleEnabled(c.Request.Context(), identity(c).AccountID, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "enabled": enabled})
}

func (h *Handler) ChangeRole(c *gin.Context) {
	var req roleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request")
		return
	}
	if err := h.admin.ChangeRole(c.Request.Context(), identity(c).AccountID, c.Param("id"), req.Role); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "role": req.Role})
}

func (h *Handler) DeleteUser(c *gin.Context) {
	if err := h.admin.SafeDelete(c.Request.Context(), identity(c).AccountID, c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "deleted": true})
}

func (h *Handler) InvalidateSession(c *gin.Context) {
	if err := h.admin.InvalidateSession(c.Request.Context(), identity(c).AccountID, c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "invalidated": true})
}
