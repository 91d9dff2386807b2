package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// NewRouter wires routes and middleware. trustProxy makes X-Forwarded-Proto
// and X-Forwarded-For count; otherwise only the connection itself is trusted.
func NewRouter(h *Handler, mode string, trustProxy bool) *gin.Engine {
	if mode != "" {
		gin.SetMode(mode)
	}
	r := gin.New()
	r.HandleMethodNotAllowed = true
	if !trustProxy {
		_ = r.SetTrustedProxies(nil)
	}

	r.Use(requestID(), accessLog(h.logger), gin.Recovery())

	r.NoRoute(func(c *gin.Context) { respondError(c, http.StatusNotFound, "not found") })
	r.NoMethod(func(c *gin.Context) { respondError(c, http.StatusMethodNotAllowed, "method not allowed") })

	r.GET("/healthz", h.Health)

	api := r.Group("/api", requireTLS(trustProxy))
	{
		api.POST("/register", h.Register)
		api.POST("/login", h.Login)
		api.POST("/logout", h.Logout)

		authed := api.Group("", h.authenticate())
		authed.GET("/me", h.Me)
		authed.POST("/session/extend", h.Extend)

		admin := authed.Group("/admin", requireAdmin())
		admin.GET("/dashboard", h.Dashboard)
		admin.GET("/users", h.ListUsers)
		admin.GET("/users/:id", h.UserDetails)
		admin.POST("/users/:id/toggle", h.ToggleUser)
		admin.POST("/users/:id/role", h.ChangeRole)
		admin.POST("/users/:id/delete", h.DeleteUser)
		admin.POST("/sessions/:id/invalidate", h.InvalidateSession)
	}

	return r
}
