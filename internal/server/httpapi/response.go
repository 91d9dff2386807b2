package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/taskdesk/internal/common"
	"github.com/gin-gonic/gin"
)

func respondError(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{
		"error":      msg,
		"request_id": c.GetString(ctxRequestID),
	})
}

func abortError(c *gin.Context, status int, msg string) {
	respondError(c, status, msg)
	c.Abort()
}

// statusFor maps service errors to a status and a client-safe message.
func statusFor(err error) (int, string) {
	var reason *common.ReasonError
	switch {
	case errors.As(err, &reason) && errors.Is(reason.Kind, common.ErrPreconditionViolated):
		return http.StatusBadRequest, reason.Reason
	case errors.Is(err, common.ErrPreconditionViolated):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, common.ErrAuthenticationFailed):
		return http.StatusUnauthorized, common.ErrAuthenticationFailed.Error()
	case errors.Is(err, common.ErrSessionInvalid):
		return http.StatusUnauthorized, common.ErrSessionInvalid.Error()
	case errors.Is(err, common.ErrAccountDisabled):
		return http.StatusForbidden, common.ErrAccountDisabled.Error()
	case errors.Is(err, common.ErrAuthorizationDenied):
		return http.StatusForbidden, common.ErrAuthorizationDenied.Error()
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, common.ErrorAlreadyExists):
		return http.StatusConflict, "account already exists"
	case errors.Is(err, common.ErrConflict):
		return http.StatusConflict, common.ErrConflict.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func (h *Handler) fail(c *gin.Context, err error) {
	status, msg := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error(c.Request.Context(), "request failed",
			"request_id", c.GetString(ctxRequestID), "path", c.FullPath(), "error", err)
	}
	respondError(c, status, msg)
}
