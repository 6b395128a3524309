package middleware

import (
	"EduHub/internal/app_errors"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// StatusOf maps an error kind to the HTTP status it is reported with.
func StatusOf(err error) int {
	switch {
	case errors.Is(err, app_errors.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, app_errors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, app_errors.ErrNotEnrolled), errors.Is(err, app_errors.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, app_errors.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, app_errors.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, app_errors.ErrRemoteFailure):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// Error writes err as a JSON error. Server-side failures are attached to
// the context for the logging middleware and their detail is not exposed.
func Error(c *gin.Context, err error) {
	status := StatusOf(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
		msg := "internal error"
		if status == http.StatusBadGateway {
			msg = "upstream service failure"
		}
		c.AbortWithStatusJSON(status, gin.H{"error": msg})
		return
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

// BadRequest reports a malformed request.
func BadRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// ParamUUID parses a path parameter. It writes a 400 and reports false when
// the value is not a UUID.
func ParamUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}
