package middleware

import (
	"EduHub/internal/app_errors"
	"EduHub/internal/models"
	"EduHub/pkg/logger"
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	ClientIDCtx   = "client_id"
	ClientRoleCtx = "client_role"
)

type AuthService interface {
	Actor(ctx context.Context, token string) (models.Actor, error)
	Profile(ctx context.Context, id uuid.UUID) (*models.Profile, error)
}

type AuthMiddlewareProvider struct {
	log     logger.Log
	service AuthService
}

func NewAuthMiddlewareProvider(log logger.Log, s AuthService) *AuthMiddlewareProvider {
	return &AuthMiddlewareProvider{
		log:     log,
		service: s,
	}
}

// AuthMiddleware resolves the bearer token to an actor. Deactivated
// profiles are rejected even while their access token is still valid.
func (h *AuthMiddlewareProvider) AuthMiddleware(c *gin.Context) {
	authHeader := c.GetHeader("Authorization")
	var token string
	if parts := strings.Split(authHeader, "Bearer "); len(parts) == 2 {
		token = parts[1]
	}
	if token == "" {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	actor, err := h.service.Actor(c.Request.Context(), token)
	if err != nil {
		h.log.Info("failed to parse token", "error", err)
		if errors.Is(err, app_errors.ErrTokenExpired) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": app_errors.ErrTokenExpired.Error()})
			return
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "cant parse token"})
		return
	}

	profile, err := h.service.Profile(c.Request.Context(), actor.ID)
	if err != nil {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	if !profile.IsActive || profile.Pending {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": app_errors.ErrInactiveProfile.Error()})
		return
	}

	c.Set(ClientIDCtx, profile.ID)
	c.Set(ClientRoleCtx, profile.Role)
	c.Next()
}

// Actor returns the caller stored by AuthMiddleware.
func Actor(c *gin.Context) (models.Actor, bool) {
	id, ok := c.Get(ClientIDCtx)
	if !ok {
		return models.Actor{}, false
	}
	userID, ok := id.(uuid.UUID)
	if !ok {
		return models.Actor{}, false
	}
	return models.Actor{ID: userID, Role: c.GetString(ClientRoleCtx)}, true
}

// MustActor is Actor for handlers behind AuthMiddleware. It writes a 401
// when no actor is present.
func MustActor(c *gin.Context) (models.Actor, bool) {
	a, ok := Actor(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	}
	return a, ok
}
