package auth

import (
	"EduHub/internal/delivery/http/controllers/middleware"
	"EduHub/internal/models"
	authsvc "EduHub/internal/service/auth"
	"EduHub/pkg/logger"
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AuthService interface {
	SignUp(ctx context.Context, in authsvc.SignUpInput) (*models.Profile, error)
	LoginUser(ctx context.Context, email, password string) (accessToken, refreshToken string, err error)
	RefreshTokens(ctx context.Context, token string) (*models.TokenPair, error)
	Logout(ctx context.Context, userID uuid.UUID) error
	Profile(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	AcceptInvite(ctx context.Context, token, password string) error
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, password string) error
}

type AuthHandler struct {
	AuthService AuthService
	log         logger.Log
}

func NewAuthHandler(l logger.Log, auth AuthService) *AuthHandler {
	return &AuthHandler{
		AuthService: auth,
		log:         l,
	}
}

func (h *AuthHandler) Me(c *gin.Context) {
	actor, ok := middleware.MustActor(c)
	if !ok {
		return
	}
	profile, err := h.AuthService.Profile(c.Request.Context(), actor.ID)
	if err != nil {
		middleware.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

type registerRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name" binding:"required"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var input registerRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		middleware.BadRequest(c, err)
		return
	}
	profile, err := h.AuthService.SignUp(c.Request.Context(), authsvc.SignUpInput{
		Email:    input.Email,
		Password: input.Password,
		Name:     input.Name,
	})
	if err != nil {
		middleware.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, profile)
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var input loginRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		middleware.BadRequest(c, err)
		return
	}
	accessToken, refreshToken, err := h.AuthService.LoginUser(c.Request.Context(), input.Email, input.Password)
	if err != nil {
		middleware.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, loginResponse{AccessToken: accessToken, RefreshToken: refreshToken})
}

type tokenRefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	var input tokenRefreshRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		middleware.BadRequest(c, err)
		return
	}
	pair, err := h.AuthService.RefreshTokens(c.Request.Context(), input.RefreshToken)
	if err != nil {
		middleware.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, loginResponse{AccessToken: pair.AccessToken.Raw, RefreshToken: pair.RefreshToken.Raw})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	actor, ok := middleware.MustActor(c)
	if !ok {
		return
	}
	if err := h.AuthService.Logout(c.Request.Context(), actor.ID); err != nil {
		middleware.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type setPasswordRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) AcceptInvite(c *gin.Context) {
	var input setPasswordRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		middleware.BadRequest(c, err)
		return
	}
	if err := h.AuthService.AcceptInvite(c.Request.Context(), input.Token, input.Password); err != nil {
		middleware.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type resetRequest struct {
	Email string `json:"email" binding:"required"`
}

func (h *AuthHandler) RequestPasswordReset(c *gin.Context) {
	var input resetRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		middleware.BadRequest(c, err)
		return
	}
	if err := h.AuthService.RequestPasswordReset(c.Request.Context(), input.Email); err != nil {
		middleware.Error(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "if the address is registered a reset link was sent"})
}

func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var input setPasswordRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		middleware.BadRequest(c, err)
		return
	}
	if err := h.AuthService.ResetPassword(c.Request.Context(), input.Token, input.Password); err != nil {
		middleware.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
