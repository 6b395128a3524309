package auth

import (
	"EduHub/internal/app_errors"
	"EduHub/internal/models"
	"EduHub/pkg/logger"
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type ProfileRepo interface {
	CreateProfile(ctx context.Context, p models.Profile) error
	ProfileByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	ProfileByEmail(ctx context.Context, email string) (*models.Profile, error)
	SetPassword(ctx context.Context, id uuid.UUID, hash string) error
}

type tokenRepo interface {
	Create(ctx context.Context, userID uuid.UUID, token *jwt.Token) (*models.RefreshToken, error)
	ByPrimaryKey(ctx context.Context, userID uuid.UUID, token *jwt.Token) (*models.RefreshToken, error)
	DeleteUserTokens(ctx context.Context, userID uuid.UUID) error
}

type resetMailer interface {
	SendPasswordReset(ctx context.Context, name, email, link string) error
}

type AuthService struct {
	log        logger.Log
	jwtManager *JWTManager
	profiles   ProfileRepo
	tokenRepo  tokenRepo
	actions    *ActionTokens
	mail       resetMailer
	appURL     string
}

func NewAuthService(l logger.Log, manager *JWTManager, profiles ProfileRepo, tRepo tokenRepo, actions *ActionTokens, mail resetMailer, appURL string) *AuthService {
	return &AuthService{
		log:        l,
		jwtManager: manager,
		profiles:   profiles,
		tokenRepo:  tRepo,
		actions:    actions,
		mail:       mail,
		appURL:     appURL,
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

type SignUpInput struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password"`
	Name     string `json:"name" validate:"required,max=255"`
}

func (u *AuthService) RefreshTokens(ctx context.Context, token string) (*models.TokenPair, error) {
	curToken, err := u.jwtManager.Parse(token)
	if err != nil {
		return nil, err
	}
	if !u.jwtManager.TokenType(curToken, RefreshTokenType) {
		return nil, app_errors.ErrInvalidToken
	}
	userIdStr, err := curToken.Claims.GetSubject()
	if err != nil {
		return nil, app_errors.ErrInvalidToken
	}
	userID, err := uuid.Parse(userIdStr)
	if err != nil {
		return nil, app_errors.ErrInvalidToken
	}
	tokenRecord, err := u.tokenRepo.ByPrimaryKey(ctx, userID, curToken)
	if err != nil {
		return nil, app_errors.Remote("load refresh token", err)
	}
	if tokenRecord.ExpiresAt.Before(time.Now()) {
		return nil, app_errors.ErrTokenExpired
	}
	profile, err := u.profiles.ProfileByID(ctx, userID)
	if err != nil {
		return nil, app_errors.Remote("load profile", err)
	}
	if !profile.IsActive || profile.Pending {
		return nil, app_errors.ErrInactiveProfile
	}
	return u.issue(ctx, profile)
}

func (u *AuthService) issue(ctx context.Context, profile *models.Profile) (*models.TokenPair, error) {
	tokenPair, err := u.jwtManager.GenerateTokenPair(profile.ID, profile.Role)
	if err != nil {
		return nil, err
	}
	if err := u.tokenRepo.DeleteUserTokens(ctx, profile.ID); err != nil {
		return nil, app_errors.Remote("drop refresh tokens", err)
	}
	if _, err := u.tokenRepo.Create(ctx, profile.ID, tokenPair.RefreshToken); err != nil {
		return nil, app_errors.Remote("store refresh token", err)
	}
	return tokenPair, nil
}

// Actor resolves an access token to the caller it was issued to.
func (u *AuthService) Actor(ctx context.Context, token string) (models.Actor, error) {
	claims, err := u.jwtManager.AccessClaims(token)
	if err != nil {
		return models.Actor{}, err
	}
	return models.Actor{ID: claims.UserID, Role: claims.Role}, nil
}

func (u *AuthService) Profile(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	profile, err := u.profiles.ProfileByID(ctx, id)
	if err != nil {
		return nil, app_errors.Remote("load profile", err)
	}
	return profile, nil
}

// LoginUser checks credentials and returns a fresh token pair. Pending and
// deactivated profiles cannot log in.
func (u *AuthService) LoginUser(ctx context.Context, email, password string) (accessToken, refreshToken string, err error) {
	profile, err := u.profiles.ProfileByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, app_errors.ErrUserNotFound) {
			return "", "", app_errors.ErrIncorrectPassword
		}
		return "", "", app_errors.Remote("load profile", err)
	}
	if !checkPasswordHash(password, profile.Password) {
		return "", "", app_errors.ErrIncorrectPassword
	}
	if !profile.IsActive || profile.Pending {
		return "", "", app_errors.ErrInactiveProfile
	}

	tokenPair, err := u.issue(ctx, profile)
	if err != nil {
		return "", "", err
	}
	u.log.Info("user logged in", "user_id", profile.ID)
	return tokenPair.AccessToken.Raw, tokenPair.RefreshToken.Raw, nil
}

func (u *AuthService) Logout(ctx context.Context, userID uuid.UUID) error {
	return app_errors.Remote("drop refresh tokens", u.tokenRepo.DeleteUserTokens(ctx, userID))
}

// SignUp creates an active student profile. The role cannot be chosen.
func (u *AuthService) SignUp(ctx context.Context, in SignUpInput) (*models.Profile, error) {
	profile, err := u.create(ctx, in, models.StudentRole)
	if err != nil {
		return nil, err
	}
	u.log.Info("user signed up", "user_id", profile.ID)
	return profile, nil
}

// EnsureAdmin creates an admin profile unless the email is already taken.
// It runs at startup so a fresh deployment has someone to invite students.
func (u *AuthService) EnsureAdmin(ctx context.Context, in SignUpInput) error {
	_, err := u.profiles.ProfileByEmail(ctx, strings.ToLower(strings.TrimSpace(in.Email)))
	if err == nil {
		return nil
	}
	if !errors.Is(err, app_errors.ErrUserNotFound) {
		return app_errors.Remote("load profile", err)
	}
	profile, err := u.create(ctx, in, models.AdminRole)
	if err != nil {
		return err
	}
	u.log.Info("admin profile created", "user_id", profile.ID)
	return nil
}

func (u *AuthService) create(ctx context.Context, in SignUpInput, role string) (*models.Profile, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Name = strings.TrimSpace(in.Name)
	if err := validate.Struct(in); err != nil {
		return nil, app_errors.Validation("invalid sign up: %v", err)
	}
	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	profile := models.Profile{
		ID:        uuid.New(),
		Name:      in.Name,
		Email:     in.Email,
		Role:      role,
		IsActive:  true,
		Password:  hash,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err = u.profiles.CreateProfile(ctx, profile); err != nil {
		return nil, app_errors.Remote("create profile", err)
	}
	return &profile, nil
}

// AcceptInvite sets the password of an invited profile, which makes it
// usable for login.
func (u *AuthService) AcceptInvite(ctx context.Context, token, password string) error {
	return u.redeem(ctx, token, models.ActionInvite, password)
}

// ResetPassword sets a new password from a reset link and signs the user
// out everywhere.
func (u *AuthService) ResetPassword(ctx context.Context, token, password string) error {
	return u.redeem(ctx, token, models.ActionPasswordReset, password)
}

func (u *AuthService) redeem(ctx context.Context, token, action, password string) error {
	hash, err := hashPassword(password)
	if err != nil {
		return err
	}
	t, err := u.actions.Consume(ctx, token, action)
	if err != nil {
		return err
	}
	if err = u.profiles.SetPassword(ctx, t.UserID, hash); err != nil {
		return app_errors.Remote("set password", err)
	}
	if err = u.tokenRepo.DeleteUserTokens(ctx, t.UserID); err != nil {
		return app_errors.Remote("drop refresh tokens", err)
	}
	u.log.Info("password set from action token", "user_id", t.UserID, "action", action)
	return nil
}

// RequestPasswordReset mails a reset link when email belongs to a profile.
// It reports success either way so callers cannot tell which e-mails have accounts.
func (u *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	profile, err := u.profiles.ProfileByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if !errors.Is(err, app_errors.ErrUserNotFound) {
			u.log.ErrorErr("failed to look up profile for password reset", err)
		}
		return nil
	}
	if err = SendReset(ctx, u.actions, u.mail, u.appURL, profile); err != nil {
		u.log.ErrorErr("failed to send password reset", err, "user_id", profile.ID)
	}
	return nil
}

// SendReset issues a reset token for profile and mails the link.
func SendReset(ctx context.Context, actions *ActionTokens, mail resetMailer, appURL string, profile *models.Profile) error {
	raw, err := actions.Issue(ctx, profile.ID, models.ActionPasswordReset)
	if err != nil {
		return err
	}
	if err = mail.SendPasswordReset(ctx, profile.Name, profile.Email, Link(appURL, PasswordResetPath, raw)); err != nil {
		return app_errors.Remote("send password reset", err)
	}
	return nil
}

func hashPassword(password string) (string, error) {
	if len(password) < 6 || len(password) > 72 {
		return "", app_errors.ErrPasswordLength
	}
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func checkPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
