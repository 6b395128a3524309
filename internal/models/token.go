package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type RefreshToken struct {
	UserID      uuid.UUID
	HashedToken string
	CreatedAt   time.Time
	ExpiresAt   time.Time
}

type TokenPair struct {
	AccessToken  *jwt.Token
	RefreshToken *jwt.Token
}

const (
	ActionInvite        = "invite"
	ActionPasswordReset = "password_reset"
)

// ActionToken is a single-use e-mailed token (invitation or password reset).
type ActionToken struct {
	HashedToken string
	UserID      uuid.UUID
	Action      string
	ExpiresAt   time.Time
	UsedAt      *time.Time
	CreatedAt   time.Time
}
