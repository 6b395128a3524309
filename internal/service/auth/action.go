package auth

import (
	"EduHub/internal/app_errors"
	"EduHub/internal/models"
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

type actionTokenRepo interface {
	CreateActionToken(ctx context.Context, t models.ActionToken) error
	ConsumeActionToken(ctx context.Context, hashedToken, action string, now time.Time) (*models.ActionToken, error)
}

// ActionTokens issues and redeems the single-use tokens mailed for
// invitations and password resets. Only the SHA-256 of a token is stored.
type ActionTokens struct {
	repo actionTokenRepo
	ttl  time.Duration
	now  func() time.Time
}

func NewActionTokens(repo actionTokenRepo, ttl time.Duration) *ActionTokens {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &ActionTokens{repo: repo, ttl: ttl, now: func() time.Time { return time.Now().UTC() }}
}

func HashActionToken(raw string) string {
	h := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(h[:])
}

// Issue stores a fresh token for userID and returns the raw value to mail.
func (a *ActionTokens) Issue(ctx context.Context, userID uuid.UUID, action string) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	raw := base64.RawURLEncoding.EncodeToString(buf)
	now := a.now()
	err := a.repo.CreateActionToken(ctx, models.ActionToken{
		HashedToken: HashActionToken(raw),
		UserID:      userID,
		Action:      action,
		ExpiresAt:   now.Add(a.ttl),
		CreatedAt:   now,
	})
	if err != nil {
		return "", app_errors.Remote("issue action token", err)
	}
	return raw, nil
}

// Consume redeems raw for action. A token is accepted once.
func (a *ActionTokens) Consume(ctx context.Context, raw, action string) (*models.ActionToken, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, app_errors.ErrTokenNotFound
	}
	t, err := a.repo.ConsumeActionToken(ctx, HashActionToken(raw), action, a.now())
	if err != nil {
		return nil, app_errors.Remote("consume action token", err)
	}
	return t, nil
}

// Link builds the front-end URL that carries raw.
func Link(appURL, path, raw string) string {
	return strings.TrimRight(appURL, "/") + path + "?token=" + url.QueryEscape(raw)
}

const (
	InvitePath        = "/accept-invite"
	PasswordResetPath = "/reset-password"
)
