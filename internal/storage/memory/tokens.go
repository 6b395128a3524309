package memory

import (
	"EduHub/internal/app_errors"
	"EduHub/internal/models"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func hashToken(token *jwt.Token) string {
	h := sha256.Sum256([]byte(token.Raw))
	return base64.StdEncoding.EncodeToString(h[:])
}

func (s *Store) Create(_ context.Context, userID uuid.UUID, token *jwt.Token) (*models.RefreshToken, error) {
	exp, err := token.Claims.GetExpirationTime()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rt := models.RefreshToken{
		UserID:      userID,
		HashedToken: hashToken(token),
		CreatedAt:   time.Now().UTC(),
		ExpiresAt:   exp.Time,
	}
	s.refreshTokens[refreshKey{userID, rt.HashedToken}] = rt
	return &rt, nil
}

func (s *Store) ByPrimaryKey(_ context.Context, userID uuid.UUID, token *jwt.Token) (*models.RefreshToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rt, ok := s.refreshTokens[refreshKey{userID, hashToken(token)}]
	if !ok {
		return nil, app_errors.ErrTokenNotFound
	}
	return &rt, nil
}

func (s *Store) DeleteUserTokens(_ context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.refreshTokens {
		if k.user == userID {
			delete(s.refreshTokens, k)
		}
	}
	return nil
}

func (s *Store) CreateActionToken(_ context.Context, t models.ActionToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[t.UserID]; !ok {
		return app_errors.ErrUserNotFound
	}
	s.actionTokens[t.HashedToken] = t
	return nil
}

func (s *Store) ConsumeActionToken(_ context.Context, hashedToken, action string, now time.Time) (*models.ActionToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.actionTokens[hashedToken]
	if !ok || t.Action != action || t.UsedAt != nil {
		return nil, app_errors.ErrTokenNotFound
	}
	if !now.Before(t.ExpiresAt) {
		return nil, app_errors.ErrTokenExpired
	}
	t.UsedAt = &now
	s.actionTokens[hashedToken] = t
	return &t, nil
}
