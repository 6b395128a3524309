package postgres

import (
	"EduHub/internal/app_errors"
	"EduHub/internal/models"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TokensPostgres struct {
	db *pgxpool.Pool
}

func NewTokensPostgres(db *pgxpool.Pool) *TokensPostgres {
	return &TokensPostgres{db: db}
}

func (r *TokensPostgres) hashToken(token *jwt.Token) string {
	h := sha256.Sum256([]byte(token.Raw))
	return base64.StdEncoding.EncodeToString(h[:])
}

func (r *TokensPostgres) Create(ctx context.Context, userID uuid.UUID, token *jwt.Token) (*models.RefreshToken, error) {
	expiresAt, err := token.Claims.GetExpirationTime()
	if err != nil {
		return nil, err
	}
	query := `
		INSERT INTO refresh_tokens (user_id, hashed_token, expires_at)
		VALUES ($1, $2, $3)
		RETURNING created_at, expires_at
	`
	refreshToken := &models.RefreshToken{
		UserID:      userID,
		HashedToken: r.hashToken(token),
	}
	err = r.db.QueryRow(ctx, query, userID, refreshToken.HashedToken, expiresAt.Time).Scan(&refreshToken.CreatedAt, &refreshToken.ExpiresAt)
	if err != nil {
		return nil, err
	}

	return refreshToken, nil
}

func (r *TokensPostgres) ByPrimaryKey(ctx context.Context, userID uuid.UUID, token *jwt.Token) (*models.RefreshToken, error) {
	query := `SELECT user_id, hashed_token, created_at, expires_at FROM refresh_tokens WHERE user_id = $1 AND hashed_token = $2`
	refreshToken := models.RefreshToken{}
	err := r.db.QueryRow(ctx, query, userID, r.hashToken(token)).Scan(&refreshToken.UserID, &refreshToken.HashedToken, &refreshToken.CreatedAt, &refreshToken.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, app_errors.ErrTokenNotFound
		}
		return nil, err
	}
	return &refreshToken, nil
}

func (r *TokensPostgres) DeleteUserTokens(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `DELETE FROM refresh_tokens WHERE user_id = $1`, userID)
	return err
}

func (r *TokensPostgres) CreateActionToken(ctx context.Context, t models.ActionToken) error {
	const query = `
		INSERT INTO action_tokens (hashed_token, user_id, action, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.Exec(ctx, query, t.HashedToken, t.UserID, t.Action, t.ExpiresAt, t.CreatedAt)
	return UnwrapPgError(err, app_errors.ErrUserNotFound)
}

// ConsumeActionToken marks an unused, unexpired token of the given action as
// used and returns it. The row is locked so a token is consumed at most once.
func (r *TokensPostgres) ConsumeActionToken(ctx context.Context, hashedToken, action string, now time.Time) (*models.ActionToken, error) {
	const selectQuery = `
		SELECT hashed_token, user_id, action, expires_at, used_at, created_at
		FROM action_tokens
		WHERE hashed_token = $1 AND action = $2
		FOR UPDATE
	`
	var t models.ActionToken
	err := withTx(ctx, r.db, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, selectQuery, hashedToken, action).Scan(&t.HashedToken, &t.UserID, &t.Action, &t.ExpiresAt, &t.UsedAt, &t.CreatedAt)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return app_errors.ErrTokenNotFound
			}
			return err
		}
		if t.UsedAt != nil {
			return app_errors.ErrTokenNotFound
		}
		if !now.Before(t.ExpiresAt) {
			return app_errors.ErrTokenExpired
		}
		if _, err = tx.Exec(ctx, `UPDATE action_tokens SET used_at = $2 WHERE hashed_token = $1`, hashedToken, now); err != nil {
			return err
		}
		t.UsedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &t, nil
}
