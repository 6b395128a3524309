package postgres

import (
	"EduHub/internal/app_errors"
	"EduHub/internal/models"
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ProfilePostgres struct {
	db *pgxpool.Pool
}

func NewProfilePostgres(db *pgxpool.Pool) *ProfilePostgres {
	return &ProfilePostgres{db: db}
}

const profileColumns = `
    id, name, email, role, is_active, pending,
    phone_number, profile_picture_url, password, created_at, updated_at
`

func (r *ProfilePostgres) CreateProfile(ctx context.Context, p models.Profile) error {
	const query = `
        INSERT INTO profiles (
            id, name, email, role, is_active, pending,
            phone_number, profile_picture_url, password, created_at, updated_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
    `
	_, err := r.db.Exec(ctx, query,
		p.ID, p.Name, p.Email, p.Role, p.IsActive, p.Pending,
		p.PhoneNumber, p.ProfilePictureURL, p.Password, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if ok := errors.As(err, &pgErr); ok && pgErr.Code == codeUniqueViolation {
			return app_errors.ErrUserExists
		}
		return fmt.Errorf("failed to insert profile: %w", err)
	}
	return nil
}

func (r *ProfilePostgres) ProfileByID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`
	return r.one(ctx, query, id)
}

func (r *ProfilePostgres) ProfileByEmail(ctx context.Context, email string) (*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE lower(email) = lower($1)`
	return r.one(ctx, query, email)
}

func (r *ProfilePostgres) one(ctx context.Context, query string, arg any) (*models.Profile, error) {
	p, err := scanProfile(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, app_errors.ErrUserNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *ProfilePostgres) ListProfiles(ctx context.Context, role string) ([]models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE role = $1 ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpdateProfile applies the non-nil fields of upd.
func (r *ProfilePostgres) UpdateProfile(ctx context.Context, id uuid.UUID, upd models.ProfileUpdate) (*models.Profile, error) {
	query := `
        UPDATE profiles
           SET name                = COALESCE($2, name),
               phone_number        = COALESCE($3, phone_number),
               profile_picture_url = COALESCE($4, profile_picture_url),
               is_active           = COALESCE($5, is_active),
               updated_at          = NOW()
         WHERE id = $1
     RETURNING ` + profileColumns
	row := r.db.QueryRow(ctx, query, id, upd.Name, upd.PhoneNumber, upd.ProfilePictureURL, upd.IsActive)
	p, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, app_errors.ErrUserNotFound
		}
		return nil, err
	}
	return &p, nil
}

// SetPassword stores a new password hash and clears the pending flag.
func (r *ProfilePostgres) SetPassword(ctx context.Context, id uuid.UUID, hash string) error {
	const query = `
        UPDATE profiles
           SET password   = $2,
               pending    = FALSE,
               updated_at = NOW()
         WHERE id = $1
    `
	cmdTag, err := r.db.Exec(ctx, query, id, hash)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return app_errors.ErrUserNotFound
	}
	return nil
}

func scanProfile(row pgx.Row) (models.Profile, error) {
	var p models.Profile
	err := row.Scan(
		&p.ID, &p.Name, &p.Email, &p.Role, &p.IsActive, &p.Pending,
		&p.PhoneNumber, &p.ProfilePictureURL, &p.Password, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}
