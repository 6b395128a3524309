package postgres

import (
	"EduHub/internal/app_errors"
	"EduHub/internal/models"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type EnrollmentPostgres struct {
	db *pgxpool.Pool
}

func NewEnrollmentPostgres(db *pgxpool.Pool) *EnrollmentPostgres {
	return &EnrollmentPostgres{db: db}
}

const enrollmentColumns = `id, student_id, course_id, progress, is_active, enrolled_at, updated_at`

// ActivateEnrollment creates the enrollment or reactivates an inactive one.
// The progress snapshot of a reactivated enrollment is kept.
func (r *EnrollmentPostgres) ActivateEnrollment(ctx context.Context, studentID, courseID uuid.UUID) (*models.Enrollment, error) {
	now := time.Now().UTC()
	query := `
        INSERT INTO enrollments (id, student_id, course_id, progress, is_active, enrolled_at, updated_at)
        VALUES ($1, $2, $3, 0, TRUE, $4, $4)
        ON CONFLICT (student_id, course_id)
        DO UPDATE SET is_active = TRUE, updated_at = EXCLUDED.updated_at
        RETURNING ` + enrollmentColumns
	e, err := scanEnrollment(r.db.QueryRow(ctx, query, uuid.New(), studentID, courseID, now))
	if err != nil {
		return nil, fmt.Errorf("failed to activate enrollment: %w", UnwrapPgError(err, nil))
	}
	return &e, nil
}

// DeactivateEnrollment marks an active enrollment inactive and stores
// progress as its snapshot. A missing or already inactive enrollment is
// left alone.
func (r *EnrollmentPostgres) DeactivateEnrollment(ctx context.Context, studentID, courseID uuid.UUID, progress float64) error {
	const query = `
        UPDATE enrollments
           SET is_active  = FALSE,
               progress   = $3,
               updated_at = NOW()
         WHERE student_id = $1 AND course_id = $2 AND is_active
    `
	_, err := r.db.Exec(ctx, query, studentID, courseID, progress)
	return err
}

func (r *EnrollmentPostgres) Enrollment(ctx context.Context, studentID, courseID uuid.UUID) (*models.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE student_id = $1 AND course_id = $2`
	e, err := scanEnrollment(r.db.QueryRow(ctx, query, studentID, courseID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, app_errors.ErrEnrollmentNotFound
		}
		return nil, err
	}
	return &e, nil
}

func (r *EnrollmentPostgres) EnrollmentsByStudent(ctx context.Context, studentID uuid.UUID) ([]models.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE student_id = $1 ORDER BY enrolled_at DESC`
	return r.list(ctx, query, studentID)
}

func (r *EnrollmentPostgres) EnrollmentsByCourse(ctx context.Context, courseID uuid.UUID) ([]models.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE course_id = $1 ORDER BY enrolled_at DESC`
	return r.list(ctx, query, courseID)
}

func (r *EnrollmentPostgres) list(ctx context.Context, query string, arg uuid.UUID) ([]models.Enrollment, error) {
	rows, err := r.db.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query enrollments: %w", err)
	}
	defer rows.Close()

	var out []models.Enrollment
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanEnrollment(row pgx.Row) (models.Enrollment, error) {
	var e models.Enrollment
	err := row.Scan(&e.ID, &e.StudentID, &e.CourseID, &e.Progress, &e.IsActive, &e.EnrolledAt, &e.UpdatedAt)
	return e, err
}
