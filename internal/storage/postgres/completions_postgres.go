package postgres

import (
	"EduHub/internal/models"
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CompletionPostgres struct {
	db *pgxpool.Pool
}

func NewCompletionPostgres(db *pgxpool.Pool) *CompletionPostgres {
	return &CompletionPostgres{db: db}
}

// RecordCompletion stores the (student, lesson) completion and rewrites the
// progress snapshot of the enrollment in one transaction. Recording the
// same completion twice keeps the first completion time.
func (r *CompletionPostgres) RecordCompletion(ctx context.Context, c models.LessonCompletion, courseID, enrollmentID uuid.UUID, progress float64) error {
	const insertQuery = `
        INSERT INTO lesson_completions (student_id, lesson_id, course_id, completed_at)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (student_id, lesson_id) DO NOTHING
    `
	const snapshotQuery = `
        UPDATE enrollments
           SET progress   = $2,
               updated_at = NOW()
         WHERE id = $1
    `
	return withTx(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, insertQuery, c.StudentID, c.LessonID, courseID, c.CompletedAt); err != nil {
			return fmt.Errorf("failed to insert completion: %w", err)
		}
		if _, err := tx.Exec(ctx, snapshotQuery, enrollmentID, progress); err != nil {
			return fmt.Errorf("failed to update progress: %w", err)
		}
		return nil
	})
}

// CompletedLessons returns the ids of the lessons of a course the student
// has completed. Lessons that have since been deleted are not returned.
func (r *CompletionPostgres) CompletedLessons(ctx context.Context, studentID, courseID uuid.UUID) ([]uuid.UUID, error) {
	const query = `
        SELECT lesson_id
        FROM lesson_completions
        WHERE student_id = $1 AND course_id = $2
    `
	rows, err := r.db.Query(ctx, query, studentID, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err = rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
