package postgres

import (
	"EduHub/internal/app_errors"
	"EduHub/internal/coursetree"
	"EduHub/internal/models"
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

type CoursePostgres struct {
	db *pgxpool.Pool
}

func NewCoursePostgres(db *pgxpool.Pool) *CoursePostgres {
	return &CoursePostgres{db: db}
}

func (r *CoursePostgres) CreateCourse(ctx context.Context, course models.Course) error {
	const query = `
		INSERT INTO courses (id, title, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.Exec(ctx, query, course.ID, course.Title, course.Description, course.CreatedAt, course.UpdatedAt)
	return UnwrapPgError(err, nil)
}

func (r *CoursePostgres) UpdateCourse(ctx context.Context, course models.Course) error {
	const query = `
        UPDATE courses
           SET title       = $2,
               description = $3,
               updated_at  = $4
         WHERE id = $1
    `
	cmdTag, err := r.db.Exec(ctx, query, course.ID, course.Title, course.Description, course.UpdatedAt)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return app_errors.ErrCourseNotFound
	}
	return nil
}

// DeleteCourse removes the course; sections, resources, lessons,
// completions and enrollments go with it through ON DELETE CASCADE.
func (r *CoursePostgres) DeleteCourse(ctx context.Context, id uuid.UUID) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM courses WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return app_errors.ErrCourseNotFound
	}
	return nil
}

func (r *CoursePostgres) CourseByID(ctx context.Context, id uuid.UUID) (*models.Course, error) {
	const query = `
        SELECT id, title, description, created_at, updated_at
        FROM courses
        WHERE id = $1
    `
	course := &models.Course{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&course.ID,
		&course.Title,
		&course.Description,
		&course.CreatedAt,
		&course.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, app_errors.ErrCourseNotFound
		}
		return nil, err
	}

	return course, nil
}

func (r *CoursePostgres) ListCourses(ctx context.Context) ([]models.Course, error) {
	const query = `
        SELECT id, title, description, created_at, updated_at
        FROM courses
        ORDER BY created_at DESC
    `
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCourses(rows)
}

// CoursesByIDs returns the courses with the given ids in the order of ids.
// Unknown ids are skipped.
func (r *CoursePostgres) CoursesByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Course, error) {
	const query = `
        SELECT c.id, c.title, c.description, c.created_at, c.updated_at
        FROM unnest($1::uuid[]) WITH ORDINALITY AS q(id, pos)
        JOIN courses c ON c.id = q.id
        ORDER BY q.pos
    `
	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCourses(rows)
}

func scanCourses(rows pgx.Rows) ([]models.Course, error) {
	var courses []models.Course
	for rows.Next() {
		var c models.Course
		if err := rows.Scan(&c.ID, &c.Title, &c.Description, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		courses = append(courses, c)
	}
	return courses, rows.Err()
}

// CourseContent loads every structural row of a course. The four child
// tables are read in parallel once the course itself is known to exist.
func (r *CoursePostgres) CourseContent(ctx context.Context, courseID uuid.UUID) (*models.CourseContent, error) {
	course, err := r.CourseByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	content := &models.CourseContent{Course: *course}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		content.Sections, err = r.sectionsByCourse(ctx, courseID)
		return err
	})
	g.Go(func() error {
		var err error
		content.Chapters, err = r.chaptersByCourse(ctx, courseID)
		return err
	})
	g.Go(func() error {
		var err error
		content.Modules, err = r.modulesByCourse(ctx, courseID)
		return err
	})
	g.Go(func() error {
		var err error
		content.Lessons, err = lessonsByCourse(ctx, r.db, courseID)
		return err
	})
	if err = g.Wait(); err != nil {
		return nil, fmt.Errorf("load course %s: %w", courseID, err)
	}
	return content, nil
}

func (r *CoursePostgres) sectionsByCourse(ctx context.Context, courseID uuid.UUID) ([]models.Section, error) {
	const query = `
        SELECT id, course_id, title, description, order_index, created_at, updated_at
        FROM sections
        WHERE course_id = $1
    `
	rows, err := r.db.Query(ctx, query, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Section
	for rows.Next() {
		var s models.Section
		if err = rows.Scan(&s.ID, &s.CourseID, &s.Title, &s.Description, &s.Order, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *CoursePostgres) chaptersByCourse(ctx context.Context, courseID uuid.UUID) ([]models.Chapter, error) {
	const query = `
        SELECT ch.id, ch.section_id, ch.title, ch.description, ch.order_index, ch.created_at, ch.updated_at
        FROM chapters ch
        JOIN sections s ON s.id = ch.section_id
        WHERE s.course_id = $1
    `
	rows, err := r.db.Query(ctx, query, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Chapter
	for rows.Next() {
		var c models.Chapter
		if err = rows.Scan(&c.ID, &c.SectionID, &c.Title, &c.Description, &c.Order, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *CoursePostgres) modulesByCourse(ctx context.Context, courseID uuid.UUID) ([]models.Module, error) {
	const query = `
        SELECT m.id, m.chapter_id, m.title, m.description, m.order_index, m.created_at, m.updated_at
        FROM modules m
        JOIN chapters ch ON ch.id = m.chapter_id
        JOIN sections s ON s.id = ch.section_id
        WHERE s.course_id = $1
    `
	rows, err := r.db.Query(ctx, query, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Module
	for rows.Next() {
		var m models.Module
		if err = rows.Scan(&m.ID, &m.ChapterID, &m.Title, &m.Description, &m.Order, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// CourseIDOf resolves the course a node belongs to.
func (r *CoursePostgres) CourseIDOf(ctx context.Context, ref models.NodeRef) (uuid.UUID, error) {
	var query string
	switch ref.Kind {
	case models.KindCourse:
		query = `SELECT id FROM courses WHERE id = $1`
	case models.KindSection:
		query = `SELECT course_id FROM sections WHERE id = $1`
	case models.KindChapter:
		query = `
            SELECT s.course_id FROM chapters ch
            JOIN sections s ON s.id = ch.section_id
            WHERE ch.id = $1`
	case models.KindModule:
		query = `
            SELECT s.course_id FROM modules m
            JOIN chapters ch ON ch.id = m.chapter_id
            JOIN sections s ON s.id = ch.section_id
            WHERE m.id = $1`
	case models.KindLesson:
		query = `
            SELECT s.course_id FROM lessons l
            JOIN modules m ON m.id = l.module_id
            JOIN chapters ch ON ch.id = m.chapter_id
            JOIN sections s ON s.id = ch.section_id
            WHERE l.id = $1`
	default:
		return uuid.Nil, app_errors.Validation("unknown node kind %q", ref.Kind)
	}

	var courseID uuid.UUID
	if err := r.db.QueryRow(ctx, query, ref.ID).Scan(&courseID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, coursetree.NotFound(ref.Kind)
		}
		return uuid.Nil, err
	}
	return courseID, nil
}
