package postgres

import (
	"EduHub/internal/app_errors"
	"EduHub/internal/coursetree"
	"EduHub/internal/models"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// HierarchyPostgres writes the structural rows of a course: sections,
// chapters, modules and lessons.
type HierarchyPostgres struct {
	db *pgxpool.Pool
}

func NewHierarchyPostgres(db *pgxpool.Pool) *HierarchyPostgres {
	return &HierarchyPostgres{db: db}
}

func (r *HierarchyPostgres) CreateSection(ctx context.Context, s models.Section) error {
	const query = `
        INSERT INTO sections (id, course_id, title, description, order_index, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `
	_, err := r.db.Exec(ctx, query, s.ID, s.CourseID, s.Title, s.Description, s.Order, s.CreatedAt, s.UpdatedAt)
	return UnwrapPgError(err, app_errors.ErrCourseNotFound)
}

func (r *HierarchyPostgres) CreateChapter(ctx context.Context, c models.Chapter) error {
	const query = `
        INSERT INTO chapters (id, section_id, title, description, order_index, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `
	_, err := r.db.Exec(ctx, query, c.ID, c.SectionID, c.Title, c.Description, c.Order, c.CreatedAt, c.UpdatedAt)
	return UnwrapPgError(err, app_errors.ErrSectionNotFound)
}

func (r *HierarchyPostgres) CreateModule(ctx context.Context, m models.Module) error {
	const query = `
        INSERT INTO modules (id, chapter_id, title, description, order_index, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `
	_, err := r.db.Exec(ctx, query, m.ID, m.ChapterID, m.Title, m.Description, m.Order, m.CreatedAt, m.UpdatedAt)
	return UnwrapPgError(err, app_errors.ErrChapterNotFound)
}

func (r *HierarchyPostgres) CreateLesson(ctx context.Context, l models.Lesson) error {
	const query = `
        INSERT INTO lessons (
            id, module_id, title, order_index,
            content_type, body, video_url, video_object_key,
            duration_minutes, state, prerequisites, release_at,
            created_at, updated_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
    `
	contentType, body, video := models.ContentFields(l.Content)
	_, err := r.db.Exec(ctx, query,
		l.ID, l.ModuleID, l.Title, l.Order,
		contentType, body, video.URL, video.ObjectKey,
		l.DurationMinutes, l.State, prerequisites(l), l.ReleaseAt,
		l.CreatedAt, l.UpdatedAt,
	)
	return UnwrapPgError(err, app_errors.ErrModuleNotFound)
}

func (r *HierarchyPostgres) UpdateSection(ctx context.Context, s models.Section) error {
	return r.updateNode(ctx, "sections", s.ID, s.Title, s.Description, s.UpdatedAt, app_errors.ErrSectionNotFound)
}

func (r *HierarchyPostgres) UpdateChapter(ctx context.Context, c models.Chapter) error {
	return r.updateNode(ctx, "chapters", c.ID, c.Title, c.Description, c.UpdatedAt, app_errors.ErrChapterNotFound)
}

func (r *HierarchyPostgres) UpdateModule(ctx context.Context, m models.Module) error {
	return r.updateNode(ctx, "modules", m.ID, m.Title, m.Description, m.UpdatedAt, app_errors.ErrModuleNotFound)
}

func (r *HierarchyPostgres) updateNode(ctx context.Context, table string, id uuid.UUID, title, description string, updatedAt time.Time, notFound error) error {
	query := fmt.Sprintf(`
        UPDATE %s
           SET title       = $2,
               description = $3,
               updated_at  = $4
         WHERE id = $1
    `, table)
	cmdTag, err := r.db.Exec(ctx, query, id, title, description, updatedAt)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return notFound
	}
	return nil
}

func (r *HierarchyPostgres) UpdateLesson(ctx context.Context, l models.Lesson) error {
	const query = `
        UPDATE lessons
           SET title            = $2,
               content_type     = $3,
               body             = $4,
               video_url        = $5,
               video_object_key = $6,
               duration_minutes = $7,
               state            = $8,
               prerequisites    = $9,
               release_at       = $10,
               updated_at       = $11
         WHERE id = $1
    `
	contentType, body, video := models.ContentFields(l.Content)
	cmdTag, err := r.db.Exec(ctx, query,
		l.ID, l.Title, contentType, body, video.URL, video.ObjectKey,
		l.DurationMinutes, l.State, prerequisites(l), l.ReleaseAt, l.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return app_errors.ErrLessonNotFound
	}
	return nil
}

func (r *HierarchyPostgres) SetLessonState(ctx context.Context, lessonID uuid.UUID, state models.PublicationState) error {
	const query = `
        UPDATE lessons
           SET state      = $2,
               updated_at = NOW()
         WHERE id = $1
    `
	cmdTag, err := r.db.Exec(ctx, query, lessonID, state)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return app_errors.ErrLessonNotFound
	}
	return nil
}

// DeleteNode removes a section, chapter, module or lesson. Descendants,
// section resources and completion rows are removed by ON DELETE CASCADE.
// DeleteNode removes a node; its descendants go with it through the
// cascading foreign keys. lessonIDs, the lessons removed with the node, are
// dropped from the prerequisites of the remaining lessons in the same
// transaction.
func (r *HierarchyPostgres) DeleteNode(ctx context.Context, ref models.NodeRef, lessonIDs []uuid.UUID) error {
	table, ok := nodeTables[ref.Kind]
	if !ok || ref.Kind == models.KindCourse {
		return app_errors.Validation("cannot delete a %q node here", ref.Kind)
	}
	const strip = `
        UPDATE lessons
           SET prerequisites = ARRAY(
                   SELECT p FROM unnest(prerequisites) WITH ORDINALITY AS u(p, n)
                    WHERE p <> ALL($1)
                    ORDER BY n),
               updated_at    = NOW()
         WHERE prerequisites && $1
    `
	return withTx(ctx, r.db, func(tx pgx.Tx) error {
		cmdTag, err := tx.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, table), ref.ID)
		if err != nil {
			return err
		}
		if cmdTag.RowsAffected() == 0 {
			return coursetree.NotFound(ref.Kind)
		}
		if len(lessonIDs) == 0 {
			return nil
		}
		_, err = tx.Exec(ctx, strip, lessonIDs)
		return err
	})
}

// ReorderChildren assigns order_index 1..n to ids, the children of parent.
// The sibling unique constraints are deferred, so the intermediate states
// inside the transaction may collide.
func (r *HierarchyPostgres) ReorderChildren(ctx context.Context, parent models.NodeRef, ids []uuid.UUID) error {
	childKind, ok := parent.Kind.ChildKind()
	if !ok {
		return app_errors.Validation("a %s has no children", parent.Kind)
	}
	query := fmt.Sprintf(`
        UPDATE %s
           SET order_index = $3,
               updated_at  = NOW()
         WHERE id = $1 AND %s = $2
    `, nodeTables[childKind], parentColumns[childKind])

	return withTx(ctx, r.db, func(tx pgx.Tx) error {
		for i, id := range ids {
			cmdTag, err := tx.Exec(ctx, query, id, parent.ID, i+1)
			if err != nil {
				return err
			}
			if cmdTag.RowsAffected() == 0 {
				return app_errors.ErrReorderMismatch
			}
		}
		return nil
	})
}

var nodeTables = map[models.NodeKind]string{
	models.KindCourse:  "courses",
	models.KindSection: "sections",
	models.KindChapter: "chapters",
	models.KindModule:  "modules",
	models.KindLesson:  "lessons",
}

var parentColumns = map[models.NodeKind]string{
	models.KindSection: "course_id",
	models.KindChapter: "section_id",
	models.KindModule:  "chapter_id",
	models.KindLesson:  "module_id",
}

func prerequisites(l models.Lesson) []uuid.UUID {
	if l.Prerequisites == nil {
		return []uuid.UUID{}
	}
	return l.Prerequisites
}

const lessonColumns = `
    l.id, l.module_id, l.title, l.order_index,
    l.content_type, l.body, l.video_url, l.video_object_key,
    l.duration_minutes, l.state, l.prerequisites, l.release_at,
    l.created_at, l.updated_at
`

func lessonsByCourse(ctx context.Context, db *pgxpool.Pool, courseID uuid.UUID) ([]models.Lesson, error) {
	query := `SELECT ` + lessonColumns + `
        FROM lessons l
        JOIN modules m ON m.id = l.module_id
        JOIN chapters ch ON ch.id = m.chapter_id
        JOIN sections s ON s.id = ch.section_id
        WHERE s.course_id = $1
    `
	rows, err := db.Query(ctx, query, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Lesson
	for rows.Next() {
		l, err := scanLesson(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func scanLesson(row pgx.Row) (models.Lesson, error) {
	var (
		l           models.Lesson
		contentType string
		body        *string
		video       models.VideoRef
	)
	err := row.Scan(
		&l.ID, &l.ModuleID, &l.Title, &l.Order,
		&contentType, &body, &video.URL, &video.ObjectKey,
		&l.DurationMinutes, &l.State, &l.Prerequisites, &l.ReleaseAt,
		&l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return models.Lesson{}, err
	}
	l.Content, err = models.NewContent(contentType, body, video)
	if err != nil {
		return models.Lesson{}, fmt.Errorf("lesson %s: %w", l.ID, err)
	}
	return l, nil
}
