package postgres

import (
	"EduHub/internal/app_errors"
	"EduHub/internal/models"
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ResourcePostgres stores the files and links attached to sections.
type ResourcePostgres struct {
	db *pgxpool.Pool
}

func NewResourcePostgres(db *pgxpool.Pool) *ResourcePostgres {
	return &ResourcePostgres{db: db}
}

const resourceColumns = `
    r.id, r.section_id, r.title, r.resource_type, r.resource_url,
    r.object_key, r.file_name, r.file_size, r.order_index, r.created_at
`

func (r *ResourcePostgres) CreateResource(ctx context.Context, res models.SectionResource) error {
	const query = `
    INSERT INTO section_resources (
        id, section_id, title, resource_type, resource_url,
        object_key, file_name, file_size, order_index, created_at
    ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
    `
	_, err := r.db.Exec(ctx, query,
		res.ID, res.SectionID, res.Title, res.ResourceType, res.URL,
		res.ObjectKey, res.FileName, res.FileSize, res.Order, res.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert resource: %w", UnwrapPgError(err, app_errors.ErrSectionNotFound))
	}
	return nil
}

func (r *ResourcePostgres) ResourceByID(ctx context.Context, id uuid.UUID) (*models.SectionResource, error) {
	query := `SELECT ` + resourceColumns + ` FROM section_resources r WHERE r.id = $1`
	res, err := scanResource(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, app_errors.ErrResourceNotFound
		}
		return nil, err
	}
	return &res, nil
}

func (r *ResourcePostgres) DeleteResource(ctx context.Context, id uuid.UUID) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM section_resources WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return app_errors.ErrResourceNotFound
	}
	return nil
}

// ResourcesByCourse returns the resources of every section of a course,
// ordered by section and then by resource order.
func (r *ResourcePostgres) ResourcesByCourse(ctx context.Context, courseID uuid.UUID) ([]models.SectionResource, error) {
	query := `SELECT ` + resourceColumns + `
      FROM section_resources r
      JOIN sections s ON s.id = r.section_id
     WHERE s.course_id = $1
  ORDER BY s.order_index, r.order_index
    `
	rows, err := r.db.Query(ctx, query, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to query resources: %w", err)
	}
	defer rows.Close()

	var out []models.SectionResource
	for rows.Next() {
		res, err := scanResource(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

func scanResource(row pgx.Row) (models.SectionResource, error) {
	var res models.SectionResource
	err := row.Scan(
		&res.ID, &res.SectionID, &res.Title, &res.ResourceType, &res.URL,
		&res.ObjectKey, &res.FileName, &res.FileSize, &res.Order, &res.CreatedAt,
	)
	return res, err
}
