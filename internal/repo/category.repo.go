package repo

import (
	"context"

	"github.com/google/uuid"

	"storefront-api/internal/domain"
)

type CategoryRepo interface {
	List(ctx context.Context) ([]domain.Category, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Category, error)
	Create(ctx context.Context, c *domain.Category) error
	Update(ctx context.Context, id uuid.UUID, patch *Patch) (*domain.Category, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

const categoryColumns = `id, name, description, created_at, updated_at`

type categoryRepo struct {
	q DBTX
}

func scanCategory(row rowScanner) (domain.Category, error) {
	var c domain.Category
	err := row.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (r *categoryRepo) List(ctx context.Context) ([]domain.Category, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+categoryColumns+` FROM categories ORDER BY name`)
	if err != nil {
		return nil, wrap(err)
	}
	defer rows.Close()

	categories := []domain.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, wrap(err)
		}
		categories = append(categories, c)
	}
	return categories, wrap(rows.Err())
}

func (r *categoryRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	c, err := scanCategory(r.q.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id))
	if err != nil {
		return nil, wrap(err)
	}
	return &c, nil
}

func (r *categoryRepo) Create(ctx context.Context, c *domain.Category) error {
	err := r.q.QueryRowContext(ctx,
		`INSERT INTO categories (id, name, description) VALUES ($1, $2, $3) RETURNING created_at, updated_at`,
		c.ID, c.Name, c.Description,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	return wrap(err)
}

func (r *categoryRepo) Update(ctx context.Context, id uuid.UUID, patch *Patch) (*domain.Category, error) {
	if patch.Empty() {
		return nil, domain.ErrNoChanges
	}
	query, args := buildUpdate("categories", patch, id, categoryColumns)
	c, err := scanCategory(r.q.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, wrap(err)
	}
	return &c, nil
}

func (r *categoryRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return execOne(ctx, r.q, `DELETE FROM categories WHERE id = $1`, id)
}
