package repo

import (
	"context"

	"github.com/google/uuid"

	"storefront-api/internal/domain"
)

type AddressRepo interface {
	Create(ctx context.Context, a *domain.Address) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Address, error)
}

type addressRepo struct {
	q DBTX
}

func (r *addressRepo) Create(ctx context.Context, a *domain.Address) error {
	err := r.q.QueryRowContext(ctx,
		`INSERT INTO addresses (id, user_id, street, city, district, country)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at`,
		a.ID, a.UserID, a.Street, a.City, a.District, a.Country,
	).Scan(&a.CreatedAt)
	return wrap(err)
}

func (r *addressRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Address, error) {
	var a domain.Address
	err := r.q.QueryRowContext(ctx,
		`SELECT id, user_id, street, city, district, country, created_at FROM addresses WHERE id = $1`, id,
	).Scan(&a.ID, &a.UserID, &a.Street, &a.City, &a.District, &a.Country, &a.CreatedAt)
	if err != nil {
		return nil, wrap(err)
	}
	return &a, nil
}
