package repo

import (
	"context"

	"github.com/google/uuid"

	"storefront-api/internal/domain"
)

type CartRepo interface {
	// List returns the user's cart lines joined with current catalog name and price.
	List(ctx context.Context, userID uuid.UUID) ([]domain.CartItem, error)
	// AddItem inserts the line or adds qty to an existing one.
	AddItem(ctx context.Context, userID, productID uuid.UUID, qty int) error
	SetQuantity(ctx context.Context, userID, productID uuid.UUID, qty int) error
	RemoveItem(ctx context.Context, userID, productID uuid.UUID) error
	Clear(ctx context.Context, userID uuid.UUID) error
}

type cartRepo struct {
	q DBTX
}

func (r *cartRepo) List(ctx context.Context, userID uuid.UUID) ([]domain.CartItem, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT c.user_id, c.product_id, c.quantity, c.created_at, c.updated_at, p.name, p.price
		 FROM cart_items c
		 JOIN products p ON p.id = c.product_id
		 WHERE c.user_id = $1
		 ORDER BY c.created_at, c.product_id`, userID)
	if err != nil {
		return nil, wrap(err)
	}
	defer rows.Close()

	items := []domain.CartItem{}
	for rows.Next() {
		var it domain.CartItem
		if err := rows.Scan(
			&it.UserID,
			&it.ProductID,
			&it.Quantity,
			&it.CreatedAt,
			&it.UpdatedAt,
			&it.ProductName,
			&it.UnitPrice,
		); err != nil {
			return nil, wrap(err)
		}
		items = append(items, it)
	}
	return items, wrap(rows.Err())
}

func (r *cartRepo) AddItem(ctx context.Context, userID, productID uuid.UUID, qty int) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO cart_items (user_id, product_id, quantity) VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, product_id)
		 DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity, updated_at = now()`,
		userID, productID, qty)
	if pgCode(err) == pgForeignKeyViolation {
		return domain.ErrProductNotFound
	}
	return wrap(err)
}

func (r *cartRepo) SetQuantity(ctx context.Context, userID, productID uuid.UUID, qty int) error {
	return execOne(ctx, r.q,
		`UPDATE cart_items SET quantity = $3, updated_at = now() WHERE user_id = $1 AND product_id = $2`,
		userID, productID, qty)
}

func (r *cartRepo) RemoveItem(ctx context.Context, userID, productID uuid.UUID) error {
	return execOne(ctx, r.q,
		`DELETE FROM cart_items WHERE user_id = $1 AND product_id = $2`, userID, productID)
}

func (r *cartRepo) Clear(ctx context.Context, userID uuid.UUID) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID)
	return wrap(err)
}
