package repo

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"storefront-api/internal/domain"
)

type OrderRepo interface {
	CreateOrder(ctx context.Context, order *domain.Order) error
	CreateLine(ctx context.Context, line *domain.OrderLine, position int) error
	// FindById returns the order with its lines and shipping address.
	FindById(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	// FindForUpdate returns the order header and locks it for the surrounding transaction.
	FindForUpdate(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID, page, limit int) ([]domain.Order, int, error)
	UpdateOrderStatus(ctx context.Context, order *domain.Order) error
}

const orderColumns = `id, user_id, total, vat_amount, status, payment_method, shipping_address_id, notes, created_at, updated_at`

type orderRepo struct {
	q DBTX
}

func scanOrder(row rowScanner) (domain.Order, error) {
	var (
		o         domain.Order
		addressID uuid.NullUUID
		notes     sql.NullString
	)
	err := row.Scan(
		&o.ID,
		&o.UserID,
		&o.Total,
		&o.VATAmount,
		&o.Status,
		&o.PaymentMethod,
		&addressID,
		&notes,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	o.ShippingAddressID = ptrUUID(addressID)
	o.Notes = ptrString(notes)
	return o, err
}

func (r *orderRepo) CreateOrder(ctx context.Context, order *domain.Order) error {
	err := r.q.QueryRowContext(ctx,
		`INSERT INTO orders (id, user_id, total, vat_amount, status, payment_method, shipping_address_id, notes)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING created_at, updated_at`,
		order.ID,
		order.UserID,
		order.Total,
		order.VATAmount,
		order.Status,
		order.PaymentMethod,
		nullUUID(order.ShippingAddressID),
		nullString(order.Notes),
	).Scan(&order.CreatedAt, &order.UpdatedAt)
	return wrap(err)
}

func (r *orderRepo) CreateLine(ctx context.Context, line *domain.OrderLine, position int) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO order_items (id, order_id, product_id, quantity, price, position) VALUES ($1, $2, $3, $4, $5, $6)`,
		line.ID, line.OrderID, line.ProductID, line.Quantity, line.Price, position,
	)
	return wrap(err)
}

func (r *orderRepo) FindById(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	order, err := scanOrder(r.q.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		return nil, wrap(err)
	}

	lines, err := r.linesFor(ctx, []uuid.UUID{order.ID})
	if err != nil {
		return nil, err
	}
	order.Items = lines[order.ID]

	if order.ShippingAddressID != nil {
		addr, err := (&addressRepo{q: r.q}).FindByID(ctx, *order.ShippingAddressID)
		if err != nil {
			return nil, err
		}
		order.ShippingAddress = addr
	}
	return &order, nil
}

func (r *orderRepo) FindForUpdate(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	order, err := scanOrder(r.q.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, wrap(err)
	}
	return &order, nil
}

func (r *orderRepo) ListByUser(ctx context.Context, userID uuid.UUID, page, limit int) ([]domain.Order, int, error) {
	page, limit = domain.NormalizePage(page, limit)

	var total int
	if err := r.q.QueryRowContext(ctx, `SELECT count(*) FROM orders WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, wrap(err)
	}

	rows, err := r.q.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = $1
		 ORDER BY created_at DESC, id LIMIT $2 OFFSET $3`,
		userID, limit, domain.Offset(page, limit))
	if err != nil {
		return nil, 0, wrap(err)
	}
	defer rows.Close()

	orders := []domain.Order{}
	var ids []uuid.UUID
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, wrap(err)
		}
		orders = append(orders, o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, wrap(err)
	}

	lines, err := r.linesFor(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range orders {
		orders[i].Items = lines[orders[i].ID]
	}
	return orders, total, nil
}

func (r *orderRepo) linesFor(ctx context.Context, orderIDs []uuid.UUID) (map[uuid.UUID][]domain.OrderLine, error) {
	out := make(map[uuid.UUID][]domain.OrderLine, len(orderIDs))
	if len(orderIDs) == 0 {
		return out, nil
	}
	rows, err := r.q.QueryContext(ctx,
		`SELECT id, order_id, product_id, quantity, price FROM order_items
		 WHERE order_id = ANY($1::uuid[]) ORDER BY order_id, position`,
		idStrings(orderIDs))
	if err != nil {
		return nil, wrap(err)
	}
	defer rows.Close()

	for rows.Next() {
		var l domain.OrderLine
		if err := rows.Scan(&l.ID, &l.OrderID, &l.ProductID, &l.Quantity, &l.Price); err != nil {
			return nil, wrap(err)
		}
		out[l.OrderID] = append(out[l.OrderID], l)
	}
	return out, wrap(rows.Err())
}

func (r *orderRepo) UpdateOrderStatus(ctx context.Context, order *domain.Order) error {
	err := r.q.QueryRowContext(ctx,
		`UPDATE orders SET status = $1, updated_at = now() WHERE id = $2 RETURNING updated_at`,
		order.Status, order.ID,
	).Scan(&order.UpdatedAt)
	return wrap(err)
}
