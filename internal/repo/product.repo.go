package repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"storefront-api/internal/domain"
)

type ProductRepo interface {
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	// FindByIDs returns the products that exist among ids, in id order.
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Product, error)
	// LockByIDs is FindByIDs with row locks held until the surrounding transaction ends.
	LockByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Product, error)
	List(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, int, error)
	Create(ctx context.Context, p *domain.Product) error
	Update(ctx context.Context, id uuid.UUID, patch *Patch) (*domain.Product, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// DecrementStock subtracts qty only if enough stock remains; it reports false otherwise.
	DecrementStock(ctx context.Context, id uuid.UUID, qty int) (bool, error)
}

const productColumns = `id, category_id, name, description, price, stock_quantity, created_at, updated_at`

type productRepo struct {
	q DBTX
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (domain.Product, error) {
	var (
		p     domain.Product
		catID uuid.NullUUID
	)
	err := row.Scan(
		&p.ID,
		&catID,
		&p.Name,
		&p.Description,
		&p.Price,
		&p.StockQuantity,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	p.CategoryID = ptrUUID(catID)
	return p, err
}

func (r *productRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	p, err := scanProduct(r.q.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err != nil {
		return nil, wrap(err)
	}
	return &p, nil
}

func (r *productRepo) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Product, error) {
	return r.findByIDs(ctx, ids, "")
}

func (r *productRepo) LockByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Product, error) {
	// Ordered locking keeps two placements touching the same products from deadlocking.
	return r.findByIDs(ctx, ids, " FOR UPDATE")
}

func (r *productRepo) findByIDs(ctx context.Context, ids []uuid.UUID, suffix string) ([]domain.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = ANY($1::uuid[]) ORDER BY id`+suffix,
		idStrings(ids),
	)
	if err != nil {
		return nil, wrap(err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, wrap(err)
		}
		products = append(products, p)
	}
	return products, wrap(rows.Err())
}

func (r *productRepo) List(ctx context.Context, f domain.ProductFilter) ([]domain.Product, int, error) {
	f.Normalize()

	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.CategoryID != nil {
		where = append(where, "category_id = "+arg(*f.CategoryID))
	}
	if f.MinPrice != nil {
		where = append(where, "price >= "+arg(*f.MinPrice))
	}
	if f.MaxPrice != nil {
		where = append(where, "price <= "+arg(*f.MaxPrice))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		where = append(where, "lower(name) LIKE "+arg("%"+strings.ToLower(s)+"%"))
	}
	if f.InStock {
		where = append(where, "stock_quantity > 0")
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.q.QueryRowContext(ctx, `SELECT count(*) FROM products`+clause, args...).Scan(&total); err != nil {
		return nil, 0, wrap(err)
	}

	query := `SELECT ` + productColumns + ` FROM products` + clause +
		` ORDER BY created_at DESC, id LIMIT ` + arg(f.Limit) + ` OFFSET ` + arg(domain.Offset(f.Page, f.Limit))
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, wrap(err)
	}
	defer rows.Close()

	products := []domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, wrap(err)
		}
		products = append(products, p)
	}
	return products, total, wrap(rows.Err())
}

func (r *productRepo) Create(ctx context.Context, p *domain.Product) error {
	err := r.q.QueryRowContext(ctx,
		`INSERT INTO products (id, category_id, name, description, price, stock_quantity)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at, updated_at`,
		p.ID, nullUUID(p.CategoryID), p.Name, p.Description, p.Price, p.StockQuantity,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	return wrap(err)
}

func (r *productRepo) Update(ctx context.Context, id uuid.UUID, patch *Patch) (*domain.Product, error) {
	if patch.Empty() {
		return nil, domain.ErrNoChanges
	}
	query, args := buildUpdate("products", patch, id, productColumns)
	p, err := scanProduct(r.q.QueryRowContext(ctx, query, args...))
	if err != nil {
		if pgCode(err) == pgCheckViolation {
			return nil, domain.Validationf("price and stock must be non-negative")
		}
		return nil, wrap(err)
	}
	return &p, nil
}

func (r *productRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return execOne(ctx, r.q, `DELETE FROM products WHERE id = $1`, id)
}

func (r *productRepo) DecrementStock(ctx context.Context, id uuid.UUID, qty int) (bool, error) {
	res, err := r.q.ExecContext(ctx,
		`UPDATE products
		 SET stock_quantity = stock_quantity - $2, updated_at = now()
		 WHERE id = $1 AND stock_quantity >= $2`,
		id, qty,
	)
	if err != nil {
		if pgCode(err) == pgCheckViolation {
			return false, nil
		}
		return false, wrap(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, wrap(err)
	}
	return n == 1, nil
}

// execOne runs a statement that must touch exactly one row.
func execOne(ctx context.Context, q DBTX, query string, args ...any) error {
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return wrap(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrap(err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

