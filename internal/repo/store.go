package repo

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Repos groups the repositories bound to one database handle.
type Repos interface {
	Products() ProductRepo
	Categories() CategoryRepo
	Orders() OrderRepo
	Addresses() AddressRepo
	Carts() CartRepo
	Outbox() OutboxRepo
}

// Store gives pool-level access to the repositories and runs units of work.
type Store interface {
	Repos
	// WithinTx runs fn in a READ COMMITTED transaction. fn's repositories all
	// share that transaction; it is committed only when fn returns nil.
	WithinTx(ctx context.Context, fn func(tx Repos) error) error
}

type repos struct {
	q DBTX
}

func (r repos) Products() ProductRepo { return &productRepo{q: r.q} }
func (r repos) Categories() CategoryRepo { return &categoryRepo{q: r.q} }
func (r repos) Orders() OrderRepo { return &orderRepo{q: r.q} }
func (r repos) Addresses() AddressRepo { return &addressRepo{q: r.q} }
func (r repos) Carts() CartRepo { return &cartRepo{q: r.q} }
func (r repos) Outbox() OutboxRepo { return &outboxRepo{q: r.q} }

type sqlStore struct {
	repos
	db *sql.DB
}

func NewStore(db *sql.DB) Store {
	return &sqlStore{repos: repos{q: db}, db: db}
}

func (s *sqlStore) WithinTx(ctx context.Context, fn func(tx Repos) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return wrap(err)
	}
	// No-op once committed; covers error returns and panics alike.
	defer tx.Rollback()

	if err := fn(repos{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return wrap(err)
	}
	return nil
}
