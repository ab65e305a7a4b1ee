// Package repotest provides an in-memory repo.Store for tests.
//
// Transactions copy the whole state on begin and swap it in on commit while
// holding the store mutex, so they are fully serialized.
package repotest

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"storefront-api/internal/domain"
	"storefront-api/internal/repo"
)

// Failure op names accepted by Store.FailOn.
const (
	OpBeginTx        = "tx.begin"
	OpLockProducts   = "products.lock"
	OpDecrementStock = "products.decrement_stock"
	OpCreateAddress  = "addresses.create"
	OpCreateOrder    = "orders.create"
	OpCreateLine     = "orders.create_line"
	OpFindOrder      = "orders.find"
	OpEnqueueOutbox  = "outbox.enqueue"
	OpLockOutbox     = "outbox.lock"
)

type state struct {
	products   map[uuid.UUID]domain.Product
	categories map[uuid.UUID]domain.Category
	orders     map[uuid.UUID]domain.Order
	lines      map[uuid.UUID][]domain.OrderLine
	addresses  map[uuid.UUID]domain.Address
	carts      map[uuid.UUID][]domain.CartItem
	outbox     []outboxRow
	outboxSeq  int64
	lineOrder  map[uuid.UUID]int
}

type outboxRow struct {
	event  domain.OutboxEvent
	status string
	err    string
}

func newState() *state {
	return &state{
		products:   map[uuid.UUID]domain.Product{},
		categories: map[uuid.UUID]domain.Category{},
		orders:     map[uuid.UUID]domain.Order{},
		lines:      map[uuid.UUID][]domain.OrderLine{},
		addresses:  map[uuid.UUID]domain.Address{},
		carts:      map[uuid.UUID][]domain.CartItem{},
		lineOrder:  map[uuid.UUID]int{},
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.categories {
		c.categories[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.lines {
		c.lines[k] = append([]domain.OrderLine(nil), v...)
	}
	for k, v := range s.addresses {
		c.addresses[k] = v
	}
	for k, v := range s.carts {
		c.carts[k] = append([]domain.CartItem(nil), v...)
	}
	for k, v := range s.lineOrder {
		c.lineOrder[k] = v
	}
	c.outbox = append([]outboxRow(nil), s.outbox...)
	c.outboxSeq = s.outboxSeq
	return c
}

type Store struct {
	mu    sync.Mutex
	st    *state
	fails map[string]error
	now   func() time.Time
}

var _ repo.Store = (*Store)(nil)

func New() *Store {
	return &Store{st: newState(), fails: map[string]error{}, now: time.Now}
}

// FailOn makes every subsequent call of op return err. A nil err clears it.
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.fails, op)
		return
	}
	s.fails[op] = err
}

func (s *Store) WithinTx(ctx context.Context, fn func(tx repo.Repos) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fails[OpBeginTx]; err != nil {
		return domain.Persistence(err)
	}
	if err := ctx.Err(); err != nil {
		return domain.Persistence(err)
	}
	work := s.st.clone()
	if err := fn(&handle{store: s, st: work, inTx: true}); err != nil {
		return err
	}
	s.st = work
	return nil
}

func (s *Store) pool() *handle {
	return &handle{store: s}
}

func (s *Store) Products() repo.ProductRepo { return s.pool().Products() }
func (s *Store) Categories() repo.CategoryRepo { return s.pool().Categories() }
func (s *Store) Orders() repo.OrderRepo { return s.pool().Orders() }
func (s *Store) Addresses() repo.AddressRepo { return s.pool().Addresses() }
func (s *Store) Carts() repo.CartRepo { return s.pool().Carts() }
func (s *Store) Outbox() repo.OutboxRepo { return s.pool().Outbox() }

// Seed helpers bypass failure injection.

func (s *Store) PutProduct(p domain.Product) domain.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
		p.UpdatedAt = p.CreatedAt
	}
	s.st.products[p.ID] = p
	return p
}

func (s *Store) PutCategory(c domain.Category) domain.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	s.st.categories[c.ID] = c
	return c
}

func (s *Store) Product(id uuid.UUID) (domain.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.st.products[id]
	return p, ok
}

// StockOf returns the current stock of id, or -1 when it does not exist.
func (s *Store) StockOf(id uuid.UUID) int {
	p, ok := s.Product(id)
	if !ok {
		return -1
	}
	return p.StockQuantity
}

// Counts reports row counts for orders, order lines, addresses and outbox events.
func (s *Store) Counts() (nOrders, nLines, nAddresses, nEvents int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ls := range s.st.lines {
		nLines += len(ls)
	}
	return len(s.st.orders), nLines, len(s.st.addresses), len(s.st.outbox)
}

// Events returns the outbox events with the given status ("pending", "sent", "failed").
func (s *Store) Events(status string) []domain.OutboxEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.OutboxEvent
	for _, row := range s.st.outbox {
		if row.status == status {
			out = append(out, row.event)
		}
	}
	return out
}

// handle binds repositories to one state. Pool handles lock the store per
// call; transaction handles run with the lock already held by WithinTx.
type handle struct {
	store *Store
	st    *state
	inTx  bool
}

func (h *handle) enter(op string) (*state, func(), error) {
	if h.inTx {
		if err := h.store.fails[op]; err != nil {
			return nil, nil, domain.Persistence(err)
		}
		return h.st, func() {}, nil
	}
	h.store.mu.Lock()
	if err := h.store.fails[op]; err != nil {
		h.store.mu.Unlock()
		return nil, nil, domain.Persistence(err)
	}
	return h.store.st, h.store.mu.Unlock, nil
}

func (h *handle) Products() repo.ProductRepo { return products{h} }
func (h *handle) Categories() repo.CategoryRepo { return categories{h} }
func (h *handle) Orders() repo.OrderRepo { return orders{h} }
func (h *handle) Addresses() repo.AddressRepo { return addresses{h} }
func (h *handle) Carts() repo.CartRepo { return carts{h} }
func (h *handle) Outbox() repo.OutboxRepo { return outbox{h} }

func page[T any](all []T, pg, limit int) []T {
	pg, limit = domain.NormalizePage(pg, limit)
	start := domain.Offset(pg, limit)
	if start >= len(all) {
		return []T{}
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return append([]T{}, all[start:end]...)
}
