package repotest

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"storefront-api/internal/domain"
	"storefront-api/internal/repo"
)

type products struct{ h *handle }

func (r products) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	st, done, err := r.h.enter("products.find")
	if err != nil {
		return nil, err
	}
	defer done()
	p, ok := st.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (r products) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Product, error) {
	return r.find("products.find", ids)
}

func (r products) LockByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Product, error) {
	return r.find(OpLockProducts, ids)
}

func (r products) find(op string, ids []uuid.UUID) ([]domain.Product, error) {
	st, done, err := r.h.enter(op)
	if err != nil {
		return nil, err
	}
	defer done()
	out := []domain.Product{}
	for _, id := range ids {
		if p, ok := st.products[id]; ok {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (r products) List(ctx context.Context, f domain.ProductFilter) ([]domain.Product, int, error) {
	st, done, err := r.h.enter("products.list")
	if err != nil {
		return nil, 0, err
	}
	defer done()
	all := []domain.Product{}
	for _, p := range st.products {
		if f.CategoryID != nil && (p.CategoryID == nil || *p.CategoryID != *f.CategoryID) {
			continue
		}
		if f.MinPrice != nil && p.Price.LessThan(*f.MinPrice) {
			continue
		}
		if f.MaxPrice != nil && p.Price.GreaterThan(*f.MaxPrice) {
			continue
		}
		if q := strings.TrimSpace(f.Search); q != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(q)) {
			continue
		}
		if f.InStock && p.StockQuantity == 0 {
			continue
		}
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID.String() < all[j].ID.String()
	})
	return page(all, f.Page, f.Limit), len(all), nil
}

func (r products) Create(ctx context.Context, p *domain.Product) error {
	st, done, err := r.h.enter("products.create")
	if err != nil {
		return err
	}
	defer done()
	if p.CategoryID != nil {
		if _, ok := st.categories[*p.CategoryID]; !ok {
			return domain.ErrConflict
		}
	}
	p.CreatedAt = r.h.store.now()
	p.UpdatedAt = p.CreatedAt
	st.products[p.ID] = *p
	return nil
}

func (r products) Update(ctx context.Context, id uuid.UUID, patch *repo.Patch) (*domain.Product, error) {
	st, done, err := r.h.enter("products.update")
	if err != nil {
		return nil, err
	}
	defer done()
	if patch.Empty() {
		return nil, domain.ErrNoChanges
	}
	p, ok := st.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	for _, col := range patch.Columns() {
		v, _ := patch.Value(col)
		switch col {
		case "name":
			p.Name = v.(string)
		case "description":
			p.Description = v.(string)
		case "price":
			p.Price = v.(decimal.Decimal)
		case "stock_quantity":
			p.StockQuantity = v.(int)
		case "category_id":
			n := v.(uuid.NullUUID)
			p.CategoryID = nil
			if n.Valid {
				p.CategoryID = &n.UUID
			}
		default:
			return nil, fmt.Errorf("repotest: unknown product column %q", col)
		}
	}
	p.UpdatedAt = r.h.store.now()
	st.products[id] = p
	return &p, nil
}

func (r products) Delete(ctx context.Context, id uuid.UUID) error {
	st, done, err := r.h.enter("products.delete")
	if err != nil {
		return err
	}
	defer done()
	if _, ok := st.products[id]; !ok {
		return domain.ErrNotFound
	}
	for _, ls := range st.lines {
		for _, l := range ls {
			if l.ProductID == id {
				return domain.ErrConflict
			}
		}
	}
	delete(st.products, id)
	for user, items := range st.carts {
		st.carts[user] = removeCartItem(items, id)
	}
	return nil
}

func (r products) DecrementStock(ctx context.Context, id uuid.UUID, qty int) (bool, error) {
	st, done, err := r.h.enter(OpDecrementStock)
	if err != nil {
		return false, err
	}
	defer done()
	p, ok := st.products[id]
	if !ok || p.StockQuantity < qty {
		return false, nil
	}
	p.StockQuantity -= qty
	p.UpdatedAt = r.h.store.now()
	st.products[id] = p
	return true, nil
}

type categories struct{ h *handle }

func (r categories) List(ctx context.Context) ([]domain.Category, error) {
	st, done, err := r.h.enter("categories.list")
	if err != nil {
		return nil, err
	}
	defer done()
	out := []domain.Category{}
	for _, c := range st.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r categories) FindByID(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	st, done, err := r.h.enter("categories.find")
	if err != nil {
		return nil, err
	}
	defer done()
	c, ok := st.categories[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}

func (r categories) Create(ctx context.Context, c *domain.Category) error {
	st, done, err := r.h.enter("categories.create")
	if err != nil {
		return err
	}
	defer done()
	for _, existing := range st.categories {
		if existing.Name == c.Name {
			return domain.ErrConflict
		}
	}
	c.CreatedAt = r.h.store.now()
	c.UpdatedAt = c.CreatedAt
	st.categories[c.ID] = *c
	return nil
}

func (r categories) Update(ctx context.Context, id uuid.UUID, patch *repo.Patch) (*domain.Category, error) {
	st, done, err := r.h.enter("categories.update")
	if err != nil {
		return nil, err
	}
	defer done()
	if patch.Empty() {
		return nil, domain.ErrNoChanges
	}
	c, ok := st.categories[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	for _, col := range patch.Columns() {
		v, _ := patch.Value(col)
		switch col {
		case "name":
			c.Name = v.(string)
		case "description":
			c.Description = v.(string)
		default:
			return nil, fmt.Errorf("repotest: unknown category column %q", col)
		}
	}
	c.UpdatedAt = r.h.store.now()
	st.categories[id] = c
	return &c, nil
}

func (r categories) Delete(ctx context.Context, id uuid.UUID) error {
	st, done, err := r.h.enter("categories.delete")
	if err != nil {
		return err
	}
	defer done()
	if _, ok := st.categories[id]; !ok {
		return domain.ErrNotFound
	}
	for _, p := range st.products {
		if p.CategoryID != nil && *p.CategoryID == id {
			return domain.ErrConflict
		}
	}
	delete(st.categories, id)
	return nil
}

type addresses struct{ h *handle }

func (r addresses) Create(ctx context.Context, a *domain.Address) error {
	st, done, err := r.h.enter(OpCreateAddress)
	if err != nil {
		return err
	}
	defer done()
	a.CreatedAt = r.h.store.now()
	st.addresses[a.ID] = *a
	return nil
}

func (r addresses) FindByID(ctx context.Context, id uuid.UUID) (*domain.Address, error) {
	st, done, err := r.h.enter("addresses.find")
	if err != nil {
		return nil, err
	}
	defer done()
	a, ok := st.addresses[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &a, nil
}

type orders struct{ h *handle }

func (r orders) CreateOrder(ctx context.Context, o *domain.Order) error {
	st, done, err := r.h.enter(OpCreateOrder)
	if err != nil {
		return err
	}
	defer done()
	if o.ShippingAddressID != nil {
		if _, ok := st.addresses[*o.ShippingAddressID]; !ok {
			return domain.ErrConflict
		}
	}
	o.CreatedAt = r.h.store.now()
	o.UpdatedAt = o.CreatedAt
	header := *o
	header.Items = nil
	header.ShippingAddress = nil
	st.orders[o.ID] = header
	return nil
}

func (r orders) CreateLine(ctx context.Context, line *domain.OrderLine, position int) error {
	st, done, err := r.h.enter(OpCreateLine)
	if err != nil {
		return err
	}
	defer done()
	if _, ok := st.orders[line.OrderID]; !ok {
		return domain.ErrConflict
	}
	if _, ok := st.products[line.ProductID]; !ok {
		return domain.ErrConflict
	}
	st.lines[line.OrderID] = append(st.lines[line.OrderID], *line)
	st.lineOrder[line.ID] = position
	return nil
}

func (r orders) FindById(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	st, done, err := r.h.enter(OpFindOrder)
	if err != nil {
		return nil, err
	}
	defer done()
	o, ok := st.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	materialize(st, &o)
	if o.ShippingAddressID != nil {
		a, ok := st.addresses[*o.ShippingAddressID]
		if !ok {
			return nil, domain.Persistence(fmt.Errorf("address %s missing", *o.ShippingAddressID))
		}
		o.ShippingAddress = &a
	}
	return &o, nil
}

func (r orders) FindForUpdate(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	st, done, err := r.h.enter("orders.find_for_update")
	if err != nil {
		return nil, err
	}
	defer done()
	o, ok := st.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &o, nil
}

func (r orders) ListByUser(ctx context.Context, userID uuid.UUID, pg, limit int) ([]domain.Order, int, error) {
	st, done, err := r.h.enter("orders.list")
	if err != nil {
		return nil, 0, err
	}
	defer done()
	all := []domain.Order{}
	for _, o := range st.orders {
		if o.UserID == userID {
			materialize(st, &o)
			all = append(all, o)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID.String() < all[j].ID.String()
	})
	return page(all, pg, limit), len(all), nil
}

func (r orders) UpdateOrderStatus(ctx context.Context, o *domain.Order) error {
	st, done, err := r.h.enter("orders.update_status")
	if err != nil {
		return err
	}
	defer done()
	stored, ok := st.orders[o.ID]
	if !ok {
		return domain.ErrNotFound
	}
	stored.Status = o.Status
	stored.UpdatedAt = r.h.store.now()
	st.orders[o.ID] = stored
	o.UpdatedAt = stored.UpdatedAt
	return nil
}

func materialize(st *state, o *domain.Order) {
	lines := append([]domain.OrderLine{}, st.lines[o.ID]...)
	sort.SliceStable(lines, func(i, j int) bool {
		return st.lineOrder[lines[i].ID] < st.lineOrder[lines[j].ID]
	})
	o.Items = lines
}

type carts struct{ h *handle }

func (r carts) List(ctx context.Context, userID uuid.UUID) ([]domain.CartItem, error) {
	st, done, err := r.h.enter("carts.list")
	if err != nil {
		return nil, err
	}
	defer done()
	out := []domain.CartItem{}
	for _, it := range st.carts[userID] {
		p, ok := st.products[it.ProductID]
		if !ok {
			continue
		}
		it.ProductName = p.Name
		it.UnitPrice = p.Price
		out = append(out, it)
	}
	return out, nil
}

func (r carts) AddItem(ctx context.Context, userID, productID uuid.UUID, qty int) error {
	st, done, err := r.h.enter("carts.add")
	if err != nil {
		return err
	}
	defer done()
	if _, ok := st.products[productID]; !ok {
		return domain.ErrProductNotFound
	}
	now := r.h.store.now()
	items := st.carts[userID]
	for i := range items {
		if items[i].ProductID == productID {
			items[i].Quantity += qty
			items[i].UpdatedAt = now
			return nil
		}
	}
	st.carts[userID] = append(items, domain.CartItem{
		UserID:    userID,
		ProductID: productID,
		Quantity:  qty,
		CreatedAt: now,
		UpdatedAt: now,
	})
	return nil
}

func (r carts) SetQuantity(ctx context.Context, userID, productID uuid.UUID, qty int) error {
	st, done, err := r.h.enter("carts.set")
	if err != nil {
		return err
	}
	defer done()
	items := st.carts[userID]
	for i := range items {
		if items[i].ProductID == productID {
			items[i].Quantity = qty
			items[i].UpdatedAt = r.h.store.now()
			return nil
		}
	}
	return domain.ErrNotFound
}

func (r carts) RemoveItem(ctx context.Context, userID, productID uuid.UUID) error {
	st, done, err := r.h.enter("carts.remove")
	if err != nil {
		return err
	}
	defer done()
	items := st.carts[userID]
	kept := removeCartItem(items, productID)
	if len(kept) == len(items) {
		return domain.ErrNotFound
	}
	st.carts[userID] = kept
	return nil
}

func (r carts) Clear(ctx context.Context, userID uuid.UUID) error {
	st, done, err := r.h.enter("carts.clear")
	if err != nil {
		return err
	}
	defer done()
	delete(st.carts, userID)
	return nil
}

func removeCartItem(items []domain.CartItem, productID uuid.UUID) []domain.CartItem {
	kept := make([]domain.CartItem, 0, len(items))
	for _, it := range items {
		if it.ProductID != productID {
			kept = append(kept, it)
		}
	}
	return kept
}

type outbox struct{ h *handle }

func (r outbox) Enqueue(ctx context.Context, ev *domain.OutboxEvent) error {
	st, done, err := r.h.enter(OpEnqueueOutbox)
	if err != nil {
		return err
	}
	defer done()
	st.outboxSeq++
	ev.ID = st.outboxSeq
	ev.CreatedAt = r.h.store.now()
	st.outbox = append(st.outbox, outboxRow{event: *ev, status: "pending"})
	return nil
}

func (r outbox) LockPending(ctx context.Context, limit int) ([]domain.OutboxEvent, error) {
	st, done, err := r.h.enter(OpLockOutbox)
	if err != nil {
		return nil, err
	}
	defer done()
	var out []domain.OutboxEvent
	for _, row := range st.outbox {
		if len(out) == limit {
			break
		}
		if row.status == "pending" {
			out = append(out, row.event)
		}
	}
	return out, nil
}

func (r outbox) MarkSent(ctx context.Context, ids []int64) error {
	st, done, err := r.h.enter("outbox.mark_sent")
	if err != nil {
		return err
	}
	defer done()
	want := make(map[int64]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	for i := range st.outbox {
		if want[st.outbox[i].event.ID] {
			st.outbox[i].status = "sent"
		}
	}
	return nil
}

func (r outbox) MarkFailed(ctx context.Context, id int64, errMsg string, maxRetries int) error {
	st, done, err := r.h.enter("outbox.mark_failed")
	if err != nil {
		return err
	}
	defer done()
	for i := range st.outbox {
		row := &st.outbox[i]
		if row.event.ID != id {
			continue
		}
		row.event.RetryCount++
		row.err = errMsg
		row.status = "pending"
		if row.event.RetryCount >= maxRetries {
			row.status = "failed"
		}
	}
	return nil
}
