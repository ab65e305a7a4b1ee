package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"storefront-api/internal/domain"
	"storefront-api/internal/repo"
)

type CartService interface {
	// GetCart returns the cart priced at current catalog prices; its totals are
	// the figures PlaceOrder expects for the same lines.
	GetCart(ctx context.Context, userID uuid.UUID) (*domain.Cart, error)
	AddItem(ctx context.Context, userID, productID uuid.UUID, qty int) (*domain.Cart, error)
	SetQuantity(ctx context.Context, userID, productID uuid.UUID, qty int) (*domain.Cart, error)
	RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*domain.Cart, error)
	Clear(ctx context.Context, userID uuid.UUID) error
}

type cartService struct {
	store   repo.Store
	pricing Pricing
}

func NewCartService(store repo.Store, pricing Pricing) CartService {
	return &cartService{store: store, pricing: pricing}
}

func (s *cartService) GetCart(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	items, err := s.store.Carts().List(ctx, userID)
	if err != nil {
		return nil, err
	}
	lines := make([]PricedLine, len(items))
	for i, it := range items {
		lines[i] = PricedLine{UnitPrice: it.UnitPrice, Quantity: it.Quantity}
	}
	q := s.pricing.Quote(lines)
	return &domain.Cart{
		UserID:    userID,
		Items:     items,
		Subtotal:  q.Subtotal,
		VATAmount: q.VAT,
		Total:     q.Total,
	}, nil
}

func (s *cartService) AddItem(ctx context.Context, userID, productID uuid.UUID, qty int) (*domain.Cart, error) {
	if qty < 1 {
		return nil, domain.Validationf("quantity must be at least 1")
	}
	if _, err := s.store.Products().FindByID(ctx, productID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrProductNotFound
		}
		return nil, err
	}
	if err := s.store.Carts().AddItem(ctx, userID, productID, qty); err != nil {
		return nil, err
	}
	return s.GetCart(ctx, userID)
}

func (s *cartService) SetQuantity(ctx context.Context, userID, productID uuid.UUID, qty int) (*domain.Cart, error) {
	if qty < 1 {
		return nil, domain.Validationf("quantity must be at least 1")
	}
	if err := s.store.Carts().SetQuantity(ctx, userID, productID, qty); err != nil {
		return nil, err
	}
	return s.GetCart(ctx, userID)
}

func (s *cartService) RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*domain.Cart, error) {
	if err := s.store.Carts().RemoveItem(ctx, userID, productID); err != nil {
		return nil, err
	}
	return s.GetCart(ctx, userID)
}

func (s *cartService) Clear(ctx context.Context, userID uuid.UUID) error {
	return s.store.Carts().Clear(ctx, userID)
}
