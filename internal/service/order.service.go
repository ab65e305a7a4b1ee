package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"storefront-api/internal/domain"
	"storefront-api/internal/repo"
	"storefront-api/internal/telemetry"
)

type OrderService interface {
	PlaceOrder(ctx context.Context, in PlaceOrderInput) (*domain.Order, error)
	// GetOrder returns the order if it belongs to userID, or to anyone when asAdmin is set.
	GetOrder(ctx context.Context, userID, orderID uuid.UUID, asAdmin bool) (*domain.Order, error)
	ListOrders(ctx context.Context, userID uuid.UUID, page, limit int) ([]domain.Order, int, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, status domain.OrderStatus) (*domain.Order, error)
}

type LineItem struct {
	ProductID uuid.UUID
	Quantity  int
}

type PlaceOrderInput struct {
	UserID          uuid.UUID
	Items           []LineItem
	Total           decimal.Decimal
	VATAmount       decimal.Decimal
	PaymentMethod   domain.PaymentMethod
	ShippingAddress *domain.Address
	Notes           *string
}

type orderService struct {
	store          repo.Store
	pricing        Pricing
	defaultCountry string
	metrics        *telemetry.Metrics
	log            *slog.Logger
	tracer         trace.Tracer
}

func NewOrderService(
	store repo.Store,
	pricing Pricing,
	defaultCountry string,
	metrics *telemetry.Metrics,
	log *slog.Logger,
) OrderService {
	return &orderService{
		store:          store,
		pricing:        pricing,
		defaultCountry: defaultCountry,
		metrics:        metrics,
		log:            log,
		tracer:         otel.Tracer("storefront/order"),
	}
}

func (s *orderService) PlaceOrder(ctx context.Context, in PlaceOrderInput) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "PlaceOrder", trace.WithAttributes(
		attribute.String("user.id", in.UserID.String()),
		attribute.Int("order.lines", len(in.Items)),
	))
	defer span.End()

	order, err := s.placeOrder(ctx, in)
	if err != nil {
		reason := rejectionReason(err)
		s.metrics.OrderRejections.WithLabelValues(reason).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, reason)
		if reason == "persistence" {
			s.log.ErrorContext(ctx, "order placement failed", "user_id", in.UserID, "err", err)
		} else {
			s.log.InfoContext(ctx, "order rejected", "user_id", in.UserID, "reason", reason, "err", err)
		}
		return nil, err
	}

	s.metrics.OrdersPlaced.Inc()
	span.SetAttributes(attribute.String("order.id", order.ID.String()))
	s.log.InfoContext(ctx, "order placed",
		"order_id", order.ID,
		"user_id", order.UserID,
		"total", order.Total.String(),
		"lines", len(order.Items),
	)
	return order, nil
}

func (s *orderService) placeOrder(ctx context.Context, in PlaceOrderInput) (*domain.Order, error) {
	if err := validatePlacement(in); err != nil {
		return nil, err
	}

	var placed *domain.Order
	err := s.store.WithinTx(ctx, func(tx repo.Repos) error {
		ids := distinctProductIDs(in.Items)
		products, err := tx.Products().LockByIDs(ctx, ids)
		if err != nil {
			return err
		}
		byID := make(map[uuid.UUID]domain.Product, len(products))
		for _, p := range products {
			byID[p.ID] = p
		}
		if len(byID) < len(ids) {
			for _, id := range ids {
				if _, ok := byID[id]; !ok {
					return fmt.Errorf("%w: %s", domain.ErrProductNotFound, id)
				}
			}
		}

		// Demand is summed per product so repeated entries cannot each pass on their own.
		demand := make(map[uuid.UUID]int, len(ids))
		lines := make([]PricedLine, 0, len(in.Items))
		for _, item := range in.Items {
			p := byID[item.ProductID]
			demand[p.ID] += item.Quantity
			if p.StockQuantity < demand[p.ID] {
				return insufficientStock(p)
			}
			lines = append(lines, PricedLine{UnitPrice: p.Price, Quantity: item.Quantity})
		}

		quote := s.pricing.Quote(lines)
		if !s.pricing.Matches(quote, in.Total, in.VATAmount) {
			return fmt.Errorf("%w: expected total %s and vat %s, got total %s and vat %s",
				domain.ErrTotalMismatch, quote.Total.StringFixed(2), quote.VAT.StringFixed(2),
				in.Total.String(), in.VATAmount.String())
		}

		order := &domain.Order{
			ID:            uuid.New(),
			UserID:        in.UserID,
			Total:         quote.Total,
			VATAmount:     quote.VAT,
			Status:        domain.OrderPending,
			PaymentMethod: in.PaymentMethod,
			Notes:         normalizeNotes(in.Notes),
		}

		if in.ShippingAddress != nil {
			addr := *in.ShippingAddress
			addr.ID = uuid.New()
			addr.UserID = in.UserID
			if strings.TrimSpace(addr.Country) == "" {
				addr.Country = s.defaultCountry
			}
			if err := tx.Addresses().Create(ctx, &addr); err != nil {
				return err
			}
			order.ShippingAddressID = &addr.ID
		}

		if err := tx.Orders().CreateOrder(ctx, order); err != nil {
			return err
		}

		event := domain.OrderCreated{
			OrderID:       order.ID,
			UserID:        order.UserID,
			Total:         order.Total,
			VATAmount:     order.VATAmount,
			PaymentMethod: order.PaymentMethod,
			CreatedAt:     order.CreatedAt,
		}
		for i, item := range in.Items {
			p := byID[item.ProductID]
			line := &domain.OrderLine{
				ID:        uuid.New(),
				OrderID:   order.ID,
				ProductID: p.ID,
				Quantity:  item.Quantity,
				Price:     p.Price,
			}
			if err := tx.Orders().CreateLine(ctx, line, i); err != nil {
				return err
			}
			ok, err := tx.Products().DecrementStock(ctx, p.ID, item.Quantity)
			if err != nil {
				return err
			}
			if !ok {
				return insufficientStock(p)
			}
			event.Items = append(event.Items, domain.OrderCreatedLine{
				ProductID: p.ID,
				Quantity:  item.Quantity,
				Price:     p.Price,
			})
		}

		if err := enqueueEvent(ctx, tx, order.ID, domain.EventOrderCreated, event); err != nil {
			return err
		}

		placed, err = tx.Orders().FindById(ctx, order.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return placed, nil
}

func (s *orderService) GetOrder(ctx context.Context, userID, orderID uuid.UUID, asAdmin bool) (*domain.Order, error) {
	order, err := s.store.Orders().FindById(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !asAdmin && order.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return order, nil
}

func (s *orderService) ListOrders(ctx context.Context, userID uuid.UUID, page, limit int) ([]domain.Order, int, error) {
	return s.store.Orders().ListByUser(ctx, userID, page, limit)
}

func (s *orderService) UpdateStatus(ctx context.Context, orderID uuid.UUID, status domain.OrderStatus) (*domain.Order, error) {
	if !status.Valid() {
		return nil, domain.Validationf("unknown order status %q", status)
	}

	var updated *domain.Order
	err := s.store.WithinTx(ctx, func(tx repo.Repos) error {
		order, err := tx.Orders().FindForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		from := order.Status
		if !from.CanTransitionTo(status) {
			return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, from, status)
		}
		order.Status = status
		if err := tx.Orders().UpdateOrderStatus(ctx, order); err != nil {
			return err
		}
		if err := enqueueEvent(ctx, tx, order.ID, domain.EventOrderStatusChanged, domain.OrderStatusChanged{
			OrderID:   order.ID,
			From:      from,
			To:        status,
			ChangedAt: order.UpdatedAt,
		}); err != nil {
			return err
		}
		updated, err = tx.Orders().FindById(ctx, order.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "order status updated", "order_id", orderID, "status", status)
	return updated, nil
}

func validatePlacement(in PlaceOrderInput) error {
	if in.UserID == uuid.Nil {
		return domain.Validationf("user id is required")
	}
	if len(in.Items) == 0 {
		return domain.Validationf("at least one item is required")
	}
	for i, item := range in.Items {
		if item.ProductID == uuid.Nil {
			return domain.Validationf("items[%d]: product id is required", i)
		}
		if item.Quantity < 1 {
			return domain.Validationf("items[%d]: quantity must be at least 1", i)
		}
	}
	if in.Total.IsNegative() {
		return domain.Validationf("total must be >= 0")
	}
	if in.VATAmount.IsNegative() {
		return domain.Validationf("vatAmount must be >= 0")
	}
	if !in.PaymentMethod.Valid() {
		return domain.Validationf("paymentMethod must be one of mobile_money, card, cash")
	}
	if in.ShippingAddress != nil {
		if err := in.ShippingAddress.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func distinctProductIDs(items []LineItem) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(items))
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}
	return ids
}

func insufficientStock(p domain.Product) error {
	return fmt.Errorf("%w for product %q", domain.ErrInsufficientStock, p.Name)
}

func normalizeNotes(notes *string) *string {
	if notes == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*notes)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func enqueueEvent(ctx context.Context, tx repo.Repos, orderID uuid.UUID, eventType string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return domain.Persistence(err)
	}
	return tx.Outbox().Enqueue(ctx, &domain.OutboxEvent{
		AggregateType: "order",
		AggregateID:   orderID.String(),
		Type:          eventType,
		Payload:       body,
		Traceparent:   telemetry.Traceparent(ctx),
	})
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	case errors.Is(err, domain.ErrProductNotFound):
		return "product_not_found"
	case errors.Is(err, domain.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, domain.ErrTotalMismatch):
		return "total_mismatch"
	default:
		return "persistence"
	}
}
