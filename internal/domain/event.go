package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
)

// OutboxEvent is a domain event recorded in the same transaction as the change it describes.
type OutboxEvent struct {
	ID            int64
	AggregateType string
	AggregateID   string
	Type          string
	Payload       []byte
	Traceparent   string
	RetryCount    int
	CreatedAt     time.Time
}

type OrderCreated struct {
	OrderID       uuid.UUID          `json:"orderId"`
	UserID        uuid.UUID          `json:"userId"`
	Total         decimal.Decimal    `json:"total"`
	VATAmount     decimal.Decimal    `json:"vatAmount"`
	PaymentMethod PaymentMethod      `json:"paymentMethod"`
	Items         []OrderCreatedLine `json:"items"`
	CreatedAt     time.Time          `json:"createdAt"`
}

type OrderCreatedLine struct {
	ProductID uuid.UUID       `json:"productId"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

type OrderStatusChanged struct {
	OrderID   uuid.UUID   `json:"orderId"`
	From      OrderStatus `json:"from"`
	To        OrderStatus `json:"to"`
	ChangedAt time.Time   `json:"changedAt"`
}
