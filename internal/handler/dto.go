package handler

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"storefront-api/internal/domain"
)

// money renders amounts as JSON numbers with two decimals.
type money decimal.Decimal

func (m money) MarshalJSON() ([]byte, error) {
	return []byte(decimal.Decimal(m).StringFixed(2)), nil
}

type listResponse[T any] struct {
	Data  []T `json:"data"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

type addressRequest struct {
	Street   string `json:"street" binding:"required"`
	City     string `json:"city" binding:"required"`
	District string `json:"district" binding:"required"`
	Country  string `json:"country"`
}

type lineItemRequest struct {
	ProductID string `json:"productId" binding:"required,uuid"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
}

type placeOrderRequest struct {
	Items           []lineItemRequest `json:"items" binding:"required,min=1,dive"`
	Total           *decimal.Decimal  `json:"total" binding:"required"`
	VATAmount       *decimal.Decimal  `json:"vatAmount" binding:"required"`
	PaymentMethod   string            `json:"paymentMethod" binding:"required,oneof=mobile_money card cash"`
	ShippingAddress *addressRequest   `json:"shippingAddress"`
	Notes           *string           `json:"notes" binding:"omitempty,max=1000"`
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type categoryRequest struct {
	Name        string `json:"name" binding:"required,max=120"`
	Description string `json:"description" binding:"max=2000"`
}

type categoryPatchRequest struct {
	Name        *string `json:"name" binding:"omitempty,max=120"`
	Description *string `json:"description" binding:"omitempty,max=2000"`
}

type productRequest struct {
	CategoryID    *string          `json:"categoryId" binding:"omitempty,uuid"`
	Name          string           `json:"name" binding:"required,max=200"`
	Description   string           `json:"description" binding:"max=5000"`
	Price         *decimal.Decimal `json:"price" binding:"required"`
	StockQuantity *int             `json:"stockQuantity" binding:"required,gte=0"`
}

type productPatchRequest struct {
	CategoryID    *string          `json:"categoryId" binding:"omitempty,uuid"`
	Name          *string          `json:"name" binding:"omitempty,max=200"`
	Description   *string          `json:"description" binding:"omitempty,max=5000"`
	Price         *decimal.Decimal `json:"price"`
	StockQuantity *int             `json:"stockQuantity" binding:"omitempty,gte=0"`
}

type productQuery struct {
	Page       int    `form:"page" binding:"omitempty,min=1,max=1000000"`
	Limit      int    `form:"limit" binding:"omitempty,min=1,max=100"`
	CategoryID string `form:"categoryId" binding:"omitempty,uuid"`
	MinPrice   string `form:"minPrice" binding:"omitempty,numeric"`
	MaxPrice   string `form:"maxPrice" binding:"omitempty,numeric"`
	Search     string `form:"search" binding:"omitempty,max=200"`
	InStock    bool   `form:"inStock"`
}

type cartItemRequest struct {
	ProductID string `json:"productId" binding:"required,uuid"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
}

type cartQuantityRequest struct {
	Quantity int `json:"quantity" binding:"required,min=1"`
}

type addressResponse struct {
	ID       uuid.UUID `json:"id"`
	Street   string    `json:"street"`
	City     string    `json:"city"`
	District string    `json:"district"`
	Country  string    `json:"country"`
}

type orderLineResponse struct {
	ID        uuid.UUID `json:"id"`
	ProductID uuid.UUID `json:"productId"`
	Quantity  int       `json:"quantity"`
	Price     money     `json:"price"`
}

type orderResponse struct {
	ID              uuid.UUID            `json:"id"`
	UserID          uuid.UUID            `json:"userId"`
	Total           money                `json:"total"`
	VATAmount       money                `json:"vatAmount"`
	Status          domain.OrderStatus   `json:"status"`
	PaymentMethod   domain.PaymentMethod `json:"paymentMethod"`
	Notes           *string              `json:"notes"`
	ShippingAddress *addressResponse     `json:"shippingAddress"`
	Items           []orderLineResponse  `json:"items"`
	CreatedAt       time.Time            `json:"createdAt"`
	UpdatedAt       time.Time            `json:"updatedAt"`
}

type categoryResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type productResponse struct {
	ID            uuid.UUID  `json:"id"`
	CategoryID    *uuid.UUID `json:"categoryId"`
	Name          string     `json:"name"`
	Description   string     `json:"description"`
	Price         money      `json:"price"`
	StockQuantity int        `json:"stockQuantity"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

type cartLineResponse struct {
	ProductID   uuid.UUID `json:"productId"`
	ProductName string    `json:"productName"`
	Quantity    int       `json:"quantity"`
	UnitPrice   money     `json:"unitPrice"`
	LineTotal   money     `json:"lineTotal"`
}

type cartResponse struct {
	Items     []cartLineResponse `json:"items"`
	Subtotal  money              `json:"subtotal"`
	VATAmount money              `json:"vatAmount"`
	Total     money              `json:"total"`
}

func toOrderResponse(o *domain.Order) orderResponse {
	resp := orderResponse{
		ID:            o.ID,
		UserID:        o.UserID,
		Total:         money(o.Total),
		VATAmount:     money(o.VATAmount),
		Status:        o.Status,
		PaymentMethod: o.PaymentMethod,
		Notes:         o.Notes,
		Items:         make([]orderLineResponse, 0, len(o.Items)),
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
	for _, l := range o.Items {
		resp.Items = append(resp.Items, orderLineResponse{
			ID:        l.ID,
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			Price:     money(l.Price),
		})
	}
	if a := o.ShippingAddress; a != nil {
		resp.ShippingAddress = &addressResponse{
			ID:       a.ID,
			Street:   a.Street,
			City:     a.City,
			District: a.District,
			Country:  a.Country,
		}
	}
	return resp
}

func toCategoryResponse(c *domain.Category) categoryResponse {
	return categoryResponse{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func toProductResponse(p *domain.Product) productResponse {
	return productResponse{
		ID:            p.ID,
		CategoryID:    p.CategoryID,
		Name:          p.Name,
		Description:   p.Description,
		Price:         money(p.Price),
		StockQuantity: p.StockQuantity,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

func toCartResponse(c *domain.Cart) cartResponse {
	resp := cartResponse{
		Items:     make([]cartLineResponse, 0, len(c.Items)),
		Subtotal:  money(c.Subtotal),
		VATAmount: money(c.VATAmount),
		Total:     money(c.Total),
	}
	for _, it := range c.Items {
		resp.Items = append(resp.Items, cartLineResponse{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   money(it.UnitPrice),
			LineTotal:   money(it.LineTotal()),
		})
	}
	return resp
}
