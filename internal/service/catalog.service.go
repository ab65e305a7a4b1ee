package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"storefront-api/internal/domain"
	"storefront-api/internal/repo"
)

type CatalogService interface {
	ListCategories(ctx context.Context) ([]domain.Category, error)
	GetCategory(ctx context.Context, id uuid.UUID) (*domain.Category, error)
	CreateCategory(ctx context.Context, in CategoryInput) (*domain.Category, error)
	UpdateCategory(ctx context.Context, id uuid.UUID, patch CategoryPatch) (*domain.Category, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) error

	ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, int, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	CreateProduct(ctx context.Context, in ProductInput) (*domain.Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, patch ProductPatch) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
}

type CategoryInput struct {
	Name        string
	Description string
}

// CategoryPatch holds optional fields; nil means "leave unchanged".
type CategoryPatch struct {
	Name        *string
	Description *string
}

type ProductInput struct {
	CategoryID    *uuid.UUID
	Name          string
	Description   string
	Price         decimal.Decimal
	StockQuantity int
}

type ProductPatch struct {
	CategoryID    *uuid.UUID
	Name          *string
	Description   *string
	Price         *decimal.Decimal
	StockQuantity *int
}

type catalogService struct {
	store repo.Store
	log   *slog.Logger
}

func NewCatalogService(store repo.Store, log *slog.Logger) CatalogService {
	return &catalogService{store: store, log: log}
}

func (s *catalogService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return s.store.Categories().List(ctx)
}

func (s *catalogService) GetCategory(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	return s.store.Categories().FindByID(ctx, id)
}

func (s *catalogService) CreateCategory(ctx context.Context, in CategoryInput) (*domain.Category, error) {
	c := &domain.Category{
		ID:          uuid.New(),
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
	}
	if c.Name == "" {
		return nil, domain.Validationf("category name is required")
	}
	if err := s.store.Categories().Create(ctx, c); err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "category created", "category_id", c.ID, "name", c.Name)
	return c, nil
}

func (s *catalogService) UpdateCategory(ctx context.Context, id uuid.UUID, in CategoryPatch) (*domain.Category, error) {
	patch := repo.NewPatch()
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, domain.Validationf("category name cannot be empty")
		}
		patch.Set("name", name)
	}
	if in.Description != nil {
		patch.Set("description", strings.TrimSpace(*in.Description))
	}
	if patch.Empty() {
		return nil, domain.Validationf("%s", domain.ErrNoChanges)
	}
	return s.store.Categories().Update(ctx, id, patch)
}

func (s *catalogService) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	return s.store.Categories().Delete(ctx, id)
}

func (s *catalogService) ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, int, error) {
	if filter.MinPrice != nil && filter.MaxPrice != nil && filter.MinPrice.GreaterThan(*filter.MaxPrice) {
		return nil, 0, domain.Validationf("minPrice cannot exceed maxPrice")
	}
	filter.Normalize()
	return s.store.Products().List(ctx, filter)
}

func (s *catalogService) GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return s.store.Products().FindByID(ctx, id)
}

func (s *catalogService) CreateProduct(ctx context.Context, in ProductInput) (*domain.Product, error) {
	p := &domain.Product{
		ID:            uuid.New(),
		CategoryID:    in.CategoryID,
		Name:          strings.TrimSpace(in.Name),
		Description:   strings.TrimSpace(in.Description),
		Price:         in.Price,
		StockQuantity: in.StockQuantity,
	}
	switch {
	case p.Name == "":
		return nil, domain.Validationf("product name is required")
	case p.Price.IsNegative():
		return nil, domain.Validationf("price must be >= 0")
	case p.StockQuantity < 0:
		return nil, domain.Validationf("stockQuantity must be >= 0")
	}
	if err := s.ensureCategory(ctx, p.CategoryID); err != nil {
		return nil, err
	}
	if err := s.store.Products().Create(ctx, p); err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "product created", "product_id", p.ID, "name", p.Name)
	return p, nil
}

func (s *catalogService) UpdateProduct(ctx context.Context, id uuid.UUID, in ProductPatch) (*domain.Product, error) {
	patch := repo.NewPatch()
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, domain.Validationf("product name cannot be empty")
		}
		patch.Set("name", name)
	}
	if in.Description != nil {
		patch.Set("description", strings.TrimSpace(*in.Description))
	}
	if in.Price != nil {
		if in.Price.IsNegative() {
			return nil, domain.Validationf("price must be >= 0")
		}
		patch.Set("price", *in.Price)
	}
	if in.StockQuantity != nil {
		if *in.StockQuantity < 0 {
			return nil, domain.Validationf("stockQuantity must be >= 0")
		}
		patch.Set("stock_quantity", *in.StockQuantity)
	}
	if in.CategoryID != nil {
		if err := s.ensureCategory(ctx, in.CategoryID); err != nil {
			return nil, err
		}
		patch.Set("category_id", uuid.NullUUID{UUID: *in.CategoryID, Valid: true})
	}
	if patch.Empty() {
		return nil, domain.Validationf("%s", domain.ErrNoChanges)
	}
	p, err := s.store.Products().Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "product updated", "product_id", id, "fields", patch.Columns())
	return p, nil
}

func (s *catalogService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	return s.store.Products().Delete(ctx, id)
}

func (s *catalogService) ensureCategory(ctx context.Context, id *uuid.UUID) error {
	if id == nil {
		return nil
	}
	_, err := s.store.Categories().FindByID(ctx, *id)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Validationf("category %s does not exist", id)
	}
	return err
}
