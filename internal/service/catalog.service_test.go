package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-api/internal/domain"
	"storefront-api/internal/logging"
	"storefront-api/internal/repo/repotest"
)

func newCatalog(t *testing.T) (CatalogService, *repotest.Store) {
	t.Helper()
	store := repotest.New()
	return NewCatalogService(store, logging.Discard()), store
}

func TestCatalogCategoryLifecycle(t *testing.T) {
	ctx := context.Background()
	svc, _ := newCatalog(t)

	_, err := svc.CreateCategory(ctx, CategoryInput{Name: "   "})
	assert.ErrorIs(t, err, domain.ErrValidation)

	c, err := svc.CreateCategory(ctx, CategoryInput{Name: " Phones ", Description: "Handsets"})
	require.NoError(t, err)
	assert.Equal(t, "Phones", c.Name)

	_, err = svc.CreateCategory(ctx, CategoryInput{Name: "Phones"})
	assert.ErrorIs(t, err, domain.ErrConflict)

	name := "Mobile phones"
	updated, err := svc.UpdateCategory(ctx, c.ID, CategoryPatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Mobile phones", updated.Name)
	assert.Equal(t, "Handsets", updated.Description)

	_, err = svc.UpdateCategory(ctx, c.ID, CategoryPatch{})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.UpdateCategory(ctx, uuid.New(), CategoryPatch{Name: &name})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	all, err := svc.ListCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, svc.DeleteCategory(ctx, c.ID))
	_, err = svc.GetCategory(ctx, c.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCatalogDeleteCategoryInUse(t *testing.T) {
	ctx := context.Background()
	svc, _ := newCatalog(t)

	c, err := svc.CreateCategory(ctx, CategoryInput{Name: "Phones"})
	require.NoError(t, err)
	_, err = svc.CreateProduct(ctx, ProductInput{CategoryID: &c.ID, Name: "Phone", Price: dec("10"), StockQuantity: 1})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.DeleteCategory(ctx, c.ID), domain.ErrConflict)
}

func TestCatalogCreateProductValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newCatalog(t)
	missing := uuid.New()

	cases := []struct {
		name string
		in   ProductInput
	}{
		{"blank name", ProductInput{Name: " ", Price: dec("1")}},
		{"negative price", ProductInput{Name: "x", Price: dec("-0.01")}},
		{"negative stock", ProductInput{Name: "x", Price: dec("1"), StockQuantity: -1}},
		{"unknown category", ProductInput{Name: "x", Price: dec("1"), CategoryID: &missing}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateProduct(ctx, tc.in)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestCatalogUpdateProduct(t *testing.T) {
	ctx := context.Background()
	svc, store := newCatalog(t)
	p := store.PutProduct(domain.Product{Name: "Phone", Price: dec("10"), StockQuantity: 5})

	price := dec("12.50")
	stock := 9
	updated, err := svc.UpdateProduct(ctx, p.ID, ProductPatch{Price: &price, StockQuantity: &stock})
	require.NoError(t, err)
	assert.True(t, updated.Price.Equal(price))
	assert.Equal(t, 9, updated.StockQuantity)
	assert.Equal(t, "Phone", updated.Name)

	negative := -1
	_, err = svc.UpdateProduct(ctx, p.ID, ProductPatch{StockQuantity: &negative})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.UpdateProduct(ctx, p.ID, ProductPatch{})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.UpdateProduct(ctx, uuid.New(), ProductPatch{Price: &price})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCatalogListProductsFilters(t *testing.T) {
	ctx := context.Background()
	svc, store := newCatalog(t)
	phones := store.PutCategory(domain.Category{Name: "Phones"})

	store.PutProduct(domain.Product{Name: "Budget phone", Price: dec("50"), StockQuantity: 3, CategoryID: &phones.ID})
	store.PutProduct(domain.Product{Name: "Flagship phone", Price: dec("900"), StockQuantity: 0, CategoryID: &phones.ID})
	store.PutProduct(domain.Product{Name: "Kettle", Price: dec("30"), StockQuantity: 7})

	lo, hi := dec("40"), dec("1000")
	cases := []struct {
		name   string
		filter domain.ProductFilter
		want   int
	}{
		{"all", domain.ProductFilter{}, 3},
		{"category", domain.ProductFilter{CategoryID: &phones.ID}, 2},
		{"price range", domain.ProductFilter{MinPrice: &lo, MaxPrice: &hi}, 2},
		{"search is case-insensitive", domain.ProductFilter{Search: "PHONE"}, 2},
		{"in stock", domain.ProductFilter{InStock: true}, 2},
		{"combined", domain.ProductFilter{CategoryID: &phones.ID, InStock: true}, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			items, total, err := svc.ListProducts(ctx, tc.filter)
			require.NoError(t, err)
			assert.Equal(t, tc.want, total)
			assert.Len(t, items, tc.want)
		})
	}

	items, total, err := svc.ListProducts(ctx, domain.ProductFilter{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, items, 1)

	_, _, err = svc.ListProducts(ctx, domain.ProductFilter{MinPrice: &hi, MaxPrice: &lo})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestCatalogDeleteProduct(t *testing.T) {
	ctx := context.Background()
	svc, store := newCatalog(t)
	p := store.PutProduct(domain.Product{Name: "Phone", Price: dec("10"), StockQuantity: 5})

	require.NoError(t, svc.DeleteProduct(ctx, p.ID))
	assert.ErrorIs(t, svc.DeleteProduct(ctx, p.ID), domain.ErrNotFound)
}
