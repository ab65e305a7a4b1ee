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
	"storefront-api/internal/telemetry"
)

func TestCartPricing(t *testing.T) {
	ctx := context.Background()
	store := repotest.New()
	svc := NewCartService(store, NewPricing(dec("0.18"), dec("0.01")))
	user := uuid.New()
	phone := store.PutProduct(domain.Product{Name: "Phone", Price: dec("100000"), StockQuantity: 10})

	cart, err := svc.GetCart(ctx, user)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.True(t, cart.Total.IsZero())

	_, err = svc.AddItem(ctx, user, phone.ID, 1)
	require.NoError(t, err)
	cart, err = svc.AddItem(ctx, user, phone.ID, 1)
	require.NoError(t, err)

	require.Len(t, cart.Items, 1)
	assert.Equal(t, 2, cart.Items[0].Quantity)
	assert.Equal(t, "Phone", cart.Items[0].ProductName)
	assert.True(t, cart.Subtotal.Equal(dec("200000")))
	assert.True(t, cart.VATAmount.Equal(dec("36000")))
	assert.True(t, cart.Total.Equal(dec("236000")))
}

func TestCartEdits(t *testing.T) {
	ctx := context.Background()
	store := repotest.New()
	svc := NewCartService(store, NewPricing(dec("0.18"), dec("0.01")))
	user := uuid.New()
	mug := store.PutProduct(domain.Product{Name: "Mug", Price: dec("5"), StockQuantity: 10})

	_, err := svc.AddItem(ctx, user, uuid.New(), 1)
	assert.ErrorIs(t, err, domain.ErrProductNotFound)

	_, err = svc.AddItem(ctx, user, mug.ID, 0)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.SetQuantity(ctx, user, mug.ID, 3)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.AddItem(ctx, user, mug.ID, 1)
	require.NoError(t, err)

	cart, err := svc.SetQuantity(ctx, user, mug.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, cart.Items[0].Quantity)

	cart, err = svc.RemoveItem(ctx, user, mug.ID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)

	_, err = svc.RemoveItem(ctx, user, mug.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.AddItem(ctx, user, mug.ID, 2)
	require.NoError(t, err)
	require.NoError(t, svc.Clear(ctx, user))
	cart, err = svc.GetCart(ctx, user)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
}

func TestCartTotalsAreAcceptedByPlacement(t *testing.T) {
	ctx := context.Background()
	store := repotest.New()
	pricing := NewPricing(dec("0.18"), dec("0.01"))
	carts := NewCartService(store, pricing)
	orders := NewOrderService(store, pricing, "Rwanda", telemetry.NewMetrics(), logging.Discard())
	user := uuid.New()

	a := store.PutProduct(domain.Product{Name: "A", Price: dec("19.99"), StockQuantity: 10})
	b := store.PutProduct(domain.Product{Name: "B", Price: dec("0.35"), StockQuantity: 10})
	_, err := carts.AddItem(ctx, user, a.ID, 3)
	require.NoError(t, err)
	cart, err := carts.AddItem(ctx, user, b.ID, 1)
	require.NoError(t, err)

	in := PlaceOrderInput{
		UserID:        user,
		Total:         cart.Total,
		VATAmount:     cart.VATAmount,
		PaymentMethod: domain.PaymentCard,
	}
	for _, it := range cart.Items {
		in.Items = append(in.Items, LineItem{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	order, err := orders.PlaceOrder(ctx, in)
	require.NoError(t, err)
	assert.True(t, order.Total.Equal(dec("71.18")), order.Total.String())
}
