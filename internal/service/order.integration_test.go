package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-api/internal/database/dbtest"
	"storefront-api/internal/domain"
	"storefront-api/internal/logging"
	"storefront-api/internal/repo"
	"storefront-api/internal/telemetry"
)

func TestPlaceOrderAgainstPostgres(t *testing.T) {
	db := dbtest.NewPostgres(t)
	store := repo.NewStore(db)
	ctx := context.Background()
	svc := NewOrderService(store, NewPricing(dec("0.18"), dec("0.01")), "Rwanda", telemetry.NewMetrics(), logging.Discard())
	catalog := NewCatalogService(store, logging.Discard())

	t.Run("commits order and decrements stock", func(t *testing.T) {
		p, err := catalog.CreateProduct(ctx, ProductInput{Name: "P1", Price: dec("100000"), StockQuantity: 10})
		require.NoError(t, err)

		order, err := svc.PlaceOrder(ctx, PlaceOrderInput{
			UserID:          uuid.New(),
			Items:           []LineItem{{ProductID: p.ID, Quantity: 2}},
			Total:           dec("236000"),
			VATAmount:       dec("36000"),
			PaymentMethod:   domain.PaymentMobileMoney,
			ShippingAddress: &domain.Address{Street: "KN 1 Rd", City: "Kigali", District: "Gasabo"},
		})
		require.NoError(t, err)
		assert.True(t, order.Total.Equal(dec("236000")))
		require.NotNil(t, order.ShippingAddress)
		assert.Equal(t, "Rwanda", order.ShippingAddress.Country)

		got, err := catalog.GetProduct(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, 8, got.StockQuantity)

		var events int
		require.NoError(t, db.QueryRowContext(ctx,
			`SELECT count(*) FROM outbox WHERE aggregate_id = $1`, order.ID.String()).Scan(&events))
		assert.Equal(t, 1, events)
	})

	t.Run("rejection leaves no rows", func(t *testing.T) {
		p, err := catalog.CreateProduct(ctx, ProductInput{Name: "Scarce", Price: dec("100000"), StockQuantity: 1})
		require.NoError(t, err)
		user := uuid.New()

		_, err = svc.PlaceOrder(ctx, PlaceOrderInput{
			UserID:          user,
			Items:           []LineItem{{ProductID: p.ID, Quantity: 2}},
			Total:           dec("236000"),
			VATAmount:       dec("36000"),
			PaymentMethod:   domain.PaymentCard,
			ShippingAddress: &domain.Address{Street: "KN 1 Rd", City: "Kigali", District: "Gasabo"},
		})
		assert.ErrorIs(t, err, domain.ErrInsufficientStock)

		var orders, addresses int
		require.NoError(t, db.QueryRowContext(ctx, `SELECT count(*) FROM orders WHERE user_id = $1`, user).Scan(&orders))
		require.NoError(t, db.QueryRowContext(ctx, `SELECT count(*) FROM addresses WHERE user_id = $1`, user).Scan(&addresses))
		assert.Zero(t, orders)
		assert.Zero(t, addresses)
	})

	t.Run("concurrent buyers never oversell", func(t *testing.T) {
		const stock, buyers = 7, 24
		a, err := catalog.CreateProduct(ctx, ProductInput{Name: "Hot A", Price: dec("10"), StockQuantity: stock})
		require.NoError(t, err)
		b, err := catalog.CreateProduct(ctx, ProductInput{Name: "Hot B", Price: dec("10"), StockQuantity: 100})
		require.NoError(t, err)

		var (
			wg     sync.WaitGroup
			mu     sync.Mutex
			placed int
		)
		for i := 0; i < buyers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				items := []LineItem{{ProductID: a.ID, Quantity: 1}, {ProductID: b.ID, Quantity: 1}}
				if i%2 == 1 {
					items[0], items[1] = items[1], items[0]
				}
				_, err := svc.PlaceOrder(ctx, PlaceOrderInput{
					UserID:        uuid.New(),
					Items:         items,
					Total:         dec("23.60"),
					VATAmount:     dec("3.60"),
					PaymentMethod: domain.PaymentCash,
				})
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					placed++
				case !errors.Is(err, domain.ErrInsufficientStock):
					t.Errorf("unexpected error: %v", err)
				}
			}(i)
		}
		wg.Wait()

		assert.Equal(t, stock, placed)
		gotA, err := catalog.GetProduct(ctx, a.ID)
		require.NoError(t, err)
		assert.Zero(t, gotA.StockQuantity)
		gotB, err := catalog.GetProduct(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, 100-stock, gotB.StockQuantity)
	})
}
