package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to OrderStatus
		ok       bool
	}{
		{OrderPending, OrderProcessing, true},
		{OrderPending, OrderCancelled, true},
		{OrderPending, OrderShipped, false},
		{OrderProcessing, OrderShipped, true},
		{OrderProcessing, OrderCancelled, true},
		{OrderProcessing, OrderPending, false},
		{OrderShipped, OrderDelivered, true},
		{OrderShipped, OrderCancelled, false},
		{OrderDelivered, OrderCancelled, false},
		{OrderCancelled, OrderPending, false},
		{OrderPending, OrderPending, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.ok, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestOrderStatusValid(t *testing.T) {
	assert.True(t, OrderDelivered.Valid())
	assert.False(t, OrderStatus("lost").Valid())
	assert.True(t, PaymentCash.Valid())
	assert.False(t, PaymentMethod("barter").Valid())
}

func TestAddressValidate(t *testing.T) {
	a := Address{Street: "KN 1 Rd", City: "Kigali", District: "Gasabo"}
	assert.NoError(t, a.Validate())

	a.District = "  "
	assert.ErrorIs(t, a.Validate(), ErrValidation)
}

func TestNormalizePage(t *testing.T) {
	page, limit := NormalizePage(0, 0)
	assert.Equal(t, 1, page)
	assert.Equal(t, DefaultPageLimit, limit)

	_, limit = NormalizePage(3, 1000)
	assert.Equal(t, MaxPageLimit, limit)
	assert.Equal(t, 40, Offset(3, 20))

	page, limit = NormalizePage(922337203685477581, 20)
	assert.Equal(t, MaxPage, page)
	assert.Positive(t, Offset(page, limit))
}
