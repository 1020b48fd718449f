package domain

import (
	"testing"

	"github.com/orderflow/fulfillment/shared/events"
	"github.com/orderflow/fulfillment/shared/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateOrder(t *testing.T) {
	order, err := CreateOrder(OrderDetails{
		CustomerName: "  Ada Lovelace ",
		ProductName:  "Analytical Engine",
		Quantity:     2,
		UnitPrice:    decimal.RequireFromString("50.0"),
	})

	require.NoError(t, err)
	assert.NotEmpty(t, order.ID)
	assert.Equal(t, "Ada Lovelace", order.CustomerName)
	assert.True(t, order.TotalAmount.Equal(decimal.RequireFromString("100.0")))
	assert.Equal(t, OrderStatusCreated, order.Status)
	assert.False(t, order.Timestamps.CreatedAt.IsZero())

	require.Len(t, order.Events(), 1)
	event := order.Events()[0]
	assert.Equal(t, events.OrderCreatedEvent, event.EventType)
	assert.Equal(t, order.ID, event.Key)

	data, ok := event.Data.(events.OrderCreatedData)
	require.True(t, ok)
	assert.True(t, data.TotalAmount.Equal(order.TotalAmount))

	order.ClearEvents()
	assert.Empty(t, order.Events())
}

func TestCreateOrder_TotalIsExact(t *testing.T) {
	tests := []struct {
		quantity  int
		unitPrice string
		total     string
	}{
		{quantity: 3, unitPrice: "0.1", total: "0.3"},
		{quantity: 7, unitPrice: "19.99", total: "139.93"},
		{quantity: 1, unitPrice: "0.01", total: "0.01"},
		{quantity: 1000, unitPrice: "1234.5678", total: "1234567.8"},
	}

	for _, tt := range tests {
		t.Run(tt.unitPrice, func(t *testing.T) {
			order, err := CreateOrder(OrderDetails{
				CustomerName: "c",
				ProductName:  "p",
				Quantity:     tt.quantity,
				UnitPrice:    decimal.RequireFromString(tt.unitPrice),
			})

			require.NoError(t, err)
			assert.Equal(t, decimal.RequireFromString(tt.total).String(), order.TotalAmount.String())
		})
	}
}

func TestCreateOrder_Validation(t *testing.T) {
	valid := OrderDetails{CustomerName: "c", ProductName: "p", Quantity: 1, UnitPrice: decimal.NewFromInt(1)}

	tests := []struct {
		name          string
		mutate        func(*OrderDetails)
		expectedError string
	}{
		{"blank customer", func(d *OrderDetails) { d.CustomerName = "  " }, "customer name is required"},
		{"blank product", func(d *OrderDetails) { d.ProductName = "" }, "product name is required"},
		{"zero quantity", func(d *OrderDetails) { d.Quantity = 0 }, "quantity must be positive"},
		{"negative price", func(d *OrderDetails) { d.UnitPrice = decimal.NewFromInt(-5) }, "unit price must be positive"},
		{"zero price", func(d *OrderDetails) { d.UnitPrice = decimal.Zero }, "unit price must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			details := valid
			tt.mutate(&details)

			order, err := CreateOrder(details)

			assert.Nil(t, order)
			assert.ErrorIs(t, err, models.ErrInvalidInput)
			assert.Contains(t, err.Error(), tt.expectedError)
		})
	}
}
