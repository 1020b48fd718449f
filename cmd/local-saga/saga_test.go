package main

import (
	"context"
	"testing"

	orderapp "github.com/orderflow/fulfillment/order-service/application"
	orderconfig "github.com/orderflow/fulfillment/order-service/config"
	orderdomain "github.com/orderflow/fulfillment/order-service/domain"
	paymentapp "github.com/orderflow/fulfillment/payments-service/application"
	paymentconfig "github.com/orderflow/fulfillment/payments-service/config"
	sharedconfig "github.com/orderflow/fulfillment/shared/config"
	"github.com/orderflow/fulfillment/shared/events"
	sharedinfra "github.com/orderflow/fulfillment/shared/infrastructure"
	"github.com/orderflow/fulfillment/shared/models"
	shippingconfig "github.com/orderflow/fulfillment/shipping-service/config"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type sagaHarness struct {
	bus      *sharedinfra.MemoryBus
	order    *orderconfig.Dependencies
	payment  *paymentconfig.Dependencies
	shipping *shippingconfig.Dependencies
}

func memoryConfig(service string) *sharedconfig.Config {
	return &sharedconfig.Config{
		ServiceName: service,
		Database:    sharedconfig.Database{Driver: sharedconfig.StorageMemory},
		Bus:         sharedconfig.Bus{Driver: sharedconfig.BusMemory, ConsumerGroup: service},
	}
}

func newSagaHarness(t *testing.T, opts ...sharedinfra.MemoryBusOption) *sagaHarness {
	ctx := context.Background()
	logger := zap.NewNop()
	h := &sagaHarness{bus: sharedinfra.NewMemoryBus(logger, opts...)}

	var err error
	h.order, err = orderconfig.BuildDependencies(ctx, memoryConfig(orderconfig.ServiceName), logger, h.bus)
	require.NoError(t, err)
	h.payment, err = paymentconfig.BuildDependencies(ctx, memoryConfig(paymentconfig.ServiceName), logger, h.bus)
	require.NoError(t, err)
	h.shipping, err = shippingconfig.BuildDependencies(ctx, memoryConfig(shippingconfig.ServiceName), logger, h.bus)
	require.NoError(t, err)

	require.NoError(t, h.order.StartConsuming(ctx))
	require.NoError(t, h.payment.StartConsuming(ctx))
	require.NoError(t, h.shipping.StartConsuming(ctx))

	t.Cleanup(func() {
		_ = h.shipping.Close()
		_ = h.payment.Close()
		_ = h.order.Close()
	})
	return h
}

func (h *sagaHarness) drain(t *testing.T) {
	require.NoError(t, h.bus.Drain(context.Background()))
	assert.Empty(t, h.bus.DeadLetters())
}

func (h *sagaHarness) createOrder(t *testing.T) *orderapp.OrderResponse {
	order, err := h.order.CreateOrder.Execute(context.Background(), &orderapp.CreateOrderCommand{
		CustomerName: "Ada Lovelace",
		ProductName:  "Analytical Engine",
		Quantity:     2,
		UnitPrice:    decimal.RequireFromString("50.0"),
	})
	require.NoError(t, err)
	h.drain(t)
	return order
}

func (h *sagaHarness) pay(t *testing.T, orderID, amount string) *paymentapp.ProcessPaymentResult {
	result, err := h.payment.ProcessPayment.Execute(context.Background(), &paymentapp.ProcessPaymentCommand{
		OrderID: orderID,
		Amount:  decimal.RequireFromString(amount),
	})
	require.NoError(t, err)
	h.drain(t)
	return result
}

func (h *sagaHarness) orderStatus(t *testing.T, orderID string) string {
	order, err := h.order.GetOrder.Execute(context.Background(), orderID)
	require.NoError(t, err)
	return order.Status
}

// journalCount counts one type in the order service's journal of an order
func (h *sagaHarness) journalCount(t *testing.T, orderID, eventType string) int {
	journal, err := h.order.GetOrderEvents.Execute(context.Background(), orderID)
	require.NoError(t, err)
	n := 0
	for _, e := range journal {
		if e.EventType == eventType {
			n++
		}
	}
	return n
}

func TestSaga_PaidAndShipped(t *testing.T) {
	h := newSagaHarness(t)
	ctx := context.Background()

	order := h.createOrder(t)
	assert.True(t, order.TotalAmount.Equal(decimal.RequireFromString("100.0")))
	assert.Equal(t, "CREATED", order.Status)

	payment, err := h.payment.GetPayment.Execute(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "PENDING", payment.Status)

	result := h.pay(t, order.ID, "100.0")
	assert.True(t, result.Applied)
	assert.Equal(t, "COMPLETED", result.Payment.Status)
	assert.NotNil(t, result.Payment.SettledAt)
	assert.Equal(t, "PAID", h.orderStatus(t, order.ID))

	shipment, err := h.shipping.GetShipment.Execute(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "PENDING", shipment.Status)
	assert.Equal(t, "DHL", shipment.Carrier)

	shipped, err := h.shipping.ShipOrder.Execute(ctx, order.ID)
	require.NoError(t, err)
	h.drain(t)
	assert.True(t, shipped.Applied)
	assert.Equal(t, shipment.TrackingNumber, shipped.Shipment.TrackingNumber)
	assert.Equal(t, "SHIPPED", h.orderStatus(t, order.ID))

	// Re-triggering changes nothing.
	again, err := h.shipping.ShipOrder.Execute(ctx, order.ID)
	require.NoError(t, err)
	h.drain(t)
	assert.False(t, again.Applied)
	assert.Equal(t, "SHIPPED", h.orderStatus(t, order.ID))

	assert.Equal(t, 1, h.journalCount(t, order.ID, events.PaymentOutcomeEvent))
	assert.Equal(t, 1, h.journalCount(t, order.ID, events.ShipmentOutcomeEvent))
	assert.Equal(t, 1, h.journalCount(t, order.ID, events.ShipmentRequestedEvent))
	assert.Equal(t, 2, h.journalCount(t, order.ID, events.OrderStatusChangedEvent))
}

func TestSaga_AmountMismatchFailsOrder(t *testing.T) {
	h := newSagaHarness(t)
	ctx := context.Background()

	order := h.createOrder(t)

	result := h.pay(t, order.ID, "80.0")
	assert.Equal(t, "FAILED", result.Payment.Status)
	assert.Equal(t, "FAILED", h.orderStatus(t, order.ID))

	_, err := h.shipping.GetShipment.Execute(ctx, order.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	// The right amount afterwards cannot revive the order.
	retry := h.pay(t, order.ID, "100.0")
	assert.False(t, retry.Applied)
	assert.Equal(t, "FAILED", retry.Payment.Status)
	assert.Equal(t, "FAILED", h.orderStatus(t, order.ID))

	_, err = h.shipping.ShipOrder.Execute(ctx, order.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestSaga_DuplicateDeliveryConverges(t *testing.T) {
	h := newSagaHarness(t, sharedinfra.WithDuplicateDelivery())
	ctx := context.Background()

	order := h.createOrder(t)
	h.pay(t, order.ID, "100.00")

	shipments, err := h.shipping.ListShipments.Execute(ctx)
	require.NoError(t, err)
	assert.Len(t, shipments, 1)

	_, err = h.shipping.ShipOrder.Execute(ctx, order.ID)
	require.NoError(t, err)
	h.drain(t)

	assert.Equal(t, "SHIPPED", h.orderStatus(t, order.ID))
	assert.Equal(t, 1, h.journalCount(t, order.ID, events.PaymentOutcomeEvent))
	assert.Equal(t, 2, h.journalCount(t, order.ID, events.OrderStatusChangedEvent))

	payments, err := h.payment.ListPayments.Execute(ctx)
	require.NoError(t, err)
	assert.Len(t, payments, 1)
}

func TestSaga_PaymentRequestedBeforeMaterialization(t *testing.T) {
	h := newSagaHarness(t)
	ctx := context.Background()

	order, err := orderdomain.CreateOrder(orderdomain.OrderDetails{
		CustomerName: "Ada Lovelace",
		ProductName:  "Analytical Engine",
		Quantity:     2,
		UnitPrice:    decimal.RequireFromString("50"),
	})
	require.NoError(t, err)
	require.NoError(t, h.order.OrderRepository.Save(ctx, order))

	// The payment service sees the request before order.created and has to
	// wait for redelivery.
	request := events.NewEvent(order.ID, events.PaymentRequestedEvent, events.PaymentRequestedData{
		OrderID: order.ID,
		Amount:  decimal.RequireFromString("100"),
	})
	require.NoError(t, h.bus.Publish(ctx, append([]*events.Event{request}, order.Events()...)...))
	h.drain(t)

	payment, err := h.payment.GetPayment.Execute(ctx, order.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "COMPLETED", payment.Status)
	assert.Equal(t, "PAID", h.orderStatus(t, order.ID.String()))
}

func TestSaga_QueuedPaymentRequest(t *testing.T) {
	h := newSagaHarness(t)
	ctx := context.Background()

	order := h.createOrder(t)
	_, err := h.payment.RequestPayment.Execute(ctx, &paymentapp.ProcessPaymentCommand{
		OrderID: order.ID,
		Amount:  decimal.RequireFromString("100.00"),
	})
	require.NoError(t, err)
	h.drain(t)

	payment, err := h.payment.GetPayment.Execute(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "COMPLETED", payment.Status)
	assert.Equal(t, "PAID", h.orderStatus(t, order.ID))
}
