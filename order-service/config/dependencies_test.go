package config

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/orderflow/fulfillment/order-service/application"
	sharedconfig "github.com/orderflow/fulfillment/shared/config"
	"github.com/orderflow/fulfillment/shared/events"
	"github.com/orderflow/fulfillment/shared/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func cachedConfig(addr string) *sharedconfig.Config {
	return &sharedconfig.Config{
		ServiceName: ServiceName,
		Database:    sharedconfig.Database{Driver: sharedconfig.StorageMemory},
		Bus:         sharedconfig.Bus{Driver: sharedconfig.BusMemory, ConsumerGroup: ServiceName},
		Redis:       sharedconfig.Redis{Addr: addr, TTL: time.Hour},
	}
}

func TestBuildDependencies_CachedOrderFollowsStatusChanges(t *testing.T) {
	ctx := context.Background()
	server := miniredis.RunT(t)

	deps, err := BuildDependencies(ctx, cachedConfig(server.Addr()), zap.NewNop(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = deps.Close() })

	created, err := deps.CreateOrder.Execute(ctx, &application.CreateOrderCommand{
		CustomerName: "Ada Lovelace",
		ProductName:  "Analytical Engine",
		Quantity:     2,
		UnitPrice:    decimal.RequireFromString("50"),
	})
	require.NoError(t, err)
	orderID := models.ID(created.ID)

	got, err := deps.GetOrder.Execute(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "CREATED", got.Status)
	require.True(t, server.Exists("order:"+created.ID))

	outcome := events.PaymentOutcomeData{
		PaymentID: models.GenerateUUID(),
		OrderID:   orderID,
		Amount:    decimal.RequireFromString("100"),
		Status:    events.PaymentCompleted,
	}
	require.NoError(t, deps.PropagateOrderStatus.OnPaymentOutcome(ctx, outcome))

	got, err = deps.GetOrder.Execute(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "PAID", got.Status)

	// a redelivered outcome is a duplicate, not a pending transition
	result, err := deps.TransitionOrderStatus.Execute(ctx, orderID, "PAID")
	require.NoError(t, err)
	assert.False(t, result.Applied)

	require.NoError(t, deps.PropagateOrderStatus.OnShipmentOutcome(ctx, events.ShipmentOutcomeData{
		ShipmentID: models.GenerateUUID(),
		OrderID:    orderID,
		Status:     "IN_TRANSIT",
	}))

	got, err = deps.GetOrder.Execute(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "SHIPPED", got.Status)

	listed, err := deps.ListOrders.Execute(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "SHIPPED", listed[0].Status)
}
