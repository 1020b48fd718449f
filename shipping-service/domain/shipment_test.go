package domain

import (
	"regexp"
	"testing"

	"github.com/orderflow/fulfillment/shared/events"
	"github.com/orderflow/fulfillment/shared/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testOrderID   = models.ID("550e8400-e29b-41d4-a716-446655440000")
	testPaymentID = models.ID("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
)

var trackingNumberPattern = regexp.MustCompile(`^TRK-[0-9A-F]{12}$`)

func TestNewTrackingNumber(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		tn := NewTrackingNumber()
		assert.Regexp(t, trackingNumberPattern, tn)
		seen[tn] = struct{}{}
	}
	assert.Len(t, seen, 100)
}

func TestCreateShipment(t *testing.T) {
	tests := []struct {
		name      string
		orderID   models.ID
		expectErr bool
	}{
		{name: "valid", orderID: testOrderID},
		{name: "missing order", orderID: "", expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shipment, err := CreateShipment(tt.orderID, testPaymentID, "Ada Lovelace")

			if tt.expectErr {
				assert.ErrorIs(t, err, models.ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, ShipmentStatusPending, shipment.Status)
			assert.Equal(t, DefaultCarrier, shipment.Carrier)
			assert.Regexp(t, trackingNumberPattern, shipment.TrackingNumber)
			assert.Equal(t, shipment.Timestamps.CreatedAt.Add(EstimatedDeliveryOffset), shipment.EstimatedDeliveryDate)
			assert.Empty(t, shipment.Events())
		})
	}
}

func TestShipment_MarkInTransit(t *testing.T) {
	shipment, err := CreateShipment(testOrderID, testPaymentID, "Ada Lovelace")
	require.NoError(t, err)
	tracking := shipment.TrackingNumber

	require.NoError(t, shipment.MarkInTransit())
	assert.True(t, shipment.IsInTransit())
	assert.Equal(t, tracking, shipment.TrackingNumber)

	require.Len(t, shipment.Events(), 1)
	event := shipment.Events()[0]
	assert.Equal(t, events.ShipmentOutcomeEvent, event.EventType)
	assert.Equal(t, testOrderID, event.Key)

	var data events.ShipmentOutcomeData
	require.NoError(t, event.UnmarshalPayload(&data))
	assert.Equal(t, events.ShipmentInTransit, data.Status)
	assert.Equal(t, tracking, data.TrackingNumber)
	assert.Equal(t, DefaultCarrier, data.Carrier)

	assert.ErrorIs(t, shipment.MarkInTransit(), ErrShipmentAlreadyInTransit)
	assert.Len(t, shipment.Events(), 1)
}
