package application

import (
	"context"
	"testing"

	"github.com/orderflow/fulfillment/order-service/domain"
	"github.com/orderflow/fulfillment/order-service/mocks"
	"github.com/orderflow/fulfillment/shared/events"
	"github.com/orderflow/fulfillment/shared/models"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

const testPaymentID = models.ID("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

func statusChanged(from, to domain.OrderStatus) interface{} {
	return mock.MatchedBy(func(evt *events.Event) bool {
		data, ok := evt.Data.(events.OrderStatusChangedData)
		return ok &&
			evt.EventType == events.OrderStatusChangedEvent &&
			evt.Key == testOrderID &&
			data.PreviousStatus == from.String() &&
			data.Status == to.String()
	})
}

func TestPropagateOrderStatus_OnPaymentOutcome(t *testing.T) {
	completed := events.PaymentOutcomeData{
		PaymentID: testPaymentID,
		OrderID:   testOrderID,
		Amount:    decimal.RequireFromString("100"),
		Status:    events.PaymentCompleted,
	}
	failed := completed
	failed.Status = events.PaymentFailed
	failed.Reason = "amount mismatch"

	tests := []struct {
		name          string
		data          events.PaymentOutcomeData
		setupMocks    func(*mocks.MockOrderRepository, *mocks.MockPublisher)
		expectedError error
	}{
		{
			name: "completed payment marks order paid and requests shipment",
			data: completed,
			setupMocks: func(repo *mocks.MockOrderRepository, publisher *mocks.MockPublisher) {
				repo.EXPECT().UpdateStatus(mock.Anything, testOrderID, domain.OrderStatusPaid, mock.Anything).Return(int64(1), nil).Once()
				repo.EXPECT().FindByID(mock.Anything, testOrderID).Return(testOrder(domain.OrderStatusPaid), nil).Once()
				publisher.EXPECT().Publish(mock.Anything,
					statusChanged(domain.OrderStatusCreated, domain.OrderStatusPaid),
					mock.MatchedBy(func(evt *events.Event) bool {
						data, ok := evt.Data.(events.ShipmentRequestedData)
						return ok &&
							evt.EventType == events.ShipmentRequestedEvent &&
							evt.Key == testOrderID &&
							data.PaymentID == testPaymentID &&
							data.CustomerName == "Ada Lovelace"
					}),
				).Return(nil).Once()
			},
		},
		{
			name: "failed payment marks order failed without shipment",
			data: failed,
			setupMocks: func(repo *mocks.MockOrderRepository, publisher *mocks.MockPublisher) {
				repo.EXPECT().UpdateStatus(mock.Anything, testOrderID, domain.OrderStatusFailed, mock.Anything).Return(int64(1), nil).Once()
				publisher.EXPECT().Publish(mock.Anything, statusChanged(domain.OrderStatusCreated, domain.OrderStatusFailed)).Return(nil).Once()
			},
		},
		{
			name: "duplicate outcome emits nothing",
			data: completed,
			setupMocks: func(repo *mocks.MockOrderRepository, publisher *mocks.MockPublisher) {
				repo.EXPECT().UpdateStatus(mock.Anything, testOrderID, domain.OrderStatusPaid, mock.Anything).Return(int64(0), nil).Once()
				repo.EXPECT().FindByID(mock.Anything, testOrderID).Return(testOrder(domain.OrderStatusPaid), nil).Once()
			},
		},
		{
			name: "unknown order is consumed",
			data: completed,
			setupMocks: func(repo *mocks.MockOrderRepository, publisher *mocks.MockPublisher) {
				repo.EXPECT().UpdateStatus(mock.Anything, testOrderID, domain.OrderStatusPaid, mock.Anything).Return(int64(0), nil).Once()
				repo.EXPECT().FindByID(mock.Anything, testOrderID).Return(nil, nil).Once()
			},
		},
		{
			name: "late payment on a failed order is consumed",
			data: completed,
			setupMocks: func(repo *mocks.MockOrderRepository, publisher *mocks.MockPublisher) {
				repo.EXPECT().UpdateStatus(mock.Anything, testOrderID, domain.OrderStatusPaid, mock.Anything).Return(int64(0), nil).Once()
				repo.EXPECT().FindByID(mock.Anything, testOrderID).Return(testOrder(domain.OrderStatusFailed), nil).Once()
			},
		},
		{
			name: "store outage is returned for redelivery",
			data: completed,
			setupMocks: func(repo *mocks.MockOrderRepository, publisher *mocks.MockPublisher) {
				repo.EXPECT().UpdateStatus(mock.Anything, testOrderID, domain.OrderStatusPaid, mock.Anything).
					Return(int64(0), models.Unavailable(errors.New("connection reset"), "failed to update order")).Once()
			},
			expectedError: models.ErrStoreUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := mocks.NewMockOrderRepository(t)
			mockPublisher := mocks.NewMockPublisher(t)
			tt.setupMocks(mockRepo, mockPublisher)

			reactor := NewPropagateOrderStatus(NewTransitionOrderStatus(mockRepo), mockRepo, mockPublisher, zap.NewNop())

			err := reactor.OnPaymentOutcome(context.Background(), tt.data)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestPropagateOrderStatus_OnShipmentOutcome(t *testing.T) {
	data := events.ShipmentOutcomeData{
		ShipmentID:     models.GenerateUUID(),
		OrderID:        testOrderID,
		Status:         events.ShipmentInTransit,
		TrackingNumber: "TRK-0123456789AB",
		Carrier:        "DHL",
	}

	tests := []struct {
		name          string
		setupMocks    func(*mocks.MockOrderRepository, *mocks.MockPublisher)
		expectedError error
	}{
		{
			name: "paid order ships",
			setupMocks: func(repo *mocks.MockOrderRepository, publisher *mocks.MockPublisher) {
				repo.EXPECT().UpdateStatus(mock.Anything, testOrderID, domain.OrderStatusShipped,
					[]domain.OrderStatus{domain.OrderStatusPaid}).Return(int64(1), nil).Once()
				publisher.EXPECT().Publish(mock.Anything, statusChanged(domain.OrderStatusPaid, domain.OrderStatusShipped)).Return(nil).Once()
			},
		},
		{
			name: "shipment ahead of payment waits for redelivery",
			setupMocks: func(repo *mocks.MockOrderRepository, publisher *mocks.MockPublisher) {
				repo.EXPECT().UpdateStatus(mock.Anything, testOrderID, domain.OrderStatusShipped, mock.Anything).Return(int64(0), nil).Once()
				repo.EXPECT().FindByID(mock.Anything, testOrderID).Return(testOrder(domain.OrderStatusCreated), nil).Once()
			},
			expectedError: models.ErrTransitionPending,
		},
		{
			name: "publish failure is returned",
			setupMocks: func(repo *mocks.MockOrderRepository, publisher *mocks.MockPublisher) {
				repo.EXPECT().UpdateStatus(mock.Anything, testOrderID, domain.OrderStatusShipped, mock.Anything).Return(int64(1), nil).Once()
				publisher.EXPECT().Publish(mock.Anything, mock.Anything).
					Return(models.Unavailable(errors.New("throttled"), "failed to publish")).Once()
			},
			expectedError: models.ErrStoreUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := mocks.NewMockOrderRepository(t)
			mockPublisher := mocks.NewMockPublisher(t)
			tt.setupMocks(mockRepo, mockPublisher)

			reactor := NewPropagateOrderStatus(NewTransitionOrderStatus(mockRepo), mockRepo, mockPublisher, zap.NewNop())

			err := reactor.OnShipmentOutcome(context.Background(), data)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				return
			}
			assert.NoError(t, err)
		})
	}
}
