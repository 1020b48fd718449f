package application

import (
	"context"
	"testing"
	"time"

	"github.com/orderflow/fulfillment/shared/events"
	"github.com/orderflow/fulfillment/shared/models"
	"github.com/orderflow/fulfillment/shipping-service/domain"
	"github.com/orderflow/fulfillment/shipping-service/mocks"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testOrderID   = models.ID("550e8400-e29b-41d4-a716-446655440000")
	testPaymentID = models.ID("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
)

func testShipment(status domain.ShipmentStatus) *domain.Shipment {
	created := models.Now()
	return &domain.Shipment{
		ID:                    models.ID("7c9e6679-7425-40de-944b-e07fc1f90ae7"),
		OrderID:               testOrderID,
		PaymentID:             testPaymentID,
		CustomerName:          "Ada Lovelace",
		Carrier:               domain.DefaultCarrier,
		TrackingNumber:        "TRK-0123456789AB",
		EstimatedDeliveryDate: created.Add(72 * time.Hour),
		Status:                status,
		Timestamps:            models.Timestamps{CreatedAt: created, UpdatedAt: created},
	}
}

func TestShipOrder_Execute(t *testing.T) {
	tests := []struct {
		name           string
		orderID        string
		setupMocks     func(*mocks.MockShipmentRepository, *mocks.MockPublisher)
		expectedKind   error
		expectedStatus string
		expectedApply  bool
	}{
		{
			name:    "pending shipment goes in transit",
			orderID: testOrderID.String(),
			setupMocks: func(repo *mocks.MockShipmentRepository, publisher *mocks.MockPublisher) {
				repo.EXPECT().FindByOrderID(mock.Anything, testOrderID).Return(testShipment(domain.ShipmentStatusPending), nil).Once()
				repo.EXPECT().UpdateStatus(mock.Anything, mock.MatchedBy(func(s *domain.Shipment) bool {
					return s.Status == domain.ShipmentStatusInTransit && s.TrackingNumber == "TRK-0123456789AB"
				}), domain.ShipmentStatusPending).Return(int64(1), nil).Once()
				publisher.EXPECT().Publish(mock.Anything, mock.MatchedBy(func(evt *events.Event) bool {
					data, ok := evt.Data.(events.ShipmentOutcomeData)
					return ok && evt.EventType == events.ShipmentOutcomeEvent &&
						evt.Key == testOrderID &&
						data.Status == events.ShipmentInTransit &&
						data.TrackingNumber == "TRK-0123456789AB"
				})).Return(nil).Once()
			},
			expectedStatus: "IN_TRANSIT",
			expectedApply:  true,
		},
		{
			name:    "already in transit is a no-op",
			orderID: testOrderID.String(),
			setupMocks: func(repo *mocks.MockShipmentRepository, publisher *mocks.MockPublisher) {
				repo.EXPECT().FindByOrderID(mock.Anything, testOrderID).Return(testShipment(domain.ShipmentStatusInTransit), nil).Once()
			},
			expectedStatus: "IN_TRANSIT",
		},
		{
			name:    "lost race is a no-op",
			orderID: testOrderID.String(),
			setupMocks: func(repo *mocks.MockShipmentRepository, publisher *mocks.MockPublisher) {
				repo.EXPECT().FindByOrderID(mock.Anything, testOrderID).Return(testShipment(domain.ShipmentStatusPending), nil).Once()
				repo.EXPECT().UpdateStatus(mock.Anything, mock.Anything, domain.ShipmentStatusPending).Return(int64(0), nil).Once()
				repo.EXPECT().FindByOrderID(mock.Anything, testOrderID).Return(testShipment(domain.ShipmentStatusInTransit), nil).Once()
			},
			expectedStatus: "IN_TRANSIT",
		},
		{
			name:    "no shipment for the order",
			orderID: testOrderID.String(),
			setupMocks: func(repo *mocks.MockShipmentRepository, publisher *mocks.MockPublisher) {
				repo.EXPECT().FindByOrderID(mock.Anything, testOrderID).Return(nil, nil).Once()
			},
			expectedKind: models.ErrNotFound,
		},
		{
			name:    "store unavailable",
			orderID: testOrderID.String(),
			setupMocks: func(repo *mocks.MockShipmentRepository, publisher *mocks.MockPublisher) {
				repo.EXPECT().FindByOrderID(mock.Anything, testOrderID).Return(testShipment(domain.ShipmentStatusPending), nil).Once()
				repo.EXPECT().UpdateStatus(mock.Anything, mock.Anything, domain.ShipmentStatusPending).
					Return(int64(0), models.Unavailable(errors.New("connection refused"), "failed to update shipment")).Once()
			},
			expectedKind: models.ErrStoreUnavailable,
		},
		{
			name:    "publish failure returns the shipment to pending",
			orderID: testOrderID.String(),
			setupMocks: func(repo *mocks.MockShipmentRepository, publisher *mocks.MockPublisher) {
				repo.EXPECT().FindByOrderID(mock.Anything, testOrderID).Return(testShipment(domain.ShipmentStatusPending), nil).Once()
				repo.EXPECT().UpdateStatus(mock.Anything, mock.Anything, domain.ShipmentStatusPending).Return(int64(1), nil).Once()
				publisher.EXPECT().Publish(mock.Anything, mock.Anything).
					Return(models.Unavailable(errors.New("broker down"), "failed to publish")).Once()
				repo.EXPECT().UpdateStatus(mock.Anything, mock.MatchedBy(func(s *domain.Shipment) bool {
					return s.Status == domain.ShipmentStatusPending && len(s.Events()) == 0
				}), domain.ShipmentStatusInTransit).Return(int64(1), nil).Once()
			},
			expectedKind: models.ErrStoreUnavailable,
		},
		{
			name:         "invalid order id",
			orderID:      "not-a-uuid",
			setupMocks:   func(repo *mocks.MockShipmentRepository, publisher *mocks.MockPublisher) {},
			expectedKind: models.ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := mocks.NewMockShipmentRepository(t)
			mockPublisher := mocks.NewMockPublisher(t)
			tt.setupMocks(mockRepo, mockPublisher)

			result, err := NewShipOrder(mockRepo, mockPublisher, zap.NewNop()).Execute(context.Background(), tt.orderID)

			if tt.expectedKind != nil {
				assert.ErrorIs(t, err, tt.expectedKind)
				assert.Nil(t, result)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedStatus, result.Shipment.Status)
			assert.Equal(t, tt.expectedApply, result.Applied)
		})
	}
}

func TestMaterializeShipment_Execute(t *testing.T) {
	cmd := &MaterializeShipmentCommand{OrderID: testOrderID, PaymentID: testPaymentID, CustomerName: "Ada Lovelace"}

	tests := []struct {
		name         string
		cmd          *MaterializeShipmentCommand
		setupMocks   func(*mocks.MockShipmentRepository)
		expectedKind error
	}{
		{
			name: "creates pending shipment",
			cmd:  cmd,
			setupMocks: func(repo *mocks.MockShipmentRepository) {
				repo.EXPECT().FindByOrderID(mock.Anything, testOrderID).Return(nil, nil).Once()
				repo.EXPECT().Create(mock.Anything, mock.MatchedBy(func(s *domain.Shipment) bool {
					return s.Status == domain.ShipmentStatusPending &&
						s.Carrier == domain.DefaultCarrier &&
						s.PaymentID == testPaymentID &&
						s.EstimatedDeliveryDate.Sub(s.Timestamps.CreatedAt) == domain.EstimatedDeliveryOffset
				})).Return(nil).Once()
			},
		},
		{
			name: "existing shipment is kept",
			cmd:  cmd,
			setupMocks: func(repo *mocks.MockShipmentRepository) {
				repo.EXPECT().FindByOrderID(mock.Anything, testOrderID).Return(testShipment(domain.ShipmentStatusPending), nil).Once()
			},
		},
		{
			name: "concurrent create resolves to the stored shipment",
			cmd:  cmd,
			setupMocks: func(repo *mocks.MockShipmentRepository) {
				repo.EXPECT().FindByOrderID(mock.Anything, testOrderID).Return(nil, nil).Once()
				repo.EXPECT().Create(mock.Anything, mock.Anything).Return(domain.ErrShipmentAlreadyExists).Once()
				repo.EXPECT().FindByOrderID(mock.Anything, testOrderID).Return(testShipment(domain.ShipmentStatusPending), nil).Once()
			},
		},
		{
			name:         "missing order id",
			cmd:          &MaterializeShipmentCommand{PaymentID: testPaymentID},
			setupMocks:   func(repo *mocks.MockShipmentRepository) {},
			expectedKind: models.ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := mocks.NewMockShipmentRepository(t)
			tt.setupMocks(mockRepo)

			result, err := NewMaterializeShipment(mockRepo, zap.NewNop()).Execute(context.Background(), tt.cmd)

			if tt.expectedKind != nil {
				assert.ErrorIs(t, err, tt.expectedKind)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "PENDING", result.Status)
			assert.Equal(t, testOrderID.String(), result.OrderID)
		})
	}
}

func TestListShipments_Execute(t *testing.T) {
	mockRepo := mocks.NewMockShipmentRepository(t)
	mockRepo.EXPECT().FindAll(mock.Anything).Return([]*domain.Shipment{testShipment(domain.ShipmentStatusPending)}, nil).Once()

	result, err := NewListShipments(mockRepo).Execute(context.Background())

	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, domain.DefaultCarrier, result[0].Carrier)
}

func TestGetShipment_Execute(t *testing.T) {
	mockRepo := mocks.NewMockShipmentRepository(t)
	mockRepo.EXPECT().FindByOrderID(mock.Anything, testOrderID).Return(nil, nil).Once()

	_, err := NewGetShipment(mockRepo).Execute(context.Background(), testOrderID.String())

	assert.ErrorIs(t, err, models.ErrNotFound)
}
