package application

import (
	"context"
	"testing"

	"github.com/orderflow/fulfillment/order-service/domain"
	"github.com/orderflow/fulfillment/order-service/mocks"
	"github.com/orderflow/fulfillment/shared/models"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestTransitionOrderStatus_Execute(t *testing.T) {
	tests := []struct {
		name           string
		target         domain.OrderStatus
		setupMocks     func(*mocks.MockOrderRepository)
		expectedKind   error
		expectedResult *TransitionResult
	}{
		{
			name:   "created to paid applied",
			target: domain.OrderStatusPaid,
			setupMocks: func(repo *mocks.MockOrderRepository) {
				repo.EXPECT().UpdateStatus(mock.Anything, testOrderID, domain.OrderStatusPaid,
					[]domain.OrderStatus{domain.OrderStatusCreated}).Return(int64(1), nil).Once()
			},
			expectedResult: &TransitionResult{Applied: true, Previous: domain.OrderStatusCreated, Current: domain.OrderStatusPaid},
		},
		{
			name:   "paid to shipped applied",
			target: domain.OrderStatusShipped,
			setupMocks: func(repo *mocks.MockOrderRepository) {
				repo.EXPECT().UpdateStatus(mock.Anything, testOrderID, domain.OrderStatusShipped,
					[]domain.OrderStatus{domain.OrderStatusPaid}).Return(int64(1), nil).Once()
			},
			expectedResult: &TransitionResult{Applied: true, Previous: domain.OrderStatusPaid, Current: domain.OrderStatusShipped},
		},
		{
			name:   "duplicate delivery absorbed",
			target: domain.OrderStatusPaid,
			setupMocks: func(repo *mocks.MockOrderRepository) {
				repo.EXPECT().UpdateStatus(mock.Anything, testOrderID, domain.OrderStatusPaid, mock.Anything).Return(int64(0), nil).Once()
				repo.EXPECT().FindByID(mock.Anything, testOrderID).Return(testOrder(domain.OrderStatusPaid), nil).Once()
			},
			expectedResult: &TransitionResult{Applied: false, Previous: domain.OrderStatusPaid, Current: domain.OrderStatusPaid},
		},
		{
			name:   "shipped before paid is pending",
			target: domain.OrderStatusShipped,
			setupMocks: func(repo *mocks.MockOrderRepository) {
				repo.EXPECT().UpdateStatus(mock.Anything, testOrderID, domain.OrderStatusShipped, mock.Anything).Return(int64(0), nil).Once()
				repo.EXPECT().FindByID(mock.Anything, testOrderID).Return(testOrder(domain.OrderStatusCreated), nil).Once()
			},
			expectedKind: models.ErrTransitionPending,
		},
		{
			name:   "failed order cannot be paid",
			target: domain.OrderStatusPaid,
			setupMocks: func(repo *mocks.MockOrderRepository) {
				repo.EXPECT().UpdateStatus(mock.Anything, testOrderID, domain.OrderStatusPaid, mock.Anything).Return(int64(0), nil).Once()
				repo.EXPECT().FindByID(mock.Anything, testOrderID).Return(testOrder(domain.OrderStatusFailed), nil).Once()
			},
			expectedKind: models.ErrIllegalTransition,
		},
		{
			name:   "shipped order cannot fail",
			target: domain.OrderStatusFailed,
			setupMocks: func(repo *mocks.MockOrderRepository) {
				repo.EXPECT().UpdateStatus(mock.Anything, testOrderID, domain.OrderStatusFailed, mock.Anything).Return(int64(0), nil).Once()
				repo.EXPECT().FindByID(mock.Anything, testOrderID).Return(testOrder(domain.OrderStatusShipped), nil).Once()
			},
			expectedKind: models.ErrIllegalTransition,
		},
		{
			name:   "created has no predecessor",
			target: domain.OrderStatusCreated,
			setupMocks: func(repo *mocks.MockOrderRepository) {
				repo.EXPECT().FindByID(mock.Anything, testOrderID).Return(testOrder(domain.OrderStatusPaid), nil).Once()
			},
			expectedKind: models.ErrIllegalTransition,
		},
		{
			name:   "order not found",
			target: domain.OrderStatusPaid,
			setupMocks: func(repo *mocks.MockOrderRepository) {
				repo.EXPECT().UpdateStatus(mock.Anything, testOrderID, domain.OrderStatusPaid, mock.Anything).Return(int64(0), nil).Once()
				repo.EXPECT().FindByID(mock.Anything, testOrderID).Return(nil, nil).Once()
			},
			expectedKind: models.ErrNotFound,
		},
		{
			name:   "store unavailable",
			target: domain.OrderStatusPaid,
			setupMocks: func(repo *mocks.MockOrderRepository) {
				repo.EXPECT().UpdateStatus(mock.Anything, testOrderID, domain.OrderStatusPaid, mock.Anything).
					Return(int64(0), models.Unavailable(errors.New("connection reset"), "failed to update order")).Once()
			},
			expectedKind: models.ErrStoreUnavailable,
		},
		{
			name:         "unknown target",
			target:       domain.OrderStatus("REFUNDED"),
			setupMocks:   func(repo *mocks.MockOrderRepository) {},
			expectedKind: models.ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := mocks.NewMockOrderRepository(t)
			tt.setupMocks(mockRepo)

			result, err := NewTransitionOrderStatus(mockRepo).Execute(context.Background(), testOrderID, tt.target)

			if tt.expectedKind != nil {
				assert.ErrorIs(t, err, tt.expectedKind)
				assert.Nil(t, result)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedResult, result)
		})
	}
}
