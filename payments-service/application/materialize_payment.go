package application

import (
	"context"

	"github.com/orderflow/fulfillment/payments-service/domain"
	"github.com/orderflow/fulfillment/shared/events"
	"github.com/orderflow/fulfillment/shared/logging"
	"github.com/orderflow/fulfillment/shared/models"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// MaterializePayment creates the PENDING payment of a new order. It runs on
// order.created and is idempotent: an order has at most one payment.
type MaterializePayment struct {
	paymentRepository domain.PaymentRepository
	logger            *zap.Logger
}

// NewMaterializePayment creates a new MaterializePayment use case
func NewMaterializePayment(paymentRepository domain.PaymentRepository, logger *zap.Logger) *MaterializePayment {
	return &MaterializePayment{
		paymentRepository: paymentRepository,
		logger:            logger,
	}
}

// Execute returns the order's payment, creating it when missing
func (uc *MaterializePayment) Execute(ctx context.Context, data events.OrderCreatedData) (*PaymentResponse, error) {
	existing, err := uc.paymentRepository.FindByOrderID(ctx, data.OrderID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find payment")
	}
	if existing != nil {
		logging.Warn(ctx, uc.logger, "payment already materialized",
			zap.String("order_id", data.OrderID.String()),
			zap.String("payment_id", existing.ID.String()),
		)
		return toPaymentResponse(existing), nil
	}

	payment, err := domain.CreatePayment(data.OrderID, data.CustomerName, data.TotalAmount)
	if err != nil {
		return nil, errors.Wrap(err, "invalid order")
	}

	if err := uc.paymentRepository.Create(ctx, payment); err != nil {
		if !errors.Is(err, domain.ErrPaymentAlreadyExists) {
			return nil, errors.Wrap(err, "failed to create payment")
		}
		// A concurrent delivery of the same order.created won.
		existing, err := uc.paymentRepository.FindByOrderID(ctx, data.OrderID)
		if err != nil {
			return nil, errors.Wrap(err, "failed to reload payment")
		}
		if existing == nil {
			return nil, errors.Wrapf(models.ErrNotFound, "payment for order %s", data.OrderID)
		}
		return toPaymentResponse(existing), nil
	}

	logging.Info(ctx, uc.logger, "payment materialized",
		zap.String("order_id", data.OrderID.String()),
		zap.String("payment_id", payment.ID.String()),
		zap.String("amount", payment.Amount.String()),
	)
	return toPaymentResponse(payment), nil
}
