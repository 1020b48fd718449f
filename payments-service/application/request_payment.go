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

// RequestPaymentResponse acknowledges a queued payment submission
type RequestPaymentResponse struct {
	EventID string `json:"event_id"`
	OrderID string `json:"order_id"`
}

// RequestPayment queues a payment submission as payment.requested. The
// payment reactor settles it asynchronously, retrying while the payment
// has not been materialized yet.
type RequestPayment struct {
	eventPublisher events.Publisher
	logger         *zap.Logger
}

// NewRequestPayment creates a new RequestPayment use case
func NewRequestPayment(eventPublisher events.Publisher, logger *zap.Logger) *RequestPayment {
	return &RequestPayment{
		eventPublisher: eventPublisher,
		logger:         logger,
	}
}

// Execute validates the submission and publishes it keyed by order id
func (uc *RequestPayment) Execute(ctx context.Context, cmd *ProcessPaymentCommand) (*RequestPaymentResponse, error) {
	if cmd == nil {
		return nil, errors.Wrap(models.ErrInvalidInput, "command is required")
	}

	orderID, err := models.NewID(cmd.OrderID)
	if err != nil {
		return nil, errors.Wrapf(models.ErrInvalidInput, "invalid order ID %q", cmd.OrderID)
	}
	if !cmd.Amount.IsPositive() {
		return nil, errors.Wrap(models.ErrInvalidInput, "amount must be positive")
	}
	method, err := domain.ParsePaymentMethodType(cmd.PaymentMethod)
	if err != nil {
		return nil, err
	}

	event := events.NewEvent(orderID, events.PaymentRequestedEvent, events.PaymentRequestedData{
		OrderID:       orderID,
		Amount:        cmd.Amount,
		PaymentMethod: method.String(),
	})
	if err := uc.eventPublisher.Publish(ctx, event); err != nil {
		return nil, errors.Wrap(err, "failed to publish payment request")
	}

	logging.Info(ctx, uc.logger, "payment requested",
		zap.String("order_id", orderID.String()),
		zap.String("event_id", event.ID.String()),
	)

	return &RequestPaymentResponse{EventID: event.ID.String(), OrderID: orderID.String()}, nil
}
