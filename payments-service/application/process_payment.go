package application

import (
	"context"

	"github.com/orderflow/fulfillment/payments-service/domain"
	"github.com/orderflow/fulfillment/shared/events"
	"github.com/orderflow/fulfillment/shared/logging"
	"github.com/orderflow/fulfillment/shared/models"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ProcessPaymentCommand is a payment submission for an order
type ProcessPaymentCommand struct {
	OrderID       string          `json:"order_id"`
	Amount        decimal.Decimal `json:"amount" validate:"required,gt=0"`
	PaymentMethod string          `json:"payment_method" validate:"max=32"`
}

// ProcessPaymentResult reports whether this call settled the payment
type ProcessPaymentResult struct {
	Payment *PaymentResponse `json:"payment"`
	// Applied is false when the payment had already been settled.
	Applied bool `json:"applied"`
}

// ProcessPayment settles a PENDING payment. The submitted amount must equal
// the order total exactly; anything else fails the payment. Either way one
// payment.outcome is published.
type ProcessPayment struct {
	paymentRepository domain.PaymentRepository
	eventPublisher    events.Publisher
	logger            *zap.Logger
}

// NewProcessPayment creates a new ProcessPayment use case
func NewProcessPayment(
	paymentRepository domain.PaymentRepository,
	eventPublisher events.Publisher,
	logger *zap.Logger,
) *ProcessPayment {
	return &ProcessPayment{
		paymentRepository: paymentRepository,
		eventPublisher:    eventPublisher,
		logger:            logger,
	}
}

// Execute executes the process payment use case. It fails with
// models.ErrNotFound while the payment has not been materialized.
func (uc *ProcessPayment) Execute(ctx context.Context, cmd *ProcessPaymentCommand) (*ProcessPaymentResult, error) {
	if cmd == nil {
		return nil, errors.Wrap(models.ErrInvalidInput, "command is required")
	}

	orderID, err := models.NewID(cmd.OrderID)
	if err != nil {
		return nil, errors.Wrapf(models.ErrInvalidInput, "invalid order ID %q", cmd.OrderID)
	}

	method, err := domain.ParsePaymentMethodType(cmd.PaymentMethod)
	if err != nil {
		return nil, err
	}

	payment, err := uc.paymentRepository.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find payment")
	}
	if payment == nil {
		return nil, errors.Wrapf(models.ErrNotFound, "payment for order %s", orderID)
	}

	fields := []zap.Field{
		zap.String("order_id", orderID.String()),
		zap.String("payment_id", payment.ID.String()),
	}

	if !payment.IsPending() {
		logging.Warn(ctx, uc.logger, "payment already processed",
			append(fields, zap.String("status", payment.Status.String()))...)
		return &ProcessPaymentResult{Payment: toPaymentResponse(payment)}, nil
	}

	if payment.IsAmountMatching(cmd.Amount) {
		err = payment.Complete(method)
	} else {
		logging.Warn(ctx, uc.logger, "payment amount mismatch",
			append(fields,
				zap.String("expected", payment.Amount.String()),
				zap.String("received", cmd.Amount.String()),
			)...)
		err = payment.Fail(method, domain.AmountMismatchReason)
	}
	if err != nil {
		return nil, err
	}

	if err := uc.paymentRepository.Settle(ctx, payment); err != nil {
		if !errors.Is(err, domain.ErrPaymentAlreadyProcessed) {
			return nil, errors.Wrap(err, "failed to settle payment")
		}
		// Lost the race against a concurrent submission.
		current, err := uc.paymentRepository.FindByOrderID(ctx, orderID)
		if err != nil {
			return nil, errors.Wrap(err, "failed to reload payment")
		}
		if current == nil {
			return nil, errors.Wrapf(models.ErrNotFound, "payment for order %s", orderID)
		}
		logging.Warn(ctx, uc.logger, "payment settled concurrently", fields...)
		return &ProcessPaymentResult{Payment: toPaymentResponse(current)}, nil
	}

	if err := uc.eventPublisher.Publish(ctx, payment.Events()...); err != nil {
		uc.reopen(ctx, payment, fields)
		return nil, errors.Wrap(err, "failed to publish events")
	}
	payment.ClearEvents()

	logging.Info(ctx, uc.logger, "payment processed",
		append(fields, zap.String("status", payment.Status.String()))...)

	return &ProcessPaymentResult{Payment: toPaymentResponse(payment), Applied: true}, nil
}

// reopen undoes the settle after a failed publish so that the redelivered
// submission emits the outcome. If that write fails too the outcome is lost.
func (uc *ProcessPayment) reopen(ctx context.Context, payment *domain.Payment, fields []zap.Field) {
	settled := payment.Reopen()
	if err := uc.paymentRepository.Reopen(ctx, payment, settled); err != nil {
		logging.Error(ctx, uc.logger, "payment settled but outcome not published",
			append(fields, zap.String("status", settled.String()), zap.Error(err))...)
		return
	}
	logging.Warn(ctx, uc.logger, "payment reopened after publish failure", fields...)
}
