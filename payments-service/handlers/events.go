package handlers

import (
	"context"

	"github.com/orderflow/fulfillment/payments-service/application"
	"github.com/orderflow/fulfillment/shared/events"
	"github.com/orderflow/fulfillment/shared/logging"
	"github.com/orderflow/fulfillment/shared/models"
	"github.com/orderflow/fulfillment/shared/saga"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// PaymentEventHandlers materializes payments on order.created and settles
// them on payment.requested
type PaymentEventHandlers struct {
	materializePayment *application.MaterializePayment
	processPayment     *application.ProcessPayment
	logger             *zap.Logger
}

// NewPaymentEventHandlers creates new payment event handlers
func NewPaymentEventHandlers(
	materializePayment *application.MaterializePayment,
	processPayment *application.ProcessPayment,
	logger *zap.Logger,
) *PaymentEventHandlers {
	return &PaymentEventHandlers{
		materializePayment: materializePayment,
		processPayment:     processPayment,
		logger:             logger,
	}
}

// Router builds the payment service dispatch table
func (h *PaymentEventHandlers) Router(opts ...saga.RouterOption) *saga.Router {
	return saga.NewRouter("payment-service", h.logger, opts...).
		RegisterFunc(events.OrderCreatedEvent, h.HandleOrderCreated).
		RegisterFunc(events.PaymentRequestedEvent, h.HandlePaymentRequested)
}

// HandleOrderCreated handles order.created
func (h *PaymentEventHandlers) HandleOrderCreated(ctx context.Context, event *events.Event) error {
	var data events.OrderCreatedData
	if err := event.UnmarshalPayload(&data); err != nil || data.OrderID.IsZero() {
		h.consume(ctx, event, errors.Wrap(models.ErrInvalidInput, "malformed order.created"))
		return nil
	}

	_, err := h.materializePayment.Execute(ctx, data)
	return h.classify(ctx, event, err)
}

// HandlePaymentRequested handles payment.requested. Until order.created has
// been consumed the payment is missing and the event waits for redelivery.
func (h *PaymentEventHandlers) HandlePaymentRequested(ctx context.Context, event *events.Event) error {
	var data events.PaymentRequestedData
	if err := event.UnmarshalPayload(&data); err != nil || data.OrderID.IsZero() {
		h.consume(ctx, event, errors.Wrap(models.ErrInvalidInput, "malformed payment.requested"))
		return nil
	}

	_, err := h.processPayment.Execute(ctx, &application.ProcessPaymentCommand{
		OrderID:       data.OrderID.String(),
		Amount:        data.Amount,
		PaymentMethod: data.PaymentMethod,
	})
	return h.classify(ctx, event, err)
}

// classify consumes events that can never succeed and hands everything else
// back to the bus
func (h *PaymentEventHandlers) classify(ctx context.Context, event *events.Event, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, models.ErrInvalidInput) {
		h.consume(ctx, event, err)
		return nil
	}
	return err
}

func (h *PaymentEventHandlers) consume(ctx context.Context, event *events.Event, err error) {
	logging.Error(ctx, h.logger, "event rejected",
		zap.String("event_id", event.ID.String()),
		zap.String("event_type", event.EventType),
		zap.String("order_id", event.Key.String()),
		zap.Error(err),
	)
}
