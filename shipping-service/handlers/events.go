package handlers

import (
	"context"

	"github.com/orderflow/fulfillment/shared/events"
	"github.com/orderflow/fulfillment/shared/logging"
	"github.com/orderflow/fulfillment/shared/models"
	"github.com/orderflow/fulfillment/shared/saga"
	"github.com/orderflow/fulfillment/shipping-service/application"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ShipmentEventHandlers materializes shipments for paid orders
type ShipmentEventHandlers struct {
	materializeShipment *application.MaterializeShipment
	logger              *zap.Logger
}

// NewShipmentEventHandlers creates new shipment event handlers
func NewShipmentEventHandlers(materializeShipment *application.MaterializeShipment, logger *zap.Logger) *ShipmentEventHandlers {
	return &ShipmentEventHandlers{
		materializeShipment: materializeShipment,
		logger:              logger,
	}
}

// Router builds the shipping service dispatch table
func (h *ShipmentEventHandlers) Router(opts ...saga.RouterOption) *saga.Router {
	return saga.NewRouter("shipping-service", h.logger, opts...).
		RegisterFunc(events.PaymentOutcomeEvent, h.HandlePaymentOutcome).
		RegisterFunc(events.ShipmentRequestedEvent, h.HandleShipmentRequested)
}

// HandlePaymentOutcome handles payment.outcome. Failed payments never ship.
func (h *ShipmentEventHandlers) HandlePaymentOutcome(ctx context.Context, event *events.Event) error {
	var data events.PaymentOutcomeData
	if err := event.UnmarshalPayload(&data); err != nil || data.OrderID.IsZero() {
		h.consume(ctx, event, errors.Wrap(models.ErrInvalidInput, "malformed payment.outcome"))
		return nil
	}
	if !data.Succeeded() {
		logging.Debug(ctx, h.logger, "payment failed, nothing to ship",
			zap.String("order_id", data.OrderID.String()),
		)
		return nil
	}

	_, err := h.materializeShipment.Execute(ctx, &application.MaterializeShipmentCommand{
		OrderID:   data.OrderID,
		PaymentID: data.PaymentID,
	})
	return h.classify(ctx, event, err)
}

// HandleShipmentRequested handles shipment.requested
func (h *ShipmentEventHandlers) HandleShipmentRequested(ctx context.Context, event *events.Event) error {
	var data events.ShipmentRequestedData
	if err := event.UnmarshalPayload(&data); err != nil || data.OrderID.IsZero() {
		h.consume(ctx, event, errors.Wrap(models.ErrInvalidInput, "malformed shipment.requested"))
		return nil
	}

	_, err := h.materializeShipment.Execute(ctx, &application.MaterializeShipmentCommand{
		OrderID:      data.OrderID,
		PaymentID:    data.PaymentID,
		CustomerName: data.CustomerName,
	})
	return h.classify(ctx, event, err)
}

func (h *ShipmentEventHandlers) classify(ctx context.Context, event *events.Event, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, models.ErrInvalidInput) {
		h.consume(ctx, event, err)
		return nil
	}
	return err
}

func (h *ShipmentEventHandlers) consume(ctx context.Context, event *events.Event, err error) {
	logging.Error(ctx, h.logger, "event rejected",
		zap.String("event_id", event.ID.String()),
		zap.String("event_type", event.EventType),
		zap.String("order_id", event.Key.String()),
		zap.Error(err),
	)
}
