package handlers

import (
	"context"

	"github.com/orderflow/fulfillment/order-service/application"
	"github.com/orderflow/fulfillment/shared/events"
	"github.com/orderflow/fulfillment/shared/logging"
	"github.com/orderflow/fulfillment/shared/saga"
	"go.uber.org/zap"
)

// OrderEventHandlers feeds payment and shipment outcomes into the status
// propagation reactor
type OrderEventHandlers struct {
	propagate *application.PropagateOrderStatus
	logger    *zap.Logger
}

// NewOrderEventHandlers creates new order event handlers
func NewOrderEventHandlers(propagate *application.PropagateOrderStatus, logger *zap.Logger) *OrderEventHandlers {
	return &OrderEventHandlers{
		propagate: propagate,
		logger:    logger,
	}
}

// Router builds the order service dispatch table
func (h *OrderEventHandlers) Router(opts ...saga.RouterOption) *saga.Router {
	return saga.NewRouter("order-service", h.logger, opts...).
		RegisterFunc(events.PaymentOutcomeEvent, h.HandlePaymentOutcome).
		RegisterFunc(events.ShipmentOutcomeEvent, h.HandleShipmentOutcome)
}

// HandlePaymentOutcome handles payment.outcome
func (h *OrderEventHandlers) HandlePaymentOutcome(ctx context.Context, event *events.Event) error {
	var data events.PaymentOutcomeData
	if err := event.UnmarshalPayload(&data); err != nil || data.OrderID.IsZero() {
		h.malformed(ctx, event, err)
		return nil
	}
	return h.propagate.OnPaymentOutcome(ctx, data)
}

// HandleShipmentOutcome handles shipment.outcome
func (h *OrderEventHandlers) HandleShipmentOutcome(ctx context.Context, event *events.Event) error {
	var data events.ShipmentOutcomeData
	if err := event.UnmarshalPayload(&data); err != nil || data.OrderID.IsZero() {
		h.malformed(ctx, event, err)
		return nil
	}
	return h.propagate.OnShipmentOutcome(ctx, data)
}

// malformed drops an event no redelivery could ever decode
func (h *OrderEventHandlers) malformed(ctx context.Context, event *events.Event, err error) {
	logging.Error(ctx, h.logger, "malformed event consumed",
		zap.String("event_id", event.ID.String()),
		zap.String("event_type", event.EventType),
		zap.Error(err),
	)
}
