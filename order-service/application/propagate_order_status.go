package application

import (
	"context"

	"github.com/orderflow/fulfillment/order-service/domain"
	"github.com/orderflow/fulfillment/shared/events"
	"github.com/orderflow/fulfillment/shared/logging"
	"github.com/orderflow/fulfillment/shared/models"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// PropagateOrderStatus maps payment and shipment outcomes onto the order
// lifecycle. It keeps no state of its own.
//
// NotFound and IllegalTransition are logged and the event is consumed.
// StoreUnavailable and TransitionPending are returned so the bus redelivers.
type PropagateOrderStatus struct {
	transition      *TransitionOrderStatus
	orderRepository domain.OrderRepository
	eventPublisher  events.Publisher
	logger          *zap.Logger
}

// NewPropagateOrderStatus creates a new PropagateOrderStatus reactor
func NewPropagateOrderStatus(
	transition *TransitionOrderStatus,
	orderRepository domain.OrderRepository,
	eventPublisher events.Publisher,
	logger *zap.Logger,
) *PropagateOrderStatus {
	return &PropagateOrderStatus{
		transition:      transition,
		orderRepository: orderRepository,
		eventPublisher:  eventPublisher,
		logger:          logger,
	}
}

// OnPaymentOutcome moves the order to PAID or FAILED. A freshly paid order
// also gets a shipment.requested.
func (uc *PropagateOrderStatus) OnPaymentOutcome(ctx context.Context, data events.PaymentOutcomeData) error {
	target := domain.OrderStatusFailed
	if data.Succeeded() {
		target = domain.OrderStatusPaid
	}

	return uc.apply(ctx, data.OrderID, target, func(changed *events.Event) ([]*events.Event, error) {
		if target != domain.OrderStatusPaid {
			return []*events.Event{changed}, nil
		}

		order, err := uc.orderRepository.FindByID(ctx, data.OrderID)
		if err != nil {
			return nil, errors.Wrap(err, "failed to load paid order")
		}
		customer := ""
		if order != nil {
			customer = order.CustomerName
		}

		requested := events.NewEvent(data.OrderID, events.ShipmentRequestedEvent, events.ShipmentRequestedData{
			OrderID:      data.OrderID,
			PaymentID:    data.PaymentID,
			CustomerName: customer,
		}).WithCorrelationID(data.PaymentID)

		return []*events.Event{changed, requested}, nil
	})
}

// OnShipmentOutcome moves the order to SHIPPED
func (uc *PropagateOrderStatus) OnShipmentOutcome(ctx context.Context, data events.ShipmentOutcomeData) error {
	return uc.apply(ctx, data.OrderID, domain.OrderStatusShipped, func(changed *events.Event) ([]*events.Event, error) {
		changed.WithCorrelationID(data.ShipmentID)
		return []*events.Event{changed}, nil
	})
}

func (uc *PropagateOrderStatus) apply(
	ctx context.Context,
	orderID models.ID,
	target domain.OrderStatus,
	follow func(changed *events.Event) ([]*events.Event, error),
) error {
	fields := []zap.Field{
		zap.String("order_id", orderID.String()),
		zap.String("target_status", target.String()),
	}

	result, err := uc.transition.Execute(ctx, orderID, target)
	switch {
	case err == nil:
	case errors.Is(err, models.ErrNotFound), errors.Is(err, models.ErrIllegalTransition):
		logging.Error(ctx, uc.logger, "order status not propagated, event consumed", append(fields, zap.Error(err))...)
		return nil
	default:
		return errors.Wrap(err, "failed to transition order")
	}

	if !result.Applied {
		logging.Warn(ctx, uc.logger, "order already in target status, duplicate absorbed", fields...)
		return nil
	}

	logging.Info(ctx, uc.logger, "order status changed",
		append(fields, zap.String("previous_status", result.Previous.String()))...)

	changed := events.NewEvent(orderID, events.OrderStatusChangedEvent, events.OrderStatusChangedData{
		OrderID:        orderID,
		PreviousStatus: result.Previous.String(),
		Status:         result.Current.String(),
		ChangedAt:      models.Now(),
	})

	evts, err := follow(changed)
	if err != nil {
		return err
	}

	if err := uc.eventPublisher.Publish(ctx, evts...); err != nil {
		// The transition is stored. A redelivery is absorbed as a duplicate,
		// so these events are lost; see the outbox note in DESIGN.md.
		logging.Error(ctx, uc.logger, "failed to publish status change", append(fields, zap.Error(err))...)
		return errors.Wrap(err, "failed to publish events")
	}

	return nil
}
