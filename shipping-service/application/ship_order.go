package application

import (
	"context"

	"github.com/orderflow/fulfillment/shared/events"
	"github.com/orderflow/fulfillment/shared/logging"
	"github.com/orderflow/fulfillment/shared/models"
	"github.com/orderflow/fulfillment/shipping-service/domain"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ShipOrderResult reports whether this call dispatched the shipment
type ShipOrderResult struct {
	Shipment *ShipmentResponse `json:"shipment"`
	Applied  bool              `json:"applied"`
}

// ShipOrder moves an order's shipment to IN_TRANSIT and publishes one
// shipment.outcome. Repeating it on a dispatched shipment changes nothing.
type ShipOrder struct {
	shipmentRepository domain.ShipmentRepository
	eventPublisher     events.Publisher
	logger             *zap.Logger
}

// NewShipOrder creates a new ShipOrder use case
func NewShipOrder(
	shipmentRepository domain.ShipmentRepository,
	eventPublisher events.Publisher,
	logger *zap.Logger,
) *ShipOrder {
	return &ShipOrder{
		shipmentRepository: shipmentRepository,
		eventPublisher:     eventPublisher,
		logger:             logger,
	}
}

// Execute executes the ship order use case
func (uc *ShipOrder) Execute(ctx context.Context, orderID string) (*ShipOrderResult, error) {
	id, err := models.NewID(orderID)
	if err != nil {
		return nil, errors.Wrapf(models.ErrInvalidInput, "invalid order ID %q", orderID)
	}

	shipment, err := uc.find(ctx, id)
	if err != nil {
		return nil, err
	}

	fields := []zap.Field{
		zap.String("order_id", id.String()),
		zap.String("shipment_id", shipment.ID.String()),
	}

	if shipment.IsInTransit() {
		logging.Warn(ctx, uc.logger, "shipment already in transit", fields...)
		return &ShipOrderResult{Shipment: toShipmentResponse(shipment)}, nil
	}

	if err := shipment.MarkInTransit(); err != nil {
		return nil, err
	}

	rows, err := uc.shipmentRepository.UpdateStatus(ctx, shipment, domain.ShipmentStatusPending)
	if err != nil {
		return nil, errors.Wrap(err, "failed to update shipment")
	}
	if rows == 0 {
		// A concurrent trigger dispatched it first.
		current, err := uc.find(ctx, id)
		if err != nil {
			return nil, err
		}
		logging.Warn(ctx, uc.logger, "shipment dispatched concurrently", fields...)
		return &ShipOrderResult{Shipment: toShipmentResponse(current)}, nil
	}

	if err := uc.eventPublisher.Publish(ctx, shipment.Events()...); err != nil {
		uc.reopen(ctx, shipment, fields)
		return nil, errors.Wrap(err, "failed to publish events")
	}
	shipment.ClearEvents()

	logging.Info(ctx, uc.logger, "shipment in transit",
		append(fields, zap.String("tracking_number", shipment.TrackingNumber))...)

	return &ShipOrderResult{Shipment: toShipmentResponse(shipment), Applied: true}, nil
}

// reopen undoes the dispatch after a failed publish so that a retried
// trigger emits the outcome. If that write fails too the outcome is lost.
func (uc *ShipOrder) reopen(ctx context.Context, shipment *domain.Shipment, fields []zap.Field) {
	shipment.Reopen()
	rows, err := uc.shipmentRepository.UpdateStatus(ctx, shipment, domain.ShipmentStatusInTransit)
	if err != nil || rows == 0 {
		logging.Error(ctx, uc.logger, "shipment dispatched but outcome not published",
			append(fields, zap.Int64("rows", rows), zap.Error(err))...)
		return
	}
	logging.Warn(ctx, uc.logger, "shipment reopened after publish failure", fields...)
}

func (uc *ShipOrder) find(ctx context.Context, orderID models.ID) (*domain.Shipment, error) {
	shipment, err := uc.shipmentRepository.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find shipment")
	}
	if shipment == nil {
		return nil, errors.Wrapf(models.ErrNotFound, "shipment for order %s", orderID)
	}
	return shipment, nil
}
