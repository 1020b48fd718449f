package application

import (
	"context"

	"github.com/orderflow/fulfillment/shared/logging"
	"github.com/orderflow/fulfillment/shared/models"
	"github.com/orderflow/fulfillment/shipping-service/domain"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// MaterializeShipmentCommand identifies the paid order to ship
type MaterializeShipmentCommand struct {
	OrderID      models.ID
	PaymentID    models.ID
	CustomerName string
}

// MaterializeShipment creates the PENDING shipment of a paid order. Both a
// completed payment.outcome and a shipment.requested trigger it, so it is
// idempotent: an order has at most one shipment.
type MaterializeShipment struct {
	shipmentRepository domain.ShipmentRepository
	logger             *zap.Logger
}

// NewMaterializeShipment creates a new MaterializeShipment use case
func NewMaterializeShipment(shipmentRepository domain.ShipmentRepository, logger *zap.Logger) *MaterializeShipment {
	return &MaterializeShipment{
		shipmentRepository: shipmentRepository,
		logger:             logger,
	}
}

// Execute returns the order's shipment, creating it when missing
func (uc *MaterializeShipment) Execute(ctx context.Context, cmd *MaterializeShipmentCommand) (*ShipmentResponse, error) {
	if cmd == nil || cmd.OrderID.IsZero() {
		return nil, errors.Wrap(models.ErrInvalidInput, "order ID is required")
	}

	existing, err := uc.shipmentRepository.FindByOrderID(ctx, cmd.OrderID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find shipment")
	}
	if existing != nil {
		logging.Debug(ctx, uc.logger, "shipment already materialized",
			zap.String("order_id", cmd.OrderID.String()),
			zap.String("shipment_id", existing.ID.String()),
		)
		return toShipmentResponse(existing), nil
	}

	shipment, err := domain.CreateShipment(cmd.OrderID, cmd.PaymentID, cmd.CustomerName)
	if err != nil {
		return nil, err
	}

	if err := uc.shipmentRepository.Create(ctx, shipment); err != nil {
		if !errors.Is(err, domain.ErrShipmentAlreadyExists) {
			return nil, errors.Wrap(err, "failed to create shipment")
		}
		existing, err := uc.shipmentRepository.FindByOrderID(ctx, cmd.OrderID)
		if err != nil {
			return nil, errors.Wrap(err, "failed to reload shipment")
		}
		if existing == nil {
			return nil, errors.Wrapf(models.ErrNotFound, "shipment for order %s", cmd.OrderID)
		}
		return toShipmentResponse(existing), nil
	}

	logging.Info(ctx, uc.logger, "shipment materialized",
		zap.String("order_id", cmd.OrderID.String()),
		zap.String("shipment_id", shipment.ID.String()),
		zap.String("tracking_number", shipment.TrackingNumber),
	)
	return toShipmentResponse(shipment), nil
}
