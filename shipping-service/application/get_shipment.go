package application

import (
	"context"

	"github.com/orderflow/fulfillment/shared/models"
	"github.com/orderflow/fulfillment/shipping-service/domain"
	"github.com/pkg/errors"
)

// GetShipment use case
type GetShipment struct {
	shipmentRepository domain.ShipmentRepository
}

func NewGetShipment(shipmentRepository domain.ShipmentRepository) *GetShipment {
	return &GetShipment{shipmentRepository: shipmentRepository}
}

// Execute returns the shipment of an order
func (uc *GetShipment) Execute(ctx context.Context, orderID string) (*ShipmentResponse, error) {
	id, err := models.NewID(orderID)
	if err != nil {
		return nil, errors.Wrapf(models.ErrInvalidInput, "invalid order ID %q", orderID)
	}

	shipment, err := uc.shipmentRepository.FindByOrderID(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find shipment")
	}
	if shipment == nil {
		return nil, errors.Wrapf(models.ErrNotFound, "shipment for order %s", id)
	}
	return toShipmentResponse(shipment), nil
}

// ListShipments use case
type ListShipments struct {
	shipmentRepository domain.ShipmentRepository
}

func NewListShipments(shipmentRepository domain.ShipmentRepository) *ListShipments {
	return &ListShipments{shipmentRepository: shipmentRepository}
}

// Execute returns every shipment
func (uc *ListShipments) Execute(ctx context.Context) ([]*ShipmentResponse, error) {
	shipments, err := uc.shipmentRepository.FindAll(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list shipments")
	}

	out := make([]*ShipmentResponse, len(shipments))
	for i, s := range shipments {
		out[i] = toShipmentResponse(s)
	}
	return out, nil
}
