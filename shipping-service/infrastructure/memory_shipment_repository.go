package infrastructure

import (
	"context"
	"sort"
	"sync"

	"github.com/orderflow/fulfillment/shared/models"
	"github.com/orderflow/fulfillment/shipping-service/domain"
	"github.com/pkg/errors"
)

var _ domain.ShipmentRepository = (*MemoryShipmentRepository)(nil)

// MemoryShipmentRepository keeps shipments in process memory, keyed by
// order id
type MemoryShipmentRepository struct {
	mu        sync.RWMutex
	shipments map[models.ID]domain.Shipment
}

func NewMemoryShipmentRepository() *MemoryShipmentRepository {
	return &MemoryShipmentRepository{shipments: make(map[models.ID]domain.Shipment)}
}

func (r *MemoryShipmentRepository) Create(_ context.Context, shipment *domain.Shipment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.shipments[shipment.OrderID]; ok {
		return errors.Wrapf(domain.ErrShipmentAlreadyExists, "order %s", shipment.OrderID)
	}
	stored := *shipment
	stored.ClearEvents()
	r.shipments[shipment.OrderID] = stored
	return nil
}

func (r *MemoryShipmentRepository) UpdateStatus(_ context.Context, shipment *domain.Shipment, from domain.ShipmentStatus) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.shipments[shipment.OrderID]
	if !ok || current.ID != shipment.ID || current.Status != from {
		return 0, nil
	}
	current.Status = shipment.Status
	current.TrackingNumber = shipment.TrackingNumber
	current.Timestamps.UpdatedAt = shipment.Timestamps.UpdatedAt
	r.shipments[shipment.OrderID] = current
	return 1, nil
}

func (r *MemoryShipmentRepository) FindByOrderID(_ context.Context, orderID models.ID) (*domain.Shipment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	shipment, ok := r.shipments[orderID]
	if !ok {
		return nil, nil
	}
	return &shipment, nil
}

func (r *MemoryShipmentRepository) FindAll(_ context.Context) ([]*domain.Shipment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Shipment, 0, len(r.shipments))
	for id := range r.shipments {
		shipment := r.shipments[id]
		out = append(out, &shipment)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamps.CreatedAt.After(out[j].Timestamps.CreatedAt)
	})
	return out, nil
}
