package infrastructure

import (
	"context"
	"sort"
	"sync"

	"github.com/orderflow/fulfillment/order-service/domain"
	"github.com/orderflow/fulfillment/shared/models"
	"github.com/pkg/errors"
)

var _ domain.OrderRepository = (*MemoryOrderRepository)(nil)

// MemoryOrderRepository keeps orders in process memory. UpdateStatus holds
// the lock across compare and set, the same atomicity the SQL update gives.
type MemoryOrderRepository struct {
	mu     sync.RWMutex
	orders map[models.ID]domain.Order
}

func NewMemoryOrderRepository() *MemoryOrderRepository {
	return &MemoryOrderRepository{orders: make(map[models.ID]domain.Order)}
}

func (r *MemoryOrderRepository) Save(_ context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.orders[order.ID]; ok {
		return errors.Errorf("order %s already exists", order.ID)
	}
	stored := *order
	stored.ClearEvents()
	r.orders[order.ID] = stored
	return nil
}

func (r *MemoryOrderRepository) FindByID(_ context.Context, id models.ID) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, nil
	}
	return &order, nil
}

func (r *MemoryOrderRepository) FindAll(_ context.Context) ([]*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Order, 0, len(r.orders))
	for id := range r.orders {
		order := r.orders[id]
		out = append(out, &order)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamps.CreatedAt.After(out[j].Timestamps.CreatedAt)
	})
	return out, nil
}

func (r *MemoryOrderRepository) UpdateStatus(_ context.Context, id models.ID, to domain.OrderStatus, from []domain.OrderStatus) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return 0, nil
	}
	for _, s := range from {
		if order.Status == s {
			order.Status = to
			order.Timestamps = order.Timestamps.Update()
			r.orders[id] = order
			return 1, nil
		}
	}
	return 0, nil
}
