package infrastructure

import (
	"context"
	"sort"
	"sync"

	"github.com/orderflow/fulfillment/payments-service/domain"
	"github.com/orderflow/fulfillment/shared/models"
	"github.com/pkg/errors"
)

var _ domain.PaymentRepository = (*MemoryPaymentRepository)(nil)

// MemoryPaymentRepository keeps payments in process memory, indexed by
// order so that Create enforces one payment per order.
type MemoryPaymentRepository struct {
	mu      sync.RWMutex
	byID    map[models.ID]domain.Payment
	byOrder map[models.ID]models.ID
}

func NewMemoryPaymentRepository() *MemoryPaymentRepository {
	return &MemoryPaymentRepository{
		byID:    make(map[models.ID]domain.Payment),
		byOrder: make(map[models.ID]models.ID),
	}
}

func (r *MemoryPaymentRepository) Create(_ context.Context, payment *domain.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byOrder[payment.OrderID]; ok {
		return errors.Wrapf(domain.ErrPaymentAlreadyExists, "order %s", payment.OrderID)
	}
	stored := *payment
	stored.ClearEvents()
	r.byID[payment.ID] = stored
	r.byOrder[payment.OrderID] = payment.ID
	return nil
}

func (r *MemoryPaymentRepository) Settle(_ context.Context, payment *domain.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.byID[payment.ID]
	if !ok || !current.IsPending() {
		return errors.Wrapf(domain.ErrPaymentAlreadyProcessed, "payment %s", payment.ID)
	}
	stored := *payment
	stored.ClearEvents()
	r.byID[payment.ID] = stored
	return nil
}

func (r *MemoryPaymentRepository) Reopen(_ context.Context, payment *domain.Payment, from domain.PaymentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.byID[payment.ID]
	if !ok || current.Status != from {
		return errors.Wrapf(domain.ErrPaymentAlreadyProcessed, "payment %s", payment.ID)
	}
	stored := *payment
	stored.ClearEvents()
	r.byID[payment.ID] = stored
	return nil
}

func (r *MemoryPaymentRepository) FindByID(_ context.Context, id models.ID) (*domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	payment, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	return &payment, nil
}

func (r *MemoryPaymentRepository) FindByOrderID(ctx context.Context, orderID models.ID) (*domain.Payment, error) {
	r.mu.RLock()
	id, ok := r.byOrder[orderID]
	r.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return r.FindByID(ctx, id)
}

func (r *MemoryPaymentRepository) FindAll(_ context.Context) ([]*domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Payment, 0, len(r.byID))
	for id := range r.byID {
		payment := r.byID[id]
		out = append(out, &payment)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamps.CreatedAt.After(out[j].Timestamps.CreatedAt)
	})
	return out, nil
}
