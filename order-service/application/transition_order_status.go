package application

import (
	"context"

	"github.com/orderflow/fulfillment/order-service/domain"
	"github.com/orderflow/fulfillment/shared/models"
	"github.com/pkg/errors"
)

// TransitionResult describes the outcome of a status transition
type TransitionResult struct {
	// Applied is false when the order was already in the target status.
	Applied  bool
	Previous domain.OrderStatus
	Current  domain.OrderStatus
}

// TransitionOrderStatus moves an order along its lifecycle.
//
// The lifecycle edge is enforced by the conditional write itself: the update
// only matches while the order sits in a predecessor of the target. When it
// matches nothing, the order is read back to tell a duplicate apart from an
// early or an illegal transition.
type TransitionOrderStatus struct {
	orderRepository domain.OrderRepository
}

// NewTransitionOrderStatus creates a new TransitionOrderStatus use case
func NewTransitionOrderStatus(orderRepository domain.OrderRepository) *TransitionOrderStatus {
	return &TransitionOrderStatus{orderRepository: orderRepository}
}

// Execute applies id -> target. Errors:
//   - models.ErrNotFound when the order does not exist
//   - models.ErrTransitionPending when the order has not reached a
//     predecessor of target yet
//   - models.ErrIllegalTransition when target can no longer be reached
//   - models.ErrStoreUnavailable when the store fails
func (uc *TransitionOrderStatus) Execute(ctx context.Context, id models.ID, target domain.OrderStatus) (*TransitionResult, error) {
	if !target.IsValid() {
		return nil, errors.Wrapf(models.ErrInvalidInput, "unknown order status %q", target)
	}

	from := domain.Predecessors(target)
	if len(from) > 0 {
		rows, err := uc.orderRepository.UpdateStatus(ctx, id, target, from)
		if err != nil {
			return nil, errors.Wrap(err, "failed to update order status")
		}
		if rows > 0 {
			return &TransitionResult{Applied: true, Previous: from[0], Current: target}, nil
		}
	}

	order, err := uc.orderRepository.FindByID(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find order")
	}
	if order == nil {
		return nil, errors.Wrapf(models.ErrNotFound, "order %s", id)
	}

	switch {
	case order.Status == target:
		return &TransitionResult{Applied: false, Previous: target, Current: target}, nil
	case order.Status.CanReach(target):
		return nil, errors.Wrapf(models.ErrTransitionPending, "order %s is %s, not yet ready for %s", id, order.Status, target)
	default:
		return nil, errors.Wrapf(models.ErrIllegalTransition, "order %s cannot go from %s to %s", id, order.Status, target)
	}
}
