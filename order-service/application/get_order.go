package application

import (
	"context"

	"github.com/orderflow/fulfillment/order-service/domain"
	"github.com/orderflow/fulfillment/shared/models"
	"github.com/pkg/errors"
)

// GetOrder use case
type GetOrder struct {
	orderRepository domain.OrderRepository
}

// NewGetOrder creates a new GetOrder use case
func NewGetOrder(orderRepository domain.OrderRepository) *GetOrder {
	return &GetOrder{orderRepository: orderRepository}
}

// Execute returns the order or ErrNotFound
func (uc *GetOrder) Execute(ctx context.Context, orderID string) (*OrderResponse, error) {
	id, err := models.NewID(orderID)
	if err != nil {
		return nil, errors.Wrapf(models.ErrInvalidInput, "invalid order ID %q", orderID)
	}

	order, err := uc.orderRepository.FindByID(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find order")
	}
	if order == nil {
		return nil, errors.Wrapf(models.ErrNotFound, "order %s", id)
	}

	return toOrderResponse(order), nil
}

// ListOrders use case
type ListOrders struct {
	orderRepository domain.OrderRepository
}

// NewListOrders creates a new ListOrders use case
func NewListOrders(orderRepository domain.OrderRepository) *ListOrders {
	return &ListOrders{orderRepository: orderRepository}
}

// Execute returns all orders, newest first
func (uc *ListOrders) Execute(ctx context.Context) ([]*OrderResponse, error) {
	orders, err := uc.orderRepository.FindAll(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list orders")
	}

	out := make([]*OrderResponse, len(orders))
	for i, order := range orders {
		out[i] = toOrderResponse(order)
	}
	return out, nil
}
