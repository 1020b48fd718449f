package application

import (
	"context"

	"github.com/orderflow/fulfillment/order-service/domain"
	"github.com/orderflow/fulfillment/shared/events"
	"github.com/orderflow/fulfillment/shared/models"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// CreateOrderCommand represents the command to create an order
type CreateOrderCommand struct {
	CustomerName string          `json:"customer_name" validate:"required,max=255"`
	ProductName  string          `json:"product_name" validate:"required,max=255"`
	Quantity     int             `json:"quantity" validate:"required,gt=0"`
	UnitPrice    decimal.Decimal `json:"unit_price" validate:"required,gt=0"`
}

// CreateOrder stores a new order and announces it with order.created
type CreateOrder struct {
	orderRepository domain.OrderRepository
	eventPublisher  events.Publisher
}

// NewCreateOrder creates a new CreateOrder use case
func NewCreateOrder(
	orderRepository domain.OrderRepository,
	eventPublisher events.Publisher,
) *CreateOrder {
	return &CreateOrder{
		orderRepository: orderRepository,
		eventPublisher:  eventPublisher,
	}
}

// Execute executes the create order use case
func (uc *CreateOrder) Execute(ctx context.Context, cmd *CreateOrderCommand) (*OrderResponse, error) {
	if cmd == nil {
		return nil, errors.Wrap(models.ErrInvalidInput, "command is required")
	}

	order, err := domain.CreateOrder(domain.OrderDetails{
		CustomerName: cmd.CustomerName,
		ProductName:  cmd.ProductName,
		Quantity:     cmd.Quantity,
		UnitPrice:    cmd.UnitPrice,
	})
	if err != nil {
		return nil, errors.Wrap(err, "invalid command")
	}

	if err := uc.orderRepository.Save(ctx, order); err != nil {
		return nil, errors.Wrap(err, "failed to save order")
	}

	if err := uc.eventPublisher.Publish(ctx, order.Events()...); err != nil {
		return nil, errors.Wrap(err, "failed to publish events")
	}
	order.ClearEvents()

	return toOrderResponse(order), nil
}
