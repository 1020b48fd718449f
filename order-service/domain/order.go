package domain

import (
	"context"
	"strings"

	"github.com/orderflow/fulfillment/shared/events"
	"github.com/orderflow/fulfillment/shared/models"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// OrderDetails is what a customer submits
type OrderDetails struct {
	CustomerName string
	ProductName  string
	Quantity     int
	UnitPrice    decimal.Decimal
}

// Order aggregate root. Only the order service writes it, and after creation
// only its status changes.
type Order struct {
	ID           models.ID
	CustomerName string
	ProductName  string
	Quantity     int
	UnitPrice    decimal.Decimal
	TotalAmount  decimal.Decimal
	Status       OrderStatus
	Timestamps   models.Timestamps

	events []*events.Event
}

// CreateOrder factory method
func CreateOrder(details OrderDetails) (*Order, error) {
	if err := validateDetails(details); err != nil {
		return nil, err
	}

	order := &Order{
		ID:           models.GenerateUUID(),
		CustomerName: strings.TrimSpace(details.CustomerName),
		ProductName:  strings.TrimSpace(details.ProductName),
		Quantity:     details.Quantity,
		UnitPrice:    details.UnitPrice,
		TotalAmount:  details.UnitPrice.Mul(decimal.NewFromInt(int64(details.Quantity))),
		Status:       OrderStatusCreated,
		Timestamps:   models.NewTimestamps(),
	}

	order.recordEvent(events.NewEvent(order.ID, events.OrderCreatedEvent, events.OrderCreatedData{
		OrderID:      order.ID,
		CustomerName: order.CustomerName,
		ProductName:  order.ProductName,
		Quantity:     order.Quantity,
		UnitPrice:    order.UnitPrice,
		TotalAmount:  order.TotalAmount,
		CreatedAt:    order.Timestamps.CreatedAt,
	}))

	return order, nil
}

func validateDetails(details OrderDetails) error {
	if strings.TrimSpace(details.CustomerName) == "" {
		return errors.Wrap(models.ErrInvalidInput, "customer name is required")
	}
	if strings.TrimSpace(details.ProductName) == "" {
		return errors.Wrap(models.ErrInvalidInput, "product name is required")
	}
	if details.Quantity <= 0 {
		return errors.Wrap(models.ErrInvalidInput, "quantity must be positive")
	}
	if !details.UnitPrice.IsPositive() {
		return errors.Wrap(models.ErrInvalidInput, "unit price must be positive")
	}
	return nil
}

// Events returns domain events
func (o *Order) Events() []*events.Event {
	return o.events
}

// ClearEvents clears domain events
func (o *Order) ClearEvents() {
	o.events = make([]*events.Event, 0)
}

func (o *Order) recordEvent(event *events.Event) {
	o.events = append(o.events, event)
}

// OrderRepository interface
type OrderRepository interface {
	Save(ctx context.Context, order *Order) error
	// FindByID returns nil, nil when the order does not exist.
	FindByID(ctx context.Context, id models.ID) (*Order, error)
	FindAll(ctx context.Context) ([]*Order, error)
	// UpdateStatus sets the status of order id to `to` only if its current
	// status is one of `from`, as a single atomic write. It returns the
	// number of rows changed.
	UpdateStatus(ctx context.Context, id models.ID, to OrderStatus, from []OrderStatus) (int64, error)
}
