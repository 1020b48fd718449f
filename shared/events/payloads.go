package events

import (
	"time"

	"github.com/orderflow/fulfillment/shared/models"
	"github.com/shopspring/decimal"
)

// Saga event types. Each one is published on the topic of the same name.
const (
	OrderCreatedEvent       = "order.created"
	PaymentRequestedEvent   = "payment.requested"
	PaymentOutcomeEvent     = "payment.outcome"
	ShipmentRequestedEvent  = "shipment.requested"
	ShipmentOutcomeEvent    = "shipment.outcome"
	OrderStatusChangedEvent = "order.status.changed"
)

// Outcome statuses carried by outcome payloads
const (
	PaymentCompleted = "COMPLETED"
	PaymentFailed    = "FAILED"

	ShipmentPending   = "PENDING"
	ShipmentInTransit = "IN_TRANSIT"
)

// OrderCreatedData is emitted once per order, right after it is stored.
type OrderCreatedData struct {
	OrderID      models.ID       `json:"order_id"`
	CustomerName string          `json:"customer_name"`
	ProductName  string          `json:"product_name"`
	Quantity     int             `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	CreatedAt    time.Time       `json:"created_at"`
}

// PaymentRequestedData is the payment-submission trigger.
type PaymentRequestedData struct {
	OrderID       models.ID       `json:"order_id"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"payment_method,omitempty"`
}

type PaymentOutcomeData struct {
	PaymentID models.ID       `json:"payment_id"`
	OrderID   models.ID       `json:"order_id"`
	Amount    decimal.Decimal `json:"amount"`
	Status    string          `json:"status"`
	Reason    string          `json:"reason,omitempty"`
	SettledAt time.Time       `json:"settled_at"`
}

func (d PaymentOutcomeData) Succeeded() bool {
	return d.Status == PaymentCompleted
}

type ShipmentRequestedData struct {
	OrderID      models.ID `json:"order_id"`
	PaymentID    models.ID `json:"payment_id"`
	CustomerName string    `json:"customer_name"`
}

type ShipmentOutcomeData struct {
	ShipmentID     models.ID `json:"shipment_id"`
	OrderID        models.ID `json:"order_id"`
	Status         string    `json:"status"`
	TrackingNumber string    `json:"tracking_number"`
	Carrier        string    `json:"carrier"`
}

// OrderStatusChangedData announces an applied order transition.
type OrderStatusChangedData struct {
	OrderID        models.ID `json:"order_id"`
	PreviousStatus string    `json:"previous_status"`
	Status         string    `json:"status"`
	ChangedAt      time.Time `json:"changed_at"`
}

// AllTopics lists every saga topic.
func AllTopics() []Topic {
	return []Topic{
		OrderCreatedEvent,
		PaymentRequestedEvent,
		PaymentOutcomeEvent,
		ShipmentRequestedEvent,
		ShipmentOutcomeEvent,
		OrderStatusChangedEvent,
	}
}
