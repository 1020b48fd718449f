package application

import (
	"time"

	"github.com/orderflow/fulfillment/order-service/domain"
	"github.com/shopspring/decimal"
)

// OrderResponse is the external view of an order
type OrderResponse struct {
	ID           string          `json:"id"`
	CustomerName string          `json:"customer_name"`
	ProductName  string          `json:"product_name"`
	Quantity     int             `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	Status       string          `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func toOrderResponse(order *domain.Order) *OrderResponse {
	return &OrderResponse{
		ID:           order.ID.String(),
		CustomerName: order.CustomerName,
		ProductName:  order.ProductName,
		Quantity:     order.Quantity,
		UnitPrice:    order.UnitPrice,
		TotalAmount:  order.TotalAmount,
		Status:       order.Status.String(),
		CreatedAt:    order.Timestamps.CreatedAt,
		UpdatedAt:    order.Timestamps.UpdatedAt,
	}
}
