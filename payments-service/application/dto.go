package application

import (
	"time"

	"github.com/orderflow/fulfillment/payments-service/domain"
	"github.com/shopspring/decimal"
)

// PaymentResponse is the external view of a payment
type PaymentResponse struct {
	PaymentID     string          `json:"payment_id"`
	OrderID       string          `json:"order_id"`
	CustomerName  string          `json:"customer_name"`
	Amount        decimal.Decimal `json:"amount"`
	Status        string          `json:"status"`
	PaymentMethod string          `json:"payment_method,omitempty"`
	FailureReason string          `json:"failure_reason,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	SettledAt     *time.Time      `json:"settled_at,omitempty"`
}

func toPaymentResponse(payment *domain.Payment) *PaymentResponse {
	return &PaymentResponse{
		PaymentID:     payment.ID.String(),
		OrderID:       payment.OrderID.String(),
		CustomerName:  payment.CustomerName,
		Amount:        payment.Amount,
		Status:        payment.Status.String(),
		PaymentMethod: payment.PaymentMethod.String(),
		FailureReason: payment.FailureReason,
		CreatedAt:     payment.Timestamps.CreatedAt,
		SettledAt:     payment.SettledAt,
	}
}
