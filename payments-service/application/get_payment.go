package application

import (
	"context"

	"github.com/orderflow/fulfillment/payments-service/domain"
	"github.com/orderflow/fulfillment/shared/models"
	"github.com/pkg/errors"
)

// GetPayment use case
type GetPayment struct {
	paymentRepository domain.PaymentRepository
}

// NewGetPayment creates a new GetPayment use case
func NewGetPayment(paymentRepository domain.PaymentRepository) *GetPayment {
	return &GetPayment{
		paymentRepository: paymentRepository,
	}
}

// Execute returns the payment of an order
func (uc *GetPayment) Execute(ctx context.Context, orderID string) (*PaymentResponse, error) {
	id, err := models.NewID(orderID)
	if err != nil {
		return nil, errors.Wrapf(models.ErrInvalidInput, "invalid order ID %q", orderID)
	}

	payment, err := uc.paymentRepository.FindByOrderID(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find payment")
	}
	if payment == nil {
		return nil, errors.Wrapf(models.ErrNotFound, "payment for order %s", id)
	}

	return toPaymentResponse(payment), nil
}

// ListPayments use case
type ListPayments struct {
	paymentRepository domain.PaymentRepository
}

// NewListPayments creates a new ListPayments use case
func NewListPayments(paymentRepository domain.PaymentRepository) *ListPayments {
	return &ListPayments{paymentRepository: paymentRepository}
}

// Execute returns every payment
func (uc *ListPayments) Execute(ctx context.Context) ([]*PaymentResponse, error) {
	payments, err := uc.paymentRepository.FindAll(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list payments")
	}

	out := make([]*PaymentResponse, len(payments))
	for i, p := range payments {
		out[i] = toPaymentResponse(p)
	}
	return out, nil
}
