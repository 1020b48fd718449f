package domain

import (
	"context"
	"time"

	"github.com/orderflow/fulfillment/shared/events"
	"github.com/orderflow/fulfillment/shared/models"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrPaymentAlreadyExists is returned by Create when the order already
	// has a payment.
	ErrPaymentAlreadyExists = errors.New("payment already exists for order")
	// ErrPaymentAlreadyProcessed means the payment left PENDING before this
	// call could settle it.
	ErrPaymentAlreadyProcessed = errors.New("payment already processed")
)

// AmountMismatchReason is the failure reason of a payment whose submitted
// amount differs from the order total
const AmountMismatchReason = "amount mismatch"

// PaymentStatus represents the status of a payment
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
)

func (s PaymentStatus) String() string {
	return string(s)
}

// Payment aggregate root. PENDING is the only status from which it may
// change; that is what makes duplicate submissions harmless.
type Payment struct {
	ID            models.ID
	OrderID       models.ID
	CustomerName  string
	Amount        decimal.Decimal
	Status        PaymentStatus
	PaymentMethod PaymentMethodType
	FailureReason string
	Timestamps    models.Timestamps
	SettledAt     *time.Time

	events []*events.Event
}

// CreatePayment factory method. The payment starts PENDING with the order
// total as the amount due.
func CreatePayment(orderID models.ID, customerName string, amount decimal.Decimal) (*Payment, error) {
	if orderID.IsZero() {
		return nil, errors.Wrap(models.ErrInvalidInput, "order ID is required")
	}
	if !amount.IsPositive() {
		return nil, errors.Wrap(models.ErrInvalidInput, "amount must be positive")
	}

	return &Payment{
		ID:           models.GenerateUUID(),
		OrderID:      orderID,
		CustomerName: customerName,
		Amount:       amount,
		Status:       PaymentStatusPending,
		Timestamps:   models.NewTimestamps(),
	}, nil
}

// IsPending reports whether the payment can still be settled
func (p *Payment) IsPending() bool {
	return p.Status == PaymentStatusPending
}

// IsAmountMatching compares exactly. 100 and 100.00 match, 99.99 does not.
func (p *Payment) IsAmountMatching(amount decimal.Decimal) bool {
	return p.Amount.Equal(amount)
}

// Complete marks payment as completed
func (p *Payment) Complete(method PaymentMethodType) error {
	return p.settle(PaymentStatusCompleted, method, "")
}

// Fail marks payment as failed
func (p *Payment) Fail(method PaymentMethodType, reason string) error {
	return p.settle(PaymentStatusFailed, method, reason)
}

func (p *Payment) settle(status PaymentStatus, method PaymentMethodType, reason string) error {
	if !p.IsPending() {
		return errors.Wrapf(ErrPaymentAlreadyProcessed, "payment %s is %s", p.ID, p.Status)
	}

	now := models.Now()
	p.Status = status
	p.PaymentMethod = method
	p.FailureReason = reason
	p.SettledAt = &now
	p.Timestamps.UpdatedAt = now

	outcome := events.PaymentCompleted
	if status == PaymentStatusFailed {
		outcome = events.PaymentFailed
	}

	p.recordEvent(events.NewEvent(p.OrderID, events.PaymentOutcomeEvent, events.PaymentOutcomeData{
		PaymentID: p.ID,
		OrderID:   p.OrderID,
		Amount:    p.Amount,
		Status:    outcome,
		Reason:    reason,
		SettledAt: now,
	}).WithCorrelationID(p.ID))
	return nil
}

// Reopen reverts a settle whose outcome never reached the bus, so a
// redelivered submission settles it again. It returns the status it left.
func (p *Payment) Reopen() PaymentStatus {
	previous := p.Status
	p.Status = PaymentStatusPending
	p.PaymentMethod = ""
	p.FailureReason = ""
	p.SettledAt = nil
	p.Timestamps.UpdatedAt = models.Now()
	p.ClearEvents()
	return previous
}

// Events returns domain events
func (p *Payment) Events() []*events.Event {
	return p.events
}

// ClearEvents clears domain events
func (p *Payment) ClearEvents() {
	p.events = make([]*events.Event, 0)
}

func (p *Payment) recordEvent(event *events.Event) {
	p.events = append(p.events, event)
}

// PaymentRepository interface
type PaymentRepository interface {
	// Create inserts a PENDING payment. A second payment for the same order
	// fails with ErrPaymentAlreadyExists.
	Create(ctx context.Context, payment *Payment) error
	// Settle writes the terminal status only while the stored payment is
	// still PENDING, else ErrPaymentAlreadyProcessed.
	Settle(ctx context.Context, payment *Payment) error
	// Reopen writes payment back as PENDING only while the stored status is
	// still from, else ErrPaymentAlreadyProcessed.
	Reopen(ctx context.Context, payment *Payment, from PaymentStatus) error
	// FindByID and FindByOrderID return nil, nil when absent.
	FindByID(ctx context.Context, id models.ID) (*Payment, error)
	FindByOrderID(ctx context.Context, orderID models.ID) (*Payment, error)
	FindAll(ctx context.Context) ([]*Payment, error)
}
