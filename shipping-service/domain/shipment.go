package domain

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/orderflow/fulfillment/shared/events"
	"github.com/orderflow/fulfillment/shared/models"
	"github.com/pkg/errors"
)

var (
	// ErrShipmentAlreadyExists is returned by Create when the order already
	// has a shipment.
	ErrShipmentAlreadyExists = errors.New("shipment already exists for order")
	// ErrShipmentAlreadyInTransit means the shipment left PENDING.
	ErrShipmentAlreadyInTransit = errors.New("shipment already in transit")
)

// Shipping policy
const (
	DefaultCarrier          = "DHL"
	EstimatedDeliveryOffset = 72 * time.Hour
	trackingNumberPrefix    = "TRK-"
	trackingNumberLength    = 12
)

// ShipmentStatus represents the status of a shipment
type ShipmentStatus string

const (
	ShipmentStatusPending   ShipmentStatus = "PENDING"
	ShipmentStatusInTransit ShipmentStatus = "IN_TRANSIT"
)

func (s ShipmentStatus) String() string {
	return string(s)
}

// Shipment aggregate root
type Shipment struct {
	ID                    models.ID
	OrderID               models.ID
	PaymentID             models.ID
	CustomerName          string
	Carrier               string
	TrackingNumber        string
	EstimatedDeliveryDate time.Time
	Status                ShipmentStatus
	Timestamps            models.Timestamps

	events []*events.Event
}

// NewTrackingNumber returns "TRK-" followed by 12 upper-case hex characters
func NewTrackingNumber() string {
	hex := strings.ReplaceAll(uuid.New().String(), "-", "")
	return trackingNumberPrefix + strings.ToUpper(hex[:trackingNumberLength])
}

// CreateShipment factory method. The shipment starts PENDING with the
// default carrier and a delivery estimate fixed at creation.
func CreateShipment(orderID, paymentID models.ID, customerName string) (*Shipment, error) {
	if orderID.IsZero() {
		return nil, errors.Wrap(models.ErrInvalidInput, "order ID is required")
	}

	timestamps := models.NewTimestamps()
	return &Shipment{
		ID:                    models.GenerateUUID(),
		OrderID:               orderID,
		PaymentID:             paymentID,
		CustomerName:          customerName,
		Carrier:               DefaultCarrier,
		TrackingNumber:        NewTrackingNumber(),
		EstimatedDeliveryDate: timestamps.CreatedAt.Add(EstimatedDeliveryOffset),
		Status:                ShipmentStatusPending,
		Timestamps:            timestamps,
	}, nil
}

// IsInTransit reports whether the shipment has been dispatched
func (s *Shipment) IsInTransit() bool {
	return s.Status == ShipmentStatusInTransit
}

// MarkInTransit dispatches a PENDING shipment. The tracking number assigned
// at creation is kept.
func (s *Shipment) MarkInTransit() error {
	if s.Status != ShipmentStatusPending {
		return errors.Wrapf(ErrShipmentAlreadyInTransit, "shipment %s is %s", s.ID, s.Status)
	}

	s.Status = ShipmentStatusInTransit
	s.Timestamps = s.Timestamps.Update()

	s.recordEvent(events.NewEvent(s.OrderID, events.ShipmentOutcomeEvent, events.ShipmentOutcomeData{
		ShipmentID:     s.ID,
		OrderID:        s.OrderID,
		Status:         events.ShipmentInTransit,
		TrackingNumber: s.TrackingNumber,
		Carrier:        s.Carrier,
	}).WithCorrelationID(s.ID))
	return nil
}

// Reopen returns a dispatched shipment to PENDING when its outcome never
// reached the bus
func (s *Shipment) Reopen() {
	s.Status = ShipmentStatusPending
	s.Timestamps = s.Timestamps.Update()
	s.ClearEvents()
}

// Events returns domain events
func (s *Shipment) Events() []*events.Event {
	return s.events
}

// ClearEvents clears domain events
func (s *Shipment) ClearEvents() {
	s.events = make([]*events.Event, 0)
}

func (s *Shipment) recordEvent(event *events.Event) {
	s.events = append(s.events, event)
}

// ShipmentRepository interface
type ShipmentRepository interface {
	// Create inserts a PENDING shipment, ErrShipmentAlreadyExists when the
	// order already has one.
	Create(ctx context.Context, shipment *Shipment) error
	// UpdateStatus writes the shipment's status only while the stored one
	// equals from, and reports the rows changed.
	UpdateStatus(ctx context.Context, shipment *Shipment, from ShipmentStatus) (int64, error)
	// FindByOrderID returns nil, nil when absent.
	FindByOrderID(ctx context.Context, orderID models.ID) (*Shipment, error)
	FindAll(ctx context.Context) ([]*Shipment, error)
}
