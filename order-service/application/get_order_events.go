package application

import (
	"context"
	"encoding/json"
	"time"

	"github.com/orderflow/fulfillment/order-service/domain"
	"github.com/orderflow/fulfillment/shared/events"
	"github.com/orderflow/fulfillment/shared/models"
	"github.com/pkg/errors"
)

// EventResponse is one journal entry of an order
type EventResponse struct {
	ID            string          `json:"id"`
	EventType     string          `json:"event_type"`
	Version       string          `json:"version"`
	Data          json.RawMessage `json:"data"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id,omitempty"`
}

// GetOrderEvents returns the journal of everything the order service emitted
// or consumed for one order
type GetOrderEvents struct {
	orderRepository domain.OrderRepository
	eventStore      events.EventStore
}

// NewGetOrderEvents creates a new GetOrderEvents use case
func NewGetOrderEvents(orderRepository domain.OrderRepository, eventStore events.EventStore) *GetOrderEvents {
	return &GetOrderEvents{
		orderRepository: orderRepository,
		eventStore:      eventStore,
	}
}

// Execute returns the events in journal order
func (uc *GetOrderEvents) Execute(ctx context.Context, orderID string) ([]*EventResponse, error) {
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

	evts, err := uc.eventStore.GetEvents(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load order events")
	}

	out := make([]*EventResponse, 0, len(evts))
	for _, e := range evts {
		data, err := e.MarshalPayload()
		if err != nil {
			return nil, errors.Wrapf(err, "failed to encode event %s", e.ID)
		}
		out = append(out, &EventResponse{
			ID:            e.ID.String(),
			EventType:     e.EventType,
			Version:       e.Version,
			Data:          data,
			Timestamp:     e.Timestamp,
			CorrelationID: e.CorrelationID.String(),
		})
	}
	return out, nil
}
