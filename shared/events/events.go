package events

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"time"

	"github.com/orderflow/fulfillment/shared/models"
)

var (
	ErrInvalidTopic    = errors.New("invalid topic")
	ErrInvalidPayload  = errors.New("invalid payload")
	ErrInvalidReceiver = errors.New("receiver should be a pointer")
)

// SchemaVersion is stamped on every payload this build emits.
const SchemaVersion = "1.0"

// Topic names an event stream on the bus
type Topic string

func NewTopic(topic string) (Topic, error) {
	if topic == "" {
		return "", ErrInvalidTopic
	}
	return Topic(topic), nil
}

func (t Topic) String() string {
	return string(t)
}

// Metadata represents event metadata
type Metadata map[string]string

func (m Metadata) Get(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

func (m Metadata) Set(key string, value string) {
	if m == nil {
		return
	}
	m[key] = value
}

func (m Metadata) Clone() Metadata {
	clone := Metadata{}
	for k, v := range m {
		clone[k] = v
	}
	return clone
}

// Event is the envelope every saga message travels in.
//
// Key is the partition key. It is always the order id so that all events of
// one order's causal chain land on the same partition / message group.
type Event struct {
	ID            models.ID   `json:"id"`
	Key           models.ID   `json:"key"`
	Topic         Topic       `json:"topic"`
	EventType     string      `json:"event_type"`
	Version       string      `json:"version"`
	Data          interface{} `json:"data"`
	Metadata      Metadata    `json:"metadata"`
	Timestamp     time.Time   `json:"timestamp"`
	CorrelationID models.ID   `json:"correlation_id,omitempty"`
}

// Publisher publishes events
type Publisher interface {
	Publish(ctx context.Context, events ...*Event) error
}

// PublisherFunc adapts a function to Publisher
type PublisherFunc func(ctx context.Context, events ...*Event) error

func (f PublisherFunc) Publish(ctx context.Context, events ...*Event) error {
	return f(ctx, events...)
}

// Subscriber delivers events of the given topics to handler. Every
// Subscriber is one member of one consumer group.
type Subscriber interface {
	Subscribe(ctx context.Context, handler EventHandler, topics ...Topic) error
	Close() error
}

// EventHandler handles domain events. Returning an error leaves the event
// unconsumed so the bus redelivers it.
type EventHandler interface {
	Handle(ctx context.Context, event *Event) error
}

// EventHandlerFunc adapts a function to EventHandler
type EventHandlerFunc func(ctx context.Context, event *Event) error

func (f EventHandlerFunc) Handle(ctx context.Context, event *Event) error {
	return f(ctx, event)
}

// EventStore keeps the per-order journal of events
type EventStore interface {
	Append(ctx context.Context, events ...*Event) error
	GetEvents(ctx context.Context, key models.ID) ([]*Event, error)
}

// NewEvent creates a new event keyed by the given order id
func NewEvent(key models.ID, eventType string, data interface{}) *Event {
	topic, _ := NewTopic(eventType) // event types are package constants
	return &Event{
		ID:        models.GenerateUUID(),
		Key:       key,
		Topic:     topic,
		EventType: eventType,
		Version:   SchemaVersion,
		Data:      data,
		Metadata:  make(Metadata),
		Timestamp: models.Now(),
	}
}

// WithCorrelationID sets correlation ID
func (e *Event) WithCorrelationID(correlationID models.ID) *Event {
	e.CorrelationID = correlationID
	return e
}

// WithMetadata adds metadata
func (e *Event) WithMetadata(key string, value string) *Event {
	if e.Metadata == nil {
		e.Metadata = make(Metadata)
	}
	e.Metadata.Set(key, value)
	return e
}

// ToJSON converts event to JSON
func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// FromJSON creates event from JSON. The payload is kept as raw JSON until a
// consumer decodes it with UnmarshalPayload.
func FromJSON(data []byte) (*Event, error) {
	type wireEvent Event
	var raw struct {
		wireEvent
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	event := Event(raw.wireEvent)
	event.Data = raw.Data
	if event.Topic == "" {
		return nil, ErrInvalidTopic
	}
	if len(raw.Data) == 0 || string(raw.Data) == "null" {
		event.Data = nil
	}
	if event.Metadata == nil {
		event.Metadata = make(Metadata)
	}
	return &event, nil
}

// MarshalPayload marshals the event payload
func (e *Event) MarshalPayload() (json.RawMessage, error) {
	if b, ok := e.Data.([]byte); ok {
		return b, nil
	}

	if b, ok := e.Data.(json.RawMessage); ok {
		return b, nil
	}

	return json.Marshal(e.Data)
}

// UnmarshalPayload decodes the payload into v. Typed in-process payloads are
// assigned directly, anything that came off the wire goes through JSON.
func (e *Event) UnmarshalPayload(v interface{}) error {
	vValue := reflect.ValueOf(v)
	if vValue.Kind() != reflect.Ptr || vValue.IsNil() {
		return ErrInvalidReceiver
	}

	if e.Data == nil {
		return ErrInvalidPayload
	}

	vValue = vValue.Elem()
	payloadValue := reflect.ValueOf(e.Data)
	if vValue.Type() == payloadValue.Type() {
		vValue.Set(payloadValue)
		return nil
	}
	if payloadValue.Kind() == reflect.Ptr && !payloadValue.IsNil() && vValue.Type() == payloadValue.Elem().Type() {
		vValue.Set(payloadValue.Elem())
		return nil
	}

	raw, err := e.MarshalPayload()
	if err != nil {
		return err
	}

	return json.Unmarshal(raw, v)
}

// Clone creates a copy of the event
func (e *Event) Clone() *Event {
	return &Event{
		ID:            e.ID,
		Key:           e.Key,
		Topic:         e.Topic,
		EventType:     e.EventType,
		Version:       e.Version,
		Data:          e.Data,
		Metadata:      e.Metadata.Clone(),
		Timestamp:     e.Timestamp,
		CorrelationID: e.CorrelationID,
	}
}
