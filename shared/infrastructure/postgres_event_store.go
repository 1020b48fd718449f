package infrastructure

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/orderflow/fulfillment/shared/events"
	"github.com/orderflow/fulfillment/shared/models"
	"github.com/pkg/errors"
)

// PostgresEventStore implements events.EventStore on the event_journal table
type PostgresEventStore struct {
	db *sqlx.DB
}

// NewPostgresEventStore creates a new PostgresEventStore
func NewPostgresEventStore(db *sqlx.DB) *PostgresEventStore {
	return &PostgresEventStore{db: db}
}

// postgresEvent represents event in database
type postgresEvent struct {
	ID            string    `db:"id"`
	Key           string    `db:"event_key"`
	EventType     string    `db:"event_type"`
	Version       string    `db:"version"`
	Data          []byte    `db:"data"`
	Metadata      []byte    `db:"metadata"`
	Timestamp     time.Time `db:"timestamp"`
	CorrelationID string    `db:"correlation_id"`
}

// Append journals events. An event id seen before is skipped so redelivered
// events are recorded once.
func (es *PostgresEventStore) Append(ctx context.Context, evts ...*events.Event) error {
	if len(evts) == 0 {
		return nil
	}

	tx, err := es.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Unavailable(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	query := `
		INSERT INTO event_journal (
			id, event_key, event_type, version, data, metadata,
			timestamp, correlation_id
		) VALUES (
			:id, :event_key, :event_type, :version, :data, :metadata,
			:timestamp, :correlation_id
		)
		ON CONFLICT (id) DO NOTHING`

	for _, event := range evts {
		pgEvent, err := es.toPostgres(event)
		if err != nil {
			return errors.Wrap(err, "failed to convert event")
		}

		if _, err := tx.NamedExecContext(ctx, query, pgEvent); err != nil {
			return models.Unavailable(err, "failed to insert event")
		}
	}

	if err := tx.Commit(); err != nil {
		return models.Unavailable(err, "failed to commit events")
	}
	return nil
}

// GetEvents retrieves the journal of one order, oldest first
func (es *PostgresEventStore) GetEvents(ctx context.Context, key models.ID) ([]*events.Event, error) {
	query := `
		SELECT id, event_key, event_type, version, data, metadata,
			   timestamp, correlation_id
		FROM event_journal
		WHERE event_key = $1
		ORDER BY timestamp ASC, seq ASC`

	var pgEvents []postgresEvent
	err := es.db.SelectContext(ctx, &pgEvents, query, key.String())
	if err != nil {
		return nil, models.Unavailable(err, "failed to get events")
	}

	result := make([]*events.Event, len(pgEvents))
	for i := range pgEvents {
		event, err := es.toDomain(&pgEvents[i])
		if err != nil {
			return nil, err
		}
		result[i] = event
	}

	return result, nil
}

// toPostgres converts domain event to postgres model
func (es *PostgresEventStore) toPostgres(event *events.Event) (*postgresEvent, error) {
	data, err := event.MarshalPayload()
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal event data")
	}

	metadata, err := json.Marshal(event.Metadata)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal event metadata")
	}

	return &postgresEvent{
		ID:            event.ID.String(),
		Key:           event.Key.String(),
		EventType:     event.EventType,
		Version:       event.Version,
		Data:          data,
		Metadata:      metadata,
		Timestamp:     event.Timestamp,
		CorrelationID: event.CorrelationID.String(),
	}, nil
}

// toDomain converts postgres model to domain event. The payload stays raw
// JSON; readers decode it with UnmarshalPayload.
func (es *PostgresEventStore) toDomain(pgEvent *postgresEvent) (*events.Event, error) {
	metadata := make(events.Metadata)
	if len(pgEvent.Metadata) > 0 {
		if err := json.Unmarshal(pgEvent.Metadata, &metadata); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal event metadata")
		}
	}

	topic, err := events.NewTopic(pgEvent.EventType)
	if err != nil {
		return nil, errors.Wrapf(err, "event %s", pgEvent.ID)
	}

	return &events.Event{
		ID:            models.ID(pgEvent.ID),
		Key:           models.ID(pgEvent.Key),
		Topic:         topic,
		EventType:     pgEvent.EventType,
		Version:       pgEvent.Version,
		Data:          json.RawMessage(pgEvent.Data),
		Metadata:      metadata,
		Timestamp:     pgEvent.Timestamp,
		CorrelationID: models.ID(pgEvent.CorrelationID),
	}, nil
}
