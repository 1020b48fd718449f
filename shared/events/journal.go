package events

import (
	"context"

	"github.com/pkg/errors"
)

// JournalingPublisher appends events to a store before handing them to the
// wrapped publisher.
type JournalingPublisher struct {
	store EventStore
	next  Publisher
}

func NewJournalingPublisher(store EventStore, next Publisher) *JournalingPublisher {
	return &JournalingPublisher{store: store, next: next}
}

func (p *JournalingPublisher) Publish(ctx context.Context, evts ...*Event) error {
	if len(evts) == 0 {
		return nil
	}
	if err := p.store.Append(ctx, evts...); err != nil {
		return errors.Wrap(err, "failed to journal events")
	}
	return p.next.Publish(ctx, evts...)
}
