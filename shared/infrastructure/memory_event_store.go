package infrastructure

import (
	"context"
	"sync"

	"github.com/orderflow/fulfillment/shared/events"
	"github.com/orderflow/fulfillment/shared/models"
)

// MemoryEventStore is an in-process events.EventStore
type MemoryEventStore struct {
	mu    sync.RWMutex
	seen  map[models.ID]struct{}
	byKey map[models.ID][]*events.Event
}

func NewMemoryEventStore() *MemoryEventStore {
	return &MemoryEventStore{
		seen:  make(map[models.ID]struct{}),
		byKey: make(map[models.ID][]*events.Event),
	}
}

func (s *MemoryEventStore) Append(_ context.Context, evts ...*events.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range evts {
		if _, ok := s.seen[e.ID]; ok {
			continue
		}
		s.seen[e.ID] = struct{}{}
		s.byKey[e.Key] = append(s.byKey[e.Key], e.Clone())
	}
	return nil
}

func (s *MemoryEventStore) GetEvents(_ context.Context, key models.ID) ([]*events.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.byKey[key]
	out := make([]*events.Event, len(stored))
	for i, e := range stored {
		out[i] = e.Clone()
	}
	return out, nil
}
