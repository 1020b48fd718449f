package infrastructure

import (
	"context"
	"testing"

	"github.com/orderflow/fulfillment/shared/events"
	"github.com/orderflow/fulfillment/shared/models"
	"github.com/pkg/errors"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBreakerPublisher_OpensAfterRepeatedFailures(t *testing.T) {
	ctx := context.Background()
	calls := 0
	failing := events.PublisherFunc(func(context.Context, ...*events.Event) error {
		calls++
		return errors.New("broker unreachable")
	})
	publisher := NewBreakerPublisher("test", failing, zap.NewNop())
	event := events.NewEvent("o-1", events.OrderCreatedEvent, nil)

	for i := 0; i < 5; i++ {
		require.Error(t, publisher.Publish(ctx, event))
	}
	assert.Equal(t, gobreaker.StateOpen, publisher.State())

	err := publisher.Publish(ctx, event)

	assert.ErrorIs(t, err, models.ErrStoreUnavailable)
	assert.True(t, models.IsTransient(err))
	assert.Equal(t, 5, calls)
}

func TestBreakerPublisher_PassesThrough(t *testing.T) {
	ctx := context.Background()
	var published []*events.Event
	ok := events.PublisherFunc(func(_ context.Context, evts ...*events.Event) error {
		published = append(published, evts...)
		return nil
	})
	publisher := NewBreakerPublisher("test", ok, zap.NewNop())

	require.NoError(t, publisher.Publish(ctx, events.NewEvent("o-1", events.OrderCreatedEvent, nil)))

	assert.Len(t, published, 1)
	assert.Equal(t, gobreaker.StateClosed, publisher.State())
}
