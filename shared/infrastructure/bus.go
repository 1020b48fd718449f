package infrastructure

import (
	"context"

	"github.com/orderflow/fulfillment/shared/config"
	"github.com/orderflow/fulfillment/shared/events"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Bus is the publish/subscribe handle injected into a service
type Bus struct {
	Publisher  events.Publisher
	Subscriber events.Subscriber
	closers    []func() error
}

// NewBus builds the transport selected by cfg.Bus.Driver. The memory driver
// joins shared when given, so several services in one process see each
// other's events.
func NewBus(ctx context.Context, cfg *config.Config, logger *zap.Logger, shared *MemoryBus) (*Bus, error) {
	group := cfg.Bus.ConsumerGroup

	switch cfg.Bus.Driver {
	case config.BusSNS:
		publisher, err := NewSNSPublisherAdapter(ctx, cfg.AWS.Region, cfg.AWS.SNSTopicArn, logger)
		if err != nil {
			return nil, err
		}
		subscriber := NewSQSSubscriberAdapter(cfg.AWS.Region, cfg.AWS.SQSQueueURL, logger)
		return &Bus{
			Publisher:  NewBreakerPublisher(group+"-sns", publisher, logger),
			Subscriber: subscriber,
			closers:    []func() error{subscriber.Close, publisher.Close},
		}, nil

	case config.BusKafka:
		publisher, err := NewKafkaEventPublisher(cfg.Kafka.Brokers, cfg.Kafka.ClientID, logger)
		if err != nil {
			return nil, err
		}
		subscriber := NewKafkaEventSubscriber(cfg.Kafka.Brokers, group, logger)
		return &Bus{
			Publisher:  NewBreakerPublisher(group+"-kafka", publisher, logger),
			Subscriber: subscriber,
			closers:    []func() error{subscriber.Close, publisher.Close},
		}, nil

	case config.BusMemory:
		bus := shared
		if bus == nil {
			bus = NewMemoryBus(logger)
			runCtx, cancel := context.WithCancel(context.Background())
			go func() { _ = bus.Run(runCtx) }()
			subscriber := bus.Subscriber(group)
			return &Bus{
				Publisher:  bus,
				Subscriber: subscriber,
				closers:    []func() error{subscriber.Close, func() error { cancel(); return nil }},
			}, nil
		}
		subscriber := bus.Subscriber(group)
		return &Bus{
			Publisher:  bus,
			Subscriber: subscriber,
			closers:    []func() error{subscriber.Close},
		}, nil
	}

	return nil, errors.Errorf("unknown bus driver %q", cfg.Bus.Driver)
}

// Close stops consuming, then releases the publisher
func (b *Bus) Close() error {
	var errs []error
	for _, c := range b.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errors.Errorf("closing bus: %v", errs)
	}
	return nil
}
