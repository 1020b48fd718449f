package infrastructure

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/orderflow/fulfillment/shared/events"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var _ events.Subscriber = (*SQSSubscriberAdapter)(nil)

// SQSSubscriberAdapter adapts SQSEventSubscriber to events.Subscriber. The
// queue is the consumer group: every service reads its own queue subscribed
// to the shared SNS topic.
type SQSSubscriberAdapter struct {
	region        string
	queueURL      string
	logger        *zap.Logger
	opts          []SQSSubscriberOption
	sqsSubscriber *SQSEventSubscriber
}

// NewSQSSubscriberAdapter creates a new SQS subscriber adapter
func NewSQSSubscriberAdapter(region, queueURL string, logger *zap.Logger, opts ...SQSSubscriberOption) *SQSSubscriberAdapter {
	return &SQSSubscriberAdapter{
		region:   region,
		queueURL: queueURL,
		logger:   logger,
		opts:     opts,
	}
}

// Subscribe implements events.Subscriber interface
func (s *SQSSubscriberAdapter) Subscribe(ctx context.Context, handler events.EventHandler, topics ...events.Topic) error {
	if s.sqsSubscriber != nil {
		return errors.New("subscriber is already running")
	}

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(s.region))
	if err != nil {
		return errors.Wrap(err, "failed to load AWS config")
	}

	s.sqsSubscriber = NewSQSEventSubscriber(
		sqs.NewFromConfig(cfg),
		s.queueURL,
		FilterTopics(handler, topics...),
		s.logger,
		s.opts...,
	)

	if err := s.sqsSubscriber.Start(ctx); err != nil {
		return errors.Wrap(err, "failed to start SQS subscriber")
	}

	return nil
}

// Close stops the subscriber
func (s *SQSSubscriberAdapter) Close() error {
	if s.sqsSubscriber == nil {
		return nil
	}

	if err := s.sqsSubscriber.Stop(context.Background()); err != nil {
		return errors.Wrap(err, "failed to stop SQS subscriber")
	}

	s.sqsSubscriber = nil
	return nil
}

// FilterTopics drops events outside topics before they reach handler. A
// dropped event counts as handled. No topics means no filtering.
func FilterTopics(handler events.EventHandler, topics ...events.Topic) events.EventHandler {
	if len(topics) == 0 {
		return handler
	}

	wanted := make(map[events.Topic]struct{}, len(topics))
	for _, t := range topics {
		wanted[t] = struct{}{}
	}

	return events.EventHandlerFunc(func(ctx context.Context, event *events.Event) error {
		if _, ok := wanted[event.Topic]; !ok {
			return nil
		}
		return handler.Handle(ctx, event)
	})
}
