package infrastructure

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/orderflow/fulfillment/shared/events"
	"github.com/orderflow/fulfillment/shared/logging"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var _ events.Subscriber = (*KafkaEventSubscriber)(nil)

const (
	kafkaRetryBackoff    = 200 * time.Millisecond
	kafkaMaxRetryBackoff = 30 * time.Second
)

// KafkaEventSubscriber is one member of a Kafka consumer group.
//
// A message whose handler fails is retried in place, holding its partition,
// and its offset is only marked once handling succeeds. If the session ends
// first the message is redelivered after the rebalance.
type KafkaEventSubscriber struct {
	brokers []string
	groupID string
	logger  *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewKafkaEventSubscriber(brokers []string, groupID string, logger *zap.Logger) *KafkaEventSubscriber {
	return &KafkaEventSubscriber{
		brokers: brokers,
		groupID: groupID,
		logger:  logger,
	}
}

func (s *KafkaEventSubscriber) Subscribe(ctx context.Context, handler events.EventHandler, topics ...events.Topic) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return errors.New("subscriber is already running")
	}
	if len(topics) == 0 {
		topics = events.AllTopics()
	}

	config := sarama.NewConfig()
	config.Version = sarama.V3_0_0_0
	config.Consumer.Return.Errors = true
	config.Consumer.Offsets.Initial = sarama.OffsetOldest
	config.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}

	group, err := sarama.NewConsumerGroup(s.brokers, s.groupID, config)
	if err != nil {
		return errors.Wrap(err, "error creating consumer group")
	}

	names := make([]string, len(topics))
	for i, t := range topics {
		names[i] = t.String()
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.run(ctx, group, names, &kafkaClaimHandler{handler: handler, logger: s.logger})

	return nil
}

func (s *KafkaEventSubscriber) run(ctx context.Context, group sarama.ConsumerGroup, topics []string, handler sarama.ConsumerGroupHandler) {
	defer close(s.done)
	defer func() {
		if err := group.Close(); err != nil {
			logging.Error(ctx, s.logger, "error closing consumer group", zap.Error(err))
		}
	}()

	go func() {
		for err := range group.Errors() {
			logging.Error(ctx, s.logger, "consumer group error", zap.Error(err))
		}
	}()

	for {
		if err := group.Consume(ctx, topics, handler); err != nil {
			logging.Error(ctx, s.logger, "Error consuming in consumer loop", zap.Error(err))
		}

		if ctx.Err() != nil {
			logging.Info(ctx, s.logger, "Context cancelled, shutting down consumer", zap.String("group", s.groupID))
			return
		}
	}
}

func (s *KafkaEventSubscriber) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel == nil {
		return nil
	}
	s.cancel()
	<-s.done
	s.cancel = nil
	return nil
}

type kafkaClaimHandler struct {
	handler events.EventHandler
	logger  *zap.Logger
}

func (h *kafkaClaimHandler) Setup(_ sarama.ConsumerGroupSession) error   { return nil }
func (h *kafkaClaimHandler) Cleanup(_ sarama.ConsumerGroupSession) error { return nil }

func (h *kafkaClaimHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		if !h.process(session.Context(), msg) {
			// Session is over, the unmarked message will be redelivered.
			return nil
		}
		session.MarkMessage(msg, "")
	}

	return nil
}

// process hands msg to the handler until it succeeds. It returns false when
// ctx ends before that.
func (h *kafkaClaimHandler) process(ctx context.Context, msg *sarama.ConsumerMessage) bool {
	event, err := decodeEvent(msg.Value)
	if err != nil {
		logging.Error(ctx, h.logger, "skipping malformed kafka message",
			zap.String("topic", msg.Topic),
			zap.Int32("partition", msg.Partition),
			zap.Int64("offset", msg.Offset),
			zap.Error(err),
		)
		return true
	}
	event.Metadata.Set(KafkaPartitionKey, strconv.Itoa(int(msg.Partition)))
	event.Metadata.Set(KafkaOffsetKey, strconv.FormatInt(msg.Offset, 10))

	ctx, span := h.extractTracing(ctx, msg)
	defer span.End()

	backoff := kafkaRetryBackoff
	for attempt := 1; ; attempt++ {
		err := h.handler.Handle(ctx, event)
		if err == nil {
			return true
		}

		logging.Error(ctx, h.logger, "Failed to process message",
			zap.String("topic", msg.Topic),
			zap.Int32("partition", msg.Partition),
			zap.Int64("offset", msg.Offset),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)

		sleep(ctx, backoff)
		if ctx.Err() != nil {
			return false
		}
		if backoff *= 2; backoff > kafkaMaxRetryBackoff {
			backoff = kafkaMaxRetryBackoff
		}
	}
}

func (h *kafkaClaimHandler) extractTracing(ctx context.Context, msg *sarama.ConsumerMessage) (context.Context, trace.Span) {
	carrier := propagation.MapCarrier{}
	for _, header := range msg.Headers {
		carrier[string(header.Key)] = string(header.Value)
	}

	ctx = otel.GetTextMapPropagator().Extract(ctx, carrier)

	return otel.Tracer("shared/infrastructure/kafka").Start(ctx, "kafka_process "+msg.Topic,
		trace.WithSpanKind(trace.SpanKindConsumer),
	)
}
