package infrastructure

import (
	"context"

	"github.com/IBM/sarama"
	"github.com/orderflow/fulfillment/shared/events"
	"github.com/orderflow/fulfillment/shared/logging"
	"github.com/orderflow/fulfillment/shared/models"
	"github.com/orderflow/fulfillment/shared/telemetry"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
)

var _ events.Publisher = (*KafkaEventPublisher)(nil)

// KafkaEventPublisher writes every event to the Kafka topic named after it.
// The message key is the event key, so the hash partitioner keeps one order
// on one partition.
type KafkaEventPublisher struct {
	producer sarama.SyncProducer
	logger   *zap.Logger
}

// NewKafkaProducerConfig is the producer configuration the publisher expects
func NewKafkaProducerConfig(clientID string) *sarama.Config {
	config := sarama.NewConfig()
	config.ClientID = clientID
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Partitioner = sarama.NewHashPartitioner
	config.Producer.Idempotent = true
	config.Net.MaxOpenRequests = 1
	config.Version = sarama.V3_0_0_0
	return config
}

func NewKafkaEventPublisher(brokers []string, clientID string, logger *zap.Logger) (*KafkaEventPublisher, error) {
	p, err := sarama.NewSyncProducer(brokers, NewKafkaProducerConfig(clientID))
	if err != nil {
		return nil, errors.Wrap(err, "error creating producer")
	}
	return NewKafkaEventPublisherWithProducer(p, logger), nil
}

func NewKafkaEventPublisherWithProducer(producer sarama.SyncProducer, logger *zap.Logger) *KafkaEventPublisher {
	return &KafkaEventPublisher{producer: producer, logger: logger}
}

func (p *KafkaEventPublisher) Publish(ctx context.Context, evts ...*events.Event) error {
	if len(evts) == 0 {
		return nil
	}

	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)

	msgs := make([]*sarama.ProducerMessage, len(evts))
	for i, event := range evts {
		body, err := encodeEvent(event)
		if err != nil {
			return err
		}

		headers := make([]sarama.RecordHeader, 0, len(carrier)+1)
		for k, v := range carrier {
			headers = append(headers, sarama.RecordHeader{Key: []byte(k), Value: []byte(v)})
		}
		headers = append(headers, sarama.RecordHeader{Key: []byte("event_id"), Value: []byte(event.ID)})

		msgs[i] = &sarama.ProducerMessage{
			Topic:   event.Topic.String(),
			Key:     sarama.StringEncoder(event.Key),
			Value:   sarama.ByteEncoder(body),
			Headers: headers,
		}
	}

	if err := p.producer.SendMessages(msgs); err != nil {
		logging.Error(ctx, p.logger, "kafka publish failed", zap.Int("events", len(evts)), zap.Error(err))
		return models.Unavailable(err, "error sending messages")
	}

	for _, msg := range msgs {
		logging.Debug(ctx, p.logger, "event sent",
			zap.String("topic", msg.Topic),
			zap.Int32("partition", msg.Partition),
			zap.Int64("offset", msg.Offset),
		)
		telemetry.RecordCounter(ctx, "bus_events_published_total", "Events handed to the bus", 1,
			attribute.String("topic", msg.Topic),
			attribute.String("status", "published"),
		)
	}
	return nil
}

func (p *KafkaEventPublisher) Close() error {
	return p.producer.Close()
}
