package infrastructure

import (
	"github.com/orderflow/fulfillment/shared/events"
	"github.com/pkg/errors"
)

// Metadata keys set by the transports on inbound events. They describe one
// delivery and are never forwarded.
const (
	SQSMessageIDKey     = "sqs_message_id"
	SQSReceiptHandleKey = "sqs_receipt_handle"
	KafkaPartitionKey   = "kafka_partition"
	KafkaOffsetKey      = "kafka_offset"
)

func isTransportKey(k string) bool {
	switch k {
	case SQSMessageIDKey, SQSReceiptHandleKey, KafkaPartitionKey, KafkaOffsetKey:
		return true
	}
	return false
}

// encodeEvent renders the wire form shared by every transport
func encodeEvent(event *events.Event) ([]byte, error) {
	payload, err := event.MarshalPayload()
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal payload")
	}

	wire := event.Clone()
	wire.Data = payload
	for k := range wire.Metadata {
		if isTransportKey(k) {
			delete(wire.Metadata, k)
		}
	}

	body, err := wire.ToJSON()
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal message")
	}
	return body, nil
}

func decodeEvent(body []byte) (*events.Event, error) {
	event, err := events.FromJSON(body)
	if err != nil {
		return nil, errors.Wrap(err, "malformed event")
	}
	return event, nil
}
