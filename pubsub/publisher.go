package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"boxoffice/entity"
)

// Work-queue topics consumed by out-of-scope downstream processors.
const (
	TopicReservations = "booking-queue"
	TopicPayments     = "payment-queue"
)

// NewQueueMessage wraps a JSON payload carrying an `action` field into a
// watermill message, mirroring the action in metadata for consumers that
// route without unmarshalling.
func NewQueueMessage(payload interface{ QueueAction() string }) (*message.Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("could not marshal queue message: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.Metadata.Set("action", payload.QueueAction())

	return msg, nil
}

// Publisher dispatches fire-and-forget messages to the work queue.
type Publisher struct {
	pub message.Publisher
}

func NewPublisher(pub message.Publisher) *Publisher {
	return &Publisher{pub: pub}
}

func (p *Publisher) Publish(ctx context.Context, topic string, payload interface{ QueueAction() string }) error {
	msg, err := NewQueueMessage(payload)
	if err != nil {
		return err
	}
	msg.SetContext(ctx)

	return p.pub.Publish(topic, msg)
}

func (p *Publisher) PublishPayment(ctx context.Context, payment entity.PaymentMessage) error {
	return p.Publish(ctx, TopicPayments, payment)
}
