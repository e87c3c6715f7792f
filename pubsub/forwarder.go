package pubsub

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/components/forwarder"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/jmoiron/sqlx"

	"boxoffice/pkg"
)

// NewForwarder moves messages published transactionally into the Postgres
// outbox onto the Redis stream work queue.
func NewForwarder(
	db *sqlx.DB,
	redisPublisher message.Publisher,
	watermillLogger watermill.LoggerAdapter,
) (*forwarder.Forwarder, error) {
	outboxSubscriber, err := pkg.NewOutboxSubscriber(db, watermillLogger)
	if err != nil {
		return nil, fmt.Errorf("could not create outbox subscriber: %w", err)
	}

	fwd, err := forwarder.NewForwarder(outboxSubscriber, redisPublisher, watermillLogger, forwarder.Config{
		ForwarderTopic: pkg.OutboxTopic,
		Middlewares:    Middlewares(watermillLogger),
	})
	if err != nil {
		return nil, fmt.Errorf("could not create outbox forwarder: %w", err)
	}

	return fwd, nil
}
