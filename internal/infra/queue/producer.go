package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/conversn-io/seniorsimple-sub006/internal/entity"
)

// Publisher is the part of *amqp.Channel the producer uses.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// RabbitMQProducer is the "eventQueue" destination: it publishes a
// LeadCapturedEvent and returns the message id as the result id.
type RabbitMQProducer struct {
	Ch  Publisher
	Now func() time.Time
}

func NewProducer(ch Publisher) *RabbitMQProducer {
	return &RabbitMQProducer{Ch: ch, Now: time.Now}
}

func (p *RabbitMQProducer) Name() entity.Destination {
	return entity.DestinationEventQueue
}

func (p *RabbitMQProducer) Deliver(ctx context.Context, lead *entity.LeadSubmission) (string, error) {
	eventID := uuid.New().String()
	now := p.Now()

	body, err := json.Marshal(NewLeadCapturedEvent(eventID, lead, now))
	if err != nil {
		return "", fmt.Errorf("%w: encode lead event: %v", entity.ErrRejected, err)
	}

	err = p.Ch.PublishWithContext(ctx,
		ExchangeName,
		RoutingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:   "application/json",
			Body:          body,
			DeliveryMode:  amqp.Persistent,
			MessageId:     eventID,
			CorrelationId: lead.SessionID,
			Type:          EventTypeLeadCaptured,
			Timestamp:     now,
		},
	)
	if err != nil {
		return "", fmt.Errorf("publish lead event: %w", err)
	}
	return eventID, nil
}
