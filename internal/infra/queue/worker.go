package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// LeadNotifier tells the sales team about a new lead.
type LeadNotifier interface {
	NotifyLeadCaptured(ctx context.Context, event LeadCapturedEvent) error
}

// Consumer is the part of *amqp.Channel the worker uses.
type Consumer interface {
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
}

var errMalformedMessage = errors.New("malformed lead event")

type Worker struct {
	Channel  Consumer
	Notifier LeadNotifier
	Logger   zerolog.Logger
}

func NewWorker(ch Consumer, notifier LeadNotifier, logger zerolog.Logger) *Worker {
	return &Worker{
		Channel:  ch,
		Notifier: notifier,
		Logger:   logger.With().Str("component", "lead_alert_worker").Logger(),
	}
}

// Start consumes queueName until ctx is done or the channel closes.
func (w *Worker) Start(ctx context.Context, queueName string) error {
	msgs, err := w.Channel.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("register consumer on %s: %w", queueName, err)
	}

	w.Logger.Info().Str("queue", queueName).Msg("worker waiting for lead events")
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return errors.New("rabbitmq delivery channel closed")
			}
			w.handle(ctx, d)
		}
	}
}

// handle acks on success. Anything else goes to the DLQ without requeue so a
// poison message cannot block the queue.
func (w *Worker) handle(ctx context.Context, d amqp.Delivery) {
	if err := w.processMessage(ctx, d.Body); err != nil {
		w.Logger.Error().Err(err).Str("message_id", d.MessageId).Msg("lead event dead-lettered")
		if nackErr := d.Nack(false, false); nackErr != nil {
			w.Logger.Error().Err(nackErr).Msg("nack failed")
		}
		return
	}
	if err := d.Ack(false); err != nil {
		w.Logger.Error().Err(err).Msg("ack failed")
	}
}

func (w *Worker) processMessage(ctx context.Context, body []byte) error {
	var event LeadCapturedEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("%w: %v", errMalformedMessage, err)
	}
	if event.SessionID == "" {
		return fmt.Errorf("%w: missing session_id", errMalformedMessage)
	}

	if err := w.Notifier.NotifyLeadCaptured(ctx, event); err != nil {
		return fmt.Errorf("notify lead %s: %w", event.SessionID, err)
	}
	w.Logger.Info().Str("session_id", event.SessionID).Str("funnel_type", event.FunnelType).Msg("lead alert sent")
	return nil
}
