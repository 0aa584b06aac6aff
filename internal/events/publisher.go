// Package events publishes integration events to the message broker.
// Publishing is always best-effort: a broker outage never fails the
// user-visible request.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	TypeMessageProcessed      = "message.processed"
	TypeLimitExceeded         = "limit.exceeded"
	TypeTierChanged           = "tier.changed"
	TypeCommerceEventReceived = "commerce.event_received"
)

// Event is the integration event envelope.
type Event struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	OccurredAt time.Time      `json:"occurred_at"`
	Payload    map[string]any `json:"payload"`
}

type Publisher struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
	log   *zap.Logger
}

// NewPublisher connects to the broker and declares the queue topology:
// main queue dead-letters to the DLQ, the retry queue dead-letters back to
// the main queue after its TTL.
func NewPublisher(url, queue string, log *zap.Logger) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	mainQ := queue
	retryQ := queue + ".retry"
	dlqQ := queue + ".dlq"

	if _, err := ch.QueueDeclare(dlqQ, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	if _, err := ch.QueueDeclare(retryQ, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": mainQ,
	}); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	if _, err := ch.QueueDeclare(mainQ, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": dlqQ,
	}); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	return &Publisher{conn: conn, ch: ch, queue: queue, log: log.Named("events.publisher")}, nil
}

// Publish enqueues the event. A nil publisher or broker failure only logs.
func (p *Publisher) Publish(ctx context.Context, event Event) {
	if p == nil || p.ch == nil {
		return
	}

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	body, err := json.Marshal(event)
	if err != nil {
		p.log.Warn("failed to encode integration event", zap.String("type", event.Type), zap.Error(err))
		return
	}

	err = p.ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.ID,
		Timestamp:    event.OccurredAt,
		Body:         body,
	})
	if err != nil {
		p.log.Warn("failed to publish integration event", zap.String("type", event.Type), zap.Error(err))
	}
}

func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
