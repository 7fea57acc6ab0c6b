package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"github.com/spf13/cast"

	"share2care/internal/application"
	"share2care/internal/ports/input"
)

const (
	ExchangeName = "events"
	ExchangeKind = "topic"
	QueueName    = "share2care.approvals"
	RoutingKey   = "event.approved"
)

// ApprovalConsumer relays event.approved messages from RabbitMQ onto the
// in-process approval bus.
type ApprovalConsumer struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	signals input.ApprovalSignals
	log     zerolog.Logger
}

func NewApprovalConsumer(url string, signals input.ApprovalSignals, logger zerolog.Logger) (*ApprovalConsumer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}

	if err := ch.ExchangeDeclare(ExchangeName, ExchangeKind, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("rabbitmq exchange declare: %w", err)
	}
	q, err := ch.QueueDeclare(QueueName, true, false, false, false, nil)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("rabbitmq queue declare: %w", err)
	}
	if err := ch.QueueBind(q.Name, RoutingKey, ExchangeName, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("rabbitmq queue bind: %w", err)
	}

	return &ApprovalConsumer{
		conn:    conn,
		channel: ch,
		signals: signals,
		log:     logger.With().Str("component", "approval_consumer").Logger(),
	}, nil
}

// Run consumes until ctx ends or the channel closes.
func (c *ApprovalConsumer) Run(ctx context.Context) error {
	msgs, err := c.channel.ConsumeWithContext(ctx, QueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("rabbitmq consume: %w", err)
	}
	c.log.Info().Str("queue", QueueName).Msg("consuming approvals")

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				c.log.Warn().Msg("delivery channel closed")
				return nil
			}
			handleDelivery(d, c.signals, c.log)
		}
	}
}

func (c *ApprovalConsumer) Close() {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		c.conn.Close()
	}
}

func handleDelivery(d amqp.Delivery, signals input.ApprovalSignals, log zerolog.Logger) {
	sig, err := decodeApproval(d.Body)
	if err != nil {
		log.Warn().Err(err).Str("message_id", d.MessageId).Msg("dropping unreadable approval")
		_ = d.Nack(false, false)
		return
	}
	reached := signals.Publish(sig)
	log.Info().Int64("event_id", sig.EventID).Int("subscribers", reached).Msg("event approved")
	_ = d.Ack(false)
}

func decodeApproval(body []byte) (application.EventApproved, error) {
	var m map[string]any
	if err := json.Unmarshal(body, &m); err != nil {
		return application.EventApproved{}, fmt.Errorf("decode approval: %w", err)
	}
	if inner, ok := m["data"].(map[string]any); ok {
		m = inner
	}
	first := func(keys ...string) any {
		for _, k := range keys {
			if v, ok := m[k]; ok && v != nil {
				return v
			}
		}
		return nil
	}

	id, err := cast.ToInt64E(first("event_id", "eventId", "id"))
	if err != nil || id <= 0 {
		return application.EventApproved{}, fmt.Errorf("decode approval: missing event id")
	}
	return application.EventApproved{
		EventID:     id,
		OrganizerID: strings.TrimSpace(cast.ToString(first("organizer_id", "organizerId"))),
		Title:       strings.TrimSpace(cast.ToString(first("title", "event_title"))),
	}, nil
}
