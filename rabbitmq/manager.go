// Package rabbitmq binds the pipeline to its broker.
//
// Topology is pre-provisioned: the manager only asserts exchanges and the
// ingest queue passively, it never creates them.
package rabbitmq

import (
	"chat-backend/contract"
	"chat-backend/domain"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	amqp "github.com/rabbitmq/amqp091-go"
)

var _ contract.Publisher = (*Manager)(nil)

type Config struct {
	URL              string
	IngestExchange   string
	IngestQueue      string
	DeliveryExchange string
	PrefetchCount    int
}

// Manager owns the broker connection and its two channels: one for
// consumption with a bounded prefetch window, one for publishing in confirm
// mode.
type Manager struct {
	log            *slog.Logger
	cfg            Config
	conn           *amqp.Connection
	consumeChannel *amqp.Channel
	publishChannel *amqp.Channel
}

func NewManager(log *slog.Logger, cfg Config) *Manager {
	return &Manager{log: log, cfg: cfg}
}

// Start dials the broker, opens both channels and passively asserts the
// pre-provisioned topology.
func (m *Manager) Start() error {
	conn, err := amqp.Dial(m.cfg.URL)
	if err != nil {
		return fmt.Errorf("dial rabbitmq: %w", err)
	}
	m.conn = conn

	m.consumeChannel, err = conn.Channel()
	if err != nil {
		return fmt.Errorf("open consumption channel: %w", err)
	}
	if err := m.consumeChannel.Qos(m.cfg.PrefetchCount, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}

	m.publishChannel, err = conn.Channel()
	if err != nil {
		return fmt.Errorf("open publishing channel: %w", err)
	}
	if err := m.publishChannel.Confirm(false); err != nil {
		return fmt.Errorf("enable publisher confirms: %w", err)
	}

	if err := m.consumeChannel.ExchangeDeclarePassive(
		m.cfg.IngestExchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("assert ingest exchange: %w", err)
	}
	if err := m.publishChannel.ExchangeDeclarePassive(
		m.cfg.DeliveryExchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("assert delivery exchange: %w", err)
	}
	if _, err := m.consumeChannel.QueueDeclarePassive(
		m.cfg.IngestQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("assert ingest queue: %w", err)
	}
	return nil
}

// Consume opens the delivery stream from the ingest queue. Deliveries must be
// acknowledged manually: the consumer worker acks only once a message sits in
// the backpressure queue.
func (m *Manager) Consume(ctx context.Context) (<-chan amqp.Delivery, error) {
	deliveries, err := m.consumeChannel.ConsumeWithContext(
		ctx, m.cfg.IngestQueue, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("consume %s: %w", m.cfg.IngestQueue, err)
	}
	return deliveries, nil
}

// PublishMessage sends the JSON-serialized final message state to the
// delivery exchange, routed by recipient, and waits for the broker confirm.
func (m *Manager) PublishMessage(ctx context.Context, message domain.Message) error {
	body, err := json.Marshal(message)
	if err != nil {
		return err
	}
	confirmation, err := m.publishChannel.PublishWithDeferredConfirmWithContext(
		ctx,
		m.cfg.DeliveryExchange,
		strconv.FormatInt(message.RecipientID, 10),
		false,
		false,
		amqp.Publishing{
			ContentType:     "application/json",
			ContentEncoding: "utf-8",
			Body:            body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish to %s: %w", m.cfg.DeliveryExchange, err)
	}
	acked, err := confirmation.WaitContext(ctx)
	if err != nil {
		return err
	}
	if !acked {
		return fmt.Errorf("broker refused message %s", message.ClientMessageID)
	}
	return nil
}

func (m *Manager) Close() error {
	if m.conn == nil {
		return nil
	}
	return m.conn.Close()
}
