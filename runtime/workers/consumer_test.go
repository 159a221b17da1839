package workers

import (
	"chat-backend/ingest"
	"context"
	"log/slog"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/require"
)

// recordingAcknowledger captures the broker-side outcome of a delivery.
type recordingAcknowledger struct {
	acked    int
	nacked   int
	requeued bool
}

func (a *recordingAcknowledger) Ack(_ uint64, _ bool) error {
	a.acked++
	return nil
}

func (a *recordingAcknowledger) Nack(_ uint64, _ bool, requeue bool) error {
	a.nacked++
	a.requeued = requeue
	return nil
}

func (a *recordingAcknowledger) Reject(_ uint64, _ bool) error {
	return nil
}

func validPayload() []byte {
	return []byte(`{
		"client_message_id": "c0ffee-1",
		"chat_id": "7",
		"sender_id": 1,
		"recipient_id": 2,
		"sent_at": "2026-01-02T10:20:30.000000Z",
		"body": "hello"
	}`)
}

func runConsumerOnce(t *testing.T, body []byte, queue chan ingest.IncomingMessage) *recordingAcknowledger {
	t.Helper()
	req := require.New(t)

	ack := &recordingAcknowledger{}
	deliveries := make(chan amqp.Delivery, 1)
	deliveries <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 1, Body: body}
	close(deliveries)

	worker := NewConsumerWorker(slog.Default(), deliveries, queue)

	done := make(chan error, 1)
	go func() { done <- worker.Run(context.Background()) }()
	select {
	case err := <-done:
		req.NoError(err)
	case <-time.After(time.Second):
		req.Fail("Consumer should stop when the delivery channel closes")
	}
	return ack
}

func TestConsumerWorker_EnqueueAndAck(t *testing.T) {
	req := require.New(t)
	queue := make(chan ingest.IncomingMessage, 1)

	ack := runConsumerOnce(t, validPayload(), queue)

	req.Equal(1, ack.acked)
	req.Zero(ack.nacked)
	req.Len(queue, 1)
	message := <-queue
	req.Equal("c0ffee-1", message.ClientMessageID)
}

func TestConsumerWorker_DropMalformedPayload(t *testing.T) {
	req := require.New(t)
	queue := make(chan ingest.IncomingMessage, 1)

	// Redelivery cannot fix a malformed payload: ack without requeue.
	ack := runConsumerOnce(t, []byte(`{not json`), queue)

	req.Equal(1, ack.acked)
	req.Zero(ack.nacked)
	req.Empty(queue)
}

func TestConsumerWorker_DropInvalidSchema(t *testing.T) {
	req := require.New(t)
	queue := make(chan ingest.IncomingMessage, 1)

	ack := runConsumerOnce(t, []byte(`{"chat_id": "7"}`), queue)

	req.Equal(1, ack.acked)
	req.Zero(ack.nacked)
	req.Empty(queue)
}

func TestConsumerWorker_NackOnFullQueue(t *testing.T) {
	req := require.New(t)
	queue := make(chan ingest.IncomingMessage, 1)
	queue <- ingest.IncomingMessage{ClientMessageID: "already-there"}

	ack := runConsumerOnce(t, validPayload(), queue)

	req.Zero(ack.acked)
	req.Equal(1, ack.nacked)
	req.True(ack.requeued, "Overflowing delivery must go back to the broker")
	req.Len(queue, 1)
}

func TestConsumerWorker_StopsOnContextCancel(t *testing.T) {
	req := require.New(t)
	deliveries := make(chan amqp.Delivery)
	worker := NewConsumerWorker(slog.Default(), deliveries, make(chan ingest.IncomingMessage, 1))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		req.ErrorIs(err, context.Canceled)
	case <-time.After(time.Second):
		req.Fail("Consumer should stop on context cancellation")
	}
}
