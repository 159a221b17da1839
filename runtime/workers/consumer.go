package workers

import (
	"chat-backend/contract"
	"chat-backend/ingest"
	"context"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
)

var _ contract.Worker = (*ConsumerWorker)(nil)

// ConsumerWorker drains the broker delivery stream, decodes and validates
// each payload and hands the result to the backpressure queue.
//
// The enqueue is a non-blocking attempt. When the queue is full the delivery
// is negative-acknowledged with requeue, so the broker redelivers it later
// (at-least-once). A delivery is positively acknowledged only once its
// message sits in the queue; decode and schema failures are acknowledged
// without requeue because redelivery cannot fix a malformed payload.
type ConsumerWorker struct {
	log        *slog.Logger
	deliveries <-chan amqp.Delivery
	queue      chan<- ingest.IncomingMessage
}

func NewConsumerWorker(
	log *slog.Logger,
	deliveries <-chan amqp.Delivery,
	queue chan<- ingest.IncomingMessage,
) *ConsumerWorker {
	return &ConsumerWorker{log: log, deliveries: deliveries, queue: queue}
}

func (w *ConsumerWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping worker")
			return ctx.Err()
		case delivery, ok := <-w.deliveries:
			if !ok {
				w.log.Debug("Delivery channel is closed")
				return nil
			}
			w.handle(delivery)
		}
	}
}

func (w *ConsumerWorker) handle(delivery amqp.Delivery) {
	record, err := ingest.Decode(delivery.Body)
	if err != nil {
		w.log.Warn("Dropping undecodable delivery", "err", err)
		w.ack(delivery)
		return
	}

	message, err := ingest.FromRecord(record)
	if err != nil {
		w.log.Warn("Dropping delivery that failed schema validation", "err", err)
		w.ack(delivery)
		return
	}

	select {
	case w.queue <- message:
		w.ack(delivery)
	default:
		// Queue at capacity: hand the message back to the broker.
		if err := delivery.Nack(false, true); err != nil {
			w.log.Error("Failed to nack delivery", "err", err)
		}
	}
}

func (w *ConsumerWorker) ack(delivery amqp.Delivery) {
	if err := delivery.Ack(false); err != nil {
		w.log.Error("Failed to ack delivery", "err", err)
	}
}
