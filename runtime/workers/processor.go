package workers

import (
	"chat-backend/contract"
	"chat-backend/ingest"
	"chat-backend/services"
	"context"
	"log/slog"
)

var _ contract.Worker = (*ProcessorWorker)(nil)

// ProcessorWorker is the single consumer of the backpressure queue. Running
// exactly one of it serializes every store write behind one goroutine: the
// queue itself is the synchronization boundary of the pipeline.
type ProcessorWorker struct {
	log       *slog.Logger
	queue     <-chan ingest.IncomingMessage
	processor *services.MessageProcessor
}

func NewProcessorWorker(
	log *slog.Logger,
	queue <-chan ingest.IncomingMessage,
	processor *services.MessageProcessor,
) *ProcessorWorker {
	return &ProcessorWorker{log: log, queue: queue, processor: processor}
}

func (w *ProcessorWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping worker")
			return ctx.Err()
		case message, ok := <-w.queue:
			if !ok {
				w.log.Debug("Queue is closed")
				return nil
			}
			if err := w.processor.Process(ctx, message.ToDomain()); err != nil {
				// Store or publish failure: surface it so the supervisor
				// restarts the worker. The broker already acked this message,
				// losing it here is within at-least-once semantics.
				w.log.Error("Message processing failed",
					"client_message_id", message.ClientMessageID, "err", err)
				return err
			}
		}
	}
}
