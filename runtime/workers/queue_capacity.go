package workers

import (
	"chat-backend/contract"
	"chat-backend/ingest"
	"context"
	"log/slog"
	"time"
)

var _ contract.Worker = (*QueueCapacityWorker)(nil)

// QueueCapacityWorker periodically reports the backpressure queue's length
// and capacity. Reading len(channel) and cap(channel) is non-blocking, so
// this won't interfere with the pipeline goroutines; the numbers are sampled,
// not exact.
type QueueCapacityWorker struct {
	log            *slog.Logger
	queue          chan ingest.IncomingMessage
	metricInterval time.Duration
}

func NewQueueCapacityWorker(log *slog.Logger,
	queue chan ingest.IncomingMessage, metricInterval time.Duration) *QueueCapacityWorker {
	return &QueueCapacityWorker{log: log, queue: queue, metricInterval: metricInterval}
}

func (w *QueueCapacityWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping queue capacity reports")
			return nil
		case <-ticker.C:
			length, capacity := len(w.queue), cap(w.queue)
			if length == capacity {
				w.log.Warn("Backpressure queue is full, broker deliveries are being requeued",
					"length", length, "capacity", capacity)
				continue
			}
			w.log.Debug("Backpressure queue depth", "length", length, "capacity", capacity)
		}
	}
}
