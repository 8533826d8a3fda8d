package events

import (
	"context"
	"log/slog"
)

// Worker buffers events and hands them to a Publisher from its own goroutine.
type Worker struct {
	publisher Publisher
	inbox     chan NameChanged
	logger    *slog.Logger
}

func NewWorker(publisher Publisher, bufferSize int, logger *slog.Logger) *Worker {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		publisher: publisher,
		inbox:     make(chan NameChanged, bufferSize),
		logger:    logger,
	}
}

// Emit enqueues e, dropping it when the buffer is full.
func (w *Worker) Emit(e NameChanged) bool {
	select {
	case w.inbox <- e:
		return true
	default:
		w.logger.Warn("name change event dropped, buffer full", "id", e.ID, "new_name", e.NewName)
		return false
	}
}

// Run publishes events until ctx is done. Publish failures are logged and the
// event is discarded.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e := <-w.inbox:
			if err := w.publisher.Publish(ctx, e); err != nil {
				w.logger.ErrorContext(ctx, "failed to publish name change", "id", e.ID, "error", err)
			}
		}
	}
}

var _ Sink = (*Worker)(nil)
