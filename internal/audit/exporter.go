package audit

import (
	"context"
	"log/slog"
	"time"
)

const writeTimeout = 2 * time.Second

// Exporter drains a journal's export queue into a sink.
type Exporter struct {
	journal *Journal
	sink    Sink
	logger  *slog.Logger
}

// NewExporter wires a journal to a sink.
func NewExporter(journal *Journal, sink Sink, logger *slog.Logger) *Exporter {
	return &Exporter{journal: journal, sink: sink, logger: logger}
}

// Run forwards entries until ctx is cancelled, then flushes whatever is
// already queued. It returns immediately for a journal without a queue.
func (e *Exporter) Run(ctx context.Context) {
	queue := e.journal.exports
	if queue == nil {
		return
	}
	for {
		select {
		case entry := <-queue:
			e.write(ctx, entry)
		case <-ctx.Done():
			e.flush(queue)
			return
		}
	}
}

func (e *Exporter) flush(queue <-chan Entry) {
	for {
		select {
		case entry := <-queue:
			e.write(context.Background(), entry)
		default:
			return
		}
	}
}

func (e *Exporter) write(parent context.Context, entry Entry) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), writeTimeout)
	defer cancel()
	if err := e.sink.Write(ctx, entry); err != nil && e.logger != nil {
		e.logger.Error("audit export failed", "seq", entry.Seq, "error", err)
	}
}
