package audit

import (
	"context"
	"log/slog"
)

// Sink delivers audit entries to downstream systems.
type Sink interface {
	Write(ctx context.Context, entry Entry) error
}

// LoggerSink writes audit entries to the structured logger.
type LoggerSink struct {
	logger *slog.Logger
}

// NewLoggerSink constructs a logging sink.
func NewLoggerSink(logger *slog.Logger) *LoggerSink {
	return &LoggerSink{logger: logger}
}

// Write emits the entry as a single log line.
func (s *LoggerSink) Write(_ context.Context, entry Entry) error {
	if s == nil || s.logger == nil {
		return nil
	}
	tx := entry.Transaction
	s.logger.Info("audit",
		"seq", entry.Seq,
		"transaction_id", tx.ID.String(),
		"account", tx.Account,
		"kind", string(tx.Kind),
		"amount", tx.Amount.String(),
		"note", tx.Note,
		"hash", entry.Hash,
	)
	return nil
}
