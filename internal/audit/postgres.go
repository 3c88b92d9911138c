package audit

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

const createTableSQL = `CREATE TABLE IF NOT EXISTS ledger_audit (
        seq            BIGINT PRIMARY KEY,
        transaction_id UUID NOT NULL,
        account_id     INTEGER NOT NULL,
        kind           TEXT NOT NULL,
        amount         NUMERIC NOT NULL,
        note           TEXT NOT NULL,
        recorded_at    TIMESTAMPTZ NOT NULL,
        transfer_id    UUID,
        prev_hash      TEXT NOT NULL,
        hash           TEXT NOT NULL
    )`

const insertEntrySQL = `INSERT INTO ledger_audit
        (seq, transaction_id, account_id, kind, amount, note, recorded_at, transfer_id, prev_hash, hash)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        ON CONFLICT (seq) DO NOTHING`

// Execer is the subset of *pgxpool.Pool used by PostgresSink.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresSink exports audit entries to PostgreSQL. It only ever writes; the
// ledger never reads its state back.
type PostgresSink struct {
	db Execer
}

// NewPostgresSink constructs a Postgres-backed sink.
func NewPostgresSink(db Execer) *PostgresSink {
	return &PostgresSink{db: db}
}

// EnsureSchema creates the audit table when it does not exist.
func (s *PostgresSink) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, createTableSQL); err != nil {
		return fmt.Errorf("create ledger_audit: %w", err)
	}
	return nil
}

// Write inserts one entry. Re-delivery of the same sequence number is ignored.
func (s *PostgresSink) Write(ctx context.Context, entry Entry) error {
	tx := entry.Transaction
	var transferID *uuid.UUID
	if tx.TransferID != uuid.Nil {
		id := tx.TransferID
		transferID = &id
	}
	_, err := s.db.Exec(ctx, insertEntrySQL,
		int64(entry.Seq), tx.ID, tx.Account, string(tx.Kind), tx.Amount,
		tx.Note, tx.Timestamp.UTC(), transferID, entry.PrevHash, entry.Hash)
	if err != nil {
		return fmt.Errorf("insert audit entry %d: %w", entry.Seq, err)
	}
	return nil
}
