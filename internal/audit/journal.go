package audit

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/minibank/minibank/internal/ledger"
)

// Entry is one link of the audit chain.
type Entry struct {
	Seq         uint64             `json:"seq"`
	Transaction ledger.Transaction `json:"transaction"`
	PrevHash    string             `json:"prev_hash"`
	Hash        string             `json:"hash"`
}

// Journal is a strictly append-only, hash-chained record of every committed
// ledger mutation, including undo compensations. It implements ledger.Recorder.
type Journal struct {
	mu      sync.RWMutex
	entries []Entry
	exports chan Entry
	logger  *slog.Logger
}

// NewJournal builds a journal. When buffer is positive, entries are also
// queued for an Exporter; a full queue drops the export, never the entry.
func NewJournal(logger *slog.Logger, buffer int) *Journal {
	j := &Journal{logger: logger}
	if buffer > 0 {
		j.exports = make(chan Entry, buffer)
	}
	return j
}

// Record appends tx to the chain.
func (j *Journal) Record(tx ledger.Transaction) {
	j.mu.Lock()
	prev := ""
	if n := len(j.entries); n > 0 {
		prev = j.entries[n-1].Hash
	}
	entry := Entry{
		Seq:         uint64(len(j.entries)) + 1,
		Transaction: tx,
		PrevHash:    prev,
	}
	entry.Hash = chainHash(prev, tx)
	j.entries = append(j.entries, entry)
	j.mu.Unlock()

	if j.exports == nil {
		return
	}
	select {
	case j.exports <- entry:
	default:
		if j.logger != nil {
			j.logger.Warn("audit export queue full, dropping export", "seq", entry.Seq, "transaction_id", tx.ID.String())
		}
	}
}

// Entries returns a copy of the chain, oldest first.
func (j *Journal) Entries() []Entry {
	j.mu.RLock()
	defer j.mu.RUnlock()
	out := make([]Entry, len(j.entries))
	copy(out, j.entries)
	return out
}

// Verify recomputes the chain and returns the sequence number of the first
// broken link, or 0 when the chain is intact.
func (j *Journal) Verify() uint64 {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return verifyChain(j.entries)
}

func verifyChain(entries []Entry) uint64 {
	prev := ""
	for _, e := range entries {
		if e.PrevHash != prev || e.Hash != chainHash(prev, e.Transaction) {
			return e.Seq
		}
		prev = e.Hash
	}
	return 0
}

func chainHash(prev string, tx ledger.Transaction) string {
	h, _ := blake2b.New256(nil)
	h.Write([]byte(prev))
	h.Write(canonical(tx))
	return hex.EncodeToString(h.Sum(nil))
}

// canonical renders the fields of a record in a fixed order.
func canonical(tx ledger.Transaction) []byte {
	var b bytes.Buffer
	fields := []string{
		tx.ID.String(),
		strconv.Itoa(tx.Account),
		string(tx.Kind),
		tx.Amount.String(),
		tx.Note,
		tx.Timestamp.UTC().Format(time.RFC3339Nano),
		tx.TransferID.String(),
	}
	for _, f := range fields {
		fmt.Fprintf(&b, "%d:%s;", len(f), f)
	}
	return b.Bytes()
}
