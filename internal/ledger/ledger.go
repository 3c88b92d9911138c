package ledger

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidAmount occurs when an amount is not positive, or an initial
	// balance is negative.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInsufficientFunds occurs when a withdrawal or reversal would take the
	// balance below what the account policy allows.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrAccountNotFound indicates the account identifier is unknown.
	ErrAccountNotFound = errors.New("account not found")

	// ErrSameAccount indicates a transfer whose source equals its destination.
	ErrSameAccount = errors.New("source and destination are the same account")

	// ErrNothingToUndo indicates the global log is empty.
	ErrNothingToUndo = errors.New("nothing to undo")

	// ErrInconsistentState is returned when a validated multi-step sequence
	// fails partway. It should never be observed in practice.
	ErrInconsistentState = errors.New("ledger state inconsistent")
)

// Recorder receives every committed record, including undo compensations.
// Record is called while the ledger lock is held and must not block.
type Recorder interface {
	Record(tx Transaction)
}

// TransferResult captures the outcome of a transfer as of its commit.
type TransferResult struct {
	TransferID  uuid.UUID
	FromBalance decimal.Decimal
	ToBalance   decimal.Decimal
}

// Option customises a Ledger.
type Option func(*Ledger)

// WithClock overrides the time source used to stamp records.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithRecorder attaches a recorder notified of each committed record.
func WithRecorder(r Recorder) Option {
	return func(l *Ledger) { l.recorders = append(l.recorders, r) }
}

// Ledger owns all accounts, the global transaction log and undo.
type Ledger struct {
	mu        sync.RWMutex
	accounts  map[int]*Account
	log       []Transaction
	nextID    int
	now       func() time.Time
	recorders []Recorder
}

// New creates an empty ledger. Account identifiers start at 1.
func New(opts ...Option) *Ledger {
	l := &Ledger{
		accounts: make(map[int]*Account),
		nextID:   1,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// CreateAccount opens a checking account and returns its identifier. A
// positive initial balance is recorded as a deposit.
func (l *Ledger) CreateAccount(owner string, initial decimal.Decimal) (int, error) {
	if initial.IsNegative() {
		return 0, fmt.Errorf("initial balance %s: %w", initial, ErrInvalidAmount)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	id := l.nextID
	acc := newAccount(id, owner, KindChecking)
	if initial.IsPositive() {
		tx, err := acc.deposit(initial, noteInitial, l.now())
		if err != nil {
			return 0, err
		}
		l.commit(tx)
	}
	l.nextID++
	l.accounts[id] = acc
	return id, nil
}

// Deposit credits an account and returns its state after the credit.
func (l *Ledger) Deposit(id int, amount decimal.Decimal, note string) (AccountSummary, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	acc, err := l.account(id)
	if err != nil {
		return AccountSummary{}, err
	}
	tx, err := acc.deposit(amount, note, l.now())
	if err != nil {
		return AccountSummary{}, err
	}
	l.commit(tx)
	return acc.summary(), nil
}

// Withdraw debits an account and returns its state after the debit. The
// balance may not go negative.
func (l *Ledger) Withdraw(id int, amount decimal.Decimal, note string) (AccountSummary, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	acc, err := l.account(id)
	if err != nil {
		return AccountSummary{}, err
	}
	tx, err := acc.withdraw(amount, note, l.now())
	if err != nil {
		return AccountSummary{}, err
	}
	l.commit(tx)
	return acc.summary(), nil
}

// Transfer moves funds between two accounts. The global log receives the
// TransferOut leg immediately followed by the TransferIn leg. The result
// carries both balances as of the commit.
func (l *Ledger) Transfer(from, to int, amount decimal.Decimal, note string) (TransferResult, error) {
	if from == to {
		return TransferResult{}, fmt.Errorf("transfer %d -> %d: %w", from, to, ErrSameAccount)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	src, err := l.account(from)
	if err != nil {
		return TransferResult{}, err
	}
	dst, err := l.account(to)
	if err != nil {
		return TransferResult{}, err
	}
	if err := src.canWithdraw(amount); err != nil {
		return TransferResult{}, err
	}

	at := l.now()
	if _, err := src.withdraw(amount, transferNote("to", to, note), at); err != nil {
		return TransferResult{}, err
	}
	if _, err := dst.deposit(amount, transferNote("from", from, note), at); err != nil {
		return TransferResult{}, fmt.Errorf("credit account %d after debiting %d: %v: %w", to, from, err, ErrInconsistentState)
	}

	transferID := uuid.New()
	out := newTransaction(from, KindTransferOut, amount, fmt.Sprintf("to %d", to), at)
	out.TransferID = transferID
	in := newTransaction(to, KindTransferIn, amount, fmt.Sprintf("from %d", from), at)
	in.TransferID = transferID
	l.commit(out)
	l.commit(in)
	return TransferResult{
		TransferID:  transferID,
		FromBalance: src.balance,
		ToBalance:   dst.balance,
	}, nil
}

// Accounts lists every account ordered by identifier.
func (l *Ledger) Accounts() []AccountSummary {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]AccountSummary, 0, len(l.accounts))
	for _, acc := range l.accounts {
		out = append(out, acc.summary())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Account returns a snapshot of one account and its history.
func (l *Ledger) Account(id int) (AccountView, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	acc, err := l.account(id)
	if err != nil {
		return AccountView{}, err
	}
	return acc.view(), nil
}

// Log returns a copy of the global transaction log, oldest first.
func (l *Ledger) Log() []Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Transaction, len(l.log))
	copy(out, l.log)
	return out
}

func (l *Ledger) account(id int) (*Account, error) {
	acc, ok := l.accounts[id]
	if !ok {
		return nil, fmt.Errorf("account %d: %w", id, ErrAccountNotFound)
	}
	return acc, nil
}

// commit appends a record to the global log and notifies recorders.
func (l *Ledger) commit(tx Transaction) {
	l.log = append(l.log, tx)
	l.notify(tx)
}

func (l *Ledger) notify(tx Transaction) {
	for _, r := range l.recorders {
		r.Record(tx)
	}
}

func transferNote(direction string, counterparty int, note string) string {
	base := fmt.Sprintf("%s %d", direction, counterparty)
	if note == "" {
		return base
	}
	return base + ": " + note
}
