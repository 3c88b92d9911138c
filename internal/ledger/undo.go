package ledger

import (
	"fmt"

	"github.com/google/uuid"
)

// UndoResult describes what an Undo call reversed.
type UndoResult struct {
	// Reversed holds the global log entries removed, oldest first.
	Reversed []Transaction
	// Compensations holds the records appended to account histories.
	Compensations []Transaction
	Transfer      bool
}

// Undo reverses the most recent entry in the global log, or the most recent
// transfer pair when the tail is a TransferIn matched by its TransferOut.
// Compensating records are appended to account histories but never to the
// global log, so an undo cannot itself be undone.
func (l *Ledger) Undo() (UndoResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := len(l.log)
	if n == 0 {
		return UndoResult{}, ErrNothingToUndo
	}

	last := l.log[n-1]
	if n >= 2 && isTransferPair(l.log[n-2], last) {
		return l.undoTransfer(l.log[n-2], last)
	}
	return l.undoSingle(last)
}

func isTransferPair(out, in Transaction) bool {
	return out.Kind == KindTransferOut &&
		in.Kind == KindTransferIn &&
		out.Amount.Equal(in.Amount) &&
		out.TransferID != uuid.Nil &&
		out.TransferID == in.TransferID
}

func (l *Ledger) undoTransfer(out, in Transaction) (UndoResult, error) {
	dst, err := l.account(in.Account)
	if err != nil {
		return UndoResult{}, err
	}
	src, err := l.account(out.Account)
	if err != nil {
		return UndoResult{}, err
	}
	if err := dst.canWithdraw(in.Amount); err != nil {
		return UndoResult{}, fmt.Errorf("undo transfer %d -> %d: %w", out.Account, in.Account, err)
	}

	at := l.now()
	debit, err := dst.withdraw(in.Amount, noteUndoTransfer, at)
	if err != nil {
		return UndoResult{}, err
	}
	credit, err := src.deposit(out.Amount, noteUndoTransfer, at)
	if err != nil {
		return UndoResult{}, fmt.Errorf("undo transfer credit to account %d: %v: %w", src.id, err, ErrInconsistentState)
	}

	l.log = l.log[:len(l.log)-2]
	l.notify(debit)
	l.notify(credit)
	return UndoResult{
		Reversed:      []Transaction{out, in},
		Compensations: []Transaction{debit, credit},
		Transfer:      true,
	}, nil
}

func (l *Ledger) undoSingle(last Transaction) (UndoResult, error) {
	acc, err := l.account(last.Account)
	if err != nil {
		return UndoResult{}, err
	}

	var comp Transaction
	if last.Kind.Increases() {
		comp, err = acc.withdraw(last.Amount, noteUndo, l.now())
	} else {
		comp, err = acc.deposit(last.Amount, noteUndo, l.now())
	}
	if err != nil {
		return UndoResult{}, fmt.Errorf("undo %s on account %d: %w", last.Kind, last.Account, err)
	}

	l.log = l.log[:len(l.log)-1]
	l.notify(comp)
	return UndoResult{
		Reversed:      []Transaction{last},
		Compensations: []Transaction{comp},
	}, nil
}
