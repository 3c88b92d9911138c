package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Kind classifies a transaction by its effect on the account balance.
type Kind string

const (
	KindDeposit     Kind = "deposit"
	KindWithdraw    Kind = "withdraw"
	KindTransferIn  Kind = "transfer_in"
	KindTransferOut Kind = "transfer_out"
)

// Increases reports whether a record of this kind added to the balance when it was recorded.
func (k Kind) Increases() bool {
	return k == KindDeposit || k == KindTransferIn
}

const (
	noteInitial      = "initial"
	noteUndo         = "undo"
	noteUndoTransfer = "undo transfer"
)

// Transaction is an immutable record of one balance-affecting event.
type Transaction struct {
	ID         uuid.UUID       `json:"id"`
	Account    int             `json:"account"`
	Kind       Kind            `json:"kind"`
	Amount     decimal.Decimal `json:"amount"`
	Note       string          `json:"note"`
	Timestamp  time.Time       `json:"timestamp"`
	TransferID uuid.UUID       `json:"transfer_id"`
}

func newTransaction(account int, kind Kind, amount decimal.Decimal, note string, at time.Time) Transaction {
	return Transaction{
		ID:        uuid.New(),
		Account:   account,
		Kind:      kind,
		Amount:    amount,
		Note:      note,
		Timestamp: at,
	}
}
