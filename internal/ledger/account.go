package ledger

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// AccountKind selects the withdrawal policy applied to an account.
type AccountKind string

// KindChecking is a plain account that can never go below zero.
const KindChecking AccountKind = "checking"

// Policy holds the per-kind limits enforced by withdraw.
type Policy struct {
	// OverdraftLimit is how far below zero a withdrawal may take the balance.
	OverdraftLimit decimal.Decimal
}

var policies = map[AccountKind]Policy{
	KindChecking: {OverdraftLimit: decimal.Zero},
}

func policyFor(kind AccountKind) Policy {
	if p, ok := policies[kind]; ok {
		return p
	}
	return Policy{OverdraftLimit: decimal.Zero}
}

// Account holds a single balance and its own append-only history.
type Account struct {
	id      int
	owner   string
	kind    AccountKind
	policy  Policy
	balance decimal.Decimal
	history []Transaction
}

func newAccount(id int, owner string, kind AccountKind) *Account {
	return &Account{
		id:      id,
		owner:   owner,
		kind:    kind,
		policy:  policyFor(kind),
		balance: decimal.Zero,
	}
}

func (a *Account) deposit(amount decimal.Decimal, note string, at time.Time) (Transaction, error) {
	if !amount.IsPositive() {
		return Transaction{}, fmt.Errorf("deposit %s to account %d: %w", amount, a.id, ErrInvalidAmount)
	}
	a.balance = a.balance.Add(amount)
	tx := newTransaction(a.id, KindDeposit, amount, note, at)
	a.history = append(a.history, tx)
	return tx, nil
}

func (a *Account) withdraw(amount decimal.Decimal, note string, at time.Time) (Transaction, error) {
	if err := a.canWithdraw(amount); err != nil {
		return Transaction{}, err
	}
	a.balance = a.balance.Sub(amount)
	tx := newTransaction(a.id, KindWithdraw, amount, note, at)
	a.history = append(a.history, tx)
	return tx, nil
}

// canWithdraw runs the withdraw checks without mutating anything.
func (a *Account) canWithdraw(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("withdraw %s from account %d: %w", amount, a.id, ErrInvalidAmount)
	}
	if a.balance.Sub(amount).LessThan(a.policy.OverdraftLimit.Neg()) {
		return fmt.Errorf("withdraw %s from account %d with balance %s: %w", amount, a.id, a.balance, ErrInsufficientFunds)
	}
	return nil
}

func (a *Account) summary() AccountSummary {
	return AccountSummary{ID: a.id, Owner: a.owner, Balance: a.balance}
}

func (a *Account) view() AccountView {
	history := make([]Transaction, len(a.history))
	copy(history, a.history)
	return AccountView{
		ID:      a.id,
		Owner:   a.owner,
		Kind:    a.kind,
		Balance: a.balance,
		History: history,
	}
}

// AccountSummary is the listing view of an account.
type AccountSummary struct {
	ID      int
	Owner   string
	Balance decimal.Decimal
}

// AccountView is a detached snapshot of an account including its history.
type AccountView struct {
	ID      int
	Owner   string
	Kind    AccountKind
	Balance decimal.Decimal
	History []Transaction
}
