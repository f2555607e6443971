// Package ledger holds the rules that keep an account's balance and
// transaction count consistent with its transaction log, and the budget walk
// over that log.
//
// The functions here are pure. storage.SQLiteRepository is the only caller
// that applies a Delta to a persisted account, inside the same SQL
// transaction as the log write that produced it.
package ledger

import (
	"fmt"

	"ledger/internal/core"
)

// EventKind identifies a transaction lifecycle event.
type EventKind string

const (
	Insert EventKind = "insert"
	Amend  EventKind = "amend"
	Remove EventKind = "remove"
)

// Event is a single mutation of the transaction log. Old is set for Amend and
// Remove, New for Insert and Amend.
type Event struct {
	Kind EventKind
	Old  *core.Transaction
	New  *core.Transaction
}

// Delta is the change an event applies to its account aggregate.
type Delta struct {
	AccountID    int64
	Balance      core.Money
	Transactions int64
}

// InsertDelta applies the signed amount and counts the new transaction.
func InsertDelta(tx core.Transaction) Delta {
	return Delta{
		AccountID:    tx.AccountID,
		Balance:      tx.Signed(),
		Transactions: 1,
	}
}

// AmendDelta reverses the old signed effect and then applies the new one.
// The count is unchanged.
func AmendDelta(old, updated core.Transaction) Delta {
	reversal := old.Signed().Neg()
	return Delta{
		AccountID: old.AccountID,
		Balance:   reversal.Add(updated.Signed()),
	}
}

// RemoveDelta reverses the signed effect and uncounts the transaction.
func RemoveDelta(tx core.Transaction) Delta {
	return Delta{
		AccountID:    tx.AccountID,
		Balance:      tx.Signed().Neg(),
		Transactions: -1,
	}
}

// Delta computes the aggregate change for the event.
func (e Event) Delta() (Delta, error) {
	switch e.Kind {
	case Insert:
		if e.New == nil {
			return Delta{}, fmt.Errorf("%w: insert without transaction", core.ErrInvalidArgument)
		}
		return InsertDelta(*e.New), nil
	case Amend:
		if e.Old == nil || e.New == nil {
			return Delta{}, fmt.Errorf("%w: amend needs old and new transaction", core.ErrInvalidArgument)
		}
		if e.Old.AccountID != e.New.AccountID {
			return Delta{}, fmt.Errorf("%w: amend cannot move a transaction to another account", core.ErrInvalidArgument)
		}
		return AmendDelta(*e.Old, *e.New), nil
	case Remove:
		if e.Old == nil {
			return Delta{}, fmt.Errorf("%w: remove without transaction", core.ErrInvalidArgument)
		}
		return RemoveDelta(*e.Old), nil
	}
	return Delta{}, fmt.Errorf("%w: unknown event kind %q", core.ErrInvalidArgument, e.Kind)
}

// IsZero reports whether applying d changes nothing.
func (d Delta) IsZero() bool {
	return d.Balance.IsZero() && d.Transactions == 0
}

// Apply returns a copy of the account with the delta applied.
func (d Delta) Apply(a core.Account) core.Account {
	a.Balance = a.Balance.Add(d.Balance)
	a.TransactionCount += d.Transactions
	return a
}
