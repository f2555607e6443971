package ledger

import (
	"cmp"
	"slices"

	"ledger/internal/core"
)

// Chronological orders transactions by creation time, then by id.
func Chronological(a, b core.Transaction) int {
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// WithinBudget walks the transactions in chronological order and returns the
// longest prefix whose cumulative amount stays within budget.
//
// The running total adds every amount regardless of its type: a budget caps
// the total flow touched, not the net change to the balance. The walk stops at
// the first transaction that would push the total over the budget, so later
// transactions are never included once an earlier one is excluded.
//
// The input is copied before sorting; the caller's slice is left untouched.
func WithinBudget(txs []core.Transaction, budget core.Money) []core.Transaction {
	ordered := slices.Clone(txs)
	slices.SortStableFunc(ordered, Chronological)

	var total core.Money
	n := 0
	for _, tx := range ordered {
		// compare against what is left so the running total never overflows
		if tx.Amount.GreaterThan(budget.Sub(total)) {
			break
		}
		total = total.Add(tx.Amount)
		n++
	}
	if n == 0 {
		return []core.Transaction{}
	}
	return ordered[:n:n]
}

// Total sums the magnitudes of the given transactions. It fails with
// core.ErrBalanceOverflow instead of wrapping around.
func Total(txs []core.Transaction) (core.Money, error) {
	var total core.Money
	for _, tx := range txs {
		var err error
		if total, err = total.CheckedAdd(tx.Amount); err != nil {
			return core.Money{}, err
		}
	}
	return total, nil
}
