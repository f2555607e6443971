package ledger

import (
	"errors"
	"fmt"

	"ledger/internal/core"
)

// ErrDrift is returned when a stored aggregate disagrees with its log.
var ErrDrift = errors.New("ledger drift")

// DriftError describes how an account aggregate differs from its log.
type DriftError struct {
	AccountID       int64
	StoredBalance   core.Money
	ExpectedBalance core.Money
	StoredCount     int64
	ExpectedCount   int64
}

func (e *DriftError) Error() string {
	return fmt.Sprintf("account %d: balance %s (expected %s), transactions %d (expected %d)",
		e.AccountID, e.StoredBalance, e.ExpectedBalance, e.StoredCount, e.ExpectedCount)
}

func (e *DriftError) Unwrap() error { return ErrDrift }

// Expected recomputes an account aggregate from its opening balance and log.
func Expected(a core.Account, txs []core.Transaction) core.Account {
	a.Balance = a.OpeningBalance
	a.TransactionCount = 0
	for _, tx := range txs {
		a = InsertDelta(tx).Apply(a)
	}
	return a
}

// Verify checks balance == opening + Σ signed(amount) and
// transaction_count == len(txs). txs must be the full log of the account.
func Verify(a core.Account, txs []core.Transaction) error {
	want := Expected(a, txs)
	if want.Balance == a.Balance && want.TransactionCount == a.TransactionCount {
		return nil
	}
	return &DriftError{
		AccountID:       a.ID,
		StoredBalance:   a.Balance,
		ExpectedBalance: want.Balance,
		StoredCount:     a.TransactionCount,
		ExpectedCount:   want.TransactionCount,
	}
}
