package storage

import (
	"time"

	"ledger/internal/core"
)

// Row types mirror the tables one to one. Timestamps are unix nanoseconds.

type User struct {
	ID           int64
	Name         string
	Email        string
	AccountCount int64
	CreatedAt    int64
}

type Account struct {
	ID                  int64
	Name                string
	OpeningBalanceCents int64
	BalanceCents        int64
	TransactionCount    int64
	UserID              int64
	CreatedAt           int64
}

type Transaction struct {
	ID          int64
	Name        string
	AmountCents int64
	Type        int64
	AccountID   int64
	CreatedAt   int64
}

func fromUnixNano(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

func (u User) toCore() core.User {
	return core.User{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		AccountCount: u.AccountCount,
		CreatedAt:    fromUnixNano(u.CreatedAt),
	}
}

func (a Account) toCore() core.Account {
	return core.Account{
		ID:               a.ID,
		Name:             a.Name,
		OpeningBalance:   core.Money{Cents: a.OpeningBalanceCents},
		Balance:          core.Money{Cents: a.BalanceCents},
		TransactionCount: a.TransactionCount,
		UserID:           a.UserID,
		CreatedAt:        fromUnixNano(a.CreatedAt),
	}
}

func (t Transaction) toCore() core.Transaction {
	return core.Transaction{
		ID:        t.ID,
		Name:      t.Name,
		Amount:    core.Money{Cents: t.AmountCents},
		Type:      core.TransactionType(t.Type),
		AccountID: t.AccountID,
		CreatedAt: fromUnixNano(t.CreatedAt),
	}
}
