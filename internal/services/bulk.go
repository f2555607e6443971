package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ledger/internal/amqp"
	"ledger/internal/core"
	"ledger/internal/ledger"
)

const maxGeneratedAmount = 1000

// BatchSummary describes a committed bulk load.
type BatchSummary struct {
	AccountID int64         `json:"account_id"`
	Created   int           `json:"created"`
	Credits   int           `json:"credits"`
	Debits    int           `json:"debits"`
	Net       core.Money    `json:"net"`
	Balance   core.Money    `json:"balance"`
	Duration  time.Duration `json:"duration_ns"`
}

// GenerateTransactions inserts count synthetic transactions into the account
// as one unit of work. Each gets a whole amount in [0, 1000) and a fair-coin
// type. On failure nothing is kept and the error is a *storage.BatchError
// naming the failing item.
func (s *LedgerService) GenerateTransactions(ctx context.Context, accountID int64, count int) (BatchSummary, error) {
	if count <= 0 {
		return BatchSummary{}, fmt.Errorf("generate transactions: %w", core.ErrInvalidCount)
	}

	start := time.Now()
	txs := s.fakeTransactions(count)

	created, err := s.store.CreateTransactions(ctx, accountID, txs)
	if err != nil {
		return BatchSummary{}, fmt.Errorf("generate transactions: %w", err)
	}

	account, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return BatchSummary{}, fmt.Errorf("generate transactions: %w", err)
	}

	summary := BatchSummary{
		AccountID: accountID,
		Created:   len(created),
		Net:       ledger.Expected(core.Account{}, created).Balance,
		Balance:   account.Balance,
		Duration:  time.Since(start),
	}
	for _, tx := range created {
		if tx.Type == core.Credit {
			summary.Credits++
		} else {
			summary.Debits++
		}
	}

	slog.InfoContext(ctx, "Fake transactions generated",
		"account_id", accountID,
		"count", summary.Created,
		"net_cents", summary.Net.Cents,
		"duration", summary.Duration)

	s.publish(ctx, amqp.NewGeneratedEvent(accountID, summary.Created))
	return summary, nil
}

func (s *LedgerService) fakeTransactions(count int) []core.Transaction {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()

	txs := make([]core.Transaction, count)
	for i := range txs {
		typ := core.Debit
		if s.rng.IntN(2) == 1 {
			typ = core.Credit
		}
		txs[i] = core.Transaction{
			Name:   fmt.Sprintf("Fake Transaction %d", i+1),
			Amount: core.NewMoney(int64(s.rng.IntN(maxGeneratedAmount))),
			Type:   typ,
		}
	}
	return txs
}
