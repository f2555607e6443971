package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"ledger/internal/amqp"
	"ledger/internal/core"
	"ledger/internal/ledger"
)

// Ledger is the part of the ledger service the worker needs.
type Ledger interface {
	ListAccounts(ctx context.Context) ([]core.Account, error)
	VerifyAccount(ctx context.Context, accountID int64) error
	ExportAccount(ctx context.Context, accountID int64) (int, error)
}

// ExportRemover deletes an account's export.
type ExportRemover interface {
	Remove(accountID int64) error
}

// LedgerWorker reacts to ledger events: it checks the touched account's
// aggregate against its log and refreshes the account's CSV export.
type LedgerWorker struct {
	ledger  Ledger
	exports ExportRemover
}

func NewLedgerWorker(l Ledger, exports ExportRemover) *LedgerWorker {
	return &LedgerWorker{ledger: l, exports: exports}
}

// HandleEvent processes one message. A returned error requeues the message,
// so only transient failures are returned.
func (w *LedgerWorker) HandleEvent(ctx context.Context, msg *amqp.LedgerEventMessage) error {
	slog.InfoContext(ctx, "Processing ledger event",
		"message_id", msg.ID,
		"kind", msg.Kind,
		"account_id", msg.AccountID)

	if msg.Kind == amqp.AccountDeleted {
		return w.dropExport(ctx, msg.AccountID)
	}

	if err := w.ledger.VerifyAccount(ctx, msg.AccountID); err != nil {
		switch {
		case errors.Is(err, core.ErrNotFound):
			// Deleted after the event was published.
			return w.dropExport(ctx, msg.AccountID)
		case errors.Is(err, ledger.ErrDrift):
			// Redelivery cannot repair drift.
			slog.ErrorContext(ctx, "Account aggregate drifted from its log",
				"account_id", msg.AccountID,
				"error", err)
		default:
			return fmt.Errorf("verify account %d: %w", msg.AccountID, err)
		}
	}

	n, err := w.ledger.ExportAccount(ctx, msg.AccountID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return w.dropExport(ctx, msg.AccountID)
		}
		return fmt.Errorf("export account %d: %w", msg.AccountID, err)
	}

	slog.InfoContext(ctx, "Account export refreshed",
		"account_id", msg.AccountID,
		"transactions", n)
	return nil
}

func (w *LedgerWorker) dropExport(ctx context.Context, accountID int64) error {
	if w.exports == nil {
		return nil
	}
	if err := w.exports.Remove(accountID); err != nil {
		return fmt.Errorf("remove export of account %d: %w", accountID, err)
	}
	slog.InfoContext(ctx, "Account export removed", "account_id", accountID)
	return nil
}

// ReconcileResult counts the outcome of a full reconciliation pass.
type ReconcileResult struct {
	Checked int
	Drifted []int64
}

// ReconcileAll verifies every account. Drifted accounts are reported, not
// repaired.
func (w *LedgerWorker) ReconcileAll(ctx context.Context) (ReconcileResult, error) {
	accounts, err := w.ledger.ListAccounts(ctx)
	if err != nil {
		return ReconcileResult{}, fmt.Errorf("list accounts: %w", err)
	}

	var res ReconcileResult
	for _, a := range accounts {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		err := w.ledger.VerifyAccount(ctx, a.ID)
		switch {
		case err == nil:
		case errors.Is(err, ledger.ErrDrift):
			res.Drifted = append(res.Drifted, a.ID)
			slog.ErrorContext(ctx, "Account aggregate drifted from its log",
				"account_id", a.ID,
				"error", err)
		case errors.Is(err, core.ErrNotFound):
			continue
		default:
			return res, fmt.Errorf("verify account %d: %w", a.ID, err)
		}
		res.Checked++
	}

	slog.InfoContext(ctx, "Reconciliation completed",
		"checked", res.Checked,
		"drifted", len(res.Drifted))
	return res, nil
}
