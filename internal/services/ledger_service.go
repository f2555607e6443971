package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"sync"

	"ledger/internal/amqp"
	"ledger/internal/core"
	"ledger/internal/export"
	"ledger/internal/ledger"
	"ledger/internal/storage"
)

// Store is the entity store the service drives. *storage.SQLiteRepository
// implements it.
type Store interface {
	Ping(ctx context.Context) error
	Close() error

	CreateUser(ctx context.Context, name, email string) (core.User, error)
	GetUser(ctx context.Context, id int64) (core.User, error)
	ListUsers(ctx context.Context) ([]core.User, error)
	SeedFixtures(ctx context.Context, users []storage.NewUser, accountName string, opening core.Money) ([]core.User, core.Account, error)

	CreateAccount(ctx context.Context, name string, opening core.Money, userID int64) (core.Account, error)
	GetAccount(ctx context.Context, id int64) (core.Account, error)
	ListAccounts(ctx context.Context) ([]core.Account, error)
	ListAccountsByUser(ctx context.Context, userID int64) ([]core.Account, error)
	DeleteAccount(ctx context.Context, id int64) (core.Account, error)

	CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
	CreateTransactions(ctx context.Context, accountID int64, txs []core.Transaction) ([]core.Transaction, error)
	GetTransaction(ctx context.Context, id int64) (core.Transaction, error)
	AmendTransaction(ctx context.Context, id int64, change storage.Amendment) (core.Transaction, error)
	RemoveTransaction(ctx context.Context, id int64) (core.Transaction, error)
	ListTransactions(ctx context.Context) ([]core.Transaction, error)
	AccountLedger(ctx context.Context, accountID int64) (core.Account, []core.Transaction, error)
	VerifyAccount(ctx context.Context, accountID int64) error
}

// EventPublisher announces committed ledger changes. *amqp.Client implements it.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, msg *amqp.LedgerEventMessage) error
}

var errExportsDisabled = fmt.Errorf("%w: exports are not configured", core.ErrStorageFailure)

// LedgerService orchestrates ledger operations across SQLite, AMQP and the
// export directory.
type LedgerService struct {
	store     Store
	publisher EventPublisher
	exports   *export.FileStore

	rngMu sync.Mutex
	rng   *rand.Rand
}

type Option func(*LedgerService)

// WithPublisher enables best-effort event publishing after each commit.
func WithPublisher(p EventPublisher) Option {
	return func(s *LedgerService) {
		s.publisher = p
	}
}

func WithExports(fs *export.FileStore) Option {
	return func(s *LedgerService) {
		s.exports = fs
	}
}

// WithSeed makes generated transactions reproducible.
func WithSeed(seed uint64) Option {
	return func(s *LedgerService) {
		s.rng = rand.New(rand.NewPCG(seed, seed))
	}
}

func NewLedgerService(store Store, opts ...Option) *LedgerService {
	s := &LedgerService{
		store: store,
		rng:   rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *LedgerService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Users

func (s *LedgerService) CreateUser(ctx context.Context, name, email string) (core.User, error) {
	return s.store.CreateUser(ctx, name, email)
}

func (s *LedgerService) ListUsers(ctx context.Context) ([]core.User, error) {
	return s.store.ListUsers(ctx)
}

// UserView returns a user together with the accounts it owns.
func (s *LedgerService) UserView(ctx context.Context, userID int64) (core.User, []core.Account, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return core.User{}, nil, err
	}
	accounts, err := s.store.ListAccountsByUser(ctx, userID)
	if err != nil {
		return core.User{}, nil, err
	}
	return u, accounts, nil
}

// Accounts

func (s *LedgerService) CreateAccount(ctx context.Context, name string, opening core.Money, userID int64) (core.Account, error) {
	a, err := s.store.CreateAccount(ctx, name, opening, userID)
	if err != nil {
		return core.Account{}, err
	}
	s.publish(ctx, amqp.NewLedgerEventMessage(amqp.AccountCreated, a.ID))
	return a, nil
}

func (s *LedgerService) GetAccount(ctx context.Context, id int64) (core.Account, error) {
	return s.store.GetAccount(ctx, id)
}

func (s *LedgerService) ListAccounts(ctx context.Context) ([]core.Account, error) {
	return s.store.ListAccounts(ctx)
}

// DeleteAccount removes the account with its transactions.
func (s *LedgerService) DeleteAccount(ctx context.Context, id int64) (core.Account, error) {
	a, err := s.store.DeleteAccount(ctx, id)
	if err != nil {
		return core.Account{}, err
	}
	s.publish(ctx, amqp.NewLedgerEventMessage(amqp.AccountDeleted, id))
	return a, nil
}

// Transactions

func (s *LedgerService) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	created, err := s.store.CreateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, err
	}
	s.publish(ctx, amqp.NewTransactionEvent(amqp.TransactionCreated, created.AccountID, created.ID))
	return created, nil
}

func (s *LedgerService) AmendTransaction(ctx context.Context, id int64, change storage.Amendment) (core.Transaction, error) {
	amended, err := s.store.AmendTransaction(ctx, id, change)
	if err != nil {
		return core.Transaction{}, err
	}
	s.publish(ctx, amqp.NewTransactionEvent(amqp.TransactionAmended, amended.AccountID, amended.ID))
	return amended, nil
}

func (s *LedgerService) RemoveTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	removed, err := s.store.RemoveTransaction(ctx, id)
	if err != nil {
		return core.Transaction{}, err
	}
	s.publish(ctx, amqp.NewTransactionEvent(amqp.TransactionRemoved, removed.AccountID, removed.ID))
	return removed, nil
}

func (s *LedgerService) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	return s.store.GetTransaction(ctx, id)
}

func (s *LedgerService) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	return s.store.ListTransactions(ctx)
}

// AccountTransactions returns the account and its transactions in ledger
// order.
func (s *LedgerService) AccountTransactions(ctx context.Context, accountID int64) (core.Account, []core.Transaction, error) {
	return s.store.AccountLedger(ctx, accountID)
}

// GetWithinBudget returns the longest chronological prefix of the account's
// transactions whose summed amounts stay within budget.
func (s *LedgerService) GetWithinBudget(ctx context.Context, accountID int64, budget core.Money) ([]core.Transaction, error) {
	_, txs, err := s.store.AccountLedger(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("get within budget: %w", err)
	}

	within := ledger.WithinBudget(txs, budget)
	slog.DebugContext(ctx, "Budget walk completed",
		"account_id", accountID,
		"budget_cents", budget.Cents,
		"candidates", len(txs),
		"selected", len(within))
	return within, nil
}

func (s *LedgerService) VerifyAccount(ctx context.Context, accountID int64) error {
	return s.store.VerifyAccount(ctx, accountID)
}

// Exports

// ExportAccount writes the account's current transaction log to its CSV file.
func (s *LedgerService) ExportAccount(ctx context.Context, accountID int64) (int, error) {
	if s.exports == nil {
		return 0, errExportsDisabled
	}
	_, txs, err := s.store.AccountLedger(ctx, accountID)
	if err != nil {
		return 0, fmt.Errorf("export account: %w", err)
	}
	if err := s.exports.Write(ctx, accountID, txs); err != nil {
		return 0, fmt.Errorf("%w: %w", core.ErrStorageFailure, err)
	}
	return len(txs), nil
}

// ReadExport returns the last CSV export written for the account.
func (s *LedgerService) ReadExport(ctx context.Context, accountID int64) (string, error) {
	if s.exports == nil {
		return "", errExportsDisabled
	}
	if _, err := s.store.GetAccount(ctx, accountID); err != nil {
		return "", err
	}
	return s.exports.Read(accountID)
}

func (s *LedgerService) publish(ctx context.Context, msg *amqp.LedgerEventMessage) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP publisher not available, skipping ledger event", "kind", msg.Kind)
		return
	}

	// The change is already committed; a lost event only delays the worker.
	if err := s.publisher.PublishLedgerEvent(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"kind", msg.Kind,
			"account_id", msg.AccountID,
			"error", err)
	}
}

// Close closes the store and, when it is closable, the publisher.
func (s *LedgerService) Close() error {
	var errs []error

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if c, ok := s.publisher.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("close ledger service: %w", err)
	}
	return nil
}
