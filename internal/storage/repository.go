package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"ledger/internal/core"
	"ledger/internal/ledger"
)

// SQLiteRepository is the entity store. It is also the only code that writes
// the transactions table, and every such write applies its balance delta in
// the same SQL transaction (see record).
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

type Option func(*SQLiteRepository)

// WithClock overrides the clock used for created_at timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *SQLiteRepository) {
		r.now = now
	}
}

// DSN returns the driver connection string for a database file. Foreign keys
// are enforced and write transactions take the lock at BEGIN.
func DSN(dbPath string) string {
	params := []string{
		"_pragma=foreign_keys(1)",
		"_pragma=busy_timeout(5000)",
		"_pragma=journal_mode(WAL)",
		"_txlock=immediate",
	}
	return dbPath + "?" + strings.Join(params, "&")
}

func NewSQLiteRepository(dbPath string, opts ...Option) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := DSN(dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One connection: writers serialize on it, so concurrent mutations of the
	// same account can never interleave their balance updates.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	repo := &SQLiteRepository{
		db:      db,
		queries: New(db),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(repo)
	}

	return repo, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return translateError(err)
	}
	return nil
}

// inTx runs fn as one unit of work. Any error rolls back everything fn did.
func (r *SQLiteRepository) inTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", translateError(err))
	}

	if err := fn(r.queries.WithTx(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.ErrorContext(ctx, "Failed to roll back transaction", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", translateError(err))
	}
	return nil
}

func (r *SQLiteRepository) timestamp() int64 {
	return r.now().UnixNano()
}

// Users

func (r *SQLiteRepository) CreateUser(ctx context.Context, name, email string) (core.User, error) {
	u := core.User{Name: strings.TrimSpace(name), Email: strings.TrimSpace(email)}
	if err := u.Validate(); err != nil {
		return core.User{}, err
	}

	row, err := r.queries.CreateUser(ctx, CreateUserParams{
		Name:      u.Name,
		Email:     u.Email,
		CreatedAt: r.timestamp(),
	})
	if err != nil {
		return core.User{}, fmt.Errorf("create user: %w", translateError(err))
	}

	slog.InfoContext(ctx, "User saved", "user_id", row.ID)
	return row.toCore(), nil
}

func (r *SQLiteRepository) GetUser(ctx context.Context, id int64) (core.User, error) {
	row, err := r.queries.GetUser(ctx, id)
	if err != nil {
		return core.User{}, fmt.Errorf("get user %d: %w", id, translateError(err))
	}
	return row.toCore(), nil
}

func (r *SQLiteRepository) ListUsers(ctx context.Context) ([]core.User, error) {
	rows, err := r.queries.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", translateError(err))
	}
	users := make([]core.User, len(rows))
	for i, row := range rows {
		users[i] = row.toCore()
	}
	return users, nil
}

// NewUser names a user to create with SeedFixtures.
type NewUser struct {
	Name  string
	Email string
}

// SeedFixtures creates users and one account owned by the first of them as a
// single unit of work. It fails with core.ErrConstraintViolation if the store
// already has any user, so of two concurrent seeders only one commits.
func (r *SQLiteRepository) SeedFixtures(ctx context.Context, users []NewUser, accountName string, opening core.Money) ([]core.User, core.Account, error) {
	if len(users) == 0 {
		return nil, core.Account{}, fmt.Errorf("%w: no fixture users", core.ErrInvalidArgument)
	}
	users = slices.Clone(users)
	for i := range users {
		users[i] = NewUser{Name: strings.TrimSpace(users[i].Name), Email: strings.TrimSpace(users[i].Email)}
		if err := (core.User{Name: users[i].Name, Email: users[i].Email}).Validate(); err != nil {
			return nil, core.Account{}, err
		}
	}
	a := core.Account{Name: strings.TrimSpace(accountName), OpeningBalance: opening, UserID: 1}
	if err := a.Validate(); err != nil {
		return nil, core.Account{}, err
	}

	var (
		created []core.User
		account Account
	)
	err := r.inTx(ctx, func(q *Queries) error {
		n, err := q.CountUsers(ctx)
		if err != nil {
			return translateError(err)
		}
		if n > 0 {
			return fmt.Errorf("%w: store already has %d users", core.ErrConstraintViolation, n)
		}

		created = created[:0]
		for _, u := range users {
			row, err := q.CreateUser(ctx, CreateUserParams{Name: u.Name, Email: u.Email, CreatedAt: r.timestamp()})
			if err != nil {
				return translateError(err)
			}
			created = append(created, row.toCore())
		}

		owner := created[0].ID
		account, err = q.CreateAccount(ctx, CreateAccountParams{
			Name:                a.Name,
			OpeningBalanceCents: opening.Cents,
			UserID:              owner,
			CreatedAt:           r.timestamp(),
		})
		if err != nil {
			return translateError(err)
		}
		if err := adjustAccountCount(ctx, q, owner, 1); err != nil {
			return err
		}
		created[0].AccountCount++
		return nil
	})
	if err != nil {
		return nil, core.Account{}, fmt.Errorf("seed fixtures: %w", err)
	}

	slog.InfoContext(ctx, "Fixtures saved",
		"users", len(created),
		"account_id", account.ID)
	return created, account.toCore(), nil
}

// Accounts

// CreateAccount opens an account with the given opening balance and counts it
// on its owner. The opening balance is not a transaction.
func (r *SQLiteRepository) CreateAccount(ctx context.Context, name string, opening core.Money, userID int64) (core.Account, error) {
	a := core.Account{Name: strings.TrimSpace(name), OpeningBalance: opening, UserID: userID}
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}

	var created Account
	err := r.inTx(ctx, func(q *Queries) error {
		if _, err := q.GetUser(ctx, userID); err != nil {
			if isNoRows(err) {
				return notFound("user", userID)
			}
			return translateError(err)
		}

		var err error
		created, err = q.CreateAccount(ctx, CreateAccountParams{
			Name:                a.Name,
			OpeningBalanceCents: opening.Cents,
			UserID:              userID,
			CreatedAt:           r.timestamp(),
		})
		if err != nil {
			return translateError(err)
		}

		return adjustAccountCount(ctx, q, userID, 1)
	})
	if err != nil {
		return core.Account{}, fmt.Errorf("create account: %w", err)
	}

	slog.InfoContext(ctx, "Account saved",
		"account_id", created.ID,
		"user_id", userID,
		"opening_cents", opening.Cents)
	return created.toCore(), nil
}

func (r *SQLiteRepository) GetAccount(ctx context.Context, id int64) (core.Account, error) {
	row, err := r.queries.GetAccount(ctx, id)
	if err != nil {
		if isNoRows(err) {
			return core.Account{}, fmt.Errorf("get account: %w", notFound("account", id))
		}
		return core.Account{}, fmt.Errorf("get account %d: %w", id, translateError(err))
	}
	return row.toCore(), nil
}

func (r *SQLiteRepository) ListAccounts(ctx context.Context) ([]core.Account, error) {
	rows, err := r.queries.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", translateError(err))
	}
	return accountsToCore(rows), nil
}

// ListAccountsByUser returns the user's accounts; a missing user is ErrNotFound.
func (r *SQLiteRepository) ListAccountsByUser(ctx context.Context, userID int64) ([]core.Account, error) {
	var rows []Account
	err := r.inTx(ctx, func(q *Queries) error {
		if _, err := q.GetUser(ctx, userID); err != nil {
			if isNoRows(err) {
				return notFound("user", userID)
			}
			return translateError(err)
		}
		var err error
		rows, err = q.ListAccountsByUser(ctx, userID)
		return translateError(err)
	})
	if err != nil {
		return nil, fmt.Errorf("list accounts of user: %w", err)
	}
	return accountsToCore(rows), nil
}

// DeleteAccount removes the account and, by cascade, its transactions.
func (r *SQLiteRepository) DeleteAccount(ctx context.Context, id int64) (core.Account, error) {
	var deleted Account
	err := r.inTx(ctx, func(q *Queries) error {
		var err error
		deleted, err = q.GetAccount(ctx, id)
		if err != nil {
			if isNoRows(err) {
				return notFound("account", id)
			}
			return translateError(err)
		}
		if _, err := q.DeleteAccount(ctx, id); err != nil {
			return translateError(err)
		}
		return adjustAccountCount(ctx, q, deleted.UserID, -1)
	})
	if err != nil {
		return core.Account{}, fmt.Errorf("delete account: %w", err)
	}

	slog.InfoContext(ctx, "Account deleted",
		"account_id", id,
		"user_id", deleted.UserID,
		"transactions", deleted.TransactionCount)
	return deleted.toCore(), nil
}

func adjustAccountCount(ctx context.Context, q *Queries, userID, delta int64) error {
	n, err := q.AdjustUserAccountCount(ctx, userID, delta)
	if err != nil {
		return translateError(err)
	}
	if n != 1 {
		return notFound("user", userID)
	}
	return nil
}

func accountsToCore(rows []Account) []core.Account {
	accounts := make([]core.Account, len(rows))
	for i, row := range rows {
		accounts[i] = row.toCore()
	}
	return accounts
}

// Transactions

// Amendment lists the fields to change on a transaction. Nil fields are kept.
type Amendment struct {
	Name   *string
	Amount *core.Money
	Type   *core.TransactionType
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	t.Name = strings.TrimSpace(t.Name)
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}

	var created core.Transaction
	err := r.inTx(ctx, func(q *Queries) error {
		if err := requireAccount(ctx, q, t.AccountID); err != nil {
			return err
		}
		var err error
		created, err = r.record(ctx, q, ledger.Event{Kind: ledger.Insert, New: &t})
		return err
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"transaction_id", created.ID,
		"account_id", created.AccountID,
		"amount_cents", created.Amount.Cents,
		"tx_type", created.Type.String())
	return created, nil
}

// CreateTransactions writes all transactions for one account as a single unit
// of work: either every row and its balance effect is committed, or none is.
func (r *SQLiteRepository) CreateTransactions(ctx context.Context, accountID int64, txs []core.Transaction) ([]core.Transaction, error) {
	txs = slices.Clone(txs)
	for i := range txs {
		txs[i].AccountID = accountID
		txs[i].Name = strings.TrimSpace(txs[i].Name)
		if err := txs[i].Validate(); err != nil {
			return nil, &BatchError{Index: i, Err: err}
		}
	}

	created := make([]core.Transaction, 0, len(txs))
	err := r.inTx(ctx, func(q *Queries) error {
		if err := requireAccount(ctx, q, accountID); err != nil {
			return err
		}
		for i := range txs {
			saved, err := r.record(ctx, q, ledger.Event{Kind: ledger.Insert, New: &txs[i]})
			if err != nil {
				return &BatchError{Index: i, Succeeded: i, Err: err}
			}
			created = append(created, saved)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create transactions: %w", err)
	}

	slog.InfoContext(ctx, "Transaction batch saved",
		"account_id", accountID,
		"count", len(created))
	return created, nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	row, err := r.queries.GetTransaction(ctx, id)
	if err != nil {
		if isNoRows(err) {
			return core.Transaction{}, fmt.Errorf("get transaction: %w", notFound("transaction", id))
		}
		return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, translateError(err))
	}
	return row.toCore(), nil
}

// AmendTransaction changes name, amount or type of a transaction and
// re-balances its account. The account and creation time never change.
func (r *SQLiteRepository) AmendTransaction(ctx context.Context, id int64, change Amendment) (core.Transaction, error) {
	var amended core.Transaction
	err := r.inTx(ctx, func(q *Queries) error {
		old, err := loadTransaction(ctx, q, id)
		if err != nil {
			return err
		}

		updated := old
		if change.Name != nil {
			updated.Name = strings.TrimSpace(*change.Name)
		}
		if change.Amount != nil {
			updated.Amount = *change.Amount
		}
		if change.Type != nil {
			updated.Type = *change.Type
		}
		if err := updated.Validate(); err != nil {
			return err
		}

		amended, err = r.record(ctx, q, ledger.Event{Kind: ledger.Amend, Old: &old, New: &updated})
		return err
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("amend transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction amended",
		"transaction_id", amended.ID,
		"account_id", amended.AccountID,
		"amount_cents", amended.Amount.Cents,
		"tx_type", amended.Type.String())
	return amended, nil
}

// RemoveTransaction deletes a transaction and reverses its balance effect.
func (r *SQLiteRepository) RemoveTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	var removed core.Transaction
	err := r.inTx(ctx, func(q *Queries) error {
		old, err := loadTransaction(ctx, q, id)
		if err != nil {
			return err
		}
		removed, err = r.record(ctx, q, ledger.Event{Kind: ledger.Remove, Old: &old})
		return err
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("remove transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction removed",
		"transaction_id", removed.ID,
		"account_id", removed.AccountID)
	return removed, nil
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.queries.ListTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", translateError(err))
	}
	return transactionsToCore(rows), nil
}

// ListTransactionsByAccount returns the account's log ordered by creation
// time, ties broken by id.
func (r *SQLiteRepository) ListTransactionsByAccount(ctx context.Context, accountID int64) ([]core.Transaction, error) {
	_, txs, err := r.AccountLedger(ctx, accountID)
	return txs, err
}

// AccountLedger reads the account row and its full ordered log from one
// snapshot.
func (r *SQLiteRepository) AccountLedger(ctx context.Context, accountID int64) (core.Account, []core.Transaction, error) {
	var (
		account Account
		rows    []Transaction
	)
	err := r.inTx(ctx, func(q *Queries) error {
		var err error
		account, err = q.GetAccount(ctx, accountID)
		if err != nil {
			if isNoRows(err) {
				return notFound("account", accountID)
			}
			return translateError(err)
		}
		rows, err = q.ListTransactionsByAccount(ctx, accountID)
		return translateError(err)
	})
	if err != nil {
		return core.Account{}, nil, fmt.Errorf("read account ledger: %w", err)
	}
	return account.toCore(), transactionsToCore(rows), nil
}

// VerifyAccount recomputes the account aggregate from its log. A mismatch is
// reported as a *ledger.DriftError.
func (r *SQLiteRepository) VerifyAccount(ctx context.Context, accountID int64) error {
	account, txs, err := r.AccountLedger(ctx, accountID)
	if err != nil {
		return err
	}
	return ledger.Verify(account, txs)
}

// record is the single write path for the transactions table. It writes the
// event to the log and applies the matching balance delta through q, which
// must belong to an open SQL transaction.
func (r *SQLiteRepository) record(ctx context.Context, q *Queries, e ledger.Event) (core.Transaction, error) {
	var (
		row Transaction
		err error
	)
	switch e.Kind {
	case ledger.Insert:
		row, err = q.CreateTransaction(ctx, CreateTransactionParams{
			Name:        e.New.Name,
			AmountCents: e.New.Amount.Cents,
			Type:        int64(e.New.Type.Code()),
			AccountID:   e.New.AccountID,
			CreatedAt:   r.timestamp(),
		})
	case ledger.Amend:
		row, err = q.UpdateTransaction(ctx, UpdateTransactionParams{
			ID:          e.Old.ID,
			Name:        e.New.Name,
			AmountCents: e.New.Amount.Cents,
			Type:        int64(e.New.Type.Code()),
		})
	case ledger.Remove:
		var n int64
		n, err = q.DeleteTransaction(ctx, e.Old.ID)
		if err == nil && n != 1 {
			return core.Transaction{}, notFound("transaction", e.Old.ID)
		}
		row = Transaction{
			ID:          e.Old.ID,
			Name:        e.Old.Name,
			AmountCents: e.Old.Amount.Cents,
			Type:        int64(e.Old.Type.Code()),
			AccountID:   e.Old.AccountID,
			CreatedAt:   e.Old.CreatedAt.UnixNano(),
		}
	default:
		return core.Transaction{}, fmt.Errorf("%w: unknown event kind %q", core.ErrInvalidArgument, e.Kind)
	}
	if err != nil {
		return core.Transaction{}, translateError(err)
	}

	saved := row.toCore()
	if e.Kind != ledger.Remove {
		e.New = &saved
	}
	delta, err := e.Delta()
	if err != nil {
		return core.Transaction{}, err
	}

	account, err := q.GetAccount(ctx, delta.AccountID)
	if err != nil {
		if isNoRows(err) {
			return core.Transaction{}, notFound("account", delta.AccountID)
		}
		return core.Transaction{}, translateError(err)
	}
	if _, err := (core.Money{Cents: account.BalanceCents}).CheckedAdd(delta.Balance); err != nil {
		return core.Transaction{}, fmt.Errorf("account %d: %w", delta.AccountID, err)
	}

	n, err := q.ApplyAccountDelta(ctx, ApplyAccountDeltaParams{
		ID:           delta.AccountID,
		BalanceCents: delta.Balance.Cents,
		Transactions: delta.Transactions,
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("apply balance delta: %w", translateError(err))
	}
	if n != 1 {
		return core.Transaction{}, notFound("account", delta.AccountID)
	}
	return saved, nil
}

func requireAccount(ctx context.Context, q *Queries, id int64) error {
	if _, err := q.GetAccount(ctx, id); err != nil {
		if isNoRows(err) {
			return notFound("account", id)
		}
		return translateError(err)
	}
	return nil
}

func loadTransaction(ctx context.Context, q *Queries, id int64) (core.Transaction, error) {
	row, err := q.GetTransaction(ctx, id)
	if err != nil {
		if isNoRows(err) {
			return core.Transaction{}, notFound("transaction", id)
		}
		return core.Transaction{}, translateError(err)
	}
	return row.toCore(), nil
}

func transactionsToCore(rows []Transaction) []core.Transaction {
	txs := make([]core.Transaction, len(rows))
	for i, row := range rows {
		txs[i] = row.toCore()
	}
	return txs
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
