package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

const userColumns = `id, name, email, account_count, created_at`

const accountColumns = `id, name, opening_balance_cents, balance_cents, transaction_count, user_id, created_at`

const transactionColumns = `id, name, amount_cents, type, account_id, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.AccountCount, &u.CreatedAt)
	return u, err
}

func scanAccount(row rowScanner) (Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.Name, &a.OpeningBalanceCents, &a.BalanceCents, &a.TransactionCount, &a.UserID, &a.CreatedAt)
	return a, err
}

func scanTransaction(row rowScanner) (Transaction, error) {
	var t Transaction
	err := row.Scan(&t.ID, &t.Name, &t.AmountCents, &t.Type, &t.AccountID, &t.CreatedAt)
	return t, err
}

func collect[T any](rows *sql.Rows, scan func(rowScanner) (T, error)) ([]T, error) {
	defer rows.Close()
	var items []T
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// Users

const createUser = `INSERT INTO users (name, email, account_count, created_at)
VALUES (?, ?, 0, ?)
RETURNING ` + userColumns

type CreateUserParams struct {
	Name      string
	Email     string
	CreatedAt int64
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, createUser, arg.Name, arg.Email, arg.CreatedAt))
}

const getUser = `SELECT ` + userColumns + ` FROM users WHERE id = ?`

func (q *Queries) GetUser(ctx context.Context, id int64) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUser, id))
}

const listUsers = `SELECT ` + userColumns + ` FROM users ORDER BY id`

func (q *Queries) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := q.db.QueryContext(ctx, listUsers)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanUser)
}

const countUsers = `SELECT count(*) FROM users`

func (q *Queries) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countUsers).Scan(&n)
	return n, err
}

const adjustUserAccountCount = `UPDATE users SET account_count = account_count + ? WHERE id = ?`

func (q *Queries) AdjustUserAccountCount(ctx context.Context, id, delta int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, adjustUserAccountCount, delta, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Accounts

const createAccount = `INSERT INTO accounts (name, opening_balance_cents, balance_cents, transaction_count, user_id, created_at)
VALUES (?, ?, ?, 0, ?, ?)
RETURNING ` + accountColumns

type CreateAccountParams struct {
	Name                string
	OpeningBalanceCents int64
	UserID              int64
	CreatedAt           int64
}

func (q *Queries) CreateAccount(ctx context.Context, arg CreateAccountParams) (Account, error) {
	return scanAccount(q.db.QueryRowContext(ctx, createAccount,
		arg.Name, arg.OpeningBalanceCents, arg.OpeningBalanceCents, arg.UserID, arg.CreatedAt))
}

const getAccount = `SELECT ` + accountColumns + ` FROM accounts WHERE id = ?`

func (q *Queries) GetAccount(ctx context.Context, id int64) (Account, error) {
	return scanAccount(q.db.QueryRowContext(ctx, getAccount, id))
}

const listAccounts = `SELECT ` + accountColumns + ` FROM accounts ORDER BY id`

func (q *Queries) ListAccounts(ctx context.Context) ([]Account, error) {
	rows, err := q.db.QueryContext(ctx, listAccounts)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanAccount)
}

const listAccountsByUser = `SELECT ` + accountColumns + ` FROM accounts WHERE user_id = ? ORDER BY id`

func (q *Queries) ListAccountsByUser(ctx context.Context, userID int64) ([]Account, error) {
	rows, err := q.db.QueryContext(ctx, listAccountsByUser, userID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanAccount)
}

const applyAccountDelta = `UPDATE accounts
SET balance_cents = balance_cents + ?, transaction_count = transaction_count + ?
WHERE id = ?`

type ApplyAccountDeltaParams struct {
	ID           int64
	BalanceCents int64
	Transactions int64
}

func (q *Queries) ApplyAccountDelta(ctx context.Context, arg ApplyAccountDeltaParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, applyAccountDelta, arg.BalanceCents, arg.Transactions, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteAccount = `DELETE FROM accounts WHERE id = ?`

func (q *Queries) DeleteAccount(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteAccount, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Transactions

const createTransaction = `INSERT INTO transactions (name, amount_cents, type, account_id, created_at)
VALUES (?, ?, ?, ?, ?)
RETURNING ` + transactionColumns

type CreateTransactionParams struct {
	Name        string
	AmountCents int64
	Type        int64
	AccountID   int64
	CreatedAt   int64
}

func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) (Transaction, error) {
	return scanTransaction(q.db.QueryRowContext(ctx, createTransaction,
		arg.Name, arg.AmountCents, arg.Type, arg.AccountID, arg.CreatedAt))
}

const getTransaction = `SELECT ` + transactionColumns + ` FROM transactions WHERE id = ?`

func (q *Queries) GetTransaction(ctx context.Context, id int64) (Transaction, error) {
	return scanTransaction(q.db.QueryRowContext(ctx, getTransaction, id))
}

const updateTransaction = `UPDATE transactions
SET name = ?, amount_cents = ?, type = ?
WHERE id = ?
RETURNING ` + transactionColumns

type UpdateTransactionParams struct {
	ID          int64
	Name        string
	AmountCents int64
	Type        int64
}

func (q *Queries) UpdateTransaction(ctx context.Context, arg UpdateTransactionParams) (Transaction, error) {
	return scanTransaction(q.db.QueryRowContext(ctx, updateTransaction, arg.Name, arg.AmountCents, arg.Type, arg.ID))
}

const deleteTransaction = `DELETE FROM transactions WHERE id = ?`

func (q *Queries) DeleteTransaction(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteTransaction, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const listTransactions = `SELECT ` + transactionColumns + ` FROM transactions ORDER BY id`

func (q *Queries) ListTransactions(ctx context.Context) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, listTransactions)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanTransaction)
}

// Served by idx_transactions_account_created.
const listTransactionsByAccount = `SELECT ` + transactionColumns + `
FROM transactions
WHERE account_id = ?
ORDER BY created_at, id`

func (q *Queries) ListTransactionsByAccount(ctx context.Context, accountID int64) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, listTransactionsByAccount, accountID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanTransaction)
}
