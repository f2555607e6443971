package export

import (
	"context"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger/internal/core"
)

func TestWriteAndRead(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	txs := []core.Transaction{
		{ID: 1, Name: "Salary, March", Amount: core.NewMoney(1500), Type: core.Credit, AccountID: 9, CreatedAt: created},
		{ID: 2, Name: "Rent", Amount: core.Money{Cents: 80050}, Type: core.Debit, AccountID: 9, CreatedAt: created.Add(time.Hour)},
	}
	require.NoError(t, store.Write(context.Background(), 9, txs))

	content, err := store.Read(9)
	require.NoError(t, err)

	records, err := csv.NewReader(strings.NewReader(content)).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"id", "name", "amount", "type", "created_at"},
		{"1", "Salary, March", "1500.00", "CREDIT", "2025-01-02T03:04:05Z"},
		{"2", "Rent", "800.50", "DEBIT", "2025-01-02T04:04:05Z"},
	}, records)
	assert.True(t, strings.HasSuffix(store.Path(9), "account_9.csv"))
}

func TestWriteReplacesExport(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, 1, []core.Transaction{{ID: 1, Name: "a", Amount: core.NewMoney(1)}}))
	require.NoError(t, store.Write(ctx, 1, nil))

	content, err := store.Read(1)
	require.NoError(t, err)
	assert.Equal(t, "id,name,amount,type,created_at\n", content)
}

func TestReadMissingExport(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Read(404)
	assert.ErrorIs(t, err, core.ErrNotFound)

	require.NoError(t, store.Remove(404))
}
