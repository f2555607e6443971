package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger/internal/amqp"
	"ledger/internal/core"
	"ledger/internal/ledger"
)

type fakeLedger struct {
	mu        sync.Mutex
	accounts  []core.Account
	verifyErr map[int64]error
	exportErr error
	exported  []int64
	verified  int
	block     chan struct{}
}

func (f *fakeLedger) ListAccounts(context.Context) ([]core.Account, error) {
	return f.accounts, nil
}

func (f *fakeLedger) VerifyAccount(_ context.Context, id int64) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verified++
	return f.verifyErr[id]
}

func (f *fakeLedger) ExportAccount(_ context.Context, id int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.exportErr != nil {
		return 0, f.exportErr
	}
	f.exported = append(f.exported, id)
	return 3, nil
}

func (f *fakeLedger) verifications() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.verified
}

type fakeExports struct {
	removed []int64
}

func (f *fakeExports) Remove(id int64) error {
	f.removed = append(f.removed, id)
	return nil
}

func drift(id int64) error {
	return &ledger.DriftError{AccountID: id, StoredBalance: core.NewMoney(1), ExpectedBalance: core.NewMoney(2)}
}

func TestHandleEvent(t *testing.T) {
	tests := []struct {
		name         string
		msg          *amqp.LedgerEventMessage
		verifyErr    error
		exportErr    error
		wantErr      bool
		wantExported []int64
		wantRemoved  []int64
	}{
		{
			name:         "transaction created refreshes export",
			msg:          amqp.NewTransactionEvent(amqp.TransactionCreated, 1, 10),
			wantExported: []int64{1},
		},
		{
			name:         "drift is logged and export still refreshed",
			msg:          amqp.NewTransactionEvent(amqp.TransactionAmended, 1, 10),
			verifyErr:    drift(1),
			wantExported: []int64{1},
		},
		{
			name:        "deleted account drops export",
			msg:         amqp.NewLedgerEventMessage(amqp.AccountDeleted, 2),
			wantRemoved: []int64{2},
		},
		{
			name:        "account gone before handling",
			msg:         amqp.NewGeneratedEvent(3, 100),
			verifyErr:   core.ErrNotFound,
			wantRemoved: []int64{3},
		},
		{
			name:      "storage failure is retried",
			msg:       amqp.NewTransactionEvent(amqp.TransactionRemoved, 1, 10),
			verifyErr: core.ErrStorageFailure,
			wantErr:   true,
		},
		{
			name:      "export failure is retried",
			msg:       amqp.NewTransactionEvent(amqp.TransactionCreated, 1, 10),
			exportErr: errors.New("disk full"),
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := &fakeLedger{
				verifyErr: map[int64]error{tt.msg.AccountID: tt.verifyErr},
				exportErr: tt.exportErr,
			}
			exports := &fakeExports{}
			w := NewLedgerWorker(l, exports)

			err := w.HandleEvent(context.Background(), tt.msg)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantExported, l.exported)
			assert.Equal(t, tt.wantRemoved, exports.removed)
		})
	}
}

func TestReconcileAll(t *testing.T) {
	l := &fakeLedger{
		accounts: []core.Account{{ID: 1}, {ID: 2}, {ID: 3}, {ID: 4}},
		verifyErr: map[int64]error{
			2: drift(2),
			4: core.ErrNotFound,
		},
	}
	w := NewLedgerWorker(l, nil)

	res, err := w.ReconcileAll(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 3, res.Checked)
	assert.Equal(t, []int64{2}, res.Drifted)
}

func TestReconcileAllStopsOnStorageFailure(t *testing.T) {
	l := &fakeLedger{
		accounts:  []core.Account{{ID: 1}, {ID: 2}},
		verifyErr: map[int64]error{1: core.ErrStorageFailure},
	}

	_, err := NewLedgerWorker(l, nil).ReconcileAll(context.Background())

	assert.ErrorIs(t, err, core.ErrStorageFailure)
}

func TestReconciler_Lifecycle(t *testing.T) {
	l := &fakeLedger{accounts: []core.Account{{ID: 1}}}
	r := NewReconciler(NewLedgerWorker(l, nil), 10*time.Millisecond)
	ctx := context.Background()

	assert.False(t, r.IsRunning())
	require.NoError(t, r.Start(ctx))
	assert.True(t, r.IsRunning())
	assert.Error(t, r.Start(ctx), "second start should fail")

	assert.Eventually(t, func() bool { return l.verifications() >= 2 }, time.Second, 5*time.Millisecond)

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	require.NoError(t, r.Stop(stopCtx))
	assert.False(t, r.IsRunning())
	require.NoError(t, r.Stop(stopCtx))
}

func TestReconciler_StopAfterTimeout(t *testing.T) {
	release := make(chan struct{})
	l := &fakeLedger{accounts: []core.Account{{ID: 1}}, block: release}
	r := NewReconciler(NewLedgerWorker(l, nil), time.Hour)
	ctx := context.Background()
	require.NoError(t, r.Start(ctx))

	// The first pass is stuck in VerifyAccount, so both stops time out.
	for i := 0; i < 2; i++ {
		stopCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		err := r.Stop(stopCtx)
		cancel()
		require.ErrorIs(t, err, context.DeadlineExceeded)
		assert.True(t, r.IsRunning())
	}
	assert.Error(t, r.Start(ctx), "start while the old loop drains should fail")

	close(release)
	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	require.NoError(t, r.Stop(stopCtx))
	assert.False(t, r.IsRunning())

	// The reconciler can be started again once the old loop is gone.
	require.NoError(t, r.Start(ctx))
	require.NoError(t, r.Stop(stopCtx))
}

func TestReconciler_RejectsZeroInterval(t *testing.T) {
	r := NewReconciler(NewLedgerWorker(&fakeLedger{}, nil), 0)
	assert.Error(t, r.Start(context.Background()))
}
