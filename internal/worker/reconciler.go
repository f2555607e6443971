package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Reconciler runs ReconcileAll on a fixed interval until stopped.
type Reconciler struct {
	worker   *LedgerWorker
	interval time.Duration

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewReconciler(w *LedgerWorker, interval time.Duration) *Reconciler {
	return &Reconciler{worker: w, interval: interval}
}

// Start begins the loop. Returns an error if already running.
func (r *Reconciler) Start(ctx context.Context) error {
	if r.interval <= 0 {
		return fmt.Errorf("reconcile interval must be positive, got %v", r.interval)
	}

	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return fmt.Errorf("reconciler is already running")
	}
	r.running = true
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})
	stopCh, doneCh := r.stopCh, r.doneCh
	r.mu.Unlock()

	go r.runLoop(ctx, stopCh, doneCh)

	slog.InfoContext(ctx, "Reconciler started", "interval", r.interval)
	return nil
}

// Stop signals the loop and waits for the current pass to finish. It is safe
// to call again after a timed-out Stop; the later call keeps waiting for the
// same pass.
func (r *Reconciler) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	if r.stopCh != nil {
		close(r.stopCh)
		r.stopCh = nil
	}
	doneCh := r.doneCh
	r.mu.Unlock()

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Reconciler stopped gracefully")
		return nil
	case <-ctx.Done():
		slog.WarnContext(ctx, "Reconciler stop timed out")
		return ctx.Err()
	}
}

func (r *Reconciler) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

func (r *Reconciler) runLoop(ctx context.Context, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer func() {
		r.mu.Lock()
		r.running = false
		r.stopCh = nil
		r.mu.Unlock()
		close(doneCh)
	}()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.pass(ctx)

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.pass(ctx)
		}
	}
}

func (r *Reconciler) pass(ctx context.Context) {
	if _, err := r.worker.ReconcileAll(ctx); err != nil && ctx.Err() == nil {
		slog.ErrorContext(ctx, "Reconciliation failed", "error", err)
	}
}
