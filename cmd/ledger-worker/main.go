package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"ledger/internal/cli"
	applog "ledger/internal/log"
	"ledger/internal/services"
	"ledger/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentWorker)
	logger.InfoContext(context.Background(), "Starting ledger-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	exports := cli.InitExports(logger, cfg.ExportDir)

	// The worker consumes events but never publishes them.
	svc := services.NewLedgerService(repo, services.WithExports(exports))
	defer svc.Close()

	ledgerWorker := worker.NewLedgerWorker(svc, exports)
	reconciler := worker.NewReconciler(ledgerWorker, cfg.ReconcileInterval)

	ctx, stop := cli.SignalContext()
	defer stop()

	// The first pass runs immediately and catches changes made while the
	// worker was down.
	if err := reconciler.Start(ctx); err != nil {
		logger.ErrorContext(ctx, "Failed to start reconciler", applog.FieldError, err)
		os.Exit(1)
	}

	g, gctx := errgroup.WithContext(ctx)
	if client := cli.InitAMQP(logger, cfg); client != nil {
		defer client.Close()
		g.Go(func() error {
			err := client.ConsumeLedgerEvents(gctx, ledgerWorker.HandleEvent)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	} else {
		logger.InfoContext(ctx, "Skipping AMQP consumption, running periodic reconcile only")
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		logger.InfoContext(shutdownCtx, "Shutting down worker")
		return reconciler.Stop(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.ErrorContext(context.Background(), "Worker stopped with error", applog.FieldError, err)
		os.Exit(1)
	}
	logger.InfoContext(context.Background(), "Worker shutdown complete")
}
