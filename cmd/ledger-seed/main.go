// Command ledger-seed loads demo fixtures and bulk-generates transactions.
//
//	ledger-seed -fixtures                 create the demo users and account
//	ledger-seed -account 1 -count 10000   append generated transactions
package main

import (
	"context"
	"flag"
	"os"

	"ledger/internal/cli"
	applog "ledger/internal/log"
	"ledger/internal/services"
)

func main() {
	fixtures := flag.Bool("fixtures", false, "create the demo users and account")
	accountID := flag.Int64("account", 0, "account to generate transactions for")
	count := flag.Int("count", 10000, "number of transactions to generate")
	seed := flag.Uint64("seed", 0, "random seed for generation (0 picks one)")
	flag.Parse()

	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentSeed)
	cfg := cli.LoadAndValidateConfig(logger)

	if !*fixtures && *accountID == 0 {
		flag.Usage()
		os.Exit(2)
	}

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	opts := []services.Option{}
	if *seed != 0 {
		opts = append(opts, services.WithSeed(*seed))
	}
	if client := cli.InitAMQP(logger, cfg); client != nil {
		opts = append(opts, services.WithPublisher(client))
	}
	svc := services.NewLedgerService(repo, opts...)

	ctx, stop := cli.SignalContext()
	code := run(ctx, logger, svc, *fixtures, *accountID, *count)
	stop()

	if err := svc.Close(); err != nil {
		logger.ErrorContext(context.Background(), "Failed to close ledger service", applog.FieldError, err)
	}
	os.Exit(code)
}

func run(ctx context.Context, logger *applog.Logger, svc *services.LedgerService, fixtures bool, accountID int64, count int) int {
	if fixtures {
		f, err := svc.Seed(ctx)
		if err != nil {
			logger.ErrorContext(ctx, "Seeding fixtures failed", applog.FieldError, err)
			return 1
		}
		logger.InfoContext(ctx, "Fixtures created",
			"users", len(f.Users),
			applog.FieldAccountID, f.Account.ID)
		if accountID == 0 {
			accountID = f.Account.ID
		}
	}

	if accountID == 0 {
		return 0
	}

	summary, err := svc.GenerateTransactions(ctx, accountID, count)
	if err != nil {
		logger.ErrorContext(ctx, "Generating transactions failed",
			applog.FieldError, err,
			applog.FieldAccountID, accountID)
		return 1
	}
	logger.InfoContext(ctx, "Transactions generated",
		applog.FieldAccountID, summary.AccountID,
		applog.FieldCount, summary.Created,
		"credits", summary.Credits,
		"debits", summary.Debits,
		"balance", summary.Balance.String(),
		"duration", summary.Duration)
	return 0
}
