package services

import (
	"context"
	"log/slog"

	"ledger/internal/amqp"
	"ledger/internal/core"
	"ledger/internal/storage"
)

// Fixtures are the rows created by Seed.
type Fixtures struct {
	Users   []core.User
	Account core.Account
}

var fixtureUsers = []storage.NewUser{
	{Name: "Valentin Montagne", Email: "contact@vm-it-consulting.com"},
	{Name: "Amélie Dal", Email: "amelie.dal@gmail.com"},
}

const (
	fixtureAccountName    = "Compte courant"
	fixtureOpeningBalance = 2000
)

// Seed creates the demo users and a checking account for the first of them.
// It refuses to run against a ledger that already has users. The check and
// the inserts commit together, so concurrent seeders cannot both succeed.
func (s *LedgerService) Seed(ctx context.Context) (Fixtures, error) {
	users, account, err := s.store.SeedFixtures(ctx, fixtureUsers, fixtureAccountName, core.NewMoney(fixtureOpeningBalance))
	if err != nil {
		return Fixtures{}, err
	}
	s.publish(ctx, amqp.NewLedgerEventMessage(amqp.AccountCreated, account.ID))

	slog.InfoContext(ctx, "Fixtures seeded",
		"users", len(users),
		"account_id", account.ID)
	return Fixtures{Users: users, Account: account}, nil
}
