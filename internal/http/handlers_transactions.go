package http

import (
	"errors"
	"fmt"
	"net/http"

	"ledger/internal/core"
	"ledger/internal/ledger"
	applog "ledger/internal/log"
	"ledger/internal/storage"
)

// maxGenerateCount bounds a single bulk load request.
const maxGenerateCount = 100_000

// defaultGenerateCount is used when a generate request names no count.
const defaultGenerateCount = 10_000

type transactionView struct {
	core.Transaction
	DisplayName string `json:"display_name"`
}

type accountLedgerView struct {
	Account      core.Account      `json:"account"`
	Transactions []transactionView `json:"transactions"`
}

type budgetView struct {
	AccountID    int64             `json:"account_id"`
	Budget       core.Money        `json:"budget"`
	Total        core.Money        `json:"total"`
	Transactions []transactionView `json:"transactions"`
}

func viewOf(t core.Transaction) transactionView {
	return transactionView{Transaction: t, DisplayName: t.DisplayName()}
}

func viewsOf(txs []core.Transaction) []transactionView {
	views := make([]transactionView, 0, len(txs))
	for _, t := range txs {
		views = append(views, viewOf(t))
	}
	return views
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	p, ok := s.parseBody(w, r)
	if !ok {
		return
	}

	accountID, err := p.Int64("account_id")
	if err != nil {
		s.fail(w, r, applog.OpCreate, err, nil)
		return
	}
	amount, err := p.Money("amount")
	if err != nil {
		s.fail(w, r, applog.OpCreate, err, applog.NewFields().WithAccount(accountID))
		return
	}
	txType, err := p.Type("type")
	if err != nil {
		s.fail(w, r, applog.OpCreate, err, applog.NewFields().WithAccount(accountID))
		return
	}

	created, err := s.ledger.CreateTransaction(r.Context(), core.Transaction{
		Name:      p.Get("name"),
		Amount:    amount,
		Type:      txType,
		AccountID: accountID,
	})
	if err != nil {
		s.fail(w, r, applog.OpCreate, err, applog.NewFields().WithAccount(accountID))
		return
	}

	events(r).LogTransaction(r.Context(), applog.OpCreate, created)
	NewResponse().Status(http.StatusCreated).JSON(viewOf(created)).Write(w)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := s.ledger.ListTransactions(r.Context())
	if err != nil {
		s.fail(w, r, applog.OpList, err, nil)
		return
	}
	NewResponse().JSON(viewsOf(txs)).Write(w)
}

// amendmentFrom collects the fields present in the body. At least one of
// name, amount or type is required.
func amendmentFrom(p *RequestBodyParser) (storage.Amendment, error) {
	var change storage.Amendment
	if p.Has("name") {
		name := p.Get("name")
		change.Name = &name
	}
	if p.Has("amount") {
		amount, err := p.Money("amount")
		if err != nil {
			return change, err
		}
		change.Amount = &amount
	}
	if p.Has("type") {
		txType, err := p.Type("type")
		if err != nil {
			return change, err
		}
		change.Type = &txType
	}
	if change.Name == nil && change.Amount == nil && change.Type == nil {
		return change, fmt.Errorf("%w: nothing to amend", core.ErrInvalidArgument)
	}
	return change, nil
}

func (s *Server) handleAmendTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "transactionID")
	if err != nil {
		s.fail(w, r, applog.OpAmend, err, nil)
		return
	}
	p, ok := s.parseBody(w, r)
	if !ok {
		return
	}
	change, err := amendmentFrom(p)
	if err != nil {
		s.fail(w, r, applog.OpAmend, err, applog.LogFields{applog.FieldTransactionID: id})
		return
	}

	amended, err := s.ledger.AmendTransaction(r.Context(), id, change)
	if err != nil {
		s.fail(w, r, applog.OpAmend, err, applog.LogFields{applog.FieldTransactionID: id})
		return
	}

	events(r).LogTransaction(r.Context(), applog.OpAmend, amended)
	NewResponse().JSON(viewOf(amended)).Write(w)
}

func (s *Server) handleRemoveTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "transactionID")
	if err != nil {
		s.fail(w, r, applog.OpRemove, err, nil)
		return
	}

	removed, err := s.ledger.RemoveTransaction(r.Context(), id)
	if err != nil {
		s.fail(w, r, applog.OpRemove, err, applog.LogFields{applog.FieldTransactionID: id})
		return
	}

	events(r).LogTransaction(r.Context(), applog.OpRemove, removed)
	NewResponse().JSON(viewOf(removed)).Write(w)
}

func (s *Server) handleWithinBudget(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "accountID")
	if err != nil {
		s.fail(w, r, applog.OpBudget, err, nil)
		return
	}
	budget, err := core.ParseMoney(r.PathValue("amount"))
	if err != nil {
		s.fail(w, r, applog.OpBudget, err, applog.NewFields().WithAccount(id))
		return
	}

	txs, err := s.ledger.GetWithinBudget(r.Context(), id, budget)
	if err != nil {
		s.fail(w, r, applog.OpBudget, err, applog.NewFields().WithAccount(id))
		return
	}

	total, err := ledger.Total(txs)
	if err != nil {
		s.fail(w, r, applog.OpBudget, err, applog.NewFields().WithAccount(id))
		return
	}
	NewResponse().JSON(budgetView{
		AccountID:    id,
		Budget:       budget,
		Total:        total,
		Transactions: viewsOf(txs),
	}).Write(w)
}

func (s *Server) handleGenerateTransactions(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "accountID")
	if err != nil {
		s.fail(w, r, applog.OpGenerate, err, nil)
		return
	}
	p, ok := s.parseBody(w, r)
	if !ok {
		return
	}

	count := defaultGenerateCount
	if p.Has("count") {
		if count, err = p.Int("count"); err != nil {
			s.fail(w, r, applog.OpGenerate, err, applog.NewFields().WithAccount(id))
			return
		}
	}
	if count > maxGenerateCount {
		err := fmt.Errorf("%w: count must not exceed %d", core.ErrInvalidArgument, maxGenerateCount)
		s.fail(w, r, applog.OpGenerate, err, applog.NewFields().WithAccount(id))
		return
	}

	summary, err := s.ledger.GenerateTransactions(r.Context(), id, count)
	if err != nil {
		fields := applog.NewFields().WithAccount(id)
		var batchErr *storage.BatchError
		if errors.As(err, &batchErr) {
			fields[applog.FieldCount] = batchErr.Index
		}
		s.fail(w, r, applog.OpGenerate, err, fields)
		return
	}

	applog.FromContext(r.Context()).InfoContext(r.Context(), "Transactions generated",
		applog.FieldAccountID, id,
		applog.FieldCount, summary.Created)
	NewResponse().Status(http.StatusCreated).JSON(summary).Write(w)
}
