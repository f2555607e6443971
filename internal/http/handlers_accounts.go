package http

import (
	"net/http"

	applog "ledger/internal/log"
)

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	p, ok := s.parseBody(w, r)
	if !ok {
		return
	}

	userID, err := p.Int64("user_id")
	if err != nil {
		s.fail(w, r, applog.OpCreate, err, nil)
		return
	}
	// "amount" is accepted as an alias for the opening balance.
	key := "opening_balance"
	if !p.Has(key) && p.Has("amount") {
		key = "amount"
	}
	opening, err := p.OptionalMoney(key)
	if err != nil {
		s.fail(w, r, applog.OpCreate, err, nil)
		return
	}

	account, err := s.ledger.CreateAccount(r.Context(), p.Get("name"), opening, userID)
	if err != nil {
		s.fail(w, r, applog.OpCreate, err, applog.LogFields{applog.FieldUserID: userID})
		return
	}

	applog.FromContext(r.Context()).InfoContext(r.Context(), "Account created",
		applog.FieldAccountID, account.ID,
		applog.FieldUserID, userID,
		applog.FieldAmountCents, opening.Cents)
	NewResponse().Status(http.StatusCreated).JSON(account).Write(w)
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.ledger.ListAccounts(r.Context())
	if err != nil {
		s.fail(w, r, applog.OpList, err, nil)
		return
	}
	NewResponse().JSON(accounts).Write(w)
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "accountID")
	if err != nil {
		s.fail(w, r, applog.OpRead, err, nil)
		return
	}

	account, err := s.ledger.GetAccount(r.Context(), id)
	if err != nil {
		s.fail(w, r, applog.OpRead, err, applog.NewFields().WithAccount(id))
		return
	}
	NewResponse().JSON(account).Write(w)
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "accountID")
	if err != nil {
		s.fail(w, r, applog.OpDelete, err, nil)
		return
	}

	account, err := s.ledger.DeleteAccount(r.Context(), id)
	if err != nil {
		s.fail(w, r, applog.OpDelete, err, applog.NewFields().WithAccount(id))
		return
	}

	applog.FromContext(r.Context()).InfoContext(r.Context(), "Account deleted",
		applog.FieldAccountID, id,
		applog.FieldCount, account.TransactionCount)
	NewResponse().JSON(account).Write(w)
}

func (s *Server) handleAccountTransactions(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "accountID")
	if err != nil {
		s.fail(w, r, applog.OpList, err, nil)
		return
	}

	account, txs, err := s.ledger.AccountTransactions(r.Context(), id)
	if err != nil {
		s.fail(w, r, applog.OpList, err, applog.NewFields().WithAccount(id))
		return
	}
	NewResponse().JSON(accountLedgerView{Account: account, Transactions: viewsOf(txs)}).Write(w)
}

func (s *Server) handleWriteExport(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "accountID")
	if err != nil {
		s.fail(w, r, applog.OpExport, err, nil)
		return
	}

	n, err := s.ledger.ExportAccount(r.Context(), id)
	if err != nil {
		s.fail(w, r, applog.OpExport, err, applog.NewFields().WithAccount(id))
		return
	}

	applog.FromContext(r.Context()).InfoContext(r.Context(), "Account exported",
		applog.FieldAccountID, id,
		applog.FieldCount, n)
	NewResponse().
		Status(http.StatusCreated).
		JSON(map[string]int64{"account_id": id, "transactions": int64(n)}).
		Write(w)
}

func (s *Server) handleReadExport(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "accountID")
	if err != nil {
		s.fail(w, r, applog.OpExport, err, nil)
		return
	}

	content, err := s.ledger.ReadExport(r.Context(), id)
	if err != nil {
		s.fail(w, r, applog.OpExport, err, applog.NewFields().WithAccount(id))
		return
	}
	NewResponse().JSON(map[string]string{"content": content}).Write(w)
}
