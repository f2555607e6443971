package http

import (
	"net/http"

	"ledger/internal/core"
	applog "ledger/internal/log"
)

type userView struct {
	User     core.User      `json:"user"`
	Accounts []core.Account `json:"accounts"`
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	p, ok := s.parseBody(w, r)
	if !ok {
		return
	}

	user, err := s.ledger.CreateUser(r.Context(), p.Get("name"), p.Get("email"))
	if err != nil {
		s.fail(w, r, applog.OpCreate, err, nil)
		return
	}

	applog.FromContext(r.Context()).InfoContext(r.Context(), "User created", applog.FieldUserID, user.ID)
	NewResponse().Status(http.StatusCreated).JSON(user).Write(w)
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.ledger.ListUsers(r.Context())
	if err != nil {
		s.fail(w, r, applog.OpList, err, nil)
		return
	}
	NewResponse().JSON(users).Write(w)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "userID")
	if err != nil {
		s.fail(w, r, applog.OpRead, err, nil)
		return
	}

	user, accounts, err := s.ledger.UserView(r.Context(), id)
	if err != nil {
		s.fail(w, r, applog.OpRead, err, applog.LogFields{applog.FieldUserID: id})
		return
	}
	NewResponse().JSON(userView{User: user, Accounts: accounts}).Write(w)
}
