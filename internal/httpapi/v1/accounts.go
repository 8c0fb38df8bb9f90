package v1

import (
	"net/http"

	"github.com/tinoosan/schoolfin/internal/ledger"
	"github.com/tinoosan/schoolfin/internal/service/balance"
	"github.com/tinoosan/schoolfin/internal/service/registry"
)

// postAccount creates an account. The response carries its derived balance, which
// equals the initial balance until something settles into it.
func (s *Server) postAccount(w http.ResponseWriter, r *http.Request) {
	in, ok := validated[registry.AccountInput](r, ctxKeyPostAccount)
	if !ok {
		writeErr(w, http.StatusBadRequest, "validation_error", "validation_error")
		return
	}
	a, err := s.registry.CreateAccount(r.Context(), principalFrom(r), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	b, err := balance.Compute(a, ledger.Totals{})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	toJSON(w, http.StatusCreated, toBalanceResponse(b))
}

func (s *Server) listAccounts(w http.ResponseWriter, r *http.Request) {
	rows, err := s.balance.ListBalances(r.Context(), principalFrom(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]accountBalanceResponse, 0, len(rows))
	for _, b := range rows {
		out = append(out, toBalanceResponse(b))
	}
	toJSON(w, http.StatusOK, out)
}

func (s *Server) getAccountBalance(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	b, err := s.balance.AccountBalance(r.Context(), principalFrom(r), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, toBalanceResponse(b))
}

func (s *Server) listAccountMovements(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	rows, err := s.balance.ListMovements(r.Context(), principalFrom(r), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]movementResponse, 0, len(rows))
	for _, m := range rows {
		out = append(out, toMovementResponse(m))
	}
	toJSON(w, http.StatusOK, out)
}
