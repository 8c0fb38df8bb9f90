package v1

import (
	"net/http"

	"github.com/tinoosan/schoolfin/internal/ledger"
	"github.com/tinoosan/schoolfin/internal/service/obligation"
)

func (s *Server) postPayable(w http.ResponseWriter, r *http.Request) {
	in, ok := validated[obligation.PayableInput](r, ctxKeyPostPayable)
	if !ok {
		writeErr(w, http.StatusBadRequest, "validation_error", "validation_error")
		return
	}
	v, err := s.obligations.CreatePayable(r.Context(), principalFrom(r), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	toJSON(w, http.StatusCreated, toPayableResponse(v))
}

func (s *Server) listPayables(w http.ResponseWriter, r *http.Request) {
	rows, err := s.obligations.ListPayables(r.Context(), principalFrom(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]payableResponse, 0, len(rows))
	for _, v := range rows {
		out = append(out, toPayableResponse(v))
	}
	toJSON(w, http.StatusOK, out)
}

// payPayable settles a pending payable and posts its debit.
func (s *Server) payPayable(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	in, ok := validated[settleInput](r, ctxKeySettle)
	if !ok {
		writeErr(w, http.StatusBadRequest, "validation_error", "validation_error")
		return
	}
	p, err := s.settlement.SettlePayable(r.Context(), principalFrom(r), id, in.AccountID, in.On)
	countSettlement("payable", err)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	countMovement(ledger.DirectionDebit, ledger.OriginPayablePayment)
	v, err := s.payableView(r, p)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, toPayableResponse(v))
}

// payableView re-reads the payable through the list so names are resolved.
func (s *Server) payableView(r *http.Request, p ledger.Payable) (obligation.PayableView, error) {
	rows, err := s.obligations.ListPayables(r.Context(), principalFrom(r))
	if err != nil {
		return obligation.PayableView{}, err
	}
	for _, v := range rows {
		if v.ID == p.ID {
			return v, nil
		}
	}
	return obligation.PayableView{Payable: p}, nil
}

func (s *Server) postReceivable(w http.ResponseWriter, r *http.Request) {
	in, ok := validated[obligation.ReceivableInput](r, ctxKeyPostReceivable)
	if !ok {
		writeErr(w, http.StatusBadRequest, "validation_error", "validation_error")
		return
	}
	v, err := s.obligations.CreateReceivable(r.Context(), principalFrom(r), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	toJSON(w, http.StatusCreated, toReceivableResponse(v.Receivable, v.PayerName, v.CategoryName))
}

func (s *Server) listReceivables(w http.ResponseWriter, r *http.Request) {
	rows, err := s.obligations.ListReceivables(r.Context(), principalFrom(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]receivableResponse, 0, len(rows))
	for _, v := range rows {
		out = append(out, toReceivableResponse(v.Receivable, v.PayerName, v.CategoryName))
	}
	toJSON(w, http.StatusOK, out)
}

// receiveReceivable settles a pending receivable and posts its credit.
func (s *Server) receiveReceivable(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	in, ok := validated[settleInput](r, ctxKeySettle)
	if !ok {
		writeErr(w, http.StatusBadRequest, "validation_error", "validation_error")
		return
	}
	got, err := s.settlement.SettleReceivable(r.Context(), principalFrom(r), id, in.AccountID, in.On)
	countSettlement("receivable", err)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	countMovement(ledger.DirectionCredit, ledger.OriginReceivablePayment)
	rows, err := s.obligations.ListReceivables(r.Context(), principalFrom(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	for _, v := range rows {
		if v.ID == got.ID {
			toJSON(w, http.StatusOK, toReceivableResponse(v.Receivable, v.PayerName, v.CategoryName))
			return
		}
	}
	toJSON(w, http.StatusOK, toReceivableResponse(got, nil, nil))
}

func (s *Server) getStatement(w http.ResponseWriter, r *http.Request) {
	personID, err := pathID(r, "person_id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	q, _ := validated[statementQuery](r, ctxKeyStatement)
	st, err := s.obligations.Statement(r.Context(), principalFrom(r), personID, q.From, q.To)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, toStatementResponse(st))
}
