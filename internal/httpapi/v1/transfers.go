package v1

import (
	"net/http"

	"github.com/tinoosan/schoolfin/internal/ledger"
	"github.com/tinoosan/schoolfin/internal/service/settlement"
)

// postTransfer records a transfer as one debit on the source and one credit on the target.
func (s *Server) postTransfer(w http.ResponseWriter, r *http.Request) {
	in, ok := validated[settlement.TransferInput](r, ctxKeyPostTransfer)
	if !ok {
		writeErr(w, http.StatusBadRequest, "validation_error", "validation_error")
		return
	}
	t, err := s.settlement.CreateTransfer(r.Context(), principalFrom(r), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	countMovement(ledger.DirectionDebit, ledger.OriginTransferOut)
	countMovement(ledger.DirectionCredit, ledger.OriginTransferIn)
	toJSON(w, http.StatusCreated, toTransferResponse(t))
}

func (s *Server) listTransfers(w http.ResponseWriter, r *http.Request) {
	rows, err := s.settlement.ListTransfers(r.Context(), principalFrom(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]transferResponse, 0, len(rows))
	for _, t := range rows {
		out = append(out, toTransferResponse(t))
	}
	toJSON(w, http.StatusOK, out)
}
