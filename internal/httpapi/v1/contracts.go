package v1

import (
	"net/http"

	"github.com/tinoosan/schoolfin/internal/ledger"
	"github.com/tinoosan/schoolfin/internal/service/contract"
)

func (s *Server) postContract(w http.ResponseWriter, r *http.Request) {
	in, ok := validated[contract.Input](r, ctxKeyPostContract)
	if !ok {
		writeErr(w, http.StatusBadRequest, "validation_error", "validation_error")
		return
	}
	v, err := s.contracts.Create(r.Context(), principalFrom(r), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	contractsCreated.Inc()
	installmentsGenerated.Add(float64(len(v.Installments)))
	toJSON(w, http.StatusCreated, toContractResponse(v, true))
}

func (s *Server) listContracts(w http.ResponseWriter, r *http.Request) {
	rows, err := s.contracts.List(r.Context(), principalFrom(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]contractResponse, 0, len(rows))
	for _, v := range rows {
		out = append(out, toContractResponse(v, false))
	}
	toJSON(w, http.StatusOK, out)
}

func (s *Server) getContract(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	v, err := s.contracts.Get(r.Context(), principalFrom(r), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, toContractResponse(v, true))
}

// generateInstruments (re)issues the payment instrument of every billable installment.
func (s *Server) generateInstruments(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	v, err := s.contracts.GenerateInstruments(r.Context(), principalFrom(r), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, toContractResponse(v, true))
}

func (s *Server) sendNotifications(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.contracts.SendNotifications(r.Context(), principalFrom(r), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	emailLogsWritten.Add(float64(res.SentTo * res.InstallmentsSent))
	toJSON(w, http.StatusOK, sendResponse{SentTo: res.SentTo, InstallmentsSent: res.InstallmentsSent})
}

func (s *Server) listEmailLogs(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	rows, err := s.contracts.ListEmailLogs(r.Context(), principalFrom(r), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]emailLogResponse, 0, len(rows))
	for _, l := range rows {
		out = append(out, emailLogResponse{
			ID:                l.ID,
			InstallmentID:     l.InstallmentID,
			RecipientPersonID: l.RecipientPersonID,
			RecipientEmail:    l.RecipientEmail,
			Subject:           l.Subject,
			Body:              l.Body,
			SentAt:            l.SentAt,
		})
	}
	toJSON(w, http.StatusOK, out)
}

// payInstallment marks an installment paid. With account_id the payment is also
// received into that account.
func (s *Server) payInstallment(w http.ResponseWriter, r *http.Request) {
	contractID, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	installmentID, err := pathID(r, "installment_id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	in, ok := validated[payInstallmentInput](r, ctxKeyPayInstallment)
	if !ok {
		writeErr(w, http.StatusBadRequest, "validation_error", "validation_error")
		return
	}
	v, err := s.contracts.MarkInstallmentPaid(r.Context(), principalFrom(r), contractID, installmentID, in.PaidAt, in.AccountID)
	if in.AccountID != nil {
		countSettlement("installment", err)
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if in.AccountID != nil {
		countMovement(ledger.DirectionCredit, ledger.OriginReceivablePayment)
	}
	toJSON(w, http.StatusOK, toContractResponse(v, true))
}

func (s *Server) getTemplate(w http.ResponseWriter, r *http.Request) {
	t, err := s.contracts.GetTemplate(r.Context(), principalFrom(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, toTemplateResponse(t))
}

func (s *Server) putTemplate(w http.ResponseWriter, r *http.Request) {
	req, ok := validated[putTemplateRequest](r, ctxKeyPutTemplate)
	if !ok {
		writeErr(w, http.StatusBadRequest, "validation_error", "validation_error")
		return
	}
	t, err := s.contracts.UpdateTemplate(r.Context(), principalFrom(r), req.Template, req.SchoolCity, req.SchoolSignatureName)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, toTemplateResponse(t))
}
