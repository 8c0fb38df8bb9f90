package v1

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/tinoosan/schoolfin/internal/errs"
	"github.com/tinoosan/schoolfin/internal/ledger"
	"github.com/tinoosan/schoolfin/internal/service/contract"
	"github.com/tinoosan/schoolfin/internal/service/obligation"
	"github.com/tinoosan/schoolfin/internal/service/registry"
	"github.com/tinoosan/schoolfin/internal/service/settlement"
)

type ctxKey string

const (
	ctxKeyPrincipal        ctxKey = "principal"
	ctxKeyPostAccount      ctxKey = "validatedPostAccount"
	ctxKeyPostCounterparty ctxKey = "validatedPostCounterparty"
	ctxKeyPostCategory     ctxKey = "validatedPostCategory"
	ctxKeyPostPayable      ctxKey = "validatedPostPayable"
	ctxKeyPostReceivable   ctxKey = "validatedPostReceivable"
	ctxKeySettle           ctxKey = "validatedSettle"
	ctxKeyStatement        ctxKey = "validatedStatement"
	ctxKeyPostTransfer     ctxKey = "validatedPostTransfer"
	ctxKeyPostContract     ctxKey = "validatedPostContract"
	ctxKeyPayInstallment   ctxKey = "validatedPayInstallment"
	ctxKeyPutTemplate      ctxKey = "validatedPutTemplate"
)

func decodeInto(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errs.Invalid("invalid JSON: " + err.Error())
	}
	return nil
}

// validateBody decodes a Req body, converts it with build and stores the result under key.
func validateBody[Req, In any](s *Server, key ctxKey, build func(Req) (In, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req Req
			if err := decodeInto(r, &req); err != nil {
				s.fail(w, r, err)
				return
			}
			in, err := build(req)
			if err != nil {
				s.fail(w, r, err)
				return
			}
			ctx := context.WithValue(r.Context(), key, in)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// validated returns the input a validate middleware stored under key.
func validated[In any](r *http.Request, key ctxKey) (In, bool) {
	in, ok := r.Context().Value(key).(In)
	return in, ok
}

// validatePostAccount parses POST /accounts and checks name and kind.
func (s *Server) validatePostAccount() func(http.Handler) http.Handler {
	return validateBody(s, ctxKeyPostAccount, func(req postAccountRequest) (registry.AccountInput, error) {
		in := registry.AccountInput{Name: req.Name, Kind: req.Kind}
		if req.InitialBalance != nil {
			cents, err := toCents(*req.InitialBalance, "initial_balance")
			if err != nil {
				return registry.AccountInput{}, err
			}
			in.InitialBalanceMinor = cents
		}
		if _, err := s.registry.ValidateAccount(in); err != nil {
			return registry.AccountInput{}, err
		}
		return in, nil
	})
}

func (s *Server) validatePostCounterparty() func(http.Handler) http.Handler {
	return validateBody(s, ctxKeyPostCounterparty, func(req postCounterpartyRequest) (postCounterpartyRequest, error) {
		if _, err := registry.ValidName(req.Name, "name"); err != nil {
			return req, err
		}
		if _, err := ledger.ParseCounterpartyKind(req.Kind); err != nil {
			return req, err
		}
		return req, nil
	})
}

func (s *Server) validatePostCategory() func(http.Handler) http.Handler {
	return validateBody(s, ctxKeyPostCategory, func(req postCategoryRequest) (postCategoryRequest, error) {
		if _, err := registry.ValidName(req.Name, "name"); err != nil {
			return req, err
		}
		if _, err := ledger.ParseCategoryFlow(req.Flow); err != nil {
			return req, err
		}
		return req, nil
	})
}

func (s *Server) validatePostPayable() func(http.Handler) http.Handler {
	return validateBody(s, ctxKeyPostPayable, func(req postPayableRequest) (obligation.PayableInput, error) {
		if req.DueDate.IsZero() {
			return obligation.PayableInput{}, errs.Invalid("due_date is required")
		}
		cents, err := toCents(req.Amount, "amount")
		if err != nil {
			return obligation.PayableInput{}, err
		}
		return obligation.PayableInput{
			Description:          req.Description,
			VendorPersonID:       req.VendorPersonID,
			VendorCounterpartyID: req.VendorCounterpartyID,
			CategoryID:           req.CategoryID,
			DueDate:              req.DueDate.Time,
			AmountMinor:          cents,
		}, nil
	})
}

func (s *Server) validatePostReceivable() func(http.Handler) http.Handler {
	return validateBody(s, ctxKeyPostReceivable, func(req postReceivableRequest) (obligation.ReceivableInput, error) {
		if req.DueDate.IsZero() {
			return obligation.ReceivableInput{}, errs.Invalid("due_date is required")
		}
		cents, err := toCents(req.Amount, "amount")
		if err != nil {
			return obligation.ReceivableInput{}, err
		}
		return obligation.ReceivableInput{
			Description:         req.Description,
			PayerPersonID:       req.PayerPersonID,
			PayerCounterpartyID: req.PayerCounterpartyID,
			CategoryID:          req.CategoryID,
			DueDate:             req.DueDate.Time,
			AmountMinor:         cents,
		}, nil
	})
}

// validateSettle parses the body shared by PUT /payables/{id}/pay and PUT /receivables/{id}/receive.
func (s *Server) validateSettle() func(http.Handler) http.Handler {
	return validateBody(s, ctxKeySettle, func(req settleRequest) (settleInput, error) {
		if req.AccountID == uuid.Nil {
			return settleInput{}, errs.Invalid("account_id is required")
		}
		on := req.PaidAt.ptr()
		if on == nil {
			on = req.ReceivedAt.ptr()
		}
		return settleInput{AccountID: req.AccountID, On: on}, nil
	})
}

func (s *Server) validatePostTransfer() func(http.Handler) http.Handler {
	return validateBody(s, ctxKeyPostTransfer, func(req postTransferRequest) (settlement.TransferInput, error) {
		cents, err := toCents(req.Amount, "amount")
		if err != nil {
			return settlement.TransferInput{}, err
		}
		in := settlement.TransferInput{
			FromAccountID: req.FromAccountID,
			ToAccountID:   req.ToAccountID,
			AmountMinor:   cents,
			Note:          req.Note,
		}
		if req.TransferDate != nil {
			in.Date = req.TransferDate.Time
		}
		if err := s.settlement.ValidateTransfer(in); err != nil {
			return settlement.TransferInput{}, err
		}
		return in, nil
	})
}

func (s *Server) validatePostContract() func(http.Handler) http.Handler {
	return validateBody(s, ctxKeyPostContract, func(req postContractRequest) (contract.Input, error) {
		if req.FirstDueDate.IsZero() {
			return contract.Input{}, errs.Invalid("first_due_date is required")
		}
		cents, err := toCents(req.TotalAmount, "total_amount")
		if err != nil {
			return contract.Input{}, err
		}
		in := contract.Input{
			StudentID:           req.StudentID,
			PayerPersonID:       req.PayerPersonID,
			RecipientPersonIDs:  req.RecipientPersonIDs,
			Description:         req.Description,
			TotalMinor:          cents,
			InstallmentsCount:   req.InstallmentsCount,
			FirstDueDate:        req.FirstDueDate.Time,
			DueDay:              req.DueDay,
			PixKey:              req.PixKey,
			PaymentInstructions: req.PaymentInstructions,
		}
		if req.BillingMode != nil {
			in.BillingMode = *req.BillingMode
		}
		in, _, err = s.contracts.Validate(in)
		return in, err
	})
}

func (s *Server) validatePayInstallment() func(http.Handler) http.Handler {
	return validateBody(s, ctxKeyPayInstallment, func(req payInstallmentRequest) (payInstallmentInput, error) {
		return payInstallmentInput{PaidAt: req.PaidAt.ptr(), AccountID: req.AccountID}, nil
	})
}

func (s *Server) validatePutTemplate() func(http.Handler) http.Handler {
	return validateBody(s, ctxKeyPutTemplate, func(req putTemplateRequest) (putTemplateRequest, error) {
		return req, nil
	})
}

// validateStatement parses the optional date_from and date_to query parameters.
func (s *Server) validateStatement() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			var out statementQuery
			for _, p := range []struct {
				name string
				dst  **time.Time
			}{{"date_from", &out.From}, {"date_to", &out.To}} {
				raw := q.Get(p.name)
				if raw == "" {
					continue
				}
				t, err := parseDate(raw)
				if err != nil {
					s.fail(w, r, errs.Invalid("invalid "+p.name+", expected YYYY-MM-DD"))
					return
				}
				*p.dst = &t
			}
			ctx := context.WithValue(r.Context(), ctxKeyStatement, out)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
