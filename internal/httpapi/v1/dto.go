package v1

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"
	"github.com/shopspring/decimal"

	"github.com/tinoosan/schoolfin/internal/errs"
	"github.com/tinoosan/schoolfin/internal/ledger"
	"github.com/tinoosan/schoolfin/internal/service/contract"
	"github.com/tinoosan/schoolfin/internal/service/obligation"
)

const dateLayout = "2006-01-02"

// date is a calendar date on the wire (YYYY-MM-DD).
type date struct{ time.Time }

func (d *date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	d.Time = t
	return nil
}

func (d *date) ptr() *time.Time {
	if d == nil {
		return nil
	}
	t := d.Time
	return &t
}

func parseDate(s string) (time.Time, error) {
	return time.Parse(dateLayout, strings.TrimSpace(s))
}

func formatDate(t time.Time) string { return t.Format(dateLayout) }

func formatDatePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatDate(*t)
	return &s
}

// maxAmountMinor bounds every wire amount: one hundred billion reais, in cents.
const maxAmountMinor = 10_000_000_000_000

var maxAmount = decimal.NewFromInt(maxAmountMinor)

// toCents rounds a wire amount (JSON number or string) half away from zero to cents.
// Amounts whose magnitude exceeds maxAmountMinor are rejected before conversion.
func toCents(d decimal.Decimal, field string) (int64, error) {
	c := d.Round(2).Shift(2)
	if c.Abs().GreaterThan(maxAmount) {
		return 0, errs.Invalid(field + " is too large")
	}
	return c.IntPart(), nil
}

// amountString renders cents with exactly two decimals.
func amountString(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}

// amountJSON is the pair every amount is exposed as.
func amountJSON(a money.Amount) (string, int64) {
	c := ledger.Cents(a)
	return amountString(c), c
}

// --- requests ---

type postAccountRequest struct {
	Name           string           `json:"name"`
	Kind           string           `json:"kind"`
	InitialBalance *decimal.Decimal `json:"initial_balance,omitempty"`
}

type postCounterpartyRequest struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

type postCategoryRequest struct {
	Name string `json:"name"`
	Flow string `json:"flow"`
}

type postPayableRequest struct {
	Description          string          `json:"description"`
	VendorPersonID       *uuid.UUID      `json:"vendor_person_id,omitempty"`
	VendorCounterpartyID *uuid.UUID      `json:"vendor_counterparty_id,omitempty"`
	CategoryID           *uuid.UUID      `json:"category_id,omitempty"`
	DueDate              date            `json:"due_date"`
	Amount               decimal.Decimal `json:"amount"`
}

type postReceivableRequest struct {
	Description         string          `json:"description"`
	PayerPersonID       *uuid.UUID      `json:"payer_person_id,omitempty"`
	PayerCounterpartyID *uuid.UUID      `json:"payer_counterparty_id,omitempty"`
	CategoryID          *uuid.UUID      `json:"category_id,omitempty"`
	DueDate             date            `json:"due_date"`
	Amount              decimal.Decimal `json:"amount"`
}

// settleRequest is the body of both PUT .../pay and PUT .../receive.
type settleRequest struct {
	AccountID  uuid.UUID `json:"account_id"`
	PaidAt     *date     `json:"paid_at,omitempty"`
	ReceivedAt *date     `json:"received_at,omitempty"`
}

type settleInput struct {
	AccountID uuid.UUID
	On        *time.Time
}

type statementQuery struct {
	From, To *time.Time
}

type postTransferRequest struct {
	FromAccountID uuid.UUID       `json:"from_account_id"`
	ToAccountID   uuid.UUID       `json:"to_account_id"`
	TransferDate  *date           `json:"transfer_date,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Note          *string         `json:"note,omitempty"`
}

type postContractRequest struct {
	StudentID           uuid.UUID       `json:"student_id"`
	PayerPersonID       *uuid.UUID      `json:"payer_person_id,omitempty"`
	RecipientPersonIDs  []uuid.UUID     `json:"recipient_person_ids,omitempty"`
	Description         string          `json:"description"`
	TotalAmount         decimal.Decimal `json:"total_amount"`
	InstallmentsCount   int             `json:"installments_count"`
	FirstDueDate        date            `json:"first_due_date"`
	DueDay              *int            `json:"due_day,omitempty"`
	BillingMode         *string         `json:"billing_mode,omitempty"`
	PixKey              *string         `json:"pix_key,omitempty"`
	PaymentInstructions *string         `json:"payment_instructions,omitempty"`
}

type payInstallmentRequest struct {
	PaidAt    *date      `json:"paid_at,omitempty"`
	AccountID *uuid.UUID `json:"account_id,omitempty"`
}

type payInstallmentInput struct {
	PaidAt    *time.Time
	AccountID *uuid.UUID
}

type putTemplateRequest struct {
	Template            string  `json:"template"`
	SchoolCity          *string `json:"school_city,omitempty"`
	SchoolSignatureName *string `json:"school_signature_name,omitempty"`
}

// --- responses ---

type accountResponse struct {
	ID                  uuid.UUID          `json:"id"`
	Name                string             `json:"name"`
	Kind                ledger.AccountKind `json:"kind"`
	InitialBalance      string             `json:"initial_balance"`
	InitialBalanceMinor int64              `json:"initial_balance_minor"`
	Active              bool               `json:"active"`
	CreatedAt           time.Time          `json:"created_at"`
}

type accountBalanceResponse struct {
	accountResponse
	Credits             string `json:"credits"`
	CreditsMinor        int64  `json:"credits_minor"`
	Debits              string `json:"debits"`
	DebitsMinor         int64  `json:"debits_minor"`
	CurrentBalance      string `json:"current_balance"`
	CurrentBalanceMinor int64  `json:"current_balance_minor"`
}

func toAccountResponse(a ledger.Account) accountResponse {
	out := accountResponse{ID: a.ID, Name: a.Name, Kind: a.Kind, Active: a.Active, CreatedAt: a.CreatedAt}
	out.InitialBalance, out.InitialBalanceMinor = amountJSON(a.InitialBalance)
	return out
}

func toBalanceResponse(b ledger.AccountBalance) accountBalanceResponse {
	out := accountBalanceResponse{accountResponse: toAccountResponse(b.Account)}
	out.Credits, out.CreditsMinor = amountJSON(b.Credits)
	out.Debits, out.DebitsMinor = amountJSON(b.Debits)
	out.CurrentBalance, out.CurrentBalanceMinor = amountJSON(b.Balance)
	return out
}

type movementResponse struct {
	ID           uuid.UUID         `json:"id"`
	AccountID    uuid.UUID         `json:"account_id"`
	Direction    ledger.Direction  `json:"direction"`
	OriginKind   ledger.OriginKind `json:"origin_kind"`
	OriginID     uuid.UUID         `json:"origin_id"`
	MovementDate string            `json:"movement_date"`
	Amount       string            `json:"amount"`
	AmountMinor  int64             `json:"amount_minor"`
	Note         *string           `json:"note,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

func toMovementResponse(m ledger.Movement) movementResponse {
	out := movementResponse{
		ID:           m.ID,
		AccountID:    m.AccountID,
		Direction:    m.Direction,
		OriginKind:   m.OriginKind,
		OriginID:     m.OriginID,
		MovementDate: formatDate(m.Date),
		Note:         m.Note,
		CreatedAt:    m.CreatedAt,
	}
	out.Amount, out.AmountMinor = amountJSON(m.Amount)
	return out
}

type counterpartyResponse struct {
	ID        uuid.UUID               `json:"id"`
	Name      string                  `json:"name"`
	Kind      ledger.CounterpartyKind `json:"kind"`
	Active    bool                    `json:"active"`
	CreatedAt time.Time               `json:"created_at"`
}

type categoryResponse struct {
	ID        uuid.UUID           `json:"id"`
	Name      string              `json:"name"`
	Flow      ledger.CategoryFlow `json:"flow"`
	Active    bool                `json:"active"`
	CreatedAt time.Time           `json:"created_at"`
}

type payableResponse struct {
	ID                   uuid.UUID            `json:"id"`
	Description          string               `json:"description"`
	VendorPersonID       *uuid.UUID           `json:"vendor_person_id"`
	VendorCounterpartyID *uuid.UUID           `json:"vendor_counterparty_id"`
	VendorName           *string              `json:"vendor_name"`
	CategoryID           *uuid.UUID           `json:"category_id"`
	CategoryName         *string              `json:"category_name"`
	DueDate              string               `json:"due_date"`
	Amount               string               `json:"amount"`
	AmountMinor          int64                `json:"amount_minor"`
	Status               ledger.PayableStatus `json:"status"`
	AccountID            *uuid.UUID           `json:"account_id"`
	PaidAt               *string              `json:"paid_at"`
	CreatedAt            time.Time            `json:"created_at"`
}

func toPayableResponse(v obligation.PayableView) payableResponse {
	out := payableResponse{
		ID:                   v.ID,
		Description:          v.Description,
		VendorPersonID:       v.VendorPersonID,
		VendorCounterpartyID: v.VendorCounterpartyID,
		VendorName:           v.VendorName,
		CategoryID:           v.CategoryID,
		CategoryName:         v.CategoryName,
		DueDate:              formatDate(v.DueDate),
		Status:               v.Status,
		AccountID:            v.AccountID,
		PaidAt:               formatDatePtr(v.PaidAt),
		CreatedAt:            v.CreatedAt,
	}
	out.Amount, out.AmountMinor = amountJSON(v.Amount)
	return out
}

type receivableResponse struct {
	ID                  uuid.UUID               `json:"id"`
	Description         string                  `json:"description"`
	PayerPersonID       *uuid.UUID              `json:"payer_person_id"`
	PayerCounterpartyID *uuid.UUID              `json:"payer_counterparty_id"`
	PayerName           *string                 `json:"payer_name"`
	CategoryID          *uuid.UUID              `json:"category_id"`
	CategoryName        *string                 `json:"category_name"`
	DueDate             string                  `json:"due_date"`
	Amount              string                  `json:"amount"`
	AmountMinor         int64                   `json:"amount_minor"`
	Status              ledger.ReceivableStatus `json:"status"`
	Source              ledger.ReceivableSource `json:"source"`
	ContractID          *uuid.UUID              `json:"contract_id"`
	InstallmentID       *uuid.UUID              `json:"installment_id"`
	StudentID           *uuid.UUID              `json:"student_id"`
	AccountID           *uuid.UUID              `json:"account_id"`
	ReceivedAt          *string                 `json:"received_at"`
	CreatedAt           time.Time               `json:"created_at"`
}

func toReceivableResponse(r ledger.Receivable, payerName, categoryName *string) receivableResponse {
	out := receivableResponse{
		ID:                  r.ID,
		Description:         r.Description,
		PayerPersonID:       r.PayerPersonID,
		PayerCounterpartyID: r.PayerCounterpartyID,
		PayerName:           payerName,
		CategoryID:          r.CategoryID,
		CategoryName:        categoryName,
		DueDate:             formatDate(r.DueDate),
		Status:              r.Status,
		Source:              r.Source,
		ContractID:          r.ContractID,
		InstallmentID:       r.InstallmentID,
		StudentID:           r.StudentID,
		AccountID:           r.AccountID,
		ReceivedAt:          formatDatePtr(r.ReceivedAt),
		CreatedAt:           r.CreatedAt,
	}
	out.Amount, out.AmountMinor = amountJSON(r.Amount)
	return out
}

type schoolResponse struct {
	Name          string  `json:"name"`
	Code          string  `json:"code"`
	City          *string `json:"city"`
	SignatureName *string `json:"signature_name"`
}

func toSchoolResponse(sc ledger.School) schoolResponse {
	return schoolResponse{Name: sc.Name, Code: sc.Code, City: sc.City, SignatureName: sc.SignatureName}
}

type payerResponse struct {
	ID       uuid.UUID `json:"id"`
	FullName string    `json:"full_name"`
	Email    *string   `json:"email"`
	Phone    *string   `json:"phone"`
	Document *string   `json:"document"`
}

type statementItemResponse struct {
	receivableResponse
	StudentName *string `json:"student_name"`
}

type statementResponse struct {
	School                   schoolResponse          `json:"school"`
	Payer                    payerResponse           `json:"payer"`
	DateFrom                 *string                 `json:"date_from"`
	DateTo                   *string                 `json:"date_to"`
	Items                    []statementItemResponse `json:"items"`
	TotalPaid                string                  `json:"total_paid"`
	TotalPaidMinor           int64                   `json:"total_paid_minor"`
	TotalOpen                string                  `json:"total_open"`
	TotalOpenMinor           int64                   `json:"total_open_minor"`
	PendingBalanceTotal      string                  `json:"pending_balance_total"`
	PendingBalanceTotalMinor int64                   `json:"pending_balance_total_minor"`
}

func toStatementResponse(st obligation.Statement) statementResponse {
	out := statementResponse{
		School: toSchoolResponse(st.School),
		Payer: payerResponse{
			ID:       st.Payer.ID,
			FullName: st.Payer.FullName,
			Email:    st.Payer.Email,
			Phone:    st.Payer.Phone,
			Document: st.Payer.Document,
		},
		DateFrom: formatDatePtr(st.From),
		DateTo:   formatDatePtr(st.To),
		Items:    make([]statementItemResponse, 0, len(st.Items)),
	}
	for _, it := range st.Items {
		out.Items = append(out.Items, statementItemResponse{
			receivableResponse: toReceivableResponse(it.Receivable, &st.Payer.FullName, it.LegacyCategory),
			StudentName:        it.StudentName,
		})
	}
	out.TotalPaid, out.TotalPaidMinor = amountJSON(st.TotalPaid)
	out.TotalOpen, out.TotalOpenMinor = amountJSON(st.TotalOpen)
	out.PendingBalanceTotal, out.PendingBalanceTotalMinor = amountJSON(st.PendingBalanceTotal)
	return out
}

type transferResponse struct {
	ID            uuid.UUID `json:"id"`
	FromAccountID uuid.UUID `json:"from_account_id"`
	ToAccountID   uuid.UUID `json:"to_account_id"`
	TransferDate  string    `json:"transfer_date"`
	Amount        string    `json:"amount"`
	AmountMinor   int64     `json:"amount_minor"`
	Note          *string   `json:"note"`
	CreatedAt     time.Time `json:"created_at"`
}

func toTransferResponse(t ledger.Transfer) transferResponse {
	out := transferResponse{
		ID:            t.ID,
		FromAccountID: t.FromAccountID,
		ToAccountID:   t.ToAccountID,
		TransferDate:  formatDate(t.Date),
		Note:          t.Note,
		CreatedAt:     t.CreatedAt,
	}
	out.Amount, out.AmountMinor = amountJSON(t.Amount)
	return out
}

type installmentResponse struct {
	ID                  uuid.UUID                `json:"id"`
	Number              int                      `json:"installment_number"`
	DueDate             string                   `json:"due_date"`
	Amount              string                   `json:"amount"`
	AmountMinor         int64                    `json:"amount_minor"`
	Status              ledger.InstallmentStatus `json:"status"`
	BoletoCode          *string                  `json:"boleto_code"`
	BoletoURL           *string                  `json:"boleto_url"`
	BoletoPDFURL        *string                  `json:"boleto_pdf_url"`
	PixCopyPaste        *string                  `json:"pix_copy_paste"`
	PaymentInstructions *string                  `json:"payment_instructions"`
	EmailedAt           *time.Time               `json:"emailed_at"`
	PaidAt              *string                  `json:"paid_at"`
}

func toInstallmentResponse(in ledger.Installment) installmentResponse {
	out := installmentResponse{
		ID:                  in.ID,
		Number:              in.Number,
		DueDate:             formatDate(in.DueDate),
		Status:              in.Status,
		BoletoCode:          in.BoletoCode,
		BoletoURL:           in.BoletoURL,
		BoletoPDFURL:        in.BoletoPDFURL,
		PixCopyPaste:        in.PixCopyPaste,
		PaymentInstructions: in.PaymentInstructions,
		EmailedAt:           in.EmailedAt,
		PaidAt:              formatDatePtr(in.PaidAt),
	}
	out.Amount, out.AmountMinor = amountJSON(in.Amount)
	return out
}

type contractResponse struct {
	ID                  uuid.UUID             `json:"id"`
	StudentID           uuid.UUID             `json:"student_id"`
	StudentName         string                `json:"student_name"`
	PayerPersonID       *uuid.UUID            `json:"payer_person_id"`
	PayerName           *string               `json:"payer_name"`
	RecipientPersonIDs  []uuid.UUID           `json:"recipient_person_ids"`
	Description         string                `json:"description"`
	TotalAmount         string                `json:"total_amount"`
	TotalAmountMinor    int64                 `json:"total_amount_minor"`
	InstallmentsCount   int                   `json:"installments_count"`
	FirstDueDate        string                `json:"first_due_date"`
	DueDay              *int                  `json:"due_day"`
	BillingMode         ledger.BillingMode    `json:"billing_mode"`
	PixKey              *string               `json:"pix_key"`
	PaymentInstructions *string               `json:"payment_instructions"`
	Status              string                `json:"status"`
	CreatedAt           time.Time             `json:"created_at"`
	School              *schoolResponse       `json:"school,omitempty"`
	Installments        []installmentResponse `json:"installments"`
}

func toContractResponse(v contract.View, withSchool bool) contractResponse {
	out := contractResponse{
		ID:                  v.ID,
		StudentID:           v.StudentID,
		StudentName:         v.StudentName,
		PayerPersonID:       v.PayerPersonID,
		PayerName:           v.PayerName,
		RecipientPersonIDs:  v.RecipientPersonIDs,
		Description:         v.Description,
		InstallmentsCount:   v.InstallmentsCount,
		FirstDueDate:        formatDate(v.FirstDueDate),
		DueDay:              v.DueDay,
		BillingMode:         v.BillingMode,
		PixKey:              v.PixKey,
		PaymentInstructions: v.PaymentInstructions,
		Status:              v.Status,
		CreatedAt:           v.CreatedAt,
		Installments:        make([]installmentResponse, 0, len(v.Installments)),
	}
	if out.RecipientPersonIDs == nil {
		out.RecipientPersonIDs = []uuid.UUID{}
	}
	out.TotalAmount, out.TotalAmountMinor = amountJSON(v.TotalAmount)
	if withSchool {
		sc := toSchoolResponse(v.School)
		out.School = &sc
	}
	for _, in := range v.Installments {
		out.Installments = append(out.Installments, toInstallmentResponse(in))
	}
	return out
}

type emailLogResponse struct {
	ID                uuid.UUID `json:"id"`
	InstallmentID     uuid.UUID `json:"installment_id"`
	RecipientPersonID uuid.UUID `json:"recipient_person_id"`
	RecipientEmail    string    `json:"recipient_email"`
	Subject           string    `json:"subject"`
	Body              string    `json:"body"`
	SentAt            time.Time `json:"sent_at"`
}

type sendResponse struct {
	SentTo           int `json:"sent_to"`
	InstallmentsSent int `json:"installments_sent"`
}

type templateResponse struct {
	SchoolName          string  `json:"school_name"`
	SchoolCode          string  `json:"school_code"`
	SchoolCity          *string `json:"school_city"`
	SchoolSignatureName *string `json:"school_signature_name"`
	Template            string  `json:"template"`
}

func toTemplateResponse(t contract.Template) templateResponse {
	return templateResponse{
		SchoolName:          t.School.Name,
		SchoolCode:          t.School.Code,
		SchoolCity:          t.School.City,
		SchoolSignatureName: t.School.SignatureName,
		Template:            t.Template,
	}
}
