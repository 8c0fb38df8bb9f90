// Package contract creates billing contracts, splits them into installments with their
// shadow receivables, issues payment instruments and logs billing notifications.
package contract

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tinoosan/schoolfin/internal/billing"
	"github.com/tinoosan/schoolfin/internal/errs"
	"github.com/tinoosan/schoolfin/internal/ledger"
	"github.com/tinoosan/schoolfin/internal/service/registry"
	"github.com/tinoosan/schoolfin/internal/storage"
)

// legacyCategory is the category text stamped on installment receivables.
const legacyCategory = "mensalidade"

type Repo interface {
	storage.TxBeginner
	GetContract(ctx context.Context, tenantID, contractID uuid.UUID) (ledger.Contract, error)
	ListContracts(ctx context.Context, tenantID uuid.UUID) ([]ledger.Contract, error)
	ListRecipients(ctx context.Context, tenantID, contractID uuid.UUID) ([]ledger.Person, error)
	ListEmailLogs(ctx context.Context, tenantID, contractID uuid.UUID) ([]ledger.EmailLog, error)
	GetReceivableByInstallment(ctx context.Context, tenantID, installmentID uuid.UUID) (ledger.Receivable, error)
	GetStudent(ctx context.Context, tenantID, studentID uuid.UUID) (ledger.Student, error)
	GetPerson(ctx context.Context, tenantID, personID uuid.UUID) (ledger.Person, error)
	GetSchool(ctx context.Context, tenantID uuid.UUID) (ledger.School, error)
	UpdateSchoolTemplate(ctx context.Context, tenantID uuid.UUID, template string, city, signature *string) (ledger.School, error)
}

// Guards are the referential checks run before a contract is written.
type Guards interface {
	EnsureStudent(ctx context.Context, tenantID, studentID uuid.UUID) (ledger.Student, error)
	EnsureFinancialPerson(ctx context.Context, tenantID, personID uuid.UUID) (ledger.Person, error)
}

// Settler posts the receipt of an installment's receivable into an account.
type Settler interface {
	SettleReceivable(ctx context.Context, p ledger.Principal, receivableID, accountID uuid.UUID, receivedAt *time.Time) (ledger.Receivable, error)
}

// Input is a create request. TotalMinor is already rounded to cents.
type Input struct {
	StudentID           uuid.UUID
	PayerPersonID       *uuid.UUID
	RecipientPersonIDs  []uuid.UUID
	Description         string
	TotalMinor          int64
	InstallmentsCount   int
	FirstDueDate        time.Time
	DueDay              *int
	BillingMode         string
	PixKey              *string
	PaymentInstructions *string
}

// View is a contract with the names a client displays next to it.
type View struct {
	ledger.Contract
	StudentName string
	PayerName   *string
	School      ledger.School
}

// SendResult reports how many recipients and installments a notification run covered.
type SendResult struct {
	SentTo           int
	InstallmentsSent int
}

// Template is the contract text of a school with its header fields.
type Template struct {
	School   ledger.School
	Template string
}

type Service interface {
	Validate(in Input) (Input, ledger.BillingMode, error)
	Create(ctx context.Context, p ledger.Principal, in Input) (View, error)
	List(ctx context.Context, p ledger.Principal) ([]View, error)
	Get(ctx context.Context, p ledger.Principal, contractID uuid.UUID) (View, error)
	GenerateInstruments(ctx context.Context, p ledger.Principal, contractID uuid.UUID) (View, error)
	SendNotifications(ctx context.Context, p ledger.Principal, contractID uuid.UUID) (SendResult, error)
	ListEmailLogs(ctx context.Context, p ledger.Principal, contractID uuid.UUID) ([]ledger.EmailLog, error)
	MarkInstallmentPaid(ctx context.Context, p ledger.Principal, contractID, installmentID uuid.UUID, paidAt *time.Time, accountID *uuid.UUID) (View, error)
	GetTemplate(ctx context.Context, p ledger.Principal) (Template, error)
	UpdateTemplate(ctx context.Context, p ledger.Principal, template string, city, signature *string) (Template, error)
}

type service struct {
	repo    Repo
	guards  Guards
	settler Settler
	issuer  *billing.Issuer
	now     func() time.Time
}

func New(repo Repo, guards Guards, settler Settler, issuer *billing.Issuer) Service {
	return &service{repo: repo, guards: guards, settler: settler, issuer: issuer, now: time.Now}
}

// Validate normalizes the request: billing mode, trimmed optional texts, and the PIX key rule.
func (s *service) Validate(in Input) (Input, ledger.BillingMode, error) {
	desc, err := registry.ValidName(in.Description, "description")
	if err != nil {
		return Input{}, "", err
	}
	in.Description = desc
	if in.StudentID == uuid.Nil {
		return Input{}, "", errs.Invalid("student_id is required")
	}
	if in.InstallmentsCount <= 0 {
		return Input{}, "", errs.Invalid("installments_count must be greater than zero")
	}
	if in.InstallmentsCount > MaxInstallments {
		return Input{}, "", errs.Invalid("installments_count must not exceed 600")
	}
	if in.TotalMinor <= 0 {
		return Input{}, "", errs.Invalid("total_amount must be greater than zero")
	}
	mode, err := ledger.ParseBillingMode(in.BillingMode)
	if err != nil {
		return Input{}, "", err
	}
	in.BillingMode = string(mode)
	in.PixKey = trimmed(in.PixKey)
	in.PaymentInstructions = trimmed(in.PaymentInstructions)
	if mode.RequiresPixKey() && in.PixKey == nil {
		return Input{}, "", errs.Invalid("pix_key is required for school_booklet_pix")
	}
	return in, mode, nil
}

func (s *service) Create(ctx context.Context, p ledger.Principal, in Input) (View, error) {
	if err := p.Require(ledger.Members...); err != nil {
		return View{}, err
	}
	in, mode, err := s.Validate(in)
	if err != nil {
		return View{}, err
	}
	slots, err := Plan(in.TotalMinor, in.InstallmentsCount, in.FirstDueDate, in.DueDay)
	if err != nil {
		return View{}, err
	}
	student, err := s.guards.EnsureStudent(ctx, p.TenantID, in.StudentID)
	if err != nil {
		return View{}, err
	}
	if in.PayerPersonID != nil {
		if _, err := s.guards.EnsureFinancialPerson(ctx, p.TenantID, *in.PayerPersonID); err != nil {
			return View{}, err
		}
	}
	for _, id := range in.RecipientPersonIDs {
		if _, err := s.guards.EnsureFinancialPerson(ctx, p.TenantID, id); err != nil {
			return View{}, err
		}
	}

	now := s.now().UTC()
	c := ledger.Contract{
		ID:                  uuid.New(),
		TenantID:            p.TenantID,
		StudentID:           student.ID,
		PayerPersonID:       in.PayerPersonID,
		RecipientPersonIDs:  in.RecipientPersonIDs,
		Description:         in.Description,
		TotalAmount:         ledger.BRL(in.TotalMinor),
		InstallmentsCount:   in.InstallmentsCount,
		FirstDueDate:        ledger.Day(in.FirstDueDate),
		DueDay:              in.DueDay,
		BillingMode:         mode,
		PixKey:              in.PixKey,
		PaymentInstructions: in.PaymentInstructions,
		Status:              ledger.ContractStatusActive,
		CreatedAt:           now,
	}
	err = storage.WithTx(ctx, s.repo, func(tx storage.Tx) error {
		if err := tx.CreateContract(ctx, c); err != nil {
			return err
		}
		for _, slot := range slots {
			in := ledger.Installment{
				ID:         uuid.New(),
				ContractID: c.ID,
				TenantID:   p.TenantID,
				Number:     slot.Number,
				DueDate:    slot.DueDate,
				Amount:     ledger.BRL(slot.AmountMinor),
				Status:     ledger.InstallmentPending,
			}
			if err := tx.CreateInstallment(ctx, in); err != nil {
				return err
			}
			if err := tx.CreateReceivable(ctx, shadowReceivable(c, in, student, now)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return View{}, err
	}
	return s.view(ctx, p.TenantID, c.ID)
}

// shadowReceivable is the receivable that tracks an installment on the receivables list.
func shadowReceivable(c ledger.Contract, in ledger.Installment, student ledger.Student, now time.Time) ledger.Receivable {
	contractID, installmentID, studentID := c.ID, in.ID, student.ID
	payerName, category := student.Name, legacyCategory
	return ledger.Receivable{
		ID:              uuid.New(),
		TenantID:        c.TenantID,
		Description:     fmt.Sprintf("Parcela %d/%d - %s (%s)", in.Number, c.InstallmentsCount, c.Description, student.Name),
		PayerPersonID:   c.PayerPersonID,
		LegacyPayerName: &payerName,
		LegacyCategory:  &category,
		DueDate:         in.DueDate,
		Amount:          in.Amount,
		Status:          ledger.ReceivablePending,
		Source:          ledger.SourceInstallment,
		ContractID:      &contractID,
		InstallmentID:   &installmentID,
		StudentID:       &studentID,
		CreatedAt:       now,
	}
}

func (s *service) List(ctx context.Context, p ledger.Principal) ([]View, error) {
	if err := p.Require(ledger.Members...); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListContracts(ctx, p.TenantID)
	if err != nil {
		return nil, err
	}
	out := make([]View, 0, len(rows))
	for _, c := range rows {
		v, err := s.decorate(ctx, c, ledger.School{})
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, p ledger.Principal, contractID uuid.UUID) (View, error) {
	if err := p.Require(ledger.Members...); err != nil {
		return View{}, err
	}
	return s.view(ctx, p.TenantID, contractID)
}

// view loads a contract with the school header.
func (s *service) view(ctx context.Context, tenantID, contractID uuid.UUID) (View, error) {
	c, err := s.repo.GetContract(ctx, tenantID, contractID)
	if err != nil {
		return View{}, err
	}
	school, err := s.school(ctx, tenantID)
	if err != nil {
		return View{}, err
	}
	return s.decorate(ctx, c, school)
}

func (s *service) decorate(ctx context.Context, c ledger.Contract, school ledger.School) (View, error) {
	v := View{Contract: c, School: school}
	st, err := s.repo.GetStudent(ctx, c.TenantID, c.StudentID)
	if err != nil && !errors.Is(err, errs.ErrNotFound) {
		return View{}, err
	}
	v.StudentName = st.Name
	if c.PayerPersonID != nil {
		payer, err := s.repo.GetPerson(ctx, c.TenantID, *c.PayerPersonID)
		switch {
		case err == nil:
			v.PayerName = &payer.FullName
		case !errors.Is(err, errs.ErrNotFound):
			return View{}, err
		}
	}
	return v, nil
}

func (s *service) school(ctx context.Context, tenantID uuid.UUID) (ledger.School, error) {
	sc, err := s.repo.GetSchool(ctx, tenantID)
	if errors.Is(err, errs.ErrNotFound) {
		return ledger.School{TenantID: tenantID}, nil
	}
	return sc, err
}

// GenerateInstruments (re)issues the instrument of every billable installment.
func (s *service) GenerateInstruments(ctx context.Context, p ledger.Principal, contractID uuid.UUID) (View, error) {
	if err := p.Require(ledger.Members...); err != nil {
		return View{}, err
	}
	v, err := s.view(ctx, p.TenantID, contractID)
	if err != nil {
		return View{}, err
	}
	sub := billing.Subject{
		Mode:                v.BillingMode,
		PixKey:              v.PixKey,
		PaymentInstructions: v.PaymentInstructions,
		StudentName:         v.StudentName,
		ContractDescription: v.Description,
	}
	err = storage.WithTx(ctx, s.repo, func(tx storage.Tx) error {
		for _, in := range v.Installments {
			if !in.Status.Billable() {
				continue
			}
			if err := tx.SetInstrument(ctx, p.TenantID, in.ID, s.issuer.Issue(sub, in)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return View{}, err
	}
	return s.view(ctx, p.TenantID, contractID)
}

// SendNotifications writes one email log per recipient with an email and billable
// installment. Nothing is transmitted.
func (s *service) SendNotifications(ctx context.Context, p ledger.Principal, contractID uuid.UUID) (SendResult, error) {
	if err := p.Require(ledger.Members...); err != nil {
		return SendResult{}, err
	}
	c, err := s.repo.GetContract(ctx, p.TenantID, contractID)
	if err != nil {
		return SendResult{}, err
	}
	people, err := s.repo.ListRecipients(ctx, p.TenantID, contractID)
	if err != nil {
		return SendResult{}, err
	}
	recipients := withEmail(people)
	billable := make([]ledger.Installment, 0, len(c.Installments))
	for _, in := range c.Installments {
		if in.Status.Billable() {
			billable = append(billable, in)
		}
	}

	now := s.now().UTC()
	err = storage.WithTx(ctx, s.repo, func(tx storage.Tx) error {
		for _, r := range recipients {
			for _, in := range billable {
				if err := tx.CreateEmailLog(ctx, ledger.EmailLog{
					ID:                uuid.New(),
					TenantID:          p.TenantID,
					ContractID:        contractID,
					InstallmentID:     in.ID,
					RecipientPersonID: r.ID,
					RecipientEmail:    *r.Email,
					Subject:           Subject(in),
					Body:              Body(in),
					SentAt:            now,
				}); err != nil {
					return err
				}
				if err := tx.MarkInstallmentEmailed(ctx, p.TenantID, in.ID, now); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return SendResult{}, err
	}
	return SendResult{SentTo: len(recipients), InstallmentsSent: len(billable)}, nil
}

func (s *service) ListEmailLogs(ctx context.Context, p ledger.Principal, contractID uuid.UUID) ([]ledger.EmailLog, error) {
	if err := p.Require(ledger.Members...); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetContract(ctx, p.TenantID, contractID); err != nil {
		return nil, err
	}
	return s.repo.ListEmailLogs(ctx, p.TenantID, contractID)
}

// MarkInstallmentPaid settles an installment. With an account the linked receivable is
// settled into it and a movement is posted; without one only the statuses change.
func (s *service) MarkInstallmentPaid(ctx context.Context, p ledger.Principal, contractID, installmentID uuid.UUID, paidAt *time.Time, accountID *uuid.UUID) (View, error) {
	if err := p.Require(ledger.Members...); err != nil {
		return View{}, err
	}
	c, err := s.repo.GetContract(ctx, p.TenantID, contractID)
	if err != nil {
		return View{}, err
	}
	in, ok := findInstallment(c, installmentID)
	if !ok {
		return View{}, errs.NotFound("installment not found")
	}
	if in.Status == ledger.InstallmentPaid {
		return View{}, errs.Conflict("installment already paid")
	}
	on := ledger.Day(s.now())
	if paidAt != nil {
		on = ledger.Day(*paidAt)
	}

	if accountID != nil {
		r, err := s.repo.GetReceivableByInstallment(ctx, p.TenantID, installmentID)
		if err != nil {
			return View{}, err
		}
		if _, err := s.settler.SettleReceivable(ctx, p, r.ID, *accountID, &on); err != nil {
			return View{}, err
		}
		return s.view(ctx, p.TenantID, contractID)
	}

	err = storage.WithTx(ctx, s.repo, func(tx storage.Tx) error {
		if err := tx.MarkInstallmentPaid(ctx, p.TenantID, installmentID, on); err != nil {
			return err
		}
		return tx.ReceiveInstallmentReceivable(ctx, p.TenantID, installmentID, on)
	})
	if err != nil {
		return View{}, err
	}
	return s.view(ctx, p.TenantID, contractID)
}

func findInstallment(c ledger.Contract, id uuid.UUID) (ledger.Installment, bool) {
	for _, in := range c.Installments {
		if in.ID == id {
			return in, true
		}
	}
	return ledger.Installment{}, false
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
