// Package obligation manages payables and receivables and the payer statement built on them.
// Settling them is the settlement package's job.
package obligation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/tinoosan/schoolfin/internal/errs"
	"github.com/tinoosan/schoolfin/internal/ledger"
	"github.com/tinoosan/schoolfin/internal/service/registry"
)

type Repo interface {
	ListPayables(ctx context.Context, tenantID uuid.UUID) ([]ledger.Payable, error)
	ListReceivables(ctx context.Context, tenantID uuid.UUID) ([]ledger.Receivable, error)
	ListReceivablesByPayer(ctx context.Context, tenantID, personID uuid.UUID, from, to *time.Time) ([]ledger.Receivable, error)
	PendingTotalByPayer(ctx context.Context, tenantID, personID uuid.UUID) (int64, error)
	GetPerson(ctx context.Context, tenantID, personID uuid.UUID) (ledger.Person, error)
	GetCounterparty(ctx context.Context, tenantID, id uuid.UUID) (ledger.Counterparty, error)
	GetCategory(ctx context.Context, tenantID, id uuid.UUID) (ledger.Category, error)
	GetStudent(ctx context.Context, tenantID, studentID uuid.UUID) (ledger.Student, error)
	GetSchool(ctx context.Context, tenantID uuid.UUID) (ledger.School, error)
}

type Writer interface {
	CreatePayable(ctx context.Context, p ledger.Payable) (ledger.Payable, error)
	CreateReceivable(ctx context.Context, r ledger.Receivable) (ledger.Receivable, error)
}

// Guards are the referential checks run before an obligation is written.
type Guards interface {
	EnsurePerson(ctx context.Context, tenantID, personID uuid.UUID) (ledger.Person, error)
	EnsureCounterparty(ctx context.Context, tenantID, id uuid.UUID, want ledger.CounterpartyKind) (ledger.Counterparty, error)
	EnsureCategory(ctx context.Context, tenantID, id uuid.UUID, want ledger.CategoryFlow) (ledger.Category, error)
}

// PayableInput is a create request. AmountMinor is already rounded to cents.
type PayableInput struct {
	Description          string
	VendorPersonID       *uuid.UUID
	VendorCounterpartyID *uuid.UUID
	CategoryID           *uuid.UUID
	DueDate              time.Time
	AmountMinor          int64
}

type ReceivableInput struct {
	Description         string
	PayerPersonID       *uuid.UUID
	PayerCounterpartyID *uuid.UUID
	CategoryID          *uuid.UUID
	DueDate             time.Time
	AmountMinor         int64
}

// PayableView is a payable with its display names resolved.
type PayableView struct {
	ledger.Payable
	VendorName   *string
	CategoryName *string
}

type ReceivableView struct {
	ledger.Receivable
	PayerName    *string
	CategoryName *string
}

type StatementItem struct {
	ledger.Receivable
	StudentName *string
}

// Statement is the account of one payer: their receivables within a due date window plus
// the totals a school prints on a payer statement.
type Statement struct {
	School              ledger.School
	Payer               ledger.Person
	From, To            *time.Time
	Items               []StatementItem
	TotalPaid           money.Amount
	TotalOpen           money.Amount
	PendingBalanceTotal money.Amount
}

type Service interface {
	CreatePayable(ctx context.Context, p ledger.Principal, in PayableInput) (PayableView, error)
	ListPayables(ctx context.Context, p ledger.Principal) ([]PayableView, error)
	CreateReceivable(ctx context.Context, p ledger.Principal, in ReceivableInput) (ReceivableView, error)
	ListReceivables(ctx context.Context, p ledger.Principal) ([]ReceivableView, error)
	Statement(ctx context.Context, p ledger.Principal, personID uuid.UUID, from, to *time.Time) (Statement, error)
}

type service struct {
	repo   Repo
	writer Writer
	guards Guards
	now    func() time.Time
}

func New(repo Repo, writer Writer, guards Guards) Service {
	return &service{repo: repo, writer: writer, guards: guards, now: time.Now}
}

func (s *service) CreatePayable(ctx context.Context, p ledger.Principal, in PayableInput) (PayableView, error) {
	if err := p.Require(ledger.Managers...); err != nil {
		return PayableView{}, err
	}
	desc, err := registry.ValidName(in.Description, "description")
	if err != nil {
		return PayableView{}, err
	}
	if in.AmountMinor <= 0 {
		return PayableView{}, errs.Invalid("amount must be greater than zero")
	}
	if in.VendorPersonID != nil {
		if _, err := s.guards.EnsurePerson(ctx, p.TenantID, *in.VendorPersonID); err != nil {
			return PayableView{}, err
		}
	}
	if in.VendorCounterpartyID != nil {
		if _, err := s.guards.EnsureCounterparty(ctx, p.TenantID, *in.VendorCounterpartyID, ledger.CounterpartyVendor); err != nil {
			return PayableView{}, err
		}
	}
	if in.CategoryID != nil {
		if _, err := s.guards.EnsureCategory(ctx, p.TenantID, *in.CategoryID, ledger.FlowPayable); err != nil {
			return PayableView{}, err
		}
	}
	created, err := s.writer.CreatePayable(ctx, ledger.Payable{
		ID:                   uuid.New(),
		TenantID:             p.TenantID,
		Description:          desc,
		VendorPersonID:       in.VendorPersonID,
		VendorCounterpartyID: in.VendorCounterpartyID,
		CategoryID:           in.CategoryID,
		DueDate:              ledger.Day(in.DueDate),
		Amount:               ledger.BRL(in.AmountMinor),
		Status:               ledger.PayablePending,
		CreatedAt:            s.now().UTC(),
	})
	if err != nil {
		return PayableView{}, err
	}
	return newNames(s.repo, p.TenantID).payable(ctx, created)
}

func (s *service) ListPayables(ctx context.Context, p ledger.Principal) ([]PayableView, error) {
	if err := p.Require(ledger.Members...); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListPayables(ctx, p.TenantID)
	if err != nil {
		return nil, err
	}
	names := newNames(s.repo, p.TenantID)
	out := make([]PayableView, 0, len(rows))
	for _, r := range rows {
		v, err := names.payable(ctx, r)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *service) CreateReceivable(ctx context.Context, p ledger.Principal, in ReceivableInput) (ReceivableView, error) {
	if err := p.Require(ledger.Managers...); err != nil {
		return ReceivableView{}, err
	}
	desc, err := registry.ValidName(in.Description, "description")
	if err != nil {
		return ReceivableView{}, err
	}
	if in.AmountMinor <= 0 {
		return ReceivableView{}, errs.Invalid("amount must be greater than zero")
	}
	if in.PayerPersonID != nil {
		if _, err := s.guards.EnsurePerson(ctx, p.TenantID, *in.PayerPersonID); err != nil {
			return ReceivableView{}, err
		}
	}
	if in.PayerCounterpartyID != nil {
		if _, err := s.guards.EnsureCounterparty(ctx, p.TenantID, *in.PayerCounterpartyID, ledger.CounterpartyPayer); err != nil {
			return ReceivableView{}, err
		}
	}
	if in.CategoryID != nil {
		if _, err := s.guards.EnsureCategory(ctx, p.TenantID, *in.CategoryID, ledger.FlowReceivable); err != nil {
			return ReceivableView{}, err
		}
	}
	created, err := s.writer.CreateReceivable(ctx, ledger.Receivable{
		ID:                  uuid.New(),
		TenantID:            p.TenantID,
		Description:         desc,
		PayerPersonID:       in.PayerPersonID,
		PayerCounterpartyID: in.PayerCounterpartyID,
		CategoryID:          in.CategoryID,
		DueDate:             ledger.Day(in.DueDate),
		Amount:              ledger.BRL(in.AmountMinor),
		Status:              ledger.ReceivablePending,
		Source:              ledger.SourceManual,
		CreatedAt:           s.now().UTC(),
	})
	if err != nil {
		return ReceivableView{}, err
	}
	return newNames(s.repo, p.TenantID).receivable(ctx, created)
}

func (s *service) ListReceivables(ctx context.Context, p ledger.Principal) ([]ReceivableView, error) {
	if err := p.Require(ledger.Members...); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListReceivables(ctx, p.TenantID)
	if err != nil {
		return nil, err
	}
	names := newNames(s.repo, p.TenantID)
	out := make([]ReceivableView, 0, len(rows))
	for _, r := range rows {
		v, err := names.receivable(ctx, r)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *service) Statement(ctx context.Context, p ledger.Principal, personID uuid.UUID, from, to *time.Time) (Statement, error) {
	if err := p.Require(ledger.Members...); err != nil {
		return Statement{}, err
	}
	if from != nil && to != nil && from.After(*to) {
		return Statement{}, errs.Invalid("date_from must not be after date_to")
	}
	payer, err := s.repo.GetPerson(ctx, p.TenantID, personID)
	if err != nil {
		return Statement{}, err
	}
	if !payer.Active {
		return Statement{}, errs.NotFound("payer not found")
	}
	school, err := s.repo.GetSchool(ctx, p.TenantID)
	if errors.Is(err, errs.ErrNotFound) {
		school = ledger.School{TenantID: p.TenantID}
	} else if err != nil {
		return Statement{}, err
	}
	rows, err := s.repo.ListReceivablesByPayer(ctx, p.TenantID, personID, from, to)
	if err != nil {
		return Statement{}, err
	}
	pending, err := s.repo.PendingTotalByPayer(ctx, p.TenantID, personID)
	if err != nil {
		return Statement{}, err
	}

	names := newNames(s.repo, p.TenantID)
	st := Statement{School: school, Payer: payer, From: from, To: to, Items: make([]StatementItem, 0, len(rows))}
	var paid, open int64
	for _, r := range rows {
		switch r.Status {
		case ledger.ReceivableReceived:
			paid += ledger.Cents(r.Amount)
		case ledger.ReceivablePending:
			open += ledger.Cents(r.Amount)
		}
		item := StatementItem{Receivable: r}
		if r.StudentID != nil {
			if item.StudentName, err = names.student(ctx, *r.StudentID); err != nil {
				return Statement{}, err
			}
		}
		st.Items = append(st.Items, item)
	}
	st.TotalPaid = ledger.BRL(paid)
	st.TotalOpen = ledger.BRL(open)
	st.PendingBalanceTotal = ledger.BRL(pending)
	return st, nil
}
