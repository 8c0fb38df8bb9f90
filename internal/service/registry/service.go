// Package registry implements the tenant reference registries (accounts, counterparties,
// categories) and the referential guards the other services run before writing.
package registry

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/tinoosan/schoolfin/internal/errs"
	"github.com/tinoosan/schoolfin/internal/ledger"
)

type Repo interface {
	GetAccount(ctx context.Context, tenantID, accountID uuid.UUID) (ledger.Account, error)
	ListCounterparties(ctx context.Context, tenantID uuid.UUID) ([]ledger.Counterparty, error)
	GetCounterparty(ctx context.Context, tenantID, id uuid.UUID) (ledger.Counterparty, error)
	ListCategories(ctx context.Context, tenantID uuid.UUID) ([]ledger.Category, error)
	GetCategory(ctx context.Context, tenantID, id uuid.UUID) (ledger.Category, error)
	GetPerson(ctx context.Context, tenantID, personID uuid.UUID) (ledger.Person, error)
	GetStudent(ctx context.Context, tenantID, studentID uuid.UUID) (ledger.Student, error)
}

type Writer interface {
	CreateAccount(ctx context.Context, a ledger.Account) (ledger.Account, error)
	CreateCounterparty(ctx context.Context, c ledger.Counterparty) (ledger.Counterparty, error)
	CreateCategory(ctx context.Context, c ledger.Category) (ledger.Category, error)
}

// AccountInput is the raw create request; Kind is normalized by the service.
type AccountInput struct {
	Name                string
	Kind                string
	InitialBalanceMinor int64
}

type Service interface {
	ValidateAccount(in AccountInput) (ledger.Account, error)
	CreateAccount(ctx context.Context, p ledger.Principal, in AccountInput) (ledger.Account, error)
	CreateCounterparty(ctx context.Context, p ledger.Principal, name, kind string) (ledger.Counterparty, error)
	ListCounterparties(ctx context.Context, p ledger.Principal) ([]ledger.Counterparty, error)
	CreateCategory(ctx context.Context, p ledger.Principal, name, flow string) (ledger.Category, error)
	ListCategories(ctx context.Context, p ledger.Principal) ([]ledger.Category, error)

	EnsureAccount(ctx context.Context, tenantID, accountID uuid.UUID) (ledger.Account, error)
	EnsureCounterparty(ctx context.Context, tenantID, id uuid.UUID, want ledger.CounterpartyKind) (ledger.Counterparty, error)
	EnsureCategory(ctx context.Context, tenantID, id uuid.UUID, want ledger.CategoryFlow) (ledger.Category, error)
	EnsurePerson(ctx context.Context, tenantID, personID uuid.UUID) (ledger.Person, error)
	EnsureFinancialPerson(ctx context.Context, tenantID, personID uuid.UUID) (ledger.Person, error)
	EnsureStudent(ctx context.Context, tenantID, studentID uuid.UUID) (ledger.Student, error)
}

type service struct {
	repo   Repo
	writer Writer
	now    func() time.Time
}

func New(repo Repo, writer Writer) Service {
	return &service{repo: repo, writer: writer, now: time.Now}
}

// ValidName trims name and requires at least two characters.
func ValidName(name, field string) (string, error) {
	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) < 2 {
		return "", errs.Invalid(field + " must have at least 2 characters")
	}
	return name, nil
}

func (s *service) ValidateAccount(in AccountInput) (ledger.Account, error) {
	name, err := ValidName(in.Name, "name")
	if err != nil {
		return ledger.Account{}, err
	}
	kind, err := ledger.ParseAccountKind(in.Kind)
	if err != nil {
		return ledger.Account{}, err
	}
	return ledger.Account{Name: name, Kind: kind, InitialBalance: ledger.BRL(in.InitialBalanceMinor), Active: true}, nil
}

func (s *service) CreateAccount(ctx context.Context, p ledger.Principal, in AccountInput) (ledger.Account, error) {
	if err := p.Require(ledger.Managers...); err != nil {
		return ledger.Account{}, err
	}
	a, err := s.ValidateAccount(in)
	if err != nil {
		return ledger.Account{}, err
	}
	a.ID = uuid.New()
	a.TenantID = p.TenantID
	a.CreatedAt = s.now().UTC()
	return s.writer.CreateAccount(ctx, a)
}

func (s *service) CreateCounterparty(ctx context.Context, p ledger.Principal, name, kind string) (ledger.Counterparty, error) {
	if err := p.Require(ledger.Managers...); err != nil {
		return ledger.Counterparty{}, err
	}
	n, err := ValidName(name, "name")
	if err != nil {
		return ledger.Counterparty{}, err
	}
	k, err := ledger.ParseCounterpartyKind(kind)
	if err != nil {
		return ledger.Counterparty{}, err
	}
	return s.writer.CreateCounterparty(ctx, ledger.Counterparty{
		ID: uuid.New(), TenantID: p.TenantID, Name: n, Kind: k, Active: true, CreatedAt: s.now().UTC(),
	})
}

func (s *service) ListCounterparties(ctx context.Context, p ledger.Principal) ([]ledger.Counterparty, error) {
	if err := p.Require(ledger.Members...); err != nil {
		return nil, err
	}
	return s.repo.ListCounterparties(ctx, p.TenantID)
}

func (s *service) CreateCategory(ctx context.Context, p ledger.Principal, name, flow string) (ledger.Category, error) {
	if err := p.Require(ledger.Managers...); err != nil {
		return ledger.Category{}, err
	}
	n, err := ValidName(name, "name")
	if err != nil {
		return ledger.Category{}, err
	}
	f, err := ledger.ParseCategoryFlow(flow)
	if err != nil {
		return ledger.Category{}, err
	}
	return s.writer.CreateCategory(ctx, ledger.Category{
		ID: uuid.New(), TenantID: p.TenantID, Name: n, Flow: f, Active: true, CreatedAt: s.now().UTC(),
	})
}

func (s *service) ListCategories(ctx context.Context, p ledger.Principal) ([]ledger.Category, error) {
	if err := p.Require(ledger.Members...); err != nil {
		return nil, err
	}
	return s.repo.ListCategories(ctx, p.TenantID)
}

// --- guards ---

func (s *service) EnsureAccount(ctx context.Context, tenantID, accountID uuid.UUID) (ledger.Account, error) {
	a, err := s.repo.GetAccount(ctx, tenantID, accountID)
	if err != nil {
		return ledger.Account{}, asReference(err, "invalid account")
	}
	return a, nil
}

func (s *service) EnsureCounterparty(ctx context.Context, tenantID, id uuid.UUID, want ledger.CounterpartyKind) (ledger.Counterparty, error) {
	c, err := s.repo.GetCounterparty(ctx, tenantID, id)
	if err != nil {
		return ledger.Counterparty{}, asReference(err, "invalid counterparty")
	}
	if !c.Active {
		return ledger.Counterparty{}, errs.Reference("invalid counterparty")
	}
	if !c.Accepts(want) {
		return ledger.Counterparty{}, errs.Reference("incompatible counterparty")
	}
	return c, nil
}

func (s *service) EnsureCategory(ctx context.Context, tenantID, id uuid.UUID, want ledger.CategoryFlow) (ledger.Category, error) {
	c, err := s.repo.GetCategory(ctx, tenantID, id)
	if err != nil {
		return ledger.Category{}, asReference(err, "invalid category")
	}
	if !c.Active {
		return ledger.Category{}, errs.Reference("invalid category")
	}
	if !c.Accepts(want) {
		return ledger.Category{}, errs.Reference("incompatible category")
	}
	return c, nil
}

func (s *service) EnsurePerson(ctx context.Context, tenantID, personID uuid.UUID) (ledger.Person, error) {
	p, err := s.repo.GetPerson(ctx, tenantID, personID)
	if err != nil {
		return ledger.Person{}, asReference(err, "invalid person")
	}
	if !p.Active {
		return ledger.Person{}, errs.Reference("invalid person")
	}
	return p, nil
}

func (s *service) EnsureFinancialPerson(ctx context.Context, tenantID, personID uuid.UUID) (ledger.Person, error) {
	p, err := s.repo.GetPerson(ctx, tenantID, personID)
	if err != nil {
		return ledger.Person{}, asReference(err, "invalid financial guardian")
	}
	if !p.HasRole(ledger.RoleFinancialGuardian) {
		return ledger.Person{}, errs.Reference("invalid financial guardian")
	}
	return p, nil
}

func (s *service) EnsureStudent(ctx context.Context, tenantID, studentID uuid.UUID) (ledger.Student, error) {
	st, err := s.repo.GetStudent(ctx, tenantID, studentID)
	if err != nil {
		return ledger.Student{}, asReference(err, "invalid student")
	}
	return st, nil
}

// asReference turns a not-found into a referential error; other errors pass through.
func asReference(err error, msg string) error {
	if errors.Is(err, errs.ErrNotFound) {
		return errs.Reference(msg)
	}
	return err
}
