package memory

// Package memory provides a simple in-memory implementation used for development and tests.
// Rows live in per-entity tables guarded by one RWMutex; a transaction holds the write lock
// and keeps an undo log so Rollback can restore the previous state.
import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tinoosan/schoolfin/internal/errs"
	"github.com/tinoosan/schoolfin/internal/ledger"
	"github.com/tinoosan/schoolfin/internal/storage"
)

// table keeps rows by id and remembers insertion order for stable listings.
type table[T any] struct {
	rows  map[uuid.UUID]T
	order []uuid.UUID
}

func newTable[T any]() *table[T] {
	return &table[T]{rows: make(map[uuid.UUID]T)}
}

func (t *table[T]) get(id uuid.UUID) (T, bool) {
	v, ok := t.rows[id]
	return v, ok
}

// put inserts or replaces a row and returns the function that reverts it.
func (t *table[T]) put(id uuid.UUID, v T) func() {
	prev, existed := t.rows[id]
	t.rows[id] = v
	if existed {
		return func() { t.rows[id] = prev }
	}
	t.order = append(t.order, id)
	return func() {
		delete(t.rows, id)
		t.order = t.order[:len(t.order)-1]
	}
}

func (t *table[T]) all() []T {
	out := make([]T, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.rows[id])
	}
	return out
}

// Store is an in-memory implementation of the repositories and writers used by the API.
type Store struct {
	mu             sync.RWMutex
	people         *table[ledger.Person]
	students       *table[ledger.Student]
	schools        map[uuid.UUID]ledger.School
	accounts       *table[ledger.Account]
	movements      *table[ledger.Movement]
	counterparties *table[ledger.Counterparty]
	categories     *table[ledger.Category]
	payables       *table[ledger.Payable]
	receivables    *table[ledger.Receivable]
	contracts      *table[ledger.Contract]
	installments   *table[ledger.Installment]
	transfers      *table[ledger.Transfer]
	emailLogs      *table[ledger.EmailLog]
}

// New constructs an empty in-memory store.
func New() *Store {
	s := &Store{}
	s.Reset()
	return s
}

// Reset drops every row.
func (s *Store) Reset() {
	s.mu.Lock()
	s.people = newTable[ledger.Person]()
	s.students = newTable[ledger.Student]()
	s.schools = make(map[uuid.UUID]ledger.School)
	s.accounts = newTable[ledger.Account]()
	s.movements = newTable[ledger.Movement]()
	s.counterparties = newTable[ledger.Counterparty]()
	s.categories = newTable[ledger.Category]()
	s.payables = newTable[ledger.Payable]()
	s.receivables = newTable[ledger.Receivable]()
	s.contracts = newTable[ledger.Contract]()
	s.installments = newTable[ledger.Installment]()
	s.transfers = newTable[ledger.Transfer]()
	s.emailLogs = newTable[ledger.EmailLog]()
	s.mu.Unlock()
}

// Seed helpers for local dev/tests. People, students and schools are owned by the wider
// school system, so the store only ever reads them otherwise.
func (s *Store) SeedPerson(p ledger.Person) { s.mu.Lock(); s.people.put(p.ID, p); s.mu.Unlock() }
func (s *Store) SeedStudent(st ledger.Student) { s.mu.Lock(); s.students.put(st.ID, st); s.mu.Unlock() }
func (s *Store) SeedSchool(sc ledger.School) { s.mu.Lock(); s.schools[sc.TenantID] = sc; s.mu.Unlock() }
func (s *Store) SeedAccount(a ledger.Account) { s.mu.Lock(); s.accounts.put(a.ID, a); s.mu.Unlock() }

// Ready always succeeds for the in-memory store.
func (s *Store) Ready(context.Context) error { return nil }

// --- collaborator reads ---

func (s *Store) GetPerson(_ context.Context, tenantID, personID uuid.UUID) (ledger.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.people.get(personID)
	if !ok || p.TenantID != tenantID {
		return ledger.Person{}, errs.ErrNotFound
	}
	return p, nil
}

// GetStudent resolves the display name from the linked person when there is one.
func (s *Store) GetStudent(_ context.Context, tenantID, studentID uuid.UUID) (ledger.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.studentLocked(tenantID, studentID)
}

func (s *Store) studentLocked(tenantID, studentID uuid.UUID) (ledger.Student, error) {
	st, ok := s.students.get(studentID)
	if !ok || st.TenantID != tenantID {
		return ledger.Student{}, errs.ErrNotFound
	}
	if st.PersonID != nil {
		if p, ok := s.people.get(*st.PersonID); ok {
			st.Name = p.FullName
		}
	}
	return st, nil
}

func (s *Store) GetSchool(_ context.Context, tenantID uuid.UUID) (ledger.School, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sc, ok := s.schools[tenantID]
	if !ok {
		return ledger.School{}, errs.ErrNotFound
	}
	return sc, nil
}

// UpdateSchoolTemplate stores the contract template; city and signature are only replaced when given.
func (s *Store) UpdateSchoolTemplate(_ context.Context, tenantID uuid.UUID, template string, city, signature *string) (ledger.School, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.schools[tenantID]
	if !ok {
		return ledger.School{}, errs.ErrNotFound
	}
	sc.ContractTemplate = &template
	if city != nil {
		sc.City = city
	}
	if signature != nil {
		sc.SignatureName = signature
	}
	s.schools[tenantID] = sc
	return sc, nil
}

// --- accounts and movements ---

func (s *Store) CreateAccount(_ context.Context, a ledger.Account) (ledger.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts.put(a.ID, a)
	return a, nil
}

// ListAccounts returns the tenant's accounts, active first, then by name.
func (s *Store) ListAccounts(_ context.Context, tenantID uuid.UUID) ([]ledger.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.Account, 0)
	for _, a := range s.accounts.all() {
		if a.TenantID == tenantID {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Active != out[j].Active {
			return out[i].Active
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *Store) GetAccount(_ context.Context, tenantID, accountID uuid.UUID) (ledger.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts.get(accountID)
	if !ok || a.TenantID != tenantID {
		return ledger.Account{}, errs.ErrNotFound
	}
	return a, nil
}

// MovementTotals sums credits and debits per account for the tenant.
func (s *Store) MovementTotals(_ context.Context, tenantID uuid.UUID) (map[uuid.UUID]ledger.Totals, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[uuid.UUID]ledger.Totals)
	for _, m := range s.movements.all() {
		if m.TenantID != tenantID {
			continue
		}
		t := out[m.AccountID]
		if m.Direction == ledger.DirectionCredit {
			t.CreditMinor += ledger.Cents(m.Amount)
		} else {
			t.DebitMinor += ledger.Cents(m.Amount)
		}
		out[m.AccountID] = t
	}
	return out, nil
}

// ListMovements returns an account's movements by date, then insertion order.
func (s *Store) ListMovements(_ context.Context, tenantID, accountID uuid.UUID) ([]ledger.Movement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.Movement, 0)
	for _, m := range s.movements.all() {
		if m.TenantID == tenantID && m.AccountID == accountID {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// --- counterparties and categories ---

func (s *Store) CreateCounterparty(_ context.Context, c ledger.Counterparty) (ledger.Counterparty, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counterparties.put(c.ID, c)
	return c, nil
}

func (s *Store) ListCounterparties(_ context.Context, tenantID uuid.UUID) ([]ledger.Counterparty, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.Counterparty, 0)
	for _, c := range s.counterparties.all() {
		if c.TenantID == tenantID {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Active != out[j].Active {
			return out[i].Active
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *Store) GetCounterparty(_ context.Context, tenantID, id uuid.UUID) (ledger.Counterparty, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.counterparties.get(id)
	if !ok || c.TenantID != tenantID {
		return ledger.Counterparty{}, errs.ErrNotFound
	}
	return c, nil
}

func (s *Store) CreateCategory(_ context.Context, c ledger.Category) (ledger.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories.put(c.ID, c)
	return c, nil
}

func (s *Store) ListCategories(_ context.Context, tenantID uuid.UUID) ([]ledger.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.Category, 0)
	for _, c := range s.categories.all() {
		if c.TenantID == tenantID {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Active != out[j].Active {
			return out[i].Active
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *Store) GetCategory(_ context.Context, tenantID, id uuid.UUID) (ledger.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.categories.get(id)
	if !ok || c.TenantID != tenantID {
		return ledger.Category{}, errs.ErrNotFound
	}
	return c, nil
}

// --- payables and receivables ---

func (s *Store) CreatePayable(_ context.Context, p ledger.Payable) (ledger.Payable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payables.put(p.ID, p)
	return p, nil
}

// ListPayables orders by status, then due date, newest first within a day.
func (s *Store) ListPayables(_ context.Context, tenantID uuid.UUID) ([]ledger.Payable, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.Payable, 0)
	for _, p := range s.payables.all() {
		if p.TenantID == tenantID {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Status != b.Status {
			return a.Status < b.Status
		}
		if !a.DueDate.Equal(b.DueDate) {
			return a.DueDate.Before(b.DueDate)
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
	return out, nil
}

func (s *Store) GetPayable(_ context.Context, tenantID, id uuid.UUID) (ledger.Payable, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.payables.get(id)
	if !ok || p.TenantID != tenantID {
		return ledger.Payable{}, errs.ErrNotFound
	}
	return p, nil
}

func (s *Store) CreateReceivable(_ context.Context, r ledger.Receivable) (ledger.Receivable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.receivables.put(r.ID, r)
	return r, nil
}

func (s *Store) ListReceivables(_ context.Context, tenantID uuid.UUID) ([]ledger.Receivable, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.receivablesLocked(func(r ledger.Receivable) bool { return r.TenantID == tenantID })
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Status != b.Status {
			return a.Status < b.Status
		}
		if !a.DueDate.Equal(b.DueDate) {
			return a.DueDate.Before(b.DueDate)
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
	return out, nil
}

func (s *Store) GetReceivable(_ context.Context, tenantID, id uuid.UUID) (ledger.Receivable, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.receivables.get(id)
	if !ok || r.TenantID != tenantID {
		return ledger.Receivable{}, errs.ErrNotFound
	}
	return r, nil
}

func (s *Store) GetReceivableByInstallment(_ context.Context, tenantID, installmentID uuid.UUID) (ledger.Receivable, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.receivableByInstallmentLocked(tenantID, installmentID)
	if !ok {
		return ledger.Receivable{}, errs.ErrNotFound
	}
	return r, nil
}

// ListReceivablesByPayer returns the payer's receivables with due date in [from, to]
// (either bound optional), latest due date first.
func (s *Store) ListReceivablesByPayer(_ context.Context, tenantID, personID uuid.UUID, from, to *time.Time) ([]ledger.Receivable, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.receivablesLocked(func(r ledger.Receivable) bool {
		if r.TenantID != tenantID || r.PayerPersonID == nil || *r.PayerPersonID != personID {
			return false
		}
		if from != nil && r.DueDate.Before(*from) {
			return false
		}
		if to != nil && r.DueDate.After(*to) {
			return false
		}
		return true
	})
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.DueDate.Equal(b.DueDate) {
			return a.DueDate.After(b.DueDate)
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
	return out, nil
}

// PendingTotalByPayer sums, in cents, every pending receivable of the payer.
func (s *Store) PendingTotalByPayer(_ context.Context, tenantID, personID uuid.UUID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var total int64
	for _, r := range s.receivables.all() {
		if r.TenantID == tenantID && r.PayerPersonID != nil && *r.PayerPersonID == personID && r.Status == ledger.ReceivablePending {
			total += ledger.Cents(r.Amount)
		}
	}
	return total, nil
}

func (s *Store) receivablesLocked(keep func(ledger.Receivable) bool) []ledger.Receivable {
	out := make([]ledger.Receivable, 0)
	for _, r := range s.receivables.all() {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

func (s *Store) receivableByInstallmentLocked(tenantID, installmentID uuid.UUID) (ledger.Receivable, bool) {
	for _, r := range s.receivables.all() {
		if r.TenantID == tenantID && r.InstallmentID != nil && *r.InstallmentID == installmentID {
			return r, true
		}
	}
	return ledger.Receivable{}, false
}

// --- transfers ---

// ListTransfers returns the tenant's transfers, latest date first.
func (s *Store) ListTransfers(_ context.Context, tenantID uuid.UUID) ([]ledger.Transfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.Transfer, 0)
	for _, t := range s.transfers.all() {
		if t.TenantID == tenantID {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// --- contracts ---

// GetContract returns the contract with its recipients and installments.
func (s *Store) GetContract(_ context.Context, tenantID, contractID uuid.UUID) (ledger.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.contracts.get(contractID)
	if !ok || c.TenantID != tenantID {
		return ledger.Contract{}, errs.ErrNotFound
	}
	return s.hydrateLocked(c), nil
}

// ListContracts returns the tenant's contracts, newest first.
func (s *Store) ListContracts(_ context.Context, tenantID uuid.UUID) ([]ledger.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.Contract, 0)
	for _, c := range s.contracts.all() {
		if c.TenantID == tenantID {
			out = append(out, s.hydrateLocked(c))
		}
	}
	// insertion order is creation order, so reversing keeps ties newest first
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) hydrateLocked(c ledger.Contract) ledger.Contract {
	ids := append([]uuid.UUID(nil), c.RecipientPersonIDs...)
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	c.RecipientPersonIDs = ids
	c.Installments = s.installmentsLocked(c.TenantID, c.ID)
	return c
}

func (s *Store) installmentsLocked(tenantID, contractID uuid.UUID) []ledger.Installment {
	out := make([]ledger.Installment, 0)
	for _, in := range s.installments.all() {
		if in.TenantID == tenantID && in.ContractID == contractID {
			out = append(out, in)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

// ListRecipients returns the people notified for a contract, ordered by id.
func (s *Store) ListRecipients(_ context.Context, tenantID, contractID uuid.UUID) ([]ledger.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.contracts.get(contractID)
	if !ok || c.TenantID != tenantID {
		return nil, errs.ErrNotFound
	}
	out := make([]ledger.Person, 0, len(c.RecipientPersonIDs))
	for _, id := range c.RecipientPersonIDs {
		if p, ok := s.people.get(id); ok && p.TenantID == tenantID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (s *Store) GetInstallment(_ context.Context, tenantID, installmentID uuid.UUID) (ledger.Installment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	in, ok := s.installments.get(installmentID)
	if !ok || in.TenantID != tenantID {
		return ledger.Installment{}, errs.ErrNotFound
	}
	return in, nil
}

// ListEmailLogs returns the notification log of a contract in the order it was written.
func (s *Store) ListEmailLogs(_ context.Context, tenantID, contractID uuid.UUID) ([]ledger.EmailLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.EmailLog, 0)
	for _, l := range s.emailLogs.all() {
		if l.TenantID == tenantID && l.ContractID == contractID {
			out = append(out, l)
		}
	}
	return out, nil
}

// dedupe keeps the first occurrence of every id.
func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// SeedDev inserts a fresh development tenant, see storage.NewDevSeed.
func (s *Store) SeedDev(context.Context) (storage.DevSeed, error) {
	seed := storage.NewDevSeed()
	s.SeedSchool(seed.School)
	s.SeedPerson(seed.Guardian)
	s.SeedStudent(seed.Student)
	s.SeedAccount(seed.Account)
	return seed, nil
}
