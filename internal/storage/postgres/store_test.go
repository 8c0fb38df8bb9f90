package postgres

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tinoosan/schoolfin/internal/errs"
	"github.com/tinoosan/schoolfin/internal/ledger"
	"github.com/tinoosan/schoolfin/internal/service/registry"
	"github.com/tinoosan/schoolfin/internal/service/settlement"
	"github.com/tinoosan/schoolfin/internal/storage"
)

func getTestDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping Postgres store tests")
	}
	return dsn
}

func mustOpen(t *testing.T, dsn string) *Store {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s, err := Open(ctx, dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return s
}

func applyInitSQL(t *testing.T, s *Store) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	// Resolve init SQL path relative to this test file so CWD doesn't matter
	_, thisFile, _, _ := runtime.Caller(0)
	repoRoot := filepath.Clean(filepath.Join(filepath.Dir(thisFile), "../../../"))
	b, err := os.ReadFile(filepath.Join(repoRoot, "db", "migrations", "0001_init.up.sql"))
	if err != nil {
		t.Fatalf("read init sql: %v", err)
	}
	if _, err := s.pool.Exec(ctx, string(b)); err != nil {
		t.Fatalf("apply init sql: %v", err)
	}
}

func truncateAll(t *testing.T, s *Store) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, _ = s.pool.Exec(ctx, `truncate table financial_email_logs, financial_transfers, financial_receivables,
		financial_installments, financial_contract_recipients, financial_contracts, financial_payables,
		financial_categories, financial_counterparties, financial_account_movements, financial_accounts,
		students, person_roles, people, tenants cascade`)
}

func setupStore(t *testing.T) (*Store, storage.DevSeed) {
	t.Helper()
	s := mustOpen(t, getTestDSN(t))
	t.Cleanup(s.Close)
	applyInitSQL(t, s)
	truncateAll(t, s)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Ready(ctx); err != nil {
		t.Fatalf("ready: %v", err)
	}
	seed, err := s.SeedDev(ctx)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return s, seed
}

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func TestStore_CollaboratorsAndAccounts(t *testing.T) {
	s, seed := setupStore(t)
	ctx := context.Background()
	tenant := seed.School.TenantID

	p, err := s.GetPerson(ctx, tenant, seed.Guardian.ID)
	if err != nil {
		t.Fatalf("get person: %v", err)
	}
	if !p.HasRole(ledger.RoleFinancialGuardian) {
		t.Fatalf("expected guardian role, got %v", p.Roles)
	}
	if _, err := s.GetPerson(ctx, uuid.New(), seed.Guardian.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected not found across tenants, got %v", err)
	}
	st, err := s.GetStudent(ctx, tenant, seed.Student.ID)
	if err != nil || st.Name != seed.Student.Name {
		t.Fatalf("get student: %+v %v", st, err)
	}

	acc := ledger.Account{ID: uuid.New(), TenantID: tenant, Name: "Banco", Kind: ledger.AccountKindCurrent,
		InitialBalance: ledger.BRL(-500), Active: true, CreatedAt: time.Now().UTC()}
	if _, err := s.CreateAccount(ctx, acc); err != nil {
		t.Fatalf("create account: %v", err)
	}
	list, err := s.ListAccounts(ctx, tenant)
	if err != nil {
		t.Fatalf("list accounts: %v", err)
	}
	if len(list) != 2 || list[0].Name != "Banco" {
		t.Fatalf("unexpected accounts: %+v", list)
	}
	if ledger.Cents(list[0].InitialBalance) != -500 {
		t.Fatalf("initial balance round trip: %v", list[0].InitialBalance)
	}
}

func TestStore_SettleIsConditional(t *testing.T) {
	s, seed := setupStore(t)
	ctx := context.Background()
	tenant := seed.School.TenantID

	p := ledger.Payable{ID: uuid.New(), TenantID: tenant, Description: "Luz", DueDate: day(2025, 3, 10),
		Amount: ledger.BRL(12345), Status: ledger.PayablePending, CreatedAt: time.Now().UTC()}
	if _, err := s.CreatePayable(ctx, p); err != nil {
		t.Fatalf("create payable: %v", err)
	}

	settle := func() error {
		return storage.WithTx(ctx, s, func(tx storage.Tx) error {
			if _, err := tx.SettlePayable(ctx, tenant, p.ID, seed.Account.ID, day(2025, 3, 11)); err != nil {
				return err
			}
			return tx.CreateMovement(ctx, ledger.Movement{ID: uuid.New(), TenantID: tenant, AccountID: seed.Account.ID,
				Direction: ledger.DirectionDebit, OriginKind: ledger.OriginPayablePayment, OriginID: p.ID,
				Date: day(2025, 3, 11), Amount: p.Amount, CreatedAt: time.Now().UTC()})
		})
	}
	if err := settle(); err != nil {
		t.Fatalf("first settle: %v", err)
	}
	if err := settle(); !errors.Is(err, errs.ErrConflict) {
		t.Fatalf("expected conflict on second settle, got %v", err)
	}
	err := storage.WithTx(ctx, s, func(tx storage.Tx) error {
		_, err := tx.SettlePayable(ctx, tenant, uuid.New(), seed.Account.ID, day(2025, 3, 11))
		return err
	})
	if !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	totals, err := s.MovementTotals(ctx, tenant)
	if err != nil {
		t.Fatalf("totals: %v", err)
	}
	if got := totals[seed.Account.ID]; got.DebitMinor != 12345 || got.CreditMinor != 0 {
		t.Fatalf("unexpected totals: %+v", got)
	}
	got, err := s.GetPayable(ctx, tenant, p.ID)
	if err != nil || got.Status != ledger.PayablePaid || got.AccountID == nil {
		t.Fatalf("payable after settle: %+v %v", got, err)
	}
}

func TestStore_ConcurrentSettleOneWins(t *testing.T) {
	s, seed := setupStore(t)
	ctx := context.Background()
	tenant := seed.School.TenantID
	svc := settlement.New(s, registry.New(s, s))
	staff := ledger.Principal{UserID: uuid.New(), TenantID: tenant, Role: ledger.RoleStaff}
	payer := seed.Guardian.ID

	p := ledger.Payable{ID: uuid.New(), TenantID: tenant, Description: "Aluguel", DueDate: day(2025, 5, 5),
		Amount: ledger.BRL(20000), Status: ledger.PayablePending, CreatedAt: time.Now().UTC()}
	if _, err := s.CreatePayable(ctx, p); err != nil {
		t.Fatalf("create payable: %v", err)
	}
	r := ledger.Receivable{ID: uuid.New(), TenantID: tenant, Description: "Taxa", PayerPersonID: &payer,
		DueDate: day(2025, 5, 5), Amount: ledger.BRL(7000), Status: ledger.ReceivablePending,
		Source: ledger.SourceManual, CreatedAt: time.Now().UTC()}
	if _, err := s.CreateReceivable(ctx, r); err != nil {
		t.Fatalf("create receivable: %v", err)
	}

	race := func(name string, settle func() error) {
		const n = 16
		var (
			wg              sync.WaitGroup
			mu              sync.Mutex
			wins, conflicts int
			unexpected      []error
		)
		start := make(chan struct{})
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				err := settle()
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					wins++
				case errors.Is(err, errs.ErrConflict):
					conflicts++
				default:
					unexpected = append(unexpected, err)
				}
			}()
		}
		close(start)
		wg.Wait()
		if wins != 1 || conflicts != n-1 || len(unexpected) != 0 {
			t.Fatalf("%s: wins=%d conflicts=%d unexpected=%v", name, wins, conflicts, unexpected)
		}
	}
	race("payable", func() error {
		_, err := svc.SettlePayable(ctx, staff, p.ID, seed.Account.ID, nil)
		return err
	})
	race("receivable", func() error {
		_, err := svc.SettleReceivable(ctx, staff, r.ID, seed.Account.ID, nil)
		return err
	})

	movs, err := s.ListMovements(ctx, tenant, seed.Account.ID)
	if err != nil {
		t.Fatalf("movements: %v", err)
	}
	if len(movs) != 2 {
		t.Fatalf("expected one movement per settlement, got %d", len(movs))
	}
	totals, err := s.MovementTotals(ctx, tenant)
	if err != nil {
		t.Fatalf("totals: %v", err)
	}
	if got := totals[seed.Account.ID]; got.DebitMinor != 20000 || got.CreditMinor != 7000 {
		t.Fatalf("unexpected totals: %+v", got)
	}
}

func TestStore_ContractRollsBack(t *testing.T) {
	s, seed := setupStore(t)
	ctx := context.Background()
	tenant := seed.School.TenantID
	payer := seed.Guardian.ID

	c := ledger.Contract{ID: uuid.New(), TenantID: tenant, StudentID: seed.Student.ID, PayerPersonID: &payer,
		RecipientPersonIDs: []uuid.UUID{payer, payer}, Description: "Mensalidade", TotalAmount: ledger.BRL(10000),
		InstallmentsCount: 1, FirstDueDate: day(2025, 3, 1), BillingMode: ledger.BillingSchoolBooklet,
		Status: ledger.ContractStatusActive, CreatedAt: time.Now().UTC()}
	in := ledger.Installment{ID: uuid.New(), ContractID: c.ID, TenantID: tenant, Number: 1, DueDate: c.FirstDueDate,
		Amount: c.TotalAmount, Status: ledger.InstallmentPending}

	boom := errors.New("boom")
	err := storage.WithTx(ctx, s, func(tx storage.Tx) error {
		if err := tx.CreateContract(ctx, c); err != nil {
			return err
		}
		if err := tx.CreateInstallment(ctx, in); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if _, err := s.GetContract(ctx, tenant, c.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("contract should be rolled back, got %v", err)
	}

	err = storage.WithTx(ctx, s, func(tx storage.Tx) error {
		if err := tx.CreateContract(ctx, c); err != nil {
			return err
		}
		return tx.CreateInstallment(ctx, in)
	})
	if err != nil {
		t.Fatalf("create contract: %v", err)
	}
	got, err := s.GetContract(ctx, tenant, c.ID)
	if err != nil {
		t.Fatalf("get contract: %v", err)
	}
	if len(got.RecipientPersonIDs) != 1 || len(got.Installments) != 1 {
		t.Fatalf("unexpected contract: %+v", got)
	}
}
