package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinoosan/schoolfin/internal/errs"
	"github.com/tinoosan/schoolfin/internal/ledger"
	"github.com/tinoosan/schoolfin/internal/storage"
)

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func TestTx_RollbackRestoresState(t *testing.T) {
	s := New()
	ctx := context.Background()
	tenant := uuid.New()
	p := ledger.Payable{ID: uuid.New(), TenantID: tenant, Description: "Aluguel", DueDate: day(2025, 1, 5),
		Amount: ledger.BRL(100000), Status: ledger.PayablePending}
	_, err := s.CreatePayable(ctx, p)
	require.NoError(t, err)

	boom := errors.New("boom")
	err = storage.WithTx(ctx, s, func(tx storage.Tx) error {
		if _, err := tx.SettlePayable(ctx, tenant, p.ID, uuid.New(), day(2025, 1, 6)); err != nil {
			return err
		}
		if err := tx.CreateMovement(ctx, ledger.Movement{ID: uuid.New(), TenantID: tenant, AccountID: uuid.New(),
			Direction: ledger.DirectionDebit, Amount: p.Amount}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := s.GetPayable(ctx, tenant, p.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.PayablePending, got.Status)
	assert.Nil(t, got.PaidAt)
	totals, err := s.MovementTotals(ctx, tenant)
	require.NoError(t, err)
	assert.Empty(t, totals)

	// the lock is released after rollback
	_, err = s.ListPayables(ctx, tenant)
	assert.NoError(t, err)
}

func TestTx_SettleTwiceConflicts(t *testing.T) {
	s := New()
	ctx := context.Background()
	tenant := uuid.New()
	r := ledger.Receivable{ID: uuid.New(), TenantID: tenant, Description: "Taxa", DueDate: day(2025, 2, 1),
		Amount: ledger.BRL(5000), Status: ledger.ReceivablePending, Source: ledger.SourceManual}
	_, err := s.CreateReceivable(ctx, r)
	require.NoError(t, err)

	settle := func(tenantID, id uuid.UUID) error {
		return storage.WithTx(ctx, s, func(tx storage.Tx) error {
			_, err := tx.SettleReceivable(ctx, tenantID, id, uuid.New(), day(2025, 2, 2))
			return err
		})
	}
	require.NoError(t, settle(tenant, r.ID))
	assert.ErrorIs(t, settle(tenant, r.ID), errs.ErrConflict)
	assert.ErrorIs(t, settle(tenant, uuid.New()), errs.ErrNotFound)
	assert.ErrorIs(t, settle(uuid.New(), r.ID), errs.ErrNotFound)
}

func TestTx_InstallmentReceivableIsUnique(t *testing.T) {
	s := New()
	ctx := context.Background()
	tenant := uuid.New()
	inst := uuid.New()
	mk := func() ledger.Receivable {
		return ledger.Receivable{ID: uuid.New(), TenantID: tenant, Description: "Parcela", DueDate: day(2025, 3, 1),
			Amount: ledger.BRL(100), Status: ledger.ReceivablePending, Source: ledger.SourceInstallment, InstallmentID: &inst}
	}
	err := storage.WithTx(ctx, s, func(tx storage.Tx) error {
		if err := tx.CreateReceivable(ctx, mk()); err != nil {
			return err
		}
		return tx.CreateReceivable(ctx, mk())
	})
	assert.ErrorIs(t, err, errs.ErrConflict)
	list, err := s.ListReceivables(ctx, tenant)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestListReceivablesByPayer_WindowAndOrder(t *testing.T) {
	s := New()
	ctx := context.Background()
	tenant := uuid.New()
	payer := uuid.New()
	add := func(due time.Time, status ledger.ReceivableStatus, cents int64) {
		_, err := s.CreateReceivable(ctx, ledger.Receivable{ID: uuid.New(), TenantID: tenant, PayerPersonID: &payer,
			Description: "Parcela", DueDate: due, Amount: ledger.BRL(cents), Status: status, Source: ledger.SourceManual})
		require.NoError(t, err)
	}
	add(day(2025, 1, 10), ledger.ReceivableReceived, 100)
	add(day(2025, 2, 10), ledger.ReceivablePending, 200)
	add(day(2025, 3, 10), ledger.ReceivablePending, 400)

	from, to := day(2025, 1, 1), day(2025, 2, 28)
	got, err := s.ListReceivablesByPayer(ctx, tenant, payer, &from, &to)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, day(2025, 2, 10), got[0].DueDate)
	assert.Equal(t, day(2025, 1, 10), got[1].DueDate)

	pending, err := s.PendingTotalByPayer(ctx, tenant, payer)
	require.NoError(t, err)
	assert.Equal(t, int64(600), pending)
}

func TestGetStudent_PrefersPersonName(t *testing.T) {
	s := New()
	ctx := context.Background()
	tenant := uuid.New()
	person := ledger.Person{ID: uuid.New(), TenantID: tenant, FullName: "Beatriz Lima", Active: true}
	s.SeedPerson(person)
	linked := ledger.Student{ID: uuid.New(), TenantID: tenant, Name: "Bia", PersonID: &person.ID}
	plain := ledger.Student{ID: uuid.New(), TenantID: tenant, Name: "Caio"}
	s.SeedStudent(linked)
	s.SeedStudent(plain)

	got, err := s.GetStudent(ctx, tenant, linked.ID)
	require.NoError(t, err)
	assert.Equal(t, "Beatriz Lima", got.Name)
	got, err = s.GetStudent(ctx, tenant, plain.ID)
	require.NoError(t, err)
	assert.Equal(t, "Caio", got.Name)
}

func TestSeedDev(t *testing.T) {
	s := New()
	ctx := context.Background()
	seed, err := s.SeedDev(ctx)
	require.NoError(t, err)
	p, err := s.GetPerson(ctx, seed.School.TenantID, seed.Guardian.ID)
	require.NoError(t, err)
	assert.True(t, p.HasRole(ledger.RoleFinancialGuardian))
	accs, err := s.ListAccounts(ctx, seed.School.TenantID)
	require.NoError(t, err)
	assert.Len(t, accs, 1)
	assert.NoError(t, s.Ready(ctx))
}
