package settlement

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinoosan/schoolfin/internal/errs"
	"github.com/tinoosan/schoolfin/internal/ledger"
	"github.com/tinoosan/schoolfin/internal/service/balance"
	"github.com/tinoosan/schoolfin/internal/service/registry"
	"github.com/tinoosan/schoolfin/internal/storage"
	"github.com/tinoosan/schoolfin/internal/storage/memory"
)

type fixture struct {
	svc     Service
	balance balance.Service
	store   *memory.Store
	p       ledger.Principal
	bank    ledger.Account
	cash    ledger.Account
}

func setup(t *testing.T) fixture {
	t.Helper()
	st := memory.New()
	p := ledger.Principal{UserID: uuid.New(), TenantID: uuid.New(), Role: ledger.RoleAdmin}
	bank := ledger.Account{ID: uuid.New(), TenantID: p.TenantID, Name: "Banco", Kind: ledger.AccountKindCurrent, InitialBalance: ledger.BRL(50000), Active: true}
	cash := ledger.Account{ID: uuid.New(), TenantID: p.TenantID, Name: "Caixa", Kind: ledger.AccountKindCash, InitialBalance: ledger.BRL(0), Active: true}
	st.SeedAccount(bank)
	st.SeedAccount(cash)
	return fixture{
		svc:     New(st, registry.New(st, st)),
		balance: balance.New(st),
		store:   st,
		p:       p,
		bank:    bank,
		cash:    cash,
	}
}

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func (f fixture) balanceOf(t *testing.T, id uuid.UUID) int64 {
	t.Helper()
	b, err := f.balance.AccountBalance(context.Background(), f.p, id)
	require.NoError(t, err)
	return ledger.Cents(b.Balance)
}

func (f fixture) movements(t *testing.T, id uuid.UUID) []ledger.Movement {
	t.Helper()
	m, err := f.balance.ListMovements(context.Background(), f.p, id)
	require.NoError(t, err)
	return m
}

func TestSettlePayable_PostsOneDebit(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p := ledger.Payable{ID: uuid.New(), TenantID: f.p.TenantID, Description: "Conta de luz", DueDate: day(2025, 3, 10),
		Amount: ledger.BRL(12345), Status: ledger.PayablePending}
	_, err := f.store.CreatePayable(ctx, p)
	require.NoError(t, err)

	paidAt := day(2025, 3, 9)
	got, err := f.svc.SettlePayable(ctx, f.p, p.ID, f.bank.ID, &paidAt)
	require.NoError(t, err)
	assert.Equal(t, ledger.PayablePaid, got.Status)
	require.NotNil(t, got.PaidAt)
	assert.Equal(t, paidAt, *got.PaidAt)
	require.NotNil(t, got.AccountID)
	assert.Equal(t, f.bank.ID, *got.AccountID)

	movs := f.movements(t, f.bank.ID)
	require.Len(t, movs, 1)
	m := movs[0]
	assert.Equal(t, ledger.DirectionDebit, m.Direction)
	assert.Equal(t, ledger.OriginPayablePayment, m.OriginKind)
	assert.Equal(t, p.ID, m.OriginID)
	assert.Equal(t, paidAt, m.Date)
	require.NotNil(t, m.Note)
	assert.Equal(t, "Baixa de conta a pagar", *m.Note)
	assert.Equal(t, int64(50000-12345), f.balanceOf(t, f.bank.ID))

	// second settle is a conflict and posts nothing
	_, err = f.svc.SettlePayable(ctx, f.p, p.ID, f.bank.ID, nil)
	assert.ErrorIs(t, err, errs.ErrConflict)
	assert.Len(t, f.movements(t, f.bank.ID), 1)
	assert.Equal(t, int64(50000-12345), f.balanceOf(t, f.bank.ID))
}

func TestSettlePayable_Errors(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.SettlePayable(ctx, f.p, uuid.New(), f.bank.ID, nil)
	assert.ErrorIs(t, err, errs.ErrNotFound)

	_, err = f.svc.SettlePayable(ctx, f.p, uuid.New(), uuid.New(), nil)
	assert.ErrorIs(t, err, errs.ErrReference)

	outsider := f.p
	outsider.Role = "viewer"
	_, err = f.svc.SettlePayable(ctx, outsider, uuid.New(), f.bank.ID, nil)
	assert.ErrorIs(t, err, errs.ErrForbidden)
}

func TestSettleReceivable_MarksInstallmentPaid(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	inst := ledger.Installment{ID: uuid.New(), ContractID: uuid.New(), TenantID: f.p.TenantID, Number: 1,
		DueDate: day(2025, 4, 10), Amount: ledger.BRL(30000), Status: ledger.InstallmentPending}
	r := ledger.Receivable{ID: uuid.New(), TenantID: f.p.TenantID, Description: "Parcela 1/1", DueDate: inst.DueDate,
		Amount: inst.Amount, Status: ledger.ReceivablePending, Source: ledger.SourceInstallment, InstallmentID: &inst.ID}
	err := storage.WithTx(ctx, f.store, func(tx storage.Tx) error {
		if err := tx.CreateInstallment(ctx, inst); err != nil {
			return err
		}
		return tx.CreateReceivable(ctx, r)
	})
	require.NoError(t, err)

	at := day(2025, 4, 8)
	got, err := f.svc.SettleReceivable(ctx, f.p, r.ID, f.cash.ID, &at)
	require.NoError(t, err)
	assert.Equal(t, ledger.ReceivableReceived, got.Status)

	movs := f.movements(t, f.cash.ID)
	require.Len(t, movs, 1)
	assert.Equal(t, ledger.DirectionCredit, movs[0].Direction)
	assert.Equal(t, ledger.OriginReceivablePayment, movs[0].OriginKind)
	assert.Equal(t, "Baixa de conta a receber", *movs[0].Note)
	assert.Equal(t, int64(30000), f.balanceOf(t, f.cash.ID))

	paid, err := f.store.GetInstallment(ctx, f.p.TenantID, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.InstallmentPaid, paid.Status)
	require.NotNil(t, paid.PaidAt)
	assert.Equal(t, at, *paid.PaidAt)

	_, err = f.svc.SettleReceivable(ctx, f.p, r.ID, f.cash.ID, nil)
	assert.ErrorIs(t, err, errs.ErrConflict)
	assert.Len(t, f.movements(t, f.cash.ID), 1)
}

// race runs settle from n goroutines at once and counts wins and conflicts.
func race(t *testing.T, n int, settle func() error) (wins, conflicts int) {
	t.Helper()
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		other []error
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
				other = append(other, err)
			}
		}()
	}
	close(start)
	wg.Wait()
	require.Empty(t, other)
	return wins, conflicts
}

func TestSettlePayable_ConcurrentOneWins(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p := ledger.Payable{ID: uuid.New(), TenantID: f.p.TenantID, Description: "Aluguel", DueDate: day(2025, 5, 5),
		Amount: ledger.BRL(20000), Status: ledger.PayablePending}
	_, err := f.store.CreatePayable(ctx, p)
	require.NoError(t, err)

	const n = 50
	wins, conflicts := race(t, n, func() error {
		_, err := f.svc.SettlePayable(ctx, f.p, p.ID, f.bank.ID, nil)
		return err
	})
	assert.Equal(t, 1, wins)
	assert.Equal(t, n-1, conflicts)
	assert.Len(t, f.movements(t, f.bank.ID), 1)
	assert.Equal(t, int64(50000-20000), f.balanceOf(t, f.bank.ID))
}

func TestSettleReceivable_ConcurrentOneWins(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	inst := ledger.Installment{ID: uuid.New(), ContractID: uuid.New(), TenantID: f.p.TenantID, Number: 1,
		DueDate: day(2025, 5, 10), Amount: ledger.BRL(15000), Status: ledger.InstallmentPending}
	r := ledger.Receivable{ID: uuid.New(), TenantID: f.p.TenantID, Description: "Parcela 1/1", DueDate: inst.DueDate,
		Amount: inst.Amount, Status: ledger.ReceivablePending, Source: ledger.SourceInstallment, InstallmentID: &inst.ID}
	err := storage.WithTx(ctx, f.store, func(tx storage.Tx) error {
		if err := tx.CreateInstallment(ctx, inst); err != nil {
			return err
		}
		return tx.CreateReceivable(ctx, r)
	})
	require.NoError(t, err)

	const n = 50
	wins, conflicts := race(t, n, func() error {
		_, err := f.svc.SettleReceivable(ctx, f.p, r.ID, f.cash.ID, nil)
		return err
	})
	assert.Equal(t, 1, wins)
	assert.Equal(t, n-1, conflicts)
	assert.Len(t, f.movements(t, f.cash.ID), 1)
	assert.Equal(t, int64(15000), f.balanceOf(t, f.cash.ID))

	paid, err := f.store.GetInstallment(ctx, f.p.TenantID, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.InstallmentPaid, paid.Status)
}

func TestCreateTransfer_TwoOppositeMovements(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	note := "  sangria do caixa  "

	tr, err := f.svc.CreateTransfer(ctx, f.p, TransferInput{
		FromAccountID: f.bank.ID, ToAccountID: f.cash.ID, Date: day(2025, 5, 2), AmountMinor: 20000, Note: &note,
	})
	require.NoError(t, err)
	require.NotNil(t, tr.Note)
	assert.Equal(t, "sangria do caixa", *tr.Note)

	out := f.movements(t, f.bank.ID)
	in := f.movements(t, f.cash.ID)
	require.Len(t, out, 1)
	require.Len(t, in, 1)
	assert.Equal(t, ledger.DirectionDebit, out[0].Direction)
	assert.Equal(t, ledger.OriginTransferOut, out[0].OriginKind)
	assert.Equal(t, "Transferência enviada", *out[0].Note)
	assert.Equal(t, ledger.DirectionCredit, in[0].Direction)
	assert.Equal(t, ledger.OriginTransferIn, in[0].OriginKind)
	assert.Equal(t, "Transferência recebida", *in[0].Note)
	assert.Equal(t, tr.ID, out[0].OriginID)
	assert.Equal(t, tr.ID, in[0].OriginID)
	assert.Equal(t, ledger.Cents(out[0].Amount), ledger.Cents(in[0].Amount))

	// total money across the tenant's accounts is unchanged by a transfer
	assert.Equal(t, int64(30000), f.balanceOf(t, f.bank.ID))
	assert.Equal(t, int64(20000), f.balanceOf(t, f.cash.ID))

	list, err := f.svc.ListTransfers(ctx, f.p)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestCreateTransfer_Validation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	blank := "   "

	_, err := f.svc.CreateTransfer(ctx, f.p, TransferInput{FromAccountID: f.bank.ID, ToAccountID: f.bank.ID, AmountMinor: 100})
	assert.ErrorIs(t, err, errs.ErrInvalid)
	_, err = f.svc.CreateTransfer(ctx, f.p, TransferInput{FromAccountID: f.bank.ID, ToAccountID: f.cash.ID, AmountMinor: 0})
	assert.ErrorIs(t, err, errs.ErrInvalid)
	_, err = f.svc.CreateTransfer(ctx, f.p, TransferInput{FromAccountID: f.bank.ID, ToAccountID: uuid.New(), AmountMinor: 100})
	assert.ErrorIs(t, err, errs.ErrReference)

	staff := f.p
	staff.Role = ledger.RoleStaff
	_, err = f.svc.CreateTransfer(ctx, staff, TransferInput{FromAccountID: f.bank.ID, ToAccountID: f.cash.ID, AmountMinor: 100})
	assert.ErrorIs(t, err, errs.ErrForbidden)

	tr, err := f.svc.CreateTransfer(ctx, f.p, TransferInput{FromAccountID: f.bank.ID, ToAccountID: f.cash.ID, AmountMinor: 100, Note: &blank})
	require.NoError(t, err)
	assert.Nil(t, tr.Note)
}

func TestBalance_OrderIndependent(t *testing.T) {
	ops := []struct {
		from, to bool // true = bank
		cents    int64
	}{{true, false, 1000}, {false, true, 250}, {true, false, 99}, {false, true, 1}}

	run := func(order []int) (int64, int64) {
		f := setup(t)
		ctx := context.Background()
		for _, i := range order {
			op := ops[i]
			from, to := f.cash.ID, f.bank.ID
			if op.from {
				from, to = f.bank.ID, f.cash.ID
			}
			_, err := f.svc.CreateTransfer(ctx, f.p, TransferInput{FromAccountID: from, ToAccountID: to, AmountMinor: op.cents})
			require.NoError(t, err)
		}
		return f.balanceOf(t, f.bank.ID), f.balanceOf(t, f.cash.ID)
	}
	b1, c1 := run([]int{0, 1, 2, 3})
	b2, c2 := run([]int{3, 2, 1, 0})
	assert.Equal(t, b1, b2)
	assert.Equal(t, c1, c2)
	assert.Equal(t, int64(50000-1000+250-99+1), b1)
	assert.Equal(t, int64(50000), b1+c1)
}
