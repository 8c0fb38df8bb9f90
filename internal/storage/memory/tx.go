package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tinoosan/schoolfin/internal/errs"
	"github.com/tinoosan/schoolfin/internal/ledger"
	"github.com/tinoosan/schoolfin/internal/storage"
)

// tx holds the store's write lock until Commit or Rollback. Every write appends its
// inverse to undo so Rollback can replay them in reverse.
type tx struct {
	s    *Store
	undo []func()
	done bool
}

// BeginTx implements storage.TxBeginner.
func (s *Store) BeginTx(ctx context.Context) (storage.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	return &tx{s: s}, nil
}

func (t *tx) Commit(context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	t.undo = nil
	t.s.mu.Unlock()
	return nil
}

func (t *tx) Rollback(context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
	t.s.mu.Unlock()
	return nil
}

func (t *tx) record(u func()) { t.undo = append(t.undo, u) }

func (t *tx) CreateContract(_ context.Context, c ledger.Contract) error {
	c.RecipientPersonIDs = dedupe(c.RecipientPersonIDs)
	c.Installments = nil
	t.record(t.s.contracts.put(c.ID, c))
	return nil
}

func (t *tx) CreateInstallment(_ context.Context, in ledger.Installment) error {
	t.record(t.s.installments.put(in.ID, in))
	return nil
}

func (t *tx) CreateReceivable(_ context.Context, r ledger.Receivable) error {
	if r.InstallmentID != nil {
		if _, ok := t.s.receivableByInstallmentLocked(r.TenantID, *r.InstallmentID); ok {
			return errs.Conflict("installment already has a receivable")
		}
	}
	t.record(t.s.receivables.put(r.ID, r))
	return nil
}

func (t *tx) CreateTransfer(_ context.Context, tr ledger.Transfer) error {
	t.record(t.s.transfers.put(tr.ID, tr))
	return nil
}

func (t *tx) CreateMovement(_ context.Context, m ledger.Movement) error {
	t.record(t.s.movements.put(m.ID, m))
	return nil
}

func (t *tx) CreateEmailLog(_ context.Context, l ledger.EmailLog) error {
	t.record(t.s.emailLogs.put(l.ID, l))
	return nil
}

func (t *tx) SettlePayable(_ context.Context, tenantID, payableID, accountID uuid.UUID, paidAt time.Time) (ledger.Payable, error) {
	p, ok := t.s.payables.get(payableID)
	if !ok || p.TenantID != tenantID {
		return ledger.Payable{}, errs.ErrNotFound
	}
	if p.Status != ledger.PayablePending {
		return ledger.Payable{}, errs.Conflict("payable already settled")
	}
	p.Status = ledger.PayablePaid
	p.AccountID = &accountID
	p.PaidAt = &paidAt
	t.record(t.s.payables.put(p.ID, p))
	return p, nil
}

func (t *tx) SettleReceivable(_ context.Context, tenantID, receivableID, accountID uuid.UUID, receivedAt time.Time) (ledger.Receivable, error) {
	r, ok := t.s.receivables.get(receivableID)
	if !ok || r.TenantID != tenantID {
		return ledger.Receivable{}, errs.ErrNotFound
	}
	if r.Status != ledger.ReceivablePending {
		return ledger.Receivable{}, errs.Conflict("receivable already settled")
	}
	r.Status = ledger.ReceivableReceived
	r.AccountID = &accountID
	r.ReceivedAt = &receivedAt
	t.record(t.s.receivables.put(r.ID, r))
	return r, nil
}

func (t *tx) MarkInstallmentPaid(_ context.Context, tenantID, installmentID uuid.UUID, paidAt time.Time) error {
	in, ok := t.s.installments.get(installmentID)
	if !ok || in.TenantID != tenantID {
		return errs.ErrNotFound
	}
	if in.Status == ledger.InstallmentPaid {
		return errs.Conflict("installment already paid")
	}
	in.Status = ledger.InstallmentPaid
	if in.PaidAt == nil {
		in.PaidAt = &paidAt
	}
	t.record(t.s.installments.put(in.ID, in))
	return nil
}

func (t *tx) ReceiveInstallmentReceivable(_ context.Context, tenantID, installmentID uuid.UUID, receivedAt time.Time) error {
	r, ok := t.s.receivableByInstallmentLocked(tenantID, installmentID)
	if !ok || r.Status != ledger.ReceivablePending {
		return nil
	}
	r.Status = ledger.ReceivableReceived
	if r.ReceivedAt == nil {
		r.ReceivedAt = &receivedAt
	}
	t.record(t.s.receivables.put(r.ID, r))
	return nil
}

func (t *tx) SetInstrument(_ context.Context, tenantID, installmentID uuid.UUID, ins ledger.Instrument) error {
	in, ok := t.s.installments.get(installmentID)
	if !ok || in.TenantID != tenantID {
		return errs.ErrNotFound
	}
	in.Instrument = ins
	t.record(t.s.installments.put(in.ID, in))
	return nil
}

func (t *tx) MarkInstallmentEmailed(_ context.Context, tenantID, installmentID uuid.UUID, at time.Time) error {
	in, ok := t.s.installments.get(installmentID)
	if !ok || in.TenantID != tenantID {
		return errs.ErrNotFound
	}
	in.EmailedAt = &at
	t.record(t.s.installments.put(in.ID, in))
	return nil
}
