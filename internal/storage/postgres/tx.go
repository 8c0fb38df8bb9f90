package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tinoosan/schoolfin/internal/errs"
	"github.com/tinoosan/schoolfin/internal/ledger"
	"github.com/tinoosan/schoolfin/internal/storage"
)

type tx struct {
	tx pgx.Tx
}

// BeginTx implements storage.TxBeginner.
func (s *Store) BeginTx(ctx context.Context) (storage.Tx, error) {
	t, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	return &tx{tx: t}, nil
}

func (t *tx) Commit(ctx context.Context) error { return t.tx.Commit(ctx) }

func (t *tx) Rollback(ctx context.Context) error {
	err := t.tx.Rollback(ctx)
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return err
}

func (t *tx) CreateContract(ctx context.Context, c ledger.Contract) error {
	if _, err := t.tx.Exec(ctx, `
		insert into financial_contracts (id, tenant_id, student_id, payer_person_id, description,
			total_amount_minor, installments_count, first_due_date, due_day, billing_mode, pix_key,
			payment_instructions, status, created_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, c.ID, c.TenantID, c.StudentID, c.PayerPersonID, c.Description, ledger.Cents(c.TotalAmount),
		c.InstallmentsCount, c.FirstDueDate, c.DueDay, c.BillingMode, c.PixKey, c.PaymentInstructions,
		c.Status, c.CreatedAt); err != nil {
		return fmt.Errorf("insert contract: %w", err)
	}
	for _, pid := range c.RecipientPersonIDs {
		if _, err := t.tx.Exec(ctx, `
			insert into financial_contract_recipients (tenant_id, contract_id, person_id)
			values ($1, $2, $3)
			on conflict do nothing
		`, c.TenantID, c.ID, pid); err != nil {
			return fmt.Errorf("insert recipient: %w", err)
		}
	}
	return nil
}

func (t *tx) CreateInstallment(ctx context.Context, in ledger.Installment) error {
	if _, err := t.tx.Exec(ctx, `
		insert into financial_installments (id, tenant_id, contract_id, installment_number, due_date, amount_minor, status)
		values ($1, $2, $3, $4, $5, $6, $7)
	`, in.ID, in.TenantID, in.ContractID, in.Number, in.DueDate, ledger.Cents(in.Amount), in.Status); err != nil {
		return fmt.Errorf("insert installment: %w", err)
	}
	return nil
}

func (t *tx) CreateReceivable(ctx context.Context, r ledger.Receivable) error {
	if _, err := t.tx.Exec(ctx, insertReceivable, receivableArgs(r)...); err != nil {
		return fmt.Errorf("insert receivable: %w", err)
	}
	return nil
}

func (t *tx) CreateTransfer(ctx context.Context, tr ledger.Transfer) error {
	if _, err := t.tx.Exec(ctx, `
		insert into financial_transfers (id, tenant_id, from_account_id, to_account_id, transfer_date, amount_minor, note, created_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8)
	`, tr.ID, tr.TenantID, tr.FromAccountID, tr.ToAccountID, tr.Date, ledger.Cents(tr.Amount), tr.Note, tr.CreatedAt); err != nil {
		return fmt.Errorf("insert transfer: %w", err)
	}
	return nil
}

func (t *tx) CreateMovement(ctx context.Context, m ledger.Movement) error {
	if _, err := t.tx.Exec(ctx, `
		insert into financial_account_movements (id, tenant_id, account_id, direction, origin_kind, origin_id,
			movement_date, amount_minor, note, created_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, m.ID, m.TenantID, m.AccountID, m.Direction, m.OriginKind, m.OriginID, m.Date, ledger.Cents(m.Amount), m.Note, m.CreatedAt); err != nil {
		return fmt.Errorf("insert movement: %w", err)
	}
	return nil
}

func (t *tx) CreateEmailLog(ctx context.Context, l ledger.EmailLog) error {
	if _, err := t.tx.Exec(ctx, `
		insert into financial_email_logs (id, tenant_id, contract_id, installment_id, recipient_person_id,
			recipient_email, subject, body, sent_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, l.ID, l.TenantID, l.ContractID, l.InstallmentID, l.RecipientPersonID, l.RecipientEmail, l.Subject, l.Body, l.SentAt); err != nil {
		return fmt.Errorf("insert email log: %w", err)
	}
	return nil
}

// SettlePayable relies on the status predicate of the update: a concurrent settle sees
// no row and is reported as a conflict instead of posting a second movement.
func (t *tx) SettlePayable(ctx context.Context, tenantID, payableID, accountID uuid.UUID, paidAt time.Time) (ledger.Payable, error) {
	p, err := scanPayable(t.tx.QueryRow(ctx, `
		update financial_payables
		set status = 'paid', account_id = $3, paid_at = $4
		where tenant_id = $1 and id = $2 and status = 'pending'
		returning `+payableColumns, tenantID, payableID, accountID, paidAt))
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Payable{}, t.missingOrSettled(ctx, `select 1 from financial_payables where tenant_id = $1 and id = $2`, tenantID, payableID, "payable already settled")
	}
	return p, err
}

func (t *tx) SettleReceivable(ctx context.Context, tenantID, receivableID, accountID uuid.UUID, receivedAt time.Time) (ledger.Receivable, error) {
	r, err := scanReceivable(t.tx.QueryRow(ctx, `
		update financial_receivables
		set status = 'received', account_id = $3, received_at = $4
		where tenant_id = $1 and id = $2 and status = 'pending'
		returning `+receivableColumns, tenantID, receivableID, accountID, receivedAt))
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Receivable{}, t.missingOrSettled(ctx, `select 1 from financial_receivables where tenant_id = $1 and id = $2`, tenantID, receivableID, "receivable already settled")
	}
	return r, err
}

func (t *tx) MarkInstallmentPaid(ctx context.Context, tenantID, installmentID uuid.UUID, paidAt time.Time) error {
	ct, err := t.tx.Exec(ctx, `
		update financial_installments
		set status = 'paid', paid_at = coalesce(paid_at, $3)
		where tenant_id = $1 and id = $2 and status <> 'paid'
	`, tenantID, installmentID, paidAt)
	if err != nil {
		return fmt.Errorf("update installment: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return t.missingOrSettled(ctx, `select 1 from financial_installments where tenant_id = $1 and id = $2`, tenantID, installmentID, "installment already paid")
	}
	return nil
}

func (t *tx) ReceiveInstallmentReceivable(ctx context.Context, tenantID, installmentID uuid.UUID, receivedAt time.Time) error {
	if _, err := t.tx.Exec(ctx, `
		update financial_receivables
		set status = 'received', received_at = coalesce(received_at, $3)
		where tenant_id = $1 and installment_id = $2 and status = 'pending'
	`, tenantID, installmentID, receivedAt); err != nil {
		return fmt.Errorf("update receivable: %w", err)
	}
	return nil
}

func (t *tx) SetInstrument(ctx context.Context, tenantID, installmentID uuid.UUID, ins ledger.Instrument) error {
	ct, err := t.tx.Exec(ctx, `
		update financial_installments
		set boleto_code = $3, boleto_url = $4, boleto_pdf_url = $5, pix_copy_paste = $6, payment_instructions = $7
		where tenant_id = $1 and id = $2
	`, tenantID, installmentID, ins.BoletoCode, ins.BoletoURL, ins.BoletoPDFURL, ins.PixCopyPaste, ins.PaymentInstructions)
	if err != nil {
		return fmt.Errorf("update instrument: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (t *tx) MarkInstallmentEmailed(ctx context.Context, tenantID, installmentID uuid.UUID, at time.Time) error {
	ct, err := t.tx.Exec(ctx, `
		update financial_installments set emailed_at = $3 where tenant_id = $1 and id = $2
	`, tenantID, installmentID, at)
	if err != nil {
		return fmt.Errorf("update emailed_at: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// missingOrSettled tells apart a conditional update that matched nothing because the row is
// gone from one that lost on its status predicate.
func (t *tx) missingOrSettled(ctx context.Context, existsSQL string, tenantID, id uuid.UUID, msg string) error {
	var one int
	err := t.tx.QueryRow(ctx, existsSQL, tenantID, id).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return errs.ErrNotFound
	}
	if err != nil {
		return err
	}
	return errs.Conflict(msg)
}
