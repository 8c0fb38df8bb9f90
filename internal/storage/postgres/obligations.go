package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tinoosan/schoolfin/internal/errs"
	"github.com/tinoosan/schoolfin/internal/ledger"
)

// --- payables ---

const payableColumns = `id, tenant_id, description, vendor_person_id, vendor_counterparty_id, category_id,
	vendor_name, category, due_date, amount_minor, status, account_id, paid_at, created_at`

func scanPayable(row pgx.Row) (ledger.Payable, error) {
	var p ledger.Payable
	var minor int64
	err := row.Scan(&p.ID, &p.TenantID, &p.Description, &p.VendorPersonID, &p.VendorCounterpartyID, &p.CategoryID,
		&p.LegacyVendorName, &p.LegacyCategory, &p.DueDate, &minor, &p.Status, &p.AccountID, &p.PaidAt, &p.CreatedAt)
	if err != nil {
		return ledger.Payable{}, err
	}
	p.Amount = ledger.BRL(minor)
	return p, nil
}

func (s *Store) CreatePayable(ctx context.Context, p ledger.Payable) (ledger.Payable, error) {
	return scanPayable(s.pool.QueryRow(ctx, `
		insert into financial_payables (id, tenant_id, description, vendor_person_id, vendor_counterparty_id,
			category_id, due_date, amount_minor, status, created_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		returning `+payableColumns,
		p.ID, p.TenantID, p.Description, p.VendorPersonID, p.VendorCounterpartyID,
		p.CategoryID, p.DueDate, ledger.Cents(p.Amount), p.Status, p.CreatedAt))
}

// ListPayables orders by status, then due date, newest first within a day.
func (s *Store) ListPayables(ctx context.Context, tenantID uuid.UUID) ([]ledger.Payable, error) {
	rows, err := s.pool.Query(ctx, `
		select `+payableColumns+`
		from financial_payables
		where tenant_id = $1
		order by status asc, due_date asc, created_at desc
	`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.Payable, 0)
	for rows.Next() {
		p, err := scanPayable(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) GetPayable(ctx context.Context, tenantID, id uuid.UUID) (ledger.Payable, error) {
	p, err := scanPayable(s.pool.QueryRow(ctx, `
		select `+payableColumns+` from financial_payables where tenant_id = $1 and id = $2
	`, tenantID, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Payable{}, errs.ErrNotFound
	}
	return p, err
}

// --- receivables ---

const receivableColumns = `id, tenant_id, description, payer_person_id, payer_counterparty_id, category_id,
	payer_name, category, due_date, amount_minor, status, source, contract_id, installment_id, student_id,
	account_id, received_at, created_at`

func scanReceivable(row pgx.Row) (ledger.Receivable, error) {
	var r ledger.Receivable
	var minor int64
	err := row.Scan(&r.ID, &r.TenantID, &r.Description, &r.PayerPersonID, &r.PayerCounterpartyID, &r.CategoryID,
		&r.LegacyPayerName, &r.LegacyCategory, &r.DueDate, &minor, &r.Status, &r.Source, &r.ContractID,
		&r.InstallmentID, &r.StudentID, &r.AccountID, &r.ReceivedAt, &r.CreatedAt)
	if err != nil {
		return ledger.Receivable{}, err
	}
	r.Amount = ledger.BRL(minor)
	return r, nil
}

func collectReceivables(rows pgx.Rows) ([]ledger.Receivable, error) {
	defer rows.Close()
	out := make([]ledger.Receivable, 0)
	for rows.Next() {
		r, err := scanReceivable(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

const insertReceivable = `
	insert into financial_receivables (id, tenant_id, description, payer_person_id, payer_counterparty_id,
		category_id, payer_name, category, due_date, amount_minor, status, source, contract_id,
		installment_id, student_id, created_at)
	values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

func receivableArgs(r ledger.Receivable) []any {
	return []any{r.ID, r.TenantID, r.Description, r.PayerPersonID, r.PayerCounterpartyID,
		r.CategoryID, r.LegacyPayerName, r.LegacyCategory, r.DueDate, ledger.Cents(r.Amount), r.Status, r.Source,
		r.ContractID, r.InstallmentID, r.StudentID, r.CreatedAt}
}

func (s *Store) CreateReceivable(ctx context.Context, r ledger.Receivable) (ledger.Receivable, error) {
	return scanReceivable(s.pool.QueryRow(ctx, insertReceivable+` returning `+receivableColumns, receivableArgs(r)...))
}

func (s *Store) ListReceivables(ctx context.Context, tenantID uuid.UUID) ([]ledger.Receivable, error) {
	rows, err := s.pool.Query(ctx, `
		select `+receivableColumns+`
		from financial_receivables
		where tenant_id = $1
		order by status asc, due_date asc, created_at desc
	`, tenantID)
	if err != nil {
		return nil, err
	}
	return collectReceivables(rows)
}

func (s *Store) GetReceivable(ctx context.Context, tenantID, id uuid.UUID) (ledger.Receivable, error) {
	r, err := scanReceivable(s.pool.QueryRow(ctx, `
		select `+receivableColumns+` from financial_receivables where tenant_id = $1 and id = $2
	`, tenantID, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Receivable{}, errs.ErrNotFound
	}
	return r, err
}

func (s *Store) GetReceivableByInstallment(ctx context.Context, tenantID, installmentID uuid.UUID) (ledger.Receivable, error) {
	r, err := scanReceivable(s.pool.QueryRow(ctx, `
		select `+receivableColumns+` from financial_receivables where tenant_id = $1 and installment_id = $2
	`, tenantID, installmentID))
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Receivable{}, errs.ErrNotFound
	}
	return r, err
}

// ListReceivablesByPayer returns the payer's receivables with due date in [from, to]
// (either bound optional), latest due date first.
func (s *Store) ListReceivablesByPayer(ctx context.Context, tenantID, personID uuid.UUID, from, to *time.Time) ([]ledger.Receivable, error) {
	rows, err := s.pool.Query(ctx, `
		select `+receivableColumns+`
		from financial_receivables
		where tenant_id = $1
		  and payer_person_id = $2
		  and ($3::date is null or due_date >= $3::date)
		  and ($4::date is null or due_date <= $4::date)
		order by due_date desc, created_at desc
	`, tenantID, personID, from, to)
	if err != nil {
		return nil, err
	}
	return collectReceivables(rows)
}

// PendingTotalByPayer sums, in cents, every pending receivable of the payer.
func (s *Store) PendingTotalByPayer(ctx context.Context, tenantID, personID uuid.UUID) (int64, error) {
	var total int64
	err := s.pool.QueryRow(ctx, `
		select coalesce(sum(amount_minor), 0)::bigint
		from financial_receivables
		where tenant_id = $1 and payer_person_id = $2 and status = 'pending'
	`, tenantID, personID).Scan(&total)
	return total, err
}
