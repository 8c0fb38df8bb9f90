package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tinoosan/schoolfin/internal/errs"
	"github.com/tinoosan/schoolfin/internal/ledger"
)

const contractColumns = `id, tenant_id, student_id, payer_person_id, description, total_amount_minor,
	installments_count, first_due_date, due_day, billing_mode, pix_key, payment_instructions, status, created_at`

func scanContract(row pgx.Row) (ledger.Contract, error) {
	var c ledger.Contract
	var minor int64
	err := row.Scan(&c.ID, &c.TenantID, &c.StudentID, &c.PayerPersonID, &c.Description, &minor,
		&c.InstallmentsCount, &c.FirstDueDate, &c.DueDay, &c.BillingMode, &c.PixKey, &c.PaymentInstructions,
		&c.Status, &c.CreatedAt)
	if err != nil {
		return ledger.Contract{}, err
	}
	c.TotalAmount = ledger.BRL(minor)
	return c, nil
}

const installmentColumns = `id, contract_id, tenant_id, installment_number, due_date, amount_minor, status,
	boleto_code, boleto_url, boleto_pdf_url, pix_copy_paste, payment_instructions, emailed_at, paid_at`

func scanInstallment(row pgx.Row) (ledger.Installment, error) {
	var in ledger.Installment
	var minor int64
	err := row.Scan(&in.ID, &in.ContractID, &in.TenantID, &in.Number, &in.DueDate, &minor, &in.Status,
		&in.BoletoCode, &in.BoletoURL, &in.BoletoPDFURL, &in.PixCopyPaste, &in.PaymentInstructions,
		&in.EmailedAt, &in.PaidAt)
	if err != nil {
		return ledger.Installment{}, err
	}
	in.Amount = ledger.BRL(minor)
	return in, nil
}

// GetContract returns the contract with its recipients and installments.
func (s *Store) GetContract(ctx context.Context, tenantID, contractID uuid.UUID) (ledger.Contract, error) {
	c, err := scanContract(s.pool.QueryRow(ctx, `
		select `+contractColumns+` from financial_contracts where tenant_id = $1 and id = $2
	`, tenantID, contractID))
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Contract{}, errs.ErrNotFound
	}
	if err != nil {
		return ledger.Contract{}, err
	}
	if err := s.hydrate(ctx, &c); err != nil {
		return ledger.Contract{}, err
	}
	return c, nil
}

// ListContracts returns the tenant's contracts, newest first.
func (s *Store) ListContracts(ctx context.Context, tenantID uuid.UUID) ([]ledger.Contract, error) {
	rows, err := s.pool.Query(ctx, `
		select `+contractColumns+`
		from financial_contracts
		where tenant_id = $1
		order by created_at desc
	`, tenantID)
	if err != nil {
		return nil, err
	}
	out := make([]ledger.Contract, 0)
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if err := s.hydrate(ctx, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Store) hydrate(ctx context.Context, c *ledger.Contract) error {
	rows, err := s.pool.Query(ctx, `
		select person_id from financial_contract_recipients
		where tenant_id = $1 and contract_id = $2
		order by person_id
	`, c.TenantID, c.ID)
	if err != nil {
		return err
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return err
	}
	c.RecipientPersonIDs = ids

	rows, err = s.pool.Query(ctx, `
		select `+installmentColumns+`
		from financial_installments
		where tenant_id = $1 and contract_id = $2
		order by installment_number
	`, c.TenantID, c.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	c.Installments = make([]ledger.Installment, 0, c.InstallmentsCount)
	for rows.Next() {
		in, err := scanInstallment(rows)
		if err != nil {
			return err
		}
		c.Installments = append(c.Installments, in)
	}
	return rows.Err()
}

// ListRecipients returns the people notified for a contract, ordered by id.
func (s *Store) ListRecipients(ctx context.Context, tenantID, contractID uuid.UUID) ([]ledger.Person, error) {
	rows, err := s.pool.Query(ctx, `
		select p.id, p.tenant_id, p.full_name, p.email, p.phone, p.document, p.is_active,
		       array(select r.role from person_roles r where r.person_id = p.id order by r.role)
		from financial_contract_recipients cr
		join people p on p.id = cr.person_id and p.tenant_id = cr.tenant_id
		where cr.tenant_id = $1 and cr.contract_id = $2
		order by p.id
	`, tenantID, contractID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.Person, 0)
	for rows.Next() {
		var p ledger.Person
		if err := rows.Scan(&p.ID, &p.TenantID, &p.FullName, &p.Email, &p.Phone, &p.Document, &p.Active, &p.Roles); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) GetInstallment(ctx context.Context, tenantID, installmentID uuid.UUID) (ledger.Installment, error) {
	in, err := scanInstallment(s.pool.QueryRow(ctx, `
		select `+installmentColumns+` from financial_installments where tenant_id = $1 and id = $2
	`, tenantID, installmentID))
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Installment{}, errs.ErrNotFound
	}
	return in, err
}

// ListEmailLogs returns the notification log of a contract in the order it was written.
func (s *Store) ListEmailLogs(ctx context.Context, tenantID, contractID uuid.UUID) ([]ledger.EmailLog, error) {
	rows, err := s.pool.Query(ctx, `
		select id, tenant_id, contract_id, installment_id, recipient_person_id, recipient_email, subject, body, sent_at
		from financial_email_logs
		where tenant_id = $1 and contract_id = $2
		order by sent_at asc, recipient_email asc
	`, tenantID, contractID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.EmailLog, 0)
	for rows.Next() {
		var l ledger.EmailLog
		if err := rows.Scan(&l.ID, &l.TenantID, &l.ContractID, &l.InstallmentID, &l.RecipientPersonID,
			&l.RecipientEmail, &l.Subject, &l.Body, &l.SentAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
