package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tinoosan/schoolfin/internal/errs"
	"github.com/tinoosan/schoolfin/internal/ledger"
)

// --- accounts ---

const accountColumns = `id, tenant_id, name, kind, initial_balance_minor, is_active, created_at`

func scanAccount(row pgx.Row) (ledger.Account, error) {
	var a ledger.Account
	var minor int64
	if err := row.Scan(&a.ID, &a.TenantID, &a.Name, &a.Kind, &minor, &a.Active, &a.CreatedAt); err != nil {
		return ledger.Account{}, err
	}
	a.InitialBalance = ledger.BRL(minor)
	return a, nil
}

func (s *Store) CreateAccount(ctx context.Context, a ledger.Account) (ledger.Account, error) {
	return scanAccount(s.pool.QueryRow(ctx, `
		insert into financial_accounts (id, tenant_id, name, kind, initial_balance_minor, is_active, created_at)
		values ($1, $2, $3, $4, $5, $6, $7)
		returning `+accountColumns,
		a.ID, a.TenantID, a.Name, a.Kind, ledger.Cents(a.InitialBalance), a.Active, a.CreatedAt))
}

// ListAccounts returns the tenant's accounts, active first, then by name.
func (s *Store) ListAccounts(ctx context.Context, tenantID uuid.UUID) ([]ledger.Account, error) {
	rows, err := s.pool.Query(ctx, `
		select `+accountColumns+`
		from financial_accounts
		where tenant_id = $1
		order by is_active desc, name asc
	`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.Account, 0)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) GetAccount(ctx context.Context, tenantID, accountID uuid.UUID) (ledger.Account, error) {
	a, err := scanAccount(s.pool.QueryRow(ctx, `
		select `+accountColumns+` from financial_accounts where tenant_id = $1 and id = $2
	`, tenantID, accountID))
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Account{}, errs.ErrNotFound
	}
	return a, err
}

// MovementTotals sums credits and debits per account for the tenant.
func (s *Store) MovementTotals(ctx context.Context, tenantID uuid.UUID) (map[uuid.UUID]ledger.Totals, error) {
	rows, err := s.pool.Query(ctx, `
		select a.id,
		       coalesce(sum(case when m.direction = 'credit' then m.amount_minor else 0 end), 0)::bigint,
		       coalesce(sum(case when m.direction = 'debit' then m.amount_minor else 0 end), 0)::bigint
		from financial_accounts a
		left join financial_account_movements m on m.account_id = a.id and m.tenant_id = a.tenant_id
		where a.tenant_id = $1
		group by a.id
	`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[uuid.UUID]ledger.Totals)
	for rows.Next() {
		var id uuid.UUID
		var t ledger.Totals
		if err := rows.Scan(&id, &t.CreditMinor, &t.DebitMinor); err != nil {
			return nil, err
		}
		out[id] = t
	}
	return out, rows.Err()
}

// ListMovements returns an account's movements by date, then creation order.
func (s *Store) ListMovements(ctx context.Context, tenantID, accountID uuid.UUID) ([]ledger.Movement, error) {
	rows, err := s.pool.Query(ctx, `
		select id, tenant_id, account_id, direction, origin_kind, origin_id, movement_date, amount_minor, note, created_at
		from financial_account_movements
		where tenant_id = $1 and account_id = $2
		order by movement_date asc, created_at asc
	`, tenantID, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.Movement, 0)
	for rows.Next() {
		var m ledger.Movement
		var minor int64
		if err := rows.Scan(&m.ID, &m.TenantID, &m.AccountID, &m.Direction, &m.OriginKind, &m.OriginID, &m.Date, &minor, &m.Note, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Amount = ledger.BRL(minor)
		out = append(out, m)
	}
	return out, rows.Err()
}

// --- counterparties and categories ---

func (s *Store) CreateCounterparty(ctx context.Context, c ledger.Counterparty) (ledger.Counterparty, error) {
	_, err := s.pool.Exec(ctx, `
		insert into financial_counterparties (id, tenant_id, name, kind, is_active, created_at)
		values ($1, $2, $3, $4, $5, $6)
	`, c.ID, c.TenantID, c.Name, c.Kind, c.Active, c.CreatedAt)
	if err != nil {
		return ledger.Counterparty{}, err
	}
	return c, nil
}

func (s *Store) ListCounterparties(ctx context.Context, tenantID uuid.UUID) ([]ledger.Counterparty, error) {
	rows, err := s.pool.Query(ctx, `
		select id, tenant_id, name, kind, is_active, created_at
		from financial_counterparties
		where tenant_id = $1
		order by is_active desc, name asc
	`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.Counterparty, 0)
	for rows.Next() {
		var c ledger.Counterparty
		if err := rows.Scan(&c.ID, &c.TenantID, &c.Name, &c.Kind, &c.Active, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) GetCounterparty(ctx context.Context, tenantID, id uuid.UUID) (ledger.Counterparty, error) {
	var c ledger.Counterparty
	err := s.pool.QueryRow(ctx, `
		select id, tenant_id, name, kind, is_active, created_at
		from financial_counterparties where tenant_id = $1 and id = $2
	`, tenantID, id).Scan(&c.ID, &c.TenantID, &c.Name, &c.Kind, &c.Active, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Counterparty{}, errs.ErrNotFound
	}
	return c, err
}

func (s *Store) CreateCategory(ctx context.Context, c ledger.Category) (ledger.Category, error) {
	_, err := s.pool.Exec(ctx, `
		insert into financial_categories (id, tenant_id, name, flow, is_active, created_at)
		values ($1, $2, $3, $4, $5, $6)
	`, c.ID, c.TenantID, c.Name, c.Flow, c.Active, c.CreatedAt)
	if err != nil {
		return ledger.Category{}, err
	}
	return c, nil
}

func (s *Store) ListCategories(ctx context.Context, tenantID uuid.UUID) ([]ledger.Category, error) {
	rows, err := s.pool.Query(ctx, `
		select id, tenant_id, name, flow, is_active, created_at
		from financial_categories
		where tenant_id = $1
		order by is_active desc, name asc
	`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.Category, 0)
	for rows.Next() {
		var c ledger.Category
		if err := rows.Scan(&c.ID, &c.TenantID, &c.Name, &c.Flow, &c.Active, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) GetCategory(ctx context.Context, tenantID, id uuid.UUID) (ledger.Category, error) {
	var c ledger.Category
	err := s.pool.QueryRow(ctx, `
		select id, tenant_id, name, flow, is_active, created_at
		from financial_categories where tenant_id = $1 and id = $2
	`, tenantID, id).Scan(&c.ID, &c.TenantID, &c.Name, &c.Flow, &c.Active, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Category{}, errs.ErrNotFound
	}
	return c, err
}

// --- transfers ---

// ListTransfers returns the tenant's transfers, latest date first.
func (s *Store) ListTransfers(ctx context.Context, tenantID uuid.UUID) ([]ledger.Transfer, error) {
	rows, err := s.pool.Query(ctx, `
		select id, tenant_id, from_account_id, to_account_id, transfer_date, amount_minor, note, created_at
		from financial_transfers
		where tenant_id = $1
		order by transfer_date desc, created_at desc
	`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.Transfer, 0)
	for rows.Next() {
		var t ledger.Transfer
		var minor int64
		if err := rows.Scan(&t.ID, &t.TenantID, &t.FromAccountID, &t.ToAccountID, &t.Date, &minor, &t.Note, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.Amount = ledger.BRL(minor)
		out = append(out, t)
	}
	return out, rows.Err()
}
