package postgres

// Package postgres provides a pgx-backed storage implementation that satisfies
// the repository and writer interfaces used by the HTTP API and services.
//
// Migrations that create the expected schema live under db/migrations. Amounts are
// stored as integer cents in *_minor columns and mapped to BRL money.Amount values.

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tinoosan/schoolfin/internal/errs"
	"github.com/tinoosan/schoolfin/internal/ledger"
	"github.com/tinoosan/schoolfin/internal/storage"
)

// Store holds a pgx connection pool and implements the read/write interfaces
// used across the service layer. All methods are safe for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// Open establishes a pgx pool using the provided connection string.
func Open(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Close releases the underlying pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ready pings the pool to verify connectivity.
func (s *Store) Ready(ctx context.Context) error { return s.pool.Ping(ctx) }

// SeedDev inserts one school with a guardian, a student and a cash account for quick
// local testing. Every run creates a fresh tenant.
func (s *Store) SeedDev(ctx context.Context) (storage.DevSeed, error) {
	seed := storage.NewDevSeed()
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return storage.DevSeed{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	stmts := []struct {
		sql  string
		args []any
	}{
		{`insert into tenants (id, name, code, city) values ($1, $2, $3, $4)`,
			[]any{seed.School.TenantID, seed.School.Name, seed.School.Code, seed.School.City}},
		{`insert into people (id, tenant_id, full_name, email, is_active) values ($1, $2, $3, $4, true)`,
			[]any{seed.Guardian.ID, seed.Guardian.TenantID, seed.Guardian.FullName, seed.Guardian.Email}},
		{`insert into person_roles (tenant_id, person_id, role) values ($1, $2, $3)`,
			[]any{seed.Guardian.TenantID, seed.Guardian.ID, ledger.RoleFinancialGuardian}},
		{`insert into students (id, tenant_id, name) values ($1, $2, $3)`,
			[]any{seed.Student.ID, seed.Student.TenantID, seed.Student.Name}},
		{`insert into financial_accounts (id, tenant_id, name, kind, initial_balance_minor, is_active) values ($1, $2, $3, $4, $5, true)`,
			[]any{seed.Account.ID, seed.Account.TenantID, seed.Account.Name, seed.Account.Kind, ledger.Cents(seed.Account.InitialBalance)}},
	}
	for _, st := range stmts {
		if _, err := tx.Exec(ctx, st.sql, st.args...); err != nil {
			return storage.DevSeed{}, fmt.Errorf("seed: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return storage.DevSeed{}, err
	}
	return seed, nil
}

// --- collaborator reads ---

func (s *Store) GetPerson(ctx context.Context, tenantID, personID uuid.UUID) (ledger.Person, error) {
	var p ledger.Person
	err := s.pool.QueryRow(ctx, `
		select p.id, p.tenant_id, p.full_name, p.email, p.phone, p.document, p.is_active,
		       array(select r.role from person_roles r where r.person_id = p.id order by r.role)
		from people p
		where p.tenant_id = $1 and p.id = $2
	`, tenantID, personID).Scan(&p.ID, &p.TenantID, &p.FullName, &p.Email, &p.Phone, &p.Document, &p.Active, &p.Roles)
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Person{}, errs.ErrNotFound
	}
	return p, err
}

// GetStudent resolves the display name from the linked person when there is one.
func (s *Store) GetStudent(ctx context.Context, tenantID, studentID uuid.UUID) (ledger.Student, error) {
	var st ledger.Student
	err := s.pool.QueryRow(ctx, `
		select s.id, s.tenant_id, coalesce(p.full_name, s.name), s.person_id
		from students s
		left join people p on p.id = s.person_id
		where s.tenant_id = $1 and s.id = $2
	`, tenantID, studentID).Scan(&st.ID, &st.TenantID, &st.Name, &st.PersonID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Student{}, errs.ErrNotFound
	}
	return st, err
}

const schoolColumns = `id, name, code, city, signature_name, contract_template`

func scanSchool(row pgx.Row) (ledger.School, error) {
	var sc ledger.School
	err := row.Scan(&sc.TenantID, &sc.Name, &sc.Code, &sc.City, &sc.SignatureName, &sc.ContractTemplate)
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.School{}, errs.ErrNotFound
	}
	return sc, err
}

func (s *Store) GetSchool(ctx context.Context, tenantID uuid.UUID) (ledger.School, error) {
	return scanSchool(s.pool.QueryRow(ctx, `select `+schoolColumns+` from tenants where id = $1`, tenantID))
}

// UpdateSchoolTemplate stores the contract template; city and signature are only replaced when given.
func (s *Store) UpdateSchoolTemplate(ctx context.Context, tenantID uuid.UUID, template string, city, signature *string) (ledger.School, error) {
	return scanSchool(s.pool.QueryRow(ctx, `
		update tenants
		set contract_template = $2,
		    city = coalesce($3, city),
		    signature_name = coalesce($4, signature_name)
		where id = $1
		returning `+schoolColumns, tenantID, template, city, signature))
}
