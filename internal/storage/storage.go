// Package storage declares the transactional surface shared by the services and the
// store implementations (memory, postgres).
package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tinoosan/schoolfin/internal/ledger"
)

// Tx is one atomic unit of work. Writes are only visible to other callers after Commit;
// Rollback discards all of them. Callers must not use the non-transactional store methods
// while a Tx is open.
type Tx interface {
	CreateContract(ctx context.Context, c ledger.Contract) error
	CreateInstallment(ctx context.Context, in ledger.Installment) error
	CreateReceivable(ctx context.Context, r ledger.Receivable) error
	CreateTransfer(ctx context.Context, t ledger.Transfer) error
	CreateMovement(ctx context.Context, m ledger.Movement) error
	CreateEmailLog(ctx context.Context, l ledger.EmailLog) error

	// SettlePayable flips a pending payable to paid. It returns errs.ErrConflict when the
	// payable exists but is not pending, errs.ErrNotFound when it does not exist.
	SettlePayable(ctx context.Context, tenantID, payableID, accountID uuid.UUID, paidAt time.Time) (ledger.Payable, error)
	// SettleReceivable flips a pending receivable to received, same contract as SettlePayable.
	SettleReceivable(ctx context.Context, tenantID, receivableID, accountID uuid.UUID, receivedAt time.Time) (ledger.Receivable, error)
	// MarkInstallmentPaid sets an unpaid installment to paid keeping an existing paid_at.
	// errs.ErrConflict when it is already paid, errs.ErrNotFound when missing.
	MarkInstallmentPaid(ctx context.Context, tenantID, installmentID uuid.UUID, paidAt time.Time) error
	// ReceiveInstallmentReceivable flips the pending receivable linked to an installment to
	// received without an account. A receivable that is not pending is left untouched.
	ReceiveInstallmentReceivable(ctx context.Context, tenantID, installmentID uuid.UUID, receivedAt time.Time) error
	SetInstrument(ctx context.Context, tenantID, installmentID uuid.UUID, ins ledger.Instrument) error
	MarkInstallmentEmailed(ctx context.Context, tenantID, installmentID uuid.UUID, at time.Time) error

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TxBeginner opens transactions.
type TxBeginner interface {
	BeginTx(ctx context.Context) (Tx, error)
}

// WithTx runs fn inside a transaction, committing when fn returns nil and rolling back otherwise.
func WithTx(ctx context.Context, b TxBeginner, fn func(Tx) error) error {
	tx, err := b.BeginTx(ctx)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

// DevSeed is the fixture a store inserts for local development.
type DevSeed struct {
	School   ledger.School
	Guardian ledger.Person
	Student  ledger.Student
	Account  ledger.Account
}

// NewDevSeed builds a fresh tenant with one financial guardian, one student and a cash account.
func NewDevSeed() DevSeed {
	tenantID := uuid.New()
	city := "Recife"
	email := "responsavel@example.com"
	return DevSeed{
		School: ledger.School{TenantID: tenantID, Name: "Escola Exemplo", Code: "EXEMPLO", City: &city},
		Guardian: ledger.Person{
			ID: uuid.New(), TenantID: tenantID, FullName: "Maria Responsavel", Email: &email,
			Active: true, Roles: []string{ledger.RoleFinancialGuardian},
		},
		Student: ledger.Student{ID: uuid.New(), TenantID: tenantID, Name: "Joao Aluno"},
		Account: ledger.Account{
			ID: uuid.New(), TenantID: tenantID, Name: "Caixa", Kind: ledger.AccountKindCash,
			InitialBalance: ledger.BRL(0), Active: true, CreatedAt: time.Now().UTC(),
		},
	}
}
