// Package settlement is the only writer of account movements. It settles payables and
// receivables and records transfers, each as one transaction.
package settlement

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/tinoosan/schoolfin/internal/errs"
	"github.com/tinoosan/schoolfin/internal/ledger"
	"github.com/tinoosan/schoolfin/internal/storage"
)

const (
	notePayable     = "Baixa de conta a pagar"
	noteReceivable  = "Baixa de conta a receber"
	noteTransferOut = "Transferência enviada"
	noteTransferIn  = "Transferência recebida"
)

type Repo interface {
	storage.TxBeginner
	ListTransfers(ctx context.Context, tenantID uuid.UUID) ([]ledger.Transfer, error)
}

// Guards resolves the account a settlement posts to.
type Guards interface {
	EnsureAccount(ctx context.Context, tenantID, accountID uuid.UUID) (ledger.Account, error)
}

type TransferInput struct {
	FromAccountID uuid.UUID
	ToAccountID   uuid.UUID
	Date          time.Time
	AmountMinor   int64
	Note          *string
}

type Service interface {
	// SettlePayable pays a pending payable from accountID. paidAt defaults to today.
	SettlePayable(ctx context.Context, p ledger.Principal, payableID, accountID uuid.UUID, paidAt *time.Time) (ledger.Payable, error)
	// SettleReceivable receives a pending receivable into accountID and marks its installment paid.
	SettleReceivable(ctx context.Context, p ledger.Principal, receivableID, accountID uuid.UUID, receivedAt *time.Time) (ledger.Receivable, error)
	ValidateTransfer(in TransferInput) error
	CreateTransfer(ctx context.Context, p ledger.Principal, in TransferInput) (ledger.Transfer, error)
	ListTransfers(ctx context.Context, p ledger.Principal) ([]ledger.Transfer, error)
}

type service struct {
	repo   Repo
	guards Guards
	now    func() time.Time
}

func New(repo Repo, guards Guards) Service {
	return &service{repo: repo, guards: guards, now: time.Now}
}

func (s *service) today(at *time.Time) time.Time {
	if at != nil {
		return ledger.Day(*at)
	}
	return ledger.Day(s.now())
}

func (s *service) SettlePayable(ctx context.Context, p ledger.Principal, payableID, accountID uuid.UUID, paidAt *time.Time) (ledger.Payable, error) {
	if err := p.Require(ledger.Members...); err != nil {
		return ledger.Payable{}, err
	}
	if _, err := s.guards.EnsureAccount(ctx, p.TenantID, accountID); err != nil {
		return ledger.Payable{}, err
	}
	on := s.today(paidAt)
	var out ledger.Payable
	err := storage.WithTx(ctx, s.repo, func(tx storage.Tx) error {
		paid, err := tx.SettlePayable(ctx, p.TenantID, payableID, accountID, on)
		if err != nil {
			return err
		}
		out = paid
		return tx.CreateMovement(ctx, s.movement(p.TenantID, accountID, ledger.DirectionDebit, ledger.OriginPayablePayment, paid.ID, on, paid.Amount, notePayable))
	})
	if err != nil {
		return ledger.Payable{}, err
	}
	return out, nil
}

func (s *service) SettleReceivable(ctx context.Context, p ledger.Principal, receivableID, accountID uuid.UUID, receivedAt *time.Time) (ledger.Receivable, error) {
	if err := p.Require(ledger.Members...); err != nil {
		return ledger.Receivable{}, err
	}
	if _, err := s.guards.EnsureAccount(ctx, p.TenantID, accountID); err != nil {
		return ledger.Receivable{}, err
	}
	on := s.today(receivedAt)
	var out ledger.Receivable
	err := storage.WithTx(ctx, s.repo, func(tx storage.Tx) error {
		got, err := tx.SettleReceivable(ctx, p.TenantID, receivableID, accountID, on)
		if err != nil {
			return err
		}
		out = got
		if err := tx.CreateMovement(ctx, s.movement(p.TenantID, accountID, ledger.DirectionCredit, ledger.OriginReceivablePayment, got.ID, on, got.Amount, noteReceivable)); err != nil {
			return err
		}
		if got.InstallmentID == nil {
			return nil
		}
		// an installment already marked paid keeps its original paid_at
		if err := tx.MarkInstallmentPaid(ctx, p.TenantID, *got.InstallmentID, on); err != nil && !errors.Is(err, errs.ErrConflict) {
			return err
		}
		return nil
	})
	if err != nil {
		return ledger.Receivable{}, err
	}
	return out, nil
}

func (s *service) ValidateTransfer(in TransferInput) error {
	if in.FromAccountID == uuid.Nil || in.ToAccountID == uuid.Nil {
		return errs.Invalid("from_account_id and to_account_id are required")
	}
	if in.FromAccountID == in.ToAccountID {
		return errs.Invalid("from and to accounts must differ")
	}
	if in.AmountMinor <= 0 {
		return errs.Invalid("amount must be greater than zero")
	}
	return nil
}

func (s *service) CreateTransfer(ctx context.Context, p ledger.Principal, in TransferInput) (ledger.Transfer, error) {
	if err := p.Require(ledger.Managers...); err != nil {
		return ledger.Transfer{}, err
	}
	if err := s.ValidateTransfer(in); err != nil {
		return ledger.Transfer{}, err
	}
	if _, err := s.guards.EnsureAccount(ctx, p.TenantID, in.FromAccountID); err != nil {
		return ledger.Transfer{}, err
	}
	if _, err := s.guards.EnsureAccount(ctx, p.TenantID, in.ToAccountID); err != nil {
		return ledger.Transfer{}, err
	}
	on := ledger.Day(s.now())
	if !in.Date.IsZero() {
		on = ledger.Day(in.Date)
	}
	t := ledger.Transfer{
		ID:            uuid.New(),
		TenantID:      p.TenantID,
		FromAccountID: in.FromAccountID,
		ToAccountID:   in.ToAccountID,
		Date:          on,
		Amount:        ledger.BRL(in.AmountMinor),
		Note:          trimmed(in.Note),
		CreatedAt:     s.now().UTC(),
	}
	err := storage.WithTx(ctx, s.repo, func(tx storage.Tx) error {
		if err := tx.CreateTransfer(ctx, t); err != nil {
			return err
		}
		if err := tx.CreateMovement(ctx, s.movement(p.TenantID, t.FromAccountID, ledger.DirectionDebit, ledger.OriginTransferOut, t.ID, t.Date, t.Amount, noteTransferOut)); err != nil {
			return err
		}
		return tx.CreateMovement(ctx, s.movement(p.TenantID, t.ToAccountID, ledger.DirectionCredit, ledger.OriginTransferIn, t.ID, t.Date, t.Amount, noteTransferIn))
	})
	if err != nil {
		return ledger.Transfer{}, err
	}
	return t, nil
}

func (s *service) ListTransfers(ctx context.Context, p ledger.Principal) ([]ledger.Transfer, error) {
	if err := p.Require(ledger.Members...); err != nil {
		return nil, err
	}
	return s.repo.ListTransfers(ctx, p.TenantID)
}

func (s *service) movement(tenantID, accountID uuid.UUID, dir ledger.Direction, origin ledger.OriginKind, originID uuid.UUID, on time.Time, amount money.Amount, note string) ledger.Movement {
	return ledger.Movement{
		ID:         uuid.New(),
		TenantID:   tenantID,
		AccountID:  accountID,
		Direction:  dir,
		OriginKind: origin,
		OriginID:   originID,
		Date:       on,
		Amount:     amount,
		Note:       &note,
		CreatedAt:  s.now().UTC(),
	}
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
