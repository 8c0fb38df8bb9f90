// Package balance derives account balances from their movements. Balances are never stored.
package balance

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/tinoosan/schoolfin/internal/ledger"
)

type Repo interface {
	ListAccounts(ctx context.Context, tenantID uuid.UUID) ([]ledger.Account, error)
	GetAccount(ctx context.Context, tenantID, accountID uuid.UUID) (ledger.Account, error)
	MovementTotals(ctx context.Context, tenantID uuid.UUID) (map[uuid.UUID]ledger.Totals, error)
	ListMovements(ctx context.Context, tenantID, accountID uuid.UUID) ([]ledger.Movement, error)
}

type Service interface {
	ListBalances(ctx context.Context, p ledger.Principal) ([]ledger.AccountBalance, error)
	AccountBalance(ctx context.Context, p ledger.Principal, accountID uuid.UUID) (ledger.AccountBalance, error)
	ListMovements(ctx context.Context, p ledger.Principal, accountID uuid.UUID) ([]ledger.Movement, error)
}

type service struct {
	repo Repo
}

func New(repo Repo) Service { return &service{repo: repo} }

// Compute returns initial + credits - debits for the account. It fails if the sum leaves
// the range of int64 cents.
func Compute(a ledger.Account, t ledger.Totals) (ledger.AccountBalance, error) {
	credits, debits := ledger.BRL(t.CreditMinor), ledger.BRL(t.DebitMinor)
	cur, err := a.InitialBalance.Add(credits)
	if err == nil {
		cur, err = cur.Sub(debits)
	}
	if err != nil {
		return ledger.AccountBalance{}, fmt.Errorf("balance of account %s: %w", a.ID, err)
	}
	if _, ok := cur.MinorUnits(); !ok {
		return ledger.AccountBalance{}, fmt.Errorf("balance of account %s: %v exceeds int64 cents", a.ID, cur)
	}
	return ledger.AccountBalance{Account: a, Credits: credits, Debits: debits, Balance: cur}, nil
}

// ListBalances lists the tenant's accounts, each with its current balance.
func (s *service) ListBalances(ctx context.Context, p ledger.Principal) ([]ledger.AccountBalance, error) {
	if err := p.Require(ledger.Members...); err != nil {
		return nil, err
	}
	accounts, err := s.repo.ListAccounts(ctx, p.TenantID)
	if err != nil {
		return nil, err
	}
	totals, err := s.repo.MovementTotals(ctx, p.TenantID)
	if err != nil {
		return nil, err
	}
	out := make([]ledger.AccountBalance, 0, len(accounts))
	for _, a := range accounts {
		b, err := Compute(a, totals[a.ID])
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

func (s *service) AccountBalance(ctx context.Context, p ledger.Principal, accountID uuid.UUID) (ledger.AccountBalance, error) {
	if err := p.Require(ledger.Members...); err != nil {
		return ledger.AccountBalance{}, err
	}
	a, err := s.repo.GetAccount(ctx, p.TenantID, accountID)
	if err != nil {
		return ledger.AccountBalance{}, err
	}
	totals, err := s.repo.MovementTotals(ctx, p.TenantID)
	if err != nil {
		return ledger.AccountBalance{}, err
	}
	return Compute(a, totals[a.ID])
}

func (s *service) ListMovements(ctx context.Context, p ledger.Principal, accountID uuid.UUID) ([]ledger.Movement, error) {
	if err := p.Require(ledger.Members...); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetAccount(ctx, p.TenantID, accountID); err != nil {
		return nil, err
	}
	return s.repo.ListMovements(ctx, p.TenantID, accountID)
}
