package obligation

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/tinoosan/schoolfin/internal/errs"
	"github.com/tinoosan/schoolfin/internal/ledger"
)

// names resolves display names for one request, caching lookups by id.
// Precedence is person, then counterparty, then the stored legacy text.
type names struct {
	repo     Repo
	tenantID uuid.UUID
	cache    map[uuid.UUID]*string
}

func newNames(repo Repo, tenantID uuid.UUID) *names {
	return &names{repo: repo, tenantID: tenantID, cache: make(map[uuid.UUID]*string)}
}

func (n *names) payable(ctx context.Context, p ledger.Payable) (PayableView, error) {
	vendor, err := n.party(ctx, p.VendorPersonID, p.VendorCounterpartyID, p.LegacyVendorName)
	if err != nil {
		return PayableView{}, err
	}
	category, err := n.category(ctx, p.CategoryID, p.LegacyCategory)
	if err != nil {
		return PayableView{}, err
	}
	return PayableView{Payable: p, VendorName: vendor, CategoryName: category}, nil
}

func (n *names) receivable(ctx context.Context, r ledger.Receivable) (ReceivableView, error) {
	payer, err := n.party(ctx, r.PayerPersonID, r.PayerCounterpartyID, r.LegacyPayerName)
	if err != nil {
		return ReceivableView{}, err
	}
	category, err := n.category(ctx, r.CategoryID, r.LegacyCategory)
	if err != nil {
		return ReceivableView{}, err
	}
	return ReceivableView{Receivable: r, PayerName: payer, CategoryName: category}, nil
}

func (n *names) party(ctx context.Context, personID, counterpartyID *uuid.UUID, legacy *string) (*string, error) {
	if personID != nil {
		name, err := n.lookup(*personID, func() (string, error) {
			p, err := n.repo.GetPerson(ctx, n.tenantID, *personID)
			return p.FullName, err
		})
		if err != nil || name != nil {
			return name, err
		}
	}
	if counterpartyID != nil {
		name, err := n.lookup(*counterpartyID, func() (string, error) {
			c, err := n.repo.GetCounterparty(ctx, n.tenantID, *counterpartyID)
			return c.Name, err
		})
		if err != nil || name != nil {
			return name, err
		}
	}
	return legacy, nil
}

func (n *names) category(ctx context.Context, categoryID *uuid.UUID, legacy *string) (*string, error) {
	if categoryID != nil {
		name, err := n.lookup(*categoryID, func() (string, error) {
			c, err := n.repo.GetCategory(ctx, n.tenantID, *categoryID)
			return c.Name, err
		})
		if err != nil || name != nil {
			return name, err
		}
	}
	return legacy, nil
}

func (n *names) student(ctx context.Context, studentID uuid.UUID) (*string, error) {
	return n.lookup(studentID, func() (string, error) {
		st, err := n.repo.GetStudent(ctx, n.tenantID, studentID)
		return st.Name, err
	})
}

// lookup returns nil, nil when the referenced row no longer exists.
func (n *names) lookup(id uuid.UUID, fetch func() (string, error)) (*string, error) {
	if v, ok := n.cache[id]; ok {
		return v, nil
	}
	name, err := fetch()
	if errors.Is(err, errs.ErrNotFound) {
		n.cache[id] = nil
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	n.cache[id] = &name
	return &name, nil
}
