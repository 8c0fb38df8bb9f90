package ledger

import (
	"strings"

	"github.com/tinoosan/schoolfin/internal/errs"
)

// Value sets of the closed enums, in display order.
var (
	AccountKinds      = []AccountKind{AccountKindCurrent, AccountKindCash}
	CounterpartyKinds = []CounterpartyKind{CounterpartyVendor, CounterpartyPayer, CounterpartyBoth}
	CategoryFlows     = []CategoryFlow{FlowPayable, FlowReceivable, FlowBoth}
	BillingModes      = []BillingMode{BillingProviderBoleto, BillingSchoolBooklet, BillingSchoolBookletPix}
)

func normalize(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func ParseAccountKind(s string) (AccountKind, error) {
	k := AccountKind(normalize(s))
	for _, v := range AccountKinds {
		if k == v {
			return k, nil
		}
	}
	return "", errs.Invalid("invalid account kind")
}

func ParseCounterpartyKind(s string) (CounterpartyKind, error) {
	k := CounterpartyKind(normalize(s))
	for _, v := range CounterpartyKinds {
		if k == v {
			return k, nil
		}
	}
	return "", errs.Invalid("invalid counterparty kind")
}

func ParseCategoryFlow(s string) (CategoryFlow, error) {
	f := CategoryFlow(normalize(s))
	for _, v := range CategoryFlows {
		if f == v {
			return f, nil
		}
	}
	return "", errs.Invalid("invalid category flow")
}

// ParseBillingMode normalizes s; an empty value selects BillingSchoolBooklet.
func ParseBillingMode(s string) (BillingMode, error) {
	n := normalize(s)
	if n == "" {
		return BillingSchoolBooklet, nil
	}
	m := BillingMode(n)
	for _, v := range BillingModes {
		if m == v {
			return m, nil
		}
	}
	return "", errs.Invalid("invalid billing mode")
}

// RequiresPixKey reports whether contracts in this mode must carry a PIX key.
func (m BillingMode) RequiresPixKey() bool { return m == BillingSchoolBookletPix }
