// Package dictionary serves the closed value sets clients need to build forms.
package dictionary

import "github.com/tinoosan/schoolfin/internal/ledger"

type Entry struct {
	Code  string `json:"code"`
	Label string `json:"label"`
}

var curated = map[string][]Entry{
	"account-kinds": {
		{Code: string(ledger.AccountKindCurrent), Label: "Conta corrente"},
		{Code: string(ledger.AccountKindCash), Label: "Caixa"},
	},
	"counterparty-kinds": {
		{Code: string(ledger.CounterpartyVendor), Label: "Fornecedor"},
		{Code: string(ledger.CounterpartyPayer), Label: "Pagador"},
		{Code: string(ledger.CounterpartyBoth), Label: "Fornecedor e pagador"},
	},
	"category-flows": {
		{Code: string(ledger.FlowPayable), Label: "Contas a pagar"},
		{Code: string(ledger.FlowReceivable), Label: "Contas a receber"},
		{Code: string(ledger.FlowBoth), Label: "Ambos"},
	},
	"billing-modes": {
		{Code: string(ledger.BillingProviderBoleto), Label: "Boleto bancário"},
		{Code: string(ledger.BillingSchoolBooklet), Label: "Carnê da escola"},
		{Code: string(ledger.BillingSchoolBookletPix), Label: "Carnê da escola com PIX"},
	},
}

// Names lists the available dictionaries in display order.
func Names() []string {
	return []string{"account-kinds", "counterparty-kinds", "category-flows", "billing-modes"}
}

// Lookup returns the entries of a dictionary; ok is false for an unknown name.
func Lookup(name string) ([]Entry, bool) {
	list, ok := curated[name]
	return list, ok
}
