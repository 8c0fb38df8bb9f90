package contract

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tinoosan/schoolfin/internal/ledger"
)

// withEmail keeps the recipients that can be notified, ordered by full name.
func withEmail(people []ledger.Person) []ledger.Person {
	out := make([]ledger.Person, 0, len(people))
	for _, p := range people {
		if p.Email != nil && strings.TrimSpace(*p.Email) != "" {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	return out
}

// Subject is the notification subject for an installment.
func Subject(in ledger.Installment) string {
	return fmt.Sprintf("Boleto da parcela %d", in.Number)
}

// Body is the notification text for an installment. Instructions and the PIX payload
// are appended on their own lines when present.
func Body(in ledger.Installment) string {
	code := "A gerar"
	if in.BoletoCode != nil {
		code = *in.BoletoCode
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Parcela %d vence em %s no valor de R$ %s. Código: %s",
		in.Number, in.DueDate.Format("02/01/2006"), ledger.FormatCents(ledger.Cents(in.Amount)), code)
	if in.PaymentInstructions != nil {
		fmt.Fprintf(&b, "\nInstruções: %s", *in.PaymentInstructions)
	}
	if in.PixCopyPaste != nil {
		fmt.Fprintf(&b, "\nPIX copia e cola: %s", *in.PixCopyPaste)
	}
	return b.String()
}
