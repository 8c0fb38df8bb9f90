package contract

import (
	"time"

	"github.com/tinoosan/schoolfin/internal/errs"
	"github.com/tinoosan/schoolfin/internal/ledger"
)

// MaxInstallments bounds installments_count; fifty years of monthly billing.
const MaxInstallments = 600

// Slot is one planned installment.
type Slot struct {
	Number      int
	DueDate     time.Time
	AmountMinor int64
}

// Plan splits totalMinor into count monthly installments. Every installment gets the
// rounded average except the last, which absorbs the remainder so the slots sum to the
// total exactly. Due dates advance one month at a time from firstDue, clamping the day to
// the end of the month; dueDay, when set, pins the day of every installment.
func Plan(totalMinor int64, count int, firstDue time.Time, dueDay *int) ([]Slot, error) {
	if count <= 0 {
		return nil, errs.Invalid("installments_count must be greater than zero")
	}
	if count > MaxInstallments {
		return nil, errs.Invalid("installments_count must not exceed 600")
	}
	if totalMinor <= 0 {
		return nil, errs.Invalid("total_amount must be greater than zero")
	}
	n := int64(count)
	if totalMinor < n {
		return nil, errs.Invalid("total_amount is too small for the number of installments")
	}
	base, rem := totalMinor/n, totalMinor%n
	if 2*rem >= n {
		base++
	}
	first := ledger.Day(firstDue)

	out := make([]Slot, 0, count)
	var allocated int64
	for i := 1; i <= count; i++ {
		due := ledger.AddMonths(first, i-1)
		if dueDay != nil {
			due = ledger.WithDay(due, *dueDay)
		}
		amount := base
		if i == count {
			amount = totalMinor - allocated
		}
		if amount <= 0 {
			return nil, errs.Invalid("total_amount is too small for the number of installments")
		}
		allocated += amount
		out = append(out, Slot{Number: i, DueDate: due, AmountMinor: amount})
	}
	return out, nil
}
