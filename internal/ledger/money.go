package ledger

import (
	"strconv"

	"github.com/govalues/money"
)

// Currency is the only currency the school ledger holds.
const Currency = "BRL"

// BRL builds an amount from integer cents.
func BRL(cents int64) money.Amount {
	a, _ := money.NewAmountFromMinorUnits(Currency, cents)
	return a
}

// Cents returns the amount in integer cents.
func Cents(a money.Amount) int64 {
	units, _ := a.MinorUnits()
	return units
}

// FormatCents renders cents as a plain decimal with exactly two fractional digits ("1234.50").
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	frac := cents % 100
	out := sign + strconv.FormatInt(cents/100, 10) + "."
	if frac < 10 {
		out += "0"
	}
	return out + strconv.FormatInt(frac, 10)
}
