package ledger

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinoosan/schoolfin/internal/errs"
)

func date(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func TestAddMonths_ClampsToMonthEnd(t *testing.T) {
	assert.Equal(t, date(2025, 2, 28), AddMonths(date(2025, 1, 31), 1))
	assert.Equal(t, date(2024, 2, 29), AddMonths(date(2024, 1, 31), 1))
	assert.Equal(t, date(2026, 1, 15), AddMonths(date(2025, 11, 15), 2))
	assert.Equal(t, date(2024, 12, 15), AddMonths(date(2025, 1, 15), -1))
	assert.Equal(t, date(2025, 3, 1), AddMonths(date(2025, 3, 1), 0))
}

func TestWithDay_Clamps(t *testing.T) {
	assert.Equal(t, date(2025, 4, 30), WithDay(date(2025, 4, 1), 31))
	assert.Equal(t, date(2025, 4, 1), WithDay(date(2025, 4, 20), 0))
	assert.Equal(t, date(2025, 2, 10), WithDay(date(2025, 2, 3), 10))
}

func TestFormatCents(t *testing.T) {
	cases := map[int64]string{0: "0.00", 5: "0.05", 10000: "100.00", 29999: "299.99", -150: "-1.50"}
	for in, want := range cases {
		assert.Equal(t, want, FormatCents(in))
	}
}

func TestBRLRoundTrip(t *testing.T) {
	assert.Equal(t, int64(12345), Cents(BRL(12345)))
}

func TestParseEnums(t *testing.T) {
	k, err := ParseAccountKind("  Cash ")
	require.NoError(t, err)
	assert.Equal(t, AccountKindCash, k)

	_, err = ParseAccountKind("savings")
	assert.True(t, errors.Is(err, errs.ErrInvalid))

	c, err := ParseCounterpartyKind("BOTH")
	require.NoError(t, err)
	assert.Equal(t, CounterpartyBoth, c)

	f, err := ParseCategoryFlow("receivable")
	require.NoError(t, err)
	assert.Equal(t, FlowReceivable, f)

	m, err := ParseBillingMode("")
	require.NoError(t, err)
	assert.Equal(t, BillingSchoolBooklet, m)

	m, err = ParseBillingMode(" School_Booklet_PIX ")
	require.NoError(t, err)
	assert.True(t, m.RequiresPixKey())

	_, err = ParseBillingMode("carrier_pigeon")
	assert.True(t, errors.Is(err, errs.ErrInvalid))
}

func TestPrincipalRequire(t *testing.T) {
	p := Principal{UserID: uuid.New(), TenantID: uuid.New(), Role: RoleStaff}
	assert.NoError(t, p.Require(Members...))
	assert.True(t, errors.Is(p.Require(Managers...), errs.ErrForbidden))

	anon := Principal{Role: RoleOwner}
	assert.True(t, errors.Is(anon.Require(Managers...), errs.ErrForbidden))
}

func TestAccepts(t *testing.T) {
	assert.True(t, Counterparty{Kind: CounterpartyBoth}.Accepts(CounterpartyVendor))
	assert.False(t, Counterparty{Kind: CounterpartyPayer}.Accepts(CounterpartyVendor))
	assert.True(t, Category{Flow: FlowPayable}.Accepts(FlowPayable))
	assert.False(t, Category{Flow: FlowReceivable}.Accepts(FlowPayable))
}
