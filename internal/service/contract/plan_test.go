package contract

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinoosan/schoolfin/internal/errs"
)

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func amounts(slots []Slot) []int64 {
	out := make([]int64, len(slots))
	for i, s := range slots {
		out[i] = s.AmountMinor
	}
	return out
}

func TestPlan_LastAbsorbsRemainder(t *testing.T) {
	cases := []struct {
		name  string
		total int64
		count int
		want  []int64
	}{
		{"even", 30000, 3, []int64{10000, 10000, 10000}},
		{"remainder down", 29999, 3, []int64{10000, 10000, 9999}},
		{"remainder up", 10001, 2, []int64{5001, 5000}},
		{"single", 12345, 1, []int64{12345}},
		{"twelve months", 100000, 12, []int64{8333, 8333, 8333, 8333, 8333, 8333, 8333, 8333, 8333, 8333, 8333, 8337}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			slots, err := Plan(tc.total, tc.count, day(2025, 2, 10), nil)
			require.NoError(t, err)
			assert.Equal(t, tc.want, amounts(slots))
			var sum int64
			for i, s := range slots {
				assert.Equal(t, i+1, s.Number)
				sum += s.AmountMinor
			}
			assert.Equal(t, tc.total, sum)
		})
	}
}

func TestPlan_DueDates(t *testing.T) {
	slots, err := Plan(30000, 3, day(2025, 1, 31), nil)
	require.NoError(t, err)
	assert.Equal(t, day(2025, 1, 31), slots[0].DueDate)
	assert.Equal(t, day(2025, 2, 28), slots[1].DueDate)
	assert.Equal(t, day(2025, 3, 31), slots[2].DueDate)

	dueDay := 31
	slots, err = Plan(30000, 3, day(2025, 3, 5), &dueDay)
	require.NoError(t, err)
	assert.Equal(t, day(2025, 3, 31), slots[0].DueDate)
	assert.Equal(t, day(2025, 4, 30), slots[1].DueDate)
	assert.Equal(t, day(2025, 5, 31), slots[2].DueDate)

	// crossing the year boundary
	slots, err = Plan(20000, 2, day(2025, 12, 15), nil)
	require.NoError(t, err)
	assert.Equal(t, day(2026, 1, 15), slots[1].DueDate)

	// time of day is dropped
	slots, err = Plan(100, 1, time.Date(2025, 6, 1, 23, 59, 0, 0, time.UTC), nil)
	require.NoError(t, err)
	assert.Equal(t, day(2025, 6, 1), slots[0].DueDate)
}

func TestPlan_Invalid(t *testing.T) {
	_, err := Plan(0, 3, day(2025, 1, 1), nil)
	assert.ErrorIs(t, err, errs.ErrInvalid)
	_, err = Plan(1000, 0, day(2025, 1, 1), nil)
	assert.ErrorIs(t, err, errs.ErrInvalid)
	// 2 cents over 3 months leaves nothing for the last installment
	_, err = Plan(2, 3, day(2025, 1, 1), nil)
	assert.ErrorIs(t, err, errs.ErrInvalid)
	_, err = Plan(1, 3, day(2025, 1, 1), nil)
	assert.ErrorIs(t, err, errs.ErrInvalid)
	// rejected before any slot is allocated
	_, err = Plan(100, 2_000_000_000, day(2025, 3, 1), nil)
	assert.ErrorIs(t, err, errs.ErrInvalid)
	_, err = Plan(100_000, MaxInstallments+1, day(2025, 3, 1), nil)
	assert.ErrorIs(t, err, errs.ErrInvalid)
	_, err = Plan(99, 100, day(2025, 3, 1), nil)
	assert.ErrorIs(t, err, errs.ErrInvalid)
}

func TestPlan_MaxInstallments(t *testing.T) {
	slots, err := Plan(600_000, MaxInstallments, day(2025, 1, 10), nil)
	require.NoError(t, err)
	require.Len(t, slots, MaxInstallments)
	assert.Equal(t, day(2074, 12, 10), slots[MaxInstallments-1].DueDate)
}

func TestPlan_LargeTotalDoesNotWrap(t *testing.T) {
	slots, err := Plan(math.MaxInt64, 3, day(2025, 1, 10), nil)
	require.NoError(t, err)
	assert.Equal(t, []int64{3074457345618258602, 3074457345618258602, 3074457345618258603}, amounts(slots))
}
