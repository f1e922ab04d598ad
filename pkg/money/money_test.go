package money

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestParsePositive(t *testing.T) {
	d, err := ParsePositive("1500.005")
	require.NoError(t, err)
	require.Equal(t, "1500.01", Format(d))

	_, err = ParsePositive("0")
	require.Error(t, err)

	_, err = ParsePositive("-10.50")
	require.Error(t, err)

	_, err = ParsePositive("abc")
	require.Error(t, err)
}

func TestHoursBetween(t *testing.T) {
	in := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	out := in.Add(2*time.Hour + 30*time.Minute)
	require.Equal(t, "2.50", Format(HoursBetween(in, out)))

	out = in.Add(50 * time.Minute)
	require.Equal(t, "0.83", Format(HoursBetween(in, out)))

	// checkout before checkin clamps to zero
	require.True(t, HoursBetween(in, in.Add(-time.Minute)).IsZero())
}

func TestSplitEqualSumsToTotal(t *testing.T) {
	total := decimal.RequireFromString("100.00")
	parts := SplitEqual(total, 3)
	require.Len(t, parts, 3)

	sum := decimal.Zero
	for _, p := range parts {
		sum = sum.Add(p)
	}
	require.True(t, sum.Equal(total))
	require.Equal(t, "33.33", Format(parts[0]))
	require.Equal(t, "33.33", Format(parts[1]))
	require.Equal(t, "33.34", Format(parts[2]))

	require.Nil(t, SplitEqual(total, 0))
}

func TestSplitPercentSumsToTotal(t *testing.T) {
	total := decimal.RequireFromString("100.01")
	parts := SplitPercent(total, 20, 70, 10)
	require.Len(t, parts, 3)

	sum := decimal.Zero
	for _, p := range parts {
		sum = sum.Add(p)
	}
	require.True(t, sum.Equal(total), "parts %v must sum to %s", parts, total)
	require.Equal(t, "20.00", Format(parts[0]))
	require.Equal(t, "70.01", Format(parts[1]))
	require.Equal(t, "10.00", Format(parts[2]))
}
