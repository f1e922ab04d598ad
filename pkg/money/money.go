package money

import (
	"time"

	"github.com/shopspring/decimal"

	"gigbridge-platform/pkg/errutil"
)

// All balances, budgets, payouts and worked hours are fixed-point decimals
// rounded to two places. JSON always carries them as strings; shopspring's
// default marshalling already quotes, which keeps one canonical wire shape.

var Zero = decimal.Zero

var ErrInvalidAmount = errutil.UnprocessableEntity("amount must be a positive decimal")

// Parse reads a decimal string and normalises it to two places.
func Parse(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, errutil.BadRequest("invalid decimal amount", errutil.WithErr(err))
	}
	return Round2(d), nil
}

// ParsePositive is Parse plus the domain rule that amounts must be > 0.
func ParsePositive(s string) (decimal.Decimal, error) {
	d, err := Parse(s)
	if err != nil {
		return decimal.Zero, err
	}
	if !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Format renders the canonical two-decimal string representation.
func Format(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// HoursBetween computes worked hours between check-in and check-out,
// rounded to two places.
func HoursBetween(in, out time.Time) decimal.Decimal {
	seconds := out.Sub(in).Seconds()
	if seconds < 0 {
		seconds = 0
	}
	return decimal.NewFromFloat(seconds).Div(decimal.NewFromInt(3600)).Round(2)
}

// SplitEqual divides total into n equal parts. Every part except the last is
// rounded to two places; the last part absorbs the rounding remainder.
func SplitEqual(total decimal.Decimal, n int) []decimal.Decimal {
	if n <= 0 {
		return nil
	}

	parts := make([]decimal.Decimal, n)
	each := total.Div(decimal.NewFromInt(int64(n))).Round(2)
	remaining := total
	for i := 0; i < n-1; i++ {
		parts[i] = each
		remaining = remaining.Sub(each)
	}
	parts[n-1] = remaining
	return parts
}

// SplitPercent divides total into one part per percentage. Every part except
// the last is rounded to two places; the last part absorbs the rounding
// remainder so the parts always sum exactly to total.
func SplitPercent(total decimal.Decimal, percents ...int64) []decimal.Decimal {
	parts := make([]decimal.Decimal, len(percents))
	if len(percents) == 0 {
		return parts
	}

	hundred := decimal.NewFromInt(100)
	remaining := total
	for i, pct := range percents[:len(percents)-1] {
		part := total.Mul(decimal.NewFromInt(pct)).Div(hundred).Round(2)
		parts[i] = part
		remaining = remaining.Sub(part)
	}
	parts[len(parts)-1] = remaining
	return parts
}
