package domain

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// ApplyDiscount returns base × (1 − percent/100) rounded to cents. percent
// must lie in [0, 100].
func ApplyDiscount(base, percent decimal.Decimal) (decimal.Decimal, error) {
	if base.IsNegative() {
		return decimal.Zero, ErrInvalidAmount
	}
	if percent.IsNegative() || percent.GreaterThan(hundred) {
		return decimal.Zero, ErrInvalidDiscount
	}
	factor := decimal.NewFromInt(1).Sub(percent.Div(hundred))
	return base.Mul(factor).Round(2), nil
}
