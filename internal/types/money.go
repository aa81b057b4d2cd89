// README: Money helpers shared across modules (2-place decimal amounts, half-up rounding).
package types

import "github.com/shopspring/decimal"

// MoneyScale is the number of fractional digits kept on every billed amount.
const MoneyScale = 2

// RoundMoney rounds to MoneyScale places. Amounts reaching here are non-negative, so
// decimal's half-away-from-zero rounding is half-up.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyScale)
}

// ClampZero returns d, or zero when d is negative.
func ClampZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// MinMoney returns the smaller of a and b.
func MinMoney(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}
