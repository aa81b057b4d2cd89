package billing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"garage/internal/types"
)

// CalculateGross grosses up a tax-exclusive amount. The tax share is gross minus net.
func CalculateGross(net, taxRate decimal.Decimal) (decimal.Decimal, error) {
	if net.IsNegative() {
		return decimal.Zero, fmt.Errorf("tax: negative net %s: %w", net, ErrInvalidArgument)
	}
	if !isFraction(taxRate) {
		return decimal.Zero, fmt.Errorf("tax: rate %s outside [0,1]: %w", taxRate, ErrInvalidArgument)
	}
	return types.RoundMoney(net.Mul(decimal.NewFromInt(1).Add(taxRate))), nil
}
