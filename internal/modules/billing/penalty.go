// README: Penalties: overstay, lost ticket and zone misuse charges, independent and additive.
package billing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"garage/internal/types"
)

type PenaltyInput struct {
	Overstayed bool
	ExtraHours int
	LostTicket bool
	ZoneMisuse bool
}

// PenaltyRates come from the garage policy; every field must be set.
type PenaltyRates struct {
	OverstayRatePerHour decimal.NullDecimal
	OverstayCap         decimal.NullDecimal
	LostTicketFee       decimal.NullDecimal
	MisuseFee           decimal.NullDecimal
}

func CalculatePenalty(in PenaltyInput, rates PenaltyRates) (decimal.Decimal, error) {
	named := []struct {
		name string
		v    decimal.NullDecimal
	}{
		{"overstay rate", rates.OverstayRatePerHour},
		{"overstay cap", rates.OverstayCap},
		{"lost ticket fee", rates.LostTicketFee},
		{"misuse fee", rates.MisuseFee},
	}
	for _, r := range named {
		if !r.v.Valid {
			return decimal.Zero, fmt.Errorf("penalty: %s required: %w", r.name, ErrMissingInput)
		}
		if r.v.Decimal.IsNegative() {
			return decimal.Zero, fmt.Errorf("penalty: negative %s: %w", r.name, ErrInvalidArgument)
		}
	}
	if in.ExtraHours < 0 {
		return decimal.Zero, fmt.Errorf("penalty: extra hours %d: %w", in.ExtraHours, ErrInvalidArgument)
	}

	total := decimal.Zero
	if in.Overstayed {
		overstay := rates.OverstayRatePerHour.Decimal.Mul(decimal.NewFromInt(int64(in.ExtraHours)))
		total = total.Add(types.MinMoney(overstay, rates.OverstayCap.Decimal))
	}
	if in.LostTicket {
		total = total.Add(rates.LostTicketFee.Decimal)
	}
	if in.ZoneMisuse {
		total = total.Add(rates.MisuseFee.Decimal)
	}
	return types.RoundMoney(total), nil
}
