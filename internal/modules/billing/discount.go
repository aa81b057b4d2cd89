// README: Discounts: percentage, fixed promo and subscription free hours, bounded by the base price.
package billing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"garage/internal/types"
)

// ApplyDiscounts returns the total discount for a base price that already carries the daily cap.
// Free hours are valued at the tariff's plain hourly rate and granted per started day of the session.
// The total never exceeds basePrice.
func ApplyDiscounts(basePrice decimal.Decimal, info *DiscountInfo, durationHours int, hourlyRate decimal.Decimal) (decimal.Decimal, error) {
	if info == nil {
		return decimal.Zero, fmt.Errorf("discounts: discount info required: %w", ErrMissingInput)
	}
	if basePrice.IsNegative() {
		return decimal.Zero, fmt.Errorf("discounts: negative base price: %w", ErrInvalidArgument)
	}
	if durationHours < 0 {
		return decimal.Zero, fmt.Errorf("discounts: duration %d: %w", durationHours, ErrInvalidArgument)
	}
	if hourlyRate.IsNegative() {
		return decimal.Zero, fmt.Errorf("discounts: negative hourly rate: %w", ErrInvalidArgument)
	}

	percent := info.SubscriptionDiscountPercent.Add(info.PromoDiscountPercent)
	total := basePrice.Mul(percent).Add(info.PromoDiscountFixed)

	if info.SubscriptionHasFreeHours {
		entitled := info.FreeHoursPerDay.Mul(decimal.NewFromInt(int64(daysInSession(durationHours))))
		freeHours := types.MinMoney(entitled, decimal.NewFromInt(int64(durationHours)))
		total = total.Add(hourlyRate.Mul(freeHours))
	}

	total = types.MinMoney(types.ClampZero(total), basePrice)
	return types.RoundMoney(total), nil
}
