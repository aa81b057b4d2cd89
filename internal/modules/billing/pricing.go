// README: Base price: hourly charge with peak, occupancy and weekend multipliers, then the daily cap.
package billing

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"garage/internal/types"
)

var hundred = decimal.NewFromInt(100)

// baseStrategy yields the undiscounted charge before any multiplier.
type baseStrategy func(hours int, band TimeOfDayBand, t *Tariff) decimal.Decimal

// baseStrategies maps every known zone type to the way its base charge is built.
// A zone type absent from this table is not billable.
var baseStrategies = map[ZoneType]baseStrategy{
	ZoneStandard:   hourlyBase,
	ZoneCompact:    hourlyBase,
	ZoneEV:         hourlyBase,
	ZoneAccessible: hourlyBase,
	ZoneVIP:        hourlyBase,
	ZoneMotorbike:  hourlyBase,
}

func hourlyBase(hours int, band TimeOfDayBand, t *Tariff) decimal.Decimal {
	price := t.BaseHourlyRate.Mul(decimal.NewFromInt(int64(hours)))
	if band == BandOvernight && t.OvernightFlatRateEnabled {
		flat := t.OvernightFlatRate.Mul(decimal.NewFromInt(int64(daysInSession(hours))))
		price = types.MinMoney(price, flat)
	}
	return price
}

// CalculateBasePrice applies, in order: hourly base, peak multiplier, high-occupancy multiplier,
// weekend/holiday surcharge and the daily cap. The result is rounded to cents.
func CalculateBasePrice(
	durationHours int,
	dayType DayType,
	band TimeOfDayBand,
	occupancyRatio float64,
	tariff *Tariff,
	cfg *DynamicPricingConfig,
) (decimal.Decimal, error) {
	if tariff == nil || cfg == nil {
		return decimal.Zero, fmt.Errorf("base price: tariff and pricing config required: %w", ErrMissingInput)
	}
	if durationHours < 0 {
		return decimal.Zero, fmt.Errorf("base price: duration %d: %w", durationHours, ErrInvalidArgument)
	}
	if math.IsNaN(occupancyRatio) || occupancyRatio < 0 || occupancyRatio > 1 {
		return decimal.Zero, fmt.Errorf("base price: occupancy ratio %v: %w", occupancyRatio, ErrInvalidArgument)
	}
	strategy, ok := baseStrategies[tariff.ZoneType]
	if !ok {
		return decimal.Zero, fmt.Errorf("base price: zone type %q: %w", tariff.ZoneType, ErrInvalidArgument)
	}

	price := strategy(durationHours, band, tariff)

	if band == BandPeak {
		price = price.Mul(cfg.PeakHourMultiplier)
	}
	if decimal.NewFromFloat(occupancyRatio).GreaterThanOrEqual(cfg.HighOccupancyThreshold) {
		price = price.Mul(cfg.HighOccupancyMultiplier)
	}
	if dayType == DayWeekend || dayType == DayHoliday {
		surcharge := types.ClampZero(tariff.WeekendOrHolidaySurchargePercent)
		price = price.Mul(decimal.NewFromInt(1).Add(surcharge.Div(hundred)))
	}
	if tariff.DailyCap.IsPositive() {
		effectiveCap := tariff.DailyCap.Mul(decimal.NewFromInt(int64(daysInSession(durationHours))))
		price = types.MinMoney(price, effectiveCap)
	}

	return types.RoundMoney(price), nil
}
