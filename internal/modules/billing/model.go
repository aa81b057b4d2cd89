// README: Billing value objects: tariffs, dynamic pricing, discount policy, duration and the itemized result.
package billing

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"garage/internal/types"
)

type ZoneType string

const (
	ZoneStandard   ZoneType = "standard"
	ZoneCompact    ZoneType = "compact"
	ZoneEV         ZoneType = "ev"
	ZoneAccessible ZoneType = "accessible"
	ZoneVIP        ZoneType = "vip"
	ZoneMotorbike  ZoneType = "motorbike"
)

func (z ZoneType) Valid() bool {
	_, ok := baseStrategies[z]
	return ok
}

type DayType string

const (
	DayWeekday DayType = "weekday"
	DayWeekend DayType = "weekend"
	DayHoliday DayType = "holiday"
)

type TimeOfDayBand string

const (
	BandOffPeak   TimeOfDayBand = "off_peak"
	BandPeak      TimeOfDayBand = "peak"
	BandOvernight TimeOfDayBand = "overnight"
)

// Tariff is the per-zone pricing policy. Values are immutable once built by NewTariff.
type Tariff struct {
	ZoneType                         ZoneType
	BaseHourlyRate                   decimal.Decimal
	DailyCap                         decimal.Decimal
	OvernightFlatRateEnabled         bool
	OvernightFlatRate                decimal.Decimal
	WeekendOrHolidaySurchargePercent decimal.Decimal
}

type TariffParams struct {
	ZoneType                         ZoneType
	BaseHourlyRate                   decimal.Decimal
	DailyCap                         decimal.Decimal
	OvernightFlatRateEnabled         bool
	OvernightFlatRate                decimal.NullDecimal
	WeekendOrHolidaySurchargePercent decimal.NullDecimal
}

func NewTariff(p TariffParams) (*Tariff, error) {
	if !p.ZoneType.Valid() {
		return nil, fmt.Errorf("tariff: unknown zone type %q: %w", p.ZoneType, ErrInvalidConfig)
	}
	if p.BaseHourlyRate.IsNegative() {
		return nil, fmt.Errorf("tariff: negative hourly rate: %w", ErrInvalidConfig)
	}
	if p.DailyCap.IsNegative() {
		return nil, fmt.Errorf("tariff: negative daily cap: %w", ErrInvalidConfig)
	}
	flat := orZero(p.OvernightFlatRate)
	if flat.IsNegative() {
		return nil, fmt.Errorf("tariff: negative overnight flat rate: %w", ErrInvalidConfig)
	}
	if p.OvernightFlatRateEnabled && !p.OvernightFlatRate.Valid {
		return nil, fmt.Errorf("tariff: overnight flat rate enabled without a rate: %w", ErrInvalidConfig)
	}
	return &Tariff{
		ZoneType:                         p.ZoneType,
		BaseHourlyRate:                   p.BaseHourlyRate,
		DailyCap:                         p.DailyCap,
		OvernightFlatRateEnabled:         p.OvernightFlatRateEnabled,
		OvernightFlatRate:                flat,
		WeekendOrHolidaySurchargePercent: types.ClampZero(orZero(p.WeekendOrHolidaySurchargePercent)),
	}, nil
}

// DynamicPricingConfig holds the currently active surcharge multipliers.
type DynamicPricingConfig struct {
	PeakHourMultiplier      decimal.Decimal
	HighOccupancyThreshold  decimal.Decimal
	HighOccupancyMultiplier decimal.Decimal
}

func NewDynamicPricingConfig(peakMultiplier, occupancyThreshold, occupancyMultiplier float64) (*DynamicPricingConfig, error) {
	if !finite(peakMultiplier) || peakMultiplier <= 0 {
		return nil, fmt.Errorf("pricing config: peak multiplier %v: %w", peakMultiplier, ErrInvalidConfig)
	}
	if !finite(occupancyMultiplier) || occupancyMultiplier <= 0 {
		return nil, fmt.Errorf("pricing config: occupancy multiplier %v: %w", occupancyMultiplier, ErrInvalidConfig)
	}
	if !finite(occupancyThreshold) || occupancyThreshold < 0 || occupancyThreshold > 1 {
		return nil, fmt.Errorf("pricing config: occupancy threshold %v: %w", occupancyThreshold, ErrInvalidConfig)
	}
	return &DynamicPricingConfig{
		PeakHourMultiplier:      decimal.NewFromFloat(peakMultiplier),
		HighOccupancyThreshold:  decimal.NewFromFloat(occupancyThreshold),
		HighOccupancyMultiplier: decimal.NewFromFloat(occupancyMultiplier),
	}, nil
}

// DiscountInfo is a user's discount policy. Percentages are fractions of 1.
type DiscountInfo struct {
	SubscriptionDiscountPercent decimal.Decimal
	PromoDiscountPercent        decimal.Decimal
	PromoDiscountFixed          decimal.Decimal
	SubscriptionHasFreeHours    bool
	FreeHoursPerDay             decimal.Decimal
}

// DiscountParams mirrors DiscountInfo with nullable numbers; a null number counts as zero.
type DiscountParams struct {
	SubscriptionDiscountPercent decimal.NullDecimal
	PromoDiscountPercent        decimal.NullDecimal
	PromoDiscountFixed          decimal.NullDecimal
	SubscriptionHasFreeHours    bool
	FreeHoursPerDay             decimal.NullDecimal
}

func NewDiscountInfo(p DiscountParams) (*DiscountInfo, error) {
	sub := orZero(p.SubscriptionDiscountPercent)
	promo := orZero(p.PromoDiscountPercent)
	fixed := orZero(p.PromoDiscountFixed)
	free := orZero(p.FreeHoursPerDay)

	if !isFraction(sub) {
		return nil, fmt.Errorf("discount: subscription percent %s: %w", sub, ErrInvalidConfig)
	}
	if !isFraction(promo) {
		return nil, fmt.Errorf("discount: promo percent %s: %w", promo, ErrInvalidConfig)
	}
	if fixed.IsNegative() {
		return nil, fmt.Errorf("discount: negative fixed promo: %w", ErrInvalidConfig)
	}
	if free.IsNegative() {
		return nil, fmt.Errorf("discount: negative free hours: %w", ErrInvalidConfig)
	}
	if !p.SubscriptionHasFreeHours && !free.IsZero() {
		return nil, fmt.Errorf("discount: free hours set without subscription entitlement: %w", ErrInvalidConfig)
	}
	return &DiscountInfo{
		SubscriptionDiscountPercent: sub,
		PromoDiscountPercent:        promo,
		PromoDiscountFixed:          fixed,
		SubscriptionHasFreeHours:    p.SubscriptionHasFreeHours,
		FreeHoursPerDay:             free,
	}, nil
}

// NoDiscount is the policy of a user without any subscription or promotion.
func NoDiscount() *DiscountInfo {
	return &DiscountInfo{}
}

type DurationInfo struct {
	Hours       int
	ExceededMax bool
}

// BillingResult is the itemized outcome of one billing call.
type BillingResult struct {
	Hours          int             `json:"hours"`
	ExceededMax    bool            `json:"exceeded_max"`
	BasePrice      decimal.Decimal `json:"base_price"`
	DiscountsTotal decimal.Decimal `json:"discounts_total"`
	PenaltiesTotal decimal.Decimal `json:"penalties_total"`
	NetPrice       decimal.Decimal `json:"net_price"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	FinalPrice     decimal.Decimal `json:"final_price"`
}

func orZero(d decimal.NullDecimal) decimal.Decimal {
	if !d.Valid {
		return decimal.Zero
	}
	return d.Decimal
}

func isFraction(d decimal.Decimal) bool {
	return !d.IsNegative() && d.LessThanOrEqual(decimal.NewFromInt(1))
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// daysInSession counts started 24h periods; 0 hours is 0 days.
func daysInSession(hours int) int {
	return (hours + 23) / 24
}
