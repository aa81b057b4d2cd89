// README: Bill assembly: duration, base price, discounts, penalties, price cap and tax in a fixed order.
package billing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"garage/internal/types"
)

// BillRequest carries one session's interval plus the configuration snapshot it is billed against.
type BillRequest struct {
	EntryTime        time.Time
	ExitTime         time.Time
	ZoneType         ZoneType
	DayType          DayType
	Band             TimeOfDayBand
	OccupancyRatio   float64
	Tariff           *Tariff
	PricingConfig    *DynamicPricingConfig
	Discount         *DiscountInfo
	PenaltiesTotal   decimal.Decimal
	MaxDurationHours int
	MaxPriceCap      decimal.NullDecimal
	TaxRate          decimal.Decimal
}

// CalculateBill runs the whole pipeline. It keeps no state between calls.
func CalculateBill(req BillRequest) (BillingResult, error) {
	if req.Tariff == nil {
		return BillingResult{}, fmt.Errorf("bill: tariff required: %w", ErrMissingInput)
	}
	if req.ZoneType != req.Tariff.ZoneType {
		return BillingResult{}, fmt.Errorf("bill: tariff for %q used on zone %q: %w",
			req.Tariff.ZoneType, req.ZoneType, ErrInvalidArgument)
	}
	if req.PenaltiesTotal.IsNegative() {
		return BillingResult{}, fmt.Errorf("bill: negative penalties: %w", ErrInvalidArgument)
	}
	if req.MaxPriceCap.Valid && req.MaxPriceCap.Decimal.IsNegative() {
		return BillingResult{}, fmt.Errorf("bill: negative price cap: %w", ErrInvalidArgument)
	}

	duration, err := CalculateDuration(req.EntryTime, req.ExitTime, req.MaxDurationHours)
	if err != nil {
		return BillingResult{}, err
	}

	base, err := CalculateBasePrice(duration.Hours, req.DayType, req.Band, req.OccupancyRatio, req.Tariff, req.PricingConfig)
	if err != nil {
		return BillingResult{}, err
	}

	discounts, err := ApplyDiscounts(base, req.Discount, duration.Hours, req.Tariff.BaseHourlyRate)
	if err != nil {
		return BillingResult{}, err
	}

	penalties := types.RoundMoney(req.PenaltiesTotal)
	net := types.ClampZero(base.Sub(discounts)).Add(penalties)
	if req.MaxPriceCap.Valid {
		net = types.MinMoney(net, types.RoundMoney(req.MaxPriceCap.Decimal))
	}

	gross, err := CalculateGross(net, req.TaxRate)
	if err != nil {
		return BillingResult{}, err
	}

	return BillingResult{
		Hours:          duration.Hours,
		ExceededMax:    duration.ExceededMax,
		BasePrice:      base,
		DiscountsTotal: discounts,
		PenaltiesTotal: penalties,
		NetPrice:       net,
		TaxAmount:      gross.Sub(net),
		FinalPrice:     gross,
	}, nil
}
