package billing

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDynamicPricingConfig(t *testing.T) {
	cases := []struct {
		name                 string
		peak, threshold, occ float64
		wantErr              bool
	}{
		{"valid", 1.5, 0.8, 1.2, false},
		{"zero threshold", 1.5, 0, 1.2, false},
		{"threshold of one", 1.5, 1, 1.2, false},
		{"zero peak", 0, 0.8, 1.2, true},
		{"negative occupancy multiplier", 1.5, 0.8, -1, true},
		{"nan peak", math.NaN(), 0.8, 1.2, true},
		{"infinite occupancy multiplier", 1.5, 0.8, math.Inf(1), true},
		{"nan threshold", 1.5, math.NaN(), 1.2, true},
		{"threshold above one", 1.5, 1.1, 1.2, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := NewDynamicPricingConfig(tc.peak, tc.threshold, tc.occ)
			if tc.wantErr {
				require.ErrorIs(t, err, ErrInvalidConfig)
				assert.Nil(t, cfg)
				return
			}
			require.NoError(t, err)
			assert.True(t, cfg.PeakHourMultiplier.Equal(decimal.NewFromFloat(tc.peak)))
		})
	}
}

func TestNewDiscountInfo(t *testing.T) {
	info, err := NewDiscountInfo(DiscountParams{})
	require.NoError(t, err)
	assert.True(t, info.SubscriptionDiscountPercent.IsZero())
	assert.True(t, info.PromoDiscountFixed.IsZero())
	assert.True(t, info.FreeHoursPerDay.IsZero())

	_, err = NewDiscountInfo(DiscountParams{FreeHoursPerDay: decimal.NewNullDecimal(money("2"))})
	require.ErrorIs(t, err, ErrInvalidConfig, "free hours without entitlement")

	_, err = NewDiscountInfo(DiscountParams{SubscriptionDiscountPercent: decimal.NewNullDecimal(money("1.5"))})
	require.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewDiscountInfo(DiscountParams{PromoDiscountPercent: decimal.NewNullDecimal(money("-0.1"))})
	require.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewDiscountInfo(DiscountParams{PromoDiscountFixed: decimal.NewNullDecimal(money("-1"))})
	require.ErrorIs(t, err, ErrInvalidConfig)

	info, err = NewDiscountInfo(DiscountParams{SubscriptionHasFreeHours: true, FreeHoursPerDay: decimal.NewNullDecimal(money("2"))})
	require.NoError(t, err)
	assert.True(t, info.SubscriptionHasFreeHours)
}

func TestNewTariff(t *testing.T) {
	_, err := NewTariff(TariffParams{ZoneType: "rooftop", BaseHourlyRate: money("1")})
	require.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewTariff(TariffParams{ZoneType: ZoneEV, BaseHourlyRate: money("-1")})
	require.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewTariff(TariffParams{ZoneType: ZoneEV, DailyCap: money("-1")})
	require.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewTariff(TariffParams{ZoneType: ZoneEV, OvernightFlatRateEnabled: true})
	require.ErrorIs(t, err, ErrInvalidConfig)

	tariff, err := NewTariff(TariffParams{
		ZoneType:                         ZoneVIP,
		BaseHourlyRate:                   money("4.50"),
		WeekendOrHolidaySurchargePercent: decimal.NewNullDecimal(money("-5")),
	})
	require.NoError(t, err)
	assert.True(t, tariff.WeekendOrHolidaySurchargePercent.IsZero())
}
