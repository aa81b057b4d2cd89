// README: Rate configuration handlers: tariffs, the active pricing config and user discounts.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"garage/internal/modules/billing"
)

type RatesService interface {
	ListTariffs(ctx context.Context) ([]*billing.Tariff, error)
	UpsertTariff(ctx context.Context, p billing.TariffParams) (*billing.Tariff, error)
	ActivatePricingConfig(ctx context.Context, peak, threshold, occupancy float64) (*billing.DynamicPricingConfig, error)
	UpsertDiscount(ctx context.Context, userID string, p billing.DiscountParams) (*billing.DiscountInfo, error)
}

type RatesHandler struct {
	rates RatesService
}

func NewRatesHandler(svc RatesService) *RatesHandler {
	return &RatesHandler{rates: svc}
}

func (h *RatesHandler) ListTariffs(c *gin.Context) {
	tariffs, err := h.rates.ListTariffs(c.Request.Context())
	if err != nil {
		writeBillingError(c, err)
		return
	}
	out := make([]tariffResponse, 0, len(tariffs))
	for _, t := range tariffs {
		out = append(out, newTariffResponse(t))
	}
	writeJSON(c, http.StatusOK, gin.H{"tariffs": out})
}

type tariffReq struct {
	BaseHourlyRate                   decimal.NullDecimal `json:"base_hourly_rate"`
	DailyCap                         decimal.NullDecimal `json:"daily_cap"`
	OvernightFlatRateEnabled         bool                `json:"overnight_flat_rate_enabled"`
	OvernightFlatRate                decimal.NullDecimal `json:"overnight_flat_rate"`
	WeekendOrHolidaySurchargePercent decimal.NullDecimal `json:"weekend_or_holiday_surcharge_percent"`
}

func (h *RatesHandler) UpsertTariff(c *gin.Context) {
	zone := billing.ZoneType(c.Param("zone"))
	if !zone.Valid() {
		writeError(c, http.StatusBadRequest, "unknown zone type")
		return
	}
	var req tariffReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if !req.BaseHourlyRate.Valid || !req.DailyCap.Valid {
		writeError(c, http.StatusBadRequest, "base_hourly_rate and daily_cap are required")
		return
	}
	t, err := h.rates.UpsertTariff(c.Request.Context(), billing.TariffParams{
		ZoneType:                         zone,
		BaseHourlyRate:                   req.BaseHourlyRate.Decimal,
		DailyCap:                         req.DailyCap.Decimal,
		OvernightFlatRateEnabled:         req.OvernightFlatRateEnabled,
		OvernightFlatRate:                req.OvernightFlatRate,
		WeekendOrHolidaySurchargePercent: req.WeekendOrHolidaySurchargePercent,
	})
	if err != nil {
		writeBillingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, newTariffResponse(t))
}

type pricingReq struct {
	PeakHourMultiplier      float64 `json:"peak_hour_multiplier"`
	HighOccupancyThreshold  float64 `json:"high_occupancy_threshold"`
	HighOccupancyMultiplier float64 `json:"high_occupancy_multiplier"`
}

func (h *RatesHandler) ActivatePricing(c *gin.Context) {
	var req pricingReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	cfg, err := h.rates.ActivatePricingConfig(c.Request.Context(),
		req.PeakHourMultiplier, req.HighOccupancyThreshold, req.HighOccupancyMultiplier)
	if err != nil {
		writeBillingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{
		"peak_hour_multiplier":      cfg.PeakHourMultiplier.String(),
		"high_occupancy_threshold":  cfg.HighOccupancyThreshold.String(),
		"high_occupancy_multiplier": cfg.HighOccupancyMultiplier.String(),
	})
}

type discountReq struct {
	SubscriptionDiscountPercent decimal.NullDecimal `json:"subscription_discount_percent"`
	PromoDiscountPercent        decimal.NullDecimal `json:"promo_discount_percent"`
	PromoDiscountFixed          decimal.NullDecimal `json:"promo_discount_fixed"`
	SubscriptionHasFreeHours    bool                `json:"subscription_has_free_hours"`
	FreeHoursPerDay             decimal.NullDecimal `json:"free_hours_per_day"`
}

func (h *RatesHandler) UpsertDiscount(c *gin.Context) {
	user := c.Param("user")
	var req discountReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	d, err := h.rates.UpsertDiscount(c.Request.Context(), user, billing.DiscountParams{
		SubscriptionDiscountPercent: req.SubscriptionDiscountPercent,
		PromoDiscountPercent:        req.PromoDiscountPercent,
		PromoDiscountFixed:          req.PromoDiscountFixed,
		SubscriptionHasFreeHours:    req.SubscriptionHasFreeHours,
		FreeHoursPerDay:             req.FreeHoursPerDay,
	})
	if err != nil {
		writeBillingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{
		"user_id":                       user,
		"subscription_discount_percent": d.SubscriptionDiscountPercent.String(),
		"promo_discount_percent":        d.PromoDiscountPercent.String(),
		"promo_discount_fixed":          fixed(d.PromoDiscountFixed),
		"subscription_has_free_hours":   d.SubscriptionHasFreeHours,
		"free_hours_per_day":            d.FreeHoursPerDay.String(),
	})
}
