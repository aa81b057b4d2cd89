// README: Base handler utilities (JSON helpers, error mapping, response shapes).
package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"garage/internal/modules/billing"
	"garage/internal/modules/checkout"
	"garage/internal/modules/occupancy"
	"garage/internal/modules/rates"
	"garage/internal/types"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

// writeBillingError maps module errors onto HTTP status codes.
func writeBillingError(c *gin.Context, err error) {
	_ = c.Error(err)
	switch {
	case errors.Is(err, checkout.ErrBadRequest),
		errors.Is(err, billing.ErrMissingInput),
		errors.Is(err, billing.ErrInvalidRange),
		errors.Is(err, billing.ErrInvalidArgument),
		errors.Is(err, occupancy.ErrInvalidCapacity):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, checkout.ErrNotFound), errors.Is(err, rates.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, checkout.ErrAlreadySettled):
		writeError(c, http.StatusConflict, err.Error())
	case errors.Is(err, billing.ErrInvalidConfig), errors.Is(err, billing.ErrInvalidPolicy):
		writeError(c, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

func fixed(d decimal.Decimal) string {
	return d.StringFixed(types.MoneyScale)
}

type billResponse struct {
	Hours          int    `json:"hours"`
	ExceededMax    bool   `json:"exceeded_max"`
	BasePrice      string `json:"base_price"`
	DiscountsTotal string `json:"discounts_total"`
	PenaltiesTotal string `json:"penalties_total"`
	NetPrice       string `json:"net_price"`
	TaxAmount      string `json:"tax_amount"`
	FinalPrice     string `json:"final_price"`
}

func newBillResponse(r billing.BillingResult) billResponse {
	return billResponse{
		Hours:          r.Hours,
		ExceededMax:    r.ExceededMax,
		BasePrice:      fixed(r.BasePrice),
		DiscountsTotal: fixed(r.DiscountsTotal),
		PenaltiesTotal: fixed(r.PenaltiesTotal),
		NetPrice:       fixed(r.NetPrice),
		TaxAmount:      fixed(r.TaxAmount),
		FinalPrice:     fixed(r.FinalPrice),
	}
}

type recordResponse struct {
	ID        string       `json:"id"`
	SessionID string       `json:"session_id"`
	UserID    string       `json:"user_id"`
	ZoneType  string       `json:"zone_type"`
	EntryTime time.Time    `json:"entry_time"`
	ExitTime  time.Time    `json:"exit_time"`
	Bill      billResponse `json:"bill"`
	CreatedAt time.Time    `json:"created_at"`
}

func newRecordResponse(r *checkout.Record) recordResponse {
	return recordResponse{
		ID:        r.ID.String(),
		SessionID: r.SessionID,
		UserID:    r.UserID,
		ZoneType:  string(r.ZoneType),
		EntryTime: r.EntryTime,
		ExitTime:  r.ExitTime,
		Bill:      newBillResponse(r.Result),
		CreatedAt: r.CreatedAt,
	}
}

type tariffResponse struct {
	ZoneType                         string `json:"zone_type"`
	BaseHourlyRate                   string `json:"base_hourly_rate"`
	DailyCap                         string `json:"daily_cap"`
	OvernightFlatRateEnabled         bool   `json:"overnight_flat_rate_enabled"`
	OvernightFlatRate                string `json:"overnight_flat_rate"`
	WeekendOrHolidaySurchargePercent string `json:"weekend_or_holiday_surcharge_percent"`
}

func newTariffResponse(t *billing.Tariff) tariffResponse {
	return tariffResponse{
		ZoneType:                         string(t.ZoneType),
		BaseHourlyRate:                   fixed(t.BaseHourlyRate),
		DailyCap:                         fixed(t.DailyCap),
		OvernightFlatRateEnabled:         t.OvernightFlatRateEnabled,
		OvernightFlatRate:                fixed(t.OvernightFlatRate),
		WeekendOrHolidaySurchargePercent: t.WeekendOrHolidaySurchargePercent.String(),
	}
}
