// README: Handler tests over a gin engine with local token verification.
package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"garage/internal/http/handlers"
	"garage/internal/http/middleware"
	"garage/internal/infra"
	"garage/internal/modules/billing"
	"garage/internal/modules/checkout"
	"garage/internal/modules/occupancy"
	"garage/internal/modules/rates"
)

type fakeCheckout struct {
	lastQuote  checkout.QuoteCommand
	lastSettle checkout.SettleCommand
	err        error
	records    map[uuid.UUID]*checkout.Record
}

func newFakeCheckout() *fakeCheckout {
	return &fakeCheckout{records: map[uuid.UUID]*checkout.Record{}}
}

func sampleResult() billing.BillingResult {
	return billing.BillingResult{
		Hours:          4,
		BasePrice:      decimal.NewFromInt(20),
		DiscountsTotal: decimal.NewFromInt(2),
		PenaltiesTotal: decimal.NewFromInt(5),
		NetPrice:       decimal.NewFromInt(23),
		TaxAmount:      decimal.RequireFromString("4.6"),
		FinalPrice:     decimal.RequireFromString("27.6"),
	}
}

func (f *fakeCheckout) Quote(_ context.Context, cmd checkout.QuoteCommand) (*checkout.Quote, error) {
	f.lastQuote = cmd
	if f.err != nil {
		return nil, f.err
	}
	return &checkout.Quote{Result: sampleResult(), DayType: billing.DayWeekday, Band: billing.BandPeak, OccupancyRatio: 0.4}, nil
}

func (f *fakeCheckout) Settle(_ context.Context, cmd checkout.SettleCommand) (*checkout.Record, error) {
	f.lastSettle = cmd
	if f.err != nil {
		return nil, f.err
	}
	rec := &checkout.Record{
		ID:        uuid.New(),
		SessionID: cmd.SessionID,
		UserID:    cmd.UserID,
		ZoneType:  cmd.ZoneType,
		EntryTime: cmd.EntryTime,
		ExitTime:  cmd.ExitTime,
		Result:    sampleResult(),
	}
	f.records[rec.ID] = rec
	return rec, nil
}

func (f *fakeCheckout) Get(_ context.Context, id uuid.UUID) (*checkout.Record, error) {
	if rec, ok := f.records[id]; ok {
		return rec, nil
	}
	return nil, checkout.ErrNotFound
}

func (f *fakeCheckout) BySession(_ context.Context, sessionID string) (*checkout.Record, error) {
	for _, rec := range f.records {
		if rec.SessionID == sessionID {
			return rec, nil
		}
	}
	return nil, checkout.ErrNotFound
}

type fakeRates struct {
	tariffs  []*billing.Tariff
	discount billing.DiscountParams
	user     string
}

func (f *fakeRates) ListTariffs(context.Context) ([]*billing.Tariff, error) {
	return f.tariffs, nil
}

func (f *fakeRates) UpsertTariff(_ context.Context, p billing.TariffParams) (*billing.Tariff, error) {
	t, err := billing.NewTariff(p)
	if err != nil {
		return nil, err
	}
	f.tariffs = append(f.tariffs, t)
	return t, nil
}

func (f *fakeRates) ActivatePricingConfig(_ context.Context, peak, threshold, occupancy float64) (*billing.DynamicPricingConfig, error) {
	return billing.NewDynamicPricingConfig(peak, threshold, occupancy)
}

func (f *fakeRates) UpsertDiscount(_ context.Context, userID string, p billing.DiscountParams) (*billing.DiscountInfo, error) {
	f.user, f.discount = userID, p
	return billing.NewDiscountInfo(p)
}

type fakeOccupancy struct {
	occupied map[billing.ZoneType]int64
	capacity map[billing.ZoneType]int64
}

func (f *fakeOccupancy) SetCapacity(_ context.Context, zone billing.ZoneType, capacity int64) error {
	if capacity < 0 {
		return occupancy.ErrInvalidCapacity
	}
	f.capacity[zone] = capacity
	return nil
}

func (f *fakeOccupancy) Enter(_ context.Context, zone billing.ZoneType) (int64, error) {
	f.occupied[zone]++
	return f.occupied[zone], nil
}

func (f *fakeOccupancy) Leave(_ context.Context, zone billing.ZoneType) (int64, error) {
	if f.occupied[zone] > 0 {
		f.occupied[zone]--
	}
	return f.occupied[zone], nil
}

type fixture struct {
	router    *gin.Engine
	checkout  *fakeCheckout
	rates     *fakeRates
	occupancy *fakeOccupancy
}

func newFixture() *fixture {
	gin.SetMode(gin.TestMode)
	f := &fixture{
		checkout: newFakeCheckout(),
		rates:    &fakeRates{},
		occupancy: &fakeOccupancy{
			occupied: map[billing.ZoneType]int64{},
			capacity: map[billing.ZoneType]int64{},
		},
	}
	r := gin.New()
	api := r.Group("/api", middleware.Auth(infra.LocalVerifier{}))
	ops := api.Group("", middleware.RequireRole(middleware.RoleOperator))

	bh := handlers.NewBillingHandler(f.checkout)
	api.POST("/billing/quote", bh.Quote)
	api.GET("/billing/records/:id", bh.GetRecord)
	api.POST("/sessions/:id/checkout", bh.Checkout)
	api.GET("/sessions/:id/record", bh.GetSessionRecord)

	rh := handlers.NewRatesHandler(f.rates)
	api.GET("/tariffs", rh.ListTariffs)
	ops.PUT("/tariffs/:zone", rh.UpsertTariff)
	ops.PUT("/pricing/active", rh.ActivatePricing)
	ops.PUT("/discounts/:user", rh.UpsertDiscount)

	oh := handlers.NewOccupancyHandler(f.occupancy)
	ops.PUT("/occupancy/:zone/capacity", oh.SetCapacity)
	api.POST("/occupancy/:zone/enter", oh.Enter)
	api.POST("/occupancy/:zone/leave", oh.Leave)

	f.router = r
	return f
}

func (f *fixture) do(method, path string, body any, token string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

var quoteBody = map[string]any{
	"user_id":     "someone-else",
	"zone_type":   "standard",
	"entry_time":  "2026-03-10T09:00:00Z",
	"exit_time":   "2026-03-10T12:30:00Z",
	"lost_ticket": true,
}

func TestQuote(t *testing.T) {
	f := newFixture()

	w := f.do(http.MethodPost, "/api/billing/quote", quoteBody, "driver-1")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	out := decode(t, w)
	assert.Equal(t, "peak", out["band"])
	bill := out["bill"].(map[string]any)
	assert.Equal(t, "27.60", bill["final_price"])
	assert.Equal(t, "4.60", bill["tax_amount"])

	// A driver always quotes for themselves.
	assert.Equal(t, "driver-1", f.checkout.lastQuote.UserID)
	assert.True(t, f.checkout.lastQuote.LostTicket)
	assert.Equal(t, time.Date(2026, 3, 10, 12, 30, 0, 0, time.UTC), f.checkout.lastQuote.ExitTime.UTC())

	w = f.do(http.MethodPost, "/api/billing/quote", quoteBody, "op-1:operator")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "someone-else", f.checkout.lastQuote.UserID)
}

func TestQuote_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"bad request", checkout.ErrBadRequest, http.StatusBadRequest},
		{"invalid range", billing.ErrInvalidRange, http.StatusBadRequest},
		{"missing input", billing.ErrMissingInput, http.StatusBadRequest},
		{"no tariff", rates.ErrNotFound, http.StatusNotFound},
		{"bad config", billing.ErrInvalidConfig, http.StatusUnprocessableEntity},
		{"store down", assert.AnError, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.checkout.err = tt.err
			w := f.do(http.MethodPost, "/api/billing/quote", quoteBody, "driver-1")
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestQuote_InvalidJSON(t *testing.T) {
	f := newFixture()
	req := httptest.NewRequest(http.MethodPost, "/api/billing/quote", bytes.NewBufferString("{"))
	req.Header.Set("Authorization", "Bearer driver-1")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCheckoutAndLookup(t *testing.T) {
	f := newFixture()

	w := f.do(http.MethodPost, "/api/sessions/sess-9/checkout", quoteBody, "driver-1")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	out := decode(t, w)
	assert.Equal(t, "sess-9", out["session_id"])
	assert.Equal(t, "driver-1", out["user_id"])
	assert.Equal(t, "sess-9", f.checkout.lastSettle.SessionID)
	id := out["id"].(string)

	w = f.do(http.MethodGet, "/api/billing/records/"+id, nil, "driver-1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "23.00", decode(t, w)["bill"].(map[string]any)["net_price"])

	w = f.do(http.MethodGet, "/api/sessions/sess-9/record", nil, "driver-1")
	assert.Equal(t, http.StatusOK, w.Code)

	// Another driver cannot see the record; an operator can.
	w = f.do(http.MethodGet, "/api/billing/records/"+id, nil, "driver-2")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = f.do(http.MethodGet, "/api/sessions/sess-9/record", nil, "op-1:operator")
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(http.MethodGet, "/api/billing/records/not-a-uuid", nil, "driver-1")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = f.do(http.MethodGet, "/api/billing/records/"+uuid.NewString(), nil, "driver-1")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCheckout_AlreadySettled(t *testing.T) {
	f := newFixture()
	f.checkout.err = checkout.ErrAlreadySettled

	w := f.do(http.MethodPost, "/api/sessions/sess-1/checkout", quoteBody, "driver-1")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestTariffs(t *testing.T) {
	f := newFixture()
	body := map[string]any{
		"base_hourly_rate":                     "4.50",
		"daily_cap":                            30,
		"weekend_or_holiday_surcharge_percent": 10,
	}

	w := f.do(http.MethodPut, "/api/tariffs/ev", body, "driver-1")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(http.MethodPut, "/api/tariffs/rooftop", body, "op:operator")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodPut, "/api/tariffs/ev", map[string]any{"daily_cap": 30}, "op:operator")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodPut, "/api/tariffs/ev", map[string]any{"base_hourly_rate": -1, "daily_cap": 30}, "op:operator")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = f.do(http.MethodPut, "/api/tariffs/ev", body, "op:operator")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "4.50", decode(t, w)["base_hourly_rate"])

	w = f.do(http.MethodGet, "/api/tariffs", nil, "driver-1")
	require.Equal(t, http.StatusOK, w.Code)
	tariffs := decode(t, w)["tariffs"].([]any)
	require.Len(t, tariffs, 1)
	assert.Equal(t, "ev", tariffs[0].(map[string]any)["zone_type"])
}

func TestActivatePricing(t *testing.T) {
	f := newFixture()

	w := f.do(http.MethodPut, "/api/pricing/active", map[string]any{
		"peak_hour_multiplier":      1.5,
		"high_occupancy_threshold":  0.85,
		"high_occupancy_multiplier": 1.2,
	}, "op:operator")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0.85", decode(t, w)["high_occupancy_threshold"])

	w = f.do(http.MethodPut, "/api/pricing/active", map[string]any{"peak_hour_multiplier": 1.5}, "op:operator")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestUpsertDiscount(t *testing.T) {
	f := newFixture()

	w := f.do(http.MethodPut, "/api/discounts/driver-7", map[string]any{
		"subscription_discount_percent": "0.1",
		"promo_discount_fixed":          nil,
		"subscription_has_free_hours":   true,
		"free_hours_per_day":            2,
	}, "op:operator")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "driver-7", f.rates.user)
	assert.False(t, f.rates.discount.PromoDiscountFixed.Valid)
	assert.Equal(t, "2", decode(t, w)["free_hours_per_day"])

	w = f.do(http.MethodPut, "/api/discounts/driver-7", map[string]any{"promo_discount_percent": 1.5}, "op:operator")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestOccupancy(t *testing.T) {
	f := newFixture()

	w := f.do(http.MethodPut, "/api/occupancy/compact/capacity", map[string]any{"capacity": 40}, "op:operator")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(40), f.occupancy.capacity[billing.ZoneCompact])

	w = f.do(http.MethodPut, "/api/occupancy/compact/capacity", map[string]any{"capacity": -1}, "op:operator")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = f.do(http.MethodPut, "/api/occupancy/compact/capacity", map[string]any{}, "op:operator")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodPost, "/api/occupancy/compact/enter", nil, "gate-1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["occupied"])

	w = f.do(http.MethodPost, "/api/occupancy/compact/leave", nil, "gate-1")
	assert.Equal(t, float64(0), decode(t, w)["occupied"])
	w = f.do(http.MethodPost, "/api/occupancy/compact/leave", nil, "gate-1")
	assert.Equal(t, float64(0), decode(t, w)["occupied"])

	w = f.do(http.MethodPost, "/api/occupancy/rooftop/enter", nil, "gate-1")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
