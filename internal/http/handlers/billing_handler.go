// README: Billing handlers: quotes, session checkout and billing record lookup.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"garage/internal/http/middleware"
	"garage/internal/modules/billing"
	"garage/internal/modules/checkout"
)

type CheckoutService interface {
	Quote(ctx context.Context, cmd checkout.QuoteCommand) (*checkout.Quote, error)
	Settle(ctx context.Context, cmd checkout.SettleCommand) (*checkout.Record, error)
	Get(ctx context.Context, id uuid.UUID) (*checkout.Record, error)
	BySession(ctx context.Context, sessionID string) (*checkout.Record, error)
}

type BillingHandler struct {
	checkout CheckoutService
}

func NewBillingHandler(svc CheckoutService) *BillingHandler {
	return &BillingHandler{checkout: svc}
}

type quoteReq struct {
	UserID     string    `json:"user_id"`
	ZoneType   string    `json:"zone_type"`
	EntryTime  time.Time `json:"entry_time"`
	ExitTime   time.Time `json:"exit_time"`
	LostTicket bool      `json:"lost_ticket"`
	ZoneMisuse bool      `json:"zone_misuse"`
}

// command bills the caller; operators may bill on behalf of another user.
func (r quoteReq) command(c *gin.Context) checkout.QuoteCommand {
	user := middleware.CallerUID(c)
	if r.UserID != "" && middleware.IsOperator(c) {
		user = r.UserID
	}
	return checkout.QuoteCommand{
		UserID:     user,
		ZoneType:   billing.ZoneType(r.ZoneType),
		EntryTime:  r.EntryTime,
		ExitTime:   r.ExitTime,
		LostTicket: r.LostTicket,
		ZoneMisuse: r.ZoneMisuse,
	}
}

func (h *BillingHandler) Quote(c *gin.Context) {
	var req quoteReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	q, err := h.checkout.Quote(c.Request.Context(), req.command(c))
	if err != nil {
		writeBillingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{
		"day_type":        q.DayType,
		"band":            q.Band,
		"occupancy_ratio": q.OccupancyRatio,
		"bill":            newBillResponse(q.Result),
	})
}

func (h *BillingHandler) Checkout(c *gin.Context) {
	sessionID := c.Param("id")
	if sessionID == "" {
		writeError(c, http.StatusBadRequest, "missing session id")
		return
	}
	var req quoteReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	rec, err := h.checkout.Settle(c.Request.Context(), checkout.SettleCommand{
		SessionID:    sessionID,
		QuoteCommand: req.command(c),
	})
	if err != nil {
		writeBillingError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, newRecordResponse(rec))
}

func (h *BillingHandler) GetRecord(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		writeError(c, http.StatusBadRequest, "invalid record id")
		return
	}
	rec, err := h.checkout.Get(c.Request.Context(), id)
	if err != nil {
		writeBillingError(c, err)
		return
	}
	h.writeRecord(c, rec)
}

func (h *BillingHandler) GetSessionRecord(c *gin.Context) {
	rec, err := h.checkout.BySession(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeBillingError(c, err)
		return
	}
	h.writeRecord(c, rec)
}

// writeRecord hides other users' records behind 404 unless the caller is an operator.
func (h *BillingHandler) writeRecord(c *gin.Context, rec *checkout.Record) {
	if rec.UserID != middleware.CallerUID(c) && !middleware.IsOperator(c) {
		writeBillingError(c, checkout.ErrNotFound)
		return
	}
	writeJSON(c, http.StatusOK, newRecordResponse(rec))
}
