// README: Occupancy handlers: zone capacity and gate entry/exit counters.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"garage/internal/modules/billing"
)

type OccupancyStore interface {
	SetCapacity(ctx context.Context, zone billing.ZoneType, capacity int64) error
	Enter(ctx context.Context, zone billing.ZoneType) (int64, error)
	Leave(ctx context.Context, zone billing.ZoneType) (int64, error)
}

type OccupancyHandler struct {
	occupancy OccupancyStore
}

func NewOccupancyHandler(store OccupancyStore) *OccupancyHandler {
	return &OccupancyHandler{occupancy: store}
}

type capacityReq struct {
	Capacity *int64 `json:"capacity"`
}

func (h *OccupancyHandler) SetCapacity(c *gin.Context) {
	zone, ok := zoneParam(c)
	if !ok {
		return
	}
	var req capacityReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Capacity == nil {
		writeError(c, http.StatusBadRequest, "capacity is required")
		return
	}
	if err := h.occupancy.SetCapacity(c.Request.Context(), zone, *req.Capacity); err != nil {
		writeBillingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"zone_type": zone, "capacity": *req.Capacity})
}

func (h *OccupancyHandler) Enter(c *gin.Context) {
	h.count(c, h.occupancy.Enter)
}

func (h *OccupancyHandler) Leave(c *gin.Context) {
	h.count(c, h.occupancy.Leave)
}

func (h *OccupancyHandler) count(c *gin.Context, step func(context.Context, billing.ZoneType) (int64, error)) {
	zone, ok := zoneParam(c)
	if !ok {
		return
	}
	occupied, err := step(c.Request.Context(), zone)
	if err != nil {
		writeBillingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"zone_type": zone, "occupied": occupied})
}

func zoneParam(c *gin.Context) (billing.ZoneType, bool) {
	zone := billing.ZoneType(c.Param("zone"))
	if !zone.Valid() {
		writeError(c, http.StatusBadRequest, "unknown zone type")
		return "", false
	}
	return zone, true
}
