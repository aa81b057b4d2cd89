// README: HTTP router registration.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"garage/internal/http/handlers"
	"garage/internal/http/middleware"
	"garage/internal/infra"
)

type RouterDeps struct {
	Checkout  handlers.CheckoutService
	Rates     handlers.RatesService
	Occupancy handlers.OccupancyStore
	Verifier  infra.TokenVerifier
	Log       *zap.Logger
}

func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery(deps.Log), middleware.Logging(deps.Log), middleware.Metrics())

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api", middleware.Auth(deps.Verifier))
	operator := api.Group("", middleware.RequireRole(middleware.RoleOperator))

	billingHandler := handlers.NewBillingHandler(deps.Checkout)
	api.POST("/billing/quote", billingHandler.Quote)
	api.GET("/billing/records/:id", billingHandler.GetRecord)
	api.POST("/sessions/:id/checkout", billingHandler.Checkout)
	api.GET("/sessions/:id/record", billingHandler.GetSessionRecord)

	ratesHandler := handlers.NewRatesHandler(deps.Rates)
	api.GET("/tariffs", ratesHandler.ListTariffs)
	operator.PUT("/tariffs/:zone", ratesHandler.UpsertTariff)
	operator.PUT("/pricing/active", ratesHandler.ActivatePricing)
	operator.PUT("/discounts/:user", ratesHandler.UpsertDiscount)

	occupancyHandler := handlers.NewOccupancyHandler(deps.Occupancy)
	operator.PUT("/occupancy/:zone/capacity", occupancyHandler.SetCapacity)
	api.POST("/occupancy/:zone/enter", occupancyHandler.Enter)
	api.POST("/occupancy/:zone/leave", occupancyHandler.Leave)

	return r
}
