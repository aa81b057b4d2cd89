// README: Entry point; loads config, runs migrations, wires services and serves the billing API.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"garage/internal/config"
	httptransport "garage/internal/http"
	"garage/internal/infra"
	"garage/internal/modules/checkout"
	"garage/internal/modules/occupancy"
	"garage/internal/modules/rates"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger, err := infra.NewLogger(cfg.Env)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("garage-api stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	policy, err := cfg.Billing.Policy()
	if err != nil {
		return err
	}

	var verifier infra.TokenVerifier = infra.LocalVerifier{}
	if cfg.Auth.Disabled {
		logger.Warn("auth disabled; bearer tokens are trusted as uid:role")
	} else {
		verifier, err = infra.NewFirebaseVerifier(ctx, cfg.Auth.ProjectID, cfg.Auth.CredentialsFile)
		if err != nil {
			return err
		}
	}

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		return err
	}
	defer dbPool.Close()
	if cfg.DB.Migrate {
		if err := infra.Migrate(dbPool); err != nil {
			return err
		}
		logger.Info("migrations applied")
	}

	redisClient, err := infra.NewRedis(ctx, cfg.Redis.Addr)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	ratesStore := rates.NewStore(dbPool)
	ratesCache := rates.NewCache(redisClient, ratesStore, cfg.Redis.CacheTTL)
	ratesSvc := rates.NewService(ratesStore, ratesStore, ratesCache, logger.Named("rates"))

	occupancyStore := occupancy.NewStore(redisClient)

	recordStore := checkout.NewStore(dbPool)
	checkoutSvc := checkout.NewService(ratesSvc, occupancyStore, recordStore, policy, logger.Named("checkout"))

	if cfg.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := httptransport.NewRouter(httptransport.RouterDeps{
		Checkout:  checkoutSvc,
		Rates:     ratesSvc,
		Occupancy: occupancyStore,
		Verifier:  verifier,
		Log:       logger.Named("http"),
	})

	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.HTTP.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info("shutting down")
	return server.Shutdown(shutdownCtx)
}
