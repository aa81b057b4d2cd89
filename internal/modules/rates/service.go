// README: Rate service: per-request configuration snapshots and validated configuration writes.
package rates

import (
	"context"

	"go.uber.org/zap"

	"garage/internal/modules/billing"
)

// Writer persists configuration; Store implements it.
type Writer interface {
	ListTariffs(ctx context.Context) ([]*billing.Tariff, error)
	UpsertTariff(ctx context.Context, t *billing.Tariff) error
	ActivatePricingConfig(ctx context.Context, cfg *billing.DynamicPricingConfig) error
	UpsertDiscountInfo(ctx context.Context, userID string, d *billing.DiscountInfo) error
}

type Service struct {
	store Writer
	cache *Cache
	read  Source
	log   *zap.Logger
}

// NewService reads through cache when it is non-nil and straight from source otherwise.
func NewService(store Writer, source Source, cache *Cache, log *zap.Logger) *Service {
	read := source
	if cache != nil {
		read = cache
	}
	return &Service{store: store, cache: cache, read: read, log: log}
}

func (s *Service) Snapshot(ctx context.Context, zone billing.ZoneType, userID string) (Snapshot, error) {
	tariff, err := s.read.GetTariff(ctx, zone)
	if err != nil {
		return Snapshot{}, err
	}
	cfg, err := s.read.ActivePricingConfig(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	discount := billing.NoDiscount()
	if userID != "" {
		if discount, err = s.read.GetDiscountInfo(ctx, userID); err != nil {
			return Snapshot{}, err
		}
	}
	return Snapshot{Tariff: tariff, PricingConfig: cfg, Discount: discount}, nil
}

func (s *Service) ListTariffs(ctx context.Context) ([]*billing.Tariff, error) {
	return s.store.ListTariffs(ctx)
}

func (s *Service) UpsertTariff(ctx context.Context, p billing.TariffParams) (*billing.Tariff, error) {
	t, err := billing.NewTariff(p)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpsertTariff(ctx, t); err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.InvalidateTariff(ctx, t.ZoneType); err != nil {
			s.log.Warn("tariff cache invalidation failed", zap.String("zone", string(t.ZoneType)), zap.Error(err))
		}
	}
	s.log.Info("tariff updated", zap.String("zone", string(t.ZoneType)), zap.String("hourly_rate", t.BaseHourlyRate.String()))
	return t, nil
}

func (s *Service) ActivatePricingConfig(ctx context.Context, peak, threshold, occupancy float64) (*billing.DynamicPricingConfig, error) {
	cfg, err := billing.NewDynamicPricingConfig(peak, threshold, occupancy)
	if err != nil {
		return nil, err
	}
	if err := s.store.ActivatePricingConfig(ctx, cfg); err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.InvalidatePricing(ctx); err != nil {
			s.log.Warn("pricing cache invalidation failed", zap.Error(err))
		}
	}
	s.log.Info("pricing config activated",
		zap.Float64("peak_multiplier", peak),
		zap.Float64("occupancy_threshold", threshold),
		zap.Float64("occupancy_multiplier", occupancy))
	return cfg, nil
}

func (s *Service) UpsertDiscount(ctx context.Context, userID string, p billing.DiscountParams) (*billing.DiscountInfo, error) {
	d, err := billing.NewDiscountInfo(p)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpsertDiscountInfo(ctx, userID, d); err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.InvalidateDiscount(ctx, userID); err != nil {
			s.log.Warn("discount cache invalidation failed", zap.String("user_id", userID), zap.Error(err))
		}
	}
	return d, nil
}
