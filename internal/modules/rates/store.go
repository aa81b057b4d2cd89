// README: Rate store backed by PostgreSQL (tariffs, active pricing config, discount policies).
package rates

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"garage/internal/modules/billing"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) GetTariff(ctx context.Context, zone billing.ZoneType) (*billing.Tariff, error) {
	row := s.db.QueryRow(ctx, `
		SELECT zone_type, base_hourly_rate::text, daily_cap::text,
		       overnight_flat_rate_enabled, overnight_flat_rate::text, weekend_surcharge_percent::text
		FROM tariffs
		WHERE zone_type = $1`, string(zone),
	)
	t, err := scanTariff(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("tariff %q: %w", zone, ErrNotFound)
	}
	return t, err
}

func (s *Store) ListTariffs(ctx context.Context) ([]*billing.Tariff, error) {
	rows, err := s.db.Query(ctx, `
		SELECT zone_type, base_hourly_rate::text, daily_cap::text,
		       overnight_flat_rate_enabled, overnight_flat_rate::text, weekend_surcharge_percent::text
		FROM tariffs
		ORDER BY zone_type`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*billing.Tariff
	for rows.Next() {
		t, err := scanTariff(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) UpsertTariff(ctx context.Context, t *billing.Tariff) error {
	var flat *string
	if t.OvernightFlatRateEnabled || !t.OvernightFlatRate.IsZero() {
		v := t.OvernightFlatRate.String()
		flat = &v
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO tariffs (
			zone_type, base_hourly_rate, daily_cap,
			overnight_flat_rate_enabled, overnight_flat_rate, weekend_surcharge_percent, updated_at
		) VALUES ($1, $2::numeric, $3::numeric, $4, $5::numeric, $6::numeric, NOW())
		ON CONFLICT (zone_type) DO UPDATE SET
			base_hourly_rate = EXCLUDED.base_hourly_rate,
			daily_cap = EXCLUDED.daily_cap,
			overnight_flat_rate_enabled = EXCLUDED.overnight_flat_rate_enabled,
			overnight_flat_rate = EXCLUDED.overnight_flat_rate,
			weekend_surcharge_percent = EXCLUDED.weekend_surcharge_percent,
			updated_at = NOW()`,
		string(t.ZoneType),
		t.BaseHourlyRate.String(),
		t.DailyCap.String(),
		t.OvernightFlatRateEnabled,
		flat,
		t.WeekendOrHolidaySurchargePercent.String(),
	)
	return err
}

func (s *Store) ActivePricingConfig(ctx context.Context) (*billing.DynamicPricingConfig, error) {
	var peak, threshold, occ float64
	err := s.db.QueryRow(ctx, `
		SELECT peak_hour_multiplier, high_occupancy_threshold, high_occupancy_multiplier
		FROM dynamic_pricing_configs
		WHERE active`).Scan(&peak, &threshold, &occ)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("active pricing config: %w", ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return billing.NewDynamicPricingConfig(peak, threshold, occ)
}

// ActivatePricingConfig stores cfg and makes it the only active config.
func (s *Store) ActivatePricingConfig(ctx context.Context, cfg *billing.DynamicPricingConfig) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `UPDATE dynamic_pricing_configs SET active = FALSE WHERE active`); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO dynamic_pricing_configs (
			peak_hour_multiplier, high_occupancy_threshold, high_occupancy_multiplier, active
		) VALUES ($1, $2, $3, TRUE)`,
		cfg.PeakHourMultiplier.InexactFloat64(),
		cfg.HighOccupancyThreshold.InexactFloat64(),
		cfg.HighOccupancyMultiplier.InexactFloat64(),
	); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// GetDiscountInfo returns NoDiscount for users without a policy row.
func (s *Store) GetDiscountInfo(ctx context.Context, userID string) (*billing.DiscountInfo, error) {
	var sub, promo, fixed, free *string
	var hasFree bool
	err := s.db.QueryRow(ctx, `
		SELECT subscription_discount_percent::text, promo_discount_percent::text, promo_discount_fixed::text,
		       subscription_has_free_hours, free_hours_per_day::text
		FROM discount_policies
		WHERE user_id = $1`, userID,
	).Scan(&sub, &promo, &fixed, &hasFree, &free)
	if errors.Is(err, pgx.ErrNoRows) {
		return billing.NoDiscount(), nil
	}
	if err != nil {
		return nil, err
	}

	p := billing.DiscountParams{SubscriptionHasFreeHours: hasFree}
	if p.SubscriptionDiscountPercent, err = nullDecimal(sub); err != nil {
		return nil, err
	}
	if p.PromoDiscountPercent, err = nullDecimal(promo); err != nil {
		return nil, err
	}
	if p.PromoDiscountFixed, err = nullDecimal(fixed); err != nil {
		return nil, err
	}
	if p.FreeHoursPerDay, err = nullDecimal(free); err != nil {
		return nil, err
	}
	return billing.NewDiscountInfo(p)
}

func (s *Store) UpsertDiscountInfo(ctx context.Context, userID string, d *billing.DiscountInfo) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO discount_policies (
			user_id, subscription_discount_percent, promo_discount_percent, promo_discount_fixed,
			subscription_has_free_hours, free_hours_per_day, updated_at
		) VALUES ($1, $2::numeric, $3::numeric, $4::numeric, $5, $6::numeric, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			subscription_discount_percent = EXCLUDED.subscription_discount_percent,
			promo_discount_percent = EXCLUDED.promo_discount_percent,
			promo_discount_fixed = EXCLUDED.promo_discount_fixed,
			subscription_has_free_hours = EXCLUDED.subscription_has_free_hours,
			free_hours_per_day = EXCLUDED.free_hours_per_day,
			updated_at = NOW()`,
		userID,
		d.SubscriptionDiscountPercent.String(),
		d.PromoDiscountPercent.String(),
		d.PromoDiscountFixed.String(),
		d.SubscriptionHasFreeHours,
		d.FreeHoursPerDay.String(),
	)
	return err
}

func scanTariff(row pgx.Row) (*billing.Tariff, error) {
	var zone, rate, dailyCap string
	var flatEnabled bool
	var flat, surcharge *string
	if err := row.Scan(&zone, &rate, &dailyCap, &flatEnabled, &flat, &surcharge); err != nil {
		return nil, err
	}

	p := billing.TariffParams{
		ZoneType:                 billing.ZoneType(zone),
		OvernightFlatRateEnabled: flatEnabled,
	}
	var err error
	if p.BaseHourlyRate, err = decimal.NewFromString(rate); err != nil {
		return nil, fmt.Errorf("tariff %s rate: %w", zone, err)
	}
	if p.DailyCap, err = decimal.NewFromString(dailyCap); err != nil {
		return nil, fmt.Errorf("tariff %s daily cap: %w", zone, err)
	}
	if p.OvernightFlatRate, err = nullDecimal(flat); err != nil {
		return nil, err
	}
	if p.WeekendOrHolidaySurchargePercent, err = nullDecimal(surcharge); err != nil {
		return nil, err
	}
	return billing.NewTariff(p)
}

func nullDecimal(v *string) (decimal.NullDecimal, error) {
	if v == nil {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(*v)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(d), nil
}
