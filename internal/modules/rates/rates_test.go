package rates

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"garage/internal/modules/billing"
)

// memStore is an in-memory Writer and Source.
type memStore struct {
	mu        sync.Mutex
	tariffs   map[billing.ZoneType]*billing.Tariff
	pricing   *billing.DynamicPricingConfig
	discounts map[string]*billing.DiscountInfo
	reads     int
}

func newMemStore() *memStore {
	return &memStore{
		tariffs:   map[billing.ZoneType]*billing.Tariff{},
		discounts: map[string]*billing.DiscountInfo{},
	}
}

func (m *memStore) GetTariff(_ context.Context, zone billing.ZoneType) (*billing.Tariff, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	t, ok := m.tariffs[zone]
	if !ok {
		return nil, fmt.Errorf("tariff %q: %w", zone, ErrNotFound)
	}
	return t, nil
}

func (m *memStore) ActivePricingConfig(context.Context) (*billing.DynamicPricingConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	if m.pricing == nil {
		return nil, ErrNotFound
	}
	return m.pricing, nil
}

func (m *memStore) GetDiscountInfo(_ context.Context, userID string) (*billing.DiscountInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	if d, ok := m.discounts[userID]; ok {
		return d, nil
	}
	return billing.NoDiscount(), nil
}

func (m *memStore) ListTariffs(context.Context) ([]*billing.Tariff, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*billing.Tariff
	for _, t := range m.tariffs {
		out = append(out, t)
	}
	return out, nil
}

func (m *memStore) UpsertTariff(_ context.Context, t *billing.Tariff) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tariffs[t.ZoneType] = t
	return nil
}

func (m *memStore) ActivatePricingConfig(_ context.Context, cfg *billing.DynamicPricingConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pricing = cfg
	return nil
}

func (m *memStore) UpsertDiscountInfo(_ context.Context, userID string, d *billing.DiscountInfo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.discounts[userID] = d
	return nil
}

func (m *memStore) readCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}

func setupService(t *testing.T) (*Service, *memStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	mem := newMemStore()
	cache := NewCache(rdb, mem, time.Minute)
	return NewService(mem, mem, cache, zap.NewNop()), mem, mr
}

func TestSnapshot_ReadsThroughCache(t *testing.T) {
	svc, mem, _ := setupService(t)
	ctx := context.Background()

	_, err := svc.UpsertTariff(ctx, billing.TariffParams{ZoneType: billing.ZoneEV, BaseHourlyRate: decimal.RequireFromString("3.5")})
	require.NoError(t, err)
	_, err = svc.ActivatePricingConfig(ctx, 1.5, 0.85, 1.2)
	require.NoError(t, err)

	first, err := svc.Snapshot(ctx, billing.ZoneEV, "u1")
	require.NoError(t, err)
	readsAfterFirst := mem.readCount()

	second, err := svc.Snapshot(ctx, billing.ZoneEV, "u1")
	require.NoError(t, err)
	assert.Equal(t, readsAfterFirst, mem.readCount(), "second snapshot should come from redis")

	assert.True(t, first.Tariff.BaseHourlyRate.Equal(second.Tariff.BaseHourlyRate))
	assert.True(t, second.PricingConfig.HighOccupancyThreshold.Equal(decimal.NewFromFloat(0.85)))
	assert.Equal(t, billing.ZoneEV, second.Tariff.ZoneType)
}

func TestUpsertTariff_InvalidatesCache(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	_, err := svc.UpsertTariff(ctx, billing.TariffParams{ZoneType: billing.ZoneStandard, BaseHourlyRate: decimal.RequireFromString("2")})
	require.NoError(t, err)
	_, err = svc.ActivatePricingConfig(ctx, 1.5, 0.9, 1.1)
	require.NoError(t, err)

	snap, err := svc.Snapshot(ctx, billing.ZoneStandard, "")
	require.NoError(t, err)
	assert.Equal(t, "2", snap.Tariff.BaseHourlyRate.String())

	_, err = svc.UpsertTariff(ctx, billing.TariffParams{ZoneType: billing.ZoneStandard, BaseHourlyRate: decimal.RequireFromString("2.5")})
	require.NoError(t, err)

	snap, err = svc.Snapshot(ctx, billing.ZoneStandard, "")
	require.NoError(t, err)
	assert.Equal(t, "2.5", snap.Tariff.BaseHourlyRate.String())
}

func TestUpsertDiscount_Validates(t *testing.T) {
	svc, mem, _ := setupService(t)

	_, err := svc.UpsertDiscount(context.Background(), "u1", billing.DiscountParams{
		FreeHoursPerDay: decimal.NewNullDecimal(decimal.NewFromInt(2)),
	})
	require.ErrorIs(t, err, billing.ErrInvalidConfig)
	assert.Empty(t, mem.discounts)
}

func TestSnapshot_MissingConfiguration(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	_, err := svc.Snapshot(ctx, billing.ZoneVIP, "u1")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = svc.UpsertTariff(ctx, billing.TariffParams{ZoneType: billing.ZoneVIP, BaseHourlyRate: decimal.RequireFromString("9")})
	require.NoError(t, err)
	_, err = svc.Snapshot(ctx, billing.ZoneVIP, "u1")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCache_RedisFailureSurfaces(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	mem := newMemStore()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	cache := NewCache(rdb, mem, time.Minute)

	mr.Close()
	_, err = cache.GetDiscountInfo(context.Background(), "u1")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
}
