// README: Occupancy gauge backed by Redis counters (capacity and occupied spots per zone).
package occupancy

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"garage/internal/modules/billing"
)

const (
	capacityKeyFmt = "occupancy:%s:capacity"
	occupiedKeyFmt = "occupancy:%s:occupied"
)

var ErrInvalidCapacity = errors.New("capacity must not be negative")

// leaveScript decrements the occupied counter without going below zero.
var leaveScript = redis.NewScript(`
local v = tonumber(redis.call('GET', KEYS[1]) or '0')
if v > 0 then
  return redis.call('DECR', KEYS[1])
end
return 0
`)

type Store struct {
	redis *redis.Client
}

func NewStore(redis *redis.Client) *Store {
	return &Store{redis: redis}
}

func (s *Store) SetCapacity(ctx context.Context, zone billing.ZoneType, capacity int64) error {
	if capacity < 0 {
		return ErrInvalidCapacity
	}
	return s.redis.Set(ctx, capacityKey(zone), capacity, 0).Err()
}

func (s *Store) Enter(ctx context.Context, zone billing.ZoneType) (int64, error) {
	return s.redis.Incr(ctx, occupiedKey(zone)).Result()
}

func (s *Store) Leave(ctx context.Context, zone billing.ZoneType) (int64, error) {
	return leaveScript.Run(ctx, s.redis, []string{occupiedKey(zone)}).Int64()
}

// Ratio is occupied/capacity clamped to [0,1]. A zone without capacity counts as full.
func (s *Store) Ratio(ctx context.Context, zone billing.ZoneType) (float64, error) {
	vals, err := s.redis.MGet(ctx, capacityKey(zone), occupiedKey(zone)).Result()
	if err != nil {
		return 0, err
	}
	capacity, err := counter(vals[0])
	if err != nil {
		return 0, fmt.Errorf("zone %s capacity: %w", zone, err)
	}
	occupied, err := counter(vals[1])
	if err != nil {
		return 0, fmt.Errorf("zone %s occupied: %w", zone, err)
	}
	if capacity <= 0 {
		return 1, nil
	}
	ratio := float64(occupied) / float64(capacity)
	switch {
	case ratio < 0:
		return 0, nil
	case ratio > 1:
		return 1, nil
	}
	return ratio, nil
}

func counter(v any) (int64, error) {
	if v == nil {
		return 0, nil
	}
	s, ok := v.(string)
	if !ok {
		return 0, fmt.Errorf("unexpected value %T", v)
	}
	return strconv.ParseInt(s, 10, 64)
}

func capacityKey(zone billing.ZoneType) string {
	return fmt.Sprintf(capacityKeyFmt, string(zone))
}

func occupiedKey(zone billing.ZoneType) string {
	return fmt.Sprintf(occupiedKeyFmt, string(zone))
}
