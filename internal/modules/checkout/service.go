// README: Checkout service: prices a parking session against a fresh rate snapshot and records the bill.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"garage/internal/config"
	"garage/internal/modules/billing"
	"garage/internal/modules/rates"
)

var (
	ErrNotFound       = errors.New("billing record not found")
	ErrAlreadySettled = errors.New("session already settled")
	ErrBadRequest     = errors.New("bad request")
)

type Rates interface {
	Snapshot(ctx context.Context, zone billing.ZoneType, userID string) (rates.Snapshot, error)
}

type Occupancy interface {
	Ratio(ctx context.Context, zone billing.ZoneType) (float64, error)
}

type RecordStore interface {
	Create(ctx context.Context, r *Record) error
	Get(ctx context.Context, id uuid.UUID) (*Record, error)
	GetBySession(ctx context.Context, sessionID string) (*Record, error)
}

type Service struct {
	rates     Rates
	occupancy Occupancy
	records   RecordStore
	policy    config.Policy
	log       *zap.Logger
	now       func() time.Time
}

func NewService(r Rates, occ Occupancy, records RecordStore, policy config.Policy, log *zap.Logger) *Service {
	return &Service{
		rates:     r,
		occupancy: occ,
		records:   records,
		policy:    policy,
		log:       log,
		now:       time.Now,
	}
}

// Quote prices a session without recording it.
func (s *Service) Quote(ctx context.Context, cmd QuoteCommand) (*Quote, error) {
	q, err := s.quote(ctx, cmd)
	billsComputed.WithLabelValues("quote", string(cmd.ZoneType), status(err)).Inc()
	return q, err
}

// Settle prices a session and stores the bill. A session settles once.
func (s *Service) Settle(ctx context.Context, cmd SettleCommand) (*Record, error) {
	rec, err := s.settle(ctx, cmd)
	billsComputed.WithLabelValues("settle", string(cmd.ZoneType), status(err)).Inc()
	if err != nil {
		return nil, err
	}
	billedFinalPrice.WithLabelValues(string(rec.ZoneType)).Observe(rec.Result.FinalPrice.InexactFloat64())
	s.log.Info("session settled",
		zap.String("session_id", rec.SessionID),
		zap.String("user_id", rec.UserID),
		zap.String("zone", string(rec.ZoneType)),
		zap.Int("hours", rec.Result.Hours),
		zap.Bool("exceeded_max", rec.Result.ExceededMax),
		zap.String("final_price", rec.Result.FinalPrice.StringFixed(2)),
	)
	return rec, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Record, error) {
	return s.records.Get(ctx, id)
}

func (s *Service) BySession(ctx context.Context, sessionID string) (*Record, error) {
	return s.records.GetBySession(ctx, sessionID)
}

func (s *Service) settle(ctx context.Context, cmd SettleCommand) (*Record, error) {
	if cmd.SessionID == "" || cmd.UserID == "" {
		return nil, fmt.Errorf("session and user id required: %w", ErrBadRequest)
	}
	existing, err := s.records.GetBySession(ctx, cmd.SessionID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAlreadySettled
	}

	q, err := s.quote(ctx, cmd.QuoteCommand)
	if err != nil {
		return nil, err
	}

	rec := &Record{
		ID:        uuid.New(),
		SessionID: cmd.SessionID,
		UserID:    cmd.UserID,
		ZoneType:  cmd.ZoneType,
		EntryTime: cmd.EntryTime,
		ExitTime:  cmd.ExitTime,
		Result:    q.Result,
		CreatedAt: s.now(),
	}
	if err := s.records.Create(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Service) quote(ctx context.Context, cmd QuoteCommand) (*Quote, error) {
	if !cmd.ZoneType.Valid() {
		return nil, fmt.Errorf("zone type %q: %w", cmd.ZoneType, ErrBadRequest)
	}

	// Duration is derived ahead of the bill so the overstay penalty can be priced from it.
	duration, err := billing.CalculateDuration(cmd.EntryTime, cmd.ExitTime, s.policy.MaxDurationHours)
	if err != nil {
		return nil, err
	}
	extra := 0
	if duration.ExceededMax {
		extra = duration.Hours - s.policy.MaxDurationHours
	}
	penalties, err := billing.CalculatePenalty(billing.PenaltyInput{
		Overstayed: duration.ExceededMax,
		ExtraHours: extra,
		LostTicket: cmd.LostTicket,
		ZoneMisuse: cmd.ZoneMisuse,
	}, s.policy.Penalties)
	if err != nil {
		return nil, err
	}

	snap, err := s.rates.Snapshot(ctx, cmd.ZoneType, cmd.UserID)
	if err != nil {
		return nil, err
	}
	ratio, err := s.occupancy.Ratio(ctx, cmd.ZoneType)
	if err != nil {
		return nil, fmt.Errorf("occupancy %s: %w", cmd.ZoneType, err)
	}

	day := s.policy.Calendar.Day(cmd.EntryTime)
	band := s.policy.Calendar.Band(cmd.EntryTime)

	result, err := billing.CalculateBill(billing.BillRequest{
		EntryTime:        cmd.EntryTime,
		ExitTime:         cmd.ExitTime,
		ZoneType:         cmd.ZoneType,
		DayType:          day,
		Band:             band,
		OccupancyRatio:   ratio,
		Tariff:           snap.Tariff,
		PricingConfig:    snap.PricingConfig,
		Discount:         snap.Discount,
		PenaltiesTotal:   penalties,
		MaxDurationHours: s.policy.MaxDurationHours,
		MaxPriceCap:      s.policy.MaxPriceCap,
		TaxRate:          s.policy.TaxRate,
	})
	if err != nil {
		return nil, err
	}
	return &Quote{Result: result, DayType: day, Band: band, OccupancyRatio: ratio}, nil
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
