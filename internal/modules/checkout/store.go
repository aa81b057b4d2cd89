// README: Billing record store backed by PostgreSQL.
package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"garage/internal/modules/billing"
)

const uniqueViolation = "23505"

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) Create(ctx context.Context, r *Record) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO billing_records (
			id, session_id, user_id, zone_type, entry_time, exit_time,
			hours, exceeded_max, base_price, discounts_total, penalties_total,
			net_price, tax_amount, final_price, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9::numeric, $10::numeric, $11::numeric,
			$12::numeric, $13::numeric, $14::numeric, $15
		)`,
		r.ID,
		r.SessionID,
		r.UserID,
		string(r.ZoneType),
		r.EntryTime,
		r.ExitTime,
		r.Result.Hours,
		r.Result.ExceededMax,
		r.Result.BasePrice.String(),
		r.Result.DiscountsTotal.String(),
		r.Result.PenaltiesTotal.String(),
		r.Result.NetPrice.String(),
		r.Result.TaxAmount.String(),
		r.Result.FinalPrice.String(),
		r.CreatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrAlreadySettled
	}
	return err
}

const selectRecord = `
	SELECT id, session_id, user_id, zone_type, entry_time, exit_time,
	       hours, exceeded_max, base_price::text, discounts_total::text, penalties_total::text,
	       net_price::text, tax_amount::text, final_price::text, created_at
	FROM billing_records`

func (s *Store) Get(ctx context.Context, id uuid.UUID) (*Record, error) {
	return scanRecord(s.db.QueryRow(ctx, selectRecord+` WHERE id = $1`, id))
}

func (s *Store) GetBySession(ctx context.Context, sessionID string) (*Record, error) {
	return scanRecord(s.db.QueryRow(ctx, selectRecord+` WHERE session_id = $1`, sessionID))
}

func scanRecord(row pgx.Row) (*Record, error) {
	var r Record
	var zone string
	var amounts [6]string
	err := row.Scan(
		&r.ID, &r.SessionID, &r.UserID, &zone, &r.EntryTime, &r.ExitTime,
		&r.Result.Hours, &r.Result.ExceededMax,
		&amounts[0], &amounts[1], &amounts[2], &amounts[3], &amounts[4], &amounts[5],
		&r.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	r.ZoneType = billing.ZoneType(zone)

	dst := []*decimal.Decimal{
		&r.Result.BasePrice, &r.Result.DiscountsTotal, &r.Result.PenaltiesTotal,
		&r.Result.NetPrice, &r.Result.TaxAmount, &r.Result.FinalPrice,
	}
	for i, raw := range amounts {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("record %s amount %d: %w", r.ID, i, err)
		}
		*dst[i] = d
	}
	return &r, nil
}
