// README: Billing record and checkout commands.
package checkout

import (
	"time"

	"github.com/google/uuid"

	"garage/internal/modules/billing"
)

// Record is a settled bill for one parking session.
type Record struct {
	ID        uuid.UUID
	SessionID string
	UserID    string
	ZoneType  billing.ZoneType
	EntryTime time.Time
	ExitTime  time.Time
	Result    billing.BillingResult
	CreatedAt time.Time
}

type QuoteCommand struct {
	UserID     string
	ZoneType   billing.ZoneType
	EntryTime  time.Time
	ExitTime   time.Time
	LostTicket bool
	ZoneMisuse bool
}

type SettleCommand struct {
	SessionID string
	QuoteCommand
}

// Quote is a computed bill plus the context it was priced in.
type Quote struct {
	Result         billing.BillingResult
	DayType        billing.DayType
	Band           billing.TimeOfDayBand
	OccupancyRatio float64
}
