// README: Billable duration: whole started hours between entry and exit.
package billing

import (
	"fmt"
	"time"
)

// CalculateDuration converts a parking interval into billable hours. Any started hour counts in full.
// The hour count is never clamped to maxDurationHours; ExceededMax only flags it.
func CalculateDuration(entry, exit time.Time, maxDurationHours int) (DurationInfo, error) {
	if entry.IsZero() || exit.IsZero() {
		return DurationInfo{}, fmt.Errorf("duration: entry and exit time required: %w", ErrMissingInput)
	}
	if exit.Before(entry) {
		return DurationInfo{}, fmt.Errorf("duration: exit %s before entry %s: %w",
			exit.Format(time.RFC3339), entry.Format(time.RFC3339), ErrInvalidRange)
	}
	if maxDurationHours < 0 {
		return DurationInfo{}, fmt.Errorf("duration: max duration %d: %w", maxDurationHours, ErrInvalidPolicy)
	}

	minutes := int64(exit.Sub(entry) / time.Minute)
	hours := int((minutes + 59) / 60)

	return DurationInfo{
		Hours:       hours,
		ExceededMax: hours > maxDurationHours,
	}, nil
}
