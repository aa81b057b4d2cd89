// README: Day type and time-of-day band classification for a session's entry time.
package billing

import (
	"fmt"
	"strings"
	"time"
)

// Window is a daily clock range [Start, End) in minutes after midnight. End < Start wraps midnight.
type Window struct {
	Start int
	End   int
}

// ParseWindow reads "HH:MM-HH:MM".
func ParseWindow(s string) (Window, error) {
	from, to, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return Window{}, fmt.Errorf("window %q: want HH:MM-HH:MM: %w", s, ErrInvalidConfig)
	}
	start, err := parseClock(from)
	if err != nil {
		return Window{}, fmt.Errorf("window %q: %w", s, err)
	}
	end, err := parseClock(to)
	if err != nil {
		return Window{}, fmt.Errorf("window %q: %w", s, err)
	}
	return Window{Start: start, End: end}, nil
}

func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("clock %q: %w", s, ErrInvalidConfig)
	}
	return t.Hour()*60 + t.Minute(), nil
}

func (w Window) Contains(t time.Time) bool {
	m := t.Hour()*60 + t.Minute()
	if w.Start <= w.End {
		return m >= w.Start && m < w.End
	}
	return m >= w.Start || m < w.End
}

// Calendar classifies instants in the garage's local time.
type Calendar struct {
	Location  *time.Location
	Peak      []Window
	Overnight *Window
	Holidays  map[string]struct{} // "2006-01-02"
}

func NewCalendar(loc *time.Location, peak []Window, overnight *Window, holidays []time.Time) *Calendar {
	if loc == nil {
		loc = time.UTC
	}
	days := make(map[string]struct{}, len(holidays))
	for _, h := range holidays {
		days[h.Format(time.DateOnly)] = struct{}{}
	}
	return &Calendar{Location: loc, Peak: peak, Overnight: overnight, Holidays: days}
}

func (c *Calendar) Day(t time.Time) DayType {
	local := t.In(c.Location)
	if _, ok := c.Holidays[local.Format(time.DateOnly)]; ok {
		return DayHoliday
	}
	switch local.Weekday() {
	case time.Saturday, time.Sunday:
		return DayWeekend
	}
	return DayWeekday
}

// Band gives peak precedence over overnight when windows overlap.
func (c *Calendar) Band(t time.Time) TimeOfDayBand {
	local := t.In(c.Location)
	for _, w := range c.Peak {
		if w.Contains(local) {
			return BandPeak
		}
	}
	if c.Overnight != nil && c.Overnight.Contains(local) {
		return BandOvernight
	}
	return BandOffPeak
}
