// Package stats computes the shift-window aggregates behind the manager
// dashboard: night-shift totals, today totals, per-agent breakdowns and
// status amount rollups.
package stats

import (
	"time"

	"github.com/twh-ops/leadportal/internal/portal/domain/lead"
)

// Window is a closed local-time interval. Both boundaries are inclusive.
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window, boundaries included.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// ShiftWindow derives the night-shift window for the given instant. The
// shift starts at the configured hour and runs for exactly the configured
// duration, so it spans midnight. Rule:
//
//   - at or after the start hour, the window opens today;
//   - any earlier time of day (early morning inside the shift, or daytime
//     after it closed) reports the window that opened yesterday.
//
// During daytime hours this keeps the most recently closed night on the
// dashboards until the next shift opens.
func ShiftWindow(cfg lead.ShiftConfig, now time.Time) Window {
	local := now
	start := time.Date(local.Year(), local.Month(), local.Day(), cfg.StartHour, 0, 0, 0, local.Location())
	if local.Hour() < cfg.StartHour {
		start = start.AddDate(0, 0, -1)
	}
	// The end boundary is always start plus the fixed duration; deriving
	// it from a second hour-of-day value would drift when start and end
	// hour pairs change.
	end := start.Add(time.Duration(cfg.DurationHours) * time.Hour)
	return Window{Start: start, End: end}
}

// TodayWindow is local midnight through the given instant.
func TodayWindow(now time.Time) Window {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return Window{Start: midnight, End: now}
}
