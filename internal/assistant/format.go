package assistant

import (
	"fmt"
	"time"

	"calassist/internal/models"
)

const (
	dateTimeLayout = "Mon, Jan 2, 2006 at 3:04 PM"
	timeLayout     = "3:04 PM"
	dayLayout      = "Monday, Jan 2"
)

// FormatEvent renders an event as a single human-readable line in the given
// timezone.
func FormatEvent(ev models.Event, loc *time.Location) string {
	summary := ev.Summary
	if summary == "" {
		summary = "(no title)"
	}
	start := ev.Start.In(loc)
	end := ev.End.In(loc)
	if sameDay(start, end) {
		return fmt.Sprintf("%s (%s until %s)", summary, start.Format(dateTimeLayout), end.Format(timeLayout))
	}
	return fmt.Sprintf("%s (%s until %s)", summary, start.Format(dateTimeLayout), end.Format(dateTimeLayout))
}

// FormatRange renders a half-open range compactly.
func FormatRange(r models.TimeRange, loc *time.Location) string {
	start := r.Start.In(loc)
	end := r.End.In(loc)
	if sameDay(start, end) {
		return fmt.Sprintf("%s - %s", start.Format(dateTimeLayout), end.Format(timeLayout))
	}
	return fmt.Sprintf("%s - %s", start.Format(dateTimeLayout), end.Format(dateTimeLayout))
}

// FormatSlot renders a free slot as a time-of-day pair.
func FormatSlot(s models.FreeSlot, loc *time.Location) string {
	return fmt.Sprintf("Free %s - %s", s.Start.In(loc).Format(timeLayout), s.End.In(loc).Format(timeLayout))
}

// FormatDay renders the day a time falls on.
func FormatDay(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(dayLayout)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
