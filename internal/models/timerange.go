package models

import "time"

// TimeRange is a half-open [Start, End) interval. Both bounds are
// timezone-aware and carry the calendar owner's timezone, not necessarily the
// caller's locale.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// Valid reports whether the range is well formed (Start strictly before End).
func (r TimeRange) Valid() bool {
	return r.Start.Before(r.End)
}

// BusyInterval is an occupied interval reported by a backend's free/busy
// query. Intervals may arrive unsorted and must be sorted before use.
type BusyInterval struct {
	Start time.Time
	End   time.Time
}

// FreeSlot is a computed bookable interval. End-Start always equals the
// duration that was requested from the slot finder.
type FreeSlot struct {
	Start time.Time
	End   time.Time
}
