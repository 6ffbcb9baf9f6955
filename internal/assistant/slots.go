package assistant

import (
	"sort"
	"time"

	"calassist/internal/models"
)

// FindSlots computes bookable slots of exactly duration within window, packing
// greedily left to right around the busy intervals. Busy intervals may arrive
// unsorted and may overlap; adjacent or overlapping intervals are merged by
// the cursor advance. An empty result is a valid answer; only bad arguments
// produce an error.
func FindSlots(busy []models.BusyInterval, window models.TimeRange, duration time.Duration) ([]models.FreeSlot, error) {
	if duration <= 0 {
		return nil, inputErr("slot duration must be positive, got %v", duration)
	}
	if !window.Valid() {
		return nil, inputErr("search window start must be before end")
	}

	intervals := make([]models.BusyInterval, 0, len(busy))
	for _, b := range busy {
		if b.End.After(b.Start) {
			intervals = append(intervals, b)
		}
	}
	sort.Slice(intervals, func(i, j int) bool {
		return intervals[i].Start.Before(intervals[j].Start)
	})

	var slots []models.FreeSlot
	cursor := window.Start
	emit := func(limit time.Time) {
		if limit.After(window.End) {
			limit = window.End
		}
		for !cursor.Add(duration).After(limit) {
			slots = append(slots, models.FreeSlot{Start: cursor, End: cursor.Add(duration)})
			cursor = cursor.Add(duration)
		}
	}

	for _, b := range intervals {
		emit(b.Start)
		if b.End.After(cursor) {
			cursor = b.End
		}
	}
	emit(window.End)

	return slots, nil
}
