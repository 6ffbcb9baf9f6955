package assistant

import (
	"testing"
	"time"

	"calassist/internal/models"
)

func mustUTC(hour, min int) time.Time {
	return time.Date(2026, 3, 12, hour, min, 0, 0, time.UTC)
}

func TestFindSlotsPacksAroundBusy(t *testing.T) {
	window := models.TimeRange{Start: mustUTC(9, 0), End: mustUTC(17, 0)}
	// Unsorted on purpose, with two overlapping intervals.
	busy := []models.BusyInterval{
		{Start: mustUTC(12, 30), End: mustUTC(13, 30)},
		{Start: mustUTC(10, 0), End: mustUTC(10, 30)},
		{Start: mustUTC(12, 0), End: mustUTC(13, 0)},
	}

	slots, err := FindSlots(busy, window, 30*time.Minute)
	if err != nil {
		t.Fatalf("FindSlots: %v", err)
	}

	// 9:00-10:00 yields 2, 10:30-12:00 yields 3, 13:30-17:00 yields 7.
	if len(slots) != 12 {
		t.Fatalf("len(slots) = %d, want 12", len(slots))
	}
	if !slots[0].Start.Equal(mustUTC(9, 0)) {
		t.Errorf("first slot start = %v, want %v", slots[0].Start, mustUTC(9, 0))
	}
	if !slots[len(slots)-1].Start.Equal(mustUTC(16, 30)) {
		t.Errorf("last slot start = %v, want %v", slots[len(slots)-1].Start, mustUTC(16, 30))
	}

	for i, s := range slots {
		if s.End.Sub(s.Start) != 30*time.Minute {
			t.Errorf("slot %d duration = %v, want 30m", i, s.End.Sub(s.Start))
		}
		if s.Start.Before(window.Start) || s.End.After(window.End) {
			t.Errorf("slot %d %v-%v escapes window", i, s.Start, s.End)
		}
		if i > 0 && slots[i-1].End.After(s.Start) {
			t.Errorf("slot %d overlaps previous", i)
		}
		for _, b := range busy {
			if s.Start.Before(b.End) && s.End.After(b.Start) {
				t.Errorf("slot %d %v-%v overlaps busy %v-%v", i, s.Start, s.End, b.Start, b.End)
			}
		}
	}
}

func TestFindSlotsNoPartialSlotBeforeBusy(t *testing.T) {
	window := models.TimeRange{Start: mustUTC(9, 0), End: mustUTC(10, 15)}
	busy := []models.BusyInterval{{Start: mustUTC(9, 45), End: mustUTC(10, 0)}}

	slots, err := FindSlots(busy, window, 30*time.Minute)
	if err != nil {
		t.Fatalf("FindSlots: %v", err)
	}
	// 9:30-10:00 crosses the busy start, and 10:00-10:30 escapes the window.
	if len(slots) != 1 {
		t.Fatalf("len(slots) = %d, want 1", len(slots))
	}
	if !slots[0].Start.Equal(mustUTC(9, 0)) || !slots[0].End.Equal(mustUTC(9, 30)) {
		t.Errorf("slot = %v-%v, want 9:00-9:30", slots[0].Start, slots[0].End)
	}
}

func TestFindSlotsEmptyBusyFillsWindow(t *testing.T) {
	window := models.TimeRange{Start: mustUTC(9, 0), End: mustUTC(11, 0)}
	slots, err := FindSlots(nil, window, 30*time.Minute)
	if err != nil {
		t.Fatalf("FindSlots: %v", err)
	}
	if len(slots) != 4 {
		t.Errorf("len(slots) = %d, want 4", len(slots))
	}
}

func TestFindSlotsBusyCoversWindow(t *testing.T) {
	window := models.TimeRange{Start: mustUTC(9, 0), End: mustUTC(11, 0)}
	busy := []models.BusyInterval{{Start: mustUTC(8, 0), End: mustUTC(12, 0)}}

	slots, err := FindSlots(busy, window, 30*time.Minute)
	if err != nil {
		t.Fatalf("FindSlots: %v", err)
	}
	if len(slots) != 0 {
		t.Errorf("len(slots) = %d, want 0 (no fit is not an error)", len(slots))
	}
}

func TestFindSlotsRejectsBadDuration(t *testing.T) {
	window := models.TimeRange{Start: mustUTC(9, 0), End: mustUTC(11, 0)}
	if _, err := FindSlots(nil, window, 0); KindOf(err) != KindInput {
		t.Errorf("zero duration: kind = %v, want KindInput", KindOf(err))
	}
	if _, err := FindSlots(nil, window, -time.Minute); KindOf(err) != KindInput {
		t.Errorf("negative duration: kind = %v, want KindInput", KindOf(err))
	}
}

func TestFindSlotsRejectsInvertedWindow(t *testing.T) {
	window := models.TimeRange{Start: mustUTC(11, 0), End: mustUTC(9, 0)}
	if _, err := FindSlots(nil, window, 30*time.Minute); KindOf(err) != KindInput {
		t.Errorf("inverted window: kind = %v, want KindInput", KindOf(err))
	}
	same := models.TimeRange{Start: mustUTC(9, 0), End: mustUTC(9, 0)}
	if _, err := FindSlots(nil, same, 30*time.Minute); KindOf(err) != KindInput {
		t.Errorf("empty window: kind = %v, want KindInput", KindOf(err))
	}
}
