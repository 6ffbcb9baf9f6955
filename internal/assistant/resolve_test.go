package assistant

import (
	"testing"
	"time"
)

// fixedParser resolves exactly one phrase to one instant.
type fixedParser struct {
	phrase string
	result time.Time
}

func (p *fixedParser) Parse(phrase string, ref time.Time, loc *time.Location) (time.Time, bool) {
	if phrase == p.phrase {
		return p.result, true
	}
	return time.Time{}, false
}

func newYorkResolver(t *testing.T, parser TimeParser) (*Resolver, *time.Location) {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	// Thursday afternoon.
	now := time.Date(2026, 3, 12, 15, 4, 5, 0, loc)
	r, err := NewResolver(loc, func() time.Time { return now }, parser)
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	return r, loc
}

func TestResolveToday(t *testing.T) {
	r, loc := newYorkResolver(t, nil)

	got, err := r.Resolve("today", nil, 1)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	wantStart := time.Date(2026, 3, 12, 0, 0, 0, 0, loc)
	if !got.Start.Equal(wantStart) {
		t.Errorf("start = %v, want %v", got.Start, wantStart)
	}
	if !got.End.Equal(wantStart.AddDate(0, 0, 1)) {
		t.Errorf("end = %v, want %v", got.End, wantStart.AddDate(0, 0, 1))
	}
	if got.Start.Location() != loc {
		t.Errorf("start location = %v, want %v", got.Start.Location(), loc)
	}
}

func TestResolveTomorrow(t *testing.T) {
	r, loc := newYorkResolver(t, nil)

	got, err := r.Resolve("see tomorrow please", nil, 1)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	wantStart := time.Date(2026, 3, 13, 0, 0, 0, 0, loc)
	if !got.Start.Equal(wantStart) {
		t.Errorf("start = %v, want %v", got.Start, wantStart)
	}
	if !got.End.Equal(wantStart.AddDate(0, 0, 1)) {
		t.Errorf("end = %v, want %v", got.End, wantStart.AddDate(0, 0, 1))
	}
}

func TestResolveWeekAlignsToMonday(t *testing.T) {
	r, loc := newYorkResolver(t, nil)

	got, err := r.Resolve("this week", nil, 1)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	monday := time.Date(2026, 3, 9, 0, 0, 0, 0, loc)
	if !got.Start.Equal(monday) {
		t.Errorf("start = %v, want Monday %v", got.Start, monday)
	}
	if !got.End.Equal(monday.AddDate(0, 0, 7)) {
		t.Errorf("end = %v, want %v", got.End, monday.AddDate(0, 0, 7))
	}
}

func TestResolveParsedInstantWins(t *testing.T) {
	r, loc := newYorkResolver(t, nil)

	// 10:00 UTC is 06:00 in New York on this date.
	parsed := time.Date(2026, 3, 20, 10, 0, 0, 0, time.UTC)
	got, err := r.Resolve("today", &parsed, 1)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	wantStart := time.Date(2026, 3, 20, 0, 0, 0, 0, loc)
	if !got.Start.Equal(wantStart) {
		t.Errorf("start = %v, want %v", got.Start, wantStart)
	}
}

func TestResolveDelegatesToParser(t *testing.T) {
	loc, _ := time.LoadLocation("America/New_York")
	parser := &fixedParser{
		phrase: "the ides of march",
		result: time.Date(2026, 3, 15, 12, 0, 0, 0, loc),
	}
	r, _ := newYorkResolver(t, parser)

	got, err := r.Resolve("the ides of march", nil, 1)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	wantStart := time.Date(2026, 3, 15, 0, 0, 0, 0, loc)
	if !got.Start.Equal(wantStart) {
		t.Errorf("start = %v, want %v", got.Start, wantStart)
	}
}

func TestResolveDefaultRange(t *testing.T) {
	r, loc := newYorkResolver(t, nil)

	got, err := r.Resolve("", nil, 7)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	today := time.Date(2026, 3, 12, 0, 0, 0, 0, loc)
	if !got.Start.Equal(today) {
		t.Errorf("start = %v, want %v", got.Start, today)
	}
	if !got.End.Equal(today.AddDate(0, 0, 7)) {
		t.Errorf("end = %v, want %v", got.End, today.AddDate(0, 0, 7))
	}
}

func TestResolveUnparseablePhraseFallsThrough(t *testing.T) {
	r, loc := newYorkResolver(t, &fixedParser{})

	got, err := r.Resolve("blorp", nil, 2)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	today := time.Date(2026, 3, 12, 0, 0, 0, 0, loc)
	if !got.Start.Equal(today) || !got.End.Equal(today.AddDate(0, 0, 2)) {
		t.Errorf("range = %v-%v, want default 2-day range from today", got.Start, got.End)
	}
}

func TestNewResolverRequiresTimezone(t *testing.T) {
	if _, err := NewResolver(nil, nil, nil); KindOf(err) != KindInternal {
		t.Errorf("kind = %v, want KindInternal", KindOf(err))
	}
}
