package assistant

import (
	"strings"
	"time"

	"calassist/internal/models"
)

// Resolver turns natural-language time expressions into concrete half-open
// day-aligned ranges in the calendar owner's timezone.
type Resolver struct {
	loc    *time.Location
	now    func() time.Time
	parser TimeParser
}

// NewResolver returns a Resolver for the given timezone. The parser may be
// nil, in which case unrecognized expressions fall through to the default
// range. now is the clock source (time.Now in production).
func NewResolver(loc *time.Location, now func() time.Time, parser TimeParser) (*Resolver, error) {
	if loc == nil {
		return nil, internalErr(nil, "no timezone resolved for range resolution")
	}
	if now == nil {
		now = time.Now
	}
	return &Resolver{loc: loc, now: now, parser: parser}, nil
}

// Location returns the resolution timezone.
func (r *Resolver) Location() *time.Location { return r.loc }

// Now returns the current instant in the resolution timezone.
func (r *Resolver) Now() time.Time { return r.now().In(r.loc) }

// Resolve maps a (time expression, optional parsed instant) pair to a range.
// Priority: parsed instant, then the literal keywords "today"/"tomorrow"/
// "week", then the natural-language parser, then [today, +defaultRangeDays).
// The result is always timezone-aware and day-aligned.
func (r *Resolver) Resolve(expr string, parsed *time.Time, defaultRangeDays int) (models.TimeRange, error) {
	if defaultRangeDays < 1 {
		defaultRangeDays = 1
	}
	now := r.Now()

	if parsed != nil {
		day := r.startOfDay(parsed.In(r.loc))
		return models.TimeRange{Start: day, End: day.AddDate(0, 0, 1)}, nil
	}

	if expr != "" {
		lower := strings.ToLower(expr)
		today := r.startOfDay(now)
		switch {
		case strings.Contains(lower, "today"):
			return models.TimeRange{Start: today, End: today.AddDate(0, 0, 1)}, nil
		case strings.Contains(lower, "tomorrow"):
			start := today.AddDate(0, 0, 1)
			return models.TimeRange{Start: start, End: start.AddDate(0, 0, 1)}, nil
		case strings.Contains(lower, "week"):
			// Most recent Monday on or before now.
			offset := (int(now.Weekday()) + 6) % 7
			monday := today.AddDate(0, 0, -offset)
			return models.TimeRange{Start: monday, End: monday.AddDate(0, 0, 7)}, nil
		}
		if r.parser != nil {
			if t, ok := r.parser.Parse(expr, now, r.loc); ok {
				day := r.startOfDay(t.In(r.loc))
				return models.TimeRange{Start: day, End: day.AddDate(0, 0, 1)}, nil
			}
		}
	}

	start := r.startOfDay(now)
	return models.TimeRange{Start: start, End: start.AddDate(0, 0, defaultRangeDays)}, nil
}

// ParseInstant resolves a free-text phrase to a concrete instant in the
// resolution timezone. Returns false when no parser is wired or the phrase is
// not understood.
func (r *Resolver) ParseInstant(phrase string) (time.Time, bool) {
	phrase = strings.TrimSpace(phrase)
	if phrase == "" || r.parser == nil {
		return time.Time{}, false
	}
	t, ok := r.parser.Parse(phrase, r.Now(), r.loc)
	if !ok {
		return time.Time{}, false
	}
	return t.In(r.loc), true
}

func (r *Resolver) startOfDay(t time.Time) time.Time {
	y, m, d := t.In(r.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, r.loc)
}
