package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"calassist/internal/models"
)

// Operations is a thin transactional wrapper over the calendar backend. It
// applies the conflict check before creation, treats a vanished delete target
// as success, and triggers best-effort attendee notification after a create.
type Operations struct {
	logger   *slog.Logger
	backend  Backend
	notifier Notifier // may be nil
	loc      *time.Location
}

// NewOperations wires event operations against a backend. notifier may be nil
// to disable attendee email.
func NewOperations(logger *slog.Logger, backend Backend, notifier Notifier, loc *time.Location) *Operations {
	if loc == nil {
		loc = time.UTC
	}
	return &Operations{logger: logger, backend: backend, notifier: notifier, loc: loc}
}

// CheckOverlap reports the events overlapping the given range, empty when the
// range is clear. It queries the coarse free/busy aggregate first and fetches
// event details only on a hit, so the common no-conflict path costs a single
// backend call.
func (o *Operations) CheckOverlap(ctx context.Context, r models.TimeRange) ([]models.Event, error) {
	if !r.Valid() {
		return nil, inputErr("overlap check range start must be before end")
	}
	busy, err := o.backend.FreeBusy(ctx, r.Start, r.End)
	if err != nil {
		return nil, backendErr(err, "free/busy query failed")
	}
	if len(busy) == 0 {
		return nil, nil
	}
	o.logger.Info("Overlap detected, fetching event details", "intervals", len(busy))
	events, err := o.backend.ListEvents(ctx, r.Start, r.End)
	if err != nil {
		return nil, backendErr(err, "event detail query failed")
	}
	return events, nil
}

// CreateRequest describes a new event to book.
type CreateRequest struct {
	Summary     string
	Range       models.TimeRange
	Attendees   []string
	Description string
	Location    string
}

// Create books a new event. Conflicting events block the creation and are
// attached to the returned KindConflict error. After a successful insert,
// attendee notification is attempted; its failure is logged and does not
// affect the result.
func (o *Operations) Create(ctx context.Context, req CreateRequest) (models.Event, error) {
	if !req.Range.Valid() {
		return models.Event{}, inputErr("event start must be before end")
	}

	conflicts, err := o.CheckOverlap(ctx, req.Range)
	if err != nil {
		// The original assistant proceeded when the overlap check itself
		// failed; the create below still surfaces backend trouble.
		o.logger.Warn("Overlap check failed, proceeding with create", "error", err)
	}
	if len(conflicts) > 0 {
		o.logger.Warn("Create blocked by conflict", "summary", req.Summary, "conflicts", len(conflicts))
		return models.Event{}, conflictErr(conflicts)
	}

	created, err := o.backend.Insert(ctx, models.Event{
		Summary:     req.Summary,
		Description: req.Description,
		Location:    req.Location,
		Start:       req.Range.Start,
		End:         req.Range.End,
		Attendees:   cleanEmails(req.Attendees),
	})
	if err != nil {
		return models.Event{}, backendErr(err, "event creation failed")
	}
	o.logger.Info("Event created", "summary", created.Summary, "id", created.ID, "link", created.Link)

	o.notifyAttendees(ctx, created)
	return created, nil
}

// List returns the events within the range, ordered by start time.
func (o *Operations) List(ctx context.Context, r models.TimeRange) ([]models.Event, error) {
	if !r.Valid() {
		return nil, inputErr("list range start must be before end")
	}
	events, err := o.backend.ListEvents(ctx, r.Start, r.End)
	if err != nil {
		return nil, backendErr(err, "event listing failed")
	}
	return events, nil
}

// FreeSlots fetches the busy intervals for the window and packs slots of the
// given duration around them.
func (o *Operations) FreeSlots(ctx context.Context, window models.TimeRange, duration time.Duration) ([]models.FreeSlot, error) {
	if duration <= 0 {
		return nil, inputErr("slot duration must be positive, got %v", duration)
	}
	if !window.Valid() {
		return nil, inputErr("search window start must be before end")
	}
	busy, err := o.backend.FreeBusy(ctx, window.Start, window.End)
	if err != nil {
		return nil, backendErr(err, "free/busy query failed")
	}
	return FindSlots(busy, window, duration)
}

// Find searches for an existing event by free text within the range. With
// multiple matches it deterministically picks the first in backend order and
// lists the alternates in the message; callers must surface that ambiguity.
func (o *Operations) Find(ctx context.Context, term string, r models.TimeRange) (models.Event, string, error) {
	if strings.TrimSpace(term) == "" {
		return models.Event{}, "", inputErr("a search term is required to find an event")
	}
	if !r.Valid() {
		return models.Event{}, "", inputErr("search range start must be before end")
	}
	matches, err := o.backend.SearchEvents(ctx, term, r.Start, r.End)
	if err != nil {
		return models.Event{}, "", backendErr(err, "event search failed")
	}
	if len(matches) == 0 {
		return models.Event{}, "", notFoundErr("no event found matching %q", term)
	}
	first := matches[0]
	if len(matches) > 1 {
		o.logger.Warn("Multiple events match search", "term", term, "count", len(matches))
		var b strings.Builder
		fmt.Fprintf(&b, "Found %d matching events. Using the first:\n  %s\nOthers:\n", len(matches), FormatEvent(first, o.loc))
		for _, ev := range matches[1:] {
			fmt.Fprintf(&b, "  %s\n", FormatEvent(ev, o.loc))
		}
		return first, strings.TrimRight(b.String(), "\n"), nil
	}
	return first, fmt.Sprintf("Found event: %s", FormatEvent(first, o.loc)), nil
}

// Delete removes an event by ID. A target that is already gone counts as
// success with a notice, because a double delete is a common race in
// multi-turn conversations.
func (o *Operations) Delete(ctx context.Context, eventID string) (string, error) {
	if eventID == "" {
		return "", inputErr("an event ID is required to delete")
	}
	if err := o.backend.Delete(ctx, eventID); err != nil {
		if errors.Is(err, models.ErrEventNotFound) {
			o.logger.Warn("Delete target already gone", "id", eventID)
			return "The event was already gone; nothing to delete.", nil
		}
		return "", backendErr(err, "event deletion failed")
	}
	o.logger.Info("Event deleted", "id", eventID)
	return "Event deleted.", nil
}

// Update is not supported; callers must instruct the user to delete and
// recreate the event.
func (o *Operations) Update(ctx context.Context, eventID string, changes map[string]string) error {
	o.logger.Warn("Update requested but not supported", "id", eventID, "changes", len(changes))
	return unsupportedErr("updating events is not supported; delete the event and create it again")
}

func (o *Operations) notifyAttendees(ctx context.Context, ev models.Event) {
	if o.notifier == nil || len(ev.Attendees) == 0 {
		return
	}
	subject := fmt.Sprintf("Calendar Event: %s", ev.Summary)
	body := fmt.Sprintf("Event scheduled:\n\nTitle: %s\nTime: %s\nAttendees: %s\n\nLink: %s\n",
		ev.Summary,
		FormatRange(models.TimeRange{Start: ev.Start, End: ev.End}, o.loc),
		strings.Join(ev.Attendees, ", "),
		ev.Link)
	if err := o.notifier.Send(ctx, ev.Attendees, subject, body); err != nil {
		o.logger.Error("Attendee notification failed", "summary", ev.Summary, "error", err)
		return
	}
	o.logger.Info("Attendee notification sent", "recipients", len(ev.Attendees))
}

// cleanEmails keeps plausible addresses, trimmed and deduplicated, in a
// stable order.
func cleanEmails(addrs []string) []string {
	seen := make(map[string]bool, len(addrs))
	var out []string
	for _, a := range addrs {
		a = strings.TrimSpace(a)
		if a == "" || !strings.Contains(a, "@") || seen[a] {
			continue
		}
		seen[a] = true
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}
