// Package caldav implements the assistant's calendar backend against a
// CalDAV server (iCloud by default). It is the second provider behind the
// same Backend seam as the Google client; plain CalDAV has no free/busy or
// settings endpoints, so busy intervals are derived from fetched events and
// the owner's timezone comes from configuration.
package caldav

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav/caldav"
	"github.com/google/uuid"

	"calassist/internal/models"
)

const defaultEndpoint = "https://caldav.icloud.com/"

// customTransport handles adding Basic Auth and custom headers to requests.
type customTransport struct {
	Username  string
	Password  string
	Transport http.RoundTripper
}

// RoundTrip adds required headers and authentication to each request.
func (t *customTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.SetBasicAuth(t.Username, t.Password)
	req.Header.Set("User-Agent", "calassist/1.0")
	return t.Transport.RoundTrip(req)
}

// Client is a calendar backend speaking CalDAV.
type Client struct {
	caldavClient *caldav.Client
	logger       *slog.Logger
	calendarPath string
	timezone     string
	loc          *time.Location
}

// NewClient connects to the CalDAV endpoint (iCloud when endpoint is empty),
// locates the named calendar, and validates the configured timezone.
func NewClient(ctx context.Context, logger *slog.Logger, endpoint, username, password, calendarName, timezone string) (*Client, error) {
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	if timezone == "" {
		timezone = "UTC"
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}

	httpClient := &http.Client{Transport: &customTransport{
		Username:  username,
		Password:  password,
		Transport: http.DefaultTransport,
	}}

	caldavClient, err := caldav.NewClient(httpClient, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create caldav client: %w", err)
	}

	c := &Client{
		caldavClient: caldavClient,
		logger:       logger,
		timezone:     timezone,
		loc:          loc,
	}

	logger.Info("Finding CalDAV calendar", "calendarName", calendarName)
	calendarPath, err := c.findCalendar(ctx, calendarName)
	if err != nil {
		return nil, fmt.Errorf("could not find calendar %q: %w", calendarName, err)
	}
	c.calendarPath = calendarPath
	logger.Info("Found CalDAV calendar", "path", calendarPath)

	return c, nil
}

// ListEvents fetches the events overlapping [min, max), ordered by start.
func (c *Client) ListEvents(ctx context.Context, min, max time.Time) ([]models.Event, error) {
	objects, err := c.queryRange(ctx, min, max)
	if err != nil {
		return nil, err
	}

	var events []models.Event
	for _, obj := range objects {
		for _, ev := range c.decodeObject(obj) {
			if ev.Start.Before(max) && ev.End.After(min) {
				events = append(events, ev)
			}
		}
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Start.Before(events[j].Start) })
	return events, nil
}

// SearchEvents filters the range's events by a case-insensitive substring
// match on summary and description.
func (c *Client) SearchEvents(ctx context.Context, query string, min, max time.Time) ([]models.Event, error) {
	events, err := c.ListEvents(ctx, min, max)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(query)
	var matches []models.Event
	for _, ev := range events {
		if strings.Contains(strings.ToLower(ev.Summary), needle) ||
			strings.Contains(strings.ToLower(ev.Description), needle) {
			matches = append(matches, ev)
		}
	}
	return matches, nil
}

// FreeBusy derives busy intervals from the events in the range.
func (c *Client) FreeBusy(ctx context.Context, min, max time.Time) ([]models.BusyInterval, error) {
	events, err := c.ListEvents(ctx, min, max)
	if err != nil {
		return nil, err
	}
	var busy []models.BusyInterval
	for _, ev := range events {
		busy = append(busy, models.BusyInterval{Start: ev.Start, End: ev.End})
	}
	return busy, nil
}

// Insert creates a new VEVENT object on the server. CalDAV does not notify
// attendees server-side; the assistant's notifier covers that.
func (c *Client) Insert(ctx context.Context, event models.Event) (models.Event, error) {
	uid := uuid.New().String()
	c.logger.Debug("Creating CalDAV event", "summary", event.Summary, "uid", uid)

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//calassist//EN")
	cal.Children = append(cal.Children, c.toICal(event, uid))

	objectPath := path.Join(c.calendarPath, fmt.Sprintf("%s.ics", uid))
	if _, err := c.caldavClient.PutCalendarObject(ctx, objectPath, cal); err != nil {
		return models.Event{}, fmt.Errorf("failed to create event on CalDAV server: %w", err)
	}

	event.ID = uid
	c.logger.Info("Created CalDAV event", "summary", event.Summary, "uid", uid)
	return event, nil
}

// Delete removes the event with the given UID. A UID with no object on the
// server maps to models.ErrEventNotFound.
func (c *Client) Delete(ctx context.Context, eventID string) error {
	objectPath, err := c.findObjectByUID(ctx, eventID)
	if err != nil {
		return err
	}
	if objectPath == "" {
		return fmt.Errorf("event %s: %w", eventID, models.ErrEventNotFound)
	}
	if err := c.caldavClient.RemoveAll(ctx, objectPath); err != nil {
		return fmt.Errorf("failed to delete event on CalDAV server: %w", err)
	}
	c.logger.Info("Deleted CalDAV event", "uid", eventID)
	return nil
}

// Timezone returns the configured owner timezone; CalDAV servers expose no
// timezone setting endpoint.
func (c *Client) Timezone(ctx context.Context) (string, error) {
	return c.timezone, nil
}

func (c *Client) queryRange(ctx context.Context, min, max time.Time) ([]caldav.CalendarObject, error) {
	query := &caldav.CalendarQuery{
		CompRequest: caldav.CalendarCompRequest{
			Name:  "VCALENDAR",
			Comps: []caldav.CalendarCompRequest{{Name: "VEVENT", AllProps: true}},
		},
		CompFilter: caldav.CompFilter{
			Name: "VCALENDAR",
			Comps: []caldav.CompFilter{{
				Name:  "VEVENT",
				Start: min,
				End:   max,
			}},
		},
	}
	objects, err := c.caldavClient.QueryCalendar(ctx, c.calendarPath, query)
	if err != nil {
		return nil, fmt.Errorf("calendar query failed: %w", err)
	}
	return objects, nil
}

// findObjectByUID locates the object holding the VEVENT with the given UID.
// Returns an empty path when no object matches.
func (c *Client) findObjectByUID(ctx context.Context, uid string) (string, error) {
	query := &caldav.CalendarQuery{
		CompRequest: caldav.CalendarCompRequest{
			Name:  "VCALENDAR",
			Comps: []caldav.CalendarCompRequest{{Name: "VEVENT", AllProps: true}},
		},
		CompFilter: caldav.CompFilter{
			Name:  "VCALENDAR",
			Comps: []caldav.CompFilter{{Name: "VEVENT"}},
		},
	}
	objects, err := c.caldavClient.QueryCalendar(ctx, c.calendarPath, query)
	if err != nil {
		return "", fmt.Errorf("calendar query failed: %w", err)
	}
	for _, obj := range objects {
		if obj.Data == nil {
			continue
		}
		for _, ev := range obj.Data.Events() {
			id, err := ev.Props.Text(ical.PropUID)
			if err == nil && id == uid {
				return obj.Path, nil
			}
		}
	}
	return "", nil
}

// decodeObject converts the VEVENTs of one calendar object into internal
// events. Entries without concrete start/end times are skipped.
func (c *Client) decodeObject(obj caldav.CalendarObject) []models.Event {
	if obj.Data == nil {
		return nil
	}
	var events []models.Event
	for _, ev := range obj.Data.Events() {
		start, err := ev.DateTimeStart(c.loc)
		if err != nil {
			continue
		}
		end, err := ev.DateTimeEnd(c.loc)
		if err != nil || !end.After(start) {
			continue
		}
		uid, _ := ev.Props.Text(ical.PropUID)
		summary, _ := ev.Props.Text(ical.PropSummary)
		description, _ := ev.Props.Text(ical.PropDescription)
		location, _ := ev.Props.Text(ical.PropLocation)

		var attendees []string
		for _, p := range ev.Props.Values(ical.PropAttendee) {
			attendees = append(attendees, strings.TrimPrefix(p.Value, "mailto:"))
		}

		events = append(events, models.Event{
			ID:          uid,
			Summary:     summary,
			Description: description,
			Location:    location,
			Start:       start.In(c.loc),
			End:         end.In(c.loc),
			Attendees:   attendees,
		})
	}
	return events
}

// toICal converts an internal Event to an ical.Component (VEVENT).
func (c *Client) toICal(event models.Event, uid string) *ical.Component {
	ve := ical.NewComponent(ical.CompEvent)
	ve.Props.SetText(ical.PropUID, uid)
	ve.Props.SetText(ical.PropSummary, event.Summary)
	ve.Props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC())
	ve.Props.SetDateTime(ical.PropDateTimeStart, event.Start)
	ve.Props.SetDateTime(ical.PropDateTimeEnd, event.End)

	if event.Description != "" {
		ve.Props.SetText(ical.PropDescription, event.Description)
	}
	if event.Location != "" {
		ve.Props.SetText(ical.PropLocation, event.Location)
	}
	for _, attendee := range event.Attendees {
		p := ical.NewProp(ical.PropAttendee)
		p.SetText(fmt.Sprintf("mailto:%s", attendee))
		ve.Props.Add(p)
	}
	return ve
}

// findCalendar discovers the user's calendars and returns the path of the one
// with the matching name.
func (c *Client) findCalendar(ctx context.Context, name string) (string, error) {
	principalPath, err := c.caldavClient.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to find principal path: %w", err)
	}

	homeSetPath, err := c.caldavClient.FindCalendarHomeSet(ctx, principalPath)
	if err != nil {
		return "", fmt.Errorf("failed to find calendar home set: %w", err)
	}

	calendars, err := c.caldavClient.FindCalendars(ctx, homeSetPath)
	if err != nil {
		return "", fmt.Errorf("failed to find calendars: %w", err)
	}

	for _, cal := range calendars {
		if cal.Name == name {
			return cal.Path, nil
		}
	}
	return "", fmt.Errorf("no calendar found with name %q", name)
}
