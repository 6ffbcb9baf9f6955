package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"calassist/internal/models"
)

const (
	credentialsFile = "credentials.json"
)

// CalendarClient provides a client for interacting with the Google Calendar API.
// It implements the assistant's Backend contract against a single calendar
// (usually "primary").
type CalendarClient struct {
	service    *calendar.Service
	logger     *slog.Logger
	calendarID string
	timezone   string // cached after the first Timezone call
}

// NewClient creates a new Google Calendar client.
// It handles loading credentials and setting up an authenticated HTTP client.
// It supports multiple accounts by looking for token files like token-user1.json,
// token-user2.json, etc. The accountName is used to find the correct token file.
func NewClient(ctx context.Context, logger *slog.Logger, clientID, clientSecret, accountName, calendarID string) (*CalendarClient, error) {
	config, err := getOAuthConfig(clientID, clientSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to get OAuth config: %w", err)
	}

	tokenFile := fmt.Sprintf("token-%s.json", accountName)
	token, err := tokenFromFile(tokenFile)
	if err != nil {
		return nil, fmt.Errorf("could not load token for account %s: %w. Please run the 'auth' command first", accountName, err)
	}

	client := config.Client(ctx, token)
	service, err := calendar.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}

	if calendarID == "" {
		calendarID = "primary"
	}
	return &CalendarClient{service: service, logger: logger, calendarID: calendarID}, nil
}

// ListEvents fetches events between min and max, ordered by start time with
// recurring events expanded to single occurrences.
func (c *CalendarClient) ListEvents(ctx context.Context, min, max time.Time) ([]models.Event, error) {
	c.logger.Debug("Fetching events", "calendarID", c.calendarID, "min", min, "max", max)
	res, err := c.service.Events.List(c.calendarID).
		ShowDeleted(false).
		SingleEvents(true).
		TimeMin(min.Format(time.RFC3339)).
		TimeMax(max.Format(time.RFC3339)).
		OrderBy("startTime").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve events: %w", err)
	}
	return c.toInternalEvents(res.Items), nil
}

// SearchEvents runs the backend's free-text search scoped to the range.
// Result order is whatever the backend returns.
func (c *CalendarClient) SearchEvents(ctx context.Context, query string, min, max time.Time) ([]models.Event, error) {
	c.logger.Debug("Searching events", "calendarID", c.calendarID, "query", query)
	res, err := c.service.Events.List(c.calendarID).
		ShowDeleted(false).
		SingleEvents(true).
		TimeMin(min.Format(time.RFC3339)).
		TimeMax(max.Format(time.RFC3339)).
		Q(query).
		MaxResults(10).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to search events: %w", err)
	}
	return c.toInternalEvents(res.Items), nil
}

// FreeBusy returns the calendar's busy intervals between min and max.
func (c *CalendarClient) FreeBusy(ctx context.Context, min, max time.Time) ([]models.BusyInterval, error) {
	res, err := c.service.Freebusy.Query(&calendar.FreeBusyRequest{
		TimeMin: min.Format(time.RFC3339),
		TimeMax: max.Format(time.RFC3339),
		Items:   []*calendar.FreeBusyRequestItem{{Id: c.calendarID}},
	}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("free/busy query failed: %w", err)
	}

	cal, ok := res.Calendars[c.calendarID]
	if !ok {
		return nil, nil
	}
	var busy []models.BusyInterval
	for _, p := range cal.Busy {
		start, err := time.Parse(time.RFC3339, p.Start)
		if err != nil {
			c.logger.Warn("Skipping unparseable busy interval", "start", p.Start)
			continue
		}
		end, err := time.Parse(time.RFC3339, p.End)
		if err != nil {
			c.logger.Warn("Skipping unparseable busy interval", "end", p.End)
			continue
		}
		busy = append(busy, models.BusyInterval{Start: start, End: end})
	}
	return busy, nil
}

// Insert creates the event with attendee notification enabled and returns it
// with the backend-assigned ID and link filled in.
func (c *CalendarClient) Insert(ctx context.Context, event models.Event) (models.Event, error) {
	body := &calendar.Event{
		Summary:     event.Summary,
		Description: event.Description,
		Location:    event.Location,
		Start:       &calendar.EventDateTime{DateTime: event.Start.Format(time.RFC3339), TimeZone: c.timezone},
		End:         &calendar.EventDateTime{DateTime: event.End.Format(time.RFC3339), TimeZone: c.timezone},
		Reminders:   &calendar.EventReminders{UseDefault: true, ForceSendFields: []string{"UseDefault"}},
	}
	for _, a := range event.Attendees {
		body.Attendees = append(body.Attendees, &calendar.EventAttendee{Email: a})
	}

	created, err := c.service.Events.Insert(c.calendarID, body).
		SendUpdates("all").
		Context(ctx).
		Do()
	if err != nil {
		return models.Event{}, fmt.Errorf("failed to insert event: %w", err)
	}
	c.logger.Info("Inserted event", "id", created.Id, "summary", created.Summary)

	event.ID = created.Id
	event.Link = created.HtmlLink
	return event, nil
}

// Delete removes the event. A 404/410 response maps to
// models.ErrEventNotFound so callers can treat a double delete as benign.
func (c *CalendarClient) Delete(ctx context.Context, eventID string) error {
	err := c.service.Events.Delete(c.calendarID, eventID).
		SendUpdates("all").
		Context(ctx).
		Do()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && (apiErr.Code == 404 || apiErr.Code == 410) {
			return fmt.Errorf("event %s: %w", eventID, models.ErrEventNotFound)
		}
		return fmt.Errorf("failed to delete event: %w", err)
	}
	return nil
}

// Timezone returns the calendar owner's IANA timezone setting.
func (c *CalendarClient) Timezone(ctx context.Context) (string, error) {
	if c.timezone != "" {
		return c.timezone, nil
	}
	setting, err := c.service.Settings.Get("timezone").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to fetch timezone setting: %w", err)
	}
	if setting.Value == "" {
		return "", fmt.Errorf("calendar has no timezone setting")
	}
	c.timezone = setting.Value
	c.logger.Info("Detected calendar timezone", "timezone", c.timezone)
	return c.timezone, nil
}

// toInternalEvents converts Google Calendar events to the internal Event model.
func (c *CalendarClient) toInternalEvents(googleEvents []*calendar.Event) []models.Event {
	var internalEvents []models.Event
	for _, item := range googleEvents {
		// Skip all-day entries without a concrete start time.
		if item.Start == nil || item.Start.DateTime == "" {
			continue
		}
		start, err := time.Parse(time.RFC3339, item.Start.DateTime)
		if err != nil {
			c.logger.Warn("Skipping event with unparseable start", "id", item.Id)
			continue
		}
		var end time.Time
		if item.End != nil && item.End.DateTime != "" {
			end, _ = time.Parse(time.RFC3339, item.End.DateTime)
		}

		var attendees []string
		for _, a := range item.Attendees {
			attendees = append(attendees, a.Email)
		}

		internalEvents = append(internalEvents, models.Event{
			ID:          item.Id,
			Summary:     item.Summary,
			Description: item.Description,
			Location:    item.Location,
			Start:       start,
			End:         end,
			Attendees:   attendees,
			Link:        item.HtmlLink,
		})
	}
	return internalEvents
}

// GetOAuthConfigForAuthFlow is used by the auth command to get the config for the web flow.
func GetOAuthConfigForAuthFlow(clientID, clientSecret string) (*oauth2.Config, error) {
	return getOAuthConfig(clientID, clientSecret)
}

// getOAuthConfig reads credentials and returns an OAuth2 config.
// It prioritizes environment variables over a local credentials.json file.
func getOAuthConfig(clientID, clientSecret string) (*oauth2.Config, error) {
	if clientID != "" && clientSecret != "" {
		return &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  "urn:ietf:wg:oauth:2.0:oob",
			Scopes:       []string{calendar.CalendarScope},
			Endpoint:     google.Endpoint,
		}, nil
	}

	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		if _, ok := err.(*fs.PathError); ok {
			return nil, fmt.Errorf("credentials.json not found. Please provide GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET env vars or place credentials.json in the root directory")
		}
		return nil, fmt.Errorf("unable to read client secret file: %w", err)
	}

	config, err := google.ConfigFromJSON(b, calendar.CalendarScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file to config: %w", err)
	}
	config.RedirectURL = "urn:ietf:wg:oauth:2.0:oob" // For desktop app flow
	return config, nil
}

// TokenFromWeb is called by the auth flow to retrieve a token.
func TokenFromWeb(config *oauth2.Config, authCode string) (*oauth2.Token, error) {
	return config.Exchange(context.Background(), authCode)
}

// SaveToken saves a token to a file path.
func SaveToken(path string, token *oauth2.Token) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("unable to create token file: %w", err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(token)
}

// tokenFromFile retrieves a token from a local file.
func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	return tok, err
}

// GetTokenAccounts lists the account names with saved tokens in the working
// directory.
func GetTokenAccounts() ([]string, error) {
	files, err := os.ReadDir(".")
	if err != nil {
		return nil, err
	}

	var accounts []string
	for _, file := range files {
		if strings.HasPrefix(file.Name(), "token-") && strings.HasSuffix(file.Name(), ".json") {
			accountName := strings.TrimSuffix(strings.TrimPrefix(file.Name(), "token-"), ".json")
			accounts = append(accounts, accountName)
		}
	}
	return accounts, nil
}
