package models

import "time"

// Intent is the classified goal of a user utterance.
type Intent string

const (
	IntentCreateEvent       Intent = "create_event"
	IntentDeleteEvent       Intent = "delete_event"
	IntentUpdateEvent       Intent = "update_event"
	IntentListEvents        Intent = "list_events"
	IntentCheckAvailability Intent = "check_availability"
	IntentUnknown           Intent = "unknown"
)

// ParseIntent maps a raw intent string to a known Intent.
// Anything unrecognized becomes IntentUnknown.
func ParseIntent(s string) Intent {
	switch Intent(s) {
	case IntentCreateEvent, IntentDeleteEvent, IntentUpdateEvent,
		IntentListEvents, IntentCheckAvailability:
		return Intent(s)
	default:
		return IntentUnknown
	}
}

// IntentPayload is the structured result of natural-language extraction.
// Intent is always set (IntentUnknown when extraction could not classify the
// utterance). An empty optional field means the user must be asked for it.
type IntentPayload struct {
	Intent            Intent
	Summary           string     // Event title, if mentioned
	TimeExpression    string     // Free-text time phrase, e.g. "tomorrow 4pm"
	ParsedStart       *time.Time // Concrete start, if the NLP layer resolved one
	Attendees         []string   // Attendee emails, if mentioned
	TargetDescription string     // Free text describing an existing event (delete/update)
	OriginalText      string     // The raw utterance
	Err               string     // Diagnostic set when extraction itself failed
}
