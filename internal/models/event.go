package models

import (
	"errors"
	"time"
)

// ErrEventNotFound is returned by a backend when the requested event does not
// exist (or was already deleted). Callers treat a double delete as benign.
var ErrEventNotFound = errors.New("event not found")

// Event represents a standard calendar event.
// This is an internal representation, independent of any specific calendar provider.
// Backends own event state; the assistant never caches events across calls.
type Event struct {
	ID          string    // Unique identifier for the event, assigned by the backend
	Summary     string    // Title of the event
	Description string    // Detailed description of the event
	Location    string    // Location of the event
	Start       time.Time // Start time of the event, timezone-aware
	End         time.Time // End time of the event, timezone-aware
	Attendees   []string  // List of attendee emails
	Link        string    // Human-viewable link to the event, when the backend provides one
}
