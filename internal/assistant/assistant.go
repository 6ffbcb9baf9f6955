// Package assistant contains the intent-to-action orchestration core of the
// calendar assistant: time-range resolution, free-slot computation, conflict
// checking, event operations, and the intent router that drives a multi-turn
// clarification dialog. External collaborators (calendar backend, NLP
// extraction, time parsing, notification, speech) are injected as interfaces.
package assistant

import (
	"context"
	"time"

	"calassist/internal/models"
)

// Backend is the remote calendar service. All calls are blocking I/O; the
// implementation owns any timeout or retry policy. Delete reports a missing
// event by returning an error wrapping models.ErrEventNotFound.
type Backend interface {
	ListEvents(ctx context.Context, min, max time.Time) ([]models.Event, error)
	SearchEvents(ctx context.Context, query string, min, max time.Time) ([]models.Event, error)
	FreeBusy(ctx context.Context, min, max time.Time) ([]models.BusyInterval, error)
	Insert(ctx context.Context, event models.Event) (models.Event, error)
	Delete(ctx context.Context, eventID string) error
	Timezone(ctx context.Context) (string, error)
}

// Extractor turns a raw utterance into a structured intent payload.
// Implementations may be model-backed or rule-based; either way the returned
// payload always carries an intent (IntentUnknown when unclassifiable).
type Extractor interface {
	Extract(ctx context.Context, utterance string) (models.IntentPayload, error)
}

// TimeParser resolves a natural-language time phrase relative to ref,
// interpreted in loc. The second return value is false when the phrase could
// not be understood.
type TimeParser interface {
	Parse(phrase string, ref time.Time, loc *time.Location) (time.Time, bool)
}

// Prompter asks the human a single clarification question and returns their
// answer. The exchange is synchronous; an empty answer means "cancel".
type Prompter interface {
	Ask(prompt string) (string, error)
}

// Speech is an optional voice front end. A nil or not-Ready Speech degrades
// the session to text-only operation.
type Speech interface {
	Ready() bool
	Transcribe(ctx context.Context) (string, error)
	Speak(text string) error
}

// Notifier delivers best-effort email to attendees. Failures are logged by
// the caller and never affect the primary operation.
type Notifier interface {
	Send(ctx context.Context, recipients []string, subject, body string) error
}
