package assistant

import (
	"errors"
	"fmt"

	"calassist/internal/models"
)

// Kind classifies assistant errors so callers can branch on the class of
// failure instead of sniffing message text.
type Kind int

const (
	// KindInput marks empty or unusable user input. Recoverable by
	// re-prompting or cancelling.
	KindInput Kind = iota + 1
	// KindBackend marks an unreachable or failing calendar/NLP service.
	// Terminal for the current command.
	KindBackend
	// KindConflict marks an overlapping booking. The colliding events are
	// attached; conflicts are never auto-resolved.
	KindConflict
	// KindNotFound marks a missing search or delete target.
	KindNotFound
	// KindUnsupported marks an operation this assistant does not perform.
	KindUnsupported
	// KindInternal marks an unexpected failure inside a handler.
	KindInternal
)

// Error is a tagged assistant error. Events is populated for KindConflict.
type Error struct {
	Kind   Kind
	Msg    string
	Events []models.Event
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind of err, or zero when err carries no kind.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return 0
}

func inputErr(format string, args ...any) error {
	return &Error{Kind: KindInput, Msg: fmt.Sprintf(format, args...)}
}

func backendErr(err error, msg string) error {
	return &Error{Kind: KindBackend, Msg: msg, Err: err}
}

func conflictErr(events []models.Event) error {
	return &Error{Kind: KindConflict, Msg: "requested time overlaps existing events", Events: events}
}

func notFoundErr(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

func unsupportedErr(msg string) error {
	return &Error{Kind: KindUnsupported, Msg: msg}
}

func internalErr(err error, msg string) error {
	return &Error{Kind: KindInternal, Msg: msg, Err: err}
}
