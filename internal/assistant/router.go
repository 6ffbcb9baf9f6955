package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"calassist/internal/models"
)

var emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

var (
	affirmatives = []string{"yes", "y", "yeah", "yep", "sure", "ok", "okay", "confirm", "do it", "proceed", "affirmative"}
	negatives    = []string{"no", "n", "nope", "negative", "cancel", "don't", "stop"}
)

type handlerFunc func(ctx context.Context, logger *slog.Logger, payload models.IntentPayload) (string, error)

// ProcessCommand runs one utterance through extraction, dispatch, any
// clarification turns, and execution. It always returns a human-readable
// result; no error escapes this boundary.
func (s *Session) ProcessCommand(ctx context.Context, utterance string) string {
	if strings.TrimSpace(utterance) == "" {
		s.logger.Warn("Received empty input")
		return "Input received was empty."
	}

	logger := s.logger.With("command", uuid.NewString())
	logger.Info("Processing command", "utterance", utterance)

	payload, err := s.extractor.Extract(ctx, utterance)
	if err != nil {
		logger.Error("Intent extraction failed", "error", err)
		return "Sorry, I could not understand that request."
	}
	if payload.Err != "" || payload.Intent == models.IntentUnknown {
		reason := payload.Err
		if reason == "" {
			reason = "I could not determine what you want to do."
		}
		logger.Warn("Unresolvable intent", "intent", payload.Intent, "reason", reason)
		return fmt.Sprintf("Sorry, I couldn't understand that. %s", reason)
	}
	logger.Info("Intent classified", "intent", payload.Intent)

	handler := s.handlerFor(payload.Intent)
	if handler == nil {
		logger.Error("No handler for intent", "intent", payload.Intent)
		return fmt.Sprintf("The action %q is not implemented.", payload.Intent)
	}
	return s.runHandler(ctx, logger, payload, handler)
}

func (s *Session) handlerFor(intent models.Intent) handlerFunc {
	switch intent {
	case models.IntentCreateEvent:
		return s.handleCreate
	case models.IntentListEvents:
		return s.handleList
	case models.IntentCheckAvailability:
		return s.handleAvailability
	case models.IntentDeleteEvent:
		return s.handleDelete
	case models.IntentUpdateEvent:
		return s.handleUpdate
	default:
		return nil
	}
}

// runHandler is the failure-isolation boundary: a broken handler must not
// crash the router.
func (s *Session) runHandler(ctx context.Context, logger *slog.Logger, payload models.IntentPayload, handler handlerFunc) (out string) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Handler panicked", "intent", payload.Intent, "panic", r)
			out = fmt.Sprintf("Handler error for intent %s.", payload.Intent)
		}
	}()

	result, err := handler(ctx, logger, payload)
	if err != nil {
		return s.describeFailure(logger, payload.Intent, err)
	}
	return result
}

func (s *Session) describeFailure(logger *slog.Logger, intent models.Intent, err error) string {
	loc := s.resolver.Location()
	var ae *Error
	if errors.As(err, &ae) {
		switch ae.Kind {
		case KindConflict:
			var b strings.Builder
			b.WriteString("That time overlaps with:\n")
			for _, ev := range ae.Events {
				fmt.Fprintf(&b, "  %s\n", FormatEvent(ev, loc))
			}
			b.WriteString("The event was not created.")
			logger.Warn("Create cancelled by conflict", "conflicts", len(ae.Events))
			return b.String()
		case KindNotFound:
			logger.Info("Target not found", "detail", ae.Msg)
			return capitalize(ae.Msg) + "."
		case KindUnsupported:
			logger.Warn("Unsupported operation", "detail", ae.Msg)
			return "Sorry, " + ae.Msg + "."
		case KindInput:
			logger.Warn("Unusable input", "detail", ae.Msg)
			return capitalize(ae.Msg) + "."
		case KindBackend:
			logger.Error("Backend failure", "intent", intent, "error", err)
			return "The calendar service is unavailable right now. Please try again later."
		}
	}
	logger.Error("Handler failed", "intent", intent, "error", err)
	return fmt.Sprintf("Handler error for intent %s.", intent)
}

func (s *Session) handleCreate(ctx context.Context, logger *slog.Logger, payload models.IntentPayload) (string, error) {
	loc := s.resolver.Location()

	summary := strings.TrimSpace(payload.Summary)
	if summary == "" {
		answer, err := s.ask(ctx, "What is the title for this event?")
		if err != nil {
			return "", internalErr(err, "clarification failed")
		}
		if strings.TrimSpace(answer) == "" {
			logger.Info("Create cancelled: no title given")
			return "Okay, cancelled: no title was given.", nil
		}
		summary = strings.TrimSpace(answer)
	}

	start, ok := s.resolveStart(payload)
	if !ok {
		hint := ""
		if payload.TimeExpression != "" {
			hint = fmt.Sprintf(" (you mentioned %q)", payload.TimeExpression)
		}
		answer, err := s.ask(ctx, fmt.Sprintf("When is %q?%s", summary, hint))
		if err != nil {
			return "", internalErr(err, "clarification failed")
		}
		if strings.TrimSpace(answer) == "" {
			logger.Info("Create cancelled: no start time given")
			return "Okay, cancelled: no start time was given.", nil
		}
		start, ok = s.resolver.ParseInstant(answer)
		if !ok {
			return "", inputErr("I could not understand the time %q", strings.TrimSpace(answer))
		}
	}
	end := start.Add(s.cfg.DefaultEventDuration)

	attendees := cleanEmails(payload.Attendees)
	if len(attendees) == 0 {
		answer, err := s.ask(ctx, "Which email addresses should be invited?")
		if err != nil {
			return "", internalErr(err, "clarification failed")
		}
		if strings.TrimSpace(answer) == "" {
			logger.Info("Create cancelled: no attendees given")
			return "Okay, cancelled: no attendees were given.", nil
		}
		attendees = extractEmails(answer)
		if len(attendees) == 0 {
			return "", inputErr("no valid email addresses in %q", strings.TrimSpace(answer))
		}
	}

	logger.Info("Creating event", "summary", summary, "start", start, "attendees", len(attendees))
	created, err := s.ops.Create(ctx, CreateRequest{
		Summary:   summary,
		Range:     models.TimeRange{Start: start, End: end},
		Attendees: attendees,
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Event %q created for %s. Link: %s", created.Summary, FormatRange(models.TimeRange{Start: created.Start, End: created.End}, loc), created.Link), nil
}

func (s *Session) handleList(ctx context.Context, logger *slog.Logger, payload models.IntentPayload) (string, error) {
	loc := s.resolver.Location()
	r, err := s.resolver.Resolve(payload.TimeExpression, payload.ParsedStart, s.cfg.DefaultListRangeDays)
	if err != nil {
		return "", err
	}
	logger.Info("Listing events", "start", r.Start, "end", r.End)

	events, err := s.ops.List(ctx, r)
	if err != nil {
		return "", err
	}
	if len(events) == 0 {
		return fmt.Sprintf("No events found between %s and %s.", FormatDay(r.Start, loc), FormatDay(r.End, loc)), nil
	}
	var b strings.Builder
	b.WriteString("Found these events:\n")
	for _, ev := range events {
		fmt.Fprintf(&b, "  %s\n", FormatEvent(ev, loc))
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (s *Session) handleAvailability(ctx context.Context, logger *slog.Logger, payload models.IntentPayload) (string, error) {
	loc := s.resolver.Location()
	r, err := s.resolver.Resolve(payload.TimeExpression, payload.ParsedStart, 1)
	if err != nil {
		return "", err
	}
	// Availability is always checked over a single day.
	window := models.TimeRange{Start: r.Start, End: r.Start.AddDate(0, 0, 1)}
	logger.Info("Checking availability", "day", window.Start, "slot", s.cfg.SlotDuration)

	slots, err := s.ops.FreeSlots(ctx, window, s.cfg.SlotDuration)
	if err != nil {
		return "", err
	}
	if len(slots) == 0 {
		return fmt.Sprintf("No free %d-minute slots found on %s.", int(s.cfg.SlotDuration.Minutes()), FormatDay(window.Start, loc)), nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Available %d-minute slots on %s:\n", int(s.cfg.SlotDuration.Minutes()), FormatDay(window.Start, loc))
	for _, slot := range slots {
		fmt.Fprintf(&b, "  %s\n", FormatSlot(slot, loc))
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (s *Session) handleDelete(ctx context.Context, logger *slog.Logger, payload models.IntentPayload) (string, error) {
	target := strings.TrimSpace(payload.TargetDescription)
	if target == "" {
		answer, err := s.ask(ctx, "Which event should I delete? Describe it:")
		if err != nil {
			return "", internalErr(err, "clarification failed")
		}
		if strings.TrimSpace(answer) == "" {
			logger.Info("Delete cancelled: no target given")
			return "Okay, cancelled: no event was specified.", nil
		}
		target = strings.TrimSpace(answer)
	}

	approx, err := s.resolver.Resolve(payload.TimeExpression, payload.ParsedStart, s.cfg.LookaheadDays)
	if err != nil {
		return "", err
	}
	// Widen the window symmetrically to tolerate vague phrasing like
	// "next week".
	pad := s.cfg.LookaheadDays / 2
	if pad < 1 {
		pad = 1
	}
	search := models.TimeRange{
		Start: approx.Start.AddDate(0, 0, -pad),
		End:   approx.End.AddDate(0, 0, pad+1),
	}
	logger.Info("Searching for delete target", "target", target, "start", search.Start, "end", search.End)

	found, findMsg, err := s.ops.Find(ctx, target, search)
	if err != nil {
		return "", err
	}

	label := found.Summary
	if label == "" {
		label = target
	}
	confirmed, err := s.confirm(ctx, fmt.Sprintf("%s\nDelete %q?", findMsg, label))
	if err != nil {
		return "", internalErr(err, "confirmation failed")
	}
	if !confirmed {
		logger.Info("Delete cancelled by user", "id", found.ID)
		return "Okay, the event was not deleted.", nil
	}

	notice, err := s.ops.Delete(ctx, found.ID)
	if err != nil {
		return "", err
	}
	return notice, nil
}

func (s *Session) handleUpdate(ctx context.Context, logger *slog.Logger, payload models.IntentPayload) (string, error) {
	return "", s.ops.Update(ctx, payload.TargetDescription, nil)
}

// resolveStart picks the concrete start instant for a create, from the
// NLP-resolved timestamp or by parsing the time expression.
func (s *Session) resolveStart(payload models.IntentPayload) (time.Time, bool) {
	if payload.ParsedStart != nil {
		return payload.ParsedStart.In(s.resolver.Location()), true
	}
	if payload.TimeExpression != "" {
		return s.resolver.ParseInstant(payload.TimeExpression)
	}
	return time.Time{}, false
}

// ask routes a clarification prompt through speech when the session is in
// voice mode, otherwise through the text prompter.
func (s *Session) ask(ctx context.Context, prompt string) (string, error) {
	if s.cfg.Voice && s.speech != nil && s.speech.Ready() {
		if err := s.speech.Speak(prompt); err != nil {
			s.logger.Warn("Speech output failed, falling back to text", "error", err)
		} else {
			return s.speech.Transcribe(ctx)
		}
	}
	return s.prompter.Ask(prompt)
}

// confirm asks an explicit yes/no question. An unparseable answer is
// re-asked once; anything still unclear, an empty answer, or a prompt
// failure all default to no.
func (s *Session) confirm(ctx context.Context, prompt string) (bool, error) {
	for attempt := 0; attempt < 2; attempt++ {
		answer, err := s.ask(ctx, prompt+" (yes/no)")
		if err != nil {
			return false, err
		}
		answer = strings.ToLower(strings.TrimSpace(answer))
		if answer == "" {
			return false, nil
		}
		if matchesAny(answer, affirmatives) {
			return true, nil
		}
		if matchesAny(answer, negatives) {
			return false, nil
		}
		prompt = "Please answer yes or no."
	}
	return false, nil
}

func matchesAny(answer string, words []string) bool {
	for _, w := range words {
		if answer == w || strings.HasPrefix(answer, w+" ") {
			return true
		}
	}
	return false
}

// extractEmails pulls addresses out of free text, deduplicated and sorted.
func extractEmails(text string) []string {
	found := emailPattern.FindAllString(text, -1)
	seen := make(map[string]bool, len(found))
	var out []string
	for _, a := range found {
		if !seen[a] {
			seen[a] = true
			out = append(out, a)
		}
	}
	sort.Strings(out)
	return out
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
