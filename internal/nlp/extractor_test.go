package nlp

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"calassist/internal/models"
)

func fallbackExtractor() *Extractor {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewExtractor(logger, "", "", NewParser(), time.UTC)
}

func TestFallbackClassifiesCreate(t *testing.T) {
	payload, err := fallbackExtractor().Extract(context.Background(), "schedule a meeting with the team")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if payload.Intent != models.IntentCreateEvent {
		t.Errorf("intent = %q, want %q", payload.Intent, models.IntentCreateEvent)
	}
}

func TestFallbackClassifiesDelete(t *testing.T) {
	payload, err := fallbackExtractor().Extract(context.Background(), "cancel my dentist appointment")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if payload.Intent != models.IntentDeleteEvent {
		t.Errorf("intent = %q, want %q", payload.Intent, models.IntentDeleteEvent)
	}
	if payload.TargetDescription == "" {
		t.Error("TargetDescription is empty, want the utterance carried over")
	}
}

func TestFallbackClassifiesAvailability(t *testing.T) {
	payload, err := fallbackExtractor().Extract(context.Background(), "am I free this afternoon?")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if payload.Intent != models.IntentCheckAvailability {
		t.Errorf("intent = %q, want %q", payload.Intent, models.IntentCheckAvailability)
	}
}

func TestFallbackClassifiesListWithTimeExpression(t *testing.T) {
	payload, err := fallbackExtractor().Extract(context.Background(), "what's on today")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if payload.Intent != models.IntentListEvents {
		t.Errorf("intent = %q, want %q", payload.Intent, models.IntentListEvents)
	}
	if payload.TimeExpression != "today" {
		t.Errorf("TimeExpression = %q, want %q", payload.TimeExpression, "today")
	}
}

func TestFallbackUnknown(t *testing.T) {
	payload, err := fallbackExtractor().Extract(context.Background(), "sing me a song")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if payload.Intent != models.IntentUnknown {
		t.Errorf("intent = %q, want %q", payload.Intent, models.IntentUnknown)
	}
}

func TestParseIntentRejectsGarbage(t *testing.T) {
	if got := models.ParseIntent("make_me_a_sandwich"); got != models.IntentUnknown {
		t.Errorf("ParseIntent = %q, want %q", got, models.IntentUnknown)
	}
	if got := models.ParseIntent("create_event"); got != models.IntentCreateEvent {
		t.Errorf("ParseIntent = %q, want %q", got, models.IntentCreateEvent)
	}
}
