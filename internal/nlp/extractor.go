// Package nlp provides natural-language understanding for the assistant:
// intent extraction (model-backed with a keyword fallback) and time-phrase
// parsing. Both are deliberately swappable; the orchestration core only sees
// their interfaces.
package nlp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"calassist/internal/models"
)

const extractionPrompt = `Analyze the user's calendar request. Identify intent and extract details.
User Request: %q
Possible Intents: create_event, delete_event, update_event, list_events, check_availability, unknown
Desired JSON Output: {"intent": "...", "summary": "...", "time_expression": "...", "attendees": ["..."], "target_event_description": "..."}
Examples:
- User: "schedule meeting with bob@x.com tomorrow 4pm about project" -> {"intent": "create_event", "summary": "meeting about project", "time_expression": "tomorrow 4pm", "attendees": ["bob@x.com"], "target_event_description": null}
- User: "cancel budget review next Tuesday" -> {"intent": "delete_event", "summary": null, "time_expression": "next Tuesday", "attendees": null, "target_event_description": "budget review next Tuesday"}
- User: "what's on today" -> {"intent": "list_events", "summary": null, "time_expression": "today", "attendees": null, "target_event_description": null}
- User: "Am I free this afternoon?" -> {"intent": "check_availability", "summary": null, "time_expression": "this afternoon", "attendees": null, "target_event_description": null}
Provide ONLY the JSON object. Use null for missing fields. Use "unknown" intent if unclear.`

// extraction is the wire contract the model is asked to produce.
type extraction struct {
	Intent            string   `json:"intent"`
	Summary           *string  `json:"summary"`
	TimeExpression    *string  `json:"time_expression"`
	Attendees         []string `json:"attendees"`
	TargetDescription *string  `json:"target_event_description"`
}

// Extractor classifies utterances. With an API key it asks a chat model for a
// structured JSON extraction; without one it falls back to keyword rules.
type Extractor struct {
	client *openai.Client // nil means fallback-only
	model  string
	logger *slog.Logger
	parser *Parser
	loc    *time.Location
}

// NewExtractor builds an extractor. apiKey may be empty to run rule-based
// only. loc is the timezone in which time expressions are resolved into
// ParsedStart.
func NewExtractor(logger *slog.Logger, apiKey, model string, parser *Parser, loc *time.Location) *Extractor {
	var client *openai.Client
	if apiKey != "" {
		client = openai.NewClient(apiKey)
	} else {
		logger.Warn("No model API key configured, using keyword intent matching")
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Extractor{client: client, model: model, logger: logger, parser: parser, loc: loc}
}

// Extract classifies the utterance and attaches a parsed start time when the
// time expression resolves. Extraction trouble is reported inside the payload
// (Err field, unknown intent) rather than as an error, so a flaky model never
// aborts the conversation.
func (x *Extractor) Extract(ctx context.Context, utterance string) (models.IntentPayload, error) {
	if x.client == nil {
		return x.classifyByKeywords(utterance), nil
	}

	resp, err := x.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       x.model,
		Temperature: 0.1,
		Messages: []openai.ChatCompletionMessage{{
			Role:    openai.ChatMessageRoleUser,
			Content: fmt.Sprintf(extractionPrompt, utterance),
		}},
	})
	if err != nil {
		x.logger.Error("Model extraction failed, using keyword fallback", "error", err)
		return x.classifyByKeywords(utterance), nil
	}
	if len(resp.Choices) == 0 {
		return models.IntentPayload{Intent: models.IntentUnknown, OriginalText: utterance, Err: "empty model response"}, nil
	}

	raw := resp.Choices[0].Message.Content
	start, end := strings.Index(raw, "{"), strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end < start {
		x.logger.Error("No JSON object in model response", "response", raw)
		return models.IntentPayload{Intent: models.IntentUnknown, OriginalText: utterance, Err: "malformed extraction response"}, nil
	}

	var ex extraction
	if err := json.Unmarshal([]byte(raw[start:end+1]), &ex); err != nil {
		x.logger.Error("Extraction JSON did not parse", "error", err)
		return models.IntentPayload{Intent: models.IntentUnknown, OriginalText: utterance, Err: "malformed extraction response"}, nil
	}

	payload := models.IntentPayload{
		Intent:            models.ParseIntent(ex.Intent),
		Summary:           deref(ex.Summary),
		TimeExpression:    deref(ex.TimeExpression),
		Attendees:         ex.Attendees,
		TargetDescription: deref(ex.TargetDescription),
		OriginalText:      utterance,
	}
	x.attachParsedStart(&payload)
	x.logger.Debug("Extraction complete", "intent", payload.Intent, "time", payload.TimeExpression)
	return payload, nil
}

// classifyByKeywords is the rule-based fallback used when no model is
// available. It only assigns an intent; the router's clarification turns
// collect the rest.
func (x *Extractor) classifyByKeywords(utterance string) models.IntentPayload {
	payload := models.IntentPayload{Intent: models.IntentUnknown, OriginalText: utterance}
	lower := strings.ToLower(utterance)
	switch {
	case containsAny(lower, "create", "schedule", "book", "add"):
		payload.Intent = models.IntentCreateEvent
	case containsAny(lower, "delete", "cancel", "remove"):
		payload.Intent = models.IntentDeleteEvent
		payload.TargetDescription = strings.TrimSpace(utterance)
	case containsAny(lower, "update", "change", "reschedule"):
		payload.Intent = models.IntentUpdateEvent
	case containsAny(lower, "free", "available", "availability"):
		payload.Intent = models.IntentCheckAvailability
	case containsAny(lower, "what", "show", "list", "events", "calendar", "today", "tomorrow", "week"):
		payload.Intent = models.IntentListEvents
	}
	for _, kw := range []string{"today", "tomorrow", "week"} {
		if strings.Contains(lower, kw) {
			payload.TimeExpression = kw
			break
		}
	}
	return payload
}

func (x *Extractor) attachParsedStart(payload *models.IntentPayload) {
	if payload.TimeExpression == "" || x.parser == nil {
		return
	}
	if t, ok := x.parser.Parse(payload.TimeExpression, time.Now(), x.loc); ok {
		payload.ParsedStart = &t
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
