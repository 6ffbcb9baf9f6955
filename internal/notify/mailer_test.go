package notify

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSendDeliversToEachRecipient(t *testing.T) {
	var received []outboundEmail
	var gotToken string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("X-Postmark-Server-Token")
		var msg outboundEmail
		if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		received = append(received, msg)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"MessageID": "test-id"}`))
	}))
	defer server.Close()

	client := NewClient(discardLogger(), "test-token", "assistant@example.com",
		WithAPIURL(server.URL), WithHTTPClient(server.Client()))

	err := client.Send(context.Background(), []string{"alice@example.com", "bob@example.com"}, "Calendar Event: Standup", "You are invited.")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	if gotToken != "test-token" {
		t.Errorf("server token = %q, want %q", gotToken, "test-token")
	}
	if len(received) != 2 {
		t.Fatalf("deliveries = %d, want 2", len(received))
	}
	if received[0].To != "alice@example.com" || received[1].To != "bob@example.com" {
		t.Errorf("recipients = %q, %q; want alice then bob", received[0].To, received[1].To)
	}
	if received[0].Subject != "Calendar Event: Standup" {
		t.Errorf("Subject = %q, want the event subject", received[0].Subject)
	}
}

func TestSendReportsPartialFailure(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusUnprocessableEntity)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"MessageID": "test-id"}`))
	}))
	defer server.Close()

	client := NewClient(discardLogger(), "test-token", "assistant@example.com",
		WithAPIURL(server.URL), WithHTTPClient(server.Client()))

	err := client.Send(context.Background(), []string{"alice@example.com", "bob@example.com"}, "s", "b")
	if err == nil {
		t.Fatal("Send returned nil, want a partial-failure error")
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2 (remaining sends still attempted)", calls)
	}
}

func TestSendUnconfigured(t *testing.T) {
	client := NewClient(discardLogger(), "", "assistant@example.com")
	if err := client.Send(context.Background(), []string{"alice@example.com"}, "s", "b"); err == nil {
		t.Error("Send returned nil, want a not-configured error")
	}
}
