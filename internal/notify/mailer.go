// Package notify sends best-effort email through a Postmark-compatible HTTP
// mail API. Delivery failure is reported to the caller, who logs it and moves
// on; a booking never fails because of mail.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

// Client talks to the mail API. A zero server token leaves the client
// unconfigured; Send then fails fast without network calls.
type Client struct {
	serverToken string
	fromEmail   string
	apiURL      string
	httpClient  *http.Client
	logger      *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

func WithAPIURL(url string) Option {
	return func(cl *Client) {
		cl.apiURL = url
	}
}

func NewClient(logger *slog.Logger, serverToken, fromEmail string, opts ...Option) *Client {
	c := &Client{
		serverToken: serverToken,
		fromEmail:   fromEmail,
		apiURL:      "https://api.postmarkapp.com/email",
		httpClient:  http.DefaultClient,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured returns true if the server token is set.
func (c *Client) Configured() bool {
	return c.serverToken != ""
}

type outboundEmail struct {
	From     string `json:"From"`
	To       string `json:"To"`
	Subject  string `json:"Subject"`
	TextBody string `json:"TextBody"`
}

// Send delivers the message to each recipient. Recipients that fail are
// collected into a single error; the remaining sends still happen.
func (c *Client) Send(ctx context.Context, recipients []string, subject, body string) error {
	if !c.Configured() {
		return fmt.Errorf("notifier not configured: missing server token")
	}
	var failed []string
	for _, to := range recipients {
		if err := c.sendOne(ctx, to, subject, body); err != nil {
			c.logger.Warn("Email delivery failed", "to", to, "error", err)
			failed = append(failed, to)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("delivery failed for %s", strings.Join(failed, ", "))
	}
	return nil
}

func (c *Client) sendOne(ctx context.Context, to, subject, body string) error {
	payload, err := json.Marshal(outboundEmail{
		From:     c.fromEmail,
		To:       to,
		Subject:  subject,
		TextBody: body,
	})
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Postmark-Server-Token", c.serverToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("mail API returned status %d", resp.StatusCode)
	}
	return nil
}
