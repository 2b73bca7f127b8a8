// Package sms sends text notifications. The production driver talks to
// the Twilio REST API; order placement degrades gracefully when SMS
// dispatch fails, so errors here are logged and surfaced, never fatal.
package sms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Sender delivers one SMS message. Implementations must be safe for
// concurrent use.
type Sender interface {
	Send(ctx context.Context, to, body string) error
}

// Disabled is a Sender that reports SMS as unconfigured. Used when no
// Twilio credentials are present so order placement still succeeds.
type Disabled struct{}

func (Disabled) Send(ctx context.Context, to, body string) error {
	return fmt.Errorf("sms disabled: no provider configured")
}

// TwilioOption configures the Twilio driver.
type TwilioOption func(*TwilioDriver)

// WithTwilioEndpoint sets a custom API base URL (tests, proxies).
func WithTwilioEndpoint(endpoint string) TwilioOption {
	return func(d *TwilioDriver) { d.endpoint = endpoint }
}

// WithTwilioHTTPClient overrides the HTTP client.
func WithTwilioHTTPClient(c *http.Client) TwilioOption {
	return func(d *TwilioDriver) { d.client = c }
}

// TwilioDriver implements Sender against the Twilio Messages API.
type TwilioDriver struct {
	accountSID string
	authToken  string
	from       string
	endpoint   string // defaults to https://api.twilio.com
	client     *http.Client
}

// NewTwilioDriver creates a Twilio SMS driver.
func NewTwilioDriver(accountSID, authToken, from string, opts ...TwilioOption) *TwilioDriver {
	d := &TwilioDriver{
		accountSID: accountSID,
		authToken:  authToken,
		from:       from,
		endpoint:   "https://api.twilio.com",
		client:     &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

type twilioResponse struct {
	SID     string `json:"sid"`
	Status  string `json:"status"`
	Message string `json:"message"` // error payloads
	Code    int    `json:"code"`
}

// Send posts one message to the Twilio Messages endpoint.
func (d *TwilioDriver) Send(ctx context.Context, to, body string) error {
	form := url.Values{}
	form.Set("To", to)
	form.Set("From", d.from)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", d.endpoint, d.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.SetBasicAuth(d.accountSID, d.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("twilio request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("twilio response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var tr twilioResponse
		if json.Unmarshal(raw, &tr) == nil && tr.Message != "" {
			return fmt.Errorf("twilio error %d: %s", tr.Code, tr.Message)
		}
		return fmt.Errorf("twilio status %d", resp.StatusCode)
	}
	return nil
}
