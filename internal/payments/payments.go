// Package payments generates payment links for placed orders. The
// production driver uses the Stripe API: a one-off Price for the order
// total, then a PaymentLink carrying the order metadata.
package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// LinkRequest describes the order to generate a payment link for.
type LinkRequest struct {
	OrderID     int64
	CustomerID  int64
	OrderType   string
	Description string
	// Amount is the order total in dollars; converted to cents for Stripe.
	Amount float64
}

// LinkCreator creates a hosted payment link for an order.
type LinkCreator interface {
	CreateLink(ctx context.Context, req LinkRequest) (string, error)
}

// Disabled is a LinkCreator that reports payments as unconfigured.
type Disabled struct{}

func (Disabled) CreateLink(ctx context.Context, req LinkRequest) (string, error) {
	return "", fmt.Errorf("payments disabled: no provider configured")
}

// StripeOption configures the Stripe driver.
type StripeOption func(*StripeDriver)

// WithStripeEndpoint sets a custom API base URL (tests, proxies).
func WithStripeEndpoint(endpoint string) StripeOption {
	return func(d *StripeDriver) { d.endpoint = endpoint }
}

// WithStripeHTTPClient overrides the HTTP client.
func WithStripeHTTPClient(c *http.Client) StripeOption {
	return func(d *StripeDriver) { d.client = c }
}

// StripeDriver implements LinkCreator against the Stripe REST API.
type StripeDriver struct {
	secretKey   string
	redirectURL string
	endpoint    string // defaults to https://api.stripe.com
	client      *http.Client
}

// NewStripeDriver creates a Stripe payment-link driver. redirectURL is
// the post-payment confirmation page; the order id is appended to it.
func NewStripeDriver(secretKey, redirectURL string, opts ...StripeOption) *StripeDriver {
	d := &StripeDriver{
		secretKey:   secretKey,
		redirectURL: redirectURL,
		endpoint:    "https://api.stripe.com",
		client:      &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

type stripePrice struct {
	ID string `json:"id"`
}

type stripePaymentLink struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type stripeError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// CreateLink creates a Price for the order total, then a PaymentLink
// referencing it. Returns the hosted payment URL.
func (d *StripeDriver) CreateLink(ctx context.Context, req LinkRequest) (string, error) {
	cents := int64(math.Round(req.Amount * 100))

	priceForm := url.Values{}
	priceForm.Set("unit_amount", strconv.FormatInt(cents, 10))
	priceForm.Set("currency", "usd")
	priceForm.Set("product_data[name]", req.Description)

	var price stripePrice
	if err := d.post(ctx, "/v1/prices", priceForm, &price); err != nil {
		return "", fmt.Errorf("create price: %w", err)
	}

	linkForm := url.Values{}
	linkForm.Set("line_items[0][price]", price.ID)
	linkForm.Set("line_items[0][quantity]", "1")
	linkForm.Set("after_completion[type]", "redirect")
	linkForm.Set("after_completion[redirect][url]", fmt.Sprintf("%s/%d", d.redirectURL, req.OrderID))
	linkForm.Set("metadata[order_id]", strconv.FormatInt(req.OrderID, 10))
	linkForm.Set("metadata[customer_id]", strconv.FormatInt(req.CustomerID, 10))
	linkForm.Set("metadata[order_type]", req.OrderType)

	var link stripePaymentLink
	if err := d.post(ctx, "/v1/payment_links", linkForm, &link); err != nil {
		return "", fmt.Errorf("create payment link: %w", err)
	}
	return link.URL, nil
}

func (d *StripeDriver) post(ctx context.Context, path string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint+path, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+d.secretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var se stripeError
		if json.Unmarshal(raw, &se) == nil && se.Error.Message != "" {
			return fmt.Errorf("stripe %s: %s", se.Error.Type, se.Error.Message)
		}
		return fmt.Errorf("stripe status %d", resp.StatusCode)
	}
	return json.Unmarshal(raw, out)
}
