// Package ghl posts canonical events to the GoHighLevel CRM webhook.
// Delivery is at-most-once from this client's perspective: it never
// retries, and a rejection surfaces with the captured status and body so
// the orchestration layer can report it without re-parsing anything.
package ghl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ignite/magazord-bridge/internal/pkg/httpretry"
	"github.com/ignite/magazord-bridge/internal/pkg/logger"
	"github.com/ignite/magazord-bridge/internal/transform"
)

// DeliveryError carries the sink's rejection detail.
type DeliveryError struct {
	Status int
	Body   string
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("webhook delivery failed (status %d): %s", e.Status, e.Body)
}

// DeliveryResult captures the sink's acceptance response.
type DeliveryResult struct {
	Status int    `json:"status"`
	Body   string `json:"body,omitempty"`
}

// Config holds webhook connection settings.
type Config struct {
	WebhookURL string
	Timeout    time.Duration
}

// Client posts canonical events to the webhook URL.
type Client struct {
	webhookURL string
	httpClient httpretry.HTTPDoer
}

// NewClient creates a webhook client. The default timeout is 30s. There is
// no retry here: a rejected event must surface to the caller unmasked.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		webhookURL: cfg.WebhookURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// SetHTTPClient sets a custom HTTP client (useful for testing).
func (c *Client) SetHTTPClient(client httpretry.HTTPDoer) {
	c.httpClient = client
}

// IsConfigured reports whether a webhook URL is set.
func (c *Client) IsConfigured() bool {
	return c.webhookURL != ""
}

// Deliver posts the event as JSON. A non-2xx response returns a
// *DeliveryError with the upstream status and body.
func (c *Client) Deliver(ctx context.Context, event *transform.Event) (*DeliveryResult, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read webhook response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &DeliveryError{Status: resp.StatusCode, Body: string(body)}
	}

	logger.Info("event delivered",
		"event_type", event.EventType,
		"idempotency_key", event.Source.IdempotencyKey,
		"status", resp.StatusCode)

	return &DeliveryResult{Status: resp.StatusCode, Body: string(body)}, nil
}
