package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/olekdev/tackleshop-backend/pkg/config"
)

const defaultTimeout = 10 * time.Second

// WebhookSender posts order summaries to a configured endpoint.
type WebhookSender struct {
	url    string
	client *http.Client
}

// NewWebhookSender builds the sender from config. An empty webhook URL
// yields a NoopSender so callers never branch.
func NewWebhookSender(cfg config.NotifyConfig) Sender {
	if cfg.WebhookURL == "" {
		return NoopSender{}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &WebhookSender{
		url:    cfg.WebhookURL,
		client: &http.Client{Timeout: timeout},
	}
}

type webhookPayload struct {
	OrderID string `json:"order_id"`
	Text    string `json:"text"`
}

// Notify posts the formatted summary. Any non-2xx response is an error.
func (s *WebhookSender) Notify(ctx context.Context, summary OrderSummary) error {
	body, err := json.Marshal(webhookPayload{
		OrderID: summary.OrderID,
		Text:    FormatText(summary),
	})
	if err != nil {
		return fmt.Errorf("encoding notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notification endpoint returned %d", resp.StatusCode)
	}
	return nil
}

// NoopSender swallows notifications. Used in tests and when no webhook is
// configured.
type NoopSender struct{}

func (NoopSender) Notify(context.Context, OrderSummary) error { return nil }
