package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// WebhookSender posts the payload as JSON to a configured URL with optional
// custom headers, e.g. for a tenant's own incident-management integration.
type WebhookSender struct {
	url        string
	headers    map[string]string
	httpClient *http.Client
}

func NewWebhookSender(url string, headers map[string]string) *WebhookSender {
	return &WebhookSender{
		url:        url,
		headers:    headers,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (s *WebhookSender) Kind() string { return "webhook" }

type webhookBody struct {
	TenantID      string    `json:"tenant_id"`
	ThresholdKind string    `json:"threshold_kind"`
	Severity      string    `json:"severity"`
	Title         string    `json:"title"`
	Value         float64   `json:"value"`
	Limit         float64   `json:"limit"`
	WindowStart   time.Time `json:"window_start"`
	WindowEnd     time.Time `json:"window_end"`
}

func (s *WebhookSender) Send(ctx context.Context, payload Payload) error {
	body, err := json.Marshal(webhookBody{
		TenantID:      payload.TenantID,
		ThresholdKind: payload.ThresholdKind,
		Severity:      payload.Severity,
		Title:         payload.Title,
		Value:         payload.Value,
		Limit:         payload.Limit,
		WindowStart:   payload.WindowStart,
		WindowEnd:     payload.WindowEnd,
	})
	if err != nil {
		return &SendError{Err: fmt.Errorf("encoding webhook payload: %w", err), Retriable: false}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return &SendError{Err: fmt.Errorf("building webhook request: %w", err), Retriable: false}
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range s.headers {
		req.Header.Set(k, v)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return &SendError{Err: fmt.Errorf("posting webhook: %w", err), Retriable: true}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return &SendError{Err: fmt.Errorf("webhook returned status %d", resp.StatusCode), Retriable: true}
	}
	if resp.StatusCode >= 400 {
		return &SendError{Err: fmt.Errorf("webhook returned status %d", resp.StatusCode), Retriable: false}
	}
	return nil
}
