package notify

import (
	"context"
	"fmt"

	goslack "github.com/slack-go/slack"
)

// SlackSender posts a pre-rendered attachment to a configured incoming
// webhook URL. Alert channels authenticate purely via the opaque webhook URL
// the tenant registered; no bot token is used.
type SlackSender struct {
	webhookURL string
}

func NewSlackSender(webhookURL string) *SlackSender {
	return &SlackSender{webhookURL: webhookURL}
}

func (s *SlackSender) Kind() string { return "slack" }

func (s *SlackSender) Send(ctx context.Context, payload Payload) error {
	color := "warning"
	if payload.Severity == "info" {
		color = "good"
	}

	msg := &goslack.WebhookMessage{
		Attachments: []goslack.Attachment{
			{
				Color: color,
				Title: payload.Title,
				Fields: []goslack.AttachmentField{
					{Title: "Threshold", Value: payload.ThresholdKind, Short: true},
					{Title: "Value", Value: fmt.Sprintf("%.2f", payload.Value), Short: true},
					{Title: "Limit", Value: fmt.Sprintf("%.2f", payload.Limit), Short: true},
					{Title: "Window", Value: fmt.Sprintf("%s – %s", payload.WindowStart.Format("2006-01-02"), payload.WindowEnd.Format("2006-01-02")), Short: true},
				},
			},
		},
	}

	if err := goslack.PostWebhookContext(ctx, s.webhookURL, msg); err != nil {
		return &SendError{Err: fmt.Errorf("posting slack webhook: %w", err), Retriable: true}
	}
	return nil
}
