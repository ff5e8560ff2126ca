// Package notify dispatches alert notifications over Slack, email, and
// generic webhooks, with identical external contracts and a shared
// bounded-retry state machine.
package notify

import (
	"context"
	"time"
)

// Payload is the notification content handed to every Sender, built from an
// alert evaluator threshold crossing or the daily summary job.
type Payload struct {
	TenantID     string
	ThresholdKind string
	Severity     string // "warning" for thresholds, "info" for the daily summary
	Title        string
	Value        float64
	Limit        float64
	WindowStart  time.Time
	WindowEnd    time.Time
}

// SendError wraps a delivery failure with whether the caller should retry.
type SendError struct {
	Err       error
	Retriable bool
}

func (e *SendError) Error() string { return e.Err.Error() }
func (e *SendError) Unwrap() error { return e.Err }

// Sender is implemented by every channel-typed dispatcher.
type Sender interface {
	// Kind identifies the channel type ("slack", "email", "webhook").
	Kind() string
	// Send delivers the payload, returning a *SendError on failure so the
	// caller can tell retriable from permanent failures.
	Send(ctx context.Context, payload Payload) error
}
