package notify

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// state is a send attempt's position in the pending -> in-flight ->
// {done, failed-retriable, failed-permanent} state machine.
type state int

const (
	statePending state = iota
	stateInFlight
	stateDone
	stateFailedRetriable
	stateFailedPermanent
)

const maxAttempts = 5

// baseBackoff and maxBackoff are vars, not consts, so tests can shrink them
// instead of sleeping through real backoff delays.
var (
	baseBackoff = 500 * time.Millisecond
	maxBackoff  = 30 * time.Second
)

// Dispatch delivers payload to sender, retrying retriable failures with
// bounded exponential backoff. It returns once the send lands, a permanent
// failure occurs, or retries are exhausted; exhaustion is reported to the
// caller via the returned error but never panics or blocks indefinitely.
func Dispatch(ctx context.Context, logger *slog.Logger, sender Sender, payload Payload) error {
	backoff := baseBackoff

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := sender.Send(ctx, payload)
		if err == nil {
			return nil
		}

		var sendErr *SendError
		if !errors.As(err, &sendErr) || !sendErr.Retriable {
			logger.Warn("notification delivery failed permanently",
				"channel", sender.Kind(), "error", err)
			return err
		}

		if attempt == maxAttempts {
			logger.Warn("notification delivery exhausted retries",
				"channel", sender.Kind(), "attempts", attempt, "error", err)
			return err
		}

		logger.Info("notification delivery failed, retrying",
			"channel", sender.Kind(), "attempt", attempt, "backoff", backoff, "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}

	return nil
}
