package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
)

type fakeSender struct {
	kind      string
	responses []error
	calls     int
}

func (f *fakeSender) Kind() string { return f.kind }

func (f *fakeSender) Send(ctx context.Context, payload Payload) error {
	err := f.responses[f.calls]
	f.calls++
	return err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDispatchSucceedsFirstTry(t *testing.T) {
	sender := &fakeSender{kind: "webhook", responses: []error{nil}}
	if err := Dispatch(context.Background(), discardLogger(), sender, Payload{}); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if sender.calls != 1 {
		t.Fatalf("expected exactly one send attempt, got %d", sender.calls)
	}
}

func TestDispatchRetriesRetriableThenSucceeds(t *testing.T) {
	sender := &fakeSender{kind: "slack", responses: []error{
		&SendError{Err: errors.New("timeout"), Retriable: true},
		&SendError{Err: errors.New("timeout"), Retriable: true},
		nil,
	}}
	// Shrink backoff so the test doesn't sleep real wall-clock seconds.
	origBase, origMax := baseBackoff, maxBackoff
	baseBackoff, maxBackoff = 0, 0
	defer func() { baseBackoff, maxBackoff = origBase, origMax }()

	if err := Dispatch(context.Background(), discardLogger(), sender, Payload{}); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if sender.calls != 3 {
		t.Fatalf("expected 3 send attempts, got %d", sender.calls)
	}
}

func TestDispatchStopsOnPermanentFailure(t *testing.T) {
	sender := &fakeSender{kind: "email", responses: []error{
		&SendError{Err: errors.New("bad address"), Retriable: false},
	}}
	if err := Dispatch(context.Background(), discardLogger(), sender, Payload{}); err == nil {
		t.Fatal("expected an error for a permanent failure")
	}
	if sender.calls != 1 {
		t.Fatalf("expected exactly one send attempt for a permanent failure, got %d", sender.calls)
	}
}

func TestDispatchExhaustsRetries(t *testing.T) {
	responses := make([]error, maxAttempts)
	for i := range responses {
		responses[i] = &SendError{Err: errors.New("down"), Retriable: true}
	}
	sender := &fakeSender{kind: "webhook", responses: responses}

	origBase, origMax := baseBackoff, maxBackoff
	baseBackoff, maxBackoff = 0, 0
	defer func() { baseBackoff, maxBackoff = origBase, origMax }()

	if err := Dispatch(context.Background(), discardLogger(), sender, Payload{}); err == nil {
		t.Fatal("expected an error once retries are exhausted")
	}
	if sender.calls != maxAttempts {
		t.Fatalf("expected %d send attempts, got %d", maxAttempts, sender.calls)
	}
}
