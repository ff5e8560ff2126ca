package provider

import (
	"net/http"
	"strings"
	"testing"
)

func TestClassifyStatusAuth(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		if got := classifyStatus(status, ""); got != KindAuth {
			t.Fatalf("classifyStatus(%d) = %v, want auth", status, got)
		}
	}
}

func TestClassifyStatusRateLimited(t *testing.T) {
	if got := classifyStatus(http.StatusTooManyRequests, ""); got != KindRateLimited {
		t.Fatalf("classifyStatus(429) = %v, want rate_limited", got)
	}
}

func TestClassifyStatusTransient(t *testing.T) {
	for _, status := range []int{http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout, 529, 500} {
		if got := classifyStatus(status, ""); got != KindTransient {
			t.Fatalf("classifyStatus(%d) = %v, want transient", status, got)
		}
	}
}

func TestClassifyStatusBadRequest(t *testing.T) {
	if got := classifyStatus(http.StatusBadRequest, "missing required field"); got != KindBadRequest {
		t.Fatalf("classifyStatus(400) = %v, want bad_request", got)
	}
}

func TestClassifyStatusQuotaExceededIsRateLimited(t *testing.T) {
	if got := classifyStatus(http.StatusBadRequest, "You exceeded your current quota"); got != KindRateLimited {
		t.Fatalf("classifyStatus(400, quota) = %v, want rate_limited", got)
	}
}

func TestErrorRetriable(t *testing.T) {
	cases := []struct {
		kind      Kind
		retriable bool
	}{
		{KindTransient, true},
		{KindRateLimited, true},
		{KindAuth, false},
		{KindBadRequest, false},
	}
	for _, c := range cases {
		e := &Error{Kind: c.kind}
		if e.Retriable() != c.retriable {
			t.Fatalf("Error{Kind: %v}.Retriable() = %v, want %v", c.kind, e.Retriable(), c.retriable)
		}
	}
}

func TestReadErrorMessageJSONEnvelope(t *testing.T) {
	body := strings.NewReader(`{"error": {"message": "invalid api key", "type": "invalid_request_error"}}`)
	if got := readErrorMessage(body); got != "invalid api key" {
		t.Fatalf("readErrorMessage() = %q, want %q", got, "invalid api key")
	}
}

func TestReadErrorMessageRawTextFallback(t *testing.T) {
	body := strings.NewReader("upstream unavailable")
	if got := readErrorMessage(body); got != "upstream unavailable" {
		t.Fatalf("readErrorMessage() = %q, want raw text fallback", got)
	}
}
