package fingerprint

import "testing"

func ptrFloat(f float64) *float64 { return &f }
func ptrInt(i int) *int           { return &i }

func sampleRequest() Request {
	return Request{
		Model: "gpt-3.5-turbo",
		Messages: []Message{
			{Role: "user", Content: "ping"},
		},
		Temperature: ptrFloat(0.7),
	}
}

func TestHashDeterministic(t *testing.T) {
	r := sampleRequest()
	if Hash("t1", r) != Hash("t1", r) {
		t.Fatalf("expected identical hashes for identical requests")
	}
}

func TestHashDiffersByTenant(t *testing.T) {
	r := sampleRequest()
	if Hash("t1", r) == Hash("t2", r) {
		t.Fatalf("expected different hashes for different tenants")
	}
}

func TestHashDiffersByContent(t *testing.T) {
	r1 := sampleRequest()
	r2 := sampleRequest()
	r2.Messages[0].Content = "pong"
	if Hash("t1", r1) == Hash("t1", r2) {
		t.Fatalf("expected different hashes for different message content")
	}
}

func TestCanonicalizeOmitsUnsetOptionals(t *testing.T) {
	r := Request{Model: "gpt-3.5-turbo", Messages: []Message{{Role: "user", Content: "hi"}}}
	canon := string(Canonicalize(r))
	for _, field := range []string{"temperature=", "top_p=", "max_tokens=", "frequency_penalty=", "presence_penalty="} {
		if contains(canon, field) {
			t.Fatalf("expected canonical form to omit unset field %q, got %q", field, canon)
		}
	}
}

func TestCanonicalizeIdempotent(t *testing.T) {
	r := sampleRequest()
	first := Canonicalize(r)
	second := Canonicalize(r)
	if string(first) != string(second) {
		t.Fatalf("expected canonicalization to be idempotent")
	}
}

func TestCanonicalizeFixedFloatPrecisionCollapsesNoise(t *testing.T) {
	r1 := sampleRequest()
	r2 := sampleRequest()
	r2.Temperature = ptrFloat(0.70000001)
	// Fixed 4-decimal precision rounds both to 0.7000, so two requests
	// that differ only in floating-point noise share a cache entry.
	if string(Canonicalize(r1)) != string(Canonicalize(r2)) {
		t.Fatalf("expected fixed-precision rounding to collapse float noise")
	}
}

func contains(s, sub string) bool {
	return len(s) >= len(sub) && (func() bool {
		for i := 0; i+len(sub) <= len(s); i++ {
			if s[i:i+len(sub)] == sub {
				return true
			}
		}
		return false
	})()
}
