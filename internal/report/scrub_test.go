package report

import (
	"strings"
	"testing"

	"github.com/getsentry/sentry-go"
)

func TestScrubAPIKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Get \"https://go.bkk.hu/api/VehiclePositions.pb?key=secret\": timeout", "Get \"https://go.bkk.hu/api/VehiclePositions.pb?key=REDACTED\": timeout"},
		{"https://example.com/feed?format=pb&key=secret&x=1", "https://example.com/feed?format=pb&key=REDACTED&x=1"},
		{"monkey=banana", "monkey=banana"},
		{"no url here", "no url here"},
	}
	for _, tt := range tests {
		if got := scrubAPIKey(tt.in); got != tt.want {
			t.Errorf("scrubAPIKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestScrubEvent(t *testing.T) {
	event := &sentry.Event{
		Message:   "fetch https://feed.example/a.pb?key=secret failed",
		Exception: []sentry.Exception{{Value: "dial https://feed.example/a.pb?key=secret"}},
		Request:   &sentry.Request{URL: "https://feed.example/a.pb?key=secret", QueryString: "key=secret"},
	}

	got := scrubEvent(event, nil)

	for _, s := range []string{got.Message, got.Exception[0].Value, got.Request.URL, got.Request.QueryString} {
		if !strings.Contains(s, "REDACTED") || strings.Contains(s, "secret") {
			t.Errorf("expected the key to be scrubbed, got %q", s)
		}
	}
}

func TestFingerprintFor(t *testing.T) {
	if fp := fingerprintFor(map[string]string{"component": "refresh_cache"}); len(fp) != 2 || fp[1] != "refresh_cache" {
		t.Errorf("unexpected fingerprint %v", fp)
	}
	if fp := fingerprintFor(nil); fp != nil {
		t.Errorf("expected no fingerprint without a component, got %v", fp)
	}
}
