package report

import (
	"fmt"
	"regexp"
	"time"

	"github.com/getsentry/sentry-go"
)

// apiKeyParam matches the value of a key query parameter inside any text.
var apiKeyParam = regexp.MustCompile(`([?&]key=)[^&\s"']+`)

// SetupSentry initialises the global Sentry client.
// An empty dsn leaves Sentry disabled; every capture call becomes a no-op.
func SetupSentry(dsn, env, release string) error {
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      env,
		Release:          release,
		EnableTracing:    true,
		Debug:            env == "development",
		TracesSampleRate: 0.2,
		BeforeSend:       scrubEvent,
	}); err != nil {
		return fmt.Errorf("sentry.Init: %w", err)
	}
	if dsn != "" {
		sentry.CaptureMessage("vehicletracker started")
	}
	return nil
}

func FlushSentry() {
	sentry.Flush(2 * time.Second)
}

// scrubEvent removes feed API keys from the event text before it leaves the process.
func scrubEvent(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	event.Message = scrubAPIKey(event.Message)
	for i := range event.Exception {
		event.Exception[i].Value = scrubAPIKey(event.Exception[i].Value)
	}
	if event.Request != nil {
		event.Request.URL = scrubAPIKey(event.Request.URL)
		event.Request.QueryString = scrubAPIKey("?" + event.Request.QueryString)[1:]
	}
	return event
}

func scrubAPIKey(s string) string {
	return apiKeyParam.ReplaceAllString(s, "${1}REDACTED")
}
