package report

import (
	"net/url"
	"os"
	"runtime"

	"github.com/getsentry/sentry-go"
)

// ConfigureScope sets the global tags every event carries. Only the host of
// feedBaseURL is recorded, never its query.
func ConfigureScope(env, version, feedBaseURL string) {
	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("env", env)
		scope.SetTag("app_version", version)
		scope.SetTag("go_version", runtime.Version())
		scope.SetTag("goarch", runtime.GOARCH)
		if u, err := url.Parse(feedBaseURL); err == nil && u.Host != "" {
			scope.SetTag("feed_host", u.Host)
		}
		scope.SetContext("host_info", map[string]interface{}{
			"hostname": getHostname(),
		})
	})
}

func getHostname() string {
	hostname, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return hostname
}

// ReportError reports err at the given level, sentry.LevelError by default.
func ReportError(err error, levels ...sentry.Level) {
	opts := SentryReportOptions{}
	if len(levels) > 0 {
		opts.Level = levels[0]
	}
	ReportErrorWithSentryOptions(err, opts)
}

// SentryReportOptions provides optional data for reporting.
//
// When Tags carries a "component", events of that component are grouped
// together regardless of the error text, so a feed that keeps failing with
// changing messages stays one issue.
type SentryReportOptions struct {
	ExtraContext map[string]interface{}
	Tags         map[string]string
	Level        sentry.Level
}

// ReportErrorWithSentryOptions reports err with the given tags, context and level.
func ReportErrorWithSentryOptions(err error, opts SentryReportOptions) {
	if err == nil {
		return
	}

	sentry.WithScope(func(scope *sentry.Scope) {
		if opts.ExtraContext != nil {
			scope.SetContext("extra", opts.ExtraContext)
		}
		for k, v := range opts.Tags {
			scope.SetTag(k, v)
		}
		if fingerprint := fingerprintFor(opts.Tags); fingerprint != nil {
			scope.SetFingerprint(fingerprint)
		}

		level := opts.Level
		if level == "" {
			level = sentry.LevelError
		}
		scope.SetLevel(level)
		sentry.CaptureException(err)
	})
}

func fingerprintFor(tags map[string]string) []string {
	component, ok := tags["component"]
	if !ok || component == "" {
		return nil
	}
	return []string{"component", component}
}
