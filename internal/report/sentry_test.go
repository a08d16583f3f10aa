package report_test

import (
	"errors"
	"testing"

	"github.com/getsentry/sentry-go"
	"vehicletracker.org/internal/report"
)

func TestSetupSentry(t *testing.T) {
	t.Run("Valid DSN", func(t *testing.T) {
		if err := report.SetupSentry("https://public@sentry.example.com/1", "testing", "test"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		report.FlushSentry()
	})

	t.Run("Empty DSN disables reporting", func(t *testing.T) {
		if err := report.SetupSentry("", "testing", "test"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		report.ReportError(errors.New("ignored"))
		report.FlushSentry()
	})

	t.Run("Invalid DSN", func(t *testing.T) {
		if err := report.SetupSentry("::not-a-dsn", "testing", "test"); err == nil {
			t.Fatal("expected an error for an invalid DSN")
		}
	})
}

func TestReportErrorWithSentryOptionsNilError(t *testing.T) {
	// must not panic
	report.ReportErrorWithSentryOptions(nil, report.SentryReportOptions{
		Tags:  map[string]string{"feed": "vehicle_positions"},
		Level: sentry.LevelWarning,
	})
}
