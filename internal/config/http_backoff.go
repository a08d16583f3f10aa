package config

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	BaseBackoff   = 500 * time.Millisecond
	MaxBackoff    = 2 * time.Minute
	BackoffFactor = 2.0
	JitterFactor  = 0.5
)

// DoWithBackoff sends req with exponential backoff between attempts.
// Transport errors, 5xx and 429 responses are retried; any other response is
// returned as is. maxRetries <= 0 retries until ctx is done.
func DoWithBackoff(ctx context.Context, client *http.Client, req *http.Request, maxRetries int) (*http.Response, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = BaseBackoff
	policy.MaxInterval = MaxBackoff
	policy.Multiplier = BackoffFactor
	policy.RandomizationFactor = JitterFactor
	policy.MaxElapsedTime = 0

	var b backoff.BackOff = policy
	if maxRetries > 0 {
		b = backoff.WithMaxRetries(policy, uint64(maxRetries))
	}
	b = backoff.WithContext(b, ctx)

	var resp *http.Response
	attempts := 0
	err := backoff.Retry(func() error {
		attempts++
		r, err := client.Do(req.Clone(ctx))
		if err != nil {
			return err
		}
		if r.StatusCode >= http.StatusInternalServerError || r.StatusCode == http.StatusTooManyRequests {
			r.Body.Close()
			return fmt.Errorf("%s returned status %d", req.URL.Redacted(), r.StatusCode)
		}
		resp = r
		return nil
	}, b)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("request abandoned after %d attempts: %w", attempts, ctxErr)
		}
		return nil, fmt.Errorf("max retries exceeded after %d attempts: %w", attempts, err)
	}
	return resp, nil
}
