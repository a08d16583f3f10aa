package gtfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	remoteGtfs "github.com/jamespfennell/gtfs"
)

// fetchFeed performs a single GET and returns the response body.
// Every failure is reported as ErrNetwork; the API key never appears in the error.
func fetchFeed(ctx context.Context, client *http.Client, feedURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request for %s: %w", ErrNetwork, redactURL(feedURL), redactError(err))
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNetwork, redactError(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned status %d", ErrNetwork, redactURL(feedURL), resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response body from %s: %w", ErrNetwork, redactURL(feedURL), redactError(err))
	}
	return data, nil
}

// decodeRealtime parses a GTFS-RT FeedMessage.
func decodeRealtime(data []byte) (*remoteGtfs.Realtime, error) {
	realtime, err := remoteGtfs.ParseRealtime(data, &remoteGtfs.ParseRealtimeOptions{})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse GTFS-RT feed: %w", ErrDecode, err)
	}
	return realtime, nil
}

// redactURL drops the API key from a feed URL so it can be logged or returned to clients.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<invalid url>"
	}
	q := u.Query()
	if q.Has("key") {
		q.Set("key", "REDACTED")
		u.RawQuery = q.Encode()
	}
	return u.Redacted()
}

func redactError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		urlErr.URL = redactURL(urlErr.URL)
	}
	return err
}
