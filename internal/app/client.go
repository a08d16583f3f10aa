package app

import (
	"net"
	"net/http"
	"strconv"
	"time"

	"vehicletracker.org/internal/config"
	"vehicletracker.org/internal/metrics"
)

// latencyTrackingRoundTripper records the duration of every upstream request
// in metrics.OutgoingLatency and sets the User-Agent.
type latencyTrackingRoundTripper struct {
	next      http.RoundTripper
	userAgent string
}

func (rt *latencyTrackingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if rt.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", rt.userAgent)
	}

	start := time.Now()
	resp, err := rt.next.RoundTrip(req)
	duration := time.Since(start).Seconds()

	status := "error"
	if err == nil && resp != nil {
		status = strconv.Itoa(resp.StatusCode)
	}

	// The query string carries the API key and is never used as a label.
	safeURL := req.URL.Scheme + "://" + req.URL.Host + req.URL.Path

	metrics.OutgoingLatency.WithLabelValues(safeURL, req.Method, status).Observe(duration)
	return resp, err
}

// NewPooledClient returns the client shared by the refresh loop, the trip
// detail queries and the static bundle download.
//
// Requests go to the same upstream host every RefreshInterval, so idle
// connections are kept for longer than that and reused.
func NewPooledClient(version string) *http.Client {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: 5 * time.Second,
	}

	return &http.Client{
		Transport: &latencyTrackingRoundTripper{
			next:      transport,
			userAgent: "vehicletracker/" + version,
		},
		Timeout: config.RequestTimeout,
	}
}
