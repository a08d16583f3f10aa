package middleware

import (
	"bytes"
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/expfmt"
)

// CachedPromHandler serves a Prometheus text exposition that is rebuilt every
// ttl in the background instead of on every scrape.
type CachedPromHandler struct {
	gatherer prometheus.Gatherer
	ttl      time.Duration
	live     http.Handler

	mu    sync.RWMutex
	cache []byte
}

// NewCachedPromHandler gathers once right away and then every ttl until ctx
// is cancelled.
func NewCachedPromHandler(ctx context.Context, gatherer prometheus.Gatherer, ttl time.Duration) *CachedPromHandler {
	c := &CachedPromHandler{
		gatherer: gatherer,
		ttl:      ttl,
		live:     promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}),
	}
	c.refresh()

	go c.refreshLoop(ctx)
	return c
}

func (c *CachedPromHandler) refreshLoop(ctx context.Context) {
	ticker := time.NewTicker(c.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.refresh()
		}
	}
}

// refresh re-encodes every metric family. On a gathering error the previous
// exposition is kept.
func (c *CachedPromHandler) refresh() {
	families, err := c.gatherer.Gather()
	if err != nil {
		return
	}

	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return
		}
	}

	c.mu.Lock()
	c.cache = buf.Bytes()
	c.mu.Unlock()
}

// ServeHTTP writes the cached exposition, or gathers live while the cache is empty.
func (c *CachedPromHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c.mu.RLock()
	cache := c.cache
	c.mu.RUnlock()

	if len(cache) == 0 {
		c.live.ServeHTTP(w, r)
		return
	}
	w.Header().Set("Content-Type", string(expfmt.NewFormat(expfmt.TypeTextPlain)))
	_, _ = w.Write(cache)
}
