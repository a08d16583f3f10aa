package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"
	"vehicletracker.org/internal/geo"
	"vehicletracker.org/internal/metrics"
	"vehicletracker.org/internal/models"
	"vehicletracker.org/internal/report"
	"vehicletracker.org/internal/utils"
)

// ErrAlreadyStarted is returned by Start when the refresh loop is already running.
var ErrAlreadyStarted = errors.New("refresh cache already started")

// Fetcher produces one vehicle snapshot per call.
type Fetcher interface {
	FetchOnce(ctx context.Context) ([]models.VehicleSnapshot, error)
}

// Listener is called with the new state after successful refreshes. Listeners
// run on their own goroutine, one state at a time, and never hold up a
// refresh. A state superseded before delivery is skipped, so a slow listener
// sees the latest state rather than every one.
// The state is shared between listeners and must not be modified.
type Listener func(state models.CacheState)

// RefreshCache keeps the last good vehicle snapshot and refreshes it in the
// background. Readers never wait on the network: a refresh fetches outside
// the lock and swaps the result in under it.
//
// Vehicles and FetchedAt only change together, on success. A failed refresh
// only sets OK to false and records LastError.
type RefreshCache struct {
	fetcher Fetcher
	logger  *slog.Logger
	now     func() time.Time
	area    *geo.BoundingBox

	started   atomic.Bool
	refreshMu sync.Mutex

	mu    sync.RWMutex
	state models.CacheState

	listenersMu  sync.Mutex
	listeners    []Listener
	pending      chan models.CacheState
	dispatchOnce sync.Once
}

// Option customises a RefreshCache.
type Option func(*RefreshCache)

// WithClock overrides the clock used for FetchedAt.
func WithClock(now func() time.Time) Option {
	return func(c *RefreshCache) {
		c.now = now
	}
}

// WithServiceArea enables the out-of-service-area gauge for each new snapshot.
func WithServiceArea(area *geo.BoundingBox) Option {
	return func(c *RefreshCache) {
		c.area = area
	}
}

// New creates an empty cache. Nothing is fetched until Start or RefreshOnce.
func New(fetcher Fetcher, logger *slog.Logger, opts ...Option) *RefreshCache {
	c := &RefreshCache{
		fetcher: fetcher,
		logger:  logger,
		now:     time.Now,
		state: models.CacheState{
			Vehicles: []models.VehicleSnapshot{},
		},
		pending: make(chan models.CacheState, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OnUpdate registers a listener for successful refreshes.
func (c *RefreshCache) OnUpdate(l Listener) {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()
	c.listeners = append(c.listeners, l)
	c.dispatchOnce.Do(func() {
		go c.dispatch()
	})
}

// Read returns a consistent copy of the current state.
func (c *RefreshCache) Read() models.CacheState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	state := c.state
	state.Vehicles = slices.Clone(c.state.Vehicles)
	return state
}

// Start refreshes once synchronously, then keeps refreshing every interval
// until ctx is cancelled. A failed first refresh is recorded like any other
// failure and does not prevent the loop from starting.
func (c *RefreshCache) Start(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("refresh interval must be positive, got %v", interval)
	}
	if !c.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	_ = c.RefreshOnce(ctx)
	go c.run(ctx, interval)
	return nil
}

func (c *RefreshCache) run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Stopping vehicle refresh loop")
			return
		case <-ticker.C:
			_ = c.RefreshOnce(ctx)
		}
	}
}

// RefreshOnce fetches a new snapshot and updates the state. The error is
// returned for callers that want it; the state already reflects it.
func (c *RefreshCache) RefreshOnce(ctx context.Context) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	start := time.Now()
	vehicles, err := c.fetcher.FetchOnce(ctx)
	metrics.RefreshDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		c.recordFailure(err)
		return err
	}

	if vehicles == nil {
		vehicles = []models.VehicleSnapshot{}
	}
	fetchedAt := c.now().Unix()

	c.mu.Lock()
	c.state = models.CacheState{
		Vehicles:  vehicles,
		FetchedAt: fetchedAt,
		OK:        true,
	}
	state := c.state
	c.mu.Unlock()

	metrics.RefreshTotal.WithLabelValues(metrics.OutcomeSuccess).Inc()
	metrics.FeedOK.Set(1)
	metrics.LastSuccessfulRefresh.Set(float64(fetchedAt))
	quality := metrics.ObserveVehicles(vehicles, c.area)

	c.logger.Debug("Refreshed vehicle snapshot",
		"vehicles", quality.Total,
		"invalid_position", quality.InvalidPosition,
		"out_of_service_area", quality.OutOfServiceArea,
		"without_details", quality.WithoutDetails,
	)

	c.notify(state)
	return nil
}

func (c *RefreshCache) recordFailure(err error) {
	c.mu.Lock()
	c.state.OK = false
	c.state.LastError = err.Error()
	fetchedAt := c.state.FetchedAt
	c.mu.Unlock()

	metrics.RefreshTotal.WithLabelValues(metrics.OutcomeFailure).Inc()
	metrics.FeedOK.Set(0)

	report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
		Tags: utils.MakeMap("component", "refresh_cache"),
		ExtraContext: map[string]interface{}{
			"last_success": fetchedAt,
		},
		Level: sentry.LevelError,
	})
	c.logger.Error("Failed to refresh vehicle snapshot", "error", err, "last_success", fetchedAt)
}

// notify hands state to the dispatcher without blocking, replacing an older
// state that was not delivered yet. Only RefreshOnce calls it, under refreshMu.
func (c *RefreshCache) notify(state models.CacheState) {
	for {
		select {
		case c.pending <- state:
			return
		default:
		}
		select {
		case <-c.pending:
		default:
		}
	}
}

func (c *RefreshCache) dispatch() {
	for state := range c.pending {
		c.listenersMu.Lock()
		listeners := slices.Clone(c.listeners)
		c.listenersMu.Unlock()

		for _, l := range listeners {
			l(state)
		}
	}
}
