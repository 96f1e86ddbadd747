package analytics

import (
	"context"
	"math"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"balramcms/api/metrics"
	"balramcms/api/models"
)

// TopShopsLimit caps the top_shops list of the analytics report.
const TopShopsLimit = 10

// Aggregator computes reports straight from the event store on every call.
// Nothing is cached between calls.
type Aggregator struct {
	store   EventStore
	metrics *metrics.Metrics
	now     Clock
}

type AggregatorOption func(*Aggregator)

func WithAggregatorClock(c Clock) AggregatorOption {
	return func(a *Aggregator) { a.now = c }
}

func NewAggregator(store EventStore, m *metrics.Metrics, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		store:   store,
		metrics: m,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Report builds the metrics report for the timeframe token. The five store
// reads run concurrently; the first failure cancels the rest and the whole
// report fails. The response echoes the token as given, or the default when
// it is empty, even if an unknown token was read as 24h.
func (a *Aggregator) Report(ctx context.Context, token string) (models.AnalyticsResponse, error) {
	_, start := ResolveWindow(token, a.now().UTC())
	echo := token
	if echo == "" {
		echo = string(DefaultTimeframe)
	}

	var report models.MetricsReport
	g, gctx := errgroup.WithContext(ctx)

	g.Go(a.count(gctx, "count page views", models.EventPageView, start, &report.PageViews))
	g.Go(a.sessions(gctx, "count unique sessions", start, &report.UniqueSessions))
	g.Go(a.count(gctx, "count errors", models.EventError, start, &report.ErrorCount))

	g.Go(func() error {
		avg, err := a.store.AveragePayloadNumber(gctx, models.EventPerformance, models.PayloadPageLoadTime, start)
		if err != nil {
			return &StorageError{Op: "average page load time", Err: err}
		}
		if math.IsNaN(avg) || math.IsInf(avg, 0) {
			avg = 0
		}
		report.AvgLoadTime = avg
		return nil
	})

	g.Go(func() error {
		top, err := a.store.TopPayloadValues(gctx, models.EventShopView, models.PayloadShopName, start, TopShopsLimit)
		if err != nil {
			return &StorageError{Op: "top viewed shops", Err: err}
		}
		report.TopShops = top
		return nil
	})

	if err := g.Wait(); err != nil {
		atomic.AddInt64(&a.metrics.TelemetryStoreErrorsTotal, 1)
		return models.AnalyticsResponse{}, err
	}
	if report.TopShops == nil {
		report.TopShops = []models.TopSubject{}
	}

	atomic.AddInt64(&a.metrics.AnalyticsQueriesTotal, 1)
	return models.AnalyticsResponse{Timeframe: echo, Metrics: report}, nil
}

// count and sessions return errgroup tasks writing into dst. Each task owns
// its own dst, so no locking is needed.
func (a *Aggregator) count(ctx context.Context, op, eventType string, since time.Time, dst *uint64) func() error {
	return func() error {
		n, err := a.store.CountEvents(ctx, eventType, since)
		if err != nil {
			return &StorageError{Op: op, Err: err}
		}
		*dst = n
		return nil
	}
}

func (a *Aggregator) sessions(ctx context.Context, op string, since time.Time, dst *uint64) func() error {
	return func() error {
		n, err := a.store.CountSessions(ctx, since)
		if err != nil {
			return &StorageError{Op: op, Err: err}
		}
		*dst = n
		return nil
	}
}
