package analytics

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"balramcms/api/models"
)

// Snapshot builds the realtime view over the trailing RealtimeWindow. An event
// exactly RealtimeWindow old is still counted.
func (a *Aggregator) Snapshot(ctx context.Context) (models.RealtimeSnapshot, error) {
	now := a.now().UTC()
	start := now.Add(-RealtimeWindow)

	snap := models.RealtimeSnapshot{Timestamp: now.UnixMilli()}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(a.sessions(gctx, "count active sessions", start, &snap.ActiveSessions))
	g.Go(a.count(gctx, "count recent page views", models.EventPageView, start, &snap.PageViews5m))
	g.Go(a.count(gctx, "count recent shop views", models.EventShopView, start, &snap.ShopViews5m))
	g.Go(a.count(gctx, "count recent errors", models.EventError, start, &snap.Errors5m))

	if err := g.Wait(); err != nil {
		atomic.AddInt64(&a.metrics.TelemetryStoreErrorsTotal, 1)
		return models.RealtimeSnapshot{}, err
	}

	atomic.AddInt64(&a.metrics.AnalyticsQueriesTotal, 1)
	return snap, nil
}
