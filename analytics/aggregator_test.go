package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"balramcms/api/metrics"
	"balramcms/api/models"
)

var reportNow = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

func ev(eventType, session string, age time.Duration, payload map[string]any) models.TelemetryEvent {
	return models.TelemetryEvent{
		EventType: eventType,
		SessionID: session,
		Timestamp: reportNow.Add(-age),
		Payload:   payload,
	}
}

func TestReportComputesMetrics(t *testing.T) {
	s := &memStore{events: []models.TelemetryEvent{
		ev(models.EventPageView, "a", time.Minute, nil),
		ev(models.EventPageView, "a", 2*time.Minute, nil),
		ev(models.EventPageView, "b", 30*time.Minute, nil),
		ev(models.EventPerformance, "c", time.Minute, map[string]any{"page_load_time": float64(100)}),
		ev(models.EventPerformance, "c", time.Minute, map[string]any{"page_load_time": float64(300)}),
		ev(models.EventPerformance, "c", time.Minute, map[string]any{"page_load_time": "slow"}),
		ev(models.EventError, "d", 10*time.Minute, map[string]any{"message": "boom"}),
		ev(models.EventShopView, "a", time.Minute, map[string]any{"shop_name": "Apollo"}),
		ev(models.EventShopView, "b", time.Minute, map[string]any{"shop_name": "Apollo"}),
		ev(models.EventShopView, "b", time.Minute, map[string]any{"shop_name": "Bata"}),
		ev(models.EventShopView, "b", time.Minute, map[string]any{}),
		// one session, three event types
		ev(models.EventPageView, "m", 5*time.Minute, nil),
		ev(models.EventPerformance, "m", 4*time.Minute, map[string]any{"page_load_time": float64(200)}),
		ev(models.EventError, "m", 3*time.Minute, nil),
		// outside 1h
		ev(models.EventPageView, "old", 2*time.Hour, nil),
	}}
	m := metrics.New()
	agg := NewAggregator(s, m, WithAggregatorClock(fixedClock(reportNow)))

	resp, err := agg.Report(context.Background(), "1h")
	require.NoError(t, err)

	assert.Equal(t, "1h", resp.Timeframe)
	assert.EqualValues(t, 4, resp.Metrics.PageViews)
	assert.EqualValues(t, 5, resp.Metrics.UniqueSessions, "session m counts once across its three event types")
	assert.InDelta(t, 200.0, resp.Metrics.AvgLoadTime, 1e-9)
	assert.EqualValues(t, 2, resp.Metrics.ErrorCount)
	assert.Equal(t, []models.TopSubject{{Subject: "Apollo", Views: 2}, {Subject: "Bata", Views: 1}}, resp.Metrics.TopShops)
	assert.EqualValues(t, 1, m.AnalyticsQueriesTotal)

	resp, err = agg.Report(context.Background(), "24h")
	require.NoError(t, err)
	assert.EqualValues(t, 5, resp.Metrics.PageViews)
	assert.EqualValues(t, 6, resp.Metrics.UniqueSessions)
}

func TestReportEmptyStore(t *testing.T) {
	agg := NewAggregator(&memStore{}, metrics.New(), WithAggregatorClock(fixedClock(reportNow)))

	resp, err := agg.Report(context.Background(), "bogus")
	require.NoError(t, err)

	assert.Equal(t, "bogus", resp.Timeframe, "the token is echoed as given")
	assert.Zero(t, resp.Metrics.PageViews)
	assert.Zero(t, resp.Metrics.AvgLoadTime)
	assert.NotNil(t, resp.Metrics.TopShops)
	assert.Empty(t, resp.Metrics.TopShops)
}

func TestReportEchoesDefaultForEmptyToken(t *testing.T) {
	agg := NewAggregator(&memStore{}, metrics.New(), WithAggregatorClock(fixedClock(reportNow)))

	resp, err := agg.Report(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "24h", resp.Timeframe)
}

func TestReportFailsWholeOnAnyRead(t *testing.T) {
	cause := errors.New("clickhouse down")

	stores := map[string]*memStore{
		"page views": {countErr: map[string]error{models.EventPageView: cause}},
		"errors":     {countErr: map[string]error{models.EventError: cause}},
		"sessions":   {sessionErr: cause},
		"average":    {avgErr: cause},
		"top shops":  {topErr: cause},
	}

	for name, s := range stores {
		t.Run(name, func(t *testing.T) {
			m := metrics.New()
			agg := NewAggregator(s, m, WithAggregatorClock(fixedClock(reportNow)))

			resp, err := agg.Report(context.Background(), "24h")
			var sErr *StorageError
			require.ErrorAs(t, err, &sErr)
			assert.ErrorIs(t, err, cause)
			assert.Equal(t, models.AnalyticsResponse{}, resp)
			assert.EqualValues(t, 1, m.TelemetryStoreErrorsTotal)
			assert.EqualValues(t, 0, m.AnalyticsQueriesTotal)
		})
	}
}

func TestSnapshotTrailingFiveMinutes(t *testing.T) {
	s := &memStore{events: []models.TelemetryEvent{
		ev(models.EventPageView, "a", 299*time.Second, nil),
		ev(models.EventPageView, "b", 5*time.Minute, nil),
		ev(models.EventPageView, "c", 301*time.Second, nil),
		ev(models.EventShopView, "a", time.Second, map[string]any{"shop_name": "Apollo"}),
		ev(models.EventError, "d", 6*time.Minute, nil),
	}}
	agg := NewAggregator(s, metrics.New(), WithAggregatorClock(fixedClock(reportNow)))

	snap, err := agg.Snapshot(context.Background())
	require.NoError(t, err)

	assert.Equal(t, reportNow.UnixMilli(), snap.Timestamp)
	assert.EqualValues(t, 2, snap.ActiveSessions)
	assert.EqualValues(t, 2, snap.PageViews5m)
	assert.EqualValues(t, 1, snap.ShopViews5m)
	assert.EqualValues(t, 0, snap.Errors5m)
}

func TestSnapshotStorageFailure(t *testing.T) {
	cause := errors.New("timeout")
	agg := NewAggregator(&memStore{countErr: map[string]error{models.EventShopView: cause}}, metrics.New())

	_, err := agg.Snapshot(context.Background())
	var sErr *StorageError
	require.ErrorAs(t, err, &sErr)
	assert.Equal(t, "count recent shop views", sErr.Op)
}
