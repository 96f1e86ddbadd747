package metrics

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// Metrics is the set of process-wide counters served at /api/metrics.
// Fields are updated with sync/atomic only.
type Metrics struct {
	// TelemetryBatchesTotal counts every ingest call that reached validation.
	TelemetryBatchesTotal int64

	// TelemetryEventsAcceptedTotal counts events durably written, not batches.
	TelemetryEventsAcceptedTotal int64

	// TelemetryBatchesRejectedTotal counts batches refused with a 400.
	TelemetryBatchesRejectedTotal int64

	// TelemetryStoreErrorsTotal counts event store failures on either path.
	TelemetryStoreErrorsTotal int64

	// AnalyticsQueriesTotal counts analytics and realtime reports served.
	AnalyticsQueriesTotal int64

	// ArchiveUploadsTotal counts batches copied to S3.
	ArchiveUploadsTotal int64

	// ArchiveErrorsTotal counts archive attempts that failed after all retries,
	// plus batches dropped because the archive queue was full.
	ArchiveErrorsTotal int64
}

func New() *Metrics {
	return &Metrics{}
}

func (m *Metrics) String() string {
	var sb strings.Builder
	sb.Grow(256)

	fmt.Fprintf(&sb, "telemetry_batches_total=%d\n", atomic.LoadInt64(&m.TelemetryBatchesTotal))
	fmt.Fprintf(&sb, "telemetry_events_accepted_total=%d\n", atomic.LoadInt64(&m.TelemetryEventsAcceptedTotal))
	fmt.Fprintf(&sb, "telemetry_batches_rejected_total=%d\n", atomic.LoadInt64(&m.TelemetryBatchesRejectedTotal))
	fmt.Fprintf(&sb, "telemetry_store_errors_total=%d\n", atomic.LoadInt64(&m.TelemetryStoreErrorsTotal))

	fmt.Fprintf(&sb, "analytics_queries_total=%d\n", atomic.LoadInt64(&m.AnalyticsQueriesTotal))

	fmt.Fprintf(&sb, "archive_uploads_total=%d\n", atomic.LoadInt64(&m.ArchiveUploadsTotal))
	fmt.Fprintf(&sb, "archive_errors_total=%d\n", atomic.LoadInt64(&m.ArchiveErrorsTotal))

	return sb.String()
}
