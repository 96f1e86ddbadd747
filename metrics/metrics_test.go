package metrics

import (
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStringListsEveryCounter(t *testing.T) {
	m := New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			atomic.AddInt64(&m.TelemetryBatchesTotal, 1)
			atomic.AddInt64(&m.TelemetryEventsAcceptedTotal, 3)
		}()
	}
	wg.Wait()
	atomic.AddInt64(&m.ArchiveErrorsTotal, 2)

	out := m.String()
	assert.Contains(t, out, "telemetry_batches_total=50\n")
	assert.Contains(t, out, "telemetry_events_accepted_total=150\n")
	assert.Contains(t, out, "archive_errors_total=2\n")
	assert.Contains(t, out, "analytics_queries_total=0\n")
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 7)
}
