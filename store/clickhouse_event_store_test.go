package store

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClickHouseWindowStartKeepsMilliseconds(t *testing.T) {
	since := time.Date(2024, 5, 10, 11, 55, 0, 999e6, time.UTC)

	assert.Equal(t, int64(1715342100999), sinceMillis(since))
	assert.Equal(t, sinceMillis(since), sinceMillis(since.In(time.FixedZone("IST", 19800))))
	assert.True(t, strings.HasPrefix(sinceFilter, "timestamp >= fromUnixTimestamp64Milli("))
}
