package analytics

import "time"

// Timeframe is a named trailing window accepted by the analytics endpoint.
type Timeframe string

const (
	Timeframe1h  Timeframe = "1h"
	Timeframe24h Timeframe = "24h"
	Timeframe7d  Timeframe = "7d"

	DefaultTimeframe = Timeframe24h
)

// RealtimeWindow is the fixed trailing window of the realtime snapshot.
const RealtimeWindow = 5 * time.Minute

var timeframeDurations = map[Timeframe]time.Duration{
	Timeframe1h:  time.Hour,
	Timeframe24h: 24 * time.Hour,
	Timeframe7d:  7 * 24 * time.Hour,
}

// Clock returns the current instant. Tests substitute a fixed clock.
type Clock func() time.Time

// ResolveWindow maps a timeframe token to the timeframe actually applied and
// its start instant relative to now. Unknown or empty tokens resolve to the
// 24h window rather than failing.
func ResolveWindow(token string, now time.Time) (Timeframe, time.Time) {
	tf := Timeframe(token)
	d, ok := timeframeDurations[tf]
	if !ok {
		tf = DefaultTimeframe
		d = timeframeDurations[tf]
	}
	return tf, now.Add(-d)
}
