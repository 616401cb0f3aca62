package domain

// Timeframe identifies the bucket width of a candle series.
type Timeframe string

// Supported candle timeframes.
const (
	Timeframe1m  Timeframe = "1m"
	Timeframe15m Timeframe = "15m"
	Timeframe1h  Timeframe = "1h"
	Timeframe1d  Timeframe = "1d"
)

// TimeframePreference is the resolution fallback order: the alignment
// engine uses the first timeframe that has any stored data for an asset.
var TimeframePreference = []Timeframe{Timeframe1m, Timeframe15m, Timeframe1h, Timeframe1d}

// intervalSeconds maps each timeframe to its bucket width in seconds.
var intervalSeconds = map[Timeframe]int64{
	Timeframe1m:  60,
	Timeframe15m: 900,
	Timeframe1h:  3600,
	Timeframe1d:  86400,
}

// IntervalSeconds returns the bucket width in seconds, or 0 for an
// unknown timeframe.
func (tf Timeframe) IntervalSeconds() int64 {
	return intervalSeconds[tf]
}

// Valid reports whether tf is one of the supported timeframes.
func (tf Timeframe) Valid() bool {
	_, ok := intervalSeconds[tf]
	return ok
}
