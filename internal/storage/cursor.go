package storage

// DataType identifies which upstream feed a cursor tracks.
type DataType string

// Cursor data types. Candle cursors are per timeframe.
const (
	DataTypePosts DataType = "posts"

	DataTypeCandles1m  DataType = "candles_1m"
	DataTypeCandles15m DataType = "candles_15m"
	DataTypeCandles1h  DataType = "candles_1h"
	DataTypeCandles1d  DataType = "candles_1d"
)

// Cursor records the newest successfully committed position in one
// upstream feed for one asset. It is the resumability contract: after an
// interruption the next fetch restarts from here, re-fetching at most the
// last page (idempotent because the stores upsert).
type Cursor struct {
	AssetID       string
	DataType      DataType
	LastID        string // newest upstream id seen, "" if unset
	LastTimestamp int64  // newest record timestamp seen, 0 if unset
	UpdatedAt     int64  // Unix seconds of the last merge
}

// CursorUpdate is a partial cursor. Nil fields are left untouched on
// merge; non-nil fields only ever move the stored value forward.
type CursorUpdate struct {
	LastID        *string
	LastTimestamp *int64
}

// Apply merges an update into c under the ledger's monotonicity rules
// and reports whether any field regressed (the update carried an older
// value than already stored). Regressions are ignored, not applied.
//
// LastID comparison is by string order, which matches snowflake-style
// upstream ids of equal length; a shorter id is treated as older.
func (c *Cursor) Apply(u CursorUpdate) (regressed bool) {
	if u.LastID != nil && *u.LastID != "" {
		if olderID(*u.LastID, c.LastID) {
			regressed = true
		} else {
			c.LastID = *u.LastID
		}
	}
	if u.LastTimestamp != nil && *u.LastTimestamp != 0 {
		if *u.LastTimestamp < c.LastTimestamp {
			regressed = true
		} else {
			c.LastTimestamp = *u.LastTimestamp
		}
	}
	return regressed
}

// olderID reports whether a is strictly older than b. Empty b means no
// value stored yet, so nothing can be older than it.
func olderID(a, b string) bool {
	if b == "" {
		return false
	}
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}

// CandleDataType returns the cursor data type for a candle timeframe
// name, e.g. "1m" -> candles_1m.
func CandleDataType(timeframe string) DataType {
	return DataType("candles_" + timeframe)
}
