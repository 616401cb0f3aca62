package domain

// AlignedEvent is one post joined with the price prevailing at and after
// its timestamp. Derived on demand from the candle and post stores, never
// persisted authoritatively.
type AlignedEvent struct {
	PostID    string
	AssetID   string
	Timestamp int64 // post created_at, Unix seconds
	Text      string

	Likes       int
	Reposts     int
	Replies     int
	Impressions int

	// Timeframe the prices were resolved against (fallback policy result).
	Timeframe Timeframe

	// Prices are nil when no candle exists at or before the lookup time.
	PriceAtEvent *float64
	PriceAfter1  *float64 // price at Timestamp + first offset
	PriceAfter2  *float64 // price at Timestamp + second offset

	// Percent changes relative to PriceAtEvent; nil unless both prices
	// are present and PriceAtEvent is non-zero.
	Change1Pct *float64
	Change2Pct *float64
}
