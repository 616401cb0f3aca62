package domain

import (
	"fmt"
	"math"
)

// Candle is one OHLCV aggregate for an (asset, timeframe) series.
// Corresponds to the candles table; primary key (asset_id, timeframe, timestamp).
type Candle struct {
	AssetID   string
	Timeframe Timeframe
	Timestamp int64 // Unix seconds, aligned to the timeframe boundary
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// Validate rejects malformed candles: NaN or negative fields, or an
// OHLC range where low/high do not bound open/close.
func (c *Candle) Validate() error {
	if c.Timestamp <= 0 {
		return fmt.Errorf("candle timestamp must be positive, got %d", c.Timestamp)
	}
	for _, v := range []float64{c.Open, c.High, c.Low, c.Close, c.Volume} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("candle at %d contains non-finite value", c.Timestamp)
		}
		if v < 0 {
			return fmt.Errorf("candle at %d contains negative value", c.Timestamp)
		}
	}
	if c.Low > c.High {
		return fmt.Errorf("candle at %d: low %v > high %v", c.Timestamp, c.Low, c.High)
	}
	if c.Open < c.Low || c.Open > c.High {
		return fmt.Errorf("candle at %d: open %v outside [low, high]", c.Timestamp, c.Open)
	}
	if c.Close < c.Low || c.Close > c.High {
		return fmt.Errorf("candle at %d: close %v outside [low, high]", c.Timestamp, c.Close)
	}
	return nil
}
