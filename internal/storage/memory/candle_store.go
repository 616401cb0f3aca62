package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"pulsetrack/internal/domain"
	"pulsetrack/internal/storage"
)

// CandleStore is an in-memory implementation of storage.CandleStore.
// Each (asset, timeframe) series keeps its timestamps sorted so that
// PriceAsOf is a binary search.
type CandleStore struct {
	mu     sync.RWMutex
	series map[string]*candleSeries
}

type candleSeries struct {
	timestamps []int64 // sorted ASC
	byTS       map[int64]*domain.Candle
}

// NewCandleStore creates a new in-memory candle store.
func NewCandleStore() *CandleStore {
	return &CandleStore{series: make(map[string]*candleSeries)}
}

var _ storage.CandleStore = (*CandleStore)(nil)

func seriesKey(assetID string, timeframe domain.Timeframe) string {
	return fmt.Sprintf("%s|%s", assetID, timeframe)
}

// Upsert validates and stores a batch, last-write-wins per timestamp.
// Malformed candles are counted as rejected and skipped.
func (s *CandleStore) Upsert(_ context.Context, assetID string, timeframe domain.Timeframe, candles []*domain.Candle) (storage.CandleUpsertResult, error) {
	var res storage.CandleUpsertResult
	if assetID == "" || !timeframe.Valid() {
		return res, storage.ErrInvalidInput
	}
	if len(candles) == 0 {
		return res, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := seriesKey(assetID, timeframe)
	ser, ok := s.series[key]
	if !ok {
		ser = &candleSeries{byTS: make(map[int64]*domain.Candle)}
		s.series[key] = ser
	}

	for _, c := range candles {
		if c == nil || c.Validate() != nil {
			res.Rejected++
			continue
		}
		candleCopy := *c
		candleCopy.AssetID = assetID
		candleCopy.Timeframe = timeframe

		if _, exists := ser.byTS[c.Timestamp]; !exists {
			idx := sort.Search(len(ser.timestamps), func(i int) bool {
				return ser.timestamps[i] >= c.Timestamp
			})
			ser.timestamps = append(ser.timestamps, 0)
			copy(ser.timestamps[idx+1:], ser.timestamps[idx:])
			ser.timestamps[idx] = c.Timestamp
		}
		ser.byTS[c.Timestamp] = &candleCopy
		res.Accepted++
	}

	return res, nil
}

// PriceAsOf returns the close of the latest candle with timestamp <= ts.
func (s *CandleStore) PriceAsOf(_ context.Context, assetID string, timeframe domain.Timeframe, ts int64) (float64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ser, ok := s.series[seriesKey(assetID, timeframe)]
	if !ok || len(ser.timestamps) == 0 {
		return 0, false, nil
	}

	// First index with timestamp > ts; the candle before it is the answer.
	idx := sort.Search(len(ser.timestamps), func(i int) bool {
		return ser.timestamps[i] > ts
	})
	if idx == 0 {
		return 0, false, nil
	}
	return ser.byTS[ser.timestamps[idx-1]].Close, true, nil
}

// Range returns min/max timestamps and count of a series.
func (s *CandleStore) Range(_ context.Context, assetID string, timeframe domain.Timeframe) (int64, int64, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ser, ok := s.series[seriesKey(assetID, timeframe)]
	if !ok || len(ser.timestamps) == 0 {
		return 0, 0, 0, nil
	}
	return ser.timestamps[0], ser.timestamps[len(ser.timestamps)-1], len(ser.timestamps), nil
}

// GetByAsset retrieves a full series ordered by timestamp ASC.
func (s *CandleStore) GetByAsset(_ context.Context, assetID string, timeframe domain.Timeframe) ([]*domain.Candle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ser, ok := s.series[seriesKey(assetID, timeframe)]
	if !ok {
		return nil, nil
	}

	result := make([]*domain.Candle, 0, len(ser.timestamps))
	for _, ts := range ser.timestamps {
		candleCopy := *ser.byTS[ts]
		result = append(result, &candleCopy)
	}
	return result, nil
}
