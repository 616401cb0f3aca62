package stats

import (
	"math"
	"testing"

	"pulsetrack/internal/domain"
)

func event(ts int64) *domain.AlignedEvent {
	return &domain.AlignedEvent{PostID: "p", AssetID: "alpha", Timestamp: ts}
}

func dailyCandle(day int64, close float64) *domain.Candle {
	return &domain.Candle{
		AssetID:   "alpha",
		Timeframe: domain.Timeframe1d,
		Timestamp: day * daySeconds,
		Open:      close, High: close, Low: close, Close: close, Volume: 1,
	}
}

func TestComputeDailyStats_Buckets(t *testing.T) {
	// Days 1..5; posts on days 2 and 4. Returns accrue to the day they
	// end on: day2 +10% (post), day3 -10% (quiet), day4 +25% (post),
	// day5 0% (quiet).
	daily := []*domain.Candle{
		dailyCandle(1, 1.0),
		dailyCandle(2, 1.1),
		dailyCandle(3, 0.99),
		dailyCandle(4, 1.2375),
		dailyCandle(5, 1.2375),
	}
	events := []*domain.AlignedEvent{
		event(2*daySeconds + 100),
		event(4*daySeconds + 100),
	}

	s := ComputeDailyStats(events, daily)
	if s.PostDayCount != 2 || s.QuietDayCount != 2 {
		t.Fatalf("counts = %d/%d, want 2/2", s.PostDayCount, s.QuietDayCount)
	}
	if math.Abs(s.PostDayAvgReturn-17.5) > 0.01 {
		t.Errorf("post day avg return = %v, want 17.5", s.PostDayAvgReturn)
	}
	if s.PostDayWinRate != 100 {
		t.Errorf("post day win rate = %v, want 100", s.PostDayWinRate)
	}
	if math.Abs(s.QuietDayAvgReturn-(-5.0)) > 0.01 {
		t.Errorf("quiet day avg return = %v, want -5.0", s.QuietDayAvgReturn)
	}
	if s.QuietDayWinRate != 0 {
		t.Errorf("quiet day win rate = %v, want 0", s.QuietDayWinRate)
	}
	// Too few samples for a t-test.
	if s.TStatistic != nil || s.PValue != nil {
		t.Error("t-test should be absent with fewer than 5 samples per group")
	}
}

func TestComputeDailyStats_TTest(t *testing.T) {
	// Post days consistently up, quiet days consistently down: the test
	// should find a significant difference.
	var daily []*domain.Candle
	var events []*domain.AlignedEvent
	price := 1.0
	daily = append(daily, dailyCandle(0, price))
	for day := int64(1); day <= 20; day++ {
		jitter := float64(day%3) * 0.01
		if day%2 == 0 {
			price *= 1.05 + jitter
			events = append(events, event(day*daySeconds+10))
		} else {
			price *= 0.97 - jitter
		}
		daily = append(daily, dailyCandle(day, price))
	}

	s := ComputeDailyStats(events, daily)
	if s.PostDayCount != 10 || s.QuietDayCount != 10 {
		t.Fatalf("counts = %d/%d, want 10/10", s.PostDayCount, s.QuietDayCount)
	}
	if s.TStatistic == nil || s.PValue == nil {
		t.Fatal("t-test missing")
	}
	if *s.TStatistic <= 0 {
		t.Errorf("t statistic = %v, want positive (post days outperform)", *s.TStatistic)
	}
	if !s.Significant {
		t.Errorf("p-value = %v, want significant", *s.PValue)
	}
}

func TestComputeDailyStats_SkipsZeroBase(t *testing.T) {
	daily := []*domain.Candle{
		dailyCandle(1, 0.0),
		dailyCandle(2, 1.0),
		dailyCandle(3, 1.1),
	}
	s := ComputeDailyStats(nil, daily)
	// Return over day 2 is undefined (zero base) and dropped.
	if s.PostDayCount+s.QuietDayCount != 1 {
		t.Errorf("total returns = %d, want 1", s.PostDayCount+s.QuietDayCount)
	}
}

func TestComputeQuietPeriods(t *testing.T) {
	// Posts on days 1, 2, 3, 10; gap of 7 days, then quiet through day 20.
	events := []*domain.AlignedEvent{
		event(1 * daySeconds),
		event(2 * daySeconds),
		event(3 * daySeconds),
		event(10 * daySeconds),
	}
	var daily []*domain.Candle
	for day := int64(1); day <= 20; day++ {
		daily = append(daily, dailyCandle(day, float64(day)))
	}
	now := 20 * daySeconds

	periods := ComputeQuietPeriods(events, daily, 3, now)
	if len(periods) != 2 {
		t.Fatalf("got %d periods, want 2", len(periods))
	}

	first := periods[0]
	if first.StartTimestamp != 3*daySeconds || first.EndTimestamp != 10*daySeconds {
		t.Errorf("first period = [%d, %d]", first.StartTimestamp, first.EndTimestamp)
	}
	if first.GapDays != 7 {
		t.Errorf("gap days = %v, want 7", first.GapDays)
	}
	if first.Current {
		t.Error("first period should not be current")
	}
	// Price went 3 -> 10 across the gap.
	if first.PriceStart == nil || *first.PriceStart != 3 {
		t.Errorf("price start = %v, want 3", first.PriceStart)
	}
	if first.PriceEnd == nil || *first.PriceEnd != 10 {
		t.Errorf("price end = %v, want 10", first.PriceEnd)
	}
	if first.ChangePct == nil || math.Abs(*first.ChangePct-233.33) > 0.01 {
		t.Errorf("change = %v, want 233.33", first.ChangePct)
	}

	second := periods[1]
	if !second.Current {
		t.Error("second period should be current")
	}
	if second.GapDays != 10 {
		t.Errorf("current gap days = %v, want 10", second.GapDays)
	}
}

func TestComputeQuietPeriods_NoEvents(t *testing.T) {
	if got := ComputeQuietPeriods(nil, nil, 3, 100*daySeconds); got != nil {
		t.Errorf("got %v, want nil", got)
	}
}

func TestComputeCorrelation(t *testing.T) {
	// Price tracks recent post activity exactly: heavy posting weeks
	// have proportionally higher closes.
	var events []*domain.AlignedEvent
	var daily []*domain.Candle
	for day := int64(1); day <= 30; day++ {
		if day <= 15 {
			events = append(events, event(day*daySeconds+10))
			daily = append(daily, dailyCandle(day, 10))
		} else {
			daily = append(daily, dailyCandle(day, 1))
		}
	}

	c := ComputeCorrelation(events, daily)
	if c == nil {
		t.Fatal("correlation missing")
	}
	if c.Coefficient <= 0 {
		t.Errorf("coefficient = %v, want positive", c.Coefficient)
	}
	if c.SampleSize != 30 {
		t.Errorf("sample size = %d, want 30", c.SampleSize)
	}
}

func TestComputeCorrelation_TooFewDays(t *testing.T) {
	daily := []*domain.Candle{dailyCandle(1, 1), dailyCandle(2, 2)}
	if got := ComputeCorrelation(nil, daily); got != nil {
		t.Errorf("got %+v, want nil", got)
	}
}

func TestWelchTTest_IdenticalGroups(t *testing.T) {
	a := []float64{1, 2, 3, 4, 5, 6}
	tStat, p := welchTTest(a, a)
	if tStat != 0 {
		t.Errorf("t = %v, want 0", tStat)
	}
	if p < 0.99 {
		t.Errorf("p = %v, want ~1", p)
	}
}
