// Package stats computes descriptive statistics over aligned events and
// daily candles: post-day versus quiet-day returns, quiet-period price
// impact, and post-activity/price correlation. Pure functions of their
// inputs; heavy computation happens here so consumers just render it.
package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"pulsetrack/internal/domain"
)

const daySeconds = int64(86400)

// Significance threshold for the reported p-values.
const significanceLevel = 0.05

// minSamplesTTest is the minimum size of each group before a t-test is
// attempted.
const minSamplesTTest = 5

// DailyStats compares daily returns on days the founder posted against
// days they did not.
type DailyStats struct {
	PostDayCount     int     `json:"post_day_count"`
	PostDayAvgReturn float64 `json:"post_day_avg_return"`
	PostDayWinRate   float64 `json:"post_day_win_rate"` // percent of post days with a positive return

	QuietDayCount     int     `json:"quiet_day_count"`
	QuietDayAvgReturn float64 `json:"quiet_day_avg_return"`
	QuietDayWinRate   float64 `json:"quiet_day_win_rate"`

	// Welch t-test on the two return samples; nil when either group has
	// fewer than five observations.
	TStatistic  *float64 `json:"t_statistic"`
	PValue      *float64 `json:"p_value"`
	Significant bool     `json:"significant"`
}

// QuietPeriod is a stretch of at least MinGapDays without a post,
// annotated with the price move across it.
type QuietPeriod struct {
	StartTimestamp int64   `json:"start_timestamp"`
	EndTimestamp   int64   `json:"end_timestamp"`
	GapDays        float64 `json:"gap_days"`
	Current        bool    `json:"current"` // still ongoing at the time of computation

	PriceStart *float64 `json:"price_start"`
	PriceEnd   *float64 `json:"price_end"`
	ChangePct  *float64 `json:"change_pct"`
}

// Correlation reports the Pearson correlation between the 7-day rolling
// post count and the daily close.
type Correlation struct {
	Coefficient float64 `json:"coefficient"`
	PValue      float64 `json:"p_value"`
	Significant bool    `json:"significant"`
	SampleSize  int     `json:"sample_size"`
}

// dailyCloses indexes daily candles by their timestamp, sorted.
type dailyCloses struct {
	days   []int64
	closes map[int64]float64
}

func newDailyCloses(candles []*domain.Candle) dailyCloses {
	dc := dailyCloses{closes: make(map[int64]float64, len(candles))}
	for _, c := range candles {
		if _, seen := dc.closes[c.Timestamp]; !seen {
			dc.days = append(dc.days, c.Timestamp)
		}
		dc.closes[c.Timestamp] = c.Close
	}
	sort.Slice(dc.days, func(i, j int) bool { return dc.days[i] < dc.days[j] })
	return dc
}

// ComputeDailyStats buckets each day's return by whether a post
// happened that day and runs a Welch t-test across the two groups.
func ComputeDailyStats(events []*domain.AlignedEvent, daily []*domain.Candle) DailyStats {
	postDays := make(map[int64]bool)
	for _, ev := range events {
		postDays[(ev.Timestamp/daySeconds)*daySeconds] = true
	}

	dc := newDailyCloses(daily)
	var postReturns, quietReturns []float64
	for i := 1; i < len(dc.days); i++ {
		day, prev := dc.days[i], dc.days[i-1]
		prevClose := dc.closes[prev]
		if prevClose <= 0 {
			continue
		}
		ret := (dc.closes[day] - prevClose) / prevClose * 100
		if postDays[(day/daySeconds)*daySeconds] {
			postReturns = append(postReturns, ret)
		} else {
			quietReturns = append(quietReturns, ret)
		}
	}

	s := DailyStats{
		PostDayCount:      len(postReturns),
		PostDayAvgReturn:  meanOrZero(postReturns),
		PostDayWinRate:    winRate(postReturns),
		QuietDayCount:     len(quietReturns),
		QuietDayAvgReturn: meanOrZero(quietReturns),
		QuietDayWinRate:   winRate(quietReturns),
	}

	if len(postReturns) >= minSamplesTTest && len(quietReturns) >= minSamplesTTest {
		tStat, pValue := welchTTest(postReturns, quietReturns)
		s.TStatistic = &tStat
		s.PValue = &pValue
		s.Significant = pValue < significanceLevel
	}
	return s
}

// ComputeQuietPeriods finds gaps of at least minGapDays between
// consecutive posts and the price move across each gap. now closes the
// final, possibly ongoing period.
func ComputeQuietPeriods(events []*domain.AlignedEvent, daily []*domain.Candle, minGapDays float64, now int64) []QuietPeriod {
	if len(events) == 0 {
		return nil
	}

	timestamps := make([]int64, 0, len(events))
	for _, ev := range events {
		timestamps = append(timestamps, ev.Timestamp)
	}
	sort.Slice(timestamps, func(i, j int) bool { return timestamps[i] < timestamps[j] })

	dc := newDailyCloses(daily)
	var periods []QuietPeriod
	for i := 1; i < len(timestamps); i++ {
		gapDays := float64(timestamps[i]-timestamps[i-1]) / float64(daySeconds)
		if gapDays >= minGapDays {
			periods = append(periods, dc.annotate(QuietPeriod{
				StartTimestamp: timestamps[i-1],
				EndTimestamp:   timestamps[i],
				GapDays:        gapDays,
			}))
		}
	}

	last := timestamps[len(timestamps)-1]
	if gapDays := float64(now-last) / float64(daySeconds); gapDays >= minGapDays {
		periods = append(periods, dc.annotate(QuietPeriod{
			StartTimestamp: last,
			EndTimestamp:   now,
			GapDays:        gapDays,
			Current:        true,
		}))
	}
	return periods
}

// annotate fills in the price at each end of a quiet period: the first
// daily close at or after the start, the last at or before the end.
func (dc dailyCloses) annotate(qp QuietPeriod) QuietPeriod {
	for _, day := range dc.days {
		if day >= qp.StartTimestamp {
			price := dc.closes[day]
			qp.PriceStart = &price
			break
		}
	}
	for i := len(dc.days) - 1; i >= 0; i-- {
		if dc.days[i] <= qp.EndTimestamp {
			price := dc.closes[dc.days[i]]
			qp.PriceEnd = &price
			break
		}
	}
	if qp.PriceStart != nil && qp.PriceEnd != nil && *qp.PriceStart != 0 {
		change := (*qp.PriceEnd - *qp.PriceStart) / *qp.PriceStart * 100
		qp.ChangePct = &change
	}
	return qp
}

// ComputeCorrelation correlates the rolling 7-day post count with the
// daily close. Returns nil with fewer than ten daily observations.
func ComputeCorrelation(events []*domain.AlignedEvent, daily []*domain.Candle) *Correlation {
	dc := newDailyCloses(daily)
	if len(dc.days) < 10 {
		return nil
	}

	timestamps := make([]int64, 0, len(events))
	for _, ev := range events {
		timestamps = append(timestamps, ev.Timestamp)
	}

	counts := make([]float64, 0, len(dc.days))
	closes := make([]float64, 0, len(dc.days))
	for _, day := range dc.days {
		weekStart := day - 7*daySeconds
		n := 0
		for _, ts := range timestamps {
			if ts >= weekStart && ts < day {
				n++
			}
		}
		counts = append(counts, float64(n))
		closes = append(closes, dc.closes[day])
	}

	r := stat.Correlation(counts, closes, nil)
	if math.IsNaN(r) {
		return nil
	}
	p := pearsonPValue(r, len(counts))
	return &Correlation{
		Coefficient: r,
		PValue:      p,
		Significant: p < significanceLevel,
		SampleSize:  len(counts),
	}
}

// welchTTest runs a two-sided Welch's t-test, which does not assume
// equal variances between the groups.
func welchTTest(a, b []float64) (tStat, pValue float64) {
	meanA, varA := stat.MeanVariance(a, nil)
	meanB, varB := stat.MeanVariance(b, nil)
	nA, nB := float64(len(a)), float64(len(b))

	se := math.Sqrt(varA/nA + varB/nB)
	if se == 0 {
		return 0, 1
	}
	tStat = (meanA - meanB) / se

	// Welch-Satterthwaite degrees of freedom.
	num := math.Pow(varA/nA+varB/nB, 2)
	den := math.Pow(varA/nA, 2)/(nA-1) + math.Pow(varB/nB, 2)/(nB-1)
	df := num / den

	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	pValue = 2 * dist.CDF(-math.Abs(tStat))
	return tStat, pValue
}

// pearsonPValue converts a Pearson r to a two-sided p-value via the
// t-distribution with n-2 degrees of freedom.
func pearsonPValue(r float64, n int) float64 {
	if n <= 2 || r*r >= 1 {
		return 0
	}
	df := float64(n - 2)
	t := r * math.Sqrt(df/(1-r*r))
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	return 2 * dist.CDF(-math.Abs(t))
}

func meanOrZero(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return stat.Mean(xs, nil)
}

// winRate is the percentage of strictly positive values.
func winRate(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	wins := 0
	for _, x := range xs {
		if x > 0 {
			wins++
		}
	}
	return float64(wins) / float64(len(xs)) * 100
}
