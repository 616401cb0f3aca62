package domain

// Fine-grained timeframes stop being tracked once an asset is old
// enough: upstream aggregators cap 1m/15m history, so continuing to
// fetch and validate them would only report false gaps.
const (
	Skip1mAfterDays  = 30
	Skip15mAfterDays = 90
)

const daySeconds = 86400

// SkipsTimeframe reports whether a timeframe is exempt for this asset
// at the given instant, either by config or by age.
func (a *Asset) SkipsTimeframe(tf Timeframe, now int64) bool {
	for _, s := range a.SkipTimeframes {
		if s == tf {
			return true
		}
	}
	ageDays := (now - a.LaunchDate) / daySeconds
	switch tf {
	case Timeframe1m:
		return ageDays > Skip1mAfterDays
	case Timeframe15m:
		return ageDays > Skip15mAfterDays
	}
	return false
}

// ActiveTimeframes returns the timeframes to fetch and validate for
// this asset at the given instant, in preference order.
func (a *Asset) ActiveTimeframes(now int64) []Timeframe {
	var active []Timeframe
	for _, tf := range TimeframePreference {
		if !a.SkipsTimeframe(tf, now) {
			active = append(active, tf)
		}
	}
	return active
}
