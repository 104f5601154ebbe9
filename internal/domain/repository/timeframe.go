package repository

import "time"

// Timeframes follow the Bybit kline interval notation: minutes as bare
// numbers ("1", "5", "60", "240").
var timeframeMinutes = map[string]int{
	"1":   1,
	"3":   3,
	"5":   5,
	"15":  15,
	"30":  30,
	"60":  60,
	"120": 120,
	"240": 240,
}

// IsValidTimeframe returns true if tf is a supported timeframe.
func IsValidTimeframe(tf string) bool {
	_, ok := timeframeMinutes[tf]
	return ok
}

// DefaultTimeframe returns the default timeframe.
func DefaultTimeframe() string { return "1" }

// NormalizeTimeframe converts a raw string to a valid timeframe (or default).
func NormalizeTimeframe(s string) string {
	if IsValidTimeframe(s) {
		return s
	}
	return DefaultTimeframe()
}

// TimeframeDuration returns the candle period for tf, zero if unknown.
func TimeframeDuration(tf string) time.Duration {
	return time.Duration(timeframeMinutes[tf]) * time.Minute
}
