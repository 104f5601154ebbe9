package util

import (
    "strconv"
    "time"
)

// ParseTime tries RFC3339, RFC3339Nano, and unix seconds. Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
    if s == "" {
        return time.Time{}, false
    }
    if t, err := time.Parse(time.RFC3339, s); err == nil {
        return t, true
    }
    if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
        return t, true
    }
    if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
        return time.Unix(ts, 0), true
    }
    return time.Time{}, false
}

// ParseTimeDefault parses time or returns default if empty/invalid.
func ParseTimeDefault(s string, def time.Time) time.Time {
    if t, ok := ParseTime(s); ok {
        return t
    }
    return def
}

// AlignFromTo rounds both ends of a time range down to the timeframe's
// candle boundary. Timeframes are minute counts ("1", "5", "60"); anything
// unparsable aligns to one minute.
func AlignFromTo(from, to time.Time, tf string) (time.Time, time.Time) {
    minutes, err := strconv.Atoi(tf)
    if err != nil || minutes <= 0 {
        minutes = 1
    }
    d := time.Duration(minutes) * time.Minute
    return from.Truncate(d), to.Truncate(d)
}
