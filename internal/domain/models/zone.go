package models

import (
	"math"
	"time"
)

// ZoneType classifies a price zone.
type ZoneType string

const (
	ZoneSupport    ZoneType = "support"
	ZoneResistance ZoneType = "resistance"
)

// statEpsilon floors standard deviations so z-scores never divide by zero.
const statEpsilon = 0.001

// StatisticalMetrics carries validation results for a zone. Decay and recency
// are derived on read, never stored.
type StatisticalMetrics struct {
	PValue     float64   `json:"p_value"`
	Confidence float64   `json:"confidence"`
	ZScore     float64   `json:"z_score"`
	TouchesStd float64   `json:"touches_std"`
	Created    time.Time `json:"created"`
	LastTouch  time.Time `json:"last_touch"`
}

// DecayFactor halves every 12 hours of zone age.
func (s *StatisticalMetrics) DecayFactor(now time.Time) float64 {
	ageHours := now.Sub(s.Created).Hours()
	return math.Exp(-math.Ln2 * ageHours / 12.0)
}

// RecencyFactor falls linearly to zero over 24 hours since the last touch.
func (s *StatisticalMetrics) RecencyFactor(now time.Time) float64 {
	hoursSince := now.Sub(s.LastTouch).Hours()
	return math.Max(0, 1.0-hoursSince/24.0)
}

// Zone is a support or resistance price band. Identity is carried by ID across
// detection passes; touch history accretes on the same record instead of being
// rebuilt each cycle.
type Zone struct {
	ID          uint64             `json:"id"`
	Type        ZoneType           `json:"type"`
	Center      float64            `json:"center"`
	Low         float64            `json:"low"`
	High        float64            `json:"high"`
	Touches     int                `json:"touches"`
	TouchPrices []float64          `json:"touch_prices"`
	TouchTimes  []time.Time        `json:"touch_times"`
	Stats       StatisticalMetrics `json:"stats"`

	ConfirmedTF map[string]bool `json:"confirmed_tf"`
	// Strength pointers stay nil until a confirmation exceeds its threshold,
	// so "unset" is distinguishable from a measured zero.
	OrderBookStrength    *float64 `json:"orderbook_strength,omitempty"`
	VolumeStrength       *float64 `json:"volume_strength,omitempty"`
	SuccessfulRejections int      `json:"successful_rejections"`
	FailedBreakouts      int      `json:"failed_breakouts"`
}

// RecordTouch appends a touch and refreshes rolling statistics over the last
// 20 touch prices.
func (z *Zone) RecordTouch(price float64, at time.Time) {
	z.TouchPrices = append(z.TouchPrices, price)
	z.TouchTimes = append(z.TouchTimes, at)
	z.Touches++
	z.Stats.LastTouch = at

	if len(z.TouchPrices) < 3 {
		return
	}
	recent := z.TouchPrices
	if len(recent) > 20 {
		recent = recent[len(recent)-20:]
	}
	mean, std := meanStd(recent)
	z.Stats.TouchesStd = std
	if len(z.TouchPrices) > 5 {
		z.Stats.ZScore = math.Abs((price - mean) / math.Max(std, statEpsilon))
	}
}

// Contains reports whether price falls inside the band.
func (z *Zone) Contains(price float64) bool {
	return price >= z.Low && price <= z.High
}

// TouchedBy reports whether the candle's range intersects the band.
func (z *Zone) TouchedBy(c Candle) bool {
	return z.Contains(c.Low) || z.Contains(c.High)
}

// AnyConfirmedTF reports whether at least one auxiliary timeframe confirmed.
func (z *Zone) AnyConfirmedTF() bool {
	for _, ok := range z.ConfirmedTF {
		if ok {
			return true
		}
	}
	return false
}

// QualityScore is the composite 0-100 reliability rating, recomputed on read.
func (z *Zone) QualityScore(now time.Time) float64 {
	score := math.Min(float64(z.Touches)*8, 20)

	switch {
	case z.Stats.Confidence > 0.95:
		score += 20
	case z.Stats.Confidence > 0.9:
		score += 10
	}

	if len(z.ConfirmedTF) > 0 {
		confirmed := 0
		for _, ok := range z.ConfirmedTF {
			if ok {
				confirmed++
			}
		}
		score += float64(confirmed) / float64(len(z.ConfirmedTF)) * 15
	}

	if z.OrderBookStrength != nil {
		score += math.Min(*z.OrderBookStrength*10, 10)
	}
	if z.VolumeStrength != nil {
		score += math.Min(*z.VolumeStrength*10, 10)
	}

	score += z.Stats.RecencyFactor(now) * 5
	score += z.Stats.DecayFactor(now) * 5

	if z.Touches > 0 {
		winRate := float64(z.SuccessfulRejections) / float64(z.Touches)
		score += winRate * 10
	}

	return math.Min(100.0, math.Max(0, score))
}

// Clone returns a deep copy safe to hand to readers outside the analysis
// goroutine.
func (z *Zone) Clone() *Zone {
	c := *z
	c.TouchPrices = append([]float64(nil), z.TouchPrices...)
	c.TouchTimes = append([]time.Time(nil), z.TouchTimes...)
	c.ConfirmedTF = make(map[string]bool, len(z.ConfirmedTF))
	for tf, ok := range z.ConfirmedTF {
		c.ConfirmedTF[tf] = ok
	}
	if z.OrderBookStrength != nil {
		v := *z.OrderBookStrength
		c.OrderBookStrength = &v
	}
	if z.VolumeStrength != nil {
		v := *z.VolumeStrength
		c.VolumeStrength = &v
	}
	return &c
}

func meanStd(xs []float64) (mean, std float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	for _, x := range xs {
		d := x - mean
		std += d * d
	}
	std = math.Sqrt(std / float64(len(xs)))
	return mean, std
}
