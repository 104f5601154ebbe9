package analytics

import (
	"math"
	"time"

	"ZonePulse/internal/domain/models"
	applogger "ZonePulse/pkg/logger"
)

const (
	pivotWing   = 3
	tTestWindow = 100
)

// DetectorConfig carries the zone detection tunables.
type DetectorConfig struct {
	TolerancePct float64 // relative clustering tolerance, e.g. 0.003
	WidthPct     float64 // zone half-width as percent of price, e.g. 0.5
	MinTouches   int
	MaxPValue    float64
}

// ZoneDetector owns the persistent zone registry for one (symbol, timeframe).
// Zones keep their identity across passes: pivots cluster into existing zones
// by nearest center within tolerance, new zones are created otherwise, and
// stale or statistically insignificant zones are pruned.
type ZoneDetector struct {
	cfg      DetectorConfig
	logger   *applogger.Logger
	zones    map[uint64]*models.Zone
	nextID   uint64
	lastEval time.Time
	now      func() time.Time
}

// NewZoneDetector creates a detector with an empty registry.
func NewZoneDetector(cfg DetectorConfig, lgr *applogger.Logger) *ZoneDetector {
	if cfg.TolerancePct <= 0 {
		cfg.TolerancePct = 0.003
	}
	if cfg.WidthPct <= 0 {
		cfg.WidthPct = 0.5
	}
	if cfg.MinTouches <= 0 {
		cfg.MinTouches = 3
	}
	if cfg.MaxPValue <= 0 {
		cfg.MaxPValue = 0.1
	}
	return &ZoneDetector{
		cfg:    cfg,
		logger: lgr,
		zones:  make(map[uint64]*models.Zone),
		nextID: 1,
		now:    time.Now,
	}
}

type pivot struct {
	price float64
	ts    time.Time
	kind  models.ZoneType
}

// Detect runs one detection pass over the candle window and returns the
// active zones: enough touches and, once testable, statistically significant.
// Candles already evaluated in a previous pass are skipped so a touch is
// counted exactly once.
func (d *ZoneDetector) Detect(candles []models.Candle) []*models.Zone {
	if len(candles) < 2*pivotWing+1 {
		return nil
	}

	for _, pv := range d.findPivots(candles) {
		d.absorb(pv)
	}
	// High-water mark: the newest candle that could have been a pivot center
	// this pass. Later candles are re-evaluated next time once they have a
	// full right wing.
	d.lastEval = candles[len(candles)-pivotWing-1].Timestamp

	d.validate(candles)
	d.prune(candles[0].Timestamp)

	return d.active()
}

// Zones returns every registered zone regardless of activity.
func (d *ZoneDetector) Zones() []*models.Zone {
	out := make([]*models.Zone, 0, len(d.zones))
	for _, z := range d.zones {
		out = append(out, z)
	}
	return out
}

func (d *ZoneDetector) findPivots(candles []models.Candle) []pivot {
	var pivots []pivot
	for i := pivotWing; i <= len(candles)-1-pivotWing; i++ {
		c := candles[i]
		if !c.Timestamp.After(d.lastEval) {
			continue
		}
		isLow, isHigh := true, true
		for j := i - pivotWing; j <= i+pivotWing; j++ {
			if j == i {
				continue
			}
			if candles[j].Low <= c.Low {
				isLow = false
			}
			if candles[j].High >= c.High {
				isHigh = false
			}
			if !isLow && !isHigh {
				break
			}
		}
		if isLow {
			pivots = append(pivots, pivot{price: c.Low, ts: c.Timestamp, kind: models.ZoneSupport})
		}
		if isHigh {
			pivots = append(pivots, pivot{price: c.High, ts: c.Timestamp, kind: models.ZoneResistance})
		}
	}
	return pivots
}

// absorb records a pivot as a touch on the nearest matching zone, or creates
// a new zone around it when no zone of the same type lies within tolerance.
func (d *ZoneDetector) absorb(pv pivot) {
	var best *models.Zone
	bestDist := math.MaxFloat64
	for _, z := range d.zones {
		if z.Type != pv.kind {
			continue
		}
		dist := math.Abs(z.Center-pv.price) / pv.price
		if dist <= d.cfg.TolerancePct && dist < bestDist {
			best = z
			bestDist = dist
		}
	}
	if best != nil {
		best.RecordTouch(pv.price, pv.ts)
		return
	}

	half := pv.price * d.cfg.WidthPct * 0.01
	z := &models.Zone{
		ID:          d.nextID,
		Type:        pv.kind,
		Center:      pv.price,
		Low:         pv.price - half,
		High:        pv.price + half,
		ConfirmedTF: make(map[string]bool),
	}
	z.Stats.Created = d.now()
	d.nextID++
	z.RecordTouch(pv.price, pv.ts)
	d.zones[z.ID] = z
}

// validate runs the one-sample t-test of each zone's touch prices against the
// mean close of the recent window and stores the resulting significance.
func (d *ZoneDetector) validate(candles []models.Candle) {
	window := candles
	if len(window) > tTestWindow {
		window = window[len(window)-tTestWindow:]
	}
	closes := make([]float64, len(window))
	for i, c := range window {
		closes[i] = c.Close
	}
	benchmark := mean(closes)

	for _, z := range d.zones {
		if len(z.TouchPrices) < 2 {
			continue
		}
		_, p := oneSampleTTest(z.TouchPrices, benchmark)
		z.Stats.PValue = p
		z.Stats.Confidence = 1 - p
	}
}

// prune drops zones whose last touch fell out of the candle window, and zones
// with enough touches to test that still fail the significance cut.
func (d *ZoneDetector) prune(oldest time.Time) {
	for id, z := range d.zones {
		if z.Stats.LastTouch.Before(oldest) {
			delete(d.zones, id)
			continue
		}
		if z.Touches >= d.cfg.MinTouches && z.Stats.PValue >= d.cfg.MaxPValue {
			d.logger.Debug("zone rejected by significance test",
				applogger.Uint64("zone_id", z.ID),
				applogger.Float64("p_value", z.Stats.PValue))
			delete(d.zones, id)
		}
	}
}

func (d *ZoneDetector) active() []*models.Zone {
	var out []*models.Zone
	for _, z := range d.zones {
		if z.Touches < d.cfg.MinTouches {
			continue
		}
		out = append(out, z)
	}
	return out
}
