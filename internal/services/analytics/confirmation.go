package analytics

import (
	"ZonePulse/internal/domain/models"
)

const (
	bookDepthLevels   = 10
	bookBaselineDepth = 5
	volumeLookback    = 50
	volumeBaseline    = 20
	crossTFLookback   = 20
	confirmThreshold  = 0.3

	orderBookClamp = 3.0
	volumeClamp    = 2.0
)

// ConfirmationEngine measures independent supporting evidence for a zone:
// resting order-book liquidity inside the band, elevated volume on touching
// candles, and agreement from other timeframes. Each check writes its
// normalized strength onto the zone only when it clears the threshold; a nil
// strength means unconfirmed, distinct from a weak reading.
type ConfirmationEngine struct{}

// NewConfirmationEngine creates the engine.
func NewConfirmationEngine() *ConfirmationEngine {
	return &ConfirmationEngine{}
}

// ConfirmOrderBook weighs liquidity resting inside the zone band against the
// book's typical level size and records the strength when meaningful.
func (e *ConfirmationEngine) ConfirmOrderBook(z *models.Zone, ob models.OrderBookSnapshot) {
	inBand := sumInBand(z, ob.Bids, bookDepthLevels) + sumInBand(z, ob.Asks, bookDepthLevels)

	baseline := sumTop(ob.Bids, bookBaselineDepth) + sumTop(ob.Asks, bookBaselineDepth)
	levels := topCount(ob.Bids, bookBaselineDepth) + topCount(ob.Asks, bookBaselineDepth)
	var avg float64
	if levels > 0 {
		avg = baseline / float64(levels)
	}
	if avg <= 0 {
		return
	}

	ratio := inBand / avg
	if ratio > orderBookClamp {
		ratio = orderBookClamp
	}
	strength := ratio / orderBookClamp
	if strength > confirmThreshold {
		z.OrderBookStrength = &strength
	}
}

// ConfirmVolume compares the mean volume of candles that touched the zone in
// the recent window against the baseline mean volume.
func (e *ConfirmationEngine) ConfirmVolume(z *models.Zone, candles []models.Candle) {
	if len(candles) < 10 {
		return
	}
	recent := tail(candles, volumeLookback)

	var touchSum float64
	var touchN int
	for _, c := range recent {
		if z.TouchedBy(c) {
			touchSum += c.Volume
			touchN++
		}
	}
	if touchN == 0 {
		return
	}

	base := tail(candles, volumeBaseline)
	var baseSum float64
	for _, c := range base {
		baseSum += c.Volume
	}
	if baseSum <= 0 {
		return
	}
	avgBase := baseSum / float64(len(base))

	ratio := (touchSum / float64(touchN)) / avgBase
	if ratio > volumeClamp {
		ratio = volumeClamp
	}
	strength := ratio / volumeClamp
	if strength > confirmThreshold {
		z.VolumeStrength = &strength
	}
}

// ConfirmTimeframes checks each auxiliary timeframe for repeated interaction
// with the zone band and records the verdict per timeframe. Timeframes with
// too little data record a negative verdict rather than staying unknown.
func (e *ConfirmationEngine) ConfirmTimeframes(z *models.Zone, windows map[string][]models.Candle) {
	for tf, candles := range windows {
		if len(candles) < 10 {
			z.ConfirmedTF[tf] = false
			continue
		}
		recent := tail(candles, crossTFLookback)
		var touches int
		for _, c := range recent {
			if z.TouchedBy(c) {
				touches++
			}
		}
		z.ConfirmedTF[tf] = touches >= 2
	}
}

func sumInBand(z *models.Zone, levels []models.PriceLevel, depth int) float64 {
	var sum float64
	for i, lv := range levels {
		if i >= depth {
			break
		}
		if lv.Price >= z.Low && lv.Price <= z.High {
			sum += lv.Qty
		}
	}
	return sum
}

func sumTop(levels []models.PriceLevel, depth int) float64 {
	var sum float64
	for i, lv := range levels {
		if i >= depth {
			break
		}
		sum += lv.Qty
	}
	return sum
}

func topCount(levels []models.PriceLevel, depth int) int {
	if len(levels) < depth {
		return len(levels)
	}
	return depth
}

func tail(candles []models.Candle, n int) []models.Candle {
	if len(candles) <= n {
		return candles
	}
	return candles[len(candles)-n:]
}
