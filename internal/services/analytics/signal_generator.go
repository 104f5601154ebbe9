package analytics

import (
	"time"

	"ZonePulse/internal/domain/models"
)

const minSignalQuality = 40.0

// SignalGeneratorConfig tunes signal emission.
type SignalGeneratorConfig struct {
	MinConfidence float64
}

// SignalGenerator turns a confirmed zone interaction into a trading signal.
// A rejection requires the previous candle to have touched the zone band on
// the zone's side and the latest close to be moving away from it.
type SignalGenerator struct {
	cfg SignalGeneratorConfig
	now func() time.Time
}

// NewSignalGenerator creates a generator.
func NewSignalGenerator(cfg SignalGeneratorConfig) *SignalGenerator {
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = 0.7
	}
	return &SignalGenerator{cfg: cfg, now: time.Now}
}

// Evaluate inspects the last two candles against each active zone and returns
// the signals that cleared the confidence bar.
func (g *SignalGenerator) Evaluate(symbol, timeframe string, zones []*models.Zone, candles []models.Candle) []*models.TradingSignal {
	if len(candles) < 2 {
		return nil
	}
	prev := candles[len(candles)-2]
	last := candles[len(candles)-1]

	var signals []*models.TradingSignal
	for _, z := range zones {
		quality := z.QualityScore(g.now())
		if quality < minSignalQuality {
			continue
		}
		if !rejectionAt(z, prev, last) {
			continue
		}

		conf := g.confidence(z, quality)
		if conf < g.cfg.MinConfidence {
			continue
		}

		z.SuccessfulRejections++
		signals = append(signals, &models.TradingSignal{
			Symbol:     symbol,
			Timeframe:  timeframe,
			Zone:       z,
			SignalType: models.SignalRejection,
			Confidence: conf,
			Quality:    quality,
			Timestamp:  g.now(),
		})
	}
	return signals
}

func rejectionAt(z *models.Zone, prev, last models.Candle) bool {
	switch z.Type {
	case models.ZoneSupport:
		touched := prev.Low >= z.Low && prev.Low <= z.High
		return touched && last.Close > prev.Close
	case models.ZoneResistance:
		touched := prev.High >= z.Low && prev.High <= z.High
		return touched && last.Close < prev.Close
	}
	return false
}

func (g *SignalGenerator) confidence(z *models.Zone, quality float64) float64 {
	conf := 0.5
	if z.VolumeStrength != nil {
		conf += *z.VolumeStrength * 0.2
	}
	if z.OrderBookStrength != nil {
		conf += *z.OrderBookStrength * 0.15
	}
	if z.AnyConfirmedTF() {
		conf += 0.15
	}
	conf += quality / 100 * 0.1
	if conf > 1 {
		conf = 1
	}
	return conf
}
