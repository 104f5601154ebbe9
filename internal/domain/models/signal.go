package models

import (
	"math"
	"time"
)

// SignalType classifies an emitted trading signal.
type SignalType string

const (
	SignalBreakout      SignalType = "breakout"
	SignalRejection     SignalType = "rejection"
	SignalFalseBreakout SignalType = "false_breakout"
)

// TradingSignal is an emitted trading opportunity. Immutable once created; the
// zone reference is shared and read-only. Quality is the zone's quality score
// frozen at emission time.
type TradingSignal struct {
	Symbol     string     `json:"symbol"`
	Timeframe  string     `json:"timeframe"`
	Zone       *Zone      `json:"zone"`
	SignalType SignalType `json:"signal_type"`
	Confidence float64    `json:"confidence"`
	Quality    float64    `json:"quality"`
	Timestamp  time.Time  `json:"timestamp"`
}

// PositionSize returns the account fraction to risk on this signal, capped at
// three times the base risk.
func (s *TradingSignal) PositionSize(accountRisk float64) float64 {
	confidenceMult := s.Confidence * 2
	qualityMult := s.Quality / 100

	tfMult := 1.0
	if s.Zone != nil && s.Zone.AnyConfirmedTF() {
		tfMult = 1.5
	}

	size := accountRisk * confidenceMult * qualityMult * tfMult
	return math.Min(size, accountRisk*3)
}
