package models

import (
	"math"
	"testing"
)

func TestPositionSizeScalesWithConfidenceAndQuality(t *testing.T) {
	s := &TradingSignal{
		Confidence: 0.9,
		Quality:    80,
		Zone:       &Zone{},
	}

	got := s.PositionSize(0.02)
	want := 0.02 * (0.9 * 2) * 0.8
	if math.Abs(got-want) > 1e-12 {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestPositionSizeTimeframeMultiplier(t *testing.T) {
	s := &TradingSignal{
		Confidence: 0.9,
		Quality:    80,
		Zone:       &Zone{ConfirmedTF: map[string]bool{"5": true}},
	}

	got := s.PositionSize(0.02)
	want := 0.02 * (0.9 * 2) * 0.8 * 1.5
	if math.Abs(got-want) > 1e-12 {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestPositionSizeNeverExceedsTripleRisk(t *testing.T) {
	s := &TradingSignal{
		Confidence: 1.0,
		Quality:    100,
		Zone:       &Zone{ConfirmedTF: map[string]bool{"5": true, "15": true}},
	}

	if got := s.PositionSize(0.02); got > 0.02*3+1e-12 {
		t.Fatalf("position size %v exceeds cap", got)
	}
}

func TestPositionSizeNilZone(t *testing.T) {
	s := &TradingSignal{Confidence: 0.8, Quality: 50}

	got := s.PositionSize(0.02)
	want := 0.02 * (0.8 * 2) * 0.5
	if math.Abs(got-want) > 1e-12 {
		t.Fatalf("expected %v, got %v", want, got)
	}
}
