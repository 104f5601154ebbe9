package usecase

import (
	"context"
	"sync"
	"time"

	"ZonePulse/internal/domain/models"
	"ZonePulse/internal/services/analytics"
)

type stubMetrics struct {
	mu     sync.Mutex
	errors map[string]int
}

func newStubMetrics() *stubMetrics {
	return &stubMetrics{errors: make(map[string]int)}
}

func (m *stubMetrics) RecordEvent(string, string)             {}
func (m *stubMetrics) RecordDrop()                            {}
func (m *stubMetrics) RecordSignal(string, string)            {}
func (m *stubMetrics) RecordQueueDepth(int)                   {}
func (m *stubMetrics) RecordActiveZones(string, string, int)  {}
func (m *stubMetrics) RecordAnalysisDuration(string, float64) {}
func (m *stubMetrics) RecordLastPrice(string, float64)        {}

func (m *stubMetrics) RecordError(kind string) {
	m.mu.Lock()
	m.errors[kind]++
	m.mu.Unlock()
}

func (m *stubMetrics) errorCount(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errors[kind]
}

type captureSink struct {
	mu     sync.Mutex
	pushed []*models.TradingSignal
	err    error
	closed bool
}

func (s *captureSink) Push(_ context.Context, sig *models.TradingSignal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.pushed = append(s.pushed, sig)
	return nil
}

func (s *captureSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *captureSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pushed)
}

func testAnalyzerConfig() AnalyzerConfig {
	return AnalyzerConfig{
		Symbols:          []string{"BTCUSDT"},
		Timeframes:       []string{"1", "5"},
		Detector:         analytics.DetectorConfig{TolerancePct: 0.003, WidthPct: 0.5, MinTouches: 3, MaxPValue: 0.1},
		MinConfidence:    0.7,
		MaxConcurrent:    5,
		AnalysisInterval: func(string) time.Duration { return 0 },
		CandleCapacity:   func(string) int { return 100 },
	}
}
