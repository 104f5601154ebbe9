package usecase

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"ZonePulse/internal/domain/models"
	applogger "ZonePulse/pkg/logger"
)

func klineEvent(symbol, tf string, startMs int64, confirm bool) *models.MarketEvent {
	payload, _ := json.Marshal([]map[string]interface{}{{
		"start":   startMs,
		"open":    "100",
		"high":    "101",
		"low":     "99",
		"close":   "100.5",
		"volume":  "12.5",
		"confirm": confirm,
	}})
	return &models.MarketEvent{
		Topic:    "kline." + tf + "." + symbol,
		Payload:  payload,
		Received: time.Now(),
	}
}

func newTestAnalyzer(cfg AnalyzerConfig) (*SymbolAnalyzer, *captureSink) {
	sink := &captureSink{}
	disp := NewSignalDispatcher(sink, newStubMetrics(), applogger.Nop(), 16)
	a := NewSymbolAnalyzer(cfg, disp, nil, newStubMetrics(), applogger.Nop())
	return a, sink
}

func TestHandleKlineStoresConfirmedCandle(t *testing.T) {
	a, _ := newTestAnalyzer(testAnalyzerConfig())
	a.Handle(context.Background(), klineEvent("BTCUSDT", "1", 1000, true))

	ts := a.symbols["BTCUSDT"].perTF["1"]
	if n := ts.state.CandleCount(); n != 1 {
		t.Fatalf("candles = %d, want 1", n)
	}
}

func TestHandleKlineSkipsUnconfirmed(t *testing.T) {
	a, _ := newTestAnalyzer(testAnalyzerConfig())
	a.Handle(context.Background(), klineEvent("BTCUSDT", "1", 1000, false))

	if n := a.symbols["BTCUSDT"].perTF["1"].state.CandleCount(); n != 0 {
		t.Fatalf("candles = %d, want 0", n)
	}
}

func TestHandleUnknownSymbolIgnored(t *testing.T) {
	metrics := newStubMetrics()
	disp := NewSignalDispatcher(&captureSink{}, metrics, applogger.Nop(), 16)
	a := NewSymbolAnalyzer(testAnalyzerConfig(), disp, nil, metrics, applogger.Nop())

	a.Handle(context.Background(), klineEvent("DOGEUSDT", "1", 1000, true))
	if got := metrics.errorCount("unknown_symbol"); got != 1 {
		t.Fatalf("unknown_symbol errors = %d, want 1", got)
	}
}

func TestHandleUnknownTimeframeIgnored(t *testing.T) {
	metrics := newStubMetrics()
	disp := NewSignalDispatcher(&captureSink{}, metrics, applogger.Nop(), 16)
	a := NewSymbolAnalyzer(testAnalyzerConfig(), disp, nil, metrics, applogger.Nop())

	a.Handle(context.Background(), klineEvent("BTCUSDT", "240", 1000, true))
	if got := metrics.errorCount("unknown_timeframe"); got != 1 {
		t.Fatalf("unknown_timeframe errors = %d, want 1", got)
	}
}

func TestAnalysisCadenceGating(t *testing.T) {
	cfg := testAnalyzerConfig()
	cfg.AnalysisInterval = func(string) time.Duration { return 5 * time.Second }
	a, _ := newTestAnalyzer(cfg)

	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return clock }

	a.Handle(context.Background(), klineEvent("BTCUSDT", "1", 1000, true))
	ts := a.symbols["BTCUSDT"].perTF["1"]
	first := ts.lastRun
	if first.IsZero() {
		t.Fatal("first analysis did not run")
	}

	// One second later: inside the cadence window, no new pass.
	clock = clock.Add(time.Second)
	a.Handle(context.Background(), klineEvent("BTCUSDT", "1", 61000, true))
	if !ts.lastRun.Equal(first) {
		t.Fatal("analysis ran inside cadence window")
	}

	// Past the interval: a new pass runs.
	clock = clock.Add(5 * time.Second)
	a.Handle(context.Background(), klineEvent("BTCUSDT", "1", 121000, true))
	if ts.lastRun.Equal(first) {
		t.Fatal("analysis did not run after interval elapsed")
	}
}

func TestHandleOrderBookSnapshot(t *testing.T) {
	a, _ := newTestAnalyzer(testAnalyzerConfig())
	payload := json.RawMessage(`{"s":"BTCUSDT","b":[["100.0","2.5"]],"a":[["101.0","1.0"]]}`)
	a.Handle(context.Background(), &models.MarketEvent{
		Topic:   "orderbook.50.BTCUSDT",
		Type:    "snapshot",
		Payload: payload,
	})

	ob, ok := a.symbols["BTCUSDT"].perTF["1"].state.OrderBook()
	if !ok {
		t.Fatal("order book not propagated")
	}
	if len(ob.Bids) != 1 || ob.Bids[0].Price != 100 {
		t.Fatalf("bids = %+v", ob.Bids)
	}
}

func TestHandleOrderBookDeltaBeforeSnapshotIgnored(t *testing.T) {
	a, _ := newTestAnalyzer(testAnalyzerConfig())
	payload := json.RawMessage(`{"s":"BTCUSDT","b":[["100.0","2.5"]],"a":[]}`)
	a.Handle(context.Background(), &models.MarketEvent{
		Topic:   "orderbook.50.BTCUSDT",
		Type:    "delta",
		Payload: payload,
	})

	if _, ok := a.symbols["BTCUSDT"].perTF["1"].state.OrderBook(); ok {
		t.Fatal("delta before snapshot produced a book")
	}
}

func TestHandlePublicTrade(t *testing.T) {
	a, _ := newTestAnalyzer(testAnalyzerConfig())
	payload := json.RawMessage(`[{"T":1672304486865,"s":"BTCUSDT","S":"Buy","v":"0.5","p":"100.5"}]`)
	a.Handle(context.Background(), &models.MarketEvent{
		Topic:   "publicTrade.BTCUSDT",
		Payload: payload,
	})

	trades := a.symbols["BTCUSDT"].perTF["1"].state.RecentTrades()
	if len(trades) != 1 || trades[0].Price != 100.5 {
		t.Fatalf("trades = %+v", trades)
	}
}

func TestActiveZonesAccessor(t *testing.T) {
	a, _ := newTestAnalyzer(testAnalyzerConfig())
	if z := a.ActiveZones("BTCUSDT", "1"); len(z) != 0 {
		t.Fatalf("zones = %v, want none before any analysis", z)
	}
	if z := a.ActiveZones("DOGEUSDT", "1"); z != nil {
		t.Fatal("zones for untracked symbol")
	}
	if n := a.ZoneCount(); n != 0 {
		t.Fatalf("zone count = %d, want 0", n)
	}
}
