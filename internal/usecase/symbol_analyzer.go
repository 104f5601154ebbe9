package usecase

import (
	"context"
	"time"

	"ZonePulse/internal/domain/models"
	drepo "ZonePulse/internal/domain/repository"
	"ZonePulse/internal/service/bybit"
	"ZonePulse/internal/services/analytics"
	applogger "ZonePulse/pkg/logger"
)

// AnalyzerConfig carries the per-analyzer tunables.
type AnalyzerConfig struct {
	Symbols          []string
	Timeframes       []string
	Detector         analytics.DetectorConfig
	MinConfidence    float64
	MaxConcurrent    int
	AnalysisInterval func(timeframe string) time.Duration
	CandleCapacity   func(timeframe string) int
	// EmitTimeframes restricts which timeframes produce signals. Zones are
	// still detected on the rest for cross-timeframe confirmation. Empty
	// means all.
	EmitTimeframes []string
}

// tfState is the per-(symbol, timeframe) analysis unit.
type tfState struct {
	state    *analytics.MarketState
	detector *analytics.ZoneDetector
	lastRun  time.Time
}

type symbolState struct {
	book  *bybit.BookState
	perTF map[string]*tfState
}

// SymbolAnalyzer consumes routed market events and runs the zone analysis
// cycle. It is the pipeline's Handler: each symbol is always served by the
// same shard goroutine, so the per-symbol maps need no locking of their own.
// A process-wide semaphore caps how many analysis passes run at once.
type SymbolAnalyzer struct {
	cfg        AnalyzerConfig
	confirm    *analytics.ConfirmationEngine
	signals    *analytics.SignalGenerator
	dispatcher *SignalDispatcher
	history    drepo.HistoryStore
	metrics    drepo.Metrics
	logger     *applogger.Logger

	symbols map[string]*symbolState
	emitTF  map[string]bool
	sem     chan struct{}
	now     func() time.Time
}

// NewSymbolAnalyzer creates an analyzer with one state slot per configured
// (symbol, timeframe) pair.
func NewSymbolAnalyzer(
	cfg AnalyzerConfig,
	dispatcher *SignalDispatcher,
	history drepo.HistoryStore,
	metrics drepo.Metrics,
	lgr *applogger.Logger,
) *SymbolAnalyzer {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 5
	}
	a := &SymbolAnalyzer{
		cfg:        cfg,
		confirm:    analytics.NewConfirmationEngine(),
		signals:    analytics.NewSignalGenerator(analytics.SignalGeneratorConfig{MinConfidence: cfg.MinConfidence}),
		dispatcher: dispatcher,
		history:    history,
		metrics:    metrics,
		logger:     lgr,
		symbols:    make(map[string]*symbolState),
		sem:        make(chan struct{}, cfg.MaxConcurrent),
		now:        time.Now,
	}
	if len(cfg.EmitTimeframes) > 0 {
		a.emitTF = make(map[string]bool, len(cfg.EmitTimeframes))
		for _, tf := range cfg.EmitTimeframes {
			a.emitTF[tf] = true
		}
	}
	for _, sym := range cfg.Symbols {
		ss := &symbolState{
			book:  bybit.NewBookState(0),
			perTF: make(map[string]*tfState),
		}
		for _, tf := range cfg.Timeframes {
			ss.perTF[tf] = &tfState{
				state:    analytics.NewMarketState(cfg.CandleCapacity(tf), lgr),
				detector: analytics.NewZoneDetector(cfg.Detector, lgr),
			}
		}
		a.symbols[sym] = ss
	}
	return a
}

// Handle routes one market event into the owning symbol's state and, on
// kline close, runs the analysis cycle if the timeframe's interval elapsed.
func (a *SymbolAnalyzer) Handle(ctx context.Context, ev *models.MarketEvent) {
	kind, tf, symbol, err := bybit.ParseTopic(ev.Topic)
	if err != nil {
		a.metrics.RecordError("topic")
		a.logger.Warn("unroutable event", applogger.String("topic", ev.Topic))
		return
	}
	ss, ok := a.symbols[symbol]
	if !ok {
		a.metrics.RecordError("unknown_symbol")
		return
	}

	switch kind {
	case bybit.KindKline:
		a.handleKline(ctx, ss, symbol, tf, ev)
	case bybit.KindOrderBook:
		a.handleOrderBook(ss, symbol, ev)
	case bybit.KindTrade:
		a.handleTrades(ss, symbol, ev)
	}
}

func (a *SymbolAnalyzer) handleKline(ctx context.Context, ss *symbolState, symbol, tf string, ev *models.MarketEvent) {
	ts, ok := ss.perTF[tf]
	if !ok {
		a.metrics.RecordError("unknown_timeframe")
		return
	}
	candles, err := bybit.ParseKlines(ev.Payload)
	if err != nil {
		a.metrics.RecordError("kline_decode")
		a.logger.Warn("kline decode failed", applogger.String("symbol", symbol), applogger.Error(err))
		return
	}
	for _, c := range candles {
		ts.state.AddCandle(c, tf)
		a.metrics.RecordEvent("kline", symbol)
		a.metrics.RecordLastPrice(symbol, c.Close)
		if a.history != nil {
			if err := a.history.PushCandle(ctx, symbol, tf, c); err != nil {
				a.metrics.RecordError("history")
				a.logger.Warn("history mirror failed",
					applogger.String("symbol", symbol), applogger.Error(err))
			}
		}
	}
	if len(candles) > 0 {
		a.maybeAnalyze(ctx, ss, symbol, tf, ts)
	}
}

func (a *SymbolAnalyzer) handleOrderBook(ss *symbolState, symbol string, ev *models.MarketEvent) {
	u, err := bybit.ParseOrderBook(ev.Payload)
	if err != nil {
		a.metrics.RecordError("orderbook_decode")
		return
	}
	if ev.Type == "snapshot" {
		ss.book.ApplySnapshot(u)
	} else {
		ss.book.ApplyDelta(u)
	}
	if ss.book.Ready() {
		snap := ss.book.Snapshot()
		for _, ts := range ss.perTF {
			ts.state.SetOrderBook(snap)
		}
	}
	a.metrics.RecordEvent("orderbook", symbol)
}

func (a *SymbolAnalyzer) handleTrades(ss *symbolState, symbol string, ev *models.MarketEvent) {
	trades, err := bybit.ParseTrades(ev.Payload)
	if err != nil {
		a.metrics.RecordError("trade_decode")
		return
	}
	for _, t := range trades {
		for _, ts := range ss.perTF {
			ts.state.AddTrade(t)
		}
	}
	a.metrics.RecordEvent("trade", symbol)
}

// maybeAnalyze runs one analysis pass when the timeframe's cadence allows.
// The semaphore bounds concurrent passes across all shards; the pass itself
// runs inline so the symbol stays single-writer.
func (a *SymbolAnalyzer) maybeAnalyze(ctx context.Context, ss *symbolState, symbol, tf string, ts *tfState) {
	now := a.now()
	if !ts.lastRun.IsZero() && now.Sub(ts.lastRun) < a.cfg.AnalysisInterval(tf) {
		return
	}
	select {
	case a.sem <- struct{}{}:
	case <-ctx.Done():
		return
	}
	defer func() { <-a.sem }()

	ts.lastRun = now
	start := now
	a.analyze(ctx, ss, symbol, tf, ts)
	a.metrics.RecordAnalysisDuration(tf, a.now().Sub(start).Seconds())
}

func (a *SymbolAnalyzer) analyze(ctx context.Context, ss *symbolState, symbol, tf string, ts *tfState) {
	candles := ts.state.Candles()
	zones := ts.detector.Detect(candles)

	crossTF := a.crossWindows(ss, tf)
	book, hasBook := ts.state.OrderBook()
	for _, z := range zones {
		if hasBook {
			a.confirm.ConfirmOrderBook(z, book)
		}
		a.confirm.ConfirmVolume(z, candles)
		if len(crossTF) > 0 {
			a.confirm.ConfirmTimeframes(z, crossTF)
		}
	}

	// Readers outside this goroutine get deep copies; the detector keeps
	// mutating the originals on later passes.
	published := make([]*models.Zone, len(zones))
	for i, z := range zones {
		published[i] = z.Clone()
	}
	ts.state.SetActiveZones(published)
	a.metrics.RecordActiveZones(symbol, tf, len(zones))

	if a.emitTF != nil && !a.emitTF[tf] {
		return
	}
	for _, s := range a.signals.Evaluate(symbol, tf, zones, candles) {
		s.Zone = s.Zone.Clone()
		a.dispatcher.Dispatch(ctx, s)
	}
}

// crossWindows collects the candle windows of every other timeframe of the
// same symbol.
func (a *SymbolAnalyzer) crossWindows(ss *symbolState, except string) map[string][]models.Candle {
	out := make(map[string][]models.Candle, len(ss.perTF)-1)
	for tf, ts := range ss.perTF {
		if tf == except {
			continue
		}
		out[tf] = ts.state.Candles()
	}
	return out
}

// ActiveZones returns the current active zones of one (symbol, timeframe),
// or nil when the pair is not tracked.
func (a *SymbolAnalyzer) ActiveZones(symbol, timeframe string) []*models.Zone {
	ss, ok := a.symbols[symbol]
	if !ok {
		return nil
	}
	ts, ok := ss.perTF[timeframe]
	if !ok {
		return nil
	}
	return ts.state.ActiveZones()
}

// ZoneCount sums active zones across every tracked pair.
func (a *SymbolAnalyzer) ZoneCount() int {
	var n int
	for _, ss := range a.symbols {
		for _, ts := range ss.perTF {
			n += len(ts.state.ActiveZones())
		}
	}
	return n
}

// ZoneCounts breaks active zones down per symbol.
func (a *SymbolAnalyzer) ZoneCounts() map[string]int {
	out := make(map[string]int, len(a.symbols))
	for sym, ss := range a.symbols {
		for _, ts := range ss.perTF {
			out[sym] += len(ts.state.ActiveZones())
		}
	}
	return out
}

// Symbols returns the tracked symbol list.
func (a *SymbolAnalyzer) Symbols() []string {
	out := make([]string, 0, len(a.symbols))
	for sym := range a.symbols {
		out = append(out, sym)
	}
	return out
}
