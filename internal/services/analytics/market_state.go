package analytics

import (
	"math"
	"sync"

	"ZonePulse/internal/domain/models"
	applogger "ZonePulse/pkg/logger"
)

const maxTrades = 1000

// MarketState is the bounded rolling window of market data for one
// (symbol, timeframe). Candles and trades expire by FIFO eviction only; the
// order book is replaced wholesale per update. Writes come from a single
// pipeline shard by construction; the mutex exists so API reads never observe
// a partially updated window.
type MarketState struct {
	mu          sync.RWMutex
	candles     []models.Candle
	maxCandles  int
	orderbook   models.OrderBookSnapshot
	hasBook     bool
	trades      []models.Trade
	activeZones []*models.Zone
	logger      *applogger.Logger
}

// NewMarketState creates a state with the given candle window capacity.
func NewMarketState(maxCandles int, lgr *applogger.Logger) *MarketState {
	if maxCandles <= 0 {
		maxCandles = 200
	}
	return &MarketState{
		maxCandles: maxCandles,
		candles:    make([]models.Candle, 0, maxCandles),
		logger:     lgr,
	}
}

// AddCandle appends a candle after sanity checks. Invalid candles are dropped
// with a warning, never propagated as an error.
func (m *MarketState) AddCandle(c models.Candle, timeframe string) {
	if !validCandle(c) {
		m.logger.Warn("invalid candle dropped",
			applogger.String("timeframe", timeframe),
			applogger.Float64("open", c.Open),
			applogger.Float64("high", c.High),
			applogger.Float64("low", c.Low),
			applogger.Float64("close", c.Close),
			applogger.Float64("volume", c.Volume))
		return
	}

	m.mu.Lock()
	if len(m.candles) >= m.maxCandles {
		copy(m.candles, m.candles[1:])
		m.candles = m.candles[:len(m.candles)-1]
	}
	m.candles = append(m.candles, c)
	m.mu.Unlock()
}

// AddTrade appends a trade to the bounded tape window.
func (m *MarketState) AddTrade(t models.Trade) {
	m.mu.Lock()
	if len(m.trades) >= maxTrades {
		copy(m.trades, m.trades[1:])
		m.trades = m.trades[:len(m.trades)-1]
	}
	m.trades = append(m.trades, t)
	m.mu.Unlock()
}

// SetOrderBook replaces the order-book snapshot.
func (m *MarketState) SetOrderBook(ob models.OrderBookSnapshot) {
	m.mu.Lock()
	m.orderbook = ob
	m.hasBook = true
	m.mu.Unlock()
}

// Candles returns a copy of the candle window, oldest first.
func (m *MarketState) Candles() []models.Candle {
	m.mu.RLock()
	out := make([]models.Candle, len(m.candles))
	copy(out, m.candles)
	m.mu.RUnlock()
	return out
}

// LastCandles returns a copy of the most recent n candles.
func (m *MarketState) LastCandles(n int) []models.Candle {
	m.mu.RLock()
	if n > len(m.candles) {
		n = len(m.candles)
	}
	out := make([]models.Candle, n)
	copy(out, m.candles[len(m.candles)-n:])
	m.mu.RUnlock()
	return out
}

// CandleCount returns the current window length.
func (m *MarketState) CandleCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.candles)
}

// OrderBook returns the current snapshot and whether one has been set.
func (m *MarketState) OrderBook() (models.OrderBookSnapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.orderbook, m.hasBook
}

// RecentTrades returns a copy of the trade tape window.
func (m *MarketState) RecentTrades() []models.Trade {
	m.mu.RLock()
	out := make([]models.Trade, len(m.trades))
	copy(out, m.trades)
	m.mu.RUnlock()
	return out
}

// SetActiveZones replaces the active zone list wholesale; zone contents are
// preserved across passes by the detector's identity matching.
func (m *MarketState) SetActiveZones(zones []*models.Zone) {
	m.mu.Lock()
	m.activeZones = zones
	m.mu.Unlock()
}

// ActiveZones returns the current active zone list.
func (m *MarketState) ActiveZones() []*models.Zone {
	m.mu.RLock()
	out := make([]*models.Zone, len(m.activeZones))
	copy(out, m.activeZones)
	m.mu.RUnlock()
	return out
}

func validCandle(c models.Candle) bool {
	for _, v := range [5]float64{c.Open, c.High, c.Low, c.Close, c.Volume} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	if c.Open <= 0 || c.High <= 0 || c.Low <= 0 || c.Close <= 0 || c.Volume < 0 {
		return false
	}
	if c.High < c.Low {
		return false
	}
	if c.High < math.Max(c.Open, c.Close) || c.Low > math.Min(c.Open, c.Close) {
		return false
	}
	return true
}
