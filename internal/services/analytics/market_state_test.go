package analytics

import (
	"math"
	"testing"

	"ZonePulse/internal/domain/models"
	applogger "ZonePulse/pkg/logger"
)

func TestMarketStateCandleEviction(t *testing.T) {
	m := NewMarketState(3, applogger.Nop())
	for i := 0; i < 5; i++ {
		m.AddCandle(flatCandle(i, 100+float64(i)), "1")
	}
	got := m.Candles()
	if len(got) != 3 {
		t.Fatalf("window = %d, want 3", len(got))
	}
	// Oldest two evicted, order preserved.
	if got[0].Low != 102 || got[2].Low != 104 {
		t.Fatalf("window lows = [%v ... %v], want [102 ... 104]", got[0].Low, got[2].Low)
	}
}

func TestMarketStateRejectsInvalidCandles(t *testing.T) {
	cases := []struct {
		name string
		c    models.Candle
	}{
		{"nan close", models.Candle{Open: 100, High: 101, Low: 99, Close: math.NaN(), Volume: 1}},
		{"inf high", models.Candle{Open: 100, High: math.Inf(1), Low: 99, Close: 100, Volume: 1}},
		{"zero open", models.Candle{Open: 0, High: 101, Low: 99, Close: 100, Volume: 1}},
		{"negative volume", models.Candle{Open: 100, High: 101, Low: 99, Close: 100, Volume: -1}},
		{"high below low", models.Candle{Open: 100, High: 98, Low: 99, Close: 100, Volume: 1}},
		{"close above high", models.Candle{Open: 100, High: 101, Low: 99, Close: 102, Volume: 1}},
		{"open below low", models.Candle{Open: 98, High: 101, Low: 99, Close: 100, Volume: 1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := NewMarketState(10, applogger.Nop())
			m.AddCandle(tc.c, "1")
			if n := m.CandleCount(); n != 0 {
				t.Fatalf("candle accepted, count = %d", n)
			}
		})
	}
}

func TestMarketStateAcceptsValidCandle(t *testing.T) {
	m := NewMarketState(10, applogger.Nop())
	m.AddCandle(models.Candle{Open: 100, High: 101, Low: 99, Close: 100.5, Volume: 0}, "1")
	if n := m.CandleCount(); n != 1 {
		t.Fatalf("count = %d, want 1", n)
	}
}

func TestMarketStateTradeEviction(t *testing.T) {
	m := NewMarketState(10, applogger.Nop())
	for i := 0; i < maxTrades+5; i++ {
		m.AddTrade(models.Trade{Price: float64(i), Qty: 1})
	}
	trades := m.RecentTrades()
	if len(trades) != maxTrades {
		t.Fatalf("tape = %d, want %d", len(trades), maxTrades)
	}
	if trades[0].Price != 5 {
		t.Fatalf("oldest trade price = %v, want 5", trades[0].Price)
	}
}

func TestMarketStateOrderBook(t *testing.T) {
	m := NewMarketState(10, applogger.Nop())
	if _, ok := m.OrderBook(); ok {
		t.Fatal("order book reported before any update")
	}
	m.SetOrderBook(models.OrderBookSnapshot{
		Bids: []models.PriceLevel{{Price: 100, Qty: 1}},
	})
	ob, ok := m.OrderBook()
	if !ok || len(ob.Bids) != 1 {
		t.Fatalf("order book = %+v ok=%v", ob, ok)
	}
}

func TestMarketStateLastCandles(t *testing.T) {
	m := NewMarketState(10, applogger.Nop())
	for i := 0; i < 5; i++ {
		m.AddCandle(flatCandle(i, 100), "1")
	}
	if got := m.LastCandles(3); len(got) != 3 {
		t.Fatalf("last 3 = %d candles", len(got))
	}
	if got := m.LastCandles(50); len(got) != 5 {
		t.Fatalf("oversized request = %d candles, want 5", len(got))
	}
}

func TestMarketStateCopiesAreIndependent(t *testing.T) {
	m := NewMarketState(10, applogger.Nop())
	m.AddCandle(flatCandle(0, 100), "1")
	got := m.Candles()
	got[0].Low = 1
	if m.Candles()[0].Low != 100 {
		t.Fatal("reader copy aliases internal window")
	}
}
