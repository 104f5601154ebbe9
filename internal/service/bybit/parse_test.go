package bybit

import (
	"encoding/json"
	"testing"
	"time"

	"ZonePulse/internal/domain/models"
)

func TestParseTopic(t *testing.T) {
	cases := []struct {
		topic  string
		kind   TopicKind
		tf     string
		symbol string
		ok     bool
	}{
		{"kline.5.BTCUSDT", KindKline, "5", "BTCUSDT", true},
		{"orderbook.50.ETHUSDT", KindOrderBook, "", "ETHUSDT", true},
		{"publicTrade.SOLUSDT", KindTrade, "", "SOLUSDT", true},
		{"tickers.BTCUSDT", KindUnknown, "", "", false},
		{"", KindUnknown, "", "", false},
	}
	for _, tc := range cases {
		kind, tf, sym, err := ParseTopic(tc.topic)
		if tc.ok != (err == nil) {
			t.Fatalf("%q: err = %v", tc.topic, err)
		}
		if kind != tc.kind || tf != tc.tf || sym != tc.symbol {
			t.Fatalf("%q: got (%v, %q, %q)", tc.topic, kind, tf, sym)
		}
	}
}

func TestParseKlinesConfirmedOnly(t *testing.T) {
	payload := json.RawMessage(`[
		{"start":1672324800000,"open":"16649.5","high":"16677","low":"16608","close":"16677","volume":"2081.611","confirm":true},
		{"start":1672325100000,"open":"16677","high":"16680","low":"16670","close":"16675","volume":"12.5","confirm":false}
	]`)

	candles, err := ParseKlines(payload)
	if err != nil {
		t.Fatalf("ParseKlines: %v", err)
	}
	if len(candles) != 1 {
		t.Fatalf("candles = %d, want 1 (unconfirmed dropped)", len(candles))
	}
	c := candles[0]
	if c.Open != 16649.5 || c.High != 16677 || c.Low != 16608 || c.Close != 16677 || c.Volume != 2081.611 {
		t.Fatalf("candle = %+v", c)
	}
	want := time.UnixMilli(1672324800000).UTC()
	if !c.Timestamp.Equal(want) {
		t.Fatalf("timestamp = %v, want %v", c.Timestamp, want)
	}
}

func TestParseKlinesBadNumber(t *testing.T) {
	payload := json.RawMessage(`[{"start":1,"open":"oops","high":"1","low":"1","close":"1","volume":"1","confirm":true}]`)
	if _, err := ParseKlines(payload); err == nil {
		t.Fatal("want error on malformed numeric string")
	}
}

func TestParseTrades(t *testing.T) {
	payload := json.RawMessage(`[
		{"T":1672304486865,"s":"BTCUSDT","S":"Buy","v":"0.001","p":"16578.50"},
		{"T":1672304486866,"s":"BTCUSDT","S":"Sell","v":"0.5","p":"16578.00"}
	]`)

	trades, err := ParseTrades(payload)
	if err != nil {
		t.Fatalf("ParseTrades: %v", err)
	}
	if len(trades) != 2 {
		t.Fatalf("trades = %d, want 2", len(trades))
	}
	if trades[0].Price != 16578.5 || trades[0].Qty != 0.001 || trades[0].Side != "buy" {
		t.Fatalf("trade = %+v", trades[0])
	}
	if trades[1].Side != "sell" {
		t.Fatalf("side = %q, want sell", trades[1].Side)
	}
}

func TestParseOrderBook(t *testing.T) {
	payload := json.RawMessage(`{"s":"BTCUSDT","b":[["16493.50","0.006"],["16493.00","0.1"]],"a":[["16494.00","0.2"]],"u":18521288,"seq":7961638724}`)

	u, err := ParseOrderBook(payload)
	if err != nil {
		t.Fatalf("ParseOrderBook: %v", err)
	}
	if len(u.Bids) != 2 || len(u.Asks) != 1 {
		t.Fatalf("levels = %d/%d, want 2/1", len(u.Bids), len(u.Asks))
	}
	if u.Bids[0].Price != 16493.5 || u.Bids[0].Qty != 0.006 {
		t.Fatalf("bid = %+v", u.Bids[0])
	}
}

func TestParseOrderBookMalformedLevel(t *testing.T) {
	payload := json.RawMessage(`{"b":[["16493.50"]],"a":[]}`)
	if _, err := ParseOrderBook(payload); err == nil {
		t.Fatal("want error on short level")
	}
}

func TestBookStateSnapshotAndDelta(t *testing.T) {
	b := NewBookState(50)

	// Deltas before the first snapshot are dropped.
	b.ApplyDelta(BookUpdate{Bids: levels(100, 1)})
	if b.Ready() {
		t.Fatal("book ready before snapshot")
	}

	b.ApplySnapshot(BookUpdate{
		Bids: append(levels(100, 1), levels(99, 2)...),
		Asks: append(levels(101, 3), levels(102, 4)...),
	})
	// Delta: change one level, delete another, add a third.
	b.ApplyDelta(BookUpdate{
		Bids: append(levels(100, 5), levels(99, 0)...),
		Asks: levels(103, 1),
	})

	snap := b.Snapshot()
	if len(snap.Bids) != 1 || snap.Bids[0].Price != 100 || snap.Bids[0].Qty != 5 {
		t.Fatalf("bids = %+v", snap.Bids)
	}
	if len(snap.Asks) != 3 {
		t.Fatalf("asks = %d, want 3", len(snap.Asks))
	}
	// Asks come back ascending.
	if snap.Asks[0].Price != 101 || snap.Asks[2].Price != 103 {
		t.Fatalf("ask order = %+v", snap.Asks)
	}
}

func TestBookStateDepthTruncation(t *testing.T) {
	b := NewBookState(2)
	b.ApplySnapshot(BookUpdate{
		Bids: append(append(levels(100, 1), levels(99, 1)...), levels(98, 1)...),
	})
	snap := b.Snapshot()
	if len(snap.Bids) != 2 {
		t.Fatalf("bids = %d, want 2", len(snap.Bids))
	}
	// Best bids survive the cut.
	if snap.Bids[0].Price != 100 || snap.Bids[1].Price != 99 {
		t.Fatalf("bids = %+v", snap.Bids)
	}
}

func levels(price, qty float64) []models.PriceLevel {
	return []models.PriceLevel{{Price: price, Qty: qty}}
}
