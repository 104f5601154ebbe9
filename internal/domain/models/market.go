package models

import (
	"encoding/json"
	"time"
)

// Candle represents a single confirmed OHLCV record. Immutable once stored.
type Candle struct {
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
	Timestamp time.Time `json:"timestamp"`
}

// PriceLevel is one resting order-book level.
type PriceLevel struct {
	Price float64 `json:"price"`
	Qty   float64 `json:"qty"`
}

// OrderBookSnapshot holds top-of-book depth. Replaced wholesale per update.
type OrderBookSnapshot struct {
	Bids []PriceLevel `json:"bids"`
	Asks []PriceLevel `json:"asks"`
}

// Trade is a single public trade-tape entry.
type Trade struct {
	Price     float64   `json:"price"`
	Qty       float64   `json:"qty"`
	Side      string    `json:"side"`
	Timestamp time.Time `json:"timestamp"`
}

// MarketEvent is the unit the ingestion pipeline transports: a raw feed frame
// tagged with its topic ("kline.{tf}.{symbol}", "orderbook.{depth}.{symbol}",
// "publicTrade.{symbol}").
type MarketEvent struct {
	Topic    string
	Type     string // "snapshot" or "delta" where the feed distinguishes
	Payload  json.RawMessage
	Received time.Time
}
