package bybit

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"ZonePulse/internal/domain/models"
)

// TopicKind classifies a Bybit public topic.
type TopicKind int

const (
	KindUnknown TopicKind = iota
	KindKline
	KindOrderBook
	KindTrade
)

// ParseTopic splits a topic string into its kind, timeframe (klines only)
// and symbol.
func ParseTopic(topic string) (kind TopicKind, timeframe, symbol string, err error) {
	parts := strings.Split(topic, ".")
	switch {
	case len(parts) == 3 && parts[0] == "kline":
		return KindKline, parts[1], parts[2], nil
	case len(parts) == 3 && parts[0] == "orderbook":
		return KindOrderBook, "", parts[2], nil
	case len(parts) == 2 && parts[0] == "publicTrade":
		return KindTrade, "", parts[1], nil
	}
	return KindUnknown, "", "", fmt.Errorf("unrecognized topic %q", topic)
}

type klineItem struct {
	Start   int64  `json:"start"`
	Open    string `json:"open"`
	High    string `json:"high"`
	Low     string `json:"low"`
	Close   string `json:"close"`
	Volume  string `json:"volume"`
	Confirm bool   `json:"confirm"`
}

// ParseKlines decodes a kline payload and returns the confirmed candles.
// Unconfirmed (still-forming) bars are dropped here so downstream windows
// only ever hold closed candles.
func ParseKlines(payload json.RawMessage) ([]models.Candle, error) {
	var items []klineItem
	if err := json.Unmarshal(payload, &items); err != nil {
		return nil, fmt.Errorf("kline payload: %w", err)
	}
	var out []models.Candle
	for _, it := range items {
		if !it.Confirm {
			continue
		}
		c, err := candleFromStrings(it)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func candleFromStrings(it klineItem) (models.Candle, error) {
	var c models.Candle
	var err error
	if c.Open, err = strconv.ParseFloat(it.Open, 64); err != nil {
		return c, fmt.Errorf("kline open %q: %w", it.Open, err)
	}
	if c.High, err = strconv.ParseFloat(it.High, 64); err != nil {
		return c, fmt.Errorf("kline high %q: %w", it.High, err)
	}
	if c.Low, err = strconv.ParseFloat(it.Low, 64); err != nil {
		return c, fmt.Errorf("kline low %q: %w", it.Low, err)
	}
	if c.Close, err = strconv.ParseFloat(it.Close, 64); err != nil {
		return c, fmt.Errorf("kline close %q: %w", it.Close, err)
	}
	if c.Volume, err = strconv.ParseFloat(it.Volume, 64); err != nil {
		return c, fmt.Errorf("kline volume %q: %w", it.Volume, err)
	}
	c.Timestamp = time.UnixMilli(it.Start).UTC()
	return c, nil
}

type tradeItem struct {
	T int64  `json:"T"`
	S string `json:"S"`
	P string `json:"p"`
	V string `json:"v"`
}

// ParseTrades decodes a publicTrade payload.
func ParseTrades(payload json.RawMessage) ([]models.Trade, error) {
	var items []tradeItem
	if err := json.Unmarshal(payload, &items); err != nil {
		return nil, fmt.Errorf("trade payload: %w", err)
	}
	out := make([]models.Trade, 0, len(items))
	for _, it := range items {
		price, err := strconv.ParseFloat(it.P, 64)
		if err != nil {
			return nil, fmt.Errorf("trade price %q: %w", it.P, err)
		}
		qty, err := strconv.ParseFloat(it.V, 64)
		if err != nil {
			return nil, fmt.Errorf("trade qty %q: %w", it.V, err)
		}
		out = append(out, models.Trade{
			Price:     price,
			Qty:       qty,
			Side:      strings.ToLower(it.S),
			Timestamp: time.UnixMilli(it.T).UTC(),
		})
	}
	return out, nil
}

// BookUpdate is a decoded orderbook frame, snapshot or delta. A delta level
// with qty 0 deletes the level.
type BookUpdate struct {
	Bids []models.PriceLevel
	Asks []models.PriceLevel
}

type bookPayload struct {
	B [][]string `json:"b"`
	A [][]string `json:"a"`
}

// ParseOrderBook decodes an orderbook payload.
func ParseOrderBook(payload json.RawMessage) (BookUpdate, error) {
	var p bookPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return BookUpdate{}, fmt.Errorf("orderbook payload: %w", err)
	}
	bids, err := parseLevels(p.B)
	if err != nil {
		return BookUpdate{}, err
	}
	asks, err := parseLevels(p.A)
	if err != nil {
		return BookUpdate{}, err
	}
	return BookUpdate{Bids: bids, Asks: asks}, nil
}

func parseLevels(raw [][]string) ([]models.PriceLevel, error) {
	out := make([]models.PriceLevel, 0, len(raw))
	for _, pair := range raw {
		if len(pair) != 2 {
			return nil, fmt.Errorf("orderbook level has %d fields", len(pair))
		}
		price, err := strconv.ParseFloat(pair[0], 64)
		if err != nil {
			return nil, fmt.Errorf("orderbook price %q: %w", pair[0], err)
		}
		qty, err := strconv.ParseFloat(pair[1], 64)
		if err != nil {
			return nil, fmt.Errorf("orderbook qty %q: %w", pair[1], err)
		}
		out = append(out, models.PriceLevel{Price: price, Qty: qty})
	}
	return out, nil
}
