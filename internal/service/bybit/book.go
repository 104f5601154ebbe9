package bybit

import (
	"sort"

	"ZonePulse/internal/domain/models"
)

// BookState rebuilds a full order book from the snapshot/delta stream of one
// symbol. Not safe for concurrent use; each pipeline shard owns its books.
type BookState struct {
	bids  map[float64]float64
	asks  map[float64]float64
	depth int
	ready bool
}

// NewBookState creates a book bounded to the given published depth.
func NewBookState(depth int) *BookState {
	if depth <= 0 {
		depth = 50
	}
	return &BookState{
		bids:  make(map[float64]float64),
		asks:  make(map[float64]float64),
		depth: depth,
	}
}

// ApplySnapshot resets the book to the given levels.
func (b *BookState) ApplySnapshot(u BookUpdate) {
	b.bids = make(map[float64]float64, len(u.Bids))
	b.asks = make(map[float64]float64, len(u.Asks))
	for _, lv := range u.Bids {
		b.bids[lv.Price] = lv.Qty
	}
	for _, lv := range u.Asks {
		b.asks[lv.Price] = lv.Qty
	}
	b.ready = true
}

// ApplyDelta merges a delta; a zero qty removes the level. Deltas that arrive
// before any snapshot are ignored.
func (b *BookState) ApplyDelta(u BookUpdate) {
	if !b.ready {
		return
	}
	applyDeltaSide(b.bids, u.Bids)
	applyDeltaSide(b.asks, u.Asks)
}

func applyDeltaSide(side map[float64]float64, levels []models.PriceLevel) {
	for _, lv := range levels {
		if lv.Qty == 0 {
			delete(side, lv.Price)
			continue
		}
		side[lv.Price] = lv.Qty
	}
}

// Ready reports whether a snapshot has been applied.
func (b *BookState) Ready() bool { return b.ready }

// Snapshot materializes the book: bids best-first descending, asks ascending,
// truncated to the published depth.
func (b *BookState) Snapshot() models.OrderBookSnapshot {
	bids := collectSide(b.bids)
	sort.Slice(bids, func(i, j int) bool { return bids[i].Price > bids[j].Price })
	asks := collectSide(b.asks)
	sort.Slice(asks, func(i, j int) bool { return asks[i].Price < asks[j].Price })
	if len(bids) > b.depth {
		bids = bids[:b.depth]
	}
	if len(asks) > b.depth {
		asks = asks[:b.depth]
	}
	return models.OrderBookSnapshot{Bids: bids, Asks: asks}
}

func collectSide(side map[float64]float64) []models.PriceLevel {
	out := make([]models.PriceLevel, 0, len(side))
	for price, qty := range side {
		out = append(out, models.PriceLevel{Price: price, Qty: qty})
	}
	return out
}
