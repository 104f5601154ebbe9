package repository

import (
	"context"

	"ZonePulse/internal/domain/models"
)

// MarketStream is the external feed collaborator: a source producing typed
// market events. Transport and reconnect mechanics live behind it.
type MarketStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.MarketEvent, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// SignalSink receives emitted trading signals. Push at one end, pop at the
// other; implementations must preserve end-to-end FIFO ordering per symbol.
type SignalSink interface {
	Push(ctx context.Context, s *models.TradingSignal) error
	Close() error
}

// HistoryStore mirrors confirmed candles into the external append-only keyed
// store and announces updates on its pub/sub channel.
type HistoryStore interface {
	PushCandle(ctx context.Context, symbol, timeframe string, c models.Candle) error
	History(ctx context.Context, symbol, timeframe string, limit int) ([]models.Candle, error)
	Close() error
}

// Metrics records operational telemetry.
type Metrics interface {
	RecordEvent(class, symbol string)
	RecordDrop()
	RecordSignal(symbol, signalType string)
	RecordQueueDepth(n int)
	RecordActiveZones(symbol, timeframe string, n int)
	RecordAnalysisDuration(timeframe string, seconds float64)
	RecordLastPrice(symbol string, price float64)
	RecordError(kind string)
}
