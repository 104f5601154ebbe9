package usecase

import (
	"context"
	"sync"

	"ZonePulse/internal/domain/models"
	drepo "ZonePulse/internal/domain/repository"
	applogger "ZonePulse/pkg/logger"
)

// SignalDispatcher forwards emitted signals to the configured sink and keeps
// a bounded in-memory history for the API. Sink failures are logged and
// counted but never propagate back into the analysis path.
type SignalDispatcher struct {
	sink    drepo.SignalSink
	metrics drepo.Metrics
	logger  *applogger.Logger

	accountRisk float64

	mu      sync.Mutex
	recent  []*models.TradingSignal
	keep    int
	emitted uint64
}

// NewSignalDispatcher creates a dispatcher retaining the last keep signals.
func NewSignalDispatcher(sink drepo.SignalSink, metrics drepo.Metrics, lgr *applogger.Logger, keep int) *SignalDispatcher {
	if keep <= 0 {
		keep = 256
	}
	return &SignalDispatcher{
		sink:        sink,
		metrics:     metrics,
		logger:      lgr,
		keep:        keep,
		accountRisk: 0.02,
	}
}

// SetAccountRisk overrides the base risk fraction used for the advisory
// position size on emitted signals.
func (d *SignalDispatcher) SetAccountRisk(r float64) {
	if r > 0 {
		d.accountRisk = r
	}
}

// Dispatch pushes one signal downstream and records it.
func (d *SignalDispatcher) Dispatch(ctx context.Context, s *models.TradingSignal) {
	if s == nil {
		return
	}
	d.logger.Info("signal emitted",
		applogger.String("symbol", s.Symbol),
		applogger.String("timeframe", s.Timeframe),
		applogger.String("type", string(s.SignalType)),
		applogger.Float64("confidence", s.Confidence),
		applogger.Float64("quality", s.Quality),
		applogger.Float64("position_size", s.PositionSize(d.accountRisk)))

	if d.sink != nil {
		if err := d.sink.Push(ctx, s); err != nil {
			d.metrics.RecordError("signal_sink")
			d.logger.Error("signal sink push failed",
				applogger.String("symbol", s.Symbol), applogger.Error(err))
		}
	}
	d.metrics.RecordSignal(s.Symbol, string(s.SignalType))

	d.mu.Lock()
	d.emitted++
	d.recent = append(d.recent, s)
	if len(d.recent) > d.keep {
		d.recent = d.recent[len(d.recent)-d.keep:]
	}
	d.mu.Unlock()
}

// Recent returns the retained signals, newest last.
func (d *SignalDispatcher) Recent() []*models.TradingSignal {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*models.TradingSignal, len(d.recent))
	copy(out, d.recent)
	return out
}

// Emitted returns the lifetime emitted count.
func (d *SignalDispatcher) Emitted() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.emitted
}

// Close releases the sink.
func (d *SignalDispatcher) Close() error {
	if d.sink == nil {
		return nil
	}
	return d.sink.Close()
}
