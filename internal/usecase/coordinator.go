package usecase

import (
	"context"
	"time"

	mid "ZonePulse/internal/middleware"
	applogger "ZonePulse/pkg/logger"
)

// Coordinator periodically logs a one-line operational summary: queue depth,
// drop totals, active zones and emitted signals. It owns no data, it only
// observes the other components.
type Coordinator struct {
	collector  *EventCollector
	pipe       *mid.IngestPipeline
	analyzer   *SymbolAnalyzer
	dispatcher *SignalDispatcher
	logger     *applogger.Logger
	period     time.Duration
	started    time.Time
	stopCh     chan struct{}
}

// NewCoordinator creates a coordinator reporting every period.
func NewCoordinator(
	collector *EventCollector,
	pipe *mid.IngestPipeline,
	analyzer *SymbolAnalyzer,
	dispatcher *SignalDispatcher,
	lgr *applogger.Logger,
	period time.Duration,
) *Coordinator {
	if period <= 0 {
		period = time.Minute
	}
	return &Coordinator{
		collector:  collector,
		pipe:       pipe,
		analyzer:   analyzer,
		dispatcher: dispatcher,
		logger:     lgr,
		period:     period,
		started:    time.Now(),
		stopCh:     make(chan struct{}),
	}
}

// Start launches the telemetry loop.
func (c *Coordinator) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(c.period)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-c.stopCh:
				return
			case <-ticker.C:
				c.report()
			}
		}
	}()
}

// Stop halts the telemetry loop.
func (c *Coordinator) Stop() { close(c.stopCh) }

// Health is the snapshot served by the liveness endpoint.
type Health struct {
	Connected     bool    `json:"connected"`
	QueueDepth    int     `json:"queue_depth"`
	Dropped       uint64  `json:"dropped"`
	ActiveZones   int     `json:"active_zones"`
	Signals       uint64  `json:"signals_emitted"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// Snapshot gathers the current health view.
func (c *Coordinator) Snapshot() Health {
	return Health{
		Connected:     c.collector.IsConnected(),
		QueueDepth:    c.pipe.QueueDepth(),
		Dropped:       c.pipe.Dropped(),
		ActiveZones:   c.analyzer.ZoneCount(),
		Signals:       c.dispatcher.Emitted(),
		UptimeSeconds: time.Since(c.started).Seconds(),
	}
}

func (c *Coordinator) report() {
	h := c.Snapshot()
	c.logger.Info("zone engine status",
		applogger.Bool("connected", h.Connected),
		applogger.Int("queue_depth", h.QueueDepth),
		applogger.Uint64("dropped", h.Dropped),
		applogger.Int("active_zones", h.ActiveZones),
		applogger.Uint64("signals", h.Signals))
	for sym, n := range c.analyzer.ZoneCounts() {
		c.logger.Debug("symbol zones",
			applogger.String("symbol", sym), applogger.Int("zones", n))
	}
}
