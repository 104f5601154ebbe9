package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ZonePulse/internal/domain/models"
	drepo "ZonePulse/internal/domain/repository"
	mid "ZonePulse/internal/middleware"
	applogger "ZonePulse/pkg/logger"
)

const maxReconnectBackoff = 30 * time.Second

var errStreamClosed = errors.New("stream closed its channels")

// EventCollector couples the market stream to the ingestion pipeline and owns
// the reconnect loop. After maxReconnects consecutive failures it gives up
// and signals fatality through onFatal.
type EventCollector struct {
	stream        drepo.MarketStream
	pipe          *mid.IngestPipeline
	metrics       drepo.Metrics
	logger        *applogger.Logger
	maxReconnects int
	onFatal       func(error)
	backoff       func(attempt int) time.Duration
}

// NewEventCollector creates a collector.
func NewEventCollector(
	stream drepo.MarketStream,
	pipe *mid.IngestPipeline,
	metrics drepo.Metrics,
	lgr *applogger.Logger,
	maxReconnects int,
) *EventCollector {
	if maxReconnects <= 0 {
		maxReconnects = 100
	}
	return &EventCollector{
		stream:        stream,
		pipe:          pipe,
		metrics:       metrics,
		logger:        lgr,
		maxReconnects: maxReconnects,
		backoff:       escalatingBackoff,
	}
}

// escalatingBackoff grows linearly with the attempt number, capped.
func escalatingBackoff(attempt int) time.Duration {
	d := time.Duration(attempt) * time.Second
	if d > maxReconnectBackoff {
		return maxReconnectBackoff
	}
	return d
}

// OnFatal registers the callback invoked when the stream is lost for good.
func (c *EventCollector) OnFatal(fn func(error)) { c.onFatal = fn }

// IsConnected reports the stream status.
func (c *EventCollector) IsConnected() bool { return c.stream.IsConnected() }

// Start connects, subscribes and launches the consume loop.
func (c *EventCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}
	c.pipe.Start(ctx)
	go c.consume(ctx)
	return nil
}

func (c *EventCollector) consume(ctx context.Context) {
	events, errs := c.stream.Read(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errs:
			if ok && err == nil {
				continue
			}
			if !c.recoverStream(ctx, err) {
				return
			}
			events, errs = c.stream.Read(ctx)
		case ev, ok := <-events:
			if !ok {
				// The stream closes both channels when its read loop
				// exits; the cause, if any, is still buffered on errs.
				if !c.recoverStream(ctx, drainErr(errs)) {
					return
				}
				events, errs = c.stream.Read(ctx)
				continue
			}
			if ev == nil {
				continue
			}
			c.enqueue(ev)
		}
	}
}

// recoverStream logs the failure and runs the bounded reconnect. The old
// channels are dead afterwards, the caller must Read again.
func (c *EventCollector) recoverStream(ctx context.Context, err error) bool {
	if err == nil {
		err = errStreamClosed
	}
	c.metrics.RecordError("stream")
	c.logger.Warn("stream error, reconnecting", applogger.Error(err))
	return c.reconnect(ctx)
}

// drainErr picks up a buffered error without blocking.
func drainErr(errs <-chan error) error {
	select {
	case err := <-errs:
		return err
	default:
		return nil
	}
}

func (c *EventCollector) enqueue(ev *models.MarketEvent) {
	c.pipe.Enqueue(ev)
}

// reconnect retries up to maxReconnects times. Returns false when the
// collector gave up.
func (c *EventCollector) reconnect(ctx context.Context) bool {
	for attempt := 1; attempt <= c.maxReconnects; attempt++ {
		if ctx.Err() != nil {
			return false
		}
		if err := c.stream.Reconnect(ctx); err != nil {
			c.metrics.RecordError("reconnect")
			c.logger.Warn("reconnect failed",
				applogger.Int("attempt", attempt),
				applogger.Int("max", c.maxReconnects),
				applogger.Error(err))
			select {
			case <-time.After(c.backoff(attempt)):
			case <-ctx.Done():
				return false
			}
			continue
		}
		c.logger.Info("stream reconnected", applogger.Int("attempt", attempt))
		return true
	}
	err := fmt.Errorf("stream lost after %d reconnect attempts", c.maxReconnects)
	c.logger.Error("giving up on stream", applogger.Error(err))
	if c.onFatal != nil {
		c.onFatal(err)
	}
	return false
}

// Shutdown stops the pipeline and closes the stream.
func (c *EventCollector) Shutdown(ctx context.Context) error {
	c.pipe.Stop()
	return c.stream.Close()
}
