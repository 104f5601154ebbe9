package middleware

import (
	"context"
	"sync"
	"testing"
	"time"

	"ZonePulse/internal/domain/models"
	applogger "ZonePulse/pkg/logger"
)

type recordingHandler struct {
	mu     sync.Mutex
	topics []string
	seen   chan struct{}
}

func (h *recordingHandler) Handle(_ context.Context, ev *models.MarketEvent) {
	h.mu.Lock()
	h.topics = append(h.topics, ev.Topic)
	h.mu.Unlock()
	if h.seen != nil {
		h.seen <- struct{}{}
	}
}

type nopMetrics struct{}

func (nopMetrics) RecordEvent(string, string)            {}
func (nopMetrics) RecordDrop()                           {}
func (nopMetrics) RecordSignal(string, string)           {}
func (nopMetrics) RecordQueueDepth(int)                  {}
func (nopMetrics) RecordActiveZones(string, string, int) {}
func (nopMetrics) RecordAnalysisDuration(string, float64) {
}
func (nopMetrics) RecordLastPrice(string, float64) {}
func (nopMetrics) RecordError(string)              {}

func TestPipelineDeliversInOrder(t *testing.T) {
	h := &recordingHandler{seen: make(chan struct{}, 16)}
	p := NewIngestPipeline(h, nopMetrics{}, applogger.Nop(),
		WithQueueSize(16), WithWorkers(2))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)

	topics := []string{"kline.1.BTCUSDT", "publicTrade.BTCUSDT", "orderbook.50.BTCUSDT"}
	for _, topic := range topics {
		p.Enqueue(&models.MarketEvent{Topic: topic})
	}
	for range topics {
		select {
		case <-h.seen:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for delivery")
		}
	}
	p.Stop()

	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.topics) != 3 {
		t.Fatalf("delivered = %d, want 3", len(h.topics))
	}
	// Same symbol, same shard: arrival order preserved.
	for i, want := range topics {
		if h.topics[i] != want {
			t.Fatalf("order broken at %d: %v", i, h.topics)
		}
	}
}

func TestPipelineDropsWhenFull(t *testing.T) {
	h := &recordingHandler{}
	p := NewIngestPipeline(h, nopMetrics{}, applogger.Nop(),
		WithQueueSize(2), WithWorkers(1))
	// Not started: the queue fills and stays full.

	for i := 0; i < 5; i++ {
		p.Enqueue(&models.MarketEvent{Topic: "kline.1.BTCUSDT"})
	}
	if got := p.Dropped(); got != 3 {
		t.Fatalf("dropped = %d, want 3", got)
	}
	if got := p.QueueDepth(); got != 2 {
		t.Fatalf("depth = %d, want 2", got)
	}
}

func TestPipelineStopIsIdempotent(t *testing.T) {
	p := NewIngestPipeline(&recordingHandler{}, nopMetrics{}, applogger.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)
	p.Stop()
	p.Stop()
}

func TestShardRoutingIsStable(t *testing.T) {
	p := NewIngestPipeline(&recordingHandler{}, nopMetrics{}, applogger.Nop(), WithWorkers(4))
	a := p.shardFor("BTCUSDT")
	for i := 0; i < 10; i++ {
		if p.shardFor("BTCUSDT") != a {
			t.Fatal("shard assignment not stable")
		}
	}
	if s := symbolOf("kline.5.ETHUSDT"); s != "ETHUSDT" {
		t.Fatalf("symbolOf = %q", s)
	}
	if s := symbolOf("BTCUSDT"); s != "BTCUSDT" {
		t.Fatalf("symbolOf fallback = %q", s)
	}
}
