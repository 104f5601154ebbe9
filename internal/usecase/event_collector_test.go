package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ZonePulse/internal/domain/models"
	mid "ZonePulse/internal/middleware"
	applogger "ZonePulse/pkg/logger"
)

// fakeStream scripts a MarketStream: it emits the queued events, then an
// error, and fails reconnects a configured number of times.
type fakeStream struct {
	mu             sync.Mutex
	events         []*models.MarketEvent
	streamErr      error
	closeNextRead  bool
	failReconnects int
	reconnects     int
	connected      bool
}

func (f *fakeStream) Connect(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = true
	return nil
}

func (f *fakeStream) Subscribe(context.Context) error { return nil }

func (f *fakeStream) Read(ctx context.Context) (<-chan *models.MarketEvent, <-chan error) {
	events := make(chan *models.MarketEvent, len(f.events)+1)
	errs := make(chan error, 1)
	f.mu.Lock()
	for _, ev := range f.events {
		events <- ev
	}
	f.events = nil
	if f.streamErr != nil {
		errs <- f.streamErr
		f.streamErr = nil
	}
	// The real client closes both channels when its read loop dies, with
	// the cause still buffered on errs.
	if f.closeNextRead {
		close(events)
		close(errs)
		f.closeNextRead = false
	}
	f.mu.Unlock()
	return events, errs
}

func (f *fakeStream) Reconnect(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reconnects++
	if f.reconnects <= f.failReconnects {
		return errors.New("refused")
	}
	f.connected = true
	return nil
}

func (f *fakeStream) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = false
	return nil
}

func (f *fakeStream) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeStream) reconnectCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reconnects
}

type countingHandler struct {
	mu sync.Mutex
	n  int
}

func (h *countingHandler) Handle(context.Context, *models.MarketEvent) {
	h.mu.Lock()
	h.n++
	h.mu.Unlock()
}

func (h *countingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.n
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestCollectorForwardsEvents(t *testing.T) {
	stream := &fakeStream{events: []*models.MarketEvent{
		{Topic: "kline.1.BTCUSDT"},
		{Topic: "publicTrade.BTCUSDT"},
	}}
	h := &countingHandler{}
	pipe := mid.NewIngestPipeline(h, newStubMetrics(), applogger.Nop(), mid.WithQueueSize(16), mid.WithWorkers(1))
	c := NewEventCollector(stream, pipe, newStubMetrics(), applogger.Nop(), 3)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := c.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitFor(t, func() bool { return h.count() == 2 })
	_ = c.Shutdown(ctx)
}

func TestCollectorReconnectsOnStreamError(t *testing.T) {
	stream := &fakeStream{streamErr: errors.New("reset by peer")}
	pipe := mid.NewIngestPipeline(&countingHandler{}, newStubMetrics(), applogger.Nop(), mid.WithQueueSize(16), mid.WithWorkers(1))
	c := NewEventCollector(stream, pipe, newStubMetrics(), applogger.Nop(), 3)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := c.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitFor(t, func() bool { return stream.reconnectCount() == 1 })
	_ = c.Shutdown(ctx)
}

func TestCollectorRecoversWhenStreamClosesChannels(t *testing.T) {
	stream := &fakeStream{streamErr: errors.New("reset by peer"), closeNextRead: true}
	pipe := mid.NewIngestPipeline(&countingHandler{}, newStubMetrics(), applogger.Nop(), mid.WithQueueSize(16), mid.WithWorkers(1))
	c := NewEventCollector(stream, pipe, newStubMetrics(), applogger.Nop(), 3)
	c.backoff = func(int) time.Duration { return 0 }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := c.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitFor(t, func() bool { return stream.reconnectCount() == 1 })
	_ = c.Shutdown(ctx)
}

func TestCollectorRecoversWhenChannelsCloseWithoutError(t *testing.T) {
	stream := &fakeStream{closeNextRead: true}
	pipe := mid.NewIngestPipeline(&countingHandler{}, newStubMetrics(), applogger.Nop(), mid.WithQueueSize(16), mid.WithWorkers(1))
	c := NewEventCollector(stream, pipe, newStubMetrics(), applogger.Nop(), 3)
	c.backoff = func(int) time.Duration { return 0 }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := c.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitFor(t, func() bool { return stream.reconnectCount() == 1 })
	_ = c.Shutdown(ctx)
}

func TestCollectorGivesUpAfterMaxAttempts(t *testing.T) {
	stream := &fakeStream{streamErr: errors.New("reset by peer"), failReconnects: 100}
	pipe := mid.NewIngestPipeline(&countingHandler{}, newStubMetrics(), applogger.Nop(), mid.WithQueueSize(16), mid.WithWorkers(1))
	c := NewEventCollector(stream, pipe, newStubMetrics(), applogger.Nop(), 3)
	c.backoff = func(int) time.Duration { return 0 }

	fatal := make(chan error, 1)
	c.OnFatal(func(err error) { fatal <- err })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := c.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	select {
	case err := <-fatal:
		if err == nil {
			t.Fatal("fatal callback got nil error")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("collector never gave up")
	}
	if got := stream.reconnectCount(); got != 3 {
		t.Fatalf("reconnect attempts = %d, want 3", got)
	}
	_ = c.Shutdown(ctx)
}
