package bybit

import (
	"context"
	"runtime"
	"testing"
	"time"

	applogger "ZonePulse/pkg/logger"
)

func newTestClient() *Client {
	s := New(Config{
		WebSocketURL: "wss://example.invalid/ws",
		Symbols:      []string{"BTCUSDT"},
		Timeframes:   []string{"1"},
	}, applogger.Nop())
	return s.(*Client)
}

func TestTopics(t *testing.T) {
	c := newTestClient()
	topics := c.Topics()
	want := map[string]bool{
		"kline.1.BTCUSDT":      true,
		"orderbook.50.BTCUSDT": true,
		"publicTrade.BTCUSDT":  true,
	}
	if len(topics) != len(want) {
		t.Fatalf("topics = %v, want 3 entries", topics)
	}
	for _, topic := range topics {
		if !want[topic] {
			t.Fatalf("unexpected topic %q", topic)
		}
	}
}

func TestReadWithoutConnectionEndsSession(t *testing.T) {
	c := newTestClient()
	events, errs := c.Read(context.Background())

	select {
	case err := <-errs:
		if err == nil {
			t.Fatal("expected an error for a session without a connection")
		}
	case <-time.After(time.Second):
		t.Fatal("error never delivered")
	}
	select {
	case _, ok := <-events:
		if ok {
			t.Fatal("expected events to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("events never closed")
	}
}

func TestRepeatedReadsLeakNoKeepalives(t *testing.T) {
	c := newTestClient()
	before := runtime.NumGoroutine()

	for i := 0; i < 50; i++ {
		events, _ := c.Read(context.Background())
		for range events {
		}
	}

	// The keepalive goroutine of each session must die with its read loop.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if runtime.NumGoroutine() <= before+5 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("goroutines grew from %d to %d", before, runtime.NumGoroutine())
}

func TestSubscribeWithoutConnection(t *testing.T) {
	c := newTestClient()
	if err := c.Subscribe(context.Background()); err == nil {
		t.Fatal("expected subscribe to fail before connect")
	}
}
