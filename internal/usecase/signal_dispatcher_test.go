package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"ZonePulse/internal/domain/models"
	applogger "ZonePulse/pkg/logger"
)

func testSignal(symbol string) *models.TradingSignal {
	return &models.TradingSignal{
		Symbol:     symbol,
		Timeframe:  "1",
		Zone:       &models.Zone{ID: 1, Type: models.ZoneSupport, ConfirmedTF: map[string]bool{}},
		SignalType: models.SignalRejection,
		Confidence: 0.8,
		Quality:    60,
		Timestamp:  time.Now(),
	}
}

func TestDispatchPushesAndRecords(t *testing.T) {
	sink := &captureSink{}
	d := NewSignalDispatcher(sink, newStubMetrics(), applogger.Nop(), 16)

	d.Dispatch(context.Background(), testSignal("BTCUSDT"))
	if sink.count() != 1 {
		t.Fatalf("pushed = %d, want 1", sink.count())
	}
	if got := d.Emitted(); got != 1 {
		t.Fatalf("emitted = %d, want 1", got)
	}
	if recent := d.Recent(); len(recent) != 1 || recent[0].Symbol != "BTCUSDT" {
		t.Fatalf("recent = %+v", recent)
	}
}

func TestDispatchSinkErrorDoesNotPropagate(t *testing.T) {
	sink := &captureSink{err: errors.New("down")}
	metrics := newStubMetrics()
	d := NewSignalDispatcher(sink, metrics, applogger.Nop(), 16)

	d.Dispatch(context.Background(), testSignal("BTCUSDT"))
	if got := metrics.errorCount("signal_sink"); got != 1 {
		t.Fatalf("sink errors = %d, want 1", got)
	}
	// The failed push still counts as emitted and stays in history.
	if got := d.Emitted(); got != 1 {
		t.Fatalf("emitted = %d, want 1", got)
	}
}

func TestDispatchHistoryBounded(t *testing.T) {
	d := NewSignalDispatcher(&captureSink{}, newStubMetrics(), applogger.Nop(), 3)
	for i := 0; i < 5; i++ {
		d.Dispatch(context.Background(), testSignal(fmt.Sprintf("SYM%d", i)))
	}
	recent := d.Recent()
	if len(recent) != 3 {
		t.Fatalf("recent = %d, want 3", len(recent))
	}
	if recent[0].Symbol != "SYM2" || recent[2].Symbol != "SYM4" {
		t.Fatalf("window = %s..%s", recent[0].Symbol, recent[2].Symbol)
	}
}

func TestDispatchNilSignalIgnored(t *testing.T) {
	d := NewSignalDispatcher(&captureSink{}, newStubMetrics(), applogger.Nop(), 3)
	d.Dispatch(context.Background(), nil)
	if got := d.Emitted(); got != 0 {
		t.Fatalf("emitted = %d, want 0", got)
	}
}

func TestDispatcherClose(t *testing.T) {
	sink := &captureSink{}
	d := NewSignalDispatcher(sink, newStubMetrics(), applogger.Nop(), 3)
	if err := d.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !sink.closed {
		t.Fatal("sink not closed")
	}
}
