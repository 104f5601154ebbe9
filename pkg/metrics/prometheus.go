package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	eventsTotal      *prometheus.CounterVec
	droppedTotal     prometheus.Counter
	signalsTotal     *prometheus.CounterVec
	errorsTotal      *prometheus.CounterVec
	queueDepth       prometheus.Gauge
	activeZones      *prometheus.GaugeVec
	lastPrice        *prometheus.GaugeVec
	analysisDuration *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		eventsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "zonepulse_events_total",
				Help: "Total market events ingested, by class",
			},
			[]string{"class", "symbol"},
		),
		droppedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "zonepulse_events_dropped_total",
				Help: "Events dropped at the full intake queue",
			},
		),
		signalsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "zonepulse_signals_total",
				Help: "Trading signals emitted",
			},
			[]string{"symbol", "type"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "zonepulse_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		queueDepth: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "zonepulse_queue_depth",
				Help: "Current intake queue length",
			},
		),
		activeZones: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "zonepulse_active_zones",
				Help: "Active zones per symbol and timeframe",
			},
			[]string{"symbol", "timeframe"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "zonepulse_last_price",
				Help: "Last recorded close price for a symbol",
			},
			[]string{"symbol"},
		),
		analysisDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "zonepulse_analysis_duration_seconds",
				Help:    "Duration of one analysis pass in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"timeframe"},
		),
	}
}

// RecordEvent counts one ingested event by class (kline, orderbook, trade).
func (r *Recorder) RecordEvent(class, symbol string) {
	r.eventsTotal.WithLabelValues(class, symbol).Inc()
}

// RecordDrop counts one event dropped at the intake queue.
func (r *Recorder) RecordDrop() {
	r.droppedTotal.Inc()
}

// RecordSignal counts one emitted signal.
func (r *Recorder) RecordSignal(symbol, signalType string) {
	r.signalsTotal.WithLabelValues(symbol, signalType).Inc()
}

// RecordQueueDepth sets the current intake queue length.
func (r *Recorder) RecordQueueDepth(n int) {
	r.queueDepth.Set(float64(n))
}

// RecordActiveZones sets the active zone count of one pair.
func (r *Recorder) RecordActiveZones(symbol, timeframe string, n int) {
	r.activeZones.WithLabelValues(symbol, timeframe).Set(float64(n))
}

// RecordAnalysisDuration observes one analysis pass.
func (r *Recorder) RecordAnalysisDuration(timeframe string, seconds float64) {
	r.analysisDuration.WithLabelValues(timeframe).Observe(seconds)
}

// RecordLastPrice records the last price for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}
