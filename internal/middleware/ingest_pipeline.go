package middleware

import (
	"context"
	"hash/fnv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"ZonePulse/internal/domain/models"
	domrepo "ZonePulse/internal/domain/repository"
	applogger "ZonePulse/pkg/logger"
)

// Handler consumes market events. The pipeline guarantees events of one
// symbol always reach the same Handle call sequence, in arrival order.
type Handler interface {
	Handle(ctx context.Context, ev *models.MarketEvent)
}

const dropWarnEvery = 100

// IngestPipeline sits between the feed and the analysis workers: a bounded
// intake queue with lossy enqueue, then a dispatcher that shards events by
// symbol hash onto worker goroutines. One worker per shard makes every
// symbol single-writer without per-symbol locks.
type IngestPipeline struct {
	handler   Handler
	metrics   domrepo.Metrics
	logger    *applogger.Logger
	queueSize int
	workers   int

	queue  chan *models.MarketEvent
	shards []chan *models.MarketEvent
	drops  atomic.Uint64

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
	started  bool
	mu       sync.Mutex
}

type PipelineOption func(*IngestPipeline)

// WithQueueSize sets the intake queue capacity.
func WithQueueSize(n int) PipelineOption {
	return func(p *IngestPipeline) {
		if n > 0 {
			p.queueSize = n
		}
	}
}

// WithWorkers sets the shard worker count.
func WithWorkers(n int) PipelineOption {
	return func(p *IngestPipeline) {
		if n > 0 {
			p.workers = n
		}
	}
}

// NewIngestPipeline creates a pipeline.
func NewIngestPipeline(handler Handler, metrics domrepo.Metrics, lgr *applogger.Logger, opts ...PipelineOption) *IngestPipeline {
	p := &IngestPipeline{
		handler:   handler,
		metrics:   metrics,
		logger:    lgr,
		queueSize: 100000,
		workers:   4,
		stopCh:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.queue = make(chan *models.MarketEvent, p.queueSize)
	p.shards = make([]chan *models.MarketEvent, p.workers)
	for i := range p.shards {
		p.shards[i] = make(chan *models.MarketEvent, p.queueSize/p.workers+1)
	}
	return p
}

// Start launches the dispatcher and shard workers.
func (p *IngestPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	for i := range p.shards {
		p.wg.Add(1)
		go p.runShard(ctx, p.shards[i])
	}
	p.wg.Add(1)
	go p.dispatch(ctx)
	p.wg.Add(1)
	go p.reportDepth(ctx)
}

// Stop drains nothing: in-flight events finish, queued events are abandoned.
func (p *IngestPipeline) Stop() {
	p.stopOnce.Do(func() { close(p.stopCh) })
	p.wg.Wait()
}

// Enqueue offers an event to the intake queue without blocking. When the
// queue is full the event is dropped and counted; the feed reader must never
// stall behind analysis.
func (p *IngestPipeline) Enqueue(ev *models.MarketEvent) {
	select {
	case p.queue <- ev:
	default:
		p.metrics.RecordDrop()
		if n := p.drops.Add(1); n%dropWarnEvery == 0 {
			p.logger.Warn("pipeline queue full, dropping events",
				applogger.Uint64("dropped_total", n))
		}
	}
}

// Dropped returns the total number of dropped events.
func (p *IngestPipeline) Dropped() uint64 { return p.drops.Load() }

// QueueDepth returns the current intake queue length.
func (p *IngestPipeline) QueueDepth() int { return len(p.queue) }

func (p *IngestPipeline) dispatch(ctx context.Context) {
	defer p.wg.Done()
	defer func() {
		for _, sh := range p.shards {
			close(sh)
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		case ev := <-p.queue:
			if ev == nil {
				continue
			}
			shard := p.shards[p.shardFor(symbolOf(ev.Topic))]
			select {
			case shard <- ev:
			case <-ctx.Done():
				return
			case <-p.stopCh:
				return
			}
		}
	}
}

func (p *IngestPipeline) runShard(ctx context.Context, in <-chan *models.MarketEvent) {
	defer p.wg.Done()
	for ev := range in {
		p.handler.Handle(ctx, ev)
	}
}

func (p *IngestPipeline) reportDepth(ctx context.Context) {
	defer p.wg.Done()
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.metrics.RecordQueueDepth(len(p.queue))
		}
	}
}

func (p *IngestPipeline) shardFor(symbol string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(symbol))
	return int(h.Sum32() % uint32(p.workers))
}

// symbolOf extracts the routing key from a topic: the segment after the last
// dot ("kline.5.BTCUSDT" -> "BTCUSDT").
func symbolOf(topic string) string {
	if i := strings.LastIndexByte(topic, '.'); i >= 0 {
		return topic[i+1:]
	}
	return topic
}
