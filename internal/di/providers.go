package di

import (
	"context"
	"fmt"
	"time"

	"ZonePulse/internal/domain/repository"
	"ZonePulse/internal/handler/api"
	mid "ZonePulse/internal/middleware"
	internalrepo "ZonePulse/internal/repository"
	"ZonePulse/internal/service/bybit"
	"ZonePulse/internal/services/analytics"
	"ZonePulse/internal/usecase"
	pkgch "ZonePulse/pkg/clickhouse"
	"ZonePulse/pkg/config"
	pkgkafka "ZonePulse/pkg/kafka"
	"ZonePulse/pkg/logger"
	"ZonePulse/pkg/metrics"
	"ZonePulse/pkg/server"

	"github.com/redis/go-redis/v9"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideRedisClient creates the shared Redis client. The connection is lazy,
// nothing dials until the first command.
func ProvideRedisClient(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

// ProvideSignalSink creates the configured signal sink backend.
func ProvideSignalSink(cfg *config.Config, rdb *redis.Client) (repository.SignalSink, error) {
	switch cfg.Sink.Backend {
	case "redis":
		return internalrepo.NewRedisSignalSink(rdb, cfg.Redis.SignalKey), nil

	case "kafka":
		producer, err := pkgkafka.NewProducer(
			pkgkafka.WithBrokers(cfg.Kafka.Brokers),
			pkgkafka.WithCompression(cfg.Kafka.Compression),
			pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
			pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
			pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
			pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
			pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
			pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
			pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
			pkgkafka.WithHashByKey(true),
		)
		if err != nil {
			return nil, fmt.Errorf("kafka producer: %w", err)
		}
		return internalrepo.NewKafkaSignalSink(producer, cfg.Kafka.Topic), nil

	case "clickhouse":
		client, err := pkgch.NewClient(
			pkgch.WithHost(cfg.ClickHouse.Host),
			pkgch.WithPort(cfg.ClickHouse.Port),
			pkgch.WithDatabase(cfg.ClickHouse.Database),
			pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
			pkgch.WithMaxConnections(10, 5),
			pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
			pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
			pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
			pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
		)
		if err != nil {
			return nil, fmt.Errorf("clickhouse client: %w", err)
		}
		table := cfg.ClickHouse.Database + ".trading_signals"
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		stmts := []string{"CREATE DATABASE IF NOT EXISTS " + cfg.ClickHouse.Database}
		for _, tpl := range internalrepo.SignalSchema {
			stmts = append(stmts, fmt.Sprintf(tpl, table))
		}
		if err := client.InitSchema(ctx, stmts); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("clickhouse schema: %w", err)
		}
		return internalrepo.NewClickHouseSignalSink(client.DB(), table), nil
	}
	return nil, fmt.Errorf("unknown sink backend %q", cfg.Sink.Backend)
}

// ProvideHistoryStore creates the Redis candle mirror, or nil when mirroring
// is disabled.
func ProvideHistoryStore(cfg *config.Config, rdb *redis.Client, lgr *logger.Logger) repository.HistoryStore {
	if !cfg.Redis.MirrorCandles {
		return nil
	}
	return internalrepo.NewRedisHistoryStore(rdb, cfg.Redis.HistoryLimit, cfg.Redis.UpdatesChannel, lgr)
}

// ProvideMarketStream creates the Bybit WebSocket stream.
func ProvideMarketStream(cfg *config.Config, lgr *logger.Logger) repository.MarketStream {
	return bybit.New(bybit.Config{
		WebSocketURL:   cfg.Feed.WebSocketURL,
		Symbols:        cfg.Feed.Symbols,
		Timeframes:     cfg.Feed.Timeframes,
		OrderBookDepth: cfg.Feed.OrderBookDepth,
		ReconnectDelay: cfg.Feed.ReconnectDelay,
		PingInterval:   cfg.Feed.PingInterval,
		ReadTimeout:    cfg.Feed.ReadTimeout,
	}, lgr)
}

// ProvideSignalDispatcher creates the dispatcher over the configured sink.
func ProvideSignalDispatcher(sink repository.SignalSink, m repository.Metrics, lgr *logger.Logger, cfg *config.Config) *usecase.SignalDispatcher {
	d := usecase.NewSignalDispatcher(sink, m, lgr, cfg.Signals.HistorySize)
	d.SetAccountRisk(cfg.Signals.AccountRiskPct)
	return d
}

// ProvideSymbolAnalyzer creates the analysis core.
func ProvideSymbolAnalyzer(
	cfg *config.Config,
	dispatcher *usecase.SignalDispatcher,
	history repository.HistoryStore,
	m repository.Metrics,
	lgr *logger.Logger,
) *usecase.SymbolAnalyzer {
	return usecase.NewSymbolAnalyzer(usecase.AnalyzerConfig{
		Symbols:    cfg.Feed.Symbols,
		Timeframes: cfg.Feed.Timeframes,
		Detector: analytics.DetectorConfig{
			TolerancePct: cfg.Zones.TolerancePct,
			WidthPct:     cfg.Zones.WidthPct,
			MinTouches:   cfg.Zones.MinTouches,
			MaxPValue:    cfg.Zones.MaxPValue,
		},
		MinConfidence:    cfg.Signals.MinConfidence,
		MaxConcurrent:    cfg.Pipeline.MaxConcurrent,
		EmitTimeframes:   cfg.Signals.EmitTimeframes,
		AnalysisInterval: cfg.AnalysisInterval,
		CandleCapacity:   cfg.CandleCapacity,
	}, dispatcher, history, m, lgr)
}

// ProvideIngestPipeline creates the sharded intake pipeline.
func ProvideIngestPipeline(analyzer *usecase.SymbolAnalyzer, m repository.Metrics, lgr *logger.Logger, cfg *config.Config) *mid.IngestPipeline {
	return mid.NewIngestPipeline(analyzer, m, lgr,
		mid.WithQueueSize(cfg.Pipeline.QueueSize),
		mid.WithWorkers(cfg.Pipeline.Workers),
	)
}

// ProvideEventCollector couples the stream to the pipeline.
func ProvideEventCollector(
	stream repository.MarketStream,
	pipe *mid.IngestPipeline,
	m repository.Metrics,
	lgr *logger.Logger,
	cfg *config.Config,
) *usecase.EventCollector {
	return usecase.NewEventCollector(stream, pipe, m, lgr, cfg.Feed.MaxReconnectAttempts)
}

// ProvideCoordinator creates the telemetry coordinator.
func ProvideCoordinator(
	collector *usecase.EventCollector,
	pipe *mid.IngestPipeline,
	analyzer *usecase.SymbolAnalyzer,
	dispatcher *usecase.SignalDispatcher,
	lgr *logger.Logger,
	cfg *config.Config,
) *usecase.Coordinator {
	return usecase.NewCoordinator(collector, pipe, analyzer, dispatcher, lgr, cfg.Signals.TelemetryPeriod)
}

// ProvideZonesHandler creates the HTTP API handler.
func ProvideZonesHandler(
	lgr *logger.Logger,
	analyzer *usecase.SymbolAnalyzer,
	dispatcher *usecase.SignalDispatcher,
	coordinator *usecase.Coordinator,
	history repository.HistoryStore,
) *api.ZonesHandler {
	return api.NewZonesHandler(lgr, analyzer, dispatcher, coordinator, history)
}

// ProvideApp assembles the application.
func ProvideApp(
	cfg *config.Config,
	lgr *logger.Logger,
	collector *usecase.EventCollector,
	coordinator *usecase.Coordinator,
	dispatcher *usecase.SignalDispatcher,
	handler *api.ZonesHandler,
) *server.App {
	return server.New(cfg, lgr, collector, coordinator, dispatcher, handler)
}
