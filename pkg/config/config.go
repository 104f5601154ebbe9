package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Log         struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
	Server struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	} `yaml:"server"`
	Feed struct {
		WebSocketURL         string        `yaml:"websocket_url" default:"wss://stream.bybit.com/v5/public/linear"`
		Symbols              []string      `yaml:"symbols"`
		Timeframes           []string      `yaml:"timeframes"`
		OrderBookDepth       int           `yaml:"orderbook_depth" default:"50"`
		PingInterval         time.Duration `yaml:"ping_interval" default:"20s"`
		ReadTimeout          time.Duration `yaml:"read_timeout" default:"30s"`
		ReconnectDelay       time.Duration `yaml:"reconnect_delay" default:"5s"`
		MaxReconnectAttempts int           `yaml:"max_reconnect_attempts" default:"100"`
	} `yaml:"feed"`
	Pipeline struct {
		QueueSize     int `yaml:"queue_size" default:"100000"`
		Workers       int `yaml:"workers" default:"4"`
		MaxConcurrent int `yaml:"max_concurrent" default:"5"`
	} `yaml:"pipeline"`
	Zones struct {
		TolerancePct      float64                  `yaml:"tolerance_pct" default:"0.003"`
		WidthPct          float64                  `yaml:"width_pct" default:"0.5"`
		MinTouches        int                      `yaml:"min_touches" default:"3"`
		ATRPeriod         int                      `yaml:"atr_period" default:"14"`
		MaxPValue         float64                  `yaml:"max_p_value" default:"0.1"`
		AnalysisIntervals map[string]time.Duration `yaml:"analysis_intervals"`
		CandleCapacity    map[string]int           `yaml:"candle_capacity"`
	} `yaml:"zones"`
	Signals struct {
		MinConfidence   float64       `yaml:"min_confidence" default:"0.7"`
		AccountRiskPct  float64       `yaml:"account_risk_pct" default:"0.02"`
		EmitTimeframes  []string      `yaml:"emit_timeframes"`
		HistorySize     int           `yaml:"history_size" default:"256"`
		TelemetryPeriod time.Duration `yaml:"telemetry_period" default:"60s"`
	} `yaml:"signals"`
	Sink struct {
		Backend string `yaml:"backend" default:"redis"` // redis, kafka or clickhouse
	} `yaml:"sink"`
	Redis struct {
		Addr           string `yaml:"addr" default:"localhost:6379"`
		Password       string `yaml:"password"`
		DB             int    `yaml:"db"`
		SignalKey      string `yaml:"signal_key" default:"trading_signals"`
		MirrorCandles  bool   `yaml:"mirror_candles"`
		HistoryLimit   int    `yaml:"history_limit" default:"500"`
		UpdatesChannel string `yaml:"updates_channel" default:"candle_updates"`
	} `yaml:"redis"`
	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic" default:"zonepulse.signals"`
		RequiredAcks int      `yaml:"required_acks" default:"-1"`
		Compression  string   `yaml:"compression" default:"gzip"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"1s"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"zonepulse"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
	} `yaml:"clickhouse"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	c.normalize()

	// Validate required fields
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	// Override with environment variables
	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Feed.Symbols = strings.Split(v, ",")
	}
	if v := os.Getenv("TIMEFRAMES"); v != "" {
		c.Feed.Timeframes = strings.Split(v, ",")
	}
	if v := os.Getenv("SINK_BACKEND"); v != "" {
		c.Sink.Backend = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// normalize fills in the per-timeframe tables the defaults library cannot
// express as struct tags.
func (c *Config) normalize() {
	if len(c.Feed.Symbols) == 0 {
		c.Feed.Symbols = []string{"BTCUSDT", "ETHUSDT", "SOLUSDT"}
	}
	if len(c.Feed.Timeframes) == 0 {
		c.Feed.Timeframes = []string{"1", "5", "15"}
	}
	if len(c.Signals.EmitTimeframes) == 0 {
		c.Signals.EmitTimeframes = []string{"1", "5"}
	}
	if c.Zones.AnalysisIntervals == nil {
		c.Zones.AnalysisIntervals = map[string]time.Duration{
			"1":   5 * time.Second,
			"5":   30 * time.Second,
			"15":  60 * time.Second,
			"60":  300 * time.Second,
			"240": 900 * time.Second,
		}
	}
	if c.Zones.CandleCapacity == nil {
		c.Zones.CandleCapacity = map[string]int{
			"1":   500,
			"5":   400,
			"15":  300,
			"60":  200,
			"240": 100,
		}
	}
}

// AnalysisInterval returns the minimum gap between analysis passes for tf.
func (c *Config) AnalysisInterval(tf string) time.Duration {
	if d, ok := c.Zones.AnalysisIntervals[tf]; ok {
		return d
	}
	return 30 * time.Second
}

// CandleCapacity returns the rolling candle window size for tf.
func (c *Config) CandleCapacity(tf string) int {
	if n, ok := c.Zones.CandleCapacity[tf]; ok {
		return n
	}
	return 200
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	switch c.Sink.Backend {
	case "redis", "kafka", "clickhouse":
	default:
		return fmt.Errorf("sink.backend must be 'redis', 'kafka' or 'clickhouse', got '%s'", c.Sink.Backend)
	}
	if len(c.Feed.Symbols) == 0 {
		return fmt.Errorf("feed.symbols cannot be empty")
	}
	if len(c.Feed.Timeframes) == 0 {
		return fmt.Errorf("feed.timeframes cannot be empty")
	}
	if c.Sink.Backend == "kafka" && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers required for kafka sink")
	}
	if c.Sink.Backend == "clickhouse" && c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host required for clickhouse sink")
	}
	if c.Zones.TolerancePct <= 0 || c.Zones.TolerancePct >= 0.05 {
		return fmt.Errorf("zones.tolerance_pct must be in (0, 0.05), got %v", c.Zones.TolerancePct)
	}
	if c.Zones.MinTouches < 1 {
		return fmt.Errorf("zones.min_touches must be >= 1")
	}
	if c.Signals.MinConfidence <= 0 || c.Signals.MinConfidence > 1 {
		return fmt.Errorf("signals.min_confidence must be in (0, 1]")
	}
	if c.Signals.AccountRiskPct <= 0 || c.Signals.AccountRiskPct > 0.1 {
		return fmt.Errorf("signals.account_risk_pct must be in (0, 0.1]")
	}
	if c.Pipeline.QueueSize < 1 {
		return fmt.Errorf("pipeline.queue_size must be >= 1")
	}
	if c.Pipeline.Workers < 1 {
		return fmt.Errorf("pipeline.workers must be >= 1")
	}
	if c.Pipeline.MaxConcurrent < 1 {
		return fmt.Errorf("pipeline.max_concurrent must be >= 1")
	}
	return nil
}
