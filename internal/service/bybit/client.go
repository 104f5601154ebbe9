package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"ZonePulse/internal/domain/models"
	drepo "ZonePulse/internal/domain/repository"
	applogger "ZonePulse/pkg/logger"

	"github.com/gorilla/websocket"
)

// Bybit caps the args list of one subscribe frame.
const subscribeBatch = 10

// Client implements a MarketStream over the Bybit v5 public WebSocket. One
// connection carries kline, orderbook and trade topics for every configured
// symbol and timeframe.
type Client struct {
	websocketURL   string
	symbols        []string
	timeframes     []string
	orderBookDepth int
	reconnectDelay time.Duration
	pingInterval   time.Duration
	readTimeout    time.Duration
	logger         *applogger.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	connected atomic.Bool
}

// Config carries the feed connection settings.
type Config struct {
	WebSocketURL   string
	Symbols        []string
	Timeframes     []string
	OrderBookDepth int
	ReconnectDelay time.Duration
	PingInterval   time.Duration
	ReadTimeout    time.Duration
}

// New creates a Bybit MarketStream.
func New(cfg Config, lgr *applogger.Logger) drepo.MarketStream {
	if cfg.OrderBookDepth <= 0 {
		cfg.OrderBookDepth = 50
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 20 * time.Second
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 5 * time.Second
	}
	return &Client{
		websocketURL:   cfg.WebSocketURL,
		symbols:        cfg.Symbols,
		timeframes:     cfg.Timeframes,
		orderBookDepth: cfg.OrderBookDepth,
		reconnectDelay: cfg.ReconnectDelay,
		pingInterval:   cfg.PingInterval,
		readTimeout:    cfg.ReadTimeout,
		logger:         lgr,
	}
}

// Connect establishes the WebSocket connection.
func (c *Client) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.websocketURL, nil)
	if err != nil {
		return fmt.Errorf("bybit connect: %w", err)
	}
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	c.connected.Store(true)
	c.logger.Info("bybit: connected", applogger.String("url", c.websocketURL))
	return nil
}

// current returns the connection of the active session.
func (c *Client) current() *websocket.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}

// Topics returns every topic this client subscribes to.
func (c *Client) Topics() []string {
	var topics []string
	for _, sym := range c.symbols {
		for _, tf := range c.timeframes {
			topics = append(topics, fmt.Sprintf("kline.%s.%s", tf, sym))
		}
		topics = append(topics,
			fmt.Sprintf("orderbook.%d.%s", c.orderBookDepth, sym),
			fmt.Sprintf("publicTrade.%s", sym))
	}
	return topics
}

// Subscribe sends subscribe frames for every configured topic.
func (c *Client) Subscribe(ctx context.Context) error {
	conn := c.current()
	if conn == nil || !c.connected.Load() {
		return fmt.Errorf("bybit not connected")
	}
	topics := c.Topics()
	for start := 0; start < len(topics); start += subscribeBatch {
		end := start + subscribeBatch
		if end > len(topics) {
			end = len(topics)
		}
		frame := map[string]interface{}{"op": "subscribe", "args": topics[start:end]}
		if err := conn.WriteJSON(frame); err != nil {
			return fmt.Errorf("subscribe %v: %w", topics[start:end], err)
		}
	}
	c.logger.Info("bybit: subscribed", applogger.Int("topics", len(topics)))
	return nil
}

// envelope is the common shape of a Bybit v5 public frame.
type envelope struct {
	Topic   string          `json:"topic"`
	Type    string          `json:"type"`
	Data    json.RawMessage `json:"data"`
	Op      string          `json:"op"`
	Success *bool           `json:"success"`
	RetMsg  string          `json:"ret_msg"`
}

// Read streams raw topic frames and errors. The channels close when the read
// loop exits, either on context cancellation or a connection error. Each call
// starts one session over the current connection; the session's keepalive
// goroutine dies with its read loop, so Read after Reconnect leaks nothing.
func (c *Client) Read(ctx context.Context) (<-chan *models.MarketEvent, <-chan error) {
	events := make(chan *models.MarketEvent, 1024)
	errs := make(chan error, 1)
	conn := c.current()
	done := make(chan struct{})

	// Bybit expects an application-level ping to keep the stream alive.
	// The session conn is captured here; only this goroutine writes to it.
	go func() {
		ticker := time.NewTicker(c.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				if conn != nil && c.connected.Load() {
					_ = conn.WriteJSON(map[string]string{"op": "ping"})
				}
			}
		}
	}()

	go func() {
		defer close(events)
		defer close(errs)
		defer close(done)
		if conn == nil {
			errs <- fmt.Errorf("bybit conn nil")
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}
			if c.readTimeout > 0 {
				_ = conn.SetReadDeadline(time.Now().Add(c.readTimeout))
			}
			_, b, err := conn.ReadMessage()
			if err != nil {
				c.connected.Store(false)
				errs <- fmt.Errorf("bybit read: %w", err)
				return
			}
			var env envelope
			if err := json.Unmarshal(b, &env); err != nil {
				c.logger.Warn("bybit: malformed frame", applogger.Error(err))
				continue
			}
			if env.Topic == "" {
				// Operational frame: pong or subscribe ack.
				if env.Success != nil && !*env.Success {
					c.logger.Warn("bybit: op rejected",
						applogger.String("op", env.Op),
						applogger.String("ret_msg", env.RetMsg))
				}
				continue
			}
			ev := &models.MarketEvent{
				Topic:    env.Topic,
				Type:     env.Type,
				Payload:  env.Data,
				Received: time.Now(),
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	return events, errs
}

// Reconnect closes the connection and dials and resubscribes after the
// configured delay.
func (c *Client) Reconnect(ctx context.Context) error {
	_ = c.Close()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(c.reconnectDelay):
	}
	if err := c.Connect(ctx); err != nil {
		return err
	}
	return c.Subscribe(ctx)
}

// Close closes the WS connection.
func (c *Client) Close() error {
	c.connected.Store(false)
	if conn := c.current(); conn != nil {
		return conn.Close()
	}
	return nil
}

// IsConnected indicates status.
func (c *Client) IsConnected() bool { return c.connected.Load() }
