package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"ZonePulse/internal/domain/models"
	domrepo "ZonePulse/internal/domain/repository"
	applogger "ZonePulse/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// RedisSignalSink pushes emitted signals onto a Redis list. LPUSH at this end
// and RPOP at the consumer's keeps the list FIFO.
type RedisSignalSink struct {
	client *redis.Client
	key    string
}

// NewRedisSignalSink creates a sink writing to the given list key.
func NewRedisSignalSink(client *redis.Client, key string) domrepo.SignalSink {
	return &RedisSignalSink{client: client, key: key}
}

func (s *RedisSignalSink) Push(ctx context.Context, sig *models.TradingSignal) error {
	b, err := json.Marshal(sig)
	if err != nil {
		return fmt.Errorf("marshal signal: %w", err)
	}
	if err := s.client.LPush(ctx, s.key, b).Err(); err != nil {
		return fmt.Errorf("lpush %s: %w", s.key, err)
	}
	return nil
}

func (s *RedisSignalSink) Close() error { return nil } // client shared, closed by owner

// RedisHistoryStore mirrors confirmed candles into per-pair Redis lists and
// announces every append on a pub/sub channel.
type RedisHistoryStore struct {
	client  *redis.Client
	limit   int64
	channel string
	logger  *applogger.Logger
}

// NewRedisHistoryStore creates a history mirror keeping limit candles per
// (symbol, timeframe).
func NewRedisHistoryStore(client *redis.Client, limit int, channel string, lgr *applogger.Logger) domrepo.HistoryStore {
	if limit <= 0 {
		limit = 500
	}
	return &RedisHistoryStore{
		client:  client,
		limit:   int64(limit),
		channel: channel,
		logger:  lgr,
	}
}

func historyKey(symbol, timeframe string) string {
	return fmt.Sprintf("history:%s:%s", symbol, timeframe)
}

type candleUpdate struct {
	Symbol    string        `json:"symbol"`
	Timeframe string        `json:"timeframe"`
	Candle    models.Candle `json:"candle"`
}

func (s *RedisHistoryStore) PushCandle(ctx context.Context, symbol, timeframe string, c models.Candle) error {
	b, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal candle: %w", err)
	}
	key := historyKey(symbol, timeframe)

	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, key, b)
	pipe.LTrim(ctx, key, 0, s.limit-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("history push %s: %w", key, err)
	}

	if s.channel != "" {
		msg, err := json.Marshal(candleUpdate{Symbol: symbol, Timeframe: timeframe, Candle: c})
		if err == nil {
			if err := s.client.Publish(ctx, s.channel, msg).Err(); err != nil {
				// History landed; a lost announcement is not worth failing the write.
				s.logger.Warn("candle update publish failed",
					applogger.String("symbol", symbol), applogger.Error(err))
			}
		}
	}
	return nil
}

func (s *RedisHistoryStore) History(ctx context.Context, symbol, timeframe string, limit int) ([]models.Candle, error) {
	if limit <= 0 || int64(limit) > s.limit {
		limit = int(s.limit)
	}
	raw, err := s.client.LRange(ctx, historyKey(symbol, timeframe), 0, int64(limit)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("history range: %w", err)
	}
	// LPUSH stores newest first; flip back to chronological order.
	out := make([]models.Candle, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		var c models.Candle
		if err := json.Unmarshal([]byte(raw[i]), &c); err != nil {
			return nil, fmt.Errorf("history decode: %w", err)
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *RedisHistoryStore) Close() error { return nil }
