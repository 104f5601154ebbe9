package repository

import (
	"context"
	"database/sql"
	"fmt"

	"ZonePulse/internal/domain/models"
	domrepo "ZonePulse/internal/domain/repository"
)

// SignalSchema is the archive table DDL, applied through InitSchema at boot.
var SignalSchema = []string{
	`CREATE TABLE IF NOT EXISTS %s (
		ts              DateTime64(3),
		symbol          LowCardinality(String),
		timeframe       LowCardinality(String),
		signal_type     LowCardinality(String),
		confidence      Float64,
		quality         Float64,
		zone_id         UInt64,
		zone_type       LowCardinality(String),
		zone_low        Float64,
		zone_high       Float64,
		zone_touches    UInt32,
		zone_p_value    Float64
	) ENGINE = MergeTree()
	ORDER BY (symbol, ts)`,
}

// ClickHouseSignalSink archives emitted signals into a MergeTree table for
// offline review.
type ClickHouseSignalSink struct {
	db    *sql.DB
	table string
}

// NewClickHouseSignalSink creates a ClickHouse-backed sink.
func NewClickHouseSignalSink(db *sql.DB, table string) domrepo.SignalSink {
	return &ClickHouseSignalSink{db: db, table: table}
}

func (s *ClickHouseSignalSink) Push(ctx context.Context, sig *models.TradingSignal) error {
	q := fmt.Sprintf(`INSERT INTO %s
		(ts, symbol, timeframe, signal_type, confidence, quality,
		 zone_id, zone_type, zone_low, zone_high, zone_touches, zone_p_value)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, s.table)
	_, err := s.db.ExecContext(ctx, q,
		sig.Timestamp,
		sig.Symbol,
		sig.Timeframe,
		string(sig.SignalType),
		sig.Confidence,
		sig.Quality,
		sig.Zone.ID,
		string(sig.Zone.Type),
		sig.Zone.Low,
		sig.Zone.High,
		uint32(sig.Zone.Touches),
		sig.Zone.Stats.PValue,
	)
	if err != nil {
		return fmt.Errorf("archive signal: %w", err)
	}
	return nil
}

func (s *ClickHouseSignalSink) Close() error { return nil } // db owned by pkg client
