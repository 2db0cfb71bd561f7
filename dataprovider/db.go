// File: dataprovider/db.go
package dataprovider

import (
	"Tradecurve/perf"
	"Tradecurve/utilities"
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteCache persists the raw platform series between runs so a restart can
// serve dashboards before the first live fetch completes.
type SQLiteCache struct {
	db     *sql.DB
	logger *utilities.Logger
}

func NewSQLiteCache(cfg utilities.DatabaseConfig, logger *utilities.Logger) (*SQLiteCache, error) {
	db, err := sql.Open("sqlite3", cfg.DBPath)
	if err != nil {
		return nil, err
	}
	schema := `
	CREATE TABLE IF NOT EXISTS equity_samples (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		entity_id TEXT NOT NULL,
		timeframe TEXT NOT NULL,
		timestamp TEXT NOT NULL,
		timestamp_ms INTEGER NOT NULL,
		equity REAL,
		benchmark_return REAL,
		stock_price REAL,
		stock_balance REAL,
		ohlcv_open REAL,
		ohlcv_high REAL,
		ohlcv_low REAL,
		ohlcv_close REAL,
		ohlcv_volume REAL,
		ohlcv_final INTEGER,
		ohlcv_coverage REAL,
		UNIQUE(entity_id, timeframe, timestamp_ms)
	);
	CREATE INDEX IF NOT EXISTS idx_samples_entity_tf_ts ON equity_samples (entity_id, timeframe, timestamp_ms);

	CREATE TABLE IF NOT EXISTS trading_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		entity_id TEXT NOT NULL,
		event_time TEXT NOT NULL,
		event_time_ms INTEGER NOT NULL,
		kind TEXT NOT NULL,
		message TEXT NOT NULL,
		price REAL,
		UNIQUE(entity_id, event_time_ms, kind)
	);
	CREATE INDEX IF NOT EXISTS idx_events_entity_ts ON trading_events (entity_id, event_time_ms);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &SQLiteCache{db: db, logger: logger}, nil
}

// SaveEquitySamples upserts one fetched batch. Samples whose timestamp does
// not parse are skipped; the engine would drop them anyway.
func (s *SQLiteCache) SaveEquitySamples(entityID, timeframe string, samples []perf.RawEquitySample) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO equity_samples
		(entity_id, timeframe, timestamp, timestamp_ms, equity, benchmark_return, stock_price, stock_balance,
		 ohlcv_open, ohlcv_high, ohlcv_low, ohlcv_close, ohlcv_volume, ohlcv_final, ohlcv_coverage)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, smp := range samples {
		ts, err := time.Parse(time.RFC3339, smp.Timestamp)
		if err != nil {
			continue
		}
		var o, h, l, c, v, cov interface{}
		var fin interface{}
		if smp.OHLCV != nil {
			o, h, l, c = smp.OHLCV.Open, smp.OHLCV.High, smp.OHLCV.Low, smp.OHLCV.Close
			v = nullableFloat(smp.OHLCV.Volume)
			fin = nullableBool(smp.OHLCV.Final)
			cov = nullableFloat(smp.OHLCV.Coverage)
		}
		if _, err := stmt.Exec(
			entityID, timeframe, smp.Timestamp, ts.UnixMilli(),
			nullableFloat(smp.Equity), nullableFloat(smp.BenchmarkReturn),
			nullableFloat(smp.StockPrice), nullableFloat(smp.StockBalance),
			o, h, l, c, v, fin, cov,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to save sample at %s: %w", smp.Timestamp, err)
		}
	}
	return tx.Commit()
}

// GetEquitySamples returns the cached samples for one entity and timeframe
// with timestamps in [start, end], ordered oldest first.
func (s *SQLiteCache) GetEquitySamples(entityID, timeframe string, start, end time.Time) ([]perf.RawEquitySample, error) {
	rows, err := s.db.Query(`SELECT timestamp, equity, benchmark_return, stock_price, stock_balance,
		ohlcv_open, ohlcv_high, ohlcv_low, ohlcv_close, ohlcv_volume, ohlcv_final, ohlcv_coverage
		FROM equity_samples
		WHERE entity_id = ? AND timeframe = ? AND timestamp_ms BETWEEN ? AND ?
		ORDER BY timestamp_ms ASC`,
		entityID, timeframe, start.UnixMilli(), end.UnixMilli())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []perf.RawEquitySample
	for rows.Next() {
		var smp perf.RawEquitySample
		var equity, benchmark, price, balance sql.NullFloat64
		var o, h, l, c, vol, coverage sql.NullFloat64
		var fin sql.NullBool
		if err := rows.Scan(&smp.Timestamp, &equity, &benchmark, &price, &balance,
			&o, &h, &l, &c, &vol, &fin, &coverage); err != nil {
			return nil, err
		}
		smp.Equity = floatPtr(equity)
		smp.BenchmarkReturn = floatPtr(benchmark)
		smp.StockPrice = floatPtr(price)
		smp.StockBalance = floatPtr(balance)
		if o.Valid && h.Valid && l.Valid && c.Valid {
			smp.OHLCV = &perf.RawOHLCV{
				Open:     o.Float64,
				High:     h.Float64,
				Low:      l.Float64,
				Close:    c.Float64,
				Volume:   floatPtr(vol),
				Coverage: floatPtr(coverage),
			}
			if fin.Valid {
				f := fin.Bool
				smp.OHLCV.Final = &f
			}
		}
		samples = append(samples, smp)
	}
	return samples, rows.Err()
}

// SaveTradingEvents upserts one fetched trading-log batch. A later event with
// the same entity, instant and kind replaces the stored row, mirroring how the
// engine treats re-emitted log lines as corrections.
func (s *SQLiteCache) SaveTradingEvents(entityID string, events []perf.RawLogEvent) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO trading_events
		(entity_id, event_time, event_time_ms, kind, message, price)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, ev := range events {
		ts, err := time.Parse(time.RFC3339, ev.EventTime)
		if err != nil {
			continue
		}
		var price interface{}
		if ev.Info != nil {
			price = nullableFloat(ev.Info.Price)
		}
		if _, err := stmt.Exec(entityID, ev.EventTime, ts.UnixMilli(), ev.Kind, ev.Message, price); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to save event at %s: %w", ev.EventTime, err)
		}
	}
	return tx.Commit()
}

// GetTradingEvents returns the cached trading-log entries for one entity with
// event times in [start, end], ordered oldest first.
func (s *SQLiteCache) GetTradingEvents(entityID string, start, end time.Time) ([]perf.RawLogEvent, error) {
	rows, err := s.db.Query(`SELECT event_time, kind, message, price
		FROM trading_events
		WHERE entity_id = ? AND event_time_ms BETWEEN ? AND ?
		ORDER BY event_time_ms ASC`,
		entityID, start.UnixMilli(), end.UnixMilli())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []perf.RawLogEvent
	for rows.Next() {
		var (
			ev    perf.RawLogEvent
			price sql.NullFloat64
		)
		if err := rows.Scan(&ev.EventTime, &ev.Kind, &ev.Message, &price); err != nil {
			return nil, err
		}
		if price.Valid {
			ev.Info = &perf.EventInfo{Price: floatPtr(price)}
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// PruneBefore deletes samples and events older than the cutoff from every
// entity. Used by the scheduled cleanup to keep the cache bounded.
func (s *SQLiteCache) PruneBefore(cutoff time.Time) error {
	ms := cutoff.UnixMilli()
	if _, err := s.db.Exec(`DELETE FROM equity_samples WHERE timestamp_ms < ?`, ms); err != nil {
		return fmt.Errorf("failed to prune equity samples: %w", err)
	}
	if _, err := s.db.Exec(`DELETE FROM trading_events WHERE event_time_ms < ?`, ms); err != nil {
		return fmt.Errorf("failed to prune trading events: %w", err)
	}
	return nil
}

// StartScheduledCleanup prunes rows older than retention on every tick until
// the context is cancelled.
func (s *SQLiteCache) StartScheduledCleanup(ctx context.Context, interval, retention time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cutoff := time.Now().Add(-retention)
				if err := s.PruneBefore(cutoff); err != nil {
					s.logger.LogError("db cleanup: %v", err)
					continue
				}
				s.logger.LogInfo("db cleanup: pruned rows older than %s", cutoff.Format(time.RFC3339))
			}
		}
	}()
}

func (s *SQLiteCache) Close() error {
	return s.db.Close()
}

func nullableFloat(p *float64) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

func nullableBool(p *bool) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

func floatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}
