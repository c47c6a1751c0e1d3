// Package sqlite provides durable storage for alerts, trades, backtest
// results and historical candles. Alert records survive process restarts;
// the evaluator reloads ACTIVE ones at startup.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"strategy-engine/internal/alert"
	"strategy-engine/internal/backtest"
	"strategy-engine/internal/model"
)

// Store wraps a single SQLite database holding all engine state.
type Store struct {
	db *sql.DB
}

// DB returns the underlying sql.DB for health checks.
func (s *Store) DB() *sql.DB { return s.db }

// New opens (or creates) the database with WAL mode and the engine schema.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Single writer keeps WAL contention out of the picture.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Printf("[sqlite] opened database at %s", path)
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS candles (
			symbol     TEXT    NOT NULL,
			timeframe  TEXT    NOT NULL,
			ts         INTEGER NOT NULL,
			open       REAL    NOT NULL,
			high       REAL    NOT NULL,
			low        REAL    NOT NULL,
			close      REAL    NOT NULL,
			volume     REAL,
			PRIMARY KEY (symbol, timeframe, ts)
		);

		CREATE TABLE IF NOT EXISTS alerts (
			id           TEXT PRIMARY KEY,
			symbol       TEXT NOT NULL,
			cond_type    TEXT NOT NULL,
			indicator    TEXT,
			comparison   TEXT NOT NULL,
			value        REAL NOT NULL,
			priority     TEXT NOT NULL,
			status       TEXT NOT NULL,
			created_at   INTEGER NOT NULL,
			triggered_at INTEGER,
			expires_at   INTEGER
		);
		CREATE INDEX IF NOT EXISTS idx_alerts_status ON alerts(status);

		CREATE TABLE IF NOT EXISTS backtest_runs (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol     TEXT NOT NULL,
			strategy   TEXT NOT NULL,
			result     TEXT NOT NULL,
			created_at INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS trades (
			run_id      INTEGER NOT NULL REFERENCES backtest_runs(id),
			symbol      TEXT NOT NULL,
			side        TEXT NOT NULL,
			entry_ts    INTEGER NOT NULL,
			exit_ts     INTEGER NOT NULL,
			entry_price REAL NOT NULL,
			exit_price  REAL NOT NULL,
			size        REAL NOT NULL,
			pnl         REAL NOT NULL
		);
	`)
	return err
}

// InsertCandles writes candles in one transaction, replacing duplicates.
func (s *Store) InsertCandles(ctx context.Context, candles []model.Candle) error {
	if len(candles) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite begin: %w", err)
	}
	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO candles (symbol, timeframe, ts, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("sqlite prepare: %w", err)
	}
	defer stmt.Close()

	for _, c := range candles {
		if _, err := stmt.Exec(c.Symbol, c.Timeframe, c.TS.Unix(), c.Open, c.High, c.Low, c.Close, c.Volume); err != nil {
			tx.Rollback()
			return fmt.Errorf("sqlite insert candle: %w", err)
		}
	}
	return tx.Commit()
}

// ReadCandles reads candles for a symbol/timeframe ordered ascending by
// timestamp, filtered to ts > fromTS (0 = all).
func (s *Store) ReadCandles(symbol, timeframe string, fromTS int64) ([]model.Candle, error) {
	rows, err := s.db.Query(`
		SELECT symbol, timeframe, ts, open, high, low, close, volume
		FROM candles
		WHERE symbol = ? AND timeframe = ? AND ts > ?
		ORDER BY ts ASC
	`, symbol, timeframe, fromTS)
	if err != nil {
		return nil, fmt.Errorf("sqlite query candles: %w", err)
	}
	defer rows.Close()

	var candles []model.Candle
	for rows.Next() {
		var c model.Candle
		var tsUnix int64
		if err := rows.Scan(&c.Symbol, &c.Timeframe, &tsUnix, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("sqlite scan candle: %w", err)
		}
		c.TS = time.Unix(tsUnix, 0).UTC()
		candles = append(candles, c)
	}
	return candles, rows.Err()
}

// SaveAlert upserts one alert record.
func (s *Store) SaveAlert(ctx context.Context, a alert.Alert) error {
	var triggeredAt, expiresAt any
	if a.TriggeredAt != nil {
		triggeredAt = a.TriggeredAt.Unix()
	}
	if !a.ExpiresAt.IsZero() {
		expiresAt = a.ExpiresAt.Unix()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO alerts
			(id, symbol, cond_type, indicator, comparison, value, priority, status, created_at, triggered_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.Symbol, a.Condition.Type, a.Condition.Indicator, a.Condition.Comparison,
		a.Condition.Value, a.Priority, a.Status, a.CreatedAt.Unix(), triggeredAt, expiresAt)
	if err != nil {
		return fmt.Errorf("sqlite save alert: %w", err)
	}
	return nil
}

// UpdateAlertStatus records a lifecycle transition.
func (s *Store) UpdateAlertStatus(ctx context.Context, id string, status alert.Status, triggeredAt time.Time) error {
	var ts any
	if !triggeredAt.IsZero() {
		ts = triggeredAt.Unix()
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE alerts SET status = ?, triggered_at = COALESCE(?, triggered_at) WHERE id = ?
	`, status, ts, id)
	if err != nil {
		return fmt.Errorf("sqlite update alert status: %w", err)
	}
	return nil
}

// LoadActiveAlerts returns all alerts still in the ACTIVE state.
func (s *Store) LoadActiveAlerts(ctx context.Context) ([]alert.Alert, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, symbol, cond_type, indicator, comparison, value, priority, status, created_at, triggered_at, expires_at
		FROM alerts WHERE status = ?
	`, alert.StatusActive)
	if err != nil {
		return nil, fmt.Errorf("sqlite query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []alert.Alert
	for rows.Next() {
		var a alert.Alert
		var indicator sql.NullString
		var createdAt int64
		var triggeredAt, expiresAt sql.NullInt64
		if err := rows.Scan(&a.ID, &a.Symbol, &a.Condition.Type, &indicator, &a.Condition.Comparison,
			&a.Condition.Value, &a.Priority, &a.Status, &createdAt, &triggeredAt, &expiresAt); err != nil {
			return nil, fmt.Errorf("sqlite scan alert: %w", err)
		}
		a.Condition.Indicator = indicator.String
		a.CreatedAt = time.Unix(createdAt, 0).UTC()
		if triggeredAt.Valid {
			t := time.Unix(triggeredAt.Int64, 0).UTC()
			a.TriggeredAt = &t
		}
		if expiresAt.Valid {
			a.ExpiresAt = time.Unix(expiresAt.Int64, 0).UTC()
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

// SaveResult stores one finished backtest run and its trades.
func (s *Store) SaveResult(ctx context.Context, r *backtest.Result) error {
	blob, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("sqlite marshal result: %w", err)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite begin: %w", err)
	}
	res, err := tx.Exec(`
		INSERT INTO backtest_runs (symbol, strategy, result, created_at) VALUES (?, ?, ?, ?)
	`, r.Symbol, r.Strategy, string(blob), time.Now().Unix())
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("sqlite insert run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("sqlite run id: %w", err)
	}
	for _, t := range r.Trades {
		if _, err := tx.Exec(`
			INSERT INTO trades (run_id, symbol, side, entry_ts, exit_ts, entry_price, exit_price, size, pnl)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, runID, t.Symbol, t.Side, t.EntryTime.Unix(), t.ExitTime.Unix(), t.EntryPrice, t.ExitPrice, t.Size, t.PnL); err != nil {
			tx.Rollback()
			return fmt.Errorf("sqlite insert trade: %w", err)
		}
	}
	return tx.Commit()
}
