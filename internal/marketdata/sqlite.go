package marketdata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.

	"niftybacktest/internal/models"
)

// Compile-time interface check.
var _ Provider = (*SQLiteProvider)(nil)

const createTables = `
CREATE TABLE IF NOT EXISTS candles (
	symbol    TEXT    NOT NULL,
	timestamp INTEGER NOT NULL,
	open      REAL    NOT NULL,
	high      REAL    NOT NULL,
	low       REAL    NOT NULL,
	close     REAL    NOT NULL,
	volume    INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (symbol, timestamp)
);
CREATE TABLE IF NOT EXISTS option_quotes (
	symbol      TEXT    NOT NULL,
	timestamp   INTEGER NOT NULL,
	strike      REAL    NOT NULL,
	option_type TEXT    NOT NULL,
	expiry      TEXT    NOT NULL,
	bid         REAL    NOT NULL DEFAULT 0,
	ask         REAL    NOT NULL DEFAULT 0,
	last        REAL    NOT NULL DEFAULT 0,
	PRIMARY KEY (symbol, timestamp, strike, option_type, expiry)
);
`

// SQLiteProvider serves historical data from a local SQLite database
// populated by the (out-of-scope) data-collection subsystem.
type SQLiteProvider struct {
	db *sql.DB
}

// NewSQLiteProvider opens (or creates) the database at dbPath and ensures the
// schema exists.
func NewSQLiteProvider(dbPath string) (*SQLiteProvider, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	if _, err := db.Exec(createTables); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &SQLiteProvider{db: db}, nil
}

// Close closes the underlying database connection.
func (p *SQLiteProvider) Close() error {
	return p.db.Close()
}

// Candles returns the ordered series for symbol in [from, to].
func (p *SQLiteProvider) Candles(ctx context.Context, symbol string, from, to time.Time) ([]models.Candle, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT timestamp, open, high, low, close, volume
		 FROM candles
		 WHERE symbol = ? AND timestamp >= ? AND timestamp <= ?
		 ORDER BY timestamp`,
		symbol, from.Unix(), to.Unix())
	if err != nil {
		return nil, fmt.Errorf("querying candles: %w", err)
	}
	defer rows.Close()

	var out []models.Candle
	for rows.Next() {
		var ts int64
		var c models.Candle
		if err := rows.Scan(&ts, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("scanning candle: %w", err)
		}
		c.Timestamp = time.Unix(ts, 0).UTC()
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating candles: %w", err)
	}
	return out, nil
}

// OptionQuote returns the quote at the exact timestamp, or (nil, nil) when no
// observation exists.
func (p *SQLiteProvider) OptionQuote(ctx context.Context, symbol string, at time.Time, strike float64, optType models.OptionType, expiry time.Time) (*OptionQuote, error) {
	row := p.db.QueryRowContext(ctx,
		`SELECT bid, ask, last
		 FROM option_quotes
		 WHERE symbol = ? AND timestamp = ? AND strike = ? AND option_type = ? AND expiry = ?`,
		symbol, at.Unix(), strike, string(optType), expiry.Format("2006-01-02"))

	q := OptionQuote{
		Symbol:     symbol,
		Timestamp:  at,
		Strike:     strike,
		OptionType: optType,
		Expiry:     expiry,
	}
	if err := row.Scan(&q.Bid, &q.Ask, &q.Last); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying option quote: %w", err)
	}
	return &q, nil
}

// SaveCandles bulk-inserts a candle series, replacing duplicates. Exposed for
// data-loading tools and tests.
func (p *SQLiteProvider) SaveCandles(ctx context.Context, symbol string, candles []models.Candle) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning tx: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO candles (symbol, timestamp, open, high, low, close, volume)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range candles {
		if _, err := stmt.ExecContext(ctx, symbol, c.Timestamp.Unix(),
			c.Open, c.High, c.Low, c.Close, c.Volume); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("inserting candle at %s: %w", c.Timestamp, err)
		}
	}
	return tx.Commit()
}

// SaveQuotes bulk-inserts option quotes, replacing duplicates.
func (p *SQLiteProvider) SaveQuotes(ctx context.Context, quotes []OptionQuote) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning tx: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO option_quotes (symbol, timestamp, strike, option_type, expiry, bid, ask, last)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, q := range quotes {
		if _, err := stmt.ExecContext(ctx, q.Symbol, q.Timestamp.Unix(), q.Strike,
			string(q.OptionType), q.Expiry.Format("2006-01-02"), q.Bid, q.Ask, q.Last); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("inserting quote at %s: %w", q.Timestamp, err)
		}
	}
	return tx.Commit()
}
