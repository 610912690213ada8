// Package clickhouse loads a time-aligned close-price series for one
// symbol/timeframe out of ClickHouse, retrying failed queries.
package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// Config is the connection bundle for one ClickHouse cluster.
type Config struct {
	Addr     []string
	Database string
	Username string
	Password string
}

// Loader reads OHLCV bars and projects them down to the close-price/date
// vectors the core's simulator needs.
type Loader struct {
	conn   clickhouse.Conn
	logger *zap.Logger
}

// NewLoader opens a pooled connection to the cluster described by cfg.
func NewLoader(cfg Config, logger *zap.Logger) (*Loader, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: cfg.Addr,
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		DialTimeout: 10 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("clickhouse: open: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{conn: conn, logger: logger}, nil
}

// LoadSeries returns the close price and bar-open-time vectors for symbol
// between from and to (inclusive), ordered by time ascending. Any failed
// attempt (query, scan, or row error) is retried with exponential backoff;
// a query that keeps failing past backoff.DefaultMaxElapsedTime returns the
// last error.
func (l *Loader) LoadSeries(ctx context.Context, symbol, timeframe string, from, to time.Time) ([]float64, []time.Time, error) {
	const query = `
		SELECT close, bar_time
		FROM market_data
		WHERE symbol = ? AND timeframe = ? AND bar_time BETWEEN ? AND ?
		ORDER BY bar_time ASC
	`

	var prices []float64
	var dates []time.Time

	op := func() error {
		prices = prices[:0]
		dates = dates[:0]

		rows, err := l.conn.Query(ctx, query, symbol, timeframe, from, to)
		if err != nil {
			return fmt.Errorf("clickhouse: query: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var price float64
			var barTime time.Time
			if err := rows.Scan(&price, &barTime); err != nil {
				return fmt.Errorf("clickhouse: scan: %w", err)
			}
			prices = append(prices, price)
			dates = append(dates, barTime)
		}
		return rows.Err()
	}

	b := backoff.NewExponentialBackOff()
	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		l.logger.Error("clickhouse: load series failed after retries",
			zap.String("symbol", symbol), zap.String("timeframe", timeframe), zap.Error(err))
		return nil, nil, err
	}
	return prices, dates, nil
}

// Close releases the underlying connection pool.
func (l *Loader) Close() error {
	return l.conn.Close()
}
