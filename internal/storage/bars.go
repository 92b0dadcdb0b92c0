package storage

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"time"

	"github.com/ahroberts/tickflow/internal/feed"
)

// Fixed-width UTC layout so the TEXT column sorts lexicographically even
// when whole-second and sub-second bars share a second. RFC3339Nano trims
// trailing zeros and breaks ORDER BY.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// BarStore reads and writes OHLCV history.
type BarStore struct {
	db *sql.DB
}

func NewBarStore(db *sql.DB) *BarStore {
	return &BarStore{db: db}
}

// Insert validates and upserts bars in a single transaction.
func (s *BarStore) Insert(ctx context.Context, bars []feed.Bar) error {
	if len(bars) == 0 {
		return nil
	}
	for i, b := range bars {
		if err := b.Validate(); err != nil {
			return fmt.Errorf("bar %d: %w", i, err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert bars: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO bars
  (symbol, datetime, open, high, low, close, volume)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(symbol, datetime) DO UPDATE SET
  open=excluded.open, high=excluded.high, low=excluded.low,
  close=excluded.close, volume=excluded.volume;`)
	if err != nil {
		return fmt.Errorf("prepare insert bars: %w", err)
	}
	defer stmt.Close()

	for _, b := range bars {
		if _, err := stmt.ExecContext(ctx,
			b.Symbol, b.DateTime.UTC().Format(timeLayout),
			b.Open, b.High, b.Low, b.Close, b.Volume,
		); err != nil {
			return fmt.Errorf("insert bar %s@%s: %w", b.Symbol, b.DateTime, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert bars: %w", err)
	}
	return nil
}

// Count returns how many bars are stored for symbol.
func (s *BarStore) Count(ctx context.Context, symbol string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bars WHERE symbol = ?;`, symbol).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count bars for %s: %w", symbol, err)
	}
	return n, nil
}

// Load returns all bars for symbol in ascending datetime order. A zero from
// or to leaves that bound open.
func (s *BarStore) Load(ctx context.Context, symbol string, from, to time.Time) ([]feed.Bar, error) {
	q := `SELECT symbol, datetime, open, high, low, close, volume
FROM bars WHERE symbol = ?`
	args := []any{symbol}
	if !from.IsZero() {
		q += ` AND datetime >= ?`
		args = append(args, from.UTC().Format(timeLayout))
	}
	if !to.IsZero() {
		q += ` AND datetime <= ?`
		args = append(args, to.UTC().Format(timeLayout))
	}
	q += ` ORDER BY datetime ASC;`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("load bars for %s: %w", symbol, err)
	}
	defer rows.Close()

	var out []feed.Bar
	for rows.Next() {
		b, err := scanBar(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bars for %s: %w", symbol, err)
	}
	return out, nil
}

func scanBar(rows *sql.Rows) (feed.Bar, error) {
	var b feed.Bar
	var dt string
	if err := rows.Scan(&b.Symbol, &dt, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
		return feed.Bar{}, fmt.Errorf("scan bar: %w", err)
	}
	t, err := time.Parse(timeLayout, dt)
	if err != nil {
		return feed.Bar{}, fmt.Errorf("parse bar datetime %q: %w", dt, err)
	}
	b.DateTime = t.UTC()
	return b, nil
}

// Source returns a feed.BarSource streaming symbol's history in ascending
// order. Bars are loaded eagerly: backtests re-read the same window many
// times and the dispatcher must never block on the database mid-step.
func (s *BarStore) Source(ctx context.Context, symbol string, from, to time.Time) (feed.BarSource, error) {
	bars, err := s.Load(ctx, symbol, from, to)
	if err != nil {
		return nil, err
	}
	return &storeSource{bars: bars}, nil
}

type storeSource struct {
	bars []feed.Bar
	pos  int
}

func (s *storeSource) Next() (*feed.Bar, error) {
	if s.pos >= len(s.bars) {
		return nil, io.EOF
	}
	b := s.bars[s.pos]
	s.pos++
	return &b, nil
}
