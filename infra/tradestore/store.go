// Package tradestore keeps the trade tape in PostgreSQL.
package tradestore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// Fill is one stored execution.
type Fill struct {
	ExecutionID uint64
	Symbol      string
	BuyOrderID  uint64
	SellOrderID uint64
	Price       int64
	Quantity    int64
	ExecutedAt  time.Time
	EventSeq    uint64
}

const schema = `
CREATE TABLE IF NOT EXISTS fills (
	execution_id  BIGINT PRIMARY KEY,
	symbol        TEXT        NOT NULL,
	buy_order_id  BIGINT      NOT NULL,
	sell_order_id BIGINT      NOT NULL,
	price         BIGINT      NOT NULL,
	quantity      BIGINT      NOT NULL CHECK (quantity > 0),
	executed_at   TIMESTAMPTZ NOT NULL,
	event_seq     BIGINT      NOT NULL
);
CREATE INDEX IF NOT EXISTS fills_symbol_executed_at ON fills (symbol, executed_at)`

type Store struct {
	db *sql.DB
}

// Open connects with a lib/pq DSN and checks the server is reachable.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return New(db), nil
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply fills schema: %w", err)
	}
	return nil
}

// SaveFill is idempotent on execution id.
func (s *Store) SaveFill(ctx context.Context, f Fill) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO fills (execution_id, symbol, buy_order_id, sell_order_id, price, quantity, executed_at, event_seq)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (execution_id) DO NOTHING`,
		int64(f.ExecutionID), f.Symbol, int64(f.BuyOrderID), int64(f.SellOrderID),
		f.Price, f.Quantity, f.ExecutedAt, int64(f.EventSeq),
	)
	if err != nil {
		return fmt.Errorf("save fill %d: %w", f.ExecutionID, err)
	}
	return nil
}

// Fills returns the most recent fills of a symbol, newest first.
func (s *Store) Fills(ctx context.Context, symbol string, limit int) ([]Fill, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT execution_id, symbol, buy_order_id, sell_order_id, price, quantity, executed_at, event_seq
		FROM fills WHERE symbol = $1
		ORDER BY executed_at DESC, execution_id DESC
		LIMIT $2`, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("query fills: %w", err)
	}
	defer rows.Close()

	var out []Fill
	for rows.Next() {
		var (
			f                       Fill
			exec, buy, sell, evtSeq int64
		)
		if err := rows.Scan(&exec, &f.Symbol, &buy, &sell, &f.Price, &f.Quantity, &f.ExecutedAt, &evtSeq); err != nil {
			return nil, fmt.Errorf("scan fill: %w", err)
		}
		f.ExecutionID, f.BuyOrderID, f.SellOrderID, f.EventSeq = uint64(exec), uint64(buy), uint64(sell), uint64(evtSeq)
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}
