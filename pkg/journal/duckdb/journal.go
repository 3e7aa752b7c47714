// Package duckdb records a simulation run into a duckdb database: every
// published tick and every realized close. The journal is a passive sidecar,
// it subscribes to the price bus and the broker's close listener and never
// feeds anything back into the run.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/simforge/tradesim/pkg/broker"
	"github.com/simforge/tradesim/pkg/common"
)

const schema = `
create table if not exists ticks (
	ts        timestamp not null,
	symbol    varchar not null,
	bid       varchar not null,
	ask       varchar not null
);
create table if not exists closes (
	ticket    bigint not null,
	symbol    varchar not null,
	side      varchar not null,
	volume    varchar not null,
	entry     varchar not null,
	exit      varchar not null,
	profit    varchar not null,
	reason    varchar not null,
	opened_at timestamp not null,
	closed_at timestamp not null
);
`

// Journal persists run events. Prices are stored as their exact decimal
// string form; duckdb's float types would silently round them.
type Journal struct {
	mu sync.Mutex
	db *sql.DB
}

// Open creates or opens the journal database. An empty path opens an
// in-memory database.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("journal: open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal: create schema: %w", err)
	}
	return &Journal{db: db}, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

// OnPriceUpdate is the price-bus subscriber. Recording failures are logged,
// never propagated; the journal must not be able to break a run.
func (j *Journal) OnPriceUpdate(ctx context.Context, tick common.Tick) {
	if err := j.RecordTick(tick); err != nil {
		slog.Error("journal tick write failed", "symbol", tick.Symbol, "error", err)
	}
}

// OnClose is the broker close listener.
func (j *Journal) OnClose(closed broker.ClosedPosition) {
	if err := j.RecordClose(closed); err != nil {
		slog.Error("journal close write failed", "ticket", closed.Position.Ticket, "error", err)
	}
}

func (j *Journal) RecordTick(tick common.Tick) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	_, err := j.db.Exec(
		`insert into ticks (ts, symbol, bid, ask) values (?, ?, ?, ?)`,
		tick.TimeStamp, tick.Symbol, tick.Bid.String(), tick.Ask.String(),
	)
	return err
}

func (j *Journal) RecordClose(closed broker.ClosedPosition) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	pos := closed.Position
	_, err := j.db.Exec(
		`insert into closes (ticket, symbol, side, volume, entry, exit, profit, reason, opened_at, closed_at)
		 values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		pos.Ticket, pos.Symbol, pos.Side.String(), pos.Volume.String(),
		pos.EntryPrice.String(), pos.CurrentPrice.String(), pos.Profit.String(),
		string(closed.Reason), pos.OpenedAt, closed.ClosedAt,
	)
	return err
}

// TickCount reports the number of recorded ticks, optionally for one symbol.
func (j *Journal) TickCount(symbol string) (int, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	row := j.db.QueryRow(`select count(*) from ticks where ? = '' or symbol = ?`, symbol, symbol)
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// ClosedTickets returns the recorded close rows as (ticket, reason, profit)
// in insertion order.
func (j *Journal) ClosedTickets() ([]ClosedRow, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	rows, err := j.db.Query(`select ticket, reason, profit from closes`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ClosedRow
	for rows.Next() {
		var r ClosedRow
		if err := rows.Scan(&r.Ticket, &r.Reason, &r.Profit); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type ClosedRow struct {
	Ticket common.Ticket
	Reason string
	Profit string
}
