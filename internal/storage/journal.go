package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/glebarez/go-sqlite"

	"github.com/MuhammadAliAbid58/HFT-2/internal/domain"
	"github.com/MuhammadAliAbid58/HFT-2/internal/latency"
	"github.com/MuhammadAliAbid58/HFT-2/pkg/quant"
)

// Journal persists the session's trading record in SQLite: every closed
// position in close order, periodic latency summaries, and session metadata.
type Journal struct {
	db *sql.DB
}

// NewJournal opens (or creates) the journal with WAL mode enabled.
func NewJournal(dbPath string) (*Journal, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA cache_size=-2000;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return nil, fmt.Errorf("set pragma %s: %w", pragma, err)
		}
	}

	schema := []string{
		`CREATE TABLE IF NOT EXISTS closed_positions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol TEXT NOT NULL,
			direction TEXT NOT NULL,
			entry_micros INTEGER NOT NULL,
			close_micros INTEGER NOT NULL,
			open_ts INTEGER NOT NULL,
			close_ts INTEGER NOT NULL,
			outcome TEXT NOT NULL,
			reason TEXT NOT NULL,
			pnl_micros INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_closed_symbol_ts
			ON closed_positions (symbol, close_ts);`,
		`CREATE TABLE IF NOT EXISTS latency_summaries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol TEXT NOT NULL,
			stage TEXT NOT NULL,
			sample_count INTEGER NOT NULL,
			p50_micros INTEGER NOT NULL,
			p95_micros INTEGER NOT NULL,
			max_micros INTEGER NOT NULL,
			recorded_at INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS metadata (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		);`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}

	return &Journal{db: db}, nil
}

// RecordClose appends one closed position. Called from the orchestrator's
// journal goroutine, never from worker loops.
func (j *Journal) RecordClose(ctx context.Context, rec domain.ClosedRecord) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO closed_positions
			(symbol, direction, entry_micros, close_micros, open_ts, close_ts, outcome, reason, pnl_micros)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Symbol, rec.Direction.String(), int64(rec.EntryMicros), int64(rec.CloseMicros),
		int64(rec.OpenTs), int64(rec.CloseTs), string(rec.Outcome), string(rec.Reason), rec.PnlMicros,
	)
	if err != nil {
		return fmt.Errorf("insert closed position: %w", err)
	}
	return nil
}

// ClosedBySymbol returns the archived positions for one symbol in close
// order.
func (j *Journal) ClosedBySymbol(ctx context.Context, symbol string) ([]domain.ClosedRecord, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT symbol, direction, entry_micros, close_micros, open_ts, close_ts, outcome, reason, pnl_micros
		 FROM closed_positions WHERE symbol = ? ORDER BY close_ts ASC, id ASC`,
		symbol,
	)
	if err != nil {
		return nil, fmt.Errorf("query closed positions: %w", err)
	}
	defer rows.Close()

	var out []domain.ClosedRecord
	for rows.Next() {
		var rec domain.ClosedRecord
		var direction, outcome, reason string
		var entry, close, openTs, closeTs int64
		if err := rows.Scan(&rec.Symbol, &direction, &entry, &close, &openTs, &closeTs, &outcome, &reason, &rec.PnlMicros); err != nil {
			return nil, fmt.Errorf("scan closed position: %w", err)
		}
		rec.Direction = domain.Long
		if direction == "SHORT" {
			rec.Direction = domain.Short
		}
		rec.EntryMicros = quant.PriceMicros(entry)
		rec.CloseMicros = quant.PriceMicros(close)
		rec.OpenTs = quant.TimeStamp(openTs)
		rec.CloseTs = quant.TimeStamp(closeTs)
		rec.Outcome = domain.Outcome(outcome)
		rec.Reason = domain.CloseReason(reason)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// SaveLatencySnapshot persists one tracker snapshot, a row per symbol and
// stage.
func (j *Journal) SaveLatencySnapshot(ctx context.Context, snap map[string]map[latency.Stage]latency.Summary, ts quant.TimeStamp) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin latency tx: %w", err)
	}
	defer tx.Rollback()

	for symbol, stages := range snap {
		for stage, sum := range stages {
			if sum.Count == 0 {
				continue
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO latency_summaries
					(symbol, stage, sample_count, p50_micros, p95_micros, max_micros, recorded_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?)`,
				symbol, string(stage), sum.Count, sum.P50Micros, sum.P95Micros, sum.MaxMicros, int64(ts),
			); err != nil {
				return fmt.Errorf("insert latency summary: %w", err)
			}
		}
	}
	return tx.Commit()
}

// UpsertMetadata saves a session key-value pair.
func (j *Journal) UpsertMetadata(ctx context.Context, key, value string, ts quant.TimeStamp) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO metadata (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`,
		key, value, int64(ts),
	)
	return err
}

// GetMetadata retrieves a session value; empty string when absent.
func (j *Journal) GetMetadata(ctx context.Context, key string) (string, error) {
	var value string
	err := j.db.QueryRowContext(ctx, "SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	return j.db.Close()
}
