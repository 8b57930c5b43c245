// Package store persists run snapshots to Postgres, giving the watchlist a
// queryable history across runs. The store is optional; it is only wired in
// when DATABASE_URL is set.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"watchtrack/pkg/models"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS watchlist_snapshots (
	run_id        UUID        NOT NULL,
	run_at        TIMESTAMPTZ NOT NULL,
	company       TEXT        NOT NULL,
	current_price NUMERIC,
	market_cap    NUMERIC,
	pe_ratio      NUMERIC,
	sector        TEXT,
	watchlist     TEXT,
	url           TEXT,
	PRIMARY KEY (run_id, company)
)`

const insertRowSQL = `
INSERT INTO watchlist_snapshots
	(run_id, run_at, company, current_price, market_cap, pe_ratio, sector, watchlist, url)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (run_id, company) DO NOTHING`

// SnapshotRepo writes one row per company per run. Rows are append-only;
// re-publishing the same run is a no-op thanks to the conflict clause.
type SnapshotRepo struct {
	pool *pgxpool.Pool
}

// NewSnapshotRepo connects to Postgres and ensures the snapshot table exists.
func NewSnapshotRepo(ctx context.Context, databaseURL string) (*SnapshotRepo, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if _, err := pool.Exec(ctx, createTableSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure snapshot table: %w", err)
	}
	return &SnapshotRepo{pool: pool}, nil
}

func (r *SnapshotRepo) Name() string { return "postgres" }

// Publish inserts the run's records in one batch.
func (r *SnapshotRepo) Publish(ctx context.Context, snap *models.RunSnapshot) error {
	results := r.pool.SendBatch(ctx, snapshotBatch(snap))
	defer results.Close()
	for range snap.Records {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert snapshot row: %w", err)
		}
	}
	return nil
}

// Close releases the connection pool.
func (r *SnapshotRepo) Close() {
	r.pool.Close()
}

// snapshotBatch queues one insert per record, run metadata first, metric
// columns mapped through nullDecimalArg.
func snapshotBatch(snap *models.RunSnapshot) *pgx.Batch {
	batch := &pgx.Batch{}
	for _, rec := range snap.Records {
		batch.Queue(insertRowSQL,
			snap.RunID,
			snap.StartedAt,
			rec.Name,
			nullDecimalArg(rec.CurrentPrice),
			nullDecimalArg(rec.MarketCap),
			nullDecimalArg(rec.PERatio),
			rec.Sector,
			rec.SourceWatchlist,
			rec.URL,
		)
	}
	return batch
}

// nullDecimalArg maps a null decimal to SQL NULL rather than zero.
func nullDecimalArg(d decimal.NullDecimal) interface{} {
	if !d.Valid {
		return nil
	}
	return d.Decimal
}
