package analytics

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/page-search/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/page-search/pkg/resilience"
)

const createSnapshotsTable = `
CREATE TABLE IF NOT EXISTS analytics_snapshots (
    id          BIGSERIAL PRIMARY KEY,
    data        JSONB NOT NULL,
    captured_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

const pruneSnapshots = `
DELETE FROM analytics_snapshots
WHERE id NOT IN (
    SELECT id FROM analytics_snapshots ORDER BY captured_at DESC, id DESC LIMIT $1
)`

// Store persists aggregated analytics snapshots in PostgreSQL.
type Store struct {
	db      *postgres.Client
	timeout time.Duration
	retain  int
	logger  *slog.Logger
}

// NewStore creates a Store. Each statement is bounded by timeout and only
// the newest retain snapshots are kept; retain <= 0 keeps everything.
func NewStore(db *postgres.Client, timeout time.Duration, retain int) *Store {
	return &Store{
		db:      db,
		timeout: timeout,
		retain:  retain,
		logger:  slog.Default().With("component", "analytics-store"),
	}
}

// Migrate creates the snapshots table if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.DB.ExecContext(ctx, createSnapshotsTable); err != nil {
		return fmt.Errorf("creating analytics_snapshots: %w", err)
	}
	return nil
}

// SaveSnapshot inserts a stats snapshot and prunes old ones in the same
// transaction.
func (s *Store) SaveSnapshot(ctx context.Context, stats AggregatedStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("marshaling stats: %w", err)
	}
	err = resilience.WithTimeout(ctx, s.timeout, "save-snapshot", func(ctx context.Context) error {
		return s.db.InTx(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO analytics_snapshots (data, captured_at) VALUES ($1, $2)`,
				data, stats.CapturedAt,
			); err != nil {
				return err
			}
			if s.retain <= 0 {
				return nil
			}
			_, err := tx.ExecContext(ctx, pruneSnapshots, s.retain)
			return err
		})
	})
	if err != nil {
		return fmt.Errorf("saving analytics snapshot: %w", err)
	}
	s.logger.Debug("analytics snapshot saved",
		"total_searches", stats.TotalSearches,
		"total_pages_indexed", stats.TotalPagesIndexed,
	)
	return nil
}

// ListSnapshots returns the last limit snapshots, newest first. Corrupt
// rows are skipped. The query shares the write timeout.
func (s *Store) ListSnapshots(ctx context.Context, limit int) ([]AggregatedStats, error) {
	snapshots, err := resilience.Call(ctx, s.timeout, "list-snapshots", func(ctx context.Context) ([]AggregatedStats, error) {
		rows, err := s.db.DB.QueryContext(ctx,
			`SELECT data FROM analytics_snapshots ORDER BY captured_at DESC LIMIT $1`,
			limit,
		)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		out := make([]AggregatedStats, 0, limit)
		for rows.Next() {
			var data []byte
			if err := rows.Scan(&data); err != nil {
				return nil, err
			}
			var stats AggregatedStats
			if err := json.Unmarshal(data, &stats); err != nil {
				s.logger.Warn("skipping corrupt snapshot", "error", err)
				continue
			}
			out = append(out, stats)
		}
		return out, rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	return snapshots, nil
}

// Run snapshots agg every interval until ctx is cancelled, then writes a
// final snapshot.
func (s *Store) Run(ctx context.Context, agg *Aggregator, interval time.Duration) error {
	s.logger.Info("periodic snapshot started", "interval", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := s.SaveSnapshot(ctx, agg.Stats()); err != nil {
				s.logger.Error("periodic snapshot failed", "error", err)
			}
		case <-ctx.Done():
			if err := s.SaveSnapshot(context.Background(), agg.Stats()); err != nil {
				s.logger.Error("final snapshot failed", "error", err)
			}
			return nil
		}
	}
}
