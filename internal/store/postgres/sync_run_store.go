package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skinfolio/skinsync/internal/domain"
)

// SyncRunStore implements domain.SyncRunStore using PostgreSQL.
type SyncRunStore struct {
	pool *pgxpool.Pool
}

// NewSyncRunStore creates a new SyncRunStore backed by the given connection pool.
func NewSyncRunStore(pool *pgxpool.Pool) *SyncRunStore {
	return &SyncRunStore{pool: pool}
}

// Record journals one finished sync run.
func (s *SyncRunStore) Record(ctx context.Context, run domain.SyncRun) error {
	const query = `
		INSERT INTO sync_runs (
			id, steam_id, item_count, partial,
			prices_total, prices_success, prices_failed,
			error_class, error, started_at, finished_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := s.pool.Exec(ctx, query,
		run.ID, run.SteamID, run.ItemCount, run.Partial,
		run.Stats.Total, run.Stats.Success, run.Stats.Failed,
		string(run.ErrorClass), run.Error, run.StartedAt, run.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: record sync run %s: %w", run.ID, err)
	}
	return nil
}

// ListRecent returns the most recent sync runs for an account, newest first.
func (s *SyncRunStore) ListRecent(ctx context.Context, steamID string, limit int) ([]domain.SyncRun, error) {
	if limit <= 0 {
		limit = 20
	}

	const query = `
		SELECT id, steam_id, item_count, partial,
		       prices_total, prices_success, prices_failed,
		       error_class, error, started_at, finished_at
		FROM sync_runs
		WHERE steam_id = $1
		ORDER BY started_at DESC
		LIMIT $2`

	rows, err := s.pool.Query(ctx, query, steamID, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list sync runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.SyncRun
	for rows.Next() {
		var r domain.SyncRun
		var errorClass string

		if err := rows.Scan(
			&r.ID, &r.SteamID, &r.ItemCount, &r.Partial,
			&r.Stats.Total, &r.Stats.Success, &r.Stats.Failed,
			&errorClass, &r.Error, &r.StartedAt, &r.FinishedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan sync run: %w", err)
		}
		r.ErrorClass = domain.ErrorClass(errorClass)

		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list sync runs rows: %w", err)
	}
	return runs, nil
}

// Compile-time interface check.
var _ domain.SyncRunStore = (*SyncRunStore)(nil)
