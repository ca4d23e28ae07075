package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dop-amin/foosball-tracker/models"
	"github.com/lib/pq"
)

var (
	ErrSnapshotNotFound      = errors.New("rank snapshot not found")
	ErrSnapshotPlayerInvalid = errors.New("rank snapshot player conflict or invalid")
)

type SnapshotRepository interface {
	// Upsert writes the snapshot for (player, date), overwriting an existing
	// row rather than appending a duplicate.
	Upsert(ctx context.Context, exec SQLExecutor, snapshot *models.RankSnapshot) error
	ListByDate(ctx context.Context, date time.Time) ([]*models.RankSnapshot, error)
	ListByPlayer(ctx context.Context, playerID int) ([]*models.RankSnapshot, error)
	DeleteAll(ctx context.Context, exec SQLExecutor) error
}

type postgresSnapshotRepository struct {
	db *sql.DB
}

func NewPostgresSnapshotRepository(db *sql.DB) SnapshotRepository {
	return &postgresSnapshotRepository{db: db}
}

func (r *postgresSnapshotRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresSnapshotRepository) Upsert(ctx context.Context, exec SQLExecutor, snapshot *models.RankSnapshot) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO rank_snapshots (player_id, snapshot_date, rank, rating, total_games)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT ON CONSTRAINT rank_snapshots_player_id_snapshot_date_key
		DO UPDATE SET rank = EXCLUDED.rank, rating = EXCLUDED.rating, total_games = EXCLUDED.total_games
		RETURNING id`

	err := executor.QueryRowContext(ctx, query,
		snapshot.PlayerID,
		snapshot.SnapshotDate,
		snapshot.Rank,
		snapshot.Rating,
		snapshot.TotalGames,
	).Scan(&snapshot.ID)

	return r.handleSnapshotError(err)
}

func (r *postgresSnapshotRepository) ListByDate(ctx context.Context, date time.Time) ([]*models.RankSnapshot, error) {
	query := `
		SELECT id, player_id, snapshot_date, rank, rating, total_games
		FROM rank_snapshots
		WHERE snapshot_date = $1
		ORDER BY rank ASC`

	rows, err := r.db.QueryContext(ctx, query, date)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots for date %s: %w", date.Format("2006-01-02"), err)
	}
	defer rows.Close()

	return r.scanSnapshots(rows)
}

func (r *postgresSnapshotRepository) ListByPlayer(ctx context.Context, playerID int) ([]*models.RankSnapshot, error) {
	query := `
		SELECT id, player_id, snapshot_date, rank, rating, total_games
		FROM rank_snapshots
		WHERE player_id = $1
		ORDER BY snapshot_date ASC`

	rows, err := r.db.QueryContext(ctx, query, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots for player %d: %w", playerID, err)
	}
	defer rows.Close()

	return r.scanSnapshots(rows)
}

func (r *postgresSnapshotRepository) scanSnapshots(rows *sql.Rows) ([]*models.RankSnapshot, error) {
	snapshots := make([]*models.RankSnapshot, 0)
	for rows.Next() {
		var snapshot models.RankSnapshot
		if scanErr := rows.Scan(
			&snapshot.ID,
			&snapshot.PlayerID,
			&snapshot.SnapshotDate,
			&snapshot.Rank,
			&snapshot.Rating,
			&snapshot.TotalGames,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan snapshot row: %w", scanErr)
		}
		snapshots = append(snapshots, &snapshot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during snapshot rows iteration: %w", err)
	}
	return snapshots, nil
}

func (r *postgresSnapshotRepository) DeleteAll(ctx context.Context, exec SQLExecutor) error {
	executor := r.getExecutor(exec)
	if _, err := executor.ExecContext(ctx, `DELETE FROM rank_snapshots`); err != nil {
		return fmt.Errorf("failed to delete rank snapshots: %w", err)
	}
	return nil
}

func (r *postgresSnapshotRepository) handleSnapshotError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if pqErr.Constraint == "rank_snapshots_player_id_fkey" {
			return ErrSnapshotPlayerInvalid
		}
	}
	return err
}
