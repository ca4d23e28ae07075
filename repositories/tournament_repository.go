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
	ErrTournamentNotFound            = errors.New("tournament not found")
	ErrTournamentParticipantNotFound = errors.New("tournament participant not found")
	ErrTournamentSeedConflict        = errors.New("seed is already taken in this tournament")
	ErrTournamentPlayerConflict      = errors.New("player is already registered for this tournament")
)

type TournamentRepository interface {
	Create(ctx context.Context, t *models.Tournament) error
	GetByID(ctx context.Context, id int) (*models.Tournament, error)
	List(ctx context.Context) ([]*models.Tournament, error)
	// UpdateStatus also stamps started_at / completed_at for the matching
	// transition.
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.TournamentStatus, at time.Time) error
	UpdateWinner(ctx context.Context, exec SQLExecutor, id int, winnerID *int) error
	AddParticipant(ctx context.Context, exec SQLExecutor, p *models.TournamentParticipant) error
	ListParticipants(ctx context.Context, tournamentID int) ([]*models.TournamentParticipant, error)
	MarkEliminated(ctx context.Context, exec SQLExecutor, tournamentID, playerID int) error
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

func (r *postgresTournamentRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresTournamentRepository) Create(ctx context.Context, t *models.Tournament) error {
	query := `
		INSERT INTO tournaments (name, status)
		VALUES ($1, $2)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query, t.Name, t.Status).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert tournament: %w", err)
	}
	return nil
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	query := `
		SELECT id, name, status, created_at, started_at, completed_at, winner_id
		FROM tournaments
		WHERE id = $1`

	t := &models.Tournament{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&t.ID,
		&t.Name,
		&t.Status,
		&t.CreatedAt,
		&t.StartedAt,
		&t.CompletedAt,
		&t.WinnerID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to scan tournament by id %d: %w", id, err)
	}
	return t, nil
}

func (r *postgresTournamentRepository) List(ctx context.Context) ([]*models.Tournament, error) {
	query := `
		SELECT id, name, status, created_at, started_at, completed_at, winner_id
		FROM tournaments
		ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query tournaments: %w", err)
	}
	defer rows.Close()

	tournaments := make([]*models.Tournament, 0)
	for rows.Next() {
		var t models.Tournament
		if scanErr := rows.Scan(
			&t.ID,
			&t.Name,
			&t.Status,
			&t.CreatedAt,
			&t.StartedAt,
			&t.CompletedAt,
			&t.WinnerID,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan tournament row: %w", scanErr)
		}
		tournaments = append(tournaments, &t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during tournament rows iteration: %w", err)
	}
	return tournaments, nil
}

func (r *postgresTournamentRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.TournamentStatus, at time.Time) error {
	executor := r.getExecutor(exec)
	var query string
	args := []interface{}{status}
	switch status {
	case models.StatusActive:
		query = `UPDATE tournaments SET status = $1, started_at = $2 WHERE id = $3`
		args = append(args, at, id)
	case models.StatusCompleted:
		query = `UPDATE tournaments SET status = $1, completed_at = $2 WHERE id = $3`
		args = append(args, at, id)
	default:
		query = `UPDATE tournaments SET status = $1 WHERE id = $2`
		args = append(args, id)
	}
	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update status for tournament %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) UpdateWinner(ctx context.Context, exec SQLExecutor, id int, winnerID *int) error {
	executor := r.getExecutor(exec)
	query := `UPDATE tournaments SET winner_id = $1 WHERE id = $2`
	result, err := executor.ExecContext(ctx, query, winnerID, id)
	if err != nil {
		return fmt.Errorf("failed to update winner for tournament %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) AddParticipant(ctx context.Context, exec SQLExecutor, p *models.TournamentParticipant) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO tournament_participants (tournament_id, player_id, seed, eliminated)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	err := executor.QueryRowContext(ctx, query,
		p.TournamentID,
		p.PlayerID,
		p.Seed,
		p.Eliminated,
	).Scan(&p.ID)

	return r.handleParticipantError(err)
}

func (r *postgresTournamentRepository) ListParticipants(ctx context.Context, tournamentID int) ([]*models.TournamentParticipant, error) {
	query := `
		SELECT id, tournament_id, player_id, seed, eliminated
		FROM tournament_participants
		WHERE tournament_id = $1
		ORDER BY seed ASC`

	rows, err := r.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query participants for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	participants := make([]*models.TournamentParticipant, 0)
	for rows.Next() {
		var p models.TournamentParticipant
		if scanErr := rows.Scan(
			&p.ID,
			&p.TournamentID,
			&p.PlayerID,
			&p.Seed,
			&p.Eliminated,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan participant row: %w", scanErr)
		}
		participants = append(participants, &p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during participant rows iteration: %w", err)
	}
	return participants, nil
}

func (r *postgresTournamentRepository) MarkEliminated(ctx context.Context, exec SQLExecutor, tournamentID, playerID int) error {
	executor := r.getExecutor(exec)
	query := `UPDATE tournament_participants SET eliminated = TRUE WHERE tournament_id = $1 AND player_id = $2`
	result, err := executor.ExecContext(ctx, query, tournamentID, playerID)
	if err != nil {
		return fmt.Errorf("failed to mark player %d eliminated in tournament %d: %w", playerID, tournamentID, err)
	}
	return checkAffectedRows(result, ErrTournamentParticipantNotFound)
}

func (r *postgresTournamentRepository) handleParticipantError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Constraint {
		case "tournament_participants_tournament_id_seed_key":
			return ErrTournamentSeedConflict
		case "tournament_participants_tournament_id_player_id_key":
			return ErrTournamentPlayerConflict
		case "tournament_participants_tournament_id_fkey":
			return ErrTournamentNotFound
		}
	}
	return err
}
