package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dop-amin/foosball-tracker/models"
	"github.com/lib/pq"
)

var (
	ErrBracketMatchNotFound = errors.New("bracket match not found")
	ErrBracketSlotConflict  = errors.New("bracket slot is already occupied")
)

type BracketMatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, bm *models.BracketMatch) error
	GetByID(ctx context.Context, id int) (*models.BracketMatch, error)
	GetByRoundSlot(ctx context.Context, tournamentID, round, slot int) (*models.BracketMatch, error)
	ListByTournament(ctx context.Context, tournamentID int) ([]*models.BracketMatch, error)
	// Update rewrites the mutable cell fields: slot occupants, winner, and
	// the link to the played match.
	Update(ctx context.Context, exec SQLExecutor, bm *models.BracketMatch) error
}

type postgresBracketMatchRepository struct {
	db *sql.DB
}

func NewPostgresBracketMatchRepository(db *sql.DB) BracketMatchRepository {
	return &postgresBracketMatchRepository{db: db}
}

func (r *postgresBracketMatchRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresBracketMatchRepository) Create(ctx context.Context, exec SQLExecutor, bm *models.BracketMatch) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO bracket_matches (tournament_id, round, slot, player1_id, player2_id, winner_id, match_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	err := executor.QueryRowContext(ctx, query,
		bm.TournamentID,
		bm.Round,
		bm.Slot,
		bm.Player1ID,
		bm.Player2ID,
		bm.WinnerID,
		bm.MatchID,
	).Scan(&bm.ID)

	return r.handleBracketError(err)
}

func (r *postgresBracketMatchRepository) GetByID(ctx context.Context, id int) (*models.BracketMatch, error) {
	query := `
		SELECT id, tournament_id, round, slot, player1_id, player2_id, winner_id, match_id
		FROM bracket_matches
		WHERE id = $1`

	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *postgresBracketMatchRepository) GetByRoundSlot(ctx context.Context, tournamentID, round, slot int) (*models.BracketMatch, error) {
	query := `
		SELECT id, tournament_id, round, slot, player1_id, player2_id, winner_id, match_id
		FROM bracket_matches
		WHERE tournament_id = $1 AND round = $2 AND slot = $3`

	return r.scanOne(r.db.QueryRowContext(ctx, query, tournamentID, round, slot))
}

func (r *postgresBracketMatchRepository) scanOne(row *sql.Row) (*models.BracketMatch, error) {
	bm := &models.BracketMatch{}
	err := row.Scan(
		&bm.ID,
		&bm.TournamentID,
		&bm.Round,
		&bm.Slot,
		&bm.Player1ID,
		&bm.Player2ID,
		&bm.WinnerID,
		&bm.MatchID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBracketMatchNotFound
		}
		return nil, fmt.Errorf("failed to scan bracket match: %w", err)
	}
	return bm, nil
}

func (r *postgresBracketMatchRepository) ListByTournament(ctx context.Context, tournamentID int) ([]*models.BracketMatch, error) {
	query := `
		SELECT id, tournament_id, round, slot, player1_id, player2_id, winner_id, match_id
		FROM bracket_matches
		WHERE tournament_id = $1
		ORDER BY round ASC, slot ASC`

	rows, err := r.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query bracket matches for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	matches := make([]*models.BracketMatch, 0)
	for rows.Next() {
		var bm models.BracketMatch
		if scanErr := rows.Scan(
			&bm.ID,
			&bm.TournamentID,
			&bm.Round,
			&bm.Slot,
			&bm.Player1ID,
			&bm.Player2ID,
			&bm.WinnerID,
			&bm.MatchID,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan bracket match row: %w", scanErr)
		}
		matches = append(matches, &bm)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during bracket match rows iteration: %w", err)
	}
	return matches, nil
}

func (r *postgresBracketMatchRepository) Update(ctx context.Context, exec SQLExecutor, bm *models.BracketMatch) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE bracket_matches
		SET player1_id = $1, player2_id = $2, winner_id = $3, match_id = $4
		WHERE id = $5`

	result, err := executor.ExecContext(ctx, query,
		bm.Player1ID,
		bm.Player2ID,
		bm.WinnerID,
		bm.MatchID,
		bm.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update bracket match %d: %w", bm.ID, err)
	}
	return checkAffectedRows(result, ErrBracketMatchNotFound)
}

func (r *postgresBracketMatchRepository) handleBracketError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Constraint {
		case "bracket_matches_tournament_id_round_slot_key":
			return ErrBracketSlotConflict
		case "bracket_matches_tournament_id_fkey":
			return ErrTournamentNotFound
		}
	}
	return err
}
