package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dop-amin/foosball-tracker/models"
	"github.com/lib/pq"
)

var (
	ErrMatchNotFound            = errors.New("match not found")
	ErrMatchPlayerNotFound      = errors.New("match participant not found")
	ErrMatchPlayerInvalid       = errors.New("match participant conflict or invalid")
	ErrMatchParticipantConflict = errors.New("player already recorded for this match")
)

// MatchUpdate carries the fields a corrective edit may change. Nil fields
// are left untouched.
type MatchUpdate struct {
	Team1Score *int
	Team2Score *int
	StartTime  *time.Time
	EndTime    *time.Time
}

type MatchRepository interface {
	// Create inserts the match together with its participant rows.
	Create(ctx context.Context, exec SQLExecutor, match *models.Match) error
	GetByID(ctx context.Context, id int) (*models.Match, error)
	// ListChronological returns matches ordered by (start_time, id) so that
	// replay always processes history in the same total order. from is
	// inclusive, to is exclusive.
	ListChronological(ctx context.Context, from, to *time.Time) ([]*models.Match, error)
	Update(ctx context.Context, id int, upd MatchUpdate) error
	ReplacePlayers(ctx context.Context, exec SQLExecutor, matchID int, players []models.MatchPlayer) error
	SetRatingDelta(ctx context.Context, exec SQLExecutor, matchID, playerID, delta int) error
	ClearRatingDeltas(ctx context.Context, exec SQLExecutor) error
	Delete(ctx context.Context, id int) error
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

func (r *postgresMatchRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, match *models.Match) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO matches (kind, team1_score, team2_score, start_time, end_time)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err := executor.QueryRowContext(ctx, query,
		match.Kind,
		match.Team1Score,
		match.Team2Score,
		match.StartTime,
		match.EndTime,
	).Scan(&match.ID, &match.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert match: %w", err)
	}

	for i := range match.Players {
		mp := &match.Players[i]
		mp.MatchID = match.ID
		if err := r.insertPlayer(ctx, executor, mp); err != nil {
			return err
		}
	}
	return nil
}

func (r *postgresMatchRepository) insertPlayer(ctx context.Context, exec SQLExecutor, mp *models.MatchPlayer) error {
	query := `
		INSERT INTO match_players (match_id, player_id, team, is_winner, rating_delta)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	err := exec.QueryRowContext(ctx, query,
		mp.MatchID,
		mp.PlayerID,
		mp.Team,
		mp.IsWinner,
		mp.RatingDelta,
	).Scan(&mp.ID)

	return r.handleMatchPlayerError(err)
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, id int) (*models.Match, error) {
	query := `
		SELECT id, kind, team1_score, team2_score, start_time, end_time, created_at
		FROM matches
		WHERE id = $1`

	match := &models.Match{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&match.ID,
		&match.Kind,
		&match.Team1Score,
		&match.Team2Score,
		&match.StartTime,
		&match.EndTime,
		&match.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to scan match by id %d: %w", id, err)
	}

	players, err := r.listPlayers(ctx, []int{id})
	if err != nil {
		return nil, err
	}
	match.Players = players[id]
	return match, nil
}

func (r *postgresMatchRepository) ListChronological(ctx context.Context, from, to *time.Time) ([]*models.Match, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`
		SELECT id, kind, team1_score, team2_score, start_time, end_time, created_at
		FROM matches`)

	args := []interface{}{}
	conditions := []string{}
	placeholderIndex := 1

	if from != nil {
		conditions = append(conditions, " start_time >= $"+strconv.Itoa(placeholderIndex))
		args = append(args, *from)
		placeholderIndex++
	}
	if to != nil {
		conditions = append(conditions, " start_time < $"+strconv.Itoa(placeholderIndex))
		args = append(args, *to)
	}
	if len(conditions) > 0 {
		queryBuilder.WriteString(" WHERE" + strings.Join(conditions, " AND"))
	}
	queryBuilder.WriteString(" ORDER BY start_time ASC, id ASC")

	rows, err := r.db.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	ids := make([]int, 0)
	for rows.Next() {
		var match models.Match
		if scanErr := rows.Scan(
			&match.ID,
			&match.Kind,
			&match.Team1Score,
			&match.Team2Score,
			&match.StartTime,
			&match.EndTime,
			&match.CreatedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", scanErr)
		}
		matches = append(matches, &match)
		ids = append(ids, match.ID)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during match rows iteration: %w", err)
	}

	playersByMatch, err := r.listPlayers(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, match := range matches {
		match.Players = playersByMatch[match.ID]
	}
	return matches, nil
}

func (r *postgresMatchRepository) listPlayers(ctx context.Context, matchIDs []int) (map[int][]models.MatchPlayer, error) {
	result := make(map[int][]models.MatchPlayer)
	if len(matchIDs) == 0 {
		return result, nil
	}
	query := `
		SELECT id, match_id, player_id, team, is_winner, rating_delta
		FROM match_players
		WHERE match_id = ANY($1)
		ORDER BY match_id ASC, team ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(matchIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to query match participants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var mp models.MatchPlayer
		if scanErr := rows.Scan(
			&mp.ID,
			&mp.MatchID,
			&mp.PlayerID,
			&mp.Team,
			&mp.IsWinner,
			&mp.RatingDelta,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan match participant row: %w", scanErr)
		}
		result[mp.MatchID] = append(result[mp.MatchID], mp)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during match participant rows iteration: %w", err)
	}
	return result, nil
}

func (r *postgresMatchRepository) Update(ctx context.Context, id int, upd MatchUpdate) error {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`UPDATE matches SET`)

	args := []interface{}{}
	setClauses := []string{}
	placeholderIndex := 1

	appendSet := func(column string, value interface{}) {
		setClauses = append(setClauses, fmt.Sprintf(" %s = $%d", column, placeholderIndex))
		args = append(args, value)
		placeholderIndex++
	}

	if upd.Team1Score != nil {
		appendSet("team1_score", *upd.Team1Score)
	}
	if upd.Team2Score != nil {
		appendSet("team2_score", *upd.Team2Score)
	}
	if upd.StartTime != nil {
		appendSet("start_time", *upd.StartTime)
	}
	if upd.EndTime != nil {
		appendSet("end_time", *upd.EndTime)
	}
	if len(setClauses) == 0 {
		return nil
	}

	queryBuilder.WriteString(strings.Join(setClauses, ","))
	queryBuilder.WriteString(fmt.Sprintf(" WHERE id = $%d", placeholderIndex))
	args = append(args, id)

	result, err := r.db.ExecContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return fmt.Errorf("failed to update match %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) ReplacePlayers(ctx context.Context, exec SQLExecutor, matchID int, players []models.MatchPlayer) error {
	executor := r.getExecutor(exec)
	if _, err := executor.ExecContext(ctx, `DELETE FROM match_players WHERE match_id = $1`, matchID); err != nil {
		return fmt.Errorf("failed to clear participants for match %d: %w", matchID, err)
	}
	for i := range players {
		players[i].MatchID = matchID
		if err := r.insertPlayer(ctx, executor, &players[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *postgresMatchRepository) SetRatingDelta(ctx context.Context, exec SQLExecutor, matchID, playerID, delta int) error {
	executor := r.getExecutor(exec)
	query := `UPDATE match_players SET rating_delta = $1 WHERE match_id = $2 AND player_id = $3`
	result, err := executor.ExecContext(ctx, query, delta, matchID, playerID)
	if err != nil {
		return fmt.Errorf("failed to set rating delta for match %d player %d: %w", matchID, playerID, err)
	}
	return checkAffectedRows(result, ErrMatchPlayerNotFound)
}

func (r *postgresMatchRepository) ClearRatingDeltas(ctx context.Context, exec SQLExecutor) error {
	executor := r.getExecutor(exec)
	if _, err := executor.ExecContext(ctx, `UPDATE match_players SET rating_delta = NULL`); err != nil {
		return fmt.Errorf("failed to clear rating deltas: %w", err)
	}
	return nil
}

func (r *postgresMatchRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM matches WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete match %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) handleMatchPlayerError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// "23503": foreign_key_violation, "23505": unique_violation
		switch pqErr.Constraint {
		case "match_players_match_id_fkey", "match_players_player_id_fkey":
			return ErrMatchPlayerInvalid
		case "match_players_match_id_player_id_key":
			return ErrMatchParticipantConflict
		}
	}
	return err
}
