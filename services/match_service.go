package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dop-amin/foosball-tracker/models"
	"github.com/dop-amin/foosball-tracker/repositories"
)

// BracketSlotRef ties a recorded match to a bracket cell; the winner is
// advanced as part of recording.
type BracketSlotRef struct {
	TournamentID int
	Round        int
	Slot         int
}

type RecordMatchParams struct {
	Kind           models.MatchKind
	Team1PlayerIDs []int
	Team2PlayerIDs []int
	Team1Score     int
	Team2Score     int
	StartTime      time.Time
	EndTime        *time.Time
	Bracket        *BracketSlotRef
}

type UpdateMatchParams struct {
	Team1Score *int
	Team2Score *int
	StartTime  *time.Time
	EndTime    *time.Time
}

type MatchService interface {
	// Record validates and persists a finished match, then applies its
	// rating deltas and any cake debts it produced.
	Record(ctx context.Context, params RecordMatchParams) (*models.Match, error)
	GetByID(ctx context.Context, id int) (*models.Match, error)
	List(ctx context.Context, from, to *time.Time) ([]*models.Match, error)
	// Update performs a corrective edit: the change is written to the audit
	// log and every derived ledger is rebuilt from scratch afterwards.
	Update(ctx context.Context, id int, params UpdateMatchParams) (*models.Match, error)
	// Delete removes a match and rebuilds all derived state.
	Delete(ctx context.Context, id int) error
}

type matchService struct {
	matchRepo  repositories.MatchRepository
	playerRepo repositories.PlayerRepository
	auditRepo  repositories.MatchAuditRepository
	rating     RatingService
	debts      CakeDebtService
	bracket    BracketService
	recalc     RecalculationService
	logger     *slog.Logger
}

func NewMatchService(
	matchRepo repositories.MatchRepository,
	playerRepo repositories.PlayerRepository,
	auditRepo repositories.MatchAuditRepository,
	rating RatingService,
	debts CakeDebtService,
	bracket BracketService,
	recalc RecalculationService,
	logger *slog.Logger,
) MatchService {
	return &matchService{
		matchRepo:  matchRepo,
		playerRepo: playerRepo,
		auditRepo:  auditRepo,
		rating:     rating,
		debts:      debts,
		bracket:    bracket,
		recalc:     recalc,
		logger:     logger,
	}
}

func (s *matchService) Record(ctx context.Context, params RecordMatchParams) (*models.Match, error) {
	if err := s.validateRecord(ctx, params); err != nil {
		return nil, err
	}

	match := &models.Match{
		Kind:       params.Kind,
		Team1Score: params.Team1Score,
		Team2Score: params.Team2Score,
		StartTime:  params.StartTime,
		EndTime:    params.EndTime,
	}
	winning := 1
	if params.Team2Score > params.Team1Score {
		winning = 2
	}
	for _, id := range params.Team1PlayerIDs {
		match.Players = append(match.Players, models.MatchPlayer{PlayerID: id, Team: 1, IsWinner: winning == 1})
	}
	for _, id := range params.Team2PlayerIDs {
		match.Players = append(match.Players, models.MatchPlayer{PlayerID: id, Team: 2, IsWinner: winning == 2})
	}

	if err := s.matchRepo.Create(ctx, nil, match); err != nil {
		return nil, err
	}
	if err := s.rating.ApplyMatch(ctx, match); err != nil {
		return nil, err
	}
	if err := s.debts.OnMatchRecorded(ctx, match); err != nil {
		return nil, err
	}

	if ref := params.Bracket; ref != nil {
		winnerID, loserID := params.Team1PlayerIDs[0], params.Team2PlayerIDs[0]
		if winning == 2 {
			winnerID, loserID = loserID, winnerID
		}
		if _, err := s.bracket.RecordResult(ctx, ref.TournamentID, ref.Round, ref.Slot, winnerID, loserID, &match.ID); err != nil {
			return nil, err
		}
	}

	s.logger.Info("match recorded",
		slog.Int("match_id", match.ID),
		slog.String("kind", string(match.Kind)),
		slog.Int("team1_score", match.Team1Score),
		slog.Int("team2_score", match.Team2Score),
	)
	return match, nil
}

func (s *matchService) validateRecord(ctx context.Context, params RecordMatchParams) error {
	size1, size2, ok := rosterShape(params.Kind)
	if !ok {
		return fmt.Errorf("%w: unknown kind %q", ErrValidationFailed, params.Kind)
	}
	if len(params.Team1PlayerIDs) != size1 || len(params.Team2PlayerIDs) != size2 {
		return fmt.Errorf("%w: kind %s wants %dv%d, got %dv%d",
			ErrRosterShapeInvalid, params.Kind, size1, size2,
			len(params.Team1PlayerIDs), len(params.Team2PlayerIDs))
	}

	seen := make(map[int]struct{}, size1+size2)
	all := append(append([]int{}, params.Team1PlayerIDs...), params.Team2PlayerIDs...)
	for _, id := range all {
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: player %d", ErrDuplicatePlayer, id)
		}
		seen[id] = struct{}{}
	}

	if err := validateScores(params.Team1Score, params.Team2Score); err != nil {
		return err
	}
	if params.StartTime.IsZero() {
		return ErrStartTimeRequired
	}
	if params.EndTime != nil && params.EndTime.Before(params.StartTime) {
		return fmt.Errorf("%w: end time before start time", ErrValidationFailed)
	}
	// Сетка хранит по одному игроку на сторону.
	if params.Bracket != nil && params.Kind != models.KindSingles {
		return fmt.Errorf("%w: bracket matches must be 1v1", ErrValidationFailed)
	}

	players, err := s.playerRepo.GetByIDs(ctx, all)
	if err != nil {
		return err
	}
	if len(players) != len(all) {
		found := make(map[int]struct{}, len(players))
		for _, p := range players {
			found[p.ID] = struct{}{}
		}
		for _, id := range all {
			if _, ok := found[id]; !ok {
				return fmt.Errorf("%w: id %d", ErrPlayerNotFound, id)
			}
		}
	}
	return nil
}

func validateScores(team1Score, team2Score int) error {
	if team1Score < 0 || team1Score > models.MaxScore || team2Score < 0 || team2Score > models.MaxScore {
		return fmt.Errorf("%w: %d-%d", ErrScoreOutOfRange, team1Score, team2Score)
	}
	if team1Score == team2Score {
		return fmt.Errorf("%w: %d-%d", ErrTieNotAllowed, team1Score, team2Score)
	}
	return nil
}

func (s *matchService) GetByID(ctx context.Context, id int) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, fmt.Errorf("%w: id %d", ErrMatchNotFound, id)
		}
		return nil, err
	}
	return match, nil
}

func (s *matchService) List(ctx context.Context, from, to *time.Time) ([]*models.Match, error) {
	return s.matchRepo.ListChronological(ctx, from, to)
}

func (s *matchService) Update(ctx context.Context, id int, params UpdateMatchParams) (*models.Match, error) {
	match, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	newScore1 := match.Team1Score
	newScore2 := match.Team2Score
	if params.Team1Score != nil {
		newScore1 = *params.Team1Score
	}
	if params.Team2Score != nil {
		newScore2 = *params.Team2Score
	}
	if err := validateScores(newScore1, newScore2); err != nil {
		return nil, err
	}
	newStart := match.StartTime
	if params.StartTime != nil {
		if params.StartTime.IsZero() {
			return nil, ErrStartTimeRequired
		}
		newStart = *params.StartTime
	}
	if params.EndTime != nil && params.EndTime.Before(newStart) {
		return nil, fmt.Errorf("%w: end time before start time", ErrValidationFailed)
	}

	changes := diffMatch(match, params)
	if len(changes) == 0 {
		return match, nil
	}

	update := repositories.MatchUpdate{
		Team1Score: params.Team1Score,
		Team2Score: params.Team2Score,
		StartTime:  params.StartTime,
		EndTime:    params.EndTime,
	}
	if err := s.matchRepo.Update(ctx, id, update); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(changes)
	if err != nil {
		return nil, fmt.Errorf("failed to encode audit entry for match %d: %w", id, err)
	}
	audit := &models.MatchAudit{
		MatchID: id,
		Changes: string(payload),
		Summary: fmt.Sprintf("corrective edit: %d field(s) changed", len(changes)),
	}
	if err := s.auditRepo.Create(ctx, audit); err != nil {
		return nil, err
	}

	// Любая правка задним числом обнуляет производные данные.
	if err := s.recalc.RederiveAll(ctx); err != nil {
		return nil, err
	}

	s.logger.Info("match corrected", slog.Int("match_id", id), slog.Int("fields", len(changes)))
	return s.GetByID(ctx, id)
}

func (s *matchService) Delete(ctx context.Context, id int) error {
	if err := s.matchRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return fmt.Errorf("%w: id %d", ErrMatchNotFound, id)
		}
		return err
	}
	if err := s.recalc.RederiveAll(ctx); err != nil {
		return err
	}
	s.logger.Info("match deleted", slog.Int("match_id", id))
	return nil
}

type fieldChange struct {
	From interface{} `json:"from"`
	To   interface{} `json:"to"`
}

func diffMatch(match *models.Match, params UpdateMatchParams) map[string]fieldChange {
	changes := make(map[string]fieldChange)
	if params.Team1Score != nil && *params.Team1Score != match.Team1Score {
		changes["team1_score"] = fieldChange{From: match.Team1Score, To: *params.Team1Score}
	}
	if params.Team2Score != nil && *params.Team2Score != match.Team2Score {
		changes["team2_score"] = fieldChange{From: match.Team2Score, To: *params.Team2Score}
	}
	if params.StartTime != nil && !params.StartTime.Equal(match.StartTime) {
		changes["start_time"] = fieldChange{From: match.StartTime, To: *params.StartTime}
	}
	if params.EndTime != nil && (match.EndTime == nil || !params.EndTime.Equal(*match.EndTime)) {
		var from interface{}
		if match.EndTime != nil {
			from = *match.EndTime
		}
		changes["end_time"] = fieldChange{From: from, To: *params.EndTime}
	}
	return changes
}
