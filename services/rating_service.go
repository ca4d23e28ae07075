package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/dop-amin/foosball-tracker/models"
	"github.com/dop-amin/foosball-tracker/repositories"
)

// DefaultKFactor is the K used for every recorded match. ComputeDelta takes
// K as a parameter so the math stays testable with other values.
const DefaultKFactor = 32

// ComputeDelta returns the team-level Elo deltas for one match. Team ratings
// are the arithmetic means of the members' current ratings. Expected scores
// are computed independently per team (E2 is not derived as 1-E1) and each
// delta is rounded on its own with math.Round, i.e. half away from zero.
// Because of that independent rounding the two deltas are not guaranteed to
// be exact negatives of each other, and nothing downstream may assume they
// cancel.
func ComputeDelta(team1Rating, team2Rating float64, team1Score, team2Score, kFactor int) (int, int, error) {
	if team1Score == team2Score {
		return 0, 0, fmt.Errorf("%w: %d-%d", ErrTieNotAllowed, team1Score, team2Score)
	}

	expected1 := 1 / (1 + math.Pow(10, (team2Rating-team1Rating)/400))
	expected2 := 1 / (1 + math.Pow(10, (team1Rating-team2Rating)/400))

	var actual1, actual2 float64
	if team1Score > team2Score {
		actual1 = 1
	} else {
		actual2 = 1
	}

	delta1 := int(math.Round(float64(kFactor) * (actual1 - expected1)))
	delta2 := int(math.Round(float64(kFactor) * (actual2 - expected2)))
	return delta1, delta2, nil
}

type RatingService interface {
	// ApplyMatch commits the rating deltas of one match: every member of a
	// team receives the same team-level delta. A match whose participants
	// already carry deltas is rejected with ErrMatchAlreadyRated.
	ApplyMatch(ctx context.Context, match *models.Match) error
	// RecalculateAll resets every player to the base rating and replays the
	// entire match history in (start_time, id) order. It is the source of
	// truth after any retroactive edit.
	RecalculateAll(ctx context.Context) error
}

type ratingService struct {
	playerRepo repositories.PlayerRepository
	matchRepo  repositories.MatchRepository
	kFactor    int
	logger     *slog.Logger

	// Serializes every mutation of the rating ledger so that concurrent
	// matches never read stale ratings.
	mu sync.Mutex
}

func NewRatingService(playerRepo repositories.PlayerRepository, matchRepo repositories.MatchRepository, logger *slog.Logger) RatingService {
	return &ratingService{
		playerRepo: playerRepo,
		matchRepo:  matchRepo,
		kFactor:    DefaultKFactor,
		logger:     logger,
	}
}

func (s *ratingService) ApplyMatch(ctx context.Context, match *models.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applyLocked(ctx, match)
}

func (s *ratingService) applyLocked(ctx context.Context, match *models.Match) error {
	if err := validateRoster(match.Players); err != nil {
		return err
	}
	for _, mp := range match.Players {
		if mp.RatingDelta != nil {
			return fmt.Errorf("%w: match %d", ErrMatchAlreadyRated, match.ID)
		}
	}

	team1, team2 := splitTeams(match.Players)

	ids := make([]int, 0, len(match.Players))
	for _, mp := range match.Players {
		ids = append(ids, mp.PlayerID)
	}
	players, err := s.playerRepo.GetByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to load participants of match %d: %w", match.ID, err)
	}
	byID := make(map[int]*models.Player, len(players))
	for _, p := range players {
		byID[p.ID] = p
	}
	for _, id := range ids {
		if _, ok := byID[id]; !ok {
			return fmt.Errorf("%w: id %d (match %d)", ErrPlayerNotFound, id, match.ID)
		}
	}

	delta1, delta2, err := ComputeDelta(
		meanRating(team1, byID),
		meanRating(team2, byID),
		match.Team1Score,
		match.Team2Score,
		s.kFactor,
	)
	if err != nil {
		return err
	}

	if err := s.applyTeamDelta(ctx, match.ID, team1, byID, delta1); err != nil {
		return err
	}
	if err := s.applyTeamDelta(ctx, match.ID, team2, byID, delta2); err != nil {
		return err
	}

	for i := range match.Players {
		d := delta1
		if match.Players[i].Team == 2 {
			d = delta2
		}
		dc := d
		match.Players[i].RatingDelta = &dc
	}
	return nil
}

func (s *ratingService) applyTeamDelta(ctx context.Context, matchID int, team []models.MatchPlayer, byID map[int]*models.Player, delta int) error {
	for _, mp := range team {
		player := byID[mp.PlayerID]
		player.Rating += delta
		if err := s.playerRepo.UpdateRating(ctx, nil, player.ID, player.Rating); err != nil {
			return fmt.Errorf("failed to persist rating for player %d (match %d): %w", player.ID, matchID, err)
		}
		if err := s.matchRepo.SetRatingDelta(ctx, nil, matchID, player.ID, delta); err != nil {
			return fmt.Errorf("failed to record delta for player %d (match %d): %w", player.ID, matchID, err)
		}
	}
	return nil
}

func (s *ratingService) RecalculateAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.matchRepo.ClearRatingDeltas(ctx, nil); err != nil {
		return err
	}
	if err := s.playerRepo.ResetAllRatings(ctx, nil, models.BaseRating); err != nil {
		return err
	}

	matches, err := s.matchRepo.ListChronological(ctx, nil, nil)
	if err != nil {
		return fmt.Errorf("failed to list matches for replay: %w", err)
	}

	for _, match := range matches {
		if err := s.applyLocked(ctx, match); err != nil {
			return fmt.Errorf("replay stopped at match %d: %w", match.ID, err)
		}
	}

	s.logger.Info("rating replay finished", slog.Int("matches", len(matches)))
	return nil
}

func meanRating(team []models.MatchPlayer, byID map[int]*models.Player) float64 {
	sum := 0
	for _, mp := range team {
		sum += byID[mp.PlayerID].Rating
	}
	return float64(sum) / float64(len(team))
}

func splitTeams(players []models.MatchPlayer) (team1, team2 []models.MatchPlayer) {
	for _, mp := range players {
		if mp.Team == 1 {
			team1 = append(team1, mp)
		} else {
			team2 = append(team2, mp)
		}
	}
	return team1, team2
}
