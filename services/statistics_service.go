package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dop-amin/foosball-tracker/models"
	"github.com/dop-amin/foosball-tracker/repositories"
)

// PlayerStatistics is derived from match history on every request; nothing
// here is stored.
type PlayerStatistics struct {
	PlayerID         int                                  `json:"player_id"`
	Rating           int                                  `json:"rating"`
	TotalGames       int                                  `json:"total_games"`
	Wins             int                                  `json:"wins"`
	Losses           int                                  `json:"losses"`
	WinRate          float64                              `json:"win_rate"`
	CurrentStreak    int                                  `json:"current_streak"`
	LongestWinStreak int                                  `json:"longest_win_streak"`
	ShutoutsGiven    int                                  `json:"shutouts_given"`
	ShutoutsReceived int                                  `json:"shutouts_received"`
	ByKind           map[models.MatchKind]*KindStatistics `json:"by_kind"`
}

type KindStatistics struct {
	Games int `json:"games"`
	Wins  int `json:"wins"`
}

type StatisticsService interface {
	ForPlayer(ctx context.Context, playerID int) (*PlayerStatistics, error)
}

type statisticsService struct {
	playerRepo repositories.PlayerRepository
	matchRepo  repositories.MatchRepository
}

func NewStatisticsService(playerRepo repositories.PlayerRepository, matchRepo repositories.MatchRepository) StatisticsService {
	return &statisticsService{playerRepo: playerRepo, matchRepo: matchRepo}
}

func (s *statisticsService) ForPlayer(ctx context.Context, playerID int) (*PlayerStatistics, error) {
	player, err := s.playerRepo.GetByID(ctx, playerID)
	if err != nil {
		if errors.Is(err, repositories.ErrPlayerNotFound) {
			return nil, fmt.Errorf("%w: id %d", ErrPlayerNotFound, playerID)
		}
		return nil, err
	}

	matches, err := s.matchRepo.ListChronological(ctx, nil, nil)
	if err != nil {
		return nil, err
	}

	stats := &PlayerStatistics{
		PlayerID: playerID,
		Rating:   player.Rating,
		ByKind:   make(map[models.MatchKind]*KindStatistics),
	}

	// CurrentStreak: положительное — серия побед, отрицательное — поражений.
	winStreak := 0
	for _, match := range matches {
		var mine *models.MatchPlayer
		for i := range match.Players {
			if match.Players[i].PlayerID == playerID {
				mine = &match.Players[i]
				break
			}
		}
		if mine == nil {
			continue
		}

		stats.TotalGames++
		kind := stats.ByKind[match.Kind]
		if kind == nil {
			kind = &KindStatistics{}
			stats.ByKind[match.Kind] = kind
		}
		kind.Games++

		if mine.IsWinner {
			stats.Wins++
			kind.Wins++
			winStreak++
			if winStreak > stats.LongestWinStreak {
				stats.LongestWinStreak = winStreak
			}
			if stats.CurrentStreak < 0 {
				stats.CurrentStreak = 0
			}
			stats.CurrentStreak++
			if match.IsShutout() {
				stats.ShutoutsGiven++
			}
		} else {
			stats.Losses++
			winStreak = 0
			if stats.CurrentStreak > 0 {
				stats.CurrentStreak = 0
			}
			stats.CurrentStreak--
			if match.IsShutout() {
				stats.ShutoutsReceived++
			}
		}
	}

	if stats.TotalGames > 0 {
		stats.WinRate = float64(stats.Wins) / float64(stats.TotalGames)
	}
	return stats, nil
}
