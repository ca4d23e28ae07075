package services

import (
	"fmt"

	"github.com/dop-amin/foosball-tracker/models"
)

// Допустимые переходы статусов турнира. Движение только вперёд.
var validStatusTransitions = map[models.TournamentStatus][]models.TournamentStatus{
	models.StatusSetup:     {models.StatusActive},
	models.StatusActive:    {models.StatusCompleted},
	models.StatusCompleted: {},
}

func isValidStatusTransition(from, to models.TournamentStatus) bool {
	for _, allowed := range validStatusTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// validateRoster rejects rosters no rating math can be run on: a side with
// no players, or the same player appearing twice in the match.
func validateRoster(players []models.MatchPlayer) error {
	var have1, have2 bool
	seen := make(map[int]struct{}, len(players))
	for _, mp := range players {
		switch mp.Team {
		case 1:
			have1 = true
		case 2:
			have2 = true
		default:
			return fmt.Errorf("%w: team %d", ErrRosterShapeInvalid, mp.Team)
		}
		if _, dup := seen[mp.PlayerID]; dup {
			return fmt.Errorf("%w: player %d", ErrDuplicatePlayer, mp.PlayerID)
		}
		seen[mp.PlayerID] = struct{}{}
	}
	if !have1 || !have2 {
		return ErrRosterEmpty
	}
	return nil
}

// rosterShape maps a match kind to the required team sizes.
func rosterShape(kind models.MatchKind) (team1Size, team2Size int, ok bool) {
	switch kind {
	case models.KindSingles:
		return 1, 1, true
	case models.KindDoubles:
		return 2, 2, true
	case models.KindTwoVOne:
		return 2, 1, true
	default:
		return 0, 0, false
	}
}
